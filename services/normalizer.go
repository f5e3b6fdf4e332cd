package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"cricauction-scraper/models"
)

const isoDate = "2006-01-02"

var (
	// playersRegexp captures the number in "16 Players" style text
	playersRegexp = regexp.MustCompile(`(?i)(\d+)\s*Players`)
	// isoDateRegexp finds an embedded YYYY-MM-DD date
	isoDateRegexp = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)

	// auctionDateLayouts are tried in order; the first match wins.
	// DD-MM-YYYY, DD/MM/YYYY, DD.MM.YYYY, YYYY-MM-DD
	auctionDateLayouts = []string{"2-1-2006", "2/1/2006", "2.1.2006", "2006-1-2"}
)

// NormalizeWhitespace renders v as text, collapses whitespace runs to a
// single space and trims both ends.
func NormalizeWhitespace(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	case time.Time:
		return t.Format(isoDate)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(isoDate)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		s = fmt.Sprint(t)
	}
	return strings.Join(strings.Fields(s), " ")
}

// ExtractPlayerCount returns the digits of "<n> Players", or the normalized
// text when no such pattern is present.
func ExtractPlayerCount(text string) string {
	if m := playersRegexp.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return NormalizeWhitespace(text)
}

// ParseAuctionDate canonicalizes an auction date to YYYY-MM-DD on a best
// effort basis. Numbers are spreadsheet serials, time values are formatted
// directly and text is tried against the known layouts before falling back
// to an embedded ISO date or the normalized text itself.
// ParseAuctionDate(ParseAuctionDate(v)) == ParseAuctionDate(v).
func ParseAuctionDate(v any) string {
	if serial, ok := spreadsheetSerial(v); ok {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format(isoDate)
		}
	}

	s := NormalizeWhitespace(v)
	if s == "" {
		return ""
	}
	if _, isTime := v.(time.Time); isTime {
		return s
	}

	for _, layout := range auctionDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate)
		}
	}
	if m := isoDateRegexp.FindString(s); m != "" {
		return m
	}
	return s
}

func spreadsheetSerial(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// BuildIdentityKey derives the identity of a scraped record.
// PlayerCount and DateAdded never participate.
func BuildIdentityKey(r models.Record) models.IdentityKey {
	return models.IdentityKey{
		Title:       NormalizeWhitespace(r.Title),
		Location:    NormalizeWhitespace(r.Location),
		AuctionDate: ParseAuctionDate(r.AuctionDate),
	}
}

// RowKey derives the identity of a positional store row
// (title@0, location@1, auction date@3). Absent positions are empty.
func RowKey[T any](row []T) models.IdentityKey {
	var key models.IdentityKey
	if len(row) > 0 {
		key.Title = NormalizeWhitespace(any(row[0]))
	}
	if len(row) > 1 {
		key.Location = NormalizeWhitespace(any(row[1]))
	}
	if len(row) > 3 {
		key.AuctionDate = ParseAuctionDate(any(row[3]))
	}
	return key
}
