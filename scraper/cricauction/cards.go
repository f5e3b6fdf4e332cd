package cricauction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"cricauction-scraper/models"
	"cricauction-scraper/services"
)

// dateLikeRegexp marks a subtext block as the auction-date source.
var dateLikeRegexp = regexp.MustCompile(`\b\d{1,2}[-/.]\d{1,2}[-/.]\d{4}\b`)

// Card is the raw text of one rendered listing card.
type Card struct {
	Title    string
	Location string
	Subtexts []string
}

// ParseCards extracts cards from the outerHTML fragments returned by
// cardsScript, one card per fragment.
func ParseCards(fragments []string) ([]Card, error) {
	cards := make([]Card, 0, len(fragments))
	for i, frag := range fragments {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(frag))
		if err != nil {
			return nil, fmt.Errorf("parse card %d: %w", i, err)
		}

		root := doc.Find(cardSelector).First()
		if root.Length() == 0 {
			root = doc.Find("body")
		}

		card := Card{
			Title:    strings.TrimSpace(root.Find(titleSelector).First().Text()),
			Location: strings.TrimSpace(root.Find(locationSelector).First().Text()),
		}
		root.Find(subtextSelector).Each(func(_ int, s *goquery.Selection) {
			card.Subtexts = append(card.Subtexts, innerText(s))
		})
		cards = append(cards, card)
	}
	return cards, nil
}

// innerText joins descendant text nodes with spaces so adjacent block
// elements never glue their words together.
func innerText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

// Record normalizes the card into a listing stamped with dateAdded. The
// first subtext mentioning "Players" feeds the player count and the first
// date-shaped subtext feeds the auction date.
func (c Card) Record(dateAdded string) models.Record {
	rec := models.Record{
		Title:     services.NormalizeWhitespace(c.Title),
		Location:  services.NormalizeWhitespace(c.Location),
		DateAdded: dateAdded,
	}
	if rec.Location == "" {
		rec.Location = models.UnknownLocation
	}

	var havePlayers, haveDate bool
	for _, raw := range c.Subtexts {
		if !havePlayers && strings.Contains(raw, "Players") {
			rec.PlayerCount = services.ExtractPlayerCount(raw)
			havePlayers = true
		}
		if !haveDate {
			if m := dateLikeRegexp.FindString(raw); m != "" {
				rec.AuctionDate = services.ParseAuctionDate(m)
				haveDate = true
			}
		}
	}
	return rec
}
