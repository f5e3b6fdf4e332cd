package services

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"cricauction-scraper/models"
)

// Report renders the outcome of a run as terminal tables.
type Report struct {
	out io.Writer
}

// NewReport creates a Report writing to out.
func NewReport(out io.Writer) *Report {
	return &Report{out: out}
}

// Print renders the added rows, a per-location breakdown and the run summary.
func (r *Report) Print(res RunResult) {
	if len(res.Added) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		header := make(table.Row, 0, len(models.CSVHeaders))
		for _, h := range models.CSVHeaders {
			header = append(header, h)
		}
		t.AppendHeader(header)
		for _, rec := range res.Added {
			t.AppendRow(table.Row{truncate(rec.Title, 40), rec.Location, rec.PlayerCount, rec.AuctionDate, rec.DateAdded})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		t = table.NewWriter()
		t.SetOutputMirror(r.out)
		t.AppendHeader(table.Row{"Location", "New"})
		for _, lc := range ByLocation(res.Added) {
			t.AppendRow(table.Row{lc.Location, lc.Count})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.AppendHeader(table.Row{"Summary", ""})
	t.AppendRow(table.Row{"Pages", res.Walk.Pages})
	t.AppendRow(table.Row{"Stopped", string(res.Walk.Reason)})
	t.AppendRow(table.Row{"Scraped", res.Scraped})
	t.AppendRow(table.Row{"New locally", len(res.Added)})
	t.AppendRow(table.Row{"Uploaded", res.Uploaded})
	t.AppendRow(table.Row{"Sync", syncStatus(res)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// LocationCount is the number of listings seen for one location.
type LocationCount struct {
	Location string
	Count    int
}

// ByLocation groups records by location, most frequent first and
// alphabetical among ties.
func ByLocation(records []models.Record) []LocationCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Location]++
	}
	out := make([]LocationCount, 0, len(counts))
	for loc, n := range counts {
		out = append(out, LocationCount{Location: loc, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Location < out[j].Location
	})
	return out
}

func syncStatus(res RunResult) string {
	switch {
	case res.SyncErr != nil:
		return fmt.Sprintf("failed: %v", res.SyncErr)
	case res.SyncSkipped != "":
		return "skipped: " + res.SyncSkipped
	default:
		return "ok"
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
