package models

// UnknownLocation is stored when a card carries no location text.
const UnknownLocation = "Unknown Location"

// CSVHeaders is the exact header row of the local store and the remote sheet.
var CSVHeaders = []string{"Tournament Name", "Location", "Total players", "Auction Date", "Date Added"}

// Record is one upcoming-auction listing as scraped in the current run.
// Records are never mutated after the walker builds them.
type Record struct {
	Title       string
	Location    string
	PlayerCount string
	AuctionDate string
	DateAdded   string
}

// IdentityKey identifies a listing across runs and stores. Only title,
// location and auction date participate.
type IdentityKey struct {
	Title       string
	Location    string
	AuctionDate string
}

// Row renders the record in store column order.
func (r Record) Row() []string {
	return []string{r.Title, r.Location, r.PlayerCount, r.AuctionDate, r.DateAdded}
}

// RecordFromRow rebuilds a Record from a positional store row. Missing
// trailing fields are left empty.
func RecordFromRow(row []string) Record {
	field := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return Record{
		Title:       field(0),
		Location:    field(1),
		PlayerCount: field(2),
		AuctionDate: field(3),
		DateAdded:   field(4),
	}
}

// Rows renders a batch of records in store column order.
func Rows(records []Record) [][]string {
	out := make([][]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Row())
	}
	return out
}
