package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// sqlStore holds the append-only auctions table shared by the SQLite and
// PostgreSQL backends. Only the DDL and placeholder syntax differ.
type sqlStore struct {
	db          *sql.DB
	name        string
	placeholder func(n int) string
}

const selectAuctions = `
	SELECT tournament_name, location, total_players, auction_date, date_added
	FROM auctions
	ORDER BY id
`

func (s *sqlStore) migrate(ddl string) error {
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("%s: migrate: %w", s.name, err)
	}
	return nil
}

// ReadAll retrieves every stored row in insertion order.
func (s *sqlStore) ReadAll() ([][]string, error) {
	rows, err := s.db.Query(selectAuctions)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch all: %w", s.name, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var title, location, players, auctionDate, dateAdded string
		if err := rows.Scan(&title, &location, &players, &auctionDate, &dateAdded); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", s.name, err)
		}
		out = append(out, []string{title, location, players, auctionDate, dateAdded})
	}
	return out, rows.Err()
}

// Append inserts rows inside one transaction.
func (s *sqlStore) Append(rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.name, err)
	}

	const batchSize = 50
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.insertBatch(tx, rows[i:end]); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.name, err)
	}
	return nil
}

func (s *sqlStore) insertBatch(tx *sql.Tx, batch [][]string) error {
	const cols = 5
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*cols)

	for idx, row := range batch {
		ph := make([]string, cols)
		for c := 0; c < cols; c++ {
			ph[c] = s.placeholder(idx*cols + c + 1)
			if c < len(row) {
				valueArgs = append(valueArgs, row[c])
			} else {
				valueArgs = append(valueArgs, "")
			}
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
	}

	query := fmt.Sprintf(`
		INSERT INTO auctions (tournament_name, location, total_players, auction_date, date_added)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := tx.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("%s: insert batch: %w", s.name, err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
