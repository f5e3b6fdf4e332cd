package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS auctions (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		tournament_name TEXT NOT NULL,
		location        TEXT NOT NULL DEFAULT '',
		total_players   TEXT NOT NULL DEFAULT '',
		auction_date    TEXT NOT NULL DEFAULT '',
		date_added      TEXT NOT NULL DEFAULT ''
	);
`

// SQLiteStore keeps the local history in a single-file SQLite database.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// auctions table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &SQLiteStore{sqlStore{
		db:          db,
		name:        "sqlite",
		placeholder: func(int) string { return "?" },
	}}
	if err := s.migrate(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
