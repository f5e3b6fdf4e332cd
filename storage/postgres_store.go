package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"cricauction-scraper/utils"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS auctions (
		id              SERIAL PRIMARY KEY,
		tournament_name TEXT NOT NULL,
		location        TEXT NOT NULL DEFAULT '',
		total_players   TEXT NOT NULL DEFAULT '',
		auction_date    TEXT NOT NULL DEFAULT '',
		date_added      TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_auctions_identity ON auctions(tournament_name, location, auction_date);
`

// PostgresStore keeps the local history in a PostgreSQL table.
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore opens a connection, waits for the server to answer and
// ensures the auctions table exists.
func NewPostgresStore(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do(ctx, "postgres-ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	s := &PostgresStore{sqlStore{
		db:          db,
		name:        "postgres",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}}
	if err := s.migrate(postgresSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
