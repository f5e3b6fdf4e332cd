package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultShareLink = "https://cricbattle.sharepoint.com/:x:/s/CorpDevaaf94619130d4a79af9f3aeae502bdb5/EdVug56P9cdNqWk8YrJV8-oBBqJ_vMqA4GlPACCCnAD4Og?e=ZmkkdP"
	DefaultWorksheet = "CricAuction Auction"
)

// Store backends for the local history.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ListingURL string

	StoreBackend string
	LocalCSV     string
	SQLitePath   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ShareLink     string
	WorksheetName string
	HTTPRetries   int

	Headless          bool
	MaxPages          int
	StagnantPageLimit int
	PageChangeTimeout time.Duration
	PollInterval      time.Duration
	LoadTimeout       time.Duration
	MaxRetries        int
	ChromeBin         string

	Debug bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an environment lookup function.
func FromEnv(getenv func(string) string) *Config {
	e := env(getenv)
	return &Config{
		ListingURL: e.str("LISTING_URL", "https://cricauction.live/upcoming-auction"),

		StoreBackend: strings.ToLower(e.str("STORE_BACKEND", BackendCSV)),
		LocalCSV:     e.str("LOCAL_CSV", "cricauction_upcoming.csv"),
		SQLitePath:   e.str("SQLITE_PATH", "cricauction.db"),

		PostgresHost:     e.str("POSTGRES_HOST", "localhost"),
		PostgresPort:     e.str("POSTGRES_PORT", "5432"),
		PostgresUser:     e.str("POSTGRES_USER", "scraper"),
		PostgresPassword: e.str("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       e.str("POSTGRES_DB", "auctions"),
		PostgresSSLMode:  e.str("POSTGRES_SSLMODE", "disable"),

		ShareLink:     e.str("SHARE_LINK", DefaultShareLink),
		WorksheetName: e.str("WORKSHEET_NAME", DefaultWorksheet),
		HTTPRetries:   e.int("HTTP_RETRIES", 5),

		Headless:          e.bool("HEADLESS", true),
		MaxPages:          e.int("MAX_PAGES", 500),
		StagnantPageLimit: e.int("STAGNANT_PAGE_LIMIT", 1),
		PageChangeTimeout: e.millis("PAGE_CHANGE_TIMEOUT_MS", 6000),
		PollInterval:      e.millis("POLL_INTERVAL_MS", 250),
		LoadTimeout:       e.millis("LOAD_TIMEOUT_MS", 10000),
		MaxRetries:        e.int("MAX_RETRIES", 2),
		ChromeBin:         e.str("CHROME_BIN", ""),

		Debug: e.bool("LOG_DEBUG", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

type env func(string) string

func (e env) str(key, fallback string) string {
	if val := strings.TrimSpace(e(key)); val != "" {
		return val
	}
	return fallback
}

func (e env) int(key string, fallback int) int {
	if val := strings.TrimSpace(e(key)); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func (e env) bool(key string, fallback bool) bool {
	if val := strings.TrimSpace(e(key)); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func (e env) millis(key string, fallbackMs int) time.Duration {
	return time.Duration(e.int(key, fallbackMs)) * time.Millisecond
}
