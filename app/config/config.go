package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration, loaded once at startup from
// the environment (optionally seeded from a .env file).
type AppConfig struct {
	// HTTP listen address, e.g. ":8080"
	HTTPAddr string

	// Local SQLite database path
	LocalDBPath string

	// Remote Postgres DSN. Empty disables the cloud mirror for this session.
	RemoteDSN string

	// How often each collection listener polls the remote change feed
	SyncInterval time.Duration

	// Directory for rotating log files
	LogDir string

	// Seeded on first run only
	AdminUser     string
	AdminPassword string

	// Google Sheets report export
	SheetsCredentialsFile string
	SheetsSpreadsheetID   string
	SheetsSheetName       string
	// Daily automatic export time ("HH:MM"), empty disables the scheduler
	SheetsExportTime string

	// Advertise the instance on the LAN via mDNS
	EnableMDNS bool
}

// Load reads configuration from .env and the environment. Missing values fall
// back to development defaults; only the remote DSN may be legitimately empty.
func Load() *AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &AppConfig{
		HTTPAddr:              ":" + envOr("HTTP_PORT", "8080"),
		LocalDBPath:           envOr("LOCAL_DB_PATH", "./data/local.db"),
		RemoteDSN:             buildRemoteDSNFromEnv(),
		SyncInterval:          envDuration("SYNC_INTERVAL", 5*time.Second),
		LogDir:                envOr("LOG_DIR", "./logs"),
		AdminUser:             envOr("ADMIN_USER", "admin"),
		AdminPassword:         envOr("ADMIN_PASSWORD", "admin123"),
		SheetsCredentialsFile: os.Getenv("SHEETS_CREDENTIALS_FILE"),
		SheetsSpreadsheetID:   os.Getenv("SHEETS_SPREADSHEET_ID"),
		SheetsSheetName:       envOr("SHEETS_SHEET_NAME", "Daily Summary"),
		SheetsExportTime:      os.Getenv("SHEETS_EXPORT_TIME"),
		EnableMDNS:            envBool("ENABLE_MDNS", true),
	}

	return cfg
}

// buildRemoteDSNFromEnv constructs the remote connection string.
// DATABASE_URL wins; otherwise discrete DB_* variables are assembled.
// Returns empty when neither is configured, which disables the mirror.
func buildRemoteDSNFromEnv() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	port := envOr("DB_PORT", "5432")
	user := envOr("DB_USER", "postgres")
	password := envOr("DB_PASSWORD", "postgres")
	dbname := envOr("DB_NAME", "posledger")
	sslmode := envOr("DB_SSLMODE", "disable")

	return "host=" + host + " port=" + port + " user=" + user +
		" password=" + password + " dbname=" + dbname + " sslmode=" + sslmode
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
