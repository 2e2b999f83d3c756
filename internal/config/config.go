// Package config loads runtime configuration from the environment, with a
// .env file picked up when present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration surface.
type Config struct {
	// StorePath is the durable transaction CSV file.
	StorePath string
	// ReferenceYear resolves the year-less per-line statement dates.
	// Statements from another year must be imported with this set
	// explicitly; the default is only correct for current-year
	// statements.
	ReferenceYear int
	// AnchorMarker is the literal (typically the cardholder name) that
	// marks the start of transaction lines in the converted statement.
	AnchorMarker string
	// CategoryConfig optionally points at a JSON category table that
	// overrides the built-in one.
	CategoryConfig string
	// BackupKeep is how many timestamped snapshot backups to retain.
	BackupKeep int
	// Port is the HTTP listen port in serve mode.
	Port string
}

// Load reads configuration from the environment. Every field has a
// default except the anchor marker, which extraction callers must check
// before use.
func Load() Config {
	// Load .env file if present
	_ = godotenv.Load()

	return Config{
		StorePath:      getEnv("STORE_PATH", "data/expenses.csv"),
		ReferenceYear:  getEnvInt("REFERENCE_YEAR", time.Now().Year()),
		AnchorMarker:   getEnv("ANCHOR_MARKER", ""),
		CategoryConfig: getEnv("CATEGORY_CONFIG", ""),
		BackupKeep:     getEnvInt("BACKUP_KEEP", 10),
		Port:           getEnv("PORT", "8080"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
