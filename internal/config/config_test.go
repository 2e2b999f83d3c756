package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "data/expenses.csv", cfg.StorePath)
	assert.Equal(t, time.Now().Year(), cfg.ReferenceYear)
	assert.Equal(t, "", cfg.AnchorMarker)
	assert.Equal(t, 10, cfg.BackupKeep)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_PATH", "/tmp/tx.csv")
	t.Setenv("REFERENCE_YEAR", "2019")
	t.Setenv("ANCHOR_MARKER", "KOK CHUN SHEN")
	t.Setenv("BACKUP_KEEP", "3")
	t.Setenv("PORT", "9000")

	cfg := Load()

	assert.Equal(t, "/tmp/tx.csv", cfg.StorePath)
	assert.Equal(t, 2019, cfg.ReferenceYear)
	assert.Equal(t, "KOK CHUN SHEN", cfg.AnchorMarker)
	assert.Equal(t, 3, cfg.BackupKeep)
	assert.Equal(t, "9000", cfg.Port)
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("REFERENCE_YEAR", "not-a-year")
	cfg := Load()
	assert.Equal(t, time.Now().Year(), cfg.ReferenceYear)
}
