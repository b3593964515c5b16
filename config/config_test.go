package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "drills_id", cfg.Auth.CookieName)
	assert.False(t, cfg.Drill.RevealAnswers)
	assert.Equal(t, "./bank", cfg.Bank.Path)
	assert.Equal(t, time.Duration(0), cfg.IngestionInterval)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drills.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
SERVER_PORT: ":9090"
DATABASE:
  DRIVER: postgres
  URL: postgresql://drills@db:5432/drills
DRILL:
  REVEAL_ANSWERS: true
  TIMEZONE: Europe/Berlin
INGESTION_INTERVAL: 10m
`), 0o644))
	t.Setenv("DRILLS_DATABASE_URL", "postgresql://override@db:5432/drills")
	t.Setenv("DRILLS_AUTH_JWT_SIGNING_KEY", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgresql://override@db:5432/drills", cfg.Database.URL)
	assert.Equal(t, "from-env", cfg.Auth.JWTSigningKey)
	assert.True(t, cfg.Drill.RevealAnswers)
	assert.Equal(t, 10*time.Minute, cfg.IngestionInterval)

	loc, err := cfg.Drill.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DRILLS_DATABASE_DRIVER", "mysql")
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	loc, err := DrillConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	_, err = DrillConfig{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}
