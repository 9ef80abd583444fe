package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 14, cfg.Loans.DefaultDays)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigFile, cfg.Path())
	assert.Equal(t, Default().Database, cfg.Database)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: pgx
  dsn: postgres://library@localhost/library
loans:
  default_days: 21
log:
  level: debug
  format: json
timezone: America/Sao_Paulo
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, Database{Driver: "pgx", DSN: "postgres://library@localhost/library"}, cfg.Database)
	assert.Equal(t, 21, cfg.Loans.DefaultDays)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", loc.String())
}

func TestLoadKeepsUnsetDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "loans:\n  default_days: 7\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Loans.DefaultDays)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"driver", "database:\n  driver: mysql\n"},
		{"empty dsn", "database:\n  dsn: \"\"\n"},
		{"loan days", "loans:\n  default_days: 0\n"},
		{"log level", "log:\n  level: loud\n"},
		{"log format", "log:\n  format: xml\n"},
		{"timezone", "timezone: Mars/Olympus\n"},
		{"syntax", "database: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "loan_id", 7)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"loan_id":7`)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Loans.DefaultDays = 10
	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.Loans.DefaultDays)
	assert.Equal(t, cfg.Database, loaded.Database)
}
