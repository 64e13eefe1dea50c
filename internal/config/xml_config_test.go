package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/invoice-intake/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DATA_DIR", "STORE_BACKEND", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice-intake.config")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config is written")

	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, store.BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.GetDataDir())
	assert.Equal(t, filepath.Join(dir, "data", "uploads"), cfg.GetUploadDir())
	assert.Equal(t, 10, cfg.Query.DefaultLimit)
	assert.Equal(t, 100, cfg.Query.MaxLimit)

	lo, hi := cfg.ProcessingDelays()
	assert.Equal(t, 15*time.Second, lo)
	assert.Equal(t, 45*time.Second, hi)
	assert.Equal(t, 0.2, cfg.Processing.FailureRate)
}

func TestLoadConfig_RoundTripsSavedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "app.config")

	want := DefaultConfig()
	want.Server.Port = 9100
	want.Storage.Backend = store.BackendDuckDB
	want.Processing.CatalogFile = "catalog.yaml"
	require.NoError(t, want.Save(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, store.BackendDuckDB, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "catalog.yaml"), cfg.Processing.CatalogFile)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "app.config")
	require.NoError(t, os.WriteFile(path, []byte(`<InvoiceIntake><Server><Port>7000</Port></Server></InvoiceIntake>`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 45, cfg.Processing.MaxDelaySeconds)
	assert.Equal(t, "info", cfg.Advanced.LogLevel)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv("PORT", "9200")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("STORE_BACKEND", "DuckDB")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "app.config"))
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, dataDir, cfg.GetDataDir())
	assert.Equal(t, filepath.Join(dataDir, "uploads"), cfg.GetUploadDir())
	assert.Equal(t, store.BackendDuckDB, cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9300\n"), 0644))
	// godotenv never overrides variables that are already set
	require.NoError(t, os.Unsetenv("PORT"))

	cfg, err := LoadConfig(filepath.Join(dir, "app.config"))
	require.NoError(t, err)
	assert.Equal(t, 9300, cfg.Server.Port)
}

func TestLoadConfig_RejectsMalformedXML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "app.config")
	require.NoError(t, os.WriteFile(path, []byte("<InvoiceIntake><Server>"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *AppConfig)
	}{
		{"min delay above max", func(c *AppConfig) { c.Processing.MinDelaySeconds = 50 }},
		{"negative min delay", func(c *AppConfig) { c.Processing.MinDelaySeconds = -1 }},
		{"failure rate above one", func(c *AppConfig) { c.Processing.FailureRate = 1.5 }},
		{"negative failure rate", func(c *AppConfig) { c.Processing.FailureRate = -0.1 }},
		{"zero default limit", func(c *AppConfig) { c.Query.DefaultLimit = 0 }},
		{"default above max", func(c *AppConfig) { c.Query.DefaultLimit = 500 }},
		{"unknown backend", func(c *AppConfig) { c.Storage.Backend = "postgres" }},
		{"bad port", func(c *AppConfig) { c.Server.Port = 0 }},
		{"bad log level", func(c *AppConfig) { c.Advanced.LogLevel = "verbose" }},
	}

	assert.NoError(t, DefaultConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_BackendsOpen(t *testing.T) {
	for _, backend := range []string{store.BackendMemory, store.BackendDuckDB} {
		t.Run(backend, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Storage.Backend = backend
			require.NoError(t, cfg.Validate())

			s, err := store.New(store.Options{Backend: cfg.Storage.Backend, DuckDBThreads: 1})
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}

func TestSetupLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Advanced.LogFormat = "json"
	cfg.Advanced.LogLevel = "warn"

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupLogger(cfg, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "invoice_id", "inv-1")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "inv-1", rec["invoice_id"])
}
