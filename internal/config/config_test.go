package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, DriverPostgres, cfg.Database.Driver)
				assert.Equal(t, DriverRedis, cfg.Cache.Driver)
				assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
				assert.Equal(t, "last_trading_dates", cfg.Cache.DatesKey)
				assert.Equal(t, 14, cfg.Cache.FlushHour)
				assert.Equal(t, 11, cfg.Cache.FlushMinute)
				assert.Equal(t, 1, cfg.Fetcher.FirstPage)
				assert.Equal(t, 64, cfg.Fetcher.LastPage)
				assert.Equal(t, 10, cfg.Fetcher.PerPage)
				assert.Equal(t, 2022, cfg.Fetcher.MinYear)
				assert.Equal(t, 15*time.Second, cfg.Fetcher.PageTimeout)
				assert.Equal(t, PageSourceHTTP, cfg.Fetcher.PageSource)
				assert.Equal(t, 10000, cfg.Parser.MaxRows)
				assert.Contains(t, cfg.Parser.HeaderMarkers, HeaderMarkerRU)
				assert.Contains(t, cfg.Parser.TotalMarkers, TotalMarkerEN)
				assert.Equal(t, IngestBackground, cfg.Ingest.OnStartup)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"SPIMEX_SERVER_PORT":          "9090",
				"SPIMEX_CACHE_DRIVER":         "memory",
				"SPIMEX_CACHE_TTL":            "2m",
				"SPIMEX_DATABASE_DRIVER":      "memory",
				"SPIMEX_FETCHER_LAST_PAGE":    "3",
				"SPIMEX_PARSER_TOTAL_MARKERS": "ИТОГО,Total",
				"SPIMEX_LOGGING_LEVEL":        "DEBUG",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, DriverMemory, cfg.Cache.Driver)
				assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
				assert.Equal(t, DriverMemory, cfg.Database.Driver)
				assert.Equal(t, 3, cfg.Fetcher.LastPage)
				assert.Equal(t, []string{"ИТОГО", "Total"}, cfg.Parser.TotalMarkers)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name: "yaml file overlays defaults and env wins over file",
			file: `
server:
  port: 7070
cache:
  ttl: 5m
  flush_hour: 3
fetcher:
  last_page: 2
`,
			env: map[string]string{
				"SPIMEX_SERVER_PORT": "7171",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7171, cfg.Server.Port)
				assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
				assert.Equal(t, 3, cfg.Cache.FlushHour)
				assert.Equal(t, 11, cfg.Cache.FlushMinute)
				assert.Equal(t, 2, cfg.Fetcher.LastPage)
			},
		},
		{
			name:    "invalid port number",
			env:     map[string]string{"SPIMEX_SERVER_PORT": "99999"},
			wantErr: true,
		},
		{
			name:    "unknown database driver",
			env:     map[string]string{"SPIMEX_DATABASE_DRIVER": "oracle"},
			wantErr: true,
		},
		{
			name:    "invalid flush hour",
			env:     map[string]string{"SPIMEX_CACHE_FLUSH_HOUR": "24"},
			wantErr: true,
		},
		{
			name:    "invalid page source",
			env:     map[string]string{"SPIMEX_FETCHER_PAGE_SOURCE": "ftp"},
			wantErr: true,
		},
		{
			name:    "invalid ingest mode",
			env:     map[string]string{"SPIMEX_INGEST_ON_STARTUP": "sometimes"},
			wantErr: true,
		},
		{
			name:    "unparseable duration",
			env:     map[string]string{"SPIMEX_CACHE_TTL": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			configPath := filepath.Join(dir, "missing.yaml")
			if tt.file != "" {
				configPath = filepath.Join(dir, "config.yaml")
				require.NoError(t, os.WriteFile(configPath, []byte(tt.file), 0o644))
				t.Setenv("SPIMEX_CONFIG_FILE", configPath)
			} else {
				t.Setenv("SPIMEX_CONFIG_FILE", "")
				t.Chdir(dir)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("SPIMEX_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
}

func TestValidateDatabasePool(t *testing.T) {
	cfg := Default()
	cfg.Database.MinConns = 5
	cfg.Database.MaxConns = 2

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_conns")
}

func TestValidateForcesJSONLogs(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
}
