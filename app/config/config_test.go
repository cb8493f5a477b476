package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://public.api.bsky.app", cfg.Feed.Host)
	assert.Equal(t, int64(20), cfg.Feed.PageSize)
	assert.Equal(t, time.Hour, cfg.Avatar.CacheTTL)
	assert.Equal(t, int64(5<<20), cfg.Ingest.MaxUploadBytes)
	assert.Equal(t, 2, cfg.Export.Scale)
	assert.Equal(t, 5, cfg.Picker.PageSize)
	assert.Equal(t, time.Second, cfg.Picker.Debounce)
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  analytics_id: "G-TEST"
feed:
  host: "http://localhost:2583"
  page_size: 50
avatar:
  cache_ttl: 30m
picker:
  debounce: 250ms
location: UTC
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "G-TEST", cfg.Server.AnalyticsID)
	assert.Equal(t, "static", cfg.Server.StaticDir)
	assert.Equal(t, "http://localhost:2583", cfg.Feed.Host)
	assert.Equal(t, int64(50), cfg.Feed.PageSize)
	assert.Equal(t, 30*time.Minute, cfg.Avatar.CacheTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Picker.Debounce)

	loc, err := cfg.TimeLocation()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
`)
	t.Setenv("SKYMOCK_SERVER_ADDR", ":7070")
	t.Setenv("SKYMOCK_FEED_PAGE_SIZE", "10")
	t.Setenv("SKYMOCK_STORAGE_IN_MEMORY", "true")
	t.Setenv("ANALYTICS_ID", "G-ENV")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, int64(10), cfg.Feed.PageSize)
	assert.True(t, cfg.Storage.InMemory)
	assert.Equal(t, "G-ENV", cfg.Server.AnalyticsID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"missing addr", func(c *Config) { c.Server.Addr = "" }, true},
		{"bad feed host", func(c *Config) { c.Feed.Host = "not a url" }, true},
		{"page size too large", func(c *Config) { c.Feed.PageSize = 500 }, true},
		{"no storage path", func(c *Config) { c.Storage.Path = "" }, true},
		{"in memory without path", func(c *Config) { c.Storage.Path = ""; c.Storage.InMemory = true }, false},
		{"unknown location", func(c *Config) { c.Location = "Mars/Olympus" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}
