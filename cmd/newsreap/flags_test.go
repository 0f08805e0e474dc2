package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devraulu/newsreap/pkg/config"
)

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[scraper]
query = "from file"
start_date = "2024-01-01"
end_date = "2024-01-31"
workers = 2
`), 0o644))

	f, fs, err := parseFlags([]string{"-config", path, "-query", "nuclear", "-sites", "reuters.com, bloomberg.com", "-fetcher", "http"})
	require.NoError(t, err)

	cfg, err := loadConfig(f, fs)
	require.NoError(t, err)
	assert.Equal(t, "nuclear", cfg.Scraper.Query)
	assert.Equal(t, []string{"reuters.com", "bloomberg.com"}, cfg.Scraper.Sites)
	assert.Equal(t, "http", cfg.Scraper.ContentFetcher)
	assert.Equal(t, 2, cfg.Scraper.Workers, "unset flags keep file values")
	assert.Equal(t, "2024-01-31", cfg.Scraper.EndDate)
}

func TestMissingDefaultConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("NEWSREAP_DSN", "postgres://localhost/newsreap")

	f, fs, err := parseFlags([]string{"-config", "config.toml", "-query", "q", "-start", "2024-01-01", "-end", "2024-01-02"})
	require.NoError(t, err)

	// an explicitly named config file must exist
	_, err = loadConfig(f, fs)
	assert.Error(t, err)

	f, fs, err = parseFlags([]string{"-query", "q", "-start", "2024-01-01", "-end", "2024-01-02"})
	require.NoError(t, err)
	f.configPath = filepath.Join(t.TempDir(), "absent.toml")

	cfg, err := loadConfig(f, fs)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Scraper.MaxSpanDays, cfg.Scraper.MaxSpanDays)
	assert.Equal(t, "postgres://localhost/newsreap", cfg.DSN)
}

func TestInvalidFlagsFailValidation(t *testing.T) {
	f, fs, err := parseFlags([]string{"-query", "q", "-start", "2024-02-01", "-end", "2024-01-01"})
	require.NoError(t, err)
	f.configPath = filepath.Join(t.TempDir(), "absent.toml")

	_, err = loadConfig(f, fs)
	assert.ErrorIs(t, err, config.ErrInvalidDateRange)
}
