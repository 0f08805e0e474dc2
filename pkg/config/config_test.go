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
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const sampleConfig = `
dsn = "postgres://localhost/news?sslmode=disable"

[scraper]
query = "nuclear"
sites = ["bloomberg.com", "iaea.org"]
start_date = "2024-01-01"
end_date = "2024-01-20"
workers = 2

[browser]
headless = false
nav_timeout = "10s"

[politeness]
page_delay_min = "1s"
page_delay_max = "3s"

[logging]
level = "debug"
format = "json"
`

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "nuclear", cfg.Scraper.Query)
	assert.Equal(t, []string{"bloomberg.com", "iaea.org"}, cfg.Scraper.Sites)
	assert.Equal(t, 2, cfg.Scraper.Workers)
	assert.Equal(t, 7, cfg.Scraper.MaxSpanDays)
	assert.Equal(t, 25, cfg.Scraper.MaxResultsPerWindow)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 10*time.Second, cfg.Browser.GetNavTimeout())
	assert.Equal(t, 2, cfg.AntiBot.MaxAttempts)

	lo, hi := cfg.Politeness.GetPageDelay()
	assert.Equal(t, time.Second, lo)
	assert.Equal(t, 3*time.Second, hi)

	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeConfig(t, "[scraper\nquery="))
	assert.Error(t, err)
}

func TestDurationFallback(t *testing.T) {
	c := BrowserConfig{NavTimeout: "soon"}
	assert.Equal(t, 30*time.Second, c.GetNavTimeout())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Scraper.Query = "nuclear"
		c.Scraper.StartDate = "2024-01-01"
		c.Scraper.EndDate = "2024-01-10"
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing query", func(c *Config) { c.Scraper.Query = " " }, ErrMissingQuery},
		{"bad start", func(c *Config) { c.Scraper.StartDate = "01/01/2024" }, ErrInvalidStartDate},
		{"bad end", func(c *Config) { c.Scraper.EndDate = "" }, ErrInvalidEndDate},
		{"inverted range", func(c *Config) { c.Scraper.StartDate = "2024-02-01" }, ErrInvalidDateRange},
		{"zero span", func(c *Config) { c.Scraper.MaxSpanDays = 0 }, ErrInvalidSpan},
		{"too many workers", func(c *Config) { c.Scraper.Workers = 50 }, ErrInvalidWorkers},
		{"unknown fetcher", func(c *Config) { c.Scraper.ContentFetcher = "curl" }, ErrInvalidFetcher},
		{"zero attempts", func(c *Config) { c.AntiBot.MaxAttempts = 0 }, ErrInvalidAttempts},
		{"inverted window", func(c *Config) { c.Browser.MinWidth = 4000 }, ErrInvalidWindowRange},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, ErrInvalidLogLevel},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), tt.want)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("NEWSREAP_DSN", "postgres://env")
	t.Setenv("NEWSREAP_REDIS_URL", "redis://env:6379/0")

	c := Default()
	c.DSN = "postgres://file"
	c.ApplyEnv()

	assert.Equal(t, "postgres://env", c.DSN)
	assert.Equal(t, "redis://env:6379/0", c.RedisURL)
}
