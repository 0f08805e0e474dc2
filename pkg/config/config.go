package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const DateLayout = "2006-01-02"

var (
	ErrMissingQuery       = errors.New("scraper.query is required")
	ErrInvalidStartDate   = errors.New("scraper.start_date must be YYYY-MM-DD")
	ErrInvalidEndDate     = errors.New("scraper.end_date must be YYYY-MM-DD")
	ErrInvalidDateRange   = errors.New("scraper.start_date cannot be after scraper.end_date")
	ErrInvalidSpan        = errors.New("scraper.max_span_days must be at least 1")
	ErrInvalidWorkers     = errors.New("scraper.workers must be between 1 and 16")
	ErrInvalidFetcher     = errors.New("scraper.content_fetcher must be 'browser' or 'http'")
	ErrInvalidAttempts    = errors.New("antibot.max_attempts must be at least 1")
	ErrInvalidWindowRange = errors.New("browser window bounds are inverted")
	ErrInvalidLogLevel    = errors.New("logging.level must be one of: debug, info, warn, error")
)

type Config struct {
	DSN        string           `toml:"dsn"`
	RedisURL   string           `toml:"redis_url"`
	Scraper    ScraperConfig    `toml:"scraper"`
	Search     SearchConfig     `toml:"search"`
	Browser    BrowserConfig    `toml:"browser"`
	Politeness PolitenessConfig `toml:"politeness"`
	AntiBot    AntiBotConfig    `toml:"antibot"`
	Enrich     EnrichConfig     `toml:"enrich"`
	Extract    ExtractConfig    `toml:"extract"`
	Logging    LoggingConfig    `toml:"logging"`
}

type ScraperConfig struct {
	Query               string   `toml:"query"`
	Sites               []string `toml:"sites"`
	SitesFile           string   `toml:"sites_file"`
	StartDate           string   `toml:"start_date"`
	EndDate             string   `toml:"end_date"`
	MaxSpanDays         int      `toml:"max_span_days"`
	MaxResultsPerWindow int      `toml:"max_results_per_window"`
	Workers             int      `toml:"workers"`
	FetchContent        bool     `toml:"fetch_content"`
	ContentFetcher      string   `toml:"content_fetcher"`
	OutputDir           string   `toml:"output_dir"`
	Resume              bool     `toml:"resume"`
	CheckpointFile      string   `toml:"checkpoint_file"`
}

type SearchConfig struct {
	BaseURL  string `toml:"base_url"`
	News     bool   `toml:"news"`
	Language string `toml:"language"`
}

type BrowserConfig struct {
	Headless     bool     `toml:"headless"`
	UserAgents   []string `toml:"user_agents"`
	MinWidth     int      `toml:"min_width"`
	MaxWidth     int      `toml:"max_width"`
	MinHeight    int      `toml:"min_height"`
	MaxHeight    int      `toml:"max_height"`
	NavTimeout   string   `toml:"nav_timeout"`
	NavRetries   int      `toml:"nav_retries"`
	NavBackoff   string   `toml:"nav_backoff"`
	StartRetries int      `toml:"start_retries"`
	Tabs         int      `toml:"tabs"`
	Proxy        string   `toml:"proxy"`
	ExecPath     string   `toml:"exec_path"`
}

type PolitenessConfig struct {
	PageDelayMin   string `toml:"page_delay_min"`
	PageDelayMax   string `toml:"page_delay_max"`
	WindowDelayMin string `toml:"window_delay_min"`
	WindowDelayMax string `toml:"window_delay_max"`
}

type AntiBotConfig struct {
	MaxAttempts  int      `toml:"max_attempts"`
	CooldownMin  string   `toml:"cooldown_min"`
	CooldownMax  string   `toml:"cooldown_max"`
	PointerMoves int      `toml:"pointer_moves"`
	Signatures   []string `toml:"signatures"`
}

type EnrichConfig struct {
	MinContentLength  int     `toml:"min_content_length"`
	RespectRobots     bool    `toml:"respect_robots"`
	HTTPTimeout       string  `toml:"http_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	UserAgent         string  `toml:"user_agent"`
}

// ExtractConfig overrides the built-in selector tiers. Empty lists keep the defaults.
type ExtractConfig struct {
	Containers       []string `toml:"containers"`
	TitleSelectors   []string `toml:"title_selectors"`
	LinkSelectors    []string `toml:"link_selectors"`
	SnippetSelectors []string `toml:"snippet_selectors"`
	DateSelectors    []string `toml:"date_selectors"`
	SourceSelectors  []string `toml:"source_selectors"`
	NextSelectors    []string `toml:"next_selectors"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Default() *Config {
	var cfg Config

	cfg.Scraper.MaxSpanDays = 7
	cfg.Scraper.MaxResultsPerWindow = 25
	cfg.Scraper.Workers = 3
	cfg.Scraper.FetchContent = true
	cfg.Scraper.ContentFetcher = "browser"
	cfg.Scraper.OutputDir = "output"
	cfg.Scraper.CheckpointFile = "checkpoint.json"

	cfg.Search.BaseURL = "https://www.google.com/search"
	cfg.Search.News = true
	cfg.Search.Language = "en"

	cfg.Browser.Headless = true
	cfg.Browser.MinWidth = 1280
	cfg.Browser.MaxWidth = 1920
	cfg.Browser.MinHeight = 720
	cfg.Browser.MaxHeight = 1080
	cfg.Browser.NavTimeout = "30s"
	cfg.Browser.NavRetries = 3
	cfg.Browser.NavBackoff = "2s"
	cfg.Browser.StartRetries = 3
	cfg.Browser.Tabs = 3

	cfg.Politeness.PageDelayMin = "2s"
	cfg.Politeness.PageDelayMax = "5s"
	cfg.Politeness.WindowDelayMin = "5s"
	cfg.Politeness.WindowDelayMax = "12s"

	cfg.AntiBot.MaxAttempts = 2
	cfg.AntiBot.CooldownMin = "20s"
	cfg.AntiBot.CooldownMax = "45s"
	cfg.AntiBot.PointerMoves = 8

	cfg.Enrich.MinContentLength = 200
	cfg.Enrich.RespectRobots = true
	cfg.Enrich.HTTPTimeout = "15s"
	cfg.Enrich.RequestsPerSecond = 1

	cfg.Logging.Format = "text"
	cfg.Logging.Level = "info"

	return &cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv lets NEWSREAP_DSN and NEWSREAP_REDIS_URL override file values.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("NEWSREAP_DSN"); v != "" {
		c.DSN = v
	}
	if v := os.Getenv("NEWSREAP_REDIS_URL"); v != "" {
		c.RedisURL = v
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Scraper.Query) == "" {
		return ErrMissingQuery
	}

	start, err := time.Parse(DateLayout, c.Scraper.StartDate)
	if err != nil {
		return ErrInvalidStartDate
	}
	end, err := time.Parse(DateLayout, c.Scraper.EndDate)
	if err != nil {
		return ErrInvalidEndDate
	}
	if start.After(end) {
		return ErrInvalidDateRange
	}

	if c.Scraper.MaxSpanDays < 1 {
		return ErrInvalidSpan
	}
	if c.Scraper.Workers < 1 || c.Scraper.Workers > 16 {
		return ErrInvalidWorkers
	}
	switch c.Scraper.ContentFetcher {
	case "browser", "http":
	default:
		return ErrInvalidFetcher
	}

	if c.AntiBot.MaxAttempts < 1 {
		return ErrInvalidAttempts
	}
	if c.Browser.MinWidth > c.Browser.MaxWidth || c.Browser.MinHeight > c.Browser.MaxHeight {
		return ErrInvalidWindowRange
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	return nil
}

func (c *ScraperConfig) Range() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidStartDate
	}
	end, err := time.Parse(DateLayout, c.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidEndDate
	}
	return start, end, nil
}

func (c *BrowserConfig) GetNavTimeout() time.Duration {
	return parseDuration(c.NavTimeout, 30*time.Second)
}

func (c *BrowserConfig) GetNavBackoff() time.Duration {
	return parseDuration(c.NavBackoff, 2*time.Second)
}

func (c *PolitenessConfig) GetPageDelay() (time.Duration, time.Duration) {
	return parseDuration(c.PageDelayMin, 2*time.Second), parseDuration(c.PageDelayMax, 5*time.Second)
}

func (c *PolitenessConfig) GetWindowDelay() (time.Duration, time.Duration) {
	return parseDuration(c.WindowDelayMin, 5*time.Second), parseDuration(c.WindowDelayMax, 12*time.Second)
}

func (c *AntiBotConfig) GetCooldown() (time.Duration, time.Duration) {
	return parseDuration(c.CooldownMin, 20*time.Second), parseDuration(c.CooldownMax, 45*time.Second)
}

func (c *EnrichConfig) GetHTTPTimeout() time.Duration {
	return parseDuration(c.HTTPTimeout, 15*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
