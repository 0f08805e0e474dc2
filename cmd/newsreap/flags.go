package main

import (
	"errors"
	"flag"
	"os"
	"strings"

	"github.com/devraulu/newsreap/pkg/config"
)

type cliFlags struct {
	configPath   string
	query        string
	start        string
	end          string
	sites        string
	sitesFile    string
	headless     bool
	workers      int
	outputDir    string
	fetchContent bool
	fetcher      string
	resume       bool
	logLevel     string
}

func parseFlags(args []string) (*cliFlags, *flag.FlagSet, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("newsreap", flag.ContinueOnError)

	fs.StringVar(&f.configPath, "config", "config.toml", "path to the TOML config file")
	fs.StringVar(&f.query, "query", "", "search query")
	fs.StringVar(&f.start, "start", "", "first day to search (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "last day to search (YYYY-MM-DD)")
	fs.StringVar(&f.sites, "sites", "", "comma-separated site filters, e.g. reuters.com,bloomberg.com")
	fs.StringVar(&f.sitesFile, "sitesFile", "", "file with one site filter per line")
	fs.BoolVar(&f.headless, "headless", true, "run the browser without a window")
	fs.IntVar(&f.workers, "workers", 3, "content enrichment workers")
	fs.StringVar(&f.outputDir, "out", "output", "directory for the JSON and CSV artifacts")
	fs.BoolVar(&f.fetchContent, "fetchContent", true, "fetch full article text")
	fs.StringVar(&f.fetcher, "fetcher", "browser", "content fetcher: browser or http")
	fs.BoolVar(&f.resume, "resume", false, "skip sub-windows completed by an earlier run")
	fs.StringVar(&f.logLevel, "logLevel", "", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs, nil
}

// loadConfig reads the config file, falling back to defaults when the default
// path does not exist, then applies explicitly set flags and the environment.
func loadConfig(f *cliFlags, fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		set := false
		fs.Visit(func(fl *flag.Flag) {
			if fl.Name == "config" {
				set = true
			}
		})
		if set || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "query":
			cfg.Scraper.Query = f.query
		case "start":
			cfg.Scraper.StartDate = f.start
		case "end":
			cfg.Scraper.EndDate = f.end
		case "sites":
			cfg.Scraper.Sites = splitList(f.sites)
		case "sitesFile":
			cfg.Scraper.SitesFile = f.sitesFile
		case "headless":
			cfg.Browser.Headless = f.headless
		case "workers":
			cfg.Scraper.Workers = f.workers
		case "out":
			cfg.Scraper.OutputDir = f.outputDir
		case "fetchContent":
			cfg.Scraper.FetchContent = f.fetchContent
		case "fetcher":
			cfg.Scraper.ContentFetcher = f.fetcher
		case "resume":
			cfg.Scraper.Resume = f.resume
		case "logLevel":
			cfg.Logging.Level = f.logLevel
		}
	})

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
