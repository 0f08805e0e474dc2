package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/devraulu/newsreap/pkg/antibot"
	"github.com/devraulu/newsreap/pkg/browser"
	"github.com/devraulu/newsreap/pkg/checkpoint"
	"github.com/devraulu/newsreap/pkg/config"
	"github.com/devraulu/newsreap/pkg/delay"
	"github.com/devraulu/newsreap/pkg/driver"
	"github.com/devraulu/newsreap/pkg/enrich"
	"github.com/devraulu/newsreap/pkg/extract"
	"github.com/devraulu/newsreap/pkg/logger"
	"github.com/devraulu/newsreap/pkg/pipeline"
	"github.com/devraulu/newsreap/pkg/search"
	"github.com/devraulu/newsreap/pkg/storage"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("couldn't load .env", slog.Any("err", err))
	}

	flags, fs, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(flags, fs)
	if err != nil {
		slog.Error("fatal: invalid configuration", slog.Any("err", err))
		return 1
	}

	logger.InitLogger(cfg)

	sites, err := resolveSites(cfg)
	if err != nil {
		slog.Error("fatal: couldn't load sites", slog.Any("err", err))
		return 1
	}

	start, end, err := cfg.Scraper.Range()
	if err != nil {
		slog.Error("fatal: bad date range", slog.Any("err", err))
		return 1
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	appSignal := make(chan os.Signal, 1)
	signal.Notify(appSignal, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(appSignal)

	go func() {
		select {
		case s := <-appSignal:
			slog.Info("received system signal", slog.String("signal", s.String()))
			stop()
		case <-ctx.Done():
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("fatal: couldn't open storage", slog.Any("err", err))
		return 1
	}
	defer store.Close()

	checkpoints, err := openCheckpoints(ctx, cfg)
	if err != nil {
		slog.Error("fatal: couldn't open checkpoint store", slog.Any("err", err))
		return 1
	}
	defer checkpoints.Close()

	seed := time.Now().UnixNano()
	pacer := delay.NewRandom(seed)

	session, err := browser.Open(ctx, browserConfig(cfg, seed), pacer)
	if err != nil {
		slog.Error("fatal: couldn't start browser", slog.Any("err", err))
		return 1
	}
	defer session.Close()

	enricher, closeFetcher, err := buildEnricher(cfg, session)
	if err != nil {
		slog.Error("fatal: couldn't prepare content fetcher", slog.Any("err", err))
		return 1
	}
	defer closeFetcher()

	opts := session.Options()
	cooldownMin, cooldownMax := cfg.AntiBot.GetCooldown()
	handler := antibot.New(antibot.Config{
		MaxAttempts:  cfg.AntiBot.MaxAttempts,
		CooldownMin:  cooldownMin,
		CooldownMax:  cooldownMax,
		PointerMoves: cfg.AntiBot.PointerMoves,
		Width:        opts.WindowWidth,
		Height:       opts.WindowHeight,
		Signatures:   cfg.AntiBot.Signatures,
	}, pacer, seed)

	pageMin, pageMax := cfg.Politeness.GetPageDelay()
	windowMin, windowMax := cfg.Politeness.GetWindowDelay()
	d := driver.New(driver.Config{
		Sites:               sites,
		MaxSpanDays:         cfg.Scraper.MaxSpanDays,
		MaxResultsPerWindow: cfg.Scraper.MaxResultsPerWindow,
		PageDelayMin:        pageMin,
		PageDelayMax:        pageMax,
		WindowDelayMin:      windowMin,
		WindowDelayMax:      windowMax,
	},
		session,
		handler,
		extract.New(selectors(cfg)),
		search.Builder{BaseURL: cfg.Search.BaseURL, News: cfg.Search.News, Language: cfg.Search.Language},
		pacer,
	)

	p := pipeline.New(pipeline.Config{
		Query:     cfg.Scraper.Query,
		Sites:     sites,
		Start:     start,
		End:       end,
		Resume:    cfg.Scraper.Resume,
		OutputDir: cfg.Scraper.OutputDir,
	}, d, enricher, store, checkpoints)

	_, runErr := p.Run(ctx)

	session.Close()
	slog.Info("shutdown complete")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run failed", slog.Any("err", runErr))
		return 1
	}
	return 0
}

func resolveSites(cfg *config.Config) ([]string, error) {
	var sites []string
	for _, s := range cfg.Scraper.Sites {
		if s = search.CleanSite(s); s != "" {
			sites = append(sites, s)
		}
	}

	if cfg.Scraper.SitesFile != "" {
		fromFile, err := search.LoadSites(cfg.Scraper.SitesFile)
		if err != nil {
			return nil, err
		}
		sites = append(sites, fromFile...)
	}
	return sites, nil
}

func openStore(cfg *config.Config) (storage.ArticleStore, error) {
	if cfg.DSN == "" {
		slog.Warn("no dsn configured, articles are kept in memory for this run")
		return storage.NewMemoryStorage(), nil
	}
	return storage.OpenPostgres(cfg.DSN)
}

func openCheckpoints(ctx context.Context, cfg *config.Config) (checkpoint.Store, error) {
	switch {
	case cfg.RedisURL != "":
		return checkpoint.NewRedis(ctx, cfg.RedisURL)
	case cfg.Scraper.CheckpointFile != "":
		return checkpoint.NewFile(cfg.Scraper.CheckpointFile), nil
	default:
		return checkpoint.NewMemory(), nil
	}
}

func browserConfig(cfg *config.Config, seed int64) browser.Config {
	b := cfg.Browser
	return browser.Config{
		Bounds: browser.Bounds{
			UserAgents: b.UserAgents,
			MinWidth:   b.MinWidth,
			MaxWidth:   b.MaxWidth,
			MinHeight:  b.MinHeight,
			MaxHeight:  b.MaxHeight,
		},
		Headless:     b.Headless,
		Proxy:        b.Proxy,
		ExecPath:     b.ExecPath,
		NavTimeout:   b.GetNavTimeout(),
		NavRetries:   b.NavRetries,
		NavBackoff:   b.GetNavBackoff(),
		StartRetries: b.StartRetries,
		Seed:         seed,
	}
}

// buildEnricher returns a nil enricher when content fetching is off.
func buildEnricher(cfg *config.Config, session *browser.Session) (*enrich.Enricher, func(), error) {
	if !cfg.Scraper.FetchContent {
		return nil, func() {}, nil
	}

	if cfg.Scraper.ContentFetcher == "http" {
		f := enrich.NewHTTPFetcher(enrich.HTTPConfig{
			UserAgent:         cfg.Enrich.UserAgent,
			Timeout:           cfg.Enrich.GetHTTPTimeout(),
			RequestsPerSecond: cfg.Enrich.RequestsPerSecond,
			RespectRobots:     cfg.Enrich.RespectRobots,
		})
		return enrich.New(f, cfg.Enrich.MinContentLength, cfg.Scraper.Workers), func() {}, nil
	}

	tabs, err := browser.NewTabPool(session, cfg.Browser.Tabs)
	if err != nil {
		return nil, nil, err
	}
	workers := min(cfg.Scraper.Workers, tabs.Size())
	return enrich.New(tabs, cfg.Enrich.MinContentLength, workers), tabs.Close, nil
}

func selectors(cfg *config.Config) extract.Selectors {
	x := cfg.Extract
	return extract.DefaultSelectors().Override(extract.Selectors{
		Containers: x.Containers,
		Title:      x.TitleSelectors,
		Link:       x.LinkSelectors,
		Snippet:    x.SnippetSelectors,
		Date:       x.DateSelectors,
		Source:     x.SourceSelectors,
		Next:       x.NextSelectors,
	})
}
