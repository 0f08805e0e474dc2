package driver

import (
	"context"
	"log/slog"
	"time"

	"github.com/devraulu/newsreap/pkg/antibot"
	"github.com/devraulu/newsreap/pkg/article"
	"github.com/devraulu/newsreap/pkg/browser"
	"github.com/devraulu/newsreap/pkg/delay"
	"github.com/devraulu/newsreap/pkg/extract"
	"github.com/devraulu/newsreap/pkg/search"
)

// Page is the browser tab the driver searches with.
type Page interface {
	antibot.Page
	Navigate(ctx context.Context, url string) (browser.PageLoad, error)
}

type Checker interface {
	Check(ctx context.Context, page antibot.Page, pageURL string) (string, error)
}

type Extractor interface {
	ExtractPage(html, pageURL string) extract.Page
}

type Config struct {
	Sites               []string
	MaxSpanDays         int
	MaxResultsPerWindow int
	// MaxPages bounds pagination when a page keeps offering a next link.
	MaxPages       int
	PageDelayMin   time.Duration
	PageDelayMax   time.Duration
	WindowDelayMin time.Duration
	WindowDelayMax time.Duration
}

// WindowResult is handed to the OnWindow hook after each sub-window.
type WindowResult struct {
	Index     int
	Window    search.Window
	Records   []article.Record
	Pages     int
	Abandoned bool
	Skipped   bool
	Err       error
}

type Summary struct {
	StartTime time.Time
	Windows   int
	Skipped   int
	Abandoned int
	Found     int
	Pages     int
}

func (s *Summary) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}

type Driver struct {
	cfg       Config
	page      Page
	checker   Checker
	extractor Extractor
	builder   search.Builder
	delay     delay.Controller

	// OnWindow, when set, receives every finished sub-window in order. An error
	// stops the run.
	OnWindow func(ctx context.Context, res WindowResult) error
	// Skip reports sub-windows already completed by an earlier run.
	Skip func(w search.Window) bool
}

func New(cfg Config, page Page, checker Checker, extractor Extractor, builder search.Builder, d delay.Controller) *Driver {
	if cfg.MaxResultsPerWindow <= 0 {
		cfg.MaxResultsPerWindow = 25
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if len(cfg.Sites) == 0 {
		cfg.Sites = []string{""}
	}
	if d == nil {
		d = delay.Zero{}
	}

	return &Driver{
		cfg:       cfg,
		page:      page,
		checker:   checker,
		extractor: extractor,
		builder:   builder,
		delay:     d,
	}
}

// Run searches query over every sub-window of [start, end] and returns all
// extracted records, duplicates included. Blocked or unreachable sub-windows
// are abandoned and the run moves on; only cancellation and hook errors end it
// early.
func (d *Driver) Run(ctx context.Context, query string, start, end time.Time) ([]article.Record, Summary, error) {
	summary := Summary{StartTime: time.Now()}

	windows, err := search.Split(start, end, d.cfg.MaxSpanDays)
	if err != nil {
		return nil, summary, err
	}
	summary.Windows = len(windows)

	slog.Info("run started",
		slog.String("query", query),
		slog.Int("windows", len(windows)),
		slog.Int("sites", len(d.cfg.Sites)),
	)

	var all []article.Record
	searched := 0
	for i, w := range windows {
		if d.Skip != nil && d.Skip(w) {
			summary.Skipped++
			slog.Info("window skipped", slog.String("window", w.String()))
			if err := d.emit(ctx, WindowResult{Index: i, Window: w, Skipped: true}); err != nil {
				return all, summary, err
			}
			continue
		}

		if searched > 0 {
			if err := delay.Pause(ctx, d.delay, d.cfg.WindowDelayMin, d.cfg.WindowDelayMax); err != nil {
				return all, summary, err
			}
		}
		searched++

		res := d.runWindow(ctx, query, i, w)
		summary.Pages += res.Pages

		if res.Err != nil && ctx.Err() != nil {
			return all, summary, ctx.Err()
		}

		if res.Abandoned {
			summary.Abandoned++
			slog.Warn("window abandoned",
				slog.String("window", w.String()),
				slog.Int("pages", res.Pages),
				slog.Any("err", res.Err),
			)
		} else {
			summary.Found += len(res.Records)
			all = append(all, res.Records...)
			slog.Info("window complete",
				slog.String("window", w.String()),
				slog.Int("found", len(res.Records)),
				slog.Int("pages", res.Pages),
			)
		}

		if err := d.emit(ctx, res); err != nil {
			return all, summary, err
		}
	}

	return all, summary, nil
}

func (d *Driver) emit(ctx context.Context, res WindowResult) error {
	if d.OnWindow == nil {
		return nil
	}
	return d.OnWindow(ctx, res)
}

func (d *Driver) runWindow(ctx context.Context, query string, index int, w search.Window) WindowResult {
	res := WindowResult{Index: index, Window: w}

	for si, site := range d.cfg.Sites {
		if si > 0 {
			if err := delay.Pause(ctx, d.delay, d.cfg.PageDelayMin, d.cfg.PageDelayMax); err != nil {
				res.Err = err
				return res
			}
		}

		recs, pages, err := d.searchSite(ctx, query, site, w)
		res.Pages += pages
		if err != nil {
			res.Err = err
			if ctx.Err() == nil {
				// partial results of an abandoned window are dropped
				res.Abandoned = true
				res.Records = nil
			}
			return res
		}
		res.Records = append(res.Records, recs...)
	}
	return res
}

// searchSite walks the result pages of one site search in order until the
// per-window cap is reached or no next link remains. The cap applies to each
// site filter separately.
func (d *Driver) searchSite(ctx context.Context, query, site string, w search.Window) ([]article.Record, int, error) {
	pageURL := d.builder.URL(query, site, w, 0)
	var recs []article.Record
	pages := 0

	for pageURL != "" && pages < d.cfg.MaxPages && len(recs) < d.cfg.MaxResultsPerWindow {
		if pages > 0 {
			if err := delay.Pause(ctx, d.delay, d.cfg.PageDelayMin, d.cfg.PageDelayMax); err != nil {
				return recs, pages, err
			}
		}

		if _, err := d.page.Navigate(ctx, pageURL); err != nil {
			return recs, pages, err
		}

		html, err := d.checker.Check(ctx, d.page, pageURL)
		if err != nil {
			return recs, pages, err
		}
		pages++

		page := d.extractor.ExtractPage(html, pageURL)
		offset := len(recs)
		for _, r := range page.Records {
			r.Position += offset
			r.Query = query
			recs = append(recs, r)
		}

		slog.Debug("result page extracted",
			slog.String("url", pageURL),
			slog.String("site", site),
			slog.String("tier", page.Tier),
			slog.Int("records", len(page.Records)),
		)

		if len(page.Records) == 0 {
			break
		}
		pageURL = page.NextURL
	}

	if len(recs) > d.cfg.MaxResultsPerWindow {
		recs = recs[:d.cfg.MaxResultsPerWindow]
	}
	return recs, pages, nil
}
