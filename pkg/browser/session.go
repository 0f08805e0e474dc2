package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/devraulu/newsreap/pkg/delay"
	"github.com/devraulu/newsreap/pkg/retry"
)

type SessionStartError struct {
	Attempts int
	Err      error
}

func (e *SessionStartError) Error() string {
	return fmt.Sprintf("browser session could not start after %d attempts: %v", e.Attempts, e.Err)
}

func (e *SessionStartError) Unwrap() error { return e.Err }

type NavigationTimeoutError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *NavigationTimeoutError) Unwrap() error { return e.Err }

var ErrClosed = errors.New("browser session closed")

type Config struct {
	Bounds       Bounds
	Headless     bool
	Proxy        string
	ExecPath     string
	NavTimeout   time.Duration
	NavRetries   int
	NavBackoff   time.Duration
	StartRetries int
	Seed         int64
}

// PageLoad describes a completed navigation.
type PageLoad struct {
	URL      string
	FinalURL string
	Attempts int
	Elapsed  time.Duration
}

// Session owns one browser process and its first tab.
type Session struct {
	*Tab

	opts          Options
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	closeOnce sync.Once
	closed    chan struct{}
}

// Open launches a browser with randomized fingerprint options. Launch failures
// are retried up to StartRetries times before a *SessionStartError is returned.
func Open(ctx context.Context, cfg Config, d delay.Controller) (*Session, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if d == nil {
		d = delay.Zero{}
	}

	rnd := rand.New(rand.NewSource(cfg.Seed))
	policy := retry.Policy{MaxAttempts: max(cfg.StartRetries, 1), BaseDelay: time.Second, Multiplier: 2}

	var s *Session
	err := retry.Do(ctx, policy, d, func(ctx context.Context, attempt int) error {
		opts := RandomOptions(rnd, cfg.Bounds, cfg.Headless)
		opts.Proxy = cfg.Proxy
		opts.ExecPath = cfg.ExecPath

		slog.Info("launching browser",
			slog.Int("attempt", attempt),
			slog.Bool("headless", opts.Headless),
			slog.Int("width", opts.WindowWidth),
			slog.Int("height", opts.WindowHeight),
			slog.String("user_agent", opts.UserAgent),
		)

		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), BuildChromeOptions(opts)...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)

		// the first Run starts the process and must not carry a deadline
		if err := chromedp.Run(browserCtx, injectStealth()); err != nil {
			browserCancel()
			allocCancel()
			return err
		}

		s = &Session{
			opts:          opts,
			allocCancel:   allocCancel,
			browserCtx:    browserCtx,
			browserCancel: browserCancel,
			closed:        make(chan struct{}),
		}
		s.Tab = &Tab{
			ctx:     browserCtx,
			timeout: cfg.NavTimeout,
			policy:  retry.Policy{MaxAttempts: max(cfg.NavRetries, 1), BaseDelay: cfg.NavBackoff, Multiplier: 2},
			delay:   d,
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &SessionStartError{Attempts: policy.MaxAttempts, Err: err}
	}

	return s, nil
}

// Options reports the fingerprint the session was launched with.
func (s *Session) Options() Options {
	return s.opts
}

// NewTab opens another tab in the same browser.
func (s *Session) NewTab() (*Tab, error) {
	select {
	case <-s.closed:
		return nil, ErrClosed
	default:
	}

	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	if err := chromedp.Run(tabCtx, injectStealth()); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	return &Tab{
		ctx:     tabCtx,
		cancel:  cancel,
		timeout: s.Tab.timeout,
		policy:  s.Tab.policy,
		delay:   s.Tab.delay,
	}, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.browserCancel != nil {
			s.browserCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
		slog.Info("browser session closed")
	})
	return nil
}

func injectStealth() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	})
}

// Tab is a single browser target. It is not safe for concurrent use.
type Tab struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	policy  retry.Policy
	delay   delay.Controller
}

// run executes actions in the tab, bounded by timeout and by the caller's ctx.
func (t *Tab) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the body. Each attempt has its own timeout;
// failed attempts back off exponentially until the retry budget is spent.
func (t *Tab) Navigate(ctx context.Context, url string) (PageLoad, error) {
	start := time.Now()
	load := PageLoad{URL: url}

	err := retry.Do(ctx, t.policy, t.delay, func(ctx context.Context, attempt int) error {
		load.Attempts = attempt
		err := t.run(ctx, t.timeout,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Location(&load.FinalURL),
		)
		if err != nil && ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		if err != nil {
			slog.Warn("navigation attempt failed",
				slog.String("url", url),
				slog.Int("attempt", attempt),
				slog.Any("err", err),
			)
		}
		return err
	})
	load.Elapsed = time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return load, ctx.Err()
		}
		return load, &NavigationTimeoutError{URL: url, Attempts: load.Attempts, Err: err}
	}

	slog.Debug("page loaded",
		slog.String("url", url),
		slog.String("final_url", load.FinalURL),
		slog.Int("attempts", load.Attempts),
		slog.Duration("elapsed", load.Elapsed),
	)
	return load, nil
}

func (t *Tab) HTML(ctx context.Context) (string, error) {
	var html string
	if err := t.run(ctx, t.timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// ClearState drops cookies and web storage for the current origin.
func (t *Tab) ClearState(ctx context.Context) error {
	var ok bool
	return t.run(ctx, t.timeout,
		network.ClearBrowserCookies(),
		chromedp.Evaluate(clearStorageScript, &ok),
	)
}

func (t *Tab) MovePointer(ctx context.Context, x, y float64) error {
	return t.run(ctx, t.timeout, chromedp.MouseEvent(input.MouseMoved, x, y))
}

func (t *Tab) Reload(ctx context.Context) error {
	return t.run(ctx, t.timeout,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Fetch navigates the tab to url and returns the rendered document.
func (t *Tab) Fetch(ctx context.Context, url string) (string, error) {
	if _, err := t.Navigate(ctx, url); err != nil {
		return "", err
	}
	return t.HTML(ctx)
}

func (t *Tab) close() {
	if t.cancel != nil {
		t.cancel()
	}
}
