package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrDisallowed = errors.New("disallowed by robots.txt")
	ErrNotHTML    = errors.New("response is not html")
)

// Fetcher returns the HTML of an article page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type HTTPConfig struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	RespectRobots     bool
	MaxBodyBytes      int64
}

// HTTPFetcher fetches pages with a plain HTTP client, paced per host.
type HTTPFetcher struct {
	cfg    HTTPConfig
	client *http.Client
	robots *robotsCache

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "newsreap/1.0"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}

	client := &http.Client{Timeout: cfg.Timeout}
	f := &HTTPFetcher{
		cfg:    cfg,
		client: client,
		hosts:  make(map[string]*rate.Limiter),
	}
	if cfg.RespectRobots {
		f.robots = newRobotsCache(client, cfg.UserAgent)
	}
	return f
}

func (f *HTTPFetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.hosts[host]
	if !ok {
		limit := rate.Inf
		if f.cfg.RequestsPerSecond > 0 {
			limit = rate.Limit(f.cfg.RequestsPerSecond)
		}
		l = rate.NewLimiter(limit, 1)
		f.hosts[host] = l
	}
	return l
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if f.robots != nil && !f.robots.Allowed(ctx, rawURL) {
		return "", ErrDisallowed
	}

	if err := f.limiter(strings.ToLower(u.Hostname())).Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Add("Accept", "text/html")
	req.Header.Add("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		return "", ErrNotHTML
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(http.DetectContentType(body), "text/html") {
		return "", ErrNotHTML
	}

	return string(body), nil
}
