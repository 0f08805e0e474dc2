package enrich

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/benjaminestes/robots"
)

// robotsCache fetches robots.txt once per host. Hosts whose file cannot be
// fetched or parsed are treated as allowing everything.
type robotsCache struct {
	client *http.Client
	agent  string

	mu    sync.Mutex
	rules map[string]*robots.Robots
}

func newRobotsCache(client *http.Client, agent string) *robotsCache {
	return &robotsCache{
		client: client,
		agent:  agent,
		rules:  make(map[string]*robots.Robots),
	}
}

func (c *robotsCache) Allowed(ctx context.Context, url string) bool {
	r := c.lookup(ctx, url)
	return r == nil || r.Test(c.agent, url)
}

func (c *robotsCache) lookup(ctx context.Context, url string) (r *robots.Robots) {
	defer func() {
		if p := recover(); p != nil {
			slog.Warn("panic in robots.txt parsing, assuming allowed", slog.String("url", url), slog.Any("panic", p))
			r = nil
		}
	}()

	robotsURL, err := robots.Locate(url)
	if err != nil {
		return nil
	}

	c.mu.Lock()
	cached, ok := c.rules[robotsURL]
	c.mu.Unlock()
	if ok {
		return cached
	}

	r, err = c.fetch(ctx, robotsURL)
	if err != nil {
		slog.Warn("failed to fetch robots.txt", slog.String("url", robotsURL), slog.Any("err", err))
		r = nil
	}

	c.mu.Lock()
	c.rules[robotsURL] = r
	c.mu.Unlock()
	return r
}

func (c *robotsCache) fetch(ctx context.Context, url string) (*robots.Robots, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.agent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil, err
	}

	slog.Debug("robots.txt response",
		slog.String("url", url),
		slog.Int("status_code", resp.StatusCode),
		slog.Int("body_length", len(body)),
	)

	return robots.From(resp.StatusCode, bytes.NewReader(body))
}
