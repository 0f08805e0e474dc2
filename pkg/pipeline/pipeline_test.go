package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devraulu/newsreap/pkg/antibot"
	"github.com/devraulu/newsreap/pkg/article"
	"github.com/devraulu/newsreap/pkg/browser"
	"github.com/devraulu/newsreap/pkg/checkpoint"
	"github.com/devraulu/newsreap/pkg/delay"
	"github.com/devraulu/newsreap/pkg/driver"
	"github.com/devraulu/newsreap/pkg/enrich"
	"github.com/devraulu/newsreap/pkg/extract"
	"github.com/devraulu/newsreap/pkg/search"
	"github.com/devraulu/newsreap/pkg/storage"
)

const captchaPage = `<html><body>Our systems have detected unusual traffic from your computer network.</body></html>`

// searchPage answers every window with the same stories, wrapped in tracking
// parameters that differ per window.
type searchPage struct {
	window  string
	blocked map[string]bool
	navs    int
}

func (p *searchPage) Navigate(_ context.Context, raw string) (browser.PageLoad, error) {
	p.navs++
	u, err := url.Parse(raw)
	if err != nil {
		return browser.PageLoad{}, err
	}
	tbs := u.Query().Get("tbs")
	p.window = strings.Split(strings.TrimPrefix(tbs, "cdr:1,cd_min:"), ",")[0]
	return browser.PageLoad{URL: raw, FinalURL: raw, Attempts: 1}, nil
}

func (p *searchPage) HTML(context.Context) (string, error) {
	if p.blocked[p.window] {
		return captchaPage, nil
	}

	var b strings.Builder
	b.WriteString(`<html><body><div id="rso">`)
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, `<div class="SoaBEf"><a href="https://news.example.com/story-%d?utm_source=%s#top"><div role="heading">Story %d</div></a></div>`,
			i, url.QueryEscape(p.window), i)
	}
	b.WriteString(`</div></body></html>`)
	return b.String(), nil
}

func (p *searchPage) ClearState(context.Context) error                   { return nil }
func (p *searchPage) MovePointer(context.Context, float64, float64) error { return nil }
func (p *searchPage) Reload(context.Context) error                       { return nil }

type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func newDriver(page *searchPage) *driver.Driver {
	return driver.New(
		driver.Config{MaxSpanDays: 7},
		page,
		antibot.New(antibot.Config{MaxAttempts: 1}, delay.Zero{}, 1),
		extract.New(extract.DefaultSelectors()),
		search.Builder{BaseURL: "https://www.google.com/search", News: true},
		delay.Zero{},
	)
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func baseConfig() Config {
	return Config{Query: "nuclear", Start: day("2024-01-01"), End: day("2024-01-20")}
}

func assertConsistent(t *testing.T, s Summary) {
	t.Helper()
	assert.GreaterOrEqual(t, s.Found, s.Unique)
	assert.GreaterOrEqual(t, s.Unique, s.Persisted)
	assert.LessOrEqual(t, s.Abandoned, s.Windows)
}

func TestRunDedupsAcrossWindows(t *testing.T) {
	store := storage.NewMemoryStorage()
	p := New(baseConfig(), newDriver(&searchPage{}), nil, store, nil)

	s, err := p.Run(context.Background())
	require.NoError(t, err)
	assertConsistent(t, s)

	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 3, s.Windows)
	assert.Equal(t, 9, s.Found)
	assert.Equal(t, 3, s.Unique)
	assert.Equal(t, 3, s.Persisted)

	for _, r := range store.Records() {
		assert.NotContains(t, r.URL, "utm_source")
		assert.NotContains(t, r.URL, "#")
		assert.Equal(t, "", r.Content, "content is never attempted without an enricher")
	}
}

func TestSecondRunPersistsNothingNew(t *testing.T) {
	store := storage.NewMemoryStorage()

	_, err := New(baseConfig(), newDriver(&searchPage{}), nil, store, nil).Run(context.Background())
	require.NoError(t, err)

	s, err := New(baseConfig(), newDriver(&searchPage{}), nil, store, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.Unique)
	assert.Zero(t, s.Persisted)
	assert.Equal(t, 3, store.Len())
}

func TestAbandonedWindowIsCountedAndHoldsCheckpoint(t *testing.T) {
	cp := checkpoint.NewMemory()
	page := &searchPage{blocked: map[string]bool{"1/8/2024": true}}

	s, err := New(baseConfig(), newDriver(page), nil, storage.NewMemoryStorage(), cp).Run(context.Background())
	require.NoError(t, err)
	assertConsistent(t, s)
	assert.Equal(t, 1, s.Abandoned)
	assert.Equal(t, 6, s.Found)

	through, ok, err := cp.Load(context.Background(), checkpoint.Key("nuclear", nil))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, day("2024-01-07").Equal(through), "checkpoint must not pass the abandoned window")
}

func TestResumeSkipsCheckpointedWindows(t *testing.T) {
	cp := checkpoint.NewMemory()
	require.NoError(t, cp.Save(context.Background(), checkpoint.Key("nuclear", nil), day("2024-01-14")))

	cfg := baseConfig()
	cfg.Resume = true
	page := &searchPage{}

	s, err := New(cfg, newDriver(page), nil, storage.NewMemoryStorage(), cp).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Skipped)
	assert.Equal(t, 1, page.navs)
	assert.Equal(t, 3, s.Found)

	through, _, _ := cp.Load(context.Background(), checkpoint.Key("nuclear", nil))
	assert.True(t, day("2024-01-20").Equal(through))
}

func TestEnrichmentFailureIsSentinelAndArtifactsWritten(t *testing.T) {
	cfg := baseConfig()
	cfg.OutputDir = t.TempDir()
	store := storage.NewMemoryStorage()
	e := enrich.New(failingFetcher{}, 200, 2)

	s, err := New(cfg, newDriver(&searchPage{}), e, store, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.ContentUnavailable)
	assert.Zero(t, s.Enriched)

	for _, r := range store.Records() {
		assert.Equal(t, article.ContentUnavailable, r.Content)
	}

	data, err := os.ReadFile(s.Artifacts.JSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), article.ContentUnavailable)
	assert.Contains(t, s.Artifacts.CSV, s.RunID)
}

func TestCancelledRunKeepsPersistedWindows(t *testing.T) {
	store := storage.NewMemoryStorage()
	d := newDriver(&searchPage{})

	ctx, cancel := context.WithCancel(context.Background())
	p := New(baseConfig(), d, nil, &cancellingStore{MemoryStorage: store, cancel: cancel}, nil)

	s, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, 3, s.Persisted)
}

// cancellingStore cancels the run right after its first batch.
type cancellingStore struct {
	*storage.MemoryStorage
	cancel context.CancelFunc
}

func (c *cancellingStore) InsertMany(ctx context.Context, recs []article.Record) (int, error) {
	n, err := c.MemoryStorage.InsertMany(ctx, recs)
	c.cancel()
	return n, err
}
