package browser

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomOptionsWithinBounds(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	b := Bounds{
		UserAgents: []string{"ua-1", "ua-2"},
		MinWidth:   1280,
		MaxWidth:   1920,
		MinHeight:  720,
		MaxHeight:  1080,
	}

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		o := RandomOptions(rnd, b, true)
		assert.True(t, o.Headless)
		assert.Contains(t, b.UserAgents, o.UserAgent)
		assert.GreaterOrEqual(t, o.WindowWidth, 1280)
		assert.LessOrEqual(t, o.WindowWidth, 1920)
		assert.GreaterOrEqual(t, o.WindowHeight, 720)
		assert.LessOrEqual(t, o.WindowHeight, 1080)
		seen[o.UserAgent] = true
	}
	assert.Len(t, seen, 2, "both user agents should be used")
}

func TestRandomOptionsDefaults(t *testing.T) {
	o := RandomOptions(rand.New(rand.NewSource(1)), Bounds{MinWidth: 800, MaxWidth: 800, MinHeight: 600}, false)
	assert.Contains(t, DefaultUserAgents, o.UserAgent)
	assert.Equal(t, 800, o.WindowWidth)
	assert.Equal(t, 600, o.WindowHeight)
	assert.False(t, o.Headless)
}

func TestBuildChromeOptionsAddsOptionalFlags(t *testing.T) {
	base := BuildChromeOptions(Options{Headless: true, WindowWidth: 1280, WindowHeight: 720})
	full := BuildChromeOptions(Options{
		Headless:     true,
		WindowWidth:  1280,
		WindowHeight: 720,
		UserAgent:    "ua",
		Proxy:        "socks5://127.0.0.1:9050",
		ExecPath:     "/usr/bin/chromium",
	})
	assert.Len(t, full, len(base)+3)
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("exec: chrome not found")
	var err error = &SessionStartError{Attempts: 3, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "3 attempts")

	err = &NavigationTimeoutError{URL: "https://example.com", Attempts: 2, Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "https://example.com")
}

func TestCloseIsIdempotent(t *testing.T) {
	calls := 0
	s := &Session{
		browserCancel: func() { calls++ },
		allocCancel:   func() { calls++ },
		closed:        make(chan struct{}),
	}

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 2, calls)

	_, err := s.NewTab()
	assert.ErrorIs(t, err, ErrClosed)

	var nilSession *Session
	assert.NoError(t, nilSession.Close())
}

func TestTabPoolRotates(t *testing.T) {
	a, b := &Tab{}, &Tab{}
	p := newPool([]*Tab{a, b})
	ctx := context.Background()

	first, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, a, first)
	p.Release(first)

	second, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, b, second)

	third, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, a, third)

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
