package antibot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devraulu/newsreap/pkg/delay"
)

const (
	cleanHTML   = `<html><body><div class="SoaBEf">ok</div></body></html>`
	captchaHTML = `<html><body><form id="captcha-form">Our systems have detected unusual traffic from your computer network.</form></body></html>`
)

type fakePage struct {
	pages   []string
	idx     int
	clears  int
	moves   int
	reloads int
}

func (p *fakePage) HTML(context.Context) (string, error) {
	return p.pages[min(p.idx, len(p.pages)-1)], nil
}

func (p *fakePage) ClearState(context.Context) error {
	p.clears++
	return nil
}

func (p *fakePage) MovePointer(_ context.Context, x, y float64) error {
	p.moves++
	return nil
}

func (p *fakePage) Reload(context.Context) error {
	p.reloads++
	p.idx++
	return nil
}

func newHandler(attempts int) *Handler {
	return New(Config{MaxAttempts: attempts, PointerMoves: 5, Width: 800, Height: 600}, delay.Zero{}, 7)
}

func TestCleanPagePassesThrough(t *testing.T) {
	page := &fakePage{pages: []string{cleanHTML}}

	html, err := newHandler(2).Check(context.Background(), page, "https://www.google.com/search?q=x")
	require.NoError(t, err)
	assert.Equal(t, cleanHTML, html)
	assert.Zero(t, page.clears)
	assert.Zero(t, page.reloads)
}

func TestMitigationClearsBlock(t *testing.T) {
	page := &fakePage{pages: []string{captchaHTML, cleanHTML}}

	html, err := newHandler(3).Check(context.Background(), page, "u")
	require.NoError(t, err)
	assert.Equal(t, cleanHTML, html)
	assert.Equal(t, 1, page.clears)
	assert.Equal(t, 1, page.reloads)
	assert.Equal(t, 5, page.moves)
}

func TestMitigationGivesUp(t *testing.T) {
	page := &fakePage{pages: []string{captchaHTML}}

	_, err := newHandler(2).Check(context.Background(), page, "https://www.google.com/search?q=x")

	var blocked *BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, 2, blocked.Attempts)
	assert.Equal(t, "https://www.google.com/search?q=x", blocked.URL)
	assert.NotEmpty(t, blocked.Signature)
	assert.Equal(t, 2, page.reloads)
	assert.Equal(t, 2, page.clears)
}

func TestCancelledDuringCooldown(t *testing.T) {
	h := New(Config{MaxAttempts: 3, CooldownMin: time.Hour, CooldownMax: time.Hour}, delay.NewRandom(1), 1)
	page := &fakePage{pages: []string{captchaHTML}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Check(ctx, page, "u")
	assert.ErrorIs(t, err, context.Canceled)
	var blocked *BlockedError
	assert.False(t, errors.As(err, &blocked))
}

func TestDetectSignatures(t *testing.T) {
	h := newHandler(1)

	for _, html := range []string{
		captchaHTML,
		`<div class="g-recaptcha" data-sitekey="x"></div>`,
		`<h1>Please VERIFY YOU ARE HUMAN</h1>`,
	} {
		_, blocked := h.Detect(html)
		assert.True(t, blocked, html)
	}

	_, blocked := h.Detect(cleanHTML)
	assert.False(t, blocked)
}

func TestCustomSignatures(t *testing.T) {
	h := New(Config{Signatures: []string{"Access Denied"}}, nil, 1)
	_, blocked := h.Detect("<h1>access denied</h1>")
	assert.True(t, blocked)
	_, blocked = h.Detect(captchaHTML)
	assert.False(t, blocked)
}

func TestPointerPathStaysInViewport(t *testing.T) {
	h := New(Config{PointerMoves: 50, Width: 640, Height: 480}, nil, 3)
	path := h.pointerPath()
	require.Len(t, path, 50)
	for _, p := range path {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.Less(t, p.X, 640.0)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.Less(t, p.Y, 480.0)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "mitigating", Mitigating.String())
	assert.Equal(t, "failed", Failed.String())
}
