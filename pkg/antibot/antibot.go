package antibot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/devraulu/newsreap/pkg/delay"
	"github.com/devraulu/newsreap/pkg/retry"
)

var DefaultSignatures = []string{
	"detected unusual traffic",
	"unusual traffic from your computer network",
	"verify you are human",
	"verifying you are human",
	"are you a robot",
	"g-recaptcha",
	"recaptcha/api",
	"id=\"captcha-form\"",
	"/sorry/index",
	"checking your browser",
	"cf-challenge",
}

var errStillBlocked = errors.New("blocking signature still present")

type State int

const (
	Clean State = iota
	Blocked
	Mitigating
	Failed
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Blocked:
		return "blocked"
	case Mitigating:
		return "mitigating"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Page is the slice of a browser tab the handler needs.
type Page interface {
	HTML(ctx context.Context) (string, error)
	ClearState(ctx context.Context) error
	MovePointer(ctx context.Context, x, y float64) error
	Reload(ctx context.Context) error
}

type BlockedError struct {
	URL       string
	Signature string
	Attempts  int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked at %s (%q) after %d mitigation attempts", e.URL, e.Signature, e.Attempts)
}

type Config struct {
	MaxAttempts  int
	CooldownMin  time.Duration
	CooldownMax  time.Duration
	PointerMoves int
	Width        int
	Height       int
	Signatures   []string
}

type Handler struct {
	cfg   Config
	delay delay.Controller
	sigs  []string

	mu  sync.Mutex
	rnd *rand.Rand
}

func New(cfg Config, d delay.Controller, seed int64) *Handler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Width <= 0 {
		cfg.Width = 1366
	}
	if cfg.Height <= 0 {
		cfg.Height = 900
	}
	if d == nil {
		d = delay.Zero{}
	}

	sigs := cfg.Signatures
	if len(sigs) == 0 {
		sigs = DefaultSignatures
	}
	lowered := make([]string, 0, len(sigs))
	for _, s := range sigs {
		lowered = append(lowered, strings.ToLower(s))
	}

	return &Handler{
		cfg:   cfg,
		delay: d,
		sigs:  lowered,
		rnd:   rand.New(rand.NewSource(seed)),
	}
}

// Detect reports the first blocking signature found in html.
func (h *Handler) Detect(html string) (string, bool) {
	lower := strings.ToLower(html)
	for _, sig := range h.sigs {
		if strings.Contains(lower, sig) {
			return sig, true
		}
	}
	return "", false
}

// Check inspects the loaded page and returns its HTML once it is clean. A
// blocked page gets up to MaxAttempts mitigation rounds before a
// *BlockedError is returned.
func (h *Handler) Check(ctx context.Context, page Page, pageURL string) (string, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return "", err
	}

	sig, blocked := h.Detect(html)
	if !blocked {
		return html, nil
	}

	slog.Warn("blocking page detected",
		slog.String("url", pageURL),
		slog.String("signature", sig),
		slog.String("state", Blocked.String()),
	)

	policy := retry.Policy{MaxAttempts: h.cfg.MaxAttempts}
	err = retry.Do(ctx, policy, nil, func(ctx context.Context, attempt int) error {
		slog.Info("mitigating block",
			slog.String("url", pageURL),
			slog.Int("attempt", attempt),
			slog.String("state", Mitigating.String()),
		)

		if err := h.mitigate(ctx, page); err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			return err
		}

		html, err = page.HTML(ctx)
		if err != nil {
			return err
		}
		if s, still := h.Detect(html); still {
			sig = s
			return errStillBlocked
		}
		return nil
	})

	if err == nil {
		slog.Info("block cleared", slog.String("url", pageURL), slog.String("state", Clean.String()))
		return html, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	slog.Warn("mitigation failed",
		slog.String("url", pageURL),
		slog.String("state", Failed.String()),
		slog.Any("err", err),
	)
	return "", &BlockedError{URL: pageURL, Signature: sig, Attempts: h.cfg.MaxAttempts}
}

func (h *Handler) mitigate(ctx context.Context, page Page) error {
	if err := page.ClearState(ctx); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}

	if err := delay.Pause(ctx, h.delay, h.cfg.CooldownMin, h.cfg.CooldownMax); err != nil {
		return err
	}

	for _, p := range h.pointerPath() {
		if err := page.MovePointer(ctx, p.X, p.Y); err != nil {
			return fmt.Errorf("move pointer: %w", err)
		}
	}

	if err := page.Reload(ctx); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

type Point struct {
	X, Y float64
}

// pointerPath draws an eased path with small jitter between two random points
// inside the viewport.
func (h *Handler) pointerPath() []Point {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.cfg.PointerMoves
	if n <= 0 {
		return nil
	}

	w, ht := float64(h.cfg.Width), float64(h.cfg.Height)
	from := Point{X: h.rnd.Float64() * w, Y: h.rnd.Float64() * ht}
	to := Point{X: h.rnd.Float64() * w, Y: h.rnd.Float64() * ht}

	path := make([]Point, 0, n)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		// ease in-out
		e := t * t * (3 - 2*t)
		x := from.X + (to.X-from.X)*e + (h.rnd.Float64()-0.5)*4
		y := from.Y + (to.Y-from.Y)*e + (h.rnd.Float64()-0.5)*4
		path = append(path, Point{X: clamp(x, 0, w-1), Y: clamp(y, 0, ht-1)})
	}
	return path
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
