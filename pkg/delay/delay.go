package delay

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Controller picks the pause between two requests.
type Controller interface {
	Next(min, max time.Duration) time.Duration
}

type Random struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rnd: rand.New(rand.NewSource(seed))}
}

// Next draws uniformly from [min, max]. Swapped bounds are reordered.
func (r *Random) Next(min, max time.Duration) time.Duration {
	if max < min {
		min, max = max, min
	}
	if max == min {
		return min
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return min + time.Duration(r.rnd.Int63n(int64(max-min)+1))
}

type Zero struct{}

func (Zero) Next(_, _ time.Duration) time.Duration { return 0 }

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pause draws a delay from c and sleeps for it.
func Pause(ctx context.Context, c Controller, min, max time.Duration) error {
	return Sleep(ctx, c.Next(min, max))
}
