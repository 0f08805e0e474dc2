package browser

import (
	"context"
	"fmt"
	"sync"
)

// TabPool hands out a fixed set of tabs. Tabs return to the back of the queue
// on release, so consecutive fetches rotate through them.
type TabPool struct {
	tabs []*Tab
	free chan *Tab
	once sync.Once
}

// NewTabPool opens n tabs in s.
func NewTabPool(s *Session, n int) (*TabPool, error) {
	n = max(n, 1)
	tabs := make([]*Tab, 0, n)
	for i := 0; i < n; i++ {
		t, err := s.NewTab()
		if err != nil {
			for _, opened := range tabs {
				opened.close()
			}
			return nil, fmt.Errorf("tab %d: %w", i, err)
		}
		tabs = append(tabs, t)
	}
	return newPool(tabs), nil
}

func newPool(tabs []*Tab) *TabPool {
	p := &TabPool{tabs: tabs, free: make(chan *Tab, len(tabs))}
	for _, t := range tabs {
		p.free <- t
	}
	return p
}

func (p *TabPool) Size() int { return len(p.tabs) }

func (p *TabPool) Acquire(ctx context.Context) (*Tab, error) {
	select {
	case t := <-p.free:
		return t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *TabPool) Release(t *Tab) {
	p.free <- t
}

// Fetch loads url in the next free tab.
func (p *TabPool) Fetch(ctx context.Context, url string) (string, error) {
	t, err := p.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer p.Release(t)

	return t.Fetch(ctx, url)
}

func (p *TabPool) Close() {
	p.once.Do(func() {
		for _, t := range p.tabs {
			t.close()
		}
	})
}
