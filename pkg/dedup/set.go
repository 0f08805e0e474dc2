package dedup

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/devraulu/newsreap/pkg/article"
)

type SeenRecord struct {
	OriginalURL string
	Query       string
}

// Set holds the normalized URLs already emitted by one run. It is created per
// run and handed to the stages that need it.
type Set struct {
	mu   sync.Mutex
	seen map[string]SeenRecord
}

func NewSet() *Set {
	return &Set{
		seen: make(map[string]SeenRecord),
	}
}

func Key(raw string) string {
	key, err := Normalize(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return key
}

// Add records raw and reports whether it was new.
func (s *Set) Add(raw, query string) bool {
	key := Key(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = SeenRecord{OriginalURL: raw, Query: query}
	return true
}

func (s *Set) Seen(raw string) bool {
	key := Key(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Dedupe returns the records whose URL has not been seen earlier in the run,
// in input order. The input slice is not modified.
func (s *Set) Dedupe(records []article.Record) []article.Record {
	out := make([]article.Record, 0, len(records))
	for _, r := range records {
		if !s.Add(r.URL, r.Query) {
			slog.Debug("duplicate article, skipping", slog.String("url", r.URL))
			continue
		}
		out = append(out, r)
	}
	return out
}
