package storage

import (
	"context"
	"sync"

	"github.com/devraulu/newsreap/pkg/article"
)

// MemoryStorage keeps records in insertion order. It is used when no DSN is
// configured and in tests.
type MemoryStorage struct {
	mu    sync.Mutex
	index map[string]int
	recs  []article.Record
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{index: make(map[string]int)}
}

func (m *MemoryStorage) Insert(ctx context.Context, rec article.Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[rec.URL]; ok {
		return false, nil
	}
	m.index[rec.URL] = len(m.recs)
	m.recs = append(m.recs, rec)
	return true, nil
}

func (m *MemoryStorage) InsertMany(ctx context.Context, recs []article.Record) (int, error) {
	return insertEach(ctx, m, recs)
}

func (m *MemoryStorage) Records() []article.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]article.Record(nil), m.recs...)
}

func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func (m *MemoryStorage) Close() error { return nil }
