package storage

import (
	"context"

	"github.com/devraulu/newsreap/pkg/article"
)

// ArticleStore persists article records keyed by unique URL. Insert reports
// false without error when the URL is already stored.
type ArticleStore interface {
	Insert(ctx context.Context, rec article.Record) (bool, error)
	InsertMany(ctx context.Context, recs []article.Record) (int, error)
	Close() error
}

// insertEach inserts records one at a time so a failing row never discards the
// rows stored before it. It returns the first error after trying every record.
func insertEach(ctx context.Context, s ArticleStore, recs []article.Record) (int, error) {
	inserted := 0
	var firstErr error
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}

		ok, err := s.Insert(ctx, rec)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			inserted++
		}
	}
	return inserted, firstErr
}
