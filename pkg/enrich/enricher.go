package enrich

import (
	"context"
	"log/slog"
	"time"

	"github.com/devraulu/newsreap/pkg/article"
)

type Stats struct {
	StartTime   time.Time
	Enriched    int
	Unavailable int
	Skipped     int
}

func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}

type Enricher struct {
	fetcher    Fetcher
	strategies []Strategy
	minLength  int
	workers    int
}

func New(f Fetcher, minLength, workers int, strategies ...Strategy) *Enricher {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Enricher{
		fetcher:    f,
		strategies: strategies,
		minLength:  max(minLength, 1),
		workers:    max(workers, 1),
	}
}

// Enrich fetches the record's page and fills Content with the first strategy
// output of at least minLength characters. Failures leave
// article.ContentUnavailable rather than an error.
func (e *Enricher) Enrich(ctx context.Context, rec article.Record) article.Record {
	if rec.HasContent() {
		return rec
	}

	doc, err := e.fetcher.Fetch(ctx, rec.URL)
	if err != nil {
		slog.Warn("content fetch failed", slog.String("url", rec.URL), slog.Any("err", err))
		rec.Content = article.ContentUnavailable
		return rec
	}

	for _, s := range e.strategies {
		text := s.Extract(doc, rec.URL)
		if len(text) >= e.minLength {
			slog.Debug("content extracted",
				slog.String("url", rec.URL),
				slog.String("strategy", s.Name()),
				slog.Int("length", len(text)),
			)
			rec.Content = text
			return rec
		}
	}

	slog.Warn("no strategy produced content", slog.String("url", rec.URL))
	rec.Content = article.ContentUnavailable
	return rec
}

type job struct {
	index int
	rec   article.Record
}

type result struct {
	index int
	rec   article.Record
}

// EnrichAll enriches recs on a bounded pool of workers and returns them in their
// original order. Records left unprocessed by cancellation keep their content.
func (e *Enricher) EnrichAll(ctx context.Context, recs []article.Record) ([]article.Record, Stats) {
	stats := Stats{StartTime: time.Now()}
	out := make([]article.Record, len(recs))
	copy(out, recs)
	if len(recs) == 0 {
		return out, stats
	}

	workers := min(e.workers, len(recs))
	jobs := make(chan job, workers)
	results := make(chan result, workers)

	for i := 0; i < workers; i++ {
		go e.worker(ctx, i, jobs, results)
	}

	e.coordinator(ctx, recs, out, &stats, jobs, results)

	slog.Info("enrichment complete",
		slog.Int("records", len(recs)),
		slog.Int("enriched", stats.Enriched),
		slog.Int("unavailable", stats.Unavailable),
		slog.Int("skipped", stats.Skipped),
		slog.Duration("elapsed", stats.Elapsed()),
	)
	return out, stats
}

func (e *Enricher) coordinator(ctx context.Context, recs, out []article.Record, stats *Stats, jobs chan<- job, results <-chan result) {
	next, active := 0, 0
	defer func() {
		close(jobs)
		stats.Skipped += len(recs) - next
	}()

	for next < len(recs) || active > 0 {
		var jobsChan chan<- job
		var j job
		if next < len(recs) && ctx.Err() == nil {
			jobsChan = jobs
			j = job{index: next, rec: recs[next]}
		} else if active == 0 {
			break
		}

		select {
		case jobsChan <- j:
			next++
			active++
		case res := <-results:
			active--
			out[res.index] = res.rec
			stats.record(res.rec)
		case <-ctx.Done():
			// drain in-flight work so workers never block on results
			for active > 0 {
				res := <-results
				active--
				out[res.index] = res.rec
				stats.record(res.rec)
			}
			return
		}
	}
}

func (s *Stats) record(rec article.Record) {
	if rec.HasContent() {
		s.Enriched++
	} else if rec.Content == article.ContentUnavailable {
		s.Unavailable++
	}
}

func (e *Enricher) worker(ctx context.Context, id int, jobs <-chan job, results chan<- result) {
	slog.Debug("enrich worker started", slog.Int("id", id))
	for j := range jobs {
		results <- result{index: j.index, rec: e.Enrich(ctx, j.rec)}
	}
}
