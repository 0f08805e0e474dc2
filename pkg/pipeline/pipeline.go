package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/devraulu/newsreap/pkg/article"
	"github.com/devraulu/newsreap/pkg/checkpoint"
	"github.com/devraulu/newsreap/pkg/dedup"
	"github.com/devraulu/newsreap/pkg/driver"
	"github.com/devraulu/newsreap/pkg/enrich"
	"github.com/devraulu/newsreap/pkg/export"
	"github.com/devraulu/newsreap/pkg/search"
	"github.com/devraulu/newsreap/pkg/storage"
)

type Config struct {
	Query     string
	Sites     []string
	Start     time.Time
	End       time.Time
	Resume    bool
	OutputDir string
}

type Summary struct {
	RunID              string
	StartTime          time.Time
	Found              int
	Unique             int
	Persisted          int
	Enriched           int
	ContentUnavailable int
	Windows            int
	Skipped            int
	Abandoned          int
	Artifacts          export.Paths
}

func (s *Summary) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}

// Pipeline runs one scrape: search every sub-window, then dedup, enrich and
// persist each window's records as soon as it completes.
type Pipeline struct {
	cfg         Config
	driver      *driver.Driver
	enricher    *enrich.Enricher
	store       storage.ArticleStore
	checkpoints checkpoint.Store
}

// New wires the stages. A nil enricher disables content fetching and a nil
// checkpoint store disables resumption.
func New(cfg Config, d *driver.Driver, e *enrich.Enricher, store storage.ArticleStore, cp checkpoint.Store) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		driver:      d,
		enricher:    e,
		store:       store,
		checkpoints: cp,
	}
}

type run struct {
	*Pipeline
	key     string
	seen    *dedup.Set
	kept    []article.Record
	summary Summary
	// advancing turns false once a window is abandoned so the checkpoint never
	// moves past a gap.
	advancing bool
}

func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	r := &run{
		Pipeline:  p,
		key:       checkpoint.Key(p.cfg.Query, p.cfg.Sites),
		seen:      dedup.NewSet(),
		advancing: true,
		summary:   Summary{RunID: uuid.NewString(), StartTime: time.Now()},
	}

	p.driver.OnWindow = r.window
	p.driver.Skip = nil
	if p.cfg.Resume && p.checkpoints != nil {
		through, ok, err := p.checkpoints.Load(ctx, r.key)
		if err != nil {
			slog.Warn("could not load checkpoint, starting from scratch", slog.Any("err", err))
		} else if ok {
			slog.Info("resuming", slog.String("through", through.Format("2006-01-02")))
			p.driver.Skip = func(w search.Window) bool { return !w.End.After(through) }
		}
	}

	_, ds, err := p.driver.Run(ctx, p.cfg.Query, p.cfg.Start, p.cfg.End)
	r.summary.Windows = ds.Windows
	r.summary.Skipped = ds.Skipped
	r.summary.Abandoned = ds.Abandoned

	r.writeArtifacts()

	s := r.summary
	slog.Info("run complete",
		slog.String("run_id", s.RunID),
		slog.Int("found", s.Found),
		slog.Int("unique", s.Unique),
		slog.Int("persisted", s.Persisted),
		slog.Int("enriched", s.Enriched),
		slog.Int("content_unavailable", s.ContentUnavailable),
		slog.Int("windows", s.Windows),
		slog.Int("skipped", s.Skipped),
		slog.Int("abandoned", s.Abandoned),
		slog.Duration("elapsed", s.Elapsed()),
	)
	return s, err
}

func (r *run) window(ctx context.Context, res driver.WindowResult) error {
	if res.Skipped {
		return nil
	}
	if res.Abandoned {
		r.advancing = false
		return nil
	}

	r.summary.Found += len(res.Records)

	unique := r.seen.Dedupe(res.Records)
	for i := range unique {
		unique[i].URL = dedup.Key(unique[i].URL)
	}
	r.summary.Unique += len(unique)

	if r.enricher != nil && len(unique) > 0 {
		var stats enrich.Stats
		unique, stats = r.enricher.EnrichAll(ctx, unique)
		r.summary.Enriched += stats.Enriched
		r.summary.ContentUnavailable += stats.Unavailable
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := r.store.InsertMany(ctx, unique)
	r.summary.Persisted += n
	r.kept = append(r.kept, unique...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// keep going; the checkpoint stays put so a resumed run retries this window
		slog.Error("failed to persist window",
			slog.String("window", res.Window.String()),
			slog.Int("persisted", n),
			slog.Any("err", err),
		)
		r.advancing = false
		return nil
	}

	slog.Info("window persisted",
		slog.String("window", res.Window.String()),
		slog.Int("unique", len(unique)),
		slog.Int("persisted", n),
	)

	if r.advancing && r.checkpoints != nil {
		if err := r.checkpoints.Save(ctx, r.key, res.Window.End); err != nil {
			slog.Warn("could not save checkpoint", slog.String("window", res.Window.String()), slog.Any("err", err))
		}
	}
	return nil
}

func (r *run) writeArtifacts() {
	if r.cfg.OutputDir == "" {
		return
	}

	paths, err := export.WriteRun(r.cfg.OutputDir, r.summary.RunID, r.kept)
	if err != nil {
		slog.Error("failed to write artifacts", slog.String("dir", r.cfg.OutputDir), slog.Any("err", err))
		return
	}
	r.summary.Artifacts = paths
	slog.Info("artifacts written", slog.String("json", paths.JSON), slog.String("csv", paths.CSV))
}
