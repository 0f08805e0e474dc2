package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/devraulu/newsreap/pkg/article"
)

// OpenPostgres connects to dsn and runs pending migrations.
func OpenPostgres(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return NewPostgresStorage(db), nil
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (s *PostgresStorage) Insert(ctx context.Context, rec article.Record) (bool, error) {
	var published sql.NullTime
	if t, ok := rec.PublishedAt(); ok {
		published = sql.NullTime{Time: t, Valid: true}
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO articles (url, title, displayed_url, snippet, date_text, published_at, source, content,
			position, is_ad, featured, is_video, is_news, query, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (url) DO NOTHING
		RETURNING id`,
		rec.URL, rec.Title, rec.DisplayedURL, rec.Snippet, rec.Date, published, rec.Source, rec.Content,
		rec.Position, rec.IsAd, rec.Featured, rec.IsVideo, rec.IsNews, rec.Query, rec.DiscoveredAt,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("article already stored", slog.String("url", rec.URL))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	slog.Debug("saved article", slog.Int64("id", id), slog.String("url", rec.URL))
	return true, nil
}

func (s *PostgresStorage) InsertMany(ctx context.Context, recs []article.Record) (int, error) {
	return insertEach(ctx, s, recs)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
