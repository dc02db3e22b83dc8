package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"finnews-scraper/internal/observability"
	"finnews-scraper/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS headlines (
	checksum      TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	url           TEXT NOT NULL,
	source        TEXT NOT NULL,
	posting_date  TEXT NOT NULL,
	run_id        TEXT NOT NULL,
	first_seen_at TEXT NOT NULL,
	last_seen_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_headlines_source ON headlines(source);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository(path string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}, nil
}

func (r *Repository) UpsertHeadline(ctx context.Context, h *storage.StoredHeadline) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	seenAt := h.ScrapedAt.UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO headlines (checksum, title, url, source, posting_date, run_id, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(checksum) DO NOTHING`,
		h.CheckSum, h.Headline.Title, h.Headline.URL, h.Headline.Source, h.Headline.PostingDate,
		h.RunID.String(), seenAt, seenAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert headline: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted > 0 {
		return true, nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE headlines SET run_id = ?, last_seen_at = ? WHERE checksum = ?`,
		h.RunID.String(), seenAt, h.CheckSum,
	)
	if err != nil {
		return false, fmt.Errorf("failed to refresh headline: %w", err)
	}
	return false, nil
}

func (r *Repository) CountBySource(ctx context.Context) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM headlines GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err.Error())
		}
	}()

	counts := map[string]int{}
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
