package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finnews-scraper/internal/observability"
	"finnews-scraper/internal/scraper"
	"finnews-scraper/internal/storage"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "db", "headlines.db"), 5*time.Second, observability.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestUpsertHeadline(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	h := scraper.Headline{Title: "Empresa crece", Source: scraper.SourceFinanciero, PostingDate: scraper.DateNA}
	firstRun := uuid.New()
	first := storage.NewStoredHeadline(h, firstRun, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))

	isNew, err := repo.UpsertHeadline(ctx, first)
	require.NoError(t, err)
	assert.True(t, isNew)

	secondRun := uuid.New()
	second := storage.NewStoredHeadline(h, secondRun, time.Date(2024, 1, 16, 10, 0, 0, 0, time.UTC))
	isNew, err = repo.UpsertHeadline(ctx, second)
	require.NoError(t, err)
	assert.False(t, isNew)

	var stored scraper.Headline
	var runID, firstSeen, lastSeen string
	err = repo.db.QueryRowContext(ctx,
		`SELECT title, url, source, posting_date, run_id, first_seen_at, last_seen_at FROM headlines WHERE checksum = ?`,
		first.CheckSum,
	).Scan(&stored.Title, &stored.URL, &stored.Source, &stored.PostingDate, &runID, &firstSeen, &lastSeen)
	require.NoError(t, err)
	assert.Equal(t, h, stored)
	assert.Equal(t, secondRun.String(), runID)
	assert.Equal(t, "2024-01-15T10:00:00Z", firstSeen)
	assert.Equal(t, "2024-01-16T10:00:00Z", lastSeen)
}

func TestRepositorySinkCounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	sink := storage.NewRepositorySink("sqlite", repo)

	batch := &storage.Batch{
		RunID:     uuid.New(),
		ScrapedAt: time.Now(),
		Headlines: []scraper.Headline{
			{Title: "A", URL: "https://panamabankingnews.com/a", Source: scraper.SourcePanama, PostingDate: scraper.DateNA},
			{Title: "B", URL: "https://panamabankingnews.com/b", Source: scraper.SourcePanama, PostingDate: scraper.DateNA},
			{Title: "C", Source: scraper.SourceFinanciero, PostingDate: "15 de enero de 2024"},
		},
	}

	where, err := sink.Save(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, "sqlite (3 new of 3); stored: El Financiero CR=1, Panama Banking News=2", where)

	where, err = sink.Save(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, "sqlite (0 new of 3); stored: El Financiero CR=1, Panama Banking News=2", where)

	counts, err := repo.CountBySource(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{scraper.SourcePanama: 2, scraper.SourceFinanciero: 1}, counts)
}
