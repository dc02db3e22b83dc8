package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"finnews-scraper/internal/checksum"
	"finnews-scraper/internal/scraper"
)

// Batch is the output of one scrape run.
type Batch struct {
	RunID     uuid.UUID
	ScrapedAt time.Time
	Headlines []scraper.Headline
}

// Sink persists a batch and returns where it went.
type Sink interface {
	Name() string
	Save(ctx context.Context, batch *Batch) (string, error)
}

// StoredHeadline is a headline as kept by a database repository.
type StoredHeadline struct {
	CheckSum  string
	Headline  scraper.Headline
	RunID     uuid.UUID
	ScrapedAt time.Time
}

// Repository интерфейс для работы с хранилищем заголовков
type Repository interface {
	// UpsertHeadline stores the headline, or refreshes its run/time when the
	// checksum is already known. It reports whether the row is new.
	UpsertHeadline(ctx context.Context, h *StoredHeadline) (isNew bool, err error)

	// CountBySource returns the number of stored headlines per source.
	CountBySource(ctx context.Context) (map[string]int, error)

	Close() error
}

// NewStoredHeadline fingerprints h for storage.
func NewStoredHeadline(h scraper.Headline, runID uuid.UUID, scrapedAt time.Time) *StoredHeadline {
	return &StoredHeadline{
		CheckSum:  checksum.Headline(h),
		Headline:  h,
		RunID:     runID,
		ScrapedAt: scrapedAt,
	}
}

// RepositorySink adapts a Repository to the Sink interface.
type RepositorySink struct {
	name string
	repo Repository
}

func NewRepositorySink(name string, repo Repository) *RepositorySink {
	return &RepositorySink{name: name, repo: repo}
}

func (s *RepositorySink) Name() string {
	return s.name
}

func (s *RepositorySink) Save(ctx context.Context, batch *Batch) (string, error) {
	newRows := 0
	for _, h := range batch.Headlines {
		isNew, err := s.repo.UpsertHeadline(ctx, NewStoredHeadline(h, batch.RunID, batch.ScrapedAt))
		if err != nil {
			return "", fmt.Errorf("failed to store headline %q: %w", h.Title, err)
		}
		if isNew {
			newRows++
		}
	}
	out := fmt.Sprintf("%s (%d new of %d)", s.name, newRows, len(batch.Headlines))

	totals, err := s.repo.CountBySource(ctx)
	if err != nil {
		return out + "; totals unavailable: " + err.Error(), nil
	}
	return out + "; stored: " + formatTotals(totals), nil
}

// formatTotals renders per-source totals sorted by source.
func formatTotals(totals map[string]int) string {
	sources := make([]string, 0, len(totals))
	for source := range totals {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	parts := make([]string, 0, len(sources))
	for _, source := range sources {
		parts = append(parts, fmt.Sprintf("%s=%d", source, totals[source]))
	}
	return strings.Join(parts, ", ")
}
