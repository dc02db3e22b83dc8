package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"finnews-scraper/internal/observability"
	"finnews-scraper/internal/scraper"
	"finnews-scraper/internal/storage"
)

// SourceCount is the number of headlines one source produced.
type SourceCount struct {
	Source string
	Count  int
}

// RunResult describes one scrape run.
type RunResult struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Headlines []scraper.Headline
	PerSource []SourceCount
	// Outputs lists what each successful sink wrote, in sink order.
	Outputs    []string
	SinkErrors int
}

type Orchestrator struct {
	logger     *observability.Logger
	extractors []scraper.Extractor
	sinks      []storage.Sink
	now        func() time.Time
}

func NewOrchestrator(logger *observability.Logger, extractors []scraper.Extractor, sinks []storage.Sink) *Orchestrator {
	return &Orchestrator{
		logger:     logger,
		extractors: extractors,
		sinks:      sinks,
		now:        time.Now,
	}
}

// Run executes every extractor in order and persists the combined result.
// Records from different extractors are concatenated as is. A cancelled
// ctx stops the run before anything is written and ctx.Err() is returned.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.New(),
		StartedAt: o.now(),
	}

	o.logger.Info("Starting news scraping", "run_id", result.RunID.String(), "extractors", len(o.extractors))

	for _, ex := range o.extractors {
		o.logger.Info("Scraping source", "source", ex.Name())

		headlines, err := ex.Extract(ctx)
		if err != nil {
			o.logger.Warn("Scraping interrupted", "source", ex.Name(), "error", err.Error())
			return result, err
		}
		result.Headlines = append(result.Headlines, headlines...)
	}

	result.PerSource = countBySource(result.Headlines)

	o.logger.Info("Scraping completed", "run_id", result.RunID.String(), "total", len(result.Headlines))

	if len(result.Headlines) == 0 {
		o.logger.Warn("No headlines scraped, skipping persistence")
		return result, nil
	}

	o.persist(ctx, result)
	return result, nil
}

// persist hands the run to every sink. A failing sink is logged and the
// remaining sinks still run.
func (o *Orchestrator) persist(ctx context.Context, result *RunResult) {
	batch := &storage.Batch{
		RunID:     result.RunID,
		ScrapedAt: result.StartedAt,
		Headlines: result.Headlines,
	}

	for _, sink := range o.sinks {
		out, err := sink.Save(ctx, batch)
		if err != nil {
			result.SinkErrors++
			o.logger.Error("Failed to save headlines", "sink", sink.Name(), "error", err.Error())
			continue
		}
		o.logger.Info("Saved headlines", "sink", sink.Name(), "output", out, "count", len(batch.Headlines))
		result.Outputs = append(result.Outputs, out)
	}

	if result.SinkErrors > 0 {
		o.logger.Warn("Run completed with persistence errors", "failed_sinks", result.SinkErrors)
	}
}

// countBySource keeps sources in first-seen order.
func countBySource(headlines []scraper.Headline) []SourceCount {
	var counts []SourceCount
	index := map[string]int{}
	for _, h := range headlines {
		i, ok := index[h.Source]
		if !ok {
			i = len(counts)
			index[h.Source] = i
			counts = append(counts, SourceCount{Source: h.Source})
		}
		counts[i].Count++
	}
	return counts
}
