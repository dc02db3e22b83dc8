package app

import (
	"fmt"
	"io"
	"strings"

	"finnews-scraper/internal/config"
	"finnews-scraper/internal/fetcher"
	"finnews-scraper/internal/observability"
	"finnews-scraper/internal/scraper"
	"finnews-scraper/internal/storage"
	"finnews-scraper/internal/storage/mssql"
	"finnews-scraper/internal/storage/sqlite"
)

// BuildExtractors returns the site extractors in run order: Panama, El
// Financiero, then any configured feeds.
func BuildExtractors(cfg *config.Config, f *fetcher.Fetcher, logger *observability.Logger) []scraper.Extractor {
	extractors := []scraper.Extractor{
		scraper.NewPanamaExtractor(cfg.Sites.Panama, f, logger),
		scraper.NewFinancieroExtractor(cfg.Sites.Financiero, f, logger),
	}
	for _, src := range cfg.Sites.Feeds {
		extractors = append(extractors, scraper.NewFeedExtractor(src, f.Client(), cfg.HTTP.UserAgent, logger))
	}
	return extractors
}

// BuildSinks opens one sink per configured output format. The returned
// closers must be closed by the caller, also when an error is returned.
func BuildSinks(cfg *config.Config, logger *observability.Logger) ([]storage.Sink, []io.Closer, error) {
	var sinks []storage.Sink
	var closers []io.Closer

	for _, format := range cfg.Output.Formats {
		switch strings.ToLower(format) {
		case config.FormatCSV:
			sinks = append(sinks, storage.NewCSVSink(cfg.Output.Dir, cfg.Output.FilePrefix))
		case config.FormatJSON:
			sinks = append(sinks, storage.NewJSONSink(cfg.Output.Dir, cfg.Output.FilePrefix))
		case config.FormatSQLite:
			repo, err := sqlite.NewRepository(cfg.Storage.SQLitePath, cfg.GetCommandTimeout(), logger)
			if err != nil {
				return sinks, closers, fmt.Errorf("failed to open sqlite storage: %w", err)
			}
			closers = append(closers, repo)
			sinks = append(sinks, storage.NewRepositorySink(config.FormatSQLite, repo))
		case config.FormatMSSQL:
			repo, err := mssql.NewRepository(cfg.Storage.MSSQLDSN, cfg.GetCommandTimeout(), logger)
			if err != nil {
				return sinks, closers, fmt.Errorf("failed to open mssql storage: %w", err)
			}
			closers = append(closers, repo)
			sinks = append(sinks, storage.NewRepositorySink(config.FormatMSSQL, repo))
		default:
			return sinks, closers, fmt.Errorf("unsupported output format %q", format)
		}
	}

	return sinks, closers, nil
}
