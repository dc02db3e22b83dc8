// Package main provides the headline scraper command-line tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"finnews-scraper/internal/app"
	"finnews-scraper/internal/config"
	"finnews-scraper/internal/fetcher"
	"finnews-scraper/internal/observability"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML config")
	formats := flag.String("formats", "", "Comma separated output formats, overrides output.formats (csv,json,sqlite,mssql)")
	mode := flag.String("mode", "", "Run mode, overrides scheduler.mode (oneshot or cron)")
	logLevel := flag.String("log-level", "", "Log level, overrides observability.log_level")
	flag.Parse()

	// Позиционный аргумент как раньше
	if flag.NArg() > 0 {
		*configPath = flag.Arg(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *formats != "" {
		cfg.Output.Formats = strings.Split(*formats, ",")
	}
	if *mode != "" {
		cfg.Scheduler.Mode = *mode
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := observability.NewLoggerWithOptions(observability.Options{
		Path:       cfg.Observability.LogPath,
		Level:      cfg.Observability.LogLevel,
		MaxSizeMB:  cfg.Observability.LogMaxSizeMB,
		MaxBackups: cfg.Observability.LogBackups,
		Console:    os.Stderr,
	})
	if *logLevel != "" {
		logger.SetLevel(*logLevel)
	}

	os.Exit(run(cfg, logger))
}

func run(cfg *config.Config, logger *observability.Logger) int {
	defer func() { _ = logger.Close() }()

	ctx, cancel := app.GracefulShutdown(context.Background(), logger)
	defer cancel()

	var opts []fetcher.Option
	if cfg.Rod.Enabled {
		renderer, err := fetcher.NewBrowserRenderer(cfg)
		if err != nil {
			logger.Error("Failed to start browser", "error", err.Error())
			return 1
		}
		defer func() { _ = renderer.Close() }()
		opts = append(opts, fetcher.WithRenderer(renderer))
	}
	f := fetcher.NewFetcher(cfg, logger, opts...)

	sinks, closers, err := app.BuildSinks(cfg, logger)
	defer closeAll(closers, logger)
	if err != nil {
		logger.Error("Failed to open storage", "error", err.Error())
		fmt.Printf("An error occurred: %v\n", err)
		return 1
	}

	orch := app.NewOrchestrator(logger, app.BuildExtractors(cfg, f, logger), sinks)
	job := func(ctx context.Context) error {
		return scrapeOnce(ctx, cfg, orch, logger)
	}

	if cfg.Scheduler.Mode == "cron" {
		scheduler, err := app.NewScheduler(cfg.Scheduler.CronExpr, cfg.Scheduler.Timezone, job, logger)
		if err != nil {
			logger.Error("Failed to create scheduler", "error", err.Error())
			return 1
		}
		scheduler.Start(ctx)
		return 0
	}

	if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return 1
	}
	return 0
}

func scrapeOnce(ctx context.Context, cfg *config.Config, orch *app.Orchestrator, logger *observability.Logger) error {
	lock, err := app.AcquireRunLock(cfg.Output.Dir)
	if err != nil {
		logger.Warn("Skipping run", "error", err.Error())
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Error("Failed to release run lock", "error", err.Error())
		}
	}()

	fmt.Println("Starting scraping...")

	result, err := orch.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Println("\nScraping interrupted by user.")
		return err
	}
	if err != nil {
		logger.Error("Unexpected error", "error", err.Error())
		fmt.Printf("An error occurred: %v\n", err)
		return err
	}

	if len(result.Headlines) > 0 {
		app.PrintHeadlines(os.Stdout, result.Headlines, cfg.Output.PreviewCount, cfg.Output.PreviewColumns)
	}
	app.PrintSummary(os.Stdout, result)
	return nil
}

func closeAll(closers []io.Closer, logger *observability.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err.Error())
		}
	}
}
