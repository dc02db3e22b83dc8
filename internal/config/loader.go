package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadConfig overlays the YAML file at filePath onto Default. A missing file
// leaves the defaults in place.
func LoadConfig(filePath string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Config file %s not found, using defaults", filePath)
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		defer func() {
			if closeErr := file.Close(); closeErr != nil {
				log.Printf("Warning: failed to close config file: %v", closeErr)
			}
		}()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if cfg.SelectorsFile != "" {
		selectorsPath := cfg.SelectorsFile
		if !filepath.IsAbs(selectorsPath) {
			selectorsPath = filepath.Join(filepath.Dir(filePath), selectorsPath)
		}
		if err := LoadSelectors(selectorsPath, &cfg.Sites); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			UserAgent:                 "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			TotalTimeoutMS:            30000,
			DelayMS:                   1000,
			MaxIdleConnections:        10,
			MaxIdleConnectionsPerHost: 2,
			IdleConnectionTimeoutS:    90,
		},
		RateLimit: RateLimitConfig{RPM: 60},
		Robots:    RobotsConfig{Enabled: false, CacheTTLHours: 12},
		Rod:       RodConfig{Enabled: false, PageTimeoutS: 60, LazyLoadDelayMS: 500},
		Sites:     DefaultSites(),
		Output: OutputConfig{
			Dir:            filepath.Join("data", "raw"),
			FilePrefix:     "news_headlines",
			Formats:        []string{FormatCSV},
			PreviewCount:   10,
			PreviewColumns: 100,
		},
		Storage: StorageConfig{
			SQLitePath:       filepath.Join("data", "headlines.db"),
			CommandTimeoutMS: 5000,
		},
		Scheduler: SchedulerConfig{Mode: "oneshot", Timezone: "UTC"},
		Observability: ObservabilityConfig{
			LogPath:      "news_scraper.log",
			LogLevel:     "info",
			LogMaxSizeMB: 10,
			LogBackups:   3,
		},
		Hub: HubConfig{
			Endpoint:        "https://huggingface.co",
			ModelPath:       filepath.Join("model", "finbeto-lora"),
			NumLabels:       3,
			Revision:        "main",
			KeyringService:  "finnews-scraper",
			KeyringAccount:  "huggingface",
			RequestTimeoutS: 600,
		},
	}
}
