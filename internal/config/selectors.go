package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"finnews-scraper/internal/scraper"
)

// DefaultSites returns the selector sets for the two supported news sites.
func DefaultSites() SitesConfig {
	return SitesConfig{
		Panama: scraper.PanamaSelectors{
			BaseURL:   "https://panamabankingnews.com/",
			Container: "div.col-md-8",
			Headlines: []string{
				"h2 a",
				"h3 a",
				".entry-title a",
				"article h2 a",
				"article h3 a",
				".post-title a",
				".article-title a",
			},
			Date:                     "span.mg-blog-date",
			Pagination:               "div.nav-links",
			MaxPages:                 10,
			PaginateWithoutContainer: true,
		},
		Financiero: scraper.FinancieroSelectors{
			BaseURL:  "https://www.elfinancierocr.com",
			Sections: []string{"/negocios/", "/finanzas/", "/economia-y-politica/"},
			HeadlineClasses: []string{
				"md-promo-headline",
				"lg-promo-headline",
				"sm-promo-headline",
				"c-heading",
				"headline-text",
			},
		},
	}
}

// LoadSelectors overlays the site selectors found in filePath onto sites.
func LoadSelectors(filePath string, sites *SitesConfig) error {
	if filePath == "" {
		return fmt.Errorf("selectors file path is empty")
	}

	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("selectors file not found: %s: %w", filePath, err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open selectors file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close selectors file: %v\n", closeErr)
		}
	}()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(sites); err != nil {
		return fmt.Errorf("failed to parse selectors YAML: %w", err)
	}

	return validateSites(sites)
}

// validateSites проверяет минимальный набор селекторов
func validateSites(s *SitesConfig) error {
	if s.Panama.BaseURL == "" {
		return fmt.Errorf("sites.panama.base_url is required")
	}
	if s.Panama.Container == "" {
		return fmt.Errorf("sites.panama.container is required")
	}
	if len(s.Panama.Headlines) == 0 {
		return fmt.Errorf("sites.panama.headlines is required")
	}
	if s.Panama.MaxPages < 0 {
		return fmt.Errorf("sites.panama.max_pages must be >= 0")
	}
	if s.Financiero.BaseURL == "" {
		return fmt.Errorf("sites.financiero.base_url is required")
	}
	if len(s.Financiero.Sections) == 0 {
		return fmt.Errorf("sites.financiero.sections is required")
	}
	if len(s.Financiero.HeadlineClasses) == 0 {
		return fmt.Errorf("sites.financiero.headline_classes is required")
	}
	for i, feed := range s.Feeds {
		if feed.URL == "" || feed.Source == "" {
			return fmt.Errorf("sites.feeds[%d] needs both url and source", i)
		}
	}

	return nil
}
