package config

import (
	"fmt"
	"strings"
	"time"

	"finnews-scraper/internal/scraper"
)

type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Robots        RobotsConfig        `yaml:"robots"`
	Rod           RodConfig           `yaml:"rod"`
	SelectorsFile string              `yaml:"selectors_file"`
	Sites         SitesConfig         `yaml:"sites"`
	Output        OutputConfig        `yaml:"output"`
	Storage       StorageConfig       `yaml:"storage"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Observability ObservabilityConfig `yaml:"observability"`
	Hub           HubConfig           `yaml:"hub"`
}

type HTTPConfig struct {
	UserAgent                 string `yaml:"user_agent"`
	TotalTimeoutMS            int    `yaml:"total_timeout_ms"`
	DelayMS                   int    `yaml:"delay_ms"`
	MaxIdleConnections        int    `yaml:"max_idle_connections"`
	MaxIdleConnectionsPerHost int    `yaml:"max_idle_connections_per_host"`
	IdleConnectionTimeoutS    int    `yaml:"idle_connection_timeout_s"`
}

type RateLimitConfig struct {
	RPM int `yaml:"rpm"`
}

type RobotsConfig struct {
	Enabled       bool `yaml:"enabled"`
	CacheTTLHours int  `yaml:"cache_ttl_hours"`
}

type RodConfig struct {
	Enabled         bool   `yaml:"enabled"`
	ChromePath      string `yaml:"chrome_path"`
	PageTimeoutS    int    `yaml:"page_timeout_s"`
	LazyLoadDelayMS int    `yaml:"lazy_load_delay_ms"`
}

type SitesConfig struct {
	Panama     scraper.PanamaSelectors     `yaml:"panama"`
	Financiero scraper.FinancieroSelectors `yaml:"financiero"`
	Feeds      []scraper.FeedSource        `yaml:"feeds"`
}

type OutputConfig struct {
	Dir            string   `yaml:"dir"`
	FilePrefix     string   `yaml:"file_prefix"`
	Formats        []string `yaml:"formats"`
	PreviewCount   int      `yaml:"preview_count"`
	PreviewColumns int      `yaml:"preview_columns"`
}

type StorageConfig struct {
	SQLitePath       string `yaml:"sqlite_path"`
	MSSQLDSN         string `yaml:"mssql_dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type SchedulerConfig struct {
	Mode     string `yaml:"mode"`
	CronExpr string `yaml:"cron_expr"`
	Timezone string `yaml:"timezone"`
}

type ObservabilityConfig struct {
	LogPath      string `yaml:"log_path"`
	LogLevel     string `yaml:"log_level"`
	LogMaxSizeMB int    `yaml:"log_max_size_mb"`
	LogBackups   int    `yaml:"log_backups"`
}

type HubConfig struct {
	Endpoint        string `yaml:"endpoint"`
	ModelPath       string `yaml:"model_path"`
	NumLabels       int    `yaml:"num_labels"`
	Revision        string `yaml:"revision"`
	Private         bool   `yaml:"private"`
	KeyringService  string `yaml:"keyring_service"`
	KeyringAccount  string `yaml:"keyring_account"`
	RequestTimeoutS int    `yaml:"request_timeout_s"`
}

// Output formats understood by the persistence layer.
const (
	FormatCSV    = "csv"
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
	FormatMSSQL  = "mssql"
)

// Validation
func (c *Config) Validate() error {
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.HTTP.DelayMS < 0 {
		return fmt.Errorf("http.delay_ms must be >= 0")
	}
	if c.RateLimit.RPM < 0 {
		return fmt.Errorf("rate_limit.rpm must be >= 0")
	}
	if c.Robots.Enabled && c.Robots.CacheTTLHours <= 0 {
		return fmt.Errorf("robots.cache_ttl_hours must be > 0 when robots.enabled is true")
	}
	if c.Rod.Enabled && c.Rod.PageTimeoutS <= 0 {
		return fmt.Errorf("rod.page_timeout_s must be > 0")
	}
	if err := validateSites(&c.Sites); err != nil {
		return err
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if len(c.Output.Formats) == 0 {
		return fmt.Errorf("output.formats must list at least one format")
	}
	for _, f := range c.Output.Formats {
		switch strings.ToLower(f) {
		case FormatCSV, FormatJSON, FormatSQLite, FormatMSSQL:
		default:
			return fmt.Errorf("output.formats: unsupported format %q", f)
		}
	}
	if c.HasFormat(FormatSQLite) && c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required for the sqlite format")
	}
	if c.HasFormat(FormatMSSQL) && c.Storage.MSSQLDSN == "" {
		return fmt.Errorf("storage.mssql_dsn is required for the mssql format")
	}
	if c.Storage.CommandTimeoutMS <= 0 {
		return fmt.Errorf("storage.command_timeout_ms must be > 0")
	}
	if c.Scheduler.Mode != "oneshot" && c.Scheduler.Mode != "cron" {
		return fmt.Errorf("scheduler.mode must be 'oneshot' or 'cron'")
	}
	if c.Scheduler.Mode == "cron" && c.Scheduler.CronExpr == "" {
		return fmt.Errorf("scheduler.cron_expr must be set when mode is 'cron'")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	if c.Hub.Endpoint == "" {
		return fmt.Errorf("hub.endpoint is required")
	}
	if c.Hub.NumLabels < 0 {
		return fmt.Errorf("hub.num_labels must be >= 0")
	}
	return nil
}

// HasFormat reports whether the named output format is enabled.
func (c *Config) HasFormat(name string) bool {
	for _, f := range c.Output.Formats {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// Getters
func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetDelay() time.Duration {
	return time.Duration(c.HTTP.DelayMS) * time.Millisecond
}

func (c *Config) GetIdleConnectionTimeout() time.Duration {
	return time.Duration(c.HTTP.IdleConnectionTimeoutS) * time.Second
}

func (c *Config) GetRobotsCacheTTL() time.Duration {
	return time.Duration(c.Robots.CacheTTLHours) * time.Hour
}

func (c *Config) GetRodPageTimeout() time.Duration {
	return time.Duration(c.Rod.PageTimeoutS) * time.Second
}

func (c *Config) GetRodLazyLoadDelay() time.Duration {
	return time.Duration(c.Rod.LazyLoadDelayMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

func (c *Config) GetHubRequestTimeout() time.Duration {
	return time.Duration(c.Hub.RequestTimeoutS) * time.Second
}
