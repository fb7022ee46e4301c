// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Snapshots SnapshotConfig  `mapstructure:"snapshots"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CrawlerConfig governs dispatcher and pagination behavior.
type CrawlerConfig struct {
	RatePerSecond      float64 `mapstructure:"rate_per_second"`
	Burst              int     `mapstructure:"burst"`
	PageSize           int     `mapstructure:"page_size"`
	TaskTimeoutSeconds int     `mapstructure:"task_timeout_seconds"`
	HandleBuffer       int     `mapstructure:"handle_buffer"`
}

// HTTPConfig configures fetch timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// HeadlessConfig configures the headless fallback fetcher.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	BodyThreshold   int  `mapstructure:"body_threshold"`
}

// FeedConfig locates the reviews-feed endpoint.
type FeedConfig struct {
	URL          string `mapstructure:"url"`
	ItemsPerPage int    `mapstructure:"items_per_page"`
}

// SinkConfig sets the results file path.
type SinkConfig struct {
	Path string `mapstructure:"path"`
}

// SnapshotConfig controls raw-HTML snapshot archival.
type SnapshotConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// DBConfig controls the optional crawl-run record store.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	RunsTable    string `mapstructure:"runs_table"`
	ResultsTable string `mapstructure:"results_table"`
}

// PubSubConfig holds metadata for per-record publish notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features and the log file path.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	FilePath    string `mapstructure:"file_path"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HOUZZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.rate_per_second", 1.0)
	v.SetDefault("crawler.burst", 1)
	v.SetDefault("crawler.page_size", 15)
	v.SetDefault("crawler.task_timeout_seconds", 120)
	v.SetDefault("crawler.handle_buffer", 1024)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.body_threshold", 2048)
	v.SetDefault("feed.url", "https://www.houzz.com/j/ajax/profileReviewsAjax")
	v.SetDefault("feed.items_per_page", 1024)
	v.SetDefault("sink.path", "results.jsonl")
	v.SetDefault("snapshots.enabled", false)
	v.SetDefault("snapshots.backend", "local")
	v.SetDefault("snapshots.dir", "snapshots")
	v.SetDefault("snapshots.prefix", "pages")
	v.SetDefault("db.runs_table", "crawl_runs")
	v.SetDefault("db.results_table", "crawl_results")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file_path", "scraper.log")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.RatePerSecond <= 0 {
		return fmt.Errorf("crawler.rate_per_second must be > 0")
	}
	if c.Crawler.PageSize <= 0 {
		return fmt.Errorf("crawler.page_size must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Snapshots.Enabled {
		switch c.Snapshots.Backend {
		case "local":
			if c.Snapshots.Dir == "" {
				return fmt.Errorf("snapshots.dir must be set for the local backend")
			}
		case "gcs":
			if c.Snapshots.Bucket == "" {
				return fmt.Errorf("snapshots.bucket must be set for the gcs backend")
			}
		default:
			return fmt.Errorf("snapshots.backend must be local or gcs, got %q", c.Snapshots.Backend)
		}
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when a topic is configured")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr must be set when metrics are enabled")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// TaskTimeout converts the per-task limit into a duration.
func (c Config) TaskTimeout() time.Duration {
	return time.Duration(c.Crawler.TaskTimeoutSeconds) * time.Second
}
