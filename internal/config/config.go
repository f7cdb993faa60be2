// Package config defines the top-level configuration for the encarwatch
// monitor and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ENCARWATCH_* environment variables.
type Config struct {
	Marketplace MarketplaceConfig `toml:"marketplace"`
	Filter      FilterConfig      `toml:"filter"`
	Browser     BrowserConfig     `toml:"browser"`
	Acquire     AcquireConfig     `toml:"acquire"`
	Monitor     MonitorConfig     `toml:"monitor"`
	Closure     ClosureConfig     `toml:"closure"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`

	// ReplayDate selects the archive day (YYYY-MM-DD) for replay mode.
	// Empty means today. Usually set from the command line.
	ReplayDate string `toml:"replay_date"`
}

// MarketplaceConfig holds the marketplace endpoints.
type MarketplaceConfig struct {
	APIHost       string `toml:"api_host"`
	HomeURL       string `toml:"home_url"`
	DetailURLBase string `toml:"detail_url_base"`
}

// FilterConfig describes the vehicle search the monitor tracks.
type FilterConfig struct {
	Manufacturer string  `toml:"manufacturer"`
	ModelGroup   string  `toml:"model_group"`
	YearMin      int     `toml:"year_min"`
	YearMax      int     `toml:"year_max"`
	PriceMax     float64 `toml:"price_max"`   // 만원
	MileageMax   int     `toml:"mileage_max"` // km
}

// BrowserConfig holds headless browser parameters.
type BrowserConfig struct {
	BinaryPath  string   `toml:"binary_path"`
	Headless    bool     `toml:"headless"`
	NavTimeout  duration `toml:"nav_timeout"`
	UserAgent   string   `toml:"user_agent"`
	WindowScale int      `toml:"window_scale"`
}

// AcquireConfig holds API acquisition parameters.
type AcquireConfig struct {
	PageSize       int      `toml:"page_size"`
	MaxAttempts    int      `toml:"max_attempts"`
	SessionTTL     duration `toml:"session_ttl"`
	RequestTimeout duration `toml:"request_timeout"`
	InterPageDelay duration `toml:"inter_page_delay"`
}

// MonitorConfig holds scheduling and classification parameters.
type MonitorConfig struct {
	RegularInterval duration `toml:"regular_interval"`
	QuickInterval   duration `toml:"quick_interval"`
	CleanupInterval duration `toml:"cleanup_interval"`
	RegularPages    int      `toml:"regular_pages"`
	PopulationPages int      `toml:"population_pages"`

	// Truly-new heuristics.
	NewMaxAgeDays       int      `toml:"new_max_age_days"`
	NewMaxViews         int      `toml:"new_max_views"`
	ImmediateAlertViews int      `toml:"immediate_alert_views"`
	NewWindow           duration `toml:"new_window"`

	EnrichSampleSize int      `toml:"enrich_sample_size"`
	RetentionDays    int      `toml:"retention_days"`
	CleanupMinViews  int      `toml:"cleanup_min_views"`
	DailySummaryHour int      `toml:"daily_summary_hour"`
	Tick             duration `toml:"tick"`
}

// ClosureConfig holds closure scan parameters.
type ClosureConfig struct {
	Interval      duration `toml:"interval"`
	MinAgeDays    int      `toml:"min_age_days"`
	BatchSize     int      `toml:"batch_size"`
	InterItemWait duration `toml:"inter_item_wait"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// Addr is empty the monitor falls back to in-process rate limiting.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for raw payload
// archiving. Archiving is skipped when Enabled is false.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials and rate limits.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	RateLimit      int      `toml:"rate_limit"`
	RateWindow     duration `toml:"rate_window"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Marketplace: MarketplaceConfig{
			APIHost:       "https://api.encar.com",
			HomeURL:       "https://www.encar.com",
			DetailURLBase: "https://fem.encar.com/cars/detail/",
		},
		Filter: FilterConfig{
			Manufacturer: "벤츠",
			ModelGroup:   "GLE-클래스",
			YearMin:      2020,
			YearMax:      2026,
			PriceMax:     12000,
			MileageMax:   120000,
		},
		Browser: BrowserConfig{
			Headless:    true,
			NavTimeout:  duration{30 * time.Second},
			WindowScale: 1,
		},
		Acquire: AcquireConfig{
			PageSize:       20,
			MaxAttempts:    3,
			SessionTTL:     duration{1 * time.Hour},
			RequestTimeout: duration{20 * time.Second},
			InterPageDelay: duration{2 * time.Second},
		},
		Monitor: MonitorConfig{
			RegularInterval:     duration{30 * time.Minute},
			QuickInterval:       duration{5 * time.Minute},
			CleanupInterval:     duration{7 * 24 * time.Hour},
			RegularPages:        3,
			PopulationPages:     10,
			NewMaxAgeDays:       30,
			NewMaxViews:         100,
			ImmediateAlertViews: 10,
			NewWindow:           duration{15 * time.Minute},
			EnrichSampleSize:    5,
			RetentionDays:       30,
			CleanupMinViews:     100,
			DailySummaryHour:    8,
			Tick:                duration{30 * time.Second},
		},
		Closure: ClosureConfig{
			Interval:      duration{6 * time.Hour},
			MinAgeDays:    3,
			BatchSize:     25,
			InterItemWait: duration{2 * time.Second},
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "encarwatch",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "encarwatch-raw",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			RateLimit:  20,
			RateWindow: duration{60 * time.Second},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor":  true,
	"populate": true,
	"scan":     true,
	"closures": true,
	"replay":   true,
	"status":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, populate, scan, closures, replay, status)", c.Mode))
	}

	if c.ReplayDate != "" {
		if _, err := time.Parse("2006-01-02", c.ReplayDate); err != nil {
			errs = append(errs, fmt.Sprintf("replay_date %q is not a YYYY-MM-DD date", c.ReplayDate))
		}
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Marketplace endpoints
	if c.Marketplace.APIHost == "" {
		errs = append(errs, "marketplace: api_host must not be empty")
	}
	if c.Marketplace.HomeURL == "" {
		errs = append(errs, "marketplace: home_url must not be empty")
	}
	if c.Marketplace.DetailURLBase == "" {
		errs = append(errs, "marketplace: detail_url_base must not be empty")
	}

	// Filter
	if c.Filter.Manufacturer == "" {
		errs = append(errs, "filter: manufacturer must not be empty")
	}
	if c.Filter.ModelGroup == "" {
		errs = append(errs, "filter: model_group must not be empty")
	}
	if c.Filter.YearMin > 0 && c.Filter.YearMax > 0 && c.Filter.YearMin > c.Filter.YearMax {
		errs = append(errs, fmt.Sprintf("filter: year_min %d exceeds year_max %d", c.Filter.YearMin, c.Filter.YearMax))
	}

	// Acquire
	if c.Acquire.PageSize < 1 {
		errs = append(errs, "acquire: page_size must be >= 1")
	}
	if c.Acquire.MaxAttempts < 1 {
		errs = append(errs, "acquire: max_attempts must be >= 1")
	}
	if c.Acquire.SessionTTL.Duration <= 0 {
		errs = append(errs, "acquire: session_ttl must be > 0")
	}

	// Monitor
	if c.Monitor.RegularInterval.Duration <= 0 {
		errs = append(errs, "monitor: regular_interval must be > 0")
	}
	if c.Monitor.QuickInterval.Duration <= 0 {
		errs = append(errs, "monitor: quick_interval must be > 0")
	}
	if c.Monitor.RegularPages < 1 {
		errs = append(errs, "monitor: regular_pages must be >= 1")
	}
	if c.Monitor.NewMaxAgeDays < 1 {
		errs = append(errs, "monitor: new_max_age_days must be >= 1")
	}
	if c.Monitor.DailySummaryHour < 0 || c.Monitor.DailySummaryHour > 23 {
		errs = append(errs, fmt.Sprintf("monitor: daily_summary_hour must be 0-23, got %d", c.Monitor.DailySummaryHour))
	}

	// Closure
	if c.Closure.BatchSize < 1 {
		errs = append(errs, "closure: batch_size must be >= 1")
	}
	if c.Closure.MinAgeDays < 0 {
		errs = append(errs, "closure: min_age_days must be >= 0")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis (optional; only checked when configured)
	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Notify — token and chat id must be set together, or both empty.
	nt := c.Notify.TelegramToken != ""
	nc := c.Notify.TelegramChatID != ""
	if nt != nc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	if c.Notify.RateLimit < 1 {
		errs = append(errs, "notify: rate_limit must be >= 1")
	}
	if c.Notify.RateWindow.Duration <= 0 {
		errs = append(errs, "notify: rate_window must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
