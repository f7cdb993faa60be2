package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ENCARWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ENCARWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Marketplace ──
	setStr(&cfg.Marketplace.APIHost, "ENCARWATCH_MARKETPLACE_API_HOST")
	setStr(&cfg.Marketplace.HomeURL, "ENCARWATCH_MARKETPLACE_HOME_URL")
	setStr(&cfg.Marketplace.DetailURLBase, "ENCARWATCH_MARKETPLACE_DETAIL_URL_BASE")

	// ── Filter ──
	setStr(&cfg.Filter.Manufacturer, "ENCARWATCH_FILTER_MANUFACTURER")
	setStr(&cfg.Filter.ModelGroup, "ENCARWATCH_FILTER_MODEL_GROUP")
	setInt(&cfg.Filter.YearMin, "ENCARWATCH_FILTER_YEAR_MIN")
	setInt(&cfg.Filter.YearMax, "ENCARWATCH_FILTER_YEAR_MAX")
	setFloat64(&cfg.Filter.PriceMax, "ENCARWATCH_FILTER_PRICE_MAX")
	setInt(&cfg.Filter.MileageMax, "ENCARWATCH_FILTER_MILEAGE_MAX")

	// ── Browser ──
	setStr(&cfg.Browser.BinaryPath, "ENCARWATCH_BROWSER_BINARY_PATH")
	setBool(&cfg.Browser.Headless, "ENCARWATCH_BROWSER_HEADLESS")
	setDuration(&cfg.Browser.NavTimeout, "ENCARWATCH_BROWSER_NAV_TIMEOUT")
	setStr(&cfg.Browser.UserAgent, "ENCARWATCH_BROWSER_USER_AGENT")

	// ── Acquire ──
	setInt(&cfg.Acquire.PageSize, "ENCARWATCH_ACQUIRE_PAGE_SIZE")
	setInt(&cfg.Acquire.MaxAttempts, "ENCARWATCH_ACQUIRE_MAX_ATTEMPTS")
	setDuration(&cfg.Acquire.SessionTTL, "ENCARWATCH_ACQUIRE_SESSION_TTL")
	setDuration(&cfg.Acquire.RequestTimeout, "ENCARWATCH_ACQUIRE_REQUEST_TIMEOUT")
	setDuration(&cfg.Acquire.InterPageDelay, "ENCARWATCH_ACQUIRE_INTER_PAGE_DELAY")

	// ── Monitor ──
	setDuration(&cfg.Monitor.RegularInterval, "ENCARWATCH_MONITOR_REGULAR_INTERVAL")
	setDuration(&cfg.Monitor.QuickInterval, "ENCARWATCH_MONITOR_QUICK_INTERVAL")
	setDuration(&cfg.Monitor.CleanupInterval, "ENCARWATCH_MONITOR_CLEANUP_INTERVAL")
	setInt(&cfg.Monitor.RegularPages, "ENCARWATCH_MONITOR_REGULAR_PAGES")
	setInt(&cfg.Monitor.PopulationPages, "ENCARWATCH_MONITOR_POPULATION_PAGES")
	setInt(&cfg.Monitor.NewMaxAgeDays, "ENCARWATCH_MONITOR_NEW_MAX_AGE_DAYS")
	setInt(&cfg.Monitor.NewMaxViews, "ENCARWATCH_MONITOR_NEW_MAX_VIEWS")
	setInt(&cfg.Monitor.ImmediateAlertViews, "ENCARWATCH_MONITOR_IMMEDIATE_ALERT_VIEWS")
	setDuration(&cfg.Monitor.NewWindow, "ENCARWATCH_MONITOR_NEW_WINDOW")
	setInt(&cfg.Monitor.EnrichSampleSize, "ENCARWATCH_MONITOR_ENRICH_SAMPLE_SIZE")
	setInt(&cfg.Monitor.RetentionDays, "ENCARWATCH_MONITOR_RETENTION_DAYS")
	setInt(&cfg.Monitor.CleanupMinViews, "ENCARWATCH_MONITOR_CLEANUP_MIN_VIEWS")
	setInt(&cfg.Monitor.DailySummaryHour, "ENCARWATCH_MONITOR_DAILY_SUMMARY_HOUR")

	// ── Closure ──
	setDuration(&cfg.Closure.Interval, "ENCARWATCH_CLOSURE_INTERVAL")
	setInt(&cfg.Closure.MinAgeDays, "ENCARWATCH_CLOSURE_MIN_AGE_DAYS")
	setInt(&cfg.Closure.BatchSize, "ENCARWATCH_CLOSURE_BATCH_SIZE")
	setDuration(&cfg.Closure.InterItemWait, "ENCARWATCH_CLOSURE_INTER_ITEM_WAIT")

	// ── Database ──
	setStr(&cfg.Database.DSN, "ENCARWATCH_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "ENCARWATCH_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "ENCARWATCH_DATABASE_HOST")
	setInt(&cfg.Database.Port, "ENCARWATCH_DATABASE_PORT")
	setStr(&cfg.Database.Database, "ENCARWATCH_DATABASE_NAME")
	setStr(&cfg.Database.User, "ENCARWATCH_DATABASE_USER")
	setStr(&cfg.Database.Password, "ENCARWATCH_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "ENCARWATCH_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "ENCARWATCH_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "ENCARWATCH_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "ENCARWATCH_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ENCARWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ENCARWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ENCARWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ENCARWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ENCARWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ENCARWATCH_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ENCARWATCH_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ENCARWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ENCARWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "ENCARWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ENCARWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ENCARWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ENCARWATCH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ENCARWATCH_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ENCARWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ENCARWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setInt(&cfg.Notify.RateLimit, "ENCARWATCH_NOTIFY_RATE_LIMIT")
	setDuration(&cfg.Notify.RateWindow, "ENCARWATCH_NOTIFY_RATE_WINDOW")

	// ── Top-level ──
	setStr(&cfg.Mode, "ENCARWATCH_MODE")
	setStr(&cfg.LogLevel, "ENCARWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
