package app

import (
	"context"
	"fmt"
	"log/slog"

	"encarwatch/internal/acquire"
	s3blob "encarwatch/internal/blob/s3"
	"encarwatch/internal/browser"
	"encarwatch/internal/cache/redis"
	"encarwatch/internal/closure"
	"encarwatch/internal/config"
	"encarwatch/internal/domain"
	"encarwatch/internal/notify"
	"encarwatch/internal/pipeline"
	"encarwatch/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	Listings domain.ListingStore
	Logs     domain.MonitorLogStore

	// Caches (nil when Redis is not configured)
	RateLimiter  domain.RateLimiter
	SessionCache domain.SessionCache

	// Blob storage (nil unless S3 is enabled)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.PayloadArchiver

	// Browser, acquisition and monitoring
	Classifier *pipeline.Classifier
	Renderer   *browser.Renderer
	Acquirer   *acquire.Client
	Scanner    *closure.Scanner
	Notifier   *notify.Notifier
	Monitor    *pipeline.Monitor
}

// needsBrowser returns true for modes that drive the headless browser.
func needsBrowser(mode string) bool {
	switch mode {
	case "monitor", "populate", "scan", "closures":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Listings = postgres.NewListingStore(pool)
	deps.Logs = postgres.NewMonitorLogStore(pool)

	// --- Redis (optional) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.SessionCache = redis.NewSessionCache(redisClient)
	}

	// --- S3 blob storage (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewPayloadArchive(deps.BlobWriter, deps.BlobReader)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = notify.NewLocalLimiter()
	}
	deps.Notifier = notify.NewNotifier(senders, limiter, cfg.Notify.RateLimit, cfg.Notify.RateWindow.Duration, logger)

	// The classifier only needs the store, so replay and other
	// browser-less callers get it too.
	deps.Classifier = pipeline.NewClassifier(deps.Listings, pipeline.Rules{
		NewMaxAgeDays:       cfg.Monitor.NewMaxAgeDays,
		NewMaxViews:         cfg.Monitor.NewMaxViews,
		ImmediateAlertViews: cfg.Monitor.ImmediateAlertViews,
	}, cfg.Marketplace.DetailURLBase, logger)

	// --- Browser, acquisition and the monitoring pipeline ---
	// Status mode only reads the store, so the whole browser-backed
	// stack stays down there.
	if needsBrowser(cfg.Mode) {
		deps.Renderer = browser.NewRenderer(browser.Options{
			BinaryPath: cfg.Browser.BinaryPath,
			Headless:   cfg.Browser.Headless,
			NavTimeout: cfg.Browser.NavTimeout.Duration,
			UserAgent:  cfg.Browser.UserAgent,
		}, logger)
		closers = append(closers, deps.Renderer.Close)

		deps.Acquirer = acquire.NewClient(acquire.Options{
			APIHost:        cfg.Marketplace.APIHost,
			HomeURL:        cfg.Marketplace.HomeURL,
			PageSize:       cfg.Acquire.PageSize,
			MaxAttempts:    cfg.Acquire.MaxAttempts,
			SessionTTL:     cfg.Acquire.SessionTTL.Duration,
			RequestTimeout: cfg.Acquire.RequestTimeout.Duration,
			InterPageDelay: cfg.Acquire.InterPageDelay.Duration,
		}, deps.Renderer, deps.SessionCache, logger)

		deps.Scanner = closure.NewScanner(closure.Options{
			MinAgeDays:    cfg.Closure.MinAgeDays,
			BatchSize:     cfg.Closure.BatchSize,
			InterItemWait: cfg.Closure.InterItemWait.Duration,
		}, deps.Listings, deps.Renderer, logger)

		spec := acquire.FilterSpec{
			Manufacturer: cfg.Filter.Manufacturer,
			ModelGroup:   cfg.Filter.ModelGroup,
			YearMin:      cfg.Filter.YearMin,
			YearMax:      cfg.Filter.YearMax,
			PriceMax:     cfg.Filter.PriceMax,
			MileageMax:   cfg.Filter.MileageMax,
		}

		deps.Monitor = pipeline.NewMonitor(pipeline.Options{
			RegularInterval:  cfg.Monitor.RegularInterval.Duration,
			QuickInterval:    cfg.Monitor.QuickInterval.Duration,
			ClosureInterval:  cfg.Closure.Interval.Duration,
			CleanupInterval:  cfg.Monitor.CleanupInterval.Duration,
			RegularPages:     cfg.Monitor.RegularPages,
			PopulationPages:  cfg.Monitor.PopulationPages,
			NewWindow:        cfg.Monitor.NewWindow.Duration,
			EnrichSampleSize: cfg.Monitor.EnrichSampleSize,
			RetentionDays:    cfg.Monitor.RetentionDays,
			CleanupMinViews:  cfg.Monitor.CleanupMinViews,
			DailySummaryHour: cfg.Monitor.DailySummaryHour,
			Tick:             cfg.Monitor.Tick.Duration,
		}, spec, deps.Classifier, deps.Acquirer, deps.Renderer, deps.Scanner, deps.Listings, deps.Logs, deps.Notifier, deps.Archiver, logger)
	}

	return deps, cleanup, nil
}
