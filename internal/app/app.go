// Package app wires the shared stack used by the api, worker and scheduler
// binaries.
package app

import (
	"fmt"
	"time"

	"github.com/leozw/domain-guardian/internal/alerts"
	"github.com/leozw/domain-guardian/internal/checks"
	"github.com/leozw/domain-guardian/internal/config"
	"github.com/leozw/domain-guardian/internal/metrics"
	"github.com/leozw/domain-guardian/internal/monitor"
	"github.com/leozw/domain-guardian/internal/provider/cloudflare"
	"github.com/leozw/domain-guardian/internal/queue"
	"github.com/leozw/domain-guardian/internal/reconciler"
	"github.com/leozw/domain-guardian/internal/registry"
	"github.com/leozw/domain-guardian/internal/sla"
	"github.com/leozw/domain-guardian/internal/storage"
	"github.com/leozw/domain-guardian/internal/storage/memory"
	"github.com/leozw/domain-guardian/internal/storage/postgres"
	"github.com/leozw/domain-guardian/internal/storage/redis"
	"go.uber.org/zap"
)

const dnsTimeout = 5 * time.Second

type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      storage.Store
	Cache      *redis.Client
	Queue      *queue.RedisQueue
	Metrics    *metrics.Collector
	Provider   *cloudflare.Client
	Registry   *registry.Service
	Reconciler *reconciler.Reconciler
	Alerts     *alerts.Emitter
	Monitor    *monitor.Service
	SLA        *sla.Calculator

	closers []func() error
}

// New connects to the configured backends. Redis is optional: without a URL
// there is no health cache and no job queue.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewCollector(cfg.Mimir),
	}

	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		a.Store = memory.New()
	default:
		db, err := postgres.Open(cfg.Database.URL, postgres.Options{
			MaxOpenConns: cfg.Database.MaxConnections,
			MaxIdleConns: cfg.Database.MaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(); err != nil {
				_ = a.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			logger.Info("Database migrations applied")
		}
		a.Store = db
	}

	if cfg.Redis.URL != "" {
		a.Cache = redis.NewClient(cfg.Redis.URL, cfg.Redis.HealthTTL)
		a.closers = append(a.closers, a.Cache.Close)
		a.Queue = queue.NewRedisQueue(a.Cache.Client, cfg.Redis.QueueName)
	}

	a.Provider = cloudflare.New(cloudflare.Config{
		BaseURL:           cfg.Provider.BaseURL,
		APIToken:          cfg.Provider.APIToken,
		ZoneID:            cfg.Provider.ZoneID,
		Timeout:           cfg.Provider.Timeout,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Burst:             cfg.Provider.Burst,
	}, cloudflare.WithObserver(a.Metrics))

	proberOpts := []checks.ProberOption{}
	if cfg.Monitor.DNSServer != "" {
		proberOpts = append(proberOpts, checks.WithResolver(checks.NewDNSResolver(cfg.Monitor.DNSServer, dnsTimeout)))
	}
	prober := checks.NewProber(a.Store, checks.ProberConfig{
		ScheduledTimeout: cfg.Monitor.ScheduledTimeout,
		ManualTimeout:    cfg.Monitor.ManualTimeout,
		Thresholds: checks.Thresholds{
			SSLCriticalDays:  cfg.Monitor.SSLCriticalDays,
			SSLWarningDays:   cfg.Monitor.SSLWarningDays,
			LatencyDegraded:  cfg.Monitor.LatencyDegraded,
			LatencyUnhealthy: cfg.Monitor.LatencyUnhealthy,
		},
	}, logger, proberOpts...)

	a.Registry = registry.NewService(a.Store, a.Provider, cfg.Provider.ZoneID, logger.With(zap.String("component", "registry")))
	a.Reconciler = reconciler.New(a.Store, a.Store, a.Provider, a.Metrics, logger.With(zap.String("component", "reconciler")))
	a.Alerts = alerts.NewEmitter(a.Store, cfg.Alerts.Deduplicate, a.Metrics, logger.With(zap.String("component", "alerts")))
	a.SLA = sla.NewCalculator(a.Store, a.Store, a.Metrics, logger.With(zap.String("component", "sla")))

	monitorOpts := []monitor.Option{}
	if a.Cache != nil {
		monitorOpts = append(monitorOpts, monitor.WithHealthCache(a.Cache))
	}
	if cfg.Monitor.RegistrationCheck {
		monitorOpts = append(monitorOpts, monitor.WithRegistrationLookup(checks.NewRegistrationChecker(cfg.Monitor.ScheduledTimeout)))
	}
	a.Monitor = monitor.NewService(a.Store, prober, a.Alerts, a.Provider, a.Metrics, monitor.Config{
		Concurrency:          cfg.Monitor.Concurrency,
		FailureThreshold:     cfg.Monitor.FailureThreshold,
		SSLAlertWindowDays:   cfg.Monitor.SSLAlertWindowDays,
		RegistrationWarnDays: cfg.Monitor.RegistrationWarnDays,
		RecentChecks:         cfg.Monitor.RecentChecks,
	}, logger.With(zap.String("component", "monitor")), monitorOpts...)

	return a, nil
}

// Close releases backends in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
