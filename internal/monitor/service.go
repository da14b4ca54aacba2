// Package monitor runs the health, SSL-expiry and analytics sweeps and the
// on-demand domain check.
package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/alerts"
	"github.com/leozw/domain-guardian/internal/checks"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/metrics"
	"github.com/leozw/domain-guardian/internal/provider"
	"github.com/leozw/domain-guardian/internal/storage"
	"go.uber.org/zap"
)

// Sweep names used in logs and metrics.
const (
	SweepHealth    = "health"
	SweepSSLExpiry = "ssl_expiry"
	SweepAnalytics = "analytics"
)

type Prober interface {
	Probe(ctx context.Context, domain *core.Domain, checkType core.CheckType) (*core.HealthCheckResult, error)
	Thresholds() checks.Thresholds
}

type HealthCache interface {
	CacheDomainHealth(ctx context.Context, health *core.DomainHealth) error
	GetCachedDomainHealth(ctx context.Context, domainID uuid.UUID) (*core.DomainHealth, error)
	InvalidateDomainHealth(ctx context.Context, domainID uuid.UUID) error
}

type RegistrationLookup interface {
	ExpiresAt(ctx context.Context, hostname string) (time.Time, error)
}

type Config struct {
	Concurrency          int
	FailureThreshold     int
	SSLAlertWindowDays   int
	RegistrationWarnDays int
	RecentChecks         int
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SSLAlertWindowDays <= 0 {
		c.SSLAlertWindowDays = 30
	}
	if c.RegistrationWarnDays <= 0 {
		c.RegistrationWarnDays = 30
	}
	if c.RecentChecks <= 0 {
		c.RecentChecks = 20
	}
	return c
}

type Service struct {
	store        storage.Store
	prober       Prober
	alerts       *alerts.Emitter
	provider     provider.Client
	cache        HealthCache
	registration RegistrationLookup
	metrics      *metrics.Collector
	cfg          Config
	logger       *zap.Logger
	now          func() time.Time
}

type Option func(*Service)

func WithHealthCache(cache HealthCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithRegistrationLookup enables the WHOIS expiry check in the SSL sweep.
func WithRegistrationLookup(lookup RegistrationLookup) Option {
	return func(s *Service) { s.registration = lookup }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store storage.Store, prober Prober, emitter *alerts.Emitter, client provider.Client, collector *metrics.Collector, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		prober:   prober,
		alerts:   emitter,
		provider: client,
		metrics:  collector,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
