package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/checks"
	"github.com/leozw/domain-guardian/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const MetaFailedReason = "failed_reason"

type HealthSweepSummary struct {
	Total        int           `json:"total"`
	Healthy      int           `json:"healthy"`
	Degraded     int           `json:"degraded"`
	Unhealthy    int           `json:"unhealthy"`
	Errors       int           `json:"errors"`
	AlertsRaised int           `json:"alerts_raised"`
	MarkedFailed int           `json:"marked_failed"`
	Duration     time.Duration `json:"duration"`
}

type probeOutcome struct {
	result       *core.HealthCheckResult
	alerts       int
	markedFailed bool
	err          error
}

// RunHealthSweep probes every active domain through a bounded pool. A failing
// or panicking probe is counted and logged; only a failed domain listing
// fails the sweep. Cancelling ctx stops new probes from starting.
func (s *Service) RunHealthSweep(ctx context.Context) (*HealthSweepSummary, error) {
	start := s.now()
	logger := s.logger.With(zap.String("sweep", SweepHealth))

	domains, err := s.store.ListDomainsByStatus(ctx, core.DomainStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active domains: %w", err)
	}
	s.metrics.SetDomainsByStatus(core.DomainStatusActive, len(domains))

	outcomes := make([]probeOutcome, len(domains))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, d := range domains {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = s.probeIsolated(ctx, d, core.CheckTypeScheduled, logger)
			return nil
		})
	}
	_ = g.Wait()

	summary := &HealthSweepSummary{Total: len(domains)}
	for _, o := range outcomes {
		if o.err != nil {
			summary.Errors++
		}
		if o.result != nil {
			switch o.result.Status {
			case core.HealthStatusHealthy:
				summary.Healthy++
			case core.HealthStatusDegraded:
				summary.Degraded++
			case core.HealthStatusUnhealthy:
				summary.Unhealthy++
			}
		}
		summary.AlertsRaised += o.alerts
		if o.markedFailed {
			summary.MarkedFailed++
		}
	}
	summary.Duration = s.now().Sub(start)

	s.metrics.RecordSweep(SweepHealth, summary.Duration, map[string]int{
		"healthy":   summary.Healthy,
		"degraded":  summary.Degraded,
		"unhealthy": summary.Unhealthy,
		"error":     summary.Errors,
	})
	logger.Info("Health sweep completed",
		zap.Int("total", summary.Total),
		zap.Int("healthy", summary.Healthy),
		zap.Int("degraded", summary.Degraded),
		zap.Int("unhealthy", summary.Unhealthy),
		zap.Int("errors", summary.Errors),
		zap.Int("alerts_raised", summary.AlertsRaised),
		zap.Int("marked_failed", summary.MarkedFailed),
		zap.Duration("duration", summary.Duration),
	)
	return summary, ctx.Err()
}

// probeIsolated converts a panic in one domain's probe into an error outcome.
func (s *Service) probeIsolated(ctx context.Context, d *core.Domain, checkType core.CheckType, logger *zap.Logger) (out probeOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out.err = fmt.Errorf("panic probing %s: %v", d.Hostname, r)
			logger.Error("Recovered from panic during probe",
				zap.String("domain_id", d.ID.String()),
				zap.String("hostname", d.Hostname),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	return s.probe(ctx, d, checkType, logger)
}

func (s *Service) probe(ctx context.Context, d *core.Domain, checkType core.CheckType, logger *zap.Logger) probeOutcome {
	logger = logger.With(zap.String("domain_id", d.ID.String()), zap.String("hostname", d.Hostname))
	var out probeOutcome

	result, err := s.prober.Probe(ctx, d, checkType)
	out.result = result
	if err != nil {
		out.err = err
		logger.Error("Failed to persist health check", zap.Error(err))
	}
	if result == nil {
		return out
	}
	s.metrics.RecordProbe(d, result)

	if result.Status != core.HealthStatusHealthy {
		if _, err := s.raiseForResult(ctx, d, result); err != nil {
			out.err = errors.Join(out.err, err)
			logger.Error("Failed to raise alert", zap.Error(err))
		} else {
			out.alerts++
		}
	}

	if checkType == core.CheckTypeScheduled && result.Status == core.HealthStatusUnhealthy && err == nil {
		failed, raised, ferr := s.applyFailurePolicy(ctx, d)
		if ferr != nil {
			out.err = errors.Join(out.err, ferr)
			logger.Error("Failed to apply consecutive failure policy", zap.Error(ferr))
		}
		out.markedFailed = failed
		if raised {
			out.alerts++
		}
	}

	s.refreshCache(ctx, d, logger)
	return out
}

// raiseForResult emits one alert per non-healthy result, carrying the most
// severe breach and every breach message.
func (s *Service) raiseForResult(ctx context.Context, d *core.Domain, result *core.HealthCheckResult) (*core.Alert, error) {
	breaches := checks.Breaches(result, s.prober.Thresholds())
	if len(breaches) == 0 {
		breaches = []checks.Breach{{
			Condition: core.ConditionAvailability,
			Severity:  core.SeverityHigh,
			Message:   "domain reported " + string(result.Status),
		}}
	}

	msgs := make([]string, 0, len(breaches))
	for _, b := range breaches {
		msgs = append(msgs, b.Message)
	}
	top := breaches[0]
	return s.alerts.Raise(ctx, core.Alert{
		DomainID:       d.ID,
		Severity:       top.Severity,
		Condition:      top.Condition,
		MetricValue:    top.Metric,
		ThresholdValue: top.Threshold,
		Message:        fmt.Sprintf("%s is %s: %s", d.Hostname, result.Status, strings.Join(msgs, "; ")),
	})
}

// applyFailurePolicy moves a domain to failed once its last FailureThreshold
// scheduled checks since it last became active were all unhealthy.
func (s *Service) applyFailurePolicy(ctx context.Context, d *core.Domain) (markedFailed, alerted bool, err error) {
	n := s.cfg.FailureThreshold
	var since time.Time
	if d.VerifiedAt != nil {
		since = *d.VerifiedAt
	}
	recent, err := s.store.ListHealthChecksOfType(ctx, d.ID, core.CheckTypeScheduled, since, n)
	if err != nil {
		return false, false, fmt.Errorf("failed to load recent checks: %w", err)
	}
	if len(recent) < n {
		return false, false, nil
	}
	for _, r := range recent {
		if r.Status != core.HealthStatusUnhealthy {
			return false, false, nil
		}
	}

	_, err = s.alerts.Raise(ctx, core.Alert{
		DomainID:       d.ID,
		Severity:       core.SeverityCritical,
		Condition:      core.ConditionConsecutiveFailures,
		MetricValue:    float64(n),
		ThresholdValue: float64(n),
		Message:        fmt.Sprintf("%s failed %d consecutive health checks", d.Hostname, n),
	})
	if err != nil {
		return false, false, err
	}

	current, err := s.store.GetDomain(ctx, d.ID)
	if err != nil {
		return false, true, fmt.Errorf("failed to reload domain: %w", err)
	}
	if current.Status != core.DomainStatusActive {
		return false, true, nil
	}
	current.Status = core.DomainStatusFailed
	current.SetMeta(MetaFailedReason, fmt.Sprintf("%d consecutive unhealthy checks", n))
	current.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateDomain(ctx, current); err != nil {
		return false, true, fmt.Errorf("failed to mark domain failed: %w", err)
	}
	s.logger.Warn("Domain marked failed after consecutive failures",
		zap.String("domain_id", d.ID.String()),
		zap.String("hostname", d.Hostname),
		zap.Int("threshold", n),
	)
	return true, true, nil
}

// CheckDomain runs an on-demand probe. Breach alerts are raised but manual
// checks never count toward the consecutive failure policy.
func (s *Service) CheckDomain(ctx context.Context, domainID uuid.UUID) (*core.HealthCheckResult, error) {
	d, err := s.store.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	out := s.probeIsolated(ctx, d, core.CheckTypeManual, s.logger.With(zap.String("check", "manual")))
	if out.result == nil {
		return nil, out.err
	}
	return out.result, out.err
}

// GetDomainHealth serves from the cache when possible and repopulates it
// from the store otherwise.
func (s *Service) GetDomainHealth(ctx context.Context, domainID uuid.UUID) (*core.DomainHealth, error) {
	if s.cache != nil {
		if h, err := s.cache.GetCachedDomainHealth(ctx, domainID); err == nil {
			return h, nil
		}
	}

	d, err := s.store.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	h, err := s.buildHealth(ctx, d)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.CacheDomainHealth(ctx, h); err != nil {
			s.logger.Warn("Failed to cache domain health", zap.String("domain_id", d.ID.String()), zap.Error(err))
		}
	}
	return h, nil
}

// InvalidateHealth drops the cached view after the domain row changed outside
// a probe. Cache failures are logged only.
func (s *Service) InvalidateHealth(ctx context.Context, domainID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDomainHealth(ctx, domainID); err != nil {
		s.logger.Warn("Failed to invalidate domain health", zap.String("domain_id", domainID.String()), zap.Error(err))
	}
}

func (s *Service) buildHealth(ctx context.Context, d *core.Domain) (*core.DomainHealth, error) {
	recent, err := s.store.ListHealthChecks(ctx, d.ID, s.cfg.RecentChecks)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent checks: %w", err)
	}
	h := &core.DomainHealth{
		DomainID:     d.ID,
		Hostname:     d.Hostname,
		Status:       d.Status,
		SSLStatus:    d.SSLStatus,
		SSLExpiresAt: d.SSLExpiresAt,
		RecentChecks: recent,
	}
	if len(recent) > 0 {
		h.Latest = recent[0]
	}
	return h, nil
}

func (s *Service) refreshCache(ctx context.Context, d *core.Domain, logger *zap.Logger) {
	if s.cache == nil {
		return
	}
	current, err := s.store.GetDomain(ctx, d.ID)
	if err != nil {
		logger.Warn("Failed to reload domain for cache", zap.Error(err))
		return
	}
	h, err := s.buildHealth(ctx, current)
	if err != nil {
		logger.Warn("Failed to build domain health", zap.Error(err))
		return
	}
	if err := s.cache.CacheDomainHealth(ctx, h); err != nil {
		logger.Warn("Failed to cache domain health", zap.Error(err))
	}
}
