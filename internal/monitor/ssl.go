package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leozw/domain-guardian/internal/checks"
	"github.com/leozw/domain-guardian/internal/core"
	"go.uber.org/zap"
)

type SSLSweepSummary struct {
	Checked             int           `json:"checked"`
	AlertsRaised        int           `json:"alerts_raised"`
	Expired             int           `json:"expired"`
	RegistrationChecked int           `json:"registration_checked"`
	RegistrationAlerts  int           `json:"registration_alerts"`
	Errors              int           `json:"errors"`
	Duration            time.Duration `json:"duration"`
}

// expirySeverity maps days left to an alert severity and the threshold
// that was crossed.
func expirySeverity(days, window int) (core.Severity, int) {
	switch {
	case days <= 7:
		return core.SeverityCritical, 7
	case days <= 14:
		return core.SeverityHigh, 14
	default:
		return core.SeverityWarning, window
	}
}

// RunSSLExpirySweep raises one alert per domain whose certificate expires
// within the alert window and marks certificates already past expiry as
// expired. With a registration lookup configured it also warns on custom
// domains whose registration is about to lapse.
func (s *Service) RunSSLExpirySweep(ctx context.Context) (*SSLSweepSummary, error) {
	start := s.now()
	logger := s.logger.With(zap.String("sweep", SweepSSLExpiry))
	window := s.cfg.SSLAlertWindowDays
	cutoff := start.Add(time.Duration(window) * 24 * time.Hour)

	domains, err := s.store.ListDomainsWithSSLExpiringBefore(ctx, nil, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring certificates: %w", err)
	}

	summary := &SSLSweepSummary{}
	for _, d := range domains {
		if ctx.Err() != nil {
			break
		}
		summary.Checked++
		var expired bool
		err := s.isolate(logger, d, func() (err error) {
			expired, err = s.checkCertificate(ctx, d, start, window)
			return err
		})
		if err != nil {
			summary.Errors++
			logger.Error("SSL expiry check failed", zap.String("domain_id", d.ID.String()), zap.Error(err))
			continue
		}
		summary.AlertsRaised++
		if expired {
			summary.Expired++
		}
	}

	if s.registration != nil && ctx.Err() == nil {
		s.sweepRegistrations(ctx, summary, logger)
	}

	summary.Duration = s.now().Sub(start)
	s.metrics.RecordSweep(SweepSSLExpiry, summary.Duration, map[string]int{
		"alerted": summary.AlertsRaised,
		"expired": summary.Expired,
		"error":   summary.Errors,
	})
	logger.Info("SSL expiry sweep completed",
		zap.Int("checked", summary.Checked),
		zap.Int("alerts_raised", summary.AlertsRaised),
		zap.Int("expired", summary.Expired),
		zap.Int("registration_checked", summary.RegistrationChecked),
		zap.Int("registration_alerts", summary.RegistrationAlerts),
		zap.Int("errors", summary.Errors),
		zap.Duration("duration", summary.Duration),
	)
	return summary, ctx.Err()
}

// checkCertificate reports whether the certificate was marked expired.
func (s *Service) checkCertificate(ctx context.Context, d *core.Domain, now time.Time, window int) (bool, error) {
	days := core.SSLDaysRemaining(*d.SSLExpiresAt, now)
	s.metrics.RecordSSLDays(d, days)

	severity, threshold := expirySeverity(days, window)
	msg := fmt.Sprintf("SSL certificate for %s expires in %d days", d.Hostname, days)
	if days <= 0 {
		msg = fmt.Sprintf("SSL certificate for %s expired on %s", d.Hostname, d.SSLExpiresAt.UTC().Format(time.DateOnly))
	}

	if _, err := s.alerts.Raise(ctx, core.Alert{
		DomainID:       d.ID,
		Severity:       severity,
		Condition:      core.ConditionSSLExpiry,
		MetricValue:    float64(days),
		ThresholdValue: float64(threshold),
		Message:        msg,
	}); err != nil {
		return false, err
	}

	if days > 0 {
		return false, nil
	}
	d.SetSSL(core.SSLStatusExpired, nil)
	d.UpdatedAt = now.UTC()
	if err := s.store.UpdateDomain(ctx, d); err != nil {
		return false, fmt.Errorf("failed to mark certificate expired: %w", err)
	}
	s.InvalidateHealth(ctx, d.ID)
	return true, nil
}

// isolate runs fn for one domain with a recover boundary.
func (s *Service) isolate(logger *zap.Logger, d *core.Domain, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic checking %s: %v", d.Hostname, r)
			logger.Error("Recovered from panic", zap.String("domain_id", d.ID.String()), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	return fn()
}

func (s *Service) sweepRegistrations(ctx context.Context, summary *SSLSweepSummary, logger *zap.Logger) {
	domains, err := s.store.ListDomainsByStatus(ctx, core.DomainStatusActive)
	if err != nil {
		summary.Errors++
		logger.Error("Failed to list domains for registration check", zap.Error(err))
		return
	}

	seen := make(map[string]bool)
	for _, d := range domains {
		if ctx.Err() != nil {
			return
		}
		if d.DomainType != core.DomainTypeCustom {
			continue
		}
		apex, err := checks.Apex(d.Hostname)
		if err != nil || seen[apex] {
			continue
		}
		seen[apex] = true
		summary.RegistrationChecked++

		err = s.isolate(logger, d, func() error {
			alerted, err := s.checkRegistration(ctx, d)
			if alerted {
				summary.RegistrationAlerts++
			}
			return err
		})
		if err != nil {
			if errors.Is(err, checks.ErrExpiryUnknown) {
				logger.Debug("Registration expiry unknown", zap.String("hostname", d.Hostname))
				continue
			}
			summary.Errors++
			logger.Warn("Registration check failed", zap.String("hostname", d.Hostname), zap.Error(err))
		}
	}
}

func (s *Service) checkRegistration(ctx context.Context, d *core.Domain) (bool, error) {
	expiresAt, err := s.registration.ExpiresAt(ctx, d.Hostname)
	if err != nil {
		return false, err
	}
	days := core.SSLDaysRemaining(expiresAt, s.now())
	s.metrics.RecordRegistrationDays(d, days)
	if days > s.cfg.RegistrationWarnDays {
		return false, nil
	}

	severity, threshold := expirySeverity(days, s.cfg.RegistrationWarnDays)
	_, err = s.alerts.Raise(ctx, core.Alert{
		DomainID:       d.ID,
		Severity:       severity,
		Condition:      core.ConditionRegistrationExpiry,
		MetricValue:    float64(days),
		ThresholdValue: float64(threshold),
		Message:        fmt.Sprintf("domain registration for %s expires in %d days", d.Hostname, days),
	})
	return err == nil, err
}
