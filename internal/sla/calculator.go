// Package sla derives uptime reports from the health-check log.
package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/metrics"
	"github.com/leozw/domain-guardian/internal/storage"
	"go.uber.org/zap"
)

const DefaultTargetUptime = 99.9

var ErrNoChecks = fmt.Errorf("no checks in period: %w", core.ErrNotFound)

type Calculator struct {
	domains storage.DomainStore
	checks  storage.HealthCheckStore
	metrics *metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
}

func NewCalculator(domains storage.DomainStore, checks storage.HealthCheckStore, collector *metrics.Collector, logger *zap.Logger) *Calculator {
	return &Calculator{
		domains: domains,
		checks:  checks,
		metrics: collector,
		logger:  logger,
		now:     time.Now,
	}
}

// CalculateSLA builds a report for the domain over [from, to]. A target of
// zero uses DefaultTargetUptime.
func (c *Calculator) CalculateSLA(ctx context.Context, domainID uuid.UUID, from, to time.Time, target float64) (*core.SLAReport, error) {
	d, err := c.domains.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}

	results, err := c.checks.ListHealthChecksInPeriod(ctx, domainID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get health checks: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoChecks
	}

	end := to
	if now := c.now(); now.Before(end) {
		end = now
	}
	report := Compute(domainID, results, from, to, end, target)
	c.metrics.RecordSLA(d, report)

	c.logger.Debug("Calculated SLA",
		zap.String("domain_id", domainID.String()),
		zap.Float64("uptime_percentage", report.UptimePercentage),
		zap.Int("downtime_minutes", report.DowntimeMinutes),
	)
	return report, nil
}

// CurrentMonthSLA reports from the start of the current month until now.
func (c *Calculator) CurrentMonthSLA(ctx context.Context, domainID uuid.UUID, target float64) (*core.SLAReport, error) {
	now := c.now().UTC()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return c.CalculateSLA(ctx, domainID, startOfMonth, now, target)
}

// Compute counts degraded checks as up. results must be ordered oldest
// first; an outage still open at the last check runs until openUntil.
func Compute(domainID uuid.UUID, results []*core.HealthCheckResult, from, to, openUntil time.Time, target float64) *core.SLAReport {
	if target <= 0 {
		target = DefaultTargetUptime
	}
	report := &core.SLAReport{
		DomainID:     domainID,
		PeriodStart:  from,
		PeriodEnd:    to,
		TotalChecks:  len(results),
		TargetUptime: target,
	}
	if len(results) == 0 {
		return report
	}

	var totalResponse int64
	for _, r := range results {
		switch r.Status {
		case core.HealthStatusHealthy:
			report.HealthyChecks++
		case core.HealthStatusDegraded:
			report.DegradedChecks++
		default:
			report.UnhealthyChecks++
		}
		totalResponse += r.ResponseTimeMs
	}

	up := report.HealthyChecks + report.DegradedChecks
	report.UptimePercentage = float64(up) / float64(report.TotalChecks) * 100
	report.DowntimeMinutes = downtimeMinutes(results, openUntil)
	avg := totalResponse / int64(report.TotalChecks)
	report.AverageResponseTimeMs = &avg
	report.SLOMet = report.UptimePercentage >= target
	return report
}

func downtimeMinutes(results []*core.HealthCheckResult, openUntil time.Time) int {
	var total time.Duration
	var downSince *time.Time

	for _, r := range results {
		down := r.Status == core.HealthStatusUnhealthy
		switch {
		case down && downSince == nil:
			at := r.PerformedAt
			downSince = &at
		case !down && downSince != nil:
			total += r.PerformedAt.Sub(*downSince)
			downSince = nil
		}
	}
	if downSince != nil && openUntil.After(*downSince) {
		total += openUntil.Sub(*downSince)
	}
	return int(total.Minutes())
}
