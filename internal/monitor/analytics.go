package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/provider"
	"go.uber.org/zap"
)

type AnalyticsSummary struct {
	Date      time.Time     `json:"date"`
	Domains   int           `json:"domains"`
	Collected int           `json:"collected"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// RunAnalyticsCollection stores yesterday's provider traffic for every
// domain with a zone. Zones shared by several domains are fetched once.
func (s *Service) RunAnalyticsCollection(ctx context.Context) (*AnalyticsSummary, error) {
	start := s.now()
	logger := s.logger.With(zap.String("sweep", SweepAnalytics))

	today := start.UTC().Truncate(24 * time.Hour)
	date := today.AddDate(0, 0, -1)

	domains, err := s.store.ListDomainsWithZone(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains with zone: %w", err)
	}

	summary := &AnalyticsSummary{Date: date, Domains: len(domains)}
	byZone := make(map[string]*provider.Analytics)
	for _, d := range domains {
		if err := ctx.Err(); err != nil {
			break
		}
		if err := s.isolate(logger, d, func() error {
			return s.collectOne(ctx, d, date, byZone)
		}); err != nil {
			summary.Errors++
			logger.Warn("Failed to collect analytics",
				zap.String("domain_id", d.ID.String()),
				zap.String("hostname", d.Hostname),
				zap.Error(err),
			)
			continue
		}
		summary.Collected++
	}

	summary.Duration = s.now().Sub(start)
	s.metrics.RecordSweep(SweepAnalytics, summary.Duration, map[string]int{
		"collected": summary.Collected,
		"error":     summary.Errors,
	})
	logger.Info("Analytics collection completed",
		zap.String("date", date.Format(time.DateOnly)),
		zap.Int("domains", summary.Domains),
		zap.Int("collected", summary.Collected),
		zap.Int("errors", summary.Errors),
		zap.Duration("duration", summary.Duration),
	)
	return summary, ctx.Err()
}

func (s *Service) collectOne(ctx context.Context, d *core.Domain, date time.Time, byZone map[string]*provider.Analytics) error {
	zone := *d.ProviderZoneRef
	a, ok := byZone[zone]
	if !ok {
		var err error
		a, err = s.provider.FetchAnalytics(ctx, zone, date)
		if err != nil {
			return err
		}
		byZone[zone] = a
	}

	return s.store.UpsertAnalytics(ctx, &core.DomainAnalytics{
		DomainID:       d.ID,
		Date:           date,
		RequestCount:   a.RequestCount,
		UniqueVisitors: a.UniqueVisitors,
		BandwidthBytes: a.BandwidthBytes,
		CacheHitRate:   a.CacheHitRate,
		ErrorRate:      a.ErrorRate,
		CollectedAt:    s.now().UTC(),
	})
}
