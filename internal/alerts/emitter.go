// Package alerts persists threshold breaches as Alert rows and resolves them.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/metrics"
	"github.com/leozw/domain-guardian/internal/storage"
	"go.uber.org/zap"
)

type Emitter struct {
	store       storage.AlertStore
	deduplicate bool
	metrics     *metrics.Collector
	logger      *zap.Logger
	now         func() time.Time
}

func NewEmitter(store storage.AlertStore, deduplicate bool, collector *metrics.Collector, logger *zap.Logger) *Emitter {
	return &Emitter{
		store:       store,
		deduplicate: deduplicate,
		metrics:     collector,
		logger:      logger,
		now:         time.Now,
	}
}

// Raise inserts a new alert built from the breach fields of a. With
// deduplication on, an existing open alert for the same domain and
// condition is returned instead and nothing is written.
func (e *Emitter) Raise(ctx context.Context, a core.Alert) (*core.Alert, error) {
	if a.DomainID == uuid.Nil {
		return nil, fmt.Errorf("alert without domain: %w", core.ErrInvalidInput)
	}

	if e.deduplicate {
		open, err := e.store.FindOpenAlert(ctx, a.DomainID, a.Condition)
		switch {
		case err == nil:
			e.logger.Debug("Open alert already exists",
				zap.String("alert_id", open.ID.String()),
				zap.String("domain_id", a.DomainID.String()),
				zap.String("condition", string(a.Condition)),
			)
			return open, nil
		case !errors.Is(err, core.ErrNotFound):
			return nil, fmt.Errorf("failed to look up open alert: %w", err)
		}
	}

	a.ID = uuid.New()
	a.CreatedAt = e.now().UTC()
	a.Resolved = false
	a.ResolvedAt = nil

	if err := e.store.InsertAlert(ctx, &a); err != nil {
		return nil, fmt.Errorf("failed to insert alert: %w", err)
	}

	e.metrics.RecordAlert(&a)
	e.logger.Info("Raised alert",
		zap.String("alert_id", a.ID.String()),
		zap.String("domain_id", a.DomainID.String()),
		zap.String("severity", string(a.Severity)),
		zap.String("condition", string(a.Condition)),
		zap.Float64("metric_value", a.MetricValue),
		zap.Float64("threshold_value", a.ThresholdValue),
	)
	return &a, nil
}

// Resolve marks an alert resolved. Resolving an already resolved alert
// returns it unchanged.
func (e *Emitter) Resolve(ctx context.Context, alertID uuid.UUID) (*core.Alert, error) {
	a, err := e.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.Resolved {
		return a, nil
	}

	now := e.now().UTC()
	a.Resolved = true
	a.ResolvedAt = &now
	if err := e.store.UpdateAlert(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}

	e.logger.Info("Resolved alert",
		zap.String("alert_id", a.ID.String()),
		zap.String("domain_id", a.DomainID.String()),
		zap.Duration("open_for", now.Sub(a.CreatedAt)),
	)
	return a, nil
}

// ListUnresolved returns open alerts for a tenant, or for every tenant when
// tenantID is uuid.Nil, and refreshes the open-alert gauge.
func (e *Emitter) ListUnresolved(ctx context.Context, tenantID uuid.UUID) ([]*core.Alert, error) {
	open, err := e.store.ListUnresolvedAlerts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	label := "all"
	if tenantID != uuid.Nil {
		label = tenantID.String()
	}
	e.metrics.SetOpenAlerts(label, len(open))
	return open, nil
}
