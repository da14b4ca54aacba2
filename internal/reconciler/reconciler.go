// Package reconciler brings a domain's provider DNS records in line with the
// desired set, one record at a time.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/metrics"
	"github.com/leozw/domain-guardian/internal/provider"
	"github.com/leozw/domain-guardian/internal/storage"
	"go.uber.org/zap"
)

// DefaultTTL is the provider's "automatic" TTL.
const DefaultTTL = 1

type RecordResult struct {
	Record      *core.DNSRecord `json:"record"`
	Success     bool            `json:"success"`
	ProviderRef string          `json:"provider_record_ref,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type Reconciler struct {
	domains  storage.DomainStore
	records  storage.DNSRecordStore
	provider provider.Client
	metrics  *metrics.Collector
	logger   *zap.Logger
	now      func() time.Time
}

func New(domains storage.DomainStore, records storage.DNSRecordStore, client provider.Client, collector *metrics.Collector, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		domains:  domains,
		records:  records,
		provider: client,
		metrics:  collector,
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile upserts every desired record against the domain's provider zone.
// A provider failure on one record is reported in its result and does not
// stop the rest. The returned error is reserved for lookups and store writes.
func (r *Reconciler) Reconcile(ctx context.Context, domainID uuid.UUID, desired []core.DNSRecord) ([]RecordResult, error) {
	d, err := r.domains.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if d.ProviderZoneRef == nil || *d.ProviderZoneRef == "" {
		return nil, fmt.Errorf("reconcile %s: %w", d.Hostname, core.ErrNotProvisioned)
	}
	zone := *d.ProviderZoneRef
	logger := r.logger.With(zap.String("domain_id", d.ID.String()), zap.String("zone", zone))

	results := make([]RecordResult, 0, len(desired))
	succeeded, failed := 0, 0
	for i := range desired {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := r.reconcileOne(ctx, d, zone, desired[i])
		if err != nil {
			return results, err
		}
		if res.Success {
			succeeded++
		} else {
			failed++
			logger.Warn("DNS record reconciliation failed",
				zap.String("type", res.Record.RecordType),
				zap.String("name", res.Record.Name),
				zap.String("error", res.Error),
			)
		}
		results = append(results, res)
	}

	r.metrics.RecordReconcile(d.TenantID.String(), succeeded, failed)
	logger.Info("Reconciled DNS records",
		zap.Int("total", len(desired)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
	)
	return results, nil
}

func (r *Reconciler) reconcileOne(ctx context.Context, d *core.Domain, zone string, want core.DNSRecord) (RecordResult, error) {
	rec := normalize(d.ID, want)
	if !core.ValidRecordType(rec.RecordType) || rec.Name == "" || rec.Value == "" {
		return RecordResult{
			Record: &rec,
			Error:  fmt.Sprintf("invalid record %s %q", rec.RecordType, rec.Name),
		}, nil
	}

	existing, err := r.records.GetDNSRecordByKey(ctx, d.ID, rec.RecordType, rec.Name)
	switch {
	case err == nil:
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.ProviderRecordRef = existing.ProviderRecordRef
	case errors.Is(err, core.ErrNotFound):
		rec.CreatedAt = r.now().UTC()
	default:
		return RecordResult{}, fmt.Errorf("failed to load dns record: %w", err)
	}

	ref, upsertErr := r.upsert(ctx, zone, &rec)
	rec.UpdatedAt = r.now().UTC()
	result := RecordResult{Record: &rec}
	if upsertErr != nil {
		msg := provider.Message(upsertErr)
		rec.Status = core.DNSRecordStatusError
		rec.LastError = &msg
		result.Error = msg
	} else {
		rec.ProviderRecordRef = &ref
		rec.Status = core.DNSRecordStatusActive
		rec.LastError = nil
		result.Success = true
		result.ProviderRef = ref
	}

	if err := r.records.SaveDNSRecord(ctx, &rec); err != nil {
		return RecordResult{}, fmt.Errorf("failed to save dns record: %w", err)
	}
	return result, nil
}

// upsert updates by the stored reference when there is one. A reference the
// provider no longer knows falls back to a create.
func (r *Reconciler) upsert(ctx context.Context, zone string, rec *core.DNSRecord) (string, error) {
	pr := provider.Record{
		Type:     rec.RecordType,
		Name:     rec.Name,
		Value:    rec.Value,
		TTL:      rec.TTL,
		Priority: rec.Priority,
		Proxied:  rec.Proxied,
	}
	if rec.ProviderRecordRef != nil {
		pr.Ref = *rec.ProviderRecordRef
	}

	ref, err := r.provider.UpsertDNSRecord(ctx, zone, pr)
	if err != nil && pr.Ref != "" && errors.Is(err, provider.ErrNotFound) {
		pr.Ref = ""
		return r.provider.UpsertDNSRecord(ctx, zone, pr)
	}
	return ref, err
}

func normalize(domainID uuid.UUID, want core.DNSRecord) core.DNSRecord {
	rec := core.DNSRecord{
		DomainID:   domainID,
		RecordType: strings.ToUpper(strings.TrimSpace(want.RecordType)),
		Name:       strings.TrimSuffix(strings.ToLower(strings.TrimSpace(want.Name)), "."),
		Value:      strings.TrimSpace(want.Value),
		TTL:        want.TTL,
		Priority:   want.Priority,
		Proxied:    want.Proxied,
	}
	if rec.TTL <= 0 {
		rec.TTL = DefaultTTL
	}
	return rec
}

func (r *Reconciler) ListRecords(ctx context.Context, domainID uuid.UUID) ([]*core.DNSRecord, error) {
	return r.records.ListDNSRecords(ctx, domainID)
}
