// Package storage declares the persistence surface shared by the postgres
// and memory backends.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
)

type DomainStore interface {
	CreateDomain(ctx context.Context, d *core.Domain) error
	GetDomain(ctx context.Context, id uuid.UUID) (*core.Domain, error)
	GetDomainByHostname(ctx context.Context, hostname string) (*core.Domain, error)
	UpdateDomain(ctx context.Context, d *core.Domain) error
	ListDomainsByTenant(ctx context.Context, tenantID uuid.UUID) ([]*core.Domain, error)
	ListDomainsByStatus(ctx context.Context, status core.DomainStatus) ([]*core.Domain, error)
	// ListDomainsWithSSLExpiringBefore returns active-certificate domains whose
	// ssl_expires_at is before the cutoff, soonest first. A nil tenantID means all tenants.
	ListDomainsWithSSLExpiringBefore(ctx context.Context, tenantID *uuid.UUID, cutoff time.Time) ([]*core.Domain, error)
	ListDomainsWithZone(ctx context.Context) ([]*core.Domain, error)
}

type DNSRecordStore interface {
	GetDNSRecordByKey(ctx context.Context, domainID uuid.UUID, recordType, name string) (*core.DNSRecord, error)
	// SaveDNSRecord inserts or updates by (domain_id, record_type, name).
	SaveDNSRecord(ctx context.Context, r *core.DNSRecord) error
	ListDNSRecords(ctx context.Context, domainID uuid.UUID) ([]*core.DNSRecord, error)
}

type HealthCheckStore interface {
	InsertHealthCheck(ctx context.Context, r *core.HealthCheckResult) error
	// ListHealthChecks returns the newest results first.
	ListHealthChecks(ctx context.Context, domainID uuid.UUID, limit int) ([]*core.HealthCheckResult, error)
	ListHealthChecksInPeriod(ctx context.Context, domainID uuid.UUID, from, to time.Time) ([]*core.HealthCheckResult, error)
	// ListHealthChecksOfType returns up to limit results of one check type
	// performed at or after since, newest first.
	ListHealthChecksOfType(ctx context.Context, domainID uuid.UUID, checkType core.CheckType, since time.Time, limit int) ([]*core.HealthCheckResult, error)
}

type AlertStore interface {
	InsertAlert(ctx context.Context, a *core.Alert) error
	GetAlert(ctx context.Context, id uuid.UUID) (*core.Alert, error)
	UpdateAlert(ctx context.Context, a *core.Alert) error
	FindOpenAlert(ctx context.Context, domainID uuid.UUID, condition core.AlertCondition) (*core.Alert, error)
	// ListUnresolvedAlerts returns open alerts newest first. uuid.Nil means all tenants.
	ListUnresolvedAlerts(ctx context.Context, tenantID uuid.UUID) ([]*core.Alert, error)
}

type AnalyticsStore interface {
	// UpsertAnalytics overwrites any row for the same (domain_id, date).
	UpsertAnalytics(ctx context.Context, a *core.DomainAnalytics) error
	ListAnalytics(ctx context.Context, domainID uuid.UUID, from, to time.Time) ([]*core.DomainAnalytics, error)
}

type Store interface {
	DomainStore
	DNSRecordStore
	HealthCheckStore
	AlertStore
	AnalyticsStore
	Ping(ctx context.Context) error
}
