package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
)

const domainColumns = `id, tenant_id, hostname, domain_type, status,
    provider_hostname_ref, provider_zone_ref, ssl_status, ssl_expires_at,
    metadata, created_at, updated_at, verified_at`

func (db *DB) CreateDomain(ctx context.Context, d *core.Domain) error {
	if d.Metadata == nil {
		d.Metadata = core.JSONB{}
	}
	query := `
        INSERT INTO domains (` + domainColumns + `) VALUES (
            :id, :tenant_id, :hostname, :domain_type, :status,
            :provider_hostname_ref, :provider_zone_ref, :ssl_status, :ssl_expires_at,
            :metadata, :created_at, :updated_at, :verified_at
        )`

	_, err := db.NamedExecContext(ctx, query, d)
	return translate(err, "create domain "+d.Hostname)
}

func (db *DB) GetDomain(ctx context.Context, id uuid.UUID) (*core.Domain, error) {
	var d core.Domain
	query := `SELECT ` + domainColumns + ` FROM domains WHERE id = $1`
	if err := db.GetContext(ctx, &d, query, id); err != nil {
		return nil, translate(err, "domain "+id.String())
	}
	return &d, nil
}

func (db *DB) GetDomainByHostname(ctx context.Context, hostname string) (*core.Domain, error) {
	var d core.Domain
	query := `SELECT ` + domainColumns + ` FROM domains WHERE LOWER(hostname) = LOWER($1)`
	if err := db.GetContext(ctx, &d, query, hostname); err != nil {
		return nil, translate(err, "hostname "+hostname)
	}
	return &d, nil
}

func (db *DB) UpdateDomain(ctx context.Context, d *core.Domain) error {
	query := `
        UPDATE domains SET
            status = :status,
            provider_hostname_ref = :provider_hostname_ref,
            provider_zone_ref = :provider_zone_ref,
            ssl_status = :ssl_status,
            ssl_expires_at = :ssl_expires_at,
            metadata = :metadata,
            updated_at = :updated_at,
            verified_at = :verified_at
        WHERE id = :id`

	res, err := db.NamedExecContext(ctx, query, d)
	if err != nil {
		return translate(err, "update domain "+d.ID.String())
	}
	return expectRow(res, "update domain "+d.ID.String())
}

func (db *DB) ListDomainsByTenant(ctx context.Context, tenantID uuid.UUID) ([]*core.Domain, error) {
	domains := []*core.Domain{}
	query := `SELECT ` + domainColumns + ` FROM domains WHERE tenant_id = $1 ORDER BY hostname`
	err := db.SelectContext(ctx, &domains, query, tenantID)
	return domains, translate(err, "list tenant domains")
}

func (db *DB) ListDomainsByStatus(ctx context.Context, status core.DomainStatus) ([]*core.Domain, error) {
	domains := []*core.Domain{}
	query := `SELECT ` + domainColumns + ` FROM domains WHERE status = $1 ORDER BY hostname`
	err := db.SelectContext(ctx, &domains, query, status)
	return domains, translate(err, "list domains by status")
}

func (db *DB) ListDomainsWithSSLExpiringBefore(ctx context.Context, tenantID *uuid.UUID, cutoff time.Time) ([]*core.Domain, error) {
	domains := []*core.Domain{}
	query := `
        SELECT ` + domainColumns + ` FROM domains
        WHERE ssl_status = 'active'
        AND ssl_expires_at IS NOT NULL
        AND ssl_expires_at < $1
        AND ($2::uuid IS NULL OR tenant_id = $2)
        ORDER BY ssl_expires_at`

	err := db.SelectContext(ctx, &domains, query, cutoff, tenantID)
	return domains, translate(err, "list expiring domains")
}

func (db *DB) ListDomainsWithZone(ctx context.Context) ([]*core.Domain, error) {
	domains := []*core.Domain{}
	query := `
        SELECT ` + domainColumns + ` FROM domains
        WHERE provider_zone_ref IS NOT NULL AND provider_zone_ref <> ''
        ORDER BY hostname`

	err := db.SelectContext(ctx, &domains, query)
	return domains, translate(err, "list zoned domains")
}
