package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
)

const dnsRecordColumns = `id, domain_id, record_type, name, value, ttl, priority, proxied,
    provider_record_ref, status, last_error, created_at, updated_at`

func (db *DB) GetDNSRecordByKey(ctx context.Context, domainID uuid.UUID, recordType, name string) (*core.DNSRecord, error) {
	var r core.DNSRecord
	query := `
        SELECT ` + dnsRecordColumns + ` FROM dns_records
        WHERE domain_id = $1 AND record_type = $2 AND name = $3`

	if err := db.GetContext(ctx, &r, query, domainID, recordType, name); err != nil {
		return nil, translate(err, "dns record "+recordType+" "+name)
	}
	return &r, nil
}

// SaveDNSRecord upserts on the natural key and writes back the stored id.
func (db *DB) SaveDNSRecord(ctx context.Context, r *core.DNSRecord) error {
	query := `
        INSERT INTO dns_records (` + dnsRecordColumns + `) VALUES (
            :id, :domain_id, :record_type, :name, :value, :ttl, :priority, :proxied,
            :provider_record_ref, :status, :last_error, :created_at, :updated_at
        )
        ON CONFLICT (domain_id, record_type, name) DO UPDATE SET
            value = EXCLUDED.value,
            ttl = EXCLUDED.ttl,
            priority = EXCLUDED.priority,
            proxied = EXCLUDED.proxied,
            provider_record_ref = EXCLUDED.provider_record_ref,
            status = EXCLUDED.status,
            last_error = EXCLUDED.last_error,
            updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`

	rows, err := db.NamedQueryContext(ctx, query, r)
	if err != nil {
		return translate(err, "save dns record")
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&r.ID, &r.CreatedAt); err != nil {
			return translate(err, "save dns record")
		}
	}
	return translate(rows.Err(), "save dns record")
}

func (db *DB) ListDNSRecords(ctx context.Context, domainID uuid.UUID) ([]*core.DNSRecord, error) {
	records := []*core.DNSRecord{}
	query := `SELECT ` + dnsRecordColumns + ` FROM dns_records WHERE domain_id = $1 ORDER BY record_type, name`
	err := db.SelectContext(ctx, &records, query, domainID)
	return records, translate(err, "list dns records")
}
