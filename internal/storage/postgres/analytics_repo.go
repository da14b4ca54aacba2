package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
)

func (db *DB) UpsertAnalytics(ctx context.Context, a *core.DomainAnalytics) error {
	query := `
        INSERT INTO domain_analytics (
            domain_id, date, request_count, unique_visitors, bandwidth_bytes,
            cache_hit_rate, error_rate, collected_at
        ) VALUES (
            :domain_id, :date, :request_count, :unique_visitors, :bandwidth_bytes,
            :cache_hit_rate, :error_rate, :collected_at
        )
        ON CONFLICT (domain_id, date) DO UPDATE SET
            request_count = EXCLUDED.request_count,
            unique_visitors = EXCLUDED.unique_visitors,
            bandwidth_bytes = EXCLUDED.bandwidth_bytes,
            cache_hit_rate = EXCLUDED.cache_hit_rate,
            error_rate = EXCLUDED.error_rate,
            collected_at = EXCLUDED.collected_at`

	_, err := db.NamedExecContext(ctx, query, a)
	return translate(err, "upsert analytics")
}

func (db *DB) ListAnalytics(ctx context.Context, domainID uuid.UUID, from, to time.Time) ([]*core.DomainAnalytics, error) {
	rows := []*core.DomainAnalytics{}
	query := `
        SELECT domain_id, date, request_count, unique_visitors, bandwidth_bytes,
               cache_hit_rate, error_rate, collected_at
        FROM domain_analytics
        WHERE domain_id = $1 AND date >= $2 AND date <= $3
        ORDER BY date`

	err := db.SelectContext(ctx, &rows, query, domainID, from, to)
	return rows, translate(err, "list analytics")
}
