package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
)

const healthColumns = `id, domain_id, performed_at, check_type, status, response_time_ms,
    ssl_days_remaining, error_message, raw_detail`

func (db *DB) InsertHealthCheck(ctx context.Context, r *core.HealthCheckResult) error {
	if r.RawDetail == nil {
		r.RawDetail = core.JSONB{}
	}
	query := `
        INSERT INTO health_checks (` + healthColumns + `) VALUES (
            :id, :domain_id, :performed_at, :check_type, :status, :response_time_ms,
            :ssl_days_remaining, :error_message, :raw_detail
        )`

	_, err := db.NamedExecContext(ctx, query, r)
	return translate(err, "insert health check")
}

func (db *DB) ListHealthChecks(ctx context.Context, domainID uuid.UUID, limit int) ([]*core.HealthCheckResult, error) {
	if limit <= 0 {
		limit = 100
	}
	results := []*core.HealthCheckResult{}
	query := `
        SELECT ` + healthColumns + ` FROM health_checks
        WHERE domain_id = $1
        ORDER BY performed_at DESC
        LIMIT $2`

	err := db.SelectContext(ctx, &results, query, domainID, limit)
	return results, translate(err, "list health checks")
}

func (db *DB) ListHealthChecksInPeriod(ctx context.Context, domainID uuid.UUID, from, to time.Time) ([]*core.HealthCheckResult, error) {
	results := []*core.HealthCheckResult{}
	query := `
        SELECT ` + healthColumns + ` FROM health_checks
        WHERE domain_id = $1 AND performed_at >= $2 AND performed_at < $3
        ORDER BY performed_at`

	err := db.SelectContext(ctx, &results, query, domainID, from, to)
	return results, translate(err, "list health checks in period")
}

func (db *DB) ListHealthChecksOfType(ctx context.Context, domainID uuid.UUID, checkType core.CheckType, since time.Time, limit int) ([]*core.HealthCheckResult, error) {
	if limit <= 0 {
		limit = 100
	}
	results := []*core.HealthCheckResult{}
	query := `
        SELECT ` + healthColumns + ` FROM health_checks
        WHERE domain_id = $1 AND check_type = $2 AND performed_at >= $3
        ORDER BY performed_at DESC
        LIMIT $4`

	err := db.SelectContext(ctx, &results, query, domainID, checkType, since, limit)
	return results, translate(err, "list health checks by type")
}
