package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
)

const alertColumns = `id, domain_id, severity, condition, metric_value, threshold_value,
    message, created_at, resolved, resolved_at`

func (db *DB) InsertAlert(ctx context.Context, a *core.Alert) error {
	query := `
        INSERT INTO alerts (` + alertColumns + `) VALUES (
            :id, :domain_id, :severity, :condition, :metric_value, :threshold_value,
            :message, :created_at, :resolved, :resolved_at
        )`

	_, err := db.NamedExecContext(ctx, query, a)
	return translate(err, "insert alert")
}

func (db *DB) GetAlert(ctx context.Context, id uuid.UUID) (*core.Alert, error) {
	var a core.Alert
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	if err := db.GetContext(ctx, &a, query, id); err != nil {
		return nil, translate(err, "alert "+id.String())
	}
	return &a, nil
}

func (db *DB) UpdateAlert(ctx context.Context, a *core.Alert) error {
	query := `UPDATE alerts SET resolved = :resolved, resolved_at = :resolved_at WHERE id = :id`
	res, err := db.NamedExecContext(ctx, query, a)
	if err != nil {
		return translate(err, "update alert")
	}
	return expectRow(res, "update alert "+a.ID.String())
}

func (db *DB) FindOpenAlert(ctx context.Context, domainID uuid.UUID, condition core.AlertCondition) (*core.Alert, error) {
	var a core.Alert
	query := `
        SELECT ` + alertColumns + ` FROM alerts
        WHERE domain_id = $1 AND condition = $2 AND NOT resolved
        ORDER BY created_at DESC
        LIMIT 1`

	if err := db.GetContext(ctx, &a, query, domainID, condition); err != nil {
		return nil, translate(err, "open "+string(condition)+" alert")
	}
	return &a, nil
}

func (db *DB) ListUnresolvedAlerts(ctx context.Context, tenantID uuid.UUID) ([]*core.Alert, error) {
	alerts := []*core.Alert{}
	query := `
        SELECT a.id, a.domain_id, a.severity, a.condition, a.metric_value, a.threshold_value,
               a.message, a.created_at, a.resolved, a.resolved_at
        FROM alerts a
        JOIN domains d ON d.id = a.domain_id
        WHERE NOT a.resolved
        AND ($1 = '00000000-0000-0000-0000-000000000000'::uuid OR d.tenant_id = $1)
        ORDER BY a.created_at DESC`

	err := db.SelectContext(ctx, &alerts, query, tenantID)
	return alerts, translate(err, "list unresolved alerts")
}
