package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEmitter(t *testing.T, dedup bool) (*Emitter, *memory.Store) {
	t.Helper()
	store := memory.New()
	e := NewEmitter(store, dedup, nil, zap.NewNop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	return e, store
}

func sslBreach(domainID uuid.UUID) core.Alert {
	return core.Alert{
		DomainID:       domainID,
		Severity:       core.SeverityCritical,
		Condition:      core.ConditionSSLExpiry,
		MetricValue:    5,
		ThresholdValue: 7,
		Message:        "SSL certificate expires in 5 days",
	}
}

func TestRaiseAlwaysInsertsWithoutDedup(t *testing.T) {
	e, store := newTestEmitter(t, false)
	ctx := context.Background()
	domainID := uuid.New()

	first, err := e.Raise(ctx, sslBreach(domainID))
	require.NoError(t, err)
	second, err := e.Raise(ctx, sslBreach(domainID))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	open, err := store.ListUnresolvedAlerts(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, open, 2)
	assert.Equal(t, core.SeverityCritical, first.Severity)
	assert.False(t, first.Resolved)
	assert.Nil(t, first.ResolvedAt)
}

func TestRaiseDeduplicatesOpenAlert(t *testing.T) {
	e, store := newTestEmitter(t, true)
	ctx := context.Background()
	domainID := uuid.New()

	first, err := e.Raise(ctx, sslBreach(domainID))
	require.NoError(t, err)
	second, err := e.Raise(ctx, sslBreach(domainID))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	latency := core.Alert{DomainID: domainID, Severity: core.SeverityWarning, Condition: core.ConditionLatency}
	_, err = e.Raise(ctx, latency)
	require.NoError(t, err)

	open, err := store.ListUnresolvedAlerts(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	_, err = e.Resolve(ctx, first.ID)
	require.NoError(t, err)
	third, err := e.Raise(ctx, sslBreach(domainID))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestRaiseRequiresDomain(t *testing.T) {
	e, _ := newTestEmitter(t, false)
	_, err := e.Raise(context.Background(), core.Alert{Severity: core.SeverityHigh})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestResolve(t *testing.T) {
	e, store := newTestEmitter(t, false)
	ctx := context.Background()

	a, err := e.Raise(ctx, sslBreach(uuid.New()))
	require.NoError(t, err)

	resolved, err := e.Resolve(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)
	at := *resolved.ResolvedAt

	again, err := e.Resolve(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, at, *again.ResolvedAt)

	stored, err := store.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.Resolved)

	_, err = e.Resolve(ctx, uuid.New())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListUnresolvedByTenant(t *testing.T) {
	e, store := newTestEmitter(t, false)
	ctx := context.Background()

	tenant := uuid.New()
	d := &core.Domain{ID: uuid.New(), TenantID: tenant, Hostname: "shop.example.com", Status: core.DomainStatusActive}
	require.NoError(t, store.CreateDomain(ctx, d))
	other := &core.Domain{ID: uuid.New(), TenantID: uuid.New(), Hostname: "other.example.com", Status: core.DomainStatusActive}
	require.NoError(t, store.CreateDomain(ctx, other))

	_, err := e.Raise(ctx, sslBreach(d.ID))
	require.NoError(t, err)
	_, err = e.Raise(ctx, sslBreach(other.ID))
	require.NoError(t, err)

	mine, err := e.ListUnresolved(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, d.ID, mine[0].DomainID)

	all, err := e.ListUnresolved(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
