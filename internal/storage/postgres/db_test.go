package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "x"))
	assert.ErrorIs(t, translate(sql.ErrNoRows, "domain"), core.ErrNotFound)
	assert.ErrorIs(t, translate(&pq.Error{Code: "23505"}, "domain"), core.ErrConflict)

	other := errors.New("connection reset")
	err := translate(other, "domain")
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, core.ErrNotFound)
}

// setupTestDB connects to GUARDIAN_TEST_DATABASE_URL and applies migrations.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("GUARDIAN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GUARDIAN_TEST_DATABASE_URL not set")
	}

	db, err := Open(url, Options{MaxOpenConns: 4})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestDomainRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	host := "pg-" + uuid.NewString()[:8] + ".example.com"
	d := &core.Domain{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		Hostname:   host,
		DomainType: core.DomainTypeCustom,
		Status:     core.DomainStatusPending,
		SSLStatus:  core.SSLStatusNone,
		Metadata:   core.JSONB{"registration_error": "boom"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, db.CreateDomain(ctx, d))

	dup := *d
	dup.ID = uuid.New()
	assert.ErrorIs(t, db.CreateDomain(ctx, &dup), core.ErrConflict)

	got, err := db.GetDomainByHostname(ctx, host)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, "boom", got.Metadata["registration_error"])

	ref := "ch_1"
	expires := now.Add(40 * 24 * time.Hour)
	got.ProviderHostnameRef = &ref
	got.Status = core.DomainStatusActive
	got.SetSSL(core.SSLStatusActive, &expires)
	require.NoError(t, db.UpdateDomain(ctx, got))

	expiring, err := db.ListDomainsWithSSLExpiringBefore(ctx, &got.TenantID, now.Add(60*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, host, expiring[0].Hostname)

	_, err = db.GetDomain(ctx, uuid.New())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSaveDNSRecordUpsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	d := &core.Domain{
		ID: uuid.New(), TenantID: uuid.New(), Hostname: "dns-" + uuid.NewString()[:8] + ".example.com",
		DomainType: core.DomainTypeCustom, Status: core.DomainStatusPending, SSLStatus: core.SSLStatusNone,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.CreateDomain(ctx, d))

	first := &core.DNSRecord{ID: uuid.New(), DomainID: d.ID, RecordType: "A", Name: d.Hostname, Value: "192.0.2.1", TTL: 300, Status: core.DNSRecordStatusError, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.SaveDNSRecord(ctx, first))
	firstID := first.ID

	second := &core.DNSRecord{ID: uuid.New(), DomainID: d.ID, RecordType: "A", Name: d.Hostname, Value: "192.0.2.1", TTL: 300, Status: core.DNSRecordStatusActive, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.SaveDNSRecord(ctx, second))
	assert.Equal(t, firstID, second.ID)

	records, err := db.ListDNSRecords(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.DNSRecordStatusActive, records[0].Status)
}
