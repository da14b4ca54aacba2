package registry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/provider"
	"github.com/leozw/domain-guardian/internal/provider/providertest"
	"github.com/leozw/domain-guardian/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store, *providertest.Fake) {
	t.Helper()
	store := memory.New()
	fake := providertest.New()
	s := NewService(store, fake, "zone-1", zap.NewNop())
	s.now = func() time.Time { return testNow }
	return s, store, fake
}

func TestAddDomainRegistersWithProvider(t *testing.T) {
	s, store, fake := newTestService(t)
	ctx := context.Background()
	tenant := uuid.New()

	d, err := s.AddDomain(ctx, tenant, "Shop.Example.com", core.DomainTypeCustom)
	require.NoError(t, err)

	assert.Equal(t, "shop.example.com", d.Hostname)
	assert.Equal(t, core.DomainStatusVerifying, d.Status)
	require.NotNil(t, d.ProviderHostnameRef)
	require.NotNil(t, d.ProviderZoneRef)
	assert.Equal(t, "zone-1", *d.ProviderZoneRef)
	assert.Equal(t, core.SSLStatusPending, d.SSLStatus)
	assert.Nil(t, d.SSLExpiresAt)
	assert.Equal(t, 1, fake.CallCount("register_hostname"))

	stored, err := store.GetDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, *d.ProviderHostnameRef, *stored.ProviderHostnameRef)
	assert.Equal(t, provider.HostnamePending, stored.Metadata[MetaProviderStatus])
}

func TestAddDomainRejectsDuplicateHostname(t *testing.T) {
	s, store, fake := newTestService(t)
	ctx := context.Background()

	_, err := s.AddDomain(ctx, uuid.New(), "shop.example.com", core.DomainTypeCustom)
	require.NoError(t, err)

	_, err = s.AddDomain(ctx, uuid.New(), "SHOP.example.com.", core.DomainTypeCustom)
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, 1, fake.CallCount("register_hostname"))

	all, err := store.ListDomainsByStatus(ctx, core.DomainStatusVerifying)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAddDomainValidation(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.AddDomain(ctx, uuid.Nil, "shop.example.com", core.DomainTypeCustom)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = s.AddDomain(ctx, uuid.New(), "shop.example.com", core.DomainType("apex"))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = s.AddDomain(ctx, uuid.New(), "10.0.0.1", core.DomainTypeCustom)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestAddDomainProviderFailureKeepsPending(t *testing.T) {
	s, store, fake := newTestService(t)
	ctx := context.Background()
	fake.RegisterErr = &provider.Error{Kind: provider.ErrRejected, Op: "register_hostname", StatusCode: 400, Messages: []string{"[1406] invalid custom hostname"}}

	d, err := s.AddDomain(ctx, uuid.New(), "shop.example.com", core.DomainTypeCustom)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrRejected)
	require.NotNil(t, d)
	assert.Equal(t, core.DomainStatusPending, d.Status)
	assert.False(t, d.IsProvisioned())

	stored, err := store.GetDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DomainStatusPending, stored.Status)
	assert.Equal(t, "[1406] invalid custom hostname", stored.Metadata[MetaRegistrationError])

	// Retry after the provider recovers.
	fake.RegisterErr = nil
	retried, err := s.RegisterDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DomainStatusVerifying, retried.Status)
	assert.NotContains(t, retried.Metadata, MetaRegistrationError)

	again, err := s.RegisterDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, *retried.ProviderHostnameRef, *again.ProviderHostnameRef)
	assert.Equal(t, 2, fake.CallCount("register_hostname"))
}

func TestVerifyDomain(t *testing.T) {
	s, _, fake := newTestService(t)
	ctx := context.Background()

	d, err := s.AddDomain(ctx, uuid.New(), "shop.example.com", core.DomainTypeCustom)
	require.NoError(t, err)
	ref := *d.ProviderHostnameRef

	fake.SetHostname(ref, provider.HostnamePending, provider.SSLInfo{Status: provider.SSLPending}, "CNAME not found")
	v, err := s.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, v.Verified)
	assert.Equal(t, core.DomainStatusVerifying, v.Domain.Status)
	assert.Nil(t, v.Domain.VerifiedAt)
	assert.Equal(t, []string{"CNAME not found"}, v.Domain.Metadata[MetaVerificationErrors])

	expires := testNow.Add(90 * 24 * time.Hour)
	fake.SetHostname(ref, provider.HostnameActive, provider.SSLInfo{Status: provider.SSLActive, ExpiresAt: &expires})
	v, err = s.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.Equal(t, core.DomainStatusActive, v.Domain.Status)
	require.NotNil(t, v.Domain.VerifiedAt)
	assert.Equal(t, testNow, *v.Domain.VerifiedAt)
	assert.Equal(t, core.SSLStatusActive, v.Domain.SSLStatus)
	assert.Equal(t, expires, *v.Domain.SSLExpiresAt)
	assert.NotContains(t, v.Domain.Metadata, MetaVerificationErrors)
}

func TestVerifyDomainIsIdempotent(t *testing.T) {
	s, _, fake := newTestService(t)
	ctx := context.Background()

	d, err := s.AddDomain(ctx, uuid.New(), "shop.example.com", core.DomainTypeCustom)
	require.NoError(t, err)
	fake.SetHostname(*d.ProviderHostnameRef, provider.HostnameActive, provider.SSLInfo{Status: provider.SSLPending})

	first, err := s.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)
	second, err := s.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Verified, second.Verified)
	assert.Equal(t, first.Domain, second.Domain)
}

func TestVerifyDomainTerminalProviderStatus(t *testing.T) {
	for _, status := range []string{provider.HostnameBlocked, provider.HostnameMoved, provider.HostnameDeleted} {
		t.Run(status, func(t *testing.T) {
			s, _, fake := newTestService(t)
			ctx := context.Background()

			d, err := s.AddDomain(ctx, uuid.New(), "shop.example.com", core.DomainTypeCustom)
			require.NoError(t, err)
			fake.SetHostname(*d.ProviderHostnameRef, status, provider.SSLInfo{})

			v, err := s.VerifyDomain(ctx, d.ID)
			require.NoError(t, err)
			assert.False(t, v.Verified)
			assert.Equal(t, core.DomainStatusFailed, v.Domain.Status)
		})
	}
}

func TestVerifyDomainRequiresProvisioning(t *testing.T) {
	s, _, fake := newTestService(t)
	ctx := context.Background()
	fake.RegisterErr = &provider.Error{Kind: provider.ErrUnavailable, Op: "register_hostname", StatusCode: 503}

	d, err := s.AddDomain(ctx, uuid.New(), "shop.example.com", core.DomainTypeCustom)
	require.Error(t, err)

	_, err = s.VerifyDomain(ctx, d.ID)
	assert.ErrorIs(t, err, core.ErrNotProvisioned)
	_, err = s.ProvisionSSL(ctx, d.ID)
	assert.ErrorIs(t, err, core.ErrNotProvisioned)
	assert.Equal(t, 0, fake.CallCount("get_hostname_status"))

	_, err = s.VerifyDomain(ctx, uuid.New())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestVerifyDomainProviderError(t *testing.T) {
	s, store, fake := newTestService(t)
	ctx := context.Background()

	d, err := s.AddDomain(ctx, uuid.New(), "shop.example.com", core.DomainTypeCustom)
	require.NoError(t, err)
	fake.StatusErr = &provider.Error{Kind: provider.ErrRateLimited, Op: "get_hostname_status", StatusCode: 429}

	_, err = s.VerifyDomain(ctx, d.ID)
	assert.ErrorIs(t, err, provider.ErrRateLimited)
	assert.True(t, provider.IsTransient(err))

	stored, err := store.GetDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DomainStatusVerifying, stored.Status)
}

func TestProvisionSSL(t *testing.T) {
	s, _, fake := newTestService(t)
	ctx := context.Background()

	d, err := s.AddDomain(ctx, uuid.New(), "shop.example.com", core.DomainTypeCustom)
	require.NoError(t, err)

	fake.SSL = provider.SSLInfo{Status: provider.SSLPending}
	got, err := s.ProvisionSSL(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SSLStatusPending, got.SSLStatus)

	expires := testNow.Add(60 * 24 * time.Hour)
	fake.SSL = provider.SSLInfo{Status: provider.SSLActive, ExpiresAt: &expires}
	got, err = s.ProvisionSSL(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SSLStatusActive, got.SSLStatus)
	assert.Equal(t, expires, *got.SSLExpiresAt)

	// A transient pending answer never regresses an active certificate.
	fake.SSL = provider.SSLInfo{Status: provider.SSLPending}
	got, err = s.ProvisionSSL(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SSLStatusActive, got.SSLStatus)
	require.NotNil(t, got.SSLExpiresAt)
	assert.Equal(t, expires, *got.SSLExpiresAt)
	assert.Equal(t, provider.SSLPending, got.Metadata[MetaSSLLastResponse])

	// Active without an expiry is not enough either.
	fake.SSL = provider.SSLInfo{Status: provider.SSLActive}
	got, err = s.ProvisionSSL(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, expires, *got.SSLExpiresAt)
}

func TestSuspendAndReactivate(t *testing.T) {
	s, _, fake := newTestService(t)
	ctx := context.Background()

	d, err := s.AddDomain(ctx, uuid.New(), "shop.example.com", core.DomainTypeCustom)
	require.NoError(t, err)
	fake.SetHostname(*d.ProviderHostnameRef, provider.HostnameActive, provider.SSLInfo{})
	_, err = s.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)

	suspended, err := s.SuspendDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DomainStatusSuspended, suspended.Status)
	assert.Equal(t, string(core.DomainStatusActive), suspended.Metadata[MetaSuspendedFrom])

	again, err := s.SuspendDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, suspended, again)

	reactivated, err := s.ReactivateDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DomainStatusVerifying, reactivated.Status)

	// Re-verification brings it back to active and restarts verified_at.
	s.now = func() time.Time { return testNow.Add(time.Hour) }
	v, err := s.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DomainStatusActive, v.Domain.Status)
	require.NotNil(t, v.Domain.VerifiedAt)
	assert.Equal(t, testNow.Add(time.Hour), *v.Domain.VerifiedAt)

	unchanged, err := s.ReactivateDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DomainStatusActive, unchanged.Status)
}

func TestVerifyDomainKeepsSuspension(t *testing.T) {
	s, store, fake := newTestService(t)
	ctx := context.Background()

	d, err := s.AddDomain(ctx, uuid.New(), "shop.example.com", core.DomainTypeCustom)
	require.NoError(t, err)
	ref := *d.ProviderHostnameRef
	fake.SetHostname(ref, provider.HostnameActive, provider.SSLInfo{})
	_, err = s.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)
	_, err = s.SuspendDomain(ctx, d.ID)
	require.NoError(t, err)

	v, err := s.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.Equal(t, core.DomainStatusSuspended, v.Domain.Status)

	fake.SetHostname(ref, provider.HostnamePending, provider.SSLInfo{Status: provider.SSLPending}, "CNAME not found")
	v, err = s.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, v.Verified)

	stored, err := store.GetDomain(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DomainStatusSuspended, stored.Status)
	assert.Equal(t, provider.HostnamePending, stored.Metadata[MetaProviderStatus])
	assert.Equal(t, []string{"CNAME not found"}, stored.Metadata[MetaVerificationErrors])
	assert.Equal(t, string(core.DomainStatusActive), stored.Metadata[MetaSuspendedFrom])
}

func TestGetDomainChecksTenant(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	tenant := uuid.New()

	d, err := s.AddDomain(ctx, tenant, "shop.example.com", core.DomainTypeSubdomain)
	require.NoError(t, err)

	got, err := s.GetDomain(ctx, tenant, d.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DomainTypeSubdomain, got.DomainType)

	_, err = s.GetDomain(ctx, uuid.New(), d.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	list, err := s.ListDomains(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
