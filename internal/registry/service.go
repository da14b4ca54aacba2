// Package registry owns the Domain lifecycle: registration with the
// provider, verification, SSL provisioning and admin suspension.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/provider"
	"github.com/leozw/domain-guardian/internal/storage"
	"go.uber.org/zap"
)

// Metadata keys written on the domain row.
const (
	MetaRegistrationError  = "registration_error"
	MetaProviderStatus     = "provider_status"
	MetaProviderSSLStatus  = "provider_ssl_status"
	MetaVerificationErrors = "verification_errors"
	MetaSSLLastResponse    = "ssl_last_response"
	MetaSuspendedFrom      = "suspended_from"
)

type Service struct {
	store       storage.DomainStore
	provider    provider.Client
	defaultZone string
	logger      *zap.Logger
	now         func() time.Time
}

// NewService builds a registry. defaultZone, when set, becomes the
// provider_zone_ref of every new domain.
func NewService(store storage.DomainStore, client provider.Client, defaultZone string, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		provider:    client,
		defaultZone: defaultZone,
		logger:      logger,
		now:         time.Now,
	}
}

type Verification struct {
	Verified       bool         `json:"verified"`
	ProviderStatus string       `json:"provider_status"`
	Errors         []string     `json:"verification_errors,omitempty"`
	Domain         *core.Domain `json:"domain"`
}

// AddDomain creates a pending domain and registers it with the provider.
// When registration fails the pending domain is still returned together with
// the provider error, and RegisterDomain can retry it later.
func (s *Service) AddDomain(ctx context.Context, tenantID uuid.UUID, hostname string, domainType core.DomainType) (*core.Domain, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant id is required: %w", core.ErrInvalidInput)
	}
	if domainType == "" {
		domainType = core.DomainTypeCustom
	}
	if !domainType.Valid() {
		return nil, fmt.Errorf("unknown domain type %q: %w", domainType, core.ErrInvalidInput)
	}
	normalized, err := NormalizeHostname(hostname)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetDomainByHostname(ctx, normalized); err == nil {
		return nil, fmt.Errorf("hostname %s already registered: %w", normalized, core.ErrConflict)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("failed to check hostname: %w", err)
	}

	now := s.now().UTC()
	d := &core.Domain{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Hostname:   normalized,
		DomainType: domainType,
		Status:     core.DomainStatusPending,
		SSLStatus:  core.SSLStatusNone,
		Metadata:   core.JSONB{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if s.defaultZone != "" {
		zone := s.defaultZone
		d.ProviderZoneRef = &zone
	}

	if err := s.store.CreateDomain(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create domain: %w", err)
	}
	s.logger.Info("Created domain",
		zap.String("domain_id", d.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("hostname", normalized),
	)

	return s.register(ctx, d)
}

// RegisterDomain retries provider registration for a pending domain. A domain
// that already has a provider reference is returned unchanged.
func (s *Service) RegisterDomain(ctx context.Context, domainID uuid.UUID) (*core.Domain, error) {
	d, err := s.store.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if d.IsProvisioned() {
		return d, nil
	}
	return s.register(ctx, d)
}

func (s *Service) register(ctx context.Context, d *core.Domain) (*core.Domain, error) {
	h, regErr := s.provider.RegisterHostname(ctx, d.Hostname)
	if regErr != nil {
		d.SetMeta(MetaRegistrationError, provider.Message(regErr))
		d.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateDomain(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to record registration error: %w", err)
		}
		s.logger.Warn("Provider registration failed",
			zap.String("domain_id", d.ID.String()),
			zap.String("hostname", d.Hostname),
			zap.Error(regErr),
		)
		return d, fmt.Errorf("failed to register hostname %s: %w", d.Hostname, regErr)
	}

	ref := h.Ref
	d.ProviderHostnameRef = &ref
	d.Status = core.DomainStatusVerifying
	delete(d.Metadata, MetaRegistrationError)
	s.recordProviderState(d, h)
	if h.SSL.Status == provider.SSLPending && d.SSLStatus == core.SSLStatusNone {
		d.SetSSL(core.SSLStatusPending, nil)
	}
	d.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateDomain(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save registration: %w", err)
	}
	s.logger.Info("Registered hostname with provider",
		zap.String("domain_id", d.ID.String()),
		zap.String("hostname", d.Hostname),
		zap.String("provider_ref", ref),
	)
	return d, nil
}

// VerifyDomain asks the provider for the hostname status and applies it.
// Repeated calls with an unchanged provider status leave the domain unchanged.
// A suspended domain only has its provider state recorded; ReactivateDomain
// lifts the suspension.
func (s *Service) VerifyDomain(ctx context.Context, domainID uuid.UUID) (*Verification, error) {
	d, err := s.store.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if !d.IsProvisioned() {
		return nil, fmt.Errorf("verify %s: %w", d.Hostname, core.ErrNotProvisioned)
	}

	h, err := s.provider.GetHostnameStatus(ctx, *d.ProviderHostnameRef)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch hostname status: %w", err)
	}

	s.recordProviderState(d, h)
	verified := h.Status == provider.HostnameActive
	switch {
	case d.Status == core.DomainStatusSuspended:
	case verified:
		if d.Status != core.DomainStatusActive || d.VerifiedAt == nil {
			now := s.now().UTC()
			d.VerifiedAt = &now
		}
		d.Status = core.DomainStatusActive
		s.applySSL(d, h.SSL)
	case h.Status == provider.HostnameBlocked || h.Status == provider.HostnameMoved || h.Status == provider.HostnameDeleted:
		d.Status = core.DomainStatusFailed
	default:
		d.Status = core.DomainStatusVerifying
	}
	d.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateDomain(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save verification: %w", err)
	}

	s.logger.Info("Verified domain",
		zap.String("domain_id", d.ID.String()),
		zap.String("hostname", d.Hostname),
		zap.String("provider_status", h.Status),
		zap.Bool("verified", verified),
	)
	return &Verification{
		Verified:       verified,
		ProviderStatus: h.Status,
		Errors:         h.VerificationErrors,
		Domain:         d,
	}, nil
}

// ProvisionSSL forces certificate issuance. Only an active certificate with a
// known expiry is written; any other answer leaves the SSL fields as they were.
func (s *Service) ProvisionSSL(ctx context.Context, domainID uuid.UUID) (*core.Domain, error) {
	d, err := s.store.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if !d.IsProvisioned() {
		return nil, fmt.Errorf("provision ssl for %s: %w", d.Hostname, core.ErrNotProvisioned)
	}

	info, err := s.provider.ForceSSLIssuance(ctx, *d.ProviderHostnameRef)
	if err != nil {
		return nil, fmt.Errorf("failed to force ssl issuance: %w", err)
	}

	d.SetMeta(MetaSSLLastResponse, info.Status)
	s.applySSL(d, *info)
	d.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateDomain(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save ssl state: %w", err)
	}

	s.logger.Info("Provisioned SSL",
		zap.String("domain_id", d.ID.String()),
		zap.String("provider_ssl_status", info.Status),
		zap.String("ssl_status", string(d.SSLStatus)),
	)
	return d, nil
}

func (s *Service) applySSL(d *core.Domain, info provider.SSLInfo) {
	if info.Status == provider.SSLActive && info.ExpiresAt != nil {
		exp := info.ExpiresAt.UTC()
		d.SetSSL(core.SSLStatusActive, &exp)
	}
}

func (s *Service) recordProviderState(d *core.Domain, h *provider.Hostname) {
	d.SetMeta(MetaProviderStatus, h.Status)
	d.SetMeta(MetaProviderSSLStatus, h.SSL.Status)
	if len(h.VerificationErrors) > 0 {
		d.SetMeta(MetaVerificationErrors, h.VerificationErrors)
	} else {
		delete(d.Metadata, MetaVerificationErrors)
	}
}

// SuspendDomain is a no-op on an already suspended domain.
func (s *Service) SuspendDomain(ctx context.Context, domainID uuid.UUID) (*core.Domain, error) {
	d, err := s.store.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if d.Status == core.DomainStatusSuspended {
		return d, nil
	}

	d.SetMeta(MetaSuspendedFrom, string(d.Status))
	d.Status = core.DomainStatusSuspended
	d.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateDomain(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to suspend domain: %w", err)
	}
	s.logger.Info("Suspended domain", zap.String("domain_id", d.ID.String()), zap.String("hostname", d.Hostname))
	return d, nil
}

// ReactivateDomain moves a suspended or failed domain back into the
// lifecycle: verifying when the provider knows the hostname, else pending.
// Other states are returned unchanged.
func (s *Service) ReactivateDomain(ctx context.Context, domainID uuid.UUID) (*core.Domain, error) {
	d, err := s.store.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if d.Status != core.DomainStatusSuspended && d.Status != core.DomainStatusFailed {
		return d, nil
	}

	if d.IsProvisioned() {
		d.Status = core.DomainStatusVerifying
	} else {
		d.Status = core.DomainStatusPending
	}
	delete(d.Metadata, MetaSuspendedFrom)
	d.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateDomain(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to reactivate domain: %w", err)
	}
	s.logger.Info("Reactivated domain",
		zap.String("domain_id", d.ID.String()),
		zap.String("status", string(d.Status)),
	)
	return d, nil
}

// GetDomain returns the domain when it belongs to tenantID. uuid.Nil skips
// the ownership check.
func (s *Service) GetDomain(ctx context.Context, tenantID, domainID uuid.UUID) (*core.Domain, error) {
	d, err := s.store.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if tenantID != uuid.Nil && d.TenantID != tenantID {
		return nil, fmt.Errorf("domain %s: %w", domainID, core.ErrNotFound)
	}
	return d, nil
}

func (s *Service) ListDomains(ctx context.Context, tenantID uuid.UUID) ([]*core.Domain, error) {
	return s.store.ListDomainsByTenant(ctx, tenantID)
}
