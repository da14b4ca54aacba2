package core

import (
	"time"

	"github.com/google/uuid"
)

type DomainType string

const (
	DomainTypeCustom    DomainType = "custom"
	DomainTypeSubdomain DomainType = "subdomain"
)

func (t DomainType) Valid() bool {
	return t == DomainTypeCustom || t == DomainTypeSubdomain
}

type DomainStatus string

const (
	DomainStatusPending   DomainStatus = "pending"
	DomainStatusVerifying DomainStatus = "verifying"
	DomainStatusActive    DomainStatus = "active"
	DomainStatusFailed    DomainStatus = "failed"
	DomainStatusSuspended DomainStatus = "suspended"
)

type SSLStatus string

const (
	SSLStatusNone    SSLStatus = "none"
	SSLStatusPending SSLStatus = "pending"
	SSLStatusActive  SSLStatus = "active"
	SSLStatusExpired SSLStatus = "expired"
)

// Domain is a tenant-owned hostname. Rows are never deleted.
type Domain struct {
	ID                  uuid.UUID    `json:"id" db:"id"`
	TenantID            uuid.UUID    `json:"tenant_id" db:"tenant_id"`
	Hostname            string       `json:"hostname" db:"hostname"`
	DomainType          DomainType   `json:"domain_type" db:"domain_type"`
	Status              DomainStatus `json:"status" db:"status"`
	ProviderHostnameRef *string      `json:"provider_hostname_ref,omitempty" db:"provider_hostname_ref"`
	ProviderZoneRef     *string      `json:"provider_zone_ref,omitempty" db:"provider_zone_ref"`

	// SSL
	SSLStatus    SSLStatus  `json:"ssl_status" db:"ssl_status"`
	SSLExpiresAt *time.Time `json:"ssl_expires_at,omitempty" db:"ssl_expires_at"`

	// Metadata holds the last provider response and any recorded errors.
	Metadata JSONB `json:"metadata" db:"metadata"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" db:"verified_at"`
}

// SetSSL keeps ssl_expires_at populated only while the certificate is active.
func (d *Domain) SetSSL(status SSLStatus, expiresAt *time.Time) {
	d.SSLStatus = status
	if status != SSLStatusActive {
		d.SSLExpiresAt = nil
		return
	}
	d.SSLExpiresAt = expiresAt
}

// SetMeta records a metadata entry, allocating the map on first use.
func (d *Domain) SetMeta(key string, value interface{}) {
	if d.Metadata == nil {
		d.Metadata = make(JSONB)
	}
	d.Metadata[key] = value
}

func (d *Domain) IsProvisioned() bool {
	return d.ProviderHostnameRef != nil && *d.ProviderHostnameRef != ""
}

// Clone returns a deep enough copy for stores that hand out values.
func (d *Domain) Clone() *Domain {
	c := *d
	if d.ProviderHostnameRef != nil {
		ref := *d.ProviderHostnameRef
		c.ProviderHostnameRef = &ref
	}
	if d.ProviderZoneRef != nil {
		zone := *d.ProviderZoneRef
		c.ProviderZoneRef = &zone
	}
	if d.SSLExpiresAt != nil {
		t := *d.SSLExpiresAt
		c.SSLExpiresAt = &t
	}
	if d.VerifiedAt != nil {
		t := *d.VerifiedAt
		c.VerifiedAt = &t
	}
	if d.Metadata != nil {
		c.Metadata = make(JSONB, len(d.Metadata))
		for k, v := range d.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// SSLDaysRemaining rounds up partial days, so an expiry 1h away reports 1.
func SSLDaysRemaining(expiresAt, now time.Time) int {
	remaining := expiresAt.Sub(now)
	days := remaining / (24 * time.Hour)
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return int(days)
}
