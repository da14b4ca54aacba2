// Package provider defines the capability interface wrapping the external
// DNS/CDN API. Implementations never retry; retry policy belongs to callers.
package provider

import (
	"context"
	"encoding/json"
	"time"
)

// Hostname statuses reported by the provider.
const (
	HostnameActive  = "active"
	HostnamePending = "pending"
	HostnameBlocked = "blocked"
	HostnameMoved   = "moved"
	HostnameDeleted = "deleted"
)

// SSL statuses reported by the provider.
const (
	SSLActive  = "active"
	SSLPending = "pending"
)

type SSLInfo struct {
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type Hostname struct {
	Ref                string          `json:"ref"`
	Hostname           string          `json:"hostname"`
	Status             string          `json:"status"`
	SSL                SSLInfo         `json:"ssl"`
	VerificationErrors []string        `json:"verification_errors,omitempty"`
	Raw                json.RawMessage `json:"-"`
}

// Record is the provider-side view of a DNS record. An empty Ref means create.
type Record struct {
	Ref      string
	Type     string
	Name     string
	Value    string
	TTL      int
	Priority *int
	Proxied  bool
}

type Analytics struct {
	RequestCount   int64
	UniqueVisitors int64
	BandwidthBytes int64
	CacheHitRate   float64
	ErrorRate      float64
}

type Client interface {
	RegisterHostname(ctx context.Context, hostname string) (*Hostname, error)
	GetHostnameStatus(ctx context.Context, ref string) (*Hostname, error)
	ForceSSLIssuance(ctx context.Context, ref string) (*SSLInfo, error)
	UpsertDNSRecord(ctx context.Context, zoneRef string, record Record) (string, error)
	FetchAnalytics(ctx context.Context, zoneRef string, date time.Time) (*Analytics, error)
}
