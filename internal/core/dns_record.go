package core

import (
	"time"

	"github.com/google/uuid"
)

type DNSRecordStatus string

const (
	DNSRecordStatusActive DNSRecordStatus = "active"
	DNSRecordStatusError  DNSRecordStatus = "error"
)

var dnsRecordTypes = map[string]bool{
	"A": true, "AAAA": true, "CNAME": true, "TXT": true, "MX": true, "NS": true, "SRV": true, "CAA": true,
}

func ValidRecordType(t string) bool {
	return dnsRecordTypes[t]
}

// DNSRecord is owned by its domain. (domain_id, record_type, name) identifies
// the same provider record across reconciliations.
type DNSRecord struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	DomainID          uuid.UUID       `json:"domain_id" db:"domain_id"`
	RecordType        string          `json:"record_type" db:"record_type"`
	Name              string          `json:"name" db:"name"`
	Value             string          `json:"value" db:"value"`
	TTL               int             `json:"ttl" db:"ttl"`
	Priority          *int            `json:"priority,omitempty" db:"priority"`
	Proxied           bool            `json:"proxied" db:"proxied"`
	ProviderRecordRef *string         `json:"provider_record_ref,omitempty" db:"provider_record_ref"`
	Status            DNSRecordStatus `json:"status" db:"status"`
	LastError         *string         `json:"last_error,omitempty" db:"last_error"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}
