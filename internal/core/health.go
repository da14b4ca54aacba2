package core

import (
	"time"

	"github.com/google/uuid"
)

type CheckType string

const (
	CheckTypeScheduled CheckType = "scheduled"
	CheckTypeManual    CheckType = "manual"
)

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

func (s HealthStatus) severity() int {
	switch s {
	case HealthStatusUnhealthy:
		return 2
	case HealthStatusDegraded:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of the two statuses.
func Worse(a, b HealthStatus) HealthStatus {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// HealthCheckResult is one row of the append-only probe log.
type HealthCheckResult struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	DomainID         uuid.UUID    `json:"domain_id" db:"domain_id"`
	PerformedAt      time.Time    `json:"performed_at" db:"performed_at"`
	CheckType        CheckType    `json:"check_type" db:"check_type"`
	Status           HealthStatus `json:"status" db:"status"`
	ResponseTimeMs   int64        `json:"response_time_ms" db:"response_time_ms"`
	SSLDaysRemaining *int         `json:"ssl_days_remaining,omitempty" db:"ssl_days_remaining"`
	ErrorMessage     *string      `json:"error_message,omitempty" db:"error_message"`
	RawDetail        JSONB        `json:"raw_detail" db:"raw_detail"`
}

// DomainHealth is the dashboard view of a domain's current state.
type DomainHealth struct {
	DomainID     uuid.UUID            `json:"domain_id"`
	Hostname     string               `json:"hostname"`
	Status       DomainStatus         `json:"status"`
	SSLStatus    SSLStatus            `json:"ssl_status"`
	SSLExpiresAt *time.Time           `json:"ssl_expires_at,omitempty"`
	Latest       *HealthCheckResult   `json:"latest,omitempty"`
	RecentChecks []*HealthCheckResult `json:"recent_checks"`
}
