package core

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AlertCondition string

const (
	ConditionAvailability        AlertCondition = "availability"
	ConditionLatency             AlertCondition = "latency"
	ConditionHTTPStatus          AlertCondition = "http_status"
	ConditionSSLExpiry           AlertCondition = "ssl_expiry"
	ConditionConsecutiveFailures AlertCondition = "consecutive_failures"
	ConditionRegistrationExpiry  AlertCondition = "registration_expiry"
)

type Alert struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	DomainID       uuid.UUID      `json:"domain_id" db:"domain_id"`
	Severity       Severity       `json:"severity" db:"severity"`
	Condition      AlertCondition `json:"condition" db:"condition"`
	MetricValue    float64        `json:"metric_value" db:"metric_value"`
	ThresholdValue float64        `json:"threshold_value" db:"threshold_value"`
	Message        string         `json:"message" db:"message"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	Resolved       bool           `json:"resolved" db:"resolved"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty" db:"resolved_at"`
}
