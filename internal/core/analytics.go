package core

import (
	"time"

	"github.com/google/uuid"
)

// DomainAnalytics is one day of provider traffic data. (domain_id, date) is unique.
type DomainAnalytics struct {
	DomainID       uuid.UUID `json:"domain_id" db:"domain_id"`
	Date           time.Time `json:"date" db:"date"`
	RequestCount   int64     `json:"request_count" db:"request_count"`
	UniqueVisitors int64     `json:"unique_visitors" db:"unique_visitors"`
	BandwidthBytes int64     `json:"bandwidth_bytes" db:"bandwidth_bytes"`
	CacheHitRate   float64   `json:"cache_hit_rate" db:"cache_hit_rate"`
	ErrorRate      float64   `json:"error_rate" db:"error_rate"`
	CollectedAt    time.Time `json:"collected_at" db:"collected_at"`
}

type SLAReport struct {
	DomainID              uuid.UUID `json:"domain_id"`
	PeriodStart           time.Time `json:"period_start"`
	PeriodEnd             time.Time `json:"period_end"`
	TotalChecks           int       `json:"total_checks"`
	HealthyChecks         int       `json:"healthy_checks"`
	DegradedChecks        int       `json:"degraded_checks"`
	UnhealthyChecks       int       `json:"unhealthy_checks"`
	UptimePercentage      float64   `json:"uptime_percentage"`
	DowntimeMinutes       int       `json:"downtime_minutes"`
	AverageResponseTimeMs *int64    `json:"average_response_time_ms,omitempty"`
	TargetUptime          float64   `json:"target_uptime_percentage"`
	SLOMet                bool      `json:"slo_met"`
}
