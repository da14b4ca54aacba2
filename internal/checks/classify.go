package checks

import (
	"fmt"
	"sort"
	"time"

	"github.com/leozw/domain-guardian/internal/core"
)

type Thresholds struct {
	SSLCriticalDays  int
	SSLWarningDays   int
	LatencyDegraded  time.Duration
	LatencyUnhealthy time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		SSLCriticalDays:  7,
		SSLWarningDays:   30,
		LatencyDegraded:  5 * time.Second,
		LatencyUnhealthy: 10 * time.Second,
	}
}

// Observation is what a single probe saw before classification.
type Observation struct {
	StatusCode       int
	Err              error
	Elapsed          time.Duration
	SSLDaysRemaining *int
}

// Classify folds the HTTP, certificate and latency rules by severity. No rule
// can lower a status another rule raised.
func Classify(obs Observation, th Thresholds) core.HealthStatus {
	status := httpStatus(obs)

	if obs.SSLDaysRemaining != nil {
		days := *obs.SSLDaysRemaining
		switch {
		case days < th.SSLCriticalDays:
			status = core.Worse(status, core.HealthStatusUnhealthy)
		case days < th.SSLWarningDays:
			status = core.Worse(status, core.HealthStatusDegraded)
		}
	}

	ms := obs.Elapsed.Milliseconds()
	switch {
	case ms > th.LatencyUnhealthy.Milliseconds():
		status = core.Worse(status, core.HealthStatusUnhealthy)
	case ms > th.LatencyDegraded.Milliseconds():
		status = core.Worse(status, core.HealthStatusDegraded)
	}

	return status
}

func httpStatus(obs Observation) core.HealthStatus {
	switch {
	case obs.Err != nil || obs.StatusCode == 0:
		return core.HealthStatusUnhealthy
	case obs.StatusCode >= 500:
		return core.HealthStatusUnhealthy
	case obs.StatusCode >= 400:
		return core.HealthStatusDegraded
	default:
		return core.HealthStatusHealthy
	}
}

// Breach is one threshold crossed by a stored probe result.
type Breach struct {
	Condition core.AlertCondition
	Severity  core.Severity
	Metric    float64
	Threshold float64
	Message   string
}

var severityRank = map[core.Severity]int{
	core.SeverityWarning:  0,
	core.SeverityHigh:     1,
	core.SeverityCritical: 2,
}

// Breaches lists every rule a result violated, most severe first.
func Breaches(r *core.HealthCheckResult, th Thresholds) []Breach {
	var out []Breach

	code := 0
	if v, ok := r.RawDetail["status_code"]; ok {
		code = toInt(v)
	}

	switch {
	case r.ErrorMessage != nil:
		out = append(out, Breach{
			Condition: core.ConditionAvailability,
			Severity:  core.SeverityHigh,
			Metric:    0,
			Threshold: 1,
			Message:   "no response: " + *r.ErrorMessage,
		})
	case code >= 500:
		out = append(out, Breach{
			Condition: core.ConditionHTTPStatus,
			Severity:  core.SeverityHigh,
			Metric:    float64(code),
			Threshold: 500,
			Message:   fmt.Sprintf("server error: HTTP %d", code),
		})
	case code >= 400:
		out = append(out, Breach{
			Condition: core.ConditionHTTPStatus,
			Severity:  core.SeverityWarning,
			Metric:    float64(code),
			Threshold: 400,
			Message:   fmt.Sprintf("client error: HTTP %d", code),
		})
	}

	if r.SSLDaysRemaining != nil {
		days := *r.SSLDaysRemaining
		switch {
		case days < th.SSLCriticalDays:
			out = append(out, Breach{
				Condition: core.ConditionSSLExpiry,
				Severity:  core.SeverityCritical,
				Metric:    float64(days),
				Threshold: float64(th.SSLCriticalDays),
				Message:   fmt.Sprintf("SSL certificate expires in %d days", days),
			})
		case days < th.SSLWarningDays:
			out = append(out, Breach{
				Condition: core.ConditionSSLExpiry,
				Severity:  core.SeverityWarning,
				Metric:    float64(days),
				Threshold: float64(th.SSLWarningDays),
				Message:   fmt.Sprintf("SSL certificate expires in %d days", days),
			})
		}
	}

	switch ms := r.ResponseTimeMs; {
	case ms > th.LatencyUnhealthy.Milliseconds():
		out = append(out, Breach{
			Condition: core.ConditionLatency,
			Severity:  core.SeverityHigh,
			Metric:    float64(ms),
			Threshold: float64(th.LatencyUnhealthy.Milliseconds()),
			Message:   fmt.Sprintf("response time %dms over %dms", ms, th.LatencyUnhealthy.Milliseconds()),
		})
	case ms > th.LatencyDegraded.Milliseconds():
		out = append(out, Breach{
			Condition: core.ConditionLatency,
			Severity:  core.SeverityWarning,
			Metric:    float64(ms),
			Threshold: float64(th.LatencyDegraded.Milliseconds()),
			Message:   fmt.Sprintf("response time %dms over %dms", ms, th.LatencyDegraded.Milliseconds()),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return severityRank[out[i].Severity] > severityRank[out[j].Severity]
	})
	return out
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
