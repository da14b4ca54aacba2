package metrics

import (
	"errors"
	"time"

	"github.com/leozw/domain-guardian/internal/config"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector owns its own registry. A nil *Collector is valid and records nothing.
type Collector struct {
	config   *config.MimirConfig
	registry *prometheus.Registry
	mimir    *MimirClient

	// Probes
	probeDuration    *prometheus.HistogramVec
	probeStatus      *prometheus.GaugeVec
	probesTotal      *prometheus.CounterVec
	sslDaysRemaining *prometheus.GaugeVec

	// Alerts
	alertsTotal   *prometheus.CounterVec
	alertsOpen    *prometheus.GaugeVec
	domainsByStat *prometheus.GaugeVec

	// Sweeps
	sweepDuration *prometheus.HistogramVec
	sweepItems    *prometheus.CounterVec
	queueLength   *prometheus.GaugeVec

	// Provider
	providerDuration *prometheus.HistogramVec
	providerTotal    *prometheus.CounterVec
	reconcileTotal   *prometheus.CounterVec

	// SLA / registration
	slaUptime        *prometheus.GaugeVec
	registrationDays *prometheus.GaugeVec
}

func NewCollector(cfg config.MimirConfig) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	c := &Collector{
		config:   &cfg,
		registry: reg,

		probeDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "domain_probe_duration_seconds",
				Help:    "Duration of domain health probes in seconds",
				Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"tenant_id", "domain", "check_type"},
		),

		probeStatus: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "domain_probe_status",
				Help: "Last probe status (0=healthy, 1=degraded, 2=unhealthy)",
			},
			[]string{"tenant_id", "domain"},
		),

		probesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domain_probes_total",
				Help: "Total number of probes performed",
			},
			[]string{"tenant_id", "domain", "status"},
		),

		sslDaysRemaining: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "domain_ssl_days_remaining",
				Help: "Days until the domain's SSL certificate expires",
			},
			[]string{"tenant_id", "domain"},
		),

		alertsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domain_alerts_total",
				Help: "Total number of alerts raised",
			},
			[]string{"severity", "condition"},
		),

		alertsOpen: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "domain_alerts_open",
				Help: "Unresolved alerts per tenant",
			},
			[]string{"tenant_id"},
		),

		domainsByStat: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "domains_by_status",
				Help: "Number of domains in each lifecycle status",
			},
			[]string{"status"},
		),

		sweepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "domain_sweep_duration_seconds",
				Help:    "Duration of a full sweep",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"sweep"},
		),

		sweepItems: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "domain_sweep_items_total",
				Help: "Domains processed by sweeps, by outcome",
			},
			[]string{"sweep", "outcome"},
		),

		queueLength: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sweep_queue_length",
				Help: "Jobs waiting in the sweep queue",
			},
			[]string{"queue"},
		),

		providerDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Latency of DNS/CDN provider API calls",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"op"},
		),

		providerTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Provider API calls by outcome",
			},
			[]string{"op", "outcome"},
		),

		reconcileTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dns_reconcile_records_total",
				Help: "DNS records reconciled, by result",
			},
			[]string{"tenant_id", "result"},
		),

		slaUptime: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "domain_sla_uptime_percentage",
				Help: "Uptime percentage over the last computed SLA period",
			},
			[]string{"tenant_id", "domain"},
		),

		registrationDays: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "domain_registration_days_remaining",
				Help: "Days until the apex domain registration expires",
			},
			[]string{"tenant_id", "domain"},
		),
	}

	if cfg.URL != "" {
		c.mimir = NewMimirClient(cfg)
	}
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func statusValue(s core.HealthStatus) float64 {
	switch s {
	case core.HealthStatusUnhealthy:
		return 2
	case core.HealthStatusDegraded:
		return 1
	default:
		return 0
	}
}

func (c *Collector) RecordProbe(domain *core.Domain, result *core.HealthCheckResult) {
	if c == nil {
		return
	}
	tenant := domain.TenantID.String()

	c.probeDuration.WithLabelValues(tenant, domain.Hostname, string(result.CheckType)).
		Observe(float64(result.ResponseTimeMs) / 1000)
	c.probeStatus.WithLabelValues(tenant, domain.Hostname).Set(statusValue(result.Status))
	c.probesTotal.WithLabelValues(tenant, domain.Hostname, string(result.Status)).Inc()

	if result.SSLDaysRemaining != nil {
		c.sslDaysRemaining.WithLabelValues(tenant, domain.Hostname).Set(float64(*result.SSLDaysRemaining))
	}
}

func (c *Collector) RecordSSLDays(domain *core.Domain, days int) {
	if c == nil {
		return
	}
	c.sslDaysRemaining.WithLabelValues(domain.TenantID.String(), domain.Hostname).Set(float64(days))
}

func (c *Collector) RecordAlert(alert *core.Alert) {
	if c == nil {
		return
	}
	c.alertsTotal.WithLabelValues(string(alert.Severity), string(alert.Condition)).Inc()
}

func (c *Collector) SetOpenAlerts(tenantID string, count int) {
	if c == nil {
		return
	}
	c.alertsOpen.WithLabelValues(tenantID).Set(float64(count))
}

func (c *Collector) SetDomainsByStatus(status core.DomainStatus, count int) {
	if c == nil {
		return
	}
	c.domainsByStat.WithLabelValues(string(status)).Set(float64(count))
}

// RecordSweep records one sweep run. outcomes maps an outcome label to a count.
func (c *Collector) RecordSweep(sweep string, elapsed time.Duration, outcomes map[string]int) {
	if c == nil {
		return
	}
	c.sweepDuration.WithLabelValues(sweep).Observe(elapsed.Seconds())
	for outcome, n := range outcomes {
		c.sweepItems.WithLabelValues(sweep, outcome).Add(float64(n))
	}
}

func (c *Collector) SetQueueLength(queue string, n int64) {
	if c == nil {
		return
	}
	c.queueLength.WithLabelValues(queue).Set(float64(n))
}

// ObserveProviderCall satisfies cloudflare.Observer.
func (c *Collector) ObserveProviderCall(op string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.providerDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	c.providerTotal.WithLabelValues(op, providerOutcome(err)).Inc()
}

func providerOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, provider.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, provider.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, provider.ErrNotFound):
		return "not_found"
	case errors.Is(err, provider.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, provider.ErrRejected):
		return "rejected"
	default:
		return "error"
	}
}

func (c *Collector) RecordReconcile(tenantID string, succeeded, failed int) {
	if c == nil {
		return
	}
	c.reconcileTotal.WithLabelValues(tenantID, "success").Add(float64(succeeded))
	c.reconcileTotal.WithLabelValues(tenantID, "error").Add(float64(failed))
}

func (c *Collector) RecordSLA(domain *core.Domain, report *core.SLAReport) {
	if c == nil {
		return
	}
	c.slaUptime.WithLabelValues(domain.TenantID.String(), domain.Hostname).Set(report.UptimePercentage)
}

func (c *Collector) RecordRegistrationDays(domain *core.Domain, days int) {
	if c == nil {
		return
	}
	c.registrationDays.WithLabelValues(domain.TenantID.String(), domain.Hostname).Set(float64(days))
}
