package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/config"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/provider"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	d := &core.Domain{Hostname: "a.example.com"}
	assert.NotPanics(t, func() {
		c.RecordProbe(d, &core.HealthCheckResult{})
		c.RecordAlert(&core.Alert{})
		c.RecordSweep("health", time.Second, map[string]int{"healthy": 1})
		c.ObserveProviderCall("register_hostname", time.Second, nil)
		c.RecordReconcile("t", 1, 1)
		c.StartRemoteWrite(context.Background(), nil)
	})
	assert.Nil(t, c.Registry())
}

func TestRecordProbe(t *testing.T) {
	c := NewCollector(config.MimirConfig{})
	d := &core.Domain{TenantID: uuid.New(), Hostname: "shop.example.com"}
	days := 12

	c.RecordProbe(d, &core.HealthCheckResult{CheckType: core.CheckTypeScheduled, Status: core.HealthStatusDegraded, ResponseTimeMs: 250, SSLDaysRemaining: &days})

	assert.Equal(t, float64(1), testutil.ToFloat64(c.probeStatus.WithLabelValues(d.TenantID.String(), d.Hostname)))
	assert.Equal(t, float64(12), testutil.ToFloat64(c.sslDaysRemaining.WithLabelValues(d.TenantID.String(), d.Hostname)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.probesTotal.WithLabelValues(d.TenantID.String(), d.Hostname, "degraded")))
}

func TestProviderOutcome(t *testing.T) {
	c := NewCollector(config.MimirConfig{})
	c.ObserveProviderCall("get_hostname_status", 10*time.Millisecond, &provider.Error{Kind: provider.ErrRateLimited})
	c.ObserveProviderCall("get_hostname_status", 10*time.Millisecond, nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.providerTotal.WithLabelValues("get_hostname_status", "rate_limited")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.providerTotal.WithLabelValues("get_hostname_status", "success")))
}

func TestFlushPushesTenantSeries(t *testing.T) {
	var (
		gotTenant string
		gotReq    prompb.WriteRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.Header.Get("X-Scope-OrgID")
		body, _ := io.ReadAll(r.Body)
		raw, err := snappy.Decode(nil, body)
		if err == nil {
			_ = gotReq.Unmarshal(raw)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewCollector(config.MimirConfig{URL: srv.URL, TenantHeader: "X-Scope-OrgID", BatchSize: 500})
	tenant := uuid.New()
	c.RecordProbe(&core.Domain{TenantID: tenant, Hostname: "shop.example.com"},
		&core.HealthCheckResult{CheckType: core.CheckTypeScheduled, Status: core.HealthStatusHealthy, ResponseTimeMs: 120})

	require.NoError(t, c.flush(context.Background()))
	assert.Equal(t, tenant.String(), gotTenant)

	names := map[string]bool{}
	for _, ts := range gotReq.Timeseries {
		names[ts.Labels[0].Value] = true
	}
	assert.True(t, names["domain_probe_status"])
	assert.True(t, names["domain_probe_duration_seconds_bucket"])
	assert.True(t, names["domain_probe_duration_seconds_count"])
	assert.False(t, names["go_goroutines"])
}
