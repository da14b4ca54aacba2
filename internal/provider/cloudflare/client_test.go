package cloudflare

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/leozw/domain-guardian/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.Body)
		}
		mu.Lock()
		requests = append(requests, rec)
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, APIToken: "secret", ZoneID: "zone1", Timeout: 2 * time.Second})
	return c, &requests
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestRegisterHostname(t *testing.T) {
	c, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"success":true,"errors":[],"result":{"id":"ch_123","hostname":"shop.example.com","status":"pending","ssl":{"status":"initializing"}}}`)
	})

	h, err := c.RegisterHostname(context.Background(), "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, "ch_123", h.Ref)
	assert.Equal(t, "pending", h.Status)
	assert.Equal(t, "initializing", h.SSL.Status)
	assert.NotEmpty(t, h.Raw)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/zones/zone1/custom_hostnames", got.Path)
	assert.Equal(t, "Bearer secret", got.Auth)
	assert.Equal(t, "shop.example.com", got.Body["hostname"])
}

func TestGetHostnameStatusWithCertificateExpiry(t *testing.T) {
	c, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"result":{"id":"ch_123","status":"active",
			"ssl":{"status":"active","certificates":[{"expires_on":"2027-01-02T03:04:05Z"}]},
			"verification_errors":["cname missing"]}}`)
	})

	h, err := c.GetHostnameStatus(context.Background(), "ch_123")
	require.NoError(t, err)
	assert.Equal(t, provider.HostnameActive, h.Status)
	require.NotNil(t, h.SSL.ExpiresAt)
	assert.Equal(t, time.Date(2027, 1, 2, 3, 4, 5, 0, time.UTC), h.SSL.ExpiresAt.UTC())
	assert.Equal(t, []string{"cname missing"}, h.VerificationErrors)
	assert.Equal(t, "/zones/zone1/custom_hostnames/ch_123", (*reqs)[0].Path)
}

func TestForceSSLIssuance(t *testing.T) {
	c, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"result":{"id":"ch_123","ssl":{"status":"pending_validation"}}}`)
	})

	info, err := c.ForceSSLIssuance(context.Background(), "ch_123")
	require.NoError(t, err)
	assert.Equal(t, "pending_validation", info.Status)
	assert.Nil(t, info.ExpiresAt)
	assert.Equal(t, http.MethodPatch, (*reqs)[0].Method)
	assert.Contains(t, (*reqs)[0].Body, "ssl")
}

func TestUpsertDNSRecordCreateThenUpdate(t *testing.T) {
	c, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"result":{"id":"rec_9"}}`)
	})

	ref, err := c.UpsertDNSRecord(context.Background(), "zone2", provider.Record{Type: "A", Name: "shop.example.com", Value: "192.0.2.1", TTL: 300})
	require.NoError(t, err)
	assert.Equal(t, "rec_9", ref)

	prio := 10
	ref, err = c.UpsertDNSRecord(context.Background(), "zone2", provider.Record{Ref: "rec_9", Type: "MX", Name: "example.com", Value: "mx.example.com", TTL: 300, Priority: &prio})
	require.NoError(t, err)
	assert.Equal(t, "rec_9", ref)

	require.Len(t, *reqs, 2)
	assert.Equal(t, http.MethodPost, (*reqs)[0].Method)
	assert.Equal(t, "/zones/zone2/dns_records", (*reqs)[0].Path)
	assert.Equal(t, "192.0.2.1", (*reqs)[0].Body["content"])
	assert.Equal(t, http.MethodPut, (*reqs)[1].Method)
	assert.Equal(t, "/zones/zone2/dns_records/rec_9", (*reqs)[1].Path)
	assert.Equal(t, float64(10), (*reqs)[1].Body["priority"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthenticated", http.StatusForbidden, `{"success":false,"errors":[{"code":10000,"message":"Authentication error"}]}`, provider.ErrUnauthenticated},
		{"rate limited", http.StatusTooManyRequests, `{"success":false,"errors":[{"code":971,"message":"Please wait"}]}`, provider.ErrRateLimited},
		{"not found", http.StatusNotFound, `{"success":false,"errors":[{"code":1436,"message":"Custom hostname not found"}]}`, provider.ErrNotFound},
		{"unavailable", http.StatusBadGateway, `<html>bad gateway</html>`, provider.ErrUnavailable},
		{"rejected", http.StatusBadRequest, `{"success":false,"errors":[{"code":1411,"message":"Invalid hostname"}]}`, provider.ErrRejected},
		{"success false on 200", http.StatusOK, `{"success":false,"errors":[{"code":1000,"message":"odd"}]}`, provider.ErrRejected},
		{"garbage on 200", http.StatusOK, `not json`, provider.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := c.RegisterHostname(context.Background(), "bad..host")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var pe *provider.Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "register_hostname", pe.Op)
			assert.Equal(t, tt.status, pe.StatusCode)
		})
	}
}

func TestRejectedMessagesAreKept(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"success":false,"errors":[{"code":1411,"message":"Invalid hostname"}]}`)
	})

	_, err := c.RegisterHostname(context.Background(), "x")
	assert.Equal(t, "[1411] Invalid hostname", provider.Message(err))
}

func TestNetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(Config{BaseURL: srv.URL, ZoneID: "zone1"})
	_, err := c.GetHostnameStatus(context.Background(), "ch_1")
	assert.ErrorIs(t, err, provider.ErrUnavailable)
	assert.True(t, provider.IsTransient(err))
}

func TestTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := New(Config{BaseURL: srv.URL, ZoneID: "zone1", Timeout: 50 * time.Millisecond})
	_, err := c.GetHostnameStatus(context.Background(), "ch_1")
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestFetchAnalytics(t *testing.T) {
	c, reqs := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"viewer":{"zones":[{"httpRequests1dGroups":[{
			"sum":{"requests":1000,"bytes":52428800,"cachedRequests":750,
				"responseStatusMap":[{"edgeResponseStatus":200,"requests":900},{"edgeResponseStatus":404,"requests":60},{"edgeResponseStatus":502,"requests":40}]},
			"uniq":{"uniques":321}}]}]}},"errors":null}`)
	})

	day := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	a, err := c.FetchAnalytics(context.Background(), "zone2", day)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), a.RequestCount)
	assert.Equal(t, int64(321), a.UniqueVisitors)
	assert.Equal(t, int64(52428800), a.BandwidthBytes)
	assert.InDelta(t, 0.75, a.CacheHitRate, 1e-9)
	assert.InDelta(t, 0.10, a.ErrorRate, 1e-9)

	got := (*reqs)[0]
	assert.Equal(t, "/graphql", got.Path)
	vars := got.Body["variables"].(map[string]interface{})
	assert.Equal(t, "zone2", vars["zoneTag"])
	assert.Equal(t, "2026-10-13", vars["date"])
}

func TestFetchAnalyticsEmptyDayAndErrors(t *testing.T) {
	t.Run("no traffic", func(t *testing.T) {
		c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"data":{"viewer":{"zones":[{"httpRequests1dGroups":[]}]}}}`)
		})
		a, err := c.FetchAnalytics(context.Background(), "zone2", time.Now())
		require.NoError(t, err)
		assert.Zero(t, a.RequestCount)
		assert.Zero(t, a.CacheHitRate)
	})

	t.Run("graphql errors", func(t *testing.T) {
		c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"data":null,"errors":[{"message":"zone not authorized"}]}`)
		})
		_, err := c.FetchAnalytics(context.Background(), "zone2", time.Now())
		assert.ErrorIs(t, err, provider.ErrRejected)
	})

	t.Run("unknown zone", func(t *testing.T) {
		c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"data":{"viewer":{"zones":[]}}}`)
		})
		_, err := c.FetchAnalytics(context.Background(), "nope", time.Now())
		assert.ErrorIs(t, err, provider.ErrNotFound)
	})
}

type countingObserver struct {
	ops  []string
	errs int
}

func (o *countingObserver) ObserveProviderCall(op string, _ time.Duration, err error) {
	o.ops = append(o.ops, op)
	if err != nil {
		o.errs++
	}
}

func TestObserverSeesEveryCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"result":{"id":"ch_1","status":"active"}}`)
	}))
	t.Cleanup(srv.Close)

	obs := &countingObserver{}
	c := New(Config{BaseURL: srv.URL, ZoneID: "z"}, WithObserver(obs))
	_, err := c.GetHostnameStatus(context.Background(), "ch_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"get_hostname_status"}, obs.ops)
	assert.Zero(t, obs.errs)
}
