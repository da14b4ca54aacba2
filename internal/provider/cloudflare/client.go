package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/leozw/domain-guardian/internal/provider"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.cloudflare.com/client/v4"
	defaultTimeout = 15 * time.Second
)

type Config struct {
	BaseURL           string
	APIToken          string
	ZoneID            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Observer receives one call per provider request.
type Observer interface {
	ObserveProviderCall(op string, elapsed time.Duration, err error)
}

// Client talks to the Cloudflare v4 API. Custom hostnames live in the
// configured SaaS zone; DNS records and analytics take an explicit zone.
type Client struct {
	baseURL  string
	token    string
	zoneID   string
	timeout  time.Duration
	http     *http.Client
	limiter  *rate.Limiter
	observer Observer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.APIToken,
		zoneID:  cfg.ZoneID,
		timeout: cfg.Timeout,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ provider.Client = (*Client)(nil)

type apiResponse struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type customHostname struct {
	ID                 string   `json:"id"`
	Hostname           string   `json:"hostname"`
	Status             string   `json:"status"`
	SSL                sslBlock `json:"ssl"`
	VerificationErrors []string `json:"verification_errors"`
}

type sslBlock struct {
	Status       string     `json:"status"`
	ExpiresOn    *time.Time `json:"expires_on"`
	Certificates []struct {
		ExpiresOn *time.Time `json:"expires_on"`
	} `json:"certificates"`
	ValidationErrors []struct {
		Message string `json:"message"`
	} `json:"validation_errors"`
}

func (s sslBlock) info() provider.SSLInfo {
	info := provider.SSLInfo{Status: s.Status, ExpiresAt: s.ExpiresOn}
	if info.ExpiresAt == nil {
		for _, cert := range s.Certificates {
			if cert.ExpiresOn != nil {
				info.ExpiresAt = cert.ExpiresOn
				break
			}
		}
	}
	return info
}

func (h customHostname) toProvider(raw json.RawMessage) *provider.Hostname {
	out := &provider.Hostname{
		Ref:                h.ID,
		Hostname:           h.Hostname,
		Status:             h.Status,
		SSL:                h.SSL.info(),
		VerificationErrors: h.VerificationErrors,
		Raw:                raw,
	}
	for _, ve := range h.SSL.ValidationErrors {
		out.VerificationErrors = append(out.VerificationErrors, ve.Message)
	}
	return out
}

var sslSettings = map[string]interface{}{
	"method": "http",
	"type":   "dv",
}

func (c *Client) RegisterHostname(ctx context.Context, hostname string) (*provider.Hostname, error) {
	const op = "register_hostname"
	payload := map[string]interface{}{
		"hostname": hostname,
		"ssl":      sslSettings,
	}

	var h customHostname
	raw, err := c.do(ctx, op, http.MethodPost, c.zonePath(c.zoneID, "custom_hostnames"), payload, &h)
	if err != nil {
		return nil, err
	}
	return h.toProvider(raw), nil
}

func (c *Client) GetHostnameStatus(ctx context.Context, ref string) (*provider.Hostname, error) {
	const op = "get_hostname_status"
	var h customHostname
	raw, err := c.do(ctx, op, http.MethodGet, c.zonePath(c.zoneID, "custom_hostnames", ref), nil, &h)
	if err != nil {
		return nil, err
	}
	return h.toProvider(raw), nil
}

// ForceSSLIssuance re-submits the SSL settings, which makes Cloudflare retry
// validation and issuance for the hostname.
func (c *Client) ForceSSLIssuance(ctx context.Context, ref string) (*provider.SSLInfo, error) {
	const op = "force_ssl_issuance"
	payload := map[string]interface{}{"ssl": sslSettings}

	var h customHostname
	if _, err := c.do(ctx, op, http.MethodPatch, c.zonePath(c.zoneID, "custom_hostnames", ref), payload, &h); err != nil {
		return nil, err
	}
	info := h.SSL.info()
	return &info, nil
}

func (c *Client) UpsertDNSRecord(ctx context.Context, zoneRef string, record provider.Record) (string, error) {
	const op = "upsert_dns_record"
	payload := map[string]interface{}{
		"type":    record.Type,
		"name":    record.Name,
		"content": record.Value,
		"ttl":     record.TTL,
		"proxied": record.Proxied,
	}
	if record.Priority != nil {
		payload["priority"] = *record.Priority
	}

	method, path := http.MethodPost, c.zonePath(zoneRef, "dns_records")
	if record.Ref != "" {
		method, path = http.MethodPut, c.zonePath(zoneRef, "dns_records", record.Ref)
	}

	var result struct {
		ID string `json:"id"`
	}
	if _, err := c.do(ctx, op, method, path, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return record.Ref, nil
	}
	return result.ID, nil
}

const analyticsQuery = `query DomainAnalytics($zoneTag: string, $date: Date) {
  viewer {
    zones(filter: {zoneTag: $zoneTag}) {
      httpRequests1dGroups(limit: 1, filter: {date: $date}) {
        sum {
          requests
          bytes
          cachedRequests
          responseStatusMap { edgeResponseStatus requests }
        }
        uniq { uniques }
      }
    }
  }
}`

type analyticsResponse struct {
	Data struct {
		Viewer struct {
			Zones []struct {
				Groups []struct {
					Sum struct {
						Requests          int64 `json:"requests"`
						Bytes             int64 `json:"bytes"`
						CachedRequests    int64 `json:"cachedRequests"`
						ResponseStatusMap []struct {
							Status   int   `json:"edgeResponseStatus"`
							Requests int64 `json:"requests"`
						} `json:"responseStatusMap"`
					} `json:"sum"`
					Uniq struct {
						Uniques int64 `json:"uniques"`
					} `json:"uniq"`
				} `json:"httpRequests1dGroups"`
			} `json:"zones"`
		} `json:"viewer"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchAnalytics returns one day of zone traffic. A day with no traffic yields
// zero values, not an error. Error rate counts 4xx and 5xx edge responses.
func (c *Client) FetchAnalytics(ctx context.Context, zoneRef string, date time.Time) (*provider.Analytics, error) {
	const op = "fetch_analytics"
	payload := map[string]interface{}{
		"query": analyticsQuery,
		"variables": map[string]interface{}{
			"zoneTag": zoneRef,
			"date":    date.UTC().Format("2006-01-02"),
		},
	}

	status, body, err := c.send(ctx, op, http.MethodPost, c.baseURL+"/graphql", payload)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, &provider.Error{Kind: provider.KindForStatus(status), Op: op, StatusCode: status}
	}

	var resp analyticsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.Error{Kind: provider.ErrUnknown, Op: op, StatusCode: status, Cause: fmt.Errorf("decode response: %w", err)}
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &provider.Error{Kind: provider.ErrRejected, Op: op, StatusCode: status, Messages: msgs}
	}
	if len(resp.Data.Viewer.Zones) == 0 {
		return nil, &provider.Error{Kind: provider.ErrNotFound, Op: op, StatusCode: status, Messages: []string{"zone not found: " + zoneRef}}
	}

	out := &provider.Analytics{}
	groups := resp.Data.Viewer.Zones[0].Groups
	if len(groups) == 0 {
		return out, nil
	}
	g := groups[0]
	out.RequestCount = g.Sum.Requests
	out.BandwidthBytes = g.Sum.Bytes
	out.UniqueVisitors = g.Uniq.Uniques
	if g.Sum.Requests > 0 {
		var errored int64
		for _, s := range g.Sum.ResponseStatusMap {
			if s.Status >= 400 {
				errored += s.Requests
			}
		}
		out.CacheHitRate = float64(g.Sum.CachedRequests) / float64(g.Sum.Requests)
		out.ErrorRate = float64(errored) / float64(g.Sum.Requests)
	}
	return out, nil
}

func (c *Client) zonePath(zone string, parts ...string) string {
	p := c.baseURL + "/zones/" + url.PathEscape(zone)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// do sends a v4 request and decodes result into out. Any success:false body
// becomes a *provider.Error, whatever the HTTP status.
func (c *Client) do(ctx context.Context, op, method, path string, payload, out interface{}) (json.RawMessage, error) {
	status, body, err := c.send(ctx, op, method, path, payload)
	if err != nil {
		return nil, err
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		kind := provider.ErrUnknown
		if status >= 300 {
			kind = provider.KindForStatus(status)
		}
		return nil, &provider.Error{Kind: kind, Op: op, StatusCode: status, Cause: fmt.Errorf("decode response: %w", err)}
	}

	if !resp.Success || status >= 300 {
		kind := provider.ErrRejected
		if status >= 300 {
			kind = provider.KindForStatus(status)
		}
		return nil, &provider.Error{Kind: kind, Op: op, StatusCode: status, Messages: formatErrors(resp.Errors)}
	}

	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return nil, &provider.Error{Kind: provider.ErrUnknown, Op: op, StatusCode: status, Cause: fmt.Errorf("decode result: %w", err)}
		}
	}
	return resp.Result, nil
}

func (c *Client) send(ctx context.Context, op, method, path string, payload interface{}) (status int, body []byte, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveProviderCall(op, time.Since(start), err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, &provider.Error{Kind: provider.ErrRateLimited, Op: op, Cause: err}
	}

	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: marshal payload: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &provider.Error{Kind: provider.ErrUnavailable, Op: op, Cause: err}
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &provider.Error{Kind: provider.ErrUnavailable, Op: op, StatusCode: resp.StatusCode, Cause: fmt.Errorf("read response: %w", err)}
	}
	return resp.StatusCode, body, nil
}

func formatErrors(errs []apiError) []string {
	if len(errs) == 0 {
		return []string{"unknown error"}
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("[%d] %s", e.Code, e.Message))
	}
	return msgs
}

