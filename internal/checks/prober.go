package checks

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/storage"
	"go.uber.org/zap"
)

// Resolver looks up the addresses a hostname currently points at.
type Resolver interface {
	Resolve(ctx context.Context, hostname string) ([]string, error)
}

type ProberConfig struct {
	ScheduledTimeout time.Duration
	ManualTimeout    time.Duration
	Thresholds       Thresholds
}

// Prober performs one HEAD https://host check and appends the classified
// result to the health log.
type Prober struct {
	client   *http.Client
	store    storage.HealthCheckStore
	resolver Resolver
	cfg      ProberConfig
	now      func() time.Time
	logger   *zap.Logger
}

type ProberOption func(*Prober)

// WithTransport swaps the HTTP transport, mostly for tests.
func WithTransport(rt http.RoundTripper) ProberOption {
	return func(p *Prober) { p.client.Transport = rt }
}

func WithResolver(r Resolver) ProberOption {
	return func(p *Prober) { p.resolver = r }
}

func WithClock(now func() time.Time) ProberOption {
	return func(p *Prober) { p.now = now }
}

func NewProber(store storage.HealthCheckStore, cfg ProberConfig, logger *zap.Logger, opts ...ProberOption) *Prober {
	if cfg.ScheduledTimeout <= 0 {
		cfg.ScheduledTimeout = 15 * time.Second
	}
	if cfg.ManualTimeout <= 0 {
		cfg.ManualTimeout = 10 * time.Second
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}

	p := &Prober{
		client: &http.Client{
			Transport: http.DefaultTransport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With(zap.String("component", "prober")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Prober) Thresholds() Thresholds {
	return p.cfg.Thresholds
}

func (p *Prober) timeout(checkType core.CheckType) time.Duration {
	if checkType == core.CheckTypeManual {
		return p.cfg.ManualTimeout
	}
	return p.cfg.ScheduledTimeout
}

// Probe never fails on a network problem: those become unhealthy rows. The
// returned error is only set when the result could not be persisted.
func (p *Prober) Probe(ctx context.Context, domain *core.Domain, checkType core.CheckType) (*core.HealthCheckResult, error) {
	start := p.now()
	result := &core.HealthCheckResult{
		ID:          uuid.New(),
		DomainID:    domain.ID,
		PerformedAt: start.UTC(),
		CheckType:   checkType,
		RawDetail:   core.JSONB{"url": "https://" + domain.Hostname},
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout(checkType))
	defer cancel()

	obs := p.observe(probeCtx, domain.Hostname, result.RawDetail)
	obs.Elapsed = p.now().Sub(start)

	if domain.SSLStatus == core.SSLStatusActive && domain.SSLExpiresAt != nil {
		days := core.SSLDaysRemaining(*domain.SSLExpiresAt, start)
		obs.SSLDaysRemaining = &days
	}

	result.ResponseTimeMs = obs.Elapsed.Milliseconds()
	result.SSLDaysRemaining = obs.SSLDaysRemaining
	result.Status = Classify(obs, p.cfg.Thresholds)
	if obs.Err != nil {
		msg := obs.Err.Error()
		result.ErrorMessage = &msg
	}

	p.logger.Debug("Probe completed",
		zap.String("hostname", domain.Hostname),
		zap.String("check_type", string(checkType)),
		zap.String("status", string(result.Status)),
		zap.Int64("response_time_ms", result.ResponseTimeMs),
	)

	if err := p.store.InsertHealthCheck(ctx, result); err != nil {
		return result, fmt.Errorf("save health check for %s: %w", domain.Hostname, err)
	}
	return result, nil
}

func (p *Prober) observe(ctx context.Context, hostname string, detail core.JSONB) Observation {
	if p.resolver != nil {
		addrs, err := p.resolver.Resolve(ctx, hostname)
		if err != nil {
			detail["error_kind"] = "dns"
			return Observation{Err: fmt.Errorf("dns resolution failed: %w", err)}
		}
		detail["resolved_addrs"] = addrs
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "https://"+hostname, nil)
	if err != nil {
		detail["error_kind"] = "request"
		return Observation{Err: err}
	}
	req.Header.Set("User-Agent", "domain-guardian/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		detail["error_kind"] = errorKind(err)
		return Observation{Err: err}
	}
	defer resp.Body.Close()

	detail["status_code"] = resp.StatusCode
	if loc := resp.Header.Get("Location"); loc != "" {
		detail["location"] = loc
	}
	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		cert := resp.TLS.PeerCertificates[0]
		detail["tls_not_after"] = cert.NotAfter.UTC().Format(time.RFC3339)
		detail["tls_issuer"] = cert.Issuer.CommonName
	}
	return Observation{StatusCode: resp.StatusCode}
}

func errorKind(err error) string {
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		return "dns"
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "timeout"
		}
		return "connection"
	}
}
