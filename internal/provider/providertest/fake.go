// Package providertest offers an in-memory provider.Client for tests.
package providertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leozw/domain-guardian/internal/provider"
)

// Fake records every call. Error fields, when set, are returned by the
// matching method; RecordErrors fails UpsertDNSRecord per record name.
type Fake struct {
	mu sync.Mutex

	Hostnames map[string]*provider.Hostname
	Records   map[string]provider.Record
	Analytics map[string]*provider.Analytics

	RegisterErr  error
	StatusErr    error
	SSLErr       error
	AnalyticsErr error
	RecordErrors map[string]error

	// NextStatus is applied to hostnames on GetHostnameStatus when set.
	NextStatus string
	// SSL is returned by ForceSSLIssuance.
	SSL provider.SSLInfo

	Calls map[string]int
	seq   int
}

var _ provider.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Hostnames:    make(map[string]*provider.Hostname),
		Records:      make(map[string]provider.Record),
		Analytics:    make(map[string]*provider.Analytics),
		RecordErrors: make(map[string]error),
		SSL:          provider.SSLInfo{Status: provider.SSLPending},
		Calls:        make(map[string]int),
	}
}

func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

func (f *Fake) RecordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Records)
}

func (f *Fake) nextRef(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *Fake) RegisterHostname(_ context.Context, hostname string) (*provider.Hostname, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["register_hostname"]++

	if f.RegisterErr != nil {
		return nil, f.RegisterErr
	}
	h := &provider.Hostname{
		Ref:      f.nextRef("hostname"),
		Hostname: hostname,
		Status:   provider.HostnamePending,
		SSL:      provider.SSLInfo{Status: provider.SSLPending},
	}
	f.Hostnames[h.Ref] = h
	c := *h
	return &c, nil
}

func (f *Fake) GetHostnameStatus(_ context.Context, ref string) (*provider.Hostname, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["get_hostname_status"]++

	if f.StatusErr != nil {
		return nil, f.StatusErr
	}
	h, ok := f.Hostnames[ref]
	if !ok {
		return nil, &provider.Error{Kind: provider.ErrNotFound, Op: "get_hostname_status", StatusCode: 404}
	}
	if f.NextStatus != "" {
		h.Status = f.NextStatus
	}
	c := *h
	return &c, nil
}

func (f *Fake) ForceSSLIssuance(_ context.Context, ref string) (*provider.SSLInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["force_ssl_issuance"]++

	if f.SSLErr != nil {
		return nil, f.SSLErr
	}
	h, ok := f.Hostnames[ref]
	if !ok {
		return nil, &provider.Error{Kind: provider.ErrNotFound, Op: "force_ssl_issuance", StatusCode: 404}
	}
	h.SSL = f.SSL
	info := f.SSL
	return &info, nil
}

func (f *Fake) UpsertDNSRecord(_ context.Context, zoneRef string, record provider.Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["upsert_dns_record"]++

	if err := f.RecordErrors[record.Name]; err != nil {
		return "", err
	}
	if record.Ref == "" {
		record.Ref = f.nextRef(zoneRef + "-record")
	} else if _, ok := f.Records[record.Ref]; !ok {
		return "", &provider.Error{Kind: provider.ErrNotFound, Op: "upsert_dns_record", StatusCode: 404}
	}
	f.Records[record.Ref] = record
	return record.Ref, nil
}

func (f *Fake) FetchAnalytics(_ context.Context, zoneRef string, _ time.Time) (*provider.Analytics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["fetch_analytics"]++

	if f.AnalyticsErr != nil {
		return nil, f.AnalyticsErr
	}
	a, ok := f.Analytics[zoneRef]
	if !ok {
		return &provider.Analytics{}, nil
	}
	c := *a
	return &c, nil
}

// SetHostname overrides provider state for ref.
func (f *Fake) SetHostname(ref, status string, ssl provider.SSLInfo, verificationErrors ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.Hostnames[ref]
	if !ok {
		h = &provider.Hostname{Ref: ref}
		f.Hostnames[ref] = h
	}
	h.Status = status
	h.SSL = ssl
	h.VerificationErrors = verificationErrors
}
