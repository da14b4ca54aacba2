// Package memory is an in-process Store used by tests and the memory driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leozw/domain-guardian/internal/core"
	"github.com/leozw/domain-guardian/internal/storage"
)

type Store struct {
	mu         sync.RWMutex
	domains    map[uuid.UUID]*core.Domain
	byHostname map[string]uuid.UUID
	records    map[uuid.UUID]*core.DNSRecord
	checks     map[uuid.UUID][]*core.HealthCheckResult
	alerts     map[uuid.UUID]*core.Alert
	analytics  map[string]*core.DomainAnalytics
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		domains:    make(map[uuid.UUID]*core.Domain),
		byHostname: make(map[string]uuid.UUID),
		records:    make(map[uuid.UUID]*core.DNSRecord),
		checks:     make(map[uuid.UUID][]*core.HealthCheckResult),
		alerts:     make(map[uuid.UUID]*core.Alert),
		analytics:  make(map[string]*core.DomainAnalytics),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Domains

func (s *Store) CreateDomain(_ context.Context, d *core.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(d.Hostname)
	if _, exists := s.byHostname[key]; exists {
		return fmt.Errorf("hostname %s: %w", d.Hostname, core.ErrConflict)
	}
	if _, exists := s.domains[d.ID]; exists {
		return fmt.Errorf("domain %s: %w", d.ID, core.ErrConflict)
	}
	s.domains[d.ID] = d.Clone()
	s.byHostname[key] = d.ID
	return nil
}

func (s *Store) GetDomain(_ context.Context, id uuid.UUID) (*core.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.domains[id]
	if !ok {
		return nil, fmt.Errorf("domain %s: %w", id, core.ErrNotFound)
	}
	return d.Clone(), nil
}

func (s *Store) GetDomainByHostname(_ context.Context, hostname string) (*core.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHostname[strings.ToLower(hostname)]
	if !ok {
		return nil, fmt.Errorf("hostname %s: %w", hostname, core.ErrNotFound)
	}
	return s.domains[id].Clone(), nil
}

func (s *Store) UpdateDomain(_ context.Context, d *core.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domains[d.ID]; !ok {
		return fmt.Errorf("domain %s: %w", d.ID, core.ErrNotFound)
	}
	s.domains[d.ID] = d.Clone()
	return nil
}

func (s *Store) ListDomainsByTenant(_ context.Context, tenantID uuid.UUID) ([]*core.Domain, error) {
	return s.filterDomains(func(d *core.Domain) bool { return d.TenantID == tenantID }, byHostname), nil
}

func (s *Store) ListDomainsByStatus(_ context.Context, status core.DomainStatus) ([]*core.Domain, error) {
	return s.filterDomains(func(d *core.Domain) bool { return d.Status == status }, byHostname), nil
}

func (s *Store) ListDomainsWithSSLExpiringBefore(_ context.Context, tenantID *uuid.UUID, cutoff time.Time) ([]*core.Domain, error) {
	return s.filterDomains(func(d *core.Domain) bool {
		if tenantID != nil && d.TenantID != *tenantID {
			return false
		}
		return d.SSLStatus == core.SSLStatusActive && d.SSLExpiresAt != nil && d.SSLExpiresAt.Before(cutoff)
	}, func(a, b *core.Domain) bool { return a.SSLExpiresAt.Before(*b.SSLExpiresAt) }), nil
}

func (s *Store) ListDomainsWithZone(_ context.Context) ([]*core.Domain, error) {
	return s.filterDomains(func(d *core.Domain) bool {
		return d.ProviderZoneRef != nil && *d.ProviderZoneRef != ""
	}, byHostname), nil
}

func byHostname(a, b *core.Domain) bool { return a.Hostname < b.Hostname }

func (s *Store) filterDomains(keep func(*core.Domain) bool, less func(a, b *core.Domain) bool) []*core.Domain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*core.Domain{}
	for _, d := range s.domains {
		if keep(d) {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// DNS records

func (s *Store) GetDNSRecordByKey(_ context.Context, domainID uuid.UUID, recordType, name string) (*core.DNSRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r := s.findRecord(domainID, recordType, name); r != nil {
		c := *r
		return &c, nil
	}
	return nil, fmt.Errorf("dns record %s %s: %w", recordType, name, core.ErrNotFound)
}

func (s *Store) findRecord(domainID uuid.UUID, recordType, name string) *core.DNSRecord {
	for _, r := range s.records {
		if r.DomainID == domainID && r.RecordType == recordType && strings.EqualFold(r.Name, name) {
			return r
		}
	}
	return nil
}

func (s *Store) SaveDNSRecord(_ context.Context, r *core.DNSRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.domains[r.DomainID]; !ok {
		return fmt.Errorf("domain %s: %w", r.DomainID, core.ErrNotFound)
	}
	if existing := s.findRecord(r.DomainID, r.RecordType, r.Name); existing != nil {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	} else if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	c := *r
	s.records[r.ID] = &c
	return nil
}

func (s *Store) ListDNSRecords(_ context.Context, domainID uuid.UUID) ([]*core.DNSRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*core.DNSRecord{}
	for _, r := range s.records {
		if r.DomainID == domainID {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordType != out[j].RecordType {
			return out[i].RecordType < out[j].RecordType
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Health checks

func (s *Store) InsertHealthCheck(_ context.Context, r *core.HealthCheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *r
	s.checks[r.DomainID] = append(s.checks[r.DomainID], &c)
	return nil
}

func (s *Store) ListHealthChecks(_ context.Context, domainID uuid.UUID, limit int) ([]*core.HealthCheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.checks[domainID]
	out := make([]*core.HealthCheckResult, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		c := *rows[i]
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PerformedAt.After(out[j].PerformedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListHealthChecksOfType(_ context.Context, domainID uuid.UUID, checkType core.CheckType, since time.Time, limit int) ([]*core.HealthCheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*core.HealthCheckResult{}
	for _, r := range s.checks[domainID] {
		if r.CheckType == checkType && !r.PerformedAt.Before(since) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PerformedAt.After(out[j].PerformedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListHealthChecksInPeriod(_ context.Context, domainID uuid.UUID, from, to time.Time) ([]*core.HealthCheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*core.HealthCheckResult{}
	for _, r := range s.checks[domainID] {
		if !r.PerformedAt.Before(from) && r.PerformedAt.Before(to) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PerformedAt.Before(out[j].PerformedAt) })
	return out, nil
}

// Alerts

func (s *Store) InsertAlert(_ context.Context, a *core.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *a
	s.alerts[a.ID] = &c
	return nil
}

func (s *Store) GetAlert(_ context.Context, id uuid.UUID) (*core.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, core.ErrNotFound)
	}
	c := *a
	return &c, nil
}

func (s *Store) UpdateAlert(_ context.Context, a *core.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alerts[a.ID]; !ok {
		return fmt.Errorf("alert %s: %w", a.ID, core.ErrNotFound)
	}
	c := *a
	s.alerts[a.ID] = &c
	return nil
}

func (s *Store) FindOpenAlert(_ context.Context, domainID uuid.UUID, condition core.AlertCondition) (*core.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *core.Alert
	for _, a := range s.alerts {
		if a.DomainID == domainID && a.Condition == condition && !a.Resolved {
			if found == nil || a.CreatedAt.After(found.CreatedAt) {
				found = a
			}
		}
	}
	if found == nil {
		return nil, fmt.Errorf("open %s alert: %w", condition, core.ErrNotFound)
	}
	c := *found
	return &c, nil
}

func (s *Store) ListUnresolvedAlerts(_ context.Context, tenantID uuid.UUID) ([]*core.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*core.Alert{}
	for _, a := range s.alerts {
		if a.Resolved {
			continue
		}
		if tenantID != uuid.Nil {
			d, ok := s.domains[a.DomainID]
			if !ok || d.TenantID != tenantID {
				continue
			}
		}
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Analytics

func analyticsKey(domainID uuid.UUID, date time.Time) string {
	return domainID.String() + "|" + date.UTC().Format("2006-01-02")
}

func (s *Store) UpsertAnalytics(_ context.Context, a *core.DomainAnalytics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *a
	s.analytics[analyticsKey(a.DomainID, a.Date)] = &c
	return nil
}

func (s *Store) ListAnalytics(_ context.Context, domainID uuid.UUID, from, to time.Time) ([]*core.DomainAnalytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*core.DomainAnalytics{}
	for _, a := range s.analytics {
		if a.DomainID == domainID && !a.Date.Before(from) && !a.Date.After(to) {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
