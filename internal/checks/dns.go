package checks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

var ErrNoAddresses = errors.New("no A or AAAA records")

// DNSResolver queries a single upstream server directly.
type DNSResolver struct {
	server string
	client *dns.Client
}

func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	if server == "" {
		server = "8.8.8.8:53"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DNSResolver{
		server: server,
		client: &dns.Client{Timeout: timeout},
	}
}

// Resolve returns A records, falling back to AAAA when there are none.
func (r *DNSResolver) Resolve(ctx context.Context, hostname string) ([]string, error) {
	addrs, err := r.query(ctx, hostname, dns.TypeA)
	if err != nil {
		return nil, err
	}
	if len(addrs) > 0 {
		return addrs, nil
	}

	addrs, err = r.query(ctx, hostname, dns.TypeAAAA)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%s: %w", hostname, ErrNoAddresses)
	}
	return addrs, nil
}

func (r *DNSResolver) query(ctx context.Context, hostname string, qtype uint16) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(hostname), qtype)
	m.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return nil, fmt.Errorf("dns query %s: %w", dns.TypeToString[qtype], err)
	}

	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("dns query %s failed with code: %s", dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}

	var addrs []string
	for _, ans := range resp.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			addrs = append(addrs, rr.A.String())
		case *dns.AAAA:
			addrs = append(addrs, rr.AAAA.String())
		}
	}
	return addrs, nil
}
