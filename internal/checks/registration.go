package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	"golang.org/x/net/publicsuffix"
)

var ErrExpiryUnknown = errors.New("could not extract expiry date from WHOIS data")

// RegistrationChecker reads a domain's registry expiry date from WHOIS.
type RegistrationChecker struct {
	lookup func(domain string) (string, error)
}

func NewRegistrationChecker(timeout time.Duration) *RegistrationChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := whois.NewClient().SetTimeout(timeout)
	return &RegistrationChecker{
		lookup: func(domain string) (string, error) {
			return client.Whois(domain)
		},
	}
}

// Apex returns the registrable domain, e.g. shop.example.co.uk -> example.co.uk.
func Apex(hostname string) (string, error) {
	return publicsuffix.EffectiveTLDPlusOne(strings.TrimSuffix(strings.ToLower(hostname), "."))
}

// ExpiresAt looks up the apex of hostname. WHOIS has no context support, so
// cancellation is honored by abandoning the lookup.
func (c *RegistrationChecker) ExpiresAt(ctx context.Context, hostname string) (time.Time, error) {
	apex, err := Apex(hostname)
	if err != nil {
		return time.Time{}, fmt.Errorf("registrable domain of %s: %w", hostname, err)
	}

	type answer struct {
		raw string
		err error
	}
	done := make(chan answer, 1)
	go func() {
		raw, err := c.lookup(apex)
		done <- answer{raw, err}
	}()

	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case a := <-done:
		if a.err != nil {
			return time.Time{}, fmt.Errorf("whois %s: %w", apex, a.err)
		}
		expiry := extractExpiryDate(a.raw)
		if expiry.IsZero() {
			return time.Time{}, fmt.Errorf("whois %s: %w", apex, ErrExpiryUnknown)
		}
		return expiry, nil
	}
}

var expiryPatterns = []string{
	"Registry Expiry Date:",
	"Registrar Registration Expiration Date:",
	"Expiry Date:",
	"Expiration Date:",
	"Expires:",
	"Expiry:",
	"paid-till:",
}

var expiryFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.0Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func extractExpiryDate(whoisData string) time.Time {
	for _, line := range strings.Split(whoisData, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		for _, pattern := range expiryPatterns {
			if !strings.HasPrefix(lower, strings.ToLower(pattern)) {
				continue
			}
			dateStr := strings.TrimSpace(line[len(pattern):])
			for _, format := range expiryFormats {
				if t, err := time.Parse(format, dateStr); err == nil {
					return t.UTC()
				}
			}
		}
	}
	return time.Time{}
}
