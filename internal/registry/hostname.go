package registry

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/leozw/domain-guardian/internal/core"
)

var labelRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// NormalizeHostname lowercases, trims a trailing dot and validates each label.
func NormalizeHostname(raw string) (string, error) {
	h := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), ".")
	if h == "" {
		return "", fmt.Errorf("hostname is empty: %w", core.ErrInvalidInput)
	}
	if len(h) > 253 {
		return "", fmt.Errorf("hostname must be under 253 characters: %w", core.ErrInvalidInput)
	}
	if net.ParseIP(h) != nil {
		return "", fmt.Errorf("hostname %q is an IP address: %w", h, core.ErrInvalidInput)
	}

	labels := strings.Split(h, ".")
	if len(labels) < 2 {
		return "", fmt.Errorf("hostname %q needs at least two labels: %w", h, core.ErrInvalidInput)
	}
	for _, label := range labels {
		if !labelRegex.MatchString(label) {
			return "", fmt.Errorf("hostname %q has invalid label %q: %w", h, label, core.ErrInvalidInput)
		}
	}
	// TLDs are never all-numeric.
	if strings.Trim(labels[len(labels)-1], "0123456789") == "" {
		return "", fmt.Errorf("hostname %q has a numeric top-level label: %w", h, core.ErrInvalidInput)
	}
	return h, nil
}
