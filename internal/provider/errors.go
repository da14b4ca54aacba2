package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("provider: unauthenticated")
	ErrRateLimited     = errors.New("provider: rate limited")
	ErrNotFound        = errors.New("provider: not found")
	ErrUnavailable     = errors.New("provider: unavailable")
	ErrRejected        = errors.New("provider: rejected")
	ErrUnknown         = errors.New("provider: unknown error")
)

// Error carries the failed operation and provider messages. errors.Is matches
// both the Kind sentinel and the underlying cause.
type Error struct {
	Kind       error
	Op         string
	StatusCode int
	Messages   []string
	Cause      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Op != "" {
		fmt.Fprintf(&b, " (%s", e.Op)
		if e.StatusCode != 0 {
			fmt.Fprintf(&b, ", status %d", e.StatusCode)
		}
		b.WriteString(")")
	}
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	} else if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// KindForStatus maps an HTTP status code from the provider to an error kind.
func KindForStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthenticated
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return ErrUnavailable
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity || code == http.StatusConflict:
		return ErrRejected
	default:
		return ErrUnknown
	}
}

// IsTransient reports whether the caller may retry with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited)
}

// Message returns the provider messages if err is an *Error, else err's text.
func Message(err error) string {
	var pe *Error
	if errors.As(err, &pe) && len(pe.Messages) > 0 {
		return strings.Join(pe.Messages, "; ")
	}
	return err.Error()
}
