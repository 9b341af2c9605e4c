package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus is matched by every *StatusError.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrTransport wraps network-level failures: DNS, refused connections,
	// timeouts and oversized bodies.
	ErrTransport = errors.New("transport error")

	// ErrInvalidURL is returned when the address is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid URL: must be an absolute http or https URL")
)

// StatusError reports a response whose status was not 200.
// The page is treated as absent.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d from %s", ErrUnexpectedStatus, e.StatusCode, e.URL)
}

// Is makes errors.Is(err, ErrUnexpectedStatus) true for any StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// IsAbsent reports whether err means the page is absent (non-200 status).
func IsAbsent(err error) bool {
	return errors.Is(err, ErrUnexpectedStatus)
}
