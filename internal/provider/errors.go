// Package provider holds the error taxonomy for calls against the remote
// fitness API. Both the authorization coordinator and the activity feed
// client talk to the same provider and map HTTP failures the same way.
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrUpstreamUnavailable marks transient provider failures (5xx, timeouts).
// Callers may retry with backoff; nothing retries internally.
var ErrUpstreamUnavailable = errors.New("provider upstream unavailable")

// defaultRateLimitWindow is the provider's rate-limit window, used when the
// response carries no Retry-After header.
const defaultRateLimitWindow = 15 * time.Minute

// RateLimitError is returned on HTTP 429. RetryAfter is the earliest moment
// the caller should retry, taken from the provider's Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limited, retry after %s", e.RetryAfter)
}

// StatusError maps a non-2xx response status to the shared taxonomy.
// It returns nil for statuses the caller must interpret itself (401, 403, ...).
func StatusError(status int, header http.Header) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(header)}
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, status)
	default:
		return nil
	}
}

func retryAfter(header http.Header) time.Duration {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRateLimitWindow
}
