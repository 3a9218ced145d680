package langfuse

import (
	"errors"
	"fmt"
	"time"
)

// AuthError indicates the tracing service rejected our credentials. It is
// fatal and never retried.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (status %d): check the configured public/secret key pair",
		e.StatusCode)
}

// RateLimitedError indicates the tracing service throttled us and the
// bounded retry budget was exhausted.
type RateLimitedError struct {
	// RetryAfter is the server-suggested wait, zero when not provided.
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by tracing service, retry after %s", e.RetryAfter)
	}
	return "rate limited by tracing service"
}

// UpstreamError covers network failures and unexpected responses from the
// tracing service. Transient variants (network, 5xx) are retried before
// being surfaced; client errors other than 401/403/429 are not.
type UpstreamError struct {
	StatusCode int // zero for network-level failures
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("tracing service request failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("tracing service unreachable: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// transient reports whether the failure is worth retrying.
func (e *UpstreamError) transient() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// retryable decides which errors the fetch retry policy handles. Auth
// failures and non-throttle client errors are surfaced immediately.
func retryable(err error) bool {
	var rateLimited *RateLimitedError
	if errors.As(err, &rateLimited) {
		return true
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.transient()
	}
	return false
}
