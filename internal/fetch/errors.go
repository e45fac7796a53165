package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

var (
	// ErrExhausted is returned when the retry budget for one request is
	// spent. It wraps the last transient failure.
	ErrExhausted = errors.New("retry budget exhausted")

	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// could be established.
	ErrProxyCannotConnect = errors.New("cannot connect to SOCKS5 proxy")

	// ErrProxyNotSOCKS5 is returned when the proxy answers but does not
	// speak unauthenticated SOCKS5.
	ErrProxyNotSOCKS5 = errors.New("proxy is not an unauthenticated SOCKS5 proxy")

	// ErrProxyTimeout is returned when the proxy handshake times out.
	ErrProxyTimeout = errors.New("timeout connecting to SOCKS5 proxy")
)

// RateLimitError reports a throttling response. The Fetcher waits it out
// and retries without spending budget; callers only see it through Kind or
// in logs.
type RateLimitError struct {
	// StatusCode is 403 or 429.
	StatusCode int

	// Reset is when the quota window rolls over. Zero when the server sent
	// Retry-After instead.
	Reset time.Time

	// Wait is how long the Fetcher sleeps before retrying.
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return fmt.Sprintf("rate limited (status %d): retry after %s", e.StatusCode, e.Wait)
	}
	return fmt.Sprintf("rate limited (status %d): quota resets at %s, waiting %s",
		e.StatusCode, e.Reset.UTC().Format(time.RFC3339), e.Wait)
}

// StatusError is a non-200 response that is not a rate-limit signal.
type StatusError struct {
	StatusCode int
	URL        string
	// Body is the beginning of the response body, for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// DecodeError is a 200 response whose body is not the expected JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("GET %s: decode response: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies fetch failures.
type ErrorKind int

const (
	// KindUnknown is any error the fetch package did not produce.
	KindUnknown ErrorKind = iota
	// KindRateLimited is a throttling response.
	KindRateLimited
	// KindTransient is a failure worth retrying.
	KindTransient
	// KindExhausted means the retry budget was spent.
	KindExhausted
	// KindCanceled is context cancellation or deadline expiry.
	KindCanceled
)

// String returns the kind name used in logs.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindExhausted:
		return "exhausted"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Kind classifies err. ErrExhausted wins over the cause it wraps.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrExhausted) {
		return KindExhausted
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}

	var (
		rl     *RateLimitError
		status *StatusError
		decode *DecodeError
		urlErr *url.Error
		netErr net.Error
	)
	switch {
	case errors.As(err, &rl):
		return KindRateLimited
	case errors.As(err, &status), errors.As(err, &decode),
		errors.As(err, &urlErr), errors.As(err, &netErr):
		return KindTransient
	}
	return KindUnknown
}
