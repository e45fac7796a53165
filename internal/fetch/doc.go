// Package fetch performs rate-limit-aware GET requests against the GitHub
// REST API.
//
// A Fetcher turns one URL into one decoded JSON document. It interprets the
// API's throttling signals and retries transient failures with exponential
// backoff under a bounded budget:
//
//   - A rate-limit response (403 or 429 with Retry-After, or with
//     X-RateLimit-Reset and no remaining quota) is waited out until the
//     reset time plus a margin. Rate-limit waits do not consume budget.
//   - Any other failure (non-200 status, transport error, malformed body)
//     consumes one unit of budget. While budget remains the Fetcher sleeps
//     base * 2^n and retries; once it is spent Get returns ErrExhausted.
//   - Context cancellation is never retried.
//
// Callers treat ErrExhausted as "no data for this request".
//
// NewHTTPClient builds the underlying *http.Client, optionally routed
// through a SOCKS5 proxy.
package fetch
