package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBudget is the number of attempts for non-rate-limit failures.
	DefaultBudget = 5

	// DefaultBackoffBase is the backoff unit; the n-th retry sleeps base * 2^n.
	DefaultBackoffBase = time.Second

	// DefaultRateLimitMargin is added to every reset wait.
	DefaultRateLimitMargin = time.Second

	// APIVersion is sent as X-GitHub-Api-Version.
	APIVersion = "2022-11-28"

	// mediaType is the Accept header GitHub recommends.
	mediaType = "application/vnd.github+json"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 512
)

// Fetcher performs one logical GET with throttling interpretation and
// bounded retry. Requests are issued one at a time; a Fetcher is not meant
// to be shared between goroutines.
type Fetcher struct {
	client    *http.Client
	token     string
	userAgent string

	budget  int
	base    time.Duration
	margin  time.Duration
	limiter *rate.Limiter

	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBudget sets the number of attempts for non-rate-limit failures.
func WithBudget(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.budget = n
		}
	}
}

// WithBackoffBase sets the backoff unit.
func WithBackoffBase(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.base = d
		}
	}
}

// WithRateLimitMargin sets the extra wait added to rate-limit resets.
func WithRateLimitMargin(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.margin = d
		}
	}
}

// WithRequestsPerSecond paces requests client-side. Zero disables pacing.
func WithRequestsPerSecond(rps float64) Option {
	return func(f *Fetcher) {
		if rps > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			f.limiter = nil
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithLogger sets the logger for retry and rate-limit messages.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithSleep replaces the context-aware sleep. Tests use it to record waits.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// WithNow replaces the clock used to compute rate-limit waits.
func WithNow(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// New creates a Fetcher that authenticates with token.
// A nil client uses http.DefaultClient.
func New(client *http.Client, token string, opts ...Option) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:    client,
		token:     token,
		userAgent: "repocrawl",
		budget:    DefaultBudget,
		base:      DefaultBackoffBase,
		margin:    DefaultRateLimitMargin,
		sleep:     sleepContext,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get fetches url and decodes the JSON body into out.
//
// A 204 response succeeds and leaves out untouched. Rate-limit responses
// are waited out indefinitely; every other failure spends one unit of the
// budget.
//
// A 403 or 429 counts as rate limited when it carries a positive
// Retry-After, or an X-RateLimit-Reset in the future together with an
// X-RateLimit-Remaining that is "0" or absent. A 403 whose Remaining is
// above zero is a permission or abuse refusal, not an exhausted quota, so
// it is retried as a transient failure even when a reset header is
// present. The same holds for a reset that already passed.
//
// When the budget is spent Get returns an error matching ErrExhausted that
// also wraps the last failure. A cancelled context is returned as-is.
func (f *Fetcher) Get(ctx context.Context, url string, out any) error {
	used := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := f.do(ctx, url, out)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var rl *RateLimitError
		if errors.As(err, &rl) {
			f.logger.Warn("rate limited, waiting for reset",
				"url", url,
				"status", rl.StatusCode,
				"wait", rl.Wait,
			)
			if err := f.sleep(ctx, rl.Wait); err != nil {
				return err
			}
			continue
		}

		used++
		if used >= f.budget {
			f.logger.Warn("giving up on request",
				"url", url,
				"attempts", used,
				"error", err,
			)
			return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, used, err)
		}

		backoff := f.base * time.Duration(1<<used)
		f.logger.Warn("request failed, retrying",
			"url", url,
			"attempt", used,
			"budget", f.budget,
			"backoff", backoff,
			"error", err,
		)
		if err := f.sleep(ctx, backoff); err != nil {
			return err
		}
	}
}

// do performs a single attempt.
func (f *Fetcher) do(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", mediaType)
	req.Header.Set("X-GitHub-Api-Version", APIVersion)
	req.Header.Set("User-Agent", f.userAgent)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10)) //nolint:errcheck // drain for connection reuse
		_ = resp.Body.Close()                                         //nolint:errcheck // read-only body
	}()

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		f.logger.Debug("request completed", "url", url, "status", resp.StatusCode, "remaining", remaining)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &DecodeError{URL: url, Err: err}
		}
		return nil
	case http.StatusNoContent:
		return nil
	case http.StatusForbidden, http.StatusTooManyRequests:
		if rl := f.rateLimit(resp); rl != nil {
			return rl
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best-effort excerpt
	return &StatusError{
		StatusCode: resp.StatusCode,
		URL:        url,
		Body:       strings.TrimSpace(string(body)),
	}
}

// rateLimit interprets a 403/429 response. It returns nil when the
// response is not a usable rate-limit signal, in which case the caller
// treats it as transient. A reset already in the past is not usable.
func (f *Fetcher) rateLimit(resp *http.Response) *RateLimitError {
	if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
		var wait time.Duration
		if secs, err := strconv.Atoi(ra); err == nil {
			wait = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(ra); err == nil {
			wait = at.Sub(f.now())
		}
		if wait > 0 {
			return &RateLimitError{StatusCode: resp.StatusCode, Wait: wait}
		}
		return nil
	}

	resetHeader := resp.Header.Get("X-RateLimit-Reset")
	if resetHeader == "" {
		return nil
	}
	if remaining := strings.TrimSpace(resp.Header.Get("X-RateLimit-Remaining")); remaining != "" && remaining != "0" {
		return nil
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(resetHeader), 10, 64)
	if err != nil {
		return nil
	}

	reset := time.Unix(epoch, 0)
	wait := reset.Sub(f.now())
	if wait <= 0 {
		return nil
	}
	return &RateLimitError{
		StatusCode: resp.StatusCode,
		Reset:      reset,
		Wait:       wait + f.margin,
	}
}

// sleepContext sleeps for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
