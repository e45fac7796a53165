package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys that should always be sanitized.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"token":               true,
	"github_token":        true,
	"access_token":        true,
	"password":            true,
	"secret":              true,
	"client_secret":       true,
	"credentials":         true,
}

// sensitiveKeywords mark a key as sensitive when it contains any of them.
// The bare "key" is excluded because it matches "primary_key" and friends.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "credential", "auth",
}

// sensitivePatterns match whole values that must be masked.
var sensitivePatterns = []*regexp.Regexp{
	// Bearer and token authorization header values
	regexp.MustCompile(`(?i)^(bearer|token)\s+\S+`),

	// Basic auth
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// JWT, used by GitHub App installation flows
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
}

// tokenPattern finds GitHub tokens anywhere inside a string: classic
// personal (ghp_), OAuth (gho_), user-to-server (ghu_), server-to-server
// (ghs_), refresh (ghr_) and fine-grained (github_pat_) tokens.
var tokenPattern = regexp.MustCompile(`\b(gh[pousr]_[A-Za-z0-9]{20,}|github_pat_[A-Za-z0-9_]{20,})\b`)

// inlineAuthPattern finds "Bearer <value>" inside longer text.
var inlineAuthPattern = regexp.MustCompile(`(?i)\b(bearer|token)\s+[A-Za-z0-9_\-.=]{8,}`)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler to sanitize sensitive information.
// Attribute values that match sensitive key names or value patterns are
// replaced with MaskValue; tokens embedded in messages, strings and errors
// are replaced in place.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, the returned SecureHandler will use slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's message and attributes and passes it to the
// underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, Scrub(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are sanitized before being added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

// sanitizeAttr sanitizes a single attribute, recursively handling groups.
func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if isSensitiveValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		if scrubbed := Scrub(s); scrubbed != s {
			return slog.String(a.Key, scrubbed)
		}
	case slog.KindAny:
		// errors carry request details; render them and scrub the text
		if err, ok := a.Value.Any().(error); ok && err != nil {
			msg := err.Error()
			if scrubbed := Scrub(msg); scrubbed != msg {
				return slog.String(a.Key, scrubbed)
			}
		}
	}

	return a
}

// isSensitiveKey reports whether an attribute key names a credential.
func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue checks if a whole value matches a sensitive pattern.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// Scrub replaces GitHub tokens and inline bearer credentials found anywhere
// in s with MaskValue.
func Scrub(s string) string {
	s = tokenPattern.ReplaceAllString(s, MaskValue)
	return inlineAuthPattern.ReplaceAllString(s, "${1} "+MaskValue)
}

// Level picks the log level for a command: Debug when verbose, base otherwise.
func Level(verbose bool, base slog.Level) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return base
}

// NewSecureLogger creates a text slog.Logger that sanitizes all output.
func NewSecureLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, opts)))
}

// NewSecureJSONLogger creates a JSON slog.Logger that sanitizes all output.
// Useful for structured log aggregation of scheduled crawls.
func NewSecureJSONLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, opts)))
}
