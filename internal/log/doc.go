// Package log provides secure logging built on top of the standard slog
// package.
//
// The SecureHandler wraps any slog.Handler and masks credentials before a
// record reaches the output:
//   - attributes whose key names a credential (authorization, token, cookie)
//   - values that look like GitHub tokens (ghp_, gho_, ghs_, github_pat_)
//   - bearer and token authorization values
//
// Token-shaped substrings inside longer messages and error strings are
// replaced in place, so a failing request that echoes its headers cannot
// leak the access token into a shared log.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, log.Level(verbose, slog.LevelInfo))
//	logger.Warn("retrying request", "url", url, "authorization", header)
//	slog.SetDefault(logger)
package log
