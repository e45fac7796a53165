// Package config provides configuration structures and utilities for repocrawl.
// It defines crawl settings (categories, sort criteria, page size, targets),
// retry and rate-limit tuning, credentials, and where the store lives.
//
// Values are resolved in this order, later sources winning:
// built-in defaults, the YAML configuration file, the environment
// (including a .env file), and command-line flags.
package config
