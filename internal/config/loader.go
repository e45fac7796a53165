package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".repocrawl.yaml"

// TokenEnv is the environment variable holding the GitHub token.
const TokenEnv = "GITHUB_TOKEN"

// File represents the structure of the .repocrawl.yaml configuration file.
// Zero values mean "not set" and leave the defaults untouched.
type File struct {
	// Token is the GitHub access token.
	Token string `yaml:"token,omitempty"`

	// LegacyToken accepts the {"GITHUB_TOKEN": "..."} shape of the old
	// config.json. JSON is valid YAML, so that file loads as-is.
	LegacyToken string `yaml:"GITHUB_TOKEN,omitempty"`

	APIURL            string        `yaml:"api_url,omitempty"`
	Categories        []string      `yaml:"categories,omitempty"`
	Sorts             []string      `yaml:"sorts,omitempty"`
	Qualifier         string        `yaml:"qualifier,omitempty"`
	Target            int           `yaml:"target,omitempty"`
	PageSize          int           `yaml:"page_size,omitempty"`
	Contributors      int           `yaml:"contributors,omitempty"`
	RetryBudget       int           `yaml:"retry_budget,omitempty"`
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	Proxy             string        `yaml:"proxy,omitempty"`
	UserAgent         string        `yaml:"user_agent,omitempty"`

	// SkipProcessed is a pointer so that an explicit false can be told
	// apart from an absent key.
	SkipProcessed *bool  `yaml:"skip_processed,omitempty"`
	MarkPolicy    string `yaml:"mark_policy,omitempty"`
	Schedule      string `yaml:"schedule,omitempty"`
	DBDir         string `yaml:"db_dir,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. If configPath is specified, use it directly
//  2. .repocrawl.yaml in the current directory
//  3. .repocrawl.yaml in the user's home directory
//  4. config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Apply copies every value set in the file onto cfg.
func (f *File) Apply(cfg *Config) {
	if f.Token != "" {
		cfg.Token = f.Token
	} else if f.LegacyToken != "" {
		cfg.Token = f.LegacyToken
	}
	if f.APIURL != "" {
		cfg.APIURL = f.APIURL
	}
	if len(f.Categories) > 0 {
		cfg.Categories = f.Categories
	}
	if len(f.Sorts) > 0 {
		cfg.Sorts = f.Sorts
	}
	if f.Qualifier != "" {
		cfg.Qualifier = f.Qualifier
	}
	if f.Target != 0 {
		cfg.Target = f.Target
	}
	if f.PageSize != 0 {
		cfg.PageSize = f.PageSize
	}
	if f.Contributors != 0 {
		cfg.ContributorLimit = f.Contributors
	}
	if f.RetryBudget != 0 {
		cfg.RetryBudget = f.RetryBudget
	}
	if f.RequestsPerSecond != 0 {
		cfg.RequestsPerSecond = f.RequestsPerSecond
	}
	if f.Timeout != 0 {
		cfg.Timeout = f.Timeout
	}
	if f.Proxy != "" {
		cfg.ProxyAddress = f.Proxy
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.SkipProcessed != nil {
		cfg.SkipProcessed = *f.SkipProcessed
	}
	if f.MarkPolicy != "" {
		cfg.MarkPolicy = f.MarkPolicy
	}
	if f.Schedule != "" {
		cfg.Schedule = f.Schedule
	}
	if f.DBDir != "" {
		cfg.DBDir = f.DBDir
	}
}

// LoadEnv loads KEY=VALUE pairs from the given .env files into the process
// environment. Variables that are already set are not overridden and
// missing files are ignored.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ResolveToken overrides cfg.Token with the GITHUB_TOKEN variable when it
// is set. lookup is normally os.LookupEnv.
func ResolveToken(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(TokenEnv); ok && strings.TrimSpace(v) != "" {
		cfg.Token = strings.TrimSpace(v)
	}
}
