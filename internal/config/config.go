package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These match the behavior of typical spec-corpus crawls: hundreds of
// documents, most of which respond within seconds, with a handful of slow or
// hung outliers that must not stall the batch.
const (
	// DefaultConcurrency is the number of extraction units run in parallel.
	// Ten keeps the crawl well below the point where remote servers start
	// rate limiting while still interleaving slow and fast specs.
	DefaultConcurrency = 10

	// DefaultTimeout is the per-spec hard timeout. A single spec that takes
	// longer than 60 seconds to fetch and extract is treated as hung and
	// terminated; the rest of the batch is unaffected.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent identifies speccheck in HTTP requests so operators
	// of spec hosts can identify crawler traffic in their logs.
	DefaultUserAgent = "speccheck/1.0 (+https://github.com/w3c/speccheck)"

	// DefaultMaxBodySize limits the response body size read per document.
	// 20MB accommodates the largest multi-page specs (HTML, ECMA-262)
	// while preventing memory exhaustion from a misbehaving server.
	DefaultMaxBodySize = 20 * 1024 * 1024

	// AppName is the application name used for XDG directory paths.
	AppName = "speccheck"
)

// Config holds all configuration options for speccheck.
// It is populated from CLI flags and passed through the application by
// dependency injection rather than global state.
type Config struct {
	// SpecListPath is the YAML file listing the specs to crawl.
	SpecListPath string

	// OutDir is the directory crawl and study files are written to.
	OutDir string

	// BaselinePath is an optional prior crawl file to merge new results
	// into. Empty means no merge.
	BaselinePath string

	// Concurrency is the maximum number of concurrent extraction units.
	Concurrency int

	// Timeout is the hard per-spec timeout. A unit exceeding it is
	// terminated and its result synthesized as an error.
	Timeout time.Duration

	// UseNightly crawls editor's drafts instead of latest published
	// versions where both exist.
	UseNightly bool

	// CacheDir is the directory for the on-disk fetch cache.
	// Defaults to the XDG cache directory when empty.
	CacheDir string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Headers are extra HTTP headers sent with every fetch, loaded from the
	// config file. Typically used for Authorization against member-only
	// drafts; values are redacted from log output.
	Headers map[string]string

	// DBDir is the directory for the run-history SQLite database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to record runs in the history database.
	SaveToDB bool

	// JSONReport writes study output as JSON (the default file format).
	JSONReport bool

	// MarkdownReport writes study output as GitHub Flavored Markdown.
	// Mutually exclusive with JSONReport for stdout output.
	MarkdownReport bool
}

// NewConfig creates a Config with default values. Many defaults are non-zero
// (timeout, concurrency), so relying on zero values would not work; the
// constructor also documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		CacheDir:    XDGCacheDir(),
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for speccheck.
// On Linux: ~/.local/share/speccheck
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for speccheck.
// On Linux: ~/.cache/speccheck
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// XDGConfigDir returns the XDG config directory for speccheck.
// On Linux: ~/.config/speccheck
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// sentinel error describing what is wrong. Called once after CLI parsing,
// before any crawling begins, so misconfiguration fails fast.
func (c *Config) Validate() error {
	if c.SpecListPath == "" {
		return ErrNoSpecList
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
