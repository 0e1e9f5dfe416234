package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benjaminestes/robots/v2"
)

// Fetch errors.
var (
	// ErrBlockedByRobots is returned when robots.txt disallows the URL for
	// our user agent.
	ErrBlockedByRobots = errors.New("blocked by robots.txt")

	// ErrHTTPStatus is returned (wrapped, with the status code) when the
	// server answers with a non-success status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// Response is the outcome of one fetch.
type Response struct {
	// URL is the requested URL.
	URL string `json:"url"`

	// Status is the HTTP status code.
	Status int `json:"status"`

	// ContentType is the response Content-Type header.
	ContentType string `json:"content_type,omitempty"`

	// Body is the response body, possibly truncated to the configured
	// maximum size.
	Body []byte `json:"-"`

	// FromCache is true when the response was served from the disk cache.
	FromCache bool `json:"-"`
}

// Options configures a Client.
type Options struct {
	// CacheDir is the directory for the on-disk response cache.
	// Empty disables caching.
	CacheDir string

	// UserAgent is sent with every request and used for robots.txt checks.
	UserAgent string

	// Headers are extra headers added to every request.
	Headers map[string]string

	// MaxBodySize truncates response bodies larger than this many bytes.
	// Zero means no limit.
	MaxBodySize int64

	// CheckRobots enables per-host robots.txt politeness checks before
	// uncached fetches.
	CheckRobots bool

	// Timeout bounds each individual HTTP request. The per-spec crawl
	// timeout is enforced separately by the scheduler.
	Timeout time.Duration

	// Logger is used for fetch-level logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client fetches URLs with transparent disk caching and robots politeness.
// It is safe for use by a single owner goroutine; concurrent use is
// serialized by the scheduler's fetch proxy rather than by locking here,
// except for the robots matcher cache which is guarded for the benefit of
// tests that exercise the client directly.
type Client struct {
	httpClient *http.Client
	opts       Options

	// robotsMatchers caches one matcher per robots.txt URL.
	robotsMu       sync.Mutex
	robotsMatchers map[string]func(string) bool
}

// NewClient creates a fetch client. The cache directory is created when
// caching is enabled.
func NewClient(opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CacheDir != "" {
		if err := os.MkdirAll(opts.CacheDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		opts:           opts,
		robotsMatchers: make(map[string]func(string) bool),
	}, nil
}

// Fetch returns the content at url, serving from the disk cache when a
// cached copy exists.
func (c *Client) Fetch(ctx context.Context, url string) (*Response, error) {
	if cached, ok := c.readCache(url); ok {
		c.opts.Logger.Debug("cache hit", "url", url)
		return cached, nil
	}

	if c.opts.CheckRobots && !c.allowedByRobots(ctx, url) {
		return nil, fmt.Errorf("%w: %s", ErrBlockedByRobots, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d for %s", ErrHTTPStatus, resp.StatusCode, url)
	}

	var reader io.Reader = resp.Body
	if c.opts.MaxBodySize > 0 {
		reader = io.LimitReader(resp.Body, c.opts.MaxBodySize)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	result := &Response{
		URL:         url,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}

	c.writeCache(url, result)
	c.opts.Logger.Debug("fetched", "url", url, "status", result.Status, "bytes", len(body))
	return result, nil
}

// allowedByRobots checks the host's robots.txt for the URL.
// A robots.txt that cannot be fetched is treated as a server error, which
// the robots library interprets as "disallow all" per the standard.
func (c *Client) allowedByRobots(ctx context.Context, fullurl string) bool {
	rtxtURL, err := robots.Locate(fullurl)
	if err != nil {
		return false
	}

	c.robotsMu.Lock()
	matcher, ok := c.robotsMatchers[rtxtURL]
	c.robotsMu.Unlock()
	if !ok {
		matcher = c.loadRobots(ctx, rtxtURL)
		c.robotsMu.Lock()
		c.robotsMatchers[rtxtURL] = matcher
		c.robotsMu.Unlock()
	}

	return matcher(fullurl)
}

// loadRobots fetches and parses one robots.txt, returning a matcher for our
// user agent.
func (c *Client) loadRobots(ctx context.Context, rtxtURL string) func(string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rtxtURL, nil)
	if err != nil {
		rtxt, _ := robots.From(503, nil) //nolint:errcheck // nil body never fails
		return rtxt.Tester(c.opts.UserAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		rtxt, _ := robots.From(503, nil) //nolint:errcheck // nil body never fails
		return rtxt.Tester(c.opts.UserAgent)
	}
	defer resp.Body.Close()

	rtxt, err := robots.From(resp.StatusCode, resp.Body)
	if err != nil {
		rtxt, _ = robots.From(503, nil) //nolint:errcheck // nil body never fails
	}
	return rtxt.Tester(c.opts.UserAgent)
}

// cacheMeta is the sidecar metadata stored alongside each cached body.
type cacheMeta struct {
	URL         string    `json:"url"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type,omitempty"`
	Date        time.Time `json:"date"`
}

// cachePaths returns the body and metadata file paths for a URL.
func (c *Client) cachePaths(url string) (body, meta string) {
	sum := sha256.Sum256([]byte(url))
	key := hex.EncodeToString(sum[:])
	return filepath.Join(c.opts.CacheDir, key+".body"),
		filepath.Join(c.opts.CacheDir, key+".json")
}

// readCache loads a cached response, reporting whether one existed.
func (c *Client) readCache(url string) (*Response, bool) {
	if c.opts.CacheDir == "" {
		return nil, false
	}
	bodyPath, metaPath := c.cachePaths(url)

	metaData, err := os.ReadFile(metaPath) //nolint:gosec // Path derived from hash
	if err != nil {
		return nil, false
	}
	var meta cacheMeta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, false
	}
	body, err := os.ReadFile(bodyPath) //nolint:gosec // Path derived from hash
	if err != nil {
		return nil, false
	}

	return &Response{
		URL:         url,
		Status:      meta.Status,
		ContentType: meta.ContentType,
		Body:        body,
		FromCache:   true,
	}, true
}

// writeCache stores a response in the disk cache. Cache write failures are
// logged and otherwise ignored; the fetch itself succeeded.
func (c *Client) writeCache(url string, resp *Response) {
	if c.opts.CacheDir == "" {
		return
	}
	bodyPath, metaPath := c.cachePaths(url)

	meta, err := json.Marshal(cacheMeta{
		URL:         url,
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Date:        time.Now().UTC(),
	})
	if err != nil {
		c.opts.Logger.Warn("cache metadata marshal failed", "url", url, "error", err)
		return
	}

	if err := os.WriteFile(bodyPath, resp.Body, 0600); err != nil {
		c.opts.Logger.Warn("cache write failed", "url", url, "error", err)
		return
	}
	if err := os.WriteFile(metaPath, meta, 0600); err != nil {
		c.opts.Logger.Warn("cache write failed", "url", url, "error", err)
		_ = os.Remove(bodyPath) //nolint:errcheck // Best effort cleanup
	}
}
