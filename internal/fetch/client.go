// Package fetch downloads Baseline data and assembles lock snapshots.
//
// Two sources are combined: the web-features dataset, which maps
// compatibility keys to feature ids, and the Web Status API, which carries
// each feature's Baseline status and dates.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultWebStatusURL = "https://api.webstatus.dev/v1/features"
	DefaultDatasetURL   = "https://unpkg.com/web-features@latest/data.json"
	DefaultTimeout      = 30 * time.Second
)

// DefaultStatuses are queried when the caller names none.
var DefaultStatuses = []string{"widely", "newly", "limited"}

// Client talks to the Web Status API and the web-features CDN.
type Client struct {
	http         *http.Client
	webStatusURL string
	datasetURL   string
	userAgent    string
	cacheDir     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client with a 30s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithWebStatusURL overrides the features endpoint.
func WithWebStatusURL(u string) Option {
	return func(cl *Client) {
		cl.webStatusURL = u
	}
}

// WithDatasetURL overrides the web-features data.json location.
func WithDatasetURL(u string) Option {
	return func(cl *Client) {
		cl.datasetURL = u
	}
}

// WithCacheDir stores raw responses under dir so later runs can work
// offline. An empty dir disables the cache.
func WithCacheDir(dir string) Option {
	return func(cl *Client) {
		cl.cacheDir = dir
	}
}

// NewClient creates a Client identifying itself as baseline-warden/version.
func NewClient(version string, opts ...Option) *Client {
	c := &Client{
		http:         &http.Client{Timeout: DefaultTimeout},
		webStatusURL: DefaultWebStatusURL,
		datasetURL:   DefaultDatasetURL,
		userAgent:    "baseline-warden/" + version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// getJSON fetches rawURL and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}
