// Package arr provides the HTTP client shared by the Radarr and Sonarr
// integrations: X-Api-Key authentication, JSON decoding, status checks, and
// optional request throttling.
package arr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"moversync/internal/services"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// StatusTimeout bounds connectivity checks.
const StatusTimeout = 5 * time.Second

// HTTPDoer describes the HTTP client used by the manager integrations.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config contains options for creating a Client.
type Config struct {
	// Name labels errors and logs ("radarr", "sonarr").
	Name    string
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RequestsPerSecond throttles requests when positive.
	RequestsPerSecond float64
	HTTPClient        HTTPDoer
}

// Client talks to a single *arr instance.
type Client struct {
	name    string
	baseURL string
	apiKey  string
	timeout time.Duration
	http    HTTPDoer
	limiter *rate.Limiter
}

// SystemStatus is the subset of /api/v3/system/status used for connectivity checks.
type SystemStatus struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
}

// TagResource mirrors the /api/v3/tag payload.
type TagResource struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// New creates a client. A client without URL or API key is still returned so
// callers can report ErrConfiguration at request time.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{}
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Client{
		name:    strings.TrimSpace(cfg.Name),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		timeout: timeout,
		http:    doer,
		limiter: limiter,
	}
}

// Name returns the manager label.
func (c *Client) Name() string {
	return c.name
}

// Configured reports whether URL and API key are set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

// Status fetches the system status with the short connectivity timeout.
func (c *Client) Status(ctx context.Context) (SystemStatus, error) {
	var status SystemStatus
	err := c.get(ctx, "/api/v3/system/status", nil, StatusTimeout, &status)
	return status, err
}

// Tags lists all tags defined on the instance.
func (c *Client) Tags(ctx context.Context) ([]TagResource, error) {
	var tags []TagResource
	if err := c.Get(ctx, "/api/v3/tag", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// Get performs a GET request and decodes the JSON response into result.
func (c *Client) Get(ctx context.Context, path string, query url.Values, result any) error {
	return c.get(ctx, path, query, c.timeout, result)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, timeout time.Duration, result any) error {
	if !c.Configured() {
		return services.Wrap(services.ErrConfiguration, c.label(), path, "url and api key must be set", nil)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return services.Wrap(services.ErrUnavailable, c.label(), path, "rate limiter", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, c.label(), path, "build request", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		marker := services.ErrUnavailable
		if services.IsTimeout(err) {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, c.label(), path, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.ErrUnavailable, c.label(), path,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return services.Wrap(services.ErrUnavailable, c.label(), path, "decode response", err)
	}
	return nil
}

func (c *Client) label() string {
	if c == nil || c.name == "" {
		return "arr"
	}
	return c.name
}
