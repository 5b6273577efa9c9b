// Package api is the console's client for the transit backend.
//
// Reads never fail: on authentication expiry, HTTP errors or transport
// errors they resolve to a fixed mock payload for the endpoint. Writes
// never fall back; they return the error and notify the operator.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/Veraticus/smarttransit/internal/common"
	"github.com/Veraticus/smarttransit/internal/service"
	"github.com/go-playground/validator/v10"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// AuthFunc reports whether the console holds a usable session.
type AuthFunc func(ctx context.Context) bool

// AlwaysAuthenticated is the default AuthFunc.
func AlwaysAuthenticated(context.Context) bool { return true }

// Client talks to the transit backend.
type Client struct {
	httpClient *http.Client
	auth       AuthFunc
	notifier   service.Notifier
	validate   *validator.Validate
	progress   io.Writer
	baseURL    string
	retry      service.RetryOptions
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. A cookie jar is added when missing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAuth injects the authentication predicate.
func WithAuth(auth AuthFunc) Option {
	return func(c *Client) {
		c.auth = auth
	}
}

// WithNotifier sets where write failures are reported.
func WithNotifier(n service.Notifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetry configures retries for report downloads.
func WithRetry(opts service.RetryOptions) Option {
	return func(c *Client) {
		c.retry = opts
	}
}

// WithProgress renders a progress bar for downloads on w.
func WithProgress(w io.Writer) Option {
	return func(c *Client) {
		c.progress = w
	}
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: api base url", common.ErrMissingConfig)
	}

	c := &Client{
		baseURL:  baseURL,
		auth:     AlwaysAuthenticated,
		notifier: service.Discard,
		validate: validator.New(),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	return c, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOption customizes a single request.
type RequestOption func(*http.Request)

// WithHeader sets a request header. Caller headers override the client's
// base headers.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// Fetch reads endpoint. It never fails: on any error it returns the mock
// payload for the endpoint, which may be nil.
func (c *Client) Fetch(ctx context.Context, endpoint string, opts ...RequestOption) *Payload {
	if !c.auth(ctx) {
		slog.Info("Not authenticated, serving mock data", "endpoint", endpoint)
		return MockPayload(endpoint)
	}

	payload, err := c.do(ctx, http.MethodGet, endpoint, nil, opts...)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrAuthExpired):
			slog.Info("Session expired, serving mock data", "endpoint", endpoint)
		case errors.Is(err, context.Canceled):
			slog.Debug("Request canceled, serving mock data", "endpoint", endpoint)
		default:
			slog.Error("API error, serving mock data", "endpoint", endpoint, "error", err)
		}
		return MockPayload(endpoint)
	}

	return payload
}

// Probe performs a raw GET and reports any failure. It bypasses the mock
// fallback and is meant for liveness checks.
func (c *Client) Probe(ctx context.Context, endpoint string) error {
	_, err := c.do(ctx, http.MethodGet, endpoint, nil, WithHeader("Accept", "application/json"))
	return err
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader, opts ...RequestOption) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	for _, opt := range opts {
		opt(req)
	}
	return req, nil
}

// do issues a request and converts the outcome into the error taxonomy.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, opts ...RequestOption) (*Payload, error) {
	req, err := c.newRequest(ctx, method, endpoint, body, opts...)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", common.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &common.HTTPError{
			Method: method,
			URL:    endpoint,
			Status: resp.StatusCode,
			Body:   string(snippet),
		}
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", common.ErrNetwork, err)
	}

	return &Payload{
		Body:   data,
		JSON:   isJSON(resp.Header.Get("Content-Type")),
		Source: SourceBackend,
	}, nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
