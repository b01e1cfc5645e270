// Package httpclient issues the GET requests behind every registry call.
// It builds URLs from a base and escaped path segments, attaches request
// headers, optionally retries transient failures, and turns non-2xx
// responses into *APIError values.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairbio/fairbio-cli/internal/log"
	"github.com/fairbio/fairbio-cli/internal/tracing"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "fairbio-cli"

	acceptJSON = "application/json"
	acceptAny  = "*/*"
)

// Options configures a Client. The zero value is usable.
type Options struct {
	// Timeout bounds each individual request. Zero means DefaultTimeout.
	Timeout time.Duration
	// UserAgent is sent on every request. Empty means DefaultUserAgent.
	UserAgent string
	// MaxRetries is the number of extra attempts for transport errors,
	// 429 and 5xx responses. Zero disables retries.
	MaxRetries uint64
	// RetryInterval is the initial backoff interval. Zero means 500ms.
	RetryInterval time.Duration
	// Tracer, when set, wraps the transport in client spans.
	Tracer trace.Tracer
	// Transport overrides http.DefaultTransport.
	Transport http.RoundTripper
}

// Client is a thin GET-only HTTP client bound to one base URL.
type Client struct {
	baseURL       string
	http          *http.Client
	userAgent     string
	maxRetries    uint64
	retryInterval time.Duration
}

// New creates a Client for baseURL.
func New(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	interval := opts.RetryInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: tracing.NewTransport(opts.Transport, opts.Tracer),
		},
		userAgent:     ua,
		maxRetries:    opts.MaxRetries,
		retryInterval: interval,
	}
}

// BaseURL returns the URL every request path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins path onto the base URL and appends the encoded query.
// path must already be escaped, see PathEscape.
func (c *Client) URL(path string, query url.Values) string {
	u := strings.TrimRight(c.baseURL, "/")
	if path != "" {
		u += "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		// Encode sorts by key.
		u += "?" + query.Encode()
	}
	return u
}

// PathEscape escapes each segment on its own and joins them with "/".
// Tool ids such as "#workflow/github.com/org/repo" stay one segment.
func PathEscape(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

// GetJSON fetches path and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	rawURL := c.URL(path, query)
	body, header, err := c.get(ctx, rawURL, acceptJSON)
	if err != nil {
		return header, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return header, fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}
	return header, nil
}

// GetBytes fetches path and returns the raw body.
func (c *Client) GetBytes(ctx context.Context, path string, query url.Values) ([]byte, http.Header, error) {
	return c.get(ctx, c.URL(path, query), acceptAny)
}

func (c *Client) get(ctx context.Context, rawURL, accept string) ([]byte, http.Header, error) {
	if c.maxRetries == 0 {
		return c.doOnce(ctx, rawURL, accept)
	}

	var (
		body   []byte
		header http.Header
	)
	op := func() error {
		b, h, err := c.doOnce(ctx, rawURL, accept)
		header = h
		if err != nil {
			if !retryable(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryInterval
	exp.MaxInterval = 5 * time.Second

	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		log.Warn(log.CatHTTP, "request failed, retrying", "url", rawURL, "attempt", attempt, "wait", wait, "error", err)
		trace.SpanFromContext(ctx).AddEvent(tracing.EventRetry, trace.WithAttributes(
			attribute.Int(tracing.AttrRetryAttempt, attempt),
			attribute.String(tracing.AttrHTTPURL, rawURL),
			attribute.String("error", err.Error()),
		))
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(exp, c.maxRetries), ctx), notify)
	if err != nil {
		return nil, header, err
	}
	return body, header, nil
}

func (c *Client) doOnce(ctx context.Context, rawURL, accept string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	log.Debug(log.CatHTTP, "GET", "url", rawURL, "request_id", requestID)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, fmt.Errorf("reading response from %s: %w", rawURL, err)
	}

	log.Debug(log.CatHTTP, "response", "url", rawURL, "status", resp.StatusCode,
		"bytes", len(body), "elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.Header, newAPIError(rawURL, resp, body)
	}
	return body, resp.Header, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}
