// Package api wraps the LMeterX backend REST interface. Every call is
// normalized into an Envelope so callers see a uniform shape regardless of
// which endpoint produced it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/ymghtzz/LMeterX-sub000/internal/logging"
	"github.com/ymghtzz/LMeterX-sub000/internal/metrics"
)

const (
	// DefaultTimeout applies to most endpoints.
	DefaultTimeout = 30 * time.Second

	// ResultsTimeout applies to result and comparison fetches, which can
	// aggregate large runs server-side.
	ResultsTimeout = 60 * time.Second

	// AnalysisTimeout applies to AI report generation, which calls out to
	// an LLM and can take minutes.
	AnalysisTimeout = 5 * time.Minute

	defaultAPIPrefix = "/api"
)

// taskIDPattern validates task identifiers before they are placed in a path
// or query string.
var taskIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateTaskID checks a task identifier against the allowed pattern.
func ValidateTaskID(id string) error {
	if !taskIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidTaskID, id)
	}
	return nil
}

// Pagination carries list paging metadata when the backend returns any.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Envelope is the uniform response shape every call is normalized into.
// A 304 from the backend is coerced into a synthetic 200 with empty data
// rather than being surfaced as an error.
type Envelope struct {
	Data       json.RawMessage `json:"data"`
	Status     int             `json:"status"`
	StatusText string          `json:"statusText"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// Decode unmarshals the envelope data into out.
func (e *Envelope) Decode(out any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}

// Client talks to the LMeterX backend.
type Client struct {
	baseURL    string
	apiPrefix  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAPIPrefix overrides the default "/api" path prefix.
func WithAPIPrefix(prefix string) Option {
	return func(c *Client) {
		c.apiPrefix = prefix
	}
}

// WithRateLimit sets the client-side request rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a backend client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		apiPrefix: defaultAPIPrefix,
		// Per-call deadlines come from contexts; no client-wide timeout
		// so the 5 minute analysis calls are not cut short.
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// endpoint joins the base URL, API prefix, and path.
func (c *Client) endpoint(path string) string {
	return c.baseURL + c.apiPrefix + path
}

// do performs one request and normalizes the outcome into an Envelope.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, timeout time.Duration) (*Envelope, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequestSetup, err)
		}
		reader = bytes.NewReader(buf)
	}

	reqURL := c.endpoint(path)
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestSetup, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	operation := method + " " + path
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(method, path, "network_error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	defer resp.Body.Close()

	metrics.RecordAPIRequest(method, path, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	// Not-modified means the caller's view is already current. Coerce it
	// into an empty success so poll loops treat it as a no-op tick.
	if resp.StatusCode == http.StatusNotModified {
		return &Envelope{
			Data:       json.RawMessage(`[]`),
			Status:     http.StatusOK,
			StatusText: http.StatusText(http.StatusOK),
		}, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Debug(ctx, "backend returned error response",
			slog.String("operation", operation),
			slog.Int("status", resp.StatusCode))
		return nil, newAPIError(operation, resp.StatusCode, respBody)
	}

	env := &Envelope{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
	}

	// Backend list endpoints wrap their payload as {data, pagination};
	// everything else returns the resource directly.
	var wrapped struct {
		Data       json.RawMessage `json:"data"`
		Pagination *Pagination     `json:"pagination"`
	}
	if err := json.Unmarshal(respBody, &wrapped); err == nil && len(wrapped.Data) > 0 {
		env.Data = wrapped.Data
		env.Pagination = wrapped.Pagination
	} else {
		env.Data = respBody
	}

	return env, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, timeout time.Duration) (*Envelope, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, timeout)
}

func (c *Client) post(ctx context.Context, path string, body any, timeout time.Duration) (*Envelope, error) {
	return c.do(ctx, http.MethodPost, path, nil, body, timeout)
}

func (c *Client) put(ctx context.Context, path string, body any, timeout time.Duration) (*Envelope, error) {
	return c.do(ctx, http.MethodPut, path, nil, body, timeout)
}

func (c *Client) delete(ctx context.Context, path string, query url.Values, timeout time.Duration) (*Envelope, error) {
	return c.do(ctx, http.MethodDelete, path, query, nil, timeout)
}

// Health verifies the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "/health", nil, DefaultTimeout)
	return err
}
