// Package asaas is a small client for the Asaas payments REST API.
package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/gosuda/mentorpro/internal/metrics"
)

const (
	SandboxBaseURL    = "https://api-sandbox.asaas.com/v3"
	ProductionBaseURL = "https://api.asaas.com/v3"
)

const maxErrorBody = 64 << 10

// Options tunes every Client built from them.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	// BaseURL overrides the sandbox/production switch when set.
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to one Asaas account.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	validate *validator.Validate
}

// New creates a Client for the given API key.
func New(apiKey string, sandbox bool, opts Options) *Client {
	baseURL := ProductionBaseURL
	if sandbox {
		baseURL = SandboxBaseURL
	}
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, burst),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// BaseURL returns the API root the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks that the credentials are accepted.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{"limit": {"1"}}
	return c.do(ctx, "ping", http.MethodGet, "/customers", q, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("asaas.%s: %w", op, err)
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("asaas.%s: encode: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("asaas.%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("asaas.%s: %w: %w", op, ErrUpstream, err)
	}
	defer resp.Body.Close()

	metrics.GatewayRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode/100)+"xx").Inc()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Op: op, StatusCode: resp.StatusCode, Body: raw}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("asaas.%s: decode: %w: %w", op, ErrUpstream, err)
	}
	return nil
}

// page is the envelope Asaas wraps list responses in.
type page[T any] struct {
	HasMore    bool `json:"hasMore"`
	TotalCount int  `json:"totalCount"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	Data       []T  `json:"data"`
}
