// Package fetch retrieves and normalizes product detail records from the
// catalog API, with a fixed-delay retry policy and error classification.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for fetch operations.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_fetch_requests_total",
		Help: "Total fetch attempts by outcome",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvester_fetch_duration_seconds",
		Help:    "Duration of a single fetch attempt in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_fetch_errors_total",
		Help: "Total fetch attempt errors by class",
	}, []string{"class"})
)

// Config holds the fetcher configuration.
type Config struct {
	// URLTemplate is the catalog endpoint with a single %s slot for the
	// product ID.
	URLTemplate string

	// UserAgent sent with every request. Required; the catalog rejects
	// requests without a browser-like agent.
	UserAgent string

	// AcceptLanguage header value.
	AcceptLanguage string

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// Retry policy (fixed delay, fixed attempt count).
	Retry RetryConfig
}

// DefaultConfig returns the fetcher defaults matching the production
// catalog endpoint.
func DefaultConfig() Config {
	return Config{
		URLTemplate:    "https://api.tiki.vn/product-detail/api/v1/products/%s",
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.9",
		Timeout:        10 * time.Second,
		Retry:          DefaultRetryConfig(),
	}
}

// Client fetches product records. It holds no per-request mutable state,
// so a single Client is safe for concurrent use by many workers.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new fetch client.
func New(cfg Config) (*Client, error) {
	if !strings.Contains(cfg.URLTemplate, "%s") {
		return nil, fmt.Errorf("url template must contain a %%s slot (got %q)", cfg.URLTemplate)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := log.With().Str("component", "fetch").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// Fetch retrieves one product record. It performs up to MaxRetries attempts
// with a fixed delay between them; after the last failure it returns an
// error wrapping ErrRetryExhausted and no Record. A non-nil Record is always
// fully formed.
func (c *Client) Fetch(ctx context.Context, id string) (*Record, error) {
	var rec *Record

	err := retryFixed(ctx, c.config.Retry, func() error {
		var attemptErr error
		rec, attemptErr = c.attempt(ctx, id)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("product_id", id).Msg("Fetched product")
	return rec, nil
}

// attempt performs a single network read and parse.
func (c *Client) attempt(ctx context.Context, id string) (*Record, error) {
	url := fmt.Sprintf(c.config.URLTemplate, id)

	startTime := time.Now()
	defer func() {
		fetchDuration.Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.config.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", c.config.AcceptLanguage)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(&Error{ID: id, Class: ErrorClassNetwork, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused across retries.
		io.Copy(io.Discard, resp.Body)

		class := ErrorClassServer
		if resp.StatusCode < 500 {
			class = ErrorClassClient
		}
		return nil, c.fail(&Error{
			ID:         id,
			StatusCode: resp.StatusCode,
			Class:      class,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		})
	}

	var payload productPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, c.fail(&Error{ID: id, Class: ErrorClassDecode, Err: err})
	}

	fetchRequestsTotal.WithLabelValues("success").Inc()
	return payload.toRecord(id), nil
}

// fail records metrics and logging for a failed attempt.
func (c *Client) fail(fe *Error) error {
	fetchRequestsTotal.WithLabelValues("error").Inc()
	fetchErrorsTotal.WithLabelValues(string(fe.Class)).Inc()

	c.logger.Warn().
		Str("product_id", fe.ID).
		Int("status", fe.StatusCode).
		Str("error_class", string(fe.Class)).
		Err(fe.Err).
		Msg("Fetch attempt failed")

	return fe
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
