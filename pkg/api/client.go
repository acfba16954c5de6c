package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for gateway operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_api_requests_total",
		Help: "Total API requests by resource and status",
	}, []string{"resource", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_api_request_duration_seconds",
		Help:    "API request duration in seconds by resource",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"resource"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_api_errors_total",
		Help: "Total API errors by kind",
	}, []string{"kind"})
)

// TokenSource supplies the current access credential. The gateway attaches
// it to every outgoing call but never manages auth state itself.
type TokenSource interface {
	// AccessToken returns the current bearer token, or "" when the caller
	// is anonymous.
	AccessToken() string
}

// TokenFunc adapts a plain function to a TokenSource.
type TokenFunc func() string

// AccessToken implements TokenSource.
func (f TokenFunc) AccessToken() string { return f() }

// Config holds the gateway configuration.
type Config struct {
	// BaseURL of the storefront API, e.g. "https://api.example.com/v1".
	BaseURL string

	// HTTPClient used for transport. Defaults to a 30s-timeout client.
	HTTPClient *http.Client

	// Tokens supplies the access credential. Optional.
	Tokens TokenSource

	// OnUnauthorized is invoked once per 401 response, before the error is
	// returned, so the auth collaborator can force a re-login. Optional.
	OnUnauthorized func()
}

// Client is the shared HTTP layer beneath every Resource.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	tokens         TokenSource
	onUnauthorized func()
	logger         zerolog.Logger
}

// New creates a gateway client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		tokens:         cfg.Tokens,
		onUnauthorized: cfg.OnUnauthorized,
		logger:         log.With().Str("component", "api-gateway").Logger(),
	}, nil
}

// do executes one HTTP request and returns the raw body and headers.
// Failures are classified into *Error; retry is the caller's concern
// (see WithRetry), so mutations are never retried behind the caller's back.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, http.Header, error) {
	resource := resourceLabel(path)

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(resource).Observe(time.Since(startTime).Seconds())
	}()

	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(KindNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(resource, "network_error").Inc()
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return nil, nil, &Error{Kind: KindNetwork, Message: "transport failure", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErrorsTotal.WithLabelValues(string(KindNetwork)).Inc()
		return nil, nil, &Error{Kind: KindNetwork, Message: "read response body", Err: err}
	}

	apiRequestsTotal.WithLabelValues(resource, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		kind := Classify(resp.StatusCode)
		apiErrorsTotal.WithLabelValues(string(kind)).Inc()

		c.logger.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("kind", string(kind)).
			Msg("API request error")

		if kind == KindUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}

		return nil, nil, &Error{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody, resp.Status),
		}
	}

	return respBody, resp.Header, nil
}

// errorMessage extracts a human-readable message from an error body,
// falling back to the HTTP status line.
func errorMessage(body []byte, status string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return status
}

// resourceLabel reduces a request path to its leading segment for metrics,
// keeping label cardinality bounded.
func resourceLabel(path string) string {
	trimmed := strings.TrimLeft(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i > 0 {
		return trimmed[:i]
	}
	if trimmed == "" {
		return "root"
	}
	return trimmed
}
