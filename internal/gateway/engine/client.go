package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"lighterdash/internal/config"
	"lighterdash/internal/logger"
	"lighterdash/internal/pkg/circuit"
)

const (
	PathAccountSummary = "/api/account/summary"
	PathPositions      = "/api/account/positions"
	PathOrders         = "/api/account/orders"
	PathMarkets        = "/api/markets"

	maxErrorBody   = 4096
	defaultTimeout = 5 * time.Second
)

// ErrCircuitOpen is returned while the engine breaker rejects requests.
var ErrCircuitOpen = fmt.Errorf("engine unavailable: %w", circuit.ErrOpen)

// Config is the explicit wiring for Client; nothing is read from globals.
type Config struct {
	APIBase            string
	Timeout            time.Duration
	InsecureSkipVerify bool
	RatePerSec         float64
	Burst              int
	BreakerThreshold   int
	BreakerCooldown    time.Duration
	StreamPath         string
}

func ConfigFrom(cfg config.EngineConfig) Config {
	return Config{
		APIBase:            cfg.APIBase,
		Timeout:            cfg.Timeout(),
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		RatePerSec:         cfg.RateLimitPerSec,
		Burst:              cfg.RateBurst,
		BreakerThreshold:   cfg.BreakerThreshold,
		BreakerCooldown:    cfg.BreakerCooldown(),
		StreamPath:         cfg.StreamPath,
	}
}

// StatusError is a non-2xx engine response. Body holds at most 4 KiB.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("engine %s %s returned %s", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("engine %s %s returned %s: %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *StatusError) StatusCode() int { return e.Code }

// DecodeError means the body did not have the expected shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string       { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *DecodeError) Unwrap() error       { return e.Err }
func (e *DecodeError) DecodeFailure() bool { return true }

// Client reads account and market data from the trading engine REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuit.CircuitBreaker
	streamPath string
}

func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if raw == "" {
		return nil, fmt.Errorf("engine api base cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse engine api base failed: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("engine api base must be http(s): %s", raw)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}
	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		streamPath: cfg.StreamPath,
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	if cfg.BreakerThreshold > 0 {
		c.breaker = circuit.NewCircuitBreaker("engine", cfg.BreakerThreshold, cfg.BreakerCooldown)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// get performs a GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("engine rate limit wait: %w", err)
		}
	}
	var body []byte
	call := func() error {
		var err error
		body, err = c.doRequest(ctx, http.MethodGet, path)
		return err
	}
	if c.breaker == nil {
		return body, call()
	}
	err := c.breaker.Execute(call, breakerCountable)
	if errors.Is(err, circuit.ErrOpen) {
		return nil, ErrCircuitOpen
	}
	return body, err
}

// breakerCountable trips on transport failures and 5xx, not on 4xx.
func breakerCountable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return true
}

func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	endpoint, err := c.resolveEndpoint(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call engine failed: %w", err)
	}
	defer resp.Body.Close()
	logger.Debugf("engine %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   strings.TrimSpace(string(data)),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read engine response failed: %w", err)
	}
	return data, nil
}

func (c *Client) resolveEndpoint(path string) (*url.URL, error) {
	if c.baseURL == nil {
		return nil, fmt.Errorf("engine api base not set")
	}
	trimmed := strings.TrimSpace(path)
	query := ""
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		query = trimmed[idx+1:]
		trimmed = trimmed[:idx]
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	base := *c.baseURL
	base.Path = strings.TrimSuffix(base.Path, "/") + trimmed
	base.RawPath = ""
	base.RawQuery = query
	base.Fragment = ""
	return &base, nil
}
