// Package restclient wraps resty with rate limiting and retries. The
// decision oracle and the chain RPC client both go through it.
package restclient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// StatusError is returned when the server answers with a non-retryable error status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimit      float64
	RateLimitBurst int
	MaxRetries     int
	// BaseBackoff is the first retry delay; later ones double. Zero means one second.
	BaseBackoff time.Duration
}

// Client executes requests against one base URL.
type Client struct {
	client      *resty.Client
	logger      *zap.Logger
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
}

// New creates a Client from opts.
func New(opts Options, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(opts.BaseURL)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	limit := rate.Limit(opts.RateLimit)
	if opts.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := opts.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	backoff := opts.BaseBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &Client{
		client:      client,
		logger:      logger,
		limiter:     rate.NewLimiter(limit, burst),
		maxRetries:  opts.MaxRetries,
		baseBackoff: backoff,
	}
}

// R starts a new request bound to ctx.
func (c *Client) R(ctx context.Context) *resty.Request {
	return c.client.R().SetContext(ctx)
}

// BaseURL returns the URL every request path is resolved against.
func (c *Client) BaseURL() string {
	return c.client.BaseURL
}

// Do executes req with rate limiting. Network errors, 429, 418 and 5xx
// answers are retried up to MaxRetries times; Retry-After is honoured,
// otherwise the delay doubles each attempt.
func (c *Client) Do(ctx context.Context, method, path string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	attempts := c.maxRetries + 1

	for i := 0; i < attempts; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+path))
		resp, err = req.SetContext(ctx).Execute(method, path)

		if err == nil && !resp.IsError() {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == http.StatusTeapot {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= http.StatusInternalServerError {
				shouldRetry = true
			}
			err = &StatusError{Code: statusCode, Body: resp.String()}
		} else {
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, err
		}
		if i == attempts-1 {
			break
		}

		if retryAfter == 0 {
			retryAfter = c.baseBackoff * time.Duration(math.Pow(2, float64(i)))
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, err)
}
