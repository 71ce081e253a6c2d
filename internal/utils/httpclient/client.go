// internal/utils/httpclient/client.go
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/coinbot/internal/utils/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrStatus matches every non-2xx response.
var ErrStatus = errors.New("unexpected http status")

const (
	DefaultTimeout         = 15 * time.Second
	DefaultRetries         = 5
	DefaultInitialInterval = 500 * time.Millisecond
	maxErrorBody           = 512
)

// StatusError carries the status code and a prefix of the body.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Options configures a Client. Zero values take the defaults.
type Options struct {
	Name            string
	Timeout         time.Duration
	Retries         int
	RatePerSec      float64
	InitialInterval time.Duration
	HTTPClient      *http.Client
}

// Client is a rate-limited JSON client that retries transport errors, 429
// and 5xx responses with exponential backoff. Other 4xx fail immediately.
type Client struct {
	name            string
	http            *http.Client
	limiter         *rate.Limiter
	retries         uint
	initialInterval time.Duration
	metrics         *metrics.Collector
	logger          *zap.Logger
}

func New(opts Options, collector *metrics.Collector, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultInitialInterval
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSec > 0 {
		burst := int(opts.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}

	return &Client{
		name:            opts.Name,
		http:            httpClient,
		limiter:         limiter,
		retries:         uint(opts.Retries),
		initialInterval: opts.InitialInterval,
		metrics:         collector,
		logger:          logger.Named("http").With(zap.String("adapter", opts.Name)),
	}
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, out)
}

// PostJSON encodes body as JSON, POSTs it and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, payload, out)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	policy.MaxInterval = c.initialInterval * 10

	notify := func(err error, wait time.Duration) {
		c.logger.Debug("Retrying request",
			zap.String("method", method),
			zap.String("url", url),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	operation := func() ([]byte, error) {
		return c.attempt(ctx, method, url, payload)
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.retries),
		backoff.WithNotify(notify))
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordHTTP(c.name, 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.RecordHTTP(c.name, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	statusErr := &StatusError{Code: resp.StatusCode, Body: truncate(body)}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, statusErr
	}
	return nil, backoff.Permanent(statusErr)
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(bytes.TrimSpace(body))
}
