// Package providers fetches raw data from the upstream sports, weather and
// news sources.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/waiver-ranker/internal/metrics"
	"github.com/stitts-dev/waiver-ranker/pkg/logger"
)

const maxBodyBytes = 64 << 20

// ErrNoSource means a provider has no upstream configured
var ErrNoSource = errors.New("no source configured")

// StatusError is a non-2xx upstream response
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code: %d", e.Provider, e.StatusCode)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Breaker guards calls to a named upstream
type Breaker interface {
	Execute(service string, fn func() (interface{}, error)) (interface{}, error)
}

// Fetcher performs GET requests with retries, circuit breaking and timing
type Fetcher struct {
	client      *http.Client
	breaker     Breaker
	metrics     *metrics.UpstreamMetrics
	logger      *logrus.Logger
	maxAttempts int
	backoff     time.Duration
	userAgent   string
}

// NewFetcher creates a fetcher. breaker and m may be nil.
func NewFetcher(timeout time.Duration, breaker Breaker, m *metrics.UpstreamMetrics, logger *logrus.Logger) *Fetcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		breaker:     breaker,
		metrics:     m,
		logger:      logger,
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
		userAgent:   "waiver-ranker/1.0",
	}
}

// WithRetry overrides the attempt count and base backoff
func (f *Fetcher) WithRetry(attempts int, backoff time.Duration) *Fetcher {
	if attempts < 1 {
		attempts = 1
	}
	f.maxAttempts = attempts
	f.backoff = backoff
	return f
}

// Get returns the response body for url
func (f *Fetcher) Get(ctx context.Context, provider, url string) ([]byte, error) {
	started := time.Now()

	call := func() (interface{}, error) {
		return f.getWithRetry(ctx, provider, url)
	}

	var (
		result interface{}
		err    error
	)
	if f.breaker != nil {
		result, err = f.breaker.Execute(provider, call)
	} else {
		result, err = call()
	}

	f.metrics.Observe(provider, started, err)
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// GetJSON decodes the response body for url into target
func (f *Fetcher) GetJSON(ctx context.Context, provider, url string, target interface{}) error {
	body, err := f.Get(ctx, provider, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", provider, err)
	}
	return nil
}

// getWithRetry performs the request with exponential backoff
func (f *Fetcher) getWithRetry(ctx context.Context, provider, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			waitTime := time.Duration(math.Pow(2, float64(attempt-1))) * f.backoff
			logger.WithProvider(f.logger, provider, url).WithFields(logrus.Fields{
				"attempt": attempt,
				"wait":    waitTime.String(),
			}).WithError(lastErr).Warn("Request failed, retrying")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitTime):
			}
		}

		body, err := f.do(ctx, provider, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%s: request failed after %d attempts: %w", provider, f.maxAttempts, lastErr)
}

func (f *Fetcher) do(ctx context.Context, provider, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", provider, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, text/csv, text/html;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Provider: provider, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", provider, err)
	}
	return body, nil
}
