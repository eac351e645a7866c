// Package coordinator executes fetches against the content API: identical
// concurrent requests are collapsed into one network call, each attempt runs
// under the adaptive timeout, and failures are retried with exponential
// backoff. Every attempt, retry or not, feeds the connection metrics.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"go-news-client/internal/metrics"
	"go-news-client/internal/models"
	"go-news-client/internal/netquality"
)

// totalPagesHeader communicates the collection page count.
const totalPagesHeader = "X-WP-TotalPages"

// Coordinator deduplicates and executes API fetches. One instance is shared
// process-wide so the in-flight pool and metrics are global.
type Coordinator struct {
	client    *http.Client
	estimator *netquality.Estimator
	group     singleflight.Group
	logger    *zap.Logger
	retries   int64

	maxRetries  int
	backoffBase time.Duration
}

// New creates a coordinator. The HTTP client carries no global timeout; the
// per-attempt deadline comes from the estimator.
func New(estimator *netquality.Estimator, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		client:      &http.Client{},
		estimator:   estimator,
		logger:      logger,
		maxRetries:  2,
		backoffBase: time.Second,
	}
}

type fetchResult struct {
	body       []byte
	totalPages int
}

// FetchJSON fetches url, decodes the JSON body into v, and returns the total
// page count from the response header (0 when absent). Concurrent calls for
// the same normalized URL share a single underlying network call; the
// in-flight entry is dropped when the call settles, success or failure.
func (c *Coordinator) FetchJSON(ctx context.Context, rawURL string, v interface{}) (int, error) {
	key := NormalizeKey(rawURL)

	res, err, shared := c.group.Do(key, func() (interface{}, error) {
		return c.fetchWithRetry(ctx, rawURL)
	})
	if err != nil {
		return 0, err
	}
	if shared {
		c.logger.Debug("request deduplicated", zap.String("key", key))
	}

	result := res.(*fetchResult)
	if err := json.Unmarshal(result.body, v); err != nil {
		return 0, &models.DecodeError{URL: rawURL, Err: err}
	}
	return result.totalPages, nil
}

// Retries returns the total number of retry attempts issued.
func (c *Coordinator) Retries() int64 {
	return atomic.LoadInt64(&c.retries)
}

// fetchWithRetry runs up to maxRetries+1 attempts with exponential backoff
// between them. Decode errors never reach this path; only transport, HTTP
// status, and timeout failures are retried.
func (c *Coordinator) fetchWithRetry(ctx context.Context, url string) (*fetchResult, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffBase << (attempt - 1)
			atomic.AddInt64(&c.retries, 1)
			metrics.RecordRetry()
			c.logger.Warn("retrying fetch",
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay),
				zap.Error(lastErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &models.NetworkError{URL: url, Err: ctx.Err()}
			}
		}

		result, err := c.fetchOnce(ctx, url)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// fetchOnce performs a single attempt under the current adaptive timeout and
// records its outcome. A timeout records the full timeout value as the
// observed latency.
func (c *Coordinator) fetchOnce(ctx context.Context, url string) (*fetchResult, error) {
	timeout := c.estimator.Timeout()
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &models.NetworkError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.estimator.RecordOutcome(timeout, false, true)
			metrics.RecordFetch("timeout", timeout.Seconds())
			return nil, &models.TimeoutError{URL: url, Timeout: timeout}
		}
		c.estimator.RecordOutcome(latency, false, false)
		metrics.RecordFetch("error", latency.Seconds())
		return nil, &models.NetworkError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.estimator.RecordOutcome(latency, false, false)
		metrics.RecordFetch("error", latency.Seconds())
		return nil, &models.NetworkError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.estimator.RecordOutcome(latency, false, false)
		metrics.RecordFetch("error", latency.Seconds())
		return nil, &models.NetworkError{URL: url, Err: err}
	}

	c.estimator.RecordOutcome(latency, true, false)
	metrics.RecordFetch("success", latency.Seconds())

	totalPages, _ := strconv.Atoi(resp.Header.Get(totalPagesHeader))
	return &fetchResult{body: body, totalPages: totalPages}, nil
}
