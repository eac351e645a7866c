// Package netquality tracks rolling connection-quality metrics and derives
// the timeout for the next network call from them. One estimator instance is
// shared across the process and lives for its lifetime.
package netquality

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Timeout bands. The band is selected deterministically from the current
// metrics on every call, never cached across calls.
const (
	TimeoutFast   = 3 * time.Second
	TimeoutNormal = 8 * time.Second
	TimeoutSlow   = 15 * time.Second
)

// Quality is the coarse connection classification used by the prefetcher and
// the TTL retuner.
type Quality string

const (
	QualityGood   Quality = "good"
	QualityNormal Quality = "normal"
	QualityPoor   Quality = "poor"
)

// Metrics is an immutable snapshot of the connection metrics.
type Metrics struct {
	AvgResponseMs      float64
	SuccessRatePercent float64
	TimeoutCount       int64
	TotalRequests      int64
	CurrentTimeout     time.Duration
}

// Estimator holds the rolling connection metrics. All fields for one
// completed request are updated under a single lock so readers never observe
// a partial update.
type Estimator struct {
	mu            sync.Mutex
	avgResponseMs float64
	successCount  int64
	totalRequests int64
	timeoutCount  int64
	current       time.Duration
	logger        *zap.Logger
}

// New creates an estimator in the optimistic initial state: with no requests
// recorded the success rate reads as 100% and the fast band applies.
func New(logger *zap.Logger) *Estimator {
	return &Estimator{current: TimeoutFast, logger: logger}
}

// RecordOutcome folds one completed attempt into the metrics. The average
// latency uses 0.5-weighted exponential smoothing, (old+latency)/2. The
// simplistic window-less average is intentional: the banding thresholds were
// tuned against this exact formula.
func (e *Estimator) RecordOutcome(latency time.Duration, success, timedOut bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ms := float64(latency.Milliseconds())
	if e.totalRequests == 0 {
		e.avgResponseMs = ms
	} else {
		e.avgResponseMs = (e.avgResponseMs + ms) / 2
	}
	e.totalRequests++
	if success {
		e.successCount++
	}
	if timedOut {
		e.timeoutCount++
	}
}

// Timeout returns the deadline for the next network call:
//
//	avg < 2000ms and success > 95%  -> 3s
//	avg < 5000ms and success > 85%  -> 8s
//	otherwise                       -> 15s
func (e *Estimator) Timeout() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	rate := e.successRateLocked()
	switch {
	case e.avgResponseMs < 2000 && rate > 95:
		e.current = TimeoutFast
	case e.avgResponseMs < 5000 && rate > 85:
		e.current = TimeoutNormal
	default:
		e.current = TimeoutSlow
	}
	return e.current
}

// SuccessRate returns the rolling success percentage in [0, 100].
func (e *Estimator) SuccessRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.successRateLocked()
}

func (e *Estimator) successRateLocked() float64 {
	if e.totalRequests == 0 {
		return 100
	}
	return float64(e.successCount) / float64(e.totalRequests) * 100
}

// Quality classifies the connection using the same thresholds as the timeout
// bands.
func (e *Estimator) Quality() Quality {
	e.mu.Lock()
	defer e.mu.Unlock()

	rate := e.successRateLocked()
	switch {
	case e.avgResponseMs < 2000 && rate > 95:
		return QualityGood
	case e.avgResponseMs < 5000 && rate > 85:
		return QualityNormal
	default:
		return QualityPoor
	}
}

// Snapshot returns a consistent copy of the current metrics.
func (e *Estimator) Snapshot() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Metrics{
		AvgResponseMs:      e.avgResponseMs,
		SuccessRatePercent: e.successRateLocked(),
		TimeoutCount:       e.timeoutCount,
		TotalRequests:      e.totalRequests,
		CurrentTimeout:     e.current,
	}
}
