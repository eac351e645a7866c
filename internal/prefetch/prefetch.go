// Package prefetch opportunistically warms the shared cache and retunes its
// TTL from connection quality. Everything here is best-effort: prefetch
// failures are logged and swallowed, and none of the timers ever block a
// caller's request path.
package prefetch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-news-client/internal/cache/tiered"
	"go-news-client/internal/config"
	"go-news-client/internal/metrics"
	"go-news-client/internal/models"
	"go-news-client/internal/netquality"
)

// minSuccessRate is the success percentage below which the warm-up prefetch
// is skipped entirely.
const minSuccessRate = 70

// warmupTimeout bounds the one-shot warm-up fetches.
const warmupTimeout = 30 * time.Second

// ContentSource is the slice of the fetch facade the prefetcher needs.
type ContentSource interface {
	GetLatestNews(ctx context.Context, page int) models.PostPage
	GetPostsByCategory(ctx context.Context, categoryID, page int) models.PostPage
}

// Scheduler runs the three background timers: a one-shot warm-up, the
// periodic TTL retune + purge, and the periodic quality log tick.
type Scheduler struct {
	source    ContentSource
	cache     *tiered.Cache
	estimator *netquality.Estimator
	cfg       config.PrefetchConfig
	logger    *zap.Logger

	mu          sync.Mutex
	warmupTimer *time.Timer
	retuneTask  *Task
	qualityTask *Task
	started     bool
}

// New creates a scheduler. Nothing runs until Start.
func New(source ContentSource, cache *tiered.Cache, estimator *netquality.Estimator, cfg config.PrefetchConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		source:    source,
		cache:     cache,
		estimator: estimator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start launches the timers.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.cfg.Disabled {
		return
	}
	s.started = true

	s.warmupTimer = time.AfterFunc(s.cfg.WarmupDelay.Duration, s.warmup)

	s.retuneTask = NewTask(s.cfg.RetuneInterval.Duration, s.retune)
	s.retuneTask.Start()

	s.qualityTask = NewTask(s.cfg.QualityLogInterval.Duration, s.logQuality)
	s.qualityTask.Start()

	s.logger.Info("prefetch scheduler started",
		zap.Duration("warmup_delay", s.cfg.WarmupDelay.Duration),
		zap.Duration("retune_interval", s.cfg.RetuneInterval.Duration))
}

// Stop cancels all timers as a unit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false

	if s.warmupTimer != nil {
		s.warmupTimer.Stop()
	}
	if s.retuneTask != nil {
		s.retuneTask.Stop()
	}
	if s.qualityTask != nil {
		s.qualityTask.Stop()
	}
}

// warmup fetches the first page of latest news and the default category so
// the first user interaction lands on a warm cache. Skipped outright on a
// degraded connection.
func (s *Scheduler) warmup() {
	if rate := s.estimator.SuccessRate(); rate < minSuccessRate {
		s.logger.Info("skipping prefetch on degraded connection",
			zap.Float64("success_rate", rate))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	defer cancel()

	s.source.GetLatestNews(ctx, 1)
	s.source.GetPostsByCategory(ctx, s.cfg.DefaultCategory, 1)
	s.logger.Debug("prefetch warm-up completed",
		zap.Int("default_category", s.cfg.DefaultCategory))
}

// retune adjusts the cache TTL to the current quality band, then purges
// expired entries. Poor connections get a long TTL to cut load; good ones a
// short TTL for freshness.
func (s *Scheduler) retune() {
	quality := s.estimator.Quality()

	var ttl time.Duration
	switch quality {
	case netquality.QualityPoor:
		ttl = s.cfg.TTLPoor.Duration
	case netquality.QualityGood:
		ttl = s.cfg.TTLGood.Duration
	default:
		ttl = s.cfg.TTLNormal.Duration
	}
	s.cache.SetTTL(ttl)

	purged := s.cache.PurgeExpired()
	s.logger.Debug("cache TTL retuned",
		zap.String("quality", string(quality)),
		zap.Duration("ttl", ttl),
		zap.Int("purged", purged))
}

// logQuality is the observability tick. No functional effect.
func (s *Scheduler) logQuality() {
	quality := s.estimator.Quality()
	metrics.UpdateConnectionQuality(string(quality))

	net := s.estimator.Snapshot()
	s.logger.Info("connection quality",
		zap.String("quality", string(quality)),
		zap.Float64("avg_response_ms", net.AvgResponseMs),
		zap.Float64("success_rate", net.SuccessRatePercent),
		zap.Int64("timeouts", net.TimeoutCount),
		zap.Int64("requests", net.TotalRequests))
}
