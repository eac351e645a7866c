package prefetch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"go-news-client/internal/cache/tiered"
	"go-news-client/internal/config"
	"go-news-client/internal/models"
	"go-news-client/internal/netquality"
	"go-news-client/internal/storage/noop"
)

type fakeSource struct {
	latestCalls   int64
	categoryCalls int64
	lastCategory  int64
}

func (f *fakeSource) GetLatestNews(ctx context.Context, page int) models.PostPage {
	atomic.AddInt64(&f.latestCalls, 1)
	return models.EmptyPage()
}

func (f *fakeSource) GetPostsByCategory(ctx context.Context, categoryID, page int) models.PostPage {
	atomic.AddInt64(&f.categoryCalls, 1)
	atomic.StoreInt64(&f.lastCategory, int64(categoryID))
	return models.EmptyPage()
}

func testPrefetchConfig() config.PrefetchConfig {
	cfg := config.PrefetchConfig{}
	cfg.WarmupDelay.Duration = 5 * time.Millisecond
	cfg.RetuneInterval.Duration = 20 * time.Millisecond
	cfg.QualityLogInterval.Duration = 20 * time.Millisecond
	cfg.DefaultCategory = 3
	cfg.TTLGood.Duration = 2 * time.Minute
	cfg.TTLNormal.Duration = 5 * time.Minute
	cfg.TTLPoor.Duration = 15 * time.Minute
	return cfg
}

func newTestScheduler(source ContentSource, est *netquality.Estimator, cfg config.PrefetchConfig) (*Scheduler, *tiered.Cache) {
	cache := tiered.New(tiered.Caps{}, time.Minute, noop.New(), zap.NewNop())
	return New(source, cache, est, cfg, zap.NewNop()), cache
}

func TestScheduler_WarmupPrefetch(t *testing.T) {
	source := &fakeSource{}
	sched, _ := newTestScheduler(source, netquality.New(zap.NewNop()), testPrefetchConfig())

	sched.Start()
	defer sched.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&source.latestCalls) == 1 &&
			atomic.LoadInt64(&source.categoryCalls) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(3), atomic.LoadInt64(&source.lastCategory))
}

func TestScheduler_WarmupSkippedOnDegradedConnection(t *testing.T) {
	est := netquality.New(zap.NewNop())
	for i := 0; i < 10; i++ {
		est.RecordOutcome(time.Second, false, false)
	}

	source := &fakeSource{}
	sched, _ := newTestScheduler(source, est, testPrefetchConfig())

	sched.Start()
	defer sched.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&source.latestCalls))
	assert.Equal(t, int64(0), atomic.LoadInt64(&source.categoryCalls))
}

func TestScheduler_RetunesTTLByQuality(t *testing.T) {
	est := netquality.New(zap.NewNop())
	for i := 0; i < 10; i++ {
		est.RecordOutcome(15*time.Second, false, true)
	}

	sched, cache := newTestScheduler(&fakeSource{}, est, testPrefetchConfig())

	sched.Start()
	defer sched.Stop()

	assert.Eventually(t, func() bool {
		return cache.TTL() == 15*time.Minute
	}, time.Second, 5*time.Millisecond, "poor connection should lengthen the TTL")
}

func TestScheduler_RetunePurgesExpired(t *testing.T) {
	sched, cache := newTestScheduler(&fakeSource{}, netquality.New(zap.NewNop()), testPrefetchConfig())

	cache.Set(tiered.TierGeneral, "doomed", 1, models.PriorityNormal)

	sched.Start()
	defer sched.Stop()

	// A good connection tightens the TTL to 2m; backdate past it.
	assert.Eventually(t, func() bool {
		return cache.TTL() == 2*time.Minute
	}, time.Second, 5*time.Millisecond)

	cache.SetTTL(time.Nanosecond)
	assert.Eventually(t, func() bool {
		_, found := cache.GetStale(tiered.TierGeneral, "doomed")
		return !found
	}, time.Second, 5*time.Millisecond, "retune tick should purge expired entries")
}

func TestScheduler_StopCancelsPendingWarmup(t *testing.T) {
	cfg := testPrefetchConfig()
	cfg.WarmupDelay.Duration = time.Hour

	source := &fakeSource{}
	sched, _ := newTestScheduler(source, netquality.New(zap.NewNop()), cfg)

	sched.Start()
	sched.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&source.latestCalls))
}

func TestScheduler_DisabledNeverStarts(t *testing.T) {
	cfg := testPrefetchConfig()
	cfg.Disabled = true

	source := &fakeSource{}
	sched, _ := newTestScheduler(source, netquality.New(zap.NewNop()), cfg)

	sched.Start()
	defer sched.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&source.latestCalls))
	assert.Nil(t, sched.retuneTask)
}
