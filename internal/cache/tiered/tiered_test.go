package tiered

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"go-news-client/internal/interfaces/mock"
	"go-news-client/internal/models"
	"go-news-client/internal/storage/noop"
)

func newTestCache(caps Caps, ttl time.Duration) *Cache {
	return New(caps, ttl, noop.New(), zap.NewNop())
}

func TestCache_Set_And_Get(t *testing.T) {
	cache := newTestCache(Caps{}, time.Minute)

	cache.Set(TierGeneral, "key", "value", models.PriorityNormal)

	val, found := cache.Get(TierGeneral, "key")
	assert.True(t, found)
	assert.Equal(t, "value", val)
}

func TestCache_Get_NotFound(t *testing.T) {
	cache := newTestCache(Caps{}, time.Minute)

	val, found := cache.Get(TierGeneral, "missing")
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestCache_Get_IdempotentRead(t *testing.T) {
	cache := newTestCache(Caps{}, time.Minute)
	cache.Set(TierGeneral, "key", "value", models.PriorityNormal)

	first, found := cache.Get(TierGeneral, "key")
	require.True(t, found)
	second, found := cache.Get(TierGeneral, "key")
	require.True(t, found)
	assert.Equal(t, first, second)

	// Both hits are visible to the eviction score via the access count.
	entry := cache.tiers[TierGeneral].entries["key"]
	assert.Equal(t, int64(3), entry.AccessCount) // 1 at insert + 2 hits
}

func TestCache_Get_TTLExpiry(t *testing.T) {
	cache := newTestCache(Caps{}, 5*time.Second)
	cache.Set(TierGeneral, "key", "value", models.PriorityNormal)

	// Backdate the entry just before and just past the TTL boundary.
	entry := cache.tiers[TierGeneral].entries["key"]
	entry.CreatedAt = time.Now().Add(-4999 * time.Millisecond)
	_, found := cache.Get(TierGeneral, "key")
	assert.True(t, found)

	entry.CreatedAt = time.Now().Add(-5001 * time.Millisecond)
	_, found = cache.Get(TierGeneral, "key")
	assert.False(t, found)

	// The expired entry stays resident for the stale fallback.
	_, found = cache.GetStale(TierGeneral, "key")
	assert.True(t, found)
}

func TestCache_GetStale_ReturnsExpired(t *testing.T) {
	cache := newTestCache(Caps{}, 5*time.Second)
	cache.Set(TierGeneral, "key", "value", models.PriorityNormal)
	cache.tiers[TierGeneral].entries["key"].CreatedAt = time.Now().Add(-time.Hour)

	val, found := cache.GetStale(TierGeneral, "key")
	assert.True(t, found)
	assert.Equal(t, "value", val)
}

func TestCache_SetTTL_ImmediateEffect(t *testing.T) {
	cache := newTestCache(Caps{}, time.Hour)
	cache.Set(TierGeneral, "key", "value", models.PriorityNormal)
	cache.tiers[TierGeneral].entries["key"].CreatedAt = time.Now().Add(-time.Minute)

	_, found := cache.Get(TierGeneral, "key")
	require.True(t, found)

	cache.SetTTL(time.Second)
	_, found = cache.Get(TierGeneral, "key")
	assert.False(t, found)
}

func TestCache_Eviction(t *testing.T) {
	cache := newTestCache(Caps{General: 10, Image: 10, Category: 10}, time.Hour)

	now := time.Now()
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key-%d", i)
		cache.Set(TierGeneral, key, i, models.PriorityNormal)
	}

	// One old, rarely accessed, low-priority entry and one fresh, hot,
	// high-priority one.
	entries := cache.tiers[TierGeneral].entries
	entries["key-0"].Priority = models.PriorityLow
	entries["key-0"].CreatedAt = now.Add(-time.Hour)
	entries["key-9"].Priority = models.PriorityHigh
	entries["key-9"].AccessCount = 50

	cache.Set(TierGeneral, "key-10", 10, models.PriorityNormal)

	// floor(0.2 * 10) = 2 evicted, then one inserted.
	assert.Equal(t, 9, len(entries))

	_, oldLowFound := cache.Get(TierGeneral, "key-0")
	assert.False(t, oldLowFound, "old low-priority entry should be evicted")

	_, hotHighFound := cache.Get(TierGeneral, "key-9")
	assert.True(t, hotHighFound, "hot high-priority entry must survive")

	_, newFound := cache.Get(TierGeneral, "key-10")
	assert.True(t, newFound)
}

func TestCache_Eviction_IsolatedPerTier(t *testing.T) {
	cache := newTestCache(Caps{General: 5, Image: 10, Category: 10}, time.Hour)

	cache.Set(TierImage, "img", "url", models.PriorityLow)
	for i := 0; i < 6; i++ {
		cache.Set(TierGeneral, fmt.Sprintf("key-%d", i), i, models.PriorityNormal)
	}

	_, found := cache.Get(TierImage, "img")
	assert.True(t, found, "eviction in the general tier must not touch the image tier")
}

func TestCache_PurgeExpired(t *testing.T) {
	cache := newTestCache(Caps{}, time.Minute)

	cache.Set(TierGeneral, "fresh", 1, models.PriorityNormal)
	cache.Set(TierGeneral, "stale-1", 2, models.PriorityNormal)
	cache.Set(TierImage, "stale-2", 3, models.PriorityLow)

	cache.tiers[TierGeneral].entries["stale-1"].CreatedAt = time.Now().Add(-time.Hour)
	cache.tiers[TierImage].entries["stale-2"].CreatedAt = time.Now().Add(-time.Hour)

	removed := cache.PurgeExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_Stats(t *testing.T) {
	cache := newTestCache(Caps{}, time.Minute)
	cache.Set(TierGeneral, "key", "value", models.PriorityNormal)

	cache.Get(TierGeneral, "key")
	cache.Get(TierGeneral, "missing")

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCache_Set_MirrorsHighPriority(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockKeyValueStore(ctrl)

	cache := New(Caps{}, time.Minute, store, zap.NewNop())

	done := make(chan struct{})
	store.EXPECT().
		Set(gomock.Any(), "newscache:image:media:7", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, value string) error {
			var record persistedEntry
			require.NoError(t, json.Unmarshal([]byte(value), &record))
			assert.Equal(t, 2*time.Minute.Milliseconds(), record.TTLMs)
			assert.Equal(t, "high", record.Priority)
			close(done)
			return nil
		})

	cache.Set(TierImage, "media:7", "https://img.example.com/7.jpg", models.PriorityHigh)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mirror write never happened")
	}
}

func TestCache_Set_NormalPriorityNotMirrored(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockKeyValueStore(ctrl)
	// No EXPECT: any store call fails the test.

	cache := New(Caps{}, time.Minute, store, zap.NewNop())
	cache.Set(TierGeneral, "key", "value", models.PriorityNormal)

	time.Sleep(50 * time.Millisecond)
}

func TestCache_Set_MirrorFailureSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockKeyValueStore(ctrl)

	done := make(chan struct{})
	store.EXPECT().
		Set(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string) error {
			close(done)
			return fmt.Errorf("store unavailable")
		})

	cache := New(Caps{}, time.Minute, store, zap.NewNop())
	cache.Set(TierCategory, "post:1", "Technology", models.PriorityHigh)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mirror write never attempted")
	}

	// The entry is still served from memory.
	val, found := cache.Get(TierCategory, "post:1")
	assert.True(t, found)
	assert.Equal(t, "Technology", val)
}

func TestCache_WarmUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockKeyValueStore(ctrl)

	record := func(value string, age time.Duration, ttl time.Duration) string {
		raw, _ := json.Marshal(value)
		data, _ := json.Marshal(persistedEntry{
			Value:     raw,
			CreatedAt: time.Now().Add(-age).UnixMilli(),
			TTLMs:     ttl.Milliseconds(),
			Priority:  "high",
		})
		return string(data)
	}

	keys := []string{
		"newscache:image:media:1",
		"newscache:category:post:2",
		"newscache:image:media:3", // lapsed
		"unrelated-key",
	}
	store.EXPECT().ListKeys(gomock.Any()).Return(keys, nil)
	store.EXPECT().Get(gomock.Any(), "newscache:image:media:1").
		Return(record("https://img.example.com/1.jpg", time.Minute, time.Hour), true, nil)
	store.EXPECT().Get(gomock.Any(), "newscache:category:post:2").
		Return(record("Sports", time.Minute, time.Hour), true, nil)
	store.EXPECT().Get(gomock.Any(), "newscache:image:media:3").
		Return(record("https://img.example.com/3.jpg", 2*time.Hour, time.Hour), true, nil)
	store.EXPECT().Remove(gomock.Any(), "newscache:image:media:3").Return(nil)

	cache := New(Caps{}, time.Minute, store, zap.NewNop())
	restored := cache.WarmUp(context.Background())

	assert.Equal(t, 2, restored)

	val, found := cache.Get(TierImage, "media:1")
	assert.True(t, found)
	assert.Equal(t, "https://img.example.com/1.jpg", val)

	val, found = cache.Get(TierCategory, "post:2")
	assert.True(t, found)
	assert.Equal(t, "Sports", val)

	_, found = cache.Get(TierImage, "media:3")
	assert.False(t, found)
}

func TestCache_WarmUp_ListKeysFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockKeyValueStore(ctrl)
	store.EXPECT().ListKeys(gomock.Any()).Return(nil, fmt.Errorf("store down"))

	cache := New(Caps{}, time.Minute, store, zap.NewNop())
	assert.Equal(t, 0, cache.WarmUp(context.Background()))
}
