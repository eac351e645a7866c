// Package tiered implements the in-memory response cache: three independent
// tiers with score-based eviction, read-time TTL expiry, and best-effort
// mirroring of hot entries to a durable key-value store.
package tiered

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-news-client/internal/interfaces"
	"go-news-client/internal/metrics"
	"go-news-client/internal/models"
)

// Tier names a cache partition. Eviction within a tier never affects the
// other tiers.
type Tier string

const (
	TierGeneral  Tier = "general"
	TierImage    Tier = "image"
	TierCategory Tier = "category"
)

// persistPrefix namespaces mirrored entries in the key-value store.
const persistPrefix = "newscache:"

// persistTimeout bounds each background mirror write.
const persistTimeout = 5 * time.Second

// Caps holds the per-tier maximum entry counts.
type Caps struct {
	General  int
	Image    int
	Category int
}

// DefaultCaps are the tier sizes used when none are configured.
var DefaultCaps = Caps{General: 150, Image: 300, Category: 100}

type tierState struct {
	entries map[string]*models.CacheEntry
	max     int
}

// Cache is the tiered in-memory cache. A single instance is shared across
// the process.
type Cache struct {
	mu     sync.Mutex
	tiers  map[Tier]*tierState
	ttl    time.Duration
	hits   int64
	misses int64

	store  interfaces.KeyValueStore
	logger *zap.Logger
}

// New creates a cache with the given tier capacities and initial TTL. The
// store may be a no-op implementation; mirror writes are best-effort either
// way.
func New(caps Caps, ttl time.Duration, store interfaces.KeyValueStore, logger *zap.Logger) *Cache {
	if caps.General <= 0 {
		caps.General = DefaultCaps.General
	}
	if caps.Image <= 0 {
		caps.Image = DefaultCaps.Image
	}
	if caps.Category <= 0 {
		caps.Category = DefaultCaps.Category
	}

	return &Cache{
		tiers: map[Tier]*tierState{
			TierGeneral:  {entries: make(map[string]*models.CacheEntry), max: caps.General},
			TierImage:    {entries: make(map[string]*models.CacheEntry), max: caps.Image},
			TierCategory: {entries: make(map[string]*models.CacheEntry), max: caps.Category},
		},
		ttl:    ttl,
		store:  store,
		logger: logger,
	}
}

// Get returns the cached value for key, or found=false when the key is
// absent or its entry has outlived the current TTL. A hit increments the
// entry's access count, which feeds the eviction score.
func (c *Cache) Get(tier Tier, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.tiers[tier]
	if !ok {
		return nil, false
	}

	entry, ok := ts.entries[key]
	if !ok {
		c.misses++
		metrics.RecordCacheMiss(string(tier))
		return nil, false
	}

	// Expired entries count as misses but stay resident so GetStale can still
	// serve them; PurgeExpired and eviction reclaim the space.
	if entry.Expired(time.Now(), c.ttl) {
		c.misses++
		metrics.RecordCacheMiss(string(tier))
		return nil, false
	}

	entry.AccessCount++
	c.hits++
	metrics.RecordCacheHit(string(tier))
	return entry.Value, true
}

// GetStale returns the cached value even when it has expired. Used as the
// degraded fallback when a fetch fails outright; does not count as a hit.
func (c *Cache) GetStale(tier Tier, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.tiers[tier]
	if !ok {
		return nil, false
	}
	entry, ok := ts.entries[key]
	if !ok {
		return nil, false
	}
	return entry.Value, true
}

// Set inserts or overwrites an entry with a fresh creation time and an
// access count of 1, evicting first when the tier is at capacity. High
// priority entries and everything in the category tier are mirrored to the
// key-value store asynchronously.
func (c *Cache) Set(tier Tier, key string, value interface{}, priority models.Priority) {
	c.mu.Lock()

	ts, ok := c.tiers[tier]
	if !ok {
		c.mu.Unlock()
		return
	}

	if _, exists := ts.entries[key]; !exists && len(ts.entries) >= ts.max {
		c.evictLocked(tier, ts)
	}

	entry := &models.CacheEntry{
		Value:       value,
		CreatedAt:   time.Now(),
		Priority:    priority,
		AccessCount: 1,
	}
	ts.entries[key] = entry
	metrics.UpdateCacheEntries(string(tier), len(ts.entries))
	ttl := c.ttl
	c.mu.Unlock()

	if priority == models.PriorityHigh || tier == TierCategory {
		go c.persist(tier, key, entry, ttl)
	}
}

// evictLocked removes the least valuable 20% of the tier (at least one
// entry). Entries are ranked by age minus priority and access weights; the
// highest-ranked, i.e. oldest least-used, go first. The signed formula lets
// age eventually dominate even high-priority entries; that saturation is the
// tuned behavior and is preserved.
func (c *Cache) evictLocked(tier Tier, ts *tierState) {
	now := time.Now()

	type scored struct {
		key   string
		score int64
	}
	ranked := make([]scored, 0, len(ts.entries))
	for key, entry := range ts.entries {
		ranked = append(ranked, scored{key: key, score: entry.EvictionScore(now)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	count := len(ranked) / 5
	if count < 1 {
		count = 1
	}
	for _, victim := range ranked[:count] {
		delete(ts.entries, victim.key)
	}

	metrics.RecordEvictions(string(tier), count)
	c.logger.Debug("cache tier evicted",
		zap.String("tier", string(tier)),
		zap.Int("removed", count),
		zap.Int("remaining", len(ts.entries)))
}

// PurgeExpired removes every expired entry across all tiers and returns the
// number removed.
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for tier, ts := range c.tiers {
		before := len(ts.entries)
		for key, entry := range ts.entries {
			if entry.Expired(now, c.ttl) {
				delete(ts.entries, key)
			}
		}
		if n := before - len(ts.entries); n > 0 {
			removed += n
			metrics.RecordEvictions(string(tier), n)
			metrics.UpdateCacheEntries(string(tier), len(ts.entries))
		}
	}
	return removed
}

// SetTTL retunes the cache TTL. Expiry is computed at read time, so the new
// value applies to existing entries immediately.
func (c *Cache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// TTL returns the current TTL.
func (c *Cache) TTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl
}

// Len returns the total entry count across tiers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, ts := range c.tiers {
		total += len(ts.entries)
	}
	return total
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// persistedEntry is the JSON record mirrored to the key-value store. The
// stored TTL is double the in-memory TTL at write time, so a mirrored entry
// outlives a restart but not indefinitely.
type persistedEntry struct {
	Value     json.RawMessage `json:"value"`
	CreatedAt int64           `json:"created_at_ms"`
	TTLMs     int64           `json:"ttl_ms"`
	Priority  string          `json:"priority"`
}

func (c *Cache) persist(tier Tier, key string, entry *models.CacheEntry, ttl time.Duration) {
	raw, err := json.Marshal(entry.Value)
	if err != nil {
		c.logger.Debug("skipping mirror of unmarshalable value",
			zap.String("tier", string(tier)), zap.String("key", key), zap.Error(err))
		return
	}

	record := persistedEntry{
		Value:     raw,
		CreatedAt: entry.CreatedAt.UnixMilli(),
		TTLMs:     2 * ttl.Milliseconds(),
		Priority:  entry.Priority.String(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	storeKey := fmt.Sprintf("%s%s:%s", persistPrefix, tier, key)
	if err := c.store.Set(ctx, storeKey, string(data)); err != nil {
		serr := &models.StorageError{Op: "set", Key: storeKey, Err: err}
		c.logger.Debug("cache mirror write failed", zap.Error(serr))
	}
}

// WarmUp restores mirrored entries from the key-value store. Only string
// values (image URLs, category names) are restored; records whose doubled
// TTL has lapsed are skipped and removed. Every failure is non-fatal.
func (c *Cache) WarmUp(ctx context.Context) int {
	keys, err := c.store.ListKeys(ctx)
	if err != nil {
		c.logger.Debug("cache warm-up skipped", zap.Error(&models.StorageError{Op: "listkeys", Err: err}))
		return 0
	}

	now := time.Now()
	restored := 0
	for _, storeKey := range keys {
		rest, ok := strings.CutPrefix(storeKey, persistPrefix)
		if !ok {
			continue
		}
		tierName, key, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		tier := Tier(tierName)

		data, found, err := c.store.Get(ctx, storeKey)
		if err != nil || !found {
			continue
		}

		var record persistedEntry
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			_ = c.store.Remove(ctx, storeKey)
			continue
		}
		if now.UnixMilli()-record.CreatedAt > record.TTLMs {
			_ = c.store.Remove(ctx, storeKey)
			continue
		}

		var value string
		if err := json.Unmarshal(record.Value, &value); err != nil {
			continue
		}

		priority, err := models.ParsePriority(record.Priority)
		if err != nil {
			priority = models.PriorityNormal
		}

		c.mu.Lock()
		if ts, ok := c.tiers[tier]; ok && len(ts.entries) < ts.max {
			ts.entries[key] = &models.CacheEntry{
				Value:       value,
				CreatedAt:   now,
				Priority:    priority,
				AccessCount: 1,
			}
			metrics.UpdateCacheEntries(string(tier), len(ts.entries))
			restored++
		}
		c.mu.Unlock()
	}

	if restored > 0 {
		c.logger.Info("cache warmed up from durable store", zap.Int("entries", restored))
	}
	return restored
}
