// Package bigcachestore backs the key-value store with an in-process
// BigCache instance. Used when no redis server is configured: mirrored
// entries then survive for the process lifetime only, which still gives the
// cache a second level to warm up from after a TTL purge.
package bigcachestore

import (
	"context"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"go-news-client/internal/interfaces"
)

// Ensure Store implements interfaces.KeyValueStore
var _ interfaces.KeyValueStore = (*Store)(nil)

// Store is a BigCache-backed KeyValueStore.
type Store struct {
	cache  *bigcache.BigCache
	logger *zap.Logger
}

// lifeWindow is deliberately long; persisted records carry their own expiry
// and are reaped by the cache warm-up path.
const lifeWindow = 24 * time.Hour

// New creates a store capped at sizeMB megabytes.
func New(sizeMB int, logger *zap.Logger) (*Store, error) {
	config := bigcache.DefaultConfig(lifeWindow)
	config.HardMaxCacheSize = sizeMB
	config.Verbose = false
	config.MaxEntrySize = 1024 * 1024

	cache, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, err
	}

	return &Store{cache: cache, logger: logger}, nil
}

// Get retrieves a value by key. A missing key is not an error.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := s.cache.Get(key)
	if err == bigcache.ErrEntryNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.cache.Set(key, []byte(value))
}

// Remove deletes a key.
func (s *Store) Remove(ctx context.Context, key string) error {
	err := s.cache.Delete(key)
	if err == bigcache.ErrEntryNotFound {
		return nil
	}
	return err
}

// ListKeys returns every key currently held.
func (s *Store) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	it := s.cache.Iterator()
	for it.SetNext() {
		entry, err := it.Value()
		if err != nil {
			continue
		}
		keys = append(keys, entry.Key())
	}
	return keys, nil
}

// Close releases the cache.
func (s *Store) Close() error {
	return s.cache.Close()
}
