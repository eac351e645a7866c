// Package redisstore backs the durable key-value store with Redis (or any
// KeyDB-compatible server).
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-news-client/internal/interfaces"
)

// Ensure Store implements interfaces.KeyValueStore
var _ interfaces.KeyValueStore = (*Store)(nil)

// Client is the subset of redis.Client the store needs. Kept narrow so tests
// can substitute a fake.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Store is a Redis-backed KeyValueStore. Values carry their own expiry
// metadata, so keys are written without a Redis-side TTL and reaped by the
// cache's own purge logic.
type Store struct {
	client  Client
	pattern string
	logger  *zap.Logger
}

const connectTimeout = 5 * time.Second

// New connects to redisURL and returns a store scoped to keys matching
// pattern (e.g. "newscache:*").
func New(redisURL, pattern string, logger *zap.Logger) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	logger.Info("Connected to redis", zap.String("address", opts.Addr))

	return NewWithClient(client, pattern, logger), nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client Client, pattern string, logger *zap.Logger) *Store {
	return &Store{client: client, pattern: pattern, logger: logger}
}

// Get retrieves a value by key. A missing key is not an error.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Remove deletes a key.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// ListKeys returns the keys in the store's namespace.
func (s *Store) ListKeys(ctx context.Context) ([]string, error) {
	return s.client.Keys(ctx, s.pattern).Result()
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.client.Close()
}
