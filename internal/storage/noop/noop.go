// Package noop provides a KeyValueStore for configurations with persistence
// disabled.
package noop

import (
	"context"

	"go-news-client/internal/interfaces"
)

// Ensure Store implements interfaces.KeyValueStore
var _ interfaces.KeyValueStore = (*Store)(nil)

// Store is a no-operation KeyValueStore.
type Store struct{}

// New creates a new no-operation store instance.
func New() *Store {
	return &Store{}
}

// Get always reports the key as absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

// Set does nothing.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return nil
}

// Remove does nothing.
func (s *Store) Remove(ctx context.Context, key string) error {
	return nil
}

// ListKeys returns no keys.
func (s *Store) ListKeys(ctx context.Context) ([]string, error) {
	return nil, nil
}

// Close does nothing.
func (s *Store) Close() error {
	return nil
}
