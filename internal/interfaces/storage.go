package interfaces

import "context"

//go:generate mockgen -package=mock -source=storage.go -destination=mock/storage.go

// KeyValueStore is the durable blob store used to mirror hot cache entries
// across restarts. Every operation is independently fallible; callers on the
// cache-persistence path must swallow errors.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
	Close() error
}
