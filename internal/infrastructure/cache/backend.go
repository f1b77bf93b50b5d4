package cache

import "context"

// Backend is a byte-oriented key/value store shared by the product cache,
// settings and print stores. Get returns domain.ErrCacheMiss for absent keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// GetDel returns the value and removes it in one step
	GetDel(ctx context.Context, key string) ([]byte, error)
}
