package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/smartkanban/backend/internal/domain"
)

// DefaultProductTTL is how long a pipeline result stays valid
const DefaultProductTTL = 24 * time.Hour

const productKeyPrefix = "cache_"

// ProductCache stores pipeline results keyed by the exact page URL.
// Expiry is evaluated on read: a stale entry is deleted and reported as a miss.
type ProductCache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// ProductCacheOption configures a ProductCache
type ProductCacheOption func(*ProductCache)

// WithTTL overrides the entry lifetime
func WithTTL(ttl time.Duration) ProductCacheOption {
	return func(c *ProductCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for timestamps and expiry
func WithClock(now func() time.Time) ProductCacheOption {
	return func(c *ProductCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewProductCache creates a product cache on top of backend
func NewProductCache(backend Backend, logger *zap.Logger, opts ...ProductCacheOption) *ProductCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ProductCache{
		backend: backend,
		ttl:     DefaultProductTTL,
		now:     time.Now,
		logger:  logger.Named("product_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// productKey builds the storage key for a page URL
func productKey(pageURL string) string {
	return productKeyPrefix + pageURL
}

// Get returns the cached data for pageURL or domain.ErrCacheMiss
func (c *ProductCache) Get(ctx context.Context, pageURL string) (*domain.ProductData, error) {
	key := productKey(pageURL)

	raw, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("dropping unreadable cache entry", zap.String("url", pageURL), zap.Error(err))
		_ = c.backend.Delete(ctx, key)
		return nil, domain.ErrCacheMiss
	}

	if age := c.now().Sub(entry.Timestamp); age >= c.ttl {
		c.logger.Debug("cache entry expired", zap.String("url", pageURL), zap.Duration("age", age))
		if err := c.backend.Delete(ctx, key); err != nil {
			c.logger.Warn("failed to delete expired cache entry", zap.String("url", pageURL), zap.Error(err))
		}
		return nil, domain.ErrCacheMiss
	}

	return &entry.Data, nil
}

// Put stores data for pageURL stamped with the current time
func (c *ProductCache) Put(ctx context.Context, pageURL string, data *domain.ProductData) error {
	if data == nil {
		return errors.New("cache: nil product data")
	}

	raw, err := json.Marshal(domain.CacheEntry{
		Timestamp: c.now(),
		Data:      *data,
	})
	if err != nil {
		return err
	}

	return c.backend.Set(ctx, productKey(pageURL), raw)
}

// Invalidate removes the entry for pageURL, if any
func (c *ProductCache) Invalidate(ctx context.Context, pageURL string) error {
	return c.backend.Delete(ctx, productKey(pageURL))
}
