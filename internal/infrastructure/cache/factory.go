package cache

import (
	"fmt"
	"io"
	"time"

	appinv "github.com/mfgorder/backend/internal/application/inventory"
	"github.com/mfgorder/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StockCache is a snapshot cache that holds resources until closed
type StockCache interface {
	appinv.StockSnapshotCache
	io.Closer
}

// StockCacheFactory creates stock snapshot caches based on configuration
type StockCacheFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StockCacheFactoryOption is a functional option for configuring the factory
type StockCacheFactoryOption func(*StockCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StockCacheFactoryOption {
	return func(f *StockCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) StockCacheFactoryOption {
	return func(f *StockCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStockCacheFactory creates a new factory
func NewStockCacheFactory(cfg config.RedisConfig, ttl time.Duration, opts ...StockCacheFactoryOption) *StockCacheFactory {
	f := &StockCacheFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCache returns a Redis cache when Redis is enabled and reachable,
// otherwise an in-memory one if fallback is allowed. A zero TTL disables
// caching and returns nil.
func (f *StockCacheFactory) CreateCache() (StockCache, error) {
	if f.ttl <= 0 {
		f.logger.Info("stock snapshot cache disabled")
		return nil, nil
	}

	if f.redisConfig.Enabled {
		c, err := NewRedisStockSnapshotCache(RedisConfig{
			Addr:     f.redisConfig.Addr(),
			Password: f.redisConfig.Password,
			DB:       f.redisConfig.DB,
		}, f.ttl, WithCacheLogger(f.logger))
		if err == nil {
			f.logger.Info("using Redis stock snapshot cache", zap.String("addr", f.redisConfig.Addr()))
			return c, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for stock cache but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stock cache. "+
			"Snapshots may be stale on other instances until their TTL expires.",
			zap.Error(err))
	}

	return NewInMemoryStockSnapshotCache(f.ttl), nil
}
