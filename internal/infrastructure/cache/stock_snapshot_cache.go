package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	appinv "github.com/mfgorder/backend/internal/application/inventory"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultStockKeyPrefix = "ledger:stock:"

// RedisStockSnapshotCache implements StockSnapshotCache using Redis, so every
// API instance sees the same invalidations
type RedisStockSnapshotCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	ttl        time.Duration
	keyPrefix  string
	logger     *zap.Logger
}

// RedisStockSnapshotCacheOption is a functional option for configuring the cache
type RedisStockSnapshotCacheOption func(*RedisStockSnapshotCache)

// WithKeyPrefix sets the Redis key prefix
func WithKeyPrefix(prefix string) RedisStockSnapshotCacheOption {
	return func(c *RedisStockSnapshotCache) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisStockSnapshotCacheOption {
	return func(c *RedisStockSnapshotCache) {
		c.logger = logger
	}
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStockSnapshotCache connects to Redis and creates a cache whose
// entries live for ttl
func NewRedisStockSnapshotCache(cfg RedisConfig, ttl time.Duration, opts ...RedisStockSnapshotCacheOption) (*RedisStockSnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisStockSnapshotCacheWithClient(client, ttl, opts...)
	c.ownsClient = true
	return c, nil
}

// NewRedisStockSnapshotCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisStockSnapshotCacheWithClient(client *redis.Client, ttl time.Duration, opts ...RedisStockSnapshotCacheOption) *RedisStockSnapshotCache {
	c := &RedisStockSnapshotCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: defaultStockKeyPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisStockSnapshotCache) key(projectID uuid.UUID) string {
	return c.keyPrefix + projectID.String()
}

// genKey holds the project's generation. It has no expiry: a counter that
// vanished and restarted at zero could match a stale reader's token.
func (c *RedisStockSnapshotCache) genKey(projectID uuid.UUID) string {
	return c.keyPrefix + "gen:" + projectID.String()
}

// Get retrieves a snapshot. A miss returns ok=false and no error.
func (c *RedisStockSnapshotCache) Get(ctx context.Context, projectID uuid.UUID) (*appinv.ProjectStockResponse, bool, error) {
	data, err := c.client.Get(ctx, c.key(projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get stock snapshot from cache: %w", err)
	}

	var snapshot appinv.ProjectStockResponse
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// Drop the corrupted entry so the next read repopulates it
		_ = c.client.Del(ctx, c.key(projectID))
		return nil, false, fmt.Errorf("failed to unmarshal stock snapshot: %w", err)
	}
	return &snapshot, true, nil
}

// Generation returns the project's current generation, 0 if it was never
// invalidated
func (c *RedisStockSnapshotCache) Generation(ctx context.Context, projectID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(projectID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock snapshot generation: %w", err)
	}
	return gen, nil
}

// Set stores a snapshot for the configured TTL if the project is still at
// generation. The generation key is WATCHed, so an Invalidate racing the
// write aborts the transaction and nothing is stored.
func (c *RedisStockSnapshotCache) Set(ctx context.Context, snapshot *appinv.ProjectStockResponse, generation int64) error {
	if snapshot == nil || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal stock snapshot: %w", err)
	}

	projectID := snapshot.ProjectID
	genKey := c.genKey(projectID)
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(projectID), data, c.ttl)
			return nil
		})
		stored = err == nil
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("failed to set stock snapshot in cache: %w", err)
	}
	if !stored {
		c.logger.Debug("skipped stale stock snapshot",
			zap.String("project_id", projectID.String()), zap.Int64("generation", generation))
		return nil
	}
	c.logger.Debug("cached stock snapshot", zap.String("project_id", projectID.String()))
	return nil
}

// Invalidate advances the generation of the given projects and removes
// their snapshots in one MULTI/EXEC
func (c *RedisStockSnapshotCache) Invalidate(ctx context.Context, projectIDs ...uuid.UUID) error {
	if len(projectIDs) == 0 {
		return nil
	}
	keys := make([]string, len(projectIDs))
	for i, id := range projectIDs {
		keys[i] = c.key(id)
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range projectIDs {
			pipe.Incr(ctx, c.genKey(id))
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate stock snapshots: %w", err)
	}
	return nil
}

// Close closes the Redis client if this cache created it
func (c *RedisStockSnapshotCache) Close() error {
	if !c.ownsClient {
		return nil
	}
	return c.client.Close()
}

// Ensure RedisStockSnapshotCache implements StockSnapshotCache
var _ appinv.StockSnapshotCache = (*RedisStockSnapshotCache)(nil)
