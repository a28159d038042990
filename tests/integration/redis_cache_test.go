//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	inventoryapp "github.com/mfgorder/backend/internal/application/inventory"
	"github.com/mfgorder/backend/internal/infrastructure/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const redisImage = "redis:7-alpine"

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisStockSnapshotCache_GenerationGuard(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := startRedis(t)
	c := cache.NewRedisStockSnapshotCacheWithClient(client, time.Minute)
	ctx := context.Background()
	id := uuid.New()
	snap := func(remain int64) *inventoryapp.ProjectStockResponse {
		return &inventoryapp.ProjectStockResponse{ProjectID: id, Code: "R-1", RemainQuantity: remain}
	}

	gen, err := c.Generation(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, gen)

	require.NoError(t, c.Set(ctx, snap(10), gen))
	got, ok, err := c.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(10), got.RemainQuantity)

	require.NoError(t, c.Invalidate(ctx, id))
	_, ok, err = c.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	// a reader that took generation 0 before the invalidation fills late
	require.NoError(t, c.Set(ctx, snap(10), gen))
	_, ok, err = c.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "stale fill is dropped")

	gen, err = c.Generation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	require.NoError(t, c.Set(ctx, snap(6), gen))
	got, ok, err = c.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(6), got.RemainQuantity)
}

func TestRedisStockSnapshotCache_FillsRacingInvalidations(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := startRedis(t)
	c := cache.NewRedisStockSnapshotCacheWithClient(client, time.Minute)
	ctx := context.Background()
	id := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			gen, err := c.Generation(ctx, id)
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, c.Set(ctx, &inventoryapp.ProjectStockResponse{ProjectID: id, RemainQuantity: gen}, gen))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Invalidate(ctx, id))
		}()
	}
	wg.Wait()

	// whatever survived was written at the final generation
	final, err := c.Generation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(50), final)
	if got, ok, err := c.Get(ctx, id); assert.NoError(t, err) && ok {
		assert.Equal(t, final, got.RemainQuantity)
	}
}
