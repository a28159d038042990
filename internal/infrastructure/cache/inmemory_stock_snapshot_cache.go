package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	appinv "github.com/mfgorder/backend/internal/application/inventory"
)

type snapshotEntry struct {
	snapshot  appinv.ProjectStockResponse
	expiresAt time.Time
}

// InMemoryStockSnapshotCache implements StockSnapshotCache with a local map.
// It suits single-instance deployments and tests; invalidations are not
// shared across processes.
type InMemoryStockSnapshotCache struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]snapshotEntry
	gens      map[uuid.UUID]int64
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryStockSnapshotCache creates a cache whose entries live for ttl.
// A background goroutine evicts expired entries until Close is called.
func NewInMemoryStockSnapshotCache(ttl time.Duration) *InMemoryStockSnapshotCache {
	c := &InMemoryStockSnapshotCache{
		entries:  make(map[uuid.UUID]snapshotEntry),
		gens:     make(map[uuid.UUID]int64),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop()
	return c
}

// Get retrieves a snapshot that has not expired
func (c *InMemoryStockSnapshotCache) Get(_ context.Context, projectID uuid.UUID) (*appinv.ProjectStockResponse, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[projectID]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	snapshot := e.snapshot
	return &snapshot, true, nil
}

// Generation returns how many times the project has been invalidated
func (c *InMemoryStockSnapshotCache) Generation(_ context.Context, projectID uuid.UUID) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[projectID], nil
}

// Set stores a copy of the snapshot unless the project was invalidated
// after generation was read
func (c *InMemoryStockSnapshotCache) Set(_ context.Context, snapshot *appinv.ProjectStockResponse, generation int64) error {
	if snapshot == nil || c.ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[snapshot.ProjectID] != generation {
		return nil
	}
	c.entries[snapshot.ProjectID] = snapshotEntry{
		snapshot:  *snapshot,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Invalidate removes the snapshots of the given projects and advances
// their generations
func (c *InMemoryStockSnapshotCache) Invalidate(_ context.Context, projectIDs ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range projectIDs {
		delete(c.entries, id)
		c.gens[id]++
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryStockSnapshotCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemoryStockSnapshotCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryStockSnapshotCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, id)
		}
	}
}

// Size returns the number of entries held, expired or not
func (c *InMemoryStockSnapshotCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryStockSnapshotCache implements StockSnapshotCache
var _ appinv.StockSnapshotCache = (*InMemoryStockSnapshotCache)(nil)
