package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LedgerMetrics records ledger activity. Implementations must be safe for
// concurrent use.
type LedgerMetrics interface {
	RecordDeduction(ctx context.Context, quantity int64)
	RecordRestoration(ctx context.Context, quantity, unattributed int64)
	RecordReconciliation(ctx context.Context, changed bool)
	RecordFailure(ctx context.Context, operation string, err error)
}

// StockSnapshotCache caches ProjectStockResponse snapshots by project ID.
//
// Every project has a generation that Invalidate advances. A reader takes
// the generation before loading a snapshot and hands it to Set, which stores
// nothing once the generation has moved on. A snapshot read before a commit
// therefore never outlives that commit's invalidation.
type StockSnapshotCache interface {
	Get(ctx context.Context, projectID uuid.UUID) (*ProjectStockResponse, bool, error)
	Generation(ctx context.Context, projectID uuid.UUID) (int64, error)
	Set(ctx context.Context, snapshot *ProjectStockResponse, generation int64) error
	Invalidate(ctx context.Context, projectIDs ...uuid.UUID) error
}

// ObjectRemover deletes stored objects such as batch images
type ObjectRemover interface {
	DeleteObjects(ctx context.Context, keys []string) error
}

// ObjectURLSigner issues time-limited download URLs for stored objects
type ObjectURLSigner interface {
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

type noopMetrics struct{}

func (noopMetrics) RecordDeduction(context.Context, int64) {}
func (noopMetrics) RecordRestoration(context.Context, int64, int64) {}
func (noopMetrics) RecordReconciliation(context.Context, bool) {}
func (noopMetrics) RecordFailure(context.Context, string, error) {}
