package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/shared"
)

// ProjectRepository defines the interface for project persistence
type ProjectRepository interface {
	// FindByID finds a project by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)

	// FindByIDForUpdate finds a project by ID and locks its row until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Project, error)

	// FindByCode finds a project by its code
	FindByCode(ctx context.Context, code string) (*Project, error)

	// FindAll finds all projects matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Project, error)

	// ListIDs returns the IDs of every project in creation order
	ListIDs(ctx context.Context) ([]uuid.UUID, error)

	// Count counts projects matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByCode checks if a project code is taken
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// Save creates or updates a project
	Save(ctx context.Context, project *Project) error
}

// WarehouseEntryRepository defines the interface for batch persistence
type WarehouseEntryRepository interface {
	// FindByID finds a batch by ID
	FindByID(ctx context.Context, id uuid.UUID) (*WarehouseEntry, error)

	// FindByIDForUpdate finds a batch by ID and locks its row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*WarehouseEntry, error)

	// FindByProject lists a project's batches in FIFO order
	FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]WarehouseEntry, error)

	// CountByProject counts a project's batches matching the filter
	CountByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) (int64, error)

	// FindDeductibleForUpdate locks and returns the complete batches with stock
	// left, ordered by (entry_date, created_at, id) ascending
	FindDeductibleForUpdate(ctx context.Context, projectID uuid.UUID) ([]*WarehouseEntry, error)

	// FindRestorableForUpdate locks and returns the complete batches with
	// out_quantity left, ordered by (entry_date, created_at, id) descending
	FindRestorableForUpdate(ctx context.Context, projectID uuid.UUID) ([]*WarehouseEntry, error)

	// Totals sums the counters of every batch of a project
	Totals(ctx context.Context, projectID uuid.UUID) (BatchTotals, error)

	// Save creates or updates a batch
	Save(ctx context.Context, entry *WarehouseEntry) error

	// SaveBatch updates several batches at once
	SaveBatch(ctx context.Context, entries []*WarehouseEntry) error

	// Delete removes a batch together with its image rows
	Delete(ctx context.Context, id uuid.UUID) error

	// SaveImage records an image reference for a batch
	SaveImage(ctx context.Context, image *EntryImage) error

	// FindImages lists the images of a batch
	FindImages(ctx context.Context, entryID uuid.UUID) ([]EntryImage, error)
}

// PackingListRepository defines the interface for packing-list persistence
type PackingListRepository interface {
	// FindByID finds a packing-list line by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PackingListLine, error)

	// FindByIDForUpdate finds a line by ID and locks it for the rest of the transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PackingListLine, error)

	// FindByPackingCode lists the lines of one packing list
	FindByPackingCode(ctx context.Context, packingCode string) ([]PackingListLine, error)

	// FindByPackingCodeForUpdate lists the lines of one packing list and locks them
	FindByPackingCodeForUpdate(ctx context.Context, packingCode string) ([]PackingListLine, error)

	// SummarizeByProject sums box_count * packaging_count * packaging_method over
	// the project's lines whose three factors are all positive, saturating at
	// math.MaxInt64
	SummarizeByProject(ctx context.Context, projectID uuid.UUID) (ShipmentSummary, error)

	// Save creates or updates a line
	Save(ctx context.Context, line *PackingListLine) error

	// SaveBatch creates several lines at once
	SaveBatch(ctx context.Context, lines []*PackingListLine) error

	// Delete removes a line
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByPackingCode removes every line of a packing list and returns how many were removed
	DeleteByPackingCode(ctx context.Context, packingCode string) (int64, error)
}
