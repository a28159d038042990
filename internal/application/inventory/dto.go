package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/inventory"
)

// RegisterProjectRequest registers a new project with zero counters
type RegisterProjectRequest struct {
	Code string `json:"code" binding:"required,max=50"`
	Name string `json:"name" binding:"max=200"`
}

// UpdateEntryQuantityRequest overwrites a project's entry quantity
type UpdateEntryQuantityRequest struct {
	EntryQuantity int64 `json:"entry_quantity" binding:"gte=0"`
}

// DeductInventoryRequest ships quantity out of a project's batches
type DeductInventoryRequest struct {
	ProjectID uuid.UUID `json:"project_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"gt=0"`
}

// RestoreInventoryRequest returns quantity to a project's batches
type RestoreInventoryRequest struct {
	ProjectID uuid.UUID `json:"project_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"gt=0"`
}

// ProjectListFilter represents filter options for the project list
type ProjectListFilter struct {
	Search    string `form:"search"`
	HasRemain *bool  `form:"has_remain"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string `form:"order_by" binding:"omitempty,oneof=code created_at entry_quantity export_quantity remain_quantity"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProjectResponse represents a project in API responses
type ProjectResponse struct {
	ID             uuid.UUID `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	EntryQuantity  int64     `json:"entry_quantity"`
	ExportQuantity int64     `json:"export_quantity"`
	RemainQuantity int64     `json:"remain_quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToProjectResponse converts a domain Project to a response
func ToProjectResponse(p *inventory.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID,
		Code:           p.Code,
		Name:           p.Name,
		EntryQuantity:  p.EntryQuantity,
		ExportQuantity: p.ExportQuantity,
		RemainQuantity: p.RemainQuantity,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ProjectStockResponse is a read snapshot of a project's counters and batch totals.
// Drift is export_quantity minus the batches' total out_quantity; it becomes
// non-zero after a reconciliation pass replaces the export counter.
type ProjectStockResponse struct {
	ProjectID        uuid.UUID `json:"project_id"`
	Code             string    `json:"code"`
	EntryQuantity    int64     `json:"entry_quantity"`
	ExportQuantity   int64     `json:"export_quantity"`
	RemainQuantity   int64     `json:"remain_quantity"`
	BatchCount       int64     `json:"batch_count"`
	BatchQuantity    int64     `json:"batch_quantity"`
	BatchStock       int64     `json:"batch_stock"`
	BatchOutQuantity int64     `json:"batch_out_quantity"`
	Drift            int64     `json:"drift"`
	SnapshotAt       time.Time `json:"snapshot_at"`
}

// BatchDeltaResponse describes one batch touched by an allocation
type BatchDeltaResponse struct {
	BatchID        uuid.UUID `json:"batch_id"`
	Amount         int64     `json:"amount"`
	NewStock       int64     `json:"new_stock"`
	NewOutQuantity int64     `json:"new_out_quantity"`
}

func toBatchDeltaResponses(deltas []inventory.BatchDelta) []BatchDeltaResponse {
	out := make([]BatchDeltaResponse, len(deltas))
	for i, d := range deltas {
		out[i] = BatchDeltaResponse(d)
	}
	return out
}

// DeductionResponse is the outcome of DeductInventory
type DeductionResponse struct {
	ProjectID         uuid.UUID            `json:"project_id"`
	DeductedQuantity  int64                `json:"deducted_quantity"`
	NewExportQuantity int64                `json:"new_export_quantity"`
	NewRemainQuantity int64                `json:"new_remain_quantity"`
	PerBatchDeltas    []BatchDeltaResponse `json:"per_batch_deltas"`
}

// RestorationResponse is the outcome of RestoreInventory
type RestorationResponse struct {
	ProjectID            uuid.UUID            `json:"project_id"`
	RestoredQuantity     int64                `json:"restored_quantity"`
	NewExportQuantity    int64                `json:"new_export_quantity"`
	NewRemainQuantity    int64                `json:"new_remain_quantity"`
	UnattributedQuantity int64                `json:"unattributed_quantity"`
	PerBatchDeltas       []BatchDeltaResponse `json:"per_batch_deltas"`
}

// ReconciliationResponse is the outcome of RecalculateExportQuantity
type ReconciliationResponse struct {
	ProjectID         uuid.UUID `json:"project_id"`
	OldExportQuantity int64     `json:"old_export_quantity"`
	NewExportQuantity int64     `json:"new_export_quantity"`
	NewRemainQuantity int64     `json:"new_remain_quantity"`
	PackingLineCount  int64     `json:"packing_line_count"`
}

func toReconciliationResponse(r *inventory.ReconciliationResult) ReconciliationResponse {
	return ReconciliationResponse{
		ProjectID:         r.ProjectID,
		OldExportQuantity: r.OldExportQuantity,
		NewExportQuantity: r.NewExportQuantity,
		NewRemainQuantity: r.NewRemainQuantity,
		PackingLineCount:  r.PackingLineCount,
	}
}

// ReconciliationFailure records a project whose recalculation was rejected
type ReconciliationFailure struct {
	ProjectID uuid.UUID `json:"project_id"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
}

// BulkReconciliationResponse is the outcome of recalculating every project
type BulkReconciliationResponse struct {
	Succeeded []ReconciliationResponse `json:"succeeded"`
	Failed    []ReconciliationFailure  `json:"failed"`
}

// RecordEntryRequest registers an inbound batch
type RecordEntryRequest struct {
	Quantity  int64     `json:"quantity" binding:"gt=0"`
	EntryDate time.Time `json:"entry_date" binding:"required"`
	Status    string    `json:"status" binding:"omitempty,oneof=입고중 입고완료"`
	Note      string    `json:"note" binding:"max=500"`
}

// AttachEntryImageRequest records an image already uploaded to object storage
type AttachEntryImageRequest struct {
	StorageKey string `json:"storage_key" binding:"required,max=500"`
}

// EntryListFilter represents filter options for listing a project's batches
type EntryListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=입고중 입고완료"`
	HasStock *bool  `form:"has_stock"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// WarehouseEntryResponse represents a batch in API responses
type WarehouseEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Quantity    int64     `json:"quantity"`
	Stock       int64     `json:"stock"`
	OutQuantity int64     `json:"out_quantity"`
	EntryDate   time.Time `json:"entry_date"`
	Status      string    `json:"status"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToWarehouseEntryResponse converts a domain WarehouseEntry to a response
func ToWarehouseEntryResponse(e *inventory.WarehouseEntry) WarehouseEntryResponse {
	return WarehouseEntryResponse{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		Quantity:    e.Quantity,
		Stock:       e.Stock,
		OutQuantity: e.OutQuantity,
		EntryDate:   e.EntryDate,
		Status:      e.Status.String(),
		Note:        e.Note,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// EntryImageResponse represents a batch image reference
type EntryImageResponse struct {
	ID         uuid.UUID  `json:"id"`
	EntryID    uuid.UUID  `json:"entry_id"`
	StorageKey string     `json:"storage_key"`
	URL        string     `json:"url,omitempty"`
	URLExpires *time.Time `json:"url_expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToEntryImageResponse converts a domain EntryImage to EntryImageResponse
func ToEntryImageResponse(img *inventory.EntryImage) EntryImageResponse {
	return EntryImageResponse{
		ID:         img.ID,
		EntryID:    img.EntryID,
		StorageKey: img.StorageKey,
		CreatedAt:  img.CreatedAt,
	}
}

// DeleteEntryResponse reports what a batch deletion removed
type DeleteEntryResponse struct {
	EntryID           uuid.UUID       `json:"entry_id"`
	RemovedImages     int             `json:"removed_images"`
	EntryQuantityDiff int64           `json:"entry_quantity_diff"`
	Project           ProjectResponse `json:"project"`
}

// PackingLineInput holds the editable attributes of a packing-list line
type PackingLineInput struct {
	ProjectID       *uuid.UUID `json:"project_id"`
	ProductName     string     `json:"product_name" binding:"max=200"`
	BoxCount        int64      `json:"box_count" binding:"gte=0,max=1000000"`
	PackagingCount  int64      `json:"packaging_count" binding:"gte=0,max=1000000"`
	PackagingMethod int64      `json:"packaging_method" binding:"gte=0,max=1000000"`
}

func (in PackingLineInput) fields() inventory.PackingLineFields {
	return inventory.PackingLineFields{
		ProjectID:       in.ProjectID,
		ProductName:     in.ProductName,
		BoxCount:        in.BoxCount,
		PackagingCount:  in.PackagingCount,
		PackagingMethod: in.PackagingMethod,
	}
}

// AddPackingLinesRequest creates lines under one packing code
type AddPackingLinesRequest struct {
	PackingCode string             `json:"packing_code" binding:"required,max=50"`
	PLDate      time.Time          `json:"pl_date" binding:"required"`
	Lines       []PackingLineInput `json:"lines" binding:"required,min=1,dive"`
}

// PackingLineResponse represents a packing-list line
type PackingLineResponse struct {
	ID              uuid.UUID  `json:"id"`
	ProjectID       *uuid.UUID `json:"project_id"`
	PackingCode     string     `json:"packing_code"`
	PLDate          time.Time  `json:"pl_date"`
	ProductName     string     `json:"product_name"`
	BoxCount        int64      `json:"box_count"`
	PackagingCount  int64      `json:"packaging_count"`
	PackagingMethod int64      `json:"packaging_method"`
	ShippedQuantity int64      `json:"shipped_quantity"`
}

// ToPackingLineResponse converts a domain PackingListLine to a response
func ToPackingLineResponse(l *inventory.PackingListLine) PackingLineResponse {
	return PackingLineResponse{
		ID:              l.ID,
		ProjectID:       l.ProjectID,
		PackingCode:     l.PackingCode,
		PLDate:          l.PLDate,
		ProductName:     l.ProductName,
		BoxCount:        l.BoxCount,
		PackagingCount:  l.PackagingCount,
		PackagingMethod: l.PackagingMethod,
		ShippedQuantity: l.ShippedQuantity(),
	}
}

// PackingListChangeResponse is the outcome of a packing-list edit: the lines
// written and the reconciliation of every project the edit touched
type PackingListChangeResponse struct {
	Lines           []PackingLineResponse    `json:"lines"`
	DeletedLines    int64                    `json:"deleted_lines"`
	Reconciliations []ReconciliationResponse `json:"reconciliations"`
}
