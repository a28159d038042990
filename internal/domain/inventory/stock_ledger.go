package inventory

import (
	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/shared"
)

// BatchDelta describes how one batch changed during an allocation
type BatchDelta struct {
	BatchID        uuid.UUID `json:"batch_id"`
	Amount         int64     `json:"amount"`
	NewStock       int64     `json:"new_stock"`
	NewOutQuantity int64     `json:"new_out_quantity"`
}

// DeductionResult is the outcome of a FIFO deduction
type DeductionResult struct {
	ProjectID         uuid.UUID
	DeductedQuantity  int64
	NewExportQuantity int64
	NewRemainQuantity int64
	Deltas            []BatchDelta
	Touched           []*WarehouseEntry
}

// RestorationResult is the outcome of a LIFO restoration.
// UnattributedQuantity is the part of the request no batch had out_quantity for.
type RestorationResult struct {
	ProjectID            uuid.UUID
	RestoredQuantity     int64
	NewExportQuantity    int64
	NewRemainQuantity    int64
	UnattributedQuantity int64
	Deltas               []BatchDelta
	Touched              []*WarehouseEntry
}

// ReconciliationResult is the outcome of recomputing export from packing lines
type ReconciliationResult struct {
	ProjectID         uuid.UUID
	OldExportQuantity int64
	NewExportQuantity int64
	NewRemainQuantity int64
	PackingLineCount  int64
}

// Changed returns true if the export counter moved
func (r *ReconciliationResult) Changed() bool {
	return r.OldExportQuantity != r.NewExportQuantity
}

// StockLedger is the domain service that moves quantities between a project's
// counters and its batches. It mutates the entities it is given and never
// touches storage; callers persist Touched batches and the project inside one
// transaction, and discard everything when an error is returned.
type StockLedger struct{}

// NewStockLedger creates a new stock ledger domain service
func NewStockLedger() *StockLedger {
	return &StockLedger{}
}

// Deduct ships quantity out of the project's complete batches, oldest first.
// Nothing is mutated unless the whole quantity can be allocated.
func (s *StockLedger) Deduct(project *Project, batches []*WarehouseEntry, quantity int64) (*DeductionResult, error) {
	if project == nil {
		return nil, shared.ErrNotFound
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	if quantity > project.Remain() {
		return nil, shared.NewDomainErrorf(shared.CodeInsufficientStock,
			"Insufficient stock: requested %d, remaining %d", quantity, project.Remain())
	}

	candidates := make([]*WarehouseEntry, 0, len(batches))
	var available int64
	for _, b := range batches {
		if b.ProjectID != project.ID || !b.IsComplete() || b.Stock <= 0 {
			continue
		}
		candidates = append(candidates, b)
		available += b.Stock
	}
	if available < quantity {
		return nil, shared.NewDomainErrorf(shared.CodeInsufficientStock,
			"Insufficient batch stock: requested %d, batches hold %d", quantity, available)
	}
	SortFIFO(candidates)

	result := &DeductionResult{ProjectID: project.ID}
	remaining := quantity
	for _, b := range candidates {
		if remaining == 0 {
			break
		}
		taken := b.Take(remaining)
		if taken == 0 {
			continue
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		remaining -= taken
		result.Deltas = append(result.Deltas, BatchDelta{
			BatchID:        b.ID,
			Amount:         taken,
			NewStock:       b.Stock,
			NewOutQuantity: b.OutQuantity,
		})
		result.Touched = append(result.Touched, b)
	}

	if err := project.RecordExport(quantity); err != nil {
		return nil, err
	}
	result.DeductedQuantity = quantity
	result.NewExportQuantity = project.ExportQuantity
	result.NewRemainQuantity = project.RemainQuantity
	return result, nil
}

// Restore returns quantity to the project's complete batches, newest first.
// Batch attribution is best effort; the aggregate counters are always exact.
func (s *StockLedger) Restore(project *Project, batches []*WarehouseEntry, quantity int64) (*RestorationResult, error) {
	if project == nil {
		return nil, shared.ErrNotFound
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	if quantity > project.ExportQuantity {
		return nil, shared.NewDomainErrorf(shared.CodeRestoreExceedsExported,
			"Restore quantity %d exceeds exported quantity %d", quantity, project.ExportQuantity)
	}

	candidates := make([]*WarehouseEntry, 0, len(batches))
	for _, b := range batches {
		if b.ProjectID != project.ID || !b.IsComplete() || b.OutQuantity <= 0 {
			continue
		}
		candidates = append(candidates, b)
	}
	SortLIFO(candidates)

	result := &RestorationResult{ProjectID: project.ID}
	remaining := quantity
	for _, b := range candidates {
		if remaining == 0 {
			break
		}
		released := b.Release(remaining)
		if released == 0 {
			continue
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		remaining -= released
		result.Deltas = append(result.Deltas, BatchDelta{
			BatchID:        b.ID,
			Amount:         released,
			NewStock:       b.Stock,
			NewOutQuantity: b.OutQuantity,
		})
		result.Touched = append(result.Touched, b)
	}

	if err := project.ReverseExport(quantity); err != nil {
		return nil, err
	}
	result.RestoredQuantity = quantity
	result.UnattributedQuantity = remaining
	result.NewExportQuantity = project.ExportQuantity
	result.NewRemainQuantity = project.RemainQuantity
	return result, nil
}

// Reconcile replaces the project's export counter with the shipped total of its
// packing lines. Batch counters are left alone.
func (s *StockLedger) Reconcile(project *Project, shipped ShipmentSummary) (*ReconciliationResult, error) {
	if project == nil {
		return nil, shared.ErrNotFound
	}
	old := project.ExportQuantity
	if err := project.ReplaceExport(shipped.Quantity); err != nil {
		return nil, err
	}
	return &ReconciliationResult{
		ProjectID:         project.ID,
		OldExportQuantity: old,
		NewExportQuantity: project.ExportQuantity,
		NewRemainQuantity: project.RemainQuantity,
		PackingLineCount:  shipped.LineCount,
	}, nil
}
