package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/shared"
)

// EntryStatus is the receiving status of a warehouse entry
type EntryStatus string

const (
	// EntryStatusPending marks a batch that is still being received
	EntryStatusPending EntryStatus = "입고중"
	// EntryStatusComplete marks a fully received batch; only these are allocated
	EntryStatusComplete EntryStatus = "입고완료"
)

// IsValid checks if the status is one of the known values
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusPending, EntryStatusComplete:
		return true
	}
	return false
}

// String returns the string representation
func (s EntryStatus) String() string {
	return string(s)
}

// WarehouseEntry is an inbound batch of goods for a project.
// Quantity never changes after creation and Stock + OutQuantity == Quantity.
type WarehouseEntry struct {
	shared.BaseEntity
	ProjectID   uuid.UUID
	Quantity    int64
	Stock       int64
	OutQuantity int64
	EntryDate   time.Time
	Status      EntryStatus
	Note        string
}

// NewWarehouseEntry creates a batch with its full quantity in stock
func NewWarehouseEntry(projectID uuid.UUID, quantity int64, entryDate time.Time, status EntryStatus, note string) (*WarehouseEntry, error) {
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Project ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Entry quantity must be positive")
	}
	if entryDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Entry date is required")
	}
	if status == "" {
		status = EntryStatusPending
	}
	if !status.IsValid() {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown entry status %q", status)
	}
	return &WarehouseEntry{
		BaseEntity: shared.NewBaseEntity(),
		ProjectID:  projectID,
		Quantity:   quantity,
		Stock:      quantity,
		EntryDate:  entryDate,
		Status:     status,
		Note:       note,
	}, nil
}

// IsComplete returns true if the batch takes part in allocation
func (e *WarehouseEntry) IsComplete() bool {
	return e.Status == EntryStatusComplete
}

// Complete marks a pending batch as fully received
func (e *WarehouseEntry) Complete() error {
	if e.IsComplete() {
		return shared.NewDomainError(shared.CodeInvalidState, "Warehouse entry is already complete")
	}
	e.Status = EntryStatusComplete
	e.Touch()
	return nil
}

// Take moves up to n units from stock to out_quantity and returns how many moved
func (e *WarehouseEntry) Take(n int64) int64 {
	taken := min(n, e.Stock)
	if taken <= 0 {
		return 0
	}
	e.Stock -= taken
	e.OutQuantity += taken
	e.Touch()
	return taken
}

// Release moves up to n units from out_quantity back to stock and returns how many moved
func (e *WarehouseEntry) Release(n int64) int64 {
	released := min(n, e.OutQuantity)
	if released <= 0 {
		return 0
	}
	e.OutQuantity -= released
	e.Stock += released
	e.Touch()
	return released
}

// HasAllocations returns true if any of the batch has been shipped
func (e *WarehouseEntry) HasAllocations() bool {
	return e.OutQuantity > 0
}

// Validate checks the batch counter invariants
func (e *WarehouseEntry) Validate() error {
	switch {
	case e.Stock < 0:
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"batch %s stock must not be negative (got %d)", e.ID, e.Stock)
	case e.OutQuantity < 0:
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"batch %s out_quantity must not be negative (got %d)", e.ID, e.OutQuantity)
	case e.OutQuantity > e.Quantity:
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"batch %s out_quantity %d exceeds quantity %d", e.ID, e.OutQuantity, e.Quantity)
	case e.Stock+e.OutQuantity != e.Quantity:
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"batch %s stock %d + out_quantity %d does not equal quantity %d", e.ID, e.Stock, e.OutQuantity, e.Quantity)
	}
	return nil
}

// EntryImage references a photo of a received batch in object storage
type EntryImage struct {
	ID         uuid.UUID
	EntryID    uuid.UUID
	StorageKey string
	CreatedAt  time.Time
}

// NewEntryImage creates an image reference for a batch
func NewEntryImage(entryID uuid.UUID, storageKey string) (*EntryImage, error) {
	if entryID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Entry ID cannot be empty")
	}
	if storageKey == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Storage key cannot be empty")
	}
	return &EntryImage{
		ID:         uuid.New(),
		EntryID:    entryID,
		StorageKey: storageKey,
		CreatedAt:  time.Now(),
	}, nil
}

// BatchTotals sums the counters of every batch of a project
type BatchTotals struct {
	Count       int64
	Quantity    int64
	Stock       int64
	OutQuantity int64
}
