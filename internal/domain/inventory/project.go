package inventory

import (
	"strings"

	"github.com/mfgorder/backend/internal/domain/shared"
)

// Project is the aggregate holding the denormalised stock counters of a
// manufacturing project.
//
// The counters obey, at every commit point:
//
//	EntryQuantity  >= 0
//	ExportQuantity >= 0
//	RemainQuantity >= 0
//	ExportQuantity <= EntryQuantity
//	RemainQuantity == EntryQuantity - ExportQuantity
//
// EntryQuantity only changes through explicit entry updates; ExportQuantity and
// RemainQuantity only change through allocation or reconciliation.
type Project struct {
	shared.BaseEntity
	Code           string
	Name           string
	EntryQuantity  int64
	ExportQuantity int64
	RemainQuantity int64
}

// NewProject creates a project with zero counters
func NewProject(code, name string) (*Project, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Project code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Project code cannot exceed 50 characters")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Project name cannot exceed 200 characters")
	}
	return &Project{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       strings.TrimSpace(name),
	}, nil
}

// Remain returns entry minus export, independent of the stored remain counter
func (p *Project) Remain() int64 {
	return p.EntryQuantity - p.ExportQuantity
}

// Validate checks every aggregate invariant and describes the first one broken
func (p *Project) Validate() error {
	switch {
	case p.EntryQuantity < 0:
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"entry_quantity must not be negative (got %d)", p.EntryQuantity)
	case p.ExportQuantity < 0:
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"export_quantity must not be negative (got %d)", p.ExportQuantity)
	case p.RemainQuantity < 0:
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"remain_quantity must not be negative (got %d)", p.RemainQuantity)
	case p.ExportQuantity > p.EntryQuantity:
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"export_quantity %d exceeds entry_quantity %d", p.ExportQuantity, p.EntryQuantity)
	case p.RemainQuantity != p.Remain():
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"remain_quantity %d does not equal entry_quantity - export_quantity (%d)", p.RemainQuantity, p.Remain())
	}
	return nil
}

// RecordExport adds a shipped quantity to the export counter
func (p *Project) RecordExport(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	if quantity > p.Remain() {
		return shared.NewDomainErrorf(shared.CodeInsufficientStock,
			"Insufficient stock: requested %d, remaining %d", quantity, p.Remain())
	}
	p.ExportQuantity += quantity
	p.syncRemain()
	return p.Validate()
}

// ReverseExport takes a previously shipped quantity back out of the export counter
func (p *Project) ReverseExport(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	if quantity > p.ExportQuantity {
		return shared.NewDomainErrorf(shared.CodeRestoreExceedsExported,
			"Restore quantity %d exceeds exported quantity %d", quantity, p.ExportQuantity)
	}
	p.ExportQuantity -= quantity
	p.syncRemain()
	return p.Validate()
}

// ReplaceExport overwrites the export counter with a recomputed total
func (p *Project) ReplaceExport(export int64) error {
	if export < 0 {
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"export_quantity must not be negative (got %d)", export)
	}
	if export > p.EntryQuantity {
		return shared.NewDomainErrorf(shared.CodeExportExceedsEntry,
			"Recalculated export quantity %d exceeds entry quantity %d", export, p.EntryQuantity)
	}
	p.ExportQuantity = export
	p.syncRemain()
	return p.Validate()
}

// AddEntry registers quantity received into a completed batch
func (p *Project) AddEntry(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	return p.SetEntryQuantity(p.EntryQuantity + quantity)
}

// RemoveEntry withdraws quantity of a deleted batch from the entry counter
func (p *Project) RemoveEntry(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	return p.SetEntryQuantity(p.EntryQuantity - quantity)
}

// SetEntryQuantity overwrites the entry counter. The change is rejected when
// it would leave less entered than already exported.
func (p *Project) SetEntryQuantity(entry int64) error {
	if entry < 0 {
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"entry_quantity must not be negative (got %d)", entry)
	}
	if entry < p.ExportQuantity {
		return shared.NewDomainErrorf(shared.CodeInvariantViolation,
			"entry_quantity %d would be below export_quantity %d", entry, p.ExportQuantity)
	}
	p.EntryQuantity = entry
	p.syncRemain()
	return p.Validate()
}

func (p *Project) syncRemain() {
	p.RemainQuantity = p.Remain()
	p.Touch()
}
