package inventory

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/shared"
)

// PackingListLine is one product row of a shipment packing list
type PackingListLine struct {
	shared.BaseEntity
	ProjectID       *uuid.UUID
	PackingCode     string
	PLDate          time.Time
	ProductName     string
	BoxCount        int64
	PackagingCount  int64
	PackagingMethod int64
}

// MaxPackingFactor bounds each of box_count, packaging_count and
// packaging_method so a single line's product fits in int64.
const MaxPackingFactor = 1_000_000

// PackingLineFields are the editable attributes of a packing-list line
type PackingLineFields struct {
	ProjectID       *uuid.UUID
	ProductName     string
	BoxCount        int64
	PackagingCount  int64
	PackagingMethod int64
}

// Validate checks that every factor lies in [0, MaxPackingFactor]
func (f PackingLineFields) Validate() error {
	if f.BoxCount < 0 || f.PackagingCount < 0 || f.PackagingMethod < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Packing factors must not be negative")
	}
	if f.BoxCount > MaxPackingFactor || f.PackagingCount > MaxPackingFactor || f.PackagingMethod > MaxPackingFactor {
		return shared.NewDomainError(shared.CodeInvalidInput, "Packing factors cannot exceed 1000000")
	}
	if len(f.ProductName) > 200 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot exceed 200 characters")
	}
	return nil
}

// NewPackingListLine creates a line under a packing code
func NewPackingListLine(packingCode string, plDate time.Time, fields PackingLineFields) (*PackingListLine, error) {
	packingCode = strings.TrimSpace(packingCode)
	if packingCode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Packing code cannot be empty")
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	line := &PackingListLine{
		BaseEntity:  shared.NewBaseEntity(),
		PackingCode: packingCode,
		PLDate:      plDate,
	}
	line.apply(fields)
	return line, nil
}

// Update replaces the editable attributes of the line
func (l *PackingListLine) Update(fields PackingLineFields) error {
	if err := fields.Validate(); err != nil {
		return err
	}
	l.apply(fields)
	l.Touch()
	return nil
}

func (l *PackingListLine) apply(f PackingLineFields) {
	l.ProjectID = f.ProjectID
	l.ProductName = strings.TrimSpace(f.ProductName)
	l.BoxCount = f.BoxCount
	l.PackagingCount = f.PackagingCount
	l.PackagingMethod = f.PackagingMethod
}

// Counts reports whether the line contributes to shipped totals.
// Lines with any zero factor are placeholders.
func (l *PackingListLine) Counts() bool {
	return l.BoxCount > 0 && l.PackagingCount > 0 && l.PackagingMethod > 0
}

// ShippedQuantity is box_count * packaging_count * packaging_method, or 0 for
// a placeholder line. A product past int64 saturates at math.MaxInt64 so it
// can never be accepted as an export.
func (l *PackingListLine) ShippedQuantity() int64 {
	if !l.Counts() {
		return 0
	}
	return saturatingMul(saturatingMul(l.BoxCount, l.PackagingCount), l.PackagingMethod)
}

// saturatingMul multiplies two non-negative values, clamping at math.MaxInt64
func saturatingMul(a, b int64) int64 {
	if a != 0 && b > math.MaxInt64/a {
		return math.MaxInt64
	}
	return a * b
}

// saturatingAdd adds two non-negative values, clamping at math.MaxInt64
func saturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// BelongsTo returns true if the line is tagged with the project
func (l *PackingListLine) BelongsTo(projectID uuid.UUID) bool {
	return l.ProjectID != nil && *l.ProjectID == projectID
}

// ShipmentSummary is the shipped total of a project's packing lines
type ShipmentSummary struct {
	Quantity  int64
	LineCount int64
}

// SummarizeShipments sums the shipped quantity of the counted lines tagged with projectID
func SummarizeShipments(projectID uuid.UUID, lines []PackingListLine) ShipmentSummary {
	var s ShipmentSummary
	for i := range lines {
		if !lines[i].BelongsTo(projectID) || !lines[i].Counts() {
			continue
		}
		s.Quantity = saturatingAdd(s.Quantity, lines[i].ShippedQuantity())
		s.LineCount++
	}
	return s
}

// AffectedProjects returns the distinct project IDs tagged on the lines
func AffectedProjects(lines ...*PackingListLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, l := range lines {
		if l == nil || l.ProjectID == nil {
			continue
		}
		if _, ok := seen[*l.ProjectID]; ok {
			continue
		}
		seen[*l.ProjectID] = struct{}{}
		ids = append(ids, *l.ProjectID)
	}
	return ids
}
