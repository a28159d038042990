package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/inventory"
)

// PackingListLineModel is the persistence model for a packing-list line
type PackingListLineModel struct {
	BaseModel
	ProjectID       *uuid.UUID `gorm:"type:uuid;index"`
	PackingCode     string     `gorm:"type:varchar(50);not null;index"`
	PLDate          time.Time  `gorm:"column:pl_date;type:date;not null"`
	ProductName     string     `gorm:"type:varchar(200);not null;default:''"`
	BoxCount        int64      `gorm:"not null;default:0;check:chk_packing_list_lines_box_count,box_count >= 0"`
	PackagingCount  int64      `gorm:"not null;default:0;check:chk_packing_list_lines_packaging_count,packaging_count >= 0"`
	PackagingMethod int64      `gorm:"not null;default:0;check:chk_packing_list_lines_packaging_method,packaging_method >= 0"`

	Project *ProjectModel `gorm:"foreignKey:ProjectID;constraint:OnDelete:SET NULL"`
}

// TableName returns the table name for GORM
func (PackingListLineModel) TableName() string {
	return "packing_list_lines"
}

// ToDomain converts the persistence model to a domain PackingListLine
func (m *PackingListLineModel) ToDomain() *inventory.PackingListLine {
	return &inventory.PackingListLine{
		BaseEntity:      m.BaseModel.Entity(),
		ProjectID:       m.ProjectID,
		PackingCode:     m.PackingCode,
		PLDate:          m.PLDate,
		ProductName:     m.ProductName,
		BoxCount:        m.BoxCount,
		PackagingCount:  m.PackagingCount,
		PackagingMethod: m.PackagingMethod,
	}
}

// FromDomain populates the persistence model from a domain PackingListLine
func (m *PackingListLineModel) FromDomain(l *inventory.PackingListLine) {
	m.BaseModel = baseFromEntity(l.BaseEntity)
	m.ProjectID = l.ProjectID
	m.PackingCode = l.PackingCode
	m.PLDate = l.PLDate
	m.ProductName = l.ProductName
	m.BoxCount = l.BoxCount
	m.PackagingCount = l.PackagingCount
	m.PackagingMethod = l.PackagingMethod
}

// PackingListLineModelFromDomain creates a new persistence model from a domain PackingListLine
func PackingListLineModelFromDomain(l *inventory.PackingListLine) *PackingListLineModel {
	m := &PackingListLineModel{}
	m.FromDomain(l)
	return m
}
