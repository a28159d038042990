package models

import (
	"github.com/mfgorder/backend/internal/domain/inventory"
)

// ProjectModel is the persistence model for the Project aggregate
type ProjectModel struct {
	BaseModel
	Code           string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name           string `gorm:"type:varchar(200);not null;default:''"`
	EntryQuantity  int64  `gorm:"not null;default:0;check:chk_projects_entry_nonneg,entry_quantity >= 0"`
	ExportQuantity int64  `gorm:"not null;default:0;check:chk_projects_export_range,export_quantity >= 0 AND export_quantity <= entry_quantity"`
	RemainQuantity int64  `gorm:"not null;default:0;check:chk_projects_remain,remain_quantity >= 0 AND remain_quantity = entry_quantity - export_quantity"`
}

// TableName returns the table name for GORM
func (ProjectModel) TableName() string {
	return "projects"
}

// ToDomain converts the persistence model to a domain Project
func (m *ProjectModel) ToDomain() *inventory.Project {
	return &inventory.Project{
		BaseEntity:     m.BaseModel.Entity(),
		Code:           m.Code,
		Name:           m.Name,
		EntryQuantity:  m.EntryQuantity,
		ExportQuantity: m.ExportQuantity,
		RemainQuantity: m.RemainQuantity,
	}
}

// FromDomain populates the persistence model from a domain Project
func (m *ProjectModel) FromDomain(p *inventory.Project) {
	m.BaseModel = baseFromEntity(p.BaseEntity)
	m.Code = p.Code
	m.Name = p.Name
	m.EntryQuantity = p.EntryQuantity
	m.ExportQuantity = p.ExportQuantity
	m.RemainQuantity = p.RemainQuantity
}

// ProjectModelFromDomain creates a new persistence model from a domain Project
func ProjectModelFromDomain(p *inventory.Project) *ProjectModel {
	m := &ProjectModel{}
	m.FromDomain(p)
	return m
}
