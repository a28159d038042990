package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/inventory"
)

// WarehouseEntryModel is the persistence model for a warehouse entry batch
type WarehouseEntryModel struct {
	BaseModel
	ProjectID   uuid.UUID `gorm:"type:uuid;not null;index:idx_warehouse_entries_fifo,priority:1"`
	Quantity    int64     `gorm:"not null;check:chk_warehouse_entries_quantity,quantity > 0"`
	Stock       int64     `gorm:"not null;check:chk_warehouse_entries_stock,stock >= 0 AND stock + out_quantity = quantity"`
	OutQuantity int64     `gorm:"not null;default:0;check:chk_warehouse_entries_out,out_quantity >= 0 AND out_quantity <= quantity"`
	EntryDate   time.Time `gorm:"type:date;not null;index:idx_warehouse_entries_fifo,priority:2"`
	Status      string    `gorm:"type:varchar(20);not null"`
	Note        string    `gorm:"type:varchar(500);not null;default:''"`

	Project *ProjectModel `gorm:"foreignKey:ProjectID;constraint:OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM
func (WarehouseEntryModel) TableName() string {
	return "warehouse_entries"
}

// ToDomain converts the persistence model to a domain WarehouseEntry
func (m *WarehouseEntryModel) ToDomain() *inventory.WarehouseEntry {
	return &inventory.WarehouseEntry{
		BaseEntity:  m.BaseModel.Entity(),
		ProjectID:   m.ProjectID,
		Quantity:    m.Quantity,
		Stock:       m.Stock,
		OutQuantity: m.OutQuantity,
		EntryDate:   m.EntryDate,
		Status:      inventory.EntryStatus(m.Status),
		Note:        m.Note,
	}
}

// FromDomain populates the persistence model from a domain WarehouseEntry
func (m *WarehouseEntryModel) FromDomain(e *inventory.WarehouseEntry) {
	m.BaseModel = baseFromEntity(e.BaseEntity)
	m.ProjectID = e.ProjectID
	m.Quantity = e.Quantity
	m.Stock = e.Stock
	m.OutQuantity = e.OutQuantity
	m.EntryDate = e.EntryDate
	m.Status = e.Status.String()
	m.Note = e.Note
}

// WarehouseEntryModelFromDomain creates a new persistence model from a domain WarehouseEntry
func WarehouseEntryModelFromDomain(e *inventory.WarehouseEntry) *WarehouseEntryModel {
	m := &WarehouseEntryModel{}
	m.FromDomain(e)
	return m
}

// WarehouseEntryImageModel is the persistence model for a batch image reference
type WarehouseEntryImageModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	EntryID    uuid.UUID `gorm:"type:uuid;not null;index"`
	StorageKey string    `gorm:"type:varchar(500);not null"`
	CreatedAt  time.Time `gorm:"not null"`

	Entry *WarehouseEntryModel `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (WarehouseEntryImageModel) TableName() string {
	return "warehouse_entry_images"
}

// ToDomain converts the persistence model to a domain EntryImage
func (m *WarehouseEntryImageModel) ToDomain() *inventory.EntryImage {
	return &inventory.EntryImage{
		ID:         m.ID,
		EntryID:    m.EntryID,
		StorageKey: m.StorageKey,
		CreatedAt:  m.CreatedAt,
	}
}

// WarehouseEntryImageModelFromDomain creates a new persistence model from a domain EntryImage
func WarehouseEntryImageModelFromDomain(img *inventory.EntryImage) *WarehouseEntryImageModel {
	return &WarehouseEntryImageModel{
		ID:         img.ID,
		EntryID:    img.EntryID,
		StorageKey: img.StorageKey,
		CreatedAt:  img.CreatedAt,
	}
}
