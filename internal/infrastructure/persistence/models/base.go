package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// BaseModel holds the columns shared by every ledger table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate fills in an ID for rows inserted without one
func (m *BaseModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Entity returns the domain identity stored in the row
func (m BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func baseFromEntity(e shared.BaseEntity) BaseModel {
	return BaseModel{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

// All lists the ledger tables parents first, the order AutoMigrate needs
func All() []any {
	return []any{
		&ProjectModel{},
		&WarehouseEntryModel{},
		&WarehouseEntryImageModel{},
		&PackingListLineModel{},
	}
}
