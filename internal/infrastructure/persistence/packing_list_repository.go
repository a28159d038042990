package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/inventory"
	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/mfgorder/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPackingListRepository implements PackingListRepository using GORM
type GormPackingListRepository struct {
	db *gorm.DB
}

// NewGormPackingListRepository creates a new GormPackingListRepository
func NewGormPackingListRepository(db *gorm.DB) *GormPackingListRepository {
	return &GormPackingListRepository{db: db}
}

// FindByID finds a packing-list line by its ID
func (r *GormPackingListRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.PackingListLine, error) {
	return r.findByID(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a line by ID and locks its row, so a concurrent
// edit of the same line waits and then sees the committed tag
func (r *GormPackingListRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.PackingListLine, error) {
	return r.findByID(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormPackingListRepository) findByID(db *gorm.DB, id uuid.UUID) (*inventory.PackingListLine, error) {
	var model models.PackingListLineModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPackingCode lists the lines of one packing list
func (r *GormPackingListRepository) FindByPackingCode(ctx context.Context, packingCode string) ([]inventory.PackingListLine, error) {
	return r.findByPackingCode(r.db.WithContext(ctx), packingCode)
}

// FindByPackingCodeForUpdate lists and locks the lines of one packing list
func (r *GormPackingListRepository) FindByPackingCodeForUpdate(ctx context.Context, packingCode string) ([]inventory.PackingListLine, error) {
	return r.findByPackingCode(forUpdate(r.db.WithContext(ctx)), packingCode)
}

func (r *GormPackingListRepository) findByPackingCode(db *gorm.DB, packingCode string) ([]inventory.PackingListLine, error) {
	var rows []models.PackingListLineModel
	if err := db.
		Where("packing_code = ?", packingCode).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]inventory.PackingListLine, len(rows))
	for i := range rows {
		lines[i] = *rows[i].ToDomain()
	}
	return lines, nil
}

// SummarizeByProject sums the shipped quantity of the project's counted
// lines. The products are summed in Go with inventory.SummarizeShipments, so
// a total past int64 saturates instead of failing the scan.
func (r *GormPackingListRepository) SummarizeByProject(ctx context.Context, projectID uuid.UUID) (inventory.ShipmentSummary, error) {
	var rows []models.PackingListLineModel
	if err := r.db.WithContext(ctx).
		Select("id", "project_id", "box_count", "packaging_count", "packaging_method").
		Where("project_id = ?", projectID).
		Where("box_count > 0 AND packaging_count > 0 AND packaging_method > 0").
		Find(&rows).Error; err != nil {
		return inventory.ShipmentSummary{}, err
	}
	lines := make([]inventory.PackingListLine, len(rows))
	for i := range rows {
		lines[i] = *rows[i].ToDomain()
	}
	return inventory.SummarizeShipments(projectID, lines), nil
}

// Save creates or updates a line
func (r *GormPackingListRepository) Save(ctx context.Context, line *inventory.PackingListLine) error {
	return r.db.WithContext(ctx).Save(models.PackingListLineModelFromDomain(line)).Error
}

// SaveBatch creates several lines at once
func (r *GormPackingListRepository) SaveBatch(ctx context.Context, lines []*inventory.PackingListLine) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]*models.PackingListLineModel, len(lines))
	for i, l := range lines {
		rows[i] = models.PackingListLineModelFromDomain(l)
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

// Delete removes a line
func (r *GormPackingListRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PackingListLineModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByPackingCode removes every line of a packing list
func (r *GormPackingListRepository) DeleteByPackingCode(ctx context.Context, packingCode string) (int64, error) {
	result := r.db.WithContext(ctx).Where("packing_code = ?", packingCode).Delete(&models.PackingListLineModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormPackingListRepository implements PackingListRepository
var _ inventory.PackingListRepository = (*GormPackingListRepository)(nil)
