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

const (
	fifoOrder = "entry_date ASC, created_at ASC, id ASC"
	lifoOrder = "entry_date DESC, created_at DESC, id DESC"
)

// GormWarehouseEntryRepository implements WarehouseEntryRepository using GORM
type GormWarehouseEntryRepository struct {
	db *gorm.DB
}

// NewGormWarehouseEntryRepository creates a new GormWarehouseEntryRepository
func NewGormWarehouseEntryRepository(db *gorm.DB) *GormWarehouseEntryRepository {
	return &GormWarehouseEntryRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormWarehouseEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.WarehouseEntry, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a batch by ID and locks its row
func (r *GormWarehouseEntryRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.WarehouseEntry, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormWarehouseEntryRepository) findOne(query *gorm.DB, id uuid.UUID) (*inventory.WarehouseEntry, error) {
	var model models.WarehouseEntryModel
	if err := query.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProject lists a project's batches in FIFO order
func (r *GormWarehouseEntryRepository) FindByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) ([]inventory.WarehouseEntry, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.WarehouseEntryModel{}), projectID, filter)
	if offset, limit, ok := filter.Window(); ok {
		query = query.Offset(offset).Limit(limit)
	}
	if filter.Descending() {
		query = query.Order(lifoOrder)
	} else {
		query = query.Order(fifoOrder)
	}

	var rows []models.WarehouseEntryModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]inventory.WarehouseEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

// CountByProject counts a project's batches matching the filter
func (r *GormWarehouseEntryRepository) CountByProject(ctx context.Context, projectID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.WarehouseEntryModel{}), projectID, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormWarehouseEntryRepository) applyFilter(query *gorm.DB, projectID uuid.UUID, filter shared.Filter) *gorm.DB {
	query = query.Where("project_id = ?", projectID)
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if filter.Flag("has_stock") {
		query = query.Where("stock > 0")
	}
	return query
}

// FindDeductibleForUpdate locks the complete batches that still hold stock, oldest first
func (r *GormWarehouseEntryRepository) FindDeductibleForUpdate(ctx context.Context, projectID uuid.UUID) ([]*inventory.WarehouseEntry, error) {
	return r.findLocked(ctx, projectID, "stock > 0", fifoOrder)
}

// FindRestorableForUpdate locks the complete batches with shipped quantity, newest first
func (r *GormWarehouseEntryRepository) FindRestorableForUpdate(ctx context.Context, projectID uuid.UUID) ([]*inventory.WarehouseEntry, error) {
	return r.findLocked(ctx, projectID, "out_quantity > 0", lifoOrder)
}

func (r *GormWarehouseEntryRepository) findLocked(ctx context.Context, projectID uuid.UUID, cond, order string) ([]*inventory.WarehouseEntry, error) {
	var rows []models.WarehouseEntryModel
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("project_id = ? AND status = ?", projectID, inventory.EntryStatusComplete.String()).
		Where(cond).
		Order(order).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]*inventory.WarehouseEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// Totals sums the counters of every batch of a project
func (r *GormWarehouseEntryRepository) Totals(ctx context.Context, projectID uuid.UUID) (inventory.BatchTotals, error) {
	var row struct {
		Count       int64
		Quantity    int64
		Stock       int64
		OutQuantity int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.WarehouseEntryModel{}).
		Select("COUNT(*) AS count, COALESCE(SUM(quantity), 0) AS quantity, COALESCE(SUM(stock), 0) AS stock, COALESCE(SUM(out_quantity), 0) AS out_quantity").
		Where("project_id = ?", projectID).
		Scan(&row).Error; err != nil {
		return inventory.BatchTotals{}, err
	}
	return inventory.BatchTotals{
		Count:       row.Count,
		Quantity:    row.Quantity,
		Stock:       row.Stock,
		OutQuantity: row.OutQuantity,
	}, nil
}

// Save creates or updates a batch
func (r *GormWarehouseEntryRepository) Save(ctx context.Context, entry *inventory.WarehouseEntry) error {
	return r.db.WithContext(ctx).Save(models.WarehouseEntryModelFromDomain(entry)).Error
}

// SaveBatch writes the stock counters of several batches. Only the mutable
// columns are updated; a batch that no longer exists is reported as not found.
func (r *GormWarehouseEntryRepository) SaveBatch(ctx context.Context, entries []*inventory.WarehouseEntry) error {
	for _, e := range entries {
		result := r.db.WithContext(ctx).
			Model(&models.WarehouseEntryModel{}).
			Where("id = ?", e.ID).
			Updates(map[string]any{
				"stock":        e.Stock,
				"out_quantity": e.OutQuantity,
				"status":       e.Status.String(),
				"updated_at":   e.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
	}
	return nil
}

// Delete removes a batch together with its image rows
func (r *GormWarehouseEntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("entry_id = ?", id).
		Delete(&models.WarehouseEntryImageModel{}).Error; err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&models.WarehouseEntryModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SaveImage records an image reference for a batch
func (r *GormWarehouseEntryRepository) SaveImage(ctx context.Context, image *inventory.EntryImage) error {
	return r.db.WithContext(ctx).Create(models.WarehouseEntryImageModelFromDomain(image)).Error
}

// FindImages lists the images of a batch
func (r *GormWarehouseEntryRepository) FindImages(ctx context.Context, entryID uuid.UUID) ([]inventory.EntryImage, error) {
	var rows []models.WarehouseEntryImageModel
	if err := r.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	images := make([]inventory.EntryImage, len(rows))
	for i := range rows {
		images[i] = *rows[i].ToDomain()
	}
	return images, nil
}

// Ensure GormWarehouseEntryRepository implements WarehouseEntryRepository
var _ inventory.WarehouseEntryRepository = (*GormWarehouseEntryRepository)(nil)
