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

// GormProjectRepository implements ProjectRepository using GORM
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GormProjectRepository
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// FindByID finds a project by its ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Project, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds a project by ID and locks its row
func (r *GormProjectRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Project, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), "id = ?", id)
}

// FindByCode finds a project by its code
func (r *GormProjectRepository) FindByCode(ctx context.Context, code string) (*inventory.Project, error) {
	return r.findOne(r.db.WithContext(ctx), "code = ?", code)
}

func (r *GormProjectRepository) findOne(query *gorm.DB, cond string, arg any) (*inventory.Project, error) {
	var model models.ProjectModel
	if err := query.Where(cond, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all projects matching the filter
func (r *GormProjectRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.Project, error) {
	var rows []models.ProjectModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProjectModel{}), filter, true)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	projects := make([]inventory.Project, len(rows))
	for i := range rows {
		projects[i] = *rows[i].ToDomain()
	}
	return projects, nil
}

// ListIDs returns the IDs of every project in creation order
func (r *GormProjectRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.ProjectModel{}).
		Order("created_at ASC, id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Count counts projects matching the filter
func (r *GormProjectRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProjectModel{}), filter, false)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByCode checks if a project code is taken
func (r *GormProjectRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProjectModel{}).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a project
func (r *GormProjectRepository) Save(ctx context.Context, project *inventory.Project) error {
	return r.db.WithContext(ctx).Save(models.ProjectModelFromDomain(project)).Error
}

// applyFilter applies filter options to the query
func (r *GormProjectRepository) applyFilter(query *gorm.DB, filter shared.Filter, paginate bool) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "code":
			query = query.Where("code = ?", value)
		case "search":
			if s, ok := value.(string); ok && s != "" {
				like := "%" + s + "%"
				query = query.Where("code LIKE ? OR name LIKE ?", like, like)
			}
		}
	}
	if filter.Flag("has_remain") {
		query = query.Where("remain_quantity > 0")
	}
	if !paginate {
		return query
	}

	if offset, limit, ok := filter.Window(); ok {
		query = query.Offset(offset).Limit(limit)
	}

	orderDir := "ASC"
	if filter.Descending() {
		orderDir = "DESC"
	}
	switch filter.OrderBy {
	case "code", "created_at", "entry_quantity", "export_quantity", "remain_quantity":
		query = query.Order(filter.OrderBy + " " + orderDir)
	default:
		query = query.Order("created_at " + orderDir)
	}
	return query
}

// Ensure GormProjectRepository implements ProjectRepository
var _ inventory.ProjectRepository = (*GormProjectRepository)(nil)
