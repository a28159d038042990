package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/inventory"
	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/mfgorder/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// WarehouseEntryService manages the lifecycle of inbound batches. Batches
// that are (or become) complete feed the project's entry counter.
type WarehouseEntryService struct {
	projectRepo inventory.ProjectRepository
	entryRepo   inventory.WarehouseEntryRepository
	txScope     TransactionScope
	logger      *zap.Logger
	cache       StockSnapshotCache
	objects     ObjectRemover
	signer      ObjectURLSigner
	urlExpiry   time.Duration
}

// NewWarehouseEntryService creates a new WarehouseEntryService
func NewWarehouseEntryService(
	projectRepo inventory.ProjectRepository,
	entryRepo inventory.WarehouseEntryRepository,
	txScope TransactionScope,
	log *zap.Logger,
) *WarehouseEntryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &WarehouseEntryService{
		projectRepo: projectRepo,
		entryRepo:   entryRepo,
		txScope:     txScope,
		logger:      log,
	}
}

// SetCache sets the stock snapshot cache (optional)
func (s *WarehouseEntryService) SetCache(c StockSnapshotCache) {
	s.cache = c
}

// SetObjectRemover sets where batch image objects are deleted from (optional)
func (s *WarehouseEntryService) SetObjectRemover(r ObjectRemover) {
	s.objects = r
}

// SetURLSigner enables download URLs on listed images. A non-positive
// expiry leaves the choice to the signer.
func (s *WarehouseEntryService) SetURLSigner(signer ObjectURLSigner, expiry time.Duration) {
	s.signer = signer
	s.urlExpiry = expiry
}

// RecordEntry registers an inbound batch with its whole quantity in stock.
// A batch recorded as complete raises the project's entry counter at once.
func (s *WarehouseEntryService) RecordEntry(ctx context.Context, projectID uuid.UUID, req RecordEntryRequest) (*WarehouseEntryResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var entry *inventory.WarehouseEntry
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		project, err := repos.ProjectRepo().FindByIDForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		e, err := inventory.NewWarehouseEntry(project.ID, req.Quantity, req.EntryDate,
			inventory.EntryStatus(req.Status), strings.TrimSpace(req.Note))
		if err != nil {
			return err
		}
		if err := repos.EntryRepo().Save(ctx, e); err != nil {
			return err
		}
		if e.IsComplete() {
			if err := project.AddEntry(e.Quantity); err != nil {
				return err
			}
			if err := repos.ProjectRepo().Save(ctx, project); err != nil {
				return err
			}
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateSnapshots(ctx, s.cache, s.logger, projectID)
	logger.Ctx(ctx, s.logger).Info("warehouse entry recorded",
		zap.String("project_id", projectID.String()),
		zap.String("entry_id", entry.ID.String()),
		zap.Int64("quantity", entry.Quantity),
		zap.String("status", entry.Status.String()))
	resp := ToWarehouseEntryResponse(entry)
	return &resp, nil
}

// CompleteEntry marks a pending batch as received and adds its quantity to
// the project's entry counter
func (s *WarehouseEntryService) CompleteEntry(ctx context.Context, entryID uuid.UUID) (*WarehouseEntryResponse, error) {
	var entry *inventory.WarehouseEntry
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		// Read the batch unlocked only to learn its project; the project row
		// must be locked before the batch row.
		peek, err := repos.EntryRepo().FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		project, err := repos.ProjectRepo().FindByIDForUpdate(ctx, peek.ProjectID)
		if err != nil {
			return err
		}
		e, err := repos.EntryRepo().FindByIDForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if err := e.Complete(); err != nil {
			return err
		}
		if err := project.AddEntry(e.Quantity); err != nil {
			return err
		}
		if err := repos.EntryRepo().SaveBatch(ctx, []*inventory.WarehouseEntry{e}); err != nil {
			return err
		}
		if err := repos.ProjectRepo().Save(ctx, project); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateSnapshots(ctx, s.cache, s.logger, entry.ProjectID)
	logger.Ctx(ctx, s.logger).Info("warehouse entry completed",
		zap.String("project_id", entry.ProjectID.String()),
		zap.String("entry_id", entry.ID.String()),
		zap.Int64("quantity", entry.Quantity))
	resp := ToWarehouseEntryResponse(entry)
	return &resp, nil
}

// DeleteEntry removes a batch that has never been allocated. Deleting a
// complete batch withdraws its quantity from the entry counter, which is
// rejected when the project has already exported more than would remain.
// Image objects are removed from storage only after the commit.
func (s *WarehouseEntryService) DeleteEntry(ctx context.Context, entryID uuid.UUID) (*DeleteEntryResponse, error) {
	var (
		project *inventory.Project
		images  []inventory.EntryImage
		diff    int64
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		peek, err := repos.EntryRepo().FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		p, err := repos.ProjectRepo().FindByIDForUpdate(ctx, peek.ProjectID)
		if err != nil {
			return err
		}
		e, err := repos.EntryRepo().FindByIDForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if e.HasAllocations() {
			return shared.NewDomainErrorf(shared.CodeInvalidState,
				"Warehouse entry has %d units allocated and cannot be deleted", e.OutQuantity)
		}
		imgs, err := repos.EntryRepo().FindImages(ctx, e.ID)
		if err != nil {
			return err
		}
		if e.IsComplete() {
			if err := p.RemoveEntry(e.Quantity); err != nil {
				return err
			}
			if err := repos.ProjectRepo().Save(ctx, p); err != nil {
				return err
			}
			diff = -e.Quantity
		}
		if err := repos.EntryRepo().Delete(ctx, e.ID); err != nil {
			return err
		}
		project = p
		images = imgs
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateSnapshots(ctx, s.cache, s.logger, project.ID)
	s.removeObjects(ctx, entryID, images)
	logger.Ctx(ctx, s.logger).Info("warehouse entry deleted",
		zap.String("project_id", project.ID.String()),
		zap.String("entry_id", entryID.String()),
		zap.Int("images", len(images)))

	return &DeleteEntryResponse{
		EntryID:           entryID,
		RemovedImages:     len(images),
		EntryQuantityDiff: diff,
		Project:           ToProjectResponse(project),
	}, nil
}

func (s *WarehouseEntryService) removeObjects(ctx context.Context, entryID uuid.UUID, images []inventory.EntryImage) {
	if s.objects == nil || len(images) == 0 {
		return
	}
	keys := make([]string, len(images))
	for i, img := range images {
		keys[i] = img.StorageKey
	}
	if err := s.objects.DeleteObjects(ctx, keys); err != nil {
		logger.Ctx(ctx, s.logger).Warn("failed to delete entry images from storage",
			zap.String("entry_id", entryID.String()),
			zap.Strings("keys", keys),
			zap.Error(err))
	}
}

// AttachEntryImage records an image reference for a batch
func (s *WarehouseEntryService) AttachEntryImage(ctx context.Context, entryID uuid.UUID, req AttachEntryImageRequest) (*EntryImageResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	entry, err := s.entryRepo.FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	image, err := inventory.NewEntryImage(entry.ID, strings.TrimSpace(req.StorageKey))
	if err != nil {
		return nil, err
	}
	if err := s.entryRepo.SaveImage(ctx, image); err != nil {
		return nil, err
	}
	resp := ToEntryImageResponse(image)
	return &resp, nil
}

// ListEntryImages lists a batch's images. When a URL signer is configured
// each image carries a presigned download URL; signing failures are logged
// and leave the URL empty.
func (s *WarehouseEntryService) ListEntryImages(ctx context.Context, entryID uuid.UUID) ([]EntryImageResponse, error) {
	if _, err := s.entryRepo.FindByID(ctx, entryID); err != nil {
		return nil, err
	}
	images, err := s.entryRepo.FindImages(ctx, entryID)
	if err != nil {
		return nil, err
	}
	out := make([]EntryImageResponse, len(images))
	for i := range images {
		out[i] = ToEntryImageResponse(&images[i])
		if s.signer == nil {
			continue
		}
		url, expiresAt, err := s.signer.GenerateDownloadURL(ctx, images[i].StorageKey, s.urlExpiry)
		if err != nil {
			logger.Ctx(ctx, s.logger).Warn("failed to sign image URL",
				zap.String("storage_key", images[i].StorageKey),
				zap.Error(err))
			continue
		}
		out[i].URL = url
		out[i].URLExpires = &expiresAt
	}
	return out, nil
}

// GetEntry retrieves a batch by ID
func (s *WarehouseEntryService) GetEntry(ctx context.Context, entryID uuid.UUID) (*WarehouseEntryResponse, error) {
	entry, err := s.entryRepo.FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	resp := ToWarehouseEntryResponse(entry)
	return &resp, nil
}

// ListEntries pages a project's batches, oldest first unless order_dir=desc
func (s *WarehouseEntryService) ListEntries(ctx context.Context, projectID uuid.UUID, filter EntryListFilter) ([]WarehouseEntryResponse, int64, error) {
	if err := validate(filter); err != nil {
		return nil, 0, err
	}
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return nil, 0, err
	}

	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	f.OrderDir = filter.OrderDir
	if filter.Status != "" {
		f = f.With("status", filter.Status)
	}
	if filter.HasStock != nil {
		f = f.With("has_stock", *filter.HasStock)
	}

	entries, err := s.entryRepo.FindByProject(ctx, projectID, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.entryRepo.CountByProject(ctx, projectID, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]WarehouseEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToWarehouseEntryResponse(&entries[i])
	}
	return out, total, nil
}
