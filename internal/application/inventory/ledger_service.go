package inventory

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/inventory"
	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/mfgorder/backend/internal/infrastructure/logger"
	"github.com/mfgorder/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Operation names used for logging and failure metrics
const (
	OperationDeduct      = "deduct"
	OperationRestore     = "restore"
	OperationReconcile   = "reconcile"
	OperationEntryUpdate = "entry_update"
	OperationPackingEdit = "packing_edit"
)

// LedgerService moves quantities between projects and their batches.
// Every mutation runs in one transaction that locks the project row before
// any of its batch rows.
type LedgerService struct {
	projectRepo inventory.ProjectRepository
	entryRepo   inventory.WarehouseEntryRepository
	packingRepo inventory.PackingListRepository
	txScope     TransactionScope
	ledger      *inventory.StockLedger
	logger      *zap.Logger
	metrics     LedgerMetrics
	cache       StockSnapshotCache
	txTimeout   time.Duration
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	projectRepo inventory.ProjectRepository,
	entryRepo inventory.WarehouseEntryRepository,
	packingRepo inventory.PackingListRepository,
	txScope TransactionScope,
	log *zap.Logger,
) *LedgerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerService{
		projectRepo: projectRepo,
		entryRepo:   entryRepo,
		packingRepo: packingRepo,
		txScope:     txScope,
		ledger:      inventory.NewStockLedger(),
		logger:      log,
		metrics:     noopMetrics{},
	}
}

// SetMetrics sets the metrics recorder (optional)
func (s *LedgerService) SetMetrics(m LedgerMetrics) {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
}

// SetCache sets the stock snapshot cache (optional)
func (s *LedgerService) SetCache(c StockSnapshotCache) {
	s.cache = c
}

// SetTransactionTimeout bounds how long one ledger transaction may run.
// Zero leaves the caller's deadline untouched.
func (s *LedgerService) SetTransactionTimeout(d time.Duration) {
	s.txTimeout = d
}

func (s *LedgerService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.txTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.txTimeout)
}

// RegisterProject creates a project with zero counters
func (s *LedgerService) RegisterProject(ctx context.Context, req RegisterProjectRequest) (*ProjectResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	exists, err := s.projectRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists, "Project code %q already exists", req.Code)
	}

	project, err := inventory.NewProject(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.projectRepo.Save(ctx, project); err != nil {
		return nil, err
	}

	logger.Ctx(ctx, s.logger).Info("project registered",
		zap.String("project_id", project.ID.String()),
		zap.String("code", project.Code))
	resp := ToProjectResponse(project)
	return &resp, nil
}

// GetProject retrieves a project by ID
func (s *LedgerService) GetProject(ctx context.Context, projectID uuid.UUID) (*ProjectResponse, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	resp := ToProjectResponse(project)
	return &resp, nil
}

// ListProjects lists projects with filtering and pagination
func (s *LedgerService) ListProjects(ctx context.Context, filter ProjectListFilter) ([]ProjectResponse, int64, error) {
	if err := validate(filter); err != nil {
		return nil, 0, err
	}
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	f.OrderBy = filter.OrderBy
	f.OrderDir = filter.OrderDir
	if filter.Search != "" {
		f = f.With("search", filter.Search)
	}
	if filter.HasRemain != nil {
		f = f.With("has_remain", *filter.HasRemain)
	}

	projects, err := s.projectRepo.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.projectRepo.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ProjectResponse, len(projects))
	for i := range projects {
		out[i] = ToProjectResponse(&projects[i])
	}
	return out, total, nil
}

// GetProjectStock returns the project's counters alongside the totals of its
// batches. Snapshots are served from the cache when one is configured.
func (s *LedgerService) GetProjectStock(ctx context.Context, projectID uuid.UUID) (*ProjectStockResponse, error) {
	fill := s.cache != nil
	var generation int64
	if s.cache != nil {
		snapshot, ok, err := s.cache.Get(ctx, projectID)
		if err != nil {
			logger.Ctx(ctx, s.logger).Warn("stock cache read failed",
				zap.String("project_id", projectID.String()), zap.Error(err))
		} else if ok {
			return snapshot, nil
		}
		// taken before the database read so a commit landing in between
		// turns the fill below into a no-op
		if generation, err = s.cache.Generation(ctx, projectID); err != nil {
			fill = false
			logger.Ctx(ctx, s.logger).Warn("stock cache generation read failed",
				zap.String("project_id", projectID.String()), zap.Error(err))
		}
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	totals, err := s.entryRepo.Totals(ctx, projectID)
	if err != nil {
		return nil, err
	}
	snapshot := &ProjectStockResponse{
		ProjectID:        project.ID,
		Code:             project.Code,
		EntryQuantity:    project.EntryQuantity,
		ExportQuantity:   project.ExportQuantity,
		RemainQuantity:   project.RemainQuantity,
		BatchCount:       totals.Count,
		BatchQuantity:    totals.Quantity,
		BatchStock:       totals.Stock,
		BatchOutQuantity: totals.OutQuantity,
		Drift:            project.ExportQuantity - totals.OutQuantity,
		SnapshotAt:       time.Now().UTC(),
	}

	if fill {
		if err := s.cache.Set(ctx, snapshot, generation); err != nil {
			logger.Ctx(ctx, s.logger).Warn("stock cache write failed",
				zap.String("project_id", projectID.String()), zap.Error(err))
		}
	}
	return snapshot, nil
}

// UpdateEntryQuantity overwrites a project's entry counter. The new value may
// not fall below what has already been exported.
func (s *LedgerService) UpdateEntryQuantity(ctx context.Context, projectID uuid.UUID, req UpdateEntryQuantityRequest) (*ProjectResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var project *inventory.Project
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.ProjectRepo().FindByIDForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if err := p.SetEntryQuantity(req.EntryQuantity); err != nil {
			return err
		}
		if err := repos.ProjectRepo().Save(ctx, p); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		s.fail(ctx, OperationEntryUpdate, projectID, err)
		return nil, err
	}

	s.invalidate(ctx, projectID)
	resp := ToProjectResponse(project)
	return &resp, nil
}

// DeductInventory ships quantity out of the project's complete batches in FIFO
// order and raises its export counter by the same amount. Either every batch
// and the project are written, or nothing is.
func (s *LedgerService) DeductInventory(ctx context.Context, req DeductInventoryRequest) (*DeductionResponse, error) {
	ctx, span := telemetry.StartLedgerSpan(ctx, OperationDeduct, req.ProjectID,
		telemetry.SpanAttrQuantity.Int64(req.Quantity))
	defer span.End()

	if err := validate(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *inventory.DeductionResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		project, err := repos.ProjectRepo().FindByIDForUpdate(ctx, req.ProjectID)
		if err != nil {
			return err
		}
		batches, err := repos.EntryRepo().FindDeductibleForUpdate(ctx, req.ProjectID)
		if err != nil {
			return err
		}
		res, err := s.ledger.Deduct(project, batches, req.Quantity)
		if err != nil {
			return err
		}
		if err := repos.EntryRepo().SaveBatch(ctx, res.Touched); err != nil {
			return err
		}
		if err := repos.ProjectRepo().Save(ctx, project); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.fail(ctx, OperationDeduct, req.ProjectID, err)
		return nil, err
	}
	span.SetAttributes(telemetry.SpanAttrBatchCount.Int(len(result.Deltas)))

	s.metrics.RecordDeduction(ctx, result.DeductedQuantity)
	s.invalidate(ctx, req.ProjectID)
	logger.Ctx(ctx, s.logger).Info("inventory deducted",
		zap.String("project_id", req.ProjectID.String()),
		zap.Int64("quantity", result.DeductedQuantity),
		zap.Int("batches", len(result.Deltas)),
		zap.Int64("remain_quantity", result.NewRemainQuantity))

	return &DeductionResponse{
		ProjectID:         result.ProjectID,
		DeductedQuantity:  result.DeductedQuantity,
		NewExportQuantity: result.NewExportQuantity,
		NewRemainQuantity: result.NewRemainQuantity,
		PerBatchDeltas:    toBatchDeltaResponses(result.Deltas),
	}, nil
}

// RestoreInventory returns quantity to the project's batches in LIFO order
// and lowers its export counter. When the batches hold less out_quantity than
// requested the counters are still restored in full and the shortfall is
// reported as unattributed.
func (s *LedgerService) RestoreInventory(ctx context.Context, req RestoreInventoryRequest) (*RestorationResponse, error) {
	ctx, span := telemetry.StartLedgerSpan(ctx, OperationRestore, req.ProjectID,
		telemetry.SpanAttrQuantity.Int64(req.Quantity))
	defer span.End()

	if err := validate(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *inventory.RestorationResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		project, err := repos.ProjectRepo().FindByIDForUpdate(ctx, req.ProjectID)
		if err != nil {
			return err
		}
		batches, err := repos.EntryRepo().FindRestorableForUpdate(ctx, req.ProjectID)
		if err != nil {
			return err
		}
		res, err := s.ledger.Restore(project, batches, req.Quantity)
		if err != nil {
			return err
		}
		if err := repos.EntryRepo().SaveBatch(ctx, res.Touched); err != nil {
			return err
		}
		if err := repos.ProjectRepo().Save(ctx, project); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.fail(ctx, OperationRestore, req.ProjectID, err)
		return nil, err
	}
	span.SetAttributes(telemetry.SpanAttrUnattributed.Int64(result.UnattributedQuantity))

	s.metrics.RecordRestoration(ctx, result.RestoredQuantity, result.UnattributedQuantity)
	s.invalidate(ctx, req.ProjectID)
	log := logger.Ctx(ctx, s.logger).With(
		zap.String("project_id", req.ProjectID.String()),
		zap.Int64("quantity", result.RestoredQuantity))
	if result.UnattributedQuantity > 0 {
		log.Warn("restored quantity not fully attributable to batches",
			zap.Int64("unattributed_quantity", result.UnattributedQuantity))
	} else {
		log.Info("inventory restored", zap.Int("batches", len(result.Deltas)))
	}

	return &RestorationResponse{
		ProjectID:            result.ProjectID,
		RestoredQuantity:     result.RestoredQuantity,
		NewExportQuantity:    result.NewExportQuantity,
		NewRemainQuantity:    result.NewRemainQuantity,
		UnattributedQuantity: result.UnattributedQuantity,
		PerBatchDeltas:       toBatchDeltaResponses(result.Deltas),
	}, nil
}

// RecalculateExportQuantity replaces the project's export counter with the
// shipped total of its packing-list lines. Batch counters are not touched, and
// running it twice without intervening edits changes nothing.
func (s *LedgerService) RecalculateExportQuantity(ctx context.Context, projectID uuid.UUID) (*ReconciliationResponse, error) {
	ctx, span := telemetry.StartLedgerSpan(ctx, OperationReconcile, projectID)
	defer span.End()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *inventory.ReconciliationResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		results, err := reconcileProjects(ctx, s.ledger, repos, []uuid.UUID{projectID})
		if err != nil {
			return err
		}
		result = results[0]
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.fail(ctx, OperationReconcile, projectID, err)
		return nil, err
	}

	span.SetAttributes(telemetry.SpanAttrDrift.Int64(result.NewExportQuantity-result.OldExportQuantity))
	s.metrics.RecordReconciliation(ctx, result.Changed())
	if result.Changed() {
		s.invalidate(ctx, projectID)
	}
	logger.Ctx(ctx, s.logger).Info("export quantity recalculated",
		zap.String("project_id", projectID.String()),
		zap.Int64("old_export_quantity", result.OldExportQuantity),
		zap.Int64("new_export_quantity", result.NewExportQuantity),
		zap.Int64("packing_lines", result.PackingLineCount))

	resp := toReconciliationResponse(result)
	return &resp, nil
}

// RecalculateAll reconciles every project, each in its own transaction.
// A failing project is recorded and the pass moves on to the next one.
func (s *LedgerService) RecalculateAll(ctx context.Context) (*BulkReconciliationResponse, error) {
	ids, err := s.projectRepo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	out := &BulkReconciliationResponse{
		Succeeded: make([]ReconciliationResponse, 0, len(ids)),
		Failed:    make([]ReconciliationFailure, 0),
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		resp, err := s.RecalculateExportQuantity(ctx, id)
		if err != nil {
			out.Failed = append(out.Failed, ReconciliationFailure{
				ProjectID: id,
				Code:      errorCode(err),
				Message:   err.Error(),
			})
			continue
		}
		out.Succeeded = append(out.Succeeded, *resp)
	}

	logger.Ctx(ctx, s.logger).Info("bulk reconciliation finished",
		zap.Int("projects", len(ids)),
		zap.Int("succeeded", len(out.Succeeded)),
		zap.Int("failed", len(out.Failed)))
	return out, nil
}

// reconcileProjects recomputes the export counter of each project inside the
// caller's transaction. Projects are locked in ascending ID order so that
// concurrent multi-project edits cannot deadlock. Results follow that order.
func reconcileProjects(ctx context.Context, ledger *inventory.StockLedger, repos TransactionalRepositories, projectIDs []uuid.UUID) ([]*inventory.ReconciliationResult, error) {
	ids := slices.Clone(projectIDs)
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	ids = slices.Compact(ids)

	results := make([]*inventory.ReconciliationResult, 0, len(ids))
	for _, id := range ids {
		project, err := repos.ProjectRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		shipped, err := repos.PackingRepo().SummarizeByProject(ctx, id)
		if err != nil {
			return nil, err
		}
		res, err := ledger.Reconcile(project, shipped)
		if err != nil {
			return nil, err
		}
		if res.Changed() {
			if err := repos.ProjectRepo().Save(ctx, project); err != nil {
				return nil, err
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *LedgerService) invalidate(ctx context.Context, projectIDs ...uuid.UUID) {
	invalidateSnapshots(ctx, s.cache, s.logger, projectIDs...)
}

func (s *LedgerService) fail(ctx context.Context, operation string, projectID uuid.UUID, err error) {
	s.metrics.RecordFailure(ctx, operation, err)
	log := logger.Ctx(ctx, s.logger).With(
		zap.String("operation", operation),
		zap.String("project_id", projectID.String()),
		zap.String("code", errorCode(err)))
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		log.Warn("ledger operation rejected", zap.String("reason", domainErr.Message))
		return
	}
	log.Error("ledger operation failed", zap.Error(err))
}

// invalidateSnapshots drops cached stock snapshots after a commit. Cache
// failures never undo a committed write; they are only logged.
func invalidateSnapshots(ctx context.Context, cache StockSnapshotCache, log *zap.Logger, projectIDs ...uuid.UUID) {
	if cache == nil || len(projectIDs) == 0 {
		return
	}
	if err := cache.Invalidate(ctx, projectIDs...); err != nil {
		logger.Ctx(ctx, log).Warn("stock cache invalidation failed", zap.Error(err))
	}
}

func errorCode(err error) string {
	return shared.ErrorCode(err)
}
