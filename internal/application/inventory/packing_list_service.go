package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/inventory"
	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/mfgorder/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// PackingListService edits packing-list lines. Every edit reconciles the
// export counter of each project it touches inside the same transaction, so
// a change that would push a project's export above its entry is rolled back.
type PackingListService struct {
	packingRepo inventory.PackingListRepository
	txScope     TransactionScope
	ledger      *inventory.StockLedger
	logger      *zap.Logger
	metrics     LedgerMetrics
	cache       StockSnapshotCache
}

// NewPackingListService creates a new PackingListService
func NewPackingListService(
	packingRepo inventory.PackingListRepository,
	txScope TransactionScope,
	log *zap.Logger,
) *PackingListService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PackingListService{
		packingRepo: packingRepo,
		txScope:     txScope,
		ledger:      inventory.NewStockLedger(),
		logger:      log,
		metrics:     noopMetrics{},
	}
}

// SetMetrics sets the metrics recorder (optional)
func (s *PackingListService) SetMetrics(m LedgerMetrics) {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
}

// SetCache sets the stock snapshot cache (optional)
func (s *PackingListService) SetCache(c StockSnapshotCache) {
	s.cache = c
}

// ListPackingLines lists the lines of one packing list
func (s *PackingListService) ListPackingLines(ctx context.Context, packingCode string) ([]PackingLineResponse, error) {
	lines, err := s.packingRepo.FindByPackingCode(ctx, strings.TrimSpace(packingCode))
	if err != nil {
		return nil, err
	}
	out := make([]PackingLineResponse, len(lines))
	for i := range lines {
		out[i] = ToPackingLineResponse(&lines[i])
	}
	return out, nil
}

// AddPackingLines creates lines under one packing code
func (s *PackingListService) AddPackingLines(ctx context.Context, req AddPackingLinesRequest) (*PackingListChangeResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	lines := make([]*inventory.PackingListLine, 0, len(req.Lines))
	for _, in := range req.Lines {
		line, err := inventory.NewPackingListLine(req.PackingCode, req.PLDate, in.fields())
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return s.apply(ctx, "packing lines added", func(repos TransactionalRepositories) (*packingEdit, error) {
		if err := repos.PackingRepo().SaveBatch(ctx, lines); err != nil {
			return nil, err
		}
		return &packingEdit{written: lines, affected: inventory.AffectedProjects(lines...)}, nil
	})
}

// UpdatePackingLine replaces a line's factors, product name or project tag.
// When the tag changes both the old and the new project are reconciled.
func (s *PackingListService) UpdatePackingLine(ctx context.Context, lineID uuid.UUID, in PackingLineInput) (*PackingListChangeResponse, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	return s.apply(ctx, "packing line updated", func(repos TransactionalRepositories) (*packingEdit, error) {
		// the row lock makes before hold the committed tag, so a concurrent
		// retag cannot leave its target project unreconciled
		line, err := repos.PackingRepo().FindByIDForUpdate(ctx, lineID)
		if err != nil {
			return nil, err
		}
		before := *line
		if err := line.Update(in.fields()); err != nil {
			return nil, err
		}
		if err := repos.PackingRepo().Save(ctx, line); err != nil {
			return nil, err
		}
		return &packingEdit{
			written:  []*inventory.PackingListLine{line},
			affected: inventory.AffectedProjects(&before, line),
		}, nil
	})
}

// DeletePackingLine removes one line
func (s *PackingListService) DeletePackingLine(ctx context.Context, lineID uuid.UUID) (*PackingListChangeResponse, error) {
	return s.apply(ctx, "packing line deleted", func(repos TransactionalRepositories) (*packingEdit, error) {
		line, err := repos.PackingRepo().FindByIDForUpdate(ctx, lineID)
		if err != nil {
			return nil, err
		}
		if err := repos.PackingRepo().Delete(ctx, line.ID); err != nil {
			return nil, err
		}
		return &packingEdit{deleted: 1, affected: inventory.AffectedProjects(line)}, nil
	})
}

// DeletePackingList removes every line of a packing code
func (s *PackingListService) DeletePackingList(ctx context.Context, packingCode string) (*PackingListChangeResponse, error) {
	packingCode = strings.TrimSpace(packingCode)
	if packingCode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Packing code cannot be empty")
	}

	return s.apply(ctx, "packing list deleted", func(repos TransactionalRepositories) (*packingEdit, error) {
		existing, err := repos.PackingRepo().FindByPackingCodeForUpdate(ctx, packingCode)
		if err != nil {
			return nil, err
		}
		if len(existing) == 0 {
			return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Packing list %q not found", packingCode)
		}
		ptrs := make([]*inventory.PackingListLine, len(existing))
		for i := range existing {
			ptrs[i] = &existing[i]
		}
		deleted, err := repos.PackingRepo().DeleteByPackingCode(ctx, packingCode)
		if err != nil {
			return nil, err
		}
		return &packingEdit{deleted: deleted, affected: inventory.AffectedProjects(ptrs...)}, nil
	})
}

type packingEdit struct {
	written  []*inventory.PackingListLine
	deleted  int64
	affected []uuid.UUID
}

// apply runs an edit and the reconciliation of the projects it affects in one
// transaction, then invalidates their cached snapshots
func (s *PackingListService) apply(ctx context.Context, msg string, edit func(repos TransactionalRepositories) (*packingEdit, error)) (*PackingListChangeResponse, error) {
	var (
		change  *packingEdit
		results []*inventory.ReconciliationResult
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := edit(repos)
		if err != nil {
			return err
		}
		res, err := reconcileProjects(ctx, s.ledger, repos, c.affected)
		if err != nil {
			return err
		}
		change, results = c, res
		return nil
	})
	if err != nil {
		s.metrics.RecordFailure(ctx, OperationPackingEdit, err)
		log := logger.Ctx(ctx, s.logger).With(zap.String("code", errorCode(err)))
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			log.Warn("packing list edit rejected", zap.Error(err))
		} else {
			log.Error("packing list edit failed", zap.Error(err))
		}
		return nil, err
	}

	resp := &PackingListChangeResponse{
		Lines:           make([]PackingLineResponse, len(change.written)),
		DeletedLines:    change.deleted,
		Reconciliations: make([]ReconciliationResponse, len(results)),
	}
	for i, l := range change.written {
		resp.Lines[i] = ToPackingLineResponse(l)
	}
	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		resp.Reconciliations[i] = toReconciliationResponse(r)
		ids[i] = r.ProjectID
		s.metrics.RecordReconciliation(ctx, r.Changed())
	}

	invalidateSnapshots(ctx, s.cache, s.logger, ids...)
	logger.Ctx(ctx, s.logger).Info(msg,
		zap.Int("lines", len(change.written)),
		zap.Int64("deleted", change.deleted),
		zap.Int("projects_reconciled", len(results)))
	return resp, nil
}
