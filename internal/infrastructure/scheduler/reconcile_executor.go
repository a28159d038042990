package scheduler

import (
	"context"

	"github.com/google/uuid"
	appinv "github.com/mfgorder/backend/internal/application/inventory"
	"go.uber.org/zap"
)

// Reconciler recalculates one project's export quantity
type Reconciler interface {
	RecalculateExportQuantity(ctx context.Context, projectID uuid.UUID) (*appinv.ReconciliationResponse, error)
}

// ReconcileExecutor runs jobs through the ledger service
type ReconcileExecutor struct {
	reconciler Reconciler
	logger     *zap.Logger
}

// NewReconcileExecutor creates a new reconcile executor
func NewReconcileExecutor(reconciler Reconciler, logger *zap.Logger) *ReconcileExecutor {
	return &ReconcileExecutor{
		reconciler: reconciler,
		logger:     logger,
	}
}

// Execute recalculates the job's project. Drift is logged once corrected.
func (e *ReconcileExecutor) Execute(ctx context.Context, job *Job) error {
	result, err := e.reconciler.RecalculateExportQuantity(ctx, job.ProjectID)
	if err != nil {
		return err
	}
	if result.OldExportQuantity != result.NewExportQuantity {
		e.logger.Info("Export quantity drift corrected",
			zap.String("project_id", job.ProjectID.String()),
			zap.Int64("old_export_quantity", result.OldExportQuantity),
			zap.Int64("new_export_quantity", result.NewExportQuantity),
			zap.Int64("packing_line_count", result.PackingLineCount),
		)
	}
	return nil
}
