// Command reconcile recomputes project export quantities from packing-list
// lines, for one project or for every project.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	inventoryapp "github.com/mfgorder/backend/internal/application/inventory"
	"github.com/mfgorder/backend/internal/domain/inventory"
	"github.com/mfgorder/backend/internal/infrastructure/config"
	"github.com/mfgorder/backend/internal/infrastructure/logger"
	"github.com/mfgorder/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var (
		project  string
		all      bool
		logLevel string
	)
	flag.StringVar(&project, "project", "", "Project ID or code to reconcile")
	flag.BoolVar(&all, "all", false, "Reconcile every project")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if (project == "") == !all {
		fmt.Fprintln(os.Stderr, "usage: reconcile -project <id|code> | -all")
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newReconcileCmd(db, cfg.Ledger, log)
	failed, err := cmd.run(ctx, project, all)
	if err != nil {
		log.Error("Reconciliation aborted", zap.Error(err))
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

type reconcileCmd struct {
	ledger   *inventoryapp.LedgerService
	projects inventory.ProjectRepository
	log      *zap.Logger
}

func newReconcileCmd(db *persistence.Database, cfg config.LedgerConfig, log *zap.Logger) *reconcileCmd {
	projects := persistence.NewGormProjectRepository(db.DB)
	ledger := inventoryapp.NewLedgerService(
		projects,
		persistence.NewGormWarehouseEntryRepository(db.DB),
		persistence.NewGormPackingListRepository(db.DB),
		persistence.NewGormTransactionScope(db.DB),
		log,
	)
	ledger.SetTransactionTimeout(cfg.TransactionTimeout)
	return &reconcileCmd{ledger: ledger, projects: projects, log: log}
}

// run reconciles the selected projects and returns how many of them failed.
// The error is reserved for failures that stop the pass itself.
func (r *reconcileCmd) run(ctx context.Context, project string, all bool) (int, error) {
	if all {
		result, err := r.ledger.RecalculateAll(ctx)
		if err != nil {
			return 0, err
		}
		for _, f := range result.Failed {
			r.log.Warn("Project not reconciled",
				zap.String("project_id", f.ProjectID.String()),
				zap.String("code", f.Code),
				zap.String("reason", f.Message))
		}
		r.log.Info("Reconciliation finished",
			zap.Int("succeeded", len(result.Succeeded)),
			zap.Int("failed", len(result.Failed)))
		return len(result.Failed), nil
	}

	id, err := r.resolve(ctx, project)
	if err != nil {
		return 0, err
	}
	result, err := r.ledger.RecalculateExportQuantity(ctx, id)
	if err != nil {
		r.log.Warn("Project not reconciled", zap.String("project", project), zap.Error(err))
		return 1, nil
	}
	r.log.Info("Project reconciled",
		zap.String("project_id", id.String()),
		zap.Int64("old_export_quantity", result.OldExportQuantity),
		zap.Int64("new_export_quantity", result.NewExportQuantity))
	return 0, nil
}

// resolve accepts a project ID or a project code
func (r *reconcileCmd) resolve(ctx context.Context, project string) (uuid.UUID, error) {
	if id, err := uuid.Parse(project); err == nil {
		return id, nil
	}
	p, err := r.projects.FindByCode(ctx, project)
	if err != nil {
		return uuid.Nil, errors.Join(fmt.Errorf("project %q", project), err)
	}
	return p.ID, nil
}
