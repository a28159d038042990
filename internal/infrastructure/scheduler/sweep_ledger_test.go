package scheduler

import (
	"context"
	"testing"
	"time"

	appinv "github.com/mfgorder/backend/internal/application/inventory"
	"github.com/mfgorder/backend/internal/domain/inventory"
	"github.com/mfgorder/backend/internal/infrastructure/persistence"
	"github.com/mfgorder/backend/internal/infrastructure/persistence/models"
	"github.com/mfgorder/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweep_CorrectsDriftThroughLedger(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	projectRepo := persistence.NewGormProjectRepository(db)
	entryRepo := persistence.NewGormWarehouseEntryRepository(db)
	packingRepo := persistence.NewGormPackingListRepository(db)
	tx := persistence.NewGormTransactionScope(db)
	ledger := appinv.NewLedgerService(projectRepo, entryRepo, packingRepo, tx, zap.NewNop())
	entries := appinv.NewWarehouseEntryService(projectRepo, entryRepo, tx, zap.NewNop())
	packing := appinv.NewPackingListService(packingRepo, tx, zap.NewNop())

	p, err := ledger.RegisterProject(ctx, appinv.RegisterProjectRequest{Code: "SWEEP-1"})
	require.NoError(t, err)
	_, err = entries.RecordEntry(ctx, p.ID, appinv.RecordEntryRequest{
		Quantity:  20,
		EntryDate: testutil.Date(2024, 5, 1),
		Status:    string(inventory.EntryStatusComplete),
	})
	require.NoError(t, err)
	_, err = packing.AddPackingLines(ctx, appinv.AddPackingLinesRequest{
		PackingCode: "PL-SWEEP",
		PLDate:      testutil.Date(2024, 5, 2),
		Lines: []appinv.PackingLineInput{
			{ProjectID: &p.ID, BoxCount: 2, PackagingCount: 2, PackagingMethod: 2},
		},
	})
	require.NoError(t, err)

	// Counter edited behind the ledger's back
	require.NoError(t, db.Model(&models.ProjectModel{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"export_quantity": 0,
		"remain_quantity": 20,
	}).Error)

	cfg := testConfig()
	cfg.Workers = 1
	s := startScheduler(t, cfg, NewReconcileExecutor(ledger, zap.NewNop()))
	trigger := NewSweepTrigger(time.Hour, cfg.Retries, s, projectRepo, zap.NewNop())

	n, err := trigger.TriggerNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	waitIdle(t, s)

	project, err := ledger.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), project.ExportQuantity)
	assert.Equal(t, int64(12), project.RemainQuantity)
	assert.Equal(t, Stats{Succeeded: 1}, s.Stats())
}
