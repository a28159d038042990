package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	inventoryapp "github.com/mfgorder/backend/internal/application/inventory"
	"github.com/mfgorder/backend/internal/domain/inventory"
	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/mfgorder/backend/internal/infrastructure/config"
	"github.com/mfgorder/backend/internal/infrastructure/persistence"
	"github.com/mfgorder/backend/internal/infrastructure/persistence/models"
	"github.com/mfgorder/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db  *gorm.DB
	cmd *reconcileCmd
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return &fixture{
		db:  db,
		cmd: newReconcileCmd(&persistence.Database{DB: db}, config.LedgerConfig{}, zap.NewNop()),
	}
}

// shippedProject registers a project with one received batch of 10 and a
// packing line shipping 6 of it
func (f *fixture) shippedProject(t *testing.T, code string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	projectRepo := persistence.NewGormProjectRepository(f.db)
	entryRepo := persistence.NewGormWarehouseEntryRepository(f.db)
	packingRepo := persistence.NewGormPackingListRepository(f.db)
	tx := persistence.NewGormTransactionScope(f.db)

	p, err := f.cmd.ledger.RegisterProject(ctx, inventoryapp.RegisterProjectRequest{Code: code})
	require.NoError(t, err)
	_, err = inventoryapp.NewWarehouseEntryService(projectRepo, entryRepo, tx, zap.NewNop()).
		RecordEntry(ctx, p.ID, inventoryapp.RecordEntryRequest{
			Quantity:  10,
			EntryDate: testutil.Date(2024, 3, 1),
			Status:    string(inventory.EntryStatusComplete),
		})
	require.NoError(t, err)
	_, err = inventoryapp.NewPackingListService(packingRepo, tx, zap.NewNop()).
		AddPackingLines(ctx, inventoryapp.AddPackingLinesRequest{
			PackingCode: "PL-" + code,
			PLDate:      testutil.Date(2024, 3, 2),
			Lines: []inventoryapp.PackingLineInput{
				{ProjectID: &p.ID, BoxCount: 1, PackagingCount: 2, PackagingMethod: 3},
			},
		})
	require.NoError(t, err)
	return p.ID
}

func (f *fixture) setCounters(t *testing.T, id uuid.UUID, entry, export int64) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.ProjectModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"entry_quantity":  entry,
		"export_quantity": export,
		"remain_quantity": entry - export,
	}).Error)
}

func (f *fixture) exportQuantity(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	var m models.ProjectModel
	require.NoError(t, f.db.First(&m, "id = ?", id).Error)
	return m.ExportQuantity
}

func TestRun_SingleProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.shippedProject(t, "PRJ-A")
	f.setCounters(t, id, 10, 0)

	t.Run("by code", func(t *testing.T) {
		failed, err := f.cmd.run(ctx, "PRJ-A", false)
		require.NoError(t, err)
		assert.Zero(t, failed)
		assert.Equal(t, int64(6), f.exportQuantity(t, id))
	})

	t.Run("by id", func(t *testing.T) {
		f.setCounters(t, id, 10, 2)
		failed, err := f.cmd.run(ctx, id.String(), false)
		require.NoError(t, err)
		assert.Zero(t, failed)
		assert.Equal(t, int64(6), f.exportQuantity(t, id))
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := f.cmd.run(ctx, "NOPE", false)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("export exceeds entry", func(t *testing.T) {
		f.setCounters(t, id, 4, 0)
		failed, err := f.cmd.run(ctx, "PRJ-A", false)
		require.NoError(t, err)
		assert.Equal(t, 1, failed)
		assert.Zero(t, f.exportQuantity(t, id), "failed project keeps its counters")
	})
}

func TestRun_All(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	healthy := f.shippedProject(t, "PRJ-A")
	broken := f.shippedProject(t, "PRJ-B")
	f.setCounters(t, healthy, 10, 0)
	f.setCounters(t, broken, 1, 0)

	failed, err := f.cmd.run(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Equal(t, int64(6), f.exportQuantity(t, healthy))
	assert.Zero(t, f.exportQuantity(t, broken))
}
