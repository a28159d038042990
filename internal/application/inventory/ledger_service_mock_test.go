package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/inventory"
	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProjectRepository is a mock implementation of ProjectRepository
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Project), args.Error(1)
}

func (m *MockProjectRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Project), args.Error(1)
}

func (m *MockProjectRepository) FindByCode(ctx context.Context, code string) (*inventory.Project, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Project), args.Error(1)
}

func (m *MockProjectRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.Project, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]inventory.Project), args.Error(1)
}

func (m *MockProjectRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockProjectRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProjectRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockProjectRepository) Save(ctx context.Context, project *inventory.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

// MockWarehouseEntryRepository is a mock implementation of WarehouseEntryRepository.
// Only the allocation methods are used by these tests.
type MockWarehouseEntryRepository struct {
	mock.Mock
	inventory.WarehouseEntryRepository
}

func (m *MockWarehouseEntryRepository) FindDeductibleForUpdate(ctx context.Context, projectID uuid.UUID) ([]*inventory.WarehouseEntry, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]*inventory.WarehouseEntry), args.Error(1)
}

func (m *MockWarehouseEntryRepository) FindRestorableForUpdate(ctx context.Context, projectID uuid.UUID) ([]*inventory.WarehouseEntry, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]*inventory.WarehouseEntry), args.Error(1)
}

func (m *MockWarehouseEntryRepository) SaveBatch(ctx context.Context, entries []*inventory.WarehouseEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

type countingMetrics struct {
	noopMetrics
	failures []string
}

func (m *countingMetrics) RecordFailure(_ context.Context, op string, err error) {
	m.failures = append(m.failures, op+":"+errorCode(err))
}

func newMockProject(t *testing.T, entry int64) *inventory.Project {
	t.Helper()
	p, err := inventory.NewProject("MOCK", "")
	require.NoError(t, err)
	require.NoError(t, p.SetEntryQuantity(entry))
	return p
}

func newMockBatch(t *testing.T, projectID uuid.UUID, qty int64) *inventory.WarehouseEntry {
	t.Helper()
	e, err := inventory.NewWarehouseEntry(projectID, qty, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), inventory.EntryStatusComplete, "")
	require.NoError(t, err)
	return e
}

func TestLedgerService_DeductInventory_BatchWriteFailure(t *testing.T) {
	ctx := context.Background()
	projectRepo := new(MockProjectRepository)
	entryRepo := new(MockWarehouseEntryRepository)
	metrics := &countingMetrics{}

	project := newMockProject(t, 10)
	batch := newMockBatch(t, project.ID, 10)
	writeErr := errors.New("connection reset")

	projectRepo.On("FindByIDForUpdate", ctx, project.ID).Return(project, nil)
	entryRepo.On("FindDeductibleForUpdate", ctx, project.ID).Return([]*inventory.WarehouseEntry{batch}, nil)
	entryRepo.On("SaveBatch", ctx, mock.Anything).Return(writeErr)

	svc := NewLedgerService(projectRepo, entryRepo, nil, NewInlineScope(projectRepo, entryRepo, nil), zap.NewNop())
	svc.SetMetrics(metrics)

	_, err := svc.DeductInventory(ctx, DeductInventoryRequest{ProjectID: project.ID, Quantity: 4})
	assert.ErrorIs(t, err, writeErr)
	projectRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Equal(t, []string{"deduct:INTERNAL_ERROR"}, metrics.failures)
}

func TestLedgerService_RestoreInventory_SavesTouchedBatchesOnly(t *testing.T) {
	ctx := context.Background()
	projectRepo := new(MockProjectRepository)
	entryRepo := new(MockWarehouseEntryRepository)

	project := newMockProject(t, 20)
	older := newMockBatch(t, project.ID, 10)
	newer := newMockBatch(t, project.ID, 10)
	newer.EntryDate = older.EntryDate.AddDate(0, 0, 1)
	older.Take(10)
	newer.Take(3)
	require.NoError(t, project.RecordExport(13))

	projectRepo.On("FindByIDForUpdate", ctx, project.ID).Return(project, nil)
	projectRepo.On("Save", ctx, project).Return(nil)
	entryRepo.On("FindRestorableForUpdate", ctx, project.ID).Return([]*inventory.WarehouseEntry{older, newer}, nil)
	entryRepo.On("SaveBatch", ctx, mock.MatchedBy(func(batches []*inventory.WarehouseEntry) bool {
		return len(batches) == 1 && batches[0].ID == newer.ID
	})).Return(nil)

	svc := NewLedgerService(projectRepo, entryRepo, nil, NewInlineScope(projectRepo, entryRepo, nil), nil)
	res, err := svc.RestoreInventory(ctx, RestoreInventoryRequest{ProjectID: project.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(11), res.NewExportQuantity)
	assert.Equal(t, int64(1), newer.OutQuantity)
	assert.Equal(t, int64(10), older.OutQuantity)

	projectRepo.AssertExpectations(t)
	entryRepo.AssertExpectations(t)
}

func TestValidate_Messages(t *testing.T) {
	err := validate(DeductInventoryRequest{ProjectID: uuid.New(), Quantity: -3})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, "quantity must be greater than 0", err.Error())

	err = validate(RegisterProjectRequest{})
	assert.Equal(t, "code is required", err.Error())

	assert.NoError(t, validate(RegisterProjectRequest{Code: "X"}))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, shared.CodeInsufficientStock, errorCode(shared.ErrInsufficientStock))
	assert.Equal(t, "INTERNAL_ERROR", errorCode(errors.New("boom")))
}
