package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/mfgorder/backend/internal/application/inventory"
	"github.com/mfgorder/backend/internal/infrastructure/persistence"
	"github.com/mfgorder/backend/internal/infrastructure/storage"
	"github.com/mfgorder/backend/internal/interfaces/http/dto"
	"github.com/mfgorder/backend/internal/interfaces/http/middleware"
	"github.com/mfgorder/backend/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// apiHarness wires the real services over an in-memory SQLite database and
// mounts the handlers the same way the router does.
type apiHarness struct {
	engine  *gin.Engine
	ledger  *inventoryapp.LedgerService
	entries *inventoryapp.WarehouseEntryService
	packing *inventoryapp.PackingListService
	objects *storage.MemoryObjectStore
}

func newHarness(t *testing.T) *apiHarness {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	projectRepo := persistence.NewGormProjectRepository(db)
	entryRepo := persistence.NewGormWarehouseEntryRepository(db)
	packingRepo := persistence.NewGormPackingListRepository(db)
	tx := persistence.NewGormTransactionScope(db)
	log := zap.NewNop()

	h := &apiHarness{
		ledger:  inventoryapp.NewLedgerService(projectRepo, entryRepo, packingRepo, tx, log),
		entries: inventoryapp.NewWarehouseEntryService(projectRepo, entryRepo, tx, log),
		packing: inventoryapp.NewPackingListService(packingRepo, tx, log),
		objects: storage.NewMemoryObjectStore(),
	}
	h.entries.SetObjectRemover(h.objects)
	h.entries.SetURLSigner(h.objects, time.Minute)

	ledger := NewLedgerHandler(h.ledger)
	entries := NewWarehouseEntryHandler(h.entries)
	packing := NewPackingListHandler(h.packing)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api/v1")
	api.POST("/projects", ledger.RegisterProject)
	api.GET("/projects", ledger.ListProjects)
	api.POST("/projects/recalculate", ledger.RecalculateAll)
	api.GET("/projects/:id", ledger.GetProject)
	api.GET("/projects/:id/stock", ledger.GetStock)
	api.PUT("/projects/:id/entry-quantity", ledger.UpdateEntryQuantity)
	api.POST("/projects/:id/deduct", ledger.Deduct)
	api.POST("/projects/:id/restore", ledger.Restore)
	api.POST("/projects/:id/recalculate", ledger.Recalculate)
	api.GET("/projects/:id/entries", entries.List)
	api.POST("/projects/:id/entries", entries.Record)
	api.GET("/entries/:id", entries.Get)
	api.DELETE("/entries/:id", entries.Delete)
	api.POST("/entries/:id/complete", entries.Complete)
	api.GET("/entries/:id/images", entries.ListImages)
	api.POST("/entries/:id/images", entries.AttachImage)
	api.GET("/packing-lists/:code/lines", packing.ListLines)
	api.POST("/packing-lists/:code/lines", packing.AddLines)
	api.DELETE("/packing-lists/:code", packing.DeleteList)
	api.PUT("/packing-lines/:id", packing.UpdateLine)
	api.DELETE("/packing-lines/:id", packing.DeleteLine)
	h.engine = engine
	return h
}

func (h *apiHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

// project registers a project and records one complete batch per quantity.
func (h *apiHarness) project(t *testing.T, code string, batches ...int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	p, err := h.ledger.RegisterProject(ctx, inventoryapp.RegisterProjectRequest{Code: code})
	require.NoError(t, err)
	for i, q := range batches {
		_, err := h.entries.RecordEntry(ctx, p.ID, inventoryapp.RecordEntryRequest{
			Quantity:  q,
			EntryDate: testutil.Date(2024, time.March, 1+i),
			Status:    "입고완료",
		})
		require.NoError(t, err)
	}
	return p.ID
}

type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// requireError asserts the status and the API error code of a failed request.
func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) *dto.ErrorInfo {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := decode[json.RawMessage](t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, code, resp.Error.Code)
	require.NotEmpty(t, resp.Error.RequestID)
	return resp.Error
}
