package handler

import (
	"github.com/gin-gonic/gin"
	inventoryapp "github.com/mfgorder/backend/internal/application/inventory"
)

// LedgerHandler handles project and stock ledger HTTP requests
type LedgerHandler struct {
	Responder
	ledgerService *inventoryapp.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *inventoryapp.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// QuantityRequest carries the quantity of a deduction or restoration
// @Description Quantity to deduct from or restore to a project
type QuantityRequest struct {
	Quantity int64 `json:"quantity" binding:"gt=0" example:"25"`
}

// RegisterProject godoc
// @ID           registerProject
// @Summary      Register a project
// @Description  Create a project with zero entry and export counters
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        request body inventory.RegisterProjectRequest true "Project"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /projects [post]
func (h *LedgerHandler) RegisterProject(c *gin.Context) {
	var req inventoryapp.RegisterProjectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	project, err := h.ledgerService.RegisterProject(c.Request.Context(), req)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.Created(c, project)
}

// GetProject godoc
// @ID           getProject
// @Summary      Get a project
// @Tags         projects
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /projects/{id} [get]
func (h *LedgerHandler) GetProject(c *gin.Context) {
	projectID, ok := h.pathUUID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.ledgerService.GetProject(c.Request.Context(), projectID)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, project)
}

// ListProjects godoc
// @ID           listProjects
// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Param        search query string false "Code or name contains"
// @Param        has_remain query boolean false "Only projects with remaining stock"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" Enums(code, created_at, entry_quantity, export_quantity, remain_quantity)
// @Param        order_dir query string false "Order direction" Enums(asc, desc)
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /projects [get]
func (h *LedgerHandler) ListProjects(c *gin.Context) {
	var filter inventoryapp.ProjectListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	// Set defaults
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	projects, total, err := h.ledgerService.ListProjects(c.Request.Context(), filter)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.Page(c, projects, total, filter.Page, filter.PageSize)
}

// GetStock godoc
// @ID           getProjectStock
// @Summary      Get a project's stock snapshot
// @Description  Counters plus batch totals and the drift between export_quantity and allocated batch quantity
// @Tags         projects
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /projects/{id}/stock [get]
func (h *LedgerHandler) GetStock(c *gin.Context) {
	projectID, ok := h.pathUUID(c, "id", "project")
	if !ok {
		return
	}

	stock, err := h.ledgerService.GetProjectStock(c.Request.Context(), projectID)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, stock)
}

// UpdateEntryQuantity godoc
// @ID           updateEntryQuantity
// @Summary      Correct a project's entry quantity
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Param        request body inventory.UpdateEntryQuantityRequest true "New entry quantity"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response "Entry would fall below export"
// @Router       /projects/{id}/entry-quantity [put]
func (h *LedgerHandler) UpdateEntryQuantity(c *gin.Context) {
	projectID, ok := h.pathUUID(c, "id", "project")
	if !ok {
		return
	}

	var req inventoryapp.UpdateEntryQuantityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	project, err := h.ledgerService.UpdateEntryQuantity(c.Request.Context(), projectID, req)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, project)
}

// Deduct godoc
// @ID           deductInventory
// @Summary      Deduct stock
// @Description  Allocate the quantity across the project's complete batches, oldest first
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Param        request body QuantityRequest true "Quantity"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response "Insufficient stock"
// @Router       /projects/{id}/deduct [post]
func (h *LedgerHandler) Deduct(c *gin.Context) {
	projectID, ok := h.pathUUID(c, "id", "project")
	if !ok {
		return
	}

	var req QuantityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.ledgerService.DeductInventory(c.Request.Context(), inventoryapp.DeductInventoryRequest{
		ProjectID: projectID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, result)
}

// Restore godoc
// @ID           restoreInventory
// @Summary      Restore stock
// @Description  Return the quantity to the project's most recently allocated batches
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Param        request body QuantityRequest true "Quantity"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response "Restore exceeds exported quantity"
// @Router       /projects/{id}/restore [post]
func (h *LedgerHandler) Restore(c *gin.Context) {
	projectID, ok := h.pathUUID(c, "id", "project")
	if !ok {
		return
	}

	var req QuantityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.ledgerService.RestoreInventory(c.Request.Context(), inventoryapp.RestoreInventoryRequest{
		ProjectID: projectID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, result)
}

// Recalculate godoc
// @ID           recalculateExportQuantity
// @Summary      Reconcile a project's export quantity
// @Description  Replace export_quantity with the total shipped on the project's packing-list lines
// @Tags         ledger
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response "Export exceeds entry"
// @Router       /projects/{id}/recalculate [post]
func (h *LedgerHandler) Recalculate(c *gin.Context) {
	projectID, ok := h.pathUUID(c, "id", "project")
	if !ok {
		return
	}

	result, err := h.ledgerService.RecalculateExportQuantity(c.Request.Context(), projectID)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, result)
}

// RecalculateAll godoc
// @ID           recalculateAllExportQuantities
// @Summary      Reconcile every project
// @Description  Projects that fail are reported individually and do not stop the run
// @Tags         ledger
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /projects/recalculate [post]
func (h *LedgerHandler) RecalculateAll(c *gin.Context) {
	result, err := h.ledgerService.RecalculateAll(c.Request.Context())
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, result)
}
