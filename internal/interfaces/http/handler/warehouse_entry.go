package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	inventoryapp "github.com/mfgorder/backend/internal/application/inventory"
)

// WarehouseEntryHandler handles batch (warehouse entry) HTTP requests
type WarehouseEntryHandler struct {
	Responder
	entryService *inventoryapp.WarehouseEntryService
}

// NewWarehouseEntryHandler creates a new WarehouseEntryHandler
func NewWarehouseEntryHandler(entryService *inventoryapp.WarehouseEntryService) *WarehouseEntryHandler {
	return &WarehouseEntryHandler{entryService: entryService}
}

// RecordEntryRequest represents a request to record an inbound batch
// @Description Inbound batch. entry_date accepts YYYY-MM-DD or RFC3339.
type RecordEntryRequest struct {
	Quantity  int64  `json:"quantity" binding:"gt=0" example:"120"`
	EntryDate string `json:"entry_date" binding:"required" example:"2024-03-01"`
	Status    string `json:"status" binding:"omitempty,oneof=입고중 입고완료" example:"입고중"`
	Note      string `json:"note" binding:"max=500"`
}

// parseDate accepts a calendar date or a full RFC3339 timestamp
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Record godoc
// @ID           recordWarehouseEntry
// @Summary      Record an inbound batch
// @Description  A batch recorded as 입고완료 adds its quantity to the project's entry_quantity immediately
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Param        request body RecordEntryRequest true "Batch"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /projects/{id}/entries [post]
func (h *WarehouseEntryHandler) Record(c *gin.Context) {
	projectID, ok := h.pathUUID(c, "id", "project")
	if !ok {
		return
	}

	var req RecordEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entryDate, err := parseDate(req.EntryDate)
	if err != nil {
		h.BadRequest(c, "Invalid entry_date format, expected YYYY-MM-DD or RFC3339")
		return
	}

	entry, err := h.entryService.RecordEntry(c.Request.Context(), projectID, inventoryapp.RecordEntryRequest{
		Quantity:  req.Quantity,
		EntryDate: entryDate,
		Status:    req.Status,
		Note:      req.Note,
	})
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.Created(c, entry)
}

// List godoc
// @ID           listWarehouseEntries
// @Summary      List a project's batches
// @Description  Oldest first (FIFO order) unless order_dir=desc
// @Tags         entries
// @Produce      json
// @Param        id path string true "Project ID" format(uuid)
// @Param        status query string false "Batch status" Enums(입고중, 입고완료)
// @Param        has_stock query boolean false "Only batches with stock left"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_dir query string false "Order direction" Enums(asc, desc)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /projects/{id}/entries [get]
func (h *WarehouseEntryHandler) List(c *gin.Context) {
	projectID, ok := h.pathUUID(c, "id", "project")
	if !ok {
		return
	}

	var filter inventoryapp.EntryListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	entries, total, err := h.entryService.ListEntries(c.Request.Context(), projectID, filter)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.Page(c, entries, total, filter.Page, filter.PageSize)
}

// Get godoc
// @ID           getWarehouseEntry
// @Summary      Get a batch
// @Tags         entries
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /entries/{id} [get]
func (h *WarehouseEntryHandler) Get(c *gin.Context) {
	entryID, ok := h.pathUUID(c, "id", "entry")
	if !ok {
		return
	}

	entry, err := h.entryService.GetEntry(c.Request.Context(), entryID)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, entry)
}

// Complete godoc
// @ID           completeWarehouseEntry
// @Summary      Mark a batch as received
// @Tags         entries
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response "Already complete"
// @Router       /entries/{id}/complete [post]
func (h *WarehouseEntryHandler) Complete(c *gin.Context) {
	entryID, ok := h.pathUUID(c, "id", "entry")
	if !ok {
		return
	}

	entry, err := h.entryService.CompleteEntry(c.Request.Context(), entryID)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, entry)
}

// Delete godoc
// @ID           deleteWarehouseEntry
// @Summary      Delete a batch
// @Description  Rejected once any quantity was allocated from the batch. Image objects are removed from storage after commit.
// @Tags         entries
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response "Entry would fall below export"
// @Failure      422 {object} dto.Response "Batch has allocations"
// @Router       /entries/{id} [delete]
func (h *WarehouseEntryHandler) Delete(c *gin.Context) {
	entryID, ok := h.pathUUID(c, "id", "entry")
	if !ok {
		return
	}

	result, err := h.entryService.DeleteEntry(c.Request.Context(), entryID)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, result)
}

// AttachImage godoc
// @ID           attachWarehouseEntryImage
// @Summary      Attach an uploaded image to a batch
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Param        request body inventory.AttachEntryImageRequest true "Storage key"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /entries/{id}/images [post]
func (h *WarehouseEntryHandler) AttachImage(c *gin.Context) {
	entryID, ok := h.pathUUID(c, "id", "entry")
	if !ok {
		return
	}

	var req inventoryapp.AttachEntryImageRequest
	if !h.bindJSON(c, &req) {
		return
	}

	image, err := h.entryService.AttachEntryImage(c.Request.Context(), entryID, req)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.Created(c, image)
}

// ListImages godoc
// @ID           listWarehouseEntryImages
// @Summary      List a batch's images with presigned download URLs
// @Tags         entries
// @Produce      json
// @Param        id path string true "Entry ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /entries/{id}/images [get]
func (h *WarehouseEntryHandler) ListImages(c *gin.Context) {
	entryID, ok := h.pathUUID(c, "id", "entry")
	if !ok {
		return
	}

	images, err := h.entryService.ListEntryImages(c.Request.Context(), entryID)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, images)
}
