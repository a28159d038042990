package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	inventoryapp "github.com/mfgorder/backend/internal/application/inventory"
)

// PackingListHandler handles packing-list HTTP requests. Every write
// reconciles the export quantity of each project the edit touches.
type PackingListHandler struct {
	Responder
	packingService *inventoryapp.PackingListService
}

// NewPackingListHandler creates a new PackingListHandler
func NewPackingListHandler(packingService *inventoryapp.PackingListService) *PackingListHandler {
	return &PackingListHandler{packingService: packingService}
}

// AddLinesRequest represents a request to add lines under one packing code
// @Description Packing-list lines. pl_date accepts YYYY-MM-DD or RFC3339.
type AddLinesRequest struct {
	PLDate string                          `json:"pl_date" binding:"required" example:"2024-08-01"`
	Lines  []inventoryapp.PackingLineInput `json:"lines" binding:"required,min=1,dive"`
}

func (h *PackingListHandler) packingCode(c *gin.Context) (string, bool) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		h.BadRequest(c, "Packing code is required")
		return "", false
	}
	return code, true
}

// ListLines godoc
// @ID           listPackingLines
// @Summary      List the lines of a packing list
// @Tags         packing-lists
// @Produce      json
// @Param        code path string true "Packing code"
// @Success      200 {object} dto.Response
// @Router       /packing-lists/{code}/lines [get]
func (h *PackingListHandler) ListLines(c *gin.Context) {
	code, ok := h.packingCode(c)
	if !ok {
		return
	}

	lines, err := h.packingService.ListPackingLines(c.Request.Context(), code)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, lines)
}

// AddLines godoc
// @ID           addPackingLines
// @Summary      Add lines to a packing list
// @Description  Rolled back entirely if any affected project would export more than it received
// @Tags         packing-lists
// @Accept       json
// @Produce      json
// @Param        code path string true "Packing code"
// @Param        request body AddLinesRequest true "Lines"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      422 {object} dto.Response "Export exceeds entry"
// @Router       /packing-lists/{code}/lines [post]
func (h *PackingListHandler) AddLines(c *gin.Context) {
	code, ok := h.packingCode(c)
	if !ok {
		return
	}

	var req AddLinesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	plDate, err := parseDate(req.PLDate)
	if err != nil {
		h.BadRequest(c, "Invalid pl_date format, expected YYYY-MM-DD or RFC3339")
		return
	}

	result, err := h.packingService.AddPackingLines(c.Request.Context(), inventoryapp.AddPackingLinesRequest{
		PackingCode: code,
		PLDate:      plDate,
		Lines:       req.Lines,
	})
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.Created(c, result)
}

// UpdateLine godoc
// @ID           updatePackingLine
// @Summary      Edit a packing-list line
// @Description  Moving a line to another project reconciles both projects
// @Tags         packing-lists
// @Accept       json
// @Produce      json
// @Param        id path string true "Line ID" format(uuid)
// @Param        request body inventory.PackingLineInput true "Line"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response "Export exceeds entry"
// @Router       /packing-lines/{id} [put]
func (h *PackingListHandler) UpdateLine(c *gin.Context) {
	lineID, ok := h.pathUUID(c, "id", "packing line")
	if !ok {
		return
	}

	var req inventoryapp.PackingLineInput
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.packingService.UpdatePackingLine(c.Request.Context(), lineID, req)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, result)
}

// DeleteLine godoc
// @ID           deletePackingLine
// @Summary      Delete a packing-list line
// @Tags         packing-lists
// @Produce      json
// @Param        id path string true "Line ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /packing-lines/{id} [delete]
func (h *PackingListHandler) DeleteLine(c *gin.Context) {
	lineID, ok := h.pathUUID(c, "id", "packing line")
	if !ok {
		return
	}

	result, err := h.packingService.DeletePackingLine(c.Request.Context(), lineID)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, result)
}

// DeleteList godoc
// @ID           deletePackingList
// @Summary      Delete every line of a packing list
// @Tags         packing-lists
// @Produce      json
// @Param        code path string true "Packing code"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /packing-lists/{code} [delete]
func (h *PackingListHandler) DeleteList(c *gin.Context) {
	code, ok := h.packingCode(c)
	if !ok {
		return
	}

	result, err := h.packingService.DeletePackingList(c.Request.Context(), code)
	if err != nil {
		h.Fail(c, err)
		return
	}

	h.OK(c, result)
}
