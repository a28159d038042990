package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthData is returned by the health endpoint
type HealthData struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
}

// HealthHandler reports whether the service and its database are reachable
type HealthHandler struct {
	Responder
	db *gorm.DB
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health godoc
// @ID           health
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	data := HealthData{Status: "ok", Database: "ok"}

	sqlDB, err := h.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		data.Status = "degraded"
		data.Database = err.Error()
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "data": data})
		return
	}

	h.OK(c, data)
}
