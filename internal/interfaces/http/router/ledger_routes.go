package router

import (
	"github.com/mfgorder/backend/internal/interfaces/http/handler"
)

// Handlers groups the HTTP handlers of the ledger API
type Handlers struct {
	Ledger  *handler.LedgerHandler
	Entries *handler.WarehouseEntryHandler
	Packing *handler.PackingListHandler
	Health  *handler.HealthHandler
}

// LedgerRoutes returns the resources of the ledger API
func LedgerRoutes(h Handlers) []Registrar {
	projects := NewResource("/projects").
		POST("", h.Ledger.RegisterProject).
		GET("", h.Ledger.ListProjects).
		POST("/recalculate", h.Ledger.RecalculateAll).
		GET("/:id", h.Ledger.GetProject).
		GET("/:id/stock", h.Ledger.GetStock).
		PUT("/:id/entry-quantity", h.Ledger.UpdateEntryQuantity).
		POST("/:id/deduct", h.Ledger.Deduct).
		POST("/:id/restore", h.Ledger.Restore).
		POST("/:id/recalculate", h.Ledger.Recalculate).
		GET("/:id/entries", h.Entries.List).
		POST("/:id/entries", h.Entries.Record)

	entries := NewResource("/entries").
		GET("/:id", h.Entries.Get).
		DELETE("/:id", h.Entries.Delete).
		POST("/:id/complete", h.Entries.Complete).
		GET("/:id/images", h.Entries.ListImages).
		POST("/:id/images", h.Entries.AttachImage)

	packingLists := NewResource("/packing-lists").
		GET("/:code/lines", h.Packing.ListLines).
		POST("/:code/lines", h.Packing.AddLines).
		DELETE("/:code", h.Packing.DeleteList)

	packingLines := NewResource("/packing-lines").
		PUT("/:id", h.Packing.UpdateLine).
		DELETE("/:id", h.Packing.DeleteLine)

	system := NewResource("").
		GET("/health", h.Health.Health)

	return []Registrar{projects, entries, packingLists, packingLines, system}
}
