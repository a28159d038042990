// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: shared identity and timestamp columns
// - project.go: projects table with the stock counter check constraints
// - warehouse_entry.go: warehouse_entries and warehouse_entry_images tables
// - packing_list.go: packing_list_lines table
//
// The check tags mirror the SQL migrations so that AutoMigrate (used by the
// sqlite-backed tests) enforces the same constraints as production.
package models
