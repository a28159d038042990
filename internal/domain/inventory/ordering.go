package inventory

import (
	"bytes"
	"sort"
)

// fifoLess orders batches oldest first: entry date, then creation time, then ID
func fifoLess(a, b *WarehouseEntry) bool {
	if !a.EntryDate.Equal(b.EntryDate) {
		return a.EntryDate.Before(b.EntryDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// SortFIFO sorts batches in deduction order
func SortFIFO(batches []*WarehouseEntry) {
	sort.SliceStable(batches, func(i, j int) bool {
		return fifoLess(batches[i], batches[j])
	})
}

// SortLIFO sorts batches in restoration order, the exact reverse of SortFIFO
func SortLIFO(batches []*WarehouseEntry) {
	sort.SliceStable(batches, func(i, j int) bool {
		return fifoLess(batches[j], batches[i])
	})
}
