package inventory

import (
	"errors"
	"strings"
	"testing"

	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject(t *testing.T, entry int64) *Project {
	t.Helper()
	p, err := NewProject("MO-2024-001", "Cotton tote bags")
	require.NoError(t, err)
	if entry > 0 {
		require.NoError(t, p.SetEntryQuantity(entry))
	}
	return p
}

func TestNewProject(t *testing.T) {
	t.Run("creates with zero counters", func(t *testing.T) {
		p, err := NewProject("  MO-1 ", "Bags")
		require.NoError(t, err)
		assert.Equal(t, "MO-1", p.Code)
		assert.Zero(t, p.EntryQuantity)
		assert.Zero(t, p.ExportQuantity)
		assert.Zero(t, p.RemainQuantity)
		assert.NoError(t, p.Validate())
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := NewProject("   ", "Bags")
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("rejects long code", func(t *testing.T) {
		_, err := NewProject(strings.Repeat("x", 51), "Bags")
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestProject_Validate(t *testing.T) {
	tests := []struct {
		name    string
		project Project
		wantErr bool
	}{
		{"consistent", Project{EntryQuantity: 10, ExportQuantity: 4, RemainQuantity: 6}, false},
		{"negative entry", Project{EntryQuantity: -1}, true},
		{"negative export", Project{EntryQuantity: 1, ExportQuantity: -1, RemainQuantity: 2}, true},
		{"negative remain", Project{EntryQuantity: 1, ExportQuantity: 1, RemainQuantity: -1}, true},
		{"export above entry", Project{EntryQuantity: 1, ExportQuantity: 2, RemainQuantity: 0}, true},
		{"remain out of sync", Project{EntryQuantity: 10, ExportQuantity: 4, RemainQuantity: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.project.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, shared.ErrInvariantViolation), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProject_RecordExport(t *testing.T) {
	t.Run("moves remain into export", func(t *testing.T) {
		p := newTestProject(t, 100)
		require.NoError(t, p.RecordExport(30))
		assert.Equal(t, int64(30), p.ExportQuantity)
		assert.Equal(t, int64(70), p.RemainQuantity)
	})

	t.Run("rejects more than remain", func(t *testing.T) {
		p := newTestProject(t, 10)
		err := p.RecordExport(11)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assert.Zero(t, p.ExportQuantity)
		assert.Equal(t, int64(10), p.RemainQuantity)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		p := newTestProject(t, 10)
		assert.True(t, errors.Is(p.RecordExport(0), shared.ErrInvalidInput))
	})
}

func TestProject_ReverseExport(t *testing.T) {
	p := newTestProject(t, 100)
	require.NoError(t, p.RecordExport(30))

	err := p.ReverseExport(31)
	assert.True(t, errors.Is(err, shared.ErrRestoreExceedsExported))
	assert.Equal(t, int64(30), p.ExportQuantity)

	require.NoError(t, p.ReverseExport(10))
	assert.Equal(t, int64(20), p.ExportQuantity)
	assert.Equal(t, int64(80), p.RemainQuantity)
}

func TestProject_ReplaceExport(t *testing.T) {
	p := newTestProject(t, 50)

	require.NoError(t, p.ReplaceExport(35))
	assert.Equal(t, int64(35), p.ExportQuantity)
	assert.Equal(t, int64(15), p.RemainQuantity)

	err := p.ReplaceExport(60)
	assert.True(t, errors.Is(err, shared.ErrExportExceedsEntry))
	assert.Equal(t, int64(35), p.ExportQuantity)
	assert.Equal(t, int64(15), p.RemainQuantity)
}

func TestProject_EntryUpdates(t *testing.T) {
	p := newTestProject(t, 0)
	require.NoError(t, p.AddEntry(40))
	require.NoError(t, p.RecordExport(25))

	t.Run("cannot drop entry below export", func(t *testing.T) {
		err := p.SetEntryQuantity(24)
		assert.True(t, errors.Is(err, shared.ErrInvariantViolation))
		assert.Equal(t, int64(40), p.EntryQuantity)
	})

	t.Run("remove entry keeps remain in sync", func(t *testing.T) {
		require.NoError(t, p.RemoveEntry(10))
		assert.Equal(t, int64(30), p.EntryQuantity)
		assert.Equal(t, int64(5), p.RemainQuantity)
		assert.NoError(t, p.Validate())
	})
}
