package entity

import (
	"testing"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fleet() []Cell {
	return AllCells()[:FleetCells]
}

func TestPlacement_Toggle(t *testing.T) {
	t.Run("Selects and deselects a cell", func(t *testing.T) {
		// Given: an empty placement
		var placement Placement

		// When: toggling the same cell twice
		selected, err := placement.Toggle("A1")
		require.NoError(t, err)
		assert.True(t, selected)

		selected, err = placement.Toggle("A1")
		require.NoError(t, err)

		// Then: the cell is no longer selected
		assert.False(t, selected)
		assert.Equal(t, 0, placement.Len())
	})

	t.Run("Refuses a 21st cell", func(t *testing.T) {
		// Given: a placement with 20 cells
		var placement Placement
		for _, cell := range fleet() {
			_, err := placement.Toggle(cell)
			require.NoError(t, err)
		}

		// When: selecting one more
		_, err := placement.Toggle("J10")

		// Then: ErrPlacementFull is returned
		require.ErrorIs(t, err, apperror.ErrPlacementFull)
		assert.Equal(t, 0, placement.Remaining())
	})

	t.Run("Refuses changes after lock", func(t *testing.T) {
		var placement Placement
		for _, cell := range fleet() {
			_, err := placement.Toggle(cell)
			require.NoError(t, err)
		}
		require.NoError(t, placement.Lock())

		_, err := placement.Toggle("A1")

		require.ErrorIs(t, err, apperror.ErrPlacementLocked)
		assert.True(t, placement.Contains("A1"))
	})
}

func TestPlacement_Lock(t *testing.T) {
	t.Run("Requires exactly 20 cells", func(t *testing.T) {
		// Given: a placement with 19 cells
		var placement Placement
		for _, cell := range fleet()[:19] {
			_, err := placement.Toggle(cell)
			require.NoError(t, err)
		}

		// When: locking
		err := placement.Lock()

		// Then: the placement is incomplete and not ready
		require.ErrorIs(t, err, apperror.ErrPlacementIncomplete)
		assert.False(t, placement.Ready())
	})

	t.Run("Locks a full placement", func(t *testing.T) {
		var placement Placement
		for _, cell := range fleet() {
			_, err := placement.Toggle(cell)
			require.NoError(t, err)
		}

		require.NoError(t, placement.Lock())
		assert.True(t, placement.Ready())
	})
}

func TestPlacement_Restore(t *testing.T) {
	t.Run("Restoring twice keeps 20 cells", func(t *testing.T) {
		// Given: an empty placement
		var placement Placement

		// When: restoring the same server selection twice
		require.NoError(t, placement.Restore(fleet()))
		require.NoError(t, placement.Restore(fleet()))

		// Then: there are no duplicates
		assert.Equal(t, FleetCells, placement.Len())
		assert.True(t, placement.Ready())
	})

	t.Run("Rejects duplicated cells", func(t *testing.T) {
		cells := fleet()
		cells[19] = cells[0]

		var placement Placement
		err := placement.Restore(cells)

		require.ErrorIs(t, err, apperror.ErrPlacementIncomplete)
		assert.False(t, placement.Ready())
	})

	t.Run("Reset unlocks", func(t *testing.T) {
		var placement Placement
		require.NoError(t, placement.Restore(fleet()))

		placement.Reset()

		assert.False(t, placement.Ready())
		assert.Equal(t, 0, placement.Len())
	})
}
