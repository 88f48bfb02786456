package entity

import (
	"testing"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCell(t *testing.T) {
	t.Run("Normalizes case and whitespace", func(t *testing.T) {
		// When: parsing a lower-case padded coordinate
		cell, err := ParseCell(" c7 ")

		// Then: it should be normalized
		require.NoError(t, err)
		assert.Equal(t, Cell("C7"), cell)
	})

	t.Run("Accepts the last row", func(t *testing.T) {
		cell, err := ParseCell("J10")

		require.NoError(t, err)
		assert.Equal(t, Cell("J10"), cell)
	})

	t.Run("Rejects coordinates outside the board", func(t *testing.T) {
		for _, raw := range []string{"", "K1", "A0", "A11", "1A", "AA", "A100"} {
			_, err := ParseCell(raw)
			assert.ErrorIs(t, err, apperror.ErrInvalidCell, raw)
		}
	})
}

func TestAllCells(t *testing.T) {
	// When: listing the board inventory
	cells := AllCells()

	// Then: there are 100 unique identifiers starting at A1 and ending at J10
	require.Len(t, cells, 100)
	assert.Equal(t, Cell("A1"), cells[0])
	assert.Equal(t, Cell("J10"), cells[99])

	seen := make(map[Cell]struct{})
	for _, cell := range cells {
		seen[cell] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestBoard_Mark(t *testing.T) {
	t.Run("Records outcomes", func(t *testing.T) {
		// Given: an empty board
		var board Board

		// When: marking a hit and a miss
		require.NoError(t, board.Mark("A1", OutcomeHit))
		require.NoError(t, board.Mark("J10", OutcomeMiss))

		// Then: both outcomes are readable
		assert.Equal(t, OutcomeHit, board.Outcome("A1"))
		assert.Equal(t, OutcomeMiss, board.Outcome("J10"))
		assert.Equal(t, []Cell{"A1"}, board.Cells(OutcomeHit))
		assert.Equal(t, 1, board.Count(OutcomeMiss))
	})

	t.Run("Does not downgrade a hit", func(t *testing.T) {
		// Given: a board with a hit
		var board Board
		require.NoError(t, board.Mark("C3", OutcomeHit))

		// When: the same cell is reported as a miss
		require.NoError(t, board.Mark("C3", OutcomeMiss))

		// Then: it stays a hit
		assert.Equal(t, OutcomeHit, board.Outcome("C3"))
	})

	t.Run("Marking twice is idempotent", func(t *testing.T) {
		var board Board
		require.NoError(t, board.Mark("D4", OutcomeMiss))
		require.NoError(t, board.Mark("D4", OutcomeMiss))

		assert.Equal(t, 1, board.Count(OutcomeMiss))
	})

	t.Run("Rejects invalid cells", func(t *testing.T) {
		var board Board

		err := board.Mark("Z9", OutcomeHit)

		assert.ErrorIs(t, err, apperror.ErrInvalidCell)
		assert.Equal(t, OutcomeNone, board.Outcome("Z9"))
	})

	t.Run("Clear removes every mark", func(t *testing.T) {
		var board Board
		require.NoError(t, board.Mark("E5", OutcomeHit))

		board.Clear()

		assert.Equal(t, 0, board.Count(OutcomeHit))
	})
}

func TestSortCells(t *testing.T) {
	cells := []Cell{"B2", "A10", "A1", "J1"}

	SortCells(cells)

	assert.Equal(t, []Cell{"A1", "J1", "B2", "A10"}, cells)
}
