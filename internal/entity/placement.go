package entity

import (
	"fmt"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
)

// Placement is the set of own-board cells occupied by ships. Once ready it cannot change
// until Reset.
type Placement struct {
	cells []Cell
	ready bool
}

// Toggle selects the cell, or deselects it when already selected. It reports whether the cell
// is selected afterwards.
func (that *Placement) Toggle(cell Cell) (bool, error) {
	if that.ready {
		return false, apperror.ErrPlacementLocked
	}

	if !cell.valid() {
		return false, fmt.Errorf("%w: %q", apperror.ErrInvalidCell, cell)
	}

	for i, selected := range that.cells {
		if selected == cell {
			that.cells = append(that.cells[:i], that.cells[i+1:]...)
			return false, nil
		}
	}

	if len(that.cells) >= FleetCells {
		return false, apperror.ErrPlacementFull
	}

	that.cells = append(that.cells, cell)

	return true, nil
}

// Lock confirms the placement. It requires exactly FleetCells selected cells.
func (that *Placement) Lock() error {
	if that.ready {
		return apperror.ErrPlacementLocked
	}

	if len(that.cells) != FleetCells {
		return fmt.Errorf("%w: %d of %d cells selected", apperror.ErrPlacementIncomplete, len(that.cells), FleetCells)
	}

	that.ready = true

	return nil
}

// Restore replaces the selection with cells reported by the server and locks it.
// Restoring the same cells again is a no-op.
func (that *Placement) Restore(cells []Cell) error {
	seen := make(map[Cell]struct{}, len(cells))
	for _, cell := range cells {
		if !cell.valid() {
			return fmt.Errorf("%w: %q", apperror.ErrInvalidCell, cell)
		}
		seen[cell] = struct{}{}
	}

	if len(seen) != FleetCells || len(cells) != FleetCells {
		return fmt.Errorf("%w: %d distinct cells", apperror.ErrPlacementIncomplete, len(seen))
	}

	that.cells = append([]Cell(nil), cells...)
	that.ready = true

	return nil
}

func (that *Placement) Reset() {
	that.cells = nil
	that.ready = false
}

func (that *Placement) Ready() bool {
	return that.ready
}

func (that *Placement) Len() int {
	return len(that.cells)
}

// Remaining is the number of cells still to be selected.
func (that *Placement) Remaining() int {
	return FleetCells - len(that.cells)
}

func (that *Placement) Contains(cell Cell) bool {
	for _, selected := range that.cells {
		if selected == cell {
			return true
		}
	}

	return false
}

// Cells returns a copy of the selection in selection order.
func (that *Placement) Cells() []Cell {
	return append([]Cell(nil), that.cells...)
}
