package entity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
)

const (
	BoardSize  = 10
	FleetCells = 20
)

// Columns are the column letters of a board, left to right.
var Columns = [BoardSize]string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

// Cell is a board coordinate such as "C7".
type Cell string

// ParseCell validates and normalizes a coordinate: a column letter A..J followed by a row 1..10.
func ParseCell(raw string) (Cell, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if len(value) < 2 || len(value) > 3 {
		return "", fmt.Errorf("%w: %q", apperror.ErrInvalidCell, raw)
	}

	column := value[0]
	if column < 'A' || column >= 'A'+BoardSize {
		return "", fmt.Errorf("%w: %q", apperror.ErrInvalidCell, raw)
	}

	row, err := strconv.Atoi(value[1:])
	if err != nil || row < 1 || row > BoardSize {
		return "", fmt.Errorf("%w: %q", apperror.ErrInvalidCell, raw)
	}

	return Cell(string(column) + strconv.Itoa(row)), nil
}

// AllCells returns the 100 cell identifiers of a board, row by row.
func AllCells() []Cell {
	cells := make([]Cell, 0, BoardSize*BoardSize)
	for row := 1; row <= BoardSize; row++ {
		for _, column := range Columns {
			cells = append(cells, Cell(column+strconv.Itoa(row)))
		}
	}

	return cells
}

func (that Cell) index() int {
	column := int(that[0] - 'A')
	row, _ := strconv.Atoi(string(that[1:])) //nolint: errcheck // cells are validated by ParseCell

	return (row-1)*BoardSize + column
}

func (that Cell) valid() bool {
	parsed, err := ParseCell(string(that))
	return err == nil && parsed == that
}

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeMiss
	OutcomeHit
)

func (that Outcome) String() string {
	switch that {
	case OutcomeMiss:
		return "miss"
	case OutcomeHit:
		return "hit"
	default:
		return "none"
	}
}

// Board records shot outcomes per cell. The zero value is an empty board.
type Board struct {
	marks [BoardSize * BoardSize]Outcome
}

// Mark records an outcome for the cell. Outcomes are cumulative: a hit is never downgraded to a miss.
func (that *Board) Mark(cell Cell, outcome Outcome) error {
	if !cell.valid() {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidCell, cell)
	}

	idx := cell.index()
	if that.marks[idx] == OutcomeHit {
		return nil
	}

	that.marks[idx] = outcome

	return nil
}

func (that *Board) Outcome(cell Cell) Outcome {
	if !cell.valid() {
		return OutcomeNone
	}

	return that.marks[cell.index()]
}

// Cells returns the cells carrying the given outcome in board order.
func (that *Board) Cells(outcome Outcome) []Cell {
	var cells []Cell
	for _, cell := range AllCells() {
		if that.marks[cell.index()] == outcome {
			cells = append(cells, cell)
		}
	}

	return cells
}

func (that *Board) Count(outcome Outcome) int {
	count := 0
	for _, mark := range that.marks {
		if mark == outcome {
			count++
		}
	}

	return count
}

func (that *Board) Clear() {
	that.marks = [BoardSize * BoardSize]Outcome{}
}

// SortCells orders cells the way they appear on a board.
func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].index() < cells[j].index()
	})
}
