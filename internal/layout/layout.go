// Package layout places labels on a printable page grid.
package layout

import (
	"errors"
	"fmt"
)

// ErrInvalidGrid is returned for a non-positive column count or a negative
// item count.
var ErrInvalidGrid = errors.New("invalid grid dimensions")

// Cell is one label slot. Items fill a column top to bottom before moving to
// the next column.
type Cell struct {
	Index  int
	ItemID int64
	Column int
	Row    int
}

// Grid places itemCount labels into columns of numColumns rows each.
// The last column holds the remainder.
func Grid(itemCount, numColumns int) ([]Cell, error) {
	if numColumns <= 0 || itemCount < 0 {
		return nil, fmt.Errorf("%w: %d items in columns of %d", ErrInvalidGrid, itemCount, numColumns)
	}

	cells := make([]Cell, itemCount)
	for i := range cells {
		cells[i] = Cell{
			Index:  i,
			ItemID: int64(i + 1),
			Column: i / numColumns,
			Row:    i % numColumns,
		}
	}
	return cells, nil
}

// Geometry describes the page in points with the origin at the top left.
type Geometry struct {
	PageWidth  float64
	PageHeight float64
	Left       float64
	Top        float64
	CellSize   float64
	Gutter     float64
	LabelGap   float64
}

// A4 is the default label sheet.
var A4 = Geometry{
	PageWidth:  595.28,
	PageHeight: 841.89,
	Left:       20,
	Top:        40,
	CellSize:   80,
	Gutter:     20,
	LabelGap:   10,
}

// Pitch is the distance between the origins of neighbouring cells.
func (g Geometry) Pitch() float64 {
	return g.CellSize + g.Gutter
}

// Origin returns the top-left corner of the image for column col and row row.
func (g Geometry) Origin(col, row int) (x, y float64) {
	return g.Left + float64(col)*g.Pitch(), g.Top + float64(row)*g.Pitch()
}

// LabelBaseline returns the y coordinate of the text baseline under a cell.
func (g Geometry) LabelBaseline(row int) float64 {
	_, y := g.Origin(0, row)
	return y + g.CellSize + g.LabelGap
}

// ColumnsPerPage reports how many whole columns fit across the page.
func (g Geometry) ColumnsPerPage() int {
	n := 0
	for {
		x, _ := g.Origin(n, 0)
		if x+g.CellSize > g.PageWidth {
			break
		}
		n++
	}
	return max(n, 1)
}
