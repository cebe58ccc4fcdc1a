// Package spatial provides the broad phase for projectile-versus-enemy
// collision checks.
//
// The grid stores small integer handles rather than pointers so that a
// rebuild every tick only resets slice lengths.
package spatial

import (
	"math"
)

// Grid buckets handles into square cells covering a square arena centred on
// the world origin. Points outside the arena land in the nearest edge cell.
//
// Cell size should be at least the largest query radius; cells are stored
// row-major (cells[row*cols+col]).
type Grid struct {
	halfExtent float64
	cellSize   float64
	invCell    float64
	cols       int
	cells      [][]uint32
	scratch    []uint32
	count      int
}

// NewGrid creates a grid for the arena [-halfExtent, halfExtent] on both
// planar axes. expected is a hint for the number of inserted handles.
func NewGrid(halfExtent, cellSize float64, expected int) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(2 * halfExtent / cellSize))
	if cols < 1 {
		cols = 1
	}

	cells := make([][]uint32, cols*cols)
	perCell := expected / len(cells)
	if perCell < 4 {
		perCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &Grid{
		halfExtent: halfExtent,
		cellSize:   cellSize,
		invCell:    1 / cellSize,
		cols:       cols,
		cells:      cells,
		scratch:    make([]uint32, 0, 64),
	}
}

// Clear empties every cell, keeping capacity.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Insert files handle under the cell containing (x, z).
func (g *Grid) Insert(handle uint32, x, z float64) {
	idx := g.row(z)*g.cols + g.col(x)
	g.cells[idx] = append(g.cells[idx], handle)
	g.count++
}

// QueryRadius returns the handles in every cell the circle touches. The
// result may contain handles outside the radius; callers do the exact test.
//
// The returned slice is reused by the next query.
func (g *Grid) QueryRadius(x, z, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, maxCol := g.col(x-radius), g.col(x+radius)
	minRow, maxRow := g.row(z-radius), g.row(z+radius)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	return g.scratch
}

// Contains reports whether (x, z) lies inside the arena.
func (g *Grid) Contains(x, z float64) bool {
	return math.Abs(x) <= g.halfExtent && math.Abs(z) <= g.halfExtent
}

func (g *Grid) col(x float64) int {
	return g.clampCell(int(math.Floor((x + g.halfExtent) * g.invCell)))
}

func (g *Grid) row(z float64) int {
	return g.clampCell(int(math.Floor((z + g.halfExtent) * g.invCell)))
}

func (g *Grid) clampCell(i int) int {
	if i < 0 {
		return 0
	}
	if i >= g.cols {
		return g.cols - 1
	}
	return i
}

// Stats summarises occupancy for the debug endpoints.
func (g *Grid) Stats() GridStats {
	var nonEmpty, maxInCell int
	for _, cell := range g.cells {
		n := len(cell)
		if n > maxInCell {
			maxInCell = n
		}
		if n > 0 {
			nonEmpty++
		}
	}

	avg := 0.0
	if nonEmpty > 0 {
		avg = float64(g.count) / float64(nonEmpty)
	}

	return GridStats{
		Cells:          len(g.cells),
		NonEmptyCells:  nonEmpty,
		Entries:        g.count,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avg,
	}
}

// GridStats is a point-in-time occupancy report.
type GridStats struct {
	Cells          int     `json:"cells"`
	NonEmptyCells  int     `json:"nonEmptyCells"`
	Entries        int     `json:"entries"`
	MaxInCell      int     `json:"maxInCell"`
	AvgPerNonEmpty float64 `json:"avgPerNonEmpty"`
}

// Dimensions returns the cell count per side and the cell size.
func (g *Grid) Dimensions() (cols int, cellSize float64) {
	return g.cols, g.cellSize
}
