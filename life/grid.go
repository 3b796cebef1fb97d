// Package life simulates Conway's Game of Life on a toroidal grid.
//
// Every cell has eight neighbours, wrapping around both edges of the grid.
// A dead cell with exactly three live neighbours is born, a live cell with
// two or three live neighbours survives, and every other cell is dead in the
// next generation.
//
// Step and Simulate compute generations on a single worker. Run and Solve
// split the rows of the grid into bands over the workers of a comm world,
// which form a ring: the first and the last band are neighbours.
package life

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/exascience/stencil"
)

// A Grid is a Width×Height array of cells in row-major order.
type Grid struct {
	Width, Height int
	Cells         []bool
}

// NewGrid returns a grid of dead cells. It returns an error wrapping
// stencil.ErrInvalidConfiguration if a dimension is not positive, or
// stencil.ErrResourceExhaustion if the grid exceeds maxCells, where 0 selects
// stencil.DefaultMaxCells.
func NewGrid(width, height, maxCells int) (Grid, error) {
	if width < 1 || height < 1 {
		return Grid{}, fmt.Errorf("%w: grid of %v×%v cells", stencil.ErrInvalidConfiguration, width, height)
	}
	if height > math.MaxInt/width {
		return Grid{}, fmt.Errorf("%w: grid of %v×%v cells", stencil.ErrResourceExhaustion, width, height)
	}
	if err := stencil.CheckCells(width*height, maxCells); err != nil {
		return Grid{}, err
	}
	return Grid{Width: width, Height: height, Cells: make([]bool, width*height)}, nil
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

// At returns the cell at column x and row y. Coordinates wrap around.
func (g Grid) At(x, y int) bool {
	return g.Cells[wrap(y, g.Height)*g.Width+wrap(x, g.Width)]
}

// Set stores alive at column x and row y. Coordinates wrap around.
func (g Grid) Set(x, y int, alive bool) {
	g.Cells[wrap(y, g.Height)*g.Width+wrap(x, g.Width)] = alive
}

// Row returns row y, which wraps around. The result aliases the grid.
func (g Grid) Row(y int) []bool {
	y = wrap(y, g.Height)
	return g.Cells[y*g.Width : (y+1)*g.Width]
}

// Clone returns a deep copy of g.
func (g Grid) Clone() Grid {
	cells := make([]bool, len(g.Cells))
	copy(cells, g.Cells)
	return Grid{Width: g.Width, Height: g.Height, Cells: cells}
}

// Alive returns the number of live cells.
func (g Grid) Alive() (n int) {
	for _, c := range g.Cells {
		if c {
			n++
		}
	}
	return
}

// String renders the grid with one line per row, # for live and . for
// dead cells.
func (g Grid) String() string {
	var b strings.Builder
	b.Grow((g.Width + 1) * g.Height)
	for y := 0; y < g.Height; y++ {
		for _, c := range g.Row(y) {
			if c {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Render writes one frame of a demo run: a header line with the generation
// and the alive count, followed by the rendered grid.
func Render(w io.Writer, g Grid, generation int) error {
	if _, err := fmt.Fprintf(w, "generation %d, alive %d\n%s", generation, g.Alive(), g); err != nil {
		return fmt.Errorf("%w: %w", stencil.ErrIO, err)
	}
	return nil
}
