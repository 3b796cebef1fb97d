package life

import (
	"fmt"
	"math/rand/v2"

	"github.com/exascience/stencil"
)

// A Pattern selects the initial population of a grid.
type Pattern int

const (
	// Random makes about a quarter of the cells alive.
	Random Pattern = iota
	// Glider places a glider in the top left corner.
	Glider
	// Blinker places a horizontal blinker in the centre.
	Blinker
	// Gun places Gosper's glider gun, which needs a grid of at least 40×20.
	Gun
)

var patternNames = [...]string{"random", "glider", "blinker", "gun"}

func (p Pattern) String() string {
	if p >= 0 && int(p) < len(patternNames) {
		return patternNames[p]
	}
	return fmt.Sprintf("Pattern(%d)", int(p))
}

// ParsePattern parses a pattern name.
func ParsePattern(s string) (Pattern, error) {
	if s == "" {
		return Random, nil
	}
	for i, name := range patternNames {
		if s == name {
			return Pattern(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown pattern %q", stencil.ErrInvalidConfiguration, s)
}

func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pattern) UnmarshalText(text []byte) (err error) {
	*p, err = ParsePattern(string(text))
	return
}

type cell struct{ x, y int }

var (
	glider  = []cell{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}
	blinker = []cell{{-1, 0}, {0, 0}, {1, 0}}
	gun     = []cell{
		{1, 5}, {2, 5}, {1, 6}, {2, 6},
		{35, 3}, {36, 3}, {35, 4}, {36, 4},
		{11, 5}, {11, 6}, {11, 7}, {12, 4}, {12, 8}, {13, 3}, {13, 9}, {14, 3}, {14, 9},
		{15, 6}, {16, 4}, {16, 8}, {17, 5}, {17, 6}, {17, 7}, {18, 6},
		{21, 3}, {21, 4}, {21, 5}, {22, 3}, {22, 4}, {22, 5}, {23, 2}, {23, 6},
		{25, 1}, {25, 2}, {25, 6}, {25, 7},
	}
)

// Fits returns an error wrapping stencil.ErrInvalidConfiguration if a grid
// of width×height cells is too small for p: 3×3 for Glider and Blinker,
// 40×20 for Gun.
func (p Pattern) Fits(width, height int) error {
	minWidth, minHeight := 1, 1
	switch p {
	case Random:
	case Glider, Blinker:
		minWidth, minHeight = 3, 3
	case Gun:
		minWidth, minHeight = 40, 20
	default:
		return fmt.Errorf("%w: %v", stencil.ErrInvalidConfiguration, p)
	}
	if width < minWidth || height < minHeight {
		return fmt.Errorf("%w: %v needs a grid of at least %v×%v, got %v×%v",
			stencil.ErrInvalidConfiguration, p, minWidth, minHeight, width, height)
	}
	return nil
}

// Fill kills all cells of g and then populates it with p. Random uses a
// generator seeded with seed, so equal seeds give equal grids. Fill fails
// if p does not fit g.
func (p Pattern) Fill(g Grid, seed uint64) error {
	if err := p.Fits(g.Width, g.Height); err != nil {
		return err
	}
	clear(g.Cells)
	place := func(cells []cell, dx, dy int) {
		for _, c := range cells {
			g.Set(c.x+dx, c.y+dy, true)
		}
	}
	switch p {
	case Random:
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		for i := range g.Cells {
			g.Cells[i] = rng.IntN(4) == 0
		}
	case Glider:
		place(glider, 0, 0)
	case Blinker:
		place(blinker, g.Width/2, g.Height/2)
	case Gun:
		place(gun, 0, 0)
	}
	return nil
}
