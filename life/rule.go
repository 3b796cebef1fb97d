package life

import (
	"slices"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/parallel"
	"github.com/exascience/stencil/sequential"
	"github.com/exascience/stencil/speculative"
)

// Rule returns whether a cell is alive in the next generation, given
// whether it is alive now and its number of live neighbours.
func Rule(alive bool, neighbours int) bool {
	return neighbours == 3 || alive && neighbours == 2
}

// count returns the number of live neighbours of column x of row, where
// above and below are the adjacent rows. Columns wrap around.
func count(above, row, below []bool, x int) (n int) {
	w := len(row)
	l, r := (x-1+w)%w, (x+1)%w
	for _, line := range [3][]bool{above, row, below} {
		if line[l] {
			n++
		}
		if line[r] {
			n++
		}
	}
	if above[x] {
		n++
	}
	if below[x] {
		n++
	}
	return
}

// CountNeighbors returns the number of live cells among the eight toroidal
// neighbours of column x and row y.
func CountNeighbors(g Grid, x, y int) int {
	return count(g.Row(y-1), g.Row(y), g.Row(y+1), wrap(x, g.Width))
}

// stepRow computes the next generation of row into next and reports whether
// any cell changed.
func stepRow(next, above, row, below []bool) (changed bool) {
	for x, alive := range row {
		v := Rule(alive, count(above, row, below, x))
		next[x] = v
		changed = changed || v != alive
	}
	return
}

func rangeOr(threads int) func(low, high, n int, f stencil.RangePredicate) (bool, error) {
	if threads == 1 {
		return sequential.RangeOr
	}
	return parallel.RangeOr
}

/*
Step computes the generation after src into dst, splitting the rows over
threads, where 0 selects runtime.GOMAXPROCS(0). It reports whether any cell
changed. dst and src must have the same dimensions and must not share
cells.
*/
func Step(dst, src Grid, threads int) bool {
	changed, _ := rangeOr(threads)(0, src.Height, threads, func(low, high int) (bool, error) {
		changed := false
		for y := low; y < high; y++ {
			if stepRow(dst.Row(y), src.Row(y-1), src.Row(y), src.Row(y+1)) {
				changed = true
			}
		}
		return changed, nil
	})
	return changed
}

/*
Simulate advances a copy of g by up to steps generations and returns the
final grid and the number of generations computed. If detectStable is
true, Simulate stops after the first generation that equals its
predecessor, and reports stable as true.
*/
func Simulate(g Grid, steps, threads int, detectStable bool) (final Grid, computed int, stable bool) {
	curr, next := g.Clone(), g.Clone()
	for computed < steps {
		changed := Step(next, curr, threads)
		computed++
		curr, next = next, curr
		if detectStable && !changed {
			return curr, computed, true
		}
	}
	return curr, computed, false
}

// IsStable reports whether a and b have the same dimensions and cells. It
// compares rows in parallel and returns as soon as a difference is found.
func IsStable(a, b Grid) bool {
	if a.Width != b.Width || a.Height != b.Height {
		return false
	}
	return speculative.RangeAnd(0, a.Height, 0, func(low, high int) bool {
		for y := low; y < high; y++ {
			if !slices.Equal(a.Row(y), b.Row(y)) {
				return false
			}
		}
		return true
	})
}
