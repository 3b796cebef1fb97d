// Package halo holds the ghost cells of a worker and exchanges them with the
// worker's logical neighbours.
//
// Two topologies are supported. A Line is the local buffer of a 1-D domain
// split over an open chain of workers: rank 0 has no left neighbour and the
// last rank has no right neighbour, and their outer margins are filled from a
// boundary condition. RowGhosts are the ghost rows of a 2-D domain split into
// row bands over a ring: the first and last bands are neighbours of each
// other, which makes the grid toroidal.
package halo

import (
	"context"
	"fmt"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/comm"
	"github.com/exascience/stencil/partition"
)

// Tags used by the exchanges of this package.
const (
	TagLeftward = iota
	TagRightward
	TagUpward
	TagDownward
)

// A Line is a worker's part of a 1-D grid: the owned cells of Range, plus
// one ghost cell on each side. All accessors take global indices.
type Line struct {
	Range partition.Range
	data  []float64
}

// NewLine returns a zeroed line for the owned range r.
func NewLine(r partition.Range) *Line {
	return &Line{Range: r, data: make([]float64, r.Count+2)}
}

func (l *Line) local(global int) int {
	i := global - l.Range.Start + 1
	if i < 0 || i >= len(l.data) {
		panic(fmt.Sprintf("index %v outside %v and its ghost cells", global, l.Range))
	}
	return i
}

// At returns the value at global index i, which may be an owned index or
// the index of one of the two ghost cells.
func (l *Line) At(i int) float64 {
	return l.data[l.local(i)]
}

// Set stores v at global index i.
func (l *Line) Set(i int, v float64) {
	l.data[l.local(i)] = v
}

// Owned returns the owned cells, without ghost cells. The result aliases
// the line.
func (l *Line) Owned() []float64 {
	return l.data[1 : len(l.data)-1]
}

// Left returns the left ghost cell.
func (l *Line) Left() float64 {
	return l.data[0]
}

// Right returns the right ghost cell.
func (l *Line) Right() float64 {
	return l.data[len(l.data)-1]
}

/*
ExchangeLine fills the ghost cells of l from the neighbours of this rank in an
open chain.

Each rank with a left neighbour sends its first owned value to it and
receives the neighbour's last owned value into its left ghost cell, and
symmetrically for the right neighbour, using one combined send-receive per
side. At the global edges, where there is no neighbour, the ghost cell is
set to edge().

All ranks of c must call ExchangeLine for the same step.
*/
func ExchangeLine(ctx context.Context, c *comm.Comm, l *Line, edge func() float64) error {
	rank, size := c.Rank(), c.Size()
	if l.Range.Count == 0 {
		return fmt.Errorf("%w: rank %d owns no cells", stencil.ErrInvalidConfiguration, rank)
	}
	owned := l.Owned()
	if rank > 0 {
		data, err := c.SendRecv(ctx, owned[0], rank-1, TagLeftward, rank-1, TagRightward)
		if err != nil {
			return err
		}
		v, ok := data.(float64)
		if !ok {
			return fmt.Errorf("%w: rank %d received %T as left ghost", stencil.ErrProtocol, rank, data)
		}
		l.data[0] = v
	} else {
		l.data[0] = edge()
	}
	if rank < size-1 {
		data, err := c.SendRecv(ctx, owned[len(owned)-1], rank+1, TagRightward, rank+1, TagLeftward)
		if err != nil {
			return err
		}
		v, ok := data.(float64)
		if !ok {
			return fmt.Errorf("%w: rank %d received %T as right ghost", stencil.ErrProtocol, rank, data)
		}
		l.data[len(l.data)-1] = v
	} else {
		l.data[len(l.data)-1] = edge()
	}
	return nil
}
