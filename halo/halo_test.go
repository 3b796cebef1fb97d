package halo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/comm"
	"github.com/exascience/stencil/partition"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLineAccessors(t *testing.T) {
	l := NewLine(partition.Range{Start: 5, Count: 3})
	l.Set(4, -1)
	l.Set(5, 1)
	l.Set(7, 3)
	l.Set(8, 4)
	assert.Equal(t, -1.0, l.Left())
	assert.Equal(t, 4.0, l.Right())
	assert.Equal(t, []float64{1, 0, 3}, l.Owned())
	assert.Equal(t, 3.0, l.At(7))
	assert.Panics(t, func() { l.At(3) })
	assert.Panics(t, func() { l.Set(9, 0) })
}

func TestExchangeLine(t *testing.T) {
	const n, edge = 11, -42.0
	for size := 1; size <= 5; size++ {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			layout, err := partition.Split(n, size, partition.RemainderFirst)
			require.NoError(t, err)
			lines := make([]*Line, size)
			err = comm.Run(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
				l := NewLine(layout.Ranges[c.Rank()])
				for i := l.Range.Start; i < l.Range.End(); i++ {
					l.Set(i, float64(i))
				}
				lines[c.Rank()] = l
				return ExchangeLine(ctx, c, l, func() float64 { return edge })
			})
			require.NoError(t, err)
			for r, l := range lines {
				if r == 0 {
					assert.Equal(t, edge, l.Left())
				} else {
					assert.Equal(t, lines[r-1].Owned()[lines[r-1].Range.Count-1], l.Left())
				}
				if r == size-1 {
					assert.Equal(t, edge, l.Right())
				} else {
					assert.Equal(t, lines[r+1].Owned()[0], l.Right())
				}
			}
		})
	}
}

func bandRows(rank, width int) (top, bottom []bool) {
	top = make([]bool, width)
	bottom = make([]bool, width)
	for x := 0; x < width; x++ {
		top[x] = (x+rank)%2 == 0
		bottom[x] = (x+rank)%3 == 0
	}
	return
}

func TestExchangeRowsRing(t *testing.T) {
	const width = 7
	for size := 1; size <= 4; size++ {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			ghosts := make([]RowGhosts, size)
			err := comm.Run(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
				top, bottom := bandRows(c.Rank(), width)
				return ExchangeRows(ctx, c, &ghosts[c.Rank()], top, bottom, nil)
			})
			require.NoError(t, err)
			for r := range ghosts {
				_, upBottom := bandRows((r-1+size)%size, width)
				downTop, _ := bandRows((r+1)%size, width)
				assert.True(t, ghosts[r].Valid())
				assert.Equal(t, upBottom, ghosts[r].Top)
				assert.Equal(t, downTop, ghosts[r].Bottom)
			}
		})
	}
}

func TestExchangeRowsSkipsUnchanged(t *testing.T) {
	const width, size = 5, 3
	ghosts := make([]RowGhosts, size)
	err := comm.Run(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
		g := &ghosts[c.Rank()]
		top, bottom := bandRows(c.Rank(), width)
		if err := ExchangeRows(ctx, c, g, top, bottom, nil); err != nil {
			return err
		}
		before := g.Top
		// The bottom row changes, the top row does not.
		for x := range bottom {
			bottom[x] = !bottom[x]
		}
		if err := ExchangeRows(ctx, c, g, top, bottom, &RowChanges{Top: false, Bottom: true}); err != nil {
			return err
		}
		if &before[0] == &g.Top[0] {
			return fmt.Errorf("rank %d kept a stale top ghost row", c.Rank())
		}
		return nil
	})
	require.NoError(t, err)
	for r := range ghosts {
		_, upBottom := bandRows((r-1+size)%size, width)
		for x := range upBottom {
			upBottom[x] = !upBottom[x]
		}
		downTop, _ := bandRows((r+1)%size, width)
		assert.Equal(t, upBottom, ghosts[r].Top)
		assert.Equal(t, downTop, ghosts[r].Bottom)
	}
}

func TestExchangeRowsRejectsMarkerBeforeFirstRow(t *testing.T) {
	err := comm.Run(context.Background(), 2, func(ctx context.Context, c *comm.Comm) error {
		var g RowGhosts
		top, bottom := bandRows(c.Rank(), 4)
		return ExchangeRows(ctx, c, &g, top, bottom, &RowChanges{})
	})
	assert.ErrorIs(t, err, stencil.ErrProtocol)
}
