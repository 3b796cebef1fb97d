package halo

import (
	"context"
	"fmt"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/comm"
)

// RowGhosts are the ghost rows of a row band: Top is a copy of the last row
// of the band above, Bottom a copy of the first row of the band below.
//
// Both are nil until the first exchange wrote them, so that "no ghost yet"
// cannot be confused with a row of dead cells.
type RowGhosts struct {
	Top, Bottom []bool
}

// Valid reports whether both ghost rows have been received at least once.
func (g *RowGhosts) Valid() bool {
	return g.Top != nil && g.Bottom != nil
}

// RowChanges records whether the first and last owned rows of a band
// changed during the previous step.
type RowChanges struct {
	Top, Bottom bool
}

// A rowMessage with a nil Row means that the row did not change since the
// previous exchange.
type rowMessage struct {
	Row []bool
}

func outgoing(row []bool, changed bool) rowMessage {
	if !changed {
		return rowMessage{}
	}
	buf := make([]bool, len(row))
	copy(buf, row)
	return rowMessage{Row: buf}
}

func incoming(rank int, data interface{}, ghost *[]bool, width int, which string) error {
	msg, ok := data.(rowMessage)
	if !ok {
		return fmt.Errorf("%w: rank %d received %T as %s ghost row", stencil.ErrProtocol, rank, data, which)
	}
	if msg.Row == nil {
		if *ghost == nil {
			return fmt.Errorf("%w: rank %d was told its %s ghost row is unchanged before receiving it",
				stencil.ErrProtocol, rank, which)
		}
		return nil
	}
	if len(msg.Row) != width {
		return fmt.Errorf("%w: rank %d received a %s ghost row of %v cells, expected %v",
			stencil.ErrProtocol, rank, which, len(msg.Row), width)
	}
	*ghost = msg.Row
	return nil
}

/*
ExchangeRows fills g from the neighbours of this rank in a ring of row bands,
where rank r's upper neighbour is (r-1+P) mod P and its lower neighbour is
(r+1) mod P. With a single rank, the band is its own neighbour in both
directions.

Each rank sends its top row up and its bottom row down, and receives the
bottom row of the upper neighbour into g.Top and the top row of the lower
neighbour into g.Bottom, using two combined send-receives.

If changes is nil, both rows are sent. Otherwise, a row that changes reports
as unchanged is not sent; an "unchanged" marker is sent in its place and the
receiver keeps its previous ghost row. Pass nil for the first step, when no
receiver holds a ghost row yet. Receiving the marker for a ghost row that was
never written is reported as stencil.ErrProtocol.

All ranks of c must call ExchangeRows for the same step.
*/
func ExchangeRows(ctx context.Context, c *comm.Comm, g *RowGhosts, top, bottom []bool, changes *RowChanges) error {
	rank, size := c.Rank(), c.Size()
	up := (rank - 1 + size) % size
	down := (rank + 1) % size
	sendTop, sendBottom := true, true
	if changes != nil {
		sendTop, sendBottom = changes.Top, changes.Bottom
	}

	data, err := c.SendRecv(ctx, outgoing(top, sendTop), up, TagUpward, down, TagUpward)
	if err != nil {
		return err
	}
	if err := incoming(rank, data, &g.Bottom, len(bottom), "bottom"); err != nil {
		return err
	}

	data, err = c.SendRecv(ctx, outgoing(bottom, sendBottom), down, TagDownward, up, TagDownward)
	if err != nil {
		return err
	}
	return incoming(rank, data, &g.Top, len(top), "top")
}
