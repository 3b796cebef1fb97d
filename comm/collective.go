package comm

import (
	"context"
	"fmt"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/partition"
)

// All ranks must call the collectives in the same order.

func expect[T any](c *Comm, data interface{}, src int) (T, error) {
	v, ok := data.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: rank %d received %T from rank %d, expected %T",
			stencil.ErrProtocol, c.rank, data, src, zero)
	}
	return v, nil
}

/*
Reduce combines the values of all ranks with op and returns the result on
rank root. The values are combined in rank order, op(op(v0, v1), v2) and so
on, so the result is deterministic even for operations that are not
associative in floating point. Ranks other than root receive the zero value.
*/
func Reduce[T any](ctx context.Context, c *Comm, v T, op func(x, y T) T, root int) (result T, err error) {
	if err = c.checkRank(root); err != nil {
		return
	}
	if c.rank != root {
		err = c.Send(ctx, v, root, tagReduce)
		return
	}
	for src := 0; src < c.world.size; src++ {
		var x T
		if src == root {
			x = v
		} else {
			var data interface{}
			if data, err = c.Recv(ctx, src, tagReduce); err != nil {
				return
			}
			if x, err = expect[T](c, data, src); err != nil {
				return
			}
		}
		if src == 0 {
			result = x
		} else {
			result = op(result, x)
		}
	}
	return
}

// Bcast sends v from rank root to all other ranks, and returns it on every
// rank.
func Bcast[T any](ctx context.Context, c *Comm, v T, root int) (T, error) {
	if err := c.checkRank(root); err != nil {
		return v, err
	}
	if c.rank == root {
		for dst := 0; dst < c.world.size; dst++ {
			if dst == root {
				continue
			}
			if err := c.Send(ctx, v, dst, tagBcast); err != nil {
				return v, err
			}
		}
		return v, nil
	}
	data, err := c.Recv(ctx, root, tagBcast)
	if err != nil {
		var zero T
		return zero, err
	}
	return expect[T](c, data, root)
}

// Allreduce combines the values of all ranks with op, like Reduce, and
// returns the result on every rank.
func Allreduce[T any](ctx context.Context, c *Comm, v T, op func(x, y T) T) (T, error) {
	result, err := Reduce(ctx, c, v, op, 0)
	if err != nil {
		return result, err
	}
	return Bcast(ctx, c, result, 0)
}

// AllreduceAnd returns the logical AND of v over all ranks, on every rank.
func (c *Comm) AllreduceAnd(ctx context.Context, v bool) (bool, error) {
	return Allreduce(ctx, c, v, func(x, y bool) bool { return x && y })
}

// Barrier blocks until all ranks have called it.
func (c *Comm) Barrier(ctx context.Context) error {
	_, err := c.AllreduceAnd(ctx, true)
	return err
}

/*
Gatherv collects the local slices of all ranks into one slice of length
layout.N on rank root, placing the slice of rank r at offset
layout.Ranges[r].Start. The local slice of rank r must have exactly
layout.Ranges[r].Count elements, so ranks may contribute different lengths.
Ranks other than root receive nil.

Local slices are copied before they are sent, so callers may keep using
them.
*/
func Gatherv[T any](ctx context.Context, c *Comm, local []T, layout partition.Layout, root int) ([]T, error) {
	if err := c.checkRank(root); err != nil {
		return nil, err
	}
	if layout.Size() != c.world.size {
		return nil, fmt.Errorf("%w: layout of %v parts in a world of %v",
			stencil.ErrInvalidConfiguration, layout.Size(), c.world.size)
	}
	if n := layout.Ranges[c.rank].Count; len(local) != n {
		return nil, fmt.Errorf("%w: rank %d contributes %v elements, layout expects %v",
			stencil.ErrProtocol, c.rank, len(local), n)
	}
	if c.rank != root {
		buf := make([]T, len(local))
		copy(buf, local)
		return nil, c.Send(ctx, buf, root, tagGather)
	}
	global := make([]T, layout.N)
	for src, r := range layout.Ranges {
		if src == root {
			copy(global[r.Start:r.End()], local)
			continue
		}
		data, err := c.Recv(ctx, src, tagGather)
		if err != nil {
			return nil, err
		}
		part, err := expect[[]T](c, data, src)
		if err != nil {
			return nil, err
		}
		if len(part) != r.Count {
			return nil, fmt.Errorf("%w: rank %d sent %v elements, layout expects %v",
				stencil.ErrProtocol, src, len(part), r.Count)
		}
		copy(global[r.Start:r.End()], part)
	}
	return global, nil
}

/*
Scatterv distributes global, which is only read on rank root and must have
layout.N elements there, so that every rank r receives a copy of
global[layout.Ranges[r].Start:layout.Ranges[r].End()].
*/
func Scatterv[T any](ctx context.Context, c *Comm, global []T, layout partition.Layout, root int) ([]T, error) {
	if err := c.checkRank(root); err != nil {
		return nil, err
	}
	if layout.Size() != c.world.size {
		return nil, fmt.Errorf("%w: layout of %v parts in a world of %v",
			stencil.ErrInvalidConfiguration, layout.Size(), c.world.size)
	}
	own := layout.Ranges[c.rank]
	if c.rank == root {
		if len(global) != layout.N {
			return nil, fmt.Errorf("%w: scatter of %v elements, layout expects %v",
				stencil.ErrInvalidConfiguration, len(global), layout.N)
		}
		for dst, r := range layout.Ranges {
			if dst == root {
				continue
			}
			part := make([]T, r.Count)
			copy(part, global[r.Start:r.End()])
			if err := c.Send(ctx, part, dst, tagScatter); err != nil {
				return nil, err
			}
		}
		local := make([]T, own.Count)
		copy(local, global[own.Start:own.End()])
		return local, nil
	}
	data, err := c.Recv(ctx, root, tagScatter)
	if err != nil {
		return nil, err
	}
	local, err := expect[[]T](c, data, root)
	if err != nil {
		return nil, err
	}
	if len(local) != own.Count {
		return nil, fmt.Errorf("%w: rank %d received %v elements, layout expects %v",
			stencil.ErrProtocol, c.rank, len(local), own.Count)
	}
	return local, nil
}
