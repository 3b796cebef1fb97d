/*
Package comm provides an in-process message-passing world for workers that
do not share memory.

A computation starts with Run, which creates a world of size workers, each
identified by a unique rank with 0 <= rank < size, and invokes the same body
function for every rank in its own goroutine. Workers communicate only
through the Comm passed to their body: point-to-point Send and Recv, the
combined SendRecv, the non-blocking Isend and Irecv, and the collectives
Barrier, Reduce, Allreduce, Bcast, Gatherv, and Scatterv.

All blocking calls block until the data has been handed over or received.
Messages between a pair of ranks with the same tag are never reordered.
Payloads are handed over by reference: once a value has been sent, the
sender must not modify it anymore. Callers that keep using a buffer send a
copy of it.

The model is fatal, not partial: when the body of any rank returns an error
or panics, the world is aborted, every blocked communication call in the
other ranks returns an error wrapping stencil.ErrAborted, and Run returns the
first error.
*/
package comm

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/internal"
	"github.com/exascience/stencil/sync"
)

// LinkCapacity is the number of messages that can be in flight on a single
// (source, destination, tag) link before Send blocks.
const LinkCapacity = 16

// Tags below zero are reserved for collectives.
const (
	tagReduce = -1 - iota
	tagBcast
	tagGather
	tagScatter
)

type linkKey struct {
	src, dst, tag int
}

// Hash mixes the three fields with FNV-1a.
func (k linkKey) Hash() uint64 {
	h := uint64(14695981039346656037)
	for _, v := range [3]int{k.src, k.dst, k.tag} {
		h ^= uint64(v)
		h *= 1099511628211
	}
	return h
}

type world struct {
	size  int
	done  <-chan struct{}
	links *sync.Map[linkKey, chan interface{}]
}

func (w *world) link(src, dst, tag int) chan interface{} {
	ch, _ := w.links.LoadOrCompute(linkKey{src, dst, tag}, func() chan interface{} {
		return make(chan interface{}, LinkCapacity)
	})
	return ch
}

// A Comm is a single rank's view of the world.
//
// A Comm may be used concurrently by the goroutines of its rank, for example
// by the goroutines serving Isend and Irecv requests.
type Comm struct {
	world *world
	rank  int
}

// Rank returns the rank of this worker, 0 <= Rank() < Size().
func (c *Comm) Rank() int {
	return c.rank
}

// Size returns the number of workers in the world.
func (c *Comm) Size() int {
	return c.world.size
}

/*
Run creates a world of size workers and executes body once for each rank, in
its own goroutine. Run returns when all bodies have returned.

The context passed to each body is canceled as soon as one body fails, and
every communication call that is blocked at that point, or issued later,
fails with an error wrapping stencil.ErrAborted. Run returns the first
non-nil error returned by any body. A panic in a body is recovered and
reported as that rank's error, including the stack trace.

Run returns an error wrapping stencil.ErrInvalidConfiguration if size <= 0.
*/
func Run(ctx context.Context, size int, body func(ctx context.Context, c *Comm) error) error {
	if size <= 0 {
		return fmt.Errorf("%w: world of %v workers", stencil.ErrInvalidConfiguration, size)
	}
	g, gctx := errgroup.WithContext(ctx)
	w := &world{
		size:  size,
		done:  gctx.Done(),
		links: sync.NewMap[linkKey, chan interface{}](size),
	}
	for rank := 0; rank < size; rank++ {
		c := &Comm{world: w, rank: rank}
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("rank %d: %w", c.rank, internal.PanicError(p))
				}
			}()
			return body(gctx, c)
		})
	}
	return g.Wait()
}

func (c *Comm) checkRank(peer int) error {
	if peer < 0 || peer >= c.world.size {
		return fmt.Errorf("%w: rank %d addressed nonexistent rank %d", stencil.ErrInvalidConfiguration, c.rank, peer)
	}
	return nil
}

// alive fails fast when the world is already aborted, so that a ready link
// cannot win the select against a canceled context.
func (c *Comm) alive(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return c.aborted(ctx)
	case <-c.world.done:
		return c.aborted(ctx)
	default:
		return nil
	}
}

func (c *Comm) aborted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: rank %d: %v", stencil.ErrAborted, c.rank, err)
	}
	return fmt.Errorf("%w: rank %d: a peer failed", stencil.ErrAborted, c.rank)
}

/*
Send transmits data to rank dst with the given tag. Send returns once the
message has been handed over to the link, which may be before it has been
received.
*/
func (c *Comm) Send(ctx context.Context, data interface{}, dst, tag int) error {
	if err := c.checkRank(dst); err != nil {
		return err
	}
	if err := c.alive(ctx); err != nil {
		return err
	}
	select {
	case c.world.link(c.rank, dst, tag) <- data:
		return nil
	case <-ctx.Done():
		return c.aborted(ctx)
	case <-c.world.done:
		return c.aborted(ctx)
	}
}

// Recv blocks until a message with the given tag from rank src arrives, and
// returns its payload.
func (c *Comm) Recv(ctx context.Context, src, tag int) (interface{}, error) {
	if err := c.checkRank(src); err != nil {
		return nil, err
	}
	if err := c.alive(ctx); err != nil {
		return nil, err
	}
	select {
	case data := <-c.world.link(src, c.rank, tag):
		return data, nil
	case <-ctx.Done():
		return nil, c.aborted(ctx)
	case <-c.world.done:
		return nil, c.aborted(ctx)
	}
}

/*
SendRecv sends data to rank dst with sendTag and receives a message from
rank src with recvTag as a single combined operation. The send is posted
before the receive starts and completes independently of it, so a ring of
SendRecv calls never deadlocks, whatever its size. A rank may exchange with
itself.

SendRecv returns the received payload, and the receive error if any, else
the send error.
*/
func (c *Comm) SendRecv(ctx context.Context, data interface{}, dst, sendTag, src, recvTag int) (interface{}, error) {
	send := c.Isend(ctx, data, dst, sendTag)
	received, rerr := c.Recv(ctx, src, recvTag)
	_, serr := send.Wait()
	if rerr != nil {
		return nil, rerr
	}
	if serr != nil {
		return nil, serr
	}
	return received, nil
}

// A Request represents a pending non-blocking send or receive.
type Request struct {
	done chan struct{}
	data interface{}
	err  error
}

// Wait blocks until the request has completed. For a receive request, it
// returns the received payload.
//
// A send buffer must not be reused before Wait has returned for its request,
// and a receive payload must not be read before that.
func (r *Request) Wait() (interface{}, error) {
	<-r.done
	return r.data, r.err
}

// Isend starts a Send in the background and returns a request for it.
func (c *Comm) Isend(ctx context.Context, data interface{}, dst, tag int) *Request {
	r := &Request{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.err = c.Send(ctx, data, dst, tag)
	}()
	return r
}

// Irecv starts a Recv in the background and returns a request for it.
func (c *Comm) Irecv(ctx context.Context, src, tag int) *Request {
	r := &Request{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.data, r.err = c.Recv(ctx, src, tag)
	}()
	return r
}

// WaitAll waits for all requests and returns the left-most error value that
// is different from nil.
func WaitAll(requests ...*Request) (err error) {
	for _, r := range requests {
		if r == nil {
			continue
		}
		if _, rerr := r.Wait(); err == nil {
			err = rerr
		}
	}
	return
}
