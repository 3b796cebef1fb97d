// Package stencil provides building blocks for explicit time-stepping stencil
// computations on a domain that is decomposed across several workers. Workers
// do not share memory: all data they need from each other is moved explicitly
// by message passing, and each worker may further split its own part of the
// domain across goroutines.
//
// Stencil provides the following subpackages:
//
// stencil/partition splits an index range across workers or threads, with the
// remainder of an uneven division going either to the first or to the last
// ranks.
//
// stencil/comm provides an in-process message-passing world: ranks,
// point-to-point and combined send-receive, non-blocking requests, and the
// collectives needed by the solvers (barrier, reductions, broadcast, variable
// gather and scatter). The first worker that fails aborts all others.
//
// stencil/halo holds ghost cells and implements the ghost-cell exchange over
// an open chain (1-D) or a ring of row bands (2-D), including a variant that
// skips rows that provably did not change.
//
// stencil/layers rotates two or three time layers without copying data.
//
// stencil/parallel, stencil/sequential and stencil/speculative execute range
// functions over a worker's rows, in parallel, sequentially, or in parallel
// with early termination.
//
// stencil/transport solves the linear transport equation with the cross
// (leapfrog) scheme, and stencil/life runs Conway's Game of Life on a torus.
package stencil
