// Package layers rotates the time layers of an explicit scheme without
// copying them.
//
// A Ring owns a fixed arena of two or three buffers. Rotating advances an
// index modulo the number of buffers, so that the current layer becomes the
// previous one, the next layer becomes the current one, and the oldest
// buffer is reused as the target of the next step.
package layers

import "fmt"

// A Ring holds two or three time layers of type T.
//
// With three layers, the slots are Previous, Current and Next. With two
// layers, only Current and Next are available.
//
// The zero Ring is not valid.
type Ring[T any] struct {
	buffers []T
	head    int
	steps   int
}

// New returns a ring over the given buffers, which must be two or three.
// The first buffer is the oldest slot.
func New[T any](buffers ...T) *Ring[T] {
	if n := len(buffers); n < 2 || n > 3 {
		panic(fmt.Sprintf("invalid number of time layers: %v", n))
	}
	return &Ring[T]{buffers: buffers}
}

// Make returns a ring of n buffers, each allocated by alloc.
func Make[T any](n int, alloc func() T) *Ring[T] {
	buffers := make([]T, n)
	for i := range buffers {
		buffers[i] = alloc()
	}
	return New(buffers...)
}

// Len returns the number of buffers in the ring.
func (r *Ring[T]) Len() int {
	return len(r.buffers)
}

// Identity returns the index in the arena of the buffer at slot, where slot
// 0 is the oldest layer and Len()-1 is Next.
func (r *Ring[T]) Identity(slot int) int {
	if slot < 0 || slot >= len(r.buffers) {
		panic(fmt.Sprintf("invalid time layer slot: %v", slot))
	}
	return (r.head + slot) % len(r.buffers)
}

func (r *Ring[T]) slot(slot int) T {
	return r.buffers[r.Identity(slot)]
}

// Next returns the layer that the next step writes to.
func (r *Ring[T]) Next() T {
	return r.slot(len(r.buffers) - 1)
}

// Current returns the most recent finalized layer.
func (r *Ring[T]) Current() T {
	return r.slot(len(r.buffers) - 2)
}

// Previous returns the layer before Current. It panics for a ring of two
// layers.
func (r *Ring[T]) Previous() T {
	if len(r.buffers) < 3 {
		panic("previous time layer requested from a ring of two layers")
	}
	return r.slot(0)
}

// Rotate relabels the layers after a step: Current becomes Previous, Next
// becomes Current, and the oldest buffer becomes Next.
func (r *Ring[T]) Rotate() {
	r.head = (r.head + 1) % len(r.buffers)
	r.steps++
}

// Steps returns how often the ring has been rotated.
func (r *Ring[T]) Steps() int {
	return r.steps
}
