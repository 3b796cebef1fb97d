// Package parallel provides functions that split a worker's part of the
// domain across threads and execute a range function for each part in
// parallel.
//
// The range from low to high is divided into contiguous batches of even size,
// where the last batch absorbs the remainder of the division. Every batch is
// processed in its own goroutine, and the functions return only when all
// batches are done, which makes each call a barrier: no partial update of a
// step can be observed after the call returns.
//
// Range functions share the buffers of the worker without locks. They must
// only write inside their own batch.
package parallel

import (
	"sync"

	"github.com/exascience/stencil"
	"github.com/exascience/stencil/internal"
	"github.com/exascience/stencil/partition"
)

// Range receives a range, a batch count n, and a range function f,
// divides the range into batches, and invokes the range function for
// each of these batches in parallel, covering the half-open interval
// from low to high, including low but excluding high.
//
// The range is specified by a low and high integer, with low <=
// high. The batches are determined by dividing up the size of the
// range (high - low) by n. If n is 0, runtime.GOMAXPROCS(0) batches
// are used. If n exceeds the size of the range, one batch per element
// is used.
//
// The range function is invoked for each batch in its own goroutine,
// with 0 <= low <= high, and Range returns only when all range
// functions have terminated, returning the left-most error value
// that is different from nil.
//
// Range panics if high < low, or if n < 0.
//
// If one or more range function invocations panic, the corresponding
// goroutines recover the panics, and Range eventually panics with
// the left-most recovered panic value.
func Range(low, high, n int, f stencil.RangeFunc) error {
	var recur func([]partition.Range) error
	recur = func(batches []partition.Range) (err error) {
		if len(batches) == 1 {
			return f(batches[0].Start, batches[0].End())
		}
		half := len(batches) / 2
		var err0, err1 error
		var p interface{}
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer func() {
				p = internal.WrapPanic(recover())
				wg.Done()
			}()
			err1 = recur(batches[half:])
		}()
		err0 = recur(batches[:half])
		wg.Wait()
		if p != nil {
			panic(p)
		}
		if err0 != nil {
			err = err0
		} else {
			err = err1
		}
		return
	}
	return recur(internal.Batches(low, high, n))
}

// RangeOr receives a range, a batch count n, and a range predicate
// function f, divides the range into batches like Range, and invokes
// the range predicate for each of these batches in parallel.
//
// RangeOr returns only when all range predicates have terminated,
// combining all return values with the || operator. All predicates are
// always invoked, so they may have side effects, like writing the next
// time layer while reporting whether any cell changed. RangeOr also
// returns the left-most error value that is different from nil as a
// second return value.
//
// RangeOr panics if high < low, or if n < 0.
//
// If one or more range predicate invocations panic, the corresponding
// goroutines recover the panics, and RangeOr eventually panics
// with the left-most recovered panic value.
func RangeOr(low, high, n int, f stencil.RangePredicate) (bool, error) {
	var recur func([]partition.Range) (bool, error)
	recur = func(batches []partition.Range) (result bool, err error) {
		if len(batches) == 1 {
			return f(batches[0].Start, batches[0].End())
		}
		half := len(batches) / 2
		var b0, b1 bool
		var err0, err1 error
		var p interface{}
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer func() {
				p = internal.WrapPanic(recover())
				wg.Done()
			}()
			b1, err1 = recur(batches[half:])
		}()
		b0, err0 = recur(batches[:half])
		wg.Wait()
		if p != nil {
			panic(p)
		}
		result = b0 || b1
		if err0 != nil {
			err = err0
		} else {
			err = err1
		}
		return
	}
	return recur(internal.Batches(low, high, n))
}

// Float64RangeReduce receives a range, a batch count n, a range
// reducer reduce, and a pair reducer pair, divides the range into
// batches like Range, and invokes the range reducer for each of these
// batches in parallel. The results of the range reducer invocations
// are then combined by repeated invocations of the pair reducer, in
// batch order.
//
// Float64RangeReduce returns only when all range reducers and pair
// reducers have terminated.
//
// Float64RangeReduce panics if high < low, or if n < 0.
//
// If one or more reducer invocations panic, the corresponding
// goroutines recover the panics, and Float64RangeReduce eventually
// panics with the left-most recovered panic value.
func Float64RangeReduce(
	low, high, n int,
	reduce func(low, high int) float64,
	pair func(x, y float64) float64,
) float64 {
	var recur func([]partition.Range) float64
	recur = func(batches []partition.Range) float64 {
		if len(batches) == 1 {
			return reduce(batches[0].Start, batches[0].End())
		}
		half := len(batches) / 2
		var right float64
		var p interface{}
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer func() {
				p = internal.WrapPanic(recover())
				wg.Done()
			}()
			right = recur(batches[half:])
		}()
		left := recur(batches[:half])
		wg.Wait()
		if p != nil {
			panic(p)
		}
		return pair(left, right)
	}
	return recur(internal.Batches(low, high, n))
}
