// Package sequential provides sequential implementations of the
// functions provided by the parallel package.
//
// The range is divided into exactly the same batches as in package parallel,
// but the batches are processed one after the other in the calling
// goroutine. Solvers use this package for workers that run with a single
// thread, and tests use it as a reference for the parallel versions.
package sequential

import (
	"github.com/exascience/stencil"
	"github.com/exascience/stencil/internal"
)

// Range receives a range, a batch count n, and a range function f,
// divides the range into batches, and invokes the range function for
// each of these batches sequentially, covering the half-open interval
// from low to high, including low but excluding high.
//
// The batches are determined as in parallel.Range.
//
// Range returns the left-most error value that is different from
// nil. All batches are processed even if an earlier one fails.
//
// Range panics if high < low, or if n < 0.
func Range(low, high, n int, f stencil.RangeFunc) (err error) {
	for _, batch := range internal.Batches(low, high, n) {
		if nerr := f(batch.Start, batch.End()); err == nil {
			err = nerr
		}
	}
	return
}

// RangeOr receives a range, a batch count n, and a range predicate
// function f, divides the range into batches, and invokes the range
// predicate for each of these batches sequentially, combining all
// return values with the || operator. All predicates are invoked.
// RangeOr also returns the left-most error value that is different
// from nil as a second return value.
//
// RangeOr panics if high < low, or if n < 0.
func RangeOr(low, high, n int, f stencil.RangePredicate) (result bool, err error) {
	for _, batch := range internal.Batches(low, high, n) {
		res, nerr := f(batch.Start, batch.End())
		result = result || res
		if err == nil {
			err = nerr
		}
	}
	return
}

// Float64RangeReduce receives a range, a batch count n, a range
// reducer reduce, and a pair reducer pair, divides the range into
// batches, and invokes the range reducer for each of these batches
// sequentially. The results of the range reducer invocations are
// combined with the pair reducer in batch order.
//
// Float64RangeReduce panics if high < low, or if n < 0.
func Float64RangeReduce(
	low, high, n int,
	reduce func(low, high int) float64,
	pair func(x, y float64) float64,
) (result float64) {
	for i, batch := range internal.Batches(low, high, n) {
		if x := reduce(batch.Start, batch.End()); i == 0 {
			result = x
		} else {
			result = pair(result, x)
		}
	}
	return
}
