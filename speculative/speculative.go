/*
Package speculative provides range predicates that execute in parallel,
similar to the functions in package parallel, except that they terminate
early when they can.

RangeAnd and RangeOr return as soon as the final result is known, that is,
as soon as one batch returns false for RangeAnd, or true for RangeOr. This
makes them a good fit for comparisons, like testing whether two grids are
identical, where the first difference decides the answer.

Predicates must therefore be free of side effects that the caller depends
on: when a result is returned early, batches that are still running are not
stopped and their results are ignored. Panics only propagate to the caller
when the panicking batch is still awaited.
*/
package speculative

import (
	"sync"

	"github.com/exascience/stencil/internal"
	"github.com/exascience/stencil/partition"
)

/*
RangeAnd receives a range, a batch count n, and a range predicate
function, divides the range into batches like parallel.Range, and invokes
the range predicate for each of these batches in parallel.

RangeAnd returns true if all predicates return true; or RangeAnd returns
false as soon as the left half of the batches is known to be false,
without waiting for the right half to terminate.

RangeAnd panics if high < low, or if n < 0.
*/
func RangeAnd(low, high, n int, f func(low, high int) bool) bool {
	var recur func([]partition.Range) bool
	recur = func(batches []partition.Range) bool {
		if len(batches) == 1 {
			return f(batches[0].Start, batches[0].End())
		}
		half := len(batches) / 2
		var b1 bool
		var p interface{}
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer func() {
				p = internal.WrapPanic(recover())
				wg.Done()
			}()
			b1 = recur(batches[half:])
		}()
		if !recur(batches[:half]) {
			return false
		}
		wg.Wait()
		if p != nil {
			panic(p)
		}
		return b1
	}
	return recur(internal.Batches(low, high, n))
}

/*
RangeOr receives a range, a batch count n, and a range predicate
function, divides the range into batches like parallel.Range, and invokes
the range predicate for each of these batches in parallel.

RangeOr returns false if all predicates return false; or RangeOr returns
true as soon as the left half of the batches is known to be true, without
waiting for the right half to terminate.

RangeOr panics if high < low, or if n < 0.
*/
func RangeOr(low, high, n int, f func(low, high int) bool) bool {
	var recur func([]partition.Range) bool
	recur = func(batches []partition.Range) bool {
		if len(batches) == 1 {
			return f(batches[0].Start, batches[0].End())
		}
		half := len(batches) / 2
		var b1 bool
		var p interface{}
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer func() {
				p = internal.WrapPanic(recover())
				wg.Done()
			}()
			b1 = recur(batches[half:])
		}()
		if recur(batches[:half]) {
			return true
		}
		wg.Wait()
		if p != nil {
			panic(p)
		}
		return b1
	}
	return recur(internal.Batches(low, high, n))
}
