package internal

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/exascience/stencil/partition"
)

// ComputeNofBatches divides the size of the range (high - low) into n batches.
// If n is 0, runtime.GOMAXPROCS(0) is used. The result never exceeds the size
// of the range, and is 1 for an empty range.
func ComputeNofBatches(low, high, n int) (batches int) {
	switch size := high - low; {
	case size > 0:
		switch {
		case n == 0:
			batches = runtime.GOMAXPROCS(0)
		case n > 0:
			batches = n
		default:
			panic(fmt.Sprintf("invalid number of batches: %v", n))
		}
		if batches > size {
			batches = size
		}
	case size == 0:
		batches = 1
	default:
		panic(fmt.Sprintf("invalid range: %v:%v", low, high))
	}
	return
}

type runtimeError struct{ error }

func (runtimeError) RuntimeError() {}

// WrapPanic adds stack trace information to a recovered panic.
func WrapPanic(p interface{}) interface{} {
	if p != nil {
		s := fmt.Sprintf("%v\n%s\nrethrown at", p, debug.Stack())
		if _, isError := p.(error); isError {
			r := errors.New(s)
			if _, isRuntimeError := p.(runtime.Error); isRuntimeError {
				return runtimeError{r}
			}
			return r
		}
		return s
	}
	return nil
}

// PanicError converts a recovered panic into an error value that carries
// the stack trace of the panicking goroutine. It returns nil for a nil
// panic value.
func PanicError(p interface{}) error {
	switch w := WrapPanic(p).(type) {
	case nil:
		return nil
	case error:
		return w
	default:
		return fmt.Errorf("panic: %v", w)
	}
}

// Batches divides the range from low to high into ComputeNofBatches(low,
// high, n) contiguous batches of even size, where the last batch absorbs the
// remainder of the division.
func Batches(low, high, n int) []partition.Range {
	ranges := partition.Ranges(high-low, ComputeNofBatches(low, high, n), partition.RemainderLast)
	for i := range ranges {
		ranges[i].Start += low
	}
	return ranges
}
