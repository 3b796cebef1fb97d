package stencil

import (
	"errors"
	"fmt"
	"runtime"
)

type (
	// A RangeFunc is a function that receives a range from low to high,
	// with 0 <= low <= high, and returns an error value or nil.
	RangeFunc func(low, high int) error

	// A RangePredicate is a function that receives a range from low to
	// high, with 0 <= low <= high, and returns a bool, and an error value
	// or nil.
	RangePredicate func(low, high int) (bool, error)

	// A BoundaryFunc evaluates a boundary condition at time t.
	BoundaryFunc func(t float64) float64

	// A SourceFunc evaluates a source term at time t and position x.
	SourceFunc func(t, x float64) float64

	// An InitialFunc evaluates an initial condition at position x.
	InitialFunc func(x float64) float64
)

// Errors returned by the packages of this module. They are wrapped with
// additional context, so test for them with errors.Is.
var (
	// ErrInvalidConfiguration reports malformed or missing parameters.
	// Nothing has been computed when it is returned.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrResourceExhaustion reports a buffer request that exceeds the
	// configured cell budget.
	ErrResourceExhaustion = errors.New("resource exhaustion")

	// ErrIO reports that an output file could not be opened or written.
	ErrIO = errors.New("i/o failure")

	// ErrAborted is returned by blocking communication calls when another
	// worker failed, or when the computation was canceled.
	ErrAborted = errors.New("computation aborted")

	// ErrProtocol reports that a peer violated the ghost exchange contract.
	ErrProtocol = errors.New("protocol violation")
)

// A StabilityWarning reports that the CFL-type condition |a|·τ/h <= 1 of an
// explicit scheme is violated. It is advisory only: the computation proceeds,
// but its results may be numerically meaningless.
type StabilityWarning struct {
	Courant float64
}

func (w *StabilityWarning) Error() string {
	return fmt.Sprintf("stability condition not satisfied (|a|*tau/h = %f)", w.Courant)
}

// DefaultMaxCells is the default upper bound on the number of cells a single
// buffer request may ask for.
const DefaultMaxCells = 1 << 28

/*
CheckCells returns ErrResourceExhaustion if a buffer of n cells exceeds
maxCells, or if n overflowed. A maxCells value <= 0 selects DefaultMaxCells.
*/
func CheckCells(n, maxCells int) error {
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}
	if n < 0 || n > maxCells {
		return fmt.Errorf("%w: %v cells requested, limit is %v", ErrResourceExhaustion, n, maxCells)
	}
	return nil
}

/*
EffectiveThreads determines the number of threads a worker uses for its
own part of the domain.

A threads value > 0 is returned as is. A value of 0 selects
runtime.GOMAXPROCS(0). Negative values are invalid and cause a panic.
*/
func EffectiveThreads(threads int) int {
	switch {
	case threads > 0:
		return threads
	case threads == 0:
		return runtime.GOMAXPROCS(0)
	default:
		panic(fmt.Sprintf("invalid number of threads: %v", threads))
	}
}
