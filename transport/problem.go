// Package transport solves the 1-D linear transport equation
//
//	u_t + a·u_x = f(t, x),  0 <= t <= TMax,  0 <= x <= XMax,
//
// with the explicit cross (leapfrog) scheme on a grid of K time steps and
// M space steps. The first step, which has only one prior layer, uses a
// forward-time central-space step.
//
// Reference computes the full history on a single goroutine. Run and Solve
// split the M+1 spatial points over the workers of a comm world, exchange
// one ghost cell with each neighbour per step over an open chain, and
// gather snapshots of the solution at fixed step intervals on rank 0. Both
// use the same arithmetic for each cell, so their results are bitwise
// identical for any number of workers and threads.
package transport

import (
	"fmt"
	"math"

	"github.com/exascience/stencil"
)

// An InitialCondition selects the initial profile u(0, x).
type InitialCondition int

const (
	// Gaussian is the pulse exp(-100·(x - XMax/2)²).
	Gaussian InitialCondition = iota
	// Sine is sin(2πx).
	Sine
)

func (ic InitialCondition) String() string {
	switch ic {
	case Gaussian:
		return "gaussian"
	case Sine:
		return "sine"
	default:
		return fmt.Sprintf("InitialCondition(%d)", int(ic))
	}
}

// ParseInitialCondition parses "gaussian" or "sine".
func ParseInitialCondition(s string) (InitialCondition, error) {
	switch s {
	case "gaussian", "":
		return Gaussian, nil
	case "sine":
		return Sine, nil
	}
	return 0, fmt.Errorf("%w: unknown initial condition %q", stencil.ErrInvalidConfiguration, s)
}

func (ic InitialCondition) MarshalText() ([]byte, error) {
	return []byte(ic.String()), nil
}

func (ic *InitialCondition) UnmarshalText(text []byte) (err error) {
	*ic, err = ParseInitialCondition(string(text))
	return
}

// A RightBoundary selects how the cell at x = XMax is determined.
type RightBoundary int

const (
	// ZeroGradient copies the value of its left neighbour, u[M] = u[M-1],
	// after the interior cells of a layer are computed. The worker that
	// owns M must also own M-1.
	ZeroGradient RightBoundary = iota
	// BoundaryFunction evaluates ψ at the time of the layer, like the left
	// boundary.
	BoundaryFunction
)

func (rb RightBoundary) String() string {
	switch rb {
	case ZeroGradient:
		return "zero-gradient"
	case BoundaryFunction:
		return "function"
	default:
		return fmt.Sprintf("RightBoundary(%d)", int(rb))
	}
}

// ParseRightBoundary parses "zero-gradient" or "function".
func ParseRightBoundary(s string) (RightBoundary, error) {
	switch s {
	case "zero-gradient", "":
		return ZeroGradient, nil
	case "function":
		return BoundaryFunction, nil
	}
	return 0, fmt.Errorf("%w: unknown right boundary %q", stencil.ErrInvalidConfiguration, s)
}

func (rb RightBoundary) MarshalText() ([]byte, error) {
	return []byte(rb.String()), nil
}

func (rb *RightBoundary) UnmarshalText(text []byte) (err error) {
	*rb, err = ParseRightBoundary(string(text))
	return
}

/*
A Problem defines an instance of the transport equation and its grid.

Phi, Psi and F are optional. A nil Phi selects the profile named by Initial,
and a nil Psi or F is the constant zero.
*/
type Problem struct {
	A    float64 // transport velocity a
	TMax float64
	XMax float64
	K    int // time steps
	M    int // space steps; the grid has M+1 points

	Initial       InitialCondition
	RightBoundary RightBoundary

	Phi stencil.InitialFunc  // u(0, x)
	Psi stencil.BoundaryFunc // u(t, 0)
	F   stencil.SourceFunc   // f(t, x)
}

// DefaultProblem returns a = 1 on [0,1]×[0,1] with K = M = 1000, a gaussian
// pulse, and zero boundary and source terms.
func DefaultProblem() Problem {
	return Problem{A: 1, TMax: 1, XMax: 1, K: 1000, M: 1000}
}

// Validate checks that the grid is non-empty and that the enumerations hold
// known values.
func (p *Problem) Validate() error {
	switch {
	case p.K < 1:
		return fmt.Errorf("%w: %v time steps", stencil.ErrInvalidConfiguration, p.K)
	case p.M < 1:
		return fmt.Errorf("%w: %v space steps", stencil.ErrInvalidConfiguration, p.M)
	case !(p.TMax > 0) || math.IsInf(p.TMax, 0):
		return fmt.Errorf("%w: time interval %v", stencil.ErrInvalidConfiguration, p.TMax)
	case !(p.XMax > 0) || math.IsInf(p.XMax, 0):
		return fmt.Errorf("%w: space interval %v", stencil.ErrInvalidConfiguration, p.XMax)
	case math.IsNaN(p.A) || math.IsInf(p.A, 0):
		return fmt.Errorf("%w: velocity %v", stencil.ErrInvalidConfiguration, p.A)
	}
	if p.Initial != Gaussian && p.Initial != Sine {
		return fmt.Errorf("%w: %v", stencil.ErrInvalidConfiguration, p.Initial)
	}
	if p.RightBoundary != ZeroGradient && p.RightBoundary != BoundaryFunction {
		return fmt.Errorf("%w: %v", stencil.ErrInvalidConfiguration, p.RightBoundary)
	}
	return nil
}

// Points returns the number of spatial grid points, M+1.
func (p *Problem) Points() int { return p.M + 1 }

// Tau returns the time step TMax/K.
func (p *Problem) Tau() float64 { return p.TMax / float64(p.K) }

// H returns the space step XMax/M.
func (p *Problem) H() float64 { return p.XMax / float64(p.M) }

// Courant returns |a|·τ/h.
func (p *Problem) Courant() float64 { return math.Abs(p.A) * p.Tau() / p.H() }

// CheckStability returns a *stencil.StabilityWarning if |a|·τ/h > 1, and
// nil otherwise. The warning never prevents a computation.
func (p *Problem) CheckStability() error {
	if c := p.Courant(); c > 1 {
		return &stencil.StabilityWarning{Courant: c}
	}
	return nil
}

func (p *Problem) initial(x float64) float64 {
	if p.Phi != nil {
		return p.Phi(x)
	}
	switch p.Initial {
	case Sine:
		return math.Sin(2 * math.Pi * x)
	default:
		d := x - p.XMax/2
		return math.Exp(-d * d * 100)
	}
}

func (p *Problem) boundary(t float64) float64 {
	if p.Psi == nil {
		return 0
	}
	return p.Psi(t)
}

func (p *Problem) source(t, x float64) float64 {
	if p.F == nil {
		return 0
	}
	return p.F(t, x)
}
