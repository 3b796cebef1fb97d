package transport

// A scheme holds the coefficients of a problem. The sequential and the
// distributed solvers evaluate every cell through the same methods, which
// keeps their results bitwise identical.
type scheme struct {
	p   *Problem
	c   float64 // a·τ/h, signed
	tau float64
	h   float64
}

func newScheme(p *Problem) scheme {
	tau, h := p.Tau(), p.H()
	return scheme{p: p, c: p.A * tau / h, tau: tau, h: h}
}

func (s scheme) x(m int) float64 { return float64(m) * s.h }

func (s scheme) t(k int) float64 { return float64(k) * s.tau }

func (s scheme) initial(m int) float64 { return s.p.initial(s.x(m)) }

// edge is ψ at layer k.
func (s scheme) edge(k int) float64 { return s.p.boundary(s.t(k)) }

// bootstrap computes cell m of layer 1 from layer 0.
func (s scheme) bootstrap(m int, curr, left, right float64) float64 {
	return curr - s.c/2*(right-left) + s.tau*s.p.source(0, s.x(m))
}

// cross computes cell m of layer k+1 from layers k-1 and k.
func (s scheme) cross(k, m int, prev, left, right float64) float64 {
	return prev - s.c*(right-left) + 2*s.tau*s.p.source(s.t(k), s.x(m))
}

// right returns the value of cell M of layer k, given the value of cell
// M-1 of the same layer.
func (s scheme) right(k int, inner float64) float64 {
	if s.p.RightBoundary == ZeroGradient {
		return inner
	}
	return s.edge(k)
}

// interior returns the part of [low, high) that the stencil computes.
// Cells 0 and M are boundary cells.
func (s scheme) interior(low, high int) (int, int) {
	return max(low, 1), min(high, s.p.M)
}
