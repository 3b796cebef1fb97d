package transport

import (
	"gonum.org/v1/gonum/mat"

	"github.com/exascience/stencil"
)

// Reference solves p sequentially and returns the full history as a
// (K+1)×(M+1) matrix, where row k holds layer k.
func Reference(p *Problem) (*mat.Dense, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := stencil.CheckCells((p.K+1)*p.Points(), 0); err != nil {
		return nil, err
	}
	s := newScheme(p)
	M := p.M
	u := mat.NewDense(p.K+1, M+1, nil)

	u0 := u.RawRowView(0)
	for m := range u0 {
		u0[m] = s.initial(m)
	}
	u0[0] = s.edge(0)
	u0[M] = s.right(0, u0[M-1])

	u1 := u.RawRowView(1)
	for m := 1; m < M; m++ {
		u1[m] = s.bootstrap(m, u0[m], u0[m-1], u0[m+1])
	}
	u1[0] = s.edge(1)
	u1[M] = s.right(1, u1[M-1])

	for k := 1; k < p.K; k++ {
		prev, curr, next := u.RawRowView(k-1), u.RawRowView(k), u.RawRowView(k+1)
		for m := 1; m < M; m++ {
			next[m] = s.cross(k, m, prev[m], curr[m-1], curr[m+1])
		}
		next[0] = s.edge(k + 1)
		next[M] = s.right(k+1, next[M-1])
	}
	return u, nil
}
