// Package partition splits a one-dimensional index range across a number of
// workers or threads.
//
// Each part is a contiguous Range. The ranges of a Layout are pairwise
// disjoint and together cover [0, N) exactly. When N is not divisible by the
// number of parts, a Policy decides who receives the remainder.
package partition

import (
	"fmt"

	"github.com/exascience/stencil"
)

// A Policy decides which parts receive the N % P extra elements of an uneven
// division.
type Policy int

const (
	// RemainderFirst gives one extra element to each of the first N % P
	// parts, in rank order.
	RemainderFirst Policy = iota

	// RemainderLast gives all N % P extra elements to the last part.
	RemainderLast
)

func (p Policy) String() string {
	switch p {
	case RemainderFirst:
		return "first"
	case RemainderLast:
		return "last"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy returns the policy named by s, which is either "first" or
// "last".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "first", "":
		return RemainderFirst, nil
	case "last":
		return RemainderLast, nil
	default:
		return 0, fmt.Errorf("%w: unknown remainder policy %q", stencil.ErrInvalidConfiguration, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) (err error) {
	*p, err = ParsePolicy(string(text))
	return
}

// A Range is the half-open interval [Start, Start+Count).
type Range struct {
	Start, Count int
}

// End returns the first index after the range.
func (r Range) End() int {
	return r.Start + r.Count
}

// Contains reports whether i lies within the range.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.End()
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End())
}

// A Layout is the result of splitting [0, N) into len(Ranges) parts.
type Layout struct {
	N      int
	Policy Policy
	Ranges []Range
}

// Size returns the number of parts.
func (l Layout) Size() int {
	return len(l.Ranges)
}

// Counts returns the number of elements of each part.
func (l Layout) Counts() []int {
	counts := make([]int, len(l.Ranges))
	for i, r := range l.Ranges {
		counts[i] = r.Count
	}
	return counts
}

// Displs returns the offset of each part in a buffer that holds all N
// elements in global order.
func (l Layout) Displs() []int {
	displs := make([]int, len(l.Ranges))
	for i, r := range l.Ranges {
		displs[i] = r.Start
	}
	return displs
}

// Owner returns the part that contains index i, or -1 if i is outside
// [0, N).
func (l Layout) Owner(i int) int {
	if i < 0 || i >= l.N {
		return -1
	}
	lo, hi := 0, len(l.Ranges)
	for lo < hi {
		mid := (lo + hi) / 2
		switch r := l.Ranges[mid]; {
		case i < r.Start:
			hi = mid
		case i >= r.End():
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

/*
Split divides [0, n) into p contiguous parts according to policy.

The base size of each part is n / p. With RemainderFirst, the first n % p
parts receive one extra element; with RemainderLast, the last part receives
all n % p extra elements.

Split returns an error wrapping stencil.ErrInvalidConfiguration if p <= 0,
if n < 0, or if any part would end up empty (p > n). Use Ranges when empty
parts are acceptable.
*/
func Split(n, p int, policy Policy) (Layout, error) {
	if p <= 0 {
		return Layout{}, fmt.Errorf("%w: %v parts", stencil.ErrInvalidConfiguration, p)
	}
	if n < 0 {
		return Layout{}, fmt.Errorf("%w: negative extent %v", stencil.ErrInvalidConfiguration, n)
	}
	if p > n {
		return Layout{}, fmt.Errorf("%w: %v parts for %v elements leaves a part empty",
			stencil.ErrInvalidConfiguration, p, n)
	}
	switch policy {
	case RemainderFirst, RemainderLast:
	default:
		return Layout{}, fmt.Errorf("%w: %v", stencil.ErrInvalidConfiguration, policy)
	}
	return Layout{N: n, Policy: policy, Ranges: Ranges(n, p, policy)}, nil
}

// Ranges divides [0, n) into p contiguous parts like Split, but allows empty
// parts. It panics if p <= 0 or n < 0.
func Ranges(n, p int, policy Policy) []Range {
	if p <= 0 || n < 0 {
		panic(fmt.Sprintf("invalid split of %v elements into %v parts", n, p))
	}
	base, rem := n/p, n%p
	ranges := make([]Range, p)
	start := 0
	for i := range ranges {
		count := base
		switch policy {
		case RemainderFirst:
			if i < rem {
				count++
			}
		case RemainderLast:
			if i == p-1 {
				count += rem
			}
		}
		ranges[i] = Range{Start: start, Count: count}
		start += count
	}
	return ranges
}
