package partition

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/stencil"
)

func checkCoverage(t *testing.T, l Layout) {
	t.Helper()
	sum, next := 0, 0
	for i, r := range l.Ranges {
		assert.Equalf(t, next, r.Start, "part %v does not start where part %v ends", i, i-1)
		sum += r.Count
		next = r.End()
	}
	assert.Equal(t, l.N, sum)
	assert.Equal(t, l.N, next)
}

func TestSplitCoversRange(t *testing.T) {
	for _, policy := range []Policy{RemainderFirst, RemainderLast} {
		for n := 1; n <= 40; n++ {
			for p := 1; p <= n; p++ {
				t.Run(fmt.Sprintf("%v/%v/%v", policy, n, p), func(t *testing.T) {
					l, err := Split(n, p, policy)
					require.NoError(t, err)
					require.Len(t, l.Ranges, p)
					checkCoverage(t, l)
					for i := 0; i < n; i++ {
						owner := l.Owner(i)
						require.GreaterOrEqual(t, owner, 0)
						assert.True(t, l.Ranges[owner].Contains(i))
					}
				})
			}
		}
	}
}

func TestSplitRemainderPolicies(t *testing.T) {
	first, err := Split(9, 4, RemainderFirst)
	require.NoError(t, err)
	if diff := cmp.Diff([]int{3, 2, 2, 2}, first.Counts()); diff != "" {
		t.Errorf("RemainderFirst counts (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 3, 5, 7}, first.Displs()); diff != "" {
		t.Errorf("RemainderFirst displs (-want +got):\n%s", diff)
	}

	last, err := Split(9, 4, RemainderLast)
	require.NoError(t, err)
	if diff := cmp.Diff([]int{2, 2, 2, 3}, last.Counts()); diff != "" {
		t.Errorf("RemainderLast counts (-want +got):\n%s", diff)
	}

	last, err = Split(11, 4, RemainderLast)
	require.NoError(t, err)
	if diff := cmp.Diff([]int{2, 2, 2, 5}, last.Counts()); diff != "" {
		t.Errorf("RemainderLast counts (-want +got):\n%s", diff)
	}
}

func TestSplitInvalid(t *testing.T) {
	for _, c := range []struct{ n, p int }{{3, 4}, {5, 0}, {-1, 2}, {0, 1}} {
		_, err := Split(c.n, c.p, RemainderFirst)
		assert.Truef(t, errors.Is(err, stencil.ErrInvalidConfiguration), "n=%v p=%v: %v", c.n, c.p, err)
	}
	_, err := Split(4, 2, Policy(7))
	assert.ErrorIs(t, err, stencil.ErrInvalidConfiguration)
}

func TestRangesAllowEmptyParts(t *testing.T) {
	ranges := Ranges(2, 4, RemainderLast)
	assert.Equal(t, []Range{{0, 0}, {0, 0}, {0, 0}, {0, 2}}, ranges)
}

func TestOwnerOutside(t *testing.T) {
	l, err := Split(10, 3, RemainderFirst)
	require.NoError(t, err)
	assert.Equal(t, -1, l.Owner(-1))
	assert.Equal(t, -1, l.Owner(10))
}

func TestParsePolicy(t *testing.T) {
	var p Policy
	require.NoError(t, p.UnmarshalText([]byte("last")))
	assert.Equal(t, RemainderLast, p)
	text, err := p.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "last", string(text))
	_, err = ParsePolicy("middle")
	assert.ErrorIs(t, err, stencil.ErrInvalidConfiguration)
}

func ExampleSplit() {
	l, err := Split(9, 4, RemainderFirst)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(l.Ranges)

	// Output:
	// [[0,3) [3,5) [5,7) [7,9)]
}
