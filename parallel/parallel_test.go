package parallel_test

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/stencil/parallel"
)

func TestRangeBatchesLastAbsorbsRemainder(t *testing.T) {
	var mutex sync.Mutex
	var got [][2]int
	err := parallel.Range(3, 13, 3, func(low, high int) error {
		mutex.Lock()
		got = append(got, [2]int{low, high})
		mutex.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, [][2]int{{3, 6}, {6, 9}, {9, 13}}, got)
}

func TestRangeWritesDisjointBatches(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5, 7, 100} {
		data := make([]int, 37)
		err := parallel.Range(0, len(data), n, func(low, high int) error {
			for i := low; i < high; i++ {
				data[i]++
			}
			return nil
		})
		require.NoError(t, err)
		for i, v := range data {
			assert.Equalf(t, 1, v, "n=%v index %v", n, i)
		}
	}
}

func TestRangeLeftMostError(t *testing.T) {
	err := parallel.Range(0, 4, 4, func(low, high int) error {
		if low >= 1 {
			return fmt.Errorf("batch %v", low)
		}
		return nil
	})
	assert.EqualError(t, err, "batch 1")
}

func TestRangePanics(t *testing.T) {
	assert.Panics(t, func() {
		_ = parallel.Range(0, 8, 4, func(low, high int) error {
			if low == 6 {
				panic(errors.New("boom"))
			}
			return nil
		})
	})
	assert.Panics(t, func() {
		_ = parallel.Range(4, 2, 1, func(int, int) error { return nil })
	})
}

func TestRangeOrRunsAllBatches(t *testing.T) {
	visited := make([]bool, 16)
	changed, err := parallel.RangeOr(0, 16, 4, func(low, high int) (bool, error) {
		for i := low; i < high; i++ {
			visited[i] = true
		}
		return low == 0, nil
	})
	require.NoError(t, err)
	assert.True(t, changed)
	for _, v := range visited {
		assert.True(t, v)
	}

	changed, err = parallel.RangeOr(0, 16, 4, func(int, int) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.False(t, changed)
}

func ExampleFloat64RangeReduce() {
	values := []float64{3, -9, 4, 1, 5, -2, 6}
	maxAbs := parallel.Float64RangeReduce(
		0, len(values), 3,
		func(low, high int) (result float64) {
			for i := low; i < high; i++ {
				result = math.Max(result, math.Abs(values[i]))
			}
			return
		},
		math.Max,
	)
	fmt.Println(maxAbs)

	// Output:
	// 9
}
