package speculative

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeAnd(t *testing.T) {
	a := []int{1, 2, 3, 4, 5, 6, 7, 8}
	b := []int{1, 2, 3, 4, 5, 6, 7, 8}
	equal := func(low, high int) bool {
		for i := low; i < high; i++ {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}
	assert.True(t, RangeAnd(0, len(a), 4, equal))
	b[6] = 0
	assert.False(t, RangeAnd(0, len(a), 4, equal))
	assert.True(t, RangeAnd(0, 0, 4, func(int, int) bool { return true }))
}

func TestRangeOr(t *testing.T) {
	assert.True(t, RangeOr(0, 100, 0, func(low, high int) bool { return low <= 99 && 99 < high }))
	assert.False(t, RangeOr(0, 100, 7, func(int, int) bool { return false }))
}
