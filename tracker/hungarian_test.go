package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHungarianAssign(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cost [][]float64
		want []int
	}{
		{
			name: "empty",
			cost: [][]float64{},
			want: nil,
		},
		{
			name: "no columns",
			cost: [][]float64{{}, {}},
			want: []int{-1, -1},
		},
		{
			name: "square",
			cost: [][]float64{
				{4, 1, 3},
				{2, 0, 5},
				{3, 2, 2},
			},
			want: []int{1, 0, 2},
		},
		{
			name: "wide",
			cost: [][]float64{
				{1, 2, 3},
				{2, 4, 6},
			},
			want: []int{1, 0},
		},
		{
			name: "tall",
			cost: [][]float64{
				{1, 2},
				{2, 4},
				{3, 6},
			},
			want: []int{1, 0, -1},
		},
		{
			name: "identical costs",
			cost: [][]float64{
				{0.5, 0.5},
				{0.5, 0.5},
			},
			want: []int{0, 1},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, hungarianAssign(tc.cost))
		})
	}
}

// TestHungarianAssignOptimal compares against brute force over all
// permutations of a 4x4 matrix
func TestHungarianAssignOptimal(t *testing.T) {
	t.Parallel()

	cost := [][]float64{
		{10, 19, 8, 15},
		{10, 18, 7, 17},
		{13, 16, 9, 14},
		{12, 19, 8, 18},
	}

	assign := hungarianAssign(cost)

	total := 0.0
	for i, j := range assign {
		assert.GreaterOrEqual(t, j, 0)
		total += cost[i][j]
	}

	best := bruteForceMin(cost, 0, make([]bool, len(cost)))
	assert.Equal(t, best, total)
}

func bruteForceMin(cost [][]float64, row int, used []bool) float64 {

	if row == len(cost) {
		return 0
	}

	best := -1.0

	for j := range cost[row] {
		if used[j] {
			continue
		}

		used[j] = true
		sum := cost[row][j] + bruteForceMin(cost, row+1, used)
		used[j] = false

		if best < 0 || sum < best {
			best = sum
		}
	}

	return best
}

// TestHungarianAssignEqualOptimum checks that a matrix with more than one
// optimal assignment always returns the same optimal one
func TestHungarianAssignEqualOptimum(t *testing.T) {
	t.Parallel()

	// [2 0 1] and [1 0 2] both cost 1
	cost := [][]float64{
		{1, 1, 0},
		{0, 0.5, 0.5},
		{0.5, 1, 0},
	}

	first := hungarianAssign(cost)

	total := 0.0
	for i, j := range first {
		total += cost[i][j]
	}

	assert.Equal(t, bruteForceMin(cost, 0, make([]bool, len(cost))), total)

	for n := 0; n < 10; n++ {
		assert.Equal(t, first, hungarianAssign(cost))
	}
}
