package tracker

import "math"

// hungarianAssign solves the rectangular assignment problem for an n x m cost
// matrix with the Kuhn-Munkres (Hungarian) method using row and column
// potentials.  It returns assign[i] = column assigned to row i, or -1 if row i
// is unassigned.
//
// The result is deterministic for a given matrix ordering.  When several
// assignments share the minimal cost, which one is returned depends on the
// order rows are augmented, it is not necessarily the lexicographically
// first one.
func hungarianAssign(cost [][]float64) []int {

	n := len(cost)

	if n == 0 {
		return nil
	}

	m := len(cost[0])
	assign := make([]int, n)

	for i := range assign {
		assign[i] = -1
	}

	if m == 0 {
		return assign
	}

	// pad to a square matrix with zero cost cells, every complete assignment
	// uses the same number of them
	dim := n
	if m > dim {
		dim = m
	}

	c := make([][]float64, dim)

	for i := 0; i < dim; i++ {
		c[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			if i < n && j < m {
				c[i][j] = cost[i][j]
			}
		}
	}

	// arrays are 1-indexed, index 0 is the virtual column
	const inf = math.MaxFloat64 / 2

	u := make([]float64, dim+1)    // row potentials
	v := make([]float64, dim+1)    // column potentials
	p := make([]int, dim+1)        // p[j] = row assigned to column j
	way := make([]int, dim+1)      // way[j] = previous column on augmenting path
	minv := make([]float64, dim+1) // minimum reduced cost per column
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}

				cur := c[i0-1][j-1] - u[i0] - v[j]

				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}

				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				break
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1

			if p[j0] == 0 {
				break
			}
		}

		// augment along the path
		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	for j := 1; j <= dim; j++ {
		row := p[j] - 1
		col := j - 1

		if row < 0 || row >= n || col >= m {
			continue
		}

		assign[row] = col
	}

	return assign
}
