package commgraph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrReachabilityCheckFailed is returned when a pairwise communication check fails
var ErrReachabilityCheckFailed = errors.New("reachability check failed")

// Matrix is an n x n connectivity matrix. Matrix[i][j] is true iff agent i can
// currently receive agent j's state. The diagonal is always true.
type Matrix [][]bool

// ReachabilityFunc reports whether agent i can receive agent j's state
type ReachabilityFunc func(i, j int) (bool, error)

// Build evaluates reachability for every ordered pair i != j and returns the
// resulting matrix. The first failing check aborts construction.
func Build(n int, reachable ReachabilityFunc) (Matrix, error) {
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]bool, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				m[i][j] = true
				continue
			}

			ok, err := reachable(i, j)
			if err != nil {
				return nil, fmt.Errorf("%w: agent %d -> agent %d: %w", ErrReachabilityCheckFailed, i, j, err)
			}
			m[i][j] = ok
		}
	}

	return m, nil
}

// Size returns the number of agents in the matrix
func (m Matrix) Size() int {
	return len(m)
}

// Neighbors returns, in ascending order, every j that agent i can receive from (including i)
func (m Matrix) Neighbors(i int) []int {
	var out []int
	for j, ok := range m[i] {
		if ok {
			out = append(out, j)
		}
	}
	return out
}

// Edges returns the number of true off-diagonal entries
func (m Matrix) Edges() int {
	count := 0
	for i, row := range m {
		for j, ok := range row {
			if i != j && ok {
				count++
			}
		}
	}
	return count
}

// Symmetric reports whether every link is bidirectional
func (m Matrix) Symmetric() bool {
	for i, row := range m {
		for j := range row {
			if m[i][j] != m[j][i] {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of the matrix
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]bool(nil), row...)
	}
	return out
}

// String renders the matrix one row per line, e.g. "1 0 1"
func (m Matrix) String() string {
	var sb strings.Builder
	for i, row := range m {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for j, ok := range row {
			if j > 0 {
				sb.WriteByte(' ')
			}
			if ok {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}
