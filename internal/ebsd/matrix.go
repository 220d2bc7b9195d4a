package ebsd

import (
	"fmt"
	"math"
)

// SymmetryTolerance is the maximum |D[i,j]-D[j,i]| accepted when validating
// an externally supplied distance matrix.
const SymmetryTolerance = 1e-9

// Matrix is a dense row-major matrix of angular distances in radians.
// Entries are non-negative and bounded by π for proper rotations. The
// matrix produced over a single orientation set is square with zero
// diagonal and symmetric entries; Validate checks exactly that contract
// before the matrix is allowed into the cluster engine.
type Matrix struct {
	RowCount int
	ColCount int
	Data     []float64
}

// NewMatrix allocates a zeroed rows×cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{RowCount: rows, ColCount: cols, Data: make([]float64, rows*cols)}
}

// At returns D[i,j].
func (m *Matrix) At(i, j int) float64 {
	return m.Data[i*m.ColCount+j]
}

// Set assigns D[i,j].
func (m *Matrix) Set(i, j int, v float64) {
	m.Data[i*m.ColCount+j] = v
}

// Row returns the backing slice for row i. Writes through the returned
// slice modify the matrix.
func (m *Matrix) Row(i int) []float64 {
	return m.Data[i*m.ColCount : (i+1)*m.ColCount]
}

// IsSquare reports whether the matrix is square.
func (m *Matrix) IsSquare() bool {
	return m.RowCount == m.ColCount
}

// Validate checks the pairwise-distance contract required by the cluster
// engine: square shape with backing data of matching length, zero diagonal,
// entries in [0, π] and symmetry within SymmetryTolerance. A violation is a
// configuration error (ill-formed input), never silently corrected.
func (m *Matrix) Validate() error {
	if !m.IsSquare() {
		return fmt.Errorf("%w: distance matrix is %dx%d, want square",
			ErrInvalidConfig, m.RowCount, m.ColCount)
	}
	if len(m.Data) != m.RowCount*m.ColCount {
		return fmt.Errorf("%w: distance matrix data length %d for shape %dx%d",
			ErrInvalidConfig, len(m.Data), m.RowCount, m.ColCount)
	}
	n := m.RowCount
	for i := 0; i < n; i++ {
		if d := m.At(i, i); d != 0 {
			return fmt.Errorf("%w: distance matrix diagonal entry (%d,%d) = %g, want 0",
				ErrInvalidConfig, i, i, d)
		}
		for j := i + 1; j < n; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if math.Abs(a-b) > SymmetryTolerance {
				return fmt.Errorf("%w: distance matrix asymmetric at (%d,%d): %g vs %g",
					ErrInvalidConfig, i, j, a, b)
			}
			if a < 0 || a > math.Pi+SymmetryTolerance || math.IsNaN(a) {
				return fmt.Errorf("%w: distance matrix entry (%d,%d) = %g outside [0, π]",
					ErrInvalidConfig, i, j, a)
			}
		}
	}
	return nil
}

// MaxEntry returns the largest distance in the matrix, useful for histogram
// axis ranges.
func (m *Matrix) MaxEntry() float64 {
	max := 0.0
	for _, v := range m.Data {
		if v > max {
			max = v
		}
	}
	return max
}
