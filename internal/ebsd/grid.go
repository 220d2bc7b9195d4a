package ebsd

import (
	"fmt"
)

// PointProps carries the auxiliary per-point scalars from an EBSD scan.
// X and Y are the stage position in microns; IQ (image quality) and CI
// (confidence index) are acquisition quality measures; Phase indexes the
// phase list of the source file.
type PointProps struct {
	X, Y  float64
	IQ    float64
	CI    float64
	Phase int
}

// Grid is a 2D map of orientations in row-major layout: the flattened index
// of map position (r, c) is r*Cols + c. A Grid is the single source of truth
// for a run; distance matrices and cluster labels are derived from it and
// recomputed per run.
//
// Slice returns a strided view sharing the backing arrays; Clone makes a
// deep copy.
type Grid struct {
	rows, cols int
	stride     int
	quats      []Quat
	props      []PointProps // empty when the source carries no properties
}

// NewGrid builds a grid from a row-major orientation slice. props may be nil
// or must have the same length as qs.
func NewGrid(rows, cols int, qs []Quat, props []PointProps) (*Grid, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: grid shape %dx%d", ErrInvalidConfig, rows, cols)
	}
	if len(qs) != rows*cols {
		return nil, fmt.Errorf("%w: %d orientations for %dx%d grid", ErrInvalidConfig, len(qs), rows, cols)
	}
	if props != nil && len(props) != len(qs) {
		return nil, fmt.Errorf("%w: %d property records for %d points", ErrInvalidConfig, len(props), len(qs))
	}
	return &Grid{rows: rows, cols: cols, stride: cols, quats: qs, props: props}, nil
}

// Rows returns the number of map rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of map columns.
func (g *Grid) Cols() int { return g.cols }

// Len returns the number of sample points.
func (g *Grid) Len() int { return g.rows * g.cols }

// At returns the orientation at map position (r, c).
func (g *Grid) At(r, c int) Quat {
	return g.quats[r*g.stride+c]
}

// Props reports the auxiliary properties at (r, c). ok is false when the
// grid carries no properties.
func (g *Grid) Props(r, c int) (p PointProps, ok bool) {
	if g.props == nil {
		return PointProps{}, false
	}
	return g.props[r*g.stride+c], true
}

// HasProps reports whether per-point properties are available.
func (g *Grid) HasProps() bool { return g.props != nil }

// Slice returns a view of rows [r0, r1) and columns [c0, c1) sharing the
// backing arrays. Mutating the parent is visible through the view.
func (g *Grid) Slice(r0, r1, c0, c1 int) (*Grid, error) {
	if r0 < 0 || c0 < 0 || r1 > g.rows || c1 > g.cols || r0 >= r1 || c0 >= c1 {
		return nil, fmt.Errorf("%w: slice [%d:%d, %d:%d] of %dx%d grid",
			ErrInvalidConfig, r0, r1, c0, c1, g.rows, g.cols)
	}
	off := r0*g.stride + c0
	end := (r1-1)*g.stride + c1
	v := &Grid{
		rows:   r1 - r0,
		cols:   c1 - c0,
		stride: g.stride,
		quats:  g.quats[off:end],
	}
	if g.props != nil {
		v.props = g.props[off:end]
	}
	return v, nil
}

// Clone returns a contiguous deep copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{rows: g.rows, cols: g.cols, stride: g.cols}
	c.quats = make([]Quat, g.Len())
	if g.props != nil {
		c.props = make([]PointProps, g.Len())
	}
	for r := 0; r < g.rows; r++ {
		copy(c.quats[r*c.cols:(r+1)*c.cols], g.quats[r*g.stride:r*g.stride+g.cols])
		if g.props != nil {
			copy(c.props[r*c.cols:(r+1)*c.cols], g.props[r*g.stride:r*g.stride+g.cols])
		}
	}
	return c
}

// Quats returns the orientations in flattened row-major order. For a
// contiguous grid the backing slice is returned without copying; a strided
// view is flattened into a fresh slice.
func (g *Grid) Quats() []Quat {
	if g.stride == g.cols {
		return g.quats[:g.Len()]
	}
	out := make([]Quat, 0, g.Len())
	for r := 0; r < g.rows; r++ {
		out = append(out, g.quats[r*g.stride:r*g.stride+g.cols]...)
	}
	return out
}

// Select returns the orientations where mask is true, with their flattened
// indices. The mask length must match the grid.
func (g *Grid) Select(mask []bool) ([]Quat, []int, error) {
	if len(mask) != g.Len() {
		return nil, nil, fmt.Errorf("%w: mask length %d for %d points",
			ErrInvalidConfig, len(mask), g.Len())
	}
	var qs []Quat
	var idx []int
	flat := g.Quats()
	for i, keep := range mask {
		if keep {
			qs = append(qs, flat[i])
			idx = append(idx, i)
		}
	}
	return qs, idx, nil
}

// Misorientations returns ref⁻¹·q for every grid point in flattened order:
// the orientations re-expressed relative to a common reference.
func (g *Grid) Misorientations(ref Quat) []Quat {
	inv := ref.Inv()
	flat := g.Quats()
	out := make([]Quat, len(flat))
	for i, q := range flat {
		out[i] = inv.Mul(q)
	}
	return out
}

// Recenter returns a copy of the grid with every orientation left-multiplied
// by ref⁻¹. Recentering preserves all pairwise misorientation angles and is
// used only to bring one cluster's mean to the identity for display.
func (g *Grid) Recenter(ref Quat) *Grid {
	c := g.Clone()
	inv := ref.Inv()
	for i := range c.quats {
		c.quats[i] = inv.Mul(c.quats[i])
	}
	return c
}
