package ebsd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/banshee-data/misorient.report/internal/fsutil"
)

// matrixMagic identifies the binary distance-matrix artifact. The layout
// after the magic is a little-endian uint32 point count followed by the
// n·n float64 entries in the flattened row-major order of the source grid.
var matrixMagic = [8]byte{'M', 'I', 'S', 'O', 'D', 'M', '0', '1'}

// SaveMatrix writes a square distance matrix as a binary artifact that a
// later run can load in place of recomputation.
func SaveMatrix(fsys fsutil.FileSystem, path string, m *Matrix) error {
	if !m.IsSquare() {
		return fmt.Errorf("%w: refusing to save %dx%d matrix, artifact format is square",
			ErrInvalidConfig, m.RowCount, m.ColCount)
	}

	buf := make([]byte, 8+4+8*len(m.Data))
	copy(buf[:8], matrixMagic[:])
	binary.LittleEndian.PutUint32(buf[8:12], uint32(m.RowCount))
	for i, v := range m.Data {
		binary.LittleEndian.PutUint64(buf[12+8*i:], math.Float64bits(v))
	}

	if err := fsys.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write matrix artifact: %w", err)
	}
	return nil
}

// LoadMatrix reads a distance-matrix artifact and validates the distance
// contract before returning it. The caller remains responsible for checking
// that the point count matches the grid the matrix substitutes for.
func LoadMatrix(fsys fsutil.FileSystem, path string) (*Matrix, error) {
	buf, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read matrix artifact: %w", err)
	}
	if len(buf) < 12 || !bytes.Equal(buf[:8], matrixMagic[:]) {
		return nil, fmt.Errorf("%w: %s is not a distance matrix artifact", ErrInvalidConfig, path)
	}

	n := int(binary.LittleEndian.Uint32(buf[8:12]))
	payload := len(buf) - 12
	// The declared count is untrusted input: bound n by the payload before
	// any size arithmetic, so an oversized header can neither overflow the
	// length check below nor drive a huge allocation.
	if uint64(n)*uint64(n) > uint64(payload)/floatBytes {
		return nil, fmt.Errorf("%w: matrix artifact %s declares n=%d points, more than its %d payload bytes hold",
			ErrInvalidConfig, path, n, payload)
	}
	if want := 8 * n * n; payload != want {
		return nil, fmt.Errorf("%w: matrix artifact %s has %d payload bytes, want %d for n=%d",
			ErrInvalidConfig, path, payload, want, n)
	}

	m := NewMatrix(n, n)
	for i := range m.Data {
		m.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[12+8*i:]))
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("matrix artifact %s: %w", path, err)
	}
	return m, nil
}
