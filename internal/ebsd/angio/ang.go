// Package angio reads TSL OIM .ang orientation files: a '#'-prefixed header
// followed by one whitespace-separated data row per scan point. The first
// three columns are Bunge Euler angles in radians; the remaining columns are
// stage position and per-point quality scalars.
package angio

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/misorient.report/internal/ebsd"
	"github.com/banshee-data/misorient.report/internal/fsutil"
)

// Header carries the subset of the .ang header the pipeline uses.
type Header struct {
	Rows  int
	Cols  int
	XStep float64
	YStep float64
	Grid  string // "SqrGrid" or "HexGrid"

	// MaterialName and Symmetry describe the first phase block. Symmetry
	// is the raw TSL point-group code (e.g. "62" for hexagonal 622).
	MaterialName string
	Symmetry     string
}

// GroupName maps the header's TSL symmetry code to a symmetry group
// identifier accepted by ebsd.GroupByName. Unknown codes return false; the
// caller must then name the group explicitly.
func (h *Header) GroupName() (string, bool) {
	switch h.Symmetry {
	case "62":
		return "hexagonal", true
	case "43":
		return "cubic", true
	case "42":
		return "tetragonal", true
	case "22":
		return "orthorhombic", true
	case "1":
		return "triclinic", true
	}
	return "", false
}

// Load reads an .ang file into an orientation grid. When the header carries
// NROWS/NCOLS the grid takes that shape and the row count must match
// exactly; headerless files load as a single-row grid. Orientations are
// normalized on ingest so downstream algebra can assume unit quaternions.
// Per-point properties are attached only when the rows include the x/y
// position columns.
func Load(fsys fsutil.FileSystem, path string) (*ebsd.Grid, *Header, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read ang file: %w", err)
	}
	return Parse(string(data))
}

// Parse parses .ang content. See Load.
func Parse(content string) (*ebsd.Grid, *Header, error) {
	hdr := &Header{}
	var qs []ebsd.Quat
	var props []ebsd.PointProps
	hasProps := false

	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 1<<16), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			parseHeaderLine(hdr, line)
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, nil, fmt.Errorf("%w: ang line %d has %d columns, want at least 3 Euler angles",
				ebsd.ErrInvalidConfig, lineNo, len(fields))
		}

		var euler [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: ang line %d column %d: %v",
					ebsd.ErrInvalidConfig, lineNo, i+1, err)
			}
			euler[i] = v
		}
		qs = append(qs, ebsd.FromEuler(euler[0], euler[1], euler[2]).Normalize())

		p := ebsd.PointProps{}
		// Optional columns: x y iq ci phase. Trailing missing columns stay
		// zero, but a file whose rows never reach the x/y pair carries no
		// properties at all, so plots fall back to map indices.
		if len(fields) >= 5 {
			hasProps = true
		}
		opt := []*float64{&p.X, &p.Y, &p.IQ, &p.CI}
		for i, dst := range opt {
			col := 3 + i
			if col >= len(fields) {
				break
			}
			v, err := strconv.ParseFloat(fields[col], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: ang line %d column %d: %v",
					ebsd.ErrInvalidConfig, lineNo, col+1, err)
			}
			*dst = v
		}
		if len(fields) > 7 {
			phase, err := strconv.Atoi(fields[7])
			if err != nil {
				return nil, nil, fmt.Errorf("%w: ang line %d phase column: %v",
					ebsd.ErrInvalidConfig, lineNo, err)
			}
			p.Phase = phase
		}
		props = append(props, p)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan ang file: %w", err)
	}
	if len(qs) == 0 {
		return nil, nil, fmt.Errorf("%w: ang file contains no data rows", ebsd.ErrInvalidConfig)
	}
	if !hasProps {
		props = nil
	}

	rows, cols := hdr.Rows, hdr.Cols
	if rows == 0 || cols == 0 {
		rows, cols = 1, len(qs)
	} else if rows*cols != len(qs) {
		return nil, nil, fmt.Errorf("%w: ang header declares %dx%d grid but file has %d rows",
			ebsd.ErrInvalidConfig, rows, cols, len(qs))
	}

	grid, err := ebsd.NewGrid(rows, cols, qs, props)
	if err != nil {
		return nil, nil, err
	}
	return grid, hdr, nil
}

// parseHeaderLine folds one '# KEY: value' (or '# KEY value' for phase
// blocks) line into the header. Unrecognized keys are ignored.
func parseHeaderLine(hdr *Header, line string) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	if body == "" {
		return
	}

	key := body
	value := ""
	if i := strings.IndexAny(body, ": \t"); i >= 0 {
		key = body[:i]
		value = strings.TrimSpace(strings.TrimPrefix(body[i:], ":"))
	}

	switch strings.ToUpper(key) {
	case "NROWS":
		hdr.Rows, _ = strconv.Atoi(value)
	case "NCOLS_ODD", "NCOLS_EVEN":
		// Square grids declare identical odd/even column counts.
		hdr.Cols, _ = strconv.Atoi(value)
	case "XSTEP":
		hdr.XStep, _ = strconv.ParseFloat(value, 64)
	case "YSTEP":
		hdr.YStep, _ = strconv.ParseFloat(value, 64)
	case "GRID":
		hdr.Grid = value
	case "MATERIALNAME":
		hdr.MaterialName = value
	case "SYMMETRY":
		hdr.Symmetry = value
	}
}
