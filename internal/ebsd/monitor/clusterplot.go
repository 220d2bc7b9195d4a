// Package monitor renders the derived artifacts of a cluster run: spatial
// cluster maps and misorientation-angle histograms as PNGs, plus an
// interactive HTML scatter. It consumes labels, means and the orientation
// grid as plain values and has no dependency back into the pipeline.
package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/misorient.report/internal/ebsd"
	"github.com/banshee-data/misorient.report/internal/units"
)

// noiseColor renders DBSCAN noise points. Clusters get HSL palette colors.
var noiseColor = color.RGBA{R: 160, G: 160, B: 160, A: 255}

// PlotClusterMap writes a scatter of the grid's sample positions colored by
// cluster label. Positions come from the per-point stage coordinates when
// the grid carries properties, otherwise from the map indices.
func PlotClusterMap(grid *ebsd.Grid, labels []int, numClusters int, path string) error {
	if grid.Len() != len(labels) {
		return fmt.Errorf("%w: %d labels for %d grid points", ebsd.ErrInvalidConfig, len(labels), grid.Len())
	}

	p := plot.New()
	p.Title.Text = "Cluster map"
	p.X.Label.Text = "x (µm)"
	p.Y.Label.Text = "y (µm)"
	if !grid.HasProps() {
		p.X.Label.Text = "column"
		p.Y.Label.Text = "row"
	}

	colors := generateColors(numClusters)

	// One XYs per label so each cluster is a single legend entry.
	byLabel := make(map[int]plotter.XYs)
	i := 0
	for r := 0; r < grid.Rows(); r++ {
		for c := 0; c < grid.Cols(); c++ {
			x, y := float64(c), float64(r)
			if props, ok := grid.Props(r, c); ok {
				x, y = props.X, props.Y
			}
			byLabel[labels[i]] = append(byLabel[labels[i]], plotter.XY{X: x, Y: y})
			i++
		}
	}

	addSeries := func(label int, pts plotter.XYs, col color.Color, name string) error {
		if len(pts) == 0 {
			return nil
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = col
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add(name, sc)
		return nil
	}

	if err := addSeries(ebsd.NoiseLabel, byLabel[ebsd.NoiseLabel], noiseColor, "noise"); err != nil {
		return err
	}
	for label := 0; label < numClusters; label++ {
		if err := addSeries(label, byLabel[label], colors[label], fmt.Sprintf("cluster %d", label)); err != nil {
			return err
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save cluster map: %w", err)
	}
	return nil
}

// PlotAngleHistogram writes a histogram of the upper-triangle distance
// entries in degrees. Useful for picking eps: dense orientation groupings
// show up as a low-angle peak well separated from the bulk.
func PlotAngleHistogram(m *ebsd.Matrix, bins int, path string) error {
	if !m.IsSquare() {
		return fmt.Errorf("%w: histogram needs a square matrix, got %dx%d",
			ebsd.ErrInvalidConfig, m.RowCount, m.ColCount)
	}
	if bins < 1 {
		bins = 72
	}

	n := m.RowCount
	vals := make(plotter.Values, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			vals = append(vals, units.Degrees(m.At(i, j)))
		}
	}

	p := plot.New()
	p.Title.Text = "Misorientation angles"
	p.X.Label.Text = "angle (deg)"
	p.Y.Label.Text = "pair count"

	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return fmt.Errorf("build histogram: %w", err)
	}
	p.Add(h)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save histogram: %w", err)
	}
	return nil
}

// generateColors creates a palette of distinct colors for cluster series.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakeRunOutputDir creates a timestamped output directory for run plots:
// <baseDir>/<source basename>/<timestamp>.
func MakeRunOutputDir(baseDir, sourceFile string) (string, error) {
	ts := FormatTimestamp(time.Now())
	name := "run"
	if sourceFile != "" {
		base := filepath.Base(sourceFile)
		name = base[:len(base)-len(filepath.Ext(base))]
	}
	dir := filepath.Join(baseDir, name, ts)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	return dir, nil
}
