package monitor

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/misorient.report/internal/ebsd"
)

// WriteClusterScatterHTML renders an interactive scatter of the cluster map
// to a self-contained HTML file. The third data dimension drives the visual
// map so labels can be browsed with the slider; noise points carry label -1
// and land at the bottom of the range.
func WriteClusterScatterHTML(grid *ebsd.Grid, labels []int, numClusters int, path string) error {
	if grid.Len() != len(labels) {
		return fmt.Errorf("%w: %d labels for %d grid points", ebsd.ErrInvalidConfig, len(labels), grid.Len())
	}

	data := make([]opts.ScatterData, 0, grid.Len())
	i := 0
	for r := 0; r < grid.Rows(); r++ {
		for c := 0; c < grid.Cols(); c++ {
			x, y := float64(c), float64(r)
			if props, ok := grid.Props(r, c); ok {
				x, y = props.X, props.Y
			}
			data = append(data, opts.ScatterData{Value: []interface{}{x, y, labels[i]}})
			i++
		}
	}

	maxLabel := float32(numClusters - 1)
	if maxLabel < 0 {
		maxLabel = 0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Cluster Map",
			Theme:     "dark",
			Width:     "900px",
			Height:    "900px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Orientation clusters",
			Subtitle: fmt.Sprintf("points=%d clusters=%d", len(labels), numClusters),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(ebsd.NoiseLabel),
			Max:        maxLabel,
			Dimension:  "2",
			InRange: &opts.VisualMapInRange{Color: []string{
				"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
				"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
			}},
		}),
	)

	scatter.AddSeries("clusters", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()
	if err := scatter.Render(f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
