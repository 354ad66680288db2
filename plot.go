package gpbench

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// SavePlot renders the minimum times as a bar chart. The image format
// follows the file extension of path (png, svg, pdf, ...).
func SavePlot(path string, results []Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to plot")
	}

	p := plot.New()
	p.Title.Text = "ParametersChanged minimum time"
	p.Y.Label.Text = "ms"

	values := make(plotter.Values, len(results))
	labels := make([]string, len(results))

	for i, r := range results {
		values[i] = r.Millis()
		labels[i] = r.Label
	}

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return err
	}

	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	width := vg.Length(len(results)) * vg.Points(40)
	if width < 4*vg.Inch {
		width = 4 * vg.Inch
	}

	return p.Save(width, 4*vg.Inch, path)
}
