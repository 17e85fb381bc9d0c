// Package margaidplot implements the bar-chart part of plots.Plotter as SVG
// files, using the Margaid library (https://github.com/erkkah/margaid).
// Images and heatmaps are not supported by this backend; the shell pairs it
// with a raster backend when those are needed.
package margaidplot

import (
	"fmt"
	"os"
	"path/filepath"

	mg "github.com/erkkah/margaid"
	"github.com/layerscope/layerscope/types/tensors"
	"github.com/layerscope/layerscope/ui/plots"
	"github.com/pkg/errors"
)

// Plotter writes one SVG file per bar chart into a directory.
type Plotter struct {
	dir     string
	counter int
}

var _ plots.Plotter = (*Plotter)(nil)

// New creates a Plotter writing into dir, creating it if needed.
func New(dir string) (*Plotter, error) {
	if err := os.MkdirAll(dir, 0770); err != nil {
		return nil, errors.Wrapf(err, "failed to create plot directory %q", dir)
	}
	return &Plotter{dir: dir}, nil
}

// BarChart implements plots.Plotter.
func (p *Plotter) BarChart(values []float64, opts plots.BarChartOptions) (string, error) {
	series := mg.NewSeries(mg.Titled(opts.Title))
	for ii, value := range values {
		series.Add(mg.MakeValue(float64(ii), value))
	}

	diagram := mg.New(1024, 400,
		mg.WithAutorange(mg.XAxis, series),
		mg.WithAutorange(mg.YAxis, series),
		mg.WithInset(70),
		mg.WithPadding(2),
		mg.WithColorScheme(90),
		mg.WithBackgroundColor("#f8f8f8"),
	)
	diagram.Bar([]*mg.Series{series}, mg.UsingAxes(mg.XAxis, mg.YAxis))
	diagram.Axis(series, mg.XAxis, diagram.ValueTicker('f', 0, 10), false, "channel")
	diagram.Axis(series, mg.YAxis, diagram.ValueTicker('f', 3, 10), true, "value")

	p.counter++
	name := opts.Title
	if name == "" {
		name = fmt.Sprintf("chart-%03d", p.counter)
	}
	file := filepath.Join(p.dir, sanitize(name)+".svg")
	f, err := os.Create(file)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %q", file)
	}
	defer func() { _ = f.Close() }()
	if err = diagram.Render(f); err != nil {
		return "", errors.Wrapf(err, "failed to render bar chart to %q", file)
	}
	return file, nil
}

// Image implements plots.Plotter; unsupported for SVG output.
func (p *Plotter) Image(_ *tensors.Tensor, _ plots.ImageOptions) (string, error) {
	return "", errors.Errorf("the margaid backend renders bar charts only")
}

// Heatmap implements plots.Plotter; unsupported for SVG output.
func (p *Plotter) Heatmap(_, _ *tensors.Tensor, _ plots.HeatmapOptions) (string, error) {
	return "", errors.Errorf("the margaid backend renders bar charts only")
}

func sanitize(name string) string {
	mapped := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			mapped = append(mapped, r)
		default:
			mapped = append(mapped, '_')
		}
	}
	return string(mapped)
}
