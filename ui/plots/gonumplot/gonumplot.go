// Package gonumplot implements plots.Plotter writing PNG files with
// gonum.org/v1/plot.
package gonumplot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/layerscope/layerscope/types/tensors"
	"github.com/layerscope/layerscope/ui/plots"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plotter writes one PNG file per plot into a directory. Successive plots of
// the same title overwrite each other, so the output directory stays an
// up-to-date "window" per visualization.
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

func (p *Plotter) fileName(title, ext string) string {
	if title == "" {
		p.counter++
		title = fmt.Sprintf("plot-%03d", p.counter)
	}
	return filepath.Join(p.dir, sanitize(title)+ext)
}

// BarChart implements plots.Plotter.
func (p *Plotter) BarChart(values []float64, opts plots.BarChartOptions) (string, error) {
	chart := plot.New()
	chart.Title.Text = opts.Title
	chart.X.Label.Text = "channel"
	chart.Y.Label.Text = "value"

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(2))
	if err != nil {
		return "", errors.Wrapf(err, "failed to build bar chart %q", opts.Title)
	}
	bars.LineStyle.Width = 0
	chart.Add(bars)

	if opts.AnnotateTop > 0 {
		top := plots.TopN(values, opts.AnnotateTop)
		labels := plotter.XYLabels{}
		for _, idx := range top {
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(idx), Y: values[idx]})
			labels.Labels = append(labels.Labels, fmt.Sprintf("%d", idx))
		}
		annotations, err := plotter.NewLabels(labels)
		if err != nil {
			return "", errors.Wrapf(err, "failed to build bar annotations")
		}
		chart.Add(annotations)
	}

	file := p.fileName(opts.Title, ".png")
	if err := chart.Save(8*vg.Inch, 4*vg.Inch, file); err != nil {
		return "", errors.Wrapf(err, "failed to save bar chart to %q", file)
	}
	return file, nil
}

// Image implements plots.Plotter.
func (p *Plotter) Image(t *tensors.Tensor, opts plots.ImageOptions) (string, error) {
	img, err := t.ToImage()
	if err != nil {
		return "", err
	}
	file := p.fileName(opts.Title, ".png")
	if err := imaging.Save(img, file); err != nil {
		return "", errors.Wrapf(err, "failed to save image to %q", file)
	}
	return file, nil
}

// Heatmap implements plots.Plotter.
func (p *Plotter) Heatmap(base, cam *tensors.Tensor, opts plots.HeatmapOptions) (string, error) {
	img, err := plots.OverlayCAM(base, cam, opts.Alpha)
	if err != nil {
		return "", err
	}
	file := p.fileName(opts.Title, ".png")
	if err := imaging.Save(img, file); err != nil {
		return "", errors.Wrapf(err, "failed to save heatmap to %q", file)
	}
	return file, nil
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
