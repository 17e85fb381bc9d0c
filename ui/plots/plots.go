// Package plots defines the common visualization-sink API the shell renders
// through, shared by the different plot backends (gonum/plot PNG files,
// margaid SVG files).
package plots

import (
	"sort"

	"github.com/layerscope/layerscope/types/tensors"
)

// BarChartOptions configure a bar chart of per-channel values.
type BarChartOptions struct {
	// Title drawn above the chart.
	Title string

	// AnnotateTop labels the N largest bars with their index; 0 disables.
	AnnotateTop int
}

// ImageOptions configure raw image display.
type ImageOptions struct {
	Title string
}

// HeatmapOptions configure a class-activation heatmap overlay.
type HeatmapOptions struct {
	Title string

	// Alpha of the heatmap layer over the base image; 0 defaults to 0.5.
	Alpha float64
}

// Plotter renders captured tensors. Implementations write files and return
// the written path.
type Plotter interface {
	// BarChart renders values as a labeled bar chart.
	BarChart(values []float64, opts BarChartOptions) (string, error)

	// Image renders a tensor as a raw image. Accepted layouts are those of
	// tensors.Tensor.ToImage.
	Image(t *tensors.Tensor, opts ImageOptions) (string, error)

	// Heatmap renders cam (a [H, W] activation map) color-mapped and
	// alpha-blended over the base image tensor.
	Heatmap(base, cam *tensors.Tensor, opts HeatmapOptions) (string, error)
}

// TopN returns the indices of the n largest values, in descending order of
// value. Used to annotate the most active channels of a bar chart.
func TopN(values []float64, n int) []int {
	indices := make([]int, len(values))
	for ii := range indices {
		indices[ii] = ii
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return values[indices[a]] > values[indices[b]]
	})
	if n < len(indices) {
		indices = indices[:n]
	}
	return indices
}
