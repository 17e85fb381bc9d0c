package margaidplot

import (
	"os"
	"strings"
	"testing"

	"github.com/layerscope/layerscope/types/tensors"
	"github.com/layerscope/layerscope/ui/plots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarChartWritesSVG(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)

	file, err := p.BarChart([]float64{1, 2, 0.5}, plots.BarChartOptions{Title: "weights"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file, ".svg"))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestRasterOutputsUnsupported(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = p.Image(tensors.Zeros(3, 2, 2), plots.ImageOptions{})
	assert.Error(t, err)
	_, err = p.Heatmap(tensors.Zeros(3, 2, 2), tensors.Zeros(2, 2), plots.HeatmapOptions{})
	assert.Error(t, err)
}
