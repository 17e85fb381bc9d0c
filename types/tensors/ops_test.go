// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromValues(t *testing.T, values []float32, dims ...int) *Tensor {
	t.Helper()
	tensor, err := FromFlat(values, dims...)
	require.NoError(t, err)
	return tensor
}

func TestReductions(t *testing.T) {
	tensor := fromValues(t, []float32{1, -2, 3, 0}, 4)
	assert.Equal(t, float32(0.5), tensor.Mean())
	assert.Equal(t, float32(3), tensor.Max())
	assert.Equal(t, float32(-2), tensor.Min())
	assert.Equal(t, 2, tensor.ArgMax())
}

func TestArgMaxTies(t *testing.T) {
	tensor := fromValues(t, []float32{5, 5, 1}, 3)
	assert.Equal(t, 0, tensor.ArgMax(), "ties resolve to the earliest index")
}

func TestTopK(t *testing.T) {
	tensor := fromValues(t, []float32{0.1, 0.7, 0.2}, 3)
	indices, values := tensor.TopK(2)
	assert.Equal(t, []int{1, 2}, indices)
	assert.Equal(t, []float32{0.7, 0.2}, values)

	indices, _ = tensor.TopK(10)
	assert.Len(t, indices, 3, "k is clamped to the size")
}

func TestReLU(t *testing.T) {
	tensor := fromValues(t, []float32{-1, 0, 2}, 3)
	got := tensor.ReLU()
	assert.Equal(t, []float32{0, 0, 2}, got.Flat())
	assert.Equal(t, float32(-1), tensor.At(0), "input untouched")
}

func TestSoftmax(t *testing.T) {
	tensor := fromValues(t, []float32{1, 1, 1, 1}, 1, 4)
	got := tensor.Softmax()
	for _, v := range got.Flat() {
		assert.InDelta(t, 0.25, v, 1e-6)
	}

	// Rows normalize independently, and large values don't overflow.
	rows := fromValues(t, []float32{1000, 1000, 0, 10}, 2, 2)
	got = rows.Softmax()
	assert.InDelta(t, 0.5, got.At(0, 0), 1e-6)
	assert.InDelta(t, 1.0, got.At(1, 1), 1e-4)

	var sum float64
	for _, v := range got.Flat()[:2] {
		sum += float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestScalarOps(t *testing.T) {
	tensor := fromValues(t, []float32{1, 2}, 2)
	assert.Equal(t, []float32{3, 4}, tensor.AddScalar(2).Flat())
	assert.Equal(t, []float32{2, 4}, tensor.MulScalar(2).Flat())
	assert.Equal(t, []float32{1, 2}, tensor.Flat(), "inputs untouched")
}

func TestNormalize01(t *testing.T) {
	tensor := fromValues(t, []float32{-1, 0, 3}, 3)
	got := tensor.Normalize01()
	assert.InDelta(t, 0.0, got.At(0), 1e-6)
	assert.InDelta(t, 0.25, got.At(1), 1e-6)
	assert.InDelta(t, 1.0, got.At(2), 1e-6)

	constant := Full(7, 3)
	assert.Equal(t, []float32{0, 0, 0}, constant.Normalize01().Flat())
}

func TestChannelMeans(t *testing.T) {
	// [1, 2, 2, 2]: channel 0 holds 1..4, channel 1 holds 5..8.
	tensor := fromValues(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, 1, 2, 2, 2)
	got, err := tensor.ChannelMeans()
	require.NoError(t, err)
	assert.Equal(t, 1, got.Rank())
	assert.Equal(t, []float32{2.5, 6.5}, got.Flat())

	// [C, ...] layout works the same.
	unbatched := fromValues(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, 2, 4)
	got, err = unbatched.ChannelMeans()
	require.NoError(t, err)
	assert.Equal(t, []float32{2.5, 6.5}, got.Flat())

	// [1, N] is the identity on the N values.
	features := fromValues(t, []float32{1, 2, 3}, 1, 3)
	got, err = features.ChannelMeans()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, got.Flat())
}

func TestChannelMaxes(t *testing.T) {
	tensor := fromValues(t, []float32{1, 4, -1, -9}, 1, 2, 2)
	got, err := tensor.ChannelMaxes()
	require.NoError(t, err)
	assert.Equal(t, []float32{4, -1}, got.Flat())
}

func TestChannelCombine(t *testing.T) {
	// Two 2x2 channels, weights 1 and 2: the result is plane0 + 2*plane1.
	acts := fromValues(t, []float32{
		1, 2, 3, 4,
		10, 20, 30, 40,
	}, 2, 2, 2)
	weights := fromValues(t, []float32{1, 2}, 2)

	cam, err := ChannelCombine(weights, acts)
	require.NoError(t, err)
	assert.Equal(t, 2, cam.Rank())
	assert.Equal(t, []float32{21, 42, 63, 84}, cam.Flat())

	// The batch-of-one form gives the same answer.
	batched, err := acts.Reshape(1, 2, 2, 2)
	require.NoError(t, err)
	cam2, err := ChannelCombine(weights, batched)
	require.NoError(t, err)
	assert.True(t, cam.Equal(cam2))

	// Weight count must match the channel count.
	_, err = ChannelCombine(fromValues(t, []float32{1, 2, 3}, 3), acts)
	assert.Error(t, err)
}
