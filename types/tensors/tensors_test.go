// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/layerscope/layerscope/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFlat(t *testing.T) {
	flat := []float32{1, 2, 3, 4, 5, 6}
	tensor, err := FromFlat(flat, 2, 3)
	require.NoError(t, err)
	assert.True(t, tensor.Shape().Eq(shapes.Make(2, 3)))
	assert.Equal(t, float32(6), tensor.At(1, 2))

	// FromFlat aliases: writes through the slice are visible.
	flat[0] = 42
	assert.Equal(t, float32(42), tensor.At(0, 0))

	_, err = FromFlat(flat, 7)
	assert.Error(t, err)
}

func TestCloneDetaches(t *testing.T) {
	original := Zeros(2, 2)
	clone := original.Clone()
	original.Set(5, 0, 0)
	assert.Equal(t, float32(0), clone.At(0, 0))
}

func TestReshapeAliases(t *testing.T) {
	tensor := Zeros(2, 3)
	view, err := tensor.Reshape(3, 2)
	require.NoError(t, err)
	tensor.Set(7, 0, 0)
	assert.Equal(t, float32(7), view.At(0, 0))

	_, err = tensor.Reshape(4, 2)
	assert.Error(t, err)
}

func TestAtSetIndexing(t *testing.T) {
	tensor := Zeros(2, 3, 4)
	tensor.Set(9, 1, 2, 3)
	assert.Equal(t, float32(9), tensor.At(1, 2, 3))
	assert.Equal(t, float32(9), tensor.Flat()[23], "row-major layout")

	assert.Panics(t, func() { tensor.At(1, 2) }, "wrong number of indices")
}

func TestScalar(t *testing.T) {
	s := FromScalar(3)
	assert.Equal(t, 0, s.Rank())
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, float32(3), s.At())
}

func TestFull(t *testing.T) {
	tensor := Full(2.5, 2, 2)
	for _, v := range tensor.Flat() {
		assert.Equal(t, float32(2.5), v)
	}
	assert.True(t, Ones(3).Equal(Full(1, 3)))
}

func TestEqualAndInDelta(t *testing.T) {
	a, err := FromFlat([]float32{1, 2}, 2)
	require.NoError(t, err)
	b, err := FromFlat([]float32{1, 2.05}, 2)
	require.NoError(t, err)

	assert.False(t, a.Equal(b))
	assert.True(t, a.InDelta(b, 0.1))
	assert.False(t, a.InDelta(b, 0.01))
	assert.False(t, a.InDelta(nil, 1))

	c := Zeros(1, 2)
	assert.False(t, a.Equal(c), "same values, different shapes")
}
