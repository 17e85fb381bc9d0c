// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFloat32(t *testing.T) {
	original := fromValues(t, []float32{0, -1.5, 3.25e7, 1e-20}, 2, 2)
	data := original.EncodeFloat32()
	assert.Len(t, data, 16)

	decoded, err := DecodeFloat32(data, 2, 2)
	require.NoError(t, err)
	assert.True(t, original.Equal(decoded))

	_, err = DecodeFloat32(data[:3], 1)
	assert.Error(t, err)
	_, err = DecodeFloat32(data, 5)
	assert.Error(t, err, "shape size must match the byte count")
}

func TestEncodeDecodeFloat16(t *testing.T) {
	original := fromValues(t, []float32{0, 1, -0.5, 0.333}, 4)
	data := original.EncodeFloat16()
	assert.Len(t, data, 8)

	decoded, err := DecodeFloat16(data, 4)
	require.NoError(t, err)
	// Half precision keeps ~11 mantissa bits.
	assert.True(t, original.InDelta(decoded, 1.0/1024))

	_, err = DecodeFloat16(data[:3], 1)
	assert.Error(t, err)
}
