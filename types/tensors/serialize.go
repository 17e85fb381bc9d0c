// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Serialization of tensor values for checkpoints: little-endian float32, or
// half-precision float16 (github.com/x448/float16) for smaller files.

// EncodeFloat32 returns the values as little-endian float32 bytes.
func (t *Tensor) EncodeFloat32() []byte {
	data := make([]byte, 4*len(t.flat))
	for ii, value := range t.flat {
		binary.LittleEndian.PutUint32(data[4*ii:], math.Float32bits(value))
	}
	return data
}

// DecodeFloat32 builds a tensor from little-endian float32 bytes.
func DecodeFloat32(data []byte, dimensions ...int) (*Tensor, error) {
	if len(data)%4 != 0 {
		return nil, errors.Errorf("DecodeFloat32: %d bytes is not a multiple of 4", len(data))
	}
	flat := make([]float32, len(data)/4)
	for ii := range flat {
		flat[ii] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*ii:]))
	}
	return FromFlat(flat, dimensions...)
}

// EncodeFloat16 returns the values as little-endian IEEE 754 half-precision
// bytes. Conversion is lossy (11 bits of mantissa).
func (t *Tensor) EncodeFloat16() []byte {
	data := make([]byte, 2*len(t.flat))
	for ii, value := range t.flat {
		binary.LittleEndian.PutUint16(data[2*ii:], float16.Fromfloat32(value).Bits())
	}
	return data
}

// DecodeFloat16 builds a float32 tensor from little-endian half-precision
// bytes.
func DecodeFloat16(data []byte, dimensions ...int) (*Tensor, error) {
	if len(data)%2 != 0 {
		return nil, errors.Errorf("DecodeFloat16: %d bytes is not a multiple of 2", len(data))
	}
	flat := make([]float32, len(data)/2)
	for ii := range flat {
		flat[ii] = float16.Frombits(binary.LittleEndian.Uint16(data[2*ii:])).Float32()
	}
	return FromFlat(flat, dimensions...)
}
