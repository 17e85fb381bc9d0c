// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements a simple dense float32 tensor: a Shape plus a
// flat slice of values.
//
// It provides what the inspection engine and the shell need: detached copies
// (snapshots that later forward passes cannot mutate), shape introspection,
// and the elementwise/reduce operations used when post-processing captured
// activations (mean, max, relu, softmax, top-k). It is not a compute library;
// the layer implementations in the models package do their own loops over
// Flat().
package tensors

import (
	"fmt"
	"math"
	"strings"

	"github.com/layerscope/layerscope/types/shapes"
	"github.com/pkg/errors"
)

// Tensor is a dense float32 multidimensional array. Values are stored in
// row-major order.
//
// Tensors created with FromFlat alias the caller's slice; use Clone to get an
// independent snapshot.
type Tensor struct {
	shape shapes.Shape
	flat  []float32
}

// FromFlat creates a tensor with the given dimensions backed by flat. The
// slice is aliased, not copied. It returns an error if the number of values
// doesn't match the shape size.
func FromFlat(flat []float32, dimensions ...int) (*Tensor, error) {
	shape := shapes.Make(dimensions...)
	if len(flat) != shape.Size() {
		return nil, errors.Errorf("tensors.FromFlat: %d values given for shape %s (size %d)",
			len(flat), shape, shape.Size())
	}
	return &Tensor{shape: shape, flat: flat}, nil
}

// FromScalar creates a rank-0 tensor holding value.
func FromScalar(value float32) *Tensor {
	return &Tensor{shape: shapes.Scalar(), flat: []float32{value}}
}

// Zeros creates a tensor of the given dimensions filled with zeros.
func Zeros(dimensions ...int) *Tensor {
	shape := shapes.Make(dimensions...)
	return &Tensor{shape: shape, flat: make([]float32, shape.Size())}
}

// Ones creates a tensor of the given dimensions filled with ones.
func Ones(dimensions ...int) *Tensor {
	return Full(1, dimensions...)
}

// Full creates a tensor of the given dimensions filled with value.
func Full(value float32, dimensions ...int) *Tensor {
	t := Zeros(dimensions...)
	for ii := range t.flat {
		t.flat[ii] = value
	}
	return t
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// Rank of the tensor, the number of axes.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Dim returns the dimension of the given axis; negative axes count from the
// end.
func (t *Tensor) Dim(axis int) int { return t.shape.Dim(axis) }

// Size returns the total number of elements.
func (t *Tensor) Size() int { return len(t.flat) }

// Flat returns the underlying values in row-major order. The slice is aliased:
// mutations are visible through the tensor.
func (t *Tensor) Flat() []float32 { return t.flat }

// At returns the value at the given per-axis indices.
func (t *Tensor) At(indices ...int) float32 {
	return t.flat[t.flatIndex(indices)]
}

// Set assigns the value at the given per-axis indices.
func (t *Tensor) Set(value float32, indices ...int) {
	t.flat[t.flatIndex(indices)] = value
}

func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != t.Rank() {
		panic(errors.Errorf("tensor of rank %d indexed with %d indices", t.Rank(), len(indices)))
	}
	flatIdx := 0
	for axis, idx := range indices {
		flatIdx = flatIdx*t.shape.Dimensions[axis] + idx
	}
	return flatIdx
}

// Clone returns an independent (detached) copy of the tensor: no storage is
// shared, later writes to t are not observed by the clone.
func (t *Tensor) Clone() *Tensor {
	flat := make([]float32, len(t.flat))
	copy(flat, t.flat)
	return &Tensor{shape: t.shape.Clone(), flat: flat}
}

// Reshape returns a view of the tensor with new dimensions -- same backing
// values, so the sizes must match.
func (t *Tensor) Reshape(dimensions ...int) (*Tensor, error) {
	shape := shapes.Make(dimensions...)
	if shape.Size() != t.Size() {
		return nil, errors.Errorf("cannot reshape %s (size %d) to %s (size %d)",
			t.shape, t.Size(), shape, shape.Size())
	}
	return &Tensor{shape: shape, flat: t.flat}, nil
}

// Equal compares shape and values for exact equality.
func (t *Tensor) Equal(other *Tensor) bool {
	return t.InDelta(other, 0)
}

// InDelta compares shapes, and that every pair of values is within delta of
// each other. NaNs never compare equal.
func (t *Tensor) InDelta(other *Tensor, delta float64) bool {
	if other == nil || !t.shape.Eq(other.shape) {
		return false
	}
	for ii, value := range t.flat {
		diff := math.Abs(float64(value) - float64(other.flat[ii]))
		if math.IsNaN(diff) || diff > delta {
			return false
		}
	}
	return true
}

// String pretty-prints the shape and the first few values.
func (t *Tensor) String() string {
	const maxValues = 8
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s{", t.shape)
	for ii, value := range t.flat {
		if ii >= maxValues {
			fmt.Fprintf(&sb, ", … (%d values)", len(t.flat))
			break
		}
		if ii > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%g", value)
	}
	sb.WriteString("}")
	return sb.String()
}
