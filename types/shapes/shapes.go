// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, the description of the dimensions of a tensor.
//
// A Shape holds the ordered list of dimensions of a tensor. The element type is
// always float32 in memory -- checkpoints may store values as float16, but that
// is a serialization concern, see the checkpoints package.
//
// Glossary:
//
//   - Rank: number of axes (dimensions) of a tensor.
//   - Axis: the index of a dimension; axis=-1 refers to the last axis.
//   - Dimension: the size of a tensor in one of its axes.
//
// Example: `[][]float32{{0, 1, 2}, {3, 4, 5}}` as a tensor has shape `[2 3]`:
// rank 2, axis 0 has dimension 2 and axis 1 has dimension 3. It would be
// created with `shapes.Make(2, 3)`.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
)

// Shape represents the shape of a tensor: its rank and dimensions.
//
// Use Make to create a new Shape. The zero value is an invalid shape with
// Ok() == false.
type Shape struct {
	Dimensions []int
}

// Make returns a Shape with the given dimensions. It panics if any dimension
// is <= 0 -- shapes are validated at creation, not at every use.
func Make(dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%v): cannot create a shape with an axis with dimension <= 0", dimensions)
		}
	}
	return s
}

// Scalar returns a rank-0 shape.
func Scalar() Shape {
	return Shape{Dimensions: []int{}}
}

// Ok returns whether this is a valid Shape: the zero value Shape{} is invalid.
func (s Shape) Ok() bool { return s.Dimensions != nil }

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar: rank == 0.
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can be negative, in which
// case it counts from the end -- axis=-1 is the last axis. It panics on an
// out-of-bounds axis, like slice indexing.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Size returns the number of elements needed for this shape: the product of
// all dimensions.
func (s Shape) Size() int {
	size := 1
	for _, dim := range s.Dimensions {
		size *= dim
	}
	return size
}

// Eq compares two shapes for equality of rank and dimensions.
func (s Shape) Eq(other Shape) bool {
	return slices.Equal(s.Dimensions, other.Dimensions)
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{Dimensions: slices.Clone(s.Dimensions)}
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements fmt.Stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.IsScalar() {
		return "(scalar)"
	}
	return fmt.Sprintf("%v", s.Dimensions)
}

// HasShape is implemented by any value with an associated Shape -- tensors,
// and Shape itself.
type HasShape interface {
	Shape() Shape
}
