// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provides missing functionality to the standard slices
// package.
package xslices

import (
	"golang.org/x/exp/constraints"
)

// At returns the element at the given index, where index can be negative, in
// which case it counts from the end of the slice.
func At[T any](slice []T, index int) T {
	if index < 0 {
		index = len(slice) + index
	}
	return slice[index]
}

// Last returns the last element of a slice.
func Last[T any](slice []T) T {
	return At(slice, -1)
}

// Copy creates a new (shallow) copy of the slice. A shortcut to a call to
// `make` followed by `copy`.
func Copy[T any](slice []T) []T {
	if len(slice) == 0 {
		return nil
	}
	slice2 := make([]T, len(slice))
	copy(slice2, slice)
	return slice2
}

// Iota returns a slice of incremental int values, starting with start and of
// the given length.
func Iota[T constraints.Integer](start T, length int) []T {
	slice := make([]T, length)
	for ii := range slice {
		slice[ii] = start + T(ii)
	}
	return slice
}

// ArgMax returns the index of the largest element of the slice, or -1 if the
// slice is empty. Ties resolve to the earliest index.
func ArgMax[T constraints.Ordered](slice []T) int {
	best := -1
	for ii, value := range slice {
		if best == -1 || value > slice[best] {
			best = ii
		}
	}
	return best
}

// Map applies fn to each element of the slice, returning a new slice with the
// results.
func Map[In, Out any](slice []In, fn func(In) Out) []Out {
	result := make([]Out, len(slice))
	for ii, value := range slice {
		result[ii] = fn(value)
	}
	return result
}
