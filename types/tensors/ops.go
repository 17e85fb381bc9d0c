// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"math"
	"sort"

	"github.com/layerscope/layerscope/types/shapes"
	"github.com/pkg/errors"
)

// This file implements the elementwise and reduction operations used to
// post-process captured layer outputs.

// Mean returns the mean of all values. Returns 0 for an empty tensor.
func (t *Tensor) Mean() float32 {
	if len(t.flat) == 0 {
		return 0
	}
	var sum float64
	for _, value := range t.flat {
		sum += float64(value)
	}
	return float32(sum / float64(len(t.flat)))
}

// Max returns the largest value.
func (t *Tensor) Max() float32 {
	max := float32(math.Inf(-1))
	for _, value := range t.flat {
		if value > max {
			max = value
		}
	}
	return max
}

// Min returns the smallest value.
func (t *Tensor) Min() float32 {
	min := float32(math.Inf(1))
	for _, value := range t.flat {
		if value < min {
			min = value
		}
	}
	return min
}

// ArgMax returns the flat index of the largest value, -1 if the tensor is
// empty. Ties resolve to the earliest index.
func (t *Tensor) ArgMax() int {
	best := -1
	for ii, value := range t.flat {
		if best == -1 || value > t.flat[best] {
			best = ii
		}
	}
	return best
}

// TopK returns the indices and values of the k largest elements, in
// descending order of value. If k > Size(), all elements are returned.
func (t *Tensor) TopK(k int) (indices []int, values []float32) {
	if k > len(t.flat) {
		k = len(t.flat)
	}
	indices = make([]int, len(t.flat))
	for ii := range indices {
		indices[ii] = ii
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return t.flat[indices[a]] > t.flat[indices[b]]
	})
	indices = indices[:k]
	values = make([]float32, k)
	for ii, idx := range indices {
		values[ii] = t.flat[idx]
	}
	return
}

// ReLU returns a new tensor with max(0, x) applied elementwise.
func (t *Tensor) ReLU() *Tensor {
	result := t.Clone()
	for ii, value := range result.flat {
		if value < 0 {
			result.flat[ii] = 0
		}
	}
	return result
}

// Softmax returns a new tensor with softmax applied over the last axis.
// Scalars are returned as 1.
func (t *Tensor) Softmax() *Tensor {
	result := t.Clone()
	rowSize := 1
	if t.Rank() > 0 {
		rowSize = t.Dim(-1)
	}
	for start := 0; start < len(result.flat); start += rowSize {
		row := result.flat[start : start+rowSize]
		max := float32(math.Inf(-1))
		for _, value := range row {
			if value > max {
				max = value
			}
		}
		var sum float64
		for ii, value := range row {
			e := float32(math.Exp(float64(value - max)))
			row[ii] = e
			sum += float64(e)
		}
		for ii := range row {
			row[ii] = float32(float64(row[ii]) / sum)
		}
	}
	return result
}

// AddScalar returns a new tensor with c added to every value.
func (t *Tensor) AddScalar(c float32) *Tensor {
	result := t.Clone()
	for ii := range result.flat {
		result.flat[ii] += c
	}
	return result
}

// MulScalar returns a new tensor with every value multiplied by c.
func (t *Tensor) MulScalar(c float32) *Tensor {
	result := t.Clone()
	for ii := range result.flat {
		result.flat[ii] *= c
	}
	return result
}

// Normalize01 returns a new tensor rescaled to the range [0, 1]. A constant
// tensor normalizes to all zeros.
func (t *Tensor) Normalize01() *Tensor {
	result := t.Clone()
	min, max := t.Min(), t.Max()
	span := max - min
	if span == 0 {
		for ii := range result.flat {
			result.flat[ii] = 0
		}
		return result
	}
	for ii := range result.flat {
		result.flat[ii] = (result.flat[ii] - min) / span
	}
	return result
}

// channels interprets the tensor as a batch-1 stack of channels: shape
// [1, C, ...] or [C, ...], with rank >= 2 required for the leading batch form.
// It returns the number of channels and the size of each channel block.
func (t *Tensor) channels() (numChannels, blockSize int, offset int, err error) {
	switch {
	case t.Rank() >= 2 && t.Dim(0) == 1:
		numChannels = t.Dim(1)
		blockSize = t.Size() / numChannels
	case t.Rank() >= 1:
		numChannels = t.Dim(0)
		blockSize = t.Size() / numChannels
	default:
		return 0, 0, 0, errors.Errorf("tensor %s has no channel axis", t.shape)
	}
	return
}

// ChannelMeans reduces each channel to its mean, returning a rank-1 tensor of
// length C. The tensor is interpreted as [1, C, ...] (batch of one) or
// [C, ...]. For a [1, N] tensor this is the identity on the N values, which is
// what makes it a safe default reduction for bar charts of any layer output.
func (t *Tensor) ChannelMeans() (*Tensor, error) {
	return t.reducePerChannel(func(block []float32) float32 {
		var sum float64
		for _, value := range block {
			sum += float64(value)
		}
		return float32(sum / float64(len(block)))
	})
}

// ChannelMaxes reduces each channel to its maximum, returning a rank-1 tensor
// of length C. See ChannelMeans for the accepted layouts.
func (t *Tensor) ChannelMaxes() (*Tensor, error) {
	return t.reducePerChannel(func(block []float32) float32 {
		max := float32(math.Inf(-1))
		for _, value := range block {
			if value > max {
				max = value
			}
		}
		return max
	})
}

func (t *Tensor) reducePerChannel(reduce func([]float32) float32) (*Tensor, error) {
	numChannels, blockSize, offset, err := t.channels()
	if err != nil {
		return nil, err
	}
	flat := make([]float32, numChannels)
	for c := 0; c < numChannels; c++ {
		start := offset + c*blockSize
		flat[c] = reduce(t.flat[start : start+blockSize])
	}
	return &Tensor{shape: shapes.Make(numChannels), flat: flat}, nil
}

// ChannelCombine computes the weighted sum of the channels of activations:
// weights is a vector of C values ([C] or [1, C]), activations has shape
// [C, H, W] or [1, C, H, W], and the result has shape [H, W]. This is the
// class-activation-map contraction: weights.reshape(1, C) @
// activations.reshape(C, H*W), reshaped back to (H, W).
func ChannelCombine(weights, activations *Tensor) (*Tensor, error) {
	wFlat := weights.flat
	act := activations
	if act.Rank() == 4 && act.Dim(0) == 1 {
		var err error
		act, err = act.Reshape(act.Dim(1), act.Dim(2), act.Dim(3))
		if err != nil {
			return nil, err
		}
	}
	if act.Rank() != 3 {
		return nil, errors.Errorf("ChannelCombine: activations must be [C, H, W] or [1, C, H, W], got %s",
			activations.shape)
	}
	numChannels, height, width := act.Dim(0), act.Dim(1), act.Dim(2)
	if len(wFlat) != numChannels {
		return nil, errors.Errorf("ChannelCombine: %d weights for %d channels", len(wFlat), numChannels)
	}
	result := Zeros(height, width)
	planeSize := height * width
	for c := 0; c < numChannels; c++ {
		w := wFlat[c]
		plane := act.flat[c*planeSize : (c+1)*planeSize]
		for ii, value := range plane {
			result.flat[ii] += w * value
		}
	}
	return result, nil
}
