// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package models

import (
	"math"
	"math/rand"

	"github.com/layerscope/layerscope/types/tensors"
	"github.com/pkg/errors"
)

// Concrete leaf layers. All compute on batch-of-one tensors: images are
// [1, C, H, W], features are [1, N]. That is the shape the interactive shell
// feeds them; batching is out of scope here.

// initRNG seeds the default weight initialization. Deterministic so that a
// freshly built model is reproducible before a checkpoint is loaded.
var initRNG = rand.New(rand.NewSource(42))

func randomUniform(dimensions ...int) *tensors.Tensor {
	t := tensors.Zeros(dimensions...)
	flat := t.Flat()
	for ii := range flat {
		flat[ii] = float32(initRNG.Float64()*0.2 - 0.1)
	}
	return t
}

// Conv2D is a 2D convolution layer with square kernels.
type Conv2D struct {
	hookable
	inChannels, outChannels  int
	kernelSize, stride, padding int

	weight, bias, weightGrad *tensors.Tensor
}

// NewConv2D creates a convolution layer. weight has shape
// [outChannels, inChannels, kernelSize, kernelSize], bias [outChannels], and
// both are randomly initialized.
func NewConv2D(inChannels, outChannels, kernelSize, stride, padding int) *Conv2D {
	return &Conv2D{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		weight:      randomUniform(outChannels, inChannels, kernelSize, kernelSize),
		bias:        tensors.Zeros(outChannels),
	}
}

// Kind implements Layer.
func (c *Conv2D) Kind() Kind { return KindConv2D }

// Children implements Layer.
func (c *Conv2D) Children() []Layer { return nil }

// Forward implements Layer: x is [1, inChannels, H, W].
func (c *Conv2D) Forward(x *tensors.Tensor) (*tensors.Tensor, error) {
	if x.Rank() != 4 || x.Dim(0) != 1 || x.Dim(1) != c.inChannels {
		return nil, errors.Errorf("Conv2D: want input [1, %d, H, W], got %s", c.inChannels, x.Shape())
	}
	height, width := x.Dim(2), x.Dim(3)
	outHeight := (height+2*c.padding-c.kernelSize)/c.stride + 1
	outWidth := (width+2*c.padding-c.kernelSize)/c.stride + 1
	if outHeight <= 0 || outWidth <= 0 {
		return nil, errors.Errorf("Conv2D: input %s too small for kernel %d", x.Shape(), c.kernelSize)
	}
	out := tensors.Zeros(1, c.outChannels, outHeight, outWidth)
	for oc := 0; oc < c.outChannels; oc++ {
		for oy := 0; oy < outHeight; oy++ {
			for ox := 0; ox < outWidth; ox++ {
				sum := c.bias.At(oc)
				for ic := 0; ic < c.inChannels; ic++ {
					for ky := 0; ky < c.kernelSize; ky++ {
						for kx := 0; kx < c.kernelSize; kx++ {
							y := oy*c.stride + ky - c.padding
							x0 := ox*c.stride + kx - c.padding
							if y < 0 || y >= height || x0 < 0 || x0 >= width {
								continue
							}
							sum += x.At(0, ic, y, x0) * c.weight.At(oc, ic, ky, kx)
						}
					}
				}
				out.Set(sum, 0, oc, oy, ox)
			}
		}
	}
	c.fire(c, out)
	return out, nil
}

// Weight returns the [out, in, k, k] kernel tensor.
func (c *Conv2D) Weight() *tensors.Tensor { return c.weight }

// Bias returns the [out] bias tensor.
func (c *Conv2D) Bias() *tensors.Tensor { return c.bias }

// WeightGrad returns the gradient of the weights, or nil if none has been
// recorded.
func (c *Conv2D) WeightGrad() *tensors.Tensor { return c.weightGrad }

// SetWeight replaces the kernel tensor, checking the shape.
func (c *Conv2D) SetWeight(w *tensors.Tensor) error {
	if !w.Shape().Eq(c.weight.Shape()) {
		return errors.Errorf("Conv2D.SetWeight: want shape %s, got %s", c.weight.Shape(), w.Shape())
	}
	c.weight = w
	return nil
}

// SetBias replaces the bias tensor, checking the shape.
func (c *Conv2D) SetBias(b *tensors.Tensor) error {
	if !b.Shape().Eq(c.bias.Shape()) {
		return errors.Errorf("Conv2D.SetBias: want shape %s, got %s", c.bias.Shape(), b.Shape())
	}
	c.bias = b
	return nil
}

// SetWeightGrad records a weight gradient, checking the shape.
func (c *Conv2D) SetWeightGrad(g *tensors.Tensor) error {
	if g != nil && !g.Shape().Eq(c.weight.Shape()) {
		return errors.Errorf("Conv2D.SetWeightGrad: want shape %s, got %s", c.weight.Shape(), g.Shape())
	}
	c.weightGrad = g
	return nil
}

// Linear is a fully connected layer: y = W @ x + b.
type Linear struct {
	hookable
	inFeatures, outFeatures  int
	weight, bias, weightGrad *tensors.Tensor
}

// NewLinear creates a fully connected layer with weight [out, in] and bias
// [out], randomly initialized.
func NewLinear(inFeatures, outFeatures int) *Linear {
	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      randomUniform(outFeatures, inFeatures),
		bias:        tensors.Zeros(outFeatures),
	}
}

// Kind implements Layer.
func (l *Linear) Kind() Kind { return KindLinear }

// Children implements Layer.
func (l *Linear) Children() []Layer { return nil }

// Forward implements Layer: x is [1, inFeatures].
func (l *Linear) Forward(x *tensors.Tensor) (*tensors.Tensor, error) {
	if x.Rank() != 2 || x.Dim(0) != 1 || x.Dim(1) != l.inFeatures {
		return nil, errors.Errorf("Linear: want input [1, %d], got %s", l.inFeatures, x.Shape())
	}
	out := tensors.Zeros(1, l.outFeatures)
	xFlat := x.Flat()
	for o := 0; o < l.outFeatures; o++ {
		sum := l.bias.At(o)
		row := l.weight.Flat()[o*l.inFeatures : (o+1)*l.inFeatures]
		for i, w := range row {
			sum += w * xFlat[i]
		}
		out.Set(sum, 0, o)
	}
	l.fire(l, out)
	return out, nil
}

// Weight returns the [out, in] weight tensor.
func (l *Linear) Weight() *tensors.Tensor { return l.weight }

// Bias returns the [out] bias tensor.
func (l *Linear) Bias() *tensors.Tensor { return l.bias }

// WeightGrad returns the gradient of the weights, or nil if none has been
// recorded.
func (l *Linear) WeightGrad() *tensors.Tensor { return l.weightGrad }

// SetWeight replaces the weight tensor, checking the shape.
func (l *Linear) SetWeight(w *tensors.Tensor) error {
	if !w.Shape().Eq(l.weight.Shape()) {
		return errors.Errorf("Linear.SetWeight: want shape %s, got %s", l.weight.Shape(), w.Shape())
	}
	l.weight = w
	return nil
}

// SetBias replaces the bias tensor, checking the shape.
func (l *Linear) SetBias(b *tensors.Tensor) error {
	if !b.Shape().Eq(l.bias.Shape()) {
		return errors.Errorf("Linear.SetBias: want shape %s, got %s", l.bias.Shape(), b.Shape())
	}
	l.bias = b
	return nil
}

// SetWeightGrad records a weight gradient, checking the shape.
func (l *Linear) SetWeightGrad(g *tensors.Tensor) error {
	if g != nil && !g.Shape().Eq(l.weight.Shape()) {
		return errors.Errorf("Linear.SetWeightGrad: want shape %s, got %s", l.weight.Shape(), g.Shape())
	}
	l.weightGrad = g
	return nil
}

// ReLU applies max(0, x) elementwise.
type ReLU struct {
	hookable
}

// NewReLU creates a ReLU activation layer.
func NewReLU() *ReLU { return &ReLU{} }

// Kind implements Layer.
func (r *ReLU) Kind() Kind { return KindReLU }

// Children implements Layer.
func (r *ReLU) Children() []Layer { return nil }

// Forward implements Layer.
func (r *ReLU) Forward(x *tensors.Tensor) (*tensors.Tensor, error) {
	out := x.ReLU()
	r.fire(r, out)
	return out, nil
}

// MaxPool2D downsamples [1, C, H, W] inputs by taking the maximum over
// square windows.
type MaxPool2D struct {
	hookable
	kernelSize, stride int
}

// NewMaxPool2D creates a max-pooling layer.
func NewMaxPool2D(kernelSize, stride int) *MaxPool2D {
	return &MaxPool2D{kernelSize: kernelSize, stride: stride}
}

// Kind implements Layer.
func (m *MaxPool2D) Kind() Kind { return KindMaxPool2D }

// Children implements Layer.
func (m *MaxPool2D) Children() []Layer { return nil }

// Forward implements Layer.
func (m *MaxPool2D) Forward(x *tensors.Tensor) (*tensors.Tensor, error) {
	if x.Rank() != 4 || x.Dim(0) != 1 {
		return nil, errors.Errorf("MaxPool2D: want input [1, C, H, W], got %s", x.Shape())
	}
	numChannels, height, width := x.Dim(1), x.Dim(2), x.Dim(3)
	outHeight := (height-m.kernelSize)/m.stride + 1
	outWidth := (width-m.kernelSize)/m.stride + 1
	if outHeight <= 0 || outWidth <= 0 {
		return nil, errors.Errorf("MaxPool2D: input %s too small for kernel %d", x.Shape(), m.kernelSize)
	}
	out := tensors.Zeros(1, numChannels, outHeight, outWidth)
	for c := 0; c < numChannels; c++ {
		for oy := 0; oy < outHeight; oy++ {
			for ox := 0; ox < outWidth; ox++ {
				max := float32(math.Inf(-1))
				for ky := 0; ky < m.kernelSize; ky++ {
					for kx := 0; kx < m.kernelSize; kx++ {
						value := x.At(0, c, oy*m.stride+ky, ox*m.stride+kx)
						if value > max {
							max = value
						}
					}
				}
				out.Set(max, 0, c, oy, ox)
			}
		}
	}
	m.fire(m, out)
	return out, nil
}

// Flatten reshapes [1, ...] inputs to [1, N].
type Flatten struct {
	hookable
}

// NewFlatten creates a flattening layer.
func NewFlatten() *Flatten { return &Flatten{} }

// Kind implements Layer.
func (f *Flatten) Kind() Kind { return KindFlatten }

// Children implements Layer.
func (f *Flatten) Children() []Layer { return nil }

// Forward implements Layer.
func (f *Flatten) Forward(x *tensors.Tensor) (*tensors.Tensor, error) {
	if x.Rank() < 1 || x.Dim(0) != 1 {
		return nil, errors.Errorf("Flatten: want a batch-of-one input, got %s", x.Shape())
	}
	out, err := x.Reshape(1, x.Size())
	if err != nil {
		return nil, err
	}
	f.fire(f, out)
	return out, nil
}
