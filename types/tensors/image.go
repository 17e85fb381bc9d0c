// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// This file converts between image.Image and the CHW float tensors the models
// consume.

// FromImage converts an image to a [1, C, H, W] tensor with values scaled to
// [0, 1]. Grayscale images produce C=1, everything else C=3.
func FromImage(img image.Image) *Tensor {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if _, isGray := img.(*image.Gray); isGray {
		t := Zeros(1, 1, height, width)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				gray, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				t.Set(float32(gray)/0xffff, 0, 0, y, x)
			}
		}
		return t
	}
	t := Zeros(1, 3, height, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			t.Set(float32(r)/0xffff, 0, 0, y, x)
			t.Set(float32(g)/0xffff, 0, 1, y, x)
			t.Set(float32(b)/0xffff, 0, 2, y, x)
		}
	}
	return t
}

// ToImage converts a tensor back to an image. Accepted layouts: [H, W] (gray),
// [C, H, W] and [1, C, H, W] with C of 1 or 3. Values are clamped to [0, 1].
func (t *Tensor) ToImage() (image.Image, error) {
	layout := t
	if layout.Rank() == 4 && layout.Dim(0) == 1 {
		var err error
		layout, err = layout.Reshape(layout.Dim(1), layout.Dim(2), layout.Dim(3))
		if err != nil {
			return nil, err
		}
	}
	if layout.Rank() == 2 {
		var err error
		layout, err = layout.Reshape(1, layout.Dim(0), layout.Dim(1))
		if err != nil {
			return nil, err
		}
	}
	if layout.Rank() != 3 {
		return nil, errors.Errorf("cannot convert tensor %s to an image", t.shape)
	}
	numChannels, height, width := layout.Dim(0), layout.Dim(1), layout.Dim(2)
	if numChannels != 1 && numChannels != 3 {
		return nil, errors.Errorf("cannot convert tensor with %d channels to an image", numChannels)
	}

	if numChannels == 1 {
		img := image.NewGray(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetGray(x, y, color.Gray{Y: toByte(layout.At(0, y, x))})
			}
		}
		return img, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(layout.At(0, y, x)),
				G: toByte(layout.At(1, y, x)),
				B: toByte(layout.At(2, y, x)),
				A: 0xff,
			})
		}
	}
	return img, nil
}

func toByte(value float32) uint8 {
	if value <= 0 {
		return 0
	}
	if value >= 1 {
		return 0xff
	}
	return uint8(value*255 + 0.5)
}
