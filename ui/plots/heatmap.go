package plots

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/layerscope/layerscope/types/tensors"
	"github.com/pkg/errors"
)

// OverlayCAM composes a class-activation heatmap over its input image: the
// cam matrix ([H, W]) is normalized to [0, 1], color-mapped with a jet-like
// ramp, resized to the base image (Catmull-Rom, a bicubic filter) and
// alpha-blended on top.
func OverlayCAM(base, cam *tensors.Tensor, alpha float64) (image.Image, error) {
	if alpha <= 0 {
		alpha = 0.5
	}
	baseImg, err := base.ToImage()
	if err != nil {
		return nil, errors.WithMessagef(err, "heatmap base image")
	}
	if cam.Rank() != 2 {
		return nil, errors.Errorf("heatmap wants a [H, W] activation map, got %s", cam.Shape())
	}

	normalized := cam.Normalize01()
	camHeight, camWidth := cam.Dim(0), cam.Dim(1)
	camImg := image.NewRGBA(image.Rect(0, 0, camWidth, camHeight))
	for y := 0; y < camHeight; y++ {
		for x := 0; x < camWidth; x++ {
			camImg.SetRGBA(x, y, JetColor(normalized.At(y, x)))
		}
	}

	bounds := baseImg.Bounds()
	resized := imaging.Resize(camImg, bounds.Dx(), bounds.Dy(), imaging.CatmullRom)
	blended := imaging.Overlay(baseImg, resized, image.Pt(0, 0), alpha)
	return blended, nil
}

// JetColor maps a value in [0, 1] onto the classic blue-cyan-yellow-red
// "jet" color ramp.
func JetColor(value float32) color.RGBA {
	v := float64(value)
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	r := clampUnit(1.5 - abs(4*v-3))
	g := clampUnit(1.5 - abs(4*v-2))
	b := clampUnit(1.5 - abs(4*v-1))
	return color.RGBA{
		R: uint8(r*255 + 0.5),
		G: uint8(g*255 + 0.5),
		B: uint8(b*255 + 0.5),
		A: 0xff,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
