// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

// Package data loads the images the shell feeds to models: single image
// files, and labeled datasets laid out as one directory per class.
package data

import (
	"image"
	"os"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/layerscope/layerscope/types/tensors"
	"github.com/pkg/errors"
)

// DefaultImageSize is the square size images are resized to before being fed
// to a model.
const DefaultImageSize = 224

// ErrExhausted is returned by Dataset.Next when the current class directory
// has no more images. The last loaded image stays current.
var ErrExhausted = errors.New("no more images in the current class")

// Transform is one step of the image preprocessing chain.
type Transform func(image.Image) image.Image

// Resize returns a transform that resizes to a square of the given size,
// with Lanczos resampling.
func Resize(size int) Transform {
	return func(img image.Image) image.Image {
		return imaging.Resize(img, size, size, imaging.Lanczos)
	}
}

// Grayscale returns a transform converting to grayscale.
func Grayscale() Transform {
	return func(img image.Image) image.Image {
		return imaging.Grayscale(img)
	}
}

// FlipH returns a transform mirroring the image horizontally.
func FlipH() Transform {
	return func(img image.Image) image.Image {
		return imaging.FlipH(img)
	}
}

// LoadImage reads one image file, resizes it to size x size and converts it
// to a [1, C, H, W] tensor with values in [0, 1].
func LoadImage(path string, size int) (*tensors.Tensor, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", path)
	}
	img = imaging.Resize(img, size, size, imaging.Lanczos)
	return tensors.FromImage(img), nil
}

// Dataset walks a labeled image dataset: a root directory holding one
// subdirectory per class (sorted by name), each containing image files. It
// produces one image per Next call, loaded lazily on Load; changing class
// restarts the walk.
type Dataset struct {
	rootDir    string
	classes    []string
	classIdx   int
	files      []string
	fileIdx    int
	current    string
	transforms []Transform
}

// NewDataset opens the dataset rooted at rootDir and positions it on class
// 0. The default transform chain resizes to DefaultImageSize.
func NewDataset(rootDir string) (*Dataset, error) {
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset %q", rootDir)
	}
	ds := &Dataset{
		rootDir:    rootDir,
		transforms: []Transform{Resize(DefaultImageSize)},
	}
	for _, entry := range entries {
		if entry.IsDir() {
			ds.classes = append(ds.classes, entry.Name())
		}
	}
	if len(ds.classes) == 0 {
		return nil, errors.Errorf("dataset %q has no class directories", rootDir)
	}
	sort.Strings(ds.classes)
	if err = ds.SetClass(0); err != nil {
		return nil, err
	}
	return ds, nil
}

// Classes returns the sorted class directory names.
func (ds *Dataset) Classes() []string { return ds.classes }

// Class returns the index of the current class.
func (ds *Dataset) Class() int { return ds.classIdx }

// SetClass switches the walk to the class with the given index and restarts
// it. Fails without changing state if the index is out of range.
func (ds *Dataset) SetClass(index int) error {
	if index < 0 || index >= len(ds.classes) {
		return errors.Errorf("class index %d out of range, dataset has %d classes", index, len(ds.classes))
	}
	classDir := ds.classDir(index)
	entries, err := os.ReadDir(classDir)
	if err != nil {
		return errors.Wrapf(err, "failed to list class directory %q", classDir)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	ds.classIdx = index
	ds.files = files
	ds.fileIdx = 0
	ds.current = ""
	return nil
}

func (ds *Dataset) classDir(index int) string {
	return ds.rootDir + string(os.PathSeparator) + ds.classes[index]
}

// Next advances to the next image of the current class, returning its full
// path and file name. At the end of the class it returns ErrExhausted and
// keeps the last image current.
func (ds *Dataset) Next() (path, name string, err error) {
	if ds.fileIdx >= len(ds.files) {
		return "", "", ErrExhausted
	}
	name = ds.files[ds.fileIdx]
	ds.fileIdx++
	path = ds.classDir(ds.classIdx) + string(os.PathSeparator) + name
	ds.current = path
	return path, name, nil
}

// Load reads the current image, applies the transform chain and converts it
// to a [1, C, H, W] tensor. Call Next at least once first.
func (ds *Dataset) Load() (*tensors.Tensor, error) {
	if ds.current == "" {
		return nil, errors.Errorf("no current image, call Next first")
	}
	img, err := imaging.Open(ds.current)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", ds.current)
	}
	for _, transform := range ds.transforms {
		img = transform(img)
	}
	return tensors.FromImage(img), nil
}

// AddTransform inserts a transform at the given position of the chain;
// index -1 appends.
func (ds *Dataset) AddTransform(t Transform, index int) {
	if index < 0 || index >= len(ds.transforms) {
		ds.transforms = append(ds.transforms, t)
		return
	}
	ds.transforms = append(ds.transforms[:index],
		append([]Transform{t}, ds.transforms[index:]...)...)
}

// RemoveTransform removes the transform at the given position of the chain.
func (ds *Dataset) RemoveTransform(index int) error {
	if index < 0 || index >= len(ds.transforms) {
		return errors.Errorf("transform index %d out of range (%d transforms)", index, len(ds.transforms))
	}
	ds.transforms = append(ds.transforms[:index], ds.transforms[index+1:]...)
	return nil
}

// SetImageSize replaces the trailing resize of the transform chain: it
// resets the chain to a single Resize(size).
func (ds *Dataset) SetImageSize(size int) {
	ds.transforms = []Transform{Resize(size)}
}
