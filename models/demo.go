// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package models

// SmallCNN builds a small convolutional classifier for square RGB images of
// the given size. It is the model the shell starts with when the user doesn't
// bring their own, and the fixture used throughout the tests.
//
// Structure (imageSize=32): Sequential[features=Sequential[Conv2D, ReLU,
// MaxPool2D, Conv2D, ReLU, MaxPool2D], Flatten, classifier=Sequential[Linear,
// ReLU, Linear]].
func SmallCNN(imageSize, numClasses int) *Sequential {
	// Two conv blocks, each halving the spatial resolution.
	features := NewSequential(
		NewConv2D(3, 8, 3, 1, 1),
		NewReLU(),
		NewMaxPool2D(2, 2),
		NewConv2D(8, 16, 3, 1, 1),
		NewReLU(),
		NewMaxPool2D(2, 2),
	)
	pooled := imageSize / 4
	flatSize := 16 * pooled * pooled
	classifier := NewSequential(
		NewLinear(flatSize, 64),
		NewReLU(),
		NewLinear(64, numClasses),
	)
	return NewSequential(features, NewFlatten(), classifier)
}
