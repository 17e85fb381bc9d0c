// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

// Package inspect is the model-tree navigation and runtime-hook inspection
// engine.
//
// It treats a model (a models.Layer tree) as an addressable tree of
// positions: a Path is the sequence of child indices taken from the root.
// The navigator answers "first layer of a kind", "last layer of a kind" and
// "the leaf next to this position" queries; a Session owns a loaded model,
// the current cursor position and a lazily built cache of visited positions;
// and the hook Controller attaches observation taps that snapshot a layer's
// output into a Capture as forward passes run.
//
// Everything is single-threaded: the engine is driven strictly call/return
// from the interactive command loop, and all cursor and cache mutation
// happens between forward passes, never during one.
package inspect

import (
	"github.com/pkg/errors"
)

// Errors of the inspection engine. The negative-but-expected conditions
// (ErrBoundary, and the navigator's "not found" false returns) are normal
// results of interactive probing, not failures: callers report them and move
// on.
var (
	// ErrInvalidPath means a Path does not resolve to a node in the current
	// model: some index is out of range at some depth.
	ErrInvalidPath = errors.New("path does not resolve in the current model")

	// ErrBoundary means an up/down navigation hit the edge of the leaf
	// sequence. The cursor is left unchanged.
	ErrBoundary = errors.New("boundary of the model reached")

	// ErrNoCapture means a capture store was read before any forward pass
	// populated it.
	ErrNoCapture = errors.New("no output captured yet")

	// ErrHookInactive means a detach was attempted on a hook that is no
	// longer attached.
	ErrHookInactive = errors.New("hook is not attached")
)
