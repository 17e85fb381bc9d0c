// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"github.com/layerscope/layerscope/models"
)

// Tree navigation queries. All traversal is depth-first pre-order (a node is
// visited before its children, children left to right), with the root visited
// first at the empty path. Results are returned by value; no traversal state
// outlives a call.
//
// All three queries report misses with found=false: a miss is a normal
// negative answer ("no such layer", "already at the edge"), not an error.

// Direction of leaf-sequence navigation for FindAdjacent.
type Direction int

const (
	// Up moves to the leaf preceding the anchor in pre-order.
	Up Direction = -1
	// Down moves to the leaf following the anchor in pre-order.
	Down Direction = 1
)

// FindFirstOfKind returns the first layer of the given kind in pre-order,
// with its path. The root itself is eligible: eligibility is decided by the
// kind predicate, not by the traversal.
func FindFirstOfKind(root models.Layer, kind models.Kind) (Path, models.Layer, bool) {
	return findFirst(root, nil, kind)
}

func findFirst(layer models.Layer, path Path, kind models.Kind) (Path, models.Layer, bool) {
	if layer.Kind() == kind {
		return path.Clone(), layer, true
	}
	for ii, child := range layer.Children() {
		if foundPath, found, ok := findFirst(child, path.Child(ii), kind); ok {
			return foundPath, found, true
		}
	}
	return nil, nil, false
}

// FindLastOfKind returns the layer of the given kind visited last in
// pre-order, with its path. "Last" is traversal order, not lexicographic
// path order: every new match overwrites the previous one, so a match in a
// deep early subtree loses to a later shallow match.
func FindLastOfKind(root models.Layer, kind models.Kind) (Path, models.Layer, bool) {
	var lastPath Path
	var last models.Layer
	var visit func(layer models.Layer, path Path)
	visit = func(layer models.Layer, path Path) {
		if layer.Kind() == kind {
			lastPath, last = path.Clone(), layer
		}
		for ii, child := range layer.Children() {
			visit(child, path.Child(ii))
		}
	}
	visit(root, nil)
	if last == nil {
		return nil, nil, false
	}
	return lastPath, last, true
}

// leaf is one entry of the model's leaf sequence.
type leaf struct {
	path  Path
	layer models.Layer
}

// leafSequence returns the childless nodes of the tree in pre-order. A
// childless root yields itself at the empty path.
func leafSequence(root models.Layer) []leaf {
	var leaves []leaf
	var visit func(layer models.Layer, path Path)
	visit = func(layer models.Layer, path Path) {
		children := layer.Children()
		if len(children) == 0 {
			leaves = append(leaves, leaf{path: path.Clone(), layer: layer})
			return
		}
		for ii, child := range children {
			visit(child, path.Child(ii))
		}
	}
	visit(root, nil)
	return leaves
}

// FindAdjacent returns the leaf next to anchor in the model's leaf sequence:
// the first leaf strictly after it for Down, the last leaf strictly before it
// for Up.
//
// The anchor doesn't need to denote a leaf -- or any existing node: it is
// treated as a cut point in the sequence. Leaves inside the subtree rooted at
// an internal anchor belong to the anchor's own position, so Down skips past
// them and Up stops before them.
//
// found=false means the sequence has no leaf in that direction: the caller is
// already at the boundary.
func FindAdjacent(root models.Layer, anchor Path, direction Direction) (Path, models.Layer, bool) {
	leaves := leafSequence(root)
	switch direction {
	case Down:
		for _, l := range leaves {
			if l.path.Compare(anchor) > 0 && !anchor.IsAncestorOf(l.path) {
				return l.path, l.layer, true
			}
		}
	case Up:
		for ii := len(leaves) - 1; ii >= 0; ii-- {
			l := leaves[ii]
			if l.path.Compare(anchor) < 0 {
				return l.path, l.layer, true
			}
		}
	}
	return nil, nil, false
}
