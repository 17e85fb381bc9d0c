// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"strconv"
	"strings"

	"github.com/layerscope/layerscope/types/xslices"
	"github.com/pkg/errors"
)

// Path addresses one node of a model tree by the child index taken at each
// depth from the root. The empty (nil) path is the root itself.
//
// A path is only meaningful against the model it was computed from: after a
// model is replaced (Session.Resync) old paths are not guaranteed to resolve,
// and are never assumed to address the same layer.
type Path []int

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	return Path(xslices.Copy(p))
}

// IsRoot returns whether the path addresses the root (empty path).
func (p Path) IsRoot() bool { return len(p) == 0 }

// Equal returns whether both paths are the same sequence.
func (p Path) Equal(other Path) bool {
	return p.Compare(other) == 0
}

// Compare orders paths lexicographically: element by element, first
// difference decides; a proper prefix orders before its extensions. This is
// exactly pre-order DFS document order, which is what makes it usable for
// "before/after this position" tests in the navigator.
func (p Path) Compare(other Path) int {
	for ii := 0; ii < len(p) && ii < len(other); ii++ {
		switch {
		case p[ii] < other[ii]:
			return -1
		case p[ii] > other[ii]:
			return 1
		}
	}
	switch {
	case len(p) < len(other):
		return -1
	case len(p) > len(other):
		return 1
	}
	return 0
}

// IsAncestorOf returns whether p is a proper prefix of other: other is inside
// the subtree rooted at p.
func (p Path) IsAncestorOf(other Path) bool {
	if len(p) >= len(other) {
		return false
	}
	for ii, idx := range p {
		if other[ii] != idx {
			return false
		}
	}
	return true
}

// Child returns the path extended by one child index.
func (p Path) Child(index int) Path {
	child := make(Path, len(p)+1)
	copy(child, p)
	child[len(p)] = index
	return child
}

// String formats the path as dot-separated indices, e.g. "0.2.1"; the root is
// "/".
func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	parts := xslices.Map(p, strconv.Itoa)
	return strings.Join(parts, ".")
}

// ParsePath parses the String format back into a Path. "/" and "" give the
// root.
func ParsePath(s string) (Path, error) {
	if s == "" || s == "/" {
		return nil, nil
	}
	parts := strings.Split(s, ".")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || idx < 0 {
			return nil, errors.Wrapf(ErrInvalidPath, "bad path element %q in %q", part, s)
		}
		path = append(path, idx)
	}
	return path, nil
}
