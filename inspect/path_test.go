// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathString(t *testing.T) {
	assert.Equal(t, "/", Path(nil).String())
	assert.Equal(t, "/", Path{}.String())
	assert.Equal(t, "0", Path{0}.String())
	assert.Equal(t, "0.2.1", Path{0, 2, 1}.String())
}

func TestParsePath(t *testing.T) {
	for _, s := range []string{"", "/"} {
		path, err := ParsePath(s)
		require.NoError(t, err)
		assert.True(t, path.IsRoot())
	}

	path, err := ParsePath("0.2.1")
	require.NoError(t, err)
	assert.Equal(t, Path{0, 2, 1}, path)

	for _, bad := range []string{"a", "0..1", "0.-1", "1.x.2"} {
		_, err := ParsePath(bad)
		require.Error(t, err, "input %q", bad)
		assert.True(t, errors.Is(err, ErrInvalidPath))
	}
}

func TestPathCompare(t *testing.T) {
	// Lexicographic order is pre-order document order: a node before its
	// descendants, descendants before the next sibling.
	ordered := []Path{nil, {0}, {0, 0}, {0, 1}, {1}, {2}, {2, 0, 3}}
	for i := range ordered {
		for j := range ordered {
			got := ordered[i].Compare(ordered[j])
			switch {
			case i < j:
				assert.Equal(t, -1, got, "%s vs %s", ordered[i], ordered[j])
			case i > j:
				assert.Equal(t, 1, got, "%s vs %s", ordered[i], ordered[j])
			default:
				assert.Equal(t, 0, got, "%s vs %s", ordered[i], ordered[j])
			}
		}
	}
}

func TestPathIsAncestorOf(t *testing.T) {
	assert.True(t, Path(nil).IsAncestorOf(Path{0}))
	assert.True(t, Path{0}.IsAncestorOf(Path{0, 3, 1}))
	assert.False(t, Path{0}.IsAncestorOf(Path{0}), "a path is not its own ancestor")
	assert.False(t, Path{0, 1}.IsAncestorOf(Path{0}))
	assert.False(t, Path{1}.IsAncestorOf(Path{0, 1}))
}

func TestPathCloneIsIndependent(t *testing.T) {
	original := Path{1, 2, 3}
	clone := original.Clone()
	clone[0] = 9
	assert.Equal(t, Path{1, 2, 3}, original)
}

func TestPathChild(t *testing.T) {
	parent := Path{1}
	child := parent.Child(4)
	assert.Equal(t, Path{1, 4}, child)
	assert.Equal(t, Path{1}, parent)

	// Child must not alias the parent's backing array.
	sibling := parent.Child(5)
	assert.Equal(t, Path{1, 4}, child)
	assert.Equal(t, Path{1, 5}, sibling)
}
