// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"testing"

	"github.com/layerscope/layerscope/models"
	"github.com/layerscope/layerscope/types/tensors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionDefaultCursor(t *testing.T) {
	// The cursor starts on the last ReLU of the tree.
	session := NewSession("m", testTree())
	defer session.Close()
	assert.Equal(t, Path{2, 1}, session.Cursor())

	// Without a ReLU, it falls back to the last leaf.
	noRelu := models.NewSequential(models.NewFlatten(), models.NewFlatten())
	session2 := NewSession("m2", noRelu)
	defer session2.Close()
	assert.Equal(t, Path{1}, session2.Cursor())
}

func TestSessionResolveIdentity(t *testing.T) {
	session := NewSession("m", testTree())
	defer session.Close()

	first, err := session.Resolve(Path{0, 1})
	require.NoError(t, err)
	second, err := session.Resolve(Path{0, 1})
	require.NoError(t, err)
	assert.Same(t, first, second, "repeated visits reuse the cache entry")
	assert.Same(t, first.Capture, second.Capture)
}

func TestSessionResolveBadPath(t *testing.T) {
	session := NewSession("m", testTree())
	defer session.Close()

	for _, bad := range []Path{{9}, {0, 0, 0}, {2, 5}} {
		_, err := session.Resolve(bad)
		require.Error(t, err, "path %s", bad)
		assert.True(t, errors.Is(err, ErrInvalidPath))
	}
}

func TestSessionSetCursor(t *testing.T) {
	session := NewSession("m", testTree())
	defer session.Close()

	require.NoError(t, session.SetCursor(Path{1}))
	assert.Equal(t, Path{1}, session.Cursor())

	// A bad path fails and leaves the cursor where it was.
	err := session.SetCursor(Path{9})
	require.Error(t, err)
	assert.Equal(t, Path{1}, session.Cursor())
}

func TestSessionUpDown(t *testing.T) {
	session := NewSession("m", testTree())
	defer session.Close()

	// From the default cursor 2.1, down is the boundary.
	_, err := session.Down()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBoundary))
	assert.Equal(t, Path{2, 1}, session.Cursor(), "cursor unchanged at the boundary")

	entry, err := session.Up()
	require.NoError(t, err)
	assert.Equal(t, Path{2, 0}, entry.Path)
	assert.Equal(t, Path{2, 0}, session.Cursor())

	entry, err = session.Down()
	require.NoError(t, err)
	assert.Equal(t, Path{2, 1}, entry.Path)
}

func TestSessionObserveCaptures(t *testing.T) {
	model := models.NewSequential(models.NewReLU())
	session := NewSession("m", model)
	defer session.Close()

	entry, err := session.Current()
	require.NoError(t, err)
	assert.Equal(t, Path{0}, entry.Path)

	hook, err := session.Observe(entry)
	require.NoError(t, err)
	assert.True(t, hook.Attached())

	_, err = model.Forward(tensors.FromScalar(-1))
	require.NoError(t, err)
	got := entry.Capture.Read(false)
	require.NotNil(t, got)
	assert.Equal(t, float32(0), got.At())

	require.NoError(t, session.Unobserve(entry))
	assert.False(t, hook.Attached())

	// A second Unobserve on the same entry is ErrHookInactive.
	assert.True(t, errors.Is(session.Unobserve(entry), ErrHookInactive))
}

func TestSessionObserveReplacesEarlierHook(t *testing.T) {
	model := models.NewSequential(models.NewReLU())
	session := NewSession("m", model)
	defer session.Close()

	entry, err := session.Current()
	require.NoError(t, err)

	first, err := session.Observe(entry)
	require.NoError(t, err)
	second, err := session.Observe(entry)
	require.NoError(t, err)
	assert.False(t, first.Attached(), "re-observing detaches the earlier hook")
	assert.True(t, second.Attached())
}

func TestSessionResync(t *testing.T) {
	session := NewSession("m", testTree())
	defer session.Close()

	entry, err := session.Resolve(Path{1})
	require.NoError(t, err)
	hook, err := session.Observe(entry)
	require.NoError(t, err)
	entry.Capture.Record(tensors.FromScalar(1))
	require.NoError(t, session.SetCursor(Path{0, 0}))

	replacement := models.NewSequential(models.NewFlatten(), models.NewReLU())
	session.Resync(replacement)

	assert.False(t, hook.Attached(), "hooks on the old graph are detached")
	assert.False(t, entry.Capture.Available(), "captures are invalidated")
	assert.Same(t, replacement, session.Model())
	assert.Equal(t, Path{1}, session.Cursor(), "cursor reset to the last ReLU of the new graph")

	fresh, err := session.Resolve(Path{1})
	require.NoError(t, err)
	assert.NotSame(t, entry, fresh, "the cache does not survive a resync")
}
