// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"github.com/layerscope/layerscope/models"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultCursorKind is the layer kind the cursor starts on: the last ReLU of
// the model, commonly the most informative vantage point near the output.
// When the model has no such layer, the cursor falls back to the last leaf.
var DefaultCursorKind = models.KindReLU

// Entry is one visited position of the model: the path, the layer it
// resolves to, and the capture store that hooks on this layer write into.
// Entries are created on first visit and live until the session resyncs.
type Entry struct {
	Path    Path
	Layer   models.Layer
	Capture *Capture
}

// Session owns one loaded model, the traversal cursor over it, and the cache
// of visited positions. One session exists per distinct named model in the
// shell's working context.
//
// All session state lives here, not in package globals: sessions are passed
// by handle, and two sessions never share cursors, caches or hooks.
type Session struct {
	name       string
	model      models.Layer
	cursor     Path
	cache      map[string]*Entry
	controller *Controller

	// observed tracks the session's own hook per path, to enforce the
	// detach-before-reattach discipline.
	observed map[string]*Hook
}

// NewSession creates a session owning model. The cursor starts at the last
// DefaultCursorKind layer (see above).
func NewSession(name string, model models.Layer) *Session {
	s := &Session{
		name:       name,
		model:      model,
		cache:      make(map[string]*Entry),
		controller: NewController(),
		observed:   make(map[string]*Hook),
	}
	s.resetCursor()
	return s
}

// Name of the model this session owns.
func (s *Session) Name() string { return s.name }

// Model returns the owned model root.
func (s *Session) Model() models.Layer { return s.model }

// Cursor returns a copy of the current cursor path.
func (s *Session) Cursor() Path { return s.cursor.Clone() }

func (s *Session) resetCursor() {
	if path, _, ok := FindLastOfKind(s.model, DefaultCursorKind); ok {
		s.cursor = path
		return
	}
	if leaves := leafSequence(s.model); len(leaves) > 0 {
		s.cursor = leaves[len(leaves)-1].path
		return
	}
	s.cursor = nil
}

// Resolve returns the cache entry for path, creating it on first visit: the
// layer is found by walking the child indices from the root, and a fresh,
// empty capture store is bound to it. Two Resolve calls with no intervening
// Resync return the identical entry (same capture store).
func (s *Session) Resolve(path Path) (*Entry, error) {
	key := path.String()
	if entry, ok := s.cache[key]; ok {
		return entry, nil
	}
	layer := s.model
	for depth, idx := range path {
		children := layer.Children()
		if idx < 0 || idx >= len(children) {
			return nil, errors.Wrapf(ErrInvalidPath,
				"path %s: index %d at depth %d out of range (%d children)", path, idx, depth, len(children))
		}
		layer = children[idx]
	}
	entry := &Entry{Path: path.Clone(), Layer: layer, Capture: NewCapture()}
	s.cache[key] = entry
	return entry, nil
}

// SetCursor moves the cursor to path. Fails with ErrInvalidPath if the path
// doesn't resolve in the current model; the cursor is unchanged on failure.
func (s *Session) SetCursor(path Path) error {
	if _, err := s.Resolve(path); err != nil {
		return err
	}
	s.cursor = path.Clone()
	return nil
}

// Current returns the entry at the cursor.
func (s *Session) Current() (*Entry, error) {
	return s.Resolve(s.cursor)
}

// Up moves the cursor to the previous leaf of the model's leaf sequence.
// At the boundary it returns ErrBoundary and leaves the cursor unchanged --
// a normal terminal condition, not a failure.
func (s *Session) Up() (*Entry, error) {
	return s.step(Up)
}

// Down moves the cursor to the next leaf of the model's leaf sequence. See Up
// for the boundary behavior.
func (s *Session) Down() (*Entry, error) {
	return s.step(Down)
}

func (s *Session) step(direction Direction) (*Entry, error) {
	path, _, ok := FindAdjacent(s.model, s.cursor, direction)
	if !ok {
		return nil, ErrBoundary
	}
	entry, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	s.cursor = path
	return entry, nil
}

// Observe attaches the session's hook to the entry's layer, writing into the
// entry's capture store. An earlier hook of this session on the same path is
// detached first, so each position carries at most one of the session's
// interceptions.
func (s *Session) Observe(entry *Entry) (*Hook, error) {
	key := entry.Path.String()
	if old, ok := s.observed[key]; ok {
		if err := s.controller.Detach(old); err != nil && !errors.Is(err, ErrHookInactive) {
			return nil, err
		}
		delete(s.observed, key)
	}
	hook, err := s.controller.Attach(entry.Layer, entry.Capture)
	if err != nil {
		return nil, err
	}
	s.observed[key] = hook
	return hook, nil
}

// Unobserve detaches the session's hook from the entry's layer. Returns
// ErrHookInactive if the session has no hook there.
func (s *Session) Unobserve(entry *Entry) error {
	key := entry.Path.String()
	hook, ok := s.observed[key]
	if !ok {
		return ErrHookInactive
	}
	delete(s.observed, key)
	return s.controller.Detach(hook)
}

// Controller exposes the session's hook controller, for callers managing
// hooks outside the Observe/Unobserve discipline.
func (s *Session) Controller() *Controller { return s.controller }

// Resync replaces the owned model. All hooks are detached first (so the
// discarded graph isn't pinned by dangling interceptions), every capture is
// invalidated, the cache is cleared -- paths from the old graph are not
// assumed valid against the new one -- and the cursor is reset to the default
// starting position.
func (s *Session) Resync(model models.Layer) {
	s.teardown()
	s.model = model
	s.resetCursor()
	klog.V(1).Infof("session %q resynced, cursor at %s", s.name, s.cursor)
}

// Close releases the session: hooks detached, captures invalidated, cache
// dropped.
func (s *Session) Close() {
	s.teardown()
}

func (s *Session) teardown() {
	s.controller.DetachAll()
	for _, entry := range s.cache {
		entry.Capture.Invalidate()
	}
	s.cache = make(map[string]*Entry)
	s.observed = make(map[string]*Hook)
}
