// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"github.com/layerscope/layerscope/models"
	"github.com/layerscope/layerscope/types/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Controller attaches and removes forward-pass interceptions. An
// interception is a pure observation tap: it never alters weights or the
// values the forward pass produces, it only snapshots the hooked layer's
// output into a Capture.
type Controller struct {
	active map[models.HookID]*Hook
}

// NewController returns an empty hook controller.
func NewController() *Controller {
	return &Controller{active: make(map[models.HookID]*Hook)}
}

// Hook is a detachable handle to one attached interception.
type Hook struct {
	id         models.HookID
	layer      models.Layer
	controller *Controller
	attached   bool
}

// Attach registers an interception on layer: every forward pass flowing
// through it records the layer's output into store.
//
// Re-attaching to an already hooked layer is allowed by the underlying
// mechanism -- both interceptions fire, and the store keeps the last write.
// The intended discipline is detach before re-attach; Session.Observe does
// that for its own hooks.
func (c *Controller) Attach(layer models.Layer, store *Capture) (*Hook, error) {
	if layer == nil || store == nil {
		return nil, errors.Errorf("Attach requires a layer and a store")
	}
	hook := &Hook{layer: layer, controller: c, attached: true}
	hook.id = layer.RegisterForwardHook(func(_ models.Layer, output *tensors.Tensor) {
		store.Record(output)
	})
	c.active[hook.id] = hook
	klog.V(2).Infof("attached hook %s on %s layer", hook.id, layer.Kind())
	return hook, nil
}

// Detach removes the interception: subsequent forward passes no longer
// populate the store. Detaching an already detached hook is a caller error
// and returns ErrHookInactive; it never panics, the session survives.
func (c *Controller) Detach(hook *Hook) error {
	if hook == nil || !hook.attached {
		return ErrHookInactive
	}
	hook.attached = false
	delete(c.active, hook.id)
	if !hook.layer.RemoveForwardHook(hook.id) {
		return ErrHookInactive
	}
	klog.V(2).Infof("detached hook %s from %s layer", hook.id, hook.layer.Kind())
	return nil
}

// DetachAll removes every interception still attached through this
// controller. Used on session teardown so a discarded model graph isn't
// pinned by dangling interceptions.
func (c *Controller) DetachAll() {
	for _, hook := range c.active {
		hook.attached = false
		hook.layer.RemoveForwardHook(hook.id)
	}
	c.active = make(map[models.HookID]*Hook)
}

// Attached reports whether the hook is still attached.
func (h *Hook) Attached() bool { return h.attached }
