// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

// Package models implements the module graph the inspection shell operates
// on: a tree of layers, each with an ordered list of children, a kind tag and
// a synchronous forward pass.
//
// Every layer supports forward hooks: observation taps that receive the
// layer's output each time a forward pass flows through it. Hooks never
// change the computation -- they see the output after it is produced, and the
// forward result is returned to the caller untouched.
package models

import (
	"github.com/google/uuid"
	"github.com/layerscope/layerscope/types/tensors"
	"k8s.io/klog/v2"
)

// Kind tags the type of a layer, used by type-directed tree searches
// ("find the last Conv2D").
type Kind string

const (
	KindSequential Kind = "Sequential"
	KindConv2D     Kind = "Conv2D"
	KindLinear     Kind = "Linear"
	KindReLU       Kind = "ReLU"
	KindMaxPool2D  Kind = "MaxPool2D"
	KindFlatten    Kind = "Flatten"
)

// ForwardHook observes a layer's output during a forward pass. It must not
// mutate output -- clone it if a snapshot is needed.
type ForwardHook func(layer Layer, output *tensors.Tensor)

// HookID identifies one registered forward hook on one layer.
type HookID string

// Layer is one node of the module graph.
//
// Containers (KindSequential) have children; everything else is a leaf. The
// children list is ordered and stable for the lifetime of the model: tree
// positions (paths of child indices) remain valid until the model itself is
// replaced.
type Layer interface {
	// Kind returns the type tag of the layer.
	Kind() Kind

	// Children returns the ordered list of child layers. Leaves return nil.
	Children() []Layer

	// Forward runs the layer's computation. Registered forward hooks fire,
	// in registration order, after the output is computed.
	Forward(x *tensors.Tensor) (*tensors.Tensor, error)

	// RegisterForwardHook attaches fn to this layer. Multiple hooks may be
	// registered; each firing of the pass calls all of them.
	RegisterForwardHook(fn ForwardHook) HookID

	// RemoveForwardHook removes a previously registered hook. It reports
	// whether the hook was still registered.
	RemoveForwardHook(id HookID) bool
}

// IsLeaf returns whether the layer has no children.
func IsLeaf(layer Layer) bool {
	return len(layer.Children()) == 0
}

// hookable is embedded by every layer to implement the hook registry. Hooks
// fire in registration order.
type hookable struct {
	hooks []registeredHook
}

type registeredHook struct {
	id HookID
	fn ForwardHook
}

func (h *hookable) RegisterForwardHook(fn ForwardHook) HookID {
	id := HookID(uuid.NewString())
	h.hooks = append(h.hooks, registeredHook{id: id, fn: fn})
	return id
}

func (h *hookable) RemoveForwardHook(id HookID) bool {
	for ii, hook := range h.hooks {
		if hook.id == id {
			h.hooks = append(h.hooks[:ii], h.hooks[ii+1:]...)
			return true
		}
	}
	return false
}

// fire calls the registered hooks with the layer's output.
func (h *hookable) fire(layer Layer, output *tensors.Tensor) {
	for _, hook := range h.hooks {
		hook.fn(layer, output)
	}
}

// Sequential is an ordered container of layers: its forward pass chains the
// children left to right.
type Sequential struct {
	hookable
	children []Layer
}

// NewSequential creates a container with the given children.
func NewSequential(children ...Layer) *Sequential {
	return &Sequential{children: children}
}

// Kind implements Layer.
func (s *Sequential) Kind() Kind { return KindSequential }

// Children implements Layer.
func (s *Sequential) Children() []Layer { return s.children }

// Forward implements Layer: chains the children and fires hooks with the
// final output.
func (s *Sequential) Forward(x *tensors.Tensor) (*tensors.Tensor, error) {
	out := x
	for ii, child := range s.children {
		var err error
		out, err = child.Forward(out)
		if err != nil {
			klog.V(2).Infof("Sequential: child #%d (%s) failed", ii, child.Kind())
			return nil, err
		}
	}
	s.fire(s, out)
	return out, nil
}
