// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package inspect

import (
	"github.com/gomlx/exceptions"
	"github.com/layerscope/layerscope/types/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// PostProcessFn transforms a captured tensor on read, e.g. a per-channel mean
// or a relu. It may fail; failures are swallowed by Capture.Read.
type PostProcessFn func(*tensors.Tensor) (*tensors.Tensor, error)

// Capture holds the most recent output observed flowing through one layer
// during a forward pass, plus an optional post-process transform applied on
// read.
//
// A Capture keeps at most one snapshot: each firing overwrites the previous
// one. If a forward pass flows through the same hooked layer twice (a layer
// reused structurally), only the last firing survives -- an accepted
// limitation of the overwrite policy.
type Capture struct {
	out         *tensors.Tensor
	postProcess PostProcessFn
	ppName      string
}

// NewCapture returns an empty capture store.
func NewCapture() *Capture {
	return &Capture{}
}

// Record stores a detached, independent copy of output: later forward passes
// cannot retroactively mutate the snapshot. Overwrites any previous capture.
func (c *Capture) Record(output *tensors.Tensor) {
	if output == nil {
		return
	}
	c.out = output.Clone()
}

// Available reports whether a capture has occurred since creation or the last
// Invalidate.
func (c *Capture) Available() bool {
	return c.out != nil
}

// Read returns the captured tensor. With raw=true (or with no post-process
// set) the snapshot itself is returned. Otherwise the post-process transform
// is applied; if it fails -- error or panic -- the failure is swallowed, is
// logged, and Read returns nil. Callers treat nil as "unavailable" without
// distinguishing "never captured" from "post-process failed".
func (c *Capture) Read(raw bool) *tensors.Tensor {
	if c.out == nil {
		return nil
	}
	if raw || c.postProcess == nil {
		return c.out
	}
	var result *tensors.Tensor
	var err error
	exception := exceptions.Try(func() {
		result, err = c.postProcess(c.out)
	})
	if exception != nil {
		klog.Errorf("post-process %q panicked: %v", c.ppName, exception)
		return nil
	}
	if err != nil {
		klog.V(1).Infof("post-process %q failed: %v", c.ppName, err)
		return nil
	}
	return result
}

// SetPostProcess installs the transform applied by Read. A nil fn is
// rejected; use ClearPostProcess to remove the transform.
func (c *Capture) SetPostProcess(name string, fn PostProcessFn) error {
	if fn == nil {
		return errors.Errorf("post-process function must not be nil")
	}
	c.postProcess = fn
	c.ppName = name
	return nil
}

// ClearPostProcess removes any installed transform.
func (c *Capture) ClearPostProcess() {
	c.postProcess = nil
	c.ppName = ""
}

// HasPostProcess reports whether a transform is installed.
func (c *Capture) HasPostProcess() bool {
	return c.postProcess != nil
}

// PostProcessName returns the name the transform was installed under, or "".
func (c *Capture) PostProcessName() string {
	return c.ppName
}

// Invalidate drops the snapshot; Available becomes false until the next
// Record.
func (c *Capture) Invalidate() {
	c.out = nil
}
