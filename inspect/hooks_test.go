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

func TestHookObservesForwardPass(t *testing.T) {
	layer := models.NewReLU()
	controller := NewController()
	store := NewCapture()

	hook, err := controller.Attach(layer, store)
	require.NoError(t, err)
	assert.True(t, hook.Attached())

	_, err = layer.Forward(tensors.FromScalar(-2))
	require.NoError(t, err)
	got := store.Read(false)
	require.NotNil(t, got)
	assert.Equal(t, float32(0), got.At(), "the hook sees the layer's output, not its input")

	require.NoError(t, controller.Detach(hook))
	assert.False(t, hook.Attached())

	// After detaching, forward passes no longer touch the store.
	_, err = layer.Forward(tensors.FromScalar(5))
	require.NoError(t, err)
	assert.Equal(t, float32(0), store.Read(false).At())
}

func TestHookNeverAltersOutput(t *testing.T) {
	layer := models.NewReLU()
	controller := NewController()
	_, err := controller.Attach(layer, NewCapture())
	require.NoError(t, err)

	out, err := layer.Forward(tensors.FromScalar(3))
	require.NoError(t, err)
	assert.Equal(t, float32(3), out.At())
}

func TestDetachTwiceFails(t *testing.T) {
	layer := models.NewReLU()
	controller := NewController()
	hook, err := controller.Attach(layer, NewCapture())
	require.NoError(t, err)

	require.NoError(t, controller.Detach(hook))
	err = controller.Detach(hook)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHookInactive))

	assert.True(t, errors.Is(controller.Detach(nil), ErrHookInactive))
}

func TestAttachRequiresLayerAndStore(t *testing.T) {
	controller := NewController()
	_, err := controller.Attach(nil, NewCapture())
	assert.Error(t, err)
	_, err = controller.Attach(models.NewReLU(), nil)
	assert.Error(t, err)
}

func TestReattachBothFire(t *testing.T) {
	// Attaching twice without detaching is allowed: both taps fire and the
	// store keeps the last write.
	layer := models.NewReLU()
	controller := NewController()
	store := NewCapture()

	first, err := controller.Attach(layer, store)
	require.NoError(t, err)
	second, err := controller.Attach(layer, store)
	require.NoError(t, err)

	fired := 0
	layer.RegisterForwardHook(func(models.Layer, *tensors.Tensor) { fired++ })

	_, err = layer.Forward(tensors.FromScalar(1))
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.True(t, store.Available())
	assert.True(t, first.Attached())
	assert.True(t, second.Attached())
}

func TestDetachAll(t *testing.T) {
	controller := NewController()
	layerA, layerB := models.NewReLU(), models.NewFlatten()
	storeA, storeB := NewCapture(), NewCapture()

	hookA, err := controller.Attach(layerA, storeA)
	require.NoError(t, err)
	hookB, err := controller.Attach(layerB, storeB)
	require.NoError(t, err)

	controller.DetachAll()
	assert.False(t, hookA.Attached())
	assert.False(t, hookB.Attached())

	_, err = layerA.Forward(tensors.FromScalar(1))
	require.NoError(t, err)
	assert.False(t, storeA.Available())
}
