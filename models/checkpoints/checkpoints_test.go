// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package checkpoints

import (
	"encoding/json"
	"os"
	"path"
	"testing"

	"github.com/layerscope/layerscope/models"
	"github.com/layerscope/layerscope/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) *models.Sequential {
	t.Helper()
	return models.NewSequential(
		models.NewLinear(4, 3),
		models.NewReLU(),
		models.NewLinear(3, 2),
	)
}

func handlerFor(t *testing.T, model models.Layer, opts func(*Config) *Config) *Handler {
	t.Helper()
	config := Build(model).Dir(t.TempDir())
	if opts != nil {
		config = opts(config)
	}
	handler, err := config.Done()
	require.NoError(t, err)
	return handler
}

func TestBuildRequiresDir(t *testing.T) {
	_, err := Build(newTestModel(t)).Done()
	assert.Error(t, err)
}

func TestDirRejectsFile(t *testing.T) {
	file := path.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0660))
	_, err := Build(newTestModel(t)).Dir(file).Done()
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	model := newTestModel(t)
	handler := handlerFor(t, model, nil)

	// Make the parameters distinctive before saving.
	want := tensors.Full(0.5, 3, 4)
	require.NoError(t, models.SetNamedParameter(model, "0.weight", want))
	require.NoError(t, handler.Save(7))

	// Restore into a freshly built model with different parameters.
	restored := newTestModel(t)
	require.NoError(t, models.SetNamedParameter(restored, "0.weight", tensors.Zeros(3, 4)))
	handler2, err := Build(restored).Dir(handler.Dir()).Done()
	require.NoError(t, err)

	step, err := handler2.Load()
	require.NoError(t, err)
	assert.Equal(t, 7, step)
	got := restored.Children()[0].(*models.Linear).Weight()
	assert.True(t, got.Equal(want))
}

func TestLoadEmptyDir(t *testing.T) {
	handler := handlerFor(t, newTestModel(t), nil)
	step, err := handler.Load()
	require.NoError(t, err)
	assert.Equal(t, -1, step)
}

func TestFloat16RoundTrip(t *testing.T) {
	model := newTestModel(t)
	handler := handlerFor(t, model, func(c *Config) *Config { return c.Float16() })

	want := model.Children()[0].(*models.Linear).Weight().Clone()
	require.NoError(t, handler.Save(1))

	restored := newTestModel(t)
	handler2, err := Build(restored).Dir(handler.Dir()).Done()
	require.NoError(t, err)
	_, err = handler2.Load()
	require.NoError(t, err)

	got := restored.Children()[0].(*models.Linear).Weight()
	assert.True(t, got.InDelta(want, 1.0/1024), "half precision keeps ~3 decimal digits")
}

func TestKeepPrunesOldCheckpoints(t *testing.T) {
	model := newTestModel(t)
	handler := handlerFor(t, model, func(c *Config) *Config { return c.Keep(2) })

	for step := 1; step <= 5; step++ {
		require.NoError(t, handler.Save(step))
	}
	steps, err := handler.listSteps()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, steps)

	filePath, step, err := handler.LatestCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, 5, step)
	assert.Equal(t, checkpointFileName(5), path.Base(filePath))
}

func TestKeepNegativeNeverPrunes(t *testing.T) {
	handler := handlerFor(t, newTestModel(t), func(c *Config) *Config { return c.Keep(-1) })
	for step := 1; step <= 3; step++ {
		require.NoError(t, handler.Save(step))
	}
	steps, err := handler.listSteps()
	require.NoError(t, err)
	assert.Len(t, steps, 3)
}

func TestLoadStripsModulePrefix(t *testing.T) {
	// Checkpoints written by a distributed-training wrapper prefix every
	// parameter name with "module.".
	model := newTestModel(t)
	handler := handlerFor(t, model, nil)
	require.NoError(t, models.SetNamedParameter(model, "0.weight", tensors.Full(2, 3, 4)))
	require.NoError(t, handler.Save(1))

	filePath, _, err := handler.LatestCheckpoint()
	require.NoError(t, err)
	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	var m manifest
	require.NoError(t, json.Unmarshal(data, &m))
	for i := range m.Params {
		m.Params[i].Name = "module." + m.Params[i].Name
	}
	data, err = json.Marshal(&m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filePath, data, 0660))

	restored := newTestModel(t)
	handler2, err := Build(restored).Dir(handler.Dir()).Done()
	require.NoError(t, err)
	_, err = handler2.Load()
	require.NoError(t, err)
	got := restored.Children()[0].(*models.Linear).Weight()
	assert.True(t, got.Equal(tensors.Full(2, 3, 4)))
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	model := newTestModel(t)
	handler := handlerFor(t, model, nil)
	require.NoError(t, handler.Save(1))

	filePath, _, err := handler.LatestCheckpoint()
	require.NoError(t, err)
	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	var m manifest
	require.NoError(t, json.Unmarshal(data, &m))
	m.Version = 99
	data, err = json.Marshal(&m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filePath, data, 0660))

	assert.Error(t, handler.LoadFrom(filePath))
}
