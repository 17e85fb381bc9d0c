// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package train

import (
	"path"

	"github.com/layerscope/layerscope/models"
	"github.com/layerscope/layerscope/models/checkpoints"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// RestoreCheckpoint loads the model state from an explicit checkpoint file.
// Parameter names written by a distributed-training wrapper (prefix
// "module.") load transparently -- the checkpoints package strips the prefix
// and retries.
func RestoreCheckpoint(model models.Layer, checkpointPath string) error {
	handler, err := checkpoints.Build(model).Dir(path.Dir(checkpointPath)).Done()
	if err != nil {
		return err
	}
	if err = handler.LoadFrom(checkpointPath); err != nil {
		return errors.WithMessagef(err, "restoring checkpoint %q", checkpointPath)
	}
	klog.V(1).Infof("restored checkpoint %s", checkpointPath)
	return nil
}
