// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

// Package checkpoints implements saving and loading of model parameters.
//
// The main object is the Handler, created by calling Build, followed by the
// various options and finally Config.Done:
//
//	handler, err := checkpoints.Build(model).Dir("~/checkpoints/cnn").Keep(3).Done()
//	…
//	step, err := handler.Load()      // Restore the newest checkpoint, if any.
//	…
//	err = handler.Save(globalStep)   // Write a new checkpoint, pruning old ones.
//
// A checkpoint is a single JSON file: a small manifest of parameter names and
// shapes with the values embedded as base64, either float32 or -- with the
// Float16 option -- half precision.
//
// Checkpoints written by a model wrapped for distributed training carry a
// "module." prefix on every parameter name; Load strips it and retries, so
// such checkpoints load transparently.
package checkpoints

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/layerscope/layerscope/models"
	"github.com/layerscope/layerscope/types/tensors"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// DirPermMode is the default directory creation permission (before umask)
// used for checkpoint directories.
var DirPermMode = os.FileMode(0770)

// FormatVersion is written into every manifest; Load rejects versions it
// doesn't know.
const FormatVersion = 1

// Config for the Handler to be created. Create it with Build, configure, and
// call Done.
type Config struct {
	model models.Layer
	err   error

	dir     string
	keep    int
	float16 bool
	verbose bool
}

// Build a configuration for a checkpoints.Handler operating on model. Call
// Done when finished configuring.
func Build(model models.Layer) *Config {
	return &Config{model: model, keep: 1}
}

func (c *Config) setError(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Dir sets the directory where checkpoints are saved and loaded. It is
// created if needed. A leading "~" refers to the user's home directory.
func (c *Config) Dir(dir string) *Config {
	c.dir = replaceTildeInDir(dir)
	fi, err := os.Stat(c.dir)
	if err != nil && !os.IsNotExist(err) {
		c.setError(errors.Wrapf(err, "failed to os.Stat(%q)", dir))
		return c
	}
	if err == nil && !fi.IsDir() {
		c.setError(errors.Errorf("checkpoint path %q exists and is not a directory", dir))
		return c
	}
	if err == nil {
		return c
	}
	if err = os.MkdirAll(c.dir, DirPermMode); err != nil {
		c.setError(errors.Wrapf(err, "trying to create dir %q", dir))
	}
	return c
}

// DirFromBase sets the checkpoint directory; if dir is not absolute it is
// taken as a subdirectory of baseDir.
func (c *Config) DirFromBase(dir, baseDir string) *Config {
	dir = replaceTildeInDir(dir)
	if !path.IsAbs(dir) {
		dir = path.Join(replaceTildeInDir(baseDir), dir)
	}
	return c.Dir(dir)
}

// Keep configures how many checkpoint files to retain; older ones are erased
// on Save. -1 never erases. The default is 1.
func (c *Config) Keep(n int) *Config {
	c.keep = n
	return c
}

// Float16 stores parameter values in half precision, halving the file size.
// Loading converts back to float32 (lossy, ~3 decimal digits).
func (c *Config) Float16() *Config {
	c.float16 = true
	return c
}

// Verbose displays a progress bar while saving and loading.
func (c *Config) Verbose() *Config {
	c.verbose = true
	return c
}

// Done builds the Handler from the configuration.
func (c *Config) Done() (*Handler, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.dir == "" {
		return nil, errors.Errorf("checkpoints require a directory, set it with Config.Dir or Config.DirFromBase")
	}
	return &Handler{config: c}, nil
}

// Handler saves and loads checkpoints of one model. Create it with Build.
type Handler struct {
	config *Config
}

// Dir returns the checkpoint directory.
func (h *Handler) Dir() string { return h.config.dir }

// manifest is the JSON payload of one checkpoint file.
type manifest struct {
	Version int             `json:"version"`
	Step    int             `json:"step"`
	Params  []manifestParam `json:"params"`
}

type manifestParam struct {
	Name  string `json:"name"`
	Dims  []int  `json:"dims"`
	DType string `json:"dtype"`
	Data  string `json:"data"`
}

var checkpointFileRe = regexp.MustCompile(`^checkpoint-(\d{8})\.json$`)

func checkpointFileName(step int) string {
	return fmt.Sprintf("checkpoint-%08d.json", step)
}

// Save writes a new checkpoint for the given step and prunes files beyond
// the configured Keep count.
func (h *Handler) Save(step int) error {
	params := models.NamedParameters(h.config.model)
	m := manifest{Version: FormatVersion, Step: step, Params: make([]manifestParam, 0, len(params))}
	bar := h.progress("Saving checkpoint", len(params))
	for _, param := range params {
		mp := manifestParam{Name: param.Name, Dims: param.Value.Shape().Dimensions}
		if h.config.float16 {
			mp.DType = "float16"
			mp.Data = base64.StdEncoding.EncodeToString(param.Value.EncodeFloat16())
		} else {
			mp.DType = "float32"
			mp.Data = base64.StdEncoding.EncodeToString(param.Value.EncodeFloat32())
		}
		m.Params = append(m.Params, mp)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	data, err := json.Marshal(&m)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal checkpoint manifest")
	}
	filePath := path.Join(h.config.dir, checkpointFileName(step))
	if err = os.WriteFile(filePath, data, 0660); err != nil {
		return errors.Wrapf(err, "failed to write checkpoint %q", filePath)
	}
	klog.V(1).Infof("saved checkpoint %s (%s)", filePath, humanize.Bytes(uint64(len(data))))
	return h.prune()
}

// Load restores the newest checkpoint into the model and returns its step.
// If the directory has no checkpoints, it returns step -1 and no error.
func (h *Handler) Load() (step int, err error) {
	filePath, step, err := h.LatestCheckpoint()
	if err != nil {
		return -1, err
	}
	if filePath == "" {
		return -1, nil
	}
	return step, h.LoadFrom(filePath)
}

// LoadFrom restores the checkpoint at the given file path into the model.
func (h *Handler) LoadFrom(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read checkpoint %q", filePath)
	}
	var m manifest
	if err = json.Unmarshal(data, &m); err != nil {
		return errors.Wrapf(err, "failed to parse checkpoint %q", filePath)
	}
	if m.Version != FormatVersion {
		return errors.Errorf("checkpoint %q has unsupported version %d", filePath, m.Version)
	}
	bar := h.progress("Loading checkpoint", len(m.Params))
	for _, mp := range m.Params {
		raw, err := base64.StdEncoding.DecodeString(mp.Data)
		if err != nil {
			return errors.Wrapf(err, "parameter %q has corrupt data", mp.Name)
		}
		var value *tensors.Tensor
		switch mp.DType {
		case "float16":
			value, err = tensors.DecodeFloat16(raw, mp.Dims...)
		case "float32":
			value, err = tensors.DecodeFloat32(raw, mp.Dims...)
		default:
			err = errors.Errorf("unknown dtype %q", mp.DType)
		}
		if err != nil {
			return errors.Wrapf(err, "parameter %q", mp.Name)
		}
		if err = h.setParam(mp.Name, value); err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	klog.V(1).Infof("loaded checkpoint %s (%s, %s parameters)",
		filePath, humanize.Bytes(uint64(len(data))), humanize.Comma(int64(len(m.Params))))
	return nil
}

// setParam assigns one named parameter, retrying with the distributed
// training "module." prefix stripped.
func (h *Handler) setParam(name string, value *tensors.Tensor) error {
	err := models.SetNamedParameter(h.config.model, name, value)
	if err == nil {
		return nil
	}
	if stripped, ok := strings.CutPrefix(name, "module."); ok {
		if err2 := models.SetNamedParameter(h.config.model, stripped, value); err2 == nil {
			return nil
		}
	}
	return errors.WithMessagef(err, "loading parameter %q", name)
}

// LatestCheckpoint returns the newest checkpoint file and its step, or empty
// values when the directory holds none.
func (h *Handler) LatestCheckpoint() (filePath string, step int, err error) {
	steps, err := h.listSteps()
	if err != nil || len(steps) == 0 {
		return "", -1, err
	}
	step = steps[len(steps)-1]
	return path.Join(h.config.dir, checkpointFileName(step)), step, nil
}

func (h *Handler) listSteps() ([]int, error) {
	entries, err := os.ReadDir(h.config.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list checkpoint dir %q", h.config.dir)
	}
	var steps []int
	for _, entry := range entries {
		match := checkpointFileRe.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		step, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		steps = append(steps, step)
	}
	sort.Ints(steps)
	return steps, nil
}

func (h *Handler) prune() error {
	if h.config.keep < 0 {
		return nil
	}
	steps, err := h.listSteps()
	if err != nil {
		return err
	}
	for len(steps) > h.config.keep {
		filePath := path.Join(h.config.dir, checkpointFileName(steps[0]))
		if err = os.Remove(filePath); err != nil {
			return errors.Wrapf(err, "failed to remove old checkpoint %q", filePath)
		}
		klog.V(2).Infof("pruned old checkpoint %s", filePath)
		steps = steps[1:]
	}
	return nil
}

func (h *Handler) progress(description string, total int) *progressbar.ProgressBar {
	if !h.config.verbose {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionClearOnFinish(),
	)
}

// replaceTildeInDir replaces a leading "~" by the user's home directory.
func replaceTildeInDir(dir string) string {
	if len(dir) == 0 || dir[0] != '~' {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	return filepath.Join(home, dir[1:])
}
