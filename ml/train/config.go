// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

// Package train provides the generic training-loop scaffolding the shell and
// training scripts share: config-file parsing, checkpoint restore, cyclical
// learning-rate schedules and running-average meters.
//
// It deliberately contains no training loop: loss computation, optimizers and
// distributed bootstrap live with the training program, not here.
package train

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Config holds the settings shared between the training scripts and the
// inspection shell. The well-known keys get typed fields; everything else in
// the file lands in Extra.
type Config struct {
	ImagePath      string
	CheckpointPath string
	CheckpointName string
	Dataset        string
	ImageSize      int

	// Extra holds any other key of the config file, verbatim.
	Extra map[string]string
}

// NewConfig returns a Config with the defaults.
func NewConfig() *Config {
	return &Config{
		ImageSize: 224,
		Extra:     make(map[string]string),
	}
}

// ParseConfig reads a `key = value` config file. Blank lines and lines
// starting with '#' are skipped. A missing file is an error; an empty file
// just yields the defaults.
func ParseConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open config file %q", path)
	}
	defer func() { _ = f.Close() }()

	config := NewConfig()
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			klog.Warningf("%s:%d: not a `key = value` line, skipped: %q", path, lineNum, line)
			continue
		}
		config.set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed reading config file %q", path)
	}
	return config, nil
}

func (c *Config) set(key, value string) {
	switch key {
	case "image_path":
		c.ImagePath = value
	case "checkpoint_path":
		c.CheckpointPath = value
	case "checkpoint_name":
		c.CheckpointName = value
	case "dataset":
		c.Dataset = value
	case "image_size":
		if size, err := strconv.Atoi(value); err == nil && size > 0 {
			c.ImageSize = size
		} else {
			klog.Warningf("ignoring invalid image_size %q", value)
		}
	default:
		c.Extra[key] = value
	}
}

// String lists the configuration as `key = value` lines.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("image_path = " + c.ImagePath + "\n")
	sb.WriteString("checkpoint_path = " + c.CheckpointPath + "\n")
	sb.WriteString("checkpoint_name = " + c.CheckpointName + "\n")
	sb.WriteString("dataset = " + c.Dataset + "\n")
	sb.WriteString("image_size = " + strconv.Itoa(c.ImageSize))
	for key, value := range c.Extra {
		sb.WriteString("\n" + key + " = " + value)
	}
	return sb.String()
}
