// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

// layerscope is an interactive shell to inspect convolutional models: walk
// the layer tree, capture activations with forward hooks, chart weights and
// class activation maps.
//
// Flags override values from the optional key=value config file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/janpfeifer/must"
	"github.com/layerscope/layerscope/ml/data"
	"github.com/layerscope/layerscope/ml/train"
	"github.com/layerscope/layerscope/models"
	"github.com/layerscope/layerscope/ui/plots"
	"github.com/layerscope/layerscope/ui/plots/gonumplot"
	"github.com/layerscope/layerscope/ui/plots/margaidplot"
	"github.com/layerscope/layerscope/ui/shell"
	"k8s.io/klog/v2"
)

var (
	flagConfig         = flag.String("config", "", "Path to a key=value config file.")
	flagImagePath      = flag.String("image_path", "", "Directory `load image` resolves relative file names in.")
	flagCheckpointPath = flag.String("checkpoint_path", "", "Directory `load checkpoint` resolves relative file names in.")
	flagCheckpointName = flag.String("checkpoint_name", "", "Default checkpoint file for `load checkpoint`.")
	flagDataset        = flag.String("dataset", "", "Root of a class-per-directory image dataset.")
	flagImageSize      = flag.Int("image_size", 0, "Square size images are resized to; 0 keeps the config value.")
	flagPlotsDir       = flag.String("plots_dir", "plots", "Directory chart and image renderings are written to.")
	flagPlotBackend    = flag.String("plot_backend", "png", "Chart backend: \"png\" (gonum/plot) or \"svg\" (margaid, bar charts only).")
	flagNumClasses     = flag.Int("num_classes", 10, "Number of classes of the built-in demo model.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	config := train.NewConfig()
	if *flagConfig != "" {
		config = must.M1(train.ParseConfig(*flagConfig))
	}
	if *flagImagePath != "" {
		config.ImagePath = *flagImagePath
	}
	if *flagCheckpointPath != "" {
		config.CheckpointPath = *flagCheckpointPath
	}
	if *flagCheckpointName != "" {
		config.CheckpointName = *flagCheckpointName
	}
	if *flagDataset != "" {
		config.Dataset = *flagDataset
	}
	if *flagImageSize > 0 {
		config.ImageSize = *flagImageSize
	}

	var plotter plots.Plotter
	switch *flagPlotBackend {
	case "png":
		plotter = must.M1(gonumplot.New(*flagPlotsDir))
	case "svg":
		plotter = must.M1(margaidplot.New(*flagPlotsDir))
	default:
		klog.Exitf("unknown -plot_backend %q, must be \"png\" or \"svg\"", *flagPlotBackend)
	}
	sh := shell.New(config, plotter, os.Stdin, os.Stdout)
	sh.RegisterModel("model", models.SmallCNN(config.ImageSize, *flagNumClasses))
	if config.Dataset != "" {
		ds := must.M1(data.NewDataset(config.Dataset))
		ds.SetImageSize(config.ImageSize)
		sh.SetDataset(ds)
	}

	intro := fmt.Sprintf("layerscope -- model inspection shell (images %dx%d, charts in %s)\nType `help` for commands.",
		config.ImageSize, config.ImageSize, *flagPlotsDir)
	if err := sh.Run(intro); err != nil {
		klog.Exitf("shell terminated: %v", err)
	}
}
