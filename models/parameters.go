// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package models

import (
	"strconv"
	"strings"

	"github.com/layerscope/layerscope/types/tensors"
	"github.com/pkg/errors"
)

// Parameterized is implemented by layers carrying trainable parameters
// (Conv2D, Linear). WeightGrad may return nil when no gradient has been
// recorded.
type Parameterized interface {
	Layer
	Weight() *tensors.Tensor
	Bias() *tensors.Tensor
	WeightGrad() *tensors.Tensor
	SetWeight(*tensors.Tensor) error
	SetBias(*tensors.Tensor) error
	SetWeightGrad(*tensors.Tensor) error
}

// NamedParameter is one parameter tensor of a model, named by the dotted
// child-index path of its layer plus the parameter role, e.g. "0.weight",
// "1.3.bias". The naming mirrors how sequential containers address their
// children, so checkpoints remain valid across process restarts as long as
// the model structure is unchanged.
type NamedParameter struct {
	Name  string
	Value *tensors.Tensor
}

// NamedParameters lists all parameters of the model in depth-first order.
func NamedParameters(root Layer) []NamedParameter {
	var params []NamedParameter
	var visit func(layer Layer, prefix string)
	visit = func(layer Layer, prefix string) {
		if p, ok := layer.(Parameterized); ok {
			params = append(params,
				NamedParameter{Name: prefix + "weight", Value: p.Weight()},
				NamedParameter{Name: prefix + "bias", Value: p.Bias()})
		}
		for ii, child := range layer.Children() {
			visit(child, prefix+strconv.Itoa(ii)+".")
		}
	}
	visit(root, "")
	return params
}

// SetNamedParameter assigns a parameter tensor by name. The name is a dotted
// child-index path followed by "weight", "bias" or "weight_grad" (see
// NamedParameter).
func SetNamedParameter(root Layer, name string, value *tensors.Tensor) error {
	parts := strings.Split(name, ".")
	if len(parts) == 0 {
		return errors.Errorf("empty parameter name")
	}
	role := parts[len(parts)-1]
	layer := root
	for _, part := range parts[:len(parts)-1] {
		idx, err := strconv.Atoi(part)
		if err != nil {
			return errors.Wrapf(err, "parameter %q: invalid child index %q", name, part)
		}
		children := layer.Children()
		if idx < 0 || idx >= len(children) {
			return errors.Errorf("parameter %q: child index %d out of range (%d children)",
				name, idx, len(children))
		}
		layer = children[idx]
	}
	p, ok := layer.(Parameterized)
	if !ok {
		return errors.Errorf("parameter %q: layer %s has no parameters", name, layer.Kind())
	}
	switch role {
	case "weight":
		return p.SetWeight(value)
	case "bias":
		return p.SetBias(value)
	case "weight_grad":
		return p.SetWeightGrad(value)
	default:
		return errors.Errorf("parameter %q: unknown role %q", name, role)
	}
}

// ParamCount returns the total number of parameter values in the model.
func ParamCount(root Layer) int64 {
	var count int64
	for _, param := range NamedParameters(root) {
		count += int64(param.Value.Size())
	}
	return count
}

// SummaryRow describes one node of the model tree for display.
type SummaryRow struct {
	// Path of child indices from the root; empty for the root itself.
	Path []int

	Kind Kind

	// Params is the number of parameter values owned directly by this layer.
	Params int64
}

// Summary returns one row per node of the model tree, in depth-first
// pre-order.
func Summary(root Layer) []SummaryRow {
	var rows []SummaryRow
	var visit func(layer Layer, path []int)
	visit = func(layer Layer, path []int) {
		row := SummaryRow{Path: append([]int(nil), path...), Kind: layer.Kind()}
		if p, ok := layer.(Parameterized); ok {
			row.Params = int64(p.Weight().Size() + p.Bias().Size())
		}
		rows = append(rows, row)
		for ii, child := range layer.Children() {
			visit(child, append(path, ii))
		}
	}
	visit(root, nil)
	return rows
}
