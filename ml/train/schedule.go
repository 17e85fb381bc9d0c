// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package train

import (
	"math"

	"github.com/pkg/errors"
)

// This file implements cyclical learning-rate schedules (Smith, "Cyclical
// Learning Rates for Training Neural Networks"): the rate oscillates linearly
// between a base and a max value with a period of 2*StepSize steps.

// Policy selects the cyclical schedule variant.
type Policy string

const (
	// Triangle oscillates with constant amplitude.
	Triangle Policy = "triangle"
	// Triangle2 halves the amplitude after each full cycle.
	Triangle2 Policy = "triangle2"
)

// Schedule is a cyclical learning-rate schedule. Create it with NewSchedule.
type Schedule struct {
	policy   Policy
	baseLR   float64
	maxLR    float64
	stepSize int
}

// NewSchedule creates a cyclical schedule: the learning rate climbs linearly
// from baseLR to maxLR over stepSize steps, then back down over the next
// stepSize steps, and repeats.
func NewSchedule(policy Policy, baseLR, maxLR float64, stepSize int) (*Schedule, error) {
	if policy != Triangle && policy != Triangle2 {
		return nil, errors.Errorf("unknown learning-rate policy %q", policy)
	}
	if stepSize <= 0 {
		return nil, errors.Errorf("stepsize must be positive, got %d", stepSize)
	}
	if maxLR < baseLR {
		return nil, errors.Errorf("max_lr (%g) must be >= base_lr (%g)", maxLR, baseLR)
	}
	return &Schedule{policy: policy, baseLR: baseLR, maxLR: maxLR, stepSize: stepSize}, nil
}

// LearningRate returns the rate for the given global step (0-based).
func (s *Schedule) LearningRate(step int) float64 {
	cycle := math.Floor(1 + float64(step)/float64(2*s.stepSize))
	amplitude := s.maxLR - s.baseLR
	if s.policy == Triangle2 {
		amplitude /= math.Pow(2, cycle-1)
	}
	x := math.Abs(float64(step)/float64(s.stepSize) - 2*cycle + 1)
	return s.baseLR + amplitude*math.Max(0, 1-x)
}
