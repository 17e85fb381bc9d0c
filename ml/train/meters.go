// Copyright 2026 The Layerscope Authors. SPDX-License-Identifier: Apache-2.0

package train

import (
	"fmt"
	"math"
	"strings"
)

// AverageMeter tracks a running average of a metric, like the per-batch loss.
// A NaN average (e.g. after a diverged loss) resets the meter, so the display
// recovers instead of sticking at NaN forever.
type AverageMeter struct {
	name   string
	format string

	value float64
	sum   float64
	count int
}

// NewAverageMeter creates a meter. format is the fmt verb used for the
// values, e.g. "%.4f"; the empty string defaults to "%f".
func NewAverageMeter(name, format string) *AverageMeter {
	if format == "" {
		format = "%f"
	}
	return &AverageMeter{name: name, format: format}
}

// Update records a value observed over n samples.
func (m *AverageMeter) Update(value float64, n int) {
	m.value = value
	m.sum += value * float64(n)
	m.count += n
	if math.IsNaN(m.Average()) {
		m.sum = 0
		m.count = 0
	}
}

// Value returns the last recorded value.
func (m *AverageMeter) Value() float64 { return m.value }

// Average returns the running average, 0 before any update.
func (m *AverageMeter) Average() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

// Name of the metric.
func (m *AverageMeter) Name() string { return m.name }

// String formats as "name value (average)".
func (m *AverageMeter) String() string {
	return fmt.Sprintf("%s "+m.format+" ("+m.format+")", m.name, m.value, m.Average())
}

// ProgressMeter formats a line of meters with a [batch/total] prefix for
// periodic display during an epoch.
type ProgressMeter struct {
	meters     []*AverageMeter
	prefix     string
	numBatches int
	batchWidth int
}

// NewProgressMeter creates a progress display over numBatches batches.
func NewProgressMeter(numBatches int, meters []*AverageMeter, prefix string) *ProgressMeter {
	return &ProgressMeter{
		meters:     meters,
		prefix:     prefix,
		numBatches: numBatches,
		batchWidth: len(fmt.Sprintf("%d", numBatches)),
	}
}

// Display returns the formatted line for the given batch.
func (p *ProgressMeter) Display(batch int) string {
	parts := make([]string, 0, len(p.meters)+1)
	parts = append(parts, fmt.Sprintf("%s[%*d/%d]", p.prefix, p.batchWidth, batch, p.numBatches))
	for _, meter := range p.meters {
		parts = append(parts, meter.String())
	}
	return strings.Join(parts, "\t")
}
