// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"

	"popdetect/internal/analysis"
)

// LevelMeter tracks the peak absolute amplitude of the most recent block and of the whole capture.
// It is fed by the engine's owner goroutine and read by the monitor.
type LevelMeter struct {
	last atomic.Uint64 // math.Float64bits
	max  atomic.Uint64 // math.Float64bits
}

var _ analysis.ResettableProcessor = (*LevelMeter)(nil)

// ProcessBlock records the block peak.
func (m *LevelMeter) ProcessBlock(block []float64) {
	var peak float64
	for _, s := range block {
		peak = math.Max(peak, math.Abs(s))
	}
	m.last.Store(math.Float64bits(peak))
	if peak > math.Float64frombits(m.max.Load()) {
		// Single writer, so a plain store cannot lose a larger value.
		m.max.Store(math.Float64bits(peak))
	}
}

// Level returns the peak of the last block in [0, 1].
func (m *LevelMeter) Level() float64 {
	return math.Float64frombits(m.last.Load())
}

// Max returns the largest peak seen since the last Reset.
func (m *LevelMeter) Max() float64 {
	return math.Float64frombits(m.max.Load())
}

// Reset clears both peaks.
func (m *LevelMeter) Reset() {
	m.last.Store(0)
	m.max.Store(0)
}
