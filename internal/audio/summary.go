// SPDX-License-Identifier: MIT
package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds level statistics for a sample buffer.
type Summary struct {
	Samples int     `yaml:"samples"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Peak    float64 `yaml:"peak"` // Largest absolute amplitude.
	Mean    float64 `yaml:"mean"`
	RMS     float64 `yaml:"rms"`
}

// Summarize computes level statistics. An empty input yields a zero Summary.
func Summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	mn, mx := floats.Min(samples), floats.Max(samples)
	return Summary{
		Samples: len(samples),
		Min:     mn,
		Max:     mx,
		Peak:    math.Max(math.Abs(mn), math.Abs(mx)),
		Mean:    stat.Mean(samples, nil),
		RMS:     math.Sqrt(floats.Dot(samples, samples) / float64(len(samples))),
	}
}
