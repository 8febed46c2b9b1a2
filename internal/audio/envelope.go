// SPDX-License-Identifier: MIT
package audio

import "math"

// Envelope reduces samples to at most bins min/max pairs so long recordings can be drawn without
// plotting every sample. When samples fit into bins each pair holds a single sample.
func Envelope(samples []float64, bins int) (mins, maxs []float64) {
	if bins <= 0 || len(samples) == 0 {
		return nil, nil
	}
	if len(samples) <= bins {
		mins = append([]float64(nil), samples...)
		maxs = append([]float64(nil), samples...)
		return mins, maxs
	}

	mins = make([]float64, bins)
	maxs = make([]float64, bins)
	for i := range bins {
		lo, hi := binBounds(i, bins, len(samples))
		mn, mx := samples[lo], samples[lo]
		for _, s := range samples[lo+1 : hi] {
			mn = math.Min(mn, s)
			mx = math.Max(mx, s)
		}
		mins[i], maxs[i] = mn, mx
	}
	return mins, maxs
}

// peakBins writes the peak absolute amplitude of len(dst) equal slices of samples into dst.
func peakBins(samples []float64, dst []float64) {
	for i := range dst {
		lo, hi := binBounds(i, len(dst), len(samples))
		peak := 0.0
		for _, s := range samples[lo:hi] {
			if a := math.Abs(s); a > peak {
				peak = a
			}
		}
		dst[i] = peak
	}
}

// binBounds returns the half-open sample range of bin i when n samples are split into bins.
func binBounds(i, bins, n int) (lo, hi int) {
	return i * n / bins, (i + 1) * n / bins
}
