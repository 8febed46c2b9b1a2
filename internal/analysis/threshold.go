// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidThreshold is returned when the amplitude threshold is outside [0, 1].
	ErrInvalidThreshold = errors.New("threshold must be within [0, 1]")
	// ErrInvalidSampleRate is returned when the sample rate is not positive.
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidChunkSize is returned when a chunked scan is asked for chunks smaller than one sample.
	ErrInvalidChunkSize = errors.New("chunk size must be at least one sample")
)

// ValidateThreshold rejects thresholds outside [0, 1] (NaN included). Thresholds are never
// clamped: an out-of-range value is an operator error.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0.0 || threshold > 1.0 {
		return fmt.Errorf("%w, got %v", ErrInvalidThreshold, threshold)
	}
	return nil
}

func validate(sampleRate int, threshold float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidSampleRate, sampleRate)
	}
	return ValidateThreshold(threshold)
}
