// SPDX-License-Identifier: MIT
/*
Package present renders the result of a detection run: a text report for the terminal, a YAML
document for tooling, and a PNG waveform with a marker at the start of every flagged bucket.
*/
package present

import (
	"strconv"
	"strings"

	"popdetect/internal/audio"
)

// Report is the outcome of one pipeline run.
type Report struct {
	Source        string          `yaml:"source"`    // File path, or "live".
	FileName      string          `yaml:"file_name"` // Base name shown to the operator.
	Duration      float64         `yaml:"duration_seconds"`
	SampleRate    int             `yaml:"sample_rate"`
	RecordingDate string          `yaml:"recording_date"`
	Metadata      *audio.Metadata `yaml:"metadata,omitempty"`
	Threshold     float64         `yaml:"threshold"`
	Pops          []float64       `yaml:"pops"` // Sorted bucket start times in seconds.
	Levels        audio.Summary   `yaml:"levels"`
	Dropped       uint64          `yaml:"dropped_blocks,omitempty"` // Live captures only.
	RecordedTo    string          `yaml:"recorded_to,omitempty"`    // WAV file of a live capture.
}

// Count returns the number of distinct flagged buckets.
func (r Report) Count() int {
	return len(r.Pops)
}

// Presenter renders a report. buf holds the analysed samples.
type Presenter interface {
	Present(r Report, buf *audio.Buffer) error
}

// formatThreshold prints a threshold the way operators type it: "0.4", "0.35", "1.0".
func formatThreshold(t float64) string {
	s := strconv.FormatFloat(t, 'f', -1, 64)
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
