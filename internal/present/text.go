// SPDX-License-Identifier: MIT
package present

import (
	"fmt"
	"io"
	"strings"

	"popdetect/internal/audio"
)

// TextPresenter writes the human readable report.
type TextPresenter struct {
	W io.Writer
}

var _ Presenter = (*TextPresenter)(nil)

// Present writes the file information followed by the detections.
func (p *TextPresenter) Present(r Report, _ *audio.Buffer) error {
	var b strings.Builder
	writeInfo(&b, r)
	b.WriteString("\n")
	writePops(&b, r)
	_, err := io.WriteString(p.W, b.String())
	return err
}

// PresentInfo writes only the file information block.
func (p *TextPresenter) PresentInfo(r Report) error {
	var b strings.Builder
	writeInfo(&b, r)
	_, err := io.WriteString(p.W, b.String())
	return err
}

func writeInfo(b *strings.Builder, r Report) {
	fmt.Fprintf(b, "File Name: %s\n", r.FileName)
	fmt.Fprintf(b, "Duration: %.2f seconds\n", r.Duration)
	fmt.Fprintf(b, "Sampling Rate: %d Hz\n", r.SampleRate)
	fmt.Fprintf(b, "Recording Date and Time: %s\n", r.RecordingDate)
	if md := r.Metadata; md != nil {
		if md.Title != "" {
			fmt.Fprintf(b, "Title: %s\n", md.Title)
		}
		if md.Artist != "" {
			fmt.Fprintf(b, "Artist: %s\n", md.Artist)
		}
	}
	fmt.Fprintf(b, "Peak Amplitude: %.3f, RMS: %.3f\n", r.Levels.Peak, r.Levels.RMS)
	if r.Dropped > 0 {
		fmt.Fprintf(b, "Dropped Blocks: %d\n", r.Dropped)
	}
	if r.RecordedTo != "" {
		fmt.Fprintf(b, "Recorded To: %s\n", r.RecordedTo)
	}
}

func writePops(b *strings.Builder, r Report) {
	thr := formatThreshold(r.Threshold)
	if r.Count() == 0 {
		fmt.Fprintf(b, "No pop sounds detected above %s amplitude.\n", thr)
	} else {
		fmt.Fprintf(b, "Detected pop sound(s) above %s amplitude at the following times (in 0.5-second intervals):\n", thr)
		for _, t := range r.Pops {
			fmt.Fprintf(b, "%.1f seconds\n", t)
		}
	}
	fmt.Fprintf(b, "Detected Pops: %d\n", r.Count())
}
