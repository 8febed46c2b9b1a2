// SPDX-License-Identifier: MIT
/*
Package session wires one detection run: a Source produces a sample buffer, the Detector flags
half-second buckets and every Presenter renders the resulting report. Metadata, playback and live
capture are optional parts of the same pipeline rather than separate programs.
*/
package session

import (
	"context"
	"errors"
	"fmt"

	"popdetect/internal/analysis"
	"popdetect/internal/audio"
	applog "popdetect/internal/log"
	"popdetect/internal/present"
)

// Playback plays the analysed buffer after the report is rendered. *audio.Player implements it.
type Playback interface {
	Start(buf *audio.Buffer) error
	Wait(ctx context.Context) error
}

// Pipeline is a configured Source -> Detector -> Presenter run.
type Pipeline struct {
	Source     Source
	Detector   Detector
	Presenters []present.Presenter
	Playback   Playback // Optional.
}

// Run loads the source, detects pops, renders the report and optionally plays the buffer.
func (p *Pipeline) Run(ctx context.Context) (present.Report, error) {
	// Reject a bad threshold before capturing or decoding anything.
	if err := analysis.ValidateThreshold(p.Detector.CurrentThreshold()); err != nil {
		return present.Report{}, err
	}

	buf, info, err := p.Source.Load(ctx)
	if err != nil {
		return present.Report{}, err
	}

	set, err := p.Detector.Detect(ctx, buf)
	if err != nil {
		return present.Report{}, err
	}

	report := present.Report{
		Source:        info.Source,
		FileName:      info.FileName,
		Duration:      buf.Duration(),
		SampleRate:    buf.SampleRate(),
		RecordingDate: info.RecordingDate,
		Metadata:      info.Metadata,
		Threshold:     p.Detector.CurrentThreshold(),
		Pops:          set.Times(),
		Levels:        audio.Summarize(buf.Samples()),
		Dropped:       info.Dropped,
		RecordedTo:    info.RecordedTo,
	}

	var errs []error
	for _, pr := range p.Presenters {
		if err := pr.Present(report, buf); err != nil {
			errs = append(errs, fmt.Errorf("present: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return report, err
	}

	if p.Playback != nil && buf.Len() > 0 {
		if err := p.Playback.Start(buf); err != nil {
			return report, fmt.Errorf("playback: %w", err)
		}
		if err := p.Playback.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return report, fmt.Errorf("playback: %w", err)
		}
		applog.Debugf("Session: Playback finished")
	}
	return report, nil
}
