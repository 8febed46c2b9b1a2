// SPDX-License-Identifier: MIT
package session

import (
	"context"
	"time"

	"popdetect/internal/analysis"
	"popdetect/internal/audio"
	applog "popdetect/internal/log"
	"popdetect/internal/transport"
)

// Status is a snapshot of a running capture, sent to transports and shown by the monitor.
type Status struct {
	Type      string    `json:"type"` // Always "status".
	Seconds   float64   `json:"seconds"`
	Pops      int       `json:"pops"`
	Buckets   []float64 `json:"buckets"`
	Threshold float64   `json:"threshold"`
	Level     float64   `json:"level"`
	Peak      float64   `json:"peak"`
	Dropped   uint64    `json:"dropped"`
}

// LiveView reads a running capture. Every field may be nil except Capture.
type LiveView struct {
	Capture  Capture
	Detector analysis.BucketProvider
	Meter    *audio.LevelMeter
}

// Status takes a snapshot. It only reads, so it is safe to call while blocks are appended.
func (v LiveView) Status() Status {
	buf := v.Capture.Buffer()
	st := Status{
		Type:    "status",
		Seconds: buf.Duration(),
		Dropped: v.Capture.Dropped(),
		Buckets: []float64{},
	}
	if v.Detector != nil {
		st.Buckets = v.Detector.Buckets().Times()
		st.Pops = len(st.Buckets)
		st.Threshold = v.Detector.Threshold()
	}
	if v.Meter != nil {
		st.Level = v.Meter.Level()
		st.Peak = v.Meter.Max()
	}
	return st
}

// StatusLoop is the headless capture monitor: every interval it logs a status line and sends the
// status to tr, which may be nil. It returns ctx.Err() when ctx is done.
func StatusLoop(view LiveView, interval time.Duration, tr transport.Transport) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				st := view.Status()
				applog.Infof("Live: %.1fs captured, %d pop(s), level %.2f", st.Seconds, st.Pops, st.Level)
				if tr == nil {
					continue
				}
				if err := tr.Send(st); err != nil {
					applog.Errorf("Live: error sending status: %v", err)
				}
			}
		}
	}
}
