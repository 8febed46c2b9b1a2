// SPDX-License-Identifier: MIT
package session

import (
	"context"
	"time"

	"popdetect/internal/analysis"
	"popdetect/internal/audio"
	applog "popdetect/internal/log"
)

// Detector runs the pop scan over a whole buffer, optionally in parallel chunks.
type Detector struct {
	Threshold    float64
	Parallel     bool
	ChunkSeconds float64 // Chunk duration for parallel scans; zero selects the default.
	Workers      int     // Zero selects GOMAXPROCS.

	// Follow, when set, supplies the threshold at scan time so changes made during a live
	// capture apply to the final report.
	Follow analysis.BucketProvider
}

// CurrentThreshold returns the threshold the next scan will use.
func (d Detector) CurrentThreshold() float64 {
	if d.Follow != nil {
		return d.Follow.Threshold()
	}
	return d.Threshold
}

// Detect returns the flagged buckets of buf. An empty buffer yields an empty set.
func (d Detector) Detect(ctx context.Context, buf *audio.Buffer) (analysis.BucketSet, error) {
	threshold := d.CurrentThreshold()
	if err := analysis.ValidateThreshold(threshold); err != nil {
		return analysis.BucketSet{}, err
	}
	samples := buf.Samples()
	start := time.Now()

	var (
		set analysis.BucketSet
		err error
	)
	if d.Parallel {
		seconds := d.ChunkSeconds
		if seconds <= 0 {
			seconds = analysis.DefaultChunkSeconds
		}
		set, err = analysis.DetectChunked(ctx, samples, buf.SampleRate(), threshold, analysis.ChunkOptions{
			ChunkSamples: analysis.ChunkSamplesFor(seconds, buf.SampleRate()),
			Workers:      d.Workers,
		})
	} else {
		set, err = analysis.Detect(samples, buf.SampleRate(), threshold)
	}
	if err != nil {
		return analysis.BucketSet{}, err
	}

	applog.Debugf("Session: Scanned %d samples in %s (parallel=%v), %d bucket(s) flagged",
		len(samples), time.Since(start), d.Parallel, set.Len())
	return set, nil
}
