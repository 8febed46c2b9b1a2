// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sync"
	"sync/atomic"

	applog "popdetect/internal/log"
	"popdetect/internal/transport"
)

// PopEvent is published once for every bucket the live detector flags for the first time.
type PopEvent struct {
	Type      string  `json:"type"`      // Always "pop".
	Bucket    float64 `json:"bucket"`    // Bucket start time in seconds.
	Time      float64 `json:"time"`      // Time of the first exceeding sample in seconds.
	Amplitude float64 `json:"amplitude"` // Absolute amplitude of that sample.
	Count     int     `json:"count"`     // Distinct buckets flagged so far.
}

// LiveDetector applies the pop rule incrementally to blocks appended during a capture. It keeps
// the absolute sample index across blocks so bucket times are relative to the capture start.
// ProcessBlock must be called from a single goroutine; Buckets, Threshold and SetThreshold are
// safe to call concurrently with it.
type LiveDetector struct {
	sampleRate int
	threshold  atomic.Uint64 // math.Float64bits of the threshold.
	transport  transport.Transport

	mu      sync.Mutex
	offset  int64
	buckets BucketSet
}

var _ ResettableProcessor = (*LiveDetector)(nil)
var _ BucketProvider = (*LiveDetector)(nil)

// NewLiveDetector creates a detector for a stream at sampleRate. tr may be nil, in which case no
// events are published.
func NewLiveDetector(sampleRate int, threshold float64, tr transport.Transport) (*LiveDetector, error) {
	if err := validate(sampleRate, threshold); err != nil {
		return nil, err
	}
	applog.Infof("Analysis: Initializing LiveDetector (SampleRate: %d Hz, Threshold: %.2f)", sampleRate, threshold)
	d := &LiveDetector{
		sampleRate: sampleRate,
		transport:  tr,
		buckets:    NewBucketSet(),
	}
	d.threshold.Store(math.Float64bits(threshold))
	return d, nil
}

// SetThreshold changes the threshold applied to subsequent blocks. Buckets already flagged are
// kept.
func (d *LiveDetector) SetThreshold(threshold float64) error {
	if err := ValidateThreshold(threshold); err != nil {
		return err
	}
	d.threshold.Store(math.Float64bits(threshold))
	return nil
}

// Threshold returns the threshold currently applied.
func (d *LiveDetector) Threshold() float64 {
	return math.Float64frombits(d.threshold.Load())
}

// ProcessBlock scans one block and publishes a PopEvent for each newly flagged bucket.
func (d *LiveDetector) ProcessBlock(block []float64) {
	threshold := d.Threshold()

	var events []PopEvent
	d.mu.Lock()
	for i, sample := range block {
		amplitude := math.Abs(sample)
		if !(amplitude > threshold) {
			continue
		}
		abs := d.offset + int64(i)
		bucket := BucketIndex(abs, d.sampleRate)
		if d.buckets.Add(bucket) {
			events = append(events, PopEvent{
				Type:      "pop",
				Bucket:    BucketStart(bucket),
				Time:      float64(abs) / float64(d.sampleRate),
				Amplitude: amplitude,
				Count:     d.buckets.Len(),
			})
		}
	}
	d.offset += int64(len(block))
	d.mu.Unlock()

	if d.transport == nil {
		return
	}
	for _, ev := range events {
		if err := d.transport.Send(ev); err != nil {
			applog.Errorf("LiveDetector: error sending pop event: %v", err)
		}
	}
}

// Buckets returns a copy of the buckets flagged so far.
func (d *LiveDetector) Buckets() BucketSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buckets.Clone()
}

// Reset clears all state so the detector can follow a new capture.
func (d *LiveDetector) Reset() {
	d.mu.Lock()
	d.offset = 0
	d.buckets = NewBucketSet()
	d.mu.Unlock()
}
