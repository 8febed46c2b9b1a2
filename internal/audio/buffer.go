// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"sync"
)

// ErrBufferFrozen is returned by Append once the buffer has been frozen.
var ErrBufferFrozen = errors.New("audio: buffer is frozen")

// Buffer is a mono sample buffer paired with its sample rate. Samples are normalized to
// [-1.0, 1.0]. During a live capture exactly one goroutine appends while any number of readers
// take snapshots; once frozen the contents never change and Samples can be shared without copying.
type Buffer struct {
	mu         sync.RWMutex
	samples    []float64
	sampleRate int
	frozen     bool
}

// NewBuffer returns an empty, appendable buffer.
func NewBuffer(sampleRate int) *Buffer {
	return &Buffer{sampleRate: sampleRate}
}

// NewFrozenBuffer wraps decoded samples. The buffer takes ownership of samples.
func NewFrozenBuffer(samples []float64, sampleRate int) *Buffer {
	return &Buffer{samples: samples, sampleRate: sampleRate, frozen: true}
}

// Append copies block onto the end of the buffer.
func (b *Buffer) Append(block []float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return ErrBufferFrozen
	}
	b.samples = append(b.samples, block...)
	return nil
}

// Freeze marks the buffer final. Subsequent appends fail with ErrBufferFrozen.
func (b *Buffer) Freeze() {
	b.mu.Lock()
	b.frozen = true
	b.mu.Unlock()
}

// Frozen reports whether the buffer is final.
func (b *Buffer) Frozen() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frozen
}

// Samples returns the backing slice of a frozen buffer. For a buffer that is still being
// appended to it returns a Snapshot instead. Callers must not modify the result.
func (b *Buffer) Samples() []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.frozen {
		return b.samples
	}
	return append([]float64(nil), b.samples...)
}

// Snapshot returns a copy of the samples appended so far.
func (b *Buffer) Snapshot() []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]float64(nil), b.samples...)
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// SampleRate returns the sample rate in Hz.
func (b *Buffer) SampleRate() int {
	return b.sampleRate
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.sampleRate <= 0 {
		return 0
	}
	return float64(b.Len()) / float64(b.sampleRate)
}

// EnvelopeInto fills dst with the peak absolute amplitude of len(dst) equal bins spanning the
// last second of audio, oldest bin first. Bins with no samples are zero.
func (b *Buffer) EnvelopeInto(dst []float64) error {
	if len(dst) == 0 {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	window := b.sampleRate
	if window > len(b.samples) {
		window = len(b.samples)
	}
	peakBins(b.samples[len(b.samples)-window:], dst)
	return nil
}
