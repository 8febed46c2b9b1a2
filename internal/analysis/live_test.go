// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"popdetect/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveDetectorMatchesBatch(t *testing.T) {
	const rate = 8000
	samples := utils.GenerateClicks(rate, 3, 0.2, 0.9, 0.2, 0.7, 0.74, 2.5)
	want, err := Detect(samples, rate, 0.5)
	require.NoError(t, err)

	for _, block := range []int{1, 64, 256, 4000, 5000} {
		d, err := NewLiveDetector(rate, 0.5, nil)
		require.NoError(t, err)
		for start := 0; start < len(samples); start += block {
			d.ProcessBlock(samples[start:min(start+block, len(samples))])
		}
		assert.Equal(t, want.Times(), d.Buckets().Times(), "block %d", block)
	}
}

func TestLiveDetectorPublishesNewBuckets(t *testing.T) {
	mock := &utils.MockTransport{}
	d, err := NewLiveDetector(10, 0.8, mock)
	require.NoError(t, err)

	d.ProcessBlock([]float64{0, 0.9, 0, 0.95})
	d.ProcessBlock([]float64{0, 0, -0.9, 0})

	msgs := mock.Messages()
	require.Len(t, msgs, 2)

	first := msgs[0].(PopEvent)
	assert.Equal(t, "pop", first.Type)
	assert.Equal(t, 0.0, first.Bucket)
	assert.InDelta(t, 0.1, first.Time, 1e-9)
	assert.Equal(t, 0.9, first.Amplitude)
	assert.Equal(t, 1, first.Count)

	second := msgs[1].(PopEvent)
	assert.Equal(t, 0.5, second.Bucket)
	assert.InDelta(t, 0.6, second.Time, 1e-9)
	assert.Equal(t, 2, second.Count)
}

func TestLiveDetectorSetThreshold(t *testing.T) {
	d, err := NewLiveDetector(10, 0.8, nil)
	require.NoError(t, err)

	d.ProcessBlock([]float64{0.5, 0, 0, 0, 0})
	assert.Equal(t, 0, d.Buckets().Len())

	require.NoError(t, d.SetThreshold(0.4))
	assert.Equal(t, 0.4, d.Threshold())
	d.ProcessBlock([]float64{0.5, 0, 0, 0, 0})
	assert.Equal(t, []float64{0.5}, d.Buckets().Times())

	assert.ErrorIs(t, d.SetThreshold(1.1), ErrInvalidThreshold)
	assert.Equal(t, 0.4, d.Threshold())
}

func TestLiveDetectorReset(t *testing.T) {
	d, err := NewLiveDetector(10, 0.5, nil)
	require.NoError(t, err)
	d.ProcessBlock([]float64{0, 0, 0, 0, 0, 0.9})
	require.Equal(t, 1, d.Buckets().Len())

	d.Reset()
	assert.Equal(t, 0, d.Buckets().Len())

	// Offsets restart at zero: the first sample lands in bucket 0 again.
	d.ProcessBlock([]float64{0.9})
	assert.Equal(t, []float64{0.0}, d.Buckets().Times())
}

func TestLiveDetectorIgnoresNaN(t *testing.T) {
	mock := &utils.MockTransport{}
	d, err := NewLiveDetector(10, 0.5, mock)
	require.NoError(t, err)

	d.ProcessBlock([]float64{math.NaN(), 0, 0, 0, 0, math.NaN(), 0, 0, 0, 0})
	assert.Equal(t, 0, d.Buckets().Len())
	assert.Empty(t, mock.Messages())

	d.ProcessBlock([]float64{0, math.NaN(), 0.7})
	assert.Equal(t, []float64{1.0}, d.Buckets().Times())
	require.Len(t, mock.Messages(), 1)
}

func TestNewLiveDetectorInvalid(t *testing.T) {
	_, err := NewLiveDetector(0, 0.5, nil)
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
	_, err = NewLiveDetector(44100, -1, nil)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}
