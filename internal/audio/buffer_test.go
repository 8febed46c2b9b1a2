// SPDX-License-Identifier: MIT
package audio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferAppendAndFreeze(t *testing.T) {
	b := NewBuffer(4)
	require.NoError(t, b.Append([]float64{0.1, 0.2}))
	require.NoError(t, b.Append([]float64{0.3}))

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 0.75, b.Duration())
	assert.False(t, b.Frozen())

	b.Freeze()
	assert.True(t, b.Frozen())
	assert.ErrorIs(t, b.Append([]float64{0.4}), ErrBufferFrozen)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, b.Samples())
}

func TestBufferAppendCopiesBlock(t *testing.T) {
	b := NewBuffer(8000)
	block := []float64{0.5, 0.5}
	require.NoError(t, b.Append(block))
	block[0] = -1

	assert.Equal(t, []float64{0.5, 0.5}, b.Snapshot())
}

func TestBufferSnapshotIsIndependent(t *testing.T) {
	b := NewBuffer(8000)
	require.NoError(t, b.Append([]float64{1, 2, 3}))

	snap := b.Snapshot()
	snap[0] = 99
	assert.Equal(t, 1.0, b.Snapshot()[0])

	// Unfrozen buffers never hand out their backing array.
	s := b.Samples()
	s[1] = 99
	assert.Equal(t, 2.0, b.Snapshot()[1])
}

func TestBufferEnvelopeInto(t *testing.T) {
	// Rate 4: the trailing second is the last four samples.
	b := NewFrozenBuffer([]float64{0.9, 0.1, -0.2, 0.3, -0.8}, 4)

	dst := make([]float64, 2)
	require.NoError(t, b.EnvelopeInto(dst))
	assert.Equal(t, []float64{0.2, 0.8}, dst)

	empty := NewBuffer(4)
	dst = []float64{7, 7}
	require.NoError(t, empty.EnvelopeInto(dst))
	assert.Equal(t, []float64{0, 0}, dst)
}

func TestBufferConcurrentReaders(t *testing.T) {
	b := NewBuffer(1000)
	block := make([]float64, 100)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env := make([]float64, 16)
			for {
				select {
				case <-stop:
					return
				default:
					_ = b.Snapshot()
					_ = b.Duration()
					_ = b.EnvelopeInto(env)
				}
			}
		}()
	}

	for range 200 {
		require.NoError(t, b.Append(block))
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, 20000, b.Len())
}
