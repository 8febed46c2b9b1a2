package utils

import (
	"math"
	"sync"
)

// MockTransport records every message sent to it. Safe for concurrent use.
type MockTransport struct {
	mu     sync.Mutex
	Sent   []any
	Closed bool
}

// Send stores data for later inspection instead of transmitting it.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *MockTransport) Messages() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.Sent...)
}

// GenerateSineWave returns size samples of a sine at frequency Hz with the given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateClicks returns seconds of a quiet 440Hz bed (peak bed) with single-sample clicks of the
// given amplitude at each time in clicks. Clicks alternate polarity so both signs are exercised.
func GenerateClicks(sampleRate int, seconds, bed, amplitude float64, clicks ...float64) []float64 {
	buffer := GenerateSineWave(int(seconds*float64(sampleRate)), float64(sampleRate), 440, bed)
	for n, at := range clicks {
		i := int(at * float64(sampleRate))
		if i < 0 || i >= len(buffer) {
			continue
		}
		if n%2 == 1 {
			buffer[i] = -amplitude
		} else {
			buffer[i] = amplitude
		}
	}
	return buffer
}

// Float32Interleave converts mono samples to an interleaved float32 block with the sample
// duplicated on every channel, the way a capture callback delivers it.
func Float32Interleave(mono []float64, channels int) []float32 {
	out := make([]float32, len(mono)*channels)
	for i, s := range mono {
		for c := range channels {
			out[i*channels+c] = float32(s)
		}
	}
	return out
}
