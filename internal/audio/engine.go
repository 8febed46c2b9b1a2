// SPDX-License-Identifier: MIT
/*
Package audio is the sample source of the pop detector:
- File decoding (WAV, MP3, FLAC) into a mono Buffer
- Live capture through PortAudio into a synchronized Buffer
- WAV recording of captures, playback, tag metadata and device listing

Thread Safety:
- The capture callback never blocks or allocates; blocks are handed to one owner goroutine
- Only the owner goroutine appends to the live Buffer and drives processors and recording
- Readers use Buffer snapshots under a read lock
*/
package audio

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"popdetect/internal/analysis"
	"popdetect/internal/config"
	applog "popdetect/internal/log"
	"popdetect/pkg/bitint"

	"github.com/gordonklaus/portaudio"
)

// queueSeconds is how much audio the block queue can hold before the callback starts dropping.
const queueSeconds = 2

type Engine struct {
	// Core configuration and state.
	config          *config.Config
	sampleRate      int
	channels        int
	framesPerBuffer int

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Block hand-off between the callback and the owner goroutine. free holds empty blocks, blocks
	// holds filled ones; both have the same capacity so the callback never waits on either.
	free    chan []float64
	blocks  chan []float64
	done    chan struct{}
	dropped atomic.Uint64

	// Replaced on every start; appended to by the owner goroutine only.
	buffer     atomic.Pointer[Buffer]
	processors []analysis.BlockProcessor

	// Recording state; the owner goroutine writes under recMu.
	recMu    sync.Mutex
	recorder *recorder
}

// NewEngine resolves the configured input device. processors receive every captured block in
// order, after it has been appended to the buffer.
func NewEngine(cfg *config.Config, processors ...analysis.BlockProcessor) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.DeviceID())
	if err != nil {
		return nil, err
	}
	if inputDevice.MaxInputChannels < cfg.Channels() {
		return nil, fmt.Errorf("device %s has %d input channels, %d requested",
			inputDevice.Name, inputDevice.MaxInputChannels, cfg.Channels())
	}

	engine := newEngine(cfg, processors...)
	engine.inputDevice = inputDevice
	if cfg.LowLatency() {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	applog.Infof("Engine: Input device %q (%d Hz, %d channel(s), %d frames per buffer)",
		inputDevice.Name, engine.sampleRate, engine.channels, engine.framesPerBuffer)
	return engine, nil
}

func newEngine(cfg *config.Config, processors ...analysis.BlockProcessor) *Engine {
	e := &Engine{
		config:          cfg,
		sampleRate:      int(cfg.SampleRate()),
		channels:        cfg.Channels(),
		framesPerBuffer: cfg.FramesPerBuffer(),
		processors:      processors,
	}
	e.buffer.Store(NewBuffer(e.sampleRate))
	return e
}

// StartInputStream resets the buffer and starts capturing.
func (e *Engine) StartInputStream() error {
	if e.inputStream != nil {
		return fmt.Errorf("input stream already running")
	}
	e.begin()

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.framesPerBuffer,
		SampleRate:      float64(e.sampleRate),
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		e.finish()
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		e.finish()
		return err
	}
	e.inputStream = stream
	return nil
}

// StopInputStream stops the device, waits until every block already delivered has been appended
// and processed, then freezes the buffer.
func (e *Engine) StopInputStream() error {
	var err error
	if e.inputStream != nil {
		err = e.inputStream.Stop()
		if cerr := e.inputStream.Close(); err == nil {
			err = cerr
		}
		e.inputStream = nil
	}
	e.finish()
	return err
}

// Buffer returns the live capture buffer. It is frozen once StopInputStream returns.
func (e *Engine) Buffer() *Buffer {
	return e.buffer.Load()
}

// EnvelopeInto reads the envelope of the last second of the current capture.
func (e *Engine) EnvelopeInto(dst []float64) error {
	return e.Buffer().EnvelopeInto(dst)
}

// Dropped returns the number of blocks discarded because the owner goroutine fell behind.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}

// SampleRate returns the capture rate in Hz.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// begin allocates a fresh buffer and block queue and starts the owner goroutine.
func (e *Engine) begin() {
	depth := bitint.NextPowerOfTwo(queueSeconds * e.sampleRate / e.framesPerBuffer)
	e.free = make(chan []float64, depth)
	e.blocks = make(chan []float64, depth)
	for range depth {
		e.free <- make([]float64, e.framesPerBuffer)
	}
	e.done = make(chan struct{})
	e.dropped.Store(0)
	buf := NewBuffer(e.sampleRate)
	e.buffer.Store(buf)
	// Sample offsets restart with the new buffer.
	for _, p := range e.processors {
		if r, ok := p.(analysis.ResettableProcessor); ok {
			r.Reset()
		}
	}

	go e.run(buf, e.blocks, e.done)
}

// finish closes the block queue and waits for the owner goroutine to drain it.
func (e *Engine) finish() {
	if e.blocks == nil {
		return
	}
	close(e.blocks)
	<-e.done
	e.blocks = nil
	buf := e.Buffer()
	buf.Freeze()

	if n := e.dropped.Load(); n > 0 {
		applog.Warnf("Engine: %d block(s) dropped during capture", n)
	}
	applog.Debugf("Engine: Capture finished with %d samples (%.2fs)", buf.Len(), buf.Duration())
}

// run is the owner goroutine: the only writer of the buffer and the recorder.
func (e *Engine) run(buf *Buffer, blocks <-chan []float64, done chan<- struct{}) {
	defer close(done)
	for block := range blocks {
		if err := buf.Append(block); err != nil {
			applog.Errorf("Engine: %v", err)
		}
		for _, p := range e.processors {
			p.ProcessBlock(block)
		}
		e.recordBlock(block)
		e.free <- block[:cap(block)]
	}
}

// processInputStream is the PortAudio callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated blocks only
// - Never blocks: without a free block the input is dropped and counted
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	frames := len(in) / e.channels

	var block []float64
	select {
	case block = <-e.free:
	default:
		e.dropped.Add(1)
		return
	}
	if frames > cap(block) {
		e.free <- block
		e.dropped.Add(1)
		return
	}

	block = block[:frames]
	downmix(in, e.channels, block)

	select {
	case e.blocks <- block:
	default:
		e.free <- block
		e.dropped.Add(1)
	}
}

// downmix averages the channels of each interleaved frame of in into out.
func downmix(in []float32, channels int, out []float64) {
	if channels == 1 {
		for i := range out {
			out[i] = float64(in[i])
		}
		return
	}
	for f := range out {
		sum := 0.0
		for c := range channels {
			sum += float64(in[f*channels+c])
		}
		out[f] = sum / float64(channels)
	}
}
