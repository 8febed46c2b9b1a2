// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"popdetect/internal/config"
	applog "popdetect/internal/log"

	"github.com/gordonklaus/portaudio"
)

// Player plays a mono Buffer through a PortAudio output stream. Start, Stop and Toggle may be
// called from any goroutine.
type Player struct {
	device          *portaudio.DeviceInfo
	framesPerBuffer int

	mu      sync.Mutex
	stream  *portaudio.Stream
	current *playback
}

// playback is the state of one Start call. The callback reads samples and advances pos.
type playback struct {
	samples  []float64
	pos      atomic.Int64
	finished chan struct{} // Closed when the samples run out or Stop is called.
	once     sync.Once
	done     chan struct{} // Closed once the stream has been torn down.
}

func newPlayback(samples []float64) *playback {
	return &playback{
		samples:  samples,
		finished: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (pb *playback) finish() {
	pb.once.Do(func() { close(pb.finished) })
}

// fill writes the next len(out) samples and pads with silence at the end.
func (pb *playback) fill(out []float32) {
	pos := int(pb.pos.Load())
	n := copy32(out, pb.samples[min(pos, len(pb.samples)):])
	clear(out[n:])
	pb.pos.Store(int64(pos + n))
	if pos+n >= len(pb.samples) {
		pb.finish()
	}
}

func copy32(dst []float32, src []float64) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = float32(src[i])
	}
	return n
}

// NewPlayer resolves the configured output device.
func NewPlayer(cfg *config.Config) (*Player, error) {
	device, err := OutputDevice(cfg.OutputDeviceID())
	if err != nil {
		return nil, err
	}
	applog.Debugf("Player: Output device %q", device.Name)
	return &Player{device: device, framesPerBuffer: cfg.FramesPerBuffer()}, nil
}

// Start plays buf from the beginning. Starting while already playing is a no-op.
func (p *Player) Start(buf *Buffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		return nil
	}
	if buf.Len() == 0 {
		return fmt.Errorf("nothing to play")
	}

	pb := newPlayback(buf.Samples())
	params := portaudio.HighLatencyParameters(nil, p.device)
	params.Output.Channels = 1
	params.SampleRate = float64(buf.SampleRate())
	params.FramesPerBuffer = p.framesPerBuffer

	stream, err := portaudio.OpenStream(params, pb.fill)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start output stream: %w", err)
	}
	p.stream = stream
	p.current = pb

	// The stream cannot be stopped from its own callback.
	go func() {
		<-pb.finished
		if err := p.stop(pb); err != nil {
			applog.Errorf("Player: %v", err)
		}
	}()

	applog.Infof("Player: Playing %.2fs at %d Hz", buf.Duration(), buf.SampleRate())
	return nil
}

// Stop halts playback. It is a no-op when nothing is playing.
func (p *Player) Stop() error {
	p.mu.Lock()
	pb := p.current
	p.mu.Unlock()
	if pb == nil {
		return nil
	}
	return p.stop(pb)
}

func (p *Player) stop(pb *playback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != pb {
		return nil
	}

	pb.finish()
	err := p.stream.Stop()
	if cerr := p.stream.Close(); err == nil {
		err = cerr
	}
	p.stream = nil
	p.current = nil
	close(pb.done)
	return err
}

// Toggle stops playback when playing and starts playing buf otherwise. It returns whether the
// player is now playing.
func (p *Player) Toggle(buf *Buffer) (bool, error) {
	if p.Playing() {
		return false, p.Stop()
	}
	if err := p.Start(buf); err != nil {
		return false, err
	}
	return true, nil
}

// Playing reports whether a stream is active.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Wait blocks until the current playback ends or ctx is done. Cancelling ctx stops playback.
func (p *Player) Wait(ctx context.Context) error {
	p.mu.Lock()
	pb := p.current
	p.mu.Unlock()
	if pb == nil {
		return nil
	}

	select {
	case <-pb.done:
		return nil
	case <-ctx.Done():
		if err := p.stop(pb); err != nil {
			return err
		}
		return ctx.Err()
	}
}
