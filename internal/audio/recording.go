// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"popdetect/internal/analysis"
	applog "popdetect/internal/log"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the WAVE_FORMAT_PCM format tag.
const wavFormatPCM = 1

// recorder writes mono captured blocks to a WAV file.
type recorder struct {
	path      string
	file      *os.File
	encoder   *wav.Encoder
	sampleBuf *goaudio.IntBuffer // Reused for format conversion.
	scale     float64
	written   int
}

func newRecorder(path string, sampleRate, bitDepth, framesPerBuffer int) (*recorder, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &recorder{
		path:    path,
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, bitDepth, 1, wavFormatPCM),
		sampleBuf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
			Data:           make([]int, framesPerBuffer),
		},
		scale: float64(int64(1)<<(bitDepth-1) - 1),
	}, nil
}

func (r *recorder) write(block []float64) error {
	if cap(r.sampleBuf.Data) < len(block) {
		r.sampleBuf.Data = make([]int, len(block))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(block)]
	for i, s := range block {
		r.sampleBuf.Data[i] = int(math.Round(math.Max(-1, math.Min(1, s)) * r.scale))
	}
	if err := r.encoder.Write(r.sampleBuf); err != nil {
		return err
	}
	r.written += len(block)
	return nil
}

func (r *recorder) close() error {
	err := r.encoder.Close()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// StartRecording writes every block captured from now on to a WAV file at filename, using the
// configured bit depth.
func (e *Engine) StartRecording(filename string) error {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.recorder != nil {
		return fmt.Errorf("already recording")
	}

	rec, err := newRecorder(filename, e.sampleRate, e.config.Recording.BitDepth, e.framesPerBuffer)
	if err != nil {
		return err
	}
	e.recorder = rec
	applog.Infof("Engine: Recording to %s", filename)
	return nil
}

// StopRecording finalizes the WAV file. It is a no-op when not recording.
func (e *Engine) StopRecording() error {
	e.recMu.Lock()
	rec := e.recorder
	e.recorder = nil
	e.recMu.Unlock()

	if rec == nil {
		return nil
	}
	if err := rec.close(); err != nil {
		return err
	}
	applog.Infof("Engine: Recorded %d samples to %s", rec.written, rec.path)
	return nil
}

// Recording reports whether a WAV file is being written.
func (e *Engine) Recording() bool {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	return e.recorder != nil
}

func (e *Engine) recordBlock(block []float64) {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.recorder == nil {
		return
	}
	if err := e.recorder.write(block); err != nil {
		applog.Errorf("Error writing to WAV file: %v", err)
	}
}

// Close stops any recording and the input stream, then closes every processor that holds
// resources.
func (e *Engine) Close() error {
	errs := []error{e.StopInputStream(), e.StopRecording()}
	for _, p := range e.processors {
		if c, ok := p.(analysis.ClosableProcessor); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
