// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gopxl/beep/v2/flac"
	"github.com/hajimehoshi/go-mp3"

	applog "popdetect/internal/log"
)

// ErrUnsupportedFormat is wrapped by a DecodeError when the file type or encoding is not handled.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// wavFormatFloat is the WAVE_FORMAT_IEEE_FLOAT format tag.
const wavFormatFloat = 3

// DecodeError reports a file that could not be read or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// SupportedExtensions lists the file extensions Decode accepts.
var SupportedExtensions = []string{".wav", ".mp3", ".flac", ".m4a"}

// Decode reads the whole file at path and returns its samples downmixed to mono at the file's
// native sample rate. The returned buffer is frozen.
func Decode(path string) (*Buffer, error) {
	return DecodeContext(context.Background(), path)
}

// DecodeContext is Decode with a context bounding any external conversion the format needs.
func DecodeContext(ctx context.Context, path string) (*Buffer, error) {
	var (
		samples []float64
		rate    int
		err     error
	)
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".m4a" {
		samples, rate, err = decodeM4A(ctx, path)
	} else {
		samples, rate, err = decodeFile(path, ext)
	}
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if rate <= 0 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("invalid sample rate %d", rate)}
	}

	applog.Debugf("Decode: %s (%d samples at %d Hz)", path, len(samples), rate)
	return NewFrozenBuffer(samples, rate), nil
}

func decodeFile(path, ext string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	switch ext {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".flac":
		return decodeFLAC(f)
	}
	return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

func decodeWAV(r io.ReadSeeker) ([]float64, int, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	if d.WavAudioFormat == wavFormatFloat {
		return nil, 0, fmt.Errorf("%w: floating point WAV", ErrUnsupportedFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, 0, fmt.Errorf("missing WAV format")
	}
	return pcmToMono(buf, int(d.BitDepth)), buf.Format.SampleRate, nil
}

// pcmToMono normalizes integer PCM to [-1, 1] and averages the channels of each frame.
func pcmToMono(buf *goaudio.IntBuffer, bitDepth int) []float64 {
	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	out := make([]float64, frames)

	scale := float64(int64(1) << (bitDepth - 1))
	bias := 0.0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned.
		bias = scale
	}

	for f := range frames {
		sum := 0.0
		for c := range channels {
			sum += (float64(buf.Data[f*channels+c]) - bias) / scale
		}
		out[f] = sum / float64(channels)
	}
	return out
}

func decodeMP3(r io.Reader) ([]float64, int, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, 0, err
	}

	return stereo16ToMono(pcm), d.SampleRate(), nil
}

// stereo16ToMono averages interleaved 16-bit little endian stereo frames, the only layout
// go-mp3 produces. A trailing partial frame is dropped.
func stereo16ToMono(pcm []byte) []float64 {
	const frameSize = 4
	out := make([]float64, len(pcm)/frameSize)
	for i := range out {
		p := pcm[i*frameSize:]
		left := int16(uint16(p[0]) | uint16(p[1])<<8)
		right := int16(uint16(p[2]) | uint16(p[3])<<8)
		out[i] = (float64(left) + float64(right)) / 2 / 32768
	}
	return out
}

func decodeFLAC(r io.Reader) ([]float64, int, error) {
	streamer, format, err := flac.Decode(r)
	if err != nil {
		return nil, 0, err
	}
	defer streamer.Close()

	var out []float64
	if n := streamer.Len(); n > 0 {
		out = make([]float64, 0, n)
	}
	batch := make([][2]float64, 4096)
	for {
		n, ok := streamer.Stream(batch)
		for _, frame := range batch[:n] {
			out = append(out, (frame[0]+frame[1])/2)
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, 0, err
	}
	return out, int(format.SampleRate), nil
}
