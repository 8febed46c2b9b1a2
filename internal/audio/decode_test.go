// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV encodes interleaved integer PCM to a WAV file in t.TempDir and returns its path.
func writeWAV(t *testing.T, name string, sampleRate, bitDepth, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           data,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestDecodeWAVMono16(t *testing.T) {
	path := writeWAV(t, "mono.wav", 8000, 16, 1, []int{0, 16384, -16384, 32767, -32768})

	buf, err := Decode(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, buf.SampleRate())
	assert.True(t, buf.Frozen())
	want := []float64{0, 0.5, -0.5, 32767.0 / 32768, -1}
	got := buf.Samples()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "sample %d", i)
	}
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	// Frames: (L=0.5, R=-0.5), (L=0.5, R=0.5), (L=-1, R=0)
	path := writeWAV(t, "stereo.wav", 44100, 16, 2, []int{16384, -16384, 16384, 16384, -32768, 0})

	buf, err := Decode(path)
	require.NoError(t, err)

	got := buf.Samples()
	require.Len(t, got, 3)
	assert.InDelta(t, 0.0, got[0], 1e-9)
	assert.InDelta(t, 0.5, got[1], 1e-9)
	assert.InDelta(t, -0.5, got[2], 1e-9)
	assert.Equal(t, 44100, buf.SampleRate())
}

func TestDecodeWAV24Bit(t *testing.T) {
	path := writeWAV(t, "deep.wav", 48000, 24, 1, []int{1 << 22, -(1 << 23)})

	buf, err := Decode(path)
	require.NoError(t, err)
	got := buf.Samples()
	require.Len(t, got, 2)
	assert.InDelta(t, 0.5, got[0], 1e-9)
	assert.InDelta(t, -1.0, got[1], 1e-9)
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not RIFF data"), 0o644))
	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o644))
	badMP3 := filepath.Join(dir, "bad.mp3")
	require.NoError(t, os.WriteFile(badMP3, []byte{0, 1, 2, 3}, 0o644))
	badFLAC := filepath.Join(dir, "bad.flac")
	require.NoError(t, os.WriteFile(badFLAC, []byte("fLaX"), 0o644))

	tests := []struct {
		name        string
		path        string
		unsupported bool
	}{
		{"Missing file", filepath.Join(dir, "missing.wav"), false},
		{"Unknown extension", text, true},
		{"Invalid WAV", garbage, true},
		{"Invalid MP3", badMP3, false},
		{"Invalid FLAC", badFLAC, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := Decode(tt.path)
			require.Error(t, err)
			assert.Nil(t, buf)

			var de *DecodeError
			require.True(t, errors.As(err, &de), "want *DecodeError, got %T", err)
			assert.Equal(t, tt.path, de.Path)
			assert.Equal(t, tt.unsupported, errors.Is(err, ErrUnsupportedFormat))
		})
	}
}

func TestDecodeWAV8BitUnsigned(t *testing.T) {
	path := writeWAV(t, "eight.wav", 8000, 8, 1, []int{128, 192, 64, 255, 0, 128})

	buf, err := Decode(path)
	require.NoError(t, err)

	want := []float64{0, 0.5, -0.5, 127.0 / 128, -1, 0}
	got := buf.Samples()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "sample %d", i)
	}
}

func TestStereo16ToMono(t *testing.T) {
	pcm := []byte{
		0x00, 0x40, 0x00, 0x40, // 16384, 16384
		0x00, 0x80, 0xff, 0x7f, // -32768, 32767
		0x00, 0xc0, 0x00, 0x00, // -16384, 0
		0x01, 0x02, // partial frame
	}
	got := stereo16ToMono(pcm)
	require.Len(t, got, 3)
	assert.Equal(t, 0.5, got[0])
	assert.InDelta(t, -0.5/32768, got[1], 1e-12)
	assert.Equal(t, -0.25, got[2])
}

// syncsafe encodes n as an ID3v2 28-bit syncsafe integer.
func syncsafe(n int) []byte {
	return []byte{byte(n >> 21 & 0x7f), byte(n >> 14 & 0x7f), byte(n >> 7 & 0x7f), byte(n & 0x7f)}
}

// id3v2Tag builds an ID3v2.3 or v2.4 tag holding one text frame followed by padding.
func id3v2Tag(version byte, id, text string) []byte {
	body := append([]byte{0x00}, text...)
	size := make([]byte, 4)
	if version == 4 {
		body[0] = 0x03 // UTF-8
		size = syncsafe(len(body))
	} else {
		binary.BigEndian.PutUint32(size, uint32(len(body)))
	}

	var frames bytes.Buffer
	frames.WriteString(id)
	frames.Write(size)
	frames.Write([]byte{0, 0})
	frames.Write(body)
	frames.Write(make([]byte, 16))

	var tag bytes.Buffer
	tag.WriteString("ID3")
	tag.Write([]byte{version, 0, 0})
	tag.Write(syncsafe(frames.Len()))
	tag.Write(frames.Bytes())
	return tag.Bytes()
}

// silentMP3Frames returns n MPEG-1 Layer III frames (128 kbit/s, 44.1 kHz, stereo) with empty
// side info, which decode to silence.
func silentMP3Frames(n int) []byte {
	const frameLen = 417
	var out bytes.Buffer
	for range n {
		f := make([]byte, frameLen)
		copy(f, []byte{0xff, 0xfb, 0x90, 0x00})
		out.Write(f)
	}
	return out.Bytes()
}

func writeTaggedMP3(t *testing.T, tag []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tagged.mp3")
	require.NoError(t, os.WriteFile(path, append(tag, silentMP3Frames(10)...), 0o644))
	return path
}

func TestDecodeMP3(t *testing.T) {
	path := writeTaggedMP3(t, id3v2Tag(4, "TDRC", "2019-06-01"))

	buf, err := Decode(path)
	require.NoError(t, err)

	assert.Equal(t, 44100, buf.SampleRate())
	samples := buf.Samples()
	require.NotEmpty(t, samples)
	assert.Zero(t, len(samples)%1152, "MPEG-1 Layer III frames hold 1152 samples")
	for i, s := range samples {
		if s != 0 {
			t.Fatalf("sample %d = %f, want silence", i, s)
		}
	}
}

// writeFLAC encodes two 256-sample verbatim stereo frames at 8 kHz with constant left and right
// values, tagged with a Vorbis DATE comment.
func writeFLAC(t *testing.T, left, right int32, date string) string {
	t.Helper()
	const blockSize = 256
	path := filepath.Join(t.TempDir(), "take.flac")
	f, err := os.Create(path)
	require.NoError(t, err)

	info := &meta.StreamInfo{
		BlockSizeMin:  blockSize,
		BlockSizeMax:  blockSize,
		SampleRate:    8000,
		NChannels:     2,
		BitsPerSample: 16,
	}
	comment := &meta.Block{
		Header: meta.Header{Type: meta.TypeVorbisComment, Length: 1},
		Body:   &meta.VorbisComment{Vendor: "popdetect test", Tags: [][2]string{{"DATE", date}}},
	}
	enc, err := flac.NewEncoder(f, info, comment)
	require.NoError(t, err)

	constant := func(v int32) []int32 {
		s := make([]int32, blockSize)
		for i := range s {
			s[i] = v
		}
		return s
	}
	for range 2 {
		require.NoError(t, enc.WriteFrame(&frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         blockSize,
				SampleRate:        8000,
				Channels:          frame.ChannelsLR,
				BitsPerSample:     16,
			},
			Subframes: []*frame.Subframe{
				{SubHeader: frame.SubHeader{Pred: frame.PredVerbatim}, Samples: constant(left), NSamples: blockSize},
				{SubHeader: frame.SubHeader{Pred: frame.PredVerbatim}, Samples: constant(right), NSamples: blockSize},
			},
		}))
	}
	// Close also closes f.
	require.NoError(t, enc.Close())
	return path
}

func TestDecodeFLACDownmix(t *testing.T) {
	path := writeFLAC(t, 16384, -8192, "2019-06-01")

	buf, err := Decode(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, buf.SampleRate())
	samples := buf.Samples()
	require.Len(t, samples, 512)
	for i, s := range samples {
		if s != 0.125 {
			t.Fatalf("sample %d = %f, want 0.125", i, s)
		}
	}
}

func TestDecodeM4AWithoutConverter(t *testing.T) {
	old := ffmpegCommand
	ffmpegCommand = "popdetect-no-such-converter"
	t.Cleanup(func() { ffmpegCommand = old })

	path := filepath.Join(t.TempDir(), "take.m4a")
	require.NoError(t, os.WriteFile(path, []byte("not really AAC"), 0o644))

	buf, err := Decode(path)
	assert.Nil(t, buf)
	var de *DecodeError
	require.True(t, errors.As(err, &de), "want *DecodeError, got %T", err)
	assert.Equal(t, path, de.Path)
	assert.ErrorIs(t, err, ErrConverterMissing)
}

func TestDecodeM4AConverts(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	// ffmpeg detects the container from its content, so a WAV payload behind an .m4a name still converts.
	wavPath := writeWAV(t, "src.wav", 8000, 16, 1, []int{0, 16384, -16384, 0})
	data, err := os.ReadFile(wavPath)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "take.m4a")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	buf, err := DecodeContext(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 8000, buf.SampleRate())
	assert.Equal(t, []float64{0, 0.5, -0.5, 0}, buf.Samples())
}

func TestDecodeM4ACancelled(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "take.m4a")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := DecodeContext(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
