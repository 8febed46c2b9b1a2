// SPDX-License-Identifier: MIT
package present

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"popdetect/internal/audio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport() Report {
	return Report{
		Source:        "/tmp/take1.wav",
		FileName:      "take1.wav",
		Duration:      12.3456,
		SampleRate:    44100,
		RecordingDate: audio.NotAvailable,
		Threshold:     0.4,
		Pops:          []float64{0.5, 1.0},
		Levels:        audio.Summary{Samples: 10, Peak: 0.93, RMS: 0.125},
	}
}

func TestFormatThreshold(t *testing.T) {
	tests := map[float64]string{0.4: "0.4", 0.35: "0.35", 1: "1.0", 0: "0.0"}
	for in, want := range tests {
		assert.Equal(t, want, formatThreshold(in))
	}
}

func TestTextPresenter(t *testing.T) {
	var buf bytes.Buffer
	p := &TextPresenter{W: &buf}
	require.NoError(t, p.Present(sampleReport(), nil))

	want := `File Name: take1.wav
Duration: 12.35 seconds
Sampling Rate: 44100 Hz
Recording Date and Time: Not Available
Peak Amplitude: 0.930, RMS: 0.125

Detected pop sound(s) above 0.4 amplitude at the following times (in 0.5-second intervals):
0.5 seconds
1.0 seconds
Detected Pops: 2
`
	assert.Equal(t, want, buf.String())
}

func TestTextPresenterNoPops(t *testing.T) {
	r := sampleReport()
	r.Pops = nil
	r.Threshold = 1

	var buf bytes.Buffer
	require.NoError(t, (&TextPresenter{W: &buf}).Present(r, nil))
	assert.Contains(t, buf.String(), "No pop sounds detected above 1.0 amplitude.\nDetected Pops: 0\n")
	assert.NotContains(t, buf.String(), "seconds\n0")
}

func TestTextPresenterLiveExtras(t *testing.T) {
	r := sampleReport()
	r.Dropped = 3
	r.RecordedTo = "recordings/x.wav"
	r.Metadata = &audio.Metadata{Title: "Take", Artist: "Band"}

	var buf bytes.Buffer
	require.NoError(t, (&TextPresenter{W: &buf}).PresentInfo(r))
	out := buf.String()
	assert.Contains(t, out, "Title: Take\n")
	assert.Contains(t, out, "Artist: Band\n")
	assert.Contains(t, out, "Dropped Blocks: 3\n")
	assert.Contains(t, out, "Recorded To: recordings/x.wav\n")
	assert.NotContains(t, out, "Detected Pops")
}

func TestYAMLPresenter(t *testing.T) {
	var buf bytes.Buffer
	r := sampleReport()
	r.Pops = nil
	require.NoError(t, (&YAMLPresenter{W: &buf}).Present(r, nil))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "take1.wav", decoded["file_name"])
	assert.Equal(t, 44100, decoded["sample_rate"])
	assert.Equal(t, 0.4, decoded["threshold"])
	assert.Equal(t, []any{}, decoded["pops"])
	assert.NotContains(t, decoded, "dropped_blocks")
	assert.Contains(t, buf.String(), "  peak: 0.93")
}

func TestPlotPresenter(t *testing.T) {
	tests := []struct {
		name    string
		samples int
	}{
		{"Short buffer", 100},
		{"Enveloped buffer", 3 * maxPlotPoints},
		{"Empty buffer", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := make([]float64, tt.samples)
			for i := range samples {
				samples[i] = float64(i%7)/7 - 0.5
			}
			buf := audio.NewFrozenBuffer(samples, 1000)
			path := filepath.Join(t.TempDir(), "wave.png")

			p := &PlotPresenter{Path: path, Width: 4, Height: 2}
			require.NoError(t, p.Present(sampleReport(), buf))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")), "not a PNG file")
		})
	}
}

func TestWaveformXYs(t *testing.T) {
	short := waveformXYs(audio.NewFrozenBuffer([]float64{0.1, 0.2}, 2))
	require.Len(t, short, 2)
	assert.Equal(t, 0.5, short[1].X)

	long := waveformXYs(audio.NewFrozenBuffer(make([]float64, 2*maxPlotPoints), 100))
	assert.Len(t, long, maxPlotPoints)
	assert.LessOrEqual(t, long[len(long)-1].X, float64(2*maxPlotPoints)/100)
}
