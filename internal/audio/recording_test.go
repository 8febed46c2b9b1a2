// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"popdetect/pkg/utils"
)

func TestRecordingRoundTrip(t *testing.T) {
	for _, depth := range []int{16, 24, 32} {
		t.Run(fmt.Sprintf("%d-bit", depth), func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "nested", "capture.wav")
			e := newTestEngine(1)
			e.config.Recording.BitDepth = depth
			e.begin()

			if err := e.StartRecording(filename); err != nil {
				t.Fatalf("Failed to start recording: %v", err)
			}
			if !e.Recording() {
				t.Error("Engine should be in recording state")
			}

			signal := utils.GenerateSineWave(testFrameSize*4, testSampleRate, 440, 0.8)
			for i := 0; i < len(signal); i += testFrameSize {
				e.processInputStream(utils.Float32Interleave(signal[i:i+testFrameSize], 1))
			}
			if err := e.Close(); err != nil {
				t.Fatalf("Close error: %v", err)
			}
			if e.Recording() {
				t.Error("Engine should not be recording after Close")
			}

			buf, err := Decode(filename)
			if err != nil {
				t.Fatalf("Decode recorded file: %v", err)
			}
			if buf.SampleRate() != testSampleRate {
				t.Errorf("sample rate = %d, want %d", buf.SampleRate(), testSampleRate)
			}
			got := buf.Samples()
			if len(got) != len(signal) {
				t.Fatalf("recorded %d samples, want %d", len(got), len(signal))
			}
			tolerance := 2 / math.Pow(2, float64(depth-1))
			for i := range signal {
				if math.Abs(got[i]-signal[i]) > tolerance+1e-7 {
					t.Fatalf("sample %d = %f, want %f", i, got[i], signal[i])
				}
			}
		})
	}
}

func TestRecordingClipsOutOfRange(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "clip.wav")
	rec, err := newRecorder(filename, testSampleRate, 16, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.write([]float64{1.5, -2, 0.5}); err != nil {
		t.Fatal(err)
	}
	want := []int{32767, -32767, 16384}
	for i, v := range want {
		if rec.sampleBuf.Data[i] != v {
			t.Errorf("Data[%d] = %d, want %d", i, rec.sampleBuf.Data[i], v)
		}
	}
	if err := rec.close(); err != nil {
		t.Fatal(err)
	}
}

func TestRecordingErrorCases(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		desc          string
		filename      string
		alreadyActive bool
		errorContains string
	}{
		{"Already recording", filepath.Join(dir, "second.wav"), true, "already recording"},
		{"Parent is a file", filepath.Join(blocker, "x.wav"), false, "not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			e := newTestEngine(1)
			if tt.alreadyActive {
				if err := e.StartRecording(filepath.Join(dir, "first.wav")); err != nil {
					t.Fatal(err)
				}
				defer e.StopRecording()
			}
			err := e.StartRecording(tt.filename)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("error = %q, want substring %q", err, tt.errorContains)
			}
		})
	}
}

func TestStopRecordingWhenIdle(t *testing.T) {
	e := newTestEngine(1)
	if err := e.StopRecording(); err != nil {
		t.Errorf("StopRecording on idle engine: %v", err)
	}
}
