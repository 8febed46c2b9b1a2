// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	applog "popdetect/internal/log"
)

// ErrConverterMissing is wrapped by a DecodeError when a format needs ffmpeg and it is not on PATH.
var ErrConverterMissing = errors.New("ffmpeg not found in PATH")

// ffmpegCommand is the converter binary; tests point it elsewhere.
var ffmpegCommand = "ffmpeg"

// decodeM4A has ffmpeg transcode the file to 16-bit PCM WAV in a temporary directory and decodes
// the result like any other WAV file.
func decodeM4A(ctx context.Context, path string) ([]float64, int, error) {
	bin, err := exec.LookPath(ffmpegCommand)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrConverterMissing, err)
	}

	tmp, err := os.MkdirTemp("", "popdetect-*")
	if err != nil {
		return nil, 0, err
	}
	defer os.RemoveAll(tmp)
	out := filepath.Join(tmp, "decoded.wav")

	cmd := exec.CommandContext(ctx, bin,
		"-y", "-v", "quiet",
		"-i", path,
		"-vn",
		"-c:a", "pcm_s16le",
		out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("ffmpeg failed: %v (%s)", err, output)
	}
	applog.Debugf("Decode: Converted %s with %s", path, bin)

	f, err := os.Open(out)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return decodeWAV(f)
}
