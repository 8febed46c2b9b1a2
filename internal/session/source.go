// SPDX-License-Identifier: MIT
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"popdetect/internal/audio"
	applog "popdetect/internal/log"
)

// Info describes where a buffer came from.
type Info struct {
	Source        string
	FileName      string
	RecordingDate string
	Metadata      *audio.Metadata
	Dropped       uint64
	RecordedTo    string
}

// Source produces the samples for one run.
type Source interface {
	Load(ctx context.Context) (*audio.Buffer, Info, error)
}

// FileSource decodes a whole audio file.
type FileSource struct {
	Path     string
	Metadata bool // Read tags for the recording date.
}

func (s *FileSource) Load(ctx context.Context) (*audio.Buffer, Info, error) {
	info := Info{
		Source:        s.Path,
		FileName:      filepath.Base(s.Path),
		RecordingDate: audio.NotAvailable,
	}

	buf, err := audio.DecodeContext(ctx, s.Path)
	if err != nil {
		return nil, info, err
	}
	if err := ctx.Err(); err != nil {
		return nil, info, err
	}

	if s.Metadata {
		md, err := audio.ReadMetadata(s.Path)
		if err != nil {
			applog.Warnf("Session: metadata unavailable for %s: %v", info.FileName, err)
		} else {
			info.Metadata = &md
		}
		info.RecordingDate = md.RecordingDate
	}
	return buf, info, nil
}

// Capture is a live input whose samples accumulate in a Buffer. *audio.Engine implements it.
type Capture interface {
	StartInputStream() error
	StopInputStream() error
	StartRecording(filename string) error
	StopRecording() error
	Buffer() *audio.Buffer
	Dropped() uint64
}

// LiveSource captures until Stop is closed, MaxDuration elapses or Monitor returns. Cancelling
// the Load context aborts the capture with an error instead.
type LiveSource struct {
	Capture     Capture
	RecordPath  string        // Also write the capture to this WAV file when set.
	MaxDuration time.Duration // Zero captures until stopped.
	Stop        <-chan struct{}

	// Monitor runs while capturing, for example the terminal monitor or a status loop.
	// Returning ends the capture; an error other than context.Canceled fails the run.
	Monitor func(ctx context.Context) error

	Now func() time.Time // Defaults to time.Now.
}

func (s *LiveSource) Load(ctx context.Context) (buf *audio.Buffer, info Info, err error) {
	info = Info{Source: "live", FileName: "live capture", RecordingDate: audio.NotAvailable}

	if err := s.Capture.StartInputStream(); err != nil {
		return nil, info, fmt.Errorf("failed to start capture: %w", err)
	}
	if s.RecordPath != "" {
		if err := s.Capture.StartRecording(s.RecordPath); err != nil {
			_ = s.Capture.StopInputStream()
			return nil, info, fmt.Errorf("failed to start recording: %w", err)
		}
		info.RecordedTo = s.RecordPath
	}
	applog.Infof("Session: Capturing, press Ctrl-C to stop")

	monCtx, cancelMonitor := context.WithCancel(ctx)
	monDone := make(chan error, 1)
	if s.Monitor != nil {
		go func() { monDone <- s.Monitor(monCtx) }()
	}

	var timeout <-chan time.Time
	if s.MaxDuration > 0 {
		timer := time.NewTimer(s.MaxDuration)
		defer timer.Stop()
		timeout = timer.C
	}

	var runErr error
	monitorDone := false
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case <-s.Stop:
	case <-timeout:
		applog.Infof("Session: Maximum duration %s reached", s.MaxDuration)
	case err := <-monDone:
		monitorDone = true
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}

	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}

	// Stopping the stream drains every delivered block into the buffer before it is frozen.
	stopErr := s.Capture.StopInputStream()
	recErr := s.Capture.StopRecording()
	cancelMonitor()
	if s.Monitor != nil && !monitorDone {
		<-monDone
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	info.RecordingDate = audio.FormatRecordingDate(now())
	info.Dropped = s.Capture.Dropped()

	if err := errors.Join(runErr, stopErr, recErr); err != nil {
		return nil, info, err
	}
	return s.Capture.Buffer(), info, nil
}
