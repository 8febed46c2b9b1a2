// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"popdetect/internal/analysis"
	"popdetect/internal/audio"
	"popdetect/internal/config"
	applog "popdetect/internal/log"
	"popdetect/internal/present"
	"popdetect/internal/session"
	"popdetect/internal/transport"
	"popdetect/internal/transport/udp"
	"popdetect/internal/tui"
)

// NeedsPortAudio reports whether the selected command talks to audio devices.
func NeedsPortAudio(cfg *config.Config) bool {
	switch cfg.Command {
	case config.CommandLive, config.CommandPlay, config.CommandList, config.CommandDevices:
		return true
	case config.CommandDetect:
		return cfg.Play
	}
	return false
}

// Execute runs the command selected in cfg, writing reports to stdout. Commands that need
// PortAudio expect it to be initialized.
func Execute(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	switch cfg.Command {
	case config.CommandDetect:
		return runDetect(ctx, cfg, stdout)
	case config.CommandInfo:
		return runInfo(ctx, cfg, stdout)
	case config.CommandPlay:
		return runPlay(ctx, cfg)
	case config.CommandLive:
		return runLive(ctx, cfg, stdout)
	case config.CommandList:
		return audio.ListDevices(stdout)
	case config.CommandDevices:
		return tui.StartDeviceListUI()
	case "":
		return nil
	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

func detectorFor(cfg *config.Config) session.Detector {
	return session.Detector{
		Threshold:    cfg.Detection.Threshold,
		Parallel:     cfg.Detection.Parallel,
		ChunkSeconds: cfg.Detection.ChunkSeconds,
		Workers:      cfg.Detection.Workers,
	}
}

func presentersFor(cfg *config.Config, stdout io.Writer) []present.Presenter {
	var presenters []present.Presenter
	if cfg.Output.Format == "yaml" {
		presenters = append(presenters, &present.YAMLPresenter{W: stdout})
	} else {
		presenters = append(presenters, &present.TextPresenter{W: stdout})
	}
	if cfg.Output.PlotFile != "" {
		presenters = append(presenters, &present.PlotPresenter{
			Path:   cfg.Output.PlotFile,
			Width:  cfg.Output.PlotWidth,
			Height: cfg.Output.PlotHeight,
		})
	}
	return presenters
}

func runDetect(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	p := &session.Pipeline{
		Source:     &session.FileSource{Path: cfg.Args[0], Metadata: true},
		Detector:   detectorFor(cfg),
		Presenters: presentersFor(cfg, stdout),
	}
	if cfg.Play {
		player, err := audio.NewPlayer(cfg)
		if err != nil {
			return err
		}
		p.Playback = player
	}
	_, err := p.Run(ctx)
	return err
}

func runInfo(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	src := &session.FileSource{Path: cfg.Args[0], Metadata: true}
	buf, info, err := src.Load(ctx)
	if err != nil {
		return err
	}
	report := present.Report{
		Source:        info.Source,
		FileName:      info.FileName,
		Duration:      buf.Duration(),
		SampleRate:    buf.SampleRate(),
		RecordingDate: info.RecordingDate,
		Metadata:      info.Metadata,
		Threshold:     cfg.Detection.Threshold,
		Levels:        audio.Summarize(buf.Samples()),
	}
	if cfg.Output.Format == "yaml" {
		return (&present.YAMLPresenter{W: stdout}).Present(report, buf)
	}
	return (&present.TextPresenter{W: stdout}).PresentInfo(report)
}

func runPlay(ctx context.Context, cfg *config.Config) error {
	buf, err := audio.DecodeContext(ctx, cfg.Args[0])
	if err != nil {
		return err
	}
	player, err := audio.NewPlayer(cfg)
	if err != nil {
		return err
	}
	if err := player.Start(buf); err != nil {
		return err
	}

	if cfg.UseTUI {
		model := tui.NewPlaybackModel(
			filepath.Base(cfg.Args[0]),
			func() (bool, error) { return player.Toggle(buf) },
			player.Playing,
			cfg.Transport.RefreshInterval,
		)
		applog.SetOutput(io.Discard)
		err := tui.RunPlayback(ctx, model)
		applog.SetOutput(os.Stderr)
		if serr := player.Stop(); err == nil {
			err = serr
		}
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	if err := player.Wait(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runLive(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	if cfg.Pick {
		sel, err := tui.RunDevicePicker()
		if err != nil {
			return err
		}
		if err := applySelection(cfg, sel); err != nil {
			return err
		}
		applog.Infof("Live: Using %q at %.0f Hz", sel.DeviceName, sel.SampleRate)
	}

	// Pop events always reach the debug log; the WebSocket broadcaster also gets status frames.
	events := transport.Multi{transport.NewLoggingTransport()}
	var status transport.Transport
	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		ws.Start()
		events = append(events, ws)
		status = ws
	}
	defer func() {
		if err := events.Close(); err != nil {
			applog.Errorf("Live: error closing transports: %v", err)
		}
	}()

	detector, err := analysis.NewLiveDetector(int(cfg.SampleRate()), cfg.Detection.Threshold, events)
	if err != nil {
		return err
	}
	meter := &audio.LevelMeter{}

	engine, err := audio.NewEngine(cfg, detector, meter)
	if err != nil {
		return err
	}
	defer engine.Close()

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer sender.Close()
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, udp.DefaultEnvelopeBins, sender, engine)
		if err != nil {
			return err
		}
		publisher.Start()
		defer publisher.Close()
	}

	view := session.LiveView{Capture: engine, Detector: detector, Meter: meter}
	monitor := session.StatusLoop(view, cfg.Transport.RefreshInterval, status)
	if cfg.UseTUI {
		model := tui.NewMonitorModel(view.Status, detector.SetThreshold, cfg.Transport.RefreshInterval)
		monitor = func(ctx context.Context) error {
			// The monitor owns the terminal while it runs.
			applog.SetOutput(io.Discard)
			defer applog.SetOutput(os.Stderr)
			return tui.RunMonitor(ctx, model)
		}
	}

	source := &session.LiveSource{
		Capture:     engine,
		MaxDuration: time.Duration(cfg.Recording.MaxDuration) * time.Second,
		Stop:        ctx.Done(),
		Monitor:     monitor,
	}
	if cfg.Recording.Enabled {
		source.RecordPath = cfg.RecordingPath(time.Now())
	}

	d := detectorFor(cfg)
	d.Follow = detector
	p := &session.Pipeline{
		Source:     source,
		Detector:   d,
		Presenters: presentersFor(cfg, stdout),
	}
	// Ctrl-C ends the capture; the report is still produced.
	_, err = p.Run(context.WithoutCancel(ctx))
	return err
}

// applySelection stores the picked device and rate and checks the result like any other source
// of configuration.
func applySelection(cfg *config.Config, sel tui.Selection) error {
	cfg.Audio.InputDevice = sel.DeviceID
	cfg.Audio.SampleRate = sel.SampleRate
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("picked device: %w", err)
	}
	return nil
}
