// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	applog "popdetect/internal/log"
	"popdetect/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// ErrInvalidThreshold is wrapped by Validate when the threshold is outside [0, 1].
var ErrInvalidThreshold = errors.New("detection.threshold must be within [0, 1]")

// Config represents the main application configuration structure, loaded from YAML and then
// overridden by environment variables and command line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Detection DetectionConfig `yaml:"detection"` // Pop detection settings.
	Audio     AudioConfig     `yaml:"audio"`     // Capture and playback device settings.
	Recording RecordingConfig `yaml:"recording"` // Live capture persistence settings.
	Transport TransportConfig `yaml:"transport"` // Live event and envelope publishing.
	Output    OutputConfig    `yaml:"output"`    // Report presentation.

	// Runtime-only fields set by the command line.
	Command string   `yaml:"-"` // Subcommand to execute.
	Args    []string `yaml:"-"` // Positional arguments (input file).
	Play    bool     `yaml:"-"` // Play the file after detection.
	UseTUI  bool     `yaml:"-"` // Run the live monitor in the terminal.
	Pick    bool     `yaml:"-"` // Pick the capture device interactively.
}

// DetectionConfig holds the pop detector settings.
type DetectionConfig struct {
	Threshold    float64 `yaml:"threshold"`     // Amplitude threshold in [0, 1].
	Parallel     bool    `yaml:"parallel"`      // Scan fixed-duration chunks on a worker pool.
	ChunkSeconds float64 `yaml:"chunk_seconds"` // Duration of one chunk for parallel scans.
	Workers      int     `yaml:"workers"`       // Worker pool size (0 = GOMAXPROCS).
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for capture (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for playback (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Capture sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback (power of 2).
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio.
	InputChannels   int     `yaml:"input_channels"`    // Channels to capture; downmixed to mono.
}

// RecordingConfig holds settings for live capture persistence.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`              // Write the capture to a WAV file.
	OutputDir   string `yaml:"output_dir"`           // Directory for generated file names.
	OutputFile  string `yaml:"output_file"`          // Explicit output path; generated when empty.
	Format      string `yaml:"format"`               // File format (wav only).
	BitDepth    int    `yaml:"bit_depth"`            // 16, 24 or 32.
	MaxDuration int    `yaml:"max_duration_seconds"` // Stop the capture after this many seconds (0 = until interrupted).
}

// TransportConfig holds the live publishing settings.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Broadcast pop events and status frames.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address for the /ws endpoint.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send envelope frames over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target "host:port".
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
	RefreshInterval  time.Duration `yaml:"refresh_interval"`   // Live view refresh period.
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Format     string  `yaml:"format"`      // "text" or "yaml".
	PlotFile   string  `yaml:"plot_file"`   // PNG path for the waveform plot; empty disables.
	PlotWidth  float64 `yaml:"plot_width"`  // Inches.
	PlotHeight float64 `yaml:"plot_height"` // Inches.
}

// NewConfig returns a Config populated with built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Detection: DetectionConfig{
			Threshold:    DefaultThreshold,
			ChunkSeconds: DefaultChunkSeconds,
			Workers:      DefaultWorkers,
		},
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultChannels,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultRecordingDir,
			Format:    DefaultFormat,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddr,
			UDPTargetAddress: DefaultUDPTargetAddr,
			UDPSendInterval:  DefaultUDPSendInterval,
			RefreshInterval:  DefaultRefreshInterval,
		},
		Output: OutputConfig{
			Format:     DefaultOutputFormat,
			PlotWidth:  DefaultPlotWidth,
			PlotHeight: DefaultPlotHeight,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty, it looks
// for "config.yaml" in the working directory and falls back to built-in defaults. Environment
// overrides are applied after the file; the result is not validated so that command line flags
// can still be applied. Callers run Validate once every source has been merged.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err != nil {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applog.Debugf("configuration: loaded %s", path)

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Validate checks every field a command may use.
func (c *Config) Validate() error {
	d := c.Detection
	if math.IsNaN(d.Threshold) || d.Threshold < 0 || d.Threshold > 1 {
		return fmt.Errorf("%w, got %v", ErrInvalidThreshold, d.Threshold)
	}
	if d.ChunkSeconds <= 0 {
		return fmt.Errorf("detection.chunk_seconds must be positive, got %v", d.ChunkSeconds)
	}
	if d.Workers < 0 {
		return fmt.Errorf("detection.workers must not be negative, got %d", d.Workers)
	}

	a := c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be within [%d, %d] Hz, got %v", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames || !bitint.IsPowerOfTwo(a.FramesPerBuffer) {
		return fmt.Errorf("audio.frames_per_buffer must be a power of 2 up to %d, got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.InputChannels != 1 && a.InputChannels != 2 {
		return fmt.Errorf("audio.input_channels must be 1 or 2, got %d", a.InputChannels)
	}
	if a.InputDevice < MinDeviceID || a.OutputDevice < MinDeviceID {
		return fmt.Errorf("audio device IDs must be >= %d", MinDeviceID)
	}

	r := c.Recording
	switch r.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", r.BitDepth)
	}
	if r.Format != DefaultFormat {
		return fmt.Errorf("recording.format %q is not supported", r.Format)
	}
	if r.MaxDuration < 0 {
		return fmt.Errorf("recording.max_duration_seconds must not be negative")
	}

	t := c.Transport
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		return fmt.Errorf("transport.websocket_address must be set when websocket is enabled")
	}
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if t.RefreshInterval <= 0 {
		return fmt.Errorf("transport.refresh_interval must be positive")
	}

	o := c.Output
	if o.Format != "text" && o.Format != "yaml" {
		return fmt.Errorf("output.format must be \"text\" or \"yaml\", got %q", o.Format)
	}
	if o.PlotFile != "" && (o.PlotWidth <= 0 || o.PlotHeight <= 0) {
		return fmt.Errorf("output plot dimensions must be positive")
	}
	return nil
}

// RecordingPath returns the WAV path for a live capture, generating a timestamped name in
// OutputDir when no explicit file is configured.
func (c *Config) RecordingPath(now time.Time) string {
	if c.Recording.OutputFile != "" {
		return c.Recording.OutputFile
	}
	name := "recording-" + now.UTC().Format("02-01-2006-150405") + "." + c.Recording.Format
	return filepath.Join(c.Recording.OutputDir, name)
}

// applyEnvOverrides applies ENV_* variables on top of file values. Unparseable values are ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			applog.Debugf("configuration: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_THRESHOLD
	if val, ok := os.LookupEnv("ENV_THRESHOLD"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Detection.Threshold = fVal
			applog.Debugf("configuration: Overriding detection.threshold from env: %v", fVal)
		}
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WebSocketAddress = val
		cfg.Transport.WebSocketEnabled = val != ""
		applog.Debugf("configuration: Overriding transport.websocket_address from env: %s", val)
	}

	// ENV_UDP_{...}
	// These are specific to the envelope publisher.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			applog.Debugf("configuration: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		applog.Debugf("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			applog.Debugf("configuration: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
