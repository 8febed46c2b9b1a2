// SPDX-License-Identifier: MIT
package cmd

import (
	"popdetect/internal/config"
	"popdetect/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagValues holds raw flag values. They are copied onto the loaded configuration only when the
// user set them, so config file and environment values survive unset flags.
type flagValues struct {
	configPath string

	threshold    float64
	parallel     bool
	chunkSeconds float64
	workers      int

	deviceID        int
	outputDeviceID  int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool

	record     bool
	outputFile string
	bitDepth   int
	duration   int

	websocket string
	udp       string

	format   string
	plotFile string

	verbose  bool
	logLevel string

	play   bool
	useTUI bool
	pick   bool
}

// ParseArgs parses args (without the program name) and returns the merged configuration for
// the selected command. It returns a nil configuration when cobra handled the invocation itself
// (help, version).
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var (
		fv     flagValues
		result *config.Config
	)

	// resolve loads the config file and applies explicitly set flags for the running command.
	resolve := func(c *cobra.Command, name string, args []string) error {
		cfg, err := config.LoadConfig(fv.configPath)
		if err != nil {
			return err
		}
		applyFlags(c.Flags(), &fv, cfg)
		cfg.Command = name
		cfg.Args = args
		if err := cfg.Validate(); err != nil {
			return err
		}
		result = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Detect command
	detectCmd := &cobra.Command{
		Use:   "detect FILE",
		Short: "Detect pops in an audio file (WAV, MP3, FLAC, M4A)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd, config.CommandDetect, args)
		},
	}
	detectCmd.Flags().BoolVar(&fv.play, "play", false, "Play the file after the report")
	rootCmd.AddCommand(detectCmd)

	// Live command
	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "Capture from an input device, detect pops while recording and report on stop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd, config.CommandLive, args)
		},
	}
	liveCmd.Flags().BoolVarP(&fv.record, "record", "r", false,
		"Also write the capture to a WAV file")
	liveCmd.Flags().StringVarP(&fv.outputFile, "output", "o", "",
		"Recording file name. Default is <output_dir>/recording-DD-MM-YYYY-HHMMSS.wav")
	liveCmd.Flags().IntVar(&fv.bitDepth, "bit-depth", config.DefaultBitDepth, "Recording bit depth (16, 24, 32)")
	liveCmd.Flags().IntVar(&fv.duration, "duration", 0, "Stop after this many seconds (0 = until Ctrl-C)")
	liveCmd.Flags().StringVar(&fv.websocket, "websocket", "", "Broadcast pop events and status on ws://ADDR/ws")
	liveCmd.Flags().StringVar(&fv.udp, "udp", "", "Send envelope frames to this UDP host:port")
	liveCmd.Flags().BoolVar(&fv.useTUI, "tui", false, "Show the live monitor in the terminal")
	liveCmd.Flags().BoolVar(&fv.pick, "pick", false, "Choose the input device and sample rate interactively")
	rootCmd.AddCommand(liveCmd)

	// Info command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "info FILE",
		Short: "Show duration, sampling rate, recording date and levels of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd, config.CommandInfo, args)
		},
	})

	// Play command
	playCmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Play an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd, config.CommandPlay, args)
		},
	}
	playCmd.Flags().BoolVar(&fv.useTUI, "tui", false, "Show play/stop controls in the terminal")
	rootCmd.AddCommand(playCmd)

	// List command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd, config.CommandList, args)
		},
	})

	// Devices command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "devices",
		Short: "Browse audio devices in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd, config.CommandDevices, args)
		},
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&fv.configPath, "config", "", "Path to a YAML config file (default ./config.yaml when present)")

	// Detection Configuration
	pf.Float64VarP(&fv.threshold, "threshold", "t", config.DefaultThreshold,
		"Amplitude threshold in [0, 1]; samples above it are pops")
	pf.BoolVarP(&fv.parallel, "parallel", "p", false, "Scan fixed-duration chunks in parallel")
	pf.Float64Var(&fv.chunkSeconds, "chunk-seconds", config.DefaultChunkSeconds, "Chunk duration for parallel scans")
	pf.IntVarP(&fv.workers, "workers", "w", config.DefaultWorkers, "Parallel workers (0 = number of CPUs)")

	// Audio Device Configuration
	pf.IntVarP(&fv.deviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVar(&fv.outputDeviceID, "output-device", config.DefaultDeviceID, "Specify playback device ID")
	pf.IntVarP(&fv.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture (1=mono, 2=stereo); downmixed to mono")
	pf.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Capture sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&fv.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Output Configuration
	pf.StringVarP(&fv.format, "format", "f", config.DefaultOutputFormat, "Report format: text or yaml")
	pf.StringVar(&fv.plotFile, "plot", "", "Save the waveform with pop markers to this PNG file")

	// Debug Configuration
	pf.BoolVarP(&fv.verbose, "verbose", "v", false, "Show verbose output")
	pf.StringVar(&fv.logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return result, nil
}

// applyFlags copies every flag the user set onto cfg.
func applyFlags(fs *pflag.FlagSet, fv *flagValues, cfg *config.Config) {
	set := func(name string, apply func()) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}

	set("threshold", func() { cfg.Detection.Threshold = fv.threshold })
	set("parallel", func() { cfg.Detection.Parallel = fv.parallel })
	set("chunk-seconds", func() { cfg.Detection.ChunkSeconds = fv.chunkSeconds })
	set("workers", func() { cfg.Detection.Workers = fv.workers })

	set("device", func() { cfg.Audio.InputDevice = fv.deviceID })
	set("output-device", func() { cfg.Audio.OutputDevice = fv.outputDeviceID })
	set("channels", func() { cfg.Audio.InputChannels = fv.channels })
	set("sample-rate", func() { cfg.Audio.SampleRate = fv.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = fv.framesPerBuffer })
	set("low-latency", func() { cfg.Audio.LowLatency = fv.lowLatency })

	set("record", func() { cfg.Recording.Enabled = fv.record })
	set("output", func() {
		cfg.Recording.OutputFile = fv.outputFile
		cfg.Recording.Enabled = true
	})
	set("bit-depth", func() { cfg.Recording.BitDepth = fv.bitDepth })
	set("duration", func() { cfg.Recording.MaxDuration = fv.duration })

	set("websocket", func() {
		cfg.Transport.WebSocketAddress = fv.websocket
		cfg.Transport.WebSocketEnabled = fv.websocket != ""
	})
	set("udp", func() {
		cfg.Transport.UDPTargetAddress = fv.udp
		cfg.Transport.UDPEnabled = fv.udp != ""
	})

	set("format", func() { cfg.Output.Format = fv.format })
	set("plot", func() { cfg.Output.PlotFile = fv.plotFile })

	set("verbose", func() { cfg.Debug = fv.verbose })
	set("log-level", func() { cfg.LogLevel = fv.logLevel })

	set("play", func() { cfg.Play = fv.play })
	set("tui", func() { cfg.UseTUI = fv.useTUI })
	set("pick", func() { cfg.Pick = fv.pick })
}
