package config

import "time"

// Defaults and limits for the detector, the capture engine and the presenters.
const (
	DefaultThreshold       = 0.4 // Operator threshold preset
	DefaultChunkSeconds    = 600 // Chunk duration for parallel scans
	DefaultWorkers         = 0   // 0 = GOMAXPROCS
	DefaultChannels        = 1   // Mono capture
	DefaultDeviceID        = MinDeviceID
	DefaultFormat          = "wav"
	DefaultFramesPerBuffer = 512
	DefaultLowLatency      = false
	DefaultSampleRate      = 44100
	DefaultBitDepth        = 16
	DefaultRecordingDir    = "./recordings"
	DefaultOutputFormat    = "text"
	DefaultPlotWidth       = 10.0 // inches
	DefaultPlotHeight      = 4.0  // inches
	DefaultWebSocketAddr   = "127.0.0.1:8080"
	DefaultUDPTargetAddr   = "127.0.0.1:9090"
	DefaultUDPSendInterval = 33 * time.Millisecond
	DefaultRefreshInterval = time.Second
	DefaultLogLevel        = "info"

	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Hz
	MaxSampleRate   = 192000 // Hz
	MaxBufferFrames = 8192   // Power of 2
)

// Command names dispatched by main.
const (
	CommandDetect  = "detect"
	CommandLive    = "live"
	CommandInfo    = "info"
	CommandPlay    = "play"
	CommandList    = "list"
	CommandDevices = "devices"
)
