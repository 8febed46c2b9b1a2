package config

// The accessors below give the capture engine and player the flat view of the audio
// settings they work with.

// DeviceID returns the input device ID.
func (c *Config) DeviceID() int {
	return c.Audio.InputDevice
}

// OutputDeviceID returns the playback device ID.
func (c *Config) OutputDeviceID() int {
	return c.Audio.OutputDevice
}

// Channels returns the number of input channels to capture.
func (c *Config) Channels() int {
	return c.Audio.InputChannels
}

// FramesPerBuffer returns the frames delivered per capture callback.
func (c *Config) FramesPerBuffer() int {
	return c.Audio.FramesPerBuffer
}

// SampleRate returns the capture sample rate in Hz.
func (c *Config) SampleRate() float64 {
	return c.Audio.SampleRate
}

// LowLatency returns whether to request the device's low latency settings.
func (c *Config) LowLatency() bool {
	return c.Audio.LowLatency
}
