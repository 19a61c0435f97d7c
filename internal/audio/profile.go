package audio

import "time"

// Fixed capture profile: signed 16-bit little-endian, mono, 48 kHz.
const (
	SampleRate  = 48000
	Channels    = 1
	SampleWidth = 2

	// chunkSizeBytes is 20 ms of PCM at the fixed profile.
	chunkSizeBytes = SampleRate / 50 * Channels * SampleWidth
)

// Profile describes a PCM byte layout.
type Profile struct {
	SampleRate  int
	Channels    int
	SampleWidth int
}

// Default is the only profile scancap records with.
var Default = Profile{SampleRate: SampleRate, Channels: Channels, SampleWidth: SampleWidth}

// FrameBytes is the size of one sample across all channels.
func (p Profile) FrameBytes() int {
	return p.Channels * p.SampleWidth
}

// BytesPerSecond is the PCM data rate for p.
func (p Profile) BytesPerSecond() int {
	return p.SampleRate * p.FrameBytes()
}

// Samples returns the per-channel sample count held in n bytes.
func (p Profile) Samples(n int) int {
	if p.FrameBytes() == 0 {
		return 0
	}
	return n / p.FrameBytes()
}

// Duration returns the playback length of n bytes of PCM.
func (p Profile) Duration(n int) time.Duration {
	if p.SampleRate == 0 {
		return 0
	}
	return time.Duration(p.Samples(n)) * time.Second / time.Duration(p.SampleRate)
}
