// Package config resolves, parses, validates, and defaults scancap configuration.
package config

// Config is the fully materialized runtime configuration used by scancap.
type Config struct {
	Audio   AudioConfig
	Camera  CameraConfig
	Scan    ScanConfig
	Encoder EncoderConfig
	Output  OutputConfig
	OCR     OCRConfig
	Cues    CuesConfig
	Debug   DebugConfig
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// CameraConfig controls the V4L2 device used by live scans.
type CameraConfig struct {
	Device         string
	Width          int
	Height         int
	FrameTimeoutMS int
}

// ScanConfig bounds a live scan. Zero means unbounded.
type ScanConfig struct {
	TimeoutMS int
	MaxFrames int
}

// EncoderConfig selects the container written at the end of a recording.
type EncoderConfig struct {
	Format  string
	Bitrate int
}

// OutputConfig controls where recording artifacts land.
// An empty Dir resolves to the XDG data directory.
type OutputConfig struct {
	Dir string
}

// OCRConfig lists the Tesseract languages used by the ocr command.
type OCRConfig struct {
	Languages []string
}

// CuesConfig controls audible feedback for scans and recordings.
type CuesConfig struct {
	Enable bool
	Volume float64
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
