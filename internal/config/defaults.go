package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Camera: CameraConfig{
			Device:         "/dev/video0",
			Width:          1280,
			Height:         720,
			FrameTimeoutMS: 2000,
		},
		Scan: ScanConfig{},
		Encoder: EncoderConfig{
			Format: "ogg-opus",
		},
		Output: OutputConfig{},
		OCR:    OCRConfig{Languages: []string{"jpn"}},
		Cues:   CuesConfig{Volume: 0.18},
		Debug:  DebugConfig{},
	}
}
