package config

import (
	"fmt"
	"strings"
)

// Opus accepts 6 kb/s through 510 kb/s.
const (
	minOpusBitrate = 6000
	maxOpusBitrate = 510000
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Audio.Input) == "" {
		return nil, fmt.Errorf("audio.input must not be empty")
	}
	if strings.TrimSpace(cfg.Camera.Device) == "" {
		return nil, fmt.Errorf("camera.device must not be empty")
	}
	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		return nil, fmt.Errorf("camera.width and camera.height must be > 0")
	}
	if cfg.Camera.FrameTimeoutMS <= 0 {
		return nil, fmt.Errorf("camera.frame_timeout_ms must be > 0")
	}
	if cfg.Scan.TimeoutMS < 0 {
		return nil, fmt.Errorf("scan.timeout_ms must be >= 0")
	}
	if cfg.Scan.MaxFrames < 0 {
		return nil, fmt.Errorf("scan.max_frames must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Encoder.Format)) {
	case "ogg-opus":
		if cfg.Encoder.Bitrate != 0 && (cfg.Encoder.Bitrate < minOpusBitrate || cfg.Encoder.Bitrate > maxOpusBitrate) {
			return nil, fmt.Errorf("encoder.bitrate must be between %d and %d", minOpusBitrate, maxOpusBitrate)
		}
	case "wav":
		if cfg.Encoder.Bitrate != 0 {
			warnings = append(warnings, Warning{Message: "encoder.bitrate is ignored when encoder.format=wav"})
		}
	default:
		return nil, fmt.Errorf("encoder.format must be one of: ogg-opus, wav")
	}

	if len(cfg.OCR.Languages) == 0 {
		return nil, fmt.Errorf("ocr.languages must not be empty")
	}
	for _, lang := range cfg.OCR.Languages {
		if strings.TrimSpace(lang) == "" {
			return nil, fmt.Errorf("ocr.languages must not contain empty entries")
		}
	}

	if cfg.Cues.Volume < 0 || cfg.Cues.Volume > 1 {
		return nil, fmt.Errorf("cues.volume must be between 0 and 1")
	}
	if cfg.Cues.Enable && cfg.Cues.Volume == 0 {
		warnings = append(warnings, Warning{Message: "cues.enable is set but cues.volume is 0"})
	}

	return warnings, nil
}
