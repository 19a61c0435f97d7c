package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type jsoncConfig struct {
	Audio   *jsoncAudio   `json:"audio"`
	Camera  *jsoncCamera  `json:"camera"`
	Scan    *jsoncScan    `json:"scan"`
	Encoder *jsoncEncoder `json:"encoder"`
	Output  *jsoncOutput  `json:"output"`
	OCR     *jsoncOCR     `json:"ocr"`
	Cues    *jsoncCues    `json:"cues"`
	Debug   *jsoncDebug   `json:"debug"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncCamera struct {
	Device         *string `json:"device"`
	Width          *int    `json:"width"`
	Height         *int    `json:"height"`
	FrameTimeoutMS *int    `json:"frame_timeout_ms"`
}

type jsoncScan struct {
	TimeoutMS *int `json:"timeout_ms"`
	MaxFrames *int `json:"max_frames"`
}

type jsoncEncoder struct {
	Format  *string `json:"format"`
	Bitrate *int    `json:"bitrate"`
}

type jsoncOutput struct {
	Dir *string `json:"dir"`
}

type jsoncOCR struct {
	Languages *jsoncStringList `json:"languages"`
}

type jsoncCues struct {
	Enable *bool    `json:"enable"`
	Volume *float64 `json:"volume"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = splitLanguages(single)
		return nil
	}

	return fmt.Errorf("expected string array or '+'-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, locate(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, locate(normalized, err)
	}

	cfg := base
	payload.applyTo(&cfg)

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) {
	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Camera != nil {
		if payload.Camera.Device != nil {
			cfg.Camera.Device = strings.TrimSpace(*payload.Camera.Device)
		}
		if payload.Camera.Width != nil {
			cfg.Camera.Width = *payload.Camera.Width
		}
		if payload.Camera.Height != nil {
			cfg.Camera.Height = *payload.Camera.Height
		}
		if payload.Camera.FrameTimeoutMS != nil {
			cfg.Camera.FrameTimeoutMS = *payload.Camera.FrameTimeoutMS
		}
	}

	if payload.Scan != nil {
		if payload.Scan.TimeoutMS != nil {
			cfg.Scan.TimeoutMS = *payload.Scan.TimeoutMS
		}
		if payload.Scan.MaxFrames != nil {
			cfg.Scan.MaxFrames = *payload.Scan.MaxFrames
		}
	}

	if payload.Encoder != nil {
		if payload.Encoder.Format != nil {
			cfg.Encoder.Format = strings.ToLower(strings.TrimSpace(*payload.Encoder.Format))
		}
		if payload.Encoder.Bitrate != nil {
			cfg.Encoder.Bitrate = *payload.Encoder.Bitrate
		}
	}

	if payload.Output != nil && payload.Output.Dir != nil {
		cfg.Output.Dir = strings.TrimSpace(*payload.Output.Dir)
	}

	if payload.OCR != nil && payload.OCR.Languages != nil {
		cfg.OCR.Languages = splitLanguages(strings.Join(*payload.OCR.Languages, "+"))
	}

	if payload.Cues != nil {
		if payload.Cues.Enable != nil {
			cfg.Cues.Enable = *payload.Cues.Enable
		}
		if payload.Cues.Volume != nil {
			cfg.Cues.Volume = *payload.Cues.Volume
		}
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}
}
