package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
	// Overrides lists the environment variables applied on top of the file.
	Overrides []string
}

// envOverrides apply after the file so one invocation can target another
// device or directory without editing config.
var envOverrides = []struct {
	name  string
	apply func(*Config, string)
}{
	{"SCANCAP_AUDIO_INPUT", func(c *Config, v string) { c.Audio.Input = v }},
	{"SCANCAP_CAMERA_DEVICE", func(c *Config, v string) { c.Camera.Device = v }},
	{"SCANCAP_OUTPUT_DIR", func(c *Config, v string) { c.Output.Dir = v }},
	{"SCANCAP_OCR_LANGUAGES", func(c *Config, v string) { c.OCR.Languages = splitLanguages(v) }},
}

// Load resolves, reads, parses, and validates the runtime configuration.
// A missing file at the default location yields defaults; a missing file the
// caller named explicitly is an error.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}
	content, err := os.ReadFile(resolvedPath)
	switch {
	case err == nil:
		loaded.Exists = true
		loaded.Config, loaded.Warnings, err = Parse(string(content), loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
	case errors.Is(err, os.ErrNotExist) && strings.TrimSpace(explicitPath) == "":
	case errors.Is(err, os.ErrNotExist):
		return Loaded{}, fmt.Errorf("config %q not found", resolvedPath)
	default:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	for _, override := range envOverrides {
		value := strings.TrimSpace(os.Getenv(override.name))
		if value == "" {
			continue
		}
		override.apply(&loaded.Config, value)
		loaded.Overrides = append(loaded.Overrides, override.name)
	}
	if len(loaded.Overrides) > 0 {
		if _, err := Validate(loaded.Config); err != nil {
			return Loaded{}, fmt.Errorf("apply %s: %w", strings.Join(loaded.Overrides, ", "), err)
		}
	}

	return loaded, nil
}

func splitLanguages(raw string) []string {
	var out []string
	for _, lang := range strings.Split(raw, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			out = append(out, lang)
		}
	}
	return out
}
