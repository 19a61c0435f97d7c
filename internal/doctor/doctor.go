// Package doctor runs runtime readiness diagnostics for config, audio,
// camera, OCR, and the artifact directory.
package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rbright/scancap/internal/audio"
	"github.com/rbright/scancap/internal/config"
	"github.com/rbright/scancap/internal/encode"
	"github.com/rbright/scancap/internal/ocr"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// probes are swapped in tests.
var (
	selectDevice     = audio.SelectDevice
	tesseractVersion = ocr.Version
)

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("using defaults (%q not found)", cfg.Path)
	}
	if len(cfg.Overrides) > 0 {
		configMessage += " with " + strings.Join(cfg.Overrides, ", ")
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkEncoder(cfg.Config))
	checks = append(checks, checkCameraDevice(cfg.Config.Camera.Device))
	checks = append(checks, checkTesseract())
	checks = append(checks, checkOutputDir(cfg.Config))

	return Report{Checks: checks}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := selectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkEncoder encodes 20ms of silence with the configured encoder.
func checkEncoder(cfg config.Config) Check {
	enc, err := encode.New(cfg.Encoder.Format, encode.Options{Bitrate: cfg.Encoder.Bitrate})
	if err != nil {
		return Check{Name: "encoder", Pass: false, Message: err.Error()}
	}
	silence := make([]byte, audio.Default.BytesPerSecond()/50)
	encoded, err := enc.Encode(silence, audio.SampleWidth, audio.SampleRate, audio.Channels)
	if err != nil {
		return Check{Name: "encoder", Pass: false, Message: fmt.Sprintf("probe encode failed: %v", err)}
	}
	return Check{Name: "encoder", Pass: true, Message: fmt.Sprintf("%s (%s)", cfg.Encoder.Format, encoded.MIME)}
}

// checkCameraDevice verifies the configured V4L2 node exists and is a
// character device. It does not open the camera.
func checkCameraDevice(path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "camera.device", Pass: false, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return Check{Name: "camera.device", Pass: false, Message: fmt.Sprintf("%s is not a character device", path)}
	}
	return Check{Name: "camera.device", Pass: true, Message: fmt.Sprintf("found %s", path)}
}

// checkTesseract reports the linked Tesseract version.
func checkTesseract() Check {
	v := strings.TrimSpace(tesseractVersion())
	if v == "" {
		return Check{Name: "tesseract", Pass: false, Message: "tesseract version unavailable"}
	}
	return Check{Name: "tesseract", Pass: true, Message: "version " + v}
}

// checkOutputDir creates the artifact directory and proves it is writable.
func checkOutputDir(cfg config.Config) Check {
	dir, err := config.ResolveOutputDir(cfg)
	if err != nil {
		return Check{Name: "output.dir", Pass: false, Message: err.Error()}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "output.dir", Pass: false, Message: fmt.Sprintf("create %s: %v", dir, err)}
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Check{Name: "output.dir", Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return Check{Name: "output.dir", Pass: true, Message: fmt.Sprintf("writable %s", dir)}
}
