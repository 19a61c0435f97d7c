package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "scancap", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "scancap", "config.jsonc"), nil
}

// ResolveOutputDir returns cfg.Output.Dir when set, otherwise the XDG data
// directory for recordings.
func ResolveOutputDir(cfg Config) (string, error) {
	if dir := strings.TrimSpace(cfg.Output.Dir); dir != "" {
		return expandHome(dir)
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "scancap", "recordings"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for output fallback")
	}
	return filepath.Join(home, ".local", "share", "scancap", "recordings"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for ~ expansion")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
