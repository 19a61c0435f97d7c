package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "scancap", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "scancap", "config.jsonc"), resolved)
}

func TestResolveOutputDirPrecedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	cfg.Output.Dir = "/srv/recordings"
	dir, err := ResolveOutputDir(cfg)
	require.NoError(t, err)
	require.Equal(t, "/srv/recordings", dir)

	cfg.Output.Dir = "~/clips"
	dir, err = ResolveOutputDir(cfg)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "clips"), dir)

	cfg.Output.Dir = ""
	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)
	dir, err = ResolveOutputDir(cfg)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "scancap", "recordings"), dir)

	t.Setenv("XDG_DATA_HOME", "")
	dir, err = ResolveOutputDir(cfg)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "share", "scancap", "recordings"), dir)
}

func TestLoadMissingDefaultConfigUsesDefaults(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	loaded, err := Load("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "scancap", "config.jsonc"), loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.Empty(t, loaded.Warnings)
}

func TestLoadMissingExplicitConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
	require.Contains(t, err.Error(), path)
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"camera": {"device": "/dev/video0"}}`), 0o600))
	t.Setenv("SCANCAP_CAMERA_DEVICE", "/dev/video4")
	t.Setenv("SCANCAP_OCR_LANGUAGES", "eng + jpn_vert")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/video4", loaded.Config.Camera.Device)
	require.Equal(t, []string{"eng", "jpn_vert"}, loaded.Config.OCR.Languages)
	require.Equal(t, []string{"SCANCAP_CAMERA_DEVICE", "SCANCAP_OCR_LANGUAGES"}, loaded.Overrides)
}

func TestLoadRejectsInvalidEnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	t.Setenv("SCANCAP_OCR_LANGUAGES", "+")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "SCANCAP_OCR_LANGUAGES")
	require.Contains(t, err.Error(), "ocr.languages")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "audio": {
    "input": "Yeti",
    "fallback": "default"
  },
  "scan": {
    "timeout_ms": 20000
  },
  "encoder": {
    "format": "ogg-opus",
    "bitrate": 32000
  }
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "Yeti", loaded.Config.Audio.Input)
	require.Equal(t, 20000, loaded.Config.Scan.TimeoutMS)
	require.Equal(t, 32000, loaded.Config.Encoder.Bitrate)
	require.Empty(t, loaded.Warnings)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}
