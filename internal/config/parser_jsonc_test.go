package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.NotContains(t, normalized, ",]")
	require.NotContains(t, normalized, ",}")
}

func TestNormalizeJSONCPreservesOffsets(t *testing.T) {
	input := "{\n  \"a\": 1, // note\n  /* x\n y */ \"b\": [2,],\n}"
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Len(t, normalized, len(input))
	require.Equal(t, strings.Count(input, "\n"), strings.Count(normalized, "\n"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(normalized), &decoded))
	require.Equal(t, map[string]any{"a": 1.0, "b": []any{2.0}}, decoded)
}

func TestNormalizeJSONCKeepsEscapedQuotes(t *testing.T) {
	input := `{"dir": "C:\\tmp\\\"quoted\", // not a comment",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(normalized), &decoded))
	require.Equal(t, `C:\tmp\"quoted", // not a comment`, decoded["dir"])
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */")
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestPosition(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := position(content, 0)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = position(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = position(content, 8) // line2, col2
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = position(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestJSONCStringListUnmarshal(t *testing.T) {
	var list jsoncStringList
	require.NoError(t, list.UnmarshalJSON([]byte(`["jpn","eng"]`)))
	require.Equal(t, []string{"jpn", "eng"}, []string(list))

	require.NoError(t, list.UnmarshalJSON([]byte(`"jpn + eng + "`)))
	require.Equal(t, []string{"jpn", "eng"}, []string(list))

	err := list.UnmarshalJSON([]byte(`123`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected string array")
}

func TestParseJSONCOverlaysOntoBase(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  // live scan bounds
  "camera": {"device": " /dev/video2 ", "width": 640, "height": 480},
  "scan": {"timeout_ms": 15000, "max_frames": 450,},
  "encoder": {"format": " WAV "},
  "output": {"dir": " /tmp/recordings "},
  "ocr": {"languages": "jpn+eng"},
  "cues": {"enable": true, "volume": 0.5},
  "debug": {"audio_dump": true},
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "/dev/video2", cfg.Camera.Device)
	require.Equal(t, 640, cfg.Camera.Width)
	require.Equal(t, 480, cfg.Camera.Height)
	require.Equal(t, Default().Camera.FrameTimeoutMS, cfg.Camera.FrameTimeoutMS)
	require.Equal(t, 15000, cfg.Scan.TimeoutMS)
	require.Equal(t, 450, cfg.Scan.MaxFrames)
	require.Equal(t, "wav", cfg.Encoder.Format)
	require.Equal(t, "/tmp/recordings", cfg.Output.Dir)
	require.Equal(t, []string{"jpn", "eng"}, cfg.OCR.Languages)
	require.True(t, cfg.Cues.Enable)
	require.InDelta(t, 0.5, cfg.Cues.Volume, 1e-9)
	require.True(t, cfg.Debug.EnableAudioDump)
	require.Equal(t, "default", cfg.Audio.Input)
}

func TestParseJSONCUnknownKeyFails(t *testing.T) {
	_, _, err := parseJSONC(`{"camera": {"fps": 30}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCValidationErrorIsFatal(t *testing.T) {
	_, _, err := parseJSONC(`{"encoder": {"format": "flac"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "encoder.format")
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"debug":{"audio_dump":false}}{"debug":{"audio_dump":true}}`, Default())
	require.Error(t, err)
	require.True(
		t,
		strings.Contains(err.Error(), "multiple JSON values") || strings.Contains(err.Error(), "unknown field"),
		"unexpected error: %v",
		err,
	)
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "camera": {"width": "wide"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
	require.Contains(t, err.Error(), "column")

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, 2, decodeErr.Line)
}

func TestParseRejectsNonObjectContent(t *testing.T) {
	_, _, err := Parse("audio.input = default", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "JSONC object")
}

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, warnings, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Empty(t, warnings)
}
