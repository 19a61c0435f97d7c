package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// normalizeJSONC blanks comments and trailing commas so the result decodes
// as strict JSON. Every removed byte becomes a space (newlines survive), so
// decoder offsets still point at the original line and column.
func normalizeJSONC(content string) (string, error) {
	out := []byte(content)
	inString, escaped := false, false
	comma := -1

	for i := 0; i < len(out); i++ {
		ch := out[i]
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
		case ch == '"':
			inString = true
			comma = -1
		case ch == '/' && i+1 < len(out) && out[i+1] == '/':
			end := strings.IndexAny(content[i:], "\r\n")
			if end < 0 {
				end = len(out) - i
			}
			blank(out[i : i+end])
			i += end - 1
		case ch == '/' && i+1 < len(out) && out[i+1] == '*':
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				return "", errors.New("unterminated block comment in JSONC")
			}
			end += i + 4
			blank(out[i:end])
			i = end - 1
		case ch == ',':
			comma = i
		case ch == '}' || ch == ']':
			if comma >= 0 {
				out[comma] = ' '
			}
			comma = -1
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
		default:
			comma = -1
		}
	}
	return string(out), nil
}

func blank(b []byte) {
	for i, ch := range b {
		if ch != '\n' && ch != '\r' {
			b[i] = ' '
		}
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple JSON values are not allowed")
	default:
		return err
	}
}

// DecodeError locates a syntax or type error in a config file.
type DecodeError struct {
	Line   int
	Column int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d column %d: %v", e.Line, e.Column, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func locate(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := position(content, offset)
	return &DecodeError{Line: line, Column: col, Err: err}
}

// position converts a decoder offset into the 1-based line and column of
// the byte just before it.
func position(content string, offset int64) (int, int) {
	at := min(int(offset), len(content)) - 1
	if at < 0 {
		return 1, 1
	}
	before := content[:at]
	return 1 + strings.Count(before, "\n"), at - strings.LastIndexByte(before, '\n')
}
