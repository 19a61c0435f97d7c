package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguages matches the Japanese-first demo this tool grew from.
var DefaultLanguages = []string{"jpn"}

// Engine runs Tesseract through gosseract, one client per call.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// NewEngine constructs a Tesseract-backed engine.
func NewEngine() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

// Version reports the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}

// Recognize preprocesses img and returns the recognized text, trimmed.
func (e *Engine) Recognize(ctx context.Context, img image.Image, languages []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Preprocess(img)); err != nil {
		return "", fmt.Errorf("encode preprocessed image: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	if err := c.SetLanguage(languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
