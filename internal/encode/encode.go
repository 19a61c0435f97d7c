// Package encode turns fixed-profile PCM into compressed audio containers.
package encode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormatMismatch reports declared format parameters that do not describe
// the PCM buffer handed to an encoder.
var ErrFormatMismatch = errors.New("pcm format mismatch")

const (
	FormatOggOpus = "ogg-opus"
	FormatWAV     = "wav"
)

// Encoded is one finished audio artifact.
type Encoded struct {
	Data      []byte
	MIME      string
	Extension string
}

// Encoder converts interleaved little-endian PCM into a container. Encoders
// are pure: the same input always yields byte-identical output.
type Encoder interface {
	Encode(pcm []byte, sampleWidth, sampleRate, channels int) (Encoded, error)
}

// Options tunes encoder construction.
type Options struct {
	// Bitrate in bits per second for lossy encoders; 0 keeps the codec default.
	Bitrate int
}

// New returns the encoder registered under name. An empty name selects
// ogg-opus.
func New(name string, opts Options) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FormatOggOpus:
		return OggOpus{Bitrate: opts.Bitrate}, nil
	case FormatWAV:
		return WAV{}, nil
	default:
		return nil, fmt.Errorf("unknown encoder format %q", name)
	}
}

// CheckFormat validates that pcm is a whole number of s16 frames for the
// declared layout.
func CheckFormat(pcm []byte, sampleWidth, sampleRate, channels int) error {
	if sampleWidth != 2 {
		return fmt.Errorf("%w: sample width %d bytes (only 16-bit supported)", ErrFormatMismatch, sampleWidth)
	}
	if channels != 1 && channels != 2 {
		return fmt.Errorf("%w: %d channels (expected 1 or 2)", ErrFormatMismatch, channels)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrFormatMismatch, sampleRate)
	}
	if frameBytes := sampleWidth * channels; len(pcm)%frameBytes != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of %d-byte frames", ErrFormatMismatch, len(pcm), frameBytes)
	}
	return nil
}

// bytesToInt16s converts little-endian bytes to PCM samples.
func bytesToInt16s(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}
