// Package frame defines the units pulled from live capture devices and the
// source/detector contracts the scan and capture loops are built on.
package frame

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrEndOfStream reports that a source has no more frames. Device read
	// failures are folded into it by callers.
	ErrEndOfStream = errors.New("end of stream")
	// ErrTransient reports that one frame could not be produced but the
	// source is still usable.
	ErrTransient = errors.New("transient frame failure")
)

// Image is one decoded video frame. Callers must not mutate Pixels.
type Image struct {
	Seq    int64
	Pixels image.Image
}

// Audio is one chunk of little-endian signed 16-bit PCM.
type Audio struct {
	Seq  int64
	Data []byte
}

// ImageSource yields video frames from a camera or a still image.
type ImageSource interface {
	Next(context.Context) (Image, error)
}

// AudioSource yields PCM chunks from a microphone.
type AudioSource interface {
	Next(context.Context) (Audio, error)
}

// Detection is one decoded payload with its symbology tag.
type Detection struct {
	Payload string
	Kind    string
}

// Detector extracts zero or more detections from a single frame.
type Detector interface {
	Detect(Image) []Detection
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(Image) []Detection

func (f DetectorFunc) Detect(img Image) []Detection {
	return f(img)
}

// IsEndOfStream reports whether err terminates a frame loop. Anything that
// is not an explicit transient failure counts as exhaustion.
func IsEndOfStream(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrTransient)
}
