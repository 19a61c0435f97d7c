package session

import (
	"context"
	"errors"
	"time"

	"github.com/rbright/scancap/internal/capture"
)

var (
	// ErrPipelineUnavailable indicates the recorder was stopped before it started.
	ErrPipelineUnavailable = errors.New("audio capture pipeline is not running")
	// ErrEmptyRecording indicates stop completed but no audio was buffered.
	ErrEmptyRecording = errors.New("no audio captured; check microphone input or mute state")
)

// StopResult is the recorder output consumed by the session controller.
type StopResult struct {
	Outcome       capture.Outcome
	AudioDevice   string
	BytesCaptured int64
	Dropped       int
	EncodeLatency time.Duration
}

// Recorder abstracts the capture operations needed by session orchestration.
type Recorder interface {
	Start(context.Context) error
	StopAndEncode(context.Context) (StopResult, error)
	Cancel(context.Context) error
}
