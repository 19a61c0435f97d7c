package session

import (
	"context"

	"github.com/rbright/scancap/internal/capture"
	"github.com/rbright/scancap/internal/output"
)

// ArtifactSink persists a recorded outcome once the session stops.
type ArtifactSink interface {
	Write(context.Context, capture.Outcome) (output.Artifact, error)
}

// SinkFunc adapts a function to the ArtifactSink interface.
type SinkFunc func(context.Context, capture.Outcome) (output.Artifact, error)

func (f SinkFunc) Write(ctx context.Context, outcome capture.Outcome) (output.Artifact, error) {
	return f(ctx, outcome)
}

// Cues receives audible lifecycle feedback. Implementations must not block.
type Cues interface {
	CueStart(context.Context)
	CueStop(context.Context)
	CueSaved(context.Context)
	CueCancel(context.Context)
}

type noCues struct{}

func (noCues) CueStart(context.Context)  {}
func (noCues) CueStop(context.Context)   {}
func (noCues) CueSaved(context.Context)  {}
func (noCues) CueCancel(context.Context) {}
