// Package session coordinates one recording lifecycle, its IPC commands, and
// artifact hand-off.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/scancap/internal/capture"
	"github.com/rbright/scancap/internal/fsm"
	"github.com/rbright/scancap/internal/ipc"
	"github.com/rbright/scancap/internal/output"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

// stateEncoding is reported over IPC between a stop request and the end of
// encoding. It is not an fsm state.
const stateEncoding = "encoding"

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State         fsm.State
	SessionID     string
	Status        capture.Status
	Artifact      output.Artifact
	Cancelled     bool
	Err           error
	AudioDevice   string
	BytesCaptured int64
	Dropped       int
	Duration      time.Duration
	EncodeLatency time.Duration
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Controller orchestrates the recording lifecycle and its side effects.
type Controller struct {
	logger   *slog.Logger
	recorder Recorder
	sink     ArtifactSink
	cues     Cues

	mu       sync.RWMutex
	state    fsm.State
	stopping bool

	actions chan action
}

// NewController constructs a session controller. A nil sink discards outcomes.
func NewController(logger *slog.Logger, recorder Recorder, sink ArtifactSink) *Controller {
	if sink == nil {
		sink = SinkFunc(func(context.Context, capture.Outcome) (output.Artifact, error) {
			return output.Artifact{}, nil
		})
	}

	return &Controller{
		logger:   logger,
		recorder: recorder,
		sink:     sink,
		cues:     noCues{},
		state:    fsm.StateIdle,
		actions:  make(chan action, 1),
	}
}

// WithCues attaches audible lifecycle feedback. A nil value keeps silence.
func (c *Controller) WithCues(cues Cues) *Controller {
	if cues != nil {
		c.cues = cues
	}
	return c
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// status is the state label reported over IPC.
func (c *Controller) status() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stopping {
		return stateEncoding
	}
	return string(c.state)
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// finish moves a recording controller to its terminal state best-effort.
func (c *Controller) finish() {
	_ = c.transition(fsm.EventStop)
	c.mu.Lock()
	c.stopping = false
	c.mu.Unlock()
}

// Run executes one owner lifecycle from start to stop/cancel/failure completion.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}
	done := func() Result {
		result.State = c.State()
		result.FinishedAt = time.Now()
		c.logResult(result)
		return result
	}

	if c.recorder == nil {
		result.Err = ErrPipelineUnavailable
		return done()
	}

	if err := c.transition(fsm.EventStart); err != nil {
		result.Err = err
		return done()
	}

	if err := c.recorder.Start(ctx); err != nil {
		c.finish()
		result.Err = err
		return done()
	}
	c.cues.CueStart(ctx)

	select {
	case <-ctx.Done():
		_ = c.recorder.Cancel(context.Background())
		c.finish()
		c.cues.CueCancel(ctx)
		result.Err = ctx.Err()
		return done()
	case a := <-c.actions:
		switch a {
		case actionCancel:
			_ = c.recorder.Cancel(context.Background())
			c.finish()
			c.cues.CueCancel(ctx)
			result.Cancelled = true
			return done()
		case actionStop:
			c.mu.Lock()
			c.stopping = true
			c.mu.Unlock()
			c.cues.CueStop(ctx)

			stopResult, err := c.recorder.StopAndEncode(ctx)
			c.finish()
			result.applyStop(stopResult)
			if err != nil {
				result.Err = err
				return done()
			}

			if stopResult.Outcome.Status == capture.StatusEmpty {
				result.Err = ErrEmptyRecording
				return done()
			}

			artifact, err := c.sink.Write(ctx, stopResult.Outcome)
			if err != nil {
				result.Err = fmt.Errorf("write artifact: %w", err)
				return done()
			}
			result.Artifact = artifact
			c.cues.CueSaved(ctx)
			return done()
		default:
			_ = c.recorder.Cancel(context.Background())
			c.finish()
			result.Err = fmt.Errorf("unknown action %d", a)
			return done()
		}
	}
}

// applyStop copies recorder metadata into the result.
func (r *Result) applyStop(stop StopResult) {
	r.SessionID = stop.Outcome.SessionID
	r.Status = stop.Outcome.Status
	r.Duration = stop.Outcome.Duration
	r.AudioDevice = stop.AudioDevice
	r.BytesCaptured = stop.BytesCaptured
	r.Dropped = stop.Dropped
	r.EncodeLatency = stop.EncodeLatency
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: c.status(), Message: "status"}
	case ipc.CommandToggle:
		return c.requestStop("toggle")
	case ipc.CommandStop:
		return c.requestStop("stop")
	case ipc.CommandCancel:
		return c.requestCancel()
	default:
		return ipc.Response{OK: false, State: c.status(), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// requestStop enqueues a stop action when state permits it.
func (c *Controller) requestStop(source string) ipc.Response {
	status := c.status()
	if status == stateEncoding {
		return ipc.Response{OK: false, State: status, Error: "already encoding"}
	}
	if status != string(fsm.StateRecording) {
		return ipc.Response{OK: false, State: status, Error: fmt.Sprintf("cannot %s from state %s", source, status)}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: status, Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: status, Message: "stop already requested"}
	}
}

// requestCancel enqueues a cancel action when state permits it.
func (c *Controller) requestCancel() ipc.Response {
	status := c.status()
	if status == stateEncoding {
		return ipc.Response{OK: false, State: status, Error: "cannot cancel while encoding"}
	}
	if status != string(fsm.StateRecording) {
		return ipc.Response{OK: false, State: status, Error: fmt.Sprintf("cannot cancel from state %s", status)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: status, Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: status, Message: "cancel already requested"}
	}
}

func (c *Controller) logResult(result Result) {
	if c.logger == nil {
		return
	}
	attrs := []any{
		"state", result.State,
		"session", result.SessionID,
		"status", result.Status,
		"cancelled", result.Cancelled,
		"device", result.AudioDevice,
		"bytes_captured", result.BytesCaptured,
		"dropped_chunks", result.Dropped,
		"duration_ms", result.Duration.Milliseconds(),
		"encode_latency_ms", result.EncodeLatency.Milliseconds(),
		"artifact", result.Artifact.Path,
	}
	if result.Err != nil {
		c.logger.Error("session finished", append(attrs, "error", result.Err.Error())...)
		return
	}
	c.logger.Info("session finished", attrs...)
}

// IsPipelineUnavailable reports whether an error represents missing pipeline wiring.
func IsPipelineUnavailable(err error) bool {
	return errors.Is(err, ErrPipelineUnavailable)
}
