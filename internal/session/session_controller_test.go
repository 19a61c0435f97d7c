package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rbright/scancap/internal/capture"
	"github.com/rbright/scancap/internal/fsm"
	"github.com/rbright/scancap/internal/ipc"
	"github.com/rbright/scancap/internal/output"
	"github.com/stretchr/testify/require"
)

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	ctrl := NewController(nil, &fakeRecorder{}, nil)

	status := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)

	unknown := ctrl.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestRequestStopAndCancelStateGuards(t *testing.T) {
	ctrl := NewController(nil, &fakeRecorder{}, nil)

	stopFromIdle := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStop})
	require.False(t, stopFromIdle.OK)
	require.Contains(t, stopFromIdle.Error, "cannot stop from state idle")

	cancelFromIdle := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandCancel})
	require.False(t, cancelFromIdle.OK)
	require.Contains(t, cancelFromIdle.Error, "cannot cancel from state idle")

	ctrl.mu.Lock()
	ctrl.state = fsm.StateRecording
	ctrl.stopping = true
	ctrl.mu.Unlock()

	status := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.Equal(t, "encoding", status.State)

	stopWhileEncoding := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStop})
	require.False(t, stopWhileEncoding.OK)
	require.Contains(t, stopWhileEncoding.Error, "already encoding")

	cancelWhileEncoding := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandCancel})
	require.False(t, cancelWhileEncoding.OK)
	require.Contains(t, cancelWhileEncoding.Error, "cannot cancel while encoding")

	ctrl.mu.Lock()
	ctrl.state = fsm.StateStopped
	ctrl.stopping = false
	ctrl.mu.Unlock()

	stopWhenStopped := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandToggle})
	require.False(t, stopWhenStopped.OK)
	require.Contains(t, stopWhenStopped.Error, "cannot toggle from state stopped")
}

func TestRequestStopAndCancelAlreadyRequested(t *testing.T) {
	ctrl := NewController(nil, &fakeRecorder{}, nil)

	ctrl.mu.Lock()
	ctrl.state = fsm.StateRecording
	ctrl.mu.Unlock()

	ctrl.actions <- actionStop
	stop := ctrl.requestStop("stop")
	require.True(t, stop.OK)
	require.Equal(t, "stop already requested", stop.Message)

	<-ctrl.actions
	ctrl.actions <- actionCancel
	cancel := ctrl.requestCancel()
	require.True(t, cancel.OK)
	require.Equal(t, "cancel already requested", cancel.Message)
}

func TestRunStartFailure(t *testing.T) {
	recorder := &fakeRecorder{startErr: errors.New("start failed")}
	ctrl := NewController(nil, recorder, nil)

	result := ctrl.Run(context.Background())
	require.Error(t, result.Err)
	require.Equal(t, fsm.StateStopped, result.State)
	require.NotZero(t, result.FinishedAt)
	require.Equal(t, int32(0), recorder.stopCalls.Load())
}

func TestRunWithoutRecorder(t *testing.T) {
	result := NewController(nil, nil, nil).Run(context.Background())
	require.True(t, IsPipelineUnavailable(result.Err))
	require.Equal(t, fsm.StateIdle, result.State)
}

func TestRunSecondRunRejected(t *testing.T) {
	ctrl := NewController(nil, &fakeRecorder{startErr: errors.New("start failed")}, nil)
	_ = ctrl.Run(context.Background())

	result := ctrl.Run(context.Background())
	require.ErrorIs(t, result.Err, fsm.ErrInvalidTransition)
}

func TestRunSinkFailure(t *testing.T) {
	ctrl := NewController(
		nil,
		&fakeRecorder{},
		SinkFunc(func(context.Context, capture.Outcome) (output.Artifact, error) {
			return output.Artifact{}, errors.New("disk full")
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	resp := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	require.True(t, resp.OK)

	result := <-resultCh
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "write artifact")
	require.Contains(t, result.Err.Error(), "disk full")
	require.Equal(t, capture.StatusRecorded, result.Status)
}

func TestRunContextCancelled(t *testing.T) {
	recorder := &fakeRecorder{}
	ctrl := NewController(nil, recorder, nil)

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	cancel()

	result := <-resultCh
	require.ErrorIs(t, result.Err, context.Canceled)
	require.Equal(t, fsm.StateStopped, result.State)
	require.Equal(t, int32(1), recorder.cancelCalls.Load())
	require.False(t, result.Cancelled)
}

func TestRunUnknownAction(t *testing.T) {
	recorder := &fakeRecorder{}
	ctrl := NewController(nil, recorder, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	ctrl.actions <- action(99)

	result := <-resultCh
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "unknown action")
	require.Equal(t, fsm.StateStopped, result.State)
	require.Equal(t, int32(1), recorder.cancelCalls.Load())
}

func TestIsPipelineUnavailable(t *testing.T) {
	require.True(t, IsPipelineUnavailable(ErrPipelineUnavailable))
	require.False(t, IsPipelineUnavailable(errors.New("different error")))
	require.False(t, IsPipelineUnavailable(nil))
}

func TestSinkFuncDelegates(t *testing.T) {
	called := false
	sink := SinkFunc(func(_ context.Context, outcome capture.Outcome) (output.Artifact, error) {
		called = true
		require.Equal(t, "abc", outcome.SessionID)
		return output.Artifact{Path: "/tmp/x"}, nil
	})

	artifact, err := sink.Write(context.Background(), capture.Outcome{SessionID: "abc"})
	require.NoError(t, err)
	require.Equal(t, "/tmp/x", artifact.Path)
	require.True(t, called)
}

func TestResultTimestampsAdvance(t *testing.T) {
	ctrl := NewController(nil, &fakeRecorder{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	require.True(t, ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop}).OK)
	result := <-resultCh

	require.False(t, result.StartedAt.IsZero())
	require.False(t, result.FinishedAt.IsZero())
	require.True(t, result.FinishedAt.After(result.StartedAt) || result.FinishedAt.Equal(result.StartedAt))
	require.LessOrEqual(t, result.FinishedAt.Sub(result.StartedAt), 2*time.Second)
}
