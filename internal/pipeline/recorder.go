// Package pipeline wires microphone capture into a buffered capture session.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rbright/scancap/internal/audio"
	"github.com/rbright/scancap/internal/capture"
	"github.com/rbright/scancap/internal/config"
	"github.com/rbright/scancap/internal/encode"
	"github.com/rbright/scancap/internal/frame"
	"github.com/rbright/scancap/internal/session"
)

// captureClient is the subset of audio.Capture the recorder drives.
type captureClient interface {
	Next(context.Context) (frame.Audio, error)
	Stop() error
	BytesCaptured() int64
}

// Recorder owns one end-to-end capture -> buffer -> encode pipeline instance.
type Recorder struct {
	cfg     config.Config
	encoder encode.Encoder
	logger  *slog.Logger

	mu      sync.Mutex
	started bool

	selection audio.Selection
	source    captureClient
	session   *capture.Session
	dump      *audio.Accumulator

	feedDone chan error

	selectDevice func(context.Context, string, string) (audio.Selection, error)
	startCapture func(context.Context, audio.Device) (captureClient, error)
}

// NewRecorder constructs a recorder from runtime config.
func NewRecorder(cfg config.Config, encoder encode.Encoder, logger *slog.Logger) *Recorder {
	return &Recorder{
		cfg:          cfg,
		encoder:      encoder,
		logger:       logger,
		selectDevice: audio.SelectDevice,
		startCapture: func(ctx context.Context, device audio.Device) (captureClient, error) {
			return audio.StartCapture(ctx, device)
		},
	}
}

// Start resolves device selection, opens a capture session, and starts
// feeding it from the microphone.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("recorder already started")
	}

	selection, err := r.selectDevice(ctx, r.cfg.Audio.Input, r.cfg.Audio.Fallback)
	if err != nil {
		return err
	}
	r.selection = selection
	if selection.Warning != "" {
		r.logWarn(selection.Warning)
	}

	sess := capture.New(r.encoder, r.logger)
	if err := sess.Start(); err != nil {
		return err
	}

	source, err := r.startCapture(ctx, selection.Device)
	if err != nil {
		return err
	}

	r.session = sess
	r.source = source
	if r.cfg.Debug.EnableAudioDump {
		r.dump = &audio.Accumulator{}
	}
	r.feedDone = make(chan error, 1)
	go r.feedLoop(source, sess, r.dump, r.feedDone)

	r.started = true
	if r.logger != nil {
		r.logger.Info("recording started", "session", sess.ID(), "device", describeDevice(selection.Device))
	}
	return nil
}

// StopAndEncode stops the device, waits for in-flight chunks to reach the
// session, and encodes the buffered audio.
func (r *Recorder) StopAndEncode(ctx context.Context) (session.StopResult, error) {
	r.mu.Lock()
	started := r.started
	source := r.source
	sess := r.session
	feedDone := r.feedDone
	selection := r.selection
	r.mu.Unlock()

	if !started || source == nil || sess == nil {
		return session.StopResult{}, session.ErrPipelineUnavailable
	}

	_ = source.Stop()
	feedErr := r.waitFeed(ctx, feedDone)

	result := session.StopResult{
		AudioDevice:   describeDevice(selection.Device),
		BytesCaptured: source.BytesCaptured(),
		Dropped:       sess.Dropped(),
	}

	// The buffer survives a device failure, so encode whatever arrived.
	if feedErr != nil && !errors.Is(feedErr, context.Canceled) {
		r.logWarn(fmt.Sprintf("capture ended with error: %v", feedErr))
	}

	encodeStarted := time.Now()
	outcome, err := sess.Stop()
	result.EncodeLatency = time.Since(encodeStarted)
	result.Outcome = outcome
	if ctx.Err() == nil {
		r.writeDebugAudio()
	}
	r.reset()
	if err != nil {
		return result, fmt.Errorf("encode recording: %w", err)
	}
	return result, nil
}

// Cancel stops capture immediately and discards buffered audio.
func (r *Recorder) Cancel(ctx context.Context) error {
	r.mu.Lock()
	source := r.source
	feedDone := r.feedDone
	r.mu.Unlock()

	if source != nil {
		_ = source.Stop()
		if err := r.waitFeed(ctx, feedDone); err == nil {
			r.writeDebugAudio()
		}
	}
	r.reset()
	return nil
}

// feedLoop forwards capture chunks to the session in arrival order and
// reports how the source ended. A clean end of stream reports nil.
func (r *Recorder) feedLoop(source captureClient, sess *capture.Session, dump *audio.Accumulator, done chan<- error) {
	ctx := context.Background()
	for {
		chunk, err := source.Next(ctx)
		if err != nil {
			if errors.Is(err, frame.ErrEndOfStream) {
				done <- nil
				return
			}
			if errors.Is(err, frame.ErrTransient) {
				continue
			}
			done <- err
			return
		}
		if len(chunk.Data) == 0 {
			continue
		}
		sess.Feed(chunk)
		if dump != nil {
			dump.Append(chunk)
		}
	}
}

// waitFeed blocks until the feed loop drains or ctx ends.
func (r *Recorder) waitFeed(ctx context.Context, feedDone <-chan error) error {
	if feedDone == nil {
		return nil
	}
	select {
	case err := <-feedDone:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reset clears per-recording state so the recorder can be reused.
func (r *Recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = false
	r.source = nil
	r.session = nil
	r.dump = nil
	r.feedDone = nil
}

// describeDevice formats device metadata for logs/session results.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

// logWarn emits warning-level logs when logger is configured.
func (r *Recorder) logWarn(message string) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(message)
}

// createDebugFile creates timestamped debug artifacts under state/scancap/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "scancap", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// resolveStateDir returns XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

// writeDebugAudio writes the raw PCM of the current recording to WAV when
// debug.audio_dump is enabled.
func (r *Recorder) writeDebugAudio() {
	r.mu.Lock()
	dump := r.dump
	r.mu.Unlock()
	if dump == nil {
		return
	}
	r.writeDebugPCM(dump.Concat())
}

func (r *Recorder) writeDebugPCM(rawPCM []byte) {
	if !r.cfg.Debug.EnableAudioDump || len(rawPCM) == 0 {
		return
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		r.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}
	defer file.Close()

	if err := encode.WritePCM16WAV(file, rawPCM, audio.SampleRate, audio.Channels); err != nil {
		r.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}
