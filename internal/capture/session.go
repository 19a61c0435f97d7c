// Package capture owns one start-to-stop recording: it buffers PCM chunks
// while recording and encodes them exactly once when stopped.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/scancap/internal/audio"
	"github.com/rbright/scancap/internal/encode"
	"github.com/rbright/scancap/internal/frame"
	"github.com/rbright/scancap/internal/fsm"
)

// Status is the terminal classification of a stopped session.
type Status string

const (
	StatusRecorded Status = "recorded"
	StatusEmpty    Status = "empty"
)

// Outcome is what Stop hands back. Audio is zero when Status is StatusEmpty.
type Outcome struct {
	SessionID string
	Status    Status
	Audio     encode.Encoded
	Chunks    int
	Samples   int
	Duration  time.Duration
}

// Session is a single-use recording lifecycle: idle -> recording -> stopped.
type Session struct {
	id      string
	encoder encode.Encoder
	logger  *slog.Logger

	mu      sync.Mutex
	state   fsm.State
	buffer  *audio.Accumulator
	dropped int
}

// New returns an idle session that will encode with encoder on Stop.
func New(encoder encode.Encoder, logger *slog.Logger) *Session {
	if encoder == nil {
		encoder = encode.OggOpus{}
	}
	return &Session{
		id:      uuid.NewString(),
		encoder: encoder,
		logger:  logger,
		state:   fsm.StateIdle,
	}
}

// ID identifies the session in logs and artifact names.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state snapshot.
func (s *Session) State() fsm.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start allocates an empty buffer and begins recording. It fails with
// fsm.ErrInvalidTransition unless the session is idle.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fsm.Transition(s.state, fsm.EventStart)
	if err != nil {
		return err
	}
	s.state = next
	s.buffer = &audio.Accumulator{}
	return nil
}

// Feed appends chunk while recording. Chunks that arrive before Start or
// after Stop are dropped without error.
func (s *Session) Feed(chunk frame.Audio) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != fsm.StateRecording {
		s.dropped++
		if s.logger != nil {
			s.logger.Debug("dropping audio chunk outside recording",
				"session", s.id,
				"state", string(s.state),
				"seq", chunk.Seq,
			)
		}
		return
	}
	s.buffer.Append(chunk)
}

// Buffered reports the chunk and sample counts accumulated so far.
func (s *Session) Buffered() (chunks int, samples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer == nil {
		return 0, 0
	}
	return s.buffer.Len(), s.buffer.Samples()
}

// Dropped counts Feed calls ignored because the session was not recording.
func (s *Session) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Stop ends recording and encodes the buffer at the fixed profile. A
// session with no chunks reports StatusEmpty without invoking the encoder.
// Stop outside recording fails with fsm.ErrInvalidTransition.
func (s *Session) Stop() (Outcome, error) {
	s.mu.Lock()
	next, err := fsm.Transition(s.state, fsm.EventStop)
	if err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	s.state = next
	buffer := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	outcome := Outcome{
		SessionID: s.id,
		Status:    StatusEmpty,
		Chunks:    buffer.Len(),
		Samples:   buffer.Samples(),
	}
	if buffer.Len() == 0 {
		return outcome, nil
	}

	pcm := buffer.Concat()
	outcome.Duration = audio.Default.Duration(len(pcm))
	encoded, err := s.encoder.Encode(pcm, audio.SampleWidth, audio.SampleRate, audio.Channels)
	if err != nil {
		if errors.Is(err, encode.ErrFormatMismatch) {
			return Outcome{}, err
		}
		return Outcome{}, fmt.Errorf("encode session %s: %w", s.id, err)
	}

	outcome.Status = StatusRecorded
	outcome.Audio = encoded
	return outcome, nil
}
