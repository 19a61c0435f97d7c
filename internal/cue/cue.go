// Package cue plays short synthesized tones for scan and recording events.
package cue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind names one audible event.
type Kind int

const (
	Found Kind = iota + 1
	Start
	Stop
	Saved
	Cancel
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Saved:
		return "saved"
	case Cancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Player serializes cue playback. A disabled or nil Player is a no-op.
type Player struct {
	enabled bool
	volume  float64
	logger  *slog.Logger

	mu       sync.Mutex
	inflight sync.WaitGroup
	play     func(context.Context, []int16) error
}

// NewPlayer returns a player that renders cues through PulseAudio.
func NewPlayer(enabled bool, volume float64, logger *slog.Logger) *Player {
	return &Player{
		enabled: enabled,
		volume:  volume,
		logger:  logger,
		play:    playPulse,
	}
}

// Play emits kind asynchronously. Failures are logged at debug level only.
func (p *Player) Play(ctx context.Context, kind Kind) {
	if p == nil || !p.enabled {
		return
	}
	samples := Samples(kind, p.volume)
	if len(samples) == 0 {
		return
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.mu.Lock()
		defer p.mu.Unlock()

		playCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := p.play(playCtx, samples); err != nil && p.logger != nil {
			p.logger.Debug("audio cue failed", "cue", kind.String(), "error", err.Error())
		}
	}()
}

// Wait blocks until queued cues finish so a short-lived command does not
// exit mid-tone.
func (p *Player) Wait() {
	if p == nil {
		return
	}
	p.inflight.Wait()
}

// CueStart, CueStop, CueSaved, and CueCancel adapt Player to the recording
// lifecycle.
func (p *Player) CueStart(ctx context.Context)  { p.Play(ctx, Start) }
func (p *Player) CueStop(ctx context.Context)   { p.Play(ctx, Stop) }
func (p *Player) CueSaved(ctx context.Context)  { p.Play(ctx, Saved) }
func (p *Player) CueCancel(ctx context.Context) { p.Play(ctx, Cancel) }
