// Package scan drives an image source through a detector until the first
// usable detection, exhaustion, or cancellation.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/scancap/internal/frame"
)

// Reason explains why a scan loop ended.
type Reason string

const (
	ReasonFound     Reason = "found"
	ReasonExhausted Reason = "exhausted"
	ReasonCancelled Reason = "cancelled"
	ReasonLimit     Reason = "limit"
	ReasonTimeout   Reason = "timeout"
)

// Result is the terminal outcome of one scan. Payload and Kind are empty
// unless Found is set.
type Result struct {
	Found   bool
	Payload string
	Kind    string
	Frames  int
	Reason  Reason
}

// Options bounds a scan. The zero value scans until detection or exhaustion.
type Options struct {
	// MaxFrames stops after evaluating this many frames when > 0. Still-image
	// mode uses 1.
	MaxFrames int
	// Timeout bounds the whole scan when > 0.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Run pulls frames from source and returns on the first detection whose
// payload is non-blank. Source errors never escape: they end the loop with a
// not-found result. Run does not close source.
func Run(ctx context.Context, source frame.ImageSource, detector frame.Detector, opts Options) Result {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	result := Result{}
	for {
		if err := ctx.Err(); err != nil {
			result.Reason = ctxReason(err)
			return finish(opts.Logger, result)
		}
		if opts.MaxFrames > 0 && result.Frames >= opts.MaxFrames {
			result.Reason = ReasonLimit
			return finish(opts.Logger, result)
		}

		img, err := source.Next(ctx)
		if err != nil {
			if !frame.IsEndOfStream(err) {
				logDebug(opts.Logger, "skipping unreadable frame", "error", err.Error())
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				result.Reason = ctxReason(ctxErr)
			} else {
				result.Reason = ReasonExhausted
			}
			if !errors.Is(err, frame.ErrEndOfStream) {
				logDebug(opts.Logger, "frame source failed", "error", err.Error())
			}
			return finish(opts.Logger, result)
		}
		result.Frames++

		if d, ok := firstValid(detector.Detect(img)); ok {
			result.Found = true
			result.Payload = d.Payload
			result.Kind = d.Kind
			result.Reason = ReasonFound
			return finish(opts.Logger, result)
		}
	}
}

// firstValid drops detections that decoded to a blank payload; some
// decoders report success with an empty string.
func firstValid(detections []frame.Detection) (frame.Detection, bool) {
	for _, d := range detections {
		if strings.TrimSpace(d.Payload) != "" {
			return d, true
		}
	}
	return frame.Detection{}, false
}

func ctxReason(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonCancelled
}

func finish(logger *slog.Logger, result Result) Result {
	if logger != nil {
		logger.Info("scan finished",
			"found", result.Found,
			"kind", result.Kind,
			"frames", result.Frames,
			"reason", string(result.Reason),
		)
	}
	return result
}

func logDebug(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		return
	}
	logger.Debug(msg, args...)
}
