// Package output persists stopped recordings as artifact files.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/scancap/internal/capture"
)

// Artifact describes one written recording.
type Artifact struct {
	Path     string
	Filename string
	MIME     string
	Size     int64
}

// Writer places encoded recordings under a single directory.
type Writer struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter constructs a writer rooted at dir. The directory is created on
// first write.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger, now: time.Now}
}

// Dir returns the artifact directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write stores outcome.Audio and returns its artifact metadata. Empty
// outcomes write nothing and return a zero Artifact.
func (w *Writer) Write(ctx context.Context, outcome capture.Outcome) (Artifact, error) {
	if outcome.Status != capture.StatusRecorded || len(outcome.Audio.Data) == 0 {
		return Artifact{}, nil
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	if strings.TrimSpace(w.dir) == "" {
		return Artifact{}, errors.New("output directory is not configured")
	}
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return Artifact{}, fmt.Errorf("create output dir: %w", err)
	}

	filename := w.filename(outcome)
	path := filepath.Join(w.dir, filename)

	tmp, err := os.CreateTemp(w.dir, ".recording-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(outcome.Audio.Data); err != nil {
		_ = tmp.Close()
		return Artifact{}, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return Artifact{}, fmt.Errorf("chmod artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Artifact{}, fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return Artifact{}, fmt.Errorf("move artifact into place: %w", err)
	}

	artifact := Artifact{
		Path:     path,
		Filename: filename,
		MIME:     outcome.Audio.MIME,
		Size:     int64(len(outcome.Audio.Data)),
	}
	if w.logger != nil {
		w.logger.Info("artifact written",
			"path", artifact.Path,
			"mime", artifact.MIME,
			"bytes", artifact.Size,
			"session", outcome.SessionID,
			"duration_ms", outcome.Duration.Milliseconds(),
		)
	}
	return artifact, nil
}

// filename renders recording-<timestamp>-<id8><ext>.
func (w *Writer) filename(outcome capture.Outcome) string {
	id := strings.ReplaceAll(outcome.SessionID, "-", "")
	if id == "" {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if len(id) > 8 {
		id = id[:8]
	}

	ext := outcome.Audio.Extension
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("recording-%s-%s%s", w.now().Format("20060102-150405"), id, ext)
}
