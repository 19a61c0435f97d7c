// Package app dispatches parsed commands to the scan, OCR, and recording
// subsystems.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/scancap/internal/audio"
	"github.com/rbright/scancap/internal/barcode"
	"github.com/rbright/scancap/internal/camera"
	"github.com/rbright/scancap/internal/cli"
	"github.com/rbright/scancap/internal/config"
	"github.com/rbright/scancap/internal/cue"
	"github.com/rbright/scancap/internal/doctor"
	"github.com/rbright/scancap/internal/encode"
	"github.com/rbright/scancap/internal/frame"
	"github.com/rbright/scancap/internal/ipc"
	"github.com/rbright/scancap/internal/logging"
	"github.com/rbright/scancap/internal/ocr"
	"github.com/rbright/scancap/internal/output"
	"github.com/rbright/scancap/internal/pipeline"
	"github.com/rbright/scancap/internal/scan"
	"github.com/rbright/scancap/internal/session"
	"github.com/rbright/scancap/internal/version"
)

const binaryName = "scancap"

// imageSource is a closable frame source such as a webcam.
type imageSource interface {
	frame.ImageSource
	Close() error
}

// textRecognizer is the OCR surface used by the ocr command.
type textRecognizer interface {
	Recognize(ctx context.Context, img image.Image, languages []string) (string, error)
}

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	openCamera func(string, camera.Options) (imageSource, error)
	recognizer textRecognizer
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: setup logging: %v\n", err)
		logRuntime = logging.Discard()
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		if parsed.Command != cli.CommandStatus {
			fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		}
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel)
	case cli.CommandRecord:
		return r.commandRecord(ctx, cfgLoaded.Config, logger)
	case cli.CommandScan:
		return r.commandScan(ctx, cfgLoaded.Config, parsed, logger)
	case cli.CommandScanImage:
		return r.commandScanImage(ctx, cfgLoaded.Config, parsed.Args[0], logger)
	case cli.CommandOCR:
		return r.commandOCR(ctx, cfgLoaded.Config, parsed, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active %s recording\n", binaryName)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandRecord toggles an existing owner, or becomes the owner and records
// until stop/cancel arrives over IPC or ctx ends.
func (r Runner) commandRecord(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandToggle)
	if handled {
		return r.printForwarded(resp, err)
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{
		ProbeTimeout: 180 * time.Millisecond,
		Attempts:     8,
		OnStale: func(path string) {
			logger.Warn("removed stale owner socket", "path", path)
		},
	})
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			resp, _, forwardErr := tryForward(ctx, socketPath, ipc.CommandToggle)
			return r.printForwarded(resp, forwardErr)
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	encoder, err := encode.New(cfg.Encoder.Format, encode.Options{Bitrate: cfg.Encoder.Bitrate})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	outputDir, err := config.ResolveOutputDir(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	cues := cue.NewPlayer(cfg.Cues.Enable, cfg.Cues.Volume, logger)
	defer cues.Wait()

	recorder := pipeline.NewRecorder(cfg, encoder, logger)
	writer := output.NewWriter(outputDir, logger)
	controller := session.NewController(logger, recorder, writer).WithCues(cues)

	var result session.Result
	group, groupCtx := errgroup.WithContext(ctx)
	serverCtx, serverCancel := context.WithCancel(groupCtx)
	defer serverCancel()

	group.Go(func() error {
		return ipc.Serve(serverCtx, listener, controller)
	})
	group.Go(func() error {
		defer serverCancel()
		result = controller.Run(groupCtx)
		return nil
	})
	if err := group.Wait(); err != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
		return 1
	}

	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "%s (%s, %d bytes, %s)\n",
		result.Artifact.Path,
		result.Artifact.MIME,
		result.Artifact.Size,
		result.Duration.Round(10*time.Millisecond),
	)
	return 0
}

func (r Runner) printForwarded(resp ipc.Response, err error) int {
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandScan reads the configured camera until a barcode is found.
func (r Runner) commandScan(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	open := r.openCamera
	if open == nil {
		open = func(path string, opts camera.Options) (imageSource, error) {
			return camera.Open(path, opts)
		}
	}

	source, err := open(cfg.Camera.Device, camera.Options{
		Width:        cfg.Camera.Width,
		Height:       cfg.Camera.Height,
		FrameTimeout: time.Duration(cfg.Camera.FrameTimeoutMS) * time.Millisecond,
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			logger.Warn("close camera failed", "error", closeErr.Error())
		}
	}()

	timeout := parsed.Timeout
	if timeout == 0 {
		timeout = time.Duration(cfg.Scan.TimeoutMS) * time.Millisecond
	}

	fmt.Fprintf(r.Stderr, "scanning %s; hold a barcode up to the camera\n", cfg.Camera.Device)
	result := scan.Run(ctx, source, barcode.NewDetector(), scan.Options{
		MaxFrames: cfg.Scan.MaxFrames,
		Timeout:   timeout,
		Logger:    logger,
	})
	return r.reportScan(ctx, cfg, result, logger)
}

// commandScanImage evaluates exactly one still image.
func (r Runner) commandScanImage(ctx context.Context, cfg config.Config, path string, logger *slog.Logger) int {
	still, err := camera.OpenStill(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	result := scan.Run(ctx, still, barcode.NewDetector(), scan.Options{MaxFrames: 1, Logger: logger})
	return r.reportScan(ctx, cfg, result, logger)
}

func (r Runner) reportScan(ctx context.Context, cfg config.Config, result scan.Result, logger *slog.Logger) int {
	if !result.Found {
		fmt.Fprintf(r.Stderr, "no barcode found (%s after %d frames)\n", result.Reason, result.Frames)
		return 1
	}

	fmt.Fprintf(r.Stdout, "%s %s\n", result.Kind, result.Payload)
	if barcode.LooksLikeISBN(result.Kind, result.Payload) {
		fmt.Fprintf(r.Stdout, "isbn %s\n", result.Payload)
	}

	cues := cue.NewPlayer(cfg.Cues.Enable, cfg.Cues.Volume, logger)
	cues.Play(ctx, cue.Found)
	cues.Wait()
	return 0
}

// commandOCR prints recognized text for each image path.
func (r Runner) commandOCR(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	recognizer := r.recognizer
	if recognizer == nil {
		recognizer = ocr.NewEngine()
	}

	languages := parsed.Languages
	if len(languages) == 0 {
		languages = cfg.OCR.Languages
	}

	exitCode := 0
	multiple := len(parsed.Args) > 1
	for i, path := range parsed.Args {
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}

		img, err := camera.LoadImage(path)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			exitCode = 1
			continue
		}

		started := time.Now()
		text, err := recognizer.Recognize(ctx, img, languages)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %s: %v\n", path, err)
			logger.Error("ocr failed", "path", path, "error", err.Error())
			exitCode = 1
			continue
		}
		logger.Info("ocr complete",
			"path", path,
			"languages", strings.Join(languages, "+"),
			"chars", len([]rune(text)),
			"latency_ms", time.Since(started).Milliseconds(),
		)

		if multiple {
			if i > 0 {
				fmt.Fprintln(r.Stdout)
			}
			fmt.Fprintf(r.Stdout, "==> %s <==\n", path)
		}
		fmt.Fprintln(r.Stdout, text)
	}
	return exitCode
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.NoOwner(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
