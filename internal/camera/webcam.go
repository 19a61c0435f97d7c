package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/blackjack/webcam"
	"github.com/rbright/scancap/internal/frame"
)

const (
	fourccMJPEG webcam.PixelFormat = 0x47504A4D // MJPG
	fourccYUYV  webcam.PixelFormat = 0x56595559 // YUYV
)

// Options selects the capture mode for a webcam.
type Options struct {
	Width        int
	Height       int
	FrameTimeout time.Duration
	Logger       *slog.Logger
}

// Device streams frames from a V4L2 capture node. Close releases the device
// and must be called on every exit path.
type Device struct {
	path    string
	cam     *webcam.Webcam
	format  webcam.PixelFormat
	width   int
	height  int
	timeout uint32
	logger  *slog.Logger

	seq       int64
	closeOnce sync.Once
	closeErr  error
}

// Open negotiates MJPEG (or YUYV as a fallback) at the requested size and
// starts streaming.
func Open(path string, opts Options) (*Device, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open camera %q: %w", path, err)
	}

	supported := cam.GetSupportedFormats()
	format, ok := pickFormat(supported)
	if !ok {
		cam.Close()
		return nil, fmt.Errorf("camera %q supports neither MJPEG nor YUYV", path)
	}

	gotFormat, w, h, err := cam.SetImageFormat(format, uint32(opts.Width), uint32(opts.Height))
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("set camera format: %w", err)
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("start camera stream: %w", err)
	}

	timeout := uint32(opts.FrameTimeout / time.Second)
	if timeout == 0 {
		timeout = 1
	}

	return &Device{
		path:    path,
		cam:     cam,
		format:  gotFormat,
		width:   int(w),
		height:  int(h),
		timeout: timeout,
		logger:  opts.Logger,
	}, nil
}

// Size reports the negotiated frame size.
func (d *Device) Size() (int, int) {
	return d.width, d.height
}

// Next waits for and decodes one frame. A wait timeout or an undecodable
// frame is transient; any other device error ends the stream.
func (d *Device) Next(ctx context.Context) (frame.Image, error) {
	if err := ctx.Err(); err != nil {
		return frame.Image{}, err
	}

	if err := d.cam.WaitForFrame(d.timeout); err != nil {
		var timeout *webcam.Timeout
		if errors.As(err, &timeout) {
			return frame.Image{}, fmt.Errorf("camera wait: %w", frame.ErrTransient)
		}
		return frame.Image{}, fmt.Errorf("camera %q: %w", d.path, err)
	}

	raw, err := d.cam.ReadFrame()
	if err != nil {
		return frame.Image{}, fmt.Errorf("read camera frame: %w", err)
	}
	if len(raw) == 0 {
		return frame.Image{}, fmt.Errorf("empty camera frame: %w", frame.ErrTransient)
	}

	img, err := decodeRaw(d.format, raw, d.width, d.height)
	if err != nil {
		if d.logger != nil {
			d.logger.Debug("dropping undecodable camera frame", "error", err.Error(), "bytes", len(raw))
		}
		return frame.Image{}, fmt.Errorf("%w: %v", frame.ErrTransient, err)
	}

	d.seq++
	return frame.Image{Seq: d.seq, Pixels: img}, nil
}

// Close stops streaming and releases the device. It is safe to call more
// than once.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		_ = d.cam.StopStreaming()
		d.closeErr = d.cam.Close()
	})
	return d.closeErr
}

func pickFormat(supported map[webcam.PixelFormat]string) (webcam.PixelFormat, bool) {
	for _, want := range []webcam.PixelFormat{fourccMJPEG, fourccYUYV} {
		if _, ok := supported[want]; ok {
			return want, true
		}
	}
	return 0, false
}

func decodeRaw(format webcam.PixelFormat, raw []byte, width, height int) (image.Image, error) {
	switch format {
	case fourccMJPEG:
		return jpeg.Decode(bytes.NewReader(raw))
	case fourccYUYV:
		return yuyvToImage(raw, width, height)
	default:
		return nil, fmt.Errorf("unsupported pixel format %08x", uint32(format))
	}
}

// yuyvToImage unpacks packed 4:2:2 YUYV into planar YCbCr.
func yuyvToImage(raw []byte, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 || width%2 != 0 {
		return nil, fmt.Errorf("invalid yuyv size %dx%d", width, height)
	}
	if want := width * height * 2; len(raw) < want {
		return nil, fmt.Errorf("short yuyv frame: %d bytes, want %d", len(raw), want)
	}

	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio422)
	for y := 0; y < height; y++ {
		row := raw[y*width*2 : (y+1)*width*2]
		for x := 0; x < width; x += 2 {
			i := x * 2
			img.Y[y*img.YStride+x] = row[i]
			img.Y[y*img.YStride+x+1] = row[i+2]
			c := y*img.CStride + x/2
			img.Cb[c] = row[i+1]
			img.Cr[c] = row[i+3]
		}
	}
	return img, nil
}
