package camera

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/blackjack/webcam"
	"github.com/rbright/scancap/internal/frame"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	return img
}

func TestDecodeImageFormats(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*bytes.Buffer, image.Image) error
	}{
		{name: "png", encode: func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) }},
		{name: "bmp", encode: func(b *bytes.Buffer, img image.Image) error { return bmp.Encode(b, img) }},
		{name: "tiff", encode: func(b *bytes.Buffer, img image.Image) error { return tiff.Encode(b, img, nil) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tc.encode(&buf, testImage()))

			img, format, err := DecodeImage(&buf)
			require.NoError(t, err)
			require.Equal(t, tc.name, format)
			require.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
		})
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, _, err := DecodeImage(bytes.NewReader([]byte("definitely not an image")))
	require.Error(t, err)
}

func TestStillYieldsOneFrame(t *testing.T) {
	src := NewStill(testImage())
	ctx := context.Background()

	img, err := src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), img.Seq)
	require.NotNil(t, img.Pixels)

	_, err = src.Next(ctx)
	require.ErrorIs(t, err, frame.ErrEndOfStream)
}

func TestStillHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStill(testImage()).Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOpenStillFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	src, err := OpenStill(path)
	require.NoError(t, err)
	img, err := src.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, img.Pixels.Bounds().Dx())

	_, err = OpenStill(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestPickFormatPrefersMJPEG(t *testing.T) {
	format, ok := pickFormat(map[webcam.PixelFormat]string{fourccYUYV: "YUYV", fourccMJPEG: "MJPEG"})
	require.True(t, ok)
	require.Equal(t, fourccMJPEG, format)

	format, ok = pickFormat(map[webcam.PixelFormat]string{fourccYUYV: "YUYV"})
	require.True(t, ok)
	require.Equal(t, fourccYUYV, format)

	_, ok = pickFormat(map[webcam.PixelFormat]string{0x32315559: "YU12"})
	require.False(t, ok)
}

func TestYUYVToImage(t *testing.T) {
	raw := []byte{
		10, 100, 20, 200, 30, 101, 40, 201,
		50, 102, 60, 202, 70, 103, 80, 203,
	}
	img, err := yuyvToImage(raw, 4, 2)
	require.NoError(t, err)

	ycc := img.(*image.YCbCr)
	require.Equal(t, []byte{10, 20, 30, 40}, ycc.Y[0:4])
	require.Equal(t, byte(50), ycc.Y[ycc.YStride])
	require.Equal(t, byte(100), ycc.Cb[0])
	require.Equal(t, byte(201), ycc.Cr[1])
	require.Equal(t, byte(103), ycc.Cb[ycc.CStride+1])

	_, err = yuyvToImage(raw[:10], 4, 2)
	require.Error(t, err)
	_, err = yuyvToImage(raw, 3, 2)
	require.Error(t, err)
}

func TestDecodeRawUnsupportedFormat(t *testing.T) {
	_, err := decodeRaw(0x32315559, []byte{1}, 1, 1)
	require.Error(t, err)
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "video9"), Options{Width: 640, Height: 480})
	require.Error(t, err)
}
