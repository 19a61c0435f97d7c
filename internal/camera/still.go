// Package camera provides image frame sources: a V4L2 webcam and a single
// still image.
package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"sync"

	"github.com/rbright/scancap/internal/frame"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes png, jpeg, gif, bmp, tiff, or webp data.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// LoadImage opens and decodes the image at path.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %q: %w", path, err)
	}
	defer f.Close()

	img, _, err := DecodeImage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Still yields one frame and is then exhausted.
type Still struct {
	mu   sync.Mutex
	img  image.Image
	done bool
}

// NewStill wraps an already decoded image.
func NewStill(img image.Image) *Still {
	return &Still{img: img}
}

// OpenStill decodes path into a single-frame source.
func OpenStill(path string) (*Still, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return NewStill(img), nil
}

func (s *Still) Next(ctx context.Context) (frame.Image, error) {
	if err := ctx.Err(); err != nil {
		return frame.Image{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.img == nil {
		return frame.Image{}, frame.ErrEndOfStream
	}
	s.done = true
	return frame.Image{Seq: 1, Pixels: s.img}, nil
}
