// Package barcode decodes 1D and QR symbols from video frames.
package barcode

import (
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rbright/scancap/internal/frame"
)

// Detector implements frame.Detector with gozxing readers. Readers are
// built per call so Detect holds no state between frames.
type Detector struct {
	readers []func() gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

// NewDetector returns a detector for retail (EAN/UPC), Code 128, Code 39,
// and QR symbols.
func NewDetector() *Detector {
	return &Detector{
		readers: []func() gozxing.Reader{
			oned.NewUPCAReader,
			oned.NewEAN13Reader,
			oned.NewEAN8Reader,
			oned.NewUPCEReader,
			oned.NewCode128Reader,
			oned.NewCode39Reader,
			qrcode.NewQRCodeReader,
		},
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Detect returns every distinct payload any reader decodes from img.
func (d *Detector) Detect(img frame.Image) []frame.Detection {
	if img.Pixels == nil {
		return nil
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img.Pixels)
	if err != nil {
		return nil
	}

	var (
		out  []frame.Detection
		seen = map[string]struct{}{}
	)
	for _, newReader := range d.readers {
		result, err := newReader().Decode(bmp, d.hints)
		if err != nil || result == nil {
			continue
		}
		payload := result.GetText()
		if _, dup := seen[payload]; dup {
			continue
		}
		// A UPC-A symbol also decodes as EAN-13 with a leading zero.
		if _, dup := seen[strings.TrimPrefix(payload, "0")]; dup && result.GetBarcodeFormat() == gozxing.BarcodeFormat_EAN_13 {
			continue
		}
		seen[payload] = struct{}{}
		out = append(out, frame.Detection{Payload: payload, Kind: Kind(result.GetBarcodeFormat())})
	}
	return out
}

// Kind maps a gozxing format to the compact tag scancap reports, e.g.
// EAN_13 -> EAN13.
func Kind(format gozxing.BarcodeFormat) string {
	return strings.ReplaceAll(format.String(), "_", "")
}

// LooksLikeISBN reports whether an EAN-13 payload carries a Bookland
// (978/979) prefix.
func LooksLikeISBN(kind, payload string) bool {
	if kind != "EAN13" || len(payload) != 13 {
		return false
	}
	for _, r := range payload {
		if r < '0' || r > '9' {
			return false
		}
	}
	return strings.HasPrefix(payload, "978") || strings.HasPrefix(payload, "979")
}
