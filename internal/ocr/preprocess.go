// Package ocr binarizes photographed text and recognizes it with Tesseract.
package ocr

import (
	"image"

	"github.com/disintegration/imaging"
)

// blurSigma approximates a 5x5 Gaussian kernel.
const blurSigma = 1.1

// Preprocess converts img to a black-and-white image: grayscale, Gaussian
// blur, then a global Otsu threshold.
func Preprocess(img image.Image) *image.Gray {
	blurred := imaging.Blur(imaging.Grayscale(img), blurSigma)

	bounds := blurred.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// Grayscale leaves R == G == B.
			gray.Pix[gray.PixOffset(x, y)] = blurred.Pix[blurred.PixOffset(x, y)]
		}
	}

	threshold := OtsuThreshold(gray)
	for i, v := range gray.Pix {
		if v > threshold {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
	return gray
}

// OtsuThreshold returns the level that maximizes between-class variance of
// the histogram of img.
func OtsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	for _, v := range img.Pix {
		hist[v]++
	}
	total := len(img.Pix)
	if total == 0 {
		return 0
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var (
		sumB    float64
		weightB int
		best    float64
		level   uint8
	)
	for t := 0; t < 256; t++ {
		weightB += hist[t]
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			level = uint8(t)
		}
	}
	return level
}
