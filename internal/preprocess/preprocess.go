// Package preprocess conditions photographs of handwritten notes for OCR:
// grayscale conversion, Gaussian smoothing and adaptive binarization.
package preprocess

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	// blurSize is the side of the noise reduction kernel
	blurSize = 5
	// thresholdSize is the side of the neighbourhood the local threshold is computed over
	thresholdSize = 11
	// thresholdOffset is subtracted from the local mean
	thresholdOffset = 2
)

// Preprocess converts img into a binary (0/255) single-channel image of the
// same width and height. The result only depends on the input pixels.
func Preprocess(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrDecode)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: image has zero dimensions", ErrDecode)
	}

	gray := Grayscale(img)
	smooth := gaussianBlur(gray, blurSize, reflect101)
	return adaptiveThreshold(smooth, thresholdSize, thresholdOffset), nil
}

// Grayscale returns a single-channel copy of img anchored at (0,0).
// Gray images are copied unchanged, everything else is converted with the
// 0.299/0.587/0.114 luminance weights.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			off := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+w], g.Pix[off:off+w])
		}
		return out
	}

	src := imaging.Clone(img)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x := range dst {
			r := uint32(row[x*4])
			g := uint32(row[x*4+1])
			bl := uint32(row[x*4+2])
			// 14-bit fixed point weights, sum 16384
			dst[x] = uint8((r*4899 + g*9617 + bl*1868 + 8192) >> 14)
		}
	}
	return out
}

// adaptiveThreshold marks a pixel white when it is brighter than the
// Gaussian-weighted mean of its size x size neighbourhood minus offset.
func adaptiveThreshold(src *image.Gray, size, offset int) *image.Gray {
	mean := gaussianBlur(src, size, replicate)
	out := image.NewGray(src.Rect)
	for i, v := range src.Pix {
		if int(v) > int(mean.Pix[i])-offset {
			out.Pix[i] = 255
		}
	}
	return out
}

// EncodePNG encodes a preprocessed image for engines that take bytes
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
