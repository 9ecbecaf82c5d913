package vision

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ReductionFactor is the linear downsampling applied before edge analysis
const ReductionFactor = 4

// ErrEmptyFrame is returned for nil or zero-area frames
var ErrEmptyFrame = errors.New("frame is nil or empty")

// ToRGBA returns img as an *image.RGBA with a zero origin. An RGBA that
// already has a zero origin is returned as is; anything else is copied.
func ToRGBA(img image.Image) (*image.RGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}

	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba, nil
	}

	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}

// Downsample scales frame down by factor into a fresh analysis buffer
func Downsample(frame image.Image, factor int) (*image.RGBA, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}
	if factor < 1 {
		return nil, fmt.Errorf("invalid reduction factor %d", factor)
	}

	b := frame.Bounds()
	w, h := b.Dx()/factor, b.Dy()/factor
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("frame %dx%d too small for factor %d: %w", b.Dx(), b.Dy(), factor, ErrEmptyFrame)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, b, draw.Src, nil)
	return dst, nil
}

// Resize scales img to exactly w×h
func Resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if img == nil || img.Bounds().Empty() || w <= 0 || h <= 0 {
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// luma is the Rec.601 luminance of an 8-bit RGB triple
func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}
