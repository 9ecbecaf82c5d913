package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// DefaultJPEGQuality is the encoder quality for captures
const DefaultJPEGQuality = 80

// CaptureResult is a corrected, encoded still ready for recognition
type CaptureResult struct {
	ID         string      `json:"id"`
	Image      []byte      `json:"-"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Bounds     *CardBounds `json:"bounds,omitempty"`
	Applied    Corrections `json:"applied"`
	CapturedAt time.Time   `json:"capturedAt"`
}

// Decode decodes the JPEG payload
func (r *CaptureResult) Decode() (image.Image, error) {
	return jpeg.Decode(bytes.NewReader(r.Image))
}

// CaptureOptions controls a single capture
type CaptureOptions struct {
	Corrections Corrections
	Quality     int // JPEG quality 1-100, 0 means DefaultJPEGQuality
}

// Capture copies frame at full resolution, runs the enabled corrections
// and encodes the result. bounds is attached as given.
func Capture(frame image.Image, bounds *CardBounds, opts CaptureOptions) (*CaptureResult, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}

	b := frame.Bounds()
	work := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(work, work.Bounds(), frame, b.Min, draw.Src)

	applied := ApplyCorrections(work, opts.Corrections)

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, work, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode capture: %w", err)
	}

	var attached *CardBounds
	if bounds != nil {
		copied := *bounds
		attached = &copied
	}

	return &CaptureResult{
		ID:         uuid.NewString(),
		Image:      buf.Bytes(),
		Width:      b.Dx(),
		Height:     b.Dy(),
		Bounds:     attached,
		Applied:    applied,
		CapturedAt: time.Now(),
	}, nil
}
