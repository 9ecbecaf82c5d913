package vision

import (
	"fmt"
	"image"
)

// CardBounds is a detected card rectangle in native frame pixels
type CardBounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the bounds to an image.Rectangle
func (b CardBounds) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Aspect is width over height
func (b CardBounds) Aspect() float64 {
	if b.Height == 0 {
		return 0
	}
	return float64(b.Width) / float64(b.Height)
}

// Scale multiplies every coordinate by f
func (b CardBounds) Scale(f int) CardBounds {
	return CardBounds{X: b.X * f, Y: b.Y * f, Width: b.Width * f, Height: b.Height * f}
}

func (b CardBounds) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", b.Width, b.Height, b.X, b.Y)
}

// BoundsFromRect converts a rectangle to CardBounds
func BoundsFromRect(r image.Rectangle) CardBounds {
	return CardBounds{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// DetectorConfig holds the boundary detector's tuning values
type DetectorConfig struct {
	Factor        int     // linear downsampling factor
	EdgeThreshold float64 // gradient magnitude an edge must exceed
	MinEdgePixels int     // fewer edge pixels means no card
	MinAspect     float64 // exclusive
	MaxAspect     float64 // exclusive
	MinWidth      int     // exclusive, analysis space
	MinHeight     int     // exclusive, analysis space
}

// DefaultDetectorConfig returns the standard card detector settings
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		Factor:        ReductionFactor,
		EdgeThreshold: 50,
		MinEdgePixels: 100,
		MinAspect:     0.5,
		MaxAspect:     0.9,
		MinWidth:      50,
		MinHeight:     70,
	}
}

// Validate reports whether a candidate in analysis space looks like a card
func (c *DetectorConfig) Validate(b CardBounds) bool {
	if b.Width <= c.MinWidth || b.Height <= c.MinHeight {
		return false
	}
	aspect := b.Aspect()
	return aspect > c.MinAspect && aspect < c.MaxAspect
}

// FindCardBounds extracts and validates a candidate from an edge map.
// The result is in the edge map's coordinate space.
func (c *DetectorConfig) FindCardBounds(edges EdgeMap) (CardBounds, bool) {
	if edges.Count < c.MinEdgePixels {
		return CardBounds{}, false
	}
	r, ok := edges.Bounds()
	if !ok {
		return CardBounds{}, false
	}
	b := BoundsFromRect(r)
	if !c.Validate(b) {
		return CardBounds{}, false
	}
	return b, true
}

// DetectCardBoundary finds a card-shaped region in frame using the default
// settings. The error is non-nil only for nil or empty frames.
func DetectCardBoundary(frame image.Image) (CardBounds, bool, error) {
	return DefaultDetectorConfig().Detect(frame)
}

// Detect downsamples frame, finds edges and returns validated bounds in
// native frame pixels
func (c *DetectorConfig) Detect(frame image.Image) (CardBounds, bool, error) {
	small, err := Downsample(frame, c.Factor)
	if err != nil {
		return CardBounds{}, false, err
	}

	edges := DetectEdges(small, c.EdgeThreshold)
	b, ok := c.FindCardBounds(edges)
	if !ok {
		return CardBounds{}, false, nil
	}

	native := b.Scale(c.Factor)
	origin := frame.Bounds().Min
	native.X += origin.X
	native.Y += origin.Y
	return native, true, nil
}
