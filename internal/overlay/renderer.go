package overlay

import (
	"image"
	"image/color"
	"math"
	"time"

	"jordanella.com/mtg-scanner-go/internal/vision"
)

// CardAspect is card width over height (2.5in × 3.5in)
const CardAspect = 2.5 / 3.5

const (
	GuideCaption  = "Position card within frame"
	LockedCaption = "CARD LOCKED"
)

var (
	guideColor  = color.NRGBA{R: 255, G: 255, B: 255, A: 200}
	gridColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 90}
	lockedColor = color.NRGBA{R: 34, G: 197, B: 94, A: 255}
	barTrack    = color.NRGBA{R: 0, G: 0, B: 0, A: 140}
	textColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 230}
)

// Scene is what one overlay cycle draws
type Scene struct {
	// Bounds of the locked card in native video pixels, nil when untracked
	Bounds *vision.CardBounds
	// VideoSize is the native frame size the bounds refer to
	VideoSize image.Point
	// Elapsed drives the pulse and the placeholder confidence bar
	Elapsed time.Duration
}

// Renderer draws the tracking overlay in one of two styles
type Renderer struct {
	style Style
}

// NewRenderer creates a renderer. An unknown style falls back to guided-frame.
func NewRenderer(style Style) *Renderer {
	if style != StyleGrid {
		style = StyleGuidedFrame
	}
	return &Renderer{style: style}
}

// Style returns the active style
func (r *Renderer) Style() Style {
	return r.style
}

// GuideRect is the centred card-shaped guide for a w×h surface: width is
// the smaller of 60% of w and 80% of h scaled to card aspect
func GuideRect(w, h int) image.Rectangle {
	gw := math.Min(0.6*float64(w), 0.8*float64(h)*CardAspect)
	gh := gw / CardAspect

	x := (float64(w) - gw) / 2
	y := (float64(h) - gh) / 2
	return image.Rect(int(x), int(y), int(x+gw), int(y+gh))
}

// PulseOpacity oscillates between 0.4 and 1.0
func PulseOpacity(elapsed time.Duration) float64 {
	return 0.7 + 0.3*math.Sin(elapsed.Seconds()*5)
}

// Confidence is the decorative value shown in the locked bar. It oscillates
// within [0.85, 0.95] and is not derived from detection quality.
func Confidence(elapsed time.Duration) float64 {
	return 0.9 + 0.05*math.Sin(elapsed.Seconds()*2)
}

// ScaleBounds maps bounds from video pixels to a display of the given size
func ScaleBounds(b vision.CardBounds, video, display image.Point) image.Rectangle {
	if video.X <= 0 || video.Y <= 0 {
		return b.Rect()
	}
	sx := float64(display.X) / float64(video.X)
	sy := float64(display.Y) / float64(video.Y)
	return image.Rect(
		int(float64(b.X)*sx),
		int(float64(b.Y)*sy),
		int(float64(b.X+b.Width)*sx),
		int(float64(b.Y+b.Height)*sy),
	)
}

// Render resizes s to display, clears it and draws scene
func (r *Renderer) Render(s *Surface, display image.Point, scene Scene) {
	s.Resize(display.X, display.Y)
	s.Draw(func(dst *image.RGBA) {
		clear(dst.Pix)
		if dst.Rect.Empty() {
			return
		}
		r.drawGuide(dst)
		if scene.Bounds != nil {
			r.drawLocked(dst, ScaleBounds(*scene.Bounds, scene.VideoSize, display), scene.Elapsed)
		}
	})
}

func (r *Renderer) drawGuide(dst *image.RGBA) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	guide := GuideRect(w, h)

	if r.style == StyleGrid {
		for i := 1; i < 3; i++ {
			vLine(dst, w*i/3, 0, h, 1, gridColor)
			hLine(dst, 0, w, h*i/3, 1, gridColor)
		}
		strokeRect(dst, guide, 1, guideColor)
	} else {
		strokeRect(dst, guide, 2, withAlpha(guideColor, 0.5))
		corners(dst, guide, guide.Dx()/6, 4, guideColor)
	}

	cx, cy := w/2, h/2
	hLine(dst, cx-10, cx+10, cy, 2, guideColor)
	vLine(dst, cx, cy-10, cy+10, 2, guideColor)

	caption(dst, GuideCaption, cx, guide.Max.Y+18, textColor)
}

func (r *Renderer) drawLocked(dst *image.RGBA, rect image.Rectangle, elapsed time.Duration) {
	pulse := withAlpha(lockedColor, PulseOpacity(elapsed))

	strokeRect(dst, rect, 3, pulse)
	corners(dst, rect.Inset(-6), 18, 4, lockedColor)

	cx := (rect.Min.X + rect.Max.X) / 2
	caption(dst, LockedCaption, cx, rect.Min.Y-10, lockedColor)

	barW := rect.Dx() * 8 / 10
	bar := image.Rect(cx-barW/2, rect.Max.Y+12, cx-barW/2+barW, rect.Max.Y+20)
	fillRect(dst, bar, barTrack)

	filled := bar
	filled.Max.X = bar.Min.X + int(float64(bar.Dx())*Confidence(elapsed))
	fillRect(dst, filled, lockedColor)
}
