package overlay

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// fillRect blends c over r
func fillRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	r = r.Intersect(dst.Rect)
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// strokeRect outlines r with lines of width w drawn inside it
func strokeRect(dst *image.RGBA, r image.Rectangle, w int, c color.Color) {
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), c)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y+w, r.Min.X+w, r.Max.Y-w), c)
	fillRect(dst, image.Rect(r.Max.X-w, r.Min.Y+w, r.Max.X, r.Max.Y-w), c)
}

// hLine and vLine draw axis-aligned lines of width w centred on the coordinate
func hLine(dst *image.RGBA, x0, x1, y, w int, c color.Color) {
	fillRect(dst, image.Rect(x0, y-w/2, x1, y-w/2+w), c)
}

func vLine(dst *image.RGBA, x, y0, y1, w int, c color.Color) {
	fillRect(dst, image.Rect(x-w/2, y0, x-w/2+w, y1), c)
}

// corners draws L-shaped brackets of arm length n at each corner of r
func corners(dst *image.RGBA, r image.Rectangle, n, w int, c color.Color) {
	// top-left
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+n, r.Min.Y+w), c)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Min.Y+n), c)
	// top-right
	fillRect(dst, image.Rect(r.Max.X-n, r.Min.Y, r.Max.X, r.Min.Y+w), c)
	fillRect(dst, image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Min.Y+n), c)
	// bottom-left
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-w, r.Min.X+n, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-n, r.Min.X+w, r.Max.Y), c)
	// bottom-right
	fillRect(dst, image.Rect(r.Max.X-n, r.Max.Y-w, r.Max.X, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Max.X-w, r.Max.Y-n, r.Max.X, r.Max.Y), c)
}

var captionFace font.Face = basicfont.Face7x13

// caption draws s horizontally centred on cx with its baseline at y
func caption(dst *image.RGBA, s string, cx, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: captionFace,
	}
	width := d.MeasureString(s).Ceil()
	d.Dot = fixed.P(cx-width/2, y)
	d.DrawString(s)
}

// withAlpha returns c with its alpha scaled by a in [0,1]
func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	c.A = uint8(float64(c.A) * a)
	return c
}
