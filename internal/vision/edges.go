package vision

import (
	"image"
	"math"
)

// EdgeMap marks pixels whose gradient magnitude exceeded the threshold
type EdgeMap struct {
	Width  int
	Height int
	Mask   []bool
	Count  int
}

// NewEdgeMap creates an empty map
func NewEdgeMap(w, h int) EdgeMap {
	return EdgeMap{Width: w, Height: h, Mask: make([]bool, w*h)}
}

// Set marks (x, y) as an edge pixel
func (m *EdgeMap) Set(x, y int) {
	i := y*m.Width + x
	if !m.Mask[i] {
		m.Mask[i] = true
		m.Count++
	}
}

// At reports whether (x, y) is an edge pixel
func (m EdgeMap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Mask[y*m.Width+x]
}

// Bounds returns the smallest rectangle containing every edge pixel.
// ok is false when the map holds no edges.
func (m EdgeMap) Bounds() (r image.Rectangle, ok bool) {
	if m.Count == 0 {
		return image.Rectangle{}, false
	}

	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1
	for y := 0; y < m.Height; y++ {
		row := m.Mask[y*m.Width : (y+1)*m.Width]
		for x, edge := range row {
			if !edge {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// grayscale converts img to a row-major luminance plane
func grayscale(img *image.RGBA) []float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		for x := 0; x < w; x++ {
			i := x * 4
			gray[y*w+x] = luma(row[i], row[i+1], row[i+2])
		}
	}
	return gray
}

// DetectEdges runs a 3×3 Sobel operator over img. Border pixels are never
// marked; interior pixels are marked when the magnitude exceeds threshold.
func DetectEdges(img *image.RGBA, threshold float64) EdgeMap {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	edges := NewEdgeMap(w, h)
	if w < 3 || h < 3 {
		return edges
	}

	g := grayscale(img)
	for y := 1; y < h-1; y++ {
		up, mid, down := (y-1)*w, y*w, (y+1)*w
		for x := 1; x < w-1; x++ {
			gx := (g[up+x+1] + 2*g[mid+x+1] + g[down+x+1]) -
				(g[up+x-1] + 2*g[mid+x-1] + g[down+x-1])
			gy := (g[down+x-1] + 2*g[down+x] + g[down+x+1]) -
				(g[up+x-1] + 2*g[up+x] + g[up+x+1])

			if math.Hypot(gx, gy) > threshold {
				edges.Set(x, y)
			}
		}
	}
	return edges
}
