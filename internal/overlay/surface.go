package overlay

import (
	"image"
	"sync"
)

// Surface is the drawable overlay layer. The tracking loop draws into it
// while presentation code takes snapshots.
type Surface struct {
	mu  sync.RWMutex
	img *image.RGBA
}

// NewSurface creates an empty 0×0 surface
func NewSurface() *Surface {
	return &Surface{img: image.NewRGBA(image.Rectangle{})}
}

// Resize reallocates the backing image when the size changes
func (s *Surface) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.img.Rect.Dx() == w && s.img.Rect.Dy() == h {
		return
	}
	s.img = image.NewRGBA(image.Rect(0, 0, w, h))
}

// Size returns the current dimensions
func (s *Surface) Size() image.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img.Rect.Size()
}

// Clear makes every pixel transparent
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.img.Pix)
}

// Draw runs fn with exclusive access to the backing image
func (s *Surface) Draw(fn func(dst *image.RGBA)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.img)
}

// Snapshot returns a copy of the current contents
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := image.NewRGBA(s.img.Rect)
	copy(out.Pix, s.img.Pix)
	return out
}

// IsBlank reports whether every pixel is fully transparent
func (s *Surface) IsBlank() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.img.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}
