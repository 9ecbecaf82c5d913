package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
)

// SyntheticBackend serves generated frames: a light card-shaped rectangle on
// a dark background. It stands in for real hardware in demos and tests.
type SyntheticBackend struct {
	mu      sync.Mutex
	devices []RawDevice

	// OpenErrs are returned by successive Open calls before any succeeds
	OpenErrs []error
	// DevicesErr is returned by Devices when set
	DevicesErr error
	// Card toggles the card rectangle in generated frames
	Card bool
	// FailAfter makes each stream fail every read after this many frames;
	// zero never fails
	FailAfter int

	opened []Constraints
	open   int
}

// NewSyntheticBackend creates a backend with a single rear camera
func NewSyntheticBackend() *SyntheticBackend {
	return &SyntheticBackend{
		devices: []RawDevice{{DeviceID: "synthetic-0", Label: "Synthetic back camera"}},
		Card:    true,
	}
}

// SetDevices replaces the reported device list
func (b *SyntheticBackend) SetDevices(devices []RawDevice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices = devices
}

func (b *SyntheticBackend) Devices(ctx context.Context) ([]RawDevice, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.DevicesErr != nil {
		return nil, b.DevicesErr
	}
	out := make([]RawDevice, len(b.devices))
	copy(out, b.devices)
	return out, nil
}

func (b *SyntheticBackend) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.opened = append(b.opened, c)
	if len(b.OpenErrs) > 0 {
		err := b.OpenErrs[0]
		b.OpenErrs = b.OpenErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	width, height := c.Width, c.Height
	if width <= 0 || height <= 0 {
		width, height = TierLow.Resolution().Width, TierLow.Resolution().Height
	}

	b.open++
	return &syntheticStream{backend: b, frame: SyntheticFrame(width, height, b.Card), failAfter: b.FailAfter}, nil
}

// Opened returns the constraints of every Open call so far
func (b *SyntheticBackend) Opened() []Constraints {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Constraints, len(b.opened))
	copy(out, b.opened)
	return out
}

// OpenStreams returns how many streams are currently open
func (b *SyntheticBackend) OpenStreams() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

type syntheticStream struct {
	backend   *SyntheticBackend
	frame     *image.RGBA
	failAfter int

	mu     sync.Mutex
	closed bool
	reads  int
}

func (s *syntheticStream) ReadFrame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("stream closed")
	}
	s.reads++
	if s.failAfter > 0 && s.reads > s.failAfter {
		return nil, errors.New("no frame from device")
	}
	frame := image.NewRGBA(s.frame.Rect)
	copy(frame.Pix, s.frame.Pix)
	return frame, nil
}

func (s *syntheticStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.backend.mu.Lock()
	s.backend.open--
	s.backend.mu.Unlock()
	return nil
}

// SyntheticFrame draws a width×height frame. With card set, a bright
// rectangle of card proportions (0.7 aspect) fills the middle 60% of the height.
func SyntheticFrame(width, height int, card bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	bg := color.RGBA{R: 30, G: 30, B: 35, A: 255}
	fg := color.RGBA{R: 220, G: 210, B: 190, A: 255}

	ch := height * 6 / 10
	cw := ch * 7 / 10
	x0, y0 := (width-cw)/2, (height-ch)/2

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := bg
			if card && x >= x0 && x < x0+cw && y >= y0 && y < y0+ch {
				c = fg
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
