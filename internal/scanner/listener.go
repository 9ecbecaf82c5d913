package scanner

import (
	"sync"

	"jordanella.com/mtg-scanner-go/internal/camera"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

// Listener receives controller notifications. Calls arrive from whichever
// goroutine caused the change, after the controller has released its locks,
// so CamerasChanged, ErrorChanged and ScanningChanged may start or stop the
// stream. CardDetected runs on the tracking goroutine, so it must not call
// StopStream or Cleanup synchronously.
type Listener interface {
	// CamerasChanged reports a fresh device list and the selected id
	CamerasChanged(cameras []camera.Descriptor, selectedID string)

	// ErrorChanged reports a user-facing message; "" clears it
	ErrorChanged(message string)

	// ScanningChanged reports whether tracking is active
	ScanningChanged(scanning bool)

	// CardDetected reports new bounds in native video pixels, or nil when
	// a previously detected card is lost
	CardDetected(bounds *vision.CardBounds)
}

// CaptureListener is optionally implemented by listeners that want captures
type CaptureListener interface {
	CaptureTaken(result *vision.CaptureResult)
}

// ListenerFuncs adapts plain functions to Listener; nil fields are skipped
type ListenerFuncs struct {
	OnCamerasChanged  func([]camera.Descriptor, string)
	OnErrorChanged    func(string)
	OnScanningChanged func(bool)
	OnCardDetected    func(*vision.CardBounds)
	OnCaptureTaken    func(*vision.CaptureResult)
}

func (f ListenerFuncs) CamerasChanged(cameras []camera.Descriptor, selectedID string) {
	if f.OnCamerasChanged != nil {
		f.OnCamerasChanged(cameras, selectedID)
	}
}

func (f ListenerFuncs) ErrorChanged(message string) {
	if f.OnErrorChanged != nil {
		f.OnErrorChanged(message)
	}
}

func (f ListenerFuncs) ScanningChanged(scanning bool) {
	if f.OnScanningChanged != nil {
		f.OnScanningChanged(scanning)
	}
}

func (f ListenerFuncs) CardDetected(bounds *vision.CardBounds) {
	if f.OnCardDetected != nil {
		f.OnCardDetected(bounds)
	}
}

func (f ListenerFuncs) CaptureTaken(result *vision.CaptureResult) {
	if f.OnCaptureTaken != nil {
		f.OnCaptureTaken(result)
	}
}

// listenerSet is a copy-on-notify registry
type listenerSet struct {
	mu     sync.Mutex
	nextID int
	items  map[int]Listener
	order  []int
}

func (s *listenerSet) add(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.items == nil {
		s.items = make(map[int]Listener)
	}
	id := s.nextID
	s.nextID++
	s.items[id] = l
	s.order = append(s.order, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.items, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
}

func (s *listenerSet) snapshot() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

func (s *listenerSet) each(fn func(Listener)) {
	for _, l := range s.snapshot() {
		fn(l)
	}
}
