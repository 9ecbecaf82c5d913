package scanner

import (
	"jordanella.com/mtg-scanner-go/internal/camera"
	"jordanella.com/mtg-scanner-go/internal/events"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

// BusListener republishes controller notifications on an event bus
type BusListener struct {
	bus events.EventBus
}

// NewBusListener creates a listener publishing to bus
func NewBusListener(bus events.EventBus) *BusListener {
	return &BusListener{bus: bus}
}

func (b *BusListener) CamerasChanged(cameras []camera.Descriptor, selectedID string) {
	labels := make([]string, len(cameras))
	for i, c := range cameras {
		labels[i] = c.Label
	}
	b.bus.Publish(events.NewCamerasChangedEvent(labels, selectedID))
}

func (b *BusListener) ErrorChanged(message string) {
	b.bus.Publish(events.NewErrorChangedEvent(message))
}

func (b *BusListener) ScanningChanged(scanning bool) {
	b.bus.Publish(events.NewScanningChangedEvent(scanning))
}

func (b *BusListener) CardDetected(bounds *vision.CardBounds) {
	if bounds == nil {
		b.bus.Publish(events.NewCardDetectedEvent(0, 0, 0, 0))
		return
	}
	b.bus.Publish(events.NewCardDetectedEvent(bounds.X, bounds.Y, bounds.Width, bounds.Height))
}

func (b *BusListener) CaptureTaken(result *vision.CaptureResult) {
	b.bus.Publish(events.NewCaptureTakenEvent(result.ID, result.Width, result.Height, result.Bounds != nil))
}
