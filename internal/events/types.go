package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Camera and tracking events
	EventTypeCamerasChanged  EventType = "camera.devices_changed"
	EventTypeErrorChanged    EventType = "camera.error_changed"
	EventTypeScanningChanged EventType = "camera.scanning_changed"
	EventTypeCardDetected    EventType = "tracking.card_detected"
	EventTypeCaptureTaken    EventType = "capture.taken"

	// Recognition events
	EventTypeCardRecognized    EventType = "recognition.recognized"
	EventTypeRecognitionFailed EventType = "recognition.failed"

	// Catalog events
	EventTypeCatalogStatus EventType = "catalog.status"

	// Collection events
	EventTypeCollectionChanged EventType = "collection.changed"
)

// AllEventTypes lists every event type, in declaration order
var AllEventTypes = []EventType{
	EventTypeCamerasChanged,
	EventTypeErrorChanged,
	EventTypeScanningChanged,
	EventTypeCardDetected,
	EventTypeCaptureTaken,
	EventTypeCardRecognized,
	EventTypeRecognitionFailed,
	EventTypeCatalogStatus,
	EventTypeCollectionChanged,
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish queues an event for delivery (blocks while the queue is full)
	Publish(event Event)

	// Stop stops the event bus and drains remaining events
	Stop()
}

// NewCamerasChangedEvent creates a cameras changed event
func NewCamerasChangedEvent(labels []string, selectedID string) Event {
	return Event{
		Type:      EventTypeCamerasChanged,
		Source:    "scanner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"cameras":  labels,
			"count":    len(labels),
			"selected": selectedID,
		},
	}
}

// NewErrorChangedEvent creates an error changed event; an empty message clears the error
func NewErrorChangedEvent(message string) Event {
	return Event{
		Type:      EventTypeErrorChanged,
		Source:    "scanner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message": message,
		},
	}
}

// NewScanningChangedEvent creates a scanning changed event
func NewScanningChangedEvent(scanning bool) Event {
	return Event{
		Type:      EventTypeScanningChanged,
		Source:    "scanner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"scanning": scanning,
		},
	}
}

// NewCardDetectedEvent creates a card detected event
func NewCardDetectedEvent(x, y, width, height int) Event {
	return Event{
		Type:      EventTypeCardDetected,
		Source:    "tracking",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"x":      x,
			"y":      y,
			"width":  width,
			"height": height,
		},
	}
}

// NewCaptureTakenEvent creates a capture taken event
func NewCaptureTakenEvent(captureID string, width, height int, hasBounds bool) Event {
	return Event{
		Type:      EventTypeCaptureTaken,
		Source:    "scanner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"capture_id": captureID,
			"width":      width,
			"height":     height,
			"has_bounds": hasBounds,
		},
	}
}

// NewCardRecognizedEvent creates a card recognized event
func NewCardRecognizedEvent(captureID, cardID, cardName string, confidence int) Event {
	return Event{
		Type:      EventTypeCardRecognized,
		Source:    "recognition",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"capture_id": captureID,
			"card_id":    cardID,
			"card_name":  cardName,
			"confidence": confidence,
		},
	}
}

// NewRecognitionFailedEvent creates a recognition failed event
func NewRecognitionFailedEvent(captureID string, err error) Event {
	return Event{
		Type:      EventTypeRecognitionFailed,
		Source:    "recognition",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"capture_id": captureID,
			"error":      err.Error(),
		},
	}
}

// NewCatalogStatusEvent creates a catalog status event
func NewCatalogStatusEvent(status string, cardCount int) Event {
	return Event{
		Type:      EventTypeCatalogStatus,
		Source:    "catalog",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"status": status,
			"cards":  cardCount,
		},
	}
}

// NewCollectionChangedEvent creates a collection changed event
func NewCollectionChangedEvent(action, cardID string, quantity int) Event {
	return Event{
		Type:      EventTypeCollectionChanged,
		Source:    "collection",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"action":   action,
			"card_id":  cardID,
			"quantity": quantity,
		},
	}
}
