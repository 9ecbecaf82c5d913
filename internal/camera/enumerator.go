package camera

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"jordanella.com/mtg-scanner-go/internal/logging"
)

// AugmentLabel returns the display label for the device at zero-based index
func AugmentLabel(raw string, index int) string {
	label := raw
	if label == "" {
		label = fmt.Sprintf("Camera %d", index+1)
	}

	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "back"), strings.Contains(lower, "rear"):
		return label + " (Rear)"
	case strings.Contains(lower, "front"), strings.Contains(lower, "user"):
		return label + " (Front)"
	case strings.Contains(lower, "environment"):
		return label + " (Environment)"
	}
	return label
}

// DefaultDevice picks the first rear-facing device, else the first device.
// Returns "" for an empty list.
func DefaultDevice(devices []Descriptor) string {
	for _, d := range devices {
		lower := strings.ToLower(d.Label)
		if strings.Contains(lower, "rear") || strings.Contains(lower, "back") || strings.Contains(lower, "environment") {
			return d.DeviceID
		}
	}
	if len(devices) > 0 {
		return devices[0].DeviceID
	}
	return ""
}

// Enumerator discovers cameras and tracks the selected one
type Enumerator struct {
	backend Backend
	logger  *logging.Logger

	mu       sync.RWMutex
	devices  []Descriptor
	selected string
}

// NewEnumerator creates an enumerator over backend
func NewEnumerator(backend Backend, logger *logging.Logger) *Enumerator {
	if logger == nil {
		logger = logging.NewLogger("Enumerator")
	}
	return &Enumerator{backend: backend, logger: logger}
}

// DetectCameras opens and releases a probe stream so labels are populated,
// then lists video inputs. The stored list is replaced and a default is
// selected only when nothing is selected yet. On failure the stored state is
// left untouched and an *Error is returned.
func (e *Enumerator) DetectCameras(ctx context.Context) ([]Descriptor, error) {
	return e.Detect(ctx, true)
}

// Detect is DetectCameras with the probe stream optional. Callers already
// holding an open stream skip it: access is granted and the device is busy.
func (e *Enumerator) Detect(ctx context.Context, probe bool) ([]Descriptor, error) {
	if probe {
		stream, err := e.backend.Open(ctx, Constraints{})
		if err != nil {
			return nil, e.detectionError(err)
		}
		if cerr := stream.Close(); cerr != nil {
			e.logger.WarnWithContext("Failed to release probe stream", logging.Fields{"error": cerr})
		}
	}

	raw, err := e.backend.Devices(ctx)
	if err != nil {
		return nil, e.detectionError(err)
	}
	if len(raw) == 0 {
		return nil, e.detectionError(NewError(KindDeviceNotFound, fmt.Errorf("no video inputs")))
	}

	devices := make([]Descriptor, len(raw))
	for i, d := range raw {
		devices[i] = Descriptor{
			DeviceID: d.DeviceID,
			Label:    AugmentLabel(d.Label, i),
			GroupID:  d.GroupID,
		}
	}

	e.mu.Lock()
	e.devices = devices
	if e.selected == "" {
		e.selected = DefaultDevice(devices)
	}
	selected := e.selected
	e.mu.Unlock()

	e.logger.InfoWithContext("Cameras detected", logging.Fields{
		"count":    len(devices),
		"selected": selected,
	})

	out := make([]Descriptor, len(devices))
	copy(out, devices)
	return out, nil
}

func (e *Enumerator) detectionError(err error) *Error {
	kind := KindOf(err)
	e.logger.ErrorWithContext("Camera detection failed", err, logging.Fields{"kind": kind.String()})
	return &Error{Kind: kind, Message: DetectionFailedMessage, Err: err}
}

// Devices returns the last enumerated list
func (e *Enumerator) Devices() []Descriptor {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Descriptor, len(e.devices))
	copy(out, e.devices)
	return out
}

// Selected returns the selected device id, or ""
func (e *Enumerator) Selected() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selected
}

// Select sets the selected device id. "" clears the selection.
func (e *Enumerator) Select(deviceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = deviceID
}
