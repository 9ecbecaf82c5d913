package camera

import (
	"context"
	"image"
)

// RawDevice is a device as reported by the platform, before labelling
type RawDevice struct {
	DeviceID string
	Label    string
	GroupID  string
}

// Backend is the platform media layer: device listing and stream opening
type Backend interface {
	// Devices lists video inputs. Labels may be empty until permission is granted.
	Devices(ctx context.Context) ([]RawDevice, error)

	// Open acquires a live stream satisfying c
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live video source
type Stream interface {
	// ReadFrame returns the current frame. The image is owned by the caller.
	ReadFrame() (image.Image, error)

	// Close stops every track of the stream. Safe to call twice.
	Close() error
}
