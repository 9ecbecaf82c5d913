package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/prop"

	"jordanella.com/mtg-scanner-go/internal/logging"
)

// PionBackend reads local cameras through pion/mediadevices. A camera driver
// must be registered by the binary, e.g. by importing
// github.com/pion/mediadevices/pkg/driver/camera.
type PionBackend struct {
	logger *logging.Logger
}

// NewPionBackend creates the mediadevices backend
func NewPionBackend(logger *logging.Logger) *PionBackend {
	if logger == nil {
		logger = logging.NewLogger("PionBackend")
	}
	return &PionBackend{logger: logger}
}

// Devices lists video inputs. mediadevices exposes no group id.
func (b *PionBackend) Devices(ctx context.Context) ([]RawDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return videoInputs(), nil
}

func videoInputs() []RawDevice {
	var devices []RawDevice
	for _, info := range mediadevices.EnumerateDevices() {
		if info.Kind != mediadevices.VideoInput {
			continue
		}
		devices = append(devices, RawDevice{
			DeviceID: info.DeviceID,
			Label:    info.Label,
		})
	}
	return devices
}

// openFailure types a GetUserMedia error. mediadevices reports a missing
// camera with the same "fits the constraints" error as an unsatisfiable
// resolution, so the device list decides which one it was.
func openFailure(err error, deviceID string, devices []RawDevice) error {
	if len(devices) == 0 {
		return NewError(KindDeviceNotFound, err)
	}
	if deviceID == "" {
		return err
	}
	for _, d := range devices {
		if d.DeviceID == deviceID {
			return err
		}
	}
	return NewError(KindDeviceNotFound, err)
}

// Open calls GetUserMedia. Width, height and device id map onto
// mediadevices constraints; facing and continuous-mode hints have no
// counterpart and are only logged.
func (b *PionBackend) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.logger.DebugWithContext("Opening media stream", logging.Fields{
		"device":       c.DeviceID,
		"facing":       c.FacingMode,
		"width":        c.Width,
		"height":       c.Height,
		"focus":        c.FocusMode,
		"exposure":     c.ExposureMode,
		"whiteBalance": c.WhiteBalanceMode,
	})

	ms, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(mtc *mediadevices.MediaTrackConstraints) {
			if c.Width > 0 {
				mtc.Width = prop.Int(c.Width)
			}
			if c.Height > 0 {
				mtc.Height = prop.Int(c.Height)
			}
			if c.DeviceID != "" {
				mtc.DeviceID = prop.StringExact(c.DeviceID)
			}
		},
	})
	if err != nil {
		return nil, openFailure(err, c.DeviceID, videoInputs())
	}

	tracks := ms.GetVideoTracks()
	if len(tracks) == 0 {
		closeTracks(ms)
		return nil, NewError(KindDeviceNotFound, errors.New("stream has no video track"))
	}

	vt, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		closeTracks(ms)
		return nil, fmt.Errorf("unexpected video track type %T", tracks[0])
	}

	return &pionStream{ms: ms, reader: vt.NewReader(false)}, nil
}

type frameReader interface {
	Read() (image.Image, func(), error)
}

type pionStream struct {
	ms     mediadevices.MediaStream
	reader frameReader

	mu     sync.Mutex
	closed bool
}

// ReadFrame copies the driver frame into an RGBA image before releasing it
func (s *pionStream) ReadFrame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("stream closed")
	}

	img, release, err := s.reader.Read()
	if err != nil {
		return nil, err
	}
	defer release()

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba, nil
}

func (s *pionStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	closeTracks(s.ms)
	return nil
}

func closeTracks(ms mediadevices.MediaStream) {
	for _, track := range ms.GetTracks() {
		track.Close()
	}
}
