package camera

import (
	"context"
	"errors"
	"testing"

	"jordanella.com/mtg-scanner-go/internal/logging"
)

func TestAugmentLabel(t *testing.T) {
	tests := []struct {
		raw   string
		index int
		want  string
	}{
		{"Back Camera", 0, "Back Camera (Rear)"},
		{"rear wide", 0, "rear wide (Rear)"},
		{"FaceTime HD Front", 1, "FaceTime HD Front (Front)"},
		{"user facing", 0, "user facing (Front)"},
		{"Environment cam", 0, "Environment cam (Environment)"},
		{"Back user cam", 0, "Back user cam (Rear)"},
		{"USB Webcam", 0, "USB Webcam"},
		{"", 0, "Camera 1"},
		{"", 2, "Camera 3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := AugmentLabel(tt.raw, tt.index); got != tt.want {
				t.Errorf("AugmentLabel(%q, %d) = %q, want %q", tt.raw, tt.index, got, tt.want)
			}
		})
	}
}

func TestDefaultDevice(t *testing.T) {
	tests := []struct {
		name    string
		devices []Descriptor
		want    string
	}{
		{"empty", nil, ""},
		{"first when no rear", []Descriptor{{DeviceID: "a", Label: "Webcam"}, {DeviceID: "b", Label: "Other"}}, "a"},
		{"rear preferred", []Descriptor{{DeviceID: "a", Label: "Front (Front)"}, {DeviceID: "b", Label: "Back (Rear)"}}, "b"},
		{"environment", []Descriptor{{DeviceID: "a", Label: "Cam"}, {DeviceID: "b", Label: "Env (Environment)"}}, "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultDevice(tt.devices); got != tt.want {
				t.Errorf("DefaultDevice = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectCameras(t *testing.T) {
	backend := NewSyntheticBackend()
	backend.SetDevices([]RawDevice{
		{DeviceID: "front", Label: "Front Camera"},
		{DeviceID: "back", Label: "Back Camera"},
		{DeviceID: "usb", Label: ""},
	})
	e := NewEnumerator(backend, logging.Discard("enum"))

	devices, err := e.DetectCameras(context.Background())
	if err != nil {
		t.Fatalf("DetectCameras: %v", err)
	}

	wantLabels := []string{"Front Camera (Front)", "Back Camera (Rear)", "Camera 3"}
	if len(devices) != len(wantLabels) {
		t.Fatalf("got %d devices, want %d", len(devices), len(wantLabels))
	}
	for i, want := range wantLabels {
		if devices[i].Label != want {
			t.Errorf("device %d label = %q, want %q", i, devices[i].Label, want)
		}
	}
	if e.Selected() != "back" {
		t.Errorf("selected = %q, want back", e.Selected())
	}
	if backend.OpenStreams() != 0 {
		t.Errorf("probe stream not released: %d open", backend.OpenStreams())
	}
}

func TestDetectWithoutProbe(t *testing.T) {
	backend := NewSyntheticBackend()
	backend.OpenErrs = []error{errors.New("NotReadableError: Could not start video source")}
	e := NewEnumerator(backend, logging.Discard("enum"))

	devices, err := e.Detect(context.Background(), false)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(devices) != 1 || devices[0].DeviceID != "synthetic-0" {
		t.Errorf("devices = %+v", devices)
	}
	if n := len(backend.Opened()); n != 0 {
		t.Errorf("probe stream opened %d times", n)
	}
}

func TestDetectCamerasKeepsExistingSelection(t *testing.T) {
	backend := NewSyntheticBackend()
	backend.SetDevices([]RawDevice{
		{DeviceID: "front", Label: "Front Camera"},
		{DeviceID: "back", Label: "Back Camera"},
	})
	e := NewEnumerator(backend, logging.Discard("enum"))
	e.Select("front")

	if _, err := e.DetectCameras(context.Background()); err != nil {
		t.Fatalf("DetectCameras: %v", err)
	}
	if e.Selected() != "front" {
		t.Errorf("selection overwritten: %q", e.Selected())
	}

	backend.SetDevices([]RawDevice{{DeviceID: "new", Label: "New"}})
	devices, _ := e.DetectCameras(context.Background())
	if len(devices) != 1 || e.Devices()[0].DeviceID != "new" {
		t.Errorf("list not replaced: %+v", e.Devices())
	}
}

func TestDetectCamerasFailures(t *testing.T) {
	t.Run("permission denied", func(t *testing.T) {
		backend := NewSyntheticBackend()
		backend.OpenErrs = []error{errors.New("NotAllowedError: Permission denied")}
		e := NewEnumerator(backend, logging.Discard("enum"))

		devices, err := e.DetectCameras(context.Background())
		if len(devices) != 0 {
			t.Errorf("expected empty list, got %d", len(devices))
		}
		var ce *Error
		if !errors.As(err, &ce) || ce.Kind != KindPermissionDenied {
			t.Fatalf("expected permission denied, got %v", err)
		}
		if ce.Message != DetectionFailedMessage {
			t.Errorf("message = %q", ce.Message)
		}
	})

	t.Run("no devices", func(t *testing.T) {
		backend := NewSyntheticBackend()
		backend.SetDevices(nil)
		e := NewEnumerator(backend, logging.Discard("enum"))

		devices, err := e.DetectCameras(context.Background())
		if len(devices) != 0 {
			t.Errorf("expected empty list, got %d", len(devices))
		}
		if KindOf(err) != KindDeviceNotFound {
			t.Errorf("kind = %s, want device_not_found", KindOf(err))
		}
	})
}
