package scanner

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"jordanella.com/mtg-scanner-go/internal/camera"
	"jordanella.com/mtg-scanner-go/internal/events"
	"jordanella.com/mtg-scanner-go/internal/logging"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

type recorder struct {
	mu       sync.Mutex
	cameras  [][]camera.Descriptor
	selected []string
	errs     []string
	scanning []bool
	detected []*vision.CardBounds
	captures []*vision.CaptureResult
}

func (r *recorder) CamerasChanged(c []camera.Descriptor, sel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cameras = append(r.cameras, c)
	r.selected = append(r.selected, sel)
}

func (r *recorder) ErrorChanged(m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, m)
}

func (r *recorder) ScanningChanged(s bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanning = append(r.scanning, s)
}

func (r *recorder) CardDetected(b *vision.CardBounds) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detected = append(r.detected, b)
}

func (r *recorder) CaptureTaken(res *vision.CaptureResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures = append(r.captures, res)
}

func (r *recorder) scanningEvents() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.scanning...)
}

func (r *recorder) errorEvents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errs...)
}

func (r *recorder) detectedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.detected {
		if b != nil {
			n++
		}
	}
	return n
}

func newTestController(t *testing.T, backend camera.Backend) (*Controller, *recorder) {
	t.Helper()
	c := New(Config{
		Backend:    backend,
		RetryDelay: 5 * time.Millisecond,
		Interval:   2 * time.Millisecond,
		Defaults:   DefaultOptions(),
		Logger:     logging.Discard("scanner"),
	})
	rec := &recorder{}
	c.AddListener(rec)
	t.Cleanup(c.Cleanup)
	return c, rec
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func equalBools(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStartTrackAndStop(t *testing.T) {
	backend := camera.NewSyntheticBackend()
	c, rec := newTestController(t, backend)

	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	if c.State() != StateStreaming || !c.Tracking() {
		t.Fatalf("state = %s tracking=%v", c.State(), c.Tracking())
	}

	info, ok := c.Session()
	if !ok || info.VideoSize != image.Pt(1280, 720) || info.Tier != camera.TierStandard {
		t.Errorf("session = %+v, %v", info, ok)
	}

	waitFor(t, func() bool { return rec.detectedCount() > 0 })
	b := c.Bounds()
	if b == nil {
		t.Fatal("expected locked bounds")
	}
	if a := b.Aspect(); a <= 0.5 || a >= 0.9 {
		t.Errorf("aspect = %.3f", a)
	}
	waitFor(t, func() bool { return !c.Overlay().IsBlank() })

	c.StopStream()

	if c.State() != StateIdle || c.Tracking() {
		t.Errorf("state after stop = %s tracking=%v", c.State(), c.Tracking())
	}
	if !c.Overlay().IsBlank() {
		t.Error("overlay not cleared")
	}
	if backend.OpenStreams() != 0 {
		t.Errorf("%d streams left open", backend.OpenStreams())
	}
	if c.Bounds() != nil {
		t.Error("bounds not cleared")
	}
	if got := rec.scanningEvents(); !equalBools(got, []bool{true, false}) {
		t.Errorf("scanning events = %v", got)
	}
}

func TestStartWhileStreamingStopsFirst(t *testing.T) {
	backend := camera.NewSyntheticBackend()
	c, rec := newTestController(t, backend)

	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("first StartStream: %v", err)
	}
	c.SetTier(camera.TierLow)
	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("second StartStream: %v", err)
	}

	if n := backend.OpenStreams(); n != 1 {
		t.Errorf("%d streams open, want 1", n)
	}
	if got := rec.scanningEvents(); !equalBools(got, []bool{true, false, true}) {
		t.Errorf("scanning events = %v", got)
	}
	if info, _ := c.Session(); info.Tier != camera.TierLow {
		t.Errorf("tier = %s, want low", info.Tier)
	}
}

func TestCaptureNotReady(t *testing.T) {
	c, _ := newTestController(t, camera.NewSyntheticBackend())

	if _, err := c.Capture(context.Background()); !errors.Is(err, camera.ErrCaptureNotReady) {
		t.Errorf("capture before start: %v", err)
	}

	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	c.Cleanup()

	if _, err := c.Capture(context.Background()); !errors.Is(err, camera.ErrCaptureNotReady) {
		t.Errorf("capture after cleanup: %v", err)
	}
}

func TestCaptureCarriesBoundsAndSnapshot(t *testing.T) {
	c, rec := newTestController(t, camera.NewSyntheticBackend())

	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	waitFor(t, func() bool { return c.Bounds() != nil })

	opts := c.Options()
	opts.Corrections = vision.Corrections{}
	res, err := c.CaptureWith(context.Background(), opts)
	if err != nil {
		t.Fatalf("CaptureWith: %v", err)
	}

	if res.Width != 1280 || res.Height != 720 {
		t.Errorf("capture size = %dx%d", res.Width, res.Height)
	}
	if res.Bounds == nil {
		t.Error("capture should carry the detected bounds")
	}
	if res.Applied != (vision.Corrections{}) {
		t.Errorf("applied = %+v, want none", res.Applied)
	}
	if c.Options().Corrections != vision.DefaultCorrections() {
		t.Error("CaptureWith must not change stored options")
	}

	rec.mu.Lock()
	captured := len(rec.captures)
	rec.mu.Unlock()
	if captured != 1 {
		t.Errorf("capture listener called %d times", captured)
	}
}

func TestCleanupIdempotent(t *testing.T) {
	c, rec := newTestController(t, camera.NewSyntheticBackend())

	c.Cleanup()
	c.Cleanup()

	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	c.Cleanup()
	c.Cleanup()

	if c.State() != StateIdle {
		t.Errorf("state = %s", c.State())
	}
	if c.Overlay() != nil {
		t.Error("overlay surface not released")
	}
	if got := rec.scanningEvents(); !equalBools(got, []bool{true, false}) {
		t.Errorf("scanning events = %v", got)
	}
}

func TestStartDowngradeUpdatesTier(t *testing.T) {
	backend := camera.NewSyntheticBackend()
	backend.OpenErrs = []error{errors.New("OverconstrainedError")}
	c, rec := newTestController(t, backend)
	c.SetTier(camera.TierHigh)

	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	if c.Options().Tier != camera.TierLow {
		t.Errorf("stored tier = %s, want low", c.Options().Tier)
	}
	info, _ := c.Session()
	if !info.Downgraded || info.VideoSize != image.Pt(640, 480) {
		t.Errorf("session = %+v", info)
	}

	errs := rec.errorEvents()
	want := []string{"", camera.MessageFor(camera.KindConstraintsNotSatisfiable), ""}
	if len(errs) != len(want) {
		t.Fatalf("error events = %q, want %q", errs, want)
	}
	for i := range want {
		if errs[i] != want[i] {
			t.Errorf("error event %d = %q, want %q", i, errs[i], want[i])
		}
	}
}

func TestStartFailureSurfacesMessage(t *testing.T) {
	backend := camera.NewSyntheticBackend()
	backend.OpenErrs = []error{errors.New("NotAllowedError: Permission denied")}
	c, rec := newTestController(t, backend)

	err := c.StartStream(context.Background())
	if camera.KindOf(err) != camera.KindPermissionDenied {
		t.Fatalf("kind = %s", camera.KindOf(err))
	}
	if c.State() != StateIdle {
		t.Errorf("state = %s", c.State())
	}

	errs := rec.errorEvents()
	if len(errs) == 0 || errs[len(errs)-1] != camera.MessageFor(camera.KindPermissionDenied) {
		t.Errorf("error events = %q", errs)
	}
	if len(rec.scanningEvents()) != 0 {
		t.Error("no scanning events expected on failure")
	}
	if stats := c.Reporter().Stats(); stats["category_camera"] != 1 {
		t.Errorf("reporter stats = %v", stats)
	}
}

func TestDetectCamerasNotifies(t *testing.T) {
	backend := camera.NewSyntheticBackend()
	backend.SetDevices([]camera.RawDevice{
		{DeviceID: "f", Label: "Front"},
		{DeviceID: "r", Label: "Rear"},
	})
	c, rec := newTestController(t, backend)

	devices, err := c.DetectCameras(context.Background())
	if err != nil {
		t.Fatalf("DetectCameras: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("devices = %v", devices)
	}
	if c.Options().DeviceID != "r" {
		t.Errorf("device = %q, want r", c.Options().DeviceID)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.cameras) != 1 || rec.selected[0] != "r" {
		t.Errorf("cameras events = %v selected = %v", rec.cameras, rec.selected)
	}
}

func TestDetectCamerasFailureNotifies(t *testing.T) {
	backend := camera.NewSyntheticBackend()
	backend.SetDevices(nil)
	c, rec := newTestController(t, backend)

	if _, err := c.DetectCameras(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	errs := rec.errorEvents()
	if len(errs) != 1 || errs[0] != camera.DetectionFailedMessage {
		t.Errorf("error events = %q", errs)
	}
}

func TestDisplaySizeDrivesOverlay(t *testing.T) {
	c, _ := newTestController(t, camera.NewSyntheticBackend())
	c.SetTier(camera.TierLow)

	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	waitFor(t, func() bool { return c.Overlay().Size() == image.Pt(640, 480) })

	c.SetDisplaySize(320, 240)
	waitFor(t, func() bool { return c.Overlay().Size() == image.Pt(320, 240) })
}

func TestRemoveListener(t *testing.T) {
	c := New(Config{Backend: camera.NewSyntheticBackend(), Logger: logging.Discard("scanner")})
	rec := &recorder{}
	remove := c.AddListener(rec)
	remove()

	c.listeners.each(errorNotice("ignored"))
	if len(rec.errorEvents()) != 0 {
		t.Error("removed listener still notified")
	}
}

func TestBusListenerPublishes(t *testing.T) {
	bus := events.NewEventBus(32)
	bus.SetDiagnostics(io.Discard)

	var mu sync.Mutex
	seen := map[events.EventType]int{}
	bus.SubscribeAll(func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen[e.Type]++
	})

	c, _ := newTestController(t, camera.NewSyntheticBackend())
	c.AddListener(NewBusListener(bus))

	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	waitFor(t, func() bool { return c.Bounds() != nil })
	if _, err := c.Capture(context.Background()); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	c.StopStream()
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	for _, et := range []events.EventType{
		events.EventTypeErrorChanged,
		events.EventTypeScanningChanged,
		events.EventTypeCardDetected,
		events.EventTypeCaptureTaken,
	} {
		if seen[et] == 0 {
			t.Errorf("no %s event published", et)
		}
	}
}

// within runs fn and fails the test if it has not returned in time
func within(t *testing.T, name string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("%s did not return", name)
	}
}

func TestListenerMayStopStream(t *testing.T) {
	t.Run("on error", func(t *testing.T) {
		backend := camera.NewSyntheticBackend()
		backend.OpenErrs = []error{errors.New("NotAllowedError: Permission denied")}
		c, rec := newTestController(t, backend)
		c.AddListener(ListenerFuncs{OnErrorChanged: func(msg string) {
			if msg != "" {
				c.StopStream()
			}
		}})

		within(t, "StartStream", func() {
			if err := c.StartStream(context.Background()); err == nil {
				t.Error("expected start failure")
			}
		})
		within(t, "Cleanup", c.Cleanup)

		errs := rec.errorEvents()
		if len(errs) == 0 || errs[len(errs)-1] != camera.MessageFor(camera.KindPermissionDenied) {
			t.Errorf("error events = %q", errs)
		}
	})

	t.Run("on scanning", func(t *testing.T) {
		c, rec := newTestController(t, camera.NewSyntheticBackend())
		c.AddListener(ListenerFuncs{OnScanningChanged: func(scanning bool) {
			if scanning {
				c.StopStream()
			}
		}})

		within(t, "StartStream", func() {
			if err := c.StartStream(context.Background()); err != nil {
				t.Errorf("StartStream: %v", err)
			}
		})
		if c.State() != StateIdle {
			t.Errorf("state = %s, want idle", c.State())
		}
		if got := rec.scanningEvents(); !equalBools(got, []bool{true, false}) {
			t.Errorf("scanning events = %v", got)
		}
	})
}

func TestTrackingFailureReportedOncePerStreak(t *testing.T) {
	backend := camera.NewSyntheticBackend()
	backend.FailAfter = 1
	c, _ := newTestController(t, backend)

	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	waitFor(t, func() bool { return c.Reporter().Stats()["category_tracking"] > 0 })
	time.Sleep(50 * time.Millisecond)

	if n := c.Reporter().Stats()["category_tracking"]; n != 1 {
		t.Errorf("tracking reports = %d, want 1", n)
	}

	c.StopStream()
	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	waitFor(t, func() bool { return c.Reporter().Stats()["category_tracking"] == 2 })
}

func TestFrameFollowsStream(t *testing.T) {
	c, _ := newTestController(t, camera.NewSyntheticBackend())
	if c.Frame() != nil {
		t.Fatal("frame before start")
	}

	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	frame := c.Frame()
	if frame == nil || frame.Bounds().Size() != image.Pt(1280, 720) {
		t.Fatalf("frame = %v", frame)
	}

	c.StopStream()
	if c.Frame() != nil {
		t.Error("frame kept after stop")
	}
}

func TestDetectCamerasWhileStreamingSkipsProbe(t *testing.T) {
	backend := camera.NewSyntheticBackend()
	c, _ := newTestController(t, backend)

	if err := c.StartStream(context.Background()); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	opened := len(backend.Opened())

	devices, err := c.DetectCameras(context.Background())
	if err != nil {
		t.Fatalf("DetectCameras: %v", err)
	}
	if len(devices) != 1 {
		t.Errorf("devices = %v", devices)
	}
	if n := len(backend.Opened()); n != opened {
		t.Errorf("probe opened while streaming: %d opens, want %d", n, opened)
	}
	if c.State() != StateStreaming {
		t.Errorf("state = %s", c.State())
	}
}
