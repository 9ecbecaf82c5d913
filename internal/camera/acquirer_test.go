package camera

import (
	"context"
	"errors"
	"testing"
	"time"

	"jordanella.com/mtg-scanner-go/internal/logging"
)

var errOverconstrained = errors.New("OverconstrainedError: width")

func newTestAcquirer(backend Backend) *Acquirer {
	return NewAcquirer(backend, 5*time.Millisecond, logging.Discard("acq"))
}

func TestStartAtRequestedTier(t *testing.T) {
	backend := NewSyntheticBackend()
	a := newTestAcquirer(backend)

	s, err := a.Start(context.Background(), Request{DeviceID: "cam", Tier: TierHigh})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	if s.Tier != TierHigh || s.Downgraded {
		t.Errorf("session tier = %s downgraded=%v", s.Tier, s.Downgraded)
	}
	frame, err := s.Stream.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame.Bounds().Dx() != 1920 || frame.Bounds().Dy() != 1080 {
		t.Errorf("frame size = %v", frame.Bounds())
	}
}

func TestStartDowngradesOnce(t *testing.T) {
	backend := NewSyntheticBackend()
	backend.OpenErrs = []error{errOverconstrained}
	a := newTestAcquirer(backend)

	s, err := a.Start(context.Background(), Request{Tier: TierUltra})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	opened := backend.Opened()
	if len(opened) != 2 {
		t.Fatalf("got %d attempts, want 2", len(opened))
	}
	if opened[0].Width != 3840 || opened[1].Width != 640 {
		t.Errorf("attempt widths = %d, %d", opened[0].Width, opened[1].Width)
	}
	if s.Tier != TierLow || s.Requested != TierUltra || !s.Downgraded {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestStartRetryFailsSurfacesError(t *testing.T) {
	backend := NewSyntheticBackend()
	backend.OpenErrs = []error{errOverconstrained, errOverconstrained}
	a := newTestAcquirer(backend)

	_, err := a.Start(context.Background(), Request{Tier: TierStandard})
	if KindOf(err) != KindConstraintsNotSatisfiable {
		t.Fatalf("kind = %s, want constraints", KindOf(err))
	}
	if n := len(backend.Opened()); n != 2 {
		t.Errorf("got %d attempts, want exactly 2", n)
	}
}

func TestStartNoRetryAtLowTier(t *testing.T) {
	backend := NewSyntheticBackend()
	backend.OpenErrs = []error{errOverconstrained}
	a := newTestAcquirer(backend)

	_, err := a.Start(context.Background(), Request{Tier: TierLow})
	if KindOf(err) != KindConstraintsNotSatisfiable {
		t.Fatalf("kind = %s", KindOf(err))
	}
	if n := len(backend.Opened()); n != 1 {
		t.Errorf("got %d attempts, want 1", n)
	}
}

func TestStartNoRetryOnOtherKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"permission", errors.New("permission denied"), KindPermissionDenied},
		{"busy", errors.New("device busy"), KindDeviceBusy},
		{"not found", errors.New("NotFoundError"), KindDeviceNotFound},
		{"unknown", errors.New("weird"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewSyntheticBackend()
			backend.OpenErrs = []error{tt.err}
			a := newTestAcquirer(backend)

			_, err := a.Start(context.Background(), Request{Tier: TierHigh})
			var ce *Error
			if !errors.As(err, &ce) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if ce.Kind != tt.want {
				t.Errorf("kind = %s, want %s", ce.Kind, tt.want)
			}
			if ce.Message != MessageFor(tt.want) {
				t.Errorf("message = %q", ce.Message)
			}
			if n := len(backend.Opened()); n != 1 {
				t.Errorf("got %d attempts, want 1", n)
			}
		})
	}
}

func TestStartRetryHonoursContext(t *testing.T) {
	backend := NewSyntheticBackend()
	backend.OpenErrs = []error{errOverconstrained}
	a := NewAcquirer(backend, time.Hour, logging.Discard("acq"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := a.Start(ctx, Request{Tier: TierHigh})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := len(backend.Opened()); n != 1 {
		t.Errorf("retry should not run after cancellation, got %d attempts", n)
	}
}

func TestDefaultRetryDelay(t *testing.T) {
	if d := NewAcquirer(NewSyntheticBackend(), 0, nil).RetryDelay(); d != time.Second {
		t.Errorf("default delay = %v, want 1s", d)
	}
}

func TestDowngradeHookRunsBeforeRetry(t *testing.T) {
	backend := NewSyntheticBackend()
	backend.OpenErrs = []error{errOverconstrained}

	var attemptsAtHook int
	a := newTestAcquirer(backend).WithDowngradeHook(func(err *Error) {
		attemptsAtHook = len(backend.Opened())
		if err.Kind != KindConstraintsNotSatisfiable {
			t.Errorf("hook kind = %s", err.Kind)
		}
	})

	s, err := a.Start(context.Background(), Request{Tier: TierHigh})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	if attemptsAtHook != 1 {
		t.Errorf("hook saw %d attempts, want 1", attemptsAtHook)
	}
}
