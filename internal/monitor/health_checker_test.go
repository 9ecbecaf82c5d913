package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRunReportsEveryCheck(t *testing.T) {
	hc := NewHealthChecker()
	hc.Register("database", func(ctx context.Context) error { return nil })
	hc.Register("camera", func(ctx context.Context) error { return errors.New("device lost") })

	report := hc.Run(context.Background())
	if report.Healthy {
		t.Error("report should be unhealthy")
	}
	if !report.Checks["database"].Healthy {
		t.Error("database should be healthy")
	}
	if got := report.Checks["camera"].Error; got != "device lost" {
		t.Errorf("camera error = %q", got)
	}

	last := hc.Last()
	if last.Healthy || len(last.Checks) != 2 {
		t.Errorf("Last() = %+v", last)
	}
}

func TestOptionalChecksDoNotFailReport(t *testing.T) {
	hc := NewHealthChecker()
	hc.Register("database", func(ctx context.Context) error { return nil })
	hc.RegisterOptional("catalog", func(ctx context.Context) error { return errors.New("offline") })

	report := hc.Run(context.Background())
	if !report.Healthy {
		t.Error("optional failure made the report unhealthy")
	}
	if c := report.Checks["catalog"]; c.Healthy || !c.Optional {
		t.Errorf("catalog result = %+v", c)
	}

	// re-registering as required changes the outcome
	hc.Register("catalog", func(ctx context.Context) error { return errors.New("offline") })
	if hc.Run(context.Background()).Healthy {
		t.Error("required failure should make the report unhealthy")
	}
}

func TestUnhealthyCallbackOnTransitionsOnly(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	failing := true

	hc := NewHealthChecker().WithUnhealthyCallback(func(name string, err error) {
		mu.Lock()
		calls = append(calls, name+": "+err.Error())
		mu.Unlock()
	})
	hc.Register("camera", func(ctx context.Context) error {
		if failing {
			return errors.New("stalled")
		}
		return nil
	})

	ctx := context.Background()
	hc.Run(ctx)
	hc.Run(ctx)
	failing = false
	hc.Run(ctx)
	failing = true
	hc.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 2 || calls[0] != "camera: stalled" {
		t.Errorf("calls = %v, want two transitions", calls)
	}
}

func TestCheckTimeoutAndPanic(t *testing.T) {
	hc := NewHealthChecker().WithCheckTimeout(20 * time.Millisecond)
	hc.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	hc.Register("broken", func(ctx context.Context) error {
		panic("boom")
	})

	report := hc.Run(context.Background())
	if report.Checks["slow"].Healthy {
		t.Error("slow check should time out")
	}
	if report.Checks["broken"].Healthy || report.Checks["broken"].Error == "" {
		t.Errorf("broken = %+v", report.Checks["broken"])
	}
}

func TestStartStop(t *testing.T) {
	var mu sync.Mutex
	runs := 0

	hc := NewHealthChecker().WithCheckInterval(10 * time.Millisecond)
	hc.Register("tick", func(ctx context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil
	})

	hc.Start()
	hc.Start()
	time.Sleep(60 * time.Millisecond)
	hc.Stop()

	mu.Lock()
	n := runs
	mu.Unlock()
	if n < 2 {
		t.Errorf("runs = %d, want periodic execution", n)
	}

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if runs != n {
		t.Error("checks kept running after Stop")
	}
}
