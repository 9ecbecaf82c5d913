package overlay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"jordanella.com/mtg-scanner-go/internal/logging"
)

// DefaultInterval approximates a 60 Hz display refresh
const DefaultInterval = time.Second / 60

// IntervalForHz converts a refresh rate to a tick interval, defaulting to 60 Hz
func IntervalForHz(hz int) time.Duration {
	if hz <= 0 {
		return DefaultInterval
	}
	return time.Second / time.Duration(hz)
}

// CycleFunc is one tracking iteration. Errors and panics are logged and the
// loop keeps going.
type CycleFunc func(ctx context.Context, elapsed time.Duration) error

// Loop runs a CycleFunc on a ticker until stopped. Cycles never overlap.
type Loop struct {
	interval time.Duration
	cycle    CycleFunc
	logger   *logging.Logger

	onStop  func()
	onError func(error)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cycles   atomic.Uint64
	failures atomic.Uint64
}

// NewLoop creates a stopped loop
func NewLoop(interval time.Duration, cycle CycleFunc, logger *logging.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.NewLogger("TrackingLoop")
	}
	return &Loop{interval: interval, cycle: cycle, logger: logger}
}

// WithStopHook sets a function run by Stop after the goroutine has exited
func (l *Loop) WithStopHook(fn func()) *Loop {
	l.onStop = fn
	return l
}

// WithErrorHook sets a function called with every failed cycle's error
func (l *Loop) WithErrorHook(fn func(error)) *Loop {
	l.onError = fn
	return l
}

// Start launches the loop. It returns false if it is already running.
func (l *Loop) Start(parent context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel

	l.wg.Add(1)
	go l.run(ctx)
	return true
}

// Stop cancels the loop and returns once any in-flight cycle has finished
// and the stop hook has run. It must not be called from inside a cycle.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	l.wg.Wait()

	if l.onStop != nil {
		l.onStop()
	}
}

// Running reports whether the loop is active
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Cycles returns how many cycles have run
func (l *Loop) Cycles() uint64 {
	return l.cycles.Load()
}

// Failures returns how many cycles failed
func (l *Loop) Failures() uint64 {
	return l.failures.Load()
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()

	start := time.Now()
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.step(ctx, 0)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			l.step(ctx, now.Sub(start))
		}
	}
}

func (l *Loop) step(ctx context.Context, elapsed time.Duration) {
	err := l.safeCycle(ctx, elapsed)
	l.cycles.Add(1)
	if err == nil {
		return
	}

	n := l.failures.Add(1)
	// one log line per second of continuous failure at 60 Hz
	if n%60 == 1 {
		l.logger.WarnWithContext("Tracking cycle failed", logging.Fields{
			"error":    err,
			"failures": n,
		})
	}
	if l.onError != nil {
		l.onError(err)
	}
}

func (l *Loop) safeCycle(ctx context.Context, elapsed time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tracking cycle panic: %v", r)
		}
	}()
	return l.cycle(ctx, elapsed)
}
