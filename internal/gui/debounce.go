package gui

import (
	"sync"
	"time"
)

// SearchDebounce is how long the search box waits after the last keystroke
const SearchDebounce = 500 * time.Millisecond

// Debouncer runs the most recent call once input has been quiet for wait
type Debouncer struct {
	wait  time.Duration
	mu    sync.Mutex
	timer *time.Timer
	gen   int
}

// NewDebouncer creates a debouncer
func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Trigger schedules fn, replacing any call still waiting
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() {
		d.mu.Lock()
		current := gen == d.gen
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel drops any pending call
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
