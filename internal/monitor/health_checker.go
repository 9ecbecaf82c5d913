package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Check probes one dependency; a nil error means healthy
type Check func(ctx context.Context) error

// UnhealthyCallback is called when a check starts failing
type UnhealthyCallback func(name string, err error)

// CheckResult is the outcome of the most recent run of one check
type CheckResult struct {
	Healthy   bool          `json:"healthy"`
	Optional  bool          `json:"optional,omitempty"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checkedAt"`
	Duration  time.Duration `json:"duration"`
}

// Report summarizes every registered check. Optional checks never make
// the report unhealthy.
type Report struct {
	Healthy bool                   `json:"healthy"`
	Checks  map[string]CheckResult `json:"checks"`
}

// HealthChecker runs named checks on demand or periodically
type HealthChecker struct {
	mu            sync.RWMutex
	checks        map[string]Check
	optional      map[string]bool
	last          map[string]CheckResult
	checkTimeout  time.Duration
	checkInterval time.Duration
	onUnhealthy   UnhealthyCallback

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHealthChecker creates a health checker with no checks
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:        make(map[string]Check),
		optional:      make(map[string]bool),
		last:          make(map[string]CheckResult),
		checkTimeout:  5 * time.Second,
		checkInterval: 30 * time.Second,
	}
}

// WithUnhealthyCallback sets the callback for checks that turn unhealthy
func (hc *HealthChecker) WithUnhealthyCallback(callback UnhealthyCallback) *HealthChecker {
	hc.onUnhealthy = callback
	return hc
}

// WithCheckInterval sets the period used by Start
func (hc *HealthChecker) WithCheckInterval(interval time.Duration) *HealthChecker {
	hc.checkInterval = interval
	return hc
}

// WithCheckTimeout bounds each individual check
func (hc *HealthChecker) WithCheckTimeout(timeout time.Duration) *HealthChecker {
	hc.checkTimeout = timeout
	return hc
}

// Register adds or replaces a named check
func (hc *HealthChecker) Register(name string, check Check) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
	delete(hc.optional, name)
}

// RegisterOptional adds a check that is reported but not required
func (hc *HealthChecker) RegisterOptional(name string, check Check) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
	hc.optional[name] = true
}

// Run executes every check once and returns the combined report
func (hc *HealthChecker) Run(ctx context.Context) Report {
	hc.mu.RLock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(hc.checks))
	optional := make(map[string]bool, len(hc.optional))
	for k, v := range hc.checks {
		checks[k] = v
		optional[k] = hc.optional[k]
	}
	hc.mu.RUnlock()
	sort.Strings(names)

	report := Report{Healthy: true, Checks: make(map[string]CheckResult, len(names))}
	for _, name := range names {
		result := hc.runOne(ctx, checks[name])
		result.Optional = optional[name]
		report.Checks[name] = result
		if !result.Healthy && !result.Optional {
			report.Healthy = false
		}

		hc.mu.Lock()
		prev, seen := hc.last[name]
		hc.last[name] = result
		hc.mu.Unlock()

		// only transitions are reported
		if !result.Healthy && (!seen || prev.Healthy) && hc.onUnhealthy != nil {
			hc.onUnhealthy(name, fmt.Errorf("%s", result.Error))
		}
	}
	return report
}

func (hc *HealthChecker) runOne(ctx context.Context, check Check) (result CheckResult) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, hc.checkTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			result = CheckResult{Error: fmt.Sprintf("check panicked: %v", r), CheckedAt: start, Duration: time.Since(start)}
		}
	}()

	err := check(ctx)
	result = CheckResult{Healthy: err == nil, CheckedAt: start, Duration: time.Since(start)}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// Last returns the most recent report without running checks
func (hc *HealthChecker) Last() Report {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	report := Report{Healthy: true, Checks: make(map[string]CheckResult, len(hc.last))}
	for name, result := range hc.last {
		report.Checks[name] = result
		if !result.Healthy && !result.Optional {
			report.Healthy = false
		}
	}
	return report
}

// Start runs the checks every interval until Stop
func (hc *HealthChecker) Start() {
	hc.mu.Lock()
	if hc.cancel != nil {
		hc.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	hc.cancel = cancel
	hc.mu.Unlock()

	hc.wg.Add(1)
	go func() {
		defer hc.wg.Done()

		ticker := time.NewTicker(hc.checkInterval)
		defer ticker.Stop()

		hc.Run(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hc.Run(ctx)
			}
		}
	}()
}

// Stop stops periodic checking
func (hc *HealthChecker) Stop() {
	hc.mu.Lock()
	cancel := hc.cancel
	hc.cancel = nil
	hc.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	hc.wg.Wait()
}
