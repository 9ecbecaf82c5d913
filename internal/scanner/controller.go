package scanner

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"jordanella.com/mtg-scanner-go/internal/camera"
	"jordanella.com/mtg-scanner-go/internal/logging"
	"jordanella.com/mtg-scanner-go/internal/overlay"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

// State is the controller's lifecycle state
type State int

const (
	StateIdle State = iota
	StateStreaming
)

func (s State) String() string {
	if s == StateStreaming {
		return "streaming"
	}
	return "idle"
}

// Options are the presentation-controlled settings. Setters replace single
// fields; StartStream and Capture work from a snapshot taken when called.
type Options struct {
	DeviceID    string
	Tier        camera.Tier
	Corrections vision.Corrections
	Style       overlay.Style
	// Display is the overlay size; zero means the native video size
	Display     image.Point
	JPEGQuality int
}

// DefaultOptions returns standard tier, every correction and the guided frame
func DefaultOptions() Options {
	return Options{
		Tier:        camera.DefaultTier,
		Corrections: vision.DefaultCorrections(),
		Style:       overlay.DefaultStyle,
		JPEGQuality: vision.DefaultJPEGQuality,
	}
}

// Config wires a Controller
type Config struct {
	Backend    camera.Backend
	RetryDelay time.Duration
	Interval   time.Duration
	Detector   *vision.DetectorConfig
	Defaults   Options
	Logger     *logging.Logger
	Reporter   *logging.ErrorReporter
}

// SessionInfo describes the active stream
type SessionInfo struct {
	DeviceID   string      `json:"deviceId"`
	Tier       camera.Tier `json:"tier"`
	Requested  camera.Tier `json:"requested"`
	Downgraded bool        `json:"downgraded"`
	VideoSize  image.Point `json:"videoSize"`
	StartedAt  time.Time   `json:"startedAt"`
}

// Controller owns the camera session, the tracking loop and the overlay
type Controller struct {
	enumerator *camera.Enumerator
	acquirer   *camera.Acquirer
	detector   *vision.DetectorConfig
	interval   time.Duration
	renderers  map[overlay.Style]*overlay.Renderer
	logger     *logging.Logger
	reporter   *logging.ErrorReporter
	listeners  listenerSet

	// serializes DetectCameras, StartStream, StopStream and Cleanup
	opMu sync.Mutex
	// notifications raised under opMu, delivered once it is released
	pending []func(Listener)

	mu         sync.RWMutex
	opts       Options
	state      State
	tracked    bool
	session    *camera.Session
	videoSize  image.Point
	loop       *overlay.Loop
	surface    *overlay.Surface
	frame      image.Image
	bounds     *vision.CardBounds
	lastBounds *vision.CardBounds
	failStreak int
}

// New creates an idle controller
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("Scanner")
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = logging.NewErrorReporter(logger.Named("ErrorReporter"), 0)
	}
	detector := cfg.Detector
	if detector == nil {
		detector = vision.DefaultDetectorConfig()
	}

	opts := cfg.Defaults
	if !opts.Tier.Valid() {
		opts.Tier = camera.DefaultTier
	}
	if opts.Style == "" {
		opts.Style = overlay.DefaultStyle
	}

	c := &Controller{
		enumerator: camera.NewEnumerator(cfg.Backend, logger.Named("Enumerator")),
		detector:   detector,
		interval:   cfg.Interval,
		renderers: map[overlay.Style]*overlay.Renderer{
			overlay.StyleGuidedFrame: overlay.NewRenderer(overlay.StyleGuidedFrame),
			overlay.StyleGrid:        overlay.NewRenderer(overlay.StyleGrid),
		},
		logger:   logger,
		reporter: reporter,
		opts:     opts,
	}
	c.acquirer = camera.NewAcquirer(cfg.Backend, cfg.RetryDelay, logger.Named("Acquirer")).
		WithDowngradeHook(func(err *camera.Error) { c.queue(errorNotice(err.Message)) })

	if opts.DeviceID != "" {
		c.enumerator.Select(opts.DeviceID)
	}
	return c
}

// AddListener registers l and returns a function that removes it
func (c *Controller) AddListener(l Listener) (remove func()) {
	return c.listeners.add(l)
}

// Initialize creates the overlay surface. Safe to call repeatedly.
func (c *Controller) Initialize() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.surface == nil {
		c.surface = overlay.NewSurface()
	}
}

// Overlay returns the overlay surface, nil before Initialize or after Cleanup
func (c *Controller) Overlay() *overlay.Surface {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.surface
}

// Options returns the current settings
func (c *Controller) Options() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts
}

// SetDevice selects a device id for the next StartStream
func (c *Controller) SetDevice(deviceID string) {
	c.mu.Lock()
	c.opts.DeviceID = deviceID
	c.mu.Unlock()
	c.enumerator.Select(deviceID)
}

// SetTier sets the resolution tier for the next StartStream
func (c *Controller) SetTier(tier camera.Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Tier = tier
}

// SetCorrections sets the filters used by the next Capture
func (c *Controller) SetCorrections(corr vision.Corrections) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Corrections = corr
}

// SetStyle switches the overlay style; it applies from the next cycle
func (c *Controller) SetStyle(style overlay.Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Style = style
}

// SetDisplaySize sets the overlay size; it applies from the next cycle
func (c *Controller) SetDisplaySize(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Display = image.Pt(w, h)
}

// SetJPEGQuality sets the encoder quality used by the next Capture
func (c *Controller) SetJPEGQuality(q int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.JPEGQuality = q
}

// State returns the lifecycle state
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Tracking reports whether the tracking loop is running
func (c *Controller) Tracking() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracked
}

// Bounds returns the card currently locked, or nil
func (c *Controller) Bounds() *vision.CardBounds {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyBounds(c.bounds)
}

// Session describes the active stream; ok is false when idle
func (c *Controller) Session() (info SessionInfo, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return SessionInfo{}, false
	}
	return SessionInfo{
		DeviceID:   c.session.DeviceID,
		Tier:       c.session.Tier,
		Requested:  c.session.Requested,
		Downgraded: c.session.Downgraded,
		VideoSize:  c.videoSize,
		StartedAt:  c.session.StartedAt,
	}, true
}

// Frame returns the most recent frame read by the tracking loop, or nil when
// idle. The image is not modified after it is returned.
func (c *Controller) Frame() image.Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frame
}

// Devices returns the last enumerated cameras
func (c *Controller) Devices() []camera.Descriptor {
	return c.enumerator.Devices()
}

// Reporter exposes the error history
func (c *Controller) Reporter() *logging.ErrorReporter {
	return c.reporter
}

// DetectCameras enumerates devices and notifies listeners with the list or
// the failure message. While streaming the permission probe is skipped
// because the open session already holds the device.
func (c *Controller) DetectCameras(ctx context.Context) ([]camera.Descriptor, error) {
	c.opMu.Lock()
	defer c.unlockAndNotify()

	c.mu.RLock()
	streaming := c.session != nil
	c.mu.RUnlock()

	devices, err := c.enumerator.Detect(ctx, !streaming)
	if err != nil {
		c.queue(c.fail("Camera detection failed", err))
		return nil, err
	}

	selected := c.enumerator.Selected()
	c.mu.Lock()
	if c.opts.DeviceID == "" {
		c.opts.DeviceID = selected
	}
	c.mu.Unlock()

	c.queue(func(l Listener) { l.CamerasChanged(devices, selected) })
	return devices, nil
}

// StartStream starts streaming with the current options
func (c *Controller) StartStream(ctx context.Context) error {
	return c.StartStreamWith(ctx, c.Options())
}

// StartStreamWith acquires a stream for opts, waits for the first frame and
// starts tracking. An active stream is stopped first.
func (c *Controller) StartStreamWith(ctx context.Context, opts Options) error {
	c.opMu.Lock()
	defer c.unlockAndNotify()

	c.Initialize()
	c.stopLocked()
	c.queue(errorNotice(""))

	sess, err := c.acquirer.Start(ctx, camera.Request{DeviceID: opts.DeviceID, Tier: opts.Tier})
	if err != nil {
		c.queue(c.fail("Stream acquisition failed", err))
		return err
	}

	if sess.Downgraded {
		c.mu.Lock()
		c.opts.Tier = sess.Tier
		c.mu.Unlock()
		c.queue(errorNotice(""))
	}

	// first frame stands in for loaded metadata
	frame, err := sess.Stream.ReadFrame()
	if err != nil || frame == nil || frame.Bounds().Empty() {
		sess.Close()
		if err == nil {
			err = vision.ErrEmptyFrame
		}
		werr := camera.Wrap(fmt.Errorf("stream produced no frame: %w", err))
		c.queue(c.fail("Stream metadata unavailable", werr))
		return werr
	}

	c.mu.Lock()
	c.session = sess
	c.videoSize = frame.Bounds().Size()
	c.frame = frame
	c.failStreak = 0
	c.state = StateStreaming
	surface := c.surface
	loop := overlay.NewLoop(c.interval, c.trackingCycle(sess.Stream, surface), c.logger.Named("TrackingLoop")).
		WithStopHook(surface.Clear).
		WithErrorHook(c.reportTrackingFailure)
	c.loop = loop
	c.tracked = true
	c.mu.Unlock()

	loop.Start(context.Background())

	c.logger.InfoWithContext("Scanning started", logging.Fields{
		"device":     sess.DeviceID,
		"tier":       string(sess.Tier),
		"downgraded": sess.Downgraded,
		"video":      fmt.Sprintf("%dx%d", frame.Bounds().Dx(), frame.Bounds().Dy()),
	})
	c.queue(func(l Listener) { l.ScanningChanged(true) })
	return nil
}

// StopStream stops tracking, then the stream, then clears the overlay.
// It returns after the tracking goroutine has exited.
func (c *Controller) StopStream() {
	c.opMu.Lock()
	defer c.unlockAndNotify()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	c.mu.Lock()
	loop := c.loop
	sess := c.session
	surface := c.surface
	wasStreaming := c.state == StateStreaming
	c.loop = nil
	c.session = nil
	c.state = StateIdle
	c.tracked = false
	c.videoSize = image.Point{}
	c.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}

	// cleared after Stop so a cycle in flight cannot restore them
	c.mu.Lock()
	c.frame = nil
	c.bounds = nil
	c.lastBounds = nil
	c.mu.Unlock()

	if sess != nil {
		if err := sess.Close(); err != nil {
			c.logger.Warn(fmt.Sprintf("Failed to close stream: %v", err))
		}
	}
	if surface != nil {
		surface.Clear()
	}

	if wasStreaming {
		c.logger.Info("Scanning stopped")
		c.queue(func(l Listener) { l.ScanningChanged(false) })
	}
}

// Cleanup stops any stream and releases the overlay surface. Idempotent.
func (c *Controller) Cleanup() {
	c.opMu.Lock()
	defer c.unlockAndNotify()

	c.stopLocked()

	c.mu.Lock()
	c.surface = nil
	c.mu.Unlock()
}

// Capture grabs a corrected still with the current options
func (c *Controller) Capture(ctx context.Context) (*vision.CaptureResult, error) {
	return c.CaptureWith(ctx, c.Options())
}

// CaptureWith grabs a full-resolution frame from the live stream, applies
// opts.Corrections and attaches the most recent detected bounds. Without a
// stream or surface it fails with camera.ErrCaptureNotReady.
func (c *Controller) CaptureWith(ctx context.Context, opts Options) (*vision.CaptureResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	sess := c.session
	surface := c.surface
	bounds := copyBounds(c.lastBounds)
	c.mu.RUnlock()

	if sess == nil || surface == nil {
		return nil, camera.ErrCaptureNotReady
	}

	frame, err := sess.Stream.ReadFrame()
	if err != nil {
		c.reporter.Report(logging.ErrorCategoryCapture, logging.ErrorSeverityMedium, "Controller", "Capture frame read failed", err, nil)
		return nil, camera.NewError(camera.KindCaptureNotReady, err)
	}

	result, err := vision.Capture(frame, bounds, vision.CaptureOptions{
		Corrections: opts.Corrections,
		Quality:     opts.JPEGQuality,
	})
	if err != nil {
		c.reporter.Report(logging.ErrorCategoryCapture, logging.ErrorSeverityMedium, "Controller", "Capture failed", err, nil)
		return nil, fmt.Errorf("capture: %w", err)
	}

	c.logger.InfoWithContext("Frame captured", logging.Fields{
		"capture_id": result.ID,
		"size":       fmt.Sprintf("%dx%d", result.Width, result.Height),
		"bounds":     result.Bounds != nil,
		"brightness": result.Applied.Brightness,
		"glare":      result.Applied.GlareReduction,
		"sharpen":    result.Applied.EdgeEnhancement,
	})

	c.listeners.each(func(l Listener) {
		if cl, ok := l.(CaptureListener); ok {
			cl.CaptureTaken(result)
		}
	})
	return result, nil
}

// trackingCycle reads one frame, updates bounds and redraws the overlay
func (c *Controller) trackingCycle(stream camera.Stream, surface *overlay.Surface) overlay.CycleFunc {
	return func(ctx context.Context, elapsed time.Duration) error {
		frame, err := stream.ReadFrame()
		if err != nil {
			return camera.NewError(camera.KindDetectionTransientFailure, err)
		}

		b, found, err := c.detector.Detect(frame)
		if err != nil {
			return camera.NewError(camera.KindDetectionTransientFailure, err)
		}
		if ctx.Err() != nil {
			return nil
		}

		c.mu.Lock()
		c.frame = frame
		streak := c.failStreak
		c.failStreak = 0
		c.mu.Unlock()
		if streak > 0 {
			c.logger.InfoWithContext("Tracking recovered", logging.Fields{"failures": streak})
		}

		current, changed := c.updateBounds(b, found)
		if changed {
			c.listeners.each(func(l Listener) { l.CardDetected(copyBounds(current)) })
		}

		c.mu.RLock()
		style := c.opts.Style
		display := c.opts.Display
		c.mu.RUnlock()

		video := frame.Bounds().Size()
		if display.X <= 0 || display.Y <= 0 {
			display = video
		}

		renderer, ok := c.renderers[style]
		if !ok {
			renderer = c.renderers[overlay.StyleGuidedFrame]
		}
		renderer.Render(surface, display, overlay.Scene{
			Bounds:    current,
			VideoSize: video,
			Elapsed:   elapsed,
		})
		return nil
	}
}

// updateBounds stores a detection result and reports whether the locked
// card changed, including being lost
func (c *Controller) updateBounds(b vision.CardBounds, found bool) (*vision.CardBounds, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !found {
		if c.bounds == nil {
			return nil, false
		}
		c.bounds = nil
		return nil, true
	}

	if c.bounds != nil && *c.bounds == b {
		return copyBounds(c.bounds), false
	}
	c.bounds = &b
	c.lastBounds = copyBounds(&b)
	return copyBounds(&b), true
}

// reportTrackingFailure reports the first failure of a streak only; a
// stalled camera fails every cycle
func (c *Controller) reportTrackingFailure(err error) {
	c.mu.Lock()
	c.failStreak++
	first := c.failStreak == 1
	c.mu.Unlock()

	if first {
		c.reporter.Report(logging.ErrorCategoryTracking, logging.ErrorSeverityLow, "TrackingLoop", "Tracking cycle failed", err, nil)
	}
}

// fail records err and returns the notification carrying its user-facing message
func (c *Controller) fail(message string, err error) func(Listener) {
	ce := camera.Wrap(err)
	c.reporter.Report(logging.ErrorCategoryCamera, logging.ErrorSeverityHigh, "Controller", message, err, map[string]interface{}{
		"kind": ce.Kind.String(),
	})
	return errorNotice(ce.Message)
}

func errorNotice(message string) func(Listener) {
	return func(l Listener) { l.ErrorChanged(message) }
}

// queue defers a notification until opMu is released. Caller holds opMu.
func (c *Controller) queue(fn func(Listener)) {
	c.pending = append(c.pending, fn)
}

// unlockAndNotify releases opMu, then delivers what was queued under it, so
// listeners may call back into the controller
func (c *Controller) unlockAndNotify() {
	pending := c.pending
	c.pending = nil
	c.opMu.Unlock()

	for _, fn := range pending {
		c.listeners.each(fn)
	}
}

func copyBounds(b *vision.CardBounds) *vision.CardBounds {
	if b == nil {
		return nil
	}
	copied := *b
	return &copied
}
