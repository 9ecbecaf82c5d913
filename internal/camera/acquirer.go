package camera

import (
	"context"
	"time"

	"jordanella.com/mtg-scanner-go/internal/logging"
)

// DefaultRetryDelay is the pause before the single downgrade retry
const DefaultRetryDelay = time.Second

// Request selects the device and tier for a stream
type Request struct {
	DeviceID string
	Tier     Tier
}

// Session is an acquired stream and the parameters it was acquired with
type Session struct {
	Stream     Stream
	DeviceID   string
	Tier       Tier
	Requested  Tier
	Downgraded bool
	StartedAt  time.Time
}

// Close stops the session's stream
func (s *Session) Close() error {
	if s == nil || s.Stream == nil {
		return nil
	}
	return s.Stream.Close()
}

// Acquirer opens streams with one automatic downgrade to TierLow when the
// requested constraints cannot be met
type Acquirer struct {
	backend     Backend
	retryDelay  time.Duration
	logger      *logging.Logger
	onDowngrade func(*Error)
}

// NewAcquirer creates an acquirer. A non-positive retryDelay means DefaultRetryDelay.
func NewAcquirer(backend Backend, retryDelay time.Duration, logger *logging.Logger) *Acquirer {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = logging.NewLogger("Acquirer")
	}
	return &Acquirer{backend: backend, retryDelay: retryDelay, logger: logger}
}

// WithDowngradeHook sets a function called with the constraint error just
// before the delayed low-tier retry
func (a *Acquirer) WithDowngradeHook(fn func(*Error)) *Acquirer {
	a.onDowngrade = fn
	return a
}

// RetryDelay returns the configured downgrade delay
func (a *Acquirer) RetryDelay() time.Duration {
	return a.retryDelay
}

// Start opens a stream for req. Errors are always *Error.
func (a *Acquirer) Start(ctx context.Context, req Request) (*Session, error) {
	tier := req.Tier
	if !tier.Valid() {
		tier = DefaultTier
	}

	stream, err := a.open(ctx, req.DeviceID, tier)
	if err == nil {
		return a.session(stream, req.DeviceID, tier, tier), nil
	}

	if err.Kind != KindConstraintsNotSatisfiable || tier == TierLow {
		return nil, err
	}

	a.logger.WarnWithContext("Constraints not satisfiable, retrying at low tier", logging.Fields{
		"tier":  string(tier),
		"delay": a.retryDelay,
	})
	if a.onDowngrade != nil {
		a.onDowngrade(err)
	}

	timer := time.NewTimer(a.retryDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, NewError(KindUnknown, ctx.Err())
	}

	stream, err = a.open(ctx, req.DeviceID, TierLow)
	if err != nil {
		return nil, err
	}
	return a.session(stream, req.DeviceID, TierLow, tier), nil
}

func (a *Acquirer) open(ctx context.Context, deviceID string, tier Tier) (Stream, *Error) {
	c := BuildConstraints(deviceID, tier)
	stream, err := a.backend.Open(ctx, c)
	if err != nil {
		cerr := Wrap(err)
		a.logger.ErrorWithContext("Stream acquisition failed", err, logging.Fields{
			"kind":   cerr.Kind.String(),
			"tier":   string(tier),
			"device": deviceID,
		})
		return nil, cerr
	}
	return stream, nil
}

func (a *Acquirer) session(stream Stream, deviceID string, tier, requested Tier) *Session {
	a.logger.InfoWithContext("Stream acquired", logging.Fields{
		"device":     deviceID,
		"tier":       string(tier),
		"resolution": tier.Resolution().String(),
	})
	return &Session{
		Stream:     stream,
		DeviceID:   deviceID,
		Tier:       tier,
		Requested:  requested,
		Downgraded: tier != requested,
		StartedAt:  time.Now(),
	}
}
