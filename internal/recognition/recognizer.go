package recognition

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"jordanella.com/mtg-scanner-go/internal/cards"
	"jordanella.com/mtg-scanner-go/internal/events"
	"jordanella.com/mtg-scanner-go/internal/logging"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

const (
	DefaultDelay    = 2 * time.Second
	MethodSimulated = "simulated (catalog data, no visual matching)"
	MinConfidence   = 75
	MaxConfidence   = 100
)

var (
	ErrCatalogEmpty = errors.New("Card database not loaded. Please wait for Scryfall connection.")
	ErrNoCapture    = errors.New("no capture to recognize")
)

// FailedMessage is shown when recognition breaks for any other reason
const FailedMessage = "Recognition failed. Please try again with better lighting."

// CardSource supplies candidate cards. *cards.Catalog satisfies it.
type CardSource interface {
	Random() (cards.Card, bool)
}

// ScanLog records every successful recognition
type ScanLog interface {
	LogScan(ctx context.Context, capture *vision.CaptureResult, match *Match) error
}

// Match is a recognized card with recognition metadata attached
type Match struct {
	Card       cards.Card         `json:"card"`
	Confidence int                `json:"confidence"`
	Timestamp  time.Time          `json:"timestamp"`
	Method     string             `json:"method"`
	CaptureID  string             `json:"captureId"`
	Bounds     *vision.CardBounds `json:"bounds,omitempty"`
}

// Config configures a Recognizer
type Config struct {
	Source   CardSource
	Delay    time.Duration // 0 means DefaultDelay; negative disables the delay
	Detector *vision.DetectorConfig
	ScanLog  ScanLog
	Logger   *logging.Logger
	Bus      events.EventBus
}

// Recognizer turns captures into card matches.
// Matching is simulated: a random catalog card is returned after a processing delay.
type Recognizer struct {
	source   CardSource
	delay    time.Duration
	detector *vision.DetectorConfig
	scanLog  ScanLog
	logger   *logging.Logger
	bus      events.EventBus

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRecognizer creates a recognizer
func NewRecognizer(cfg Config) *Recognizer {
	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Detector == nil {
		cfg.Detector = vision.DefaultDetectorConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard("recognition")
	}
	return &Recognizer{
		source:   cfg.Source,
		delay:    cfg.Delay,
		detector: cfg.Detector,
		scanLog:  cfg.ScanLog,
		logger:   cfg.Logger,
		bus:      cfg.Bus,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Recognize identifies the card in capture. It blocks for the processing
// delay unless ctx is cancelled first.
func (r *Recognizer) Recognize(ctx context.Context, capture *vision.CaptureResult) (*Match, error) {
	if capture == nil {
		return nil, ErrNoCapture
	}

	match, err := r.recognize(ctx, capture)
	if err != nil {
		r.logger.ErrorWithContext("Recognition failed", err, logging.Fields{"capture_id": capture.ID})
		r.publish(events.NewRecognitionFailedEvent(capture.ID, err))
		return nil, err
	}

	r.logger.InfoWithContext("Recognized card", logging.Fields{
		"capture_id": capture.ID,
		"card":       match.Card.Name,
		"confidence": match.Confidence,
	})
	r.publish(events.NewCardRecognizedEvent(capture.ID, match.Card.ID, match.Card.Name, match.Confidence))

	if r.scanLog != nil {
		if err := r.scanLog.LogScan(ctx, capture, match); err != nil {
			r.logger.Error("Failed to record scan", err)
		}
	}
	return match, nil
}

func (r *Recognizer) recognize(ctx context.Context, capture *vision.CaptureResult) (*Match, error) {
	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if r.source == nil {
		return nil, ErrCatalogEmpty
	}
	card, ok := r.source.Random()
	if !ok {
		return nil, ErrCatalogEmpty
	}

	return &Match{
		Card:       card,
		Confidence: r.confidence(),
		Timestamp:  time.Now(),
		Method:     MethodSimulated,
		CaptureID:  capture.ID,
		Bounds:     capture.Bounds,
	}, nil
}

// confidence draws a score in [MinConfidence, MaxConfidence]
func (r *Recognizer) confidence() int {
	r.mu.Lock()
	f := r.rng.Float64()
	r.mu.Unlock()
	return int(math.Round(f*float64(MaxConfidence-MinConfidence))) + MinConfidence
}

// RecognizeUpload decodes an uploaded still, locates the card, applies
// corrections and recognizes the result.
func (r *Recognizer) RecognizeUpload(ctx context.Context, data []byte, opts vision.CaptureOptions) (*vision.CaptureResult, *Match, error) {
	img, format, err := vision.DecodeUpload(data)
	if err != nil {
		return nil, nil, err
	}

	var bounds *vision.CardBounds
	found, ok, err := r.detector.Detect(img)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to analyze upload: %w", err)
	}
	if ok {
		bounds = &found
	}

	capture, err := vision.Capture(img, bounds, opts)
	if err != nil {
		return nil, nil, err
	}

	r.logger.DebugWithContext("Processed upload", logging.Fields{
		"format":     format,
		"width":      capture.Width,
		"height":     capture.Height,
		"has_bounds": bounds != nil,
	})

	match, err := r.Recognize(ctx, capture)
	if err != nil {
		return capture, nil, err
	}
	return capture, match, nil
}

// UserMessage maps a recognition error onto the text shown to users
func UserMessage(err error) string {
	if errors.Is(err, ErrCatalogEmpty) {
		return ErrCatalogEmpty.Error()
	}
	return FailedMessage
}

func (r *Recognizer) publish(e events.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}
