package config

import (
	"fmt"
	"path/filepath"
	"time"

	"jordanella.com/mtg-scanner-go/internal/camera"
	"jordanella.com/mtg-scanner-go/internal/cards"
	"jordanella.com/mtg-scanner-go/internal/logging"
	"jordanella.com/mtg-scanner-go/internal/overlay"
	"jordanella.com/mtg-scanner-go/internal/recognition"
	"jordanella.com/mtg-scanner-go/internal/scanner"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

// Config holds every user-tunable setting
type Config struct {
	// Camera
	Device       string
	Resolution   string
	RetryDelayMs int
	RefreshHz    int

	// Capture
	Brightness      bool
	GlareReduction  bool
	EdgeEnhancement bool
	JPEGQuality     int

	// Overlay
	OverlayStyle string

	// Catalog
	CatalogBaseURL string
	DefaultQuery   string
	TimeoutSec     int
	FallbackFile   string

	// Recognition
	RecognitionDelayMs int

	// Storage
	DatabasePath  string
	RetentionDays int

	// Server
	ListenAddr string

	// Logging
	LogLevel string
	LogDir   string
}

// Tier parses the configured resolution
func (c *Config) Tier() (camera.Tier, error) {
	return camera.ParseTier(c.Resolution)
}

// Style parses the configured overlay style
func (c *Config) Style() (overlay.Style, error) {
	return overlay.ParseStyle(c.OverlayStyle)
}

// Corrections returns the capture corrections toggles
func (c *Config) Corrections() vision.Corrections {
	return vision.Corrections{
		Brightness:      c.Brightness,
		GlareReduction:  c.GlareReduction,
		EdgeEnhancement: c.EdgeEnhancement,
	}
}

// RetryDelay is the pause before the low-resolution retry
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// RecognitionDelay is the simulated processing time; zero disables it
func (c *Config) RecognitionDelay() time.Duration {
	if c.RecognitionDelayMs <= 0 {
		return -1
	}
	return time.Duration(c.RecognitionDelayMs) * time.Millisecond
}

// CatalogTimeout bounds each Scryfall request
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Retention is how long scan and error history is kept; zero keeps it forever
func (c *Config) Retention() time.Duration {
	if c.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Level returns the parsed log level
func (c *Config) Level() logging.LogLevel {
	return logging.ParseLevel(c.LogLevel)
}

// ScannerDefaults builds the session options the controller starts with
func (c *Config) ScannerDefaults() (scanner.Options, error) {
	opts := scanner.DefaultOptions()

	tier, err := c.Tier()
	if err != nil {
		return opts, err
	}
	style, err := c.Style()
	if err != nil {
		return opts, err
	}

	opts.DeviceID = c.Device
	opts.Tier = tier
	opts.Style = style
	opts.Corrections = c.Corrections()
	opts.JPEGQuality = c.JPEGQuality
	return opts, nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if _, err := c.Tier(); err != nil {
		return fmt.Errorf("[Camera] resolution: %w", err)
	}
	if _, err := c.Style(); err != nil {
		return fmt.Errorf("[Overlay] style: %w", err)
	}
	if c.RetryDelayMs < 0 {
		return fmt.Errorf("[Camera] retryDelayMs must not be negative")
	}
	if c.RefreshHz < 1 || c.RefreshHz > 240 {
		return fmt.Errorf("[Camera] refreshHz must be between 1 and 240, got %d", c.RefreshHz)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("[Capture] jpegQuality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.TimeoutSec <= 0 {
		return fmt.Errorf("[Catalog] timeoutSec must be positive")
	}
	if c.RecognitionDelayMs < 0 {
		return fmt.Errorf("[Recognition] delayMs must not be negative")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("[Storage] database path is required")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("[Storage] retentionDays must not be negative")
	}
	return nil
}

// NewDefaultConfig creates a config with default values
func NewDefaultConfig() *Config {
	return &Config{
		Resolution:         string(camera.DefaultTier),
		RetryDelayMs:       int(camera.DefaultRetryDelay / time.Millisecond),
		RefreshHz:          60,
		Brightness:         true,
		GlareReduction:     true,
		EdgeEnhancement:    true,
		JPEGQuality:        vision.DefaultJPEGQuality,
		OverlayStyle:       string(overlay.DefaultStyle),
		CatalogBaseURL:     cards.DefaultBaseURL,
		DefaultQuery:       cards.DefaultQuery,
		TimeoutSec:         int(cards.DefaultTimeout / time.Second),
		RecognitionDelayMs: int(recognition.DefaultDelay / time.Millisecond),
		DatabasePath:       filepath.Join("data", "collection.db"),
		RetentionDays:      90,
		ListenAddr:         "127.0.0.1:8080",
		LogLevel:           string(logging.LogLevelInfo),
		LogDir:             "logs",
	}
}
