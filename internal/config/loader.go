package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// EnvPrefix prefixes environment overrides, e.g. SCANNER_CAMERA_RESOLUTION
const EnvPrefix = "SCANNER_"

// LoadFromINI loads configuration from an INI file. Missing keys keep their defaults.
func LoadFromINI(path string) (*Config, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	defaults := NewDefaultConfig()
	config := &Config{}

	// Camera
	section := cfg.Section("Camera")
	config.Device = section.Key("device").MustString(defaults.Device)
	config.Resolution = section.Key("resolution").MustString(defaults.Resolution)
	config.RetryDelayMs = section.Key("retryDelayMs").MustInt(defaults.RetryDelayMs)
	config.RefreshHz = section.Key("refreshHz").MustInt(defaults.RefreshHz)

	// Capture
	section = cfg.Section("Capture")
	config.Brightness = section.Key("brightness").MustBool(defaults.Brightness)
	config.GlareReduction = section.Key("glareReduction").MustBool(defaults.GlareReduction)
	config.EdgeEnhancement = section.Key("edgeEnhancement").MustBool(defaults.EdgeEnhancement)
	config.JPEGQuality = section.Key("jpegQuality").MustInt(defaults.JPEGQuality)

	// Overlay
	config.OverlayStyle = cfg.Section("Overlay").Key("style").MustString(defaults.OverlayStyle)

	// Catalog
	section = cfg.Section("Catalog")
	config.CatalogBaseURL = section.Key("baseURL").MustString(defaults.CatalogBaseURL)
	config.DefaultQuery = section.Key("defaultQuery").MustString(defaults.DefaultQuery)
	config.TimeoutSec = section.Key("timeoutSec").MustInt(defaults.TimeoutSec)
	config.FallbackFile = section.Key("fallbackFile").MustString(defaults.FallbackFile)

	// Recognition
	config.RecognitionDelayMs = cfg.Section("Recognition").Key("delayMs").MustInt(defaults.RecognitionDelayMs)

	// Storage
	section = cfg.Section("Storage")
	config.DatabasePath = section.Key("database").MustString(defaults.DatabasePath)
	config.RetentionDays = section.Key("retentionDays").MustInt(defaults.RetentionDays)

	// Server
	config.ListenAddr = cfg.Section("Server").Key("listen").MustString(defaults.ListenAddr)

	// Logging
	section = cfg.Section("Logging")
	config.LogLevel = section.Key("level").MustString(defaults.LogLevel)
	config.LogDir = section.Key("directory").MustString(defaults.LogDir)

	return config, nil
}

// Load reads path if it exists, falls back to defaults otherwise, then
// applies SCANNER_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		loaded, err := LoadFromINI(path)
		switch {
		case err == nil:
			config = loaded
		case errors.Is(err, fs.ErrNotExist):
			// first run; defaults apply
		default:
			return nil, err
		}
	}

	if err := ApplyEnv(config, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// ApplyEnv overrides fields from SCANNER_<SECTION>_<KEY> variables
func ApplyEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
		return nil
	}
	flag := func(name string, dst *bool) error {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
		return nil
	}

	str("CAMERA_DEVICE", &config.Device)
	str("CAMERA_RESOLUTION", &config.Resolution)
	str("OVERLAY_STYLE", &config.OverlayStyle)
	str("CATALOG_BASE_URL", &config.CatalogBaseURL)
	str("CATALOG_DEFAULT_QUERY", &config.DefaultQuery)
	str("CATALOG_FALLBACK_FILE", &config.FallbackFile)
	str("STORAGE_DATABASE", &config.DatabasePath)
	str("SERVER_LISTEN", &config.ListenAddr)
	str("LOG_LEVEL", &config.LogLevel)
	str("LOG_DIR", &config.LogDir)

	for name, dst := range map[string]*int{
		"CAMERA_RETRY_DELAY_MS":  &config.RetryDelayMs,
		"CAMERA_REFRESH_HZ":      &config.RefreshHz,
		"CAPTURE_JPEG_QUALITY":   &config.JPEGQuality,
		"CATALOG_TIMEOUT_SEC":    &config.TimeoutSec,
		"RECOGNITION_DELAY_MS":   &config.RecognitionDelayMs,
		"STORAGE_RETENTION_DAYS": &config.RetentionDays,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}

	for name, dst := range map[string]*bool{
		"CAPTURE_BRIGHTNESS":       &config.Brightness,
		"CAPTURE_GLARE_REDUCTION":  &config.GlareReduction,
		"CAPTURE_EDGE_ENHANCEMENT": &config.EdgeEnhancement,
	} {
		if err := flag(name, dst); err != nil {
			return err
		}
	}
	return nil
}

// SaveToINI saves configuration to an INI file
func SaveToINI(config *Config, path string) error {
	cfg := ini.Empty()

	// Camera
	section := cfg.Section("Camera")
	section.Key("device").SetValue(config.Device)
	section.Key("resolution").SetValue(config.Resolution)
	section.Key("retryDelayMs").SetValue(fmt.Sprintf("%d", config.RetryDelayMs))
	section.Key("refreshHz").SetValue(fmt.Sprintf("%d", config.RefreshHz))

	// Capture
	section = cfg.Section("Capture")
	section.Key("brightness").SetValue(fmt.Sprintf("%t", config.Brightness))
	section.Key("glareReduction").SetValue(fmt.Sprintf("%t", config.GlareReduction))
	section.Key("edgeEnhancement").SetValue(fmt.Sprintf("%t", config.EdgeEnhancement))
	section.Key("jpegQuality").SetValue(fmt.Sprintf("%d", config.JPEGQuality))

	// Overlay
	cfg.Section("Overlay").Key("style").SetValue(config.OverlayStyle)

	// Catalog
	section = cfg.Section("Catalog")
	section.Key("baseURL").SetValue(config.CatalogBaseURL)
	section.Key("defaultQuery").SetValue(config.DefaultQuery)
	section.Key("timeoutSec").SetValue(fmt.Sprintf("%d", config.TimeoutSec))
	section.Key("fallbackFile").SetValue(config.FallbackFile)

	// Recognition
	cfg.Section("Recognition").Key("delayMs").SetValue(fmt.Sprintf("%d", config.RecognitionDelayMs))

	// Storage
	cfg.Section("Storage").Key("database").SetValue(config.DatabasePath)
	cfg.Section("Storage").Key("retentionDays").SetValue(fmt.Sprintf("%d", config.RetentionDays))

	// Server
	cfg.Section("Server").Key("listen").SetValue(config.ListenAddr)

	// Logging
	section = cfg.Section("Logging")
	section.Key("level").SetValue(config.LogLevel)
	section.Key("directory").SetValue(config.LogDir)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return cfg.SaveTo(path)
}
