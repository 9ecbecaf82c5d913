package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"jordanella.com/mtg-scanner-go/internal/camera"
	"jordanella.com/mtg-scanner-go/internal/cards"
	"jordanella.com/mtg-scanner-go/internal/overlay"
)

func writeINI(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scanner.ini")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.RetryDelay() != camera.DefaultRetryDelay {
		t.Errorf("RetryDelay = %v", cfg.RetryDelay())
	}
	if cfg.DefaultQuery != cards.DefaultQuery {
		t.Errorf("DefaultQuery = %q", cfg.DefaultQuery)
	}
}

func TestLoadFromINI(t *testing.T) {
	path := writeINI(t, `
[Camera]
device = usb-1
resolution = fhd
refreshHz = 30

[Capture]
glareReduction = false
jpegQuality = 92

[Overlay]
style = grid

[Recognition]
delayMs = 0

[Storage]
retentionDays = 7

[Logging]
level = debug
`)

	cfg, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("LoadFromINI: %v", err)
	}

	tier, err := cfg.Tier()
	if err != nil || tier != camera.TierHigh {
		t.Errorf("Tier = %v, %v; want high", tier, err)
	}
	style, _ := cfg.Style()
	if style != overlay.StyleGrid {
		t.Errorf("Style = %v", style)
	}
	if cfg.Device != "usb-1" || cfg.RefreshHz != 30 || cfg.JPEGQuality != 92 {
		t.Errorf("values not read: %+v", cfg)
	}
	if !cfg.Brightness || cfg.GlareReduction || !cfg.EdgeEnhancement {
		t.Errorf("corrections = %+v", cfg.Corrections())
	}
	if cfg.RecognitionDelay() >= 0 {
		t.Errorf("delayMs=0 should disable the delay, got %v", cfg.RecognitionDelay())
	}
	if cfg.TimeoutSec != 30 || cfg.DatabasePath == "" {
		t.Errorf("missing keys should keep defaults: %+v", cfg)
	}
	if cfg.Retention() != 7*24*time.Hour {
		t.Errorf("Retention = %v", cfg.Retention())
	}
	if cfg.Level() != "DEBUG" {
		t.Errorf("Level = %v", cfg.Level())
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "scanner.ini")

	cfg := NewDefaultConfig()
	cfg.Device = "cam-7"
	cfg.Resolution = string(camera.TierUltra)
	cfg.EdgeEnhancement = false
	cfg.RecognitionDelayMs = 500
	cfg.FallbackFile = "cards.yaml"
	cfg.RetentionDays = 0

	if err := SaveToINI(cfg, path); err != nil {
		t.Fatalf("SaveToINI: %v", err)
	}
	loaded, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("LoadFromINI: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
	if loaded.RecognitionDelay() != 500*time.Millisecond {
		t.Errorf("RecognitionDelay = %v", loaded.RecognitionDelay())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Resolution != string(camera.DefaultTier) {
		t.Errorf("Resolution = %q", cfg.Resolution)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad tier", "[Camera]\nresolution = 8k\n"},
		{"bad style", "[Overlay]\nstyle = spiral\n"},
		{"quality", "[Capture]\njpegQuality = 0\n"},
		{"refresh", "[Camera]\nrefreshHz = 0\n"},
		{"timeout", "[Catalog]\ntimeoutSec = -1\n"},
		{"retention", "[Storage]\nretentionDays = -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeINI(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SCANNER_CAMERA_RESOLUTION":      "sd",
		"SCANNER_CAPTURE_BRIGHTNESS":     "false",
		"SCANNER_CAMERA_REFRESH_HZ":      "15",
		"SCANNER_STORAGE_DATABASE":       "/tmp/x.db",
		"SCANNER_STORAGE_RETENTION_DAYS": "0",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := NewDefaultConfig()
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Resolution != "sd" || cfg.Brightness || cfg.RefreshHz != 15 || cfg.DatabasePath != "/tmp/x.db" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.RetentionDays != 0 || cfg.Retention() != 0 {
		t.Errorf("retention override not applied: %d", cfg.RetentionDays)
	}

	env["SCANNER_CAMERA_REFRESH_HZ"] = "fast"
	if err := ApplyEnv(cfg, lookup); err == nil {
		t.Error("expected parse error")
	}
}

func TestScannerDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Device = "dev"
	cfg.Resolution = "hd"
	cfg.OverlayStyle = "grid"
	cfg.JPEGQuality = 70

	opts, err := cfg.ScannerDefaults()
	if err != nil {
		t.Fatalf("ScannerDefaults: %v", err)
	}
	if opts.DeviceID != "dev" || opts.Tier != camera.TierStandard || opts.Style != overlay.StyleGrid || opts.JPEGQuality != 70 {
		t.Errorf("opts = %+v", opts)
	}
}
