package collection

import (
	"context"
	"errors"
	"image"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"jordanella.com/mtg-scanner-go/internal/cards"
	"jordanella.com/mtg-scanner-go/internal/database"
	"jordanella.com/mtg-scanner-go/internal/events"
	"jordanella.com/mtg-scanner-go/internal/recognition"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

func newTestService(t *testing.T, bus events.EventBus) *Service {
	t.Helper()
	db, err := database.OpenAndMigrate(filepath.Join(t.TempDir(), "collection.db"), nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(db, nil, bus)
}

var (
	bolt  = cards.Card{ID: "fallback-1", Name: "Lightning Bolt", Type: "Instant", Price: 0.5}
	lotus = cards.Card{ID: "fallback-2", Name: "Black Lotus", Type: "Artifact", Price: 25000}
)

func TestAddRemoveTotals(t *testing.T) {
	s := newTestService(t, nil)

	for i, want := range []int{1, 2, 3} {
		qty, err := s.Add(bolt)
		if err != nil {
			t.Fatalf("Add #%d: %v", i, err)
		}
		if qty != want {
			t.Errorf("Add #%d quantity = %d, want %d", i, qty, want)
		}
	}
	if _, err := s.Add(lotus); err != nil {
		t.Fatal(err)
	}

	total, err := s.TotalCards()
	if err != nil || total != 4 {
		t.Errorf("TotalCards = %d, %v; want 4", total, err)
	}
	value, err := s.TotalValue()
	if err != nil || value != 25001.5 {
		t.Errorf("TotalValue = %v, %v; want 25001.5", value, err)
	}

	if err := s.Remove(lotus.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(lotus.ID); !errors.Is(err, ErrCardNotOwned) {
		t.Errorf("second Remove err = %v, want ErrCardNotOwned", err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].CardID != bolt.ID || list[0].Quantity != 3 {
		t.Errorf("List = %+v", list)
	}
}

func TestEmptyCollectionTotals(t *testing.T) {
	s := newTestService(t, nil)
	totals, err := s.Totals()
	if err != nil {
		t.Fatal(err)
	}
	if totals.TotalCards != 0 || totals.TotalValue != 0 || totals.UniqueCards != 0 {
		t.Errorf("Totals = %+v, want zeros", totals)
	}
}

func TestChangesArePublished(t *testing.T) {
	bus := events.NewEventBus(16)
	bus.SetDiagnostics(io.Discard)

	var mu sync.Mutex
	var actions []string
	bus.Subscribe(events.EventTypeCollectionChanged, func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		actions = append(actions, e.Data["action"].(string))
	})

	s := newTestService(t, bus)
	s.Add(bolt)
	s.Remove(bolt.ID)
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(actions) != 2 || actions[0] != ActionAdded || actions[1] != ActionRemoved {
		t.Errorf("actions = %v", actions)
	}
}

func TestLogScan(t *testing.T) {
	s := newTestService(t, nil)

	bounds := &vision.CardBounds{X: 100, Y: 40, Width: 300, Height: 420}
	capture := &vision.CaptureResult{
		ID:      "cap-1",
		Width:   1280,
		Height:  720,
		Bounds:  bounds,
		Applied: vision.Corrections{Brightness: true, EdgeEnhancement: true},
	}
	match := &recognition.Match{
		Card:       bolt,
		Confidence: 91,
		Timestamp:  time.Now(),
		Method:     recognition.MethodSimulated,
		CaptureID:  capture.ID,
		Bounds:     bounds,
	}

	if err := s.LogScan(context.Background(), capture, match); err != nil {
		t.Fatalf("LogScan: %v", err)
	}

	scans, err := s.RecentScans(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(scans) != 1 {
		t.Fatalf("got %d scans, want 1", len(scans))
	}
	got := scans[0]
	if got.CaptureID != "cap-1" || got.CardID != bolt.ID || got.Confidence != 91 {
		t.Errorf("scan = %+v", got)
	}
	if !got.HasBounds() || *got.BoundsHeight != 420 {
		t.Error("bounds not recorded")
	}
	if !got.BrightnessApplied || got.GlareApplied || !got.SharpenApplied {
		t.Errorf("correction flags wrong: %+v", got)
	}
	if got.ImageWidth != 1280 {
		t.Errorf("ImageWidth = %d", got.ImageWidth)
	}
}

func TestRecognizerRecordsScans(t *testing.T) {
	s := newTestService(t, nil)
	catalog := cards.NewCatalog(cards.CatalogConfig{})
	_ = catalog.Load(context.Background(), "")

	r := recognition.NewRecognizer(recognition.Config{Source: catalog, Delay: -1, ScanLog: s})
	capture, err := vision.Capture(grayFrame(), nil, vision.CaptureOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Recognize(context.Background(), capture); err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	scans, _ := s.RecentScans(10)
	if len(scans) != 1 || scans[0].CaptureID != capture.ID || scans[0].HasBounds() {
		t.Errorf("scans = %+v", scans)
	}
}

func grayFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}
