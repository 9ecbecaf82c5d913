package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"jordanella.com/mtg-scanner-go/internal/camera"
	"jordanella.com/mtg-scanner-go/internal/cards"
	"jordanella.com/mtg-scanner-go/internal/collection"
	"jordanella.com/mtg-scanner-go/internal/config"
	"jordanella.com/mtg-scanner-go/internal/database"
	"jordanella.com/mtg-scanner-go/internal/events"
	"jordanella.com/mtg-scanner-go/internal/logging"
	"jordanella.com/mtg-scanner-go/internal/monitor"
	"jordanella.com/mtg-scanner-go/internal/overlay"
	"jordanella.com/mtg-scanner-go/internal/recognition"
	"jordanella.com/mtg-scanner-go/internal/scanner"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

// cardArtWidth is half of Scryfall's 488px "normal" image
const cardArtWidth = 244

// Options select the camera backend and card source
type Options struct {
	// Simulate replaces real cameras with a synthetic one
	Simulate bool
	// Backend overrides the camera backend entirely
	Backend camera.Backend
	// Searcher overrides the Scryfall client
	Searcher cards.Searcher
	// EventLog writes every bus event to a file under the log directory
	EventLog bool
}

// App wires the scanner pipeline, catalog, recognizer and collection together
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Bus        *events.DefaultEventBus
	Reporter   *logging.ErrorReporter
	Scanner    *scanner.Controller
	Catalog    *cards.Catalog
	Recognizer *recognition.Recognizer
	DB         *database.DB
	Collection *collection.Service
	Health     *monitor.HealthChecker
	Images     *cards.ImageCache

	eventLog     *logging.EventLogger
	removeBus    func()
	removeHealth func()
	closeOnce    sync.Once
	closeErr     error

	cameraMu  sync.RWMutex
	cameraErr string
}

// New builds every component from cfg. Close releases them.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := logging.NewLogger("App").SetMinLevel(cfg.Level())

	defaults, err := cfg.ScannerDefaults()
	if err != nil {
		return nil, err
	}

	db, err := database.OpenAndMigrate(cfg.DatabasePath, logger.Named("Database"))
	if err != nil {
		return nil, err
	}
	if retention := cfg.Retention(); retention > 0 {
		pruneHistory(db, time.Now().Add(-retention), logger)
	}

	bus := events.NewEventBus(256)
	bus.SetDiagnostics(os.Stderr)

	reporter := logging.NewErrorReporter(logger.Named("ErrorReporter"), 0)
	reporter.SetSink(func(r *logging.ErrorReport) {
		var text *string
		if r.Error != "" {
			e := r.Error
			text = &e
		}
		if _, err := db.LogError(string(r.Category), string(r.Severity), r.Component, r.Message, text, r.Timestamp); err != nil {
			logger.Error("Failed to persist error report", err)
		}
	})

	backend := opts.Backend
	if backend == nil {
		if opts.Simulate {
			backend = camera.NewSyntheticBackend()
		} else {
			backend = camera.NewPionBackend(logger.Named("Camera"))
		}
	}

	ctrl := scanner.New(scanner.Config{
		Backend:    backend,
		RetryDelay: cfg.RetryDelay(),
		Interval:   overlay.IntervalForHz(cfg.RefreshHz),
		Defaults:   defaults,
		Logger:     logger.Named("Scanner"),
		Reporter:   reporter,
	})

	searcher := opts.Searcher
	if searcher == nil {
		searcher = cards.NewClient(cfg.CatalogBaseURL, cfg.CatalogTimeout())
	}
	catalog := cards.NewCatalog(cards.CatalogConfig{
		Searcher:     searcher,
		DefaultQuery: cfg.DefaultQuery,
		FallbackFile: cfg.FallbackFile,
		Logger:       logger.Named("Catalog"),
		Bus:          bus,
	})

	coll := collection.NewService(db, logger.Named("Collection"), bus)

	recognizer := recognition.NewRecognizer(recognition.Config{
		Source:  catalog,
		Delay:   cfg.RecognitionDelay(),
		ScanLog: coll,
		Logger:  logger.Named("Recognition"),
		Bus:     bus,
	})

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Bus:        bus,
		Reporter:   reporter,
		Scanner:    ctrl,
		Catalog:    catalog,
		Recognizer: recognizer,
		DB:         db,
		Collection: coll,
		Images:     cards.NewImageCache(cfg.CatalogTimeout(), cards.DefaultImageCacheSize, cardArtWidth),
	}
	a.removeBus = ctrl.AddListener(scanner.NewBusListener(bus))
	a.setupHealth()

	if opts.EventLog {
		el, err := logging.NewEventLogger(bus, cfg.LogDir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open event log: %w", err)
		}
		a.eventLog = el
	}

	ctrl.Initialize()
	return a, nil
}

// setupHealth registers the database, camera and catalog checks. The
// catalog is optional since the fallback cards keep scanning usable.
func (a *App) setupHealth() {
	a.Health = monitor.NewHealthChecker().WithUnhealthyCallback(func(name string, err error) {
		a.Reporter.Report(healthCategory(name), logging.ErrorSeverityHigh,
			"health", fmt.Sprintf("%s check failed", name), err, nil)
	})

	a.removeHealth = a.Scanner.AddListener(scanner.ListenerFuncs{
		OnErrorChanged: func(message string) {
			a.cameraMu.Lock()
			a.cameraErr = message
			a.cameraMu.Unlock()
		},
	})

	a.Health.Register("database", a.DB.Ping)
	a.Health.Register("camera", func(ctx context.Context) error {
		a.cameraMu.RLock()
		defer a.cameraMu.RUnlock()
		if a.cameraErr != "" {
			return errors.New(a.cameraErr)
		}
		return nil
	})
	a.Health.RegisterOptional("catalog", func(ctx context.Context) error {
		if a.Catalog.Status() == cards.StatusError {
			return fmt.Errorf("scryfall unavailable, %d fallback cards loaded", a.Catalog.Len())
		}
		return nil
	})
}

func healthCategory(check string) logging.ErrorCategory {
	switch check {
	case "database":
		return logging.ErrorCategoryStorage
	case "catalog":
		return logging.ErrorCategoryCatalog
	}
	return logging.ErrorCategoryCamera
}

// pruneHistory drops scan and error records older than cutoff. Failures are
// logged; stale history never blocks startup.
func pruneHistory(db *database.DB, cutoff time.Time, logger *logging.Logger) {
	scans, err := db.DeleteOldScans(cutoff)
	if err != nil {
		logger.Error("Failed to prune scan history", err)
	}
	errs, err := db.DeleteOldErrors(cutoff)
	if err != nil {
		logger.Error("Failed to prune error log", err)
	}
	if scans > 0 || errs > 0 {
		logger.InfoWithContext("Pruned history", logging.Fields{
			"scans":  scans,
			"errors": errs,
			"before": cutoff.Format(time.DateOnly),
		})
	}
}

// LoadCatalog fills the card database; failures leave the fallback set loaded
func (a *App) LoadCatalog(ctx context.Context) {
	if err := a.Catalog.Load(ctx, ""); err != nil {
		a.Reporter.Report(logging.ErrorCategoryCatalog, logging.ErrorSeverityMedium,
			"catalog", "Scryfall unavailable, using fallback cards", err, nil)
	}
}

// CaptureAndRecognize takes a still from the running stream and identifies it
func (a *App) CaptureAndRecognize(ctx context.Context) (*vision.CaptureResult, *recognition.Match, error) {
	capture, err := a.Scanner.Capture(ctx)
	if err != nil {
		return nil, nil, err
	}

	match, err := a.Recognizer.Recognize(ctx, capture)
	if err != nil {
		a.Reporter.Report(logging.ErrorCategoryRecognition, logging.ErrorSeverityMedium,
			"recognizer", recognition.UserMessage(err), err, map[string]interface{}{"capture_id": capture.ID})
		return capture, nil, err
	}
	return capture, match, nil
}

// RecognizeUpload runs an uploaded still through corrections, detection and recognition
func (a *App) RecognizeUpload(ctx context.Context, data []byte) (*vision.CaptureResult, *recognition.Match, error) {
	opts := a.Scanner.Options()
	capture, match, err := a.Recognizer.RecognizeUpload(ctx, data, vision.CaptureOptions{
		Corrections: opts.Corrections,
		Quality:     opts.JPEGQuality,
	})
	if err != nil && capture != nil {
		a.Reporter.Report(logging.ErrorCategoryRecognition, logging.ErrorSeverityMedium,
			"recognizer", recognition.UserMessage(err), err, map[string]interface{}{"capture_id": capture.ID})
	}
	return capture, match, err
}

// AddToCollection resolves cardID against the catalog and adds one copy
func (a *App) AddToCollection(cardID string) (cards.Card, int, error) {
	card, ok := a.Catalog.Get(cardID)
	if !ok {
		return cards.Card{}, 0, fmt.Errorf("card %q is not in the loaded catalog", cardID)
	}
	qty, err := a.Collection.Add(card)
	if err != nil {
		a.Reporter.Report(logging.ErrorCategoryStorage, logging.ErrorSeverityHigh,
			"collection", "Failed to add card", err, map[string]interface{}{"card_id": cardID})
	}
	return card, qty, err
}

// Search queries the catalog and remembers results so they can be added by id
func (a *App) Search(ctx context.Context, query string) ([]cards.Card, error) {
	results, err := a.Catalog.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	a.Catalog.Remember(results...)
	return results, nil
}

// Close stops the stream and releases every resource, newest first.
// Later calls return the first result.
func (a *App) Close() error {
	a.closeOnce.Do(func() { a.closeErr = a.close() })
	return a.closeErr
}

func (a *App) close() error {
	a.Health.Stop()
	if a.Scanner != nil {
		a.Scanner.Cleanup()
	}
	if a.removeBus != nil {
		a.removeBus()
	}
	if a.removeHealth != nil {
		a.removeHealth()
	}

	// let the bus drain before the event log closes
	done := make(chan struct{})
	go func() {
		a.Bus.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		a.Logger.Warn("Event bus did not drain in time")
	}

	if a.eventLog != nil {
		if err := a.eventLog.Close(); err != nil {
			a.Logger.Error("Failed to close event log", err)
		}
	}
	return a.DB.Close()
}
