package gui

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/mtg-scanner-go/internal/app"
	"jordanella.com/mtg-scanner-go/internal/cards"
	"jordanella.com/mtg-scanner-go/internal/events"
	"jordanella.com/mtg-scanner-go/internal/logging"
)

const (
	tabScanner = iota
	tabSearch
	tabCollection
	tabEvents
	tabCount
)

// Controller owns the window and routes scanner and bus notifications to tabs.
// Every widget update goes through fyne.Do.
type Controller struct {
	app     *app.App
	fyneApp fyne.App
	window  fyne.Window
	logger  *logging.Logger

	scannerTab    *ScannerTab
	searchTab     *SearchTab
	collectionTab *CollectionTab
	logTab        *EventLogTab

	contentArea *fyne.Container
	currentTab  int
	mu          sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	removeListener func()
	subs           []events.SubscriptionID
	shutdownOnce   sync.Once
}

// NewController creates the GUI controller for a running application
func NewController(a *app.App, fyneApp fyne.App, window fyne.Window) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	ctrl := &Controller{
		app:     a,
		fyneApp: fyneApp,
		window:  window,
		logger:  a.Logger.Named("GUI"),
		ctx:     ctx,
		cancel:  cancel,
	}

	ctrl.scannerTab = NewScannerTab(ctrl)
	ctrl.searchTab = NewSearchTab(ctrl)
	ctrl.collectionTab = NewCollectionTab(ctrl)
	ctrl.logTab = NewEventLogTab(ctrl)

	return ctrl
}

// BuildUI constructs the main UI with horizontal tabs
func (c *Controller) BuildUI() fyne.CanvasObject {
	tabButtons := container.NewHBox(
		widget.NewButton("Scanner", func() { c.switchTab(tabScanner) }),
		widget.NewButton("Search", func() { c.switchTab(tabSearch) }),
		widget.NewButton("Collection", func() { c.switchTab(tabCollection) }),
		widget.NewButton("Event Log", func() { c.switchTab(tabEvents) }),
	)

	c.contentArea = container.NewStack(
		c.scannerTab.Build(),
		c.searchTab.Build(),
		c.collectionTab.Build(),
		c.logTab.Build(),
	)
	c.showTab(tabScanner)

	c.setupEventHandlers()

	return container.NewBorder(tabButtons, c.scannerTab.StatusBar(), nil, nil, c.contentArea)
}

// Start loads the catalog and lists cameras in the background
func (c *Controller) Start() {
	go c.app.LoadCatalog(c.ctx)
	go func() {
		if _, err := c.app.Scanner.DetectCameras(c.ctx); err != nil {
			c.logger.Error("Camera detection failed", err)
		}
	}()
}

func (c *Controller) switchTab(index int) {
	c.mu.Lock()
	c.currentTab = index
	c.mu.Unlock()

	c.showTab(index)
	if index == tabCollection {
		c.collectionTab.Refresh()
	}
}

func (c *Controller) showTab(index int) {
	if c.contentArea == nil {
		return
	}
	for i, obj := range c.contentArea.Objects {
		if i == index {
			obj.Show()
		} else {
			obj.Hide()
		}
	}
	c.contentArea.Refresh()
}

// setupEventHandlers wires scanner callbacks and bus events into the tabs
func (c *Controller) setupEventHandlers() {
	c.removeListener = c.app.Scanner.AddListener(c.scannerTab.listener())

	c.subs = append(c.subs, c.app.Bus.Subscribe(events.EventTypeCatalogStatus, func(e events.Event) {
		fyne.Do(c.scannerTab.updateCatalogStatus)
	}))
	c.subs = append(c.subs, c.app.Bus.Subscribe(events.EventTypeCollectionChanged, func(e events.Event) {
		fyne.Do(c.collectionTab.Refresh)
	}))
	c.subs = append(c.subs, c.app.Bus.SubscribeAll(func(e events.Event) {
		c.logTab.AddEvent(e)
	})...)
}

// loadArt fetches a card's image into target, hiding target when there is none
func (c *Controller) loadArt(card cards.Card, target *canvas.Image) {
	if card.ImageURL == "" {
		target.Hide()
		return
	}
	go func() {
		img, err := c.app.Images.Get(c.ctx, card.ImageURL)
		if err != nil {
			c.logger.WarnWithContext("Card image unavailable", logging.Fields{"card": card.Name, "error": err.Error()})
			fyne.Do(target.Hide)
			return
		}
		fyne.Do(func() {
			target.Image = img
			target.Show()
			target.Refresh()
		})
	}()
}

// Context is cancelled when the window closes
func (c *Controller) Context() context.Context {
	return c.ctx
}

// ShowError displays err in a dialog. Safe from any goroutine.
func (c *Controller) ShowError(err error) {
	fyne.Do(func() {
		dialog.ShowError(err, c.window)
	})
}

// ShowInfo displays an informational dialog. Safe from any goroutine.
func (c *Controller) ShowInfo(title, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fyne.Do(func() {
		dialog.ShowInformation(title, msg, c.window)
	})
}

// Shutdown stops tracking and detaches from the application. The App
// itself is closed by the caller.
func (c *Controller) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.cancel()
		c.searchTab.debounce.Cancel()
		c.scannerTab.stopPreview()

		if c.removeListener != nil {
			c.removeListener()
		}
		for _, id := range c.subs {
			c.app.Bus.Unsubscribe(id)
		}
		c.app.Scanner.Cleanup()
	})
}
