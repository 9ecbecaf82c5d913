package gui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/mtg-scanner-go/internal/camera"
	"jordanella.com/mtg-scanner-go/internal/gui/components"
	"jordanella.com/mtg-scanner-go/internal/overlay"
	"jordanella.com/mtg-scanner-go/internal/recognition"
	"jordanella.com/mtg-scanner-go/internal/scanner"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

// previewInterval paces copying the camera frame and overlay into the window
const previewInterval = 66 * time.Millisecond

// ScannerTab hosts the viewfinder, camera controls and the last result
type ScannerTab struct {
	controller *Controller

	// Viewfinder
	viewfinder   *fyne.Container
	videoImage   *canvas.Image
	overlayImage *canvas.Image
	trackLabel   *widget.Label

	// Controls
	cameraSelect *widget.Select
	tierSelect   *widget.Select
	styleSelect  *widget.Select
	brightness   *widget.Check
	glare        *widget.Check
	sharpen      *widget.Check
	startBtn     *widget.Button
	captureBtn   *widget.Button
	uploadBtn    *widget.Button
	busy         *widget.ProgressBarInfinite
	errorLabel   *widget.Label
	catalogBadge *components.Badge
	statusBar    *fyne.Container

	// Result
	captureImage *canvas.Image
	artImage     *canvas.Image
	resultLabel  *widget.Label
	detailsLabel *widget.Label
	addBtn       *widget.Button

	mu        sync.Mutex
	cameraIDs map[string]string
	scanning  bool
	lastMatch *recognition.Match

	previewMu     sync.Mutex
	stopPreviewCh chan struct{}
}

// NewScannerTab creates the scanner tab
func NewScannerTab(ctrl *Controller) *ScannerTab {
	return &ScannerTab{
		controller: ctrl,
		cameraIDs:  make(map[string]string),
	}
}

// Build constructs the scanner UI
func (t *ScannerTab) Build() fyne.CanvasObject {
	ctrl := t.controller.app.Scanner
	opts := ctrl.Options()

	// Viewfinder: camera frame with the overlay on top. Both keep the video
	// aspect and are centred, so they line up.
	t.videoImage = canvas.NewImageFromImage(blankImage())
	t.videoImage.FillMode = canvas.ImageFillContain
	t.videoImage.ScaleMode = canvas.ImageScaleFastest
	t.overlayImage = canvas.NewImageFromImage(blankImage())
	t.overlayImage.FillMode = canvas.ImageFillContain
	t.overlayImage.ScaleMode = canvas.ImageScaleFastest
	t.viewfinder = container.NewStack(canvas.NewRectangle(ColorViewfinder), t.videoImage, t.overlayImage)
	t.trackLabel = widget.NewLabel(trackingText(false, nil))

	// Camera
	t.cameraSelect = widget.NewSelect(nil, func(label string) {
		t.mu.Lock()
		id := t.cameraIDs[label]
		t.mu.Unlock()
		if id != "" {
			ctrl.SetDevice(id)
		}
	})
	t.cameraSelect.PlaceHolder = "No cameras detected"
	detectBtn := widget.NewButton("Detect Cameras", func() {
		go func() {
			if _, err := ctrl.DetectCameras(t.controller.Context()); err != nil {
				t.controller.logger.Error("Camera detection failed", err)
			}
		}()
	})

	tiers := make([]string, 0, 4)
	for _, tier := range camera.Tiers() {
		tiers = append(tiers, string(tier))
	}
	t.tierSelect = widget.NewSelect(tiers, func(s string) {
		if tier, err := camera.ParseTier(s); err == nil {
			ctrl.SetTier(tier)
		}
	})
	t.tierSelect.SetSelected(string(opts.Tier))

	t.styleSelect = widget.NewSelect([]string{string(overlay.StyleGuidedFrame), string(overlay.StyleGrid)}, func(s string) {
		if style, err := overlay.ParseStyle(s); err == nil {
			ctrl.SetStyle(style)
		}
	})
	t.styleSelect.SetSelected(string(opts.Style))

	// Corrections
	t.brightness = widget.NewCheck("Brightness", func(bool) { t.applyCorrections() })
	t.glare = widget.NewCheck("Glare reduction", func(bool) { t.applyCorrections() })
	t.sharpen = widget.NewCheck("Edge enhancement", func(bool) { t.applyCorrections() })
	t.brightness.SetChecked(opts.Corrections.Brightness)
	t.glare.SetChecked(opts.Corrections.GlareReduction)
	t.sharpen.SetChecked(opts.Corrections.EdgeEnhancement)

	// Actions
	t.startBtn = widget.NewButton("Start Camera", t.toggleStream)
	t.startBtn.Importance = widget.HighImportance
	t.captureBtn = widget.NewButton("Capture & Identify", t.capture)
	t.captureBtn.Disable()
	t.uploadBtn = widget.NewButton("Identify Image File...", t.upload)
	t.busy = widget.NewProgressBarInfinite()
	t.busy.Stop()
	t.busy.Hide()

	t.errorLabel = widget.NewLabel("")
	t.errorLabel.Wrapping = fyne.TextWrapWord
	t.errorLabel.Importance = widget.DangerImportance
	t.errorLabel.Hide()

	// Result
	t.captureImage = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	t.captureImage.FillMode = canvas.ImageFillContain
	t.captureImage.SetMinSize(fyne.NewSize(180, 250))
	t.artImage = canvas.NewImageFromImage(nil)
	t.artImage.FillMode = canvas.ImageFillContain
	t.artImage.SetMinSize(fyne.NewSize(cardArtWidth*3/4, cardArtHeight*3/4))
	t.artImage.Hide()
	t.resultLabel = widget.NewLabel("No card scanned yet")
	t.resultLabel.Wrapping = fyne.TextWrapWord
	t.detailsLabel = widget.NewLabel("")
	t.detailsLabel.Wrapping = fyne.TextWrapWord
	t.addBtn = widget.NewButton("Add to Collection", t.addLastMatch)
	t.addBtn.Disable()

	controls := container.NewVBox(
		components.Section("Camera", container.NewVBox(
			t.cameraSelect,
			detectBtn,
			widget.NewForm(
				widget.NewFormItem("Resolution", t.tierSelect),
				widget.NewFormItem("Overlay", t.styleSelect),
			),
		)),
		components.Section("Image Processing", container.NewVBox(t.brightness, t.glare, t.sharpen)),
		components.Panel(container.NewVBox(t.startBtn, t.captureBtn, t.uploadBtn, t.busy)),
		t.errorLabel,
		components.Section("Last Scan", container.NewVBox(
			container.NewGridWithColumns(2, t.captureImage, t.artImage),
			t.resultLabel,
			t.detailsLabel,
			t.addBtn,
		)),
	)

	return container.NewHSplit(
		container.NewBorder(nil, t.trackLabel, nil, nil, t.viewfinder),
		container.NewVScroll(controls),
	)
}

// StatusBar shows the catalog connection; built lazily so Build can run first
func (t *ScannerTab) StatusBar() fyne.CanvasObject {
	if t.statusBar == nil {
		text, style := catalogBadge(t.controller.app.Catalog.Status(), t.controller.app.Catalog.Len())
		t.catalogBadge = components.NewBadge(text, style)
		t.statusBar = container.NewHBox(t.catalogBadge.Object())
	}
	return t.statusBar
}

func (t *ScannerTab) updateCatalogStatus() {
	if t.catalogBadge == nil {
		return
	}
	cat := t.controller.app.Catalog
	text, style := catalogBadge(cat.Status(), cat.Len())
	t.catalogBadge.Set(text, style)
}

func (t *ScannerTab) applyCorrections() {
	if t.brightness == nil || t.glare == nil || t.sharpen == nil {
		return
	}
	t.controller.app.Scanner.SetCorrections(vision.Corrections{
		Brightness:      t.brightness.Checked,
		GlareReduction:  t.glare.Checked,
		EdgeEnhancement: t.sharpen.Checked,
	})
}

func (t *ScannerTab) toggleStream() {
	t.mu.Lock()
	scanning := t.scanning
	t.mu.Unlock()

	ctrl := t.controller.app.Scanner
	if scanning {
		go ctrl.StopStream()
		return
	}

	t.startBtn.Disable()
	go func() {
		ctx, cancel := context.WithTimeout(t.controller.Context(), 30*time.Second)
		defer cancel()
		err := ctrl.StartStream(ctx)
		fyne.Do(func() { t.startBtn.Enable() })
		if err != nil {
			t.controller.logger.Error("Failed to start camera", err)
		}
	}()
}

func (t *ScannerTab) capture() {
	t.setBusy(true)
	go func() {
		defer fyne.Do(func() { t.setBusy(false) })

		capture, match, err := t.controller.app.CaptureAndRecognize(t.controller.Context())
		t.showResult(capture, match, err)
	}()
}

func (t *ScannerTab) upload() {
	dialog.ShowFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			t.controller.ShowError(err)
			return
		}
		if r == nil {
			return
		}

		t.setBusy(true)
		go func() {
			defer fyne.Do(func() { t.setBusy(false) })
			defer r.Close()

			data, err := io.ReadAll(io.LimitReader(r, vision.MaxUploadBytes+1))
			if err != nil {
				t.controller.ShowError(fmt.Errorf("failed to read image: %w", err))
				return
			}
			capture, match, err := t.controller.app.RecognizeUpload(t.controller.Context(), data)
			if capture == nil && err != nil {
				t.controller.ShowError(err)
				return
			}
			t.showResult(capture, match, err)
		}()
	}, t.controller.window)
}

// showResult renders a capture and its match. Safe from any goroutine.
func (t *ScannerTab) showResult(capture *vision.CaptureResult, match *recognition.Match, err error) {
	if capture == nil {
		if err != nil && !errors.Is(err, context.Canceled) {
			t.controller.ShowError(err)
		}
		return
	}

	preview, decodeErr := capture.Decode()

	t.mu.Lock()
	t.lastMatch = match
	t.mu.Unlock()

	fyne.Do(func() {
		if decodeErr == nil {
			t.captureImage.Image = preview
			t.captureImage.Refresh()
		}
		if err != nil {
			t.resultLabel.SetText(recognition.UserMessage(err))
			t.detailsLabel.SetText("")
			t.artImage.Hide()
			t.addBtn.Disable()
			return
		}
		t.controller.loadArt(match.Card, t.artImage)
		t.resultLabel.SetText(matchSummary(match))
		t.detailsLabel.SetText(cardDetails(match.Card))
		t.addBtn.Enable()
	})
}

func (t *ScannerTab) addLastMatch() {
	t.mu.Lock()
	match := t.lastMatch
	t.mu.Unlock()
	if match == nil {
		return
	}

	go func() {
		card, qty, err := t.controller.app.AddToCollection(match.Card.ID)
		if err != nil {
			t.controller.ShowError(err)
			return
		}
		t.controller.ShowInfo("Collection", "%s added to your collection (now %d)", card.Name, qty)
	}()
}

func (t *ScannerTab) setBusy(busy bool) {
	if busy {
		t.captureBtn.Disable()
		t.uploadBtn.Disable()
		t.busy.Show()
		t.busy.Start()
		return
	}
	t.busy.Stop()
	t.busy.Hide()
	t.uploadBtn.Enable()

	t.mu.Lock()
	scanning := t.scanning
	t.mu.Unlock()
	if scanning {
		t.captureBtn.Enable()
	}
}

// listener adapts controller notifications onto the UI goroutine
func (t *ScannerTab) listener() scanner.Listener {
	return scanner.ListenerFuncs{
		OnCamerasChanged: func(cams []camera.Descriptor, selectedID string) {
			labels := make([]string, 0, len(cams))
			ids := make(map[string]string, len(cams))
			selected := ""
			for _, d := range cams {
				label := d.Label
				if label == "" {
					label = d.DeviceID
				}
				if _, dup := ids[label]; dup {
					label = fmt.Sprintf("%s (%s)", label, d.DeviceID)
				}
				labels = append(labels, label)
				ids[label] = d.DeviceID
				if d.DeviceID == selectedID {
					selected = label
				}
			}

			t.mu.Lock()
			t.cameraIDs = ids
			t.mu.Unlock()

			fyne.Do(func() {
				t.cameraSelect.Options = labels
				if selected != "" {
					t.cameraSelect.SetSelected(selected)
				}
				t.cameraSelect.Refresh()
			})
		},
		OnErrorChanged: func(message string) {
			fyne.Do(func() {
				t.errorLabel.SetText(message)
				if message == "" {
					t.errorLabel.Hide()
				} else {
					t.errorLabel.Show()
				}
			})
		},
		OnScanningChanged: func(scanning bool) {
			t.mu.Lock()
			t.scanning = scanning
			t.mu.Unlock()

			if scanning {
				t.startPreview()
			} else {
				t.stopPreview()
			}

			fyne.Do(func() {
				t.trackLabel.SetText(trackingText(scanning, nil))
				if scanning {
					t.startBtn.SetText("Stop Camera")
					t.captureBtn.Enable()
				} else {
					t.startBtn.SetText("Start Camera")
					t.captureBtn.Disable()
					t.videoImage.Image = blankImage()
					t.videoImage.Refresh()
				}
			})
		},
		OnCardDetected: func(bounds *vision.CardBounds) {
			fyne.Do(func() {
				t.trackLabel.SetText(trackingText(true, bounds))
			})
		},
	}
}

// startPreview copies the latest frame and overlay into the viewfinder until
// stopped, and keeps the overlay sized to the area it is shown in
func (t *ScannerTab) startPreview() {
	t.previewMu.Lock()
	defer t.previewMu.Unlock()

	if t.stopPreviewCh != nil {
		return
	}
	stop := make(chan struct{})
	t.stopPreviewCh = stop

	go func() {
		ticker := time.NewTicker(previewInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.refreshPreview()
			}
		}
	}()
}

func (t *ScannerTab) refreshPreview() {
	ctrl := t.controller.app.Scanner
	frame := ctrl.Frame()
	var snap *image.RGBA
	if surface := ctrl.Overlay(); surface != nil {
		snap = surface.Snapshot()
	}
	if frame == nil && snap == nil {
		return
	}

	fyne.Do(func() {
		if frame != nil {
			t.videoImage.Image = frame
			t.videoImage.Refresh()

			size := t.viewfinder.Size()
			scale := float32(1)
			if c := fyne.CurrentApp().Driver().CanvasForObject(t.viewfinder); c != nil {
				scale = c.Scale()
			}
			if display := fitDisplay(frame.Bounds().Size(), size.Width, size.Height, scale); display != (image.Point{}) {
				ctrl.SetDisplaySize(display.X, display.Y)
			}
		}
		if snap != nil {
			t.overlayImage.Image = snap
			t.overlayImage.Refresh()
		}
	})
}

func blankImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

func (t *ScannerTab) stopPreview() {
	t.previewMu.Lock()
	defer t.previewMu.Unlock()

	if t.stopPreviewCh != nil {
		close(t.stopPreviewCh)
		t.stopPreviewCh = nil
	}
}
