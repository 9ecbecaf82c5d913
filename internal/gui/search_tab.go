package gui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/mtg-scanner-go/internal/cards"
	"jordanella.com/mtg-scanner-go/internal/gui/components"
)

// SearchTab queries the catalog as the user types
type SearchTab struct {
	controller *Controller
	debounce   *Debouncer

	entry       *widget.Entry
	statusLabel *widget.Label
	resultList  *widget.List
	art         *canvas.Image
	details     *widget.Label
	addBtn      *widget.Button

	mu       sync.Mutex
	results  []cards.Card
	selected int
	cancel   context.CancelFunc
}

// NewSearchTab creates the search tab
func NewSearchTab(ctrl *Controller) *SearchTab {
	return &SearchTab{
		controller: ctrl,
		debounce:   NewDebouncer(SearchDebounce),
		selected:   -1,
	}
}

// Build constructs the search UI
func (t *SearchTab) Build() fyne.CanvasObject {
	t.entry = widget.NewEntry()
	t.entry.SetPlaceHolder("Search cards by name, type or rules text")
	t.entry.OnChanged = func(q string) {
		t.debounce.Trigger(func() { t.search(q) })
	}
	t.entry.OnSubmitted = func(q string) {
		t.debounce.Cancel()
		t.search(q)
	}

	t.statusLabel = widget.NewLabel("")

	t.resultList = widget.NewList(
		func() int {
			t.mu.Lock()
			defer t.mu.Unlock()
			return len(t.results)
		},
		func() fyne.CanvasObject {
			return container.NewBorder(nil, nil, nil, widget.NewLabel("$0.00"), widget.NewLabel("card name"))
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			t.mu.Lock()
			if id >= len(t.results) {
				t.mu.Unlock()
				return
			}
			c := t.results[id]
			t.mu.Unlock()

			box := item.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(fmt.Sprintf("%s  %s  (%s)", c.Name, c.ManaCost, c.Rarity))
			box.Objects[1].(*widget.Label).SetText(formatPrice(c.Price))
		},
	)
	t.resultList.OnSelected = func(id widget.ListItemID) {
		t.mu.Lock()
		t.selected = id
		var c cards.Card
		ok := id < len(t.results)
		if ok {
			c = t.results[id]
		}
		t.mu.Unlock()

		if ok {
			t.details.SetText(cardDetails(c))
			t.addBtn.Enable()
			t.controller.loadArt(c, t.art)
		}
	}

	t.art = canvas.NewImageFromImage(nil)
	t.art.FillMode = canvas.ImageFillContain
	t.art.SetMinSize(fyne.NewSize(cardArtWidth, cardArtHeight))
	t.art.Hide()

	t.details = widget.NewLabel("Select a card to see its details")
	t.details.Wrapping = fyne.TextWrapWord
	t.addBtn = widget.NewButton("Add to Collection", t.addSelected)
	t.addBtn.Disable()

	detailPanel := components.Section("Details", container.NewVBox(t.art, t.details, t.addBtn))

	return container.NewBorder(
		container.NewVBox(components.Heading("Card Search"), t.entry, t.statusLabel),
		nil, nil, nil,
		container.NewHSplit(t.resultList, container.NewVScroll(detailPanel)),
	)
}

// search runs on the debounce goroutine; a newer search cancels older ones
func (t *SearchTab) search(query string) {
	ctx, cancel := context.WithCancel(t.controller.Context())

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.cancel = cancel
	t.mu.Unlock()

	fyne.Do(func() { t.statusLabel.SetText("Searching...") })

	go func() {
		defer cancel()

		results, err := t.controller.app.Search(ctx, query)
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		t.mu.Lock()
		t.results = results
		t.selected = -1
		t.mu.Unlock()

		fyne.Do(func() {
			switch {
			case err != nil:
				t.statusLabel.SetText(fmt.Sprintf("Search failed: %v", err))
			case query == "":
				t.statusLabel.SetText("")
			default:
				t.statusLabel.SetText(fmt.Sprintf("%d result(s)", len(results)))
			}
			t.resultList.UnselectAll()
			t.resultList.Refresh()
			t.addBtn.Disable()
		})
	}()
}

func (t *SearchTab) addSelected() {
	t.mu.Lock()
	var c cards.Card
	ok := t.selected >= 0 && t.selected < len(t.results)
	if ok {
		c = t.results[t.selected]
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	go func() {
		card, qty, err := t.controller.app.AddToCollection(c.ID)
		if err != nil {
			t.controller.ShowError(err)
			return
		}
		t.controller.ShowInfo("Collection", "%s added to your collection (now %d)", card.Name, qty)
	}()
}
