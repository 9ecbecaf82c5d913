package gui

import (
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/mtg-scanner-go/internal/database"
	"jordanella.com/mtg-scanner-go/internal/gui/components"
)

// CollectionTab lists owned cards with quantities and value
type CollectionTab struct {
	controller *Controller

	totalsLabel *widget.Label
	list        *widget.List
	removeBtn   *widget.Button

	mu       sync.Mutex
	items    []*database.CollectionCard
	selected int
}

// NewCollectionTab creates the collection tab
func NewCollectionTab(ctrl *Controller) *CollectionTab {
	return &CollectionTab{controller: ctrl, selected: -1}
}

// Build constructs the collection UI
func (t *CollectionTab) Build() fyne.CanvasObject {
	t.totalsLabel = widget.NewLabel("")

	t.list = widget.NewList(
		func() int {
			t.mu.Lock()
			defer t.mu.Unlock()
			return len(t.items)
		},
		func() fyne.CanvasObject {
			return container.NewBorder(nil, nil, widget.NewLabel("0x"), widget.NewLabel("$0.00"), widget.NewLabel("card name"))
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			t.mu.Lock()
			if id >= len(t.items) {
				t.mu.Unlock()
				return
			}
			c := t.items[id]
			t.mu.Unlock()

			// Border puts the center object first
			box := item.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(fmt.Sprintf("%s  %s  %s", c.Name, c.ManaCost, c.TypeLine))
			box.Objects[1].(*widget.Label).SetText(fmt.Sprintf("%dx", c.Quantity))
			box.Objects[2].(*widget.Label).SetText(formatPrice(c.Value()))
		},
	)
	t.list.OnSelected = func(id widget.ListItemID) {
		t.mu.Lock()
		t.selected = id
		t.mu.Unlock()
		t.removeBtn.Enable()
	}

	t.removeBtn = widget.NewButton("Remove Card", t.removeSelected)
	t.removeBtn.Importance = widget.DangerImportance
	t.removeBtn.Disable()

	refreshBtn := widget.NewButton("Refresh", t.Refresh)

	header := container.NewVBox(
		components.Heading("My Collection"),
		container.NewHBox(t.totalsLabel, refreshBtn, t.removeBtn),
	)
	return container.NewBorder(header, nil, nil, nil, t.list)
}

// Refresh reloads the collection from the database. Call from the UI goroutine.
func (t *CollectionTab) Refresh() {
	if t.list == nil {
		return
	}
	go func() {
		svc := t.controller.app.Collection
		items, err := svc.List()
		if err != nil {
			t.controller.logger.Error("Failed to load collection", err)
			return
		}
		totals, err := svc.Totals()
		if err != nil {
			t.controller.logger.Error("Failed to load collection totals", err)
			return
		}

		t.mu.Lock()
		t.items = items
		t.selected = -1
		t.mu.Unlock()

		fyne.Do(func() {
			t.totalsLabel.SetText(fmt.Sprintf("%d unique, %d total cards, value %s",
				totals.UniqueCards, totals.TotalCards, formatPrice(totals.TotalValue)))
			t.list.UnselectAll()
			t.list.Refresh()
			t.removeBtn.Disable()
		})
	}()
}

func (t *CollectionTab) removeSelected() {
	t.mu.Lock()
	var c *database.CollectionCard
	if t.selected >= 0 && t.selected < len(t.items) {
		c = t.items[t.selected]
	}
	t.mu.Unlock()
	if c == nil {
		return
	}

	dialog.ShowConfirm("Remove Card", fmt.Sprintf("Remove every copy of %s?", c.Name), func(ok bool) {
		if !ok {
			return
		}
		go func() {
			if err := t.controller.app.Collection.Remove(c.CardID); err != nil {
				t.controller.ShowError(err)
			}
		}()
	}, t.controller.window)
}
