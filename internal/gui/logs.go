package gui

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/mtg-scanner-go/internal/events"
)

const (
	maxLogEntries = 1000
	filterAll     = "All"
)

var logSources = []string{filterAll, "scanner", "tracking", "recognition", "catalog", "collection"}

// eventHistory is a bounded, filterable list of bus events
type eventHistory struct {
	mu      sync.RWMutex
	entries []events.Event
	max     int
}

func newEventHistory(max int) *eventHistory {
	return &eventHistory{entries: make([]events.Event, 0, max), max: max}
}

func (h *eventHistory) add(e events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, e)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

func (h *eventHistory) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make([]events.Event, 0, h.max)
}

// filtered returns entries from source, or every entry for "All" or ""
func (h *eventHistory) filtered(source string) []events.Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]events.Event, 0, len(h.entries))
	for _, e := range h.entries {
		if source == "" || source == filterAll || e.Source == source {
			out = append(out, e)
		}
	}
	return out
}

// EventLogTab shows everything published on the event bus
type EventLogTab struct {
	controller *Controller
	history    *eventHistory

	logList         *widget.List
	filterSelect    *widget.Select
	autoScrollCheck *widget.Check

	viewMu sync.Mutex
	view   []events.Event
}

// NewEventLogTab creates the event log tab
func NewEventLogTab(ctrl *Controller) *EventLogTab {
	return &EventLogTab{
		controller: ctrl,
		history:    newEventHistory(maxLogEntries),
	}
}

// Build constructs the log viewer UI
func (l *EventLogTab) Build() fyne.CanvasObject {
	header := widget.NewLabelWithStyle("Event Log", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	l.filterSelect = widget.NewSelect(logSources, func(string) { l.refresh() })
	l.filterSelect.SetSelected(filterAll)

	l.autoScrollCheck = widget.NewCheck("Auto-scroll", nil)
	l.autoScrollCheck.SetChecked(true)

	clearBtn := widget.NewButton("Clear Log", func() {
		l.history.clear()
		l.refresh()
	})

	controls := container.NewHBox(
		widget.NewLabel("Source:"),
		l.filterSelect,
		l.autoScrollCheck,
		clearBtn,
	)

	l.logList = widget.NewList(
		func() int {
			l.viewMu.Lock()
			defer l.viewMu.Unlock()
			return len(l.view)
		},
		func() fyne.CanvasObject {
			return container.NewHBox(
				widget.NewLabel("15:04:05"),
				widget.NewLabel("[source]"),
				widget.NewLabel("message"),
			)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			l.viewMu.Lock()
			if id >= len(l.view) {
				l.viewMu.Unlock()
				return
			}
			e := l.view[id]
			l.viewMu.Unlock()

			box := item.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(e.Timestamp.Format("15:04:05"))

			source := box.Objects[1].(*widget.Label)
			source.SetText("[" + e.Source + "]")
			switch e.Type {
			case events.EventTypeRecognitionFailed, events.EventTypeErrorChanged:
				source.Importance = widget.DangerImportance
			case events.EventTypeCardRecognized, events.EventTypeCollectionChanged:
				source.Importance = widget.SuccessImportance
			default:
				source.Importance = widget.MediumImportance
			}
			source.Refresh()

			box.Objects[2].(*widget.Label).SetText(eventLine(e))
		},
	)

	return container.NewBorder(container.NewVBox(header, controls), nil, nil, nil, l.logList)
}

// AddEvent records an event. Safe from any goroutine.
func (l *EventLogTab) AddEvent(e events.Event) {
	l.history.add(e)
	fyne.Do(l.refresh)
}

// refresh rebuilds the filtered view. Call from the UI goroutine.
func (l *EventLogTab) refresh() {
	if l.logList == nil {
		return
	}
	source := filterAll
	if l.filterSelect != nil && l.filterSelect.Selected != "" {
		source = l.filterSelect.Selected
	}

	view := l.history.filtered(source)
	l.viewMu.Lock()
	l.view = view
	l.viewMu.Unlock()

	l.logList.Refresh()
	if l.autoScrollCheck != nil && l.autoScrollCheck.Checked {
		l.logList.ScrollToBottom()
	}
}
