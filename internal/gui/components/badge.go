package components

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// BadgeStyle selects a badge color
type BadgeStyle int

const (
	BadgeDefault BadgeStyle = iota
	BadgeSuccess
	BadgeWarning
	BadgeDanger
	BadgeInfo
)

// Badge is a small colored label whose text and style can change
type Badge struct {
	bg    *canvas.Rectangle
	label *widget.Label
	box   *fyne.Container
}

// NewBadge creates a badge
func NewBadge(text string, style BadgeStyle) *Badge {
	b := &Badge{
		bg:    canvas.NewRectangle(BadgeColor(style)),
		label: widget.NewLabel(text),
	}
	b.bg.CornerRadius = 8
	b.box = container.NewStack(b.bg, b.label)
	return b
}

// Object returns the badge's canvas object
func (b *Badge) Object() fyne.CanvasObject {
	return b.box
}

// Set changes the text and color. Call from the UI goroutine.
func (b *Badge) Set(text string, style BadgeStyle) {
	b.label.SetText(text)
	b.bg.FillColor = BadgeColor(style)
	b.bg.Refresh()
}

// BadgeColor returns the background color for a style
func BadgeColor(style BadgeStyle) color.Color {
	switch style {
	case BadgeSuccess:
		return color.NRGBA{R: 76, G: 175, B: 80, A: 255}
	case BadgeWarning:
		return color.NRGBA{R: 255, G: 152, B: 0, A: 255}
	case BadgeDanger:
		return color.NRGBA{R: 244, G: 67, B: 54, A: 255}
	case BadgeInfo:
		return color.NRGBA{R: 33, G: 150, B: 243, A: 255}
	default:
		return color.NRGBA{R: 140, G: 140, B: 140, A: 255}
	}
}
