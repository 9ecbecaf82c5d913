package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var (
	// DefaultWindowSize is the default window dimensions
	DefaultWindowSize = fyne.NewSize(1200, 800)

	ColorPrimary    = color.NRGBA{R: 46, G: 125, B: 50, A: 255}
	ColorSuccess    = color.NRGBA{R: 76, G: 175, B: 80, A: 255}
	ColorWarning    = color.NRGBA{R: 255, G: 152, B: 0, A: 255}
	ColorError      = color.NRGBA{R: 244, G: 67, B: 54, A: 255}
	ColorBackground = color.NRGBA{R: 18, G: 18, B: 18, A: 255}

	// ColorViewfinder fills the preview area behind the overlay
	ColorViewfinder = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
)

// card art display size, at the standard 63x88 card proportions
const (
	cardArtWidth  = 244
	cardArtHeight = 340
)

// ScannerTheme is the dark theme used by the scanner window
type ScannerTheme struct{}

func (t *ScannerTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return ColorPrimary
	case theme.ColorNameBackground:
		return ColorBackground
	case theme.ColorNameButton:
		return ColorPrimary
	case theme.ColorNameSuccess:
		return ColorSuccess
	case theme.ColorNameWarning:
		return ColorWarning
	case theme.ColorNameError:
		return ColorError
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *ScannerTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *ScannerTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *ScannerTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 14
	case theme.SizeNameHeadingText:
		return 20
	case theme.SizeNameSubHeadingText:
		return 16
	case theme.SizeNamePadding:
		return 6
	default:
		return theme.DefaultTheme().Size(name)
	}
}
