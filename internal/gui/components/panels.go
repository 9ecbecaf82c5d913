package components

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
)

// Panel wraps content in a rounded, slightly elevated background
func Panel(content fyne.CanvasObject) *fyne.Container {
	bg := canvas.NewRectangle(elevated(theme.Color(theme.ColorNameBackground)))
	bg.CornerRadius = 4
	bg.StrokeColor = theme.Color(theme.ColorNameSeparator)
	bg.StrokeWidth = 1

	return container.NewStack(bg, container.NewPadded(content))
}

// Section is a Panel with a subheading above its content
func Section(title string, content fyne.CanvasObject) *fyne.Container {
	return Panel(container.NewVBox(Subheading(title), content))
}

// elevated lightens c a little so panels stand out from the window
func elevated(c color.Color) color.Color {
	r, g, b, a := c.RGBA()
	return color.NRGBA{
		R: lift(r),
		G: lift(g),
		B: lift(b),
		A: uint8(a >> 8),
	}
}

func lift(v uint32) uint8 {
	v = v>>8 + 5
	if v > 255 {
		return 255
	}
	return uint8(v)
}
