package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Heading creates a large, bold heading
func Heading(text string) *widget.RichText {
	return styled(text, theme.SizeNameHeadingText, fyne.TextStyle{Bold: true}, "")
}

// Subheading creates a section header
func Subheading(text string) *widget.RichText {
	return styled(text, theme.SizeNameSubHeadingText, fyne.TextStyle{Bold: true}, "")
}

// Caption creates small secondary text
func Caption(text string) *widget.RichText {
	return styled(text, theme.SizeNameCaptionText, fyne.TextStyle{}, theme.ColorNameForeground)
}

// Body creates wrapping body text
func Body(text string) *widget.Label {
	label := widget.NewLabel(text)
	label.Wrapping = fyne.TextWrapWord
	return label
}

func styled(text string, size fyne.ThemeSizeName, style fyne.TextStyle, colorName fyne.ThemeColorName) *widget.RichText {
	return widget.NewRichText(&widget.TextSegment{
		Text: text,
		Style: widget.RichTextStyle{
			SizeName:  size,
			TextStyle: style,
			ColorName: colorName,
		},
	})
}
