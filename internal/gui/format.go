package gui

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strings"

	"jordanella.com/mtg-scanner-go/internal/cards"
	"jordanella.com/mtg-scanner-go/internal/events"
	"jordanella.com/mtg-scanner-go/internal/gui/components"
	"jordanella.com/mtg-scanner-go/internal/recognition"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

// fitDisplay returns the largest size with the video's aspect that fits in
// area, in pixels. Zero means nothing is laid out yet.
func fitDisplay(video image.Point, areaW, areaH, scale float32) image.Point {
	if video.X <= 0 || video.Y <= 0 || areaW <= 0 || areaH <= 0 {
		return image.Point{}
	}
	if scale <= 0 {
		scale = 1
	}
	w, h := float64(areaW*scale), float64(areaH*scale)
	fit := math.Min(w/float64(video.X), h/float64(video.Y))
	return image.Pt(
		max(1, int(math.Round(float64(video.X)*fit))),
		max(1, int(math.Round(float64(video.Y)*fit))),
	)
}

func formatPrice(price float64) string {
	return fmt.Sprintf("$%.2f", price)
}

// catalogBadge describes the Scryfall connection for the status badge
func catalogBadge(status cards.Status, count int) (string, components.BadgeStyle) {
	switch status {
	case cards.StatusConnected:
		return fmt.Sprintf("Scryfall connected (%d cards)", count), components.BadgeSuccess
	case cards.StatusConnecting, cards.StatusChecking:
		return "Connecting to Scryfall...", components.BadgeInfo
	case cards.StatusError:
		return fmt.Sprintf("Offline (%d fallback cards)", count), components.BadgeDanger
	}
	return string(status), components.BadgeDefault
}

// trackingText is the line under the viewfinder
func trackingText(scanning bool, bounds *vision.CardBounds) string {
	switch {
	case !scanning:
		return "Camera stopped"
	case bounds == nil:
		return "Position a card inside the frame"
	default:
		return fmt.Sprintf("Card detected at %d,%d (%dx%d)", bounds.X, bounds.Y, bounds.Width, bounds.Height)
	}
}

// cardDetails renders a card for the details panel
func cardDetails(c cards.Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", c.Name, c.ManaCost)
	fmt.Fprintf(&b, "%s | %s", c.Type, c.Rarity)
	if c.SetName != "" {
		fmt.Fprintf(&b, " | %s", c.SetName)
	}
	b.WriteString("\n")
	if c.HasStats() {
		fmt.Fprintf(&b, "%s/%s\n", c.Power, c.Toughness)
	}
	fmt.Fprintf(&b, "Price: %s\n\n%s", formatPrice(c.Price), c.Text)
	if c.Artist != "" {
		fmt.Fprintf(&b, "\n\nIllustrated by %s", c.Artist)
	}
	return b.String()
}

func matchSummary(m *recognition.Match) string {
	return fmt.Sprintf("%s (%d%% confidence, %s)", m.Card.Name, m.Confidence, m.Method)
}

// eventLine formats a bus event as a single log line with sorted data keys
func eventLine(e events.Event) string {
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(e.Type))
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	return b.String()
}
