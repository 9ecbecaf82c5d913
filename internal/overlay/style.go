package overlay

import (
	"fmt"
	"strings"
)

// Style picks the overlay variant
type Style string

const (
	StyleGuidedFrame Style = "guided-frame"
	StyleGrid        Style = "grid"

	DefaultStyle = StyleGuidedFrame
)

// ParseStyle accepts "guided-frame" (or "guided") and "grid"
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "guided-frame", "guided", "frame":
		return StyleGuidedFrame, nil
	case "grid":
		return StyleGrid, nil
	}
	return "", fmt.Errorf("unknown overlay style %q", s)
}
