package camera

import (
	"fmt"
	"strings"
)

// Descriptor identifies one video input device
type Descriptor struct {
	DeviceID string `json:"deviceId"`
	Label    string `json:"label"`
	GroupID  string `json:"groupId,omitempty"`
}

// Tier is a requested capture resolution class
type Tier string

const (
	TierLow      Tier = "low"
	TierStandard Tier = "standard"
	TierHigh     Tier = "high"
	TierUltra    Tier = "ultra"

	DefaultTier = TierStandard
)

// Resolution is an ideal width and height in pixels
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

var tierResolutions = map[Tier]Resolution{
	TierLow:      {Width: 640, Height: 480},
	TierStandard: {Width: 1280, Height: 720},
	TierHigh:     {Width: 1920, Height: 1080},
	TierUltra:    {Width: 3840, Height: 2160},
}

var tierAliases = map[string]Tier{
	"low":      TierLow,
	"sd":       TierLow,
	"standard": TierStandard,
	"hd":       TierStandard,
	"high":     TierHigh,
	"fhd":      TierHigh,
	"ultra":    TierUltra,
	"4k":       TierUltra,
}

// Tiers lists every tier from lowest to highest
func Tiers() []Tier {
	return []Tier{TierLow, TierStandard, TierHigh, TierUltra}
}

// ParseTier accepts a tier name or one of sd, hd, fhd, 4k
func ParseTier(s string) (Tier, error) {
	if t, ok := tierAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown resolution tier %q", s)
}

// Valid reports whether t is one of the four known tiers
func (t Tier) Valid() bool {
	_, ok := tierResolutions[t]
	return ok
}

// Resolution returns the ideal resolution, falling back to the default tier's
func (t Tier) Resolution() Resolution {
	if r, ok := tierResolutions[t]; ok {
		return r
	}
	return tierResolutions[DefaultTier]
}

const (
	FacingEnvironment = "environment"
	ModeContinuous    = "continuous"
	CardAspectHint    = 4.0 / 3.0
)

// Constraints is the full request handed to a Backend when opening a stream
type Constraints struct {
	DeviceID         string  `json:"deviceId,omitempty"`
	FacingMode       string  `json:"facingMode,omitempty"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	AspectRatio      float64 `json:"aspectRatio"`
	FocusMode        string  `json:"focusMode"`
	ExposureMode     string  `json:"exposureMode"`
	WhiteBalanceMode string  `json:"whiteBalanceMode"`
}

// BuildConstraints derives stream constraints for a tier. A non-empty device
// id pins that device exactly and omits the facing hint.
func BuildConstraints(deviceID string, tier Tier) Constraints {
	res := tier.Resolution()
	c := Constraints{
		Width:            res.Width,
		Height:           res.Height,
		AspectRatio:      CardAspectHint,
		FocusMode:        ModeContinuous,
		ExposureMode:     ModeContinuous,
		WhiteBalanceMode: ModeContinuous,
	}
	if deviceID != "" {
		c.DeviceID = deviceID
	} else {
		c.FacingMode = FacingEnvironment
	}
	return c
}
