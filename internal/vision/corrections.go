package vision

import "image"

const (
	// TargetLuminance is the mean brightness normalization aims for
	TargetLuminance = 128.0
	// BrightnessTrigger is the minimum target/mean ratio that triggers scaling
	BrightnessTrigger = 1.2
	// GlareLevel is the per-channel value all of R, G and B must exceed
	GlareLevel = 240
	// GlareFactor scales glare pixels down
	GlareFactor = 0.8
)

// Corrections selects which capture filters run. The same type reports
// which filters changed the image.
type Corrections struct {
	Brightness      bool `json:"brightness" ini:"brightness"`
	GlareReduction  bool `json:"glareReduction" ini:"glareReduction"`
	EdgeEnhancement bool `json:"edgeEnhancement" ini:"edgeEnhancement"`
}

// DefaultCorrections enables every filter
func DefaultCorrections() Corrections {
	return Corrections{Brightness: true, GlareReduction: true, EdgeEnhancement: true}
}

// ApplyCorrections runs the enabled filters in place in fixed order:
// brightness, glare, sharpening
func ApplyCorrections(img *image.RGBA, c Corrections) Corrections {
	var applied Corrections
	if c.Brightness {
		applied.Brightness = NormalizeBrightness(img)
	}
	if c.GlareReduction {
		applied.GlareReduction = ReduceGlare(img)
	}
	if c.EdgeEnhancement {
		applied.EdgeEnhancement = Sharpen(img)
	}
	return applied
}

// MeanLuminance averages Rec.601 luminance over every pixel
func MeanLuminance(img *image.RGBA) float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var sum float64
	for y := 0; y < h; y++ {
		row := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		for x := 0; x < w; x++ {
			i := x * 4
			sum += luma(row[i], row[i+1], row[i+2])
		}
	}
	return sum / float64(w*h)
}

// NormalizeBrightness scales every channel by 128/mean when that ratio
// exceeds 1.2, clamping at 255. It reports whether scaling happened.
// A completely black image is left alone.
func NormalizeBrightness(img *image.RGBA) bool {
	mean := MeanLuminance(img)
	if mean <= 0 {
		return false
	}

	ratio := TargetLuminance / mean
	if ratio <= BrightnessTrigger {
		return false
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		for x := 0; x < w; x++ {
			i := x * 4
			row[i] = clamp(float64(row[i]) * ratio)
			row[i+1] = clamp(float64(row[i+1]) * ratio)
			row[i+2] = clamp(float64(row[i+2]) * ratio)
		}
	}
	return true
}

// ReduceGlare darkens pixels where every channel exceeds 240 and reports
// whether any pixel was touched
func ReduceGlare(img *image.RGBA) bool {
	changed := false
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		for x := 0; x < w; x++ {
			i := x * 4
			if row[i] > GlareLevel && row[i+1] > GlareLevel && row[i+2] > GlareLevel {
				row[i] = uint8(float64(row[i]) * GlareFactor)
				row[i+1] = uint8(float64(row[i+1]) * GlareFactor)
				row[i+2] = uint8(float64(row[i+2]) * GlareFactor)
				changed = true
			}
		}
	}
	return changed
}

// Sharpen applies a 3×3 kernel (centre 9, neighbours -1) to each colour
// channel of interior pixels. Reads come from a snapshot of the input.
// It reports whether any value changed.
func Sharpen(img *image.RGBA) bool {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w < 3 || h < 3 {
		return false
	}

	src := make([]uint8, len(img.Pix))
	copy(src, img.Pix)
	stride := img.Stride

	changed := false
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			base := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
			for c := 0; c < 3; c++ {
				i := base + c
				sum := 9 * int(src[i])
				sum -= int(src[i-stride-4]) + int(src[i-stride]) + int(src[i-stride+4])
				sum -= int(src[i-4]) + int(src[i+4])
				sum -= int(src[i+stride-4]) + int(src[i+stride]) + int(src[i+stride+4])

				v := clampInt(sum)
				if v != src[i] {
					img.Pix[i] = v
					changed = true
				}
			}
		}
	}
	return changed
}

func clamp(v float64) uint8 {
	if v >= 255 {
		return 255
	}
	if v <= 0 {
		return 0
	}
	return uint8(v)
}

func clampInt(v int) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}
