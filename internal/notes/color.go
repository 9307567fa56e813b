package notes

import (
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/iburimskiy/gesture-music/internal/config"
)

// Color is an HSL colour; hue in degrees, saturation and lightness in [0,1].
type Color struct {
	Hue        float64
	Saturation float64
	Lightness  float64
}

// ColorForIndex spreads the scale from orange (low) to blue (high).
func ColorForIndex(index, n int) Color {
	hue := config.HueStart
	if n > 1 {
		hue += config.HueSpan * float64(index) / float64(n-1)
	}
	return Color{Hue: hue, Saturation: config.Saturation, Lightness: config.Lightness}
}

// WithAlpha returns the colour as non-premultiplied RGBA at the given opacity.
func (c Color) WithAlpha(opacity float64) color.NRGBA {
	r, g, b := colorful.Hsl(c.Hue, c.Saturation, c.Lightness).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(clamp01(opacity)*255 + 0.5)}
}

func (c Color) String() string {
	return fmt.Sprintf("hsl(%.0f, %.0f%%, %.0f%%)", c.Hue, c.Saturation*100, c.Lightness*100)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
