// Package render draws the particle field onto a surface once per frame.
package render

import (
	"image/color"
	"time"

	"github.com/iburimskiy/gesture-music/internal/particles"
)

// Surface is a 2D target the loop can paint. Size is read every frame
// because the surface may be resized between frames.
type Surface interface {
	Size() (width, height int)
	// Wash fills the whole surface with a translucent colour.
	Wash(c color.Color)
	FillCircle(x, y, r float64, c color.Color)
}

// Loop composites the fading trail and the live dots.
type Loop struct {
	field *particles.Field
	wash  color.NRGBA
}

// NewLoop draws field with a white wash of the given alpha.
func NewLoop(field *particles.Field, washAlpha float64) *Loop {
	return &Loop{
		field: field,
		wash:  color.NRGBA{R: 255, G: 255, B: 255, A: uint8(washAlpha*255 + 0.5)},
	}
}

// Frame washes s, prunes expired dots and draws the rest. It returns the
// number of dots drawn.
func (l *Loop) Frame(s Surface, now time.Time) int {
	dots := l.field.Tick(now)
	if w, h := s.Size(); w <= 0 || h <= 0 {
		return 0
	}
	s.Wash(l.wash)

	for _, d := range dots {
		a := l.field.Appearance(d, now)
		s.FillCircle(d.X, d.Y, a.Radius, d.Color.WithAlpha(a.Opacity))
	}
	return len(dots)
}
