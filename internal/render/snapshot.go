package render

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/fogleman/gg"

	"github.com/iburimskiy/gesture-music/internal/particles"
)

// ImageSurface is an offscreen Surface backed by a gg context.
type ImageSurface struct {
	dc *gg.Context
}

// NewImageSurface returns a white w x h surface.
func NewImageSurface(w, h int) *ImageSurface {
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	return &ImageSurface{dc: dc}
}

func (s *ImageSurface) Size() (int, int) { return s.dc.Width(), s.dc.Height() }

func (s *ImageSurface) Wash(c color.Color) {
	s.dc.SetColor(c)
	s.dc.DrawRectangle(0, 0, float64(s.dc.Width()), float64(s.dc.Height()))
	s.dc.Fill()
}

func (s *ImageSurface) FillCircle(x, y, r float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.DrawCircle(x, y, r)
	s.dc.Fill()
}

// Image exposes the rendered pixels.
func (s *ImageSurface) Image() image.Image { return s.dc.Image() }

// SavePNG writes the surface to path.
func (s *ImageSurface) SavePNG(path string) error {
	if err := s.dc.SavePNG(path); err != nil {
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}
	return nil
}

// Snapshot draws the live dots of field at now onto a fresh white w x h
// image and saves it to path. The field itself is left untouched.
func Snapshot(field *particles.Field, w, h int, now time.Time, path string) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("snapshot: empty canvas %dx%d", w, h)
	}
	s := NewImageSurface(w, h)
	for _, d := range field.Live(now) {
		a := field.Appearance(d, now)
		s.FillCircle(d.X, d.Y, a.Radius, d.Color.WithAlpha(a.Opacity))
	}
	return s.SavePNG(path)
}
