// Package particles holds the decaying dots left behind by played notes.
package particles

import (
	"math"
	"time"

	"github.com/iburimskiy/gesture-music/internal/notes"
)

// Dot is one marker on the canvas. Dots are never mutated after creation.
type Dot struct {
	X, Y          float64
	InitialRadius float64
	Color         notes.Color
	CreatedAt     time.Time
}

// Appearance is how a dot is drawn at a given instant.
type Appearance struct {
	Radius  float64
	Opacity float64
}

// Field is the set of live dots. It is owned by a single goroutine.
type Field struct {
	lifetime time.Duration
	dots     []Dot
}

// NewField returns an empty field whose dots live for lifetime.
func NewField(lifetime time.Duration) *Field {
	return &Field{lifetime: lifetime}
}

// Lifetime reports how long a dot stays in the field.
func (f *Field) Lifetime() time.Duration { return f.lifetime }

// Append adds a dot. No dedup is done.
func (f *Field) Append(d Dot) {
	f.dots = append(f.dots, d)
}

// Len returns the number of dots currently held, expired or not.
func (f *Field) Len() int { return len(f.dots) }

// Tick drops every dot at least one lifetime old and returns the rest.
// The returned slice is only valid until the next Tick.
func (f *Field) Tick(now time.Time) []Dot {
	live := f.dots[:0]
	for _, d := range f.dots {
		if now.Sub(d.CreatedAt) < f.lifetime {
			live = append(live, d)
		}
	}
	// clear the tail so expired dots don't pin memory
	for i := len(live); i < len(f.dots); i++ {
		f.dots[i] = Dot{}
	}
	f.dots = live
	return live[:len(live):len(live)]
}

// Live copies the dots still alive at now without pruning anything.
func (f *Field) Live(now time.Time) []Dot {
	out := make([]Dot, 0, len(f.dots))
	for _, d := range f.dots {
		if now.Sub(d.CreatedAt) < f.lifetime {
			out = append(out, d)
		}
	}
	return out
}

// Appearance returns the pulsing radius and fading opacity of d at now.
func (f *Field) Appearance(d Dot, now time.Time) Appearance {
	progress := 0.0
	if f.lifetime > 0 {
		progress = float64(now.Sub(d.CreatedAt)) / float64(f.lifetime)
	}
	progress = math.Max(0, math.Min(progress, 1))

	pulse := 0.8 + 0.2*math.Sin(progress*2*math.Pi)
	return Appearance{
		Radius:  d.InitialRadius * math.Min(pulse, 1),
		Opacity: 1 - progress*0.9,
	}
}
