// Package gesture turns raw canvas positions into rate-limited note events.
package gesture

import (
	"context"
	"time"

	"github.com/iburimskiy/gesture-music/internal/notes"
)

// Sink is anything that can play a note on a channel once unlocked.
type Sink interface {
	Unlock(ctx context.Context) error
	Trigger(note notes.Note, ch notes.Channel)
}

// Position is a point in canvas pixels.
type Position struct {
	X, Y float64
}

// Size is the current canvas size in pixels.
type Size struct {
	Width, Height float64
}

// PlayEvent is an accepted gesture.
type PlayEvent struct {
	PitchIndex int
	Note       notes.Note
	Channel    notes.Channel
	Color      notes.Color
	Position   Position
	Timestamp  time.Time
}

// Reason says why a submission was or wasn't played.
type Reason int

const (
	Accepted Reason = iota
	RateLimited
	AudioNotReady
)

func (r Reason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RateLimited:
		return "rate limited"
	case AudioNotReady:
		return "audio not ready"
	}
	return "unknown"
}

// Decision is the outcome of Gate.Submit. Event is only set when Accepted.
type Decision struct {
	Event  PlayEvent
	Reason Reason
}

func (d Decision) Accepted() bool { return d.Reason == Accepted }

// Gate rate-limits submissions and holds them back until audio is unlocked.
// It is not safe for concurrent use; all submissions come from one loop.
type Gate struct {
	scale       notes.Scale
	minInterval time.Duration
	sink        Sink
	unlock      *Unlocker

	lastAccepted time.Time
	hasAccepted  bool
}

// NewGate builds a gate that plays scale on sink.
func NewGate(scale notes.Scale, minInterval time.Duration, sink Sink, unlock *Unlocker) *Gate {
	return &Gate{
		scale:       scale,
		minInterval: minInterval,
		sink:        sink,
		unlock:      unlock,
	}
}

// Submit decides on pos at now. An accepted submission triggers the sink
// exactly once; a rejected one changes nothing except possibly starting the
// unlock.
func (g *Gate) Submit(pos Position, canvas Size, now time.Time) Decision {
	if g.hasAccepted && now.Sub(g.lastAccepted) < g.minInterval {
		return Decision{Reason: RateLimited}
	}

	if !g.unlock.Ready() {
		g.unlock.Request()
		return Decision{Reason: AudioNotReady}
	}

	g.lastAccepted = now
	g.hasAccepted = true

	idx := notes.MapPosition(pos.Y, canvas.Height, len(g.scale))
	ev := PlayEvent{
		PitchIndex: idx,
		Channel:    notes.MapChannel(pos.X, canvas.Width),
		Color:      notes.ColorForIndex(idx, len(g.scale)),
		Position:   pos,
		Timestamp:  now,
	}
	if len(g.scale) > 0 {
		ev.Note = g.scale[idx]
	}
	g.sink.Trigger(ev.Note, ev.Channel)
	return Decision{Event: ev, Reason: Accepted}
}
