package gesture

import (
	"log/slog"
	"time"

	"github.com/iburimskiy/gesture-music/internal/notes"
	"github.com/iburimskiy/gesture-music/internal/particles"
)

// Instrument wires the gate, the velocity estimator and the particle field.
// Every position source submits through the same Instrument.
type Instrument struct {
	gate     *Gate
	velocity *VelocityEstimator
	field    *particles.Field
	logger   *slog.Logger
}

// NewInstrument plays through gate and records accepted notes in field.
func NewInstrument(gate *Gate, velocity *VelocityEstimator, field *particles.Field, logger *slog.Logger) *Instrument {
	return &Instrument{gate: gate, velocity: velocity, field: field, logger: logger}
}

// Play submits pos and, when accepted, drops a dot for it.
func (in *Instrument) Play(pos Position, canvas Size, now time.Time) Decision {
	d := in.gate.Submit(pos, canvas, now)
	if !d.Accepted() {
		in.logger.Debug("gesture dropped", "reason", d.Reason, "x", pos.X, "y", pos.Y)
		return d
	}

	radius := in.velocity.Estimate(pos)
	in.field.Append(particles.Dot{
		X:             pos.X,
		Y:             pos.Y,
		InitialRadius: radius,
		Color:         d.Event.Color,
		CreatedAt:     now,
	})
	in.logger.Info("note played",
		"note", d.Event.Note,
		"voice", voiceName(d.Event),
		"radius", radius,
	)
	return d
}

func voiceName(ev PlayEvent) string {
	if ev.Channel == notes.Left {
		return "synth"
	}
	return "mono"
}
