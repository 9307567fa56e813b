package audio

import (
	"context"
	"log/slog"

	"github.com/iburimskiy/gesture-music/internal/notes"
)

// Null unlocks at once and only logs triggers. Useful without a sound device.
type Null struct {
	Logger *slog.Logger
}

func (n Null) Unlock(context.Context) error { return nil }

func (n Null) Trigger(note notes.Note, ch notes.Channel) {
	n.Logger.Debug("null sink trigger", "note", note, "channel", ch)
}
