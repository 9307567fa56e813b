// Package audio holds the sinks that turn note triggers into sound.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"

	"github.com/iburimskiy/gesture-music/internal/notes"
)

// SpeakerOptions configure a SpeakerSink.
type SpeakerOptions struct {
	SampleRate   int
	NoteLength   time.Duration
	MasterVolume float64 // 0..1
	RingSize     int
}

// SpeakerSink plays notes on the default output device through beep.
// The device is opened by Unlock; triggers before that are ignored.
//
// Each channel is monophonic: a new note on a channel retires the note
// already sounding there.
type SpeakerSink struct {
	sr         beep.SampleRate
	noteLength time.Duration
	logger     *slog.Logger

	mixer *beep.Mixer
	ctrl  *beep.Ctrl
	tap   *Tap

	voices [2]*voice
	ready  atomic.Bool
}

func NewSpeakerSink(opts SpeakerOptions, logger *slog.Logger) *SpeakerSink {
	sr := beep.SampleRate(opts.SampleRate)
	mixer := &beep.Mixer{}
	bus := newReverb(mixer, sr, 2*time.Second, 0.5)

	// volume 0..1 mapped onto a base-2 exponent, silent at 0
	vol := &effects.Volume{
		Streamer: bus,
		Base:     2,
		Volume:   math.Log2(math.Max(opts.MasterVolume, 1e-3)),
		Silent:   opts.MasterVolume <= 0,
	}
	ctrl := &beep.Ctrl{Streamer: vol}

	return &SpeakerSink{
		sr:         sr,
		noteLength: opts.NoteLength,
		logger:     logger,
		mixer:      mixer,
		ctrl:       ctrl,
		tap:        NewTap(ctrl, opts.RingSize),
	}
}

// Unlock opens the speaker and starts the mix bus. Calling it again after
// success is a no-op.
func (s *SpeakerSink) Unlock(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	bufferSize := s.sr.N(time.Second / 20)
	if err := speaker.Init(s.sr, bufferSize); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	speaker.Play(s.tap)
	s.ready.Store(true)
	s.logger.Info("speaker opened", "sample_rate", int(s.sr), "buffer", bufferSize)
	return nil
}

// Trigger starts note on ch.
func (s *SpeakerSink) Trigger(note notes.Note, ch notes.Channel) {
	if !s.ready.Load() {
		return
	}
	freq, err := note.Frequency()
	if err != nil {
		s.logger.Warn("cannot play note", "note", note, "err", err)
		return
	}

	wave, pan, gain := Triangle, -0.35, 0.35
	if ch == notes.Right {
		wave, pan, gain = Square, 0.35, 0.18
	}
	v := newVoice(s.sr, wave, freq, gain, s.noteLength)

	speaker.Lock()
	if prev := s.voices[ch]; prev != nil {
		prev.retire(s.sr)
	}
	s.voices[ch] = v
	s.mixer.Add(&effects.Pan{Streamer: v, Pan: pan})
	speaker.Unlock()
}

// SetMuted pauses or resumes the whole output bus.
func (s *SpeakerSink) SetMuted(muted bool) {
	speaker.Lock()
	s.ctrl.Paused = muted
	speaker.Unlock()
}

// Muted reports whether the bus is paused.
func (s *SpeakerSink) Muted() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return s.ctrl.Paused
}

// Level returns the recent output level for metering.
func (s *SpeakerSink) Level() float64 {
	return s.tap.Level(2048)
}

// Close stops playback and releases the device.
func (s *SpeakerSink) Close() {
	if !s.ready.CompareAndSwap(true, false) {
		return
	}
	speaker.Clear()
	speaker.Close()
}
