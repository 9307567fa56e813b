package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/iburimskiy/gesture-music/internal/notes"
)

// Ports matching any of these are never picked automatically.
var excludedPorts = []string{"Midi Through", "Through Port", "Dummy"}

// ErrNoMIDIPort is returned by Unlock when no usable output port exists.
var ErrNoMIDIPort = errors.New("no MIDI output port")

const midiVelocity = 100

// MIDISink sends each note to a MIDI output port: the left voice on
// channel 1, the right voice on channel 2. Like the speaker sink each
// channel is monophonic.
type MIDISink struct {
	portPattern string
	noteLength  time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	drv      *rtmididrv.Driver
	out      drivers.Out
	send     func(midi.Message) error
	sounding [2]int
	gen      [2]uint64
}

// NewMIDISink prefers the first output whose name contains portPattern;
// with an empty pattern it takes the first non-virtual port.
func NewMIDISink(portPattern string, noteLength time.Duration, logger *slog.Logger) *MIDISink {
	return &MIDISink{
		portPattern: portPattern,
		noteLength:  noteLength,
		logger:      logger,
		sounding:    [2]int{-1, -1},
	}
}

// Unlock opens the rtmidi driver and the chosen output port.
func (m *MIDISink) Unlock(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.send != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("rtmididrv: %w", err)
	}
	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return fmt.Errorf("list MIDI outputs: %w", err)
	}

	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.String()
	}
	idx := pickPort(names, m.portPattern)
	if idx < 0 {
		drv.Close()
		return ErrNoMIDIPort
	}
	out := outs[idx]
	if err := out.Open(); err != nil {
		drv.Close()
		return fmt.Errorf("open %q: %w", out.String(), err)
	}

	m.drv = drv
	m.out = out
	m.send = func(msg midi.Message) error { return out.Send(msg) }
	m.logger.Info("midi: output connected", "device", out.String())
	return nil
}

// pickPort returns the index of the port to use, or -1.
func pickPort(names []string, pattern string) int {
	fallback := -1
	for i, name := range names {
		if pattern != "" && containsCI(name, pattern) {
			return i
		}
		if fallback < 0 && !isExcluded(name) {
			fallback = i
		}
	}
	if pattern != "" {
		return -1
	}
	return fallback
}

func isExcluded(name string) bool {
	for _, pat := range excludedPorts {
		if containsCI(name, pat) {
			return true
		}
	}
	return false
}

// Trigger sends a note-on now and the matching note-off after the note
// length. A note still sounding on the channel is ended first.
func (m *MIDISink) Trigger(note notes.Note, ch notes.Channel) {
	key, err := note.MIDI()
	if err != nil {
		m.logger.Warn("midi: cannot play note", "note", note, "err", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.send == nil {
		return
	}

	m.endLocked(ch)
	if err := m.send(midi.NoteOn(uint8(ch), uint8(key), midiVelocity)); err != nil {
		m.logger.Warn("midi: note on failed", "note", note, "err", err)
		return
	}
	m.sounding[ch] = key
	m.gen[ch]++
	gen := m.gen[ch]

	time.AfterFunc(m.noteLength, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.gen[ch] == gen {
			m.endLocked(ch)
		}
	})
}

func (m *MIDISink) endLocked(ch notes.Channel) {
	key := m.sounding[ch]
	if key < 0 || m.send == nil {
		return
	}
	if err := m.send(midi.NoteOff(uint8(ch), uint8(key))); err != nil {
		m.logger.Warn("midi: note off failed", "key", key, "err", err)
	}
	m.sounding[ch] = -1
}

// Close silences both channels and releases the port.
func (m *MIDISink) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.endLocked(notes.Left)
	m.endLocked(notes.Right)
	m.send = nil
	if m.out != nil {
		_ = m.out.Close()
		m.out = nil
	}
	if m.drv != nil {
		m.drv.Close()
		m.drv = nil
	}
	m.logger.Info("midi: output closed")
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
