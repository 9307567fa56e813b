package notes

import (
	"fmt"
	"math"
	"strconv"
)

// Note is a scientific pitch name such as "C4" or "F#5".
type Note string

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// MIDI returns the MIDI key number of the note, C4 = 60.
func (n Note) MIDI() (int, error) {
	s := string(n)
	if len(s) < 2 {
		return 0, fmt.Errorf("note %q: too short", s)
	}
	base, ok := semitones[s[0]]
	if !ok {
		return 0, fmt.Errorf("note %q: unknown letter", s)
	}
	rest := s[1:]
	switch rest[0] {
	case '#':
		base++
		rest = rest[1:]
	case 'b':
		base--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("note %q: bad octave: %w", s, err)
	}
	key := (octave+1)*12 + base
	if key < 0 || key > 127 {
		return 0, fmt.Errorf("note %q: out of MIDI range", s)
	}
	return key, nil
}

// Frequency returns the equal-tempered frequency in Hz, A4 = 440.
func (n Note) Frequency() (float64, error) {
	key, err := n.MIDI()
	if err != nil {
		return 0, err
	}
	return 440 * math.Pow(2, float64(key-69)/12), nil
}

// Scale is an ordered set of notes, lowest first.
type Scale []Note

// DefaultScale is the fourteen-note C major run the instrument plays.
var DefaultScale = Scale{
	"C4", "D4", "E4", "F4", "G4", "A4", "B4",
	"C5", "D5", "E5", "F5", "G5", "A5", "C6",
}

// Channel selects one of the two voices.
type Channel int

const (
	Left Channel = iota
	Right
)

func (c Channel) String() string {
	if c == Left {
		return "left"
	}
	return "right"
}

// MapPosition turns a vertical canvas coordinate into a scale index.
// The bottom of the canvas is index 0. A non-positive height or an empty
// scale yields 0.
func MapPosition(y, canvasHeight float64, n int) int {
	if canvasHeight <= 0 || n <= 0 || math.IsNaN(y) {
		return 0
	}
	raw := math.Floor(((canvasHeight - y) / canvasHeight) * float64(n))
	if raw < 0 {
		return 0
	}
	if raw > float64(n-1) {
		return n - 1
	}
	return int(raw)
}

// MapChannel puts the left half of the canvas on Left, the rest on Right.
func MapChannel(x, canvasWidth float64) Channel {
	if x < canvasWidth/2 {
		return Left
	}
	return Right
}
