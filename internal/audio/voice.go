package audio

import (
	"math"
	"time"

	"github.com/faiface/beep"
)

// Waveform generates one sample at phase p in [0, 1).
type Waveform func(p float64) float64

// Triangle is the soft voice used on the left half.
func Triangle(p float64) float64 {
	return 4*math.Abs(p-0.5) - 1
}

// Square is a band-limited square (odd harmonics up to the 7th) used by
// the mono voice on the right half.
func Square(p float64) float64 {
	x := 2 * math.Pi * p
	return (4 / math.Pi) * (math.Sin(x) + math.Sin(3*x)/3 + math.Sin(5*x)/5 + math.Sin(7*x)/7) * 0.8
}

const (
	attackTime  = 5 * time.Millisecond
	releaseTime = 400 * time.Millisecond
	retireTime  = 20 * time.Millisecond
)

// voice is one note: attack, sustain for the note length, then release.
// All fields are touched under speaker.Lock once the voice is playing.
type voice struct {
	wave  Waveform
	gain  float64
	phase float64
	step  float64

	pos     int
	attack  int
	hold    int
	release int
}

func newVoice(sr beep.SampleRate, wave Waveform, freq, gain float64, length time.Duration) *voice {
	return &voice{
		wave:    wave,
		gain:    gain,
		step:    freq / float64(sr),
		attack:  sr.N(attackTime),
		hold:    sr.N(length),
		release: sr.N(releaseTime),
	}
}

// retire starts a short release now, for a monophonic voice being replaced.
func (v *voice) retire(sr beep.SampleRate) {
	if v.pos < v.hold {
		v.hold = v.pos
	}
	if r := sr.N(retireTime); r < v.release {
		v.release = r
	}
}

func (v *voice) envelope() float64 {
	switch {
	case v.pos < v.attack:
		return float64(v.pos) / float64(v.attack)
	case v.pos < v.hold:
		return 1
	default:
		left := v.hold + v.release - v.pos
		if left <= 0 {
			return 0
		}
		return float64(left) / float64(v.release)
	}
}

func (v *voice) done() bool { return v.pos >= v.hold+v.release }

func (v *voice) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if v.done() {
			return i, i > 0
		}
		s := v.wave(v.phase) * v.envelope() * v.gain
		samples[i][0] = s
		samples[i][1] = s

		v.phase += v.step
		if v.phase >= 1 {
			v.phase -= 1
		}
		v.pos++
	}
	return len(samples), true
}

func (v *voice) Err() error { return nil }
