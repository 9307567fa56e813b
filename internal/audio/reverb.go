package audio

import (
	"math"
	"time"

	"github.com/faiface/beep"
)

// reverb is a small Schroeder-style bus effect: parallel feedback combs per
// channel mixed back with the dry signal.
type reverb struct {
	Source beep.Streamer
	wet    float64
	combs  [2][]comb
}

type comb struct {
	buf      []float64
	idx      int
	feedback float64
}

var combDelays = []time.Duration{
	29700 * time.Microsecond,
	37100 * time.Microsecond,
	41100 * time.Microsecond,
	43700 * time.Microsecond,
}

// newReverb builds a reverb whose tail falls by 60dB over decay.
func newReverb(src beep.Streamer, sr beep.SampleRate, decay time.Duration, wet float64) *reverb {
	r := &reverb{Source: src, wet: wet}
	for ch := range r.combs {
		for i, d := range combDelays {
			// spread the right channel slightly for width
			n := sr.N(d) + ch*23*(i+1)
			r.combs[ch] = append(r.combs[ch], comb{
				buf:      make([]float64, n),
				feedback: math.Pow(10, -3*(float64(n)/float64(sr))/decay.Seconds()),
			})
		}
	}
	return r
}

func (r *reverb) Stream(samples [][2]float64) (int, bool) {
	n, ok := r.Source.Stream(samples)
	scale := 1 / float64(len(combDelays))
	for i := 0; i < n; i++ {
		for ch := 0; ch < 2; ch++ {
			dry := samples[i][ch]
			var tail float64
			combs := r.combs[ch]
			for c := range combs {
				cb := &combs[c]
				out := cb.buf[cb.idx]
				cb.buf[cb.idx] = dry + out*cb.feedback
				cb.idx++
				if cb.idx >= len(cb.buf) {
					cb.idx = 0
				}
				tail += out
			}
			samples[i][ch] = dry*(1-r.wet) + tail*scale*r.wet
		}
	}
	return n, ok
}

func (r *reverb) Err() error { return r.Source.Err() }
