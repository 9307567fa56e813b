package audio

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/faiface/beep"
	"gitlab.com/gomidi/midi/v2"

	"github.com/iburimskiy/gesture-music/internal/logging"
	"github.com/iburimskiy/gesture-music/internal/notes"
)

const testRate = beep.SampleRate(1000)

func drain(s beep.Streamer) (total int, peak float64) {
	buf := make([][2]float64, 64)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			peak = math.Max(peak, math.Abs(buf[i][0]))
		}
		total += n
		if !ok || n == 0 {
			return total, peak
		}
	}
}

func TestVoiceLength(t *testing.T) {
	v := newVoice(testRate, Triangle, 100, 0.5, 250*time.Millisecond)
	total, peak := drain(v)

	// 250ms hold + 400ms release at 1kHz
	if total != 650 {
		t.Errorf("expected 650 samples, got %d", total)
	}
	if peak > 0.5+1e-9 || peak < 0.4 {
		t.Errorf("expected peak near gain 0.5, got %v", peak)
	}
	if n, ok := v.Stream(make([][2]float64, 8)); n != 0 || ok {
		t.Errorf("expected drained voice to report (0,false), got (%d,%v)", n, ok)
	}
}

func TestVoiceRetire(t *testing.T) {
	v := newVoice(testRate, Square, 100, 0.5, 250*time.Millisecond)
	v.Stream(make([][2]float64, 100))
	v.retire(testRate)

	total, _ := drain(v)
	if total != 20 {
		t.Errorf("expected 20ms retire tail, got %d samples", total)
	}
}

func TestWaveformsBounded(t *testing.T) {
	for p := 0.0; p < 1; p += 0.001 {
		if v := Triangle(p); v < -1 || v > 1 {
			t.Fatalf("triangle out of range at %v: %v", p, v)
		}
		if v := Square(p); v < -1.1 || v > 1.1 {
			t.Fatalf("square out of range at %v: %v", p, v)
		}
	}
}

// constStreamer streams a fixed value n times.
type constStreamer struct {
	v    float64
	left int
}

func (c *constStreamer) Stream(samples [][2]float64) (int, bool) {
	if c.left <= 0 {
		return 0, false
	}
	n := 0
	for i := range samples {
		if c.left == 0 {
			break
		}
		samples[i] = [2]float64{c.v, c.v}
		c.left--
		n++
	}
	return n, true
}

func (c *constStreamer) Err() error { return nil }

func TestTapSnapshotAndLevel(t *testing.T) {
	tap := NewTap(&constStreamer{v: 0.25, left: 10}, 8)
	if tap.Level(8) != 0 {
		t.Error("expected silent tap before streaming")
	}
	buf := make([][2]float64, 10)
	if n, _ := tap.Stream(buf); n != 10 {
		t.Fatalf("expected 10 samples, got %d", n)
	}

	snap := tap.Snapshot(20)
	if len(snap) != 8 {
		t.Fatalf("expected snapshot capped at ring size, got %d", len(snap))
	}
	for _, s := range snap {
		if s[0] != 0.25 {
			t.Fatalf("expected recorded samples, got %v", s)
		}
	}
	want := math.Pow(0.25, 0.3)
	if got := tap.Level(8); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected level %v, got %v", want, got)
	}
}

func TestReverbAddsTail(t *testing.T) {
	r := newReverb(&constStreamer{v: 1, left: 1}, testRate, 2*time.Second, 0.5)
	buf := make([][2]float64, 1)
	r.Stream(buf)
	if buf[0][0] != 0.5 {
		t.Errorf("expected dry half on first sample, got %v", buf[0][0])
	}

	silence := &constStreamer{v: 0, left: 200}
	r.Source = silence
	out := make([][2]float64, 200)
	r.Stream(out)
	heard := false
	for _, s := range out {
		if s[0] != 0 {
			heard = true
			break
		}
	}
	if !heard {
		t.Error("expected an echo within 200ms")
	}
}

func TestPickPort(t *testing.T) {
	names := []string{"Midi Through Port-0", "FluidSynth", "Launchkey MK3"}
	if got := pickPort(names, "launchkey"); got != 2 {
		t.Errorf("expected pattern match at 2, got %d", got)
	}
	if got := pickPort(names, ""); got != 1 {
		t.Errorf("expected first non-virtual port 1, got %d", got)
	}
	if got := pickPort(names, "nord"); got != -1 {
		t.Errorf("expected no match, got %d", got)
	}
	if got := pickPort([]string{"Dummy"}, ""); got != -1 {
		t.Errorf("expected virtual-only list to give -1, got %d", got)
	}
}

type sent struct {
	mu   sync.Mutex
	msgs []midi.Message
}

func (s *sent) send(m midi.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
	return nil
}

func (s *sent) all() []midi.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]midi.Message(nil), s.msgs...)
}

func TestMIDISinkTrigger(t *testing.T) {
	rec := &sent{}
	m := NewMIDISink("", 20*time.Millisecond, logging.Discard())

	// not unlocked: nothing goes out
	m.Trigger("C4", notes.Left)

	m.send = rec.send
	m.Trigger("C4", notes.Left)
	m.Trigger("E4", notes.Left)

	msgs := rec.all()
	if len(msgs) != 3 {
		t.Fatalf("expected on, off, on; got %d messages", len(msgs))
	}
	var ch, key, vel uint8
	if !msgs[0].GetNoteStart(&ch, &key, &vel) || key != 60 || ch != 0 {
		t.Errorf("expected C4 note on channel 0, got %v", msgs[0])
	}
	if !msgs[1].GetNoteEnd(&ch, &key) || key != 60 {
		t.Errorf("expected C4 note off, got %v", msgs[1])
	}
	if !msgs[2].GetNoteStart(&ch, &key, &vel) || key != 64 {
		t.Errorf("expected E4 note on, got %v", msgs[2])
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.all()) < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	msgs = rec.all()
	if len(msgs) != 4 {
		t.Fatalf("expected timed note off, got %d messages", len(msgs))
	}
	if !msgs[3].GetNoteEnd(&ch, &key) || key != 64 {
		t.Errorf("expected E4 note off, got %v", msgs[3])
	}
}

func TestMIDISinkRightChannel(t *testing.T) {
	rec := &sent{}
	m := NewMIDISink("", time.Hour, logging.Discard())
	m.send = rec.send
	m.Trigger("A4", notes.Right)

	var ch, key, vel uint8
	if msgs := rec.all(); len(msgs) != 1 || !msgs[0].GetNoteStart(&ch, &key, &vel) || ch != 1 || key != 69 {
		t.Errorf("expected A4 on channel 1, got %v", msgs)
	}
	m.Close()
	if msgs := rec.all(); len(msgs) != 2 {
		t.Errorf("expected Close to silence the channel, got %d messages", len(msgs))
	}
}

func TestNullSink(t *testing.T) {
	n := Null{Logger: logging.Discard()}
	if err := n.Unlock(context.Background()); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	n.Trigger("C4", notes.Left)
}
