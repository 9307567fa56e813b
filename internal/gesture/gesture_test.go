package gesture

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/iburimskiy/gesture-music/internal/logging"
	"github.com/iburimskiy/gesture-music/internal/notes"
	"github.com/iburimskiy/gesture-music/internal/particles"
)

type trigger struct {
	note notes.Note
	ch   notes.Channel
}

// fakeSink unlocks when release is closed and records triggers.
type fakeSink struct {
	mu       sync.Mutex
	release  chan struct{}
	err      error
	unlocks  int
	triggers []trigger
}

func newFakeSink() *fakeSink { return &fakeSink{release: make(chan struct{})} }

func (s *fakeSink) Unlock(ctx context.Context) error {
	s.mu.Lock()
	s.unlocks++
	s.mu.Unlock()
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.err
}

func (s *fakeSink) Trigger(n notes.Note, ch notes.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers = append(s.triggers, trigger{n, ch})
}

func (s *fakeSink) unlockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocks
}

func (s *fakeSink) triggerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.triggers)
}

type rig struct {
	sink   *fakeSink
	unlock *Unlocker
	gate   *Gate
	field  *particles.Field
	inst   *Instrument
}

func newRig(t *testing.T) *rig {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := logging.Discard()
	sink := newFakeSink()
	unlock := NewUnlocker(ctx, sink, logger)
	gate := NewGate(notes.DefaultScale, 200*time.Millisecond, sink, unlock)
	field := particles.NewField(30 * time.Second)
	inst := NewInstrument(gate, NewVelocityEstimator(4, 40), field, logger)
	return &rig{sink: sink, unlock: unlock, gate: gate, field: field, inst: inst}
}

// unlockNow drives the handshake to completion.
func (r *rig) unlockNow(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	r.unlock.OnUnlocked(func() { close(done) })
	r.unlock.Request()
	close(r.sink.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected unlock to complete")
	}
}

var canvas = Size{Width: 800, Height: 700}

func TestFirstGestureOnlyUnlocks(t *testing.T) {
	r := newRig(t)
	now := time.Unix(1700000000, 0)

	d := r.inst.Play(Position{100, 100}, canvas, now)
	if d.Reason != AudioNotReady {
		t.Fatalf("expected AudioNotReady, got %v", d.Reason)
	}
	if r.field.Len() != 0 {
		t.Error("expected no dot before unlock")
	}
	if r.sink.triggerCount() != 0 {
		t.Error("expected no trigger before unlock")
	}
	if r.unlock.State() != Unlocking {
		t.Errorf("expected unlocking, got %v", r.unlock.State())
	}

	// a second gesture while unlocking does not start another attempt
	d = r.inst.Play(Position{100, 100}, canvas, now.Add(time.Second))
	if d.Reason != AudioNotReady {
		t.Errorf("expected AudioNotReady while unlocking, got %v", d.Reason)
	}
	close(r.sink.release)
	deadline := time.Now().Add(2 * time.Second)
	for !r.unlock.Ready() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if r.sink.unlockCount() != 1 {
		t.Errorf("expected a single unlock attempt, got %d", r.sink.unlockCount())
	}

	d = r.inst.Play(Position{100, 100}, canvas, now.Add(2*time.Second))
	if !d.Accepted() {
		t.Fatalf("expected accept after unlock, got %v", d.Reason)
	}
	if r.field.Len() != 1 || r.sink.triggerCount() != 1 {
		t.Errorf("expected one dot and one trigger, got %d and %d", r.field.Len(), r.sink.triggerCount())
	}
}

func TestRateLimit(t *testing.T) {
	r := newRig(t)
	r.unlockNow(t)
	now := time.Unix(1700000000, 0)

	if d := r.inst.Play(Position{10, 10}, canvas, now); !d.Accepted() {
		t.Fatalf("expected first accept, got %v", d.Reason)
	}
	if d := r.inst.Play(Position{10, 10}, canvas, now.Add(199*time.Millisecond)); d.Reason != RateLimited {
		t.Fatalf("expected RateLimited, got %v", d.Reason)
	}
	if r.field.Len() != 1 || r.sink.triggerCount() != 1 {
		t.Errorf("expected rejected gesture to leave no trace, got %d dots %d triggers", r.field.Len(), r.sink.triggerCount())
	}
	// the rejected submission must not move the window
	if d := r.inst.Play(Position{10, 10}, canvas, now.Add(200*time.Millisecond)); !d.Accepted() {
		t.Fatalf("expected accept at exactly 200ms, got %v", d.Reason)
	}
	if r.sink.triggerCount() != 2 {
		t.Errorf("expected 2 triggers, got %d", r.sink.triggerCount())
	}
}

func TestRateLimitBeforeUnlockCheck(t *testing.T) {
	r := newRig(t)
	r.unlockNow(t)
	now := time.Unix(1700000000, 0)
	r.inst.Play(Position{10, 10}, canvas, now)

	if d := r.gate.Submit(Position{10, 10}, canvas, now.Add(time.Millisecond)); d.Reason != RateLimited {
		t.Errorf("expected RateLimited, got %v", d.Reason)
	}
}

func TestAcceptedEventMapping(t *testing.T) {
	r := newRig(t)
	r.unlockNow(t)
	now := time.Unix(1700000000, 0)

	d := r.inst.Play(Position{X: 600, Y: 0}, canvas, now)
	if !d.Accepted() {
		t.Fatalf("expected accept, got %v", d.Reason)
	}
	ev := d.Event
	if ev.PitchIndex != 13 || ev.Note != "C6" {
		t.Errorf("expected top of canvas to be C6 (13), got %s (%d)", ev.Note, ev.PitchIndex)
	}
	if ev.Channel != notes.Right {
		t.Errorf("expected right channel, got %v", ev.Channel)
	}
	if math.Abs(ev.Color.Hue-240) > 1e-9 {
		t.Errorf("expected hue 240, got %v", ev.Color.Hue)
	}
	if !ev.Timestamp.Equal(now) {
		t.Errorf("expected timestamp %v, got %v", now, ev.Timestamp)
	}
	if got := r.sink.triggers[0]; got.note != "C6" || got.ch != notes.Right {
		t.Errorf("expected C6 on right, got %+v", got)
	}

	d = r.inst.Play(Position{X: 10, Y: 700}, canvas, now.Add(time.Second))
	if d.Event.Note != "C4" || d.Event.Channel != notes.Left {
		t.Errorf("expected C4 on left, got %s on %v", d.Event.Note, d.Event.Channel)
	}
}

func TestDotRadiusFollowsVelocity(t *testing.T) {
	r := newRig(t)
	r.unlockNow(t)
	now := time.Unix(1700000000, 0)

	r.inst.Play(Position{100, 100}, canvas, now)
	r.inst.Play(Position{100, 100}, canvas, now.Add(time.Second))
	r.inst.Play(Position{700, 600}, canvas, now.Add(2*time.Second))

	dots := r.field.Tick(now.Add(2 * time.Second))
	if len(dots) != 3 {
		t.Fatalf("expected 3 dots, got %d", len(dots))
	}
	if math.Abs(dots[0].InitialRadius-6) > 1e-9 {
		t.Errorf("expected first dot radius 6, got %v", dots[0].InitialRadius)
	}
	if dots[1].InitialRadius != 4 {
		t.Errorf("expected still gesture radius 4, got %v", dots[1].InitialRadius)
	}
	if dots[2].InitialRadius <= 4 {
		t.Errorf("expected big jump to grow the dot, got %v", dots[2].InitialRadius)
	}
	if !dots[2].CreatedAt.Equal(now.Add(2 * time.Second)) {
		t.Errorf("expected dot stamped with submission time, got %v", dots[2].CreatedAt)
	}
}

func TestUnlockFailureReturnsToLocked(t *testing.T) {
	r := newRig(t)
	r.sink.err = errors.New("no device")
	close(r.sink.release)

	r.unlock.Request()
	deadline := time.Now().Add(2 * time.Second)
	for r.sink.unlockCount() == 0 || r.unlock.State() != Locked {
		if time.Now().After(deadline) {
			t.Fatalf("expected failed unlock to return to locked, state %v", r.unlock.State())
		}
		time.Sleep(time.Millisecond)
	}
	if r.unlock.Ready() {
		t.Error("expected not ready after failure")
	}
}

func TestOnUnlockedAfterUnlockRunsImmediately(t *testing.T) {
	r := newRig(t)
	r.unlockNow(t)
	called := false
	r.unlock.OnUnlocked(func() { called = true })
	if !called {
		t.Error("expected immediate callback once unlocked")
	}
}

func TestVelocityEstimator(t *testing.T) {
	v := NewVelocityEstimator(4, 40)

	if r := v.Estimate(Position{0, 0}); math.Abs(r-6) > 1e-9 {
		t.Errorf("expected baseline radius 6, got %v", r)
	}
	if r := v.Estimate(Position{0, 0}); r != 4 {
		t.Errorf("expected identical positions to give 4, got %v", r)
	}

	// distance e-1 gives velocity 1 and radius 6
	if r := v.Estimate(Position{math.E - 1, 0}); math.Abs(r-6) > 1e-9 {
		t.Errorf("expected radius 6, got %v", r)
	}

	if r := v.Estimate(Position{1e12, 1e12}); r != 40 {
		t.Errorf("expected radius capped at 40, got %v", r)
	}
}

func TestReasonString(t *testing.T) {
	if RateLimited.String() != "rate limited" || AudioNotReady.String() != "audio not ready" {
		t.Error("unexpected reason strings")
	}
	if Unlocking.String() != "unlocking" {
		t.Error("unexpected state string")
	}
}
