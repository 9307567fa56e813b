package gesture

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// UnlockState is where the one-time audio unlock stands.
type UnlockState int32

const (
	Locked UnlockState = iota
	Unlocking
	Unlocked
)

func (s UnlockState) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocking:
		return "unlocking"
	case Unlocked:
		return "unlocked"
	}
	return "unknown"
}

// Unlocker runs a sink's Unlock at most once at a time and latches success.
// A failed attempt returns it to Locked so the next gesture can try again.
type Unlocker struct {
	sink   Sink
	ctx    context.Context
	logger *slog.Logger

	state atomic.Int32

	mu   sync.Mutex
	subs []func()
}

// NewUnlocker binds the unlock to sink. Attempts run under ctx.
func NewUnlocker(ctx context.Context, sink Sink, logger *slog.Logger) *Unlocker {
	return &Unlocker{sink: sink, ctx: ctx, logger: logger}
}

// State returns the current state. Safe from any goroutine.
func (u *Unlocker) State() UnlockState { return UnlockState(u.state.Load()) }

// Ready reports whether the unlock has completed.
func (u *Unlocker) Ready() bool { return u.State() == Unlocked }

// Request starts the unlock in the background when Locked. While an attempt
// is in flight, or once unlocked, it does nothing.
func (u *Unlocker) Request() {
	if !u.state.CompareAndSwap(int32(Locked), int32(Unlocking)) {
		return
	}
	u.logger.Debug("audio unlock requested")
	go u.run()
}

func (u *Unlocker) run() {
	if err := u.sink.Unlock(u.ctx); err != nil {
		u.logger.Warn("audio unlock failed", "err", err)
		u.state.Store(int32(Locked))
		return
	}
	u.state.Store(int32(Unlocked))
	u.logger.Info("audio unlocked")

	u.mu.Lock()
	subs := u.subs
	u.subs = nil
	u.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// OnUnlocked registers fn to run once the unlock completes. If it already
// has, fn runs immediately. fn may be called from the unlock goroutine.
func (u *Unlocker) OnUnlocked(fn func()) {
	u.mu.Lock()
	if !u.Ready() {
		u.subs = append(u.subs, fn)
		u.mu.Unlock()
		return
	}
	u.mu.Unlock()
	fn()
}
