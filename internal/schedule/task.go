// Package schedule runs cancellable repeating work.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped can be returned from a task func to end the task without an error.
var ErrStopped = errors.New("schedule: task stopped")

// Task is a repeating call on its own goroutine, started by Every.
type Task struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	mu  sync.Mutex
	err error
}

// Every calls fn once per interval until ctx is cancelled, Stop is called,
// or fn returns an error. A slow fn delays the next call rather than
// queueing extra ones. The first call happens immediately.
func Every(ctx context.Context, interval time.Duration, fn func(ctx context.Context, now time.Time) error) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		now := time.Now()
		for {
			if err := fn(ctx, now); err != nil {
				if !errors.Is(err, ErrStopped) && ctx.Err() == nil {
					t.mu.Lock()
					t.err = err
					t.mu.Unlock()
				}
				return
			}
			select {
			case <-ctx.Done():
				return
			case now = <-ticker.C:
			}
		}
	}()
	return t
}

// Stop cancels the task and waits for the current call to return.
// It is safe to call more than once.
func (t *Task) Stop() {
	t.stopOnce.Do(t.cancel)
	<-t.done
}

// Done is closed once the task goroutine has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the error that ended the task, if any.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
