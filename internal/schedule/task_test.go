package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestEveryRunsUntilStop(t *testing.T) {
	var calls atomic.Int32
	task := Every(context.Background(), time.Millisecond, func(context.Context, time.Time) error {
		calls.Add(1)
		return nil
	})

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	task.Stop()
	task.Stop()

	seen := calls.Load()
	if seen < 3 {
		t.Fatalf("expected at least 3 calls, got %d", seen)
	}
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != seen {
		t.Error("expected no calls after Stop")
	}
	if task.Err() != nil {
		t.Errorf("expected nil error after Stop, got %v", task.Err())
	}
}

func TestEveryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := Every(ctx, time.Millisecond, func(context.Context, time.Time) error { return nil })
	cancel()

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected task to exit after cancel")
	}
}

func TestEveryRecordsError(t *testing.T) {
	boom := errors.New("boom")
	task := Every(context.Background(), time.Millisecond, func(context.Context, time.Time) error {
		return boom
	})
	<-task.Done()
	if !errors.Is(task.Err(), boom) {
		t.Errorf("expected boom, got %v", task.Err())
	}
}

func TestEveryErrStoppedIsClean(t *testing.T) {
	task := Every(context.Background(), time.Millisecond, func(context.Context, time.Time) error {
		return ErrStopped
	})
	<-task.Done()
	if task.Err() != nil {
		t.Errorf("expected nil error, got %v", task.Err())
	}
}
