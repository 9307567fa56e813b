// Package source adapts pointer input and hand-landmark detectors into
// canvas positions.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/iburimskiy/gesture-music/internal/gesture"
	"github.com/iburimskiy/gesture-music/internal/schedule"
)

// Landmark is one tracked point in video pixels. On the wire it is an
// array [x, y] or [x, y, z]; z is ignored.
type Landmark struct {
	X, Y float64
}

func (l *Landmark) UnmarshalJSON(b []byte) error {
	var xs []float64
	if err := json.Unmarshal(b, &xs); err != nil {
		return fmt.Errorf("landmark: %w", err)
	}
	if len(xs) < 2 {
		return fmt.Errorf("landmark: need at least 2 coordinates, got %d", len(xs))
	}
	l.X, l.Y = xs[0], xs[1]
	return nil
}

func (l Landmark) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{l.X, l.Y})
}

// Hand is one detected hand.
type Hand struct {
	Landmarks []Landmark `json:"landmarks"`
}

// Frame is one detector result: the source video size and zero or more hands.
type Frame struct {
	VideoWidth  float64 `json:"videoWidth"`
	VideoHeight float64 `json:"videoHeight"`
	Hands       []Hand  `json:"hands"`
}

// Detector produces a frame per call. It may block until the next frame is
// available. io.EOF means there will be no more frames.
type Detector interface {
	Detect(ctx context.Context) (Frame, error)
}

// ToCanvas converts the reference landmark of the first hand into canvas
// space, mirroring X to match the mirrored camera preview. It reports false
// when there is no hand, the landmark is missing, or either size is empty.
func ToCanvas(f Frame, landmark int, canvas gesture.Size) (gesture.Position, bool) {
	if len(f.Hands) == 0 || landmark < 0 || landmark >= len(f.Hands[0].Landmarks) {
		return gesture.Position{}, false
	}
	if f.VideoWidth <= 0 || f.VideoHeight <= 0 || canvas.Width <= 0 || canvas.Height <= 0 {
		return gesture.Position{}, false
	}
	lm := f.Hands[0].Landmarks[landmark]
	scaleX := canvas.Width / f.VideoWidth
	scaleY := canvas.Height / f.VideoHeight
	return gesture.Position{
		X: canvas.Width - lm.X*scaleX,
		Y: lm.Y * scaleY,
	}, true
}

// Observation is a frame with the time it was detected.
type Observation struct {
	Frame Frame
	At    time.Time
}

// ErrDetectorFailed marks a detector that can no longer produce frames,
// such as a tracker whose stream broke.
var ErrDetectorFailed = errors.New("detector failed")

// DetectLoop runs a detector on a schedule.Task and hands frames with at
// least one hand to the consumer over a small buffered channel. When the
// consumer falls behind, frames are dropped.
type DetectLoop struct {
	task   *schedule.Task
	cancel context.CancelFunc
	out    chan Observation
}

// StartDetectLoop polls det every interval until ctx is cancelled or Stop
// is called. Detector errors are logged and polling continues; io.EOF and
// ErrDetectorFailed end the loop. A det that is also an io.Closer is closed
// when the loop is cancelled, which unblocks a Detect stuck on a read.
func StartDetectLoop(ctx context.Context, det Detector, interval time.Duration, logger *slog.Logger) *DetectLoop {
	ctx, cancel := context.WithCancel(ctx)
	if c, ok := det.(io.Closer); ok {
		context.AfterFunc(ctx, func() {
			if err := c.Close(); err != nil {
				logger.Debug("detector close failed", "err", err)
			}
		})
	}

	out := make(chan Observation, 4)
	task := schedule.Every(ctx, interval, func(ctx context.Context, _ time.Time) error {
		f, err := det.Detect(ctx)
		switch {
		case errors.Is(err, io.EOF):
			logger.Info("detector finished")
			return schedule.ErrStopped
		case ctx.Err() != nil:
			return schedule.ErrStopped
		case errors.Is(err, ErrDetectorFailed):
			logger.Warn("detector lost, pointer only from now on", "err", err)
			return schedule.ErrStopped
		case err != nil:
			logger.Debug("detect failed", "err", err)
			return nil
		}
		if len(f.Hands) == 0 {
			return nil
		}
		select {
		case out <- Observation{Frame: f, At: time.Now()}:
		default:
			logger.Debug("detection dropped, consumer busy")
		}
		return nil
	})
	return &DetectLoop{task: task, cancel: cancel, out: out}
}

// Observations delivers detected frames. It is never closed; use Done to
// learn that the loop ended.
func (l *DetectLoop) Observations() <-chan Observation { return l.out }

// Done is closed when the loop has stopped.
func (l *DetectLoop) Done() <-chan struct{} { return l.task.Done() }

// Stop cancels the loop, closes a closable detector and waits for the
// in-flight detection to return.
func (l *DetectLoop) Stop() {
	l.cancel()
	l.task.Stop()
}
