package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Recording is a captured detector session.
type Recording struct {
	VideoWidth  float64 `json:"videoWidth"`
	VideoHeight float64 `json:"videoHeight"`
	Frames      []Frame `json:"frames"`
}

// ReadRecording decodes a recording. Frames without their own video size
// inherit the recording's.
func ReadRecording(r io.Reader) (Recording, error) {
	var rec Recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return Recording{}, fmt.Errorf("decode recording: %w", err)
	}
	for i := range rec.Frames {
		if rec.Frames[i].VideoWidth == 0 {
			rec.Frames[i].VideoWidth = rec.VideoWidth
		}
		if rec.Frames[i].VideoHeight == 0 {
			rec.Frames[i].VideoHeight = rec.VideoHeight
		}
	}
	return rec, nil
}

// LoadRecording reads a recording from a JSON file.
func LoadRecording(path string) (Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return Recording{}, err
	}
	defer f.Close()
	return ReadRecording(f)
}

// Replay is a Detector that plays a recording back one frame per call.
type Replay struct {
	rec  Recording
	loop bool

	mu  sync.Mutex
	pos int
}

// NewReplay plays rec, starting over at the end when loop is set.
func NewReplay(rec Recording, loop bool) *Replay {
	return &Replay{rec: rec, loop: loop}
}

func (r *Replay) Detect(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos >= len(r.rec.Frames) {
		if !r.loop || len(r.rec.Frames) == 0 {
			return Frame{}, io.EOF
		}
		r.pos = 0
	}
	f := r.rec.Frames[r.pos]
	r.pos++
	return f, nil
}
