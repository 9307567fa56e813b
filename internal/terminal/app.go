package terminal

import (
	"context"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/iburimskiy/gesture-music/internal/gesture"
	"github.com/iburimskiy/gesture-music/internal/render"
	"github.com/iburimskiy/gesture-music/internal/source"
)

const frameInterval = 16 * time.Millisecond // ~60 FPS

// Muter is implemented by sinks that can be silenced.
type Muter interface {
	SetMuted(bool)
	Muted() bool
}

// Options wire an App.
type Options struct {
	Instrument *gesture.Instrument
	Loop       *render.Loop
	Unlock     *gesture.Unlocker
	Detect     *source.DetectLoop // optional
	Landmark   int
	Muter      Muter // optional
	Logger     *slog.Logger
}

// App owns the event loop in terminal mode. Every instrument call happens
// on the goroutine running Run.
type App struct {
	opts    Options
	screen  tcell.Screen
	surface *Surface
	pointer source.Pointer
	now     func() time.Time
}

// New prepares an App on an initialised screen.
func New(screen tcell.Screen, opts Options) *App {
	return &App{
		opts:    opts,
		screen:  screen,
		surface: NewSurface(screen),
		now:     time.Now,
	}
}

// Run loops until ctx is cancelled or the user quits. The caller finalises
// the screen afterwards.
func (a *App) Run(ctx context.Context) error {
	a.screen.EnableMouse()
	a.screen.HideCursor()

	events := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return // screen finalised
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	var observations <-chan source.Observation
	if a.opts.Detect != nil {
		observations = a.opts.Detect.Observations()
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !a.handle(ev) {
				return nil
			}
		case obs := <-observations:
			a.detected(obs)
		case <-ticker.C:
			a.draw()
		}
	}
}

func (a *App) canvas() gesture.Size {
	w, h := a.surface.Size()
	return gesture.Size{Width: float64(w), Height: float64(h)}
}

// handle reacts to one terminal event. It returns false to quit.
func (a *App) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			return false
		case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
			if a.opts.Muter != nil {
				a.opts.Muter.SetMuted(!a.opts.Muter.Muted())
			}
		}

	case *tcell.EventMouse:
		col, row := ev.Position()
		x := (float64(col) + 0.5) * CellWidth
		y := (float64(row) + 0.5) * CellHeight
		if pos, ok := a.pointer.Update(x, y, ev.Buttons()&tcell.Button1 != 0); ok {
			a.opts.Instrument.Play(pos, a.canvas(), a.now())
		}

	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) detected(obs source.Observation) {
	pos, ok := source.ToCanvas(obs.Frame, a.opts.Landmark, a.canvas())
	if !ok {
		return
	}
	a.opts.Logger.Debug("hand detected", "x", pos.X, "y", pos.Y, "lag", time.Since(obs.At))
	a.opts.Instrument.Play(pos, a.canvas(), a.now())
}

func (a *App) draw() {
	a.opts.Loop.Frame(a.surface, a.now())
	a.surface.Flush()
	a.drawStatus()
	a.screen.Show()
}

func (a *App) drawStatus() {
	status := "click to play | q: quit"
	if a.opts.Muter != nil {
		status += " | space: mute"
		if a.opts.Muter.Muted() {
			status += " [muted]"
		}
	}
	status += " | audio " + a.opts.Unlock.State().String()

	style := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	for i, r := range status {
		a.screen.SetContent(i, 0, r, nil, style)
	}
}
