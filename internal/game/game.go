// Package game runs the instrument in an ebiten window.
package game

import (
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/iburimskiy/gesture-music/internal/gesture"
	"github.com/iburimskiy/gesture-music/internal/particles"
	"github.com/iburimskiy/gesture-music/internal/render"
	"github.com/iburimskiy/gesture-music/internal/source"
)

// Muter is implemented by sinks that can be silenced.
type Muter interface {
	SetMuted(bool)
	Muted() bool
}

// Meter is implemented by sinks that can report their output level.
type Meter interface {
	Level() float64
}

// Options wire a Game.
type Options struct {
	Instrument  *gesture.Instrument
	Field       *particles.Field
	Loop        *render.Loop
	Unlock      *gesture.Unlocker
	Detect      *source.DetectLoop // optional
	Landmark    int
	Muter       Muter // optional
	Meter       Meter // optional
	SnapshotDir string
	Logger      *slog.Logger
}

// Game is the ebiten.Game. Update and Draw run on the same goroutine, which
// is the only one touching the instrument and the field.
type Game struct {
	opts Options

	// canvas keeps the trail between frames
	canvas        *ebiten.Image
	width, height int

	touchIDs []ebiten.TouchID

	showInstructions bool
	started          time.Time
	lastErr          error
	quit             atomic.Bool

	now func() time.Time
}

// New returns a Game that shows the instructions until the first click.
func New(opts Options) *Game {
	return &Game{
		opts:             opts,
		showInstructions: true,
		started:          time.Now(),
		now:              time.Now,
	}
}

// Quit ends the game on its next update. It is safe to call from any
// goroutine.
func (g *Game) Quit() { g.quit.Store(true) }

func (g *Game) size() gesture.Size {
	return gesture.Size{Width: float64(g.width), Height: float64(g.height)}
}

func (g *Game) Update() error {
	if g.quit.Load() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}

	presses := g.pointerPresses()

	if g.showInstructions {
		if len(presses) > 0 || inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
			// the dismissing click is not a note
			g.showInstructions = false
		}
		g.drainDetections(false)
		return nil
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) && g.opts.Muter != nil {
		g.opts.Muter.SetMuted(!g.opts.Muter.Muted())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.lastErr = g.snapshot()
	}

	for _, p := range presses {
		g.opts.Instrument.Play(p, g.size(), g.now())
	}
	g.drainDetections(true)
	return nil
}

// pointerPresses collects this tick's mouse clicks and new touches.
func (g *Game) pointerPresses() []gesture.Position {
	var out []gesture.Position
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		out = append(out, gesture.Position{X: float64(x), Y: float64(y)})
	}
	g.touchIDs = inpututil.AppendJustPressedTouchIDs(g.touchIDs[:0])
	for _, id := range g.touchIDs {
		x, y := ebiten.TouchPosition(id)
		out = append(out, gesture.Position{X: float64(x), Y: float64(y)})
	}
	return out
}

// drainDetections takes every pending detector frame without blocking.
func (g *Game) drainDetections(play bool) {
	if g.opts.Detect == nil {
		return
	}
	for {
		select {
		case obs := <-g.opts.Detect.Observations():
			if !play {
				continue
			}
			pos, ok := source.ToCanvas(obs.Frame, g.opts.Landmark, g.size())
			if !ok {
				continue
			}
			g.opts.Logger.Debug("hand detected", "x", pos.X, "y", pos.Y, "lag", time.Since(obs.At))
			g.opts.Instrument.Play(pos, g.size(), g.now())
		default:
			return
		}
	}
}

func (g *Game) snapshot() error {
	name := fmt.Sprintf("snapshot-%s.png", g.now().Format("20060102-150405"))
	path := filepath.Join(g.opts.SnapshotDir, name)
	if err := render.Snapshot(g.opts.Field, g.width, g.height, g.now(), path); err != nil {
		g.opts.Logger.Error("snapshot failed", "err", err)
		return err
	}
	g.opts.Logger.Info("snapshot saved", "path", path)
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.ensureCanvas()
	g.opts.Loop.Frame(imageSurface{g.canvas}, g.now())
	screen.DrawImage(g.canvas, nil)

	if g.showInstructions {
		g.drawInstructions(screen)
		return
	}
	g.drawHUD(screen)
}

// ensureCanvas (re)creates the trail canvas whenever the window size changes.
func (g *Game) ensureCanvas() {
	if g.canvas != nil {
		b := g.canvas.Bounds()
		if b.Dx() == g.width && b.Dy() == g.height {
			return
		}
		g.canvas.Deallocate()
	}
	g.canvas = ebiten.NewImage(max(g.width, 1), max(g.height, 1))
	g.canvas.Fill(color.White)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.width, g.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// imageSurface lets the render loop paint on an ebiten image.
type imageSurface struct {
	img *ebiten.Image
}

func (s imageSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s imageSurface) Wash(c color.Color) {
	w, h := s.Size()
	vector.DrawFilledRect(s.img, 0, 0, float32(w), float32(h), c, false)
}

func (s imageSurface) FillCircle(x, y, r float64, c color.Color) {
	vector.DrawFilledCircle(s.img, float32(x), float32(y), float32(r), c, true)
}
