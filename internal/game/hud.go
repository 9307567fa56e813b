package game

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/iburimskiy/gesture-music/internal/config"
)

var instructions = []string{
	"Gesture? Music!",
	"",
	"Move your index finger in front of the camera, or click.",
	"Low notes at the bottom, high notes at the top.",
	"The left half and the right half play different voices.",
	"Every dot is the trace of a note you made.",
	"",
	"Click or press Enter to start.",
}

func (g *Game) drawHUD(screen *ebiten.Image) {
	status := fmt.Sprintf("%s | audio %s | dots %d", formatDuration(g.now().Sub(g.started)), g.opts.Unlock.State(), g.opts.Field.Len())
	if g.opts.Muter != nil {
		if g.opts.Muter.Muted() {
			status += " | muted - Space to unmute"
		} else {
			status += " | Space to mute"
		}
	}
	status += " | S: snapshot | Esc/Q: quit"
	if g.lastErr != nil {
		status += " | Error: " + g.lastErr.Error()
	}
	ebitenutil.DebugPrintAt(screen, status, 12, 12)

	if g.opts.Meter != nil {
		g.drawMeter(screen, g.opts.Meter.Level())
	}
}

// drawMeter shows the recent output level as a small bar.
func (g *Game) drawMeter(screen *ebiten.Image, level float64) {
	x, y := float32(config.MeterX), float32(config.MeterY)
	w, h := float32(config.MeterWidth), float32(config.MeterHeight)

	vector.DrawFilledRect(screen, x, y, w, h, color.RGBA{R: 20, G: 25, B: 35, A: 200}, false)
	if fill := float32(clamp01(level)) * w; fill > 0 {
		vector.DrawFilledRect(screen, x, y, fill, h, color.RGBA{R: 0, G: 180, B: 200, A: 255}, false)
	}
	vector.StrokeRect(screen, x, y, w, h, 1, color.RGBA{R: 60, G: 70, B: 90, A: 255}, false)
}

func (g *Game) drawInstructions(screen *ebiten.Image) {
	vector.DrawFilledRect(screen, 0, 0, float32(g.width), float32(g.height), color.RGBA{R: 255, G: 255, B: 255, A: 230}, false)

	// debug font glyphs are 6x16
	top := g.height/2 - len(instructions)*16/2
	for i, line := range instructions {
		x := (g.width - len(line)*6) / 2
		ebitenutil.DebugPrintAt(screen, line, x, top+i*16)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// formatDuration formats a duration as MM:SS
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
