package source

import "github.com/iburimskiy/gesture-music/internal/gesture"

// Pointer turns a stream of button states into one position per press.
// Backends that only report "button is down" (terminal mouse events) feed
// every report through Update; holding or dragging produces nothing.
type Pointer struct {
	down bool
}

// Update records the button state at (x, y) and reports a position only on
// the transition from up to down.
func (p *Pointer) Update(x, y float64, down bool) (gesture.Position, bool) {
	pressed := down && !p.down
	p.down = down
	if !pressed {
		return gesture.Position{}, false
	}
	return gesture.Position{X: x, Y: y}, true
}
