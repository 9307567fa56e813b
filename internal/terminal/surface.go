// Package terminal runs the instrument in a terminal: cells are painted as
// coloured blocks and the mouse plays notes.
package terminal

import (
	"image/color"
	"math"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// A cell stands for a block of canvas pixels so that dot radii keep the
// same meaning as in the window.
const (
	CellWidth  = 8
	CellHeight = 16
)

var white = colorful.Color{R: 1, G: 1, B: 1}

// Surface paints onto a tcell screen. Colours are accumulated per cell and
// pushed to the screen by Flush.
type Surface struct {
	screen tcell.Screen
	cols   int
	rows   int
	cells  []colorful.Color
}

// NewSurface starts a white canvas sized to screen.
func NewSurface(screen tcell.Screen) *Surface {
	s := &Surface{screen: screen}
	s.resize()
	return s
}

// resize follows the screen size, starting a resized canvas from white.
func (s *Surface) resize() {
	cols, rows := s.screen.Size()
	if cols == s.cols && rows == s.rows {
		return
	}
	s.cols, s.rows = cols, rows
	s.cells = make([]colorful.Color, max(cols*rows, 0))
	for i := range s.cells {
		s.cells[i] = white
	}
}

// Size returns the canvas size in pixels.
func (s *Surface) Size() (int, int) {
	s.resize()
	return s.cols * CellWidth, s.rows * CellHeight
}

func (s *Surface) Wash(c color.Color) {
	target, alpha := split(c)
	for i := range s.cells {
		s.cells[i] = s.cells[i].BlendRgb(target, alpha)
	}
}

// FillCircle blends every cell whose centre lies within the circle.
func (s *Surface) FillCircle(x, y, r float64, c color.Color) {
	target, alpha := split(c)
	// always mark the cell under the centre so small dots stay visible
	cx, cy := int(x/CellWidth), int(y/CellHeight)
	s.blend(cx, cy, target, alpha)

	x0 := int(math.Floor((x - r) / CellWidth))
	x1 := int(math.Ceil((x + r) / CellWidth))
	y0 := int(math.Floor((y - r) / CellHeight))
	y1 := int(math.Ceil((y + r) / CellHeight))
	for row := y0; row <= y1; row++ {
		for col := x0; col <= x1; col++ {
			if col == cx && row == cy {
				continue
			}
			px := (float64(col) + 0.5) * CellWidth
			py := (float64(row) + 0.5) * CellHeight
			if math.Hypot(px-x, py-y) <= r {
				s.blend(col, row, target, alpha)
			}
		}
	}
}

func (s *Surface) blend(col, row int, c colorful.Color, alpha float64) {
	if col < 0 || row < 0 || col >= s.cols || row >= s.rows {
		return
	}
	i := row*s.cols + col
	s.cells[i] = s.cells[i].BlendRgb(c, alpha)
}

// At returns the accumulated colour of a cell.
func (s *Surface) At(col, row int) colorful.Color {
	return s.cells[row*s.cols+col]
}

// Flush writes the cells to the screen as background colours.
func (s *Surface) Flush() {
	for row := 0; row < s.rows; row++ {
		for col := 0; col < s.cols; col++ {
			r, g, b := s.cells[row*s.cols+col].Clamped().RGB255()
			style := tcell.StyleDefault.Background(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
			s.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

// split turns any colour into its straight RGB and alpha.
func split(c color.Color) (colorful.Color, float64) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return colorful.Color{
		R: float64(n.R) / 255,
		G: float64(n.G) / 255,
		B: float64(n.B) / 255,
	}, float64(n.A) / 255
}
