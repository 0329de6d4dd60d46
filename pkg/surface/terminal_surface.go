package surface

import (
	"image/color"
	"math"

	"github.com/gdamore/tcell/v2"
)

// ParticleRune is drawn in every cell covered by a filled circle.
const ParticleRune = '●'

type pendingArc struct {
	x, y, radius float64
}

// TerminalSurface rasterises the canvas onto a tcell screen. Canvas pixels
// are scaled to the screen's current cell grid, so one cell covers several
// pixels; any circle touching a cell centre lights that cell.
type TerminalSurface struct {
	screen tcell.Screen
	width  float64
	height float64

	background tcell.Style
	fill       tcell.Color
	path       []pendingArc
}

// NewTerminalSurface wraps screen as a width×height canvas.
func NewTerminalSurface(screen tcell.Screen, width, height int) *TerminalSurface {
	return &TerminalSurface{
		screen:     screen,
		width:      float64(width),
		height:     float64(height),
		background: tcell.StyleDefault,
		fill:       tcell.ColorRed,
	}
}

// SetBackground sets the style used for cleared cells.
func (s *TerminalSurface) SetBackground(style tcell.Style) {
	s.background = style
}

// cellScale returns how many canvas pixels one cell spans on each axis.
func (s *TerminalSurface) cellScale() (sx, sy float64, cols, rows int) {
	cols, rows = s.screen.Size()
	if cols <= 0 || rows <= 0 {
		return 0, 0, cols, rows
	}
	return s.width / float64(cols), s.height / float64(rows), cols, rows
}

func (s *TerminalSurface) ClearRect(x, y, width, height float64) {
	sx, sy, cols, rows := s.cellScale()
	if sx == 0 || sy == 0 {
		return
	}
	c0 := clampInt(int(math.Floor(x/sx)), 0, cols)
	r0 := clampInt(int(math.Floor(y/sy)), 0, rows)
	c1 := clampInt(int(math.Ceil((x+width)/sx)), 0, cols)
	r1 := clampInt(int(math.Ceil((y+height)/sy)), 0, rows)
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			s.screen.SetContent(col, row, ' ', nil, s.background)
		}
	}
}

func (s *TerminalSurface) BeginPath() {
	s.path = s.path[:0]
}

// Arc records the circle the arc belongs to. Partial arcs are filled as full
// circles; cells are too coarse to show a sector.
func (s *TerminalSurface) Arc(x, y, radius, startAngle, endAngle float64, counterClockwise bool) {
	s.path = append(s.path, pendingArc{x: x, y: y, radius: radius})
}

func (s *TerminalSurface) SetFillColor(c color.Color) {
	s.fill = tcell.FromImageColor(c)
}

func (s *TerminalSurface) Fill() error {
	sx, sy, cols, rows := s.cellScale()
	if sx == 0 || sy == 0 {
		return nil
	}
	style := s.background.Foreground(s.fill)

	for _, arc := range s.path {
		// Centre cell is always lit so sub-cell particles stay visible.
		cc := int(arc.x / sx)
		cr := int(arc.y / sy)
		if cc == cols {
			cc--
		}
		if cr == rows {
			cr--
		}
		if cc >= 0 && cc < cols && cr >= 0 && cr < rows {
			s.screen.SetContent(cc, cr, ParticleRune, nil, style)
		}

		c0 := clampInt(int(math.Floor((arc.x-arc.radius)/sx)), 0, cols)
		c1 := clampInt(int(math.Ceil((arc.x+arc.radius)/sx)), 0, cols)
		r0 := clampInt(int(math.Floor((arc.y-arc.radius)/sy)), 0, rows)
		r1 := clampInt(int(math.Ceil((arc.y+arc.radius)/sy)), 0, rows)
		for row := r0; row < r1; row++ {
			for col := c0; col < c1; col++ {
				px := (float64(col) + 0.5) * sx
				py := (float64(row) + 0.5) * sy
				if math.Hypot(px-arc.x, py-arc.y) <= arc.radius {
					s.screen.SetContent(col, row, ParticleRune, nil, style)
				}
			}
		}
	}
	return nil
}

// Present flushes the drawn cells to the terminal.
func (s *TerminalSurface) Present() {
	s.screen.Show()
}
