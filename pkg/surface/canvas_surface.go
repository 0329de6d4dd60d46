package surface

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/gogpu/gg"
)

// CanvasSurface is a software canvas backed by a gg drawing context.
type CanvasSurface struct {
	dc     *gg.Context
	width  int
	height int
}

// NewCanvasSurface creates a transparent canvas of the given size.
func NewCanvasSurface(width, height int) *CanvasSurface {
	return &CanvasSurface{
		dc:     gg.NewContext(width, height),
		width:  width,
		height: height,
	}
}

// Width returns the canvas width in pixels.
func (s *CanvasSurface) Width() int { return s.width }

// Height returns the canvas height in pixels.
func (s *CanvasSurface) Height() int { return s.height }

// ClearRect resets the rectangle to transparent pixels.
// The rectangle is clipped to the canvas.
func (s *CanvasSurface) ClearRect(x, y, width, height float64) {
	x0 := clampInt(int(math.Floor(x)), 0, s.width)
	y0 := clampInt(int(math.Floor(y)), 0, s.height)
	x1 := clampInt(int(math.Ceil(x+width)), 0, s.width)
	y1 := clampInt(int(math.Ceil(y+height)), 0, s.height)

	if x0 == 0 && y0 == 0 && x1 == s.width && y1 == s.height {
		s.dc.Clear()
		return
	}
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			s.dc.SetPixel(px, py, gg.Transparent)
		}
	}
}

func (s *CanvasSurface) BeginPath() {
	s.dc.ClearPath()
}

// Arc appends an arc to the current path. A sweep of 2π or more in either
// direction is a full circle. gg always sweeps with increasing angles, so a
// partial counter-clockwise arc is added with its end points swapped; the
// filled region is the same.
func (s *CanvasSurface) Arc(x, y, radius, startAngle, endAngle float64, counterClockwise bool) {
	if math.Abs(endAngle-startAngle) >= 2*math.Pi {
		s.dc.DrawArc(x, y, radius, startAngle, startAngle+2*math.Pi)
		return
	}
	if counterClockwise {
		startAngle, endAngle = endAngle, startAngle
	}
	if endAngle == startAngle {
		return
	}
	s.dc.DrawArc(x, y, radius, startAngle, endAngle)
}

func (s *CanvasSurface) SetFillColor(c color.Color) {
	s.dc.SetColor(c)
}

func (s *CanvasSurface) Fill() error {
	if err := s.dc.Fill(); err != nil {
		return fmt.Errorf("canvas fill: %w", err)
	}
	return nil
}

// Image returns a copy of the current canvas pixels.
func (s *CanvasSurface) Image() image.Image {
	return s.dc.Image()
}

// EncodePNG writes the canvas as PNG.
func (s *CanvasSurface) EncodePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}

// SavePNG writes the canvas to a PNG file.
func (s *CanvasSurface) SavePNG(path string) error {
	return s.dc.SavePNG(path)
}

// Close releases the drawing context.
func (s *CanvasSurface) Close() error {
	return s.dc.Close()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
