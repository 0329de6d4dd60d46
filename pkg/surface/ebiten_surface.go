package surface

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

var (
	whiteImageOnce sync.Once
	whiteSubImage  *ebiten.Image
)

// whiteSource returns a 1×1 white source image for DrawTriangles.
// The image is created lazily so importing this package never touches the GPU.
func whiteSource() *ebiten.Image {
	whiteImageOnce.Do(func() {
		img := ebiten.NewImage(3, 3)
		img.Fill(color.White)
		whiteSubImage = img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	})
	return whiteSubImage
}

// EbitenSurface is an off-screen ebiten image used as the hidden canvas of
// the desktop viewer.
type EbitenSurface struct {
	img    *ebiten.Image
	width  int
	height int

	path vector.Path
	fill color.Color

	// Reused between Fill calls
	vertices []ebiten.Vertex
	indices  []uint16
}

// NewEbitenSurface allocates an off-screen image of the given size.
func NewEbitenSurface(width, height int) *EbitenSurface {
	return &EbitenSurface{
		img:    ebiten.NewImage(width, height),
		width:  width,
		height: height,
		fill:   color.Black,
	}
}

// Image returns the backing image. Draw it onto the screen to show the canvas.
func (s *EbitenSurface) Image() *ebiten.Image { return s.img }

// Width returns the canvas width in pixels.
func (s *EbitenSurface) Width() int { return s.width }

// Height returns the canvas height in pixels.
func (s *EbitenSurface) Height() int { return s.height }

func (s *EbitenSurface) ClearRect(x, y, width, height float64) {
	rect, full := clearRegion(x, y, width, height, s.img.Bounds())
	switch {
	case rect.Empty():
	case full:
		s.img.Clear()
	default:
		s.img.SubImage(rect).(*ebiten.Image).Clear()
	}
}

// clearRegion returns the pixels covered by a canvas clear, clipped to
// bounds, and whether they are the whole image.
func clearRegion(x, y, width, height float64, bounds image.Rectangle) (rect image.Rectangle, full bool) {
	rect = image.Rect(
		int(math.Floor(x)), int(math.Floor(y)),
		int(math.Ceil(x+width)), int(math.Ceil(y+height)),
	).Intersect(bounds)
	return rect, !rect.Empty() && rect == bounds
}

func (s *EbitenSurface) BeginPath() {
	s.path = vector.Path{}
}

func (s *EbitenSurface) Arc(x, y, radius, startAngle, endAngle float64, counterClockwise bool) {
	dir := vector.Clockwise
	if counterClockwise {
		dir = vector.CounterClockwise
	}
	s.path.Arc(float32(x), float32(y), float32(radius), float32(startAngle), float32(endAngle), dir)
}

func (s *EbitenSurface) SetFillColor(c color.Color) {
	s.fill = c
}

// Fill triangulates the current path and draws it with the fill colour.
func (s *EbitenSurface) Fill() error {
	s.vertices, s.indices = s.path.AppendVerticesAndIndicesForFilling(s.vertices[:0], s.indices[:0])
	if len(s.indices) == 0 {
		return nil
	}

	c := color.NRGBAModel.Convert(s.fill).(color.NRGBA)
	r := float32(c.R) / 0xff
	g := float32(c.G) / 0xff
	b := float32(c.B) / 0xff
	a := float32(c.A) / 0xff
	for i := range s.vertices {
		s.vertices[i].SrcX = 1
		s.vertices[i].SrcY = 1
		s.vertices[i].ColorR = r
		s.vertices[i].ColorG = g
		s.vertices[i].ColorB = b
		s.vertices[i].ColorA = a
	}

	op := &ebiten.DrawTrianglesOptions{AntiAlias: true}
	s.img.DrawTriangles(s.vertices, s.indices, whiteSource(), op)
	return nil
}
