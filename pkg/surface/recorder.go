package surface

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// OpKind identifies a recorded drawing call.
type OpKind int

const (
	OpClearRect OpKind = iota
	OpBeginPath
	OpArc
	OpSetFillColor
	OpFill
)

// String returns the canvas-style name of the call.
func (k OpKind) String() string {
	switch k {
	case OpClearRect:
		return "clearRect"
	case OpBeginPath:
		return "beginPath"
	case OpArc:
		return "arc"
	case OpSetFillColor:
		return "fillStyle"
	case OpFill:
		return "fill"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is one recorded call with its numeric arguments.
type Op struct {
	Kind  OpKind
	Args  []float64
	Color color.Color
	CCW   bool
}

// Circle is a filled arc as it was painted.
type Circle struct {
	X      float64
	Y      float64
	Radius float64
	Color  color.Color
	Full   bool // arc spans at least 2π
}

// Recorder is a drawing surface that records every call instead of
// rasterising. It backs headless tests and the --dry-run mode of the tools.
type Recorder struct {
	ops     []Op
	path    []Op
	fill    color.Color
	circles []Circle
	clears  int

	// FillErr, when set, is returned by every Fill call.
	FillErr error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		ops:     make([]Op, 0, 64),
		circles: make([]Circle, 0, 16),
	}
}

// ClearRect records the call and forgets every circle painted before it,
// whatever the rectangle. The simulator always clears the whole surface.
func (r *Recorder) ClearRect(x, y, width, height float64) {
	r.ops = append(r.ops, Op{Kind: OpClearRect, Args: []float64{x, y, width, height}})
	r.circles = r.circles[:0]
	r.clears++
}

func (r *Recorder) BeginPath() {
	r.ops = append(r.ops, Op{Kind: OpBeginPath})
	r.path = r.path[:0]
}

func (r *Recorder) Arc(x, y, radius, startAngle, endAngle float64, counterClockwise bool) {
	op := Op{Kind: OpArc, Args: []float64{x, y, radius, startAngle, endAngle}, CCW: counterClockwise}
	r.ops = append(r.ops, op)
	r.path = append(r.path, op)
}

func (r *Recorder) SetFillColor(c color.Color) {
	r.ops = append(r.ops, Op{Kind: OpSetFillColor, Color: c})
	r.fill = c
}

// Fill records the call and converts every arc in the current path into a Circle.
func (r *Recorder) Fill() error {
	r.ops = append(r.ops, Op{Kind: OpFill, Color: r.fill})
	if r.FillErr != nil {
		return r.FillErr
	}
	for _, arc := range r.path {
		sweep := math.Abs(arc.Args[4] - arc.Args[3])
		r.circles = append(r.circles, Circle{
			X:      arc.Args[0],
			Y:      arc.Args[1],
			Radius: arc.Args[2],
			Color:  r.fill,
			Full:   sweep >= 2*math.Pi,
		})
	}
	return nil
}

// Ops returns every recorded call since creation or the last Reset.
func (r *Recorder) Ops() []Op {
	return r.ops
}

// Circles returns the circles filled since the last ClearRect.
func (r *Recorder) Circles() []Circle {
	return r.circles
}

// Clears returns how many ClearRect calls were recorded.
func (r *Recorder) Clears() int {
	return r.clears
}

// Reset drops all recorded state.
func (r *Recorder) Reset() {
	r.ops = r.ops[:0]
	r.path = r.path[:0]
	r.circles = r.circles[:0]
	r.clears = 0
	r.fill = nil
}

// Trace renders the recorded calls as one canvas-style statement per line.
func (r *Recorder) Trace() string {
	var b strings.Builder
	for _, op := range r.ops {
		b.WriteString(op.Kind.String())
		switch op.Kind {
		case OpClearRect, OpArc:
			b.WriteString("(")
			for i, a := range op.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%.2f", a)
			}
			if op.Kind == OpArc {
				fmt.Fprintf(&b, ", %t", op.CCW)
			}
			b.WriteString(")")
		case OpSetFillColor:
			cr, cg, cb, ca := op.Color.RGBA()
			fmt.Fprintf(&b, " = rgba(%d, %d, %d, %d)", cr>>8, cg>>8, cb>>8, ca>>8)
		default:
			b.WriteString("()")
		}
		b.WriteString("\n")
	}
	return b.String()
}
