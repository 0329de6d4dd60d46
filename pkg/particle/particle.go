// Package particle implements the canvas particle simulator: a bounded pool of
// gravity-accelerated particles that are recycled at a single emitter when they
// leave the drawing surface.
//
// The simulator is driven from the outside. Each call to Tick grows the pool by
// at most one particle, advances every particle by one explicit Euler step and
// repaints the whole surface:
//
//	sim, err := particle.NewSimulator(particle.DefaultOptions(), 400, 400)
//	if err != nil { ... }
//	for frame := range frames {
//		if err := sim.Tick(surface); err != nil { ... }
//	}
//
// A Simulator is not safe for concurrent use; exactly one goroutine (the frame
// loop) owns it.
package particle

import "image/color"

// Particle is a single simulated point.
// Particles are owned by the simulator's pool and are recycled in place.
type Particle struct {
	// Position (画布坐标, pixels)
	X float64
	Y float64

	// Velocity (像素/帧)
	VX float64
	VY float64

	// Radius of the drawn circle (pixels, > 0)
	Radius float64
}

// Emitter is the spawn and respawn origin shared by all particles.
type Emitter struct {
	X float64
	Y float64
}

// Surface is the 2D raster drawing context the simulator paints into.
// The method set mirrors the subset of an HTML canvas 2D context the render
// pass needs.
type Surface interface {
	// ClearRect resets the rectangle to transparent pixels.
	ClearRect(x, y, width, height float64)
	// BeginPath discards the current path.
	BeginPath()
	// Arc adds a circular arc centred on (x, y) to the current path.
	// Angles are in radians; counterClockwise selects the winding direction.
	Arc(x, y, radius, startAngle, endAngle float64, counterClockwise bool)
	// SetFillColor sets the colour used by Fill.
	SetFillColor(c color.Color)
	// Fill paints the interior of the current path.
	Fill() error
}

// RandSource supplies uniformly distributed values in [0, 1).
// *math/rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}
