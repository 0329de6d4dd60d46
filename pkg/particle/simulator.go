package particle

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Simulator owns the particle pool and the emitter, advances the physics once
// per tick and renders the current frame.
//
// The simulator processes a frame in three fixed phases:
//  1. SpawnOrGrowPool: add one particle while the pool is below its cap
//  2. Advance: apply gravity, integrate and recycle out-of-bounds particles
//  3. Render: clear the surface and fill one circle per particle
type Simulator struct {
	opts Options

	// Surface bounds, read once at creation
	width  float64
	height float64

	emitter Emitter
	pool    []Particle
	rng     RandSource

	frame    uint64
	respawns uint64

	logger *zap.Logger
}

// SimulatorOption customises a Simulator at creation time.
type SimulatorOption func(*Simulator)

// WithRand injects the random source used by Respawn.
func WithRand(rng RandSource) SimulatorOption {
	return func(s *Simulator) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithSeed seeds a math/rand source. Identical seeds give identical trajectories.
func WithSeed(seed int64) SimulatorOption {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *zap.Logger) SimulatorOption {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger.Named("Simulator")
		}
	}
}

// poolPrealloc bounds the initial pool capacity; the pool grows lazily past it.
const poolPrealloc = 1024

// NewSimulator creates a simulator for a surface of the given size.
// The emitter is fixed at the horizontal centre of the bottom edge.
//
// Returns an error wrapping ErrInvalidConfig for negative pool caps,
// non-positive surface dimensions or unusable respawn ranges.
func NewSimulator(opts Options, width, height int, simOpts ...SimulatorOption) (*Simulator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: surface size %dx%d must be positive", ErrInvalidConfig, width, height)
	}

	s := &Simulator{
		opts:   opts,
		width:  float64(width),
		height: float64(height),
		emitter: Emitter{
			X: float64(width) / 2,
			Y: float64(height),
		},
		pool:   make([]Particle, 0, min(opts.MaxParticles, poolPrealloc)),
		logger: zap.NewNop(),
	}

	for _, opt := range simOpts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s.logger.Debug("simulator created",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("maxParticles", opts.MaxParticles),
		zap.Float64("gravity", opts.Gravity),
		zap.Float64("emitterX", s.emitter.X),
		zap.Float64("emitterY", s.emitter.Y),
	)

	return s, nil
}

// SpawnOrGrowPool appends one freshly respawned particle while the pool is
// below its cap. It is a no-op once the cap is reached.
func (s *Simulator) SpawnOrGrowPool() {
	if len(s.pool) >= s.opts.MaxParticles {
		return
	}
	var p Particle
	s.Respawn(&p)
	s.pool = append(s.pool, p)
}

// Respawn resets p to the emitter with a new random velocity and radius.
// The same rule initialises new particles and recycles escaped ones.
func (s *Simulator) Respawn(p *Particle) {
	p.X = s.emitter.X
	p.Y = s.emitter.Y
	p.VX = s.opts.VelocityX.Sample(s.rng.Float64())
	p.VY = s.opts.VelocityY.Sample(s.rng.Float64())
	p.Radius = s.opts.Radius.Sample(s.rng.Float64())
}

// Advance moves every particle one step in pool order.
// A particle that ends the step outside [0, width] × [0, height] is
// respawned in the same slot before Advance returns.
func (s *Simulator) Advance() {
	for i := range s.pool {
		p := &s.pool[i]

		p.VY += s.opts.Gravity
		p.X += p.VX
		p.Y += p.VY

		if s.outOfBounds(p) {
			s.Respawn(p)
			s.respawns++
		}
	}
}

func (s *Simulator) outOfBounds(p *Particle) bool {
	return p.X > s.width || p.X < 0 || p.Y > s.height || p.Y < 0
}

// Render clears the whole surface and fills one circle per particle.
// The first Fill error aborts the pass.
func (s *Simulator) Render(surface Surface) error {
	surface.ClearRect(0, 0, s.width, s.height)

	for i := range s.pool {
		p := &s.pool[i]
		surface.BeginPath()
		surface.Arc(p.X, p.Y, p.Radius, 0, 2*math.Pi, false)
		surface.SetFillColor(s.opts.FillColor)
		if err := surface.Fill(); err != nil {
			return fmt.Errorf("fill particle %d: %w", i, err)
		}
	}
	return nil
}

// Tick runs one frame: SpawnOrGrowPool, Advance, Render, in that order.
// A particle spawned in this frame is advanced and drawn in the same frame.
func (s *Simulator) Tick(surface Surface) error {
	s.SpawnOrGrowPool()
	s.Advance()
	if err := s.Render(surface); err != nil {
		return fmt.Errorf("render frame %d: %w", s.frame+1, err)
	}
	s.frame++
	return nil
}

// Reset empties the pool. The emitter and counters are kept.
func (s *Simulator) Reset() {
	s.logger.Debug("pool reset", zap.Int("particles", len(s.pool)), zap.Uint64("frame", s.frame))
	s.pool = s.pool[:0]
}

// SetGravity changes the per-tick gravity increment for subsequent ticks.
func (s *Simulator) SetGravity(g float64) error {
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return fmt.Errorf("%w: gravity %v is not finite", ErrInvalidConfig, g)
	}
	s.opts.Gravity = g
	return nil
}

// Gravity returns the current per-tick gravity increment.
func (s *Simulator) Gravity() float64 {
	return s.opts.Gravity
}

// Options returns the options the simulator runs with.
func (s *Simulator) Options() Options {
	return s.opts
}

// Particles returns a copy of the pool in pool order.
func (s *Simulator) Particles() []Particle {
	out := make([]Particle, len(s.pool))
	copy(out, s.pool)
	return out
}

// Size returns the current pool size.
func (s *Simulator) Size() int {
	return len(s.pool)
}

// Emitter returns the spawn origin.
func (s *Simulator) Emitter() Emitter {
	return s.emitter
}

// Bounds returns the surface size the simulator was created for.
func (s *Simulator) Bounds() (width, height float64) {
	return s.width, s.height
}

// Frame returns the number of completed ticks.
func (s *Simulator) Frame() uint64 {
	return s.frame
}

// Respawns returns how many particles have been recycled after leaving the surface.
func (s *Simulator) Respawns() uint64 {
	return s.respawns
}
