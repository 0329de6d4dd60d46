package particle

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/gonewx/mapcanvas/internal/valuerange"
)

// ErrInvalidConfig marks precondition violations detected when a simulator
// is created.
var ErrInvalidConfig = errors.New("invalid particle configuration")

// Default simulation parameters.
const (
	DefaultMaxParticles = 100
	DefaultGravity      = 0.1
)

// Default respawn ranges (像素/帧, pixels).
var (
	DefaultVelocityX = valuerange.Range{Min: -2, Max: 3}
	DefaultVelocityY = valuerange.Range{Min: -9, Max: -3}
	DefaultRadius    = valuerange.Range{Min: 1, Max: 5}
	DefaultFillColor = color.RGBA{R: 0xff, A: 0xff}
)

// Options are the tunable parameters of a simulation.
type Options struct {
	// MaxParticles caps the pool size. Zero is valid and keeps the pool empty.
	MaxParticles int

	// Gravity is added to every particle's vertical velocity once per tick.
	Gravity float64

	// Respawn ranges. VelocityY must be strictly negative (upward launch).
	VelocityX valuerange.Range
	VelocityY valuerange.Range
	Radius    valuerange.Range

	// FillColor is used for every particle.
	FillColor color.Color
}

// DefaultOptions returns the options of the classic fountain demo.
func DefaultOptions() Options {
	return Options{
		MaxParticles: DefaultMaxParticles,
		Gravity:      DefaultGravity,
		VelocityX:    DefaultVelocityX,
		VelocityY:    DefaultVelocityY,
		Radius:       DefaultRadius,
		FillColor:    DefaultFillColor,
	}
}

// Validate checks the options for precondition violations.
func (o Options) Validate() error {
	if o.MaxParticles < 0 {
		return fmt.Errorf("%w: max particles %d is negative", ErrInvalidConfig, o.MaxParticles)
	}
	if math.IsNaN(o.Gravity) || math.IsInf(o.Gravity, 0) {
		return fmt.Errorf("%w: gravity %v is not finite", ErrInvalidConfig, o.Gravity)
	}
	if err := o.VelocityX.Validate(); err != nil {
		return fmt.Errorf("%w: velocityX: %v", ErrInvalidConfig, err)
	}
	if err := o.VelocityY.Validate(); err != nil {
		return fmt.Errorf("%w: velocityY: %v", ErrInvalidConfig, err)
	}
	if o.VelocityY.Min >= 0 || o.VelocityY.Max > 0 {
		return fmt.Errorf("%w: velocityY %v must launch upward (negative)", ErrInvalidConfig, o.VelocityY)
	}
	if err := o.Radius.Validate(); err != nil {
		return fmt.Errorf("%w: radius: %v", ErrInvalidConfig, err)
	}
	if o.Radius.Min <= 0 {
		return fmt.Errorf("%w: radius %v must be positive", ErrInvalidConfig, o.Radius)
	}
	if o.FillColor == nil {
		return fmt.Errorf("%w: fill color is nil", ErrInvalidConfig)
	}
	return nil
}
