package overlay

import (
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/gonewx/mapcanvas/pkg/metrics"
	"github.com/gonewx/mapcanvas/pkg/particle"
)

// Canvas is a particle surface whose pixels can be read back.
type Canvas interface {
	particle.Surface
	Image() image.Image
}

// Renderer ticks a simulator into an off-screen canvas and publishes each
// finished frame. Its Tick method is the loop callback of the headless server.
type Renderer struct {
	sim       *particle.Simulator
	canvas    Canvas
	store     *FrameStore
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewRenderer wires the pieces together. collector and logger may be nil.
func NewRenderer(sim *particle.Simulator, canvas Canvas, store *FrameStore, collector *metrics.Collector, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		sim:       sim,
		canvas:    canvas,
		store:     store,
		collector: collector,
		logger:    logger.Named("Renderer"),
	}
}

// Tick advances the simulation one frame, renders it and publishes the
// snapshot.
func (r *Renderer) Tick() error {
	start := time.Now()

	if err := r.sim.Tick(r.canvas); err != nil {
		if r.collector != nil {
			r.collector.ObserveError()
		}
		return err
	}

	frame, err := r.store.Publish(r.canvas.Image())
	if err != nil {
		if r.collector != nil {
			r.collector.ObserveError()
		}
		return err
	}

	if r.collector != nil {
		r.collector.ObserveTick(time.Since(start), metrics.TickStats{
			PoolSize: r.sim.Size(),
			Respawns: r.sim.Respawns(),
		})
	}
	if frame.Seq%600 == 0 {
		r.logger.Debug("frames published",
			zap.Uint64("seq", frame.Seq),
			zap.Int("pool", r.sim.Size()),
			zap.Uint64("respawns", r.sim.Respawns()))
	}
	return nil
}
