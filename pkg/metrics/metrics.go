// Package metrics exposes Prometheus collectors for the simulation loop.
package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mapcanvas"

// TickStats is the simulator state observed after a tick.
type TickStats struct {
	PoolSize int
	Respawns uint64
}

// Collector records per-tick simulation metrics.
type Collector struct {
	ticks        prometheus.Counter
	respawns     prometheus.Counter
	poolSize     prometheus.Gauge
	tickDuration prometheus.Histogram
	tickErrors   prometheus.Counter

	mu           sync.Mutex
	lastRespawns uint64
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Number of completed simulation ticks",
		}),
		respawns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "respawns_total",
			Help:      "Number of particles recycled after leaving the surface",
		}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_size",
			Help:      "Current number of particles in the pool",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent advancing and rendering one frame",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		}),
		tickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_errors_total",
			Help:      "Number of ticks that failed to render",
		}),
	}

	for _, col := range []prometheus.Collector{c.ticks, c.respawns, c.poolSize, c.tickDuration, c.tickErrors} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return c, nil
}

// ObserveTick records a completed tick. stats.Respawns is the simulator's
// running total; only the increase since the last call is added.
func (c *Collector) ObserveTick(d time.Duration, stats TickStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ticks.Inc()
	c.tickDuration.Observe(d.Seconds())
	c.poolSize.Set(float64(stats.PoolSize))

	// A reset simulator starts counting from zero again.
	if stats.Respawns < c.lastRespawns {
		c.lastRespawns = 0
	}
	c.respawns.Add(float64(stats.Respawns - c.lastRespawns))
	c.lastRespawns = stats.Respawns
}

// ObserveError records a failed tick.
func (c *Collector) ObserveError() {
	c.tickErrors.Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
