// Package main runs the particle simulation headless and serves the canvas
// as a map "canvas" source over HTTP.
//
// Usage:
//
//	go run ./cmd/overlay_server [flags]
//
// Endpoints:
//
//	GET /canvas.png[?size=N]  Latest frame, cropped to the source dimensions
//	GET /source.json          Source descriptor (coordinates, opacity, viewport)
//	GET /metrics              Prometheus metrics
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gonewx/mapcanvas/pkg/config"
	"github.com/gonewx/mapcanvas/pkg/logger"
	"github.com/gonewx/mapcanvas/pkg/loop"
	"github.com/gonewx/mapcanvas/pkg/metrics"
	"github.com/gonewx/mapcanvas/pkg/overlay"
	"github.com/gonewx/mapcanvas/pkg/surface"
)

var (
	configFlag   = flag.String("config", "", "Overlay YAML config file (default: built-in)")
	addrFlag     = flag.String("addr", ":8080", "HTTP listen address")
	seedFlag     = flag.Int64("seed", 0, "Override the simulation seed (0 keeps the config value)")
	verboseFlag  = flag.Bool("verbose", false, "Enable verbose logging (default off)")
	devFlag      = flag.Bool("dev", false, "Use console log encoding")
	logLevelFlag = flag.String("log-level", "info", "Log level with --verbose: debug, info, warn, error")
)

func main() {
	flag.Parse()

	log := logger.New(logger.Config{
		Verbose:     *verboseFlag,
		Development: *devFlag,
		Level:       *logLevelFlag,
		Name:        "overlay_server",
	})
	defer func() { _ = log.Sync() }()

	cfg := config.DefaultConfig()
	if *configFlag != "" {
		var err error
		if cfg, err = config.LoadConfig(*configFlag); err != nil {
			log.Error("failed to load config", zap.Error(err))
			os.Exit(1)
		}
	}
	if *seedFlag != 0 {
		cfg.Simulation.Seed = *seedFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *addrFlag, log); err != nil {
		log.Error("overlay server stopped", zap.Error(err))
		os.Exit(1)
	}
}

// run 启动渲染循环和 HTTP 服务，任一方出错时两者都会停止
func run(ctx context.Context, cfg *config.Config, addr string, log *zap.Logger) error {
	sim, err := cfg.Simulation.NewSimulator(log)
	if err != nil {
		return err
	}

	canvas := surface.NewCanvasSurface(cfg.Simulation.Surface.Width, cfg.Simulation.Surface.Height)
	defer canvas.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}

	store := overlay.NewFrameStore(cfg.Canvas.Rect())
	renderer := overlay.NewRenderer(sim, canvas, store, collector, log)
	server := overlay.NewServer(store, cfg.Canvas, reg, log)

	src := loop.NewTickerSource(cfg.Simulation.FPS)
	defer src.Stop()
	runner := loop.NewRunner(src, renderer.Tick, log)

	log.Info("overlay server starting",
		zap.String("addr", addr),
		zap.Int("fps", cfg.Simulation.FPS),
		zap.Ints("dimensions", cfg.Canvas.Dimensions[:]))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(ctx) })
	g.Go(func() error { return server.ListenAndServe(ctx, addr) })
	return g.Wait()
}
