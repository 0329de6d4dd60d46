// Command mapcanvas opens a window showing the particle canvas the way a map
// would show it as a canvas raster source.
//
// Usage:
//
//	go run . [flags]
//
// Flags:
//
//	--config <path>   Overlay YAML config (default: last opened config, then built-in defaults)
//	--watch           Reload the config file when it changes on disk
//	--seed <n>        Override the simulation seed (0 keeps the config value)
//	--verbose         Enable logging to stderr
//	--dev             Human-readable log output
//	--log-level <l>   debug, info, warn or error (with --verbose)
//
// Controls:
//
//	P         - Toggle pause
//	R         - Clear the particle pool
//	Up/Down   - Adjust gravity by 0.01
//	H         - Toggle HUD
//	O         - Open another config file
//	Q/Escape  - Quit
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/gonewx/mapcanvas/pkg/app"
	"github.com/gonewx/mapcanvas/pkg/config"
	"github.com/gonewx/mapcanvas/pkg/logger"
	"github.com/gonewx/mapcanvas/pkg/settings"
)

var (
	configFlag   = flag.String("config", "", "Overlay YAML config file")
	watchFlag    = flag.Bool("watch", false, "Reload the config file when it changes")
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
		Name:        "mapcanvas",
	})
	defer func() { _ = log.Sync() }()

	sm := settings.NewManager(settings.OpenStore(settings.AppName, log), log)

	// 未指定配置时回退到上次打开的配置文件
	path := *configFlag
	if path == "" {
		path = sm.Settings().LastConfigPath
	}

	cfg, err := loadConfig(path, log)
	if err != nil {
		log.Error("failed to load config", zap.Error(err))
		os.Exit(1)
	}
	if *seedFlag != 0 {
		cfg.Simulation.Seed = *seedFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reloads <-chan *config.Config
	if *watchFlag && path != "" {
		if w, err := startWatcher(ctx, path, log); err != nil {
			log.Warn("config watch disabled", zap.Error(err))
		} else {
			defer w.Stop()
			reloads = w.Updates()
		}
	}

	viewer, err := app.NewApp(app.Config{
		Overlay:    cfg,
		ConfigPath: path,
		Settings:   sm,
		Logger:     log,
		Context:    ctx,
		Reloads:    reloads,
	})
	if err != nil {
		log.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer viewer.Close()

	w, h := viewer.Layout(0, 0)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle("mapcanvas - particle canvas source")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(viewer); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Error("viewer stopped", zap.Error(err))
		os.Exit(1)
	}
}

// loadConfig 读取配置文件；path 为空时使用默认配置
// 上次打开的文件已不存在时同样回退到默认配置
func loadConfig(path string, log *zap.Logger) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path != *configFlag {
			log.Warn("last config missing, using defaults", zap.String("path", path))
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func startWatcher(ctx context.Context, path string, log *zap.Logger) (*config.Watcher, error) {
	w, err := config.NewWatcher(path, log)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return w, nil
}
