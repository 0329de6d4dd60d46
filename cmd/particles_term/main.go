// Package main renders the particle canvas in a terminal.
//
// Canvas pixels are scaled to the terminal's cell grid, so the fountain keeps
// its shape at any window size.
//
// Usage:
//
//	go run ./cmd/particles_term [flags]
//
// Controls:
//
//	q/Escape/Ctrl-C  - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/gonewx/mapcanvas/pkg/config"
	"github.com/gonewx/mapcanvas/pkg/logger"
	"github.com/gonewx/mapcanvas/pkg/loop"
	"github.com/gonewx/mapcanvas/pkg/particle"
	"github.com/gonewx/mapcanvas/pkg/surface"
)

var (
	configFlag   = flag.String("config", "", "Overlay YAML config file (default: built-in)")
	seedFlag     = flag.Int64("seed", 0, "Override the simulation seed (0 keeps the config value)")
	logFlag      = flag.String("log", "", "Write logs to this file (the terminal is busy)")
	logLevelFlag = flag.String("log-level", "debug", "Log level for --log: debug, info, warn, error")
)

var statusStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)

func main() {
	flag.Parse()

	log := zap.NewNop()
	if *logFlag != "" {
		f, err := os.OpenFile(*logFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log = logger.NewWithWriter(logger.Config{Verbose: true, Level: *logLevelFlag, Name: "particles_term"}, f)
	}

	cfg := config.DefaultConfig()
	if *configFlag != "" {
		var err error
		if cfg, err = config.LoadConfig(*configFlag); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if *seedFlag != 0 {
		cfg.Simulation.Seed = *seedFlag
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "init screen: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	src := loop.NewTickerSource(cfg.Simulation.FPS)

	err = run(ctx, screen, src, cfg, log)

	src.Stop()
	stop()
	screen.Fini()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// run 驱动模拟直到帧源耗尽、上下文取消或按下退出键
func run(ctx context.Context, screen tcell.Screen, src loop.FrameSource, cfg *config.Config, log *zap.Logger) error {
	sim, err := cfg.Simulation.NewSimulator(log)
	if err != nil {
		return err
	}

	term := surface.NewTerminalSurface(screen, cfg.Simulation.Surface.Width, cfg.Simulation.Surface.Height)
	term.SetBackground(tcell.StyleDefault.Background(tcell.ColorBlack))
	screen.HideCursor()

	runner := loop.NewRunner(src, func() error {
		if err := sim.Tick(term); err != nil {
			return err
		}
		drawStatus(screen, sim)
		term.Present()
		return nil
	}, log)

	go func() {
		for {
			switch ev := screen.PollEvent().(type) {
			case nil:
				// 屏幕已关闭
				return
			case *tcell.EventKey:
				if isQuitKey(ev) {
					runner.Stop()
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	}()

	return runner.Run(ctx)
}

func isQuitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q' || ev.Rune() == 'Q'
	}
	return false
}

// drawStatus 在首行绘制状态栏
func drawStatus(screen tcell.Screen, sim *particle.Simulator) {
	text := fmt.Sprintf(" particles %d/%d  gravity %.2f  frame %d  q quit ",
		sim.Size(), sim.Options().MaxParticles, sim.Gravity(), sim.Frame())
	cols, _ := screen.Size()
	for i, r := range []rune(text) {
		if i >= cols {
			break
		}
		screen.SetContent(i, 0, r, nil, statusStyle)
	}
}
