// Package main checks overlay config files without starting a simulation.
//
// Usage:
//
//	go run ./cmd/validate_config overlay.yaml [more.yaml ...]
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/gonewx/mapcanvas/pkg/config"
)

func main() {
	paths := os.Args[1:]
	if len(paths) == 0 {
		fmt.Println("用法: validate_config <config.yaml> [...]")
		os.Exit(2)
	}
	if failed := validate(paths, os.Stdout); failed > 0 {
		os.Exit(1)
	}
}

var (
	okColor   = color.New(color.FgHiGreen, color.Bold)
	failColor = color.New(color.FgHiRed, color.Bold)
	infoColor = color.New(color.FgHiBlack)
)

// validate 逐个校验配置文件并打印摘要，返回失败的文件数
func validate(paths []string, out io.Writer) int {
	failed := 0
	for _, path := range paths {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			failColor.Fprintf(out, "❌ %v\n", err)
			failed++
			continue
		}

		sim := cfg.Simulation
		okColor.Fprintf(out, "✅ %s\n", path)
		infoColor.Fprintf(out, "   粒子上限: %d  重力: %.2f  帧率: %d\n", *sim.MaxParticles, *sim.Gravity, sim.FPS)
		infoColor.Fprintf(out, "   速度: x%s y%s  半径: %s  颜色: %s\n", sim.VelocityX, sim.VelocityY, sim.Radius, sim.FillColor)
		infoColor.Fprintf(out, "   表面: %dx%d  画布矩形: %v  不透明度: %.2f\n",
			sim.Surface.Width, sim.Surface.Height, cfg.Canvas.Dimensions, cfg.Canvas.Opacity)
	}

	if failed == 0 {
		okColor.Fprintf(out, "✅ 全部 %d 个配置文件有效\n", len(paths))
	} else {
		failColor.Fprintf(out, "❌ %d/%d 个配置文件无效\n", failed, len(paths))
	}
	return failed
}
