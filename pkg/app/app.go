// Package app 提供粒子画布查看器的 ebiten 包装器
//
// 查看器把画布渲染到离屏图像，再以栅格不透明度叠加到深色背景上，
// 模拟地图中 canvas 数据源的显示效果。ebiten 每个 tick 调用一次 Update，
// 它就是查看器的帧源。
package app

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/ncruces/zenity"
	"go.uber.org/zap"

	"github.com/gonewx/mapcanvas/pkg/config"
	"github.com/gonewx/mapcanvas/pkg/particle"
	"github.com/gonewx/mapcanvas/pkg/settings"
	"github.com/gonewx/mapcanvas/pkg/surface"
)

// GravityStep 每次按键调整的重力增量
const GravityStep = 0.01

// BackgroundColor 地图背景色 (#111)
var BackgroundColor = color.RGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}

// Action 查看器响应的操作
type Action int

const (
	ActionNone Action = iota
	ActionTogglePause
	ActionReset
	ActionGravityUp
	ActionGravityDown
	ActionToggleHUD
	ActionOpenConfig
	ActionQuit
)

// keyBindings 按键与操作的映射
var keyBindings = []struct {
	key    ebiten.Key
	action Action
}{
	{ebiten.KeyP, ActionTogglePause},
	{ebiten.KeyR, ActionReset},
	{ebiten.KeyArrowUp, ActionGravityUp},
	{ebiten.KeyArrowDown, ActionGravityDown},
	{ebiten.KeyH, ActionToggleHUD},
	{ebiten.KeyO, ActionOpenConfig},
	{ebiten.KeyQ, ActionQuit},
	{ebiten.KeyEscape, ActionQuit},
}

// SurfaceFactory 创建指定尺寸的绘制表面；image 为 nil 时 Draw 不绘制画布
type SurfaceFactory func(width, height int) (s particle.Surface, image *ebiten.Image)

// EbitenSurfaceFactory 使用离屏 ebiten 图像作为画布
func EbitenSurfaceFactory(width, height int) (particle.Surface, *ebiten.Image) {
	s := surface.NewEbitenSurface(width, height)
	return s, s.Image()
}

// Config 定义查看器启动配置
type Config struct {
	// Overlay 模拟与画布源配置，nil 使用默认配置
	Overlay *config.Config
	// ConfigPath 已加载配置的路径，仅用于显示
	ConfigPath string
	// Settings 设置管理器，nil 时使用降级模式
	Settings *settings.Manager
	// Logger 可为 nil
	Logger *zap.Logger
	// Context 取消时查看器在下一个 tick 退出
	Context context.Context
	// NewSurface 默认为 EbitenSurfaceFactory
	NewSurface SurfaceFactory
	// SelectConfigFile 默认弹出 zenity 文件对话框
	SelectConfigFile func() (string, error)
	// Reloads 外部重新加载的配置（config.Watcher），可为 nil
	Reloads <-chan *config.Config
}

// App 查看器，实现 ebiten.Game 接口
type App struct {
	ctx        context.Context
	logger     *zap.Logger
	settings   *settings.Manager
	newSurface SurfaceFactory
	selectFile func() (string, error)
	reloads    <-chan *config.Config

	cfg        *config.Config
	configPath string
	sim        *particle.Simulator
	surface    particle.Surface
	canvas     *ebiten.Image

	paused        bool
	showHUD       bool
	statusMessage string
	lastErr       error
}

// NewApp 创建查看器
func NewApp(cfg Config) (*App, error) {
	if cfg.Overlay == nil {
		cfg.Overlay = config.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Settings == nil {
		cfg.Settings = settings.NewManager(nil, cfg.Logger)
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.NewSurface == nil {
		cfg.NewSurface = EbitenSurfaceFactory
	}
	if cfg.SelectConfigFile == nil {
		cfg.SelectConfigFile = selectConfigFile
	}

	a := &App{
		ctx:        cfg.Context,
		logger:     cfg.Logger.Named("App"),
		settings:   cfg.Settings,
		newSurface: cfg.NewSurface,
		selectFile: cfg.SelectConfigFile,
		reloads:    cfg.Reloads,
	}

	if err := a.load(cfg.Overlay, cfg.ConfigPath); err != nil {
		return nil, err
	}

	// 应用已保存的查看器设置
	s := a.settings.Settings()
	a.paused = s.Paused
	a.showHUD = s.ShowHUD
	if s.Gravity != nil {
		if err := a.sim.SetGravity(*s.Gravity); err != nil {
			a.logger.Warn("ignoring saved gravity", zap.Error(err))
		}
	}

	a.logger.Info("viewer initialized",
		zap.Int("width", cfg.Overlay.Simulation.Surface.Width),
		zap.Int("height", cfg.Overlay.Simulation.Surface.Height),
		zap.Float64("gravity", a.sim.Gravity()),
		zap.Bool("persistentSettings", a.settings.Persistent()))
	return a, nil
}

// load 按配置重建模拟器和画布
func (a *App) load(cfg *config.Config, path string) error {
	sim, err := cfg.Simulation.NewSimulator(a.logger)
	if err != nil {
		return fmt.Errorf("模拟器创建失败: %w", err)
	}

	surf, canvas := a.newSurface(cfg.Simulation.Surface.Width, cfg.Simulation.Surface.Height)

	a.cfg = cfg
	a.configPath = path
	a.sim = sim
	a.surface = surf
	a.canvas = canvas
	return nil
}

// Update 处理输入并推进一帧
// 上下文取消或按下退出键时返回 ebiten.Termination
func (a *App) Update() error {
	select {
	case <-a.ctx.Done():
		a.logger.Info("context cancelled, closing viewer")
		a.Close()
		return ebiten.Termination
	default:
	}

	a.pollReloads()

	for _, b := range keyBindings {
		if inpututil.IsKeyJustPressed(b.key) {
			if err := a.Apply(b.action); err != nil {
				return err
			}
		}
	}

	return a.Step()
}

// Step 未暂停时推进一帧并渲染到画布
func (a *App) Step() error {
	if a.paused {
		return nil
	}
	if err := a.sim.Tick(a.surface); err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	return nil
}

// Apply 执行一个操作
// ActionQuit 保存设置后返回 ebiten.Termination
func (a *App) Apply(action Action) error {
	switch action {
	case ActionTogglePause:
		a.paused = !a.paused
		a.settings.SetPaused(a.paused)
		if a.paused {
			a.statusMessage = "PAUSED - press P to resume"
		} else {
			a.statusMessage = "Resumed"
		}
		a.logger.Debug("pause toggled", zap.Bool("paused", a.paused))

	case ActionReset:
		a.sim.Reset()
		a.statusMessage = "Pool cleared"

	case ActionGravityUp, ActionGravityDown:
		step := GravityStep
		if action == ActionGravityDown {
			step = -GravityStep
		}
		// 按步长取整，避免浮点累积误差
		g := math.Round((a.sim.Gravity()+step)/GravityStep) * GravityStep
		if err := a.sim.SetGravity(g); err != nil {
			a.statusMessage = fmt.Sprintf("Error: %v", err)
			return nil
		}
		a.settings.SetGravity(g)
		a.statusMessage = fmt.Sprintf("Gravity: %.2f", g)
		a.logger.Debug("gravity changed", zap.Float64("gravity", g))

	case ActionToggleHUD:
		a.showHUD = !a.showHUD
		a.settings.SetShowHUD(a.showHUD)

	case ActionOpenConfig:
		a.openConfigDialog()

	case ActionQuit:
		a.Close()
		return ebiten.Termination
	}
	return nil
}

// openConfigDialog 选择并加载新的配置文件；失败时保留当前模拟
func (a *App) openConfigDialog() {
	path, err := a.selectFile()
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			a.statusMessage = "Open cancelled"
			return
		}
		a.lastErr = err
		a.statusMessage = fmt.Sprintf("Error: %v", err)
		a.logger.Warn("file dialog failed", zap.Error(err))
		return
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		a.lastErr = err
		a.statusMessage = fmt.Sprintf("Error: %v", err)
		a.logger.Warn("config rejected", zap.String("path", path), zap.Error(err))
		return
	}
	if err := a.load(cfg, path); err != nil {
		a.lastErr = err
		a.statusMessage = fmt.Sprintf("Error: %v", err)
		return
	}

	// 新配置的重力优先于之前的覆盖值
	a.settings.ClearGravity()
	a.settings.SetLastConfigPath(path)
	a.lastErr = nil
	a.statusMessage = "Loaded " + path
	a.logger.Info("config loaded", zap.String("path", path))
}

// pollReloads 应用监视器送来的最新配置，不阻塞
func (a *App) pollReloads() {
	if a.reloads == nil {
		return
	}
	select {
	case cfg := <-a.reloads:
		if err := a.load(cfg, a.configPath); err != nil {
			a.lastErr = err
			a.statusMessage = fmt.Sprintf("Error: %v", err)
			return
		}
		a.settings.ClearGravity()
		a.lastErr = nil
		a.statusMessage = "Config reloaded"
		a.logger.Info("config reloaded", zap.String("path", a.configPath))
	default:
	}
}

func selectConfigFile() (string, error) {
	return zenity.SelectFile(
		zenity.Title("Open Overlay Config"),
		zenity.FileFilters{{
			Name:     "YAML",
			Patterns: []string{"*.yaml", "*.yml"},
		}},
	)
}

// Close 保存设置；可重复调用
func (a *App) Close() {
	if err := a.settings.Save(); err != nil {
		a.logger.Warn("failed to save settings", zap.Error(err))
	}
}

// Draw 绘制背景、画布栅格和 HUD
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(BackgroundColor)

	if a.canvas != nil {
		op := &ebiten.DrawImageOptions{}
		op.ColorScale.ScaleAlpha(float32(a.cfg.Canvas.Opacity))
		screen.DrawImage(a.canvas, op)
	}

	if a.showHUD {
		a.drawHUD(screen)
	}
}

func (a *App) drawHUD(screen *ebiten.Image) {
	for i, line := range a.HUDLines() {
		ebitenutil.DebugPrintAt(screen, line, 10, 10+i*16)
	}
}

// HUDLines 返回 HUD 显示的文本行
func (a *App) HUDLines() []string {
	lines := []string{
		fmt.Sprintf("Particles: %d/%d", a.sim.Size(), a.sim.Options().MaxParticles),
		fmt.Sprintf("Gravity:   %.2f", a.sim.Gravity()),
		fmt.Sprintf("Frame:     %d  Respawns: %d", a.sim.Frame(), a.sim.Respawns()),
		fmt.Sprintf("FPS:       %.0f", ebiten.ActualFPS()),
	}
	if a.configPath != "" {
		lines = append(lines, "Config:    "+a.configPath)
	}
	if a.paused {
		lines = append(lines, "PAUSED")
	}
	if a.statusMessage != "" {
		lines = append(lines, a.statusMessage)
	}
	lines = append(lines, "P pause  R reset  Up/Down gravity  H HUD  O open  Q quit")
	return lines
}

// DrawFinalScreen 实现 FinalScreenDrawer 接口
// 缩放后的留边使用背景色，保持地图底色一致
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(BackgroundColor)
	op := &ebiten.DrawImageOptions{}
	op.GeoM = geoM
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(offscreen, op)
}

// Layout 逻辑屏幕尺寸等于画布尺寸，窗口缩放由 ebiten 处理
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return a.cfg.Simulation.Surface.Width, a.cfg.Simulation.Surface.Height
}

// Simulator 返回当前模拟器
func (a *App) Simulator() *particle.Simulator {
	return a.sim
}

// Paused 报告模拟是否暂停
func (a *App) Paused() bool {
	return a.paused
}

// HUDVisible 报告 HUD 是否显示
func (a *App) HUDVisible() bool {
	return a.showHUD
}

// Err 返回最近一次加载配置的错误
func (a *App) Err() error {
	return a.lastErr
}
