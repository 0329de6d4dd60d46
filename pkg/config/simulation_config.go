package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/gonewx/mapcanvas/internal/valuerange"
	"github.com/gonewx/mapcanvas/pkg/particle"
	colorful "github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig 配置文件内容不合法
var ErrInvalidConfig = errors.New("invalid config")

// 默认画布尺寸与帧率
const (
	DefaultSurfaceWidth  = 400
	DefaultSurfaceHeight = 400
	DefaultFPS           = 60
	DefaultFillColor     = "#ff0000"

	// MaxFPS 帧率上限
	MaxFPS = 1000
)

// Config 一个 YAML 文档，包含模拟参数和画布源描述
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Canvas     CanvasSource     `yaml:"canvas"`
}

// SimulationConfig 粒子模拟参数
//
// YAML 示例：
//
//	simulation:
//	  maxParticles: 100
//	  gravity: 0.1
//	  velocityX: "[-2 3]"
//	  velocityY: "[-9 -3]"
//	  radius: "[1 5]"
//	  fillColor: "#ff0000"
//	  seed: 42
//	  fps: 60
//	  surface: {width: 400, height: 400}
type SimulationConfig struct {
	MaxParticles *int             `yaml:"maxParticles,omitempty"` // nil 表示使用默认值（0 是合法值）
	Gravity      *float64         `yaml:"gravity,omitempty"`      // nil 表示使用默认值
	VelocityX    valuerange.Range `yaml:"velocityX"`
	VelocityY    valuerange.Range `yaml:"velocityY"`
	Radius       valuerange.Range `yaml:"radius"`
	FillColor    string           `yaml:"fillColor"`
	Seed         int64            `yaml:"seed"` // 0 = 按时间播种
	FPS          int              `yaml:"fps"`
	Surface      SurfaceConfig    `yaml:"surface"`
}

// SurfaceConfig 绘制表面尺寸（像素）
type SurfaceConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DefaultConfig 返回内置默认配置
func DefaultConfig() *Config {
	cfg := &Config{Canvas: DefaultCanvasSource()}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig 从 YAML 文件加载配置
// 缺失字段使用默认值；加载后执行校验
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig 解析 YAML 数据
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{Canvas: DefaultCanvasSource()}
	// 未配置的画布矩形跟随表面尺寸
	cfg.Canvas.Dimensions = [4]int{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults 为缺失的可选字段设置默认值
func applyDefaults(cfg *Config) {
	sim := &cfg.Simulation
	if sim.MaxParticles == nil {
		n := particle.DefaultMaxParticles
		sim.MaxParticles = &n
	}
	if sim.Gravity == nil {
		g := particle.DefaultGravity
		sim.Gravity = &g
	}
	// 零值区间 [0 0] 视为未配置
	if sim.VelocityX == (valuerange.Range{}) {
		sim.VelocityX = particle.DefaultVelocityX
	}
	if sim.VelocityY == (valuerange.Range{}) {
		sim.VelocityY = particle.DefaultVelocityY
	}
	if sim.Radius == (valuerange.Range{}) {
		sim.Radius = particle.DefaultRadius
	}
	if sim.FillColor == "" {
		sim.FillColor = DefaultFillColor
	}
	if sim.FPS == 0 {
		sim.FPS = DefaultFPS
	}
	if sim.Surface.Width == 0 {
		sim.Surface.Width = DefaultSurfaceWidth
	}
	if sim.Surface.Height == 0 {
		sim.Surface.Height = DefaultSurfaceHeight
	}
	if cfg.Canvas.Dimensions == ([4]int{}) {
		cfg.Canvas.Dimensions = [4]int{0, 0, sim.Surface.Width, sim.Surface.Height}
	}
}

// Validate 校验整份配置
func (c *Config) Validate() error {
	if _, err := c.Simulation.Options(); err != nil {
		return err
	}
	if c.Simulation.FPS < 0 || c.Simulation.FPS > MaxFPS {
		return fmt.Errorf("%w: fps must be in 0..%d, got %d", ErrInvalidConfig, MaxFPS, c.Simulation.FPS)
	}
	if c.Simulation.Surface.Width <= 0 || c.Simulation.Surface.Height <= 0 {
		return fmt.Errorf("%w: surface must be positive, got %dx%d",
			ErrInvalidConfig, c.Simulation.Surface.Width, c.Simulation.Surface.Height)
	}
	if err := c.Canvas.Validate(c.Simulation.Surface); err != nil {
		return err
	}
	return nil
}

// Options 转换为模拟器参数
func (s SimulationConfig) Options() (particle.Options, error) {
	opts := particle.DefaultOptions()
	if s.MaxParticles != nil {
		opts.MaxParticles = *s.MaxParticles
	}
	if s.Gravity != nil {
		opts.Gravity = *s.Gravity
	}
	opts.VelocityX = s.VelocityX
	opts.VelocityY = s.VelocityY
	opts.Radius = s.Radius

	if s.FillColor != "" {
		c, err := ParseHexColor(s.FillColor)
		if err != nil {
			return particle.Options{}, fmt.Errorf("%w: fillColor: %v", ErrInvalidConfig, err)
		}
		opts.FillColor = c
	}

	if err := opts.Validate(); err != nil {
		return particle.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return opts, nil
}

// NewSimulator 按配置创建模拟器
// Seed 为 0 时按时间播种；extra 中的选项在配置之后应用，可覆盖随机源
func (s SimulationConfig) NewSimulator(logger *zap.Logger, extra ...particle.SimulatorOption) (*particle.Simulator, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}

	simOpts := make([]particle.SimulatorOption, 0, len(extra)+2)
	if logger != nil {
		simOpts = append(simOpts, particle.WithLogger(logger))
	}
	if s.Seed != 0 {
		simOpts = append(simOpts, particle.WithSeed(s.Seed))
	}
	simOpts = append(simOpts, extra...)

	sim, err := particle.NewSimulator(opts, s.Surface.Width, s.Surface.Height, simOpts...)
	if err != nil {
		return nil, fmt.Errorf("create simulator: %w", err)
	}
	return sim, nil
}

// ParseHexColor 解析 "#rgb" 或 "#rrggbb" 格式的颜色，结果不透明
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	// 展开简写形式 #f00 -> #ff0000
	if len(s) == 4 {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	if len(s) != 7 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: want #rgb or #rrggbb", s)
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
