// Package settings 持久化查看器设置（暂停、HUD、重力覆盖、最近的配置文件）
//
// 设置以 YAML 编码后通过 gdata 跨平台存储；存储不可用时进入降级模式，
// 仅在内存中保存设置。
package settings

import (
	"fmt"
	"math"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// AppName gdata 存储使用的应用名
const AppName = "mapcanvas"

// ViewerSettings 查看器设置
type ViewerSettings struct {
	Paused  bool `yaml:"paused"`  // 启动时是否暂停
	ShowHUD bool `yaml:"showHUD"` // 是否显示调试信息

	// Gravity 覆盖配置文件中的重力；nil 表示使用配置值
	Gravity *float64 `yaml:"gravity,omitempty"`

	// LastConfigPath 最近一次通过对话框打开的配置文件
	LastConfigPath string `yaml:"lastConfigPath,omitempty"`
}

// DefaultSettings 返回默认设置
func DefaultSettings() *ViewerSettings {
	return &ViewerSettings{
		Paused:  false,
		ShowHUD: true,
	}
}

// 存储路径常量
const (
	settingsObject   = "settings"
	settingsProperty = "viewer"
)

// OpenStore 打开 gdata 存储
// 失败时返回 nil（降级模式），不阻止查看器运行
func OpenStore(appName string, logger *zap.Logger) *gdata.Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		logger.Warn("gdata unavailable, settings will not persist", zap.Error(err))
		return nil
	}
	return m
}

// Manager 设置管理器
// 负责设置的加载、保存和内存管理
type Manager struct {
	store    *gdata.Manager // 可为 nil（降级模式）
	settings *ViewerSettings
	logger   *zap.Logger
}

// NewManager 创建设置管理器并尝试加载已保存的设置
//
// 参数：
//   - store: gdata 存储，可为 nil（降级模式，仅内存设置）
//   - logger: 可为 nil
func NewManager(store *gdata.Manager, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:    store,
		settings: DefaultSettings(),
		logger:   logger.Named("Settings"),
	}

	// 加载失败不是致命错误，使用默认设置
	if err := m.Load(); err != nil {
		m.logger.Warn("failed to load settings, using defaults", zap.Error(err))
	}
	return m
}

// Persistent 报告设置是否会写入磁盘
func (m *Manager) Persistent() bool {
	return m.store != nil
}

// Load 从 gdata 加载设置
// 存储为 nil 或尚无数据时使用默认设置
func (m *Manager) Load() error {
	if m.store == nil {
		m.settings = DefaultSettings()
		return nil
	}

	if !m.store.ObjectPropExists(settingsObject, settingsProperty) {
		m.settings = DefaultSettings()
		return nil
	}

	data, err := m.store.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		m.settings = DefaultSettings()
		return fmt.Errorf("failed to load settings: %w", err)
	}

	loaded := DefaultSettings()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		m.settings = DefaultSettings()
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if loaded.Gravity != nil && !isFinite(*loaded.Gravity) {
		loaded.Gravity = nil
	}

	m.settings = loaded
	m.logger.Debug("settings loaded")
	return nil
}

// Save 保存设置到 gdata
// 降级模式下直接返回 nil
func (m *Manager) Save() error {
	if m.store == nil {
		return nil
	}

	data, err := yaml.Marshal(m.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := m.store.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	m.logger.Debug("settings saved")
	return nil
}

// Settings 获取当前设置（同一实例）
func (m *Manager) Settings() *ViewerSettings {
	return m.settings
}

// 以下 Set 方法仅修改内存中的设置，需调用 Save() 持久化

func (m *Manager) SetPaused(paused bool) {
	m.settings.Paused = paused
}

func (m *Manager) SetShowHUD(show bool) {
	m.settings.ShowHUD = show
}

// SetGravity 记录重力覆盖值；非有限值被忽略
func (m *Manager) SetGravity(g float64) {
	if !isFinite(g) {
		return
	}
	m.settings.Gravity = &g
}

// ClearGravity 移除重力覆盖，恢复使用配置值
func (m *Manager) ClearGravity() {
	m.settings.Gravity = nil
}

func (m *Manager) SetLastConfigPath(path string) {
	m.settings.LastConfigPath = path
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
