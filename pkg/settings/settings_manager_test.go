package settings

import (
	"math"
	"testing"

	"github.com/quasilyte/gdata/v2"
)

// newTestStore 使用临时 HOME 创建 gdata 存储
func newTestStore(t *testing.T, appName string) *gdata.Manager {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", "")

	store, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		t.Skipf("Cannot create gdata manager for testing: %v", err)
	}
	return store
}

// TestDefaultSettings 测试默认值
func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.Paused {
		t.Error("Paused: got true, want false")
	}
	if !s.ShowHUD {
		t.Error("ShowHUD: got false, want true")
	}
	if s.Gravity != nil {
		t.Errorf("Gravity: got %v, want nil", *s.Gravity)
	}
	if s.LastConfigPath != "" {
		t.Errorf("LastConfigPath: got %q, want empty", s.LastConfigPath)
	}
}

// TestNewManagerNilStore 测试降级模式
func TestNewManagerNilStore(t *testing.T) {
	m := NewManager(nil, nil)
	if m.Persistent() {
		t.Error("Persistent() should be false in degraded mode")
	}
	if !m.Settings().ShowHUD {
		t.Error("degraded mode should use default settings")
	}

	m.SetPaused(true)
	if err := m.Save(); err != nil {
		t.Errorf("Save() in degraded mode should return nil, got: %v", err)
	}
	if err := m.Load(); err != nil {
		t.Errorf("Load() in degraded mode should return nil, got: %v", err)
	}
	if m.Settings().Paused {
		t.Error("Load() in degraded mode should restore defaults")
	}
}

// TestSettingsLoadSave 测试保存后重新加载
func TestSettingsLoadSave(t *testing.T) {
	store := newTestStore(t, "test_mapcanvas_settings")

	m1 := NewManager(store, nil)
	if !m1.Persistent() {
		t.Fatal("Persistent() should be true with a store")
	}
	m1.SetPaused(true)
	m1.SetShowHUD(false)
	m1.SetGravity(0.25)
	m1.SetLastConfigPath("/tmp/overlay.yaml")

	if err := m1.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	m2 := NewManager(store, nil)
	s := m2.Settings()
	if !s.Paused {
		t.Error("Loaded Paused: got false, want true")
	}
	if s.ShowHUD {
		t.Error("Loaded ShowHUD: got true, want false")
	}
	if s.Gravity == nil || *s.Gravity != 0.25 {
		t.Errorf("Loaded Gravity: got %v, want 0.25", s.Gravity)
	}
	if s.LastConfigPath != "/tmp/overlay.yaml" {
		t.Errorf("Loaded LastConfigPath: got %q", s.LastConfigPath)
	}
}

// TestLoadCorruptData 损坏的数据回退到默认设置
func TestLoadCorruptData(t *testing.T) {
	store := newTestStore(t, "test_mapcanvas_corrupt")
	if err := store.SaveObjectProp(settingsObject, settingsProperty, []byte("paused: [")); err != nil {
		t.Fatalf("SaveObjectProp() error: %v", err)
	}

	m := NewManager(store, nil)
	if m.Settings().Paused || !m.Settings().ShowHUD {
		t.Errorf("corrupt settings should fall back to defaults, got %+v", m.Settings())
	}
	if err := m.Load(); err == nil {
		t.Error("Load() should report the unmarshal error")
	}
}

// TestSetGravity 非有限值被忽略
func TestSetGravity(t *testing.T) {
	m := NewManager(nil, nil)

	tests := []struct {
		name  string
		input float64
		want  *float64
	}{
		{"正常值", 0.3, ptr(0.3)},
		{"NaN 被忽略", math.NaN(), ptr(0.3)},
		{"无穷大被忽略", math.Inf(1), ptr(0.3)},
		{"负值允许", -0.1, ptr(-0.1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.SetGravity(tt.input)
			got := m.Settings().Gravity
			if got == nil || *got != *tt.want {
				t.Errorf("SetGravity(%v): got %v, want %v", tt.input, got, *tt.want)
			}
		})
	}

	m.ClearGravity()
	if m.Settings().Gravity != nil {
		t.Error("ClearGravity() should remove the override")
	}
}

// TestSettingsSameInstance Settings() 返回同一实例
func TestSettingsSameInstance(t *testing.T) {
	m := NewManager(nil, nil)
	s1 := m.Settings()
	s2 := m.Settings()
	if s1 != s2 {
		t.Error("Settings() should return the same instance")
	}
}

func ptr(v float64) *float64 { return &v }
