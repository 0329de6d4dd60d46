package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) *Watcher {
	t.Helper()
	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	require.NoError(t, w.Start(ctx))
	return w
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  gravity: 0.1\n"), 0644))

	w := startWatcher(t, path)
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  gravity: 0.4\n"), 0644))

	select {
	case cfg := <-w.Updates():
		assert.Equal(t, 0.4, *cfg.Simulation.Gravity)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatcher_SkipsInvalidVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  gravity: 0.1\n"), 0644))

	w := startWatcher(t, path)
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  maxParticles: -1\n"), 0644))
	// 同目录的其他文件不触发重载
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0644))

	select {
	case cfg := <-w.Updates():
		t.Fatalf("invalid config delivered: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_Path(t *testing.T) {
	w, err := NewWatcher("overlay.yaml", nil)
	require.NoError(t, err)
	defer w.Stop()
	assert.True(t, filepath.IsAbs(w.Path()))
}
