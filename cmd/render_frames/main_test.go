package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonewx/mapcanvas/pkg/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Simulation.Seed = defaultSeed
	return cfg
}

func TestRender_DryRunPrintsTrace(t *testing.T) {
	var out bytes.Buffer
	saved, err := render(context.Background(), testConfig(), options{Frames: 3, Every: 1, DryRun: true}, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, saved)

	text := out.String()
	assert.Contains(t, text, "# frame 1 (1 particles)")
	assert.Contains(t, text, "# frame 3 (3 particles)")
	// 每帧只包含本帧的调用：一次清屏，每个粒子一次填充
	frames := strings.Split(text, "# frame ")[1:]
	require.Len(t, frames, 3)
	assert.Equal(t, 1, strings.Count(frames[2], "clearRect("))
	assert.Equal(t, 3, strings.Count(frames[2], "fill()"))
	assert.Contains(t, frames[0], "fillStyle = rgba(255, 0, 0, 255)")
}

func TestRender_DryRunIsDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	opts := options{Frames: 10, Every: 5, DryRun: true}
	_, err := render(context.Background(), testConfig(), opts, &a, nil)
	require.NoError(t, err)
	_, err = render(context.Background(), testConfig(), opts, &b, nil)
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())
}

func TestRender_WritesPNGs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	cfg := testConfig()
	cfg.Simulation.Surface = config.SurfaceConfig{Width: 64, Height: 48}

	saved, err := render(context.Background(), cfg, options{Frames: 6, Every: 2, OutDir: dir}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, saved)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"frame_0002.png", "frame_0004.png", "frame_0006.png"}, names)

	f, err := os.Open(filepath.Join(dir, "frame_0006.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestRender_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts options
	}{
		{"零帧", options{Frames: 0, Every: 1, DryRun: true}},
		{"间隔为零", options{Frames: 5, Every: 0, DryRun: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := render(context.Background(), testConfig(), tt.opts, &bytes.Buffer{}, nil)
			assert.Error(t, err)
		})
	}
}

func TestFrameFileName(t *testing.T) {
	assert.Equal(t, "frame_0007.png", frameFileName(7))
	assert.Equal(t, "frame_12345.png", frameFileName(12345))
}
