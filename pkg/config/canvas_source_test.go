package config

import (
	"errors"
	"image"
	"math"
	"testing"
)

func TestDefaultCanvasSource(t *testing.T) {
	src := DefaultCanvasSource()

	if err := src.Validate(SurfaceConfig{Width: 400, Height: 400}); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	// 左上角与右下角
	if src.Coordinates[0] != [2]float64{-81.490, 46.437} {
		t.Errorf("top-left = %v", src.Coordinates[0])
	}
	if src.Coordinates[2] != [2]float64{-72.582, 38.907} {
		t.Errorf("bottom-right = %v", src.Coordinates[2])
	}
	if got := src.Rect(); got != image.Rect(0, 0, 400, 400) {
		t.Errorf("Rect() = %v", got)
	}
	if src.Viewport.Zoom != 5 || src.Viewport.Pitch != 60 {
		t.Errorf("Viewport = %+v", src.Viewport)
	}
}

func TestCanvasSource_Validate(t *testing.T) {
	surface := SurfaceConfig{Width: 400, Height: 400}

	tests := []struct {
		name   string
		modify func(*CanvasSource)
	}{
		{"经度越界", func(c *CanvasSource) { c.Coordinates[1][0] = 181 }},
		{"纬度为 NaN", func(c *CanvasSource) { c.Coordinates[3][1] = math.NaN() }},
		{"宽度为零", func(c *CanvasSource) { c.Dimensions[2] = 0 }},
		{"矩形超出表面", func(c *CanvasSource) { c.Dimensions = [4]int{1, 0, 400, 400} }},
		{"负偏移", func(c *CanvasSource) { c.Dimensions = [4]int{-1, 0, 10, 10} }},
		{"不透明度为负", func(c *CanvasSource) { c.Opacity = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := DefaultCanvasSource()
			tt.modify(&src)
			err := src.Validate(surface)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestCanvasSource_SubRect(t *testing.T) {
	src := DefaultCanvasSource()
	src.Dimensions = [4]int{100, 50, 200, 300}

	if err := src.Validate(SurfaceConfig{Width: 400, Height: 400}); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := src.Rect(); got != image.Rect(100, 50, 300, 350) {
		t.Errorf("Rect() = %v", got)
	}
}
