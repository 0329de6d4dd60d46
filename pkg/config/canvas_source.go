package config

import (
	"fmt"
	"image"
	"math"
)

// CanvasSourceType 地图样式中 canvas 数据源的类型名
const CanvasSourceType = "canvas"

// DefaultRasterOpacity 画布栅格图层的默认不透明度
const DefaultRasterOpacity = 0.85

// CanvasSource 描述画布如何作为栅格数据源叠加到地图上
//
// Coordinates 为四个角的 [经度, 纬度]，顺序：左上、右上、右下、左下
// Dimensions 为画布中参与叠加的像素矩形 [x, y, width, height]
type CanvasSource struct {
	Coordinates [4][2]float64 `yaml:"coordinates" json:"coordinates"`
	Dimensions  [4]int        `yaml:"dimensions" json:"dimensions"`
	Opacity     float64       `yaml:"opacity" json:"opacity"`
	Animate     bool          `yaml:"animate" json:"animate"`
	Viewport    Viewport      `yaml:"viewport" json:"viewport"`
}

// Viewport 地图初始视角
type Viewport struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Zoom      float64 `yaml:"zoom" json:"zoom"`
	Bearing   float64 `yaml:"bearing" json:"bearing"`
	Pitch     float64 `yaml:"pitch" json:"pitch"`
}

// DefaultCanvasSource 返回覆盖美国东北部的默认画布源
func DefaultCanvasSource() CanvasSource {
	return CanvasSource{
		Coordinates: [4][2]float64{
			{-81.490, 46.437},
			{-72.582, 46.437},
			{-72.582, 38.907},
			{-81.490, 38.907},
		},
		Dimensions: [4]int{0, 0, DefaultSurfaceWidth, DefaultSurfaceHeight},
		Opacity:    DefaultRasterOpacity,
		Animate:    true,
		Viewport: Viewport{
			Latitude:  41.874,
			Longitude: -75.789,
			Zoom:      5,
			Bearing:   180,
			Pitch:     60,
		},
	}
}

// Rect 返回 Dimensions 对应的像素矩形
func (c CanvasSource) Rect() image.Rectangle {
	x, y, w, h := c.Dimensions[0], c.Dimensions[1], c.Dimensions[2], c.Dimensions[3]
	return image.Rect(x, y, x+w, y+h)
}

// Validate 校验画布源；矩形必须落在绘制表面内
func (c CanvasSource) Validate(surface SurfaceConfig) error {
	for i, corner := range c.Coordinates {
		lng, lat := corner[0], corner[1]
		if math.IsNaN(lng) || math.IsNaN(lat) || lng < -180 || lng > 180 || lat < -90 || lat > 90 {
			return fmt.Errorf("%w: canvas coordinates[%d] = [%v, %v] out of range", ErrInvalidConfig, i, lng, lat)
		}
	}

	if c.Dimensions[2] <= 0 || c.Dimensions[3] <= 0 {
		return fmt.Errorf("%w: canvas dimensions %v must have positive size", ErrInvalidConfig, c.Dimensions)
	}
	bounds := image.Rect(0, 0, surface.Width, surface.Height)
	if !c.Rect().In(bounds) {
		return fmt.Errorf("%w: canvas dimensions %v exceed surface %dx%d",
			ErrInvalidConfig, c.Dimensions, surface.Width, surface.Height)
	}

	if math.IsNaN(c.Opacity) || c.Opacity < 0 || c.Opacity > 1 {
		return fmt.Errorf("%w: canvas opacity must be between 0 and 1, got %v", ErrInvalidConfig, c.Opacity)
	}
	return nil
}
