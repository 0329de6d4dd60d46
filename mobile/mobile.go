//go:build mobile

// Package mobile 提供 ebitenmobile 绑定入口
//
// 此文件仅在使用 -tags mobile 构建时编译：
//
//	# Android
//	ebitenmobile bind -target android -tags mobile -androidapi 23 -javapkg com.gonewx.mapcanvas -o build/android/mapcanvas.aar -v ./mobile
//
//	# iOS (仅 macOS)
//	ebitenmobile bind -target ios -tags mobile -o build/ios/MapCanvas.xcframework -v ./mobile
package mobile

import (
	"errors"
	"log"

	"github.com/hajimehoshi/ebiten/v2/mobile"

	"github.com/gonewx/mapcanvas/pkg/app"
	"github.com/gonewx/mapcanvas/pkg/config"
	"github.com/gonewx/mapcanvas/pkg/logger"
	"github.com/gonewx/mapcanvas/pkg/settings"
)

func init() {
	zl := logger.New(logger.Config{Verbose: true, Name: "mapcanvas"})

	// 移动端没有文件对话框，只使用内置配置
	viewer, err := app.NewApp(app.Config{
		Overlay:  config.DefaultConfig(),
		Settings: settings.NewManager(settings.OpenStore(settings.AppName, zl), zl),
		Logger:   zl,
		SelectConfigFile: func() (string, error) {
			return "", errors.New("opening config files is not supported on mobile")
		},
	})
	if err != nil {
		log.Fatalf("查看器初始化失败: %v", err)
	}

	mobile.SetGame(viewer)
}

// Dummy 是一个空导出函数，确保包被 ebitenmobile 正确识别
func Dummy() {}
