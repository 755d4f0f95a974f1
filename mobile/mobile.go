//go:build mobile

// Package mobile 提供 ebitenmobile 绑定入口
//
// 此包用于构建 Android (.aar) 和 iOS (.xcframework) 包，播放内置示例画面。
// 使用 ebitenmobile 工具构建时会自动调用 init() 函数。
//
// 此文件仅在使用 -tags mobile 构建时编译。构建前先把 data/ 复制到本目录：
//
//	cp -r data mobile/
//	ebitenmobile bind -target android -tags mobile -androidapi 23 -javapkg com.decker.puppet -o build/android/puppet.aar -v ./mobile
package mobile

import (
	"io/fs"
	"log"

	"github.com/hajimehoshi/ebiten/v2/mobile"

	"github.com/decker502/puppet/pkg/app"
)

func init() {
	data, err := fs.Sub(dataFS, "data")
	if err != nil {
		log.Fatalf("内置资源不可用: %v", err)
	}

	cfg := app.Config{
		Verbose:       true,
		FS:            data,
		PicturePath:   "pictures/stickman.yaml",
		ResourcesPath: "resources.yaml",
	}

	viewer, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("查看器初始化失败: %v", err)
	}

	// 注册到 ebitenmobile
	mobile.SetGame(viewer)
}

// Dummy 是一个空导出函数，确保包被 ebitenmobile 正确识别
func Dummy() {}
