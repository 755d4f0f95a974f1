// export 把画面逐帧渲染成 PNG 文件
//
// 用法：
//
//	go run ./cmd/export -picture data/pictures/stickman.yaml -resources data/resources.yaml -out frames
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"github.com/decker502/puppet/pkg/builder"
	"github.com/decker502/puppet/pkg/config"
	"github.com/decker502/puppet/pkg/export"
	"github.com/decker502/puppet/pkg/resource"
	"github.com/decker502/puppet/pkg/scene"
)

var (
	picturePath   = flag.String("picture", "data/pictures/stickman.yaml", "画面配置文件")
	resourcesPath = flag.String("resources", "data/resources.yaml", "资源清单文件（为空则不加载图片）")
	outDir        = flag.String("out", "frames", "输出目录")
	from          = flag.Int("from", 0, "起始帧（含）")
	to            = flag.Int("to", -1, "结束帧（含），-1 表示最后一帧")
	workers       = flag.Int("workers", 0, "并行渲染的画面数，0 表示 CPU 核数")
	smooth        = flag.Bool("smooth", false, "使用 Catmull-Rom 插值缩放图片（更慢）")
	verbose       = flag.Bool("verbose", false, "详细日志")
)

func main() {
	flag.Parse()

	if *verbose {
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.LoadPictureConfig(*picturePath)
	if err != nil {
		fatalf("%v", err)
	}

	// 图片只读，所有画面共用一个资源管理器
	rm := resource.NewResourceManager(os.DirFS("."))
	if *resourcesPath != "" {
		if err := rm.LoadResourceConfig(filepath.ToSlash(filepath.Clean(*resourcesPath))); err != nil {
			fatalf("%v", err)
		}
	}
	factory := builder.NewFactory(rm)

	opts := export.Options{
		OutDir:  *outDir,
		From:    *from,
		To:      *to,
		Workers: *workers,
	}
	if *smooth {
		opts.Transformer = xdraw.CatmullRom
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rm.Preload(ctx); err != nil {
		fatalf("%v", err)
	}

	n, err := export.Export(ctx, func() (*scene.Picture, error) {
		return factory.Picture(cfg)
	}, opts)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("已导出 %d 帧到 %s\n", n, *outDir)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "导出失败: "+format+"\n", args...)
	os.Exit(1)
}
