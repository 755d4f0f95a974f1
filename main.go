package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/puppet/pkg/app"
)

var (
	picturePath   = flag.String("picture", "", "画面配置文件（为空则播放内置示例）")
	resourcesPath = flag.String("resources", "", "资源清单文件（与 -picture 一起使用）")
	keysPath      = flag.String("keys", "", "关键帧快照文件，启动时导入，按 S 时同时写入")
	verbose       = flag.Bool("verbose", false, "详细日志")
)

// 内置示例
const (
	defaultPicture   = "pictures/stickman.yaml"
	defaultResources = "resources.yaml"
)

func main() {
	flag.Parse()

	if *verbose {
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	}

	cfg := app.Config{
		Verbose:  *verbose,
		KeysFile: *keysPath,
	}
	if *picturePath == "" {
		data, err := fs.Sub(dataFS, "data")
		if err != nil {
			log.Fatalf("内置资源不可用: %v", err)
		}
		cfg.FS = data
		cfg.PicturePath = defaultPicture
		cfg.ResourcesPath = defaultResources
	} else {
		// 磁盘文件以工作目录为根
		cfg.FS = os.DirFS(".")
		var err error
		if cfg.PicturePath, err = fsPath(*picturePath); err != nil {
			log.Fatal(err)
		}
		if *resourcesPath != "" {
			if cfg.ResourcesPath, err = fsPath(*resourcesPath); err != nil {
				log.Fatal(err)
			}
		}
	}

	viewer, err := app.NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "查看器初始化失败: %v\n", err)
		os.Exit(1)
	}

	w, h := viewer.Size()
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle("Puppet - " + cfg.PicturePath)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(viewer); err != nil {
		log.Fatal(err)
	}
}

// fsPath 把命令行路径转换成 os.DirFS(".") 中的路径
func fsPath(p string) (string, error) {
	rel := filepath.ToSlash(filepath.Clean(p))
	if !fs.ValidPath(rel) {
		return "", fmt.Errorf("%s: 请使用工作目录下的相对路径", p)
	}
	return rel, nil
}
