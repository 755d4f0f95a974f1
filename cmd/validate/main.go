// validate 检查画面配置和资源清单
//
// 用法：
//
//	go run ./cmd/validate -resources data/resources.yaml data/pictures/*.yaml
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/decker502/puppet/pkg/builder"
	"github.com/decker502/puppet/pkg/config"
	"github.com/decker502/puppet/pkg/resource"
)

var resourcesPath = flag.String("resources", "data/resources.yaml", "资源清单文件（为空则不检查图片）")

func main() {
	flag.Parse()
	log.SetOutput(io.Discard)

	if flag.NArg() == 0 {
		fmt.Println("用法: validate [-resources 清单] 画面.yaml ...")
		os.Exit(2)
	}

	rm := resource.NewResourceManager(os.DirFS("."))
	if *resourcesPath != "" {
		if err := rm.LoadResourceConfig(filepath.ToSlash(filepath.Clean(*resourcesPath))); err != nil {
			fmt.Printf("❌ 资源清单无效: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ 资源清单: %d 张图片\n", len(rm.ResourceIDs()))
	}

	failed := 0
	for _, path := range flag.Args() {
		if err := validatePicture(rm, path); err != nil {
			fmt.Printf("❌ %s: %v\n", path, err)
			failed++
		}
	}

	if failed > 0 {
		fmt.Printf("❌ 有 %d 个画面未通过检查\n", failed)
		os.Exit(1)
	}
	fmt.Printf("✅ 所有画面都通过检查\n")
}

// validatePicture 加载画面配置、检查图片引用并构建一次场景图
func validatePicture(rm *resource.ResourceManager, path string) error {
	cfg, err := config.LoadPictureConfig(path)
	if err != nil {
		return err
	}

	missing := 0
	check := func(owner, id string) {
		if id == "" {
			return
		}
		if _, err := rm.LoadImageByID(id); err != nil {
			fmt.Printf("   ⚠ %s: %v\n", owner, err)
			missing++
		}
	}
	check("background", cfg.Background.Image)
	for _, a := range cfg.Actors {
		for _, d := range a.Drawables {
			check(a.Name+"/"+d.Name, d.Image)
		}
	}
	if missing > 0 {
		return fmt.Errorf("%d 个图片无法加载", missing)
	}

	// 构建时检测环路和重复绑定
	pic, err := builder.NewFactory(rm).Picture(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s: %d 个角色, %d 帧 @ %d fps\n", path, len(pic.Actors()), pic.Timeline().NumFrames(), cfg.FrameRate)
	return nil
}
