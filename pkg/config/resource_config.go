package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/decker502/puppet/pkg/geom"
)

// ResourceConfig 图片资源清单
//
// 配置文件位置: data/resources.yaml
type ResourceConfig struct {
	// BasePath 图片路径的公共前缀，相对于清单文件所在目录
	BasePath string `yaml:"base_path,omitempty"`

	Images []ImageResource `yaml:"images"`
}

// ImageResource 单张图片
type ImageResource struct {
	// ID 资源ID，画面配置通过它引用图片
	ID string `yaml:"id"`

	// Path 相对 BasePath 的文件路径
	Path string `yaml:"path"`

	// Anchor 锚点（像素），缺省为图片中心
	Anchor *geom.Point `yaml:"anchor,omitempty"`
}

// LoadResourceConfig 从 YAML 文件加载资源清单
func LoadResourceConfig(path string) (*ResourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource config %s: %w", path, err)
	}

	var cfg ResourceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse resource config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("resource config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate 检查资源ID唯一且路径非空
func (c *ResourceConfig) Validate() error {
	seen := make(map[string]bool, len(c.Images))
	for i, img := range c.Images {
		if img.ID == "" {
			return fmt.Errorf("image #%d has no id: %w", i, ErrInvalidConfig)
		}
		if img.Path == "" {
			return fmt.Errorf("image %q has no path: %w", img.ID, ErrInvalidConfig)
		}
		if seen[img.ID] {
			return fmt.Errorf("duplicate image id %q: %w", img.ID, ErrInvalidConfig)
		}
		seen[img.ID] = true
	}
	return nil
}
