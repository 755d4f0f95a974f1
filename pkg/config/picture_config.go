package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/timeline"
)

// ErrInvalidConfig 配置内容不合法（缺少字段、引用不存在的名称等）
var ErrInvalidConfig = errors.New("invalid config")

// 可绘制体类型
const (
	DrawableImage = "image"
	DrawablePoly  = "poly"
	DrawableHead  = "head"
)

// PictureConfig 画面配置文件的顶层结构
//
// 一个画面包含时间轴参数、背景和若干角色。
// 配置文件位置: data/pictures/*.yaml
type PictureConfig struct {
	// Name 画面名称（用于日志和关键帧存档）
	Name string `yaml:"name"`

	// FrameRate 帧率，缺省为 timeline.DefaultFrameRate
	FrameRate int `yaml:"frame_rate,omitempty"`

	// Duration 时长（秒），缺省为 timeline.DefaultDuration
	Duration float64 `yaml:"duration,omitempty"`

	Background BackgroundConfig `yaml:"background,omitempty"`

	Actors []ActorConfig `yaml:"actors"`
}

// BackgroundConfig 背景配置
type BackgroundConfig struct {
	// Size 背景尺寸，缺省为 800x600
	Size geom.Point `yaml:"size,omitempty"`

	// Image 背景图片资源ID（可选）
	Image string `yaml:"image,omitempty"`

	// Color 背景填充色（可选），格式见 ParseColor
	Color string `yaml:"color,omitempty"`
}

// ActorConfig 角色配置
type ActorConfig struct {
	Name     string     `yaml:"name"`
	Position geom.Point `yaml:"position"`

	// Enabled / Clickable 缺省为 true
	Enabled   *bool `yaml:"enabled,omitempty"`
	Clickable *bool `yaml:"clickable,omitempty"`

	// Root 根可绘制体名称，缺省为第一个没有 parent 的可绘制体
	Root string `yaml:"root,omitempty"`

	// DrawOrder 绘制顺序（从后到前），缺省为 drawables 的声明顺序
	DrawOrder []string `yaml:"draw_order,omitempty"`

	// Keyframes 角色位置关键帧（只使用 position）
	Keyframes []KeyframeConfig `yaml:"keyframes,omitempty"`

	Drawables []DrawableConfig `yaml:"drawables"`
}

// DrawableConfig 可绘制体配置
type DrawableConfig struct {
	Name string `yaml:"name"`

	// Type 类型："image"（默认）、"poly"、"head"
	Type string `yaml:"type,omitempty"`

	// Parent 父节点名称，空表示根
	Parent string `yaml:"parent,omitempty"`

	// Position 相对父节点的位置
	Position geom.Point `yaml:"position"`

	// Rotation 相对父节点的旋转（角度，不是弧度）
	Rotation float64 `yaml:"rotation,omitempty"`

	// Movable 拖拽时是否平移，缺省只有根节点可平移
	Movable *bool `yaml:"movable,omitempty"`

	// KeepUpright 不继承父节点的旋转（头部保持竖直）
	KeepUpright bool `yaml:"keep_upright,omitempty"`

	// Image 图片资源ID（image / head）
	Image string `yaml:"image,omitempty"`

	// Anchor 覆盖图片自带的锚点（可选）
	Anchor *geom.Point `yaml:"anchor,omitempty"`

	// AlphaThreshold 点击检测的透明度阈值
	AlphaThreshold uint8 `yaml:"alpha_threshold,omitempty"`

	// Vertices 多边形顶点（poly）
	Vertices []geom.Point `yaml:"vertices,omitempty"`

	// Color 多边形填充色（poly）
	Color string `yaml:"color,omitempty"`

	// Features 五官（head）
	Features *FeaturesConfig `yaml:"features,omitempty"`

	Keyframes []KeyframeConfig `yaml:"keyframes,omitempty"`
}

// FeaturesConfig 头部五官
type FeaturesConfig struct {
	Eyes  []EyeConfig  `yaml:"eyes,omitempty"`
	Brows []BrowConfig `yaml:"brows,omitempty"`
}

// EyeConfig 眼睛（椭圆）
type EyeConfig struct {
	Center geom.Point `yaml:"center"`
	Radius geom.Point `yaml:"radius"`
	Color  string     `yaml:"color,omitempty"`
}

// BrowConfig 眉毛（粗线段）
type BrowConfig struct {
	From      geom.Point `yaml:"from"`
	To        geom.Point `yaml:"to"`
	Thickness float64    `yaml:"thickness"`
	Color     string     `yaml:"color,omitempty"`
}

// KeyframeConfig 预设关键帧。未给出的属性保持当前值。
type KeyframeConfig struct {
	Tick     int         `yaml:"tick"`
	Position *geom.Point `yaml:"position,omitempty"`
	// Rotation 角度
	Rotation *float64 `yaml:"rotation,omitempty"`
}

// LoadPictureConfig 从 YAML 文件加载画面配置
//
// 读取后会补全缺省值并校验，返回的配置可以直接交给 builder。
func LoadPictureConfig(path string) (*PictureConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read picture config %s: %w", path, err)
	}
	cfg, err := ParsePictureConfig(data)
	if err != nil {
		return nil, fmt.Errorf("picture config %s: %w", path, err)
	}
	return cfg, nil
}

// ParsePictureConfig 解析内存中的 YAML 画面配置
func ParsePictureConfig(data []byte) (*PictureConfig, error) {
	var cfg PictureConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults 补全可选字段
func (c *PictureConfig) applyDefaults() {
	if c.FrameRate == 0 {
		c.FrameRate = timeline.DefaultFrameRate
	}
	if c.Duration == 0 {
		c.Duration = timeline.DefaultDuration
	}
	if c.Background.Size == (geom.Point{}) {
		c.Background.Size = geom.Pt(800, 600)
	}
	for i := range c.Actors {
		a := &c.Actors[i]
		for j := range a.Drawables {
			if a.Drawables[j].Type == "" {
				a.Drawables[j].Type = DrawableImage
			}
		}
		if a.Root == "" {
			for _, d := range a.Drawables {
				if d.Parent == "" {
					a.Root = d.Name
					break
				}
			}
		}
		if len(a.DrawOrder) == 0 {
			for _, d := range a.Drawables {
				a.DrawOrder = append(a.DrawOrder, d.Name)
			}
		}
	}
}

// Validate 校验画面配置
//
// 树结构的环路由 scene.Node.AddChild 检测，这里只检查名称引用。
func (c *PictureConfig) Validate() error {
	if c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %d: %w", c.FrameRate, ErrInvalidConfig)
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %.2f: %w", c.Duration, ErrInvalidConfig)
	}
	if c.Background.Color != "" {
		if _, err := ParseColor(c.Background.Color); err != nil {
			return fmt.Errorf("background: %w", err)
		}
	}

	seen := make(map[string]bool)
	for i := range c.Actors {
		a := &c.Actors[i]
		if a.Name == "" {
			return fmt.Errorf("actor #%d has no name: %w", i, ErrInvalidConfig)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate actor %q: %w", a.Name, ErrInvalidConfig)
		}
		seen[a.Name] = true
		if err := a.validate(); err != nil {
			return fmt.Errorf("actor %q: %w", a.Name, err)
		}
	}
	return nil
}

func (a *ActorConfig) validate() error {
	if len(a.Drawables) == 0 {
		return fmt.Errorf("no drawables: %w", ErrInvalidConfig)
	}

	names := make(map[string]*DrawableConfig, len(a.Drawables))
	for i := range a.Drawables {
		d := &a.Drawables[i]
		if d.Name == "" {
			return fmt.Errorf("drawable #%d has no name: %w", i, ErrInvalidConfig)
		}
		if names[d.Name] != nil {
			return fmt.Errorf("duplicate drawable %q: %w", d.Name, ErrInvalidConfig)
		}
		names[d.Name] = d
	}

	root, ok := names[a.Root]
	if !ok {
		return fmt.Errorf("root %q not found: %w", a.Root, ErrInvalidConfig)
	}
	if root.Parent != "" {
		return fmt.Errorf("root %q has parent %q: %w", a.Root, root.Parent, ErrInvalidConfig)
	}

	for i := range a.Drawables {
		d := &a.Drawables[i]
		if d.Parent != "" && names[d.Parent] == nil {
			return fmt.Errorf("drawable %q: parent %q not found: %w", d.Name, d.Parent, ErrInvalidConfig)
		}
		if d.Parent == "" && d.Name != a.Root {
			return fmt.Errorf("drawable %q has no parent but is not the root: %w", d.Name, ErrInvalidConfig)
		}
		if err := d.validate(); err != nil {
			return fmt.Errorf("drawable %q: %w", d.Name, err)
		}
	}

	for i, name := range a.DrawOrder {
		if names[name] == nil {
			return fmt.Errorf("draw_order: %q not found: %w", name, ErrInvalidConfig)
		}
		if slices.Contains(a.DrawOrder[:i], name) {
			return fmt.Errorf("draw_order: %q listed twice: %w", name, ErrInvalidConfig)
		}
	}
	if len(a.DrawOrder) != len(a.Drawables) {
		return fmt.Errorf("draw_order lists %d of %d drawables: %w",
			len(a.DrawOrder), len(a.Drawables), ErrInvalidConfig)
	}

	return validateKeyframes(a.Keyframes)
}

func (d *DrawableConfig) validate() error {
	switch d.Type {
	case DrawableImage:
	case DrawablePoly:
		if len(d.Vertices) < 3 {
			return fmt.Errorf("poly needs at least 3 vertices, got %d: %w", len(d.Vertices), ErrInvalidConfig)
		}
		if _, err := ParseColor(d.Color); err != nil {
			return err
		}
	case DrawableHead:
		// 五官颜色可省略，缺省为黑色
		if d.Features != nil {
			for _, e := range d.Features.Eyes {
				if e.Color == "" {
					continue
				}
				if _, err := ParseColor(e.Color); err != nil {
					return fmt.Errorf("eye: %w", err)
				}
			}
			for _, b := range d.Features.Brows {
				if b.Color == "" {
					continue
				}
				if _, err := ParseColor(b.Color); err != nil {
					return fmt.Errorf("brow: %w", err)
				}
			}
		}
	default:
		return fmt.Errorf("unknown type %q: %w", d.Type, ErrInvalidConfig)
	}
	return validateKeyframes(d.Keyframes)
}

func validateKeyframes(keys []KeyframeConfig) error {
	for _, k := range keys {
		if k.Tick < 0 {
			return fmt.Errorf("keyframe tick %d is negative: %w", k.Tick, ErrInvalidConfig)
		}
	}
	return nil
}

// Actor 按名称查找角色配置
func (c *PictureConfig) Actor(name string) (*ActorConfig, bool) {
	for i := range c.Actors {
		if c.Actors[i].Name == name {
			return &c.Actors[i], true
		}
	}
	return nil, false
}

// IsEnabled 返回 Enabled，缺省为 true
func (a *ActorConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// IsClickable 返回 Clickable，缺省为 true
func (a *ActorConfig) IsClickable() bool {
	return a.Clickable == nil || *a.Clickable
}
