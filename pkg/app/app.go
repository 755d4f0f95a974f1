// Package app 提供画面查看器的核心包装器
//
// 该包把画面加载、关键帧存档和 ebiten 游戏循环组装在一起，main.go 只负责解析参数。
// 播放和编辑逻辑在 Player 中，不依赖窗口，便于测试。
package app

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"io/fs"
	"log"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/quasilyte/gdata/v2"

	"github.com/decker502/puppet/pkg/builder"
	"github.com/decker502/puppet/pkg/config"
	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics/ebitengfx"
	"github.com/decker502/puppet/pkg/resource"
	"github.com/decker502/puppet/pkg/scene"
	"github.com/decker502/puppet/pkg/store"
)

// AppName 是 gdata 存档使用的应用名
const AppName = "puppet"

// Config 定义查看器启动配置
type Config struct {
	// Verbose 启用详细日志输出
	Verbose bool
	// FS 是画面和图片所在的文件系统（磁盘目录或嵌入资源）
	FS fs.FS
	// PicturePath 是画面配置在 FS 中的路径
	PicturePath string
	// ResourcesPath 是资源清单在 FS 中的路径，为空则不加载图片
	ResourcesPath string
	// KeysFile 是可选的关键帧快照文件，启动时若存在则导入
	KeysFile string
}

// App 是查看器的核心包装器，实现 ebiten.Game 接口
type App struct {
	player  *Player
	canvas  *ebitengfx.Canvas
	verbose bool
	hud     string

	pendingWindowSizeReset   bool // 延迟设置窗口大小标志
	windowSizeResetCountdown int  // 延迟帧数
}

// NewApp 加载画面并创建查看器
func NewApp(cfg Config) (*App, error) {
	// 配置日志输出
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	rm := resource.NewResourceManager(cfg.FS)
	if cfg.ResourcesPath != "" {
		if err := rm.LoadResourceConfig(cfg.ResourcesPath); err != nil {
			return nil, fmt.Errorf("资源配置加载失败: %w", err)
		}
		if err := rm.Preload(context.Background()); err != nil {
			return nil, fmt.Errorf("图片预加载失败: %w", err)
		}
	}

	data, err := fs.ReadFile(cfg.FS, cfg.PicturePath)
	if err != nil {
		return nil, fmt.Errorf("读取画面配置失败: %w", err)
	}
	pictureCfg, err := config.ParsePictureConfig(data)
	if err != nil {
		return nil, fmt.Errorf("画面配置 %s 无效: %w", cfg.PicturePath, err)
	}
	pic, err := builder.NewFactory(rm).Picture(pictureCfg)
	if err != nil {
		return nil, fmt.Errorf("构建画面失败: %w", err)
	}

	name := pictureCfg.Name
	if name == "" {
		name = cfg.PicturePath
	}

	// gdata 打开失败时进入降级模式：设置和关键帧只保存在内存中
	gdataManager, err := gdata.Open(gdata.Config{AppName: AppName})
	if err != nil {
		log.Printf("[App] Warning: gdata unavailable: %v (running without saves)", err)
		gdataManager = nil
	}
	settings := store.NewSettingsManager(gdataManager)
	settings.SetLastPicture(cfg.PicturePath)
	if err := settings.Save(); err != nil {
		log.Printf("[App] Warning: %v", err)
	}

	player := NewPlayer(pic, name, settings, store.NewKeyframeStore(gdataManager))
	if cfg.KeysFile != "" {
		player.SetKeysFile(cfg.KeysFile)
		if s, err := store.ReadSnapshotFile(cfg.KeysFile); err == nil {
			if err := s.Apply(pic); err != nil {
				return nil, fmt.Errorf("导入关键帧失败: %w", err)
			}
			log.Printf("[App] Keyframes imported from %s", cfg.KeysFile)
		} else {
			log.Printf("[App] No keyframes imported: %v", err)
		}
	}

	a := &App{
		player:  player,
		verbose: cfg.Verbose,
	}
	pic.AddObserver(a)
	a.UpdateObserver()
	log.Printf("[App] Picture %q loaded: %d actors, %d frames", name, len(pic.Actors()), pic.Timeline().NumFrames())
	return a, nil
}

// Size 返回画面尺寸（窗口逻辑尺寸）
func (a *App) Size() (int, int) {
	size := a.player.Picture().Size()
	return int(size.X + 0.5), int(size.Y + 0.5)
}

// Player 返回播放控制器
func (a *App) Player() *Player {
	return a.player
}

// UpdateObserver 在画面时间或姿势变化后刷新 HUD 文本
func (a *App) UpdateObserver() {
	a.hud = hudText(a.player)
}

// Update 处理输入并推进播放
// 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	// 延迟设置窗口大小（退出全屏后需要等待几帧才能正确设置）
	if a.pendingWindowSizeReset {
		a.windowSizeResetCountdown--
		if a.windowSizeResetCountdown <= 0 {
			w, h := a.Size()
			ebiten.SetWindowSize(w, h)
			a.pendingWindowSizeReset = false
		}
	}

	// F11 切换全屏
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		if ebiten.IsFullscreen() {
			ebiten.SetFullscreen(false)
			if ebiten.IsWindowMaximized() || ebiten.IsWindowMinimized() {
				ebiten.RestoreWindow()
			}
			a.pendingWindowSizeReset = true
			a.windowSizeResetCountdown = 3
		} else {
			ebiten.SetFullscreen(true)
		}
	}

	a.handleKeys()
	a.handleMouse()

	a.player.Advance(1.0 / float64(ebiten.TPS()))
	return nil
}

func (a *App) handleKeys() {
	p := a.player
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		p.TogglePlay()
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		p.Step(1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		p.Step(-1)
	case inpututil.IsKeyJustPressed(ebiten.KeyPageDown):
		p.NextKeyframe()
	case inpututil.IsKeyJustPressed(ebiten.KeyPageUp):
		p.PrevKeyframe()
	case inpututil.IsKeyJustPressed(ebiten.KeyK):
		a.report(p.SetKeyframe())
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete):
		a.report(p.ClearKeyframe())
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		a.report(p.Save())
	case inpututil.IsKeyJustPressed(ebiten.KeyL):
		a.report(p.Load())
	case inpututil.IsKeyJustPressed(ebiten.KeyH):
		p.ToggleHUD()
	case inpututil.IsKeyJustPressed(ebiten.KeyO):
		p.ToggleLoop()
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual):
		p.ScaleSpeed(2)
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus):
		p.ScaleSpeed(0.5)
	default:
		return
	}
	a.UpdateObserver()
}

func (a *App) handleMouse() {
	x, y := ebiten.CursorPosition()
	pos := geom.Pt(float64(x), float64(y))
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		a.player.BeginDrag(pos)
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		a.player.EndDrag()
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		a.player.DragTo(pos)
	}
}

// report 记录操作失败，查看器继续运行
func (a *App) report(err error) {
	if err != nil {
		log.Printf("[App] Error: %v", err)
	}
}

// Draw 绘制画面和 HUD
func (a *App) Draw(screen *ebiten.Image) {
	if a.canvas == nil {
		a.canvas = ebitengfx.NewCanvas()
	}
	screen.Fill(color.Black)
	a.canvas.Begin(screen, geom.Identity())
	a.player.Picture().Draw(a.canvas)

	if a.player.Settings().ShowHUD {
		ebitenutil.DebugPrint(screen, a.hud)
	}
}

// DrawFinalScreen 实现 FinalScreenDrawer 接口
// 全屏时用黑边填充，线性滤波缩放
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(color.Black)
	op := &ebiten.DrawImageOptions{}
	op.GeoM = geoM
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(offscreen, op)
}

// Layout 返回画面尺寸作为逻辑屏幕尺寸
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return a.Size()
}

// IsVerbose 返回是否启用了详细日志
func (a *App) IsVerbose() bool {
	return a.verbose
}

// hudText 生成 HUD 文本：时间、播放状态和当前拖拽的部件
func hudText(p *Player) string {
	tl := p.Picture().Timeline()
	s := p.Settings()

	state := "paused"
	if p.Playing() {
		state = "playing"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "tick %d/%d  %.2fs  %s x%.2g", tl.CurrentTick(), tl.NumFrames()-1, tl.CurrentTime(), state, s.PlaybackSpeed)
	if s.Loop {
		b.WriteString("  loop")
	}
	if ticks := tl.KeyframeTicks(); len(ticks) > 0 {
		fmt.Fprintf(&b, "\nkeys %v", ticks)
	}
	if actor, d := p.Dragging(); d != nil {
		fmt.Fprintf(&b, "\ndrag %s/%s", actor.Name(), d.Name())
	}
	b.WriteString("\nSpace play  <-/-> step  PgUp/PgDn key  K set  Del clear  S save  L load  H hud  O loop  -/= speed")
	return b.String()
}

var _ scene.Observer = (*App)(nil)
