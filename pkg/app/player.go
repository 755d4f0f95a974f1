package app

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/scene"
	"github.com/decker502/puppet/pkg/store"
)

// Player 播放与编辑控制器
// 持有画面和播放状态，不依赖 ebiten，键盘和鼠标事件由 App 翻译成这里的方法调用
type Player struct {
	picture  *scene.Picture
	name     string
	settings *store.SettingsManager
	keys     *store.KeyframeStore
	keysFile string // 可选的关键帧快照文件，S/L 时同时读写

	playing bool

	// 拖拽状态
	dragActor    *scene.Actor
	dragDrawable scene.Drawable
	dragLast     geom.Point
}

// NewPlayer 创建播放器
//
// settings 和 keys 可以为 nil，此时使用默认设置且不持久化关键帧。
func NewPlayer(pic *scene.Picture, name string, settings *store.SettingsManager, keys *store.KeyframeStore) *Player {
	if settings == nil {
		settings = store.NewSettingsManager(nil)
	}
	if keys == nil {
		keys = store.NewKeyframeStore(nil)
	}
	return &Player{
		picture:  pic,
		name:     name,
		settings: settings,
		keys:     keys,
	}
}

// SetKeysFile 设置关键帧快照文件路径
func (p *Player) SetKeysFile(path string) {
	p.keysFile = path
}

// Picture 返回正在播放的画面
func (p *Player) Picture() *scene.Picture {
	return p.picture
}

// Settings 返回当前查看器设置
func (p *Player) Settings() *store.ViewerSettings {
	return p.settings.GetSettings()
}

// Playing 返回是否正在播放
func (p *Player) Playing() bool {
	return p.playing
}

// TogglePlay 播放/暂停
// 停在结尾时重新播放会从头开始
func (p *Player) TogglePlay() {
	p.playing = !p.playing
	if p.playing && p.picture.CurrentTime() >= p.picture.Timeline().Duration() {
		p.seek(0)
	}
	log.Printf("[Viewer] playing=%v", p.playing)
}

// Advance 播放时推进 dt 秒（乘以播放速度）
// 到达结尾后循环或停止，取决于设置
func (p *Player) Advance(dt float64) {
	if !p.playing {
		return
	}
	s := p.settings.GetSettings()
	duration := p.picture.Timeline().Duration()
	t := p.picture.CurrentTime() + dt*s.PlaybackSpeed
	if t > duration {
		if s.Loop && duration > 0 {
			t = math.Mod(t, duration)
		} else {
			t = duration
			p.playing = false
		}
	}
	p.seek(t)
}

// Step 前进或后退 n 帧，限制在时间轴范围内
func (p *Player) Step(n int) {
	tl := p.picture.Timeline()
	tick := min(max(tl.CurrentTick()+n, 0), tl.NumFrames()-1)
	p.seekTick(tick)
}

// NextKeyframe 跳到下一个关键帧，没有则不动
func (p *Player) NextKeyframe() {
	if tick, ok := p.picture.Timeline().NextKeyframeTick(p.picture.Timeline().CurrentTick()); ok {
		p.seekTick(tick)
	}
}

// PrevKeyframe 跳到上一个关键帧，没有则不动
func (p *Player) PrevKeyframe() {
	if tick, ok := p.picture.Timeline().PrevKeyframeTick(p.picture.Timeline().CurrentTick()); ok {
		p.seekTick(tick)
	}
}

// SetKeyframe 在当前帧记录所有角色的关键帧
func (p *Player) SetKeyframe() error {
	if err := p.picture.SetKeyframe(); err != nil {
		return fmt.Errorf("set keyframe: %w", err)
	}
	log.Printf("[Viewer] Keyframe set at tick %d", p.picture.Timeline().CurrentTick())
	return nil
}

// ClearKeyframe 删除当前帧的所有关键帧
func (p *Player) ClearKeyframe() error {
	tick := p.picture.Timeline().CurrentTick()
	if err := p.picture.ClearKeyframeAt(tick); err != nil {
		return fmt.Errorf("clear keyframe: %w", err)
	}
	log.Printf("[Viewer] Keyframes at tick %d cleared", tick)
	return nil
}

// Save 保存关键帧到 gdata，设置了快照文件时也写入文件
func (p *Player) Save() error {
	if err := p.keys.Save(p.picture, p.name); err != nil {
		return err
	}
	if p.keysFile != "" {
		if err := store.Capture(p.picture, p.name).WriteFile(p.keysFile); err != nil {
			return err
		}
		log.Printf("[Viewer] Keyframes written to %s", p.keysFile)
	}
	return nil
}

// Load 读取保存的关键帧
// 优先读 gdata 存档，没有存档时读快照文件
func (p *Player) Load() error {
	err := p.keys.Load(p.picture, p.name)
	if err == nil || !errors.Is(err, store.ErrNoSnapshot) || p.keysFile == "" {
		return err
	}
	s, err := store.ReadSnapshotFile(p.keysFile)
	if err != nil {
		return err
	}
	return s.Apply(p.picture)
}

// ToggleHUD 切换 HUD 显示并保存设置
func (p *Player) ToggleHUD() {
	p.settings.SetShowHUD(!p.settings.GetSettings().ShowHUD)
	p.saveSettings()
}

// ToggleLoop 切换循环播放并保存设置
func (p *Player) ToggleLoop() {
	p.settings.SetLoop(!p.settings.GetSettings().Loop)
	p.saveSettings()
}

// ScaleSpeed 把播放速度乘以 factor 并保存设置
func (p *Player) ScaleSpeed(factor float64) {
	p.settings.SetPlaybackSpeed(p.settings.GetSettings().PlaybackSpeed * factor)
	p.saveSettings()
}

func (p *Player) saveSettings() {
	if err := p.settings.Save(); err != nil {
		log.Printf("[Viewer] Warning: %v", err)
	}
}

// BeginDrag 在 pos 处开始拖拽，返回是否命中了可点击的部件
func (p *Player) BeginDrag(pos geom.Point) bool {
	p.picture.Place()
	a, d := p.picture.HitTest(pos)
	if d == nil {
		return false
	}
	p.dragActor, p.dragDrawable, p.dragLast = a, d, pos
	log.Printf("[Viewer] Dragging %s/%s", a.Name(), d.Name())
	return true
}

// DragTo 把拖拽中的部件跟随到 pos
// 可移动的部件平移，其余部件绕自身位置旋转
func (p *Player) DragTo(pos geom.Point) {
	if p.dragDrawable == nil || pos == p.dragLast {
		return
	}
	if p.dragDrawable.Movable() {
		p.dragDrawable.Move(pos.Sub(p.dragLast))
	} else {
		scene.DragRotate(p.dragDrawable, p.dragLast, pos)
	}
	p.dragLast = pos
	p.picture.Place()
	p.picture.UpdateObservers()
}

// EndDrag 结束拖拽
func (p *Player) EndDrag() {
	p.dragActor, p.dragDrawable = nil, nil
}

// Dragging 返回正在拖拽的角色和部件
func (p *Player) Dragging() (*scene.Actor, scene.Drawable) {
	return p.dragActor, p.dragDrawable
}

func (p *Player) seek(t float64) {
	if err := p.picture.SetCurrentTime(t); err != nil {
		log.Printf("[Viewer] Warning: seek %.3fs: %v", t, err)
	}
}

func (p *Player) seekTick(tick int) {
	p.seek(p.picture.Timeline().TimeOf(tick))
}
