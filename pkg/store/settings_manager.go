package store

import (
	"fmt"
	"log"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

// ViewerSettings 查看器设置
type ViewerSettings struct {
	Loop          bool    `yaml:"loop"`          // 播放到结尾后从头开始
	ShowHUD       bool    `yaml:"showHUD"`       // 显示时间和帮助信息
	PlaybackSpeed float64 `yaml:"playbackSpeed"` // 播放速度倍率 0.1 ~ 4.0
	LastPicture   string  `yaml:"lastPicture"`   // 最近打开的画面文件
}

// 播放速度范围
const (
	MinPlaybackSpeed = 0.1
	MaxPlaybackSpeed = 4.0
)

// DefaultSettings 返回默认设置
func DefaultSettings() *ViewerSettings {
	return &ViewerSettings{
		Loop:          true,
		ShowHUD:       true,
		PlaybackSpeed: 1.0,
	}
}

// SettingsManager 设置管理器
// 负责查看器设置的加载、保存和内存管理
type SettingsManager struct {
	gdataManager *gdata.Manager  // gdata 跨平台存储管理器，可为 nil（降级模式）
	settings     *ViewerSettings // 当前设置
}

const (
	settingsObject   = "settings"
	settingsProperty = "viewer"
)

// NewSettingsManager 创建新的设置管理器实例
//
// gdataManager 可为 nil（降级模式，仅内存设置）。加载失败时使用默认设置并记录警告。
func NewSettingsManager(gdataManager *gdata.Manager) *SettingsManager {
	sm := &SettingsManager{
		gdataManager: gdataManager,
		settings:     DefaultSettings(),
	}
	if err := sm.Load(); err != nil {
		log.Printf("[SettingsManager] Warning: Failed to load settings: %v (using defaults)", err)
	}
	return sm
}

// Load 从 gdata 加载设置
//
// 如果 gdataManager 为 nil 或文件不存在，使用默认设置
func (sm *SettingsManager) Load() error {
	if sm.gdataManager == nil || !sm.gdataManager.ObjectPropExists(settingsObject, settingsProperty) {
		sm.settings = DefaultSettings()
		return nil
	}

	data, err := sm.gdataManager.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// 以默认值为底，旧版本存档缺少的字段保持默认
	loaded := DefaultSettings()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	loaded.PlaybackSpeed = clampSpeed(loaded.PlaybackSpeed)

	sm.settings = loaded
	log.Printf("[SettingsManager] Settings loaded successfully")
	return nil
}

// Save 保存设置到 gdata
//
// 如果 gdataManager 为 nil，返回 nil（降级模式，不报错）
func (sm *SettingsManager) Save() error {
	if sm.gdataManager == nil {
		return nil
	}

	data, err := yaml.Marshal(sm.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := sm.gdataManager.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	log.Printf("[SettingsManager] Settings saved successfully")
	return nil
}

// GetSettings 获取当前设置
func (sm *SettingsManager) GetSettings() *ViewerSettings {
	return sm.settings
}

// SetLoop 设置循环播放
// 注意：仅修改内存中的设置，需调用 Save() 方法持久化
func (sm *SettingsManager) SetLoop(loop bool) {
	sm.settings.Loop = loop
}

// SetShowHUD 设置是否显示 HUD
func (sm *SettingsManager) SetShowHUD(show bool) {
	sm.settings.ShowHUD = show
}

// SetPlaybackSpeed 设置播放速度，限制在 MinPlaybackSpeed ~ MaxPlaybackSpeed
func (sm *SettingsManager) SetPlaybackSpeed(speed float64) {
	sm.settings.PlaybackSpeed = clampSpeed(speed)
}

// SetLastPicture 记录最近打开的画面
func (sm *SettingsManager) SetLastPicture(path string) {
	sm.settings.LastPicture = path
}

func clampSpeed(speed float64) float64 {
	if speed < MinPlaybackSpeed {
		return MinPlaybackSpeed
	}
	if speed > MaxPlaybackSpeed {
		return MaxPlaybackSpeed
	}
	return speed
}
