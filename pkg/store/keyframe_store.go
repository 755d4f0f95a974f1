package store

import (
	"fmt"
	"log"
	"strings"

	"github.com/quasilyte/gdata/v2"

	"github.com/decker502/puppet/pkg/scene"
)

// 存储路径常量
const keyframesObject = "keyframes"

// KeyframeStore 关键帧存档
// 每个画面一个属性，内容为 YAML 格式的 Snapshot
type KeyframeStore struct {
	gdataManager *gdata.Manager // gdata 跨平台存储管理器，可为 nil（降级模式）
}

// NewKeyframeStore 创建关键帧存档
//
// gdataManager 为 nil 时进入降级模式：Save 不报错也不保存，Load 总是返回 ErrNoSnapshot。
func NewKeyframeStore(gdataManager *gdata.Manager) *KeyframeStore {
	return &KeyframeStore{gdataManager: gdataManager}
}

// propName 把画面名转换成可用作文件名的属性名
func propName(picture string) string {
	if picture == "" {
		return "untitled"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, picture)
}

// Has 检查是否保存过该画面的关键帧
func (ks *KeyframeStore) Has(picture string) bool {
	if ks.gdataManager == nil {
		return false
	}
	return ks.gdataManager.ObjectPropExists(keyframesObject, propName(picture))
}

// Save 保存画面的全部关键帧
func (ks *KeyframeStore) Save(pic *scene.Picture, picture string) error {
	// 降级模式：无法持久化，但不报错
	if ks.gdataManager == nil {
		return nil
	}

	data, err := Capture(pic, picture).Marshal()
	if err != nil {
		return err
	}
	if err := ks.gdataManager.SaveObjectProp(keyframesObject, propName(picture), data); err != nil {
		return fmt.Errorf("failed to save keyframes for %q: %w", picture, err)
	}
	log.Printf("[KeyframeStore] Keyframes for %q saved", picture)
	return nil
}

// Load 读取保存的关键帧并应用到画面
func (ks *KeyframeStore) Load(pic *scene.Picture, picture string) error {
	if !ks.Has(picture) {
		return fmt.Errorf("%q: %w", picture, ErrNoSnapshot)
	}

	data, err := ks.gdataManager.LoadObjectProp(keyframesObject, propName(picture))
	if err != nil {
		return fmt.Errorf("failed to load keyframes for %q: %w", picture, err)
	}
	s, err := UnmarshalSnapshot(data)
	if err != nil {
		return err
	}
	if err := s.Apply(pic); err != nil {
		return err
	}
	log.Printf("[KeyframeStore] Keyframes for %q loaded", picture)
	return nil
}
