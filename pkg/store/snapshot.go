// Package store persists keyframes and viewer settings.
//
// Keyframes are saved as a Snapshot: every keyframe of every channel of a
// picture, keyed by actor and drawable name so a snapshot can be applied to
// a freshly built copy of the same picture. Snapshots are YAML, stored
// either through gdata (per-user app data) or in plain files.
package store

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/scene"
	"github.com/decker502/puppet/pkg/timeline"
)

// ErrNoSnapshot is returned when no snapshot has been saved under a name.
var ErrNoSnapshot = errors.New("no keyframe snapshot")

// Snapshot holds the keyframes of one picture.
type Snapshot struct {
	Picture   string      `yaml:"picture"`
	FrameRate int         `yaml:"frame_rate"`
	Actors    []ActorKeys `yaml:"actors"`
}

// ActorKeys holds an actor's position keyframes and its drawables'.
type ActorKeys struct {
	Name      string                          `yaml:"name"`
	Position  []timeline.Keyframe[geom.Point] `yaml:"position,omitempty"`
	Drawables []DrawableKeys                  `yaml:"drawables,omitempty"`
}

// DrawableKeys holds one drawable's keyframes. Rotations are radians.
type DrawableKeys struct {
	Name     string                          `yaml:"name"`
	Position []timeline.Keyframe[geom.Point] `yaml:"position,omitempty"`
	Rotation []timeline.Keyframe[float64]    `yaml:"rotation,omitempty"`
}

// Capture copies every keyframe of pic into a snapshot named name.
// Every actor and drawable is listed, keyed or not, so that applying the
// snapshot also clears keys deleted since.
func Capture(pic *scene.Picture, name string) *Snapshot {
	s := &Snapshot{Picture: name, FrameRate: pic.Timeline().FrameRate()}
	for _, a := range pic.Actors() {
		ak := ActorKeys{Name: a.Name(), Position: a.PositionChannel().Keyframes()}
		for _, d := range a.Drawables() {
			ak.Drawables = append(ak.Drawables, DrawableKeys{
				Name:     d.Name(),
				Position: d.PositionChannel().Keyframes(),
				Rotation: d.RotationChannel().Keyframes(),
			})
		}
		s.Actors = append(s.Actors, ak)
	}
	return s
}

// Apply replaces the keyframes of every actor and drawable the snapshot
// names, then re-samples pic at its current time. Channels the snapshot
// does not mention are left alone; names pic does not have are skipped.
// Ticks are rescaled when the snapshot was taken at another frame rate.
func (s *Snapshot) Apply(pic *scene.Picture) error {
	rate := pic.Timeline().FrameRate()
	retick := func(tick int) int {
		if s.FrameRate <= 0 || s.FrameRate == rate {
			return tick
		}
		return int(math.Round(float64(tick) * float64(rate) / float64(s.FrameRate)))
	}

	for _, ak := range s.Actors {
		a, ok := pic.Actor(ak.Name)
		if !ok {
			log.Printf("[KeyframeStore] Warning: snapshot %q names unknown actor %q", s.Picture, ak.Name)
			continue
		}
		replace(a.PositionChannel(), ak.Position, retick)
		for _, dk := range ak.Drawables {
			d, ok := a.Drawable(dk.Name)
			if !ok {
				log.Printf("[KeyframeStore] Warning: snapshot %q names unknown drawable %q/%q",
					s.Picture, ak.Name, dk.Name)
				continue
			}
			replace(d.PositionChannel(), dk.Position, retick)
			replace(d.RotationChannel(), dk.Rotation, retick)
		}
	}
	return pic.SetCurrentTime(pic.CurrentTime())
}

func replace[T any](ch *timeline.Channel[T], keys []timeline.Keyframe[T], retick func(int) int) {
	ch.Clear()
	for _, k := range keys {
		ch.SetKeyframe(retick(k.Tick), k.Value)
	}
}

// Marshal encodes the snapshot as YAML.
func (s *Snapshot) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot %q: %w", s.Picture, err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a YAML snapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &s, nil
}

// WriteFile saves the snapshot to path.
func (s *Snapshot) WriteFile(path string) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return nil
}

// ReadSnapshotFile loads a snapshot written by WriteFile.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return UnmarshalSnapshot(data)
}
