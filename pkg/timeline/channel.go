// Package timeline implements the sparse keyframe channels and the shared
// timeline that samples them.
//
// A Channel stores (tick, value) keyframes for one animatable property.
// Values between two keyframes are interpolated linearly; outside the
// keyframe range the nearest keyframe's value is held. A channel is
// registered with exactly one Timeline, which owns the notion of "current
// time" and refreshes the cached sample of every channel when it moves.
package timeline

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/decker502/puppet/pkg/geom"
)

var (
	// ErrNotAttached is returned when a channel is sampled or keyed at the
	// current tick without being registered with a timeline.
	ErrNotAttached = errors.New("channel is not attached to a timeline")

	// ErrForeignTimeline is returned when a channel already registered with
	// one timeline is added to another.
	ErrForeignTimeline = errors.New("channel belongs to another timeline")
)

// Keyframe is a value captured at a frame index.
type Keyframe[T any] struct {
	Tick  int `yaml:"tick"`
	Value T   `yaml:"value"`
}

// Lerp interpolates from a to b; t is in [0, 1].
type Lerp[T any] func(a, b T, t float64) T

// Sampler is the part of a channel the timeline drives.
type Sampler interface {
	// Name returns the channel name, used for diagnostics and persistence.
	Name() string
	// Sample refreshes the cached value for tick.
	Sample(tick int)
	// Ticks returns the keyframe ticks in increasing order.
	Ticks() []int

	attach(tl *Timeline) error
	detach(tl *Timeline)
}

// Channel holds the keyframes of one property. Ticks are kept strictly
// increasing with at most one keyframe per tick.
type Channel[T any] struct {
	name     string
	keys     []Keyframe[T]
	lerp     Lerp[T]
	timeline *Timeline

	// cached sample at the timeline's current tick
	current T
	valid   bool
}

// NewChannel creates an empty channel using lerp between keyframes.
func NewChannel[T any](name string, lerp Lerp[T]) *Channel[T] {
	return &Channel[T]{name: name, lerp: lerp}
}

// NewPointChannel creates a channel interpolating points component-wise.
func NewPointChannel(name string) *Channel[geom.Point] {
	return NewChannel(name, func(a, b geom.Point, t float64) geom.Point {
		return a.Lerp(b, t)
	})
}

// NewAngleChannel creates a channel for angles in radians. Interpolation is
// done on the raw value without wrapping to the shortest arc, so a keyframe
// pair (0, 4π) spins two full turns.
func NewAngleChannel(name string) *Channel[float64] {
	return NewChannel(name, func(a, b float64, t float64) float64 {
		return a + (b-a)*t
	})
}

// Name returns the channel name.
func (c *Channel[T]) Name() string {
	return c.name
}

// SetName renames the channel.
func (c *Channel[T]) SetName(name string) {
	c.name = name
}

// Timeline returns the timeline the channel is registered with, or nil.
func (c *Channel[T]) Timeline() *Timeline {
	return c.timeline
}

// Len returns the number of keyframes.
func (c *Channel[T]) Len() int {
	return len(c.keys)
}

// search returns the index of the first keyframe with Tick >= tick.
func (c *Channel[T]) search(tick int) int {
	return sort.Search(len(c.keys), func(i int) bool {
		return c.keys[i].Tick >= tick
	})
}

// SetKeyframe inserts a keyframe at tick, replacing any keyframe already
// there. Keyframes may be set in any order.
func (c *Channel[T]) SetKeyframe(tick int, value T) {
	i := c.search(tick)
	if i < len(c.keys) && c.keys[i].Tick == tick {
		c.keys[i].Value = value
	} else {
		c.keys = slices.Insert(c.keys, i, Keyframe[T]{Tick: tick, Value: value})
	}
	c.resample()
}

// SetKeyframeNow sets a keyframe at the timeline's current tick.
func (c *Channel[T]) SetKeyframeNow(value T) error {
	if c.timeline == nil {
		return fmt.Errorf("set keyframe on %q: %w", c.name, ErrNotAttached)
	}
	c.SetKeyframe(c.timeline.CurrentTick(), value)
	return nil
}

// DeleteKeyframe removes the keyframe at tick. It reports whether one
// existed.
func (c *Channel[T]) DeleteKeyframe(tick int) bool {
	i := c.search(tick)
	if i >= len(c.keys) || c.keys[i].Tick != tick {
		return false
	}
	c.keys = slices.Delete(c.keys, i, i+1)
	c.resample()
	return true
}

// Clear removes every keyframe.
func (c *Channel[T]) Clear() {
	c.keys = c.keys[:0]
	c.resample()
}

// KeyframeAt returns the value keyed exactly at tick.
func (c *Channel[T]) KeyframeAt(tick int) (T, bool) {
	i := c.search(tick)
	if i < len(c.keys) && c.keys[i].Tick == tick {
		return c.keys[i].Value, true
	}
	var zero T
	return zero, false
}

// Keyframes returns a copy of the keyframes in tick order.
func (c *Channel[T]) Keyframes() []Keyframe[T] {
	return slices.Clone(c.keys)
}

// Ticks returns the keyframe ticks in increasing order.
func (c *Channel[T]) Ticks() []int {
	ticks := make([]int, len(c.keys))
	for i, k := range c.keys {
		ticks[i] = k.Tick
	}
	return ticks
}

// IsValidAt reports whether ValueAt(tick) yields a value. Because values
// are clamped outside the keyframe range, this holds for every tick as soon
// as the channel has a keyframe.
func (c *Channel[T]) IsValidAt(tick int) bool {
	return len(c.keys) > 0
}

// ValueAt returns the value at tick:
//   - no keyframes: ok is false and the caller keeps its own value
//   - tick <= first keyframe: the first value
//   - tick >= last keyframe: the last value
//   - otherwise the interpolation of the bracketing keyframes
func (c *Channel[T]) ValueAt(tick int) (value T, ok bool) {
	n := len(c.keys)
	if n == 0 {
		return value, false
	}
	if tick <= c.keys[0].Tick {
		return c.keys[0].Value, true
	}
	if tick >= c.keys[n-1].Tick {
		return c.keys[n-1].Value, true
	}

	i := c.search(tick)
	b := c.keys[i]
	if b.Tick == tick {
		return b.Value, true
	}
	a := c.keys[i-1]
	t := float64(tick-a.Tick) / float64(b.Tick-a.Tick)
	return c.lerp(a.Value, b.Value, t), true
}

// Sample caches ValueAt(tick). The timeline calls it when the current time
// changes.
func (c *Channel[T]) Sample(tick int) {
	c.current, c.valid = c.ValueAt(tick)
}

// Current returns the value sampled at the timeline's current tick. ok is
// false when the channel has no keyframes. An unattached channel returns
// ErrNotAttached.
func (c *Channel[T]) Current() (value T, ok bool, err error) {
	if c.timeline == nil {
		return value, false, fmt.Errorf("sample %q: %w", c.name, ErrNotAttached)
	}
	return c.current, c.valid, nil
}

func (c *Channel[T]) resample() {
	if c.timeline != nil {
		c.Sample(c.timeline.CurrentTick())
	}
}

func (c *Channel[T]) attach(tl *Timeline) error {
	if c.timeline != nil && c.timeline != tl {
		return fmt.Errorf("add %q: %w", c.name, ErrForeignTimeline)
	}
	c.timeline = tl
	c.Sample(tl.CurrentTick())
	return nil
}

func (c *Channel[T]) detach(tl *Timeline) {
	if c.timeline == tl {
		c.timeline = nil
		c.valid = false
	}
}
