package timeline

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Defaults used by NewTimeline when given non-positive values.
const (
	DefaultFrameRate = 30
	DefaultDuration  = 10.0
)

// ErrInvalidFrameRate is returned by SetFrameRate for rates <= 0.
var ErrInvalidFrameRate = errors.New("frame rate must be positive")

// Timeline is the shared clock of a picture. It does not own property
// values; it only knows the current time and which channels to sample when
// that time changes.
type Timeline struct {
	frameRate   int
	duration    float64
	currentTime float64
	channels    []Sampler
}

// NewTimeline creates a timeline at time zero. A frameRate <= 0 selects
// DefaultFrameRate and a negative duration selects DefaultDuration.
func NewTimeline(frameRate int, duration float64) *Timeline {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	if duration < 0 {
		duration = DefaultDuration
	}
	return &Timeline{frameRate: frameRate, duration: duration}
}

// FrameRate returns the frames per second.
func (tl *Timeline) FrameRate() int {
	return tl.frameRate
}

// SetFrameRate changes the frames per second and resamples every channel,
// since the current tick moves with the rate.
func (tl *Timeline) SetFrameRate(rate int) error {
	if rate <= 0 {
		return fmt.Errorf("set frame rate %d: %w", rate, ErrInvalidFrameRate)
	}
	tl.frameRate = rate
	tl.sampleAll()
	return nil
}

// Duration returns the length of the animation in seconds.
func (tl *Timeline) Duration() float64 {
	return tl.duration
}

// SetDuration changes the animation length. Negative values are treated as
// zero. The current time is clamped into the new range.
func (tl *Timeline) SetDuration(seconds float64) {
	tl.duration = math.Max(0, seconds)
	if tl.currentTime > tl.duration {
		tl.SetCurrentTime(tl.duration)
	}
}

// NumFrames returns the number of ticks on the sample grid, including both
// tick 0 and the tick at the end of the duration.
func (tl *Timeline) NumFrames() int {
	return int(math.Round(tl.duration*float64(tl.frameRate))) + 1
}

// CurrentTime returns the current time in seconds.
func (tl *Timeline) CurrentTime() float64 {
	return tl.currentTime
}

// CurrentTick returns round(current time × frame rate).
func (tl *Timeline) CurrentTick() int {
	return tl.TickOf(tl.currentTime)
}

// TickOf converts a time in seconds to a tick.
func (tl *Timeline) TickOf(seconds float64) int {
	return int(math.Round(seconds * float64(tl.frameRate)))
}

// TimeOf converts a tick to a time in seconds.
func (tl *Timeline) TimeOf(tick int) float64 {
	return float64(tick) / float64(tl.frameRate)
}

// SetCurrentTime moves the timeline to seconds, clamped to [0, duration],
// and refreshes the cached sample of every registered channel.
func (tl *Timeline) SetCurrentTime(seconds float64) {
	tl.currentTime = math.Min(math.Max(seconds, 0), tl.duration)
	tl.sampleAll()
}

// SetCurrentTick moves the timeline to the time of tick.
func (tl *Timeline) SetCurrentTick(tick int) {
	tl.SetCurrentTime(tl.TimeOf(tick))
}

func (tl *Timeline) sampleAll() {
	tick := tl.CurrentTick()
	for _, ch := range tl.channels {
		ch.Sample(tick)
	}
}

// AddChannel registers ch. Adding a channel that is already registered is
// a no-op; adding one registered with another timeline fails with
// ErrForeignTimeline.
func (tl *Timeline) AddChannel(ch Sampler) error {
	if err := ch.attach(tl); err != nil {
		return err
	}
	if !slices.Contains(tl.channels, ch) {
		tl.channels = append(tl.channels, ch)
	}
	return nil
}

// RemoveChannel unregisters ch. It reports whether ch was registered.
func (tl *Timeline) RemoveChannel(ch Sampler) bool {
	i := slices.Index(tl.channels, ch)
	if i < 0 {
		return false
	}
	tl.channels = slices.Delete(tl.channels, i, i+1)
	ch.detach(tl)
	return true
}

// Channels returns the registered channels in registration order.
func (tl *Timeline) Channels() []Sampler {
	return slices.Clone(tl.channels)
}

// HasChannel reports whether ch is registered.
func (tl *Timeline) HasChannel(ch Sampler) bool {
	return slices.Contains(tl.channels, ch)
}

// KeyframeTicks returns the sorted, de-duplicated union of the keyframe
// ticks of every registered channel.
func (tl *Timeline) KeyframeTicks() []int {
	var ticks []int
	for _, ch := range tl.channels {
		ticks = append(ticks, ch.Ticks()...)
	}
	slices.Sort(ticks)
	return slices.Compact(ticks)
}

// NextKeyframeTick returns the first keyframe tick after tick.
func (tl *Timeline) NextKeyframeTick(tick int) (int, bool) {
	for _, t := range tl.KeyframeTicks() {
		if t > tick {
			return t, true
		}
	}
	return 0, false
}

// PrevKeyframeTick returns the last keyframe tick before tick.
func (tl *Timeline) PrevKeyframeTick(tick int) (int, bool) {
	ticks := tl.KeyframeTicks()
	for i := len(ticks) - 1; i >= 0; i-- {
		if ticks[i] < tick {
			return ticks[i], true
		}
	}
	return 0, false
}
