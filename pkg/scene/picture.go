package scene

import (
	"fmt"
	"image/color"
	"slices"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics"
	"github.com/decker502/puppet/pkg/timeline"
)

// DefaultSize is the background size of a new picture.
var DefaultSize = geom.Pt(800, 600)

// Observer is notified whenever a picture changes in a way a view should
// redraw for.
type Observer interface {
	UpdateObserver()
}

// Picture owns a timeline and the actors animated on it.
type Picture struct {
	timeline *timeline.Timeline
	actors   []*Actor

	size            geom.Point
	background      *graphics.Bitmap
	backgroundColor color.Color

	observers []Observer
}

// NewPicture creates an empty picture on tl. A nil tl gets a timeline with
// the default frame rate and duration.
func NewPicture(tl *timeline.Timeline) *Picture {
	if tl == nil {
		tl = timeline.NewTimeline(timeline.DefaultFrameRate, timeline.DefaultDuration)
	}
	return &Picture{timeline: tl, size: DefaultSize}
}

// Timeline returns the picture's timeline.
func (p *Picture) Timeline() *timeline.Timeline {
	return p.timeline
}

// Size returns the background size.
func (p *Picture) Size() geom.Point {
	return p.size
}

// SetSize sets the background size.
func (p *Picture) SetSize(size geom.Point) {
	p.size = size
}

// Background returns the background image, or nil.
func (p *Picture) Background() *graphics.Bitmap {
	return p.background
}

// SetBackground sets the background image, drawn stretched over Size.
func (p *Picture) SetBackground(bm *graphics.Bitmap) {
	p.background = bm
}

// BackgroundColor returns the color filled under the background image, or
// nil for none.
func (p *Picture) BackgroundColor() color.Color {
	return p.backgroundColor
}

// SetBackgroundColor sets the color filled under the background image.
func (p *Picture) SetBackgroundColor(c color.Color) {
	p.backgroundColor = c
}

// AddActor appends a and attaches it to the picture's timeline.
func (p *Picture) AddActor(a *Actor) error {
	if err := a.SetPicture(p); err != nil {
		return fmt.Errorf("add actor: %w", err)
	}
	p.actors = append(p.actors, a)
	return nil
}

// Actors returns the actors in insertion (painting) order.
func (p *Picture) Actors() []*Actor {
	return slices.Clone(p.actors)
}

// Actor finds an actor by name.
func (p *Picture) Actor(name string) (*Actor, bool) {
	for _, a := range p.actors {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// CurrentTime returns the timeline's current time.
func (p *Picture) CurrentTime() float64 {
	return p.timeline.CurrentTime()
}

// SetCurrentTime moves the timeline, refreshes every actor from its
// channels and notifies observers. All sampled state is up to date before
// this returns, so a following Draw or HitTest sees time t.
func (p *Picture) SetCurrentTime(t float64) error {
	p.timeline.SetCurrentTime(t)
	for _, a := range p.actors {
		if err := a.GetKeyframe(); err != nil {
			return err
		}
	}
	p.UpdateObservers()
	return nil
}

// SetCurrentTick is SetCurrentTime for a frame index.
func (p *Picture) SetCurrentTick(tick int) error {
	return p.SetCurrentTime(p.timeline.TimeOf(tick))
}

// Place computes absolute transforms for every enabled actor without
// painting.
func (p *Picture) Place() {
	for _, a := range p.actors {
		if a.Enabled() {
			a.Place()
		}
	}
}

// Draw paints the background, then each actor in insertion order.
func (p *Picture) Draw(g graphics.Graphics) {
	bounds := geom.Rect{W: p.size.X, H: p.size.Y}
	if p.backgroundColor != nil {
		c := bounds.Corners()
		g.FillPolygon(geom.Polygon{c[0], c[1], c[3], c[2]}, p.backgroundColor)
	}
	if p.background != nil {
		g.DrawImage(p.background, bounds)
	}
	for _, a := range p.actors {
		a.Draw(g)
	}
}

// HitTest returns the topmost drawable under pos and its actor. Actors
// added later paint on top, so they are tested first.
func (p *Picture) HitTest(pos geom.Point) (*Actor, Drawable) {
	for i := len(p.actors) - 1; i >= 0; i-- {
		a := p.actors[i]
		if d := a.HitTest(pos); d != nil {
			return a, d
		}
	}
	return nil, nil
}

// SetKeyframe captures every actor at the current tick.
func (p *Picture) SetKeyframe() error {
	for _, a := range p.actors {
		if err := a.SetKeyframe(); err != nil {
			return err
		}
	}
	p.UpdateObservers()
	return nil
}

// ClearKeyframeAt removes every keyframe at tick, then re-samples the
// current time so actors reflect the remaining keyframes.
func (p *Picture) ClearKeyframeAt(tick int) error {
	for _, a := range p.actors {
		a.ClearKeyframeAt(tick)
	}
	return p.SetCurrentTime(p.timeline.CurrentTime())
}

// AddObserver registers o.
func (p *Picture) AddObserver(o Observer) {
	p.observers = append(p.observers, o)
}

// RemoveObserver unregisters o. o must be comparable, typically a pointer.
func (p *Picture) RemoveObserver(o Observer) {
	if i := slices.Index(p.observers, o); i >= 0 {
		p.observers = slices.Delete(p.observers, i, i+1)
	}
}

// UpdateObservers notifies every observer.
func (p *Picture) UpdateObservers() {
	for _, o := range p.observers {
		o.UpdateObserver()
	}
}
