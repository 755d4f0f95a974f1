package scene

import (
	"fmt"
	"slices"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics"
	"github.com/decker502/puppet/pkg/timeline"
)

// Actor is a figure: a root drawable placed at the actor's position, plus
// the flat list that fixes the order drawables are painted and hit.
type Actor struct {
	name      string
	enabled   bool
	clickable bool
	position  geom.Point

	root      Drawable
	drawables []Drawable

	positionChannel *timeline.Channel[geom.Point]
	picture         *Picture
}

// NewActor creates an enabled, clickable actor with no drawables.
func NewActor(name string) *Actor {
	return &Actor{
		name:            name,
		enabled:         true,
		clickable:       true,
		positionChannel: timeline.NewPointChannel(name + ":position"),
	}
}

// Name returns the actor name.
func (a *Actor) Name() string {
	return a.name
}

// Enabled reports whether the actor is drawn and hit-tested.
func (a *Actor) Enabled() bool {
	return a.enabled
}

// SetEnabled shows or hides the actor.
func (a *Actor) SetEnabled(enabled bool) {
	a.enabled = enabled
}

// Clickable reports whether HitTest can select the actor's drawables.
func (a *Actor) Clickable() bool {
	return a.clickable
}

// SetClickable sets whether the actor can be hit.
func (a *Actor) SetClickable(clickable bool) {
	a.clickable = clickable
}

// Position returns the actor position in picture space.
func (a *Actor) Position() geom.Point {
	return a.position
}

// SetPosition moves the actor.
func (a *Actor) SetPosition(p geom.Point) {
	a.position = p
}

// Root returns the root drawable.
func (a *Actor) Root() Drawable {
	return a.root
}

// SetRoot nominates the root drawable. The root is always placed with
// rotation zero at the actor's position.
func (a *Actor) SetRoot(root Drawable) {
	a.root = root
}

// AddDrawable appends d to the draw order and binds it to the actor. The
// order given here is the painting order, back to front.
func (a *Actor) AddDrawable(d Drawable) error {
	if slices.Contains(a.drawables, d) {
		return fmt.Errorf("actor %q: add %q: %w", a.name, d.Name(), ErrDuplicateDrawable)
	}
	// check everything before binding so a failure leaves d untouched
	if err := d.base().checkActor(a); err != nil {
		return err
	}
	if a.picture != nil {
		if err := d.base().checkTimeline(a.picture.Timeline()); err != nil {
			return fmt.Errorf("actor %q: %w", a.name, err)
		}
	}
	if err := d.base().bindActor(a); err != nil {
		return err
	}
	if a.picture != nil {
		// late addition: join the timeline the other drawables already use
		if err := d.SetTimeline(a.picture.Timeline()); err != nil {
			return err
		}
	}
	a.drawables = append(a.drawables, d)
	return nil
}

// Drawables returns the draw order.
func (a *Actor) Drawables() []Drawable {
	return slices.Clone(a.drawables)
}

// Drawable finds a drawable by name.
func (a *Actor) Drawable(name string) (Drawable, bool) {
	for _, d := range a.drawables {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// PositionChannel returns the channel animating the actor position.
func (a *Actor) PositionChannel() *timeline.Channel[geom.Point] {
	return a.positionChannel
}

// Picture returns the picture the actor belongs to, or nil.
func (a *Actor) Picture() *Picture {
	return a.picture
}

// SetPicture links the actor to p and registers the actor's position
// channel and every drawable's channels with p's timeline. It may be
// called once; Picture.AddActor calls it.
func (a *Actor) SetPicture(p *Picture) error {
	if a.picture != nil {
		return fmt.Errorf("actor %q: %w", a.name, ErrPictureBound)
	}
	tl := p.Timeline()
	// nothing is registered unless every channel can join tl
	if cur := a.positionChannel.Timeline(); cur != nil && cur != tl {
		return fmt.Errorf("actor %q: %w", a.name, ErrTimelineBound)
	}
	for _, d := range a.drawables {
		if err := d.base().checkTimeline(tl); err != nil {
			return fmt.Errorf("actor %q: %w", a.name, err)
		}
	}
	if err := tl.AddChannel(a.positionChannel); err != nil {
		return fmt.Errorf("actor %q: %w", a.name, err)
	}
	for _, d := range a.drawables {
		if err := d.SetTimeline(tl); err != nil {
			return fmt.Errorf("actor %q: %w", a.name, err)
		}
	}
	a.picture = p
	return nil
}

// Validate checks that the draw order holds every drawable reachable from
// the root exactly once and nothing else.
func (a *Actor) Validate() error {
	if a.root == nil {
		return fmt.Errorf("actor %q: %w", a.name, ErrNoRoot)
	}
	var tree []Drawable
	var walk func(d Drawable)
	walk = func(d Drawable) {
		tree = append(tree, d)
		for _, c := range d.Children() {
			walk(c)
		}
	}
	walk(a.root)

	for _, d := range a.drawables {
		if !slices.Contains(tree, d) {
			return fmt.Errorf("actor %q: %q is not in the tree: %w", a.name, d.Name(), ErrDrawOrder)
		}
	}
	for _, d := range tree {
		if !slices.Contains(a.drawables, d) {
			return fmt.Errorf("actor %q: %q is never drawn: %w", a.name, d.Name(), ErrDrawOrder)
		}
	}
	return nil
}

// Place computes absolute transforms for the whole tree. Draw calls it;
// editors call it directly before hit testing a picture that has not been
// drawn since the last change.
func (a *Actor) Place() {
	if a.root != nil {
		a.root.Place(a.position, 0)
	}
}

// Draw places the tree, then paints the draw order. A disabled actor draws
// nothing.
func (a *Actor) Draw(g graphics.Graphics) {
	if !a.enabled {
		return
	}
	// placement follows the tree, painting follows the flat list
	a.Place()
	for _, d := range a.drawables {
		d.Draw(g)
	}
}

// HitTest returns the topmost drawable under p, or nil. The draw order is
// walked backwards because the last drawable painted is on top.
func (a *Actor) HitTest(p geom.Point) Drawable {
	if !a.enabled || !a.clickable {
		return nil
	}
	for i := len(a.drawables) - 1; i >= 0; i-- {
		if d := a.drawables[i]; d.HitTest(p) {
			return d
		}
	}
	return nil
}

// SetKeyframe captures the actor position and every drawable at the
// timeline's current tick.
func (a *Actor) SetKeyframe() error {
	if a.picture == nil {
		return fmt.Errorf("actor %q: %w", a.name, ErrNoPicture)
	}
	if err := a.positionChannel.SetKeyframeNow(a.position); err != nil {
		return err
	}
	for _, d := range a.drawables {
		if err := d.CaptureKeyframe(); err != nil {
			return err
		}
	}
	return nil
}

// GetKeyframe restores the actor position and every drawable from their
// channels. Properties whose channel has no keyframes keep their values.
func (a *Actor) GetKeyframe() error {
	if a.picture == nil {
		return fmt.Errorf("actor %q: %w", a.name, ErrNoPicture)
	}
	p, ok, err := a.positionChannel.Current()
	if err != nil {
		return err
	}
	if ok {
		a.position = p
	}
	for _, d := range a.drawables {
		if err := d.RestoreKeyframe(); err != nil {
			return err
		}
	}
	return nil
}

// ClearKeyframeAt deletes every keyframe the actor and its drawables have
// at tick.
func (a *Actor) ClearKeyframeAt(tick int) {
	a.positionChannel.DeleteKeyframe(tick)
	for _, d := range a.drawables {
		d.DeleteKeyframe(tick)
	}
}
