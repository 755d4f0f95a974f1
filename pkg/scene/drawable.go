// Package scene is the actor/drawable scene graph.
//
// Ownership flows Picture -> Actor -> root Drawable -> children. Links in
// the other direction (drawable to parent, drawable to actor, actor to
// picture) are back references only.
//
// The drawable tree decides placement: Place composes each node's local
// position and rotation with its parent's absolute transform. Painting and
// hit testing follow a separate flat list kept by the Actor, so a figure can
// paint its back arm, body and front arm in that order whatever the tree
// looks like.
package scene

import (
	"fmt"
	"math"
	"slices"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics"
	"github.com/decker502/puppet/pkg/timeline"
)

// Drawable is one node of an actor's scene graph. Concrete drawables embed
// Node, which supplies everything except Draw and HitTest.
type Drawable interface {
	Name() string

	Position() geom.Point
	SetPosition(p geom.Point)
	Rotation() float64
	SetRotation(r float64)

	// AbsolutePosition and AbsoluteRotation are the values computed by the
	// last Place.
	AbsolutePosition() geom.Point
	AbsoluteRotation() float64

	Parent() Drawable
	Children() []Drawable
	AddChild(child Drawable) error
	Actor() *Actor

	// Place computes the absolute transform from the parent's absolute
	// position and rotation, then places every child.
	Place(parentPosition geom.Point, parentRotation float64)
	// Draw paints the drawable using its absolute transform.
	Draw(g graphics.Graphics)
	// HitTest reports whether p (picture space) is on the drawable.
	HitTest(p geom.Point) bool

	Movable() bool
	Move(delta geom.Point)

	SetTimeline(tl *timeline.Timeline) error
	PositionChannel() *timeline.Channel[geom.Point]
	RotationChannel() *timeline.Channel[float64]

	// CaptureKeyframe and RestoreKeyframe act on this node only.
	CaptureKeyframe() error
	RestoreKeyframe() error
	// DeleteKeyframe removes this node's keyframes at tick.
	DeleteKeyframe(tick int)
	// SetKeyframe and GetKeyframe act on this node and its subtree.
	SetKeyframe() error
	GetKeyframe() error

	base() *Node
}

// Node carries the state shared by every drawable: local and absolute
// transforms, tree links and the position/rotation channels.
type Node struct {
	self Drawable
	name string

	position geom.Point
	rotation float64

	placedPosition geom.Point
	placedRotation float64

	parent   Drawable
	children []Drawable
	upright  map[Drawable]bool
	actor    *Actor

	movable    bool
	movableSet bool

	positionChannel *timeline.Channel[geom.Point]
	rotationChannel *timeline.Channel[float64]
}

func (n *Node) init(self Drawable, name string) {
	n.self = self
	n.name = name
	n.positionChannel = timeline.NewPointChannel(name + ":position")
	n.rotationChannel = timeline.NewAngleChannel(name + ":rotation")
}

func (n *Node) base() *Node {
	return n
}

// Name returns the drawable name.
func (n *Node) Name() string {
	return n.name
}

// Position returns the position relative to the parent.
func (n *Node) Position() geom.Point {
	return n.position
}

// SetPosition sets the position relative to the parent.
func (n *Node) SetPosition(p geom.Point) {
	n.position = p
}

// Rotation returns the rotation relative to the parent, in radians.
func (n *Node) Rotation() float64 {
	return n.rotation
}

// SetRotation sets the rotation relative to the parent.
func (n *Node) SetRotation(r float64) {
	n.rotation = r
}

// AbsolutePosition returns the picture-space position from the last Place.
func (n *Node) AbsolutePosition() geom.Point {
	return n.placedPosition
}

// AbsoluteRotation returns the picture-space rotation from the last Place.
func (n *Node) AbsoluteRotation() float64 {
	return n.placedRotation
}

// Parent returns the parent drawable, or nil for a root.
func (n *Node) Parent() Drawable {
	return n.parent
}

// Children returns the children in the order they were added.
func (n *Node) Children() []Drawable {
	return slices.Clone(n.children)
}

// Actor returns the owning actor, or nil before the drawable is added to one.
func (n *Node) Actor() *Actor {
	return n.actor
}

// AddChild appends child and sets its parent link.
func (n *Node) AddChild(child Drawable) error {
	c := child.base()
	if c.parent == n.self {
		return fmt.Errorf("add %q to %q: %w", c.name, n.name, ErrDuplicateChild)
	}
	if c.parent != nil {
		return fmt.Errorf("add %q to %q: %w", c.name, n.name, ErrAlreadyParented)
	}
	for a := n.self; a != nil; a = a.Parent() {
		if a == child {
			return fmt.Errorf("add %q to %q: %w", c.name, n.name, ErrCycle)
		}
	}
	c.parent = n.self
	n.children = append(n.children, child)
	return nil
}

// KeepUpright stops this node's rotation from turning child. The child's
// attachment point still swings with this node; only its orientation is
// held, as a head stays level on a tilting body. child must already be a
// child of this node.
func (n *Node) KeepUpright(child Drawable, upright bool) {
	if !slices.Contains(n.children, child) {
		return
	}
	if n.upright == nil {
		n.upright = make(map[Drawable]bool)
	}
	if upright {
		n.upright[child] = true
	} else {
		delete(n.upright, child)
	}
}

// IsUpright reports whether KeepUpright is set for child.
func (n *Node) IsUpright(child Drawable) bool {
	return n.upright[child]
}

// Place computes this node's absolute transform and places its children.
//
//	absolute position = parent position + rotate(local position, parent rotation)
//	absolute rotation = local rotation + parent rotation
func (n *Node) Place(parentPosition geom.Point, parentRotation float64) {
	n.placedPosition = parentPosition.Add(n.position.Rotate(parentRotation))
	n.placedRotation = n.rotation + parentRotation

	for _, child := range n.children {
		if !n.upright[child] {
			child.Place(n.placedPosition, n.placedRotation)
			continue
		}
		// Shift the origin so the child lands on its rotated attachment
		// point while receiving no rotation.
		local := child.Position()
		origin := n.placedPosition.Add(local.Rotate(n.placedRotation)).Sub(local)
		child.Place(origin, 0)
	}
}

// Movable reports whether dragging moves this drawable. Unless set
// explicitly, only roots are movable; other drawables rotate when dragged.
func (n *Node) Movable() bool {
	if n.movableSet {
		return n.movable
	}
	return n.parent == nil
}

// SetMovable overrides the default returned by Movable.
func (n *Node) SetMovable(movable bool) {
	n.movable = movable
	n.movableSet = true
}

// Move shifts the drawable by a picture-space delta. The delta is rotated
// into the parent's frame so the drawable follows the pointer.
func (n *Node) Move(delta geom.Point) {
	if n.parent != nil {
		delta = delta.Rotate(-n.parent.AbsoluteRotation())
	}
	n.position = n.position.Add(delta)
}

// SetTimeline registers the position and rotation channels with tl.
// Calling it again with the same timeline is a no-op.
func (n *Node) SetTimeline(tl *timeline.Timeline) error {
	if err := n.checkTimeline(tl); err != nil {
		return err
	}
	if err := tl.AddChannel(n.positionChannel); err != nil {
		return fmt.Errorf("set timeline on %q: %w", n.name, err)
	}
	if err := tl.AddChannel(n.rotationChannel); err != nil {
		return fmt.Errorf("set timeline on %q: %w", n.name, err)
	}
	return nil
}

// PositionChannel returns the channel animating Position.
func (n *Node) PositionChannel() *timeline.Channel[geom.Point] {
	return n.positionChannel
}

// RotationChannel returns the channel animating Rotation.
func (n *Node) RotationChannel() *timeline.Channel[float64] {
	return n.rotationChannel
}

// CaptureKeyframe stores the current position and rotation at the
// timeline's current tick.
func (n *Node) CaptureKeyframe() error {
	if err := n.positionChannel.SetKeyframeNow(n.position); err != nil {
		return err
	}
	return n.rotationChannel.SetKeyframeNow(n.rotation)
}

// RestoreKeyframe copies the sampled channel values back into position and
// rotation. A channel without keyframes leaves its property untouched.
func (n *Node) RestoreKeyframe() error {
	p, ok, err := n.positionChannel.Current()
	if err != nil {
		return err
	}
	if ok {
		n.position = p
	}
	r, ok, err := n.rotationChannel.Current()
	if err != nil {
		return err
	}
	if ok {
		n.rotation = r
	}
	return nil
}

// DeleteKeyframe removes the keyframes at tick from both channels.
func (n *Node) DeleteKeyframe(tick int) {
	n.positionChannel.DeleteKeyframe(tick)
	n.rotationChannel.DeleteKeyframe(tick)
}

// SetKeyframe captures this node and then its subtree.
func (n *Node) SetKeyframe() error {
	if err := n.CaptureKeyframe(); err != nil {
		return err
	}
	for _, child := range n.children {
		if err := child.SetKeyframe(); err != nil {
			return err
		}
	}
	return nil
}

// GetKeyframe restores this node and then its subtree.
func (n *Node) GetKeyframe() error {
	if err := n.RestoreKeyframe(); err != nil {
		return err
	}
	for _, child := range n.children {
		if err := child.GetKeyframe(); err != nil {
			return err
		}
	}
	return nil
}

// checkTimeline fails when either channel is registered with a timeline
// other than tl. It changes nothing.
func (n *Node) checkTimeline(tl *timeline.Timeline) error {
	for _, cur := range []*timeline.Timeline{n.positionChannel.Timeline(), n.rotationChannel.Timeline()} {
		if cur != nil && cur != tl {
			return fmt.Errorf("set timeline on %q: %w", n.name, ErrTimelineBound)
		}
	}
	return nil
}

// checkActor fails when the node belongs to an actor other than a.
func (n *Node) checkActor(a *Actor) error {
	if n.actor != nil && n.actor != a {
		return fmt.Errorf("bind %q to actor %q: %w", n.name, a.Name(), ErrActorBound)
	}
	return nil
}

// bindActor records the owning actor. Binding the same actor again is a
// no-op; binding a different one fails.
func (n *Node) bindActor(a *Actor) error {
	if err := n.checkActor(a); err != nil {
		return err
	}
	n.actor = a
	n.positionChannel.SetName(a.Name() + ":" + n.name + ":position")
	n.rotationChannel.SetName(a.Name() + ":" + n.name + ":rotation")
	return nil
}

// toLocal maps a picture-space point into this node's placed frame.
func (n *Node) toLocal(p geom.Point) geom.Point {
	return p.Sub(n.placedPosition).Rotate(-n.placedRotation)
}

// ToPicture maps a point in this node's placed frame to picture space.
func (n *Node) ToPicture(local geom.Point) geom.Point {
	return n.placedPosition.Add(local.Rotate(n.placedRotation))
}

// DragRotate turns d by the angle swept from from to to around d's
// absolute position. It is how non-movable drawables are edited.
func DragRotate(d Drawable, from, to geom.Point) {
	center := d.AbsolutePosition()
	delta := to.Sub(center).Angle() - from.Sub(center).Angle()
	// keep the step on the short side so crossing ±π does not flip the limb
	if delta > math.Pi {
		delta -= 2 * math.Pi
	} else if delta < -math.Pi {
		delta += 2 * math.Pi
	}
	d.SetRotation(d.Rotation() + delta)
}
