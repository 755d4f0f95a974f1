package scene

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics"
	"github.com/decker502/puppet/pkg/timeline"
)

const eps = 1e-9

// square returns a poly drawable covering [-half, half] in both axes.
func square(name string, half float64) *PolyDrawable {
	d := NewPolyDrawable(name, color.White)
	d.SetVertices(geom.Polygon{
		geom.Pt(-half, -half), geom.Pt(half, -half),
		geom.Pt(half, half), geom.Pt(-half, half),
	})
	return d
}

// halfOpaque returns a w x h bitmap whose left half is opaque.
func halfOpaque(w, h int) *graphics.Bitmap {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return graphics.NewBitmap("half", img, geom.Point{})
}

func opaque(w, h int) *graphics.Bitmap {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return graphics.NewCenteredBitmap("opaque", img)
}

type countingObserver struct {
	updates int
}

func (o *countingObserver) UpdateObserver() {
	o.updates++
}

func TestRotationPropagatesThroughTree(t *testing.T) {
	root := square("root", 5)
	child := square("child", 5)
	child.SetPosition(geom.Pt(50, 0))
	child.SetRotation(math.Pi / 2)
	if err := root.AddChild(child); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	root.Place(geom.Pt(100, 100), 0)
	if got := child.AbsolutePosition(); !got.Near(geom.Pt(150, 100), eps) {
		t.Errorf("child position = %v, want (150,100)", got)
	}
	if got := child.AbsoluteRotation(); math.Abs(got-math.Pi/2) > eps {
		t.Errorf("child rotation = %v, want π/2", got)
	}

	root.SetRotation(math.Pi / 2)
	root.Place(geom.Pt(100, 100), 0)
	if got := child.AbsolutePosition(); !got.Near(geom.Pt(100, 150), eps) {
		t.Errorf("child position = %v, want (100,150)", got)
	}
	if got := child.AbsoluteRotation(); math.Abs(got-math.Pi) > eps {
		t.Errorf("child rotation = %v, want π", got)
	}
}

func TestActorPlacesRootAtItsPosition(t *testing.T) {
	a := NewActor("bob")
	root := square("body", 5)
	root.SetPosition(geom.Pt(3, 4))
	a.SetRoot(root)
	if err := a.AddDrawable(root); err != nil {
		t.Fatalf("AddDrawable: %v", err)
	}
	a.SetPosition(geom.Pt(100, 100))
	a.Place()

	if got := root.AbsolutePosition(); !got.Near(geom.Pt(103, 104), eps) {
		t.Errorf("root position = %v, want (103,104)", got)
	}
}

func TestAddChildErrors(t *testing.T) {
	a := square("a", 1)
	b := square("b", 1)
	c := square("c", 1)

	if err := a.AddChild(b); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if err := a.AddChild(b); !errors.Is(err, ErrDuplicateChild) {
		t.Errorf("second AddChild = %v, want ErrDuplicateChild", err)
	}
	if err := c.AddChild(b); !errors.Is(err, ErrAlreadyParented) {
		t.Errorf("reparent = %v, want ErrAlreadyParented", err)
	}
	if err := b.AddChild(c); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if err := c.AddChild(a); !errors.Is(err, ErrCycle) {
		t.Errorf("cycle = %v, want ErrCycle", err)
	}
	if err := a.AddChild(a); !errors.Is(err, ErrCycle) {
		t.Errorf("self = %v, want ErrCycle", err)
	}
}

func TestHitTestTopmostWins(t *testing.T) {
	act := NewActor("bob")
	a := square("a", 10)
	b := square("b", 10)
	if err := a.AddChild(b); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	act.SetRoot(a)
	for _, d := range []Drawable{a, b} {
		if err := act.AddDrawable(d); err != nil {
			t.Fatalf("AddDrawable: %v", err)
		}
	}
	act.Place()

	if got := act.HitTest(geom.Pt(1, 1)); got != Drawable(b) {
		t.Errorf("HitTest = %v, want b", got)
	}
	if got := act.HitTest(geom.Pt(50, 50)); got != nil {
		t.Errorf("HitTest outside = %v, want nil", got)
	}

	act.SetClickable(false)
	if got := act.HitTest(geom.Pt(1, 1)); got != nil {
		t.Errorf("HitTest unclickable = %v, want nil", got)
	}
}

func TestDisabledActorDrawsAndHitsNothing(t *testing.T) {
	act := NewActor("bob")
	root := square("body", 10)
	act.SetRoot(root)
	if err := act.AddDrawable(root); err != nil {
		t.Fatalf("AddDrawable: %v", err)
	}
	act.SetEnabled(false)

	rec := graphics.NewRecorder()
	act.Draw(rec)
	if len(rec.Ops) != 0 {
		t.Errorf("disabled actor recorded %d ops", len(rec.Ops))
	}
	act.Place()
	if got := act.HitTest(geom.Pt(0, 0)); got != nil {
		t.Errorf("HitTest = %v, want nil", got)
	}
}

func TestDrawFollowsFlatList(t *testing.T) {
	act := NewActor("bob")
	body := square("body", 10)
	arm := square("arm", 2)
	if err := body.AddChild(arm); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	act.SetRoot(body)
	// the child is painted first, behind its parent
	for _, d := range []Drawable{arm, body} {
		if err := act.AddDrawable(d); err != nil {
			t.Fatalf("AddDrawable: %v", err)
		}
	}
	rec := graphics.NewRecorder()
	act.Draw(rec)

	if len(rec.Ops) != 2 {
		t.Fatalf("got %d ops, want 2", len(rec.Ops))
	}
	if got := rec.Ops[0].Polygon[0]; !got.Near(geom.Pt(-2, -2), eps) {
		t.Errorf("first op starts at %v, want the arm", got)
	}
	if got := act.HitTest(geom.Pt(0, 0)); got != Drawable(body) {
		t.Errorf("HitTest = %v, want body on top", got)
	}
}

func TestKeyframeFanOut(t *testing.T) {
	pic := NewPicture(timeline.NewTimeline(20, 10))
	act := NewActor("bob")
	root := square("body", 5)
	act.SetRoot(root)
	if err := act.AddDrawable(root); err != nil {
		t.Fatalf("AddDrawable: %v", err)
	}
	if err := pic.AddActor(act); err != nil {
		t.Fatalf("AddActor: %v", err)
	}

	act.SetPosition(geom.Pt(10, 0))
	if err := pic.SetKeyframe(); err != nil {
		t.Fatalf("SetKeyframe: %v", err)
	}
	if err := pic.SetCurrentTick(20); err != nil {
		t.Fatalf("SetCurrentTick: %v", err)
	}
	act.SetPosition(geom.Pt(50, 0))
	if err := pic.SetKeyframe(); err != nil {
		t.Fatalf("SetKeyframe: %v", err)
	}

	if err := pic.SetCurrentTime(0.5); err != nil {
		t.Fatalf("SetCurrentTime: %v", err)
	}
	rec := graphics.NewRecorder()
	pic.Draw(rec)
	if got := act.Position(); !got.Near(geom.Pt(30, 0), eps) {
		t.Errorf("position at 0.5s = %v, want (30,0)", got)
	}
	if got := root.AbsolutePosition(); !got.Near(geom.Pt(30, 0), eps) {
		t.Errorf("root drawn at %v, want (30,0)", got)
	}

	if err := pic.ClearKeyframeAt(20); err != nil {
		t.Fatalf("ClearKeyframeAt: %v", err)
	}
	if got := act.Position(); !got.Near(geom.Pt(10, 0), eps) {
		t.Errorf("position after clear = %v, want (10,0)", got)
	}
}

func TestSetThenGetKeyframeRestores(t *testing.T) {
	pic := NewPicture(nil)
	act := NewActor("bob")
	body := square("body", 5)
	arm := square("arm", 2)
	if err := body.AddChild(arm); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	act.SetRoot(body)
	for _, d := range []Drawable{body, arm} {
		if err := act.AddDrawable(d); err != nil {
			t.Fatalf("AddDrawable: %v", err)
		}
	}
	if err := pic.AddActor(act); err != nil {
		t.Fatalf("AddActor: %v", err)
	}
	if err := pic.SetCurrentTick(5); err != nil {
		t.Fatalf("SetCurrentTick: %v", err)
	}

	arm.SetPosition(geom.Pt(12, 3))
	arm.SetRotation(0.75)
	if err := body.SetKeyframe(); err != nil {
		t.Fatalf("SetKeyframe: %v", err)
	}
	arm.SetPosition(geom.Pt(-1, -1))
	arm.SetRotation(2)
	if err := body.GetKeyframe(); err != nil {
		t.Fatalf("GetKeyframe: %v", err)
	}

	if got := arm.Position(); !got.Near(geom.Pt(12, 3), eps) {
		t.Errorf("arm position = %v, want (12,3)", got)
	}
	if got := arm.Rotation(); math.Abs(got-0.75) > eps {
		t.Errorf("arm rotation = %v, want 0.75", got)
	}
	if _, ok := arm.RotationChannel().KeyframeAt(5); !ok {
		t.Error("no rotation keyframe at tick 5")
	}
}

func TestKeyframeWithoutPicture(t *testing.T) {
	act := NewActor("bob")
	if err := act.SetKeyframe(); !errors.Is(err, ErrNoPicture) {
		t.Errorf("SetKeyframe = %v, want ErrNoPicture", err)
	}
	if err := act.GetKeyframe(); !errors.Is(err, ErrNoPicture) {
		t.Errorf("GetKeyframe = %v, want ErrNoPicture", err)
	}

	d := square("loose", 1)
	if err := d.SetKeyframe(); !errors.Is(err, timeline.ErrNotAttached) {
		t.Errorf("drawable SetKeyframe = %v, want ErrNotAttached", err)
	}
}

func TestBindingErrors(t *testing.T) {
	a := NewActor("a")
	b := NewActor("b")
	d := square("d", 1)

	if err := a.AddDrawable(d); err != nil {
		t.Fatalf("AddDrawable: %v", err)
	}
	if err := a.AddDrawable(d); !errors.Is(err, ErrDuplicateDrawable) {
		t.Errorf("duplicate = %v, want ErrDuplicateDrawable", err)
	}
	if err := b.AddDrawable(d); !errors.Is(err, ErrActorBound) {
		t.Errorf("second actor = %v, want ErrActorBound", err)
	}
	if got := d.PositionChannel().Name(); got != "a:d:position" {
		t.Errorf("channel name = %q", got)
	}

	p1 := NewPicture(nil)
	p2 := NewPicture(nil)
	if err := p1.AddActor(a); err != nil {
		t.Fatalf("AddActor: %v", err)
	}
	if err := p2.AddActor(a); !errors.Is(err, ErrPictureBound) {
		t.Errorf("second picture = %v, want ErrPictureBound", err)
	}
	if err := d.SetTimeline(p2.Timeline()); !errors.Is(err, ErrTimelineBound) {
		t.Errorf("second timeline = %v, want ErrTimelineBound", err)
	}
	if err := d.SetTimeline(p1.Timeline()); err != nil {
		t.Errorf("same timeline again = %v", err)
	}
}

func TestFailedBindingLeavesNoState(t *testing.T) {
	other := NewPicture(nil)
	a := NewActor("a")
	free := square("free", 1)
	taken := square("taken", 1)
	if err := taken.SetTimeline(other.Timeline()); err != nil {
		t.Fatalf("SetTimeline: %v", err)
	}
	for _, d := range []Drawable{free, taken} {
		if err := a.AddDrawable(d); err != nil {
			t.Fatalf("AddDrawable: %v", err)
		}
	}

	pic := NewPicture(nil)
	if err := pic.AddActor(a); !errors.Is(err, ErrTimelineBound) {
		t.Fatalf("AddActor = %v, want ErrTimelineBound", err)
	}
	if got := len(pic.Timeline().Channels()); got != 0 {
		t.Errorf("failed AddActor left %d channels on the timeline", got)
	}
	if a.Picture() != nil || len(pic.Actors()) != 0 {
		t.Error("failed AddActor bound the actor")
	}
	if free.PositionChannel().Timeline() != nil {
		t.Error("drawable before the failing one joined the timeline")
	}

	// a late drawable already on another timeline is rejected before binding
	b := NewActor("b")
	if err := pic.AddActor(b); err != nil {
		t.Fatalf("AddActor: %v", err)
	}
	late := square("late", 1)
	if err := late.SetTimeline(other.Timeline()); err != nil {
		t.Fatalf("SetTimeline: %v", err)
	}
	if err := b.AddDrawable(late); !errors.Is(err, ErrTimelineBound) {
		t.Fatalf("AddDrawable = %v, want ErrTimelineBound", err)
	}
	if late.Actor() != nil || len(b.Drawables()) != 0 {
		t.Error("failed AddDrawable bound the drawable")
	}
}

func TestLateDrawableJoinsTimeline(t *testing.T) {
	pic := NewPicture(nil)
	act := NewActor("bob")
	if err := pic.AddActor(act); err != nil {
		t.Fatalf("AddActor: %v", err)
	}
	d := square("hat", 1)
	if err := act.AddDrawable(d); err != nil {
		t.Fatalf("AddDrawable: %v", err)
	}
	if !pic.Timeline().HasChannel(d.PositionChannel()) {
		t.Error("late drawable's channel not registered")
	}
}

func TestValidate(t *testing.T) {
	act := NewActor("bob")
	if err := act.Validate(); !errors.Is(err, ErrNoRoot) {
		t.Errorf("no root = %v, want ErrNoRoot", err)
	}

	body := square("body", 5)
	arm := square("arm", 1)
	if err := body.AddChild(arm); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	act.SetRoot(body)
	if err := act.AddDrawable(body); err != nil {
		t.Fatalf("AddDrawable: %v", err)
	}
	if err := act.Validate(); !errors.Is(err, ErrDrawOrder) {
		t.Errorf("missing arm = %v, want ErrDrawOrder", err)
	}
	if err := act.AddDrawable(arm); err != nil {
		t.Fatalf("AddDrawable: %v", err)
	}
	if err := act.Validate(); err != nil {
		t.Errorf("Validate = %v", err)
	}

	stray := square("stray", 1)
	if err := act.AddDrawable(stray); err != nil {
		t.Fatalf("AddDrawable: %v", err)
	}
	if err := act.Validate(); !errors.Is(err, ErrDrawOrder) {
		t.Errorf("stray = %v, want ErrDrawOrder", err)
	}
}

func TestKeepUpright(t *testing.T) {
	body := square("body", 5)
	head := square("head", 2)
	head.SetPosition(geom.Pt(0, -20))
	if err := body.AddChild(head); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	body.SetRotation(math.Pi / 2)

	body.Place(geom.Point{}, 0)
	if got := head.AbsoluteRotation(); math.Abs(got-math.Pi/2) > eps {
		t.Errorf("tilted head rotation = %v, want π/2", got)
	}
	tilted := head.AbsolutePosition()

	body.KeepUpright(head, true)
	body.Place(geom.Point{}, 0)
	if got := head.AbsoluteRotation(); math.Abs(got) > eps {
		t.Errorf("upright head rotation = %v, want 0", got)
	}
	if got := head.AbsolutePosition(); !got.Near(tilted, eps) {
		t.Errorf("upright head at %v, want %v", got, tilted)
	}
	if !body.IsUpright(head) {
		t.Error("IsUpright = false")
	}
}

func TestMoveFollowsPointer(t *testing.T) {
	body := square("body", 5)
	arm := square("arm", 1)
	if err := body.AddChild(arm); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	body.SetRotation(math.Pi / 2)
	body.Place(geom.Point{}, 0)

	if !body.Movable() || arm.Movable() {
		t.Fatalf("default movable: body %v arm %v", body.Movable(), arm.Movable())
	}
	before := arm.AbsolutePosition()
	arm.Move(geom.Pt(0, 10))
	body.Place(geom.Point{}, 0)
	if got := arm.AbsolutePosition().Sub(before); !got.Near(geom.Pt(0, 10), eps) {
		t.Errorf("arm moved by %v, want (0,10)", got)
	}

	arm.SetMovable(true)
	if !arm.Movable() {
		t.Error("SetMovable(true) ignored")
	}
}

func TestDragRotate(t *testing.T) {
	d := square("arm", 1)
	d.Place(geom.Point{}, 0)

	DragRotate(d, geom.Pt(10, 0), geom.Pt(0, 10))
	if got := d.Rotation(); math.Abs(got-math.Pi/2) > eps {
		t.Errorf("rotation = %v, want π/2", got)
	}

	d.SetRotation(0)
	from, to := geom.Pt(-10, 1), geom.Pt(-10, -1)
	DragRotate(d, from, to)
	want := to.Angle() - from.Angle() + 2*math.Pi
	if got := d.Rotation(); math.Abs(got-want) > eps {
		t.Errorf("rotation across ±π = %v, want %v", got, want)
	}
}

func TestImageDrawableHitTestUsesAlpha(t *testing.T) {
	act := NewActor("bob")
	d := NewImageDrawable("card", halfOpaque(10, 10))
	act.SetRoot(d)
	if err := act.AddDrawable(d); err != nil {
		t.Fatalf("AddDrawable: %v", err)
	}
	act.SetPosition(geom.Pt(100, 100))
	act.Place()

	if got := act.HitTest(geom.Pt(102, 105)); got != Drawable(d) {
		t.Errorf("opaque pixel hit %v, want card", got)
	}
	if got := act.HitTest(geom.Pt(107, 105)); got != nil {
		t.Errorf("transparent pixel hit %v", got)
	}

	d.SetRotation(math.Pi)
	act.Place()
	if !d.HitTest(geom.Pt(98, 95)) {
		t.Error("rotated opaque pixel missed")
	}
	if d.HitTest(geom.Pt(102, 105)) {
		t.Error("rotated point outside image hit")
	}
}

func TestImageDrawableWithoutBitmap(t *testing.T) {
	d := NewImageDrawable("missing", nil)
	d.Place(geom.Point{}, 0)
	rec := graphics.NewRecorder()
	d.Draw(rec)
	if len(rec.Ops) != 0 {
		t.Errorf("recorded %d ops", len(rec.Ops))
	}
	if d.HitTest(geom.Point{}) {
		t.Error("missing bitmap hit")
	}
}

func TestImageDrawableDrawsAboutAnchor(t *testing.T) {
	d := NewImageDrawable("card", opaque(10, 20))
	d.Place(geom.Pt(50, 50), 0)
	rec := graphics.NewRecorder()
	d.Draw(rec)

	if len(rec.Ops) != 1 || rec.Ops[0].Kind != graphics.OpImage {
		t.Fatalf("ops = %+v", rec.Ops)
	}
	if got := rec.Ops[0].Quad[0]; !got.Near(geom.Pt(45, 40), eps) {
		t.Errorf("top-left = %v, want (45,40)", got)
	}

	d.SetAnchor(geom.Point{})
	rec.Reset()
	d.Draw(rec)
	if got := rec.Ops[0].Quad[0]; !got.Near(geom.Pt(50, 50), eps) {
		t.Errorf("top-left with explicit anchor = %v, want (50,50)", got)
	}
}

func TestPolyDrawableHitTestRotated(t *testing.T) {
	d := NewPolyDrawable("bar", color.Black)
	for _, p := range []geom.Point{{X: 0, Y: -1}, {X: 20, Y: -1}, {X: 20, Y: 1}, {X: 0, Y: 1}} {
		d.AddPoint(p)
	}
	d.SetRotation(math.Pi / 2)
	d.Place(geom.Pt(10, 10), 0)

	if !d.HitTest(geom.Pt(10, 25)) {
		t.Error("point along rotated bar missed")
	}
	if d.HitTest(geom.Pt(25, 10)) {
		t.Error("point along unrotated axis hit")
	}
}

func TestHeadDrawableFeatures(t *testing.T) {
	h := NewHeadDrawable("head", opaque(20, 20))
	h.AddEye(Eye{Center: geom.Pt(-4, -2), Radius: geom.Pt(2, 1), Color: color.Black})
	h.AddBrow(Brow{From: geom.Pt(-6, -5), To: geom.Pt(-2, -5), Thickness: 1, Color: color.Black})
	h.AddBrow(Brow{From: geom.Pt(1, 1), To: geom.Pt(1, 1), Thickness: 1, Color: color.Black})
	h.Place(geom.Pt(100, 100), 0)

	rec := graphics.NewRecorder()
	h.Draw(rec)
	if len(rec.Ops) != 3 {
		t.Fatalf("got %d ops, want image, eye, brow", len(rec.Ops))
	}
	if rec.Ops[0].Kind != graphics.OpImage || rec.Ops[1].Kind != graphics.OpPolygon {
		t.Errorf("op kinds = %v, %v", rec.Ops[0].Kind, rec.Ops[1].Kind)
	}
	if got := rec.Ops[1].Polygon.Bounds(); !got.Contains(geom.Pt(96, 98)) {
		t.Errorf("eye bounds %v miss its center", got)
	}

	bald := NewHeadDrawable("none", nil)
	bald.AddEye(Eye{Radius: geom.Pt(1, 1), Color: color.Black})
	rec.Reset()
	bald.Draw(rec)
	if len(rec.Ops) != 0 {
		t.Errorf("head without bitmap recorded %d ops", len(rec.Ops))
	}
}

func TestPictureObserversAndHitTest(t *testing.T) {
	pic := NewPicture(nil)
	obs := &countingObserver{}
	pic.AddObserver(obs)

	back := NewActor("back")
	front := NewActor("front")
	for _, a := range []*Actor{back, front} {
		root := square(a.Name()+"-body", 10)
		a.SetRoot(root)
		if err := a.AddDrawable(root); err != nil {
			t.Fatalf("AddDrawable: %v", err)
		}
		if err := pic.AddActor(a); err != nil {
			t.Fatalf("AddActor: %v", err)
		}
	}
	pic.Place()

	a, d := pic.HitTest(geom.Pt(0, 0))
	if a != front || d == nil {
		t.Errorf("HitTest = %v, %v, want front actor", a, d)
	}
	front.SetEnabled(false)
	if a, _ := pic.HitTest(geom.Pt(0, 0)); a != back {
		t.Errorf("HitTest with front disabled = %v, want back", a)
	}

	if err := pic.SetCurrentTime(1); err != nil {
		t.Fatalf("SetCurrentTime: %v", err)
	}
	if err := pic.SetKeyframe(); err != nil {
		t.Fatalf("SetKeyframe: %v", err)
	}
	if obs.updates != 2 {
		t.Errorf("updates = %d, want 2", obs.updates)
	}
	pic.RemoveObserver(obs)
	pic.UpdateObservers()
	if obs.updates != 2 {
		t.Errorf("removed observer still notified")
	}
}

func TestPictureDrawsBackgroundFirst(t *testing.T) {
	pic := NewPicture(nil)
	pic.SetSize(geom.Pt(40, 30))
	pic.SetBackgroundColor(color.White)
	pic.SetBackground(opaque(4, 3))

	rec := graphics.NewRecorder()
	pic.Draw(rec)
	if len(rec.Ops) != 2 {
		t.Fatalf("got %d ops, want 2", len(rec.Ops))
	}
	if rec.Ops[0].Kind != graphics.OpPolygon || rec.Ops[1].Kind != graphics.OpImage {
		t.Errorf("op kinds = %v, %v", rec.Ops[0].Kind, rec.Ops[1].Kind)
	}
	if got := rec.Ops[1].Quad[3]; !got.Near(geom.Pt(40, 30), eps) {
		t.Errorf("background bottom-right = %v, want (40,30)", got)
	}
}
