package scene

import (
	"image/color"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics"
)

// ellipseSegments is the vertex count used to approximate eyes.
const ellipseSegments = 24

// Eye is an ellipse painted on a head. Center and Radius are in pixels
// relative to the head's anchor.
type Eye struct {
	Center geom.Point
	Radius geom.Point
	Color  color.Color
}

// Brow is a stroke from From to To, Thickness pixels wide, relative to the
// head's anchor.
type Brow struct {
	From      geom.Point
	To        geom.Point
	Thickness float64
	Color     color.Color
}

// HeadDrawable is an image drawable that also paints facial features in
// its own frame, so eyes and brows turn with the head. Children are placed
// with the head's rotation like any other drawable.
type HeadDrawable struct {
	ImageDrawable

	eyes  []Eye
	brows []Brow
}

// NewHeadDrawable creates a head. bm may be nil.
func NewHeadDrawable(name string, bm *graphics.Bitmap) *HeadDrawable {
	d := &HeadDrawable{}
	d.bitmap = bm
	d.init(d, name)
	return d
}

// AddEye adds an eye.
func (d *HeadDrawable) AddEye(e Eye) {
	d.eyes = append(d.eyes, e)
}

// AddBrow adds an eyebrow.
func (d *HeadDrawable) AddBrow(b Brow) {
	d.brows = append(d.brows, b)
}

// Eyes returns the eyes.
func (d *HeadDrawable) Eyes() []Eye {
	return d.eyes
}

// Brows returns the eyebrows.
func (d *HeadDrawable) Brows() []Brow {
	return d.brows
}

// Draw paints the head bitmap, then its features on top.
func (d *HeadDrawable) Draw(g graphics.Graphics) {
	if d.bitmap == nil {
		return
	}
	d.ImageDrawable.Draw(g)

	g.Push()
	g.Translate(d.placedPosition.X, d.placedPosition.Y)
	g.Rotate(d.placedRotation)
	for _, e := range d.eyes {
		g.FillPolygon(geom.Ellipse(e.Center, e.Radius.X, e.Radius.Y, ellipseSegments), e.Color)
	}
	for _, b := range d.brows {
		if q := browQuad(b); q != nil {
			g.FillPolygon(q, b.Color)
		}
	}
	g.Pop()
}

// browQuad widens a brow stroke into a quad.
func browQuad(b Brow) geom.Polygon {
	dir := b.To.Sub(b.From)
	l := dir.Length()
	if l == 0 {
		return nil
	}
	n := geom.Pt(-dir.Y/l, dir.X/l).Scale(b.Thickness / 2)
	return geom.Polygon{b.From.Add(n), b.To.Add(n), b.To.Sub(n), b.From.Sub(n)}
}
