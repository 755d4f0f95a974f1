package graphics

import (
	"image/color"

	"github.com/decker502/puppet/pkg/geom"
)

// OpKind identifies a recorded drawing operation.
type OpKind int

const (
	OpImage OpKind = iota
	OpPolygon
)

// Op is one drawing call captured by a Recorder, with its geometry already
// transformed to device space.
type Op struct {
	Kind   OpKind
	Bitmap *Bitmap
	// Quad holds the device-space corners of an image op in the order
	// top-left, top-right, bottom-left, bottom-right.
	Quad    [4]geom.Point
	Polygon geom.Polygon
	Color   color.Color
}

// Recorder is a Graphics that records operations instead of rasterizing.
// It lets the scene graph be driven and inspected without a window.
type Recorder struct {
	TransformStack
	Ops []Op
}

// NewRecorder returns an empty recorder with an identity transform.
func NewRecorder() *Recorder {
	return &Recorder{TransformStack: NewTransformStack(geom.Identity())}
}

// DrawImage records an image op.
func (r *Recorder) DrawImage(bm *Bitmap, dst geom.Rect) {
	m := r.Current()
	var quad [4]geom.Point
	for i, c := range dst.Corners() {
		quad[i] = m.Apply(c)
	}
	r.Ops = append(r.Ops, Op{Kind: OpImage, Bitmap: bm, Quad: quad})
}

// FillPolygon records a polygon op.
func (r *Recorder) FillPolygon(vertices geom.Polygon, c color.Color) {
	m := r.Current()
	poly := make(geom.Polygon, len(vertices))
	for i, v := range vertices {
		poly[i] = m.Apply(v)
	}
	r.Ops = append(r.Ops, Op{Kind: OpPolygon, Polygon: poly, Color: c})
}

// Reset drops all recorded ops.
func (r *Recorder) Reset() {
	r.Ops = r.Ops[:0]
	r.TransformStack = NewTransformStack(geom.Identity())
}
