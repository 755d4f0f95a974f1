package scene

import (
	"image/color"
	"slices"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics"
)

// PolyDrawable paints a closed filled polygon whose vertices are given in
// the drawable's local frame.
type PolyDrawable struct {
	Node

	vertices geom.Polygon
	color    color.Color
}

// NewPolyDrawable creates a polygon drawable with no vertices.
func NewPolyDrawable(name string, c color.Color) *PolyDrawable {
	d := &PolyDrawable{color: c}
	d.init(d, name)
	return d
}

// AddPoint appends a vertex.
func (d *PolyDrawable) AddPoint(p geom.Point) {
	d.vertices = append(d.vertices, p)
}

// SetVertices replaces the vertices.
func (d *PolyDrawable) SetVertices(vertices geom.Polygon) {
	d.vertices = slices.Clone(vertices)
}

// Vertices returns a copy of the local-space vertices.
func (d *PolyDrawable) Vertices() geom.Polygon {
	return slices.Clone(d.vertices)
}

// Color returns the fill color.
func (d *PolyDrawable) Color() color.Color {
	return d.color
}

// SetColor sets the fill color.
func (d *PolyDrawable) SetColor(c color.Color) {
	d.color = c
}

// Draw fills the polygon at the drawable's absolute transform.
func (d *PolyDrawable) Draw(g graphics.Graphics) {
	if len(d.vertices) < 3 {
		return
	}
	g.Push()
	g.Translate(d.placedPosition.X, d.placedPosition.Y)
	g.Rotate(d.placedRotation)
	g.FillPolygon(d.vertices, d.color)
	g.Pop()
}

// HitTest reports whether p lies inside the placed polygon.
func (d *PolyDrawable) HitTest(p geom.Point) bool {
	return d.vertices.Contains(d.toLocal(p))
}
