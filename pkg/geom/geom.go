// Package geom provides the 2D primitives shared by the scene graph,
// the timeline and the rasterizers: points, rectangles, polygons and
// affine matrices. Angles are in radians; positive angles turn the +X
// axis towards +Y (clockwise on a y-down screen).
package geom

import "math"

// Point is an (x, y) coordinate or vector in picture space.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Rotate returns p rotated about the origin by angle radians.
func (p Point) Rotate(angle float64) Point {
	if angle == 0 {
		return p
	}
	sin, cos := math.Sincos(angle)
	return Point{
		X: cos*p.X - sin*p.Y,
		Y: sin*p.X + cos*p.Y,
	}
}

// Length returns the euclidean length of p.
func (p Point) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// Angle returns the direction of p in radians, in (-π, π].
func (p Point) Angle() float64 {
	return math.Atan2(p.Y, p.X)
}

// Lerp interpolates linearly from p to q. t=0 yields p, t=1 yields q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{
		X: p.X + (q.X-p.X)*t,
		Y: p.Y + (q.Y-p.Y)*t,
	}
}

// Near reports whether p and q differ by at most eps on both axes.
func (p Point) Near(q Point, eps float64) bool {
	return math.Abs(p.X-q.X) <= eps && math.Abs(p.Y-q.Y) <= eps
}

// Rect is an axis-aligned rectangle with its origin at (X, Y).
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive so adjacent rectangles never both contain a point.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Corners returns the four corners of r: top-left, top-right, bottom-left,
// bottom-right.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.W, Y: r.Y},
		{X: r.X, Y: r.Y + r.H},
		{X: r.X + r.W, Y: r.Y + r.H},
	}
}

// Polygon is a closed polygon. The last vertex connects back to the first.
type Polygon []Point

// Contains reports whether p lies inside the polygon using the nonzero
// winding rule, the rule both rasterizers fill with. Polygons with fewer
// than three vertices contain nothing.
func (poly Polygon) Contains(p Point) bool {
	if len(poly) < 3 {
		return false
	}
	winding := 0
	for i, a := range poly {
		b := poly[(i+1)%len(poly)]
		// side of p relative to the edge a->b
		side := (b.X-a.X)*(p.Y-a.Y) - (p.X-a.X)*(b.Y-a.Y)
		switch {
		case a.Y <= p.Y && b.Y > p.Y && side > 0:
			winding++
		case a.Y > p.Y && b.Y <= p.Y && side < 0:
			winding--
		}
	}
	return winding != 0
}

// Bounds returns the smallest rectangle containing every vertex.
func (poly Polygon) Bounds() Rect {
	if len(poly) == 0 {
		return Rect{}
	}
	minX, minY := poly[0].X, poly[0].Y
	maxX, maxY := minX, minY
	for _, v := range poly[1:] {
		minX = math.Min(minX, v.X)
		minY = math.Min(minY, v.Y)
		maxX = math.Max(maxX, v.X)
		maxY = math.Max(maxY, v.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Ellipse approximates an axis-aligned ellipse centred on c with radii rx,
// ry as a polygon with n vertices (minimum 8).
func Ellipse(c Point, rx, ry float64, n int) Polygon {
	if n < 8 {
		n = 8
	}
	poly := make(Polygon, n)
	for i := range poly {
		a := 2 * math.Pi * float64(i) / float64(n)
		sin, cos := math.Sincos(a)
		poly[i] = Point{X: c.X + rx*cos, Y: c.Y + ry*sin}
	}
	return poly
}
