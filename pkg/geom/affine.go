package geom

import "math"

// Affine is a 2D affine matrix stored as [a, b, c, d, tx, ty]:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
type Affine [6]float64

// Identity returns the identity matrix.
func Identity() Affine {
	return Affine{1, 0, 0, 1, 0, 0}
}

// Translation returns a matrix translating by (dx, dy).
func Translation(dx, dy float64) Affine {
	return Affine{1, 0, 0, 1, dx, dy}
}

// Rotation returns a matrix rotating by angle radians about the origin.
func Rotation(angle float64) Affine {
	sin, cos := math.Sincos(angle)
	return Affine{cos, sin, -sin, cos, 0, 0}
}

// Scaling returns a matrix scaling by (sx, sy).
func Scaling(sx, sy float64) Affine {
	return Affine{sx, 0, 0, sy, 0, 0}
}

// Mul returns m*n: n is applied first, then m.
func (m Affine) Mul(n Affine) Affine {
	return Affine{
		m[0]*n[0] + m[2]*n[1],
		m[1]*n[0] + m[3]*n[1],
		m[0]*n[2] + m[2]*n[3],
		m[1]*n[2] + m[3]*n[3],
		m[0]*n[4] + m[2]*n[5] + m[4],
		m[1]*n[4] + m[3]*n[5] + m[5],
	}
}

// Translate returns m followed-in-local-space by a translation, i.e.
// m*Translation(dx, dy).
func (m Affine) Translate(dx, dy float64) Affine {
	return m.Mul(Translation(dx, dy))
}

// Rotate returns m*Rotation(angle).
func (m Affine) Rotate(angle float64) Affine {
	return m.Mul(Rotation(angle))
}

// Scale returns m*Scaling(sx, sy).
func (m Affine) Scale(sx, sy float64) Affine {
	return m.Mul(Scaling(sx, sy))
}

// Apply transforms p by m.
func (m Affine) Apply(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Invert returns the inverse of m. ok is false when m is singular, in which
// case the identity is returned.
func (m Affine) Invert() (inv Affine, ok bool) {
	det := m[0]*m[3] - m[2]*m[1]
	if math.Abs(det) < 1e-12 {
		return Identity(), false
	}
	id := 1 / det
	a := m[3] * id
	b := -m[1] * id
	c := -m[2] * id
	d := m[0] * id
	return Affine{a, b, c, d, -(a*m[4] + c*m[5]), -(b*m[4] + d*m[5])}, true
}
