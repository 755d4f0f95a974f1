package graphics

import "github.com/decker502/puppet/pkg/geom"

// TransformStack implements the Push/Pop/Translate/Rotate half of Graphics.
// Rasterizers embed it and read Current when they emit geometry.
type TransformStack struct {
	current geom.Affine
	saved   []geom.Affine
}

// NewTransformStack returns a stack starting at base.
func NewTransformStack(base geom.Affine) TransformStack {
	return TransformStack{current: base}
}

// Current returns the active transform from local to device space.
func (s *TransformStack) Current() geom.Affine {
	if s.current == (geom.Affine{}) {
		// zero value: behave as identity
		s.current = geom.Identity()
	}
	return s.current
}

// Push saves the current transform.
func (s *TransformStack) Push() {
	s.saved = append(s.saved, s.Current())
}

// Pop restores the last pushed transform. An unbalanced Pop resets to the
// identity.
func (s *TransformStack) Pop() {
	n := len(s.saved)
	if n == 0 {
		s.current = geom.Identity()
		return
	}
	s.current = s.saved[n-1]
	s.saved = s.saved[:n-1]
}

// Depth returns the number of pushed transforms.
func (s *TransformStack) Depth() int {
	return len(s.saved)
}

// Translate moves the local origin.
func (s *TransformStack) Translate(dx, dy float64) {
	s.current = s.Current().Translate(dx, dy)
}

// Rotate turns the local axes.
func (s *TransformStack) Rotate(angle float64) {
	s.current = s.Current().Rotate(angle)
}
