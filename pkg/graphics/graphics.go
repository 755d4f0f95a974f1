// Package graphics defines the drawing capability the scene graph consumes
// and the immutable bitmaps it draws. Concrete rasterizers live in the
// raster (headless, golang.org/x/image) and ebitengfx (on-screen, Ebitengine)
// subpackages.
package graphics

import (
	"image"
	"image/color"

	"github.com/decker502/puppet/pkg/geom"
)

// Graphics is a 2D drawing context with a transform stack. Coordinates
// passed to DrawImage and FillPolygon are in the current local space, i.e.
// transformed by every Translate/Rotate since the matching Push.
//
// A Graphics value is used by one draw call at a time and must not be
// retained by the scene after that call returns.
type Graphics interface {
	// DrawImage draws the whole bitmap stretched onto dst.
	DrawImage(bm *Bitmap, dst geom.Rect)
	// FillPolygon fills the closed polygon with c.
	FillPolygon(vertices geom.Polygon, c color.Color)
	// Push saves the current transform.
	Push()
	// Pop restores the transform saved by the matching Push.
	Pop()
	// Translate moves the local origin by (dx, dy).
	Translate(dx, dy float64)
	// Rotate turns the local axes by angle radians.
	Rotate(angle float64)
}

// Bitmap is a decoded image with its pixel size and anchor. The anchor is
// the pixel that is placed on a drawable's position and that the drawable
// rotates about. Bitmaps are immutable once loaded.
type Bitmap struct {
	name   string
	img    image.Image
	anchor geom.Point
}

// NewBitmap wraps img. name identifies the source for logs and caches.
func NewBitmap(name string, img image.Image, anchor geom.Point) *Bitmap {
	return &Bitmap{name: name, img: img, anchor: anchor}
}

// NewCenteredBitmap wraps img anchored at its center.
func NewCenteredBitmap(name string, img image.Image) *Bitmap {
	b := img.Bounds()
	return NewBitmap(name, img, geom.Pt(float64(b.Dx())/2, float64(b.Dy())/2))
}

// Name returns the bitmap's source identifier.
func (b *Bitmap) Name() string {
	return b.name
}

// Image returns the decoded pixels.
func (b *Bitmap) Image() image.Image {
	return b.img
}

// Width returns the width in pixels.
func (b *Bitmap) Width() int {
	return b.img.Bounds().Dx()
}

// Height returns the height in pixels.
func (b *Bitmap) Height() int {
	return b.img.Bounds().Dy()
}

// Anchor returns the anchor in pixel coordinates.
func (b *Bitmap) Anchor() geom.Point {
	return b.anchor
}

// AlphaAt returns the 8-bit alpha of the pixel at (x, y), relative to the
// image's top-left corner. Pixels outside the image are transparent.
func (b *Bitmap) AlphaAt(x, y int) uint8 {
	r := b.img.Bounds()
	if x < 0 || y < 0 || x >= r.Dx() || y >= r.Dy() {
		return 0
	}
	_, _, _, a := b.img.At(r.Min.X+x, r.Min.Y+y).RGBA()
	return uint8(a >> 8)
}
