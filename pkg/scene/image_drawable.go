package scene

import (
	"math"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics"
)

// ImageDrawable paints a bitmap with its anchor on the drawable's position.
// A drawable whose bitmap failed to load draws nothing and is never hit.
type ImageDrawable struct {
	Node

	bitmap         *graphics.Bitmap
	anchor         geom.Point
	anchorSet      bool
	alphaThreshold uint8
}

// NewImageDrawable creates an image drawable. bm may be nil.
func NewImageDrawable(name string, bm *graphics.Bitmap) *ImageDrawable {
	d := &ImageDrawable{bitmap: bm}
	d.init(d, name)
	return d
}

// Bitmap returns the bitmap, or nil if none is loaded.
func (d *ImageDrawable) Bitmap() *graphics.Bitmap {
	return d.bitmap
}

// SetBitmap replaces the bitmap.
func (d *ImageDrawable) SetBitmap(bm *graphics.Bitmap) {
	d.bitmap = bm
}

// Anchor returns the pixel placed on the drawable's position: the explicit
// anchor if one was set, else the bitmap's own anchor.
func (d *ImageDrawable) Anchor() geom.Point {
	if d.anchorSet || d.bitmap == nil {
		return d.anchor
	}
	return d.bitmap.Anchor()
}

// SetAnchor overrides the bitmap's anchor.
func (d *ImageDrawable) SetAnchor(p geom.Point) {
	d.anchor = p
	d.anchorSet = true
}

// AlphaThreshold returns the alpha a pixel must exceed to be hit.
func (d *ImageDrawable) AlphaThreshold() uint8 {
	return d.alphaThreshold
}

// SetAlphaThreshold sets the alpha a pixel must exceed to be hit.
func (d *ImageDrawable) SetAlphaThreshold(a uint8) {
	d.alphaThreshold = a
}

// bounds returns the image rectangle in the drawable's local frame.
func (d *ImageDrawable) bounds() geom.Rect {
	a := d.Anchor()
	return geom.Rect{
		X: -a.X,
		Y: -a.Y,
		W: float64(d.bitmap.Width()),
		H: float64(d.bitmap.Height()),
	}
}

// Draw paints the bitmap rotated about its anchor.
func (d *ImageDrawable) Draw(g graphics.Graphics) {
	if d.bitmap == nil {
		return
	}
	g.Push()
	g.Translate(d.placedPosition.X, d.placedPosition.Y)
	g.Rotate(d.placedRotation)
	g.DrawImage(d.bitmap, d.bounds())
	g.Pop()
}

// HitTest reports whether p lands on a pixel more opaque than the alpha
// threshold.
func (d *ImageDrawable) HitTest(p geom.Point) bool {
	if d.bitmap == nil {
		return false
	}
	local := d.toLocal(p).Add(d.Anchor())
	x, y := int(math.Floor(local.X)), int(math.Floor(local.Y))
	return d.bitmap.AlphaAt(x, y) > d.alphaThreshold
}
