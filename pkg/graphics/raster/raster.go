// Package raster is a headless Graphics implementation that paints into an
// *image.RGBA using golang.org/x/image. It is used for frame export and for
// pixel-level tests, where no window or GPU is available.
package raster

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"
)

// Canvas rasterizes drawing operations into an RGBA image.
type Canvas struct {
	graphics.TransformStack

	dst    *image.RGBA
	ras    *vector.Rasterizer
	scaler xdraw.Transformer
}

// NewCanvas allocates a transparent canvas of the given size.
func NewCanvas(width, height int) *Canvas {
	return NewCanvasFor(image.NewRGBA(image.Rect(0, 0, width, height)))
}

// NewCanvasFor paints onto an existing image.
func NewCanvasFor(dst *image.RGBA) *Canvas {
	b := dst.Bounds()
	return &Canvas{
		TransformStack: graphics.NewTransformStack(geom.Identity()),
		dst:            dst,
		ras:            vector.NewRasterizer(b.Dx(), b.Dy()),
		scaler:         xdraw.BiLinear,
	}
}

// Image returns the painted image.
func (c *Canvas) Image() *image.RGBA {
	return c.dst
}

// SetTransformer selects the resampling kernel used by DrawImage.
// xdraw.NearestNeighbor keeps hard pixel edges.
func (c *Canvas) SetTransformer(t xdraw.Transformer) {
	c.scaler = t
}

// Clear fills the whole canvas with col.
func (c *Canvas) Clear(col color.Color) {
	draw.Draw(c.dst, c.dst.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// DrawImage draws bm stretched onto dst in local space.
func (c *Canvas) DrawImage(bm *graphics.Bitmap, dst geom.Rect) {
	if bm == nil || bm.Width() == 0 || bm.Height() == 0 {
		return
	}
	src := bm.Image()
	sb := src.Bounds()

	// source pixel -> local rect -> device
	m := c.Current().
		Translate(dst.X, dst.Y).
		Scale(dst.W/float64(bm.Width()), dst.H/float64(bm.Height())).
		Translate(-float64(sb.Min.X), -float64(sb.Min.Y))
	s2d := f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
	c.scaler.Transform(c.dst, s2d, src, sb, xdraw.Over, nil)
}

// FillPolygon fills vertices in local space with col.
func (c *Canvas) FillPolygon(vertices geom.Polygon, col color.Color) {
	if len(vertices) < 3 {
		return
	}
	m := c.Current()
	b := c.dst.Bounds()
	c.ras.Reset(b.Dx(), b.Dy())
	c.ras.DrawOp = draw.Over

	first := m.Apply(vertices[0])
	c.ras.MoveTo(float32(first.X), float32(first.Y))
	for _, v := range vertices[1:] {
		p := m.Apply(v)
		c.ras.LineTo(float32(p.X), float32(p.Y))
	}
	c.ras.ClosePath()
	c.ras.Draw(c.dst, b, image.NewUniform(col), image.Point{})
}

var _ graphics.Graphics = (*Canvas)(nil)
