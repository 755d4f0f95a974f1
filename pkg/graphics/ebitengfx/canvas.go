// Package ebitengfx implements graphics.Graphics on top of an Ebitengine
// screen image. Bitmap quads are emitted with DrawTriangles so rotation and
// stretching happen on the GPU; polygons are triangulated with the vector
// package.
package ebitengfx

import (
	"image"
	"image/color"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// quadIndices draws an image quad as two triangles (TL, TR, BL) (TR, BR, BL).
var quadIndices = []uint16{0, 1, 2, 1, 3, 2}

// Canvas draws onto an *ebiten.Image. GPU textures for bitmaps are cached
// per *graphics.Bitmap for the life of the Canvas, so one Canvas should be
// reused across frames and re-targeted with Begin.
type Canvas struct {
	graphics.TransformStack

	dst      *ebiten.Image
	textures map[*graphics.Bitmap]*ebiten.Image
	white    *ebiten.Image

	vs []ebiten.Vertex
	is []uint16
}

// NewCanvas creates a canvas with an empty texture cache.
func NewCanvas() *Canvas {
	w := ebiten.NewImage(3, 3)
	w.Fill(color.White)
	return &Canvas{
		TransformStack: graphics.NewTransformStack(geom.Identity()),
		textures:       make(map[*graphics.Bitmap]*ebiten.Image),
		// the inner pixel avoids bleeding from the image edge
		white: w.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image),
	}
}

// Begin targets dst with the given base transform (usually the view's
// pan/zoom) and clears the transform stack.
func (c *Canvas) Begin(dst *ebiten.Image, base geom.Affine) {
	c.dst = dst
	c.TransformStack = graphics.NewTransformStack(base)
}

// texture returns the cached GPU image for bm.
func (c *Canvas) texture(bm *graphics.Bitmap) *ebiten.Image {
	if tex, ok := c.textures[bm]; ok {
		return tex
	}
	tex := ebiten.NewImageFromImage(bm.Image())
	c.textures[bm] = tex
	return tex
}

// Forget drops the cached texture of bm.
func (c *Canvas) Forget(bm *graphics.Bitmap) {
	if tex, ok := c.textures[bm]; ok {
		tex.Deallocate()
		delete(c.textures, bm)
	}
}

// DrawImage draws bm stretched onto dst in local space.
func (c *Canvas) DrawImage(bm *graphics.Bitmap, dst geom.Rect) {
	if c.dst == nil || bm == nil || bm.Width() == 0 || bm.Height() == 0 {
		return
	}
	tex := c.texture(bm)
	w, h := float32(bm.Width()), float32(bm.Height())
	src := [4][2]float32{{0, 0}, {w, 0}, {0, h}, {w, h}}

	m := c.Current()
	c.vs = c.vs[:0]
	for i, corner := range dst.Corners() {
		p := m.Apply(corner)
		c.vs = append(c.vs, ebiten.Vertex{
			DstX: float32(p.X), DstY: float32(p.Y),
			SrcX: src[i][0], SrcY: src[i][1],
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		})
	}
	op := &ebiten.DrawTrianglesOptions{Filter: ebiten.FilterLinear}
	c.dst.DrawTriangles(c.vs, quadIndices, tex, op)
}

// FillPolygon fills vertices in local space with col.
func (c *Canvas) FillPolygon(vertices geom.Polygon, col color.Color) {
	if c.dst == nil || len(vertices) < 3 {
		return
	}
	m := c.Current()
	var path vector.Path
	first := m.Apply(vertices[0])
	path.MoveTo(float32(first.X), float32(first.Y))
	for _, v := range vertices[1:] {
		p := m.Apply(v)
		path.LineTo(float32(p.X), float32(p.Y))
	}
	path.Close()

	c.vs, c.is = path.AppendVerticesAndIndicesForFilling(c.vs[:0], c.is[:0])
	r, g, b, a := col.RGBA()
	for i := range c.vs {
		c.vs[i].SrcX = 1
		c.vs[i].SrcY = 1
		c.vs[i].ColorR = float32(r) / 0xffff
		c.vs[i].ColorG = float32(g) / 0xffff
		c.vs[i].ColorB = float32(b) / 0xffff
		c.vs[i].ColorA = float32(a) / 0xffff
	}
	op := &ebiten.DrawTrianglesOptions{FillRule: ebiten.FillRuleNonZero, AntiAlias: true}
	c.dst.DrawTriangles(c.vs, c.is, c.white, op)
}

var _ graphics.Graphics = (*Canvas)(nil)
