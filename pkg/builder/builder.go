// Package builder assembles scene graphs from picture configs: it is the
// actor factory the viewer and the exporter share.
package builder

import (
	"fmt"
	"image/color"
	"log"
	"math"

	"github.com/decker502/puppet/pkg/config"
	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics"
	"github.com/decker502/puppet/pkg/scene"
	"github.com/decker502/puppet/pkg/timeline"
)

// ImageLoader resolves a resource ID to a bitmap. It returns nil when the
// image is unavailable; the drawable then paints nothing.
type ImageLoader interface {
	Bitmap(id string) *graphics.Bitmap
}

// uprighter and movableSetter are implemented by every drawable through
// scene.Node.
type uprighter interface {
	KeepUpright(child scene.Drawable, upright bool)
}

type movableSetter interface {
	SetMovable(movable bool)
}

// Factory builds pictures and actors. A nil ImageLoader leaves every image
// drawable without a bitmap.
type Factory struct {
	images ImageLoader
}

// NewFactory returns a factory loading bitmaps through images.
func NewFactory(images ImageLoader) *Factory {
	return &Factory{images: images}
}

func (f *Factory) bitmap(id string) *graphics.Bitmap {
	if id == "" || f.images == nil {
		return nil
	}
	return f.images.Bitmap(id)
}

// Picture builds a picture with its timeline, background and actors, applies
// the authored keyframes and samples time zero.
func (f *Factory) Picture(cfg *config.PictureConfig) (*scene.Picture, error) {
	tl := timeline.NewTimeline(cfg.FrameRate, cfg.Duration)
	pic := scene.NewPicture(tl)
	if cfg.Background.Size != (geom.Point{}) {
		pic.SetSize(cfg.Background.Size)
	}
	pic.SetBackground(f.bitmap(cfg.Background.Image))
	if cfg.Background.Color != "" {
		c, err := config.ParseColor(cfg.Background.Color)
		if err != nil {
			return nil, fmt.Errorf("picture %q background: %w", cfg.Name, err)
		}
		pic.SetBackgroundColor(c)
	}

	for i := range cfg.Actors {
		ac := &cfg.Actors[i]
		a, err := f.Actor(ac)
		if err != nil {
			return nil, fmt.Errorf("picture %q: %w", cfg.Name, err)
		}
		if err := pic.AddActor(a); err != nil {
			return nil, fmt.Errorf("picture %q: %w", cfg.Name, err)
		}
		ApplyKeyframes(a, ac)
	}

	if err := pic.SetCurrentTime(0); err != nil {
		return nil, fmt.Errorf("picture %q: %w", cfg.Name, err)
	}
	log.Printf("[Builder] Built picture %q: %d actors, %d frames @ %d fps",
		cfg.Name, len(cfg.Actors), tl.NumFrames(), tl.FrameRate())
	return pic, nil
}

// Actor builds one actor: its drawables, their tree and the draw order. The
// actor is not yet in a picture, so authored keyframes are not applied; see
// ApplyKeyframes.
func (f *Factory) Actor(cfg *config.ActorConfig) (*scene.Actor, error) {
	a := scene.NewActor(cfg.Name)
	a.SetPosition(cfg.Position)
	a.SetEnabled(cfg.IsEnabled())
	a.SetClickable(cfg.IsClickable())

	byName := make(map[string]scene.Drawable, len(cfg.Drawables))
	for i := range cfg.Drawables {
		dc := &cfg.Drawables[i]
		d, err := f.drawable(dc)
		if err != nil {
			return nil, fmt.Errorf("actor %q: drawable %q: %w", cfg.Name, dc.Name, err)
		}
		byName[dc.Name] = d
	}

	for i := range cfg.Drawables {
		dc := &cfg.Drawables[i]
		if dc.Parent == "" {
			continue
		}
		parent, ok := byName[dc.Parent]
		if !ok {
			return nil, fmt.Errorf("actor %q: drawable %q: parent %q: %w",
				cfg.Name, dc.Name, dc.Parent, config.ErrInvalidConfig)
		}
		child := byName[dc.Name]
		if err := parent.AddChild(child); err != nil {
			return nil, fmt.Errorf("actor %q: %w", cfg.Name, err)
		}
		if dc.KeepUpright {
			if u, ok := parent.(uprighter); ok {
				u.KeepUpright(child, true)
			}
		}
	}

	root, ok := byName[cfg.Root]
	if !ok {
		return nil, fmt.Errorf("actor %q: root %q: %w", cfg.Name, cfg.Root, config.ErrInvalidConfig)
	}
	a.SetRoot(root)

	for _, name := range cfg.DrawOrder {
		d, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("actor %q: draw_order %q: %w", cfg.Name, name, config.ErrInvalidConfig)
		}
		if err := a.AddDrawable(d); err != nil {
			return nil, err
		}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	log.Printf("[Builder] Built actor %q with %d drawables", cfg.Name, len(cfg.Drawables))
	return a, nil
}

func (f *Factory) drawable(dc *config.DrawableConfig) (scene.Drawable, error) {
	var d scene.Drawable
	switch dc.Type {
	case config.DrawableImage, "":
		img := scene.NewImageDrawable(dc.Name, f.bitmap(dc.Image))
		configureImage(img, dc)
		d = img
	case config.DrawablePoly:
		c, err := config.ParseColor(dc.Color)
		if err != nil {
			return nil, err
		}
		poly := scene.NewPolyDrawable(dc.Name, c)
		poly.SetVertices(dc.Vertices)
		d = poly
	case config.DrawableHead:
		head := scene.NewHeadDrawable(dc.Name, f.bitmap(dc.Image))
		configureImage(&head.ImageDrawable, dc)
		if err := addFeatures(head, dc.Features); err != nil {
			return nil, err
		}
		d = head
	default:
		return nil, fmt.Errorf("unknown type %q: %w", dc.Type, config.ErrInvalidConfig)
	}

	d.SetPosition(dc.Position)
	d.SetRotation(radians(dc.Rotation))
	if dc.Movable != nil {
		if m, ok := d.(movableSetter); ok {
			m.SetMovable(*dc.Movable)
		}
	}
	return d, nil
}

func configureImage(img *scene.ImageDrawable, dc *config.DrawableConfig) {
	if dc.Anchor != nil {
		img.SetAnchor(*dc.Anchor)
	}
	img.SetAlphaThreshold(dc.AlphaThreshold)
}

func addFeatures(head *scene.HeadDrawable, fc *config.FeaturesConfig) error {
	if fc == nil {
		return nil
	}
	for _, e := range fc.Eyes {
		c, err := parseFeatureColor(e.Color)
		if err != nil {
			return fmt.Errorf("eye: %w", err)
		}
		head.AddEye(scene.Eye{Center: e.Center, Radius: e.Radius, Color: c})
	}
	for _, b := range fc.Brows {
		c, err := parseFeatureColor(b.Color)
		if err != nil {
			return fmt.Errorf("brow: %w", err)
		}
		head.AddBrow(scene.Brow{From: b.From, To: b.To, Thickness: b.Thickness, Color: c})
	}
	return nil
}

// parseFeatureColor defaults unset feature colors to black.
func parseFeatureColor(s string) (color.Color, error) {
	if s == "" {
		return color.Black, nil
	}
	return config.ParseColor(s)
}

// ApplyKeyframes writes the authored keyframes of cfg into a's channels. a
// must already be in a picture. Properties a keyframe leaves out are keyed
// with the value the drawable was built with.
func ApplyKeyframes(a *scene.Actor, cfg *config.ActorConfig) {
	for _, k := range cfg.Keyframes {
		p := a.Position()
		if k.Position != nil {
			p = *k.Position
		}
		a.PositionChannel().SetKeyframe(k.Tick, p)
	}

	for i := range cfg.Drawables {
		dc := &cfg.Drawables[i]
		d, ok := a.Drawable(dc.Name)
		if !ok {
			continue
		}
		for _, k := range dc.Keyframes {
			p := d.Position()
			if k.Position != nil {
				p = *k.Position
			}
			r := d.Rotation()
			if k.Rotation != nil {
				r = radians(*k.Rotation)
			}
			d.PositionChannel().SetKeyframe(k.Tick, p)
			d.RotationChannel().SetKeyframe(k.Tick, r)
		}
	}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
