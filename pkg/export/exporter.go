// Package export renders the frames of a picture to PNG files without a
// window. Each worker owns its own picture instance, since a picture and
// its timeline are single-threaded.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"runtime"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/decker502/puppet/pkg/graphics/raster"
	"github.com/decker502/puppet/pkg/scene"
)

// ErrEmptyRange is returned when the requested tick range holds no frame.
var ErrEmptyRange = errors.New("empty frame range")

// BuildFunc builds a fresh picture. It is called once per worker and must
// return independent pictures.
type BuildFunc func() (*scene.Picture, error)

// Options controls an export.
type Options struct {
	// OutDir receives frame_00000.png, frame_00001.png, ... named by tick.
	OutDir string
	// From and To bound the exported ticks, inclusive. A negative To means
	// the last frame of the timeline.
	From, To int
	// Workers is the number of pictures rendering in parallel. Zero uses
	// runtime.NumCPU.
	Workers int
	// Transformer resamples bitmaps; nil keeps the canvas default.
	Transformer xdraw.Transformer
}

// FrameName returns the file name of the frame at tick.
func FrameName(tick int) string {
	return fmt.Sprintf("frame_%05d.png", tick)
}

// RenderFrame samples pic at tick and paints it onto a new image the size
// of the picture's background.
func RenderFrame(pic *scene.Picture, tick int, t xdraw.Transformer) (*image.RGBA, error) {
	if err := pic.SetCurrentTick(tick); err != nil {
		return nil, fmt.Errorf("frame %d: %w", tick, err)
	}
	size := pic.Size()
	canvas := raster.NewCanvas(int(size.X+0.5), int(size.Y+0.5))
	if t != nil {
		canvas.SetTransformer(t)
	}
	pic.Draw(canvas)
	return canvas.Image(), nil
}

// Export renders every tick in the range and returns the number of frames
// written. The first error cancels the remaining work.
func Export(ctx context.Context, build BuildFunc, opts Options) (int, error) {
	// one probe picture resolves the range and checks the build
	probe, err := build()
	if err != nil {
		return 0, fmt.Errorf("build picture: %w", err)
	}
	last := probe.Timeline().NumFrames() - 1
	to := opts.To
	if to < 0 || to > last {
		to = last
	}
	from := max(opts.From, 0)
	if from > to {
		return 0, fmt.Errorf("ticks %d..%d: %w", opts.From, opts.To, ErrEmptyRange)
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	total := to - from + 1
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, total)
	log.Printf("[Exporter] Rendering ticks %d..%d with %d workers to %s", from, to, workers, opts.OutDir)

	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for tick := from; tick <= to; tick++ {
			select {
			case jobs <- tick:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		pic := probe
		g.Go(func() error {
			if w > 0 {
				var err error
				if pic, err = build(); err != nil {
					return fmt.Errorf("build picture for worker %d: %w", w, err)
				}
			}
			for tick := range jobs {
				if err := writeFrame(pic, tick, opts); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	log.Printf("[Exporter] Wrote %d frames", total)
	return total, nil
}

func writeFrame(pic *scene.Picture, tick int, opts Options) error {
	img, err := RenderFrame(pic, tick, opts.Transformer)
	if err != nil {
		return err
	}
	path := filepath.Join(opts.OutDir, FrameName(tick))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("frame %d: %w", tick, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode frame %d: %w", tick, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("frame %d: %w", tick, err)
	}
	return nil
}
