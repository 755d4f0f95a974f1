package export

import (
	"context"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/scene"
	"github.com/decker502/puppet/pkg/timeline"
)

var red = color.RGBA{R: 255, A: 255}

// slider builds a 64x32 white picture with a red 8x8 square keyed from
// x=10 at tick 0 to x=50 at tick 5.
func slider(builds *atomic.Int32) BuildFunc {
	return func() (*scene.Picture, error) {
		if builds != nil {
			builds.Add(1)
		}
		pic := scene.NewPicture(timeline.NewTimeline(20, 0.25))
		pic.SetSize(geom.Pt(64, 32))
		pic.SetBackgroundColor(color.White)

		a := scene.NewActor("box")
		sq := scene.NewPolyDrawable("square", red)
		sq.SetVertices(geom.Polygon{geom.Pt(-4, -4), geom.Pt(4, -4), geom.Pt(4, 4), geom.Pt(-4, 4)})
		a.SetRoot(sq)
		if err := a.AddDrawable(sq); err != nil {
			return nil, err
		}
		if err := pic.AddActor(a); err != nil {
			return nil, err
		}
		a.PositionChannel().SetKeyframe(0, geom.Pt(10, 16))
		a.PositionChannel().SetKeyframe(5, geom.Pt(50, 16))
		return pic, nil
	}
}

func TestRenderFrame(t *testing.T) {
	pic, err := slider(nil)()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	img, err := RenderFrame(pic, 5, nil)
	if err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Errorf("bounds = %v, want 64x32", b)
	}
	if got := img.RGBAAt(50, 16); got != red {
		t.Errorf("pixel at square = %v, want red", got)
	}
	if got := img.RGBAAt(10, 16); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("pixel at old position = %v, want white", got)
	}
}

func TestExport(t *testing.T) {
	var builds atomic.Int32
	dir := filepath.Join(t.TempDir(), "frames")

	n, err := Export(context.Background(), slider(&builds), Options{OutDir: dir, To: -1, Workers: 3})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 6 {
		t.Errorf("frames = %d, want 6", n)
	}
	if got := builds.Load(); got != 3 {
		t.Errorf("builds = %d, want one per worker", got)
	}

	for tick := 0; tick < 6; tick++ {
		if _, err := os.Stat(filepath.Join(dir, FrameName(tick))); err != nil {
			t.Errorf("frame %d: %v", tick, err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "frame_00000.png"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r, g, b, _ := img.At(10, 16).RGBA(); r != 0xffff || g != 0 || b != 0 {
		t.Errorf("frame 0 pixel = %v, want red", img.At(10, 16))
	}
}

func TestExportSubrange(t *testing.T) {
	dir := t.TempDir()
	n, err := Export(context.Background(), slider(nil), Options{OutDir: dir, From: 2, To: 3, Workers: 8})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 2 {
		t.Errorf("frames = %d, want 2", n)
	}
	if _, err := os.Stat(filepath.Join(dir, FrameName(1))); !os.IsNotExist(err) {
		t.Errorf("frame 1 should not exist: %v", err)
	}
}

func TestExportErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Export(context.Background(), slider(nil), Options{OutDir: dir, From: 4, To: 2}); !errors.Is(err, ErrEmptyRange) {
		t.Errorf("reversed range err = %v, want ErrEmptyRange", err)
	}

	boom := errors.New("boom")
	failing := func() (*scene.Picture, error) { return nil, boom }
	if _, err := Export(context.Background(), failing, Options{OutDir: dir, To: -1}); !errors.Is(err, boom) {
		t.Errorf("build err = %v, want boom", err)
	}

	var builds atomic.Int32
	secondFails := func() (*scene.Picture, error) {
		if builds.Add(1) > 1 {
			return nil, boom
		}
		return slider(nil)()
	}
	if _, err := Export(context.Background(), secondFails, Options{OutDir: dir, To: -1, Workers: 2}); !errors.Is(err, boom) {
		t.Errorf("worker build err = %v, want boom", err)
	}
}

func TestFrameName(t *testing.T) {
	if got := FrameName(42); got != "frame_00042.png" {
		t.Errorf("FrameName(42) = %q", got)
	}
}
