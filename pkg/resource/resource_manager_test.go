package resource

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/decker502/puppet/pkg/geom"
)

// pngBytes encodes a w x h opaque blue image.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	blue := color.RGBA{B: 255, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, blue)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func testFS(t *testing.T) fstest.MapFS {
	return fstest.MapFS{
		"data/resources.yaml": {Data: []byte(`
base_path: images
images:
  - id: head
    path: head.png
    anchor: {x: 2, y: 3}
  - id: torso
    path: torso.png
  - id: ghost
    path: ghost.png
`)},
		"data/images/head.png":   {Data: pngBytes(t, 8, 10)},
		"data/images/torso.png":  {Data: pngBytes(t, 20, 40)},
		"data/images/broken.png": {Data: []byte("not a png")},
	}
}

// TestLoadImage_Cache tests that a decoded image is reused.
func TestLoadImage_Cache(t *testing.T) {
	rm := NewResourceManager(testFS(t))

	img1, err := rm.LoadImage("data/images/head.png")
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	img2, err := rm.LoadImage("data/images/head.png")
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if img1 != img2 {
		t.Error("second load did not return the cached image")
	}
	if img1.Bounds().Dx() != 8 || img1.Bounds().Dy() != 10 {
		t.Errorf("size = %v", img1.Bounds())
	}
}

// TestLoadImage_Errors tests missing and corrupted files.
func TestLoadImage_Errors(t *testing.T) {
	rm := NewResourceManager(testFS(t))
	if _, err := rm.LoadImage("data/images/nope.png"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := rm.LoadImage("data/images/broken.png"); err == nil {
		t.Error("expected error for corrupted file")
	}
}

// TestLoadImageByID tests manifest lookups and anchors.
func TestLoadImageByID(t *testing.T) {
	rm := NewResourceManager(testFS(t))
	if err := rm.LoadResourceConfig("data/resources.yaml"); err != nil {
		t.Fatalf("LoadResourceConfig: %v", err)
	}

	head, err := rm.LoadImageByID("head")
	if err != nil {
		t.Fatalf("LoadImageByID(head): %v", err)
	}
	if head.Anchor() != geom.Pt(2, 3) {
		t.Errorf("head anchor = %v, want (2,3)", head.Anchor())
	}
	if rm.GetImageByID("head") != head {
		t.Error("GetImageByID did not return the cached bitmap")
	}

	torso, err := rm.LoadImageByID("torso")
	if err != nil {
		t.Fatalf("LoadImageByID(torso): %v", err)
	}
	if torso.Anchor() != geom.Pt(10, 20) {
		t.Errorf("torso anchor = %v, want center (10,20)", torso.Anchor())
	}

	if _, err := rm.LoadImageByID("missing"); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("unknown id err = %v", err)
	}
	if rm.GetImageByID("torso2") != nil {
		t.Error("GetImageByID for unloaded id should be nil")
	}
}

// TestBitmap_MissingFileDegrades tests that a missing image yields nil.
func TestBitmap_MissingFileDegrades(t *testing.T) {
	rm := NewResourceManager(testFS(t))
	if err := rm.LoadResourceConfig("data/resources.yaml"); err != nil {
		t.Fatalf("LoadResourceConfig: %v", err)
	}
	if bm := rm.Bitmap("ghost"); bm != nil {
		t.Errorf("Bitmap(ghost) = %v, want nil", bm)
	}
	if bm := rm.Bitmap("head"); bm == nil {
		t.Error("Bitmap(head) = nil")
	}
}

func TestPreload(t *testing.T) {
	fsys := testFS(t)
	rm := NewResourceManager(fsys)
	if err := rm.LoadResourceConfig("data/resources.yaml"); err != nil {
		t.Fatalf("LoadResourceConfig: %v", err)
	}
	if err := rm.Preload(context.Background()); err == nil {
		t.Error("Preload should report the missing ghost image")
	}

	ok := NewResourceManager(fstest.MapFS{
		"resources.yaml": {Data: []byte("images:\n  - id: head\n    path: head.png\n")},
		"head.png":       fsys["data/images/head.png"],
	})
	if err := ok.LoadResourceConfig("resources.yaml"); err != nil {
		t.Fatalf("LoadResourceConfig: %v", err)
	}
	if err := ok.Preload(context.Background()); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	if ok.GetImageByID("head") == nil {
		t.Error("head not cached after Preload")
	}
}

func TestLoadResourceConfig_Errors(t *testing.T) {
	rm := NewResourceManager(fstest.MapFS{
		"dup.yaml": {Data: []byte("images:\n  - {id: a, path: a.png}\n  - {id: a, path: b.png}\n")},
	})
	if err := rm.LoadResourceConfig("dup.yaml"); err == nil {
		t.Error("expected error for duplicate ids")
	}
	if err := rm.LoadResourceConfig("nope.yaml"); err == nil {
		t.Error("expected error for missing manifest")
	}
}
