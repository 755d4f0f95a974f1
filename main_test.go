package main

import (
	"io/fs"
	"testing"

	"github.com/decker502/puppet/pkg/app"
)

// TestBundledPicture 确认内置示例可以完整加载
func TestBundledPicture(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	data, err := fs.Sub(dataFS, "data")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	viewer, err := app.NewApp(app.Config{
		FS:            data,
		PicturePath:   defaultPicture,
		ResourcesPath: defaultResources,
	})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	if w, h := viewer.Size(); w != 640 || h != 480 {
		t.Errorf("size = %dx%d, want 640x480", w, h)
	}
	pic := viewer.Player().Picture()
	if got := pic.Timeline().NumFrames(); got != 73 {
		t.Errorf("frames = %d, want 73", got)
	}
	walker, ok := pic.Actor("walker")
	if !ok {
		t.Fatal("walker missing")
	}
	if got := len(walker.Drawables()); got != 10 {
		t.Errorf("walker drawables = %d, want 10", got)
	}
	if pic.Background() == nil {
		t.Error("backdrop not loaded")
	}
}

func TestFSPath(t *testing.T) {
	if got, err := fsPath("data/../data/pictures/stickman.yaml"); err != nil || got != "data/pictures/stickman.yaml" {
		t.Errorf("fsPath = %q, %v", got, err)
	}
	if _, err := fsPath("../outside.yaml"); err == nil {
		t.Error("expected error for a path outside the working directory")
	}
}
