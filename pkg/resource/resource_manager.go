// Package resource loads and caches the bitmaps drawables paint.
//
// Images are addressed either by path inside the manager's file system or
// by the resource ID declared in a resources.yaml manifest. The manifest can
// also attach an anchor to each image; images without one are anchored at
// their center.
package resource

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io/fs"
	"log"
	"path"
	"runtime"
	"sync"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/decker502/puppet/pkg/config"
	"github.com/decker502/puppet/pkg/geom"
	"github.com/decker502/puppet/pkg/graphics"
)

// ErrUnknownResource is returned for an ID the manifest does not declare.
var ErrUnknownResource = errors.New("unknown resource id")

// ResourceManager is responsible for loading images once and sharing them.
// It is safe for concurrent use; the frame exporter builds one picture per
// worker against a single manager.
//
// Usage:
//
//	rm := resource.NewResourceManager(os.DirFS("data"))
//	if err := rm.LoadResourceConfig("resources.yaml"); err != nil {
//	    log.Printf("Failed to load resources: %v", err)
//	}
//	bm := rm.Bitmap("head") // nil and a logged warning if it cannot load
type ResourceManager struct {
	fsys fs.FS

	mu          sync.RWMutex
	imageCache  map[string]image.Image          // path -> decoded image
	bitmapCache map[string]*graphics.Bitmap     // resource ID -> bitmap
	resourceMap map[string]config.ImageResource // resource ID -> manifest entry
	baseDir     string
}

// NewResourceManager creates a manager that reads files from fsys.
func NewResourceManager(fsys fs.FS) *ResourceManager {
	return &ResourceManager{
		fsys:        fsys,
		imageCache:  make(map[string]image.Image),
		bitmapCache: make(map[string]*graphics.Bitmap),
		resourceMap: make(map[string]config.ImageResource),
	}
}

// LoadResourceConfig reads a manifest from the manager's file system and
// registers its images. Paths in the manifest are relative to the
// manifest's directory joined with its base_path.
func (rm *ResourceManager) LoadResourceConfig(configPath string) error {
	data, err := fs.ReadFile(rm.fsys, configPath)
	if err != nil {
		return fmt.Errorf("failed to read resource config %s: %w", configPath, err)
	}
	var cfg config.ResourceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse resource config %s: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("resource config %s: %w", configPath, err)
	}
	rm.SetResourceConfig(path.Dir(configPath), &cfg)
	log.Printf("[ResourceManager] Loaded %d image resources from %s", len(cfg.Images), configPath)
	return nil
}

// SetResourceConfig registers an already parsed manifest located in dir.
func (rm *ResourceManager) SetResourceConfig(dir string, cfg *config.ResourceConfig) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.baseDir = path.Join(dir, cfg.BasePath)
	for _, img := range cfg.Images {
		rm.resourceMap[img.ID] = img
		delete(rm.bitmapCache, img.ID)
	}
}

// ResourceIDs returns the IDs declared by the loaded manifests.
func (rm *ResourceManager) ResourceIDs() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	ids := make([]string, 0, len(rm.resourceMap))
	for id := range rm.resourceMap {
		ids = append(ids, id)
	}
	return ids
}

// LoadImage decodes the image at p and caches it by path.
func (rm *ResourceManager) LoadImage(p string) (image.Image, error) {
	rm.mu.RLock()
	img, ok := rm.imageCache[p]
	rm.mu.RUnlock()
	if ok {
		return img, nil
	}

	file, err := rm.fsys.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", p, err)
	}
	defer file.Close()

	img, _, err = image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", p, err)
	}

	rm.mu.Lock()
	rm.imageCache[p] = img
	rm.mu.Unlock()
	return img, nil
}

// LoadBitmap loads the image at p as a bitmap. A nil anchor centers it.
func (rm *ResourceManager) LoadBitmap(p string, anchor *geom.Point) (*graphics.Bitmap, error) {
	img, err := rm.LoadImage(p)
	if err != nil {
		return nil, err
	}
	if anchor == nil {
		return graphics.NewCenteredBitmap(p, img), nil
	}
	return graphics.NewBitmap(p, img, *anchor), nil
}

// LoadImageByID loads the bitmap a manifest declares under id.
func (rm *ResourceManager) LoadImageByID(id string) (*graphics.Bitmap, error) {
	rm.mu.RLock()
	if bm, ok := rm.bitmapCache[id]; ok {
		rm.mu.RUnlock()
		return bm, nil
	}
	entry, ok := rm.resourceMap[id]
	baseDir := rm.baseDir
	rm.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrUnknownResource)
	}

	bm, err := rm.LoadBitmap(path.Join(baseDir, entry.Path), entry.Anchor)
	if err != nil {
		return nil, fmt.Errorf("resource %q: %w", id, err)
	}

	rm.mu.Lock()
	rm.bitmapCache[id] = bm
	rm.mu.Unlock()
	return bm, nil
}

// GetImageByID returns a bitmap already loaded by LoadImageByID, or nil.
func (rm *ResourceManager) GetImageByID(id string) *graphics.Bitmap {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.bitmapCache[id]
}

// Bitmap is LoadImageByID for callers that keep going without the image:
// a failure is logged and nil returned, so the drawable simply paints
// nothing.
func (rm *ResourceManager) Bitmap(id string) *graphics.Bitmap {
	bm, err := rm.LoadImageByID(id)
	if err != nil {
		log.Printf("[ResourceManager] Warning: image %q unavailable: %v", id, err)
		return nil
	}
	return bm
}

// Preload decodes every manifest image in parallel. It returns the first
// failure; images that loaded stay cached.
func (rm *ResourceManager) Preload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, id := range rm.ResourceIDs() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := rm.LoadImageByID(id)
			return err
		})
	}
	return g.Wait()
}
