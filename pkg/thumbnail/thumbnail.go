// Package thumbnail renders and caches small previews of originals,
// cutouts and backgrounds.
package thumbnail

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/listingkit/pkg/cache"
	"github.com/menta2k/listingkit/pkg/processing"
)

// DefaultCacheSize is the number of thumbnails kept
const DefaultCacheSize = 100

type key struct {
	id   string
	size image.Point
}

// Cache is a size-bounded thumbnail cache safe for concurrent use
type Cache struct {
	entries   *cache.Bounded[key, *image.NRGBA]
	processor *processing.Processor
}

// New creates a thumbnail cache holding at most size entries
func New(size int) *Cache {
	if size < 1 {
		size = DefaultCacheSize
	}
	return &Cache{
		entries:   cache.New[key, *image.NRGBA](size),
		processor: processing.NewProcessor(),
	}
}

// Get returns the thumbnail for id, rendering it from src on a miss. The
// thumbnail fits inside size and keeps the aspect ratio.
func (c *Cache) Get(id string, size image.Point, src func() (image.Image, error)) (*image.NRGBA, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %v", size)
	}
	return c.entries.GetOrCompute(key{id: id, size: size}, func() (*image.NRGBA, error) {
		img, err := src()
		if err != nil {
			return nil, err
		}
		if img == nil || img.Bounds().Empty() {
			return nil, fmt.Errorf("empty image for thumbnail %s", id)
		}
		return imaging.Fit(img, size.X, size.Y, imaging.Lanczos), nil
	})
}

// GetPath returns the thumbnail of the image file at path
func (c *Cache) GetPath(path string, size image.Point) (*image.NRGBA, error) {
	return c.Get(path, size, func() (image.Image, error) {
		return c.processor.LoadImage(path)
	})
}

// Invalidate drops the thumbnails of id at the given sizes, or at every
// size when none are given
func (c *Cache) Invalidate(id string, sizes ...image.Point) {
	if len(sizes) == 0 {
		c.entries.RemoveFunc(func(k key) bool { return k.id == id })
		return
	}
	for _, s := range sizes {
		c.entries.Remove(key{id: id, size: s})
	}
}

// Len returns the number of cached thumbnails
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.entries.Purge()
}
