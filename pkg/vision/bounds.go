package vision

import (
	"image"

	"github.com/menta2k/listingkit/pkg/processing"
)

// DefaultAlphaThreshold is the alpha level above which a cutout pixel counts
// as part of the subject. Lower values are treated as matting residue.
const DefaultAlphaThreshold uint8 = 10

// EffectiveBounds returns the tight bounding box of pixels whose alpha exceeds
// threshold, in img's coordinate space. When no pixel qualifies the full
// bounds are returned and found is false.
func EffectiveBounds(img image.Image, threshold uint8) (r image.Rectangle, found bool) {
	if img == nil {
		return image.Rectangle{}, false
	}
	full := img.Bounds()
	if full.Empty() {
		return full, false
	}

	src := processing.ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	minX, minY, maxX, maxY := w, h, -1, -1

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		first := -1
		for x := 0; x < w; x++ {
			if row[x*4+3] > threshold {
				first = x
				break
			}
		}
		if first < 0 {
			continue
		}
		last := first
		for x := w - 1; x > first; x-- {
			if row[x*4+3] > threshold {
				last = x
				break
			}
		}
		if first < minX {
			minX = first
		}
		if last > maxX {
			maxX = last
		}
		if maxY < 0 {
			minY = y
		}
		maxY = y
	}

	if maxX < 0 {
		return full, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1).Add(full.Min), true
}

// Coverage returns the share of img's area covered by its effective bounds.
// A fully transparent image has zero coverage.
func Coverage(img image.Image, threshold uint8) float64 {
	r, ok := EffectiveBounds(img, threshold)
	if !ok {
		return 0
	}
	full := img.Bounds()
	return float64(r.Dx()*r.Dy()) / float64(full.Dx()*full.Dy())
}
