package analyzer

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/EdlinOrg/prominentcolor"

	"github.com/menta2k/listingkit/pkg/processing"
	"github.com/menta2k/listingkit/pkg/types"
)

// PaletteColor is one prominent color of an image
type PaletteColor struct {
	Color types.Color `json:"color"`
	Name  string      `json:"name"`
	Count int         `json:"count"`
}

// named colors used to label palette entries
var namedColors = []struct {
	Name  string
	Color types.Color
}{
	{"black", types.Color{R: 0, G: 0, B: 0}},
	{"white", types.Color{R: 255, G: 255, B: 255}},
	{"gray", types.Color{R: 128, G: 128, B: 128}},
	{"red", types.Color{R: 255, G: 0, B: 0}},
	{"yellow", types.Color{R: 255, G: 255, B: 0}},
	{"blue", types.Color{R: 0, G: 0, B: 255}},
	{"orange", types.Color{R: 255, G: 165, B: 0}},
	{"green", types.Color{R: 0, G: 128, B: 0}},
	{"purple", types.Color{R: 128, G: 0, B: 128}},
	{"pink", types.Color{R: 255, G: 192, B: 203}},
	{"brown", types.Color{R: 139, G: 69, B: 19}},
	{"beige", types.Color{R: 245, G: 245, B: 220}},
	{"navy", types.Color{R: 0, G: 0, B: 128}},
	{"teal", types.Color{R: 0, G: 128, B: 128}},
	{"burgundy", types.Color{R: 128, G: 0, B: 32}},
}

// ColorName returns the closest named color
func ColorName(c types.Color) string {
	best := "unknown"
	bestDist := math.MaxFloat64
	for _, nc := range namedColors {
		if d := Distance(c, nc.Color, MetricOKLab); d < bestDist {
			bestDist = d
			best = nc.Name
		}
	}
	return best
}

// maskColor replaces transparent pixels before clustering
var maskColor = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

// Palette returns up to k prominent colors of img using k-means clustering.
// Transparent areas of cutouts are excluded.
func (a *ColorAnalyzer) Palette(img image.Image, k int) ([]PaletteColor, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	if k < 1 {
		k = prominentcolor.DefaultK
	}

	src := processing.ToNRGBA(img)
	flat := image.NewNRGBA(src.Rect)
	hasTransparency := false
	for i := 0; i+3 < len(src.Pix); i += 4 {
		if src.Pix[i+3] <= a.config.AlphaCutoff {
			hasTransparency = true
			flat.Pix[i], flat.Pix[i+1], flat.Pix[i+2], flat.Pix[i+3] = maskColor.R, maskColor.G, maskColor.B, 255
			continue
		}
		flat.Pix[i], flat.Pix[i+1], flat.Pix[i+2], flat.Pix[i+3] = src.Pix[i], src.Pix[i+1], src.Pix[i+2], 255
	}

	var masks []prominentcolor.ColorBackgroundMask
	if hasTransparency {
		masks = []prominentcolor.ColorBackgroundMask{prominentcolor.MaskGreen}
	}

	items, err := prominentcolor.KmeansWithAll(k, flat, prominentcolor.ArgumentNoCropping, prominentcolor.DefaultSize, masks)
	if err != nil {
		return nil, fmt.Errorf("palette extraction failed: %w", err)
	}

	out := make([]PaletteColor, 0, len(items))
	for _, item := range items {
		c := types.Color{R: uint8(item.Color.R), G: uint8(item.Color.G), B: uint8(item.Color.B)}
		out = append(out, PaletteColor{Color: c, Name: ColorName(c), Count: item.Cnt})
	}
	return out, nil
}

// ColorTags returns the distinct color names of img's palette, most prominent first
func (a *ColorAnalyzer) ColorTags(img image.Image, k int) []string {
	palette, err := a.Palette(img, k)
	if err != nil {
		a.logger.Sugar().Debugf("color tags unavailable: %v", err)
		return nil
	}
	seen := map[string]struct{}{}
	var tags []string
	for _, p := range palette {
		if _, ok := seen[p.Name]; ok {
			continue
		}
		seen[p.Name] = struct{}{}
		tags = append(tags, p.Name)
	}
	return tags
}
