package analyzer

import (
	"crypto/md5"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/listingkit/pkg/cache"
	"github.com/menta2k/listingkit/pkg/processing"
	"github.com/menta2k/listingkit/pkg/types"
)

// ColorAnalyzer extracts dominant colors and contrasting fill colors
type ColorAnalyzer struct {
	config Config
	cache  *cache.Bounded[colorKey, types.Color]
	logger *zap.Logger
}

// Config holds configuration for the color analyzer
type Config struct {
	// SampleSize is the side of the grid the image is reduced to before averaging
	SampleSize int
	// AlphaCutoff excludes pixels with alpha at or below this value
	AlphaCutoff uint8
	// CacheSize bounds the dominant color cache
	CacheSize int
}

type colorKey struct {
	sum               [md5.Size]byte
	width, height     int
	ignoreTransparent bool
}

// New creates a new ColorAnalyzer with default configuration
func New() *ColorAnalyzer {
	return NewWithConfig(Config{
		SampleSize:  30,
		AlphaCutoff: 128,
		CacheSize:   200,
	})
}

// NewWithConfig creates a new ColorAnalyzer with custom configuration
func NewWithConfig(config Config) *ColorAnalyzer {
	if config.SampleSize < 1 {
		config.SampleSize = 30
	}
	return &ColorAnalyzer{
		config: config,
		cache:  cache.New[colorKey, types.Color](config.CacheSize),
		logger: zap.NewNop(),
	}
}

// SetLogger replaces the analyzer's logger
func (a *ColorAnalyzer) SetLogger(logger *zap.Logger) {
	if logger != nil {
		a.logger = logger
	}
}

// CacheLen returns the number of cached dominant colors
func (a *ColorAnalyzer) CacheLen() int {
	return a.cache.Len()
}

// DominantColor returns the average color of img. With ignoreTransparent,
// pixels whose alpha is at or below the cutoff are left out. Results are
// cached by pixel content, so identical images share one entry. It never
// fails: any problem yields types.Neutral.
func (a *ColorAnalyzer) DominantColor(img image.Image, ignoreTransparent bool) (c types.Color) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("dominant color computation panicked", zap.Any("panic", r))
			c = types.Neutral
		}
	}()

	if img == nil {
		return types.Neutral
	}
	nrgba := processing.ToNRGBA(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	if w == 0 || h == 0 {
		return types.Neutral
	}

	key := colorKey{
		sum:               md5.Sum(nrgba.Pix),
		width:             w,
		height:            h,
		ignoreTransparent: ignoreTransparent,
	}

	c, err := a.cache.GetOrCompute(key, func() (types.Color, error) {
		return a.average(nrgba, ignoreTransparent)
	})
	if err != nil {
		a.logger.Debug("dominant color fallback", zap.Error(err))
		return types.Neutral
	}
	return c
}

func (a *ColorAnalyzer) average(img *image.NRGBA, ignoreTransparent bool) (types.Color, error) {
	small := imaging.Resize(img, a.config.SampleSize, a.config.SampleSize, imaging.Lanczos)
	if small.Rect.Empty() {
		return types.Neutral, fmt.Errorf("empty sample")
	}

	var r, g, b, count int
	for i := 0; i+3 < len(small.Pix); i += 4 {
		if ignoreTransparent && small.Pix[i+3] <= a.config.AlphaCutoff {
			continue
		}
		r += int(small.Pix[i])
		g += int(small.Pix[i+1])
		b += int(small.Pix[i+2])
		count++
	}

	if count == 0 {
		return types.Neutral, nil
	}
	return types.Color{R: uint8(r / count), G: uint8(g / count), B: uint8(b / count)}, nil
}

// AverageColor returns the channel-wise integer mean of colors
func AverageColor(colors []types.Color) types.Color {
	if len(colors) == 0 {
		return types.Neutral
	}
	var r, g, b int
	for _, c := range colors {
		r += int(c.R)
		g += int(c.G)
		b += int(c.B)
	}
	n := len(colors)
	return types.Color{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n)}
}

// Complementary rotates the hue of c by 180 degrees in HSV space, keeping
// saturation and value. Grays map to their photometric inverse.
func Complementary(c types.Color) types.Color {
	maxC := max(c.R, c.G, c.B)
	minC := min(c.R, c.G, c.B)
	if maxC == minC {
		v := 255 - maxC
		return types.Color{R: v, G: v, B: v}
	}

	h, s, v := rgbToHSV(c)
	h = math.Mod(h+0.5, 1.0)
	return hsvToRGB(h, s, v)
}

// rgbToHSV returns hue in [0,1), saturation and value in [0,1]
func rgbToHSV(c types.Color) (float64, float64, float64) {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255

	maxF := math.Max(r, math.Max(g, b))
	minF := math.Min(r, math.Min(g, b))
	diff := maxF - minF

	var h float64
	switch {
	case diff == 0:
		h = 0
	case maxF == r:
		h = math.Mod((g-b)/diff, 6)
		if h < 0 {
			h += 6
		}
	case maxF == g:
		h = (b-r)/diff + 2
	default:
		h = (r-g)/diff + 4
	}

	s := 0.0
	if maxF > 0 {
		s = diff / maxF
	}
	return h / 6, s, maxF
}

func hsvToRGB(h, s, v float64) types.Color {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return types.Color{R: to8(r), G: to8(g), B: to8(b)}
}

func to8(f float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, f)) * 255))
}
