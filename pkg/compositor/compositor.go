package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/listingkit/pkg/analyzer"
	"github.com/menta2k/listingkit/pkg/processing"
	"github.com/menta2k/listingkit/pkg/types"
	"github.com/menta2k/listingkit/pkg/vision"
)

// ErrEmptySubject is reported when the subject would be scaled to nothing
var ErrEmptySubject = errors.New("subject has zero size after scaling")

// Placeholder is the fill used when a composition fails
var Placeholder = types.Color{R: 200, G: 200, B: 200}

// Compositor places cutout subjects on listing canvases
type Compositor struct {
	mu       sync.RWMutex
	config   Config
	analyzer *analyzer.ColorAnalyzer
	logger   *zap.Logger
}

// Config holds configuration for composition
type Config struct {
	Canvas types.Canvas
	// AlphaThreshold trims subject pixels at or below this alpha
	AlphaThreshold uint8
	// Placeholder fills the canvas when composition fails
	Placeholder types.Color
}

// DefaultConfig returns the default canvas presets and trimming threshold
func DefaultConfig() Config {
	return Config{
		Canvas:         types.DefaultCanvas(),
		AlphaThreshold: vision.DefaultAlphaThreshold,
		Placeholder:    Placeholder,
	}
}

// New creates a new Compositor with default configuration
func New(a *analyzer.ColorAnalyzer) *Compositor {
	return NewWithConfig(DefaultConfig(), a)
}

// NewWithConfig creates a new Compositor with custom configuration
func NewWithConfig(config Config, a *analyzer.ColorAnalyzer) *Compositor {
	if a == nil {
		a = analyzer.New()
	}
	return &Compositor{
		config:   config,
		analyzer: a,
		logger:   zap.NewNop(),
	}
}

// SetLogger replaces the compositor's logger
func (c *Compositor) SetLogger(logger *zap.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetCanvas swaps the canvas presets used by subsequent compositions
func (c *Compositor) SetCanvas(canvas types.Canvas) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.Canvas = canvas
}

// Canvas returns the current canvas presets
func (c *Compositor) Canvas() types.Canvas {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.Canvas
}

// Result contains the outcome of a composition
type Result struct {
	Image *image.NRGBA
	// Placement is the visible rectangle of the subject on the canvas
	Placement image.Rectangle
	// Fill is the solid canvas color, zero when a background image was used
	Fill types.Color
	Err  error
}

// FitClothing composites subject onto a canvas and returns only the image.
// It always returns a canvas of the target size.
func (c *Compositor) FitClothing(subject, background image.Image, adj types.Adjustments, useSolidBG bool) *image.NRGBA {
	return c.Compose(subject, background, adj, useSolidBG).Image
}

// Compose rotates, trims, scales and positions subject over either the
// resized background or a solid fill complementary to the subject. When
// anything goes wrong the result is a placeholder canvas and Err is set.
func (c *Compositor) Compose(subject, background image.Image, adj types.Adjustments, useSolidBG bool) (res Result) {
	c.mu.RLock()
	cfg := c.config
	c.mu.RUnlock()

	width, height := cfg.Canvas.Size(adj.IsHorizontal)

	defer func() {
		if r := recover(); r != nil {
			res = c.placeholder(cfg, width, height, fmt.Errorf("composition panicked: %v", r))
		}
	}()

	if width <= 0 || height <= 0 {
		return c.placeholder(cfg, width, height, fmt.Errorf("invalid canvas size %dx%d", width, height))
	}
	if subject == nil {
		return c.placeholder(cfg, width, height, errors.New("nil subject"))
	}

	src := processing.ToNRGBA(subject)
	if adj.RotationAngle != 0 {
		src = imaging.Rotate(src, -adj.RotationAngle, color.Transparent)
	}

	if box, ok := vision.EffectiveBounds(src, cfg.AlphaThreshold); ok {
		src = imaging.Crop(src, box)
	}
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	if sw == 0 || sh == 0 {
		return c.placeholder(cfg, width, height, ErrEmptySubject)
	}

	var canvas *image.NRGBA
	var fill types.Color
	if useSolidBG || background == nil {
		fill = analyzer.Complementary(c.analyzer.DominantColor(src, true))
		canvas = imaging.New(width, height, fill.NRGBA())
	} else {
		canvas = imaging.Resize(background, width, height, imaging.Lanczos)
	}

	fit := math.Min(float64(width)/float64(sw), float64(height)/float64(sh)) * adj.Scale
	nw, nh := int(float64(sw)*fit), int(float64(sh)*fit)
	if nw <= 0 || nh <= 0 {
		return c.placeholder(cfg, width, height, ErrEmptySubject)
	}
	scaled := imaging.Resize(src, nw, nh, imaging.Lanczos)

	x := (width-nw)/2 + int(adj.HOF*float64(width))
	y := (height-nh)/2 + int(adj.VOF*float64(height))
	x = clamp(x, width-nw)
	y = clamp(y, height-nh)

	pos := image.Pt(x, y)
	out := imaging.Overlay(canvas, scaled, pos, 1.0)

	return Result{
		Image:     out,
		Placement: image.Rectangle{Min: pos, Max: pos.Add(image.Pt(nw, nh))}.Intersect(out.Rect),
		Fill:      fill,
	}
}

func (c *Compositor) placeholder(cfg Config, width, height int, err error) Result {
	c.logger.Warn("composition failed, using placeholder",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Error(err))
	return Result{
		Image: imaging.New(width, height, cfg.Placeholder.NRGBA()),
		Fill:  cfg.Placeholder,
		Err:   err,
	}
}

// clamp keeps a paste coordinate within [0, limit]. A subject larger than
// the canvas is pinned to the origin.
func clamp(v, limit int) int {
	if v > limit {
		v = limit
	}
	if v < 0 {
		v = 0
	}
	return v
}
