package remover

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/listingkit/pkg/client"
	"github.com/menta2k/listingkit/pkg/processing"
	"github.com/menta2k/listingkit/pkg/vision"
)

// ErrEmptyCutout is returned when segmentation left nothing visible
var ErrEmptyCutout = errors.New("segmentation removed the whole image")

// Remover cuts subjects out of photos through a Segmenter
type Remover struct {
	segmenter client.Segmenter
	config    Config
	logger    *zap.Logger
}

// Config holds configuration for background removal
type Config struct {
	// MaxSize bounds the longest side sent to the segmenter
	MaxSize int
	// Timeout applies to one segmentation call when the context has no deadline
	Timeout time.Duration
}

// New creates a new Remover with default configuration
func New(segmenter client.Segmenter) *Remover {
	return NewWithConfig(Config{
		MaxSize: 1200,
		Timeout: 2 * time.Minute,
	}, segmenter)
}

// NewWithConfig creates a new Remover with custom configuration
func NewWithConfig(config Config, segmenter client.Segmenter) *Remover {
	if config.MaxSize < 1 {
		config.MaxSize = 1200
	}
	return &Remover{
		segmenter: segmenter,
		config:    config,
		logger:    zap.NewNop(),
	}
}

// SetSegmenter allows setting a custom segmentation backend
func (r *Remover) SetSegmenter(segmenter client.Segmenter) {
	r.segmenter = segmenter
}

// SetLogger replaces the remover's logger
func (r *Remover) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// RemoveBackground returns a cutout of img at its original size. Large
// inputs are downscaled before segmentation and the result is scaled back.
// On any failure, or without a segmenter, the original is returned as NRGBA.
func (r *Remover) RemoveBackground(ctx context.Context, img image.Image) (out *image.NRGBA) {
	if img == nil {
		return nil
	}
	orig := processing.ToNRGBA(img)
	if orig.Rect.Empty() || r.segmenter == nil {
		return orig
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("background removal panicked, keeping original", zap.Any("panic", rec))
			out = orig
		}
	}()

	cutout, err := r.segment(ctx, orig)
	if err != nil {
		r.logger.Warn("background removal failed, keeping original", zap.Error(err))
		return orig
	}
	return cutout
}

func (r *Remover) segment(ctx context.Context, orig *image.NRGBA) (*image.NRGBA, error) {
	if _, ok := ctx.Deadline(); !ok && r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	w, h := orig.Rect.Dx(), orig.Rect.Dy()
	work := orig
	if longest := max(w, h); longest > r.config.MaxSize {
		ratio := float64(r.config.MaxSize) / float64(longest)
		work = imaging.Resize(orig, max(1, int(float64(w)*ratio)), max(1, int(float64(h)*ratio)), imaging.Lanczos)
	}

	start := time.Now()
	res, err := r.segmenter.Segment(ctx, work)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Bounds().Empty() {
		return nil, fmt.Errorf("segmenter returned an empty image")
	}
	coverage := vision.Coverage(res, vision.DefaultAlphaThreshold)
	if coverage == 0 {
		return nil, ErrEmptyCutout
	}

	cutout := processing.ToNRGBA(res)
	if cutout.Rect.Dx() != w || cutout.Rect.Dy() != h {
		cutout = imaging.Resize(cutout, w, h, imaging.Lanczos)
	}

	r.logger.Debug("background removed",
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Int("segmented_width", work.Rect.Dx()),
		zap.Float64("coverage", coverage),
		zap.Duration("took", time.Since(start)))
	return cutout, nil
}
