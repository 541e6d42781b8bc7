package pipeline

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/menta2k/listingkit/pkg/types"
)

// Background choices accepted by Adjustments.Background besides a file path
const (
	BackgroundAuto  = "(Auto)"
	BackgroundSolid = "(Solid Color)"
)

// SingleOptions control ProcessSingleImage
type SingleOptions struct {
	SkipBGRemoval bool
	UserBGPath    string
}

// Adjustments is a partial update of one processed image; nil fields are
// left unchanged
type Adjustments struct {
	VOF           *float64
	HOF           *float64
	Scale         *float64
	IsHorizontal  *bool
	RotationAngle *float64
	UseSolidBG    *bool
	SkipBGRemoval *bool
	Background    *string
}

// ProcessSingleImage (re)runs the whole chain for one image: background
// removal, background choice and composition.
func (pl *Pipeline) ProcessSingleImage(ctx context.Context, projectIdx, imageIdx int, opts SingleOptions) error {
	p, err := pl.Project(projectIdx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if imageIdx < 0 || imageIdx >= len(p.images) {
		return fmt.Errorf("%w: image %d", ErrInvalidIndex, imageIdx)
	}

	pi := p.entry(imageIdx, pl.UseSolidBG())
	pi.SkipBGRemoval = opts.SkipBGRemoval
	pi.Invalidate(types.StateUnprocessed)
	if opts.UserBGPath != "" {
		pi.UserBGPath = opts.UserBGPath
		pi.UseSolidBG = false
		pi.IndividualOverride = true
	}

	return pl.render(ctx, p.images[imageIdx], pi, nil)
}

// ApplyAdjustments updates an already processed image and re-renders it.
// Placement changes only recomposite; a background change re-resolves the
// background; toggling background removal or the solid mode re-extracts.
func (pl *Pipeline) ApplyAdjustments(ctx context.Context, projectIdx, imageIdx int, a Adjustments) error {
	p, err := pl.Project(projectIdx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if imageIdx < 0 || imageIdx >= len(p.images) {
		return fmt.Errorf("%w: image %d", ErrInvalidIndex, imageIdx)
	}
	if imageIdx >= len(p.processed) || p.processed[imageIdx] == nil {
		return fmt.Errorf("%w: image %d has not been processed", ErrInvalidIndex, imageIdx)
	}
	pi := p.processed[imageIdx]

	target := types.StateBackgroundResolved
	lower := func(s types.State) {
		if s < target {
			target = s
		}
	}
	setSolid := func(v bool) {
		pi.IndividualOverride = true
		if pi.UseSolidBG != v {
			pi.UseSolidBG = v
			lower(types.StateUnprocessed)
		}
	}

	if a.VOF != nil {
		pi.VOF = *a.VOF
	}
	if a.HOF != nil {
		pi.HOF = *a.HOF
	}
	if a.Scale != nil {
		pi.Scale = *a.Scale
	}
	if a.IsHorizontal != nil {
		pi.IsHorizontal = *a.IsHorizontal
	}
	if a.RotationAngle != nil {
		pi.RotationAngle = *a.RotationAngle
	}
	if a.SkipBGRemoval != nil && *a.SkipBGRemoval != pi.SkipBGRemoval {
		pi.SkipBGRemoval = *a.SkipBGRemoval
		lower(types.StateUnprocessed)
	}
	if a.UseSolidBG != nil {
		setSolid(*a.UseSolidBG)
	}
	if a.Background != nil {
		switch bg := *a.Background; bg {
		case BackgroundSolid:
			pi.UserBGPath = ""
			setSolid(true)
		case BackgroundAuto, "":
			pi.UserBGPath = ""
			lower(types.StateBackgroundRemoved)
		default:
			pi.UserBGPath = bg
			setSolid(false)
			lower(types.StateBackgroundRemoved)
		}
	}

	pi.Invalidate(target)
	return pl.render(ctx, p.images[imageIdx], pi, nil)
}

// render advances pi from its current state to ready. Callers hold the
// project lock.
func (pl *Pipeline) render(ctx context.Context, orig types.ClothingImage, pi *types.ProcessedImage, bgs map[string]image.Image) error {
	if pi.State < types.StateBackgroundRemoved {
		pi.NoBG = pl.extract(ctx, orig, pi.SkipBGRemoval)
		pi.State = types.StateBackgroundRemoved
	}
	if pi.State < types.StateBackgroundResolved {
		pl.resolveBackground(pi)
		pi.State = types.StateBackgroundResolved
	}
	return pl.composite(pi, bgs)
}

func (pl *Pipeline) extract(ctx context.Context, orig types.ClothingImage, skip bool) *image.NRGBA {
	if skip || orig.Image == nil {
		return orig.Image
	}
	return pl.remover.RemoveBackground(ctx, orig.Image)
}

func (pl *Pipeline) resolveBackground(pi *types.ProcessedImage) {
	switch {
	case pi.UseSolidBG:
		pi.BGPath = ""
	case pi.UserBGPath != "":
		pi.BGPath = pi.UserBGPath
	default:
		pi.BGPath = ""
		if pi.NoBG == nil {
			return
		}
		if path, ok := pl.selector.FindBestBackground(pi.NoBG, pl.library.Items()); ok {
			pi.BGPath = path
		}
	}
}

// composite renders pi onto its canvas. A failed composition leaves the
// placeholder in Processed and the state short of ready.
func (pl *Pipeline) composite(pi *types.ProcessedImage, bgs map[string]image.Image) error {
	var subject, bg image.Image
	if pi.NoBG != nil {
		subject = pi.NoBG
	}
	if !pi.UseSolidBG && pi.BGPath != "" {
		bg = pl.background(pi.BGPath, bgs)
	}

	res := pl.compositor.Compose(subject, bg, pi.Adjustments, pi.UseSolidBG)
	pi.Processed = res.Image
	pi.Generation = pl.renders.Add(1)
	if res.Err != nil {
		pi.State = types.StateBackgroundResolved
		return fmt.Errorf("failed to composite %s: %w", filepath.Base(pi.Path), res.Err)
	}
	pi.State = types.StateReady
	return nil
}

// background opens path, memoized in bgs when given. An unreadable background
// falls back to a solid fill.
func (pl *Pipeline) background(path string, bgs map[string]image.Image) image.Image {
	if img, ok := bgs[path]; ok {
		return img
	}
	img, err := pl.load(path)
	if err != nil {
		pl.logger.Warn("failed to load background", zap.String("path", path), zap.Error(err))
		img = nil
	}
	if bgs != nil {
		bgs[path] = img
	}
	return img
}
