//go:build gocv

package remover

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/menta2k/listingkit/pkg/processing"
)

// GrabCut is a local Segmenter built on OpenCV. It assumes the garment sits
// inside a border of background, which holds for typical flat-lay photos.
type GrabCut struct {
	Iterations int
	BorderSize int
}

// NewGrabCut creates a GrabCut segmenter
func NewGrabCut(iterations, borderSize int) *GrabCut {
	if iterations < 1 {
		iterations = 5
	}
	return &GrabCut{Iterations: iterations, BorderSize: borderSize}
}

// Segment implements client.Segmenter
func (g *GrabCut) Segment(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := processing.ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	border := g.BorderSize
	if border < 10 {
		border = int(float64(w) * 0.05)
	}
	if w <= 2*border+1 || h <= 2*border+1 {
		return nil, fmt.Errorf("image too small for grabcut: %dx%d", w, h)
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, src.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to create mat: %w", err)
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)

	mask := gocv.NewMat()
	defer mask.Close()
	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	rect := image.Rect(border, border, w-border, h-border)
	gocv.GrabCut(bgr, &mask, rect, &bgdModel, &fgdModel, g.Iterations, gocv.GCInitWithRect)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fg := extractForeground(&mask)
	defer fg.Close()
	clean := morphologyOptimize(&fg, 3)
	defer clean.Close()

	alpha := clean.ToBytes()
	if len(alpha) != w*h {
		return nil, fmt.Errorf("unexpected mask size %d for %dx%d", len(alpha), w, h)
	}

	out := image.NewNRGBA(src.Rect)
	copy(out.Pix, src.Pix)
	for i, a := range alpha {
		out.Pix[i*4+3] = a
	}
	return out, nil
}

// extractForeground marks definite and probable foreground as 255
func extractForeground(mask *gocv.Mat) gocv.Mat {
	fgMask := gocv.NewMat()
	fgd := gocv.NewMatFromScalar(gocv.Scalar{Val1: 1}, gocv.MatTypeCV8U)
	defer fgd.Close()
	gocv.Compare(*mask, fgd, &fgMask, gocv.CompareEQ)

	prFgMask := gocv.NewMat()
	defer prFgMask.Close()
	prFgd := gocv.NewMatFromScalar(gocv.Scalar{Val1: 3}, gocv.MatTypeCV8U)
	defer prFgd.Close()
	gocv.Compare(*mask, prFgd, &prFgMask, gocv.CompareEQ)

	combined := gocv.NewMat()
	gocv.BitwiseOr(fgMask, prFgMask, &combined)
	fgMask.Close()

	return combined
}

// morphologyOptimize removes specks and fills pinholes in the mask
func morphologyOptimize(mask *gocv.Mat, kernelSize int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	opened := gocv.NewMat()
	gocv.MorphologyEx(*mask, &opened, gocv.MorphOpen, kernel)

	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, kernel)
	opened.Close()

	return closed
}
