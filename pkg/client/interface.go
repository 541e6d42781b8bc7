package client

import (
	"context"
	"image"

	"github.com/menta2k/listingkit/pkg/types"
)

// Segmenter separates a subject from its background. The returned image has
// the same size as the input, with the background made transparent.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image) (image.Image, error)
}

// SegmenterFunc adapts a plain function to Segmenter
type SegmenterFunc func(ctx context.Context, img image.Image) (image.Image, error)

// Segment calls f
func (f SegmenterFunc) Segment(ctx context.Context, img image.Image) (image.Image, error) {
	return f(ctx, img)
}

// VisionClient queries a multimodal model about a clothing photo
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	SuggestTags(ctx context.Context, model, prompt, imgB64 string) (*types.TagSuggestion, error)
}
