// Package tagger suggests listing tags for a clothing cutout using a vision
// model, backed by palette colors from the analyzer.
package tagger

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/listingkit/pkg/analyzer"
	"github.com/menta2k/listingkit/pkg/client"
	"github.com/menta2k/listingkit/pkg/processing"
	"github.com/menta2k/listingkit/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks for a structured description of one garment
const DefaultPrompt = `You are a second-hand clothing listing assistant.

Return JSON only:
{
  "category": "string",
  "description": "short neutral sentence (≤ 20 words)",
  "colors": ["color1", "color2"],
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"],
  "confidence": 0.0
}

HARD RULES
- category is one garment type in lowercase, e.g. "shirt", "jeans", "dress".
- colors are plain color names of the garment only, not the background.
- tags describe material, style, season or fit: lowercase, concise, no punctuation or duplicates.
- Do not guess brands unless a logo is clearly readable.
- If no garment is visible, return:
  {"category":"none","description":"no garment found","colors":[],"tags":[],"confidence":0.0}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Config holds tagger settings
type Config struct {
	Model string
	// MaxTags limits the tags kept from the model
	MaxTags int
	// PaletteSize is the number of palette clusters used for color tags
	PaletteSize int
	// MaxImageSize bounds the longest side sent to the model
	MaxImageSize int
}

// DefaultConfig returns the default tagger settings
func DefaultConfig() Config {
	return Config{
		Model:        "llava",
		MaxTags:      5,
		PaletteSize:  3,
		MaxImageSize: 512,
	}
}

// Tagger handles tag suggestion using vision models
type Tagger struct {
	client   client.VisionClient
	analyzer *analyzer.ColorAnalyzer
	config   Config
	logger   *zap.Logger
}

// New creates a tagger with default configuration. A nil client limits
// suggestions to palette colors.
func New(c client.VisionClient, a *analyzer.ColorAnalyzer) *Tagger {
	return NewWithConfig(DefaultConfig(), c, a)
}

// NewWithConfig creates a tagger with custom configuration
func NewWithConfig(config Config, c client.VisionClient, a *analyzer.ColorAnalyzer) *Tagger {
	def := DefaultConfig()
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.MaxTags < 1 {
		config.MaxTags = def.MaxTags
	}
	if config.PaletteSize < 1 {
		config.PaletteSize = def.PaletteSize
	}
	if config.MaxImageSize < 1 {
		config.MaxImageSize = def.MaxImageSize
	}
	if a == nil {
		a = analyzer.New()
	}
	return &Tagger{client: c, analyzer: a, config: config, logger: zap.NewNop()}
}

// SetLogger replaces the tagger's logger
func (t *Tagger) SetLogger(logger *zap.Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// Suggest describes the garment in img. Palette colors are always merged
// into Colors; without a vision client they are the only result.
func (t *Tagger) Suggest(ctx context.Context, img image.Image) (*types.TagSuggestion, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	colors := t.analyzer.ColorTags(img, t.config.PaletteSize)

	if t.client == nil {
		return &types.TagSuggestion{Colors: colors}, nil
	}

	b64, err := t.encode(img)
	if err != nil {
		return nil, err
	}
	result, err := t.client.SuggestTags(ctx, t.config.Model, DefaultPrompt, b64)
	if err != nil {
		return nil, fmt.Errorf("tag suggestion failed: %w", err)
	}

	result.Category = strings.ToLower(strings.TrimSpace(result.Category))
	result.Tags = normalizeTags(result.Tags, t.config.MaxTags)
	result.Colors = normalizeTags(append(result.Colors, colors...), len(result.Colors)+len(colors))
	result = validate(result)

	t.logger.Debug("tags suggested",
		zap.String("category", result.Category),
		zap.Strings("tags", result.Tags),
		zap.Strings("colors", result.Colors),
		zap.Float64("confidence", result.Confidence))
	return result, nil
}

// TestVision checks whether the model can see images at all
func (t *Tagger) TestVision(ctx context.Context, img image.Image) (string, error) {
	if t.client == nil {
		return "", fmt.Errorf("no vision client configured")
	}
	b64, err := t.encode(img)
	if err != nil {
		return "", err
	}
	return t.client.SimpleQuery(ctx, t.config.Model, SimpleTestPrompt, b64)
}

func (t *Tagger) encode(img image.Image) (string, error) {
	b := img.Bounds()
	if max(b.Dx(), b.Dy()) > t.config.MaxImageSize {
		img = imaging.Fit(img, t.config.MaxImageSize, t.config.MaxImageSize, imaging.Lanczos)
	}
	data, err := processing.NewProcessor().EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// validate clamps confidence and zeroes it for fallback answers
func validate(result *types.TagSuggestion) *types.TagSuggestion {
	result.Confidence = clamp(result.Confidence, 0, 1)
	if result.Category == "none" {
		result.Confidence = 0
		return result
	}

	fallbackIndicators := []string{"unclear", "parse", "error", "fallback", "non-json"}
	for _, indicator := range fallbackIndicators {
		if strings.Contains(result.Category, indicator) ||
			strings.Contains(strings.ToLower(result.Description), indicator) {
			result.Category = "none"
			result.Confidence = 0
			break
		}
	}
	return result
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeTags lowercases, trims and de-duplicates tags, keeping at most limit
func normalizeTags(tags []string, limit int) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, limit)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}
