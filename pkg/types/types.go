package types

import (
	"fmt"
	"image"
	"image/color"
)

// Default adjustment values for a freshly created ProcessedImage
const (
	DefaultVerticalOffset   = 0.0
	DefaultHorizontalOffset = 0.0
	DefaultScale            = 0.85
)

// Default canvas presets
const (
	DefaultCanvasWidthV  = 600
	DefaultCanvasHeightV = 800
	DefaultCanvasWidthH  = 800
	DefaultCanvasHeightH = 600
)

// Color is an opaque RGB triple
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Neutral is returned whenever a color cannot be computed
var Neutral = Color{128, 128, 128}

// NRGBA converts c to a fully opaque color.NRGBA
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Hex returns the color as #RRGGBB
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Canvas holds the two output frame presets
type Canvas struct {
	VerticalWidth    int `json:"vertical_width"`
	VerticalHeight   int `json:"vertical_height"`
	HorizontalWidth  int `json:"horizontal_width"`
	HorizontalHeight int `json:"horizontal_height"`
}

// DefaultCanvas returns the 600x800 / 800x600 presets
func DefaultCanvas() Canvas {
	return Canvas{
		VerticalWidth:    DefaultCanvasWidthV,
		VerticalHeight:   DefaultCanvasHeightV,
		HorizontalWidth:  DefaultCanvasWidthH,
		HorizontalHeight: DefaultCanvasHeightH,
	}
}

// Size returns the canvas dimensions for the requested orientation
func (c Canvas) Size(isHorizontal bool) (int, int) {
	if isHorizontal {
		return c.HorizontalWidth, c.HorizontalHeight
	}
	return c.VerticalWidth, c.VerticalHeight
}

// Adjustments are the per-image placement parameters
type Adjustments struct {
	VOF           float64 `json:"vof"`
	HOF           float64 `json:"hof"`
	Scale         float64 `json:"scale"`
	IsHorizontal  bool    `json:"is_horizontal"`
	RotationAngle float64 `json:"rotation_angle"`
}

// DefaultAdjustments returns centered placement at the default scale
func DefaultAdjustments() Adjustments {
	return Adjustments{
		VOF:   DefaultVerticalOffset,
		HOF:   DefaultHorizontalOffset,
		Scale: DefaultScale,
	}
}

// ClothingImage is one original photo of a project
type ClothingImage struct {
	Path  string
	Image *image.NRGBA
}

// State tracks how far a ProcessedImage has progressed
type State int

const (
	StateUnprocessed State = iota
	StateBackgroundRemoved
	StateBackgroundResolved
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnprocessed:
		return "unprocessed"
	case StateBackgroundRemoved:
		return "background-removed"
	case StateBackgroundResolved:
		return "background-resolved"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// ProcessedImage is the mutable output record of one clothing image.
// Processed is only meaningful when State is StateReady.
type ProcessedImage struct {
	Path       string
	NoBG       *image.NRGBA
	BGPath     string
	UserBGPath string
	Processed  *image.NRGBA
	// Generation identifies the render held in Processed; every composition
	// gets a new value
	Generation uint64

	Adjustments

	UseSolidBG         bool
	IndividualOverride bool
	SkipBGRemoval      bool

	State State
}

// NewProcessedImage returns a fully populated record with default adjustments
func NewProcessedImage(path string, useSolidBG bool) *ProcessedImage {
	return &ProcessedImage{
		Path:        path,
		Adjustments: DefaultAdjustments(),
		UseSolidBG:  useSolidBG,
		State:       StateUnprocessed,
	}
}

// Reset returns the record to its defaults, keeping the path
func (p *ProcessedImage) Reset(useSolidBG bool) {
	*p = *NewProcessedImage(p.Path, useSolidBG)
}

// Invalidate drops the rendered output and steps the state back to s
func (p *ProcessedImage) Invalidate(s State) {
	p.Processed = nil
	if s < p.State {
		p.State = s
	}
	if p.State < StateBackgroundRemoved {
		p.NoBG = nil
	}
}

// IsReady reports whether Processed reflects the current parameters
func (p *ProcessedImage) IsReady() bool {
	return p.State == StateReady && p.Processed != nil
}

// Progress is emitted during batch processing
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// TagSuggestion is what a vision model reports about a clothing item
type TagSuggestion struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Colors      []string `json:"colors"`
	Tags        []string `json:"tags"`
	Confidence  float64  `json:"confidence"`
}
