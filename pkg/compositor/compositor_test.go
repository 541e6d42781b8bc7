package compositor

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/menta2k/listingkit/pkg/analyzer"
	"github.com/menta2k/listingkit/pkg/types"
)

// createSubject creates an opaque rectangle of the given size inside a
// transparent frame of padding pixels on every side
func createSubject(width, height, padding int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width+2*padding, height+2*padding))
	for y := padding; y < padding+height; y++ {
		for x := padding; x < padding+width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func near(got color.NRGBA, want color.NRGBA, tol int) bool {
	d := func(a, b uint8) bool {
		v := int(a) - int(b)
		return v <= tol && v >= -tol
	}
	return d(got.R, want.R) && d(got.G, want.G) && d(got.B, want.B) && d(got.A, want.A)
}

var red = color.NRGBA{255, 0, 0, 255}

func TestNew(t *testing.T) {
	c := New(nil)
	if c == nil {
		t.Fatal("New() returned nil")
	}
	if c.Canvas() != types.DefaultCanvas() {
		t.Errorf("Expected default canvas, got %+v", c.Canvas())
	}
}

func TestComposeRedSquareSolid(t *testing.T) {
	c := New(analyzer.New())
	subject := createSubject(500, 500, 0, red)
	adj := types.Adjustments{Scale: 1.0}

	res := c.Compose(subject, nil, adj, true)
	if res.Err != nil {
		t.Fatalf("Unexpected error: %v", res.Err)
	}
	if res.Image.Rect.Dx() != 600 || res.Image.Rect.Dy() != 800 {
		t.Fatalf("Expected 600x800 canvas, got %dx%d", res.Image.Rect.Dx(), res.Image.Rect.Dy())
	}
	if want := image.Rect(0, 100, 600, 700); res.Placement != want {
		t.Errorf("Expected placement %v, got %v", want, res.Placement)
	}

	if got := res.Image.NRGBAAt(300, 400); !near(got, red, 2) {
		t.Errorf("Expected red subject at center, got %v", got)
	}
	if got := res.Image.NRGBAAt(300, 110); !near(got, red, 2) {
		t.Errorf("Expected red near the top edge of the subject, got %v", got)
	}

	cyan := color.NRGBA{0, 255, 255, 255}
	for _, p := range []image.Point{{300, 50}, {10, 10}, {590, 790}} {
		if got := res.Image.NRGBAAt(p.X, p.Y); !near(got, cyan, 3) {
			t.Errorf("Expected cyan fill at %v, got %v", p, got)
		}
	}
	if res.Fill.R > 3 || res.Fill.G < 252 || res.Fill.B < 252 {
		t.Errorf("Expected cyan fill color, got %v", res.Fill)
	}
}

func TestComposeTrimsTransparentPadding(t *testing.T) {
	c := New(nil)
	blue := color.NRGBA{0, 0, 255, 255}
	padded := createSubject(10, 10, 45, blue)
	tight := createSubject(10, 10, 0, blue)
	adj := types.DefaultAdjustments()

	a := c.Compose(padded, nil, adj, true)
	b := c.Compose(tight, nil, adj, true)

	if a.Placement != b.Placement {
		t.Errorf("Expected padding to be ignored, got %v vs %v", a.Placement, b.Placement)
	}
	// 10px subject at 0.85 of the 600/10 fit
	if a.Placement.Dx() != 510 || a.Placement.Dy() != 510 {
		t.Errorf("Expected 510x510 subject, got %dx%d", a.Placement.Dx(), a.Placement.Dy())
	}
	for _, p := range []image.Point{{300, 400}, {50, 50}, {a.Placement.Min.X, a.Placement.Min.Y}} {
		if a.Image.NRGBAAt(p.X, p.Y) != b.Image.NRGBAAt(p.X, p.Y) {
			t.Errorf("Expected identical pixels at %v", p)
		}
	}
}

func TestComposePlacementStaysInsideCanvas(t *testing.T) {
	c := New(nil)
	subject := createSubject(200, 100, 0, red)
	canvas := image.Rect(0, 0, 600, 800)
	offsets := []float64{-1, -0.5, -0.1, 0, 0.1, 0.5, 1}

	for _, scale := range []float64{0.1, 0.5, 0.85, 1.0} {
		for _, vof := range offsets {
			for _, hof := range offsets {
				adj := types.Adjustments{VOF: vof, HOF: hof, Scale: scale}
				res := c.Compose(subject, nil, adj, true)
				if res.Err != nil {
					t.Fatalf("Unexpected error for %+v: %v", adj, res.Err)
				}
				if !res.Placement.In(canvas) {
					t.Errorf("Placement %v escapes canvas for %+v", res.Placement, adj)
				}
				wantW := int(200 * (math.Min(600.0/200, 800.0/100) * scale))
				if res.Placement.Dx() != wantW {
					t.Errorf("Expected subject width %d for %+v, got %d", wantW, adj, res.Placement.Dx())
				}
			}
		}
	}
}

func TestComposeOffsets(t *testing.T) {
	c := New(nil)
	subject := createSubject(10, 10, 0, red)

	res := c.Compose(subject, nil, types.Adjustments{HOF: 0.05, VOF: -0.05, Scale: 0.5}, true)
	// 300x300 centered at (150,250), moved by +30 and -40
	if want := image.Rect(180, 210, 480, 510); res.Placement != want {
		t.Errorf("Expected %v, got %v", want, res.Placement)
	}

	res = c.Compose(subject, nil, types.Adjustments{HOF: 1, VOF: 1, Scale: 0.5}, true)
	if want := image.Rect(300, 500, 600, 800); res.Placement != want {
		t.Errorf("Expected subject pinned to the far corner %v, got %v", want, res.Placement)
	}

	res = c.Compose(subject, nil, types.Adjustments{HOF: -1, VOF: -1, Scale: 0.5}, true)
	if want := image.Rect(0, 0, 300, 300); res.Placement != want {
		t.Errorf("Expected subject pinned to the origin %v, got %v", want, res.Placement)
	}
}

func TestComposeOversizedSubjectIsClipped(t *testing.T) {
	c := New(nil)
	res := c.Compose(createSubject(100, 100, 0, red), nil, types.Adjustments{Scale: 1.5}, true)
	if res.Err != nil {
		t.Fatalf("Unexpected error: %v", res.Err)
	}
	if !res.Placement.In(res.Image.Rect) {
		t.Errorf("Expected visible placement inside canvas, got %v", res.Placement)
	}
	if res.Placement.Min != (image.Point{}) {
		t.Errorf("Expected oversized subject pinned to origin, got %v", res.Placement.Min)
	}
}

func TestComposeRotationSwapsAspect(t *testing.T) {
	c := New(nil)
	subject := createSubject(400, 200, 0, red)

	flat := c.Compose(subject, nil, types.Adjustments{Scale: 1.0}, true)
	if flat.Placement.Dx() <= flat.Placement.Dy() {
		t.Errorf("Expected wide placement at 0 degrees, got %v", flat.Placement)
	}

	rotated := c.Compose(subject, nil, types.Adjustments{Scale: 1.0, RotationAngle: 90}, true)
	if rotated.Err != nil {
		t.Fatalf("Unexpected error: %v", rotated.Err)
	}
	if rotated.Placement.Dy() <= rotated.Placement.Dx() {
		t.Errorf("Expected tall placement at 90 degrees, got %v", rotated.Placement)
	}
	if want := image.Rect(100, 0, 500, 800); rotated.Placement != want {
		t.Errorf("Expected %v, got %v", want, rotated.Placement)
	}
}

func TestComposeArbitraryRotationTrimsCorners(t *testing.T) {
	c := New(nil)
	res := c.Compose(createSubject(100, 100, 0, red), nil, types.Adjustments{Scale: 0.5, RotationAngle: 45}, true)
	if res.Err != nil {
		t.Fatalf("Unexpected error: %v", res.Err)
	}
	// the rotated square is a diamond, so the corners of its box show the fill
	corner := res.Placement.Min.Add(image.Pt(2, 2))
	if got := res.Image.NRGBAAt(corner.X, corner.Y); got.R > 128 {
		t.Errorf("Expected fill in the diamond's corner, got %v", got)
	}
}

func TestComposeWithBackground(t *testing.T) {
	c := New(nil)
	green := color.NRGBA{0, 160, 0, 255}
	bg := createSubject(120, 90, 0, green)

	res := c.Compose(createSubject(50, 50, 0, red), bg, types.DefaultAdjustments(), false)
	if res.Err != nil {
		t.Fatalf("Unexpected error: %v", res.Err)
	}
	if got := res.Image.NRGBAAt(5, 5); !near(got, green, 2) {
		t.Errorf("Expected background at corner, got %v", got)
	}
	if res.Fill != (types.Color{}) {
		t.Errorf("Expected no solid fill, got %v", res.Fill)
	}

	// solid mode ignores the supplied background
	res = c.Compose(createSubject(50, 50, 0, red), bg, types.DefaultAdjustments(), true)
	if got := res.Image.NRGBAAt(5, 5); near(got, green, 2) {
		t.Errorf("Expected solid fill in solid mode, got %v", got)
	}
}

func TestComposeHorizontalCanvas(t *testing.T) {
	c := New(nil)
	adj := types.DefaultAdjustments()
	adj.IsHorizontal = true

	img := c.FitClothing(createSubject(50, 50, 0, red), nil, adj, true)
	if img.Rect.Dx() != 800 || img.Rect.Dy() != 600 {
		t.Errorf("Expected 800x600, got %dx%d", img.Rect.Dx(), img.Rect.Dy())
	}
}

func TestSetCanvas(t *testing.T) {
	c := New(nil)
	c.SetCanvas(types.Canvas{VerticalWidth: 300, VerticalHeight: 400, HorizontalWidth: 400, HorizontalHeight: 300})

	img := c.FitClothing(createSubject(50, 50, 0, red), nil, types.DefaultAdjustments(), true)
	if img.Rect.Dx() != 300 || img.Rect.Dy() != 400 {
		t.Errorf("Expected 300x400, got %dx%d", img.Rect.Dx(), img.Rect.Dy())
	}
}

func TestComposePlaceholder(t *testing.T) {
	c := New(nil)
	gray := Placeholder.NRGBA()

	res := c.Compose(nil, nil, types.DefaultAdjustments(), true)
	if res.Err == nil {
		t.Error("Expected error for nil subject")
	}
	if res.Image.Rect.Dx() != 600 || res.Image.Rect.Dy() != 800 {
		t.Errorf("Expected placeholder of canvas size, got %v", res.Image.Rect)
	}
	if got := res.Image.NRGBAAt(300, 400); got != gray {
		t.Errorf("Expected placeholder color, got %v", got)
	}

	res = c.Compose(createSubject(10, 10, 0, red), nil, types.Adjustments{Scale: 0}, true)
	if !errors.Is(res.Err, ErrEmptySubject) {
		t.Errorf("Expected ErrEmptySubject, got %v", res.Err)
	}
	if got := res.Image.NRGBAAt(0, 0); got != gray {
		t.Errorf("Expected placeholder color, got %v", got)
	}
}

func BenchmarkCompose(b *testing.B) {
	c := New(nil)
	subject := createSubject(800, 1000, 100, red)
	adj := types.DefaultAdjustments()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Compose(subject, nil, adj, true)
	}
}
