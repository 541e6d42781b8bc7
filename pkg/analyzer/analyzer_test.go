package analyzer

import (
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/menta2k/listingkit/pkg/types"
)

// createSolidImage creates an image filled with a single color
func createSolidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// createCutout creates a transparent image with an opaque centered square
func createCutout(width, height, side int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	x0, y0 := (width-side)/2, (height-side)/2
	for y := y0; y < y0+side; y++ {
		for x := x0; x < x0+side; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func closeTo(a, b types.Color, tol int) bool {
	d := func(x, y uint8) int {
		v := int(x) - int(y)
		if v < 0 {
			return -v
		}
		return v
	}
	return d(a.R, b.R) <= tol && d(a.G, b.G) <= tol && d(a.B, b.B) <= tol
}

func TestNew(t *testing.T) {
	a := New()
	if a == nil {
		t.Fatal("New() returned nil")
	}
	if a.config.SampleSize != 30 {
		t.Errorf("Expected sample size 30, got %d", a.config.SampleSize)
	}
	if a.config.CacheSize != 200 {
		t.Errorf("Expected cache size 200, got %d", a.config.CacheSize)
	}
}

func TestDominantColorSolid(t *testing.T) {
	a := New()
	img := createSolidImage(100, 80, color.NRGBA{200, 40, 10, 255})

	got := a.DominantColor(img, true)
	if !closeTo(got, types.Color{R: 200, G: 40, B: 10}, 1) {
		t.Errorf("Expected ~(200,40,10), got %v", got)
	}
}

func TestDominantColorIgnoresTransparent(t *testing.T) {
	a := New()
	img := createCutout(300, 300, 200, color.NRGBA{0, 0, 255, 255})

	got := a.DominantColor(img, true)
	if got.B < 200 || got.R > 30 || got.G > 30 {
		t.Errorf("Expected a blue dominant color, got %v", got)
	}

	// transparent pixels are (0,0,0,0) and pull the average toward black
	withAll := a.DominantColor(img, false)
	if withAll.B >= got.B {
		t.Errorf("Expected transparent pixels to darken the average, got %v vs %v", withAll, got)
	}
}

func TestDominantColorFullyTransparent(t *testing.T) {
	a := New()
	img := image.NewNRGBA(image.Rect(0, 0, 50, 50))

	if got := a.DominantColor(img, true); got != types.Neutral {
		t.Errorf("Expected neutral gray, got %v", got)
	}
}

func TestDominantColorNilAndEmpty(t *testing.T) {
	a := New()
	if got := a.DominantColor(nil, true); got != types.Neutral {
		t.Errorf("Expected neutral gray for nil image, got %v", got)
	}
	if got := a.DominantColor(image.NewNRGBA(image.Rect(0, 0, 0, 0)), true); got != types.Neutral {
		t.Errorf("Expected neutral gray for empty image, got %v", got)
	}
}

func TestDominantColorCacheByContent(t *testing.T) {
	a := New()
	img1 := createSolidImage(64, 64, color.NRGBA{10, 200, 30, 255})
	img2 := createSolidImage(64, 64, color.NRGBA{10, 200, 30, 255})

	c1 := a.DominantColor(img1, true)
	before := a.CacheLen()
	c2 := a.DominantColor(img2, true)

	if c1 != c2 {
		t.Errorf("Expected identical colors for identical pixels, got %v and %v", c1, c2)
	}
	if before != 1 {
		t.Errorf("Expected 1 cache entry after first call, got %d", before)
	}
	if a.CacheLen() != before {
		t.Errorf("Expected cache to stay at %d entries, got %d", before, a.CacheLen())
	}

	// the flag is part of the key
	a.DominantColor(img1, false)
	if a.CacheLen() != 2 {
		t.Errorf("Expected 2 cache entries, got %d", a.CacheLen())
	}
}

func TestDominantColorCacheBound(t *testing.T) {
	a := NewWithConfig(Config{SampleSize: 8, AlphaCutoff: 128, CacheSize: 10})
	for i := 0; i < 25; i++ {
		a.DominantColor(createSolidImage(4, 4, color.NRGBA{uint8(i), 0, 0, 255}), true)
	}
	if a.CacheLen() > 10 {
		t.Errorf("Expected at most 10 cache entries, got %d", a.CacheLen())
	}
}

func TestDominantColorConcurrent(t *testing.T) {
	a := New()
	img := createSolidImage(120, 120, color.NRGBA{90, 90, 180, 255})
	want := a.DominantColor(img, true)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := a.DominantColor(img, true); got != want {
				t.Errorf("Expected %v, got %v", want, got)
			}
		}()
	}
	wg.Wait()
}

func TestComplementaryPrimaries(t *testing.T) {
	tests := []struct {
		in, want types.Color
	}{
		{types.Color{R: 255}, types.Color{G: 255, B: 255}},
		{types.Color{G: 255}, types.Color{R: 255, B: 255}},
		{types.Color{B: 255}, types.Color{R: 255, G: 255}},
	}
	for _, tt := range tests {
		if got := Complementary(tt.in); got != tt.want {
			t.Errorf("Complementary(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestComplementaryInvolution(t *testing.T) {
	colors := []types.Color{
		{R: 255}, {G: 255}, {B: 255},
		{R: 255, G: 255}, {G: 255, B: 255}, {R: 255, B: 255},
		{R: 200, G: 60, B: 20},
		{R: 12, G: 130, B: 240},
	}
	for _, c := range colors {
		back := Complementary(Complementary(c))
		if !closeTo(back, c, 2) {
			t.Errorf("Expected double rotation of %v to return it, got %v", c, back)
		}
	}
}

func TestComplementaryGray(t *testing.T) {
	tests := []struct {
		in   types.Color
		want uint8
	}{
		{types.Color{R: 0, G: 0, B: 0}, 255},
		{types.Color{R: 255, G: 255, B: 255}, 0},
		{types.Color{R: 100, G: 100, B: 100}, 155},
	}
	for _, tt := range tests {
		got := Complementary(tt.in)
		if got.R != tt.want || got.G != tt.want || got.B != tt.want {
			t.Errorf("Complementary(%v): expected gray %d, got %v", tt.in, tt.want, got)
		}
	}
}

func TestComplementaryPreservesSaturationAndValue(t *testing.T) {
	c := types.Color{R: 180, G: 90, B: 30}
	h1, s1, v1 := rgbToHSV(c)
	comp := Complementary(c)
	h2, s2, v2 := rgbToHSV(comp)

	if math.Abs(s1-s2) > 0.02 {
		t.Errorf("Expected saturation %f, got %f", s1, s2)
	}
	if math.Abs(v1-v2) > 0.01 {
		t.Errorf("Expected value %f, got %f", v1, v2)
	}
	dh := math.Abs(h1 - h2)
	if math.Abs(dh-0.5) > 0.01 {
		t.Errorf("Expected hue shift of 0.5, got %f", dh)
	}
}

func TestAverageColor(t *testing.T) {
	got := AverageColor([]types.Color{{R: 10, G: 20, B: 30}, {R: 20, G: 40, B: 61}})
	want := types.Color{R: 15, G: 30, B: 45}
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if AverageColor(nil) != types.Neutral {
		t.Error("Expected neutral gray for no colors")
	}
}

func TestDistance(t *testing.T) {
	black := types.Color{}
	white := types.Color{R: 255, G: 255, B: 255}

	if d := Distance(black, white, MetricRGB); math.Abs(d-math.Sqrt(3*255*255)) > 1e-9 {
		t.Errorf("Expected RGB distance %f, got %f", math.Sqrt(3*255*255), d)
	}
	if d := Distance(white, white, MetricOKLab); d > 1e-9 {
		t.Errorf("Expected zero distance, got %f", d)
	}
	// black to white spans the full OKLab lightness axis
	if d := Distance(black, white, MetricOKLab); math.Abs(d-255) > 1 {
		t.Errorf("Expected OKLab distance ~255, got %f", d)
	}
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{"": MetricRGB, "rgb": MetricRGB, "OKLab": MetricOKLab} {
		got, err := ParseMetric(in)
		if err != nil || got != want {
			t.Errorf("ParseMetric(%q): expected %v, got %v (%v)", in, want, got, err)
		}
	}
	if _, err := ParseMetric("hsl"); err == nil {
		t.Error("Expected error for unknown metric")
	}
}

func TestColorName(t *testing.T) {
	tests := map[types.Color]string{
		{R: 250, G: 5, B: 5}:     "red",
		{R: 2, G: 2, B: 2}:       "black",
		{R: 250, G: 250, B: 250}: "white",
		{R: 5, G: 5, B: 240}:     "blue",
	}
	for c, want := range tests {
		if got := ColorName(c); got != want {
			t.Errorf("ColorName(%v): expected %s, got %s", c, want, got)
		}
	}
}

func TestPalette(t *testing.T) {
	a := New()
	img := createSolidImage(120, 120, color.NRGBA{220, 10, 10, 255})
	for y := 0; y < 120; y++ {
		for x := 72; x < 96; x++ {
			img.SetNRGBA(x, y, color.NRGBA{250, 250, 250, 255})
		}
		for x := 96; x < 120; x++ {
			img.SetNRGBA(x, y, color.NRGBA{10, 10, 230, 255})
		}
	}

	palette, err := a.Palette(img, 3)
	if err != nil {
		t.Fatalf("Palette failed: %v", err)
	}
	if len(palette) == 0 {
		t.Fatal("Expected at least one palette color")
	}
	foundRed := false
	for _, p := range palette {
		if p.Name == "red" {
			foundRed = true
		}
	}
	if !foundRed {
		t.Errorf("Expected red among the palette colors, got %v", palette)
	}
}

func BenchmarkDominantColor(b *testing.B) {
	a := New()
	img := createSolidImage(1200, 1600, color.NRGBA{120, 80, 40, 255})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.DominantColor(img, true)
	}
}
