package processing

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

// createTestImage creates a half transparent gradient image
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			a := uint8(255)
			if x < width/2 {
				a = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{uint8((x * 255) / width), uint8((y * 255) / height), 128, a})
		}
	}
	return img
}

func TestToNRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 30, 20))
	src.Set(10, 10, color.RGBA{255, 0, 0, 255})

	got := ToNRGBA(src)
	if got.Rect.Min != (image.Point{}) {
		t.Errorf("Expected zero origin, got %v", got.Rect.Min)
	}
	if got.Rect.Dx() != 20 || got.Rect.Dy() != 10 {
		t.Errorf("Expected 20x10, got %dx%d", got.Rect.Dx(), got.Rect.Dy())
	}
	if c := got.NRGBAAt(0, 0); c.R != 255 || c.A != 255 {
		t.Errorf("Expected opaque red at origin, got %v", c)
	}

	same := createTestImage(4, 4)
	if ToNRGBA(same) != same {
		t.Error("Expected zero-origin NRGBA to be returned without copying")
	}
}

func TestSaveAndLoadPNGKeepsAlpha(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(40, 20)
	path := filepath.Join(t.TempDir(), "out.png")

	if err := p.SaveImage(img, path, "png", 0, false); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	loaded, err := p.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if loaded.Rect.Dx() != 40 || loaded.Rect.Dy() != 20 {
		t.Errorf("Expected 40x20, got %dx%d", loaded.Rect.Dx(), loaded.Rect.Dy())
	}
	if a := loaded.NRGBAAt(0, 0).A; a != 0 {
		t.Errorf("Expected transparent pixel, got alpha %d", a)
	}
	if a := loaded.NRGBAAt(39, 0).A; a != 255 {
		t.Errorf("Expected opaque pixel, got alpha %d", a)
	}
}

func TestSaveJPEGFlattensOnWhite(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(40, 20)
	path := filepath.Join(t.TempDir(), "out.jpg")

	if err := p.SaveImage(img, path, "jpg", 95, false); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	loaded, err := p.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if loaded.Rect.Dx() != 40 || loaded.Rect.Dy() != 20 {
		t.Errorf("Expected 40x20, got %v", loaded.Rect)
	}
	if c := loaded.NRGBAAt(2, 10); c.R < 240 || c.G < 240 || c.B < 240 || c.A != 255 {
		t.Errorf("Expected transparent area to become white, got %v", c)
	}
	if c := loaded.NRGBAAt(37, 10); c.B > 160 || c.B < 100 {
		t.Errorf("Expected opaque area to keep its color, got %v", c)
	}
}

func TestSaveWebP(t *testing.T) {
	p := NewProcessor()
	path := filepath.Join(t.TempDir(), "out.webp")

	if err := p.SaveImage(createTestImage(16, 16), path, "webp", 90, true); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	loaded, err := p.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if loaded.Rect.Dx() != 16 {
		t.Errorf("Expected width 16, got %d", loaded.Rect.Dx())
	}
}

func TestLoadImageErrors(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()

	if _, err := p.LoadImage(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}

	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.LoadImage(corrupt); err == nil {
		t.Error("Expected error for corrupt file")
	}
}

func TestEncodeDecodeBytes(t *testing.T) {
	p := NewProcessor()
	data, err := p.EncodePNG(createTestImage(8, 6))
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	img, err := p.DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if img.Rect.Dx() != 8 || img.Rect.Dy() != 6 {
		t.Errorf("Expected 8x6, got %dx%d", img.Rect.Dx(), img.Rect.Dy())
	}

	if _, err := p.DecodeBytes([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for garbage bytes")
	}
}
