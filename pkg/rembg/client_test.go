package rembg

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// createTestImage creates an opaque image with a colored center
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{240, 240, 240, 255}
			if x > width/4 && x < 3*width/4 && y > height/4 && y < 3*height/4 {
				c = color.NRGBA{200, 20, 20, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// newFakeServer returns a server that makes every pixel outside the center transparent
func newFakeServer(t *testing.T, gotModel *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/remove" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if gotModel != nil {
			*gotModel = r.FormValue("model")
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		src, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		b := src.Bounds()
		out := image.NewNRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
				if c.G > 100 {
					c.A = 0
				}
				out.SetNRGBA(x, y, c)
			}
		}
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, out)
	}))
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("", "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.baseURL != DefaultURL {
		t.Errorf("Expected %s, got %s", DefaultURL, c.baseURL)
	}

	c, err = NewClient("http://example.com:7000/", "u2net")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.baseURL != "http://example.com:7000" {
		t.Errorf("Expected trailing slash trimmed, got %s", c.baseURL)
	}

	if _, err := NewClient("example.com", ""); err == nil {
		t.Error("Expected error for URL without scheme")
	}
}

func TestSegment(t *testing.T) {
	var model string
	srv := newFakeServer(t, &model)
	defer srv.Close()

	c, err := NewClient(srv.URL, "isnet-general-use")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	out, err := c.Segment(context.Background(), createTestImage(40, 40))
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 40 {
		t.Errorf("Expected 40x40 cutout, got %v", out.Bounds())
	}
	if _, _, _, a := out.At(0, 0).RGBA(); a != 0 {
		t.Errorf("Expected transparent corner, got alpha %d", a)
	}
	if _, _, _, a := out.At(20, 20).RGBA(); a == 0 {
		t.Error("Expected opaque subject at center")
	}
	if model != "isnet-general-use" {
		t.Errorf("Expected model field to be sent, got %q", model)
	}
}

func TestSegmentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	if _, err := c.Segment(context.Background(), createTestImage(8, 8)); err == nil {
		t.Error("Expected error for server failure")
	}
}

func TestSegmentGarbageResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("definitely not a png"))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	if _, err := c.Segment(context.Background(), createTestImage(8, 8)); err == nil {
		t.Error("Expected error for undecodable response")
	}
}

func TestSegmentContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.Segment(ctx, createTestImage(8, 8)); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
