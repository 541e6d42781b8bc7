package remover

import (
	"testing"
	"time"

	"github.com/menta2k/listingkit/pkg/rembg"
)

func TestNewSegmenter(t *testing.T) {
	seg, err := NewSegmenter("none", BackendOptions{})
	if err != nil || seg != nil {
		t.Errorf("Expected nil segmenter for none, got %v (%v)", seg, err)
	}

	seg, err = NewSegmenter("REMBG", BackendOptions{URL: "http://localhost:7000", Timeout: time.Second})
	if err != nil {
		t.Fatalf("Expected rembg segmenter, got error %v", err)
	}
	if _, ok := seg.(*rembg.Client); !ok {
		t.Errorf("Expected *rembg.Client, got %T", seg)
	}

	if _, err := NewSegmenter("rembg", BackendOptions{URL: "localhost"}); err == nil {
		t.Error("Expected error for invalid rembg URL")
	}
	if _, err := NewSegmenter("magic", BackendOptions{}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
