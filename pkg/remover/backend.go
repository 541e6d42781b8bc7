package remover

import (
	"fmt"
	"strings"
	"time"

	"github.com/menta2k/listingkit/pkg/client"
	"github.com/menta2k/listingkit/pkg/rembg"
)

// Backend names accepted by NewSegmenter
const (
	BackendNone    = "none"
	BackendRembg   = "rembg"
	BackendGrabCut = "grabcut"
)

// BackendOptions configures the segmentation backend
type BackendOptions struct {
	URL        string
	Model      string
	Timeout    time.Duration
	Iterations int
	BorderSize int
}

// NewSegmenter builds the segmentation backend named by backend. The "none"
// backend returns a nil Segmenter, which makes RemoveBackground a pass-through.
func NewSegmenter(backend string, opts BackendOptions) (client.Segmenter, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendRembg:
		c, err := rembg.NewClient(opts.URL, opts.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create rembg client: %w", err)
		}
		c.SetTimeout(opts.Timeout)
		return c, nil
	case BackendGrabCut:
		return newGrabCutSegmenter(opts)
	default:
		return nil, fmt.Errorf("unknown remover backend: %s", backend)
	}
}
