//go:build gocv

package remover

import "github.com/menta2k/listingkit/pkg/client"

func newGrabCutSegmenter(opts BackendOptions) (client.Segmenter, error) {
	return NewGrabCut(opts.Iterations, opts.BorderSize), nil
}
