//go:build !gocv

package remover

import (
	"errors"

	"github.com/menta2k/listingkit/pkg/client"
)

// ErrGrabCutUnavailable is returned when the binary was built without OpenCV
var ErrGrabCutUnavailable = errors.New("grabcut backend requires building with -tags gocv")

func newGrabCutSegmenter(BackendOptions) (client.Segmenter, error) {
	return nil, ErrGrabCutUnavailable
}
