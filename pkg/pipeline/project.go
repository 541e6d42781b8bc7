package pipeline

import (
	"image"
	"sync"

	"github.com/menta2k/listingkit/pkg/listing"
	"github.com/menta2k/listingkit/pkg/types"
)

// Project is one listing: its original photos, their processed records and
// the listing text metadata. All access goes through the project's mutex;
// a batch job holds it for its whole run.
type Project struct {
	mu             sync.Mutex
	name           string
	images         []types.ClothingImage
	processed      []*types.ProcessedImage
	listing        listing.Listing
	backgroundPath string
}

// NewProject creates a project from already decoded images
func NewProject(name string, images []types.ClothingImage) *Project {
	return &Project{name: name, images: images}
}

// Name returns the project name
func (p *Project) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// ImageCount returns the number of original photos
func (p *Project) ImageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.images)
}

// Image returns one original photo
func (p *Project) Image(i int) (types.ClothingImage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.images) {
		return types.ClothingImage{}, false
	}
	return p.images[i], true
}

// Processed returns a copy of the processed record of image i. The copy
// shares its image buffers, which are never modified in place.
func (p *Project) Processed(i int) (types.ProcessedImage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.processed) || p.processed[i] == nil {
		return types.ProcessedImage{}, false
	}
	return *p.processed[i], true
}

// Outputs returns the composited image of every image, nil where none exists
func (p *Project) Outputs() []*image.NRGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*image.NRGBA, len(p.processed))
	for i, pi := range p.processed {
		if pi != nil {
			out[i] = pi.Processed
		}
	}
	return out
}

// Cutouts returns the background-removed image of every processed image
func (p *Project) Cutouts() []image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []image.Image
	for _, pi := range p.processed {
		if pi != nil && pi.NoBG != nil {
			out = append(out, pi.NoBG)
		}
	}
	return out
}

// Listing returns the listing metadata
func (p *Project) Listing() listing.Listing {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listing.Clone()
}

// SetListing replaces the listing metadata
func (p *Project) SetListing(l listing.Listing) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listing = l.Clone()
}

// BackgroundPath returns the background chosen for the whole project by the
// last batch run, empty when none was chosen
func (p *Project) BackgroundPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backgroundPath
}

// entry returns the processed record of image i, creating it with defaults.
// Callers hold p.mu.
func (p *Project) entry(i int, useSolidBG bool) *types.ProcessedImage {
	for len(p.processed) <= i {
		p.processed = append(p.processed, nil)
	}
	if p.processed[i] == nil {
		p.processed[i] = types.NewProcessedImage(p.images[i].Path, useSolidBG)
	}
	return p.processed[i]
}
