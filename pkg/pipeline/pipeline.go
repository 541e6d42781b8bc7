// Package pipeline ties the components together: it owns the projects, runs
// single-image edits synchronously and whole projects on a bounded worker
// pool with progress reporting and cancellation.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/menta2k/listingkit/internal/utils"
	"github.com/menta2k/listingkit/pkg/backgrounds"
	"github.com/menta2k/listingkit/pkg/compositor"
	"github.com/menta2k/listingkit/pkg/listing"
	"github.com/menta2k/listingkit/pkg/processing"
	"github.com/menta2k/listingkit/pkg/remover"
	"github.com/menta2k/listingkit/pkg/selector"
	"github.com/menta2k/listingkit/pkg/types"
)

var (
	ErrInvalidIndex = errors.New("invalid project or image index")
	ErrNoImages     = errors.New("project has no images")
)

// Loader opens an image file
type Loader func(path string) (image.Image, error)

// Config holds pipeline settings
type Config struct {
	Workers    int
	UseSolidBG bool
}

// DefaultConfig returns four workers and image backgrounds
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// Components are the processing stages a pipeline drives. Nil fields get
// default instances.
type Components struct {
	Remover    *remover.Remover
	Selector   *selector.Selector
	Compositor *compositor.Compositor
	Library    *backgrounds.Library
}

// Pipeline manages projects and their processing
type Pipeline struct {
	mu         sync.RWMutex
	projects   []*Project
	useSolidBG bool

	remover    *remover.Remover
	selector   *selector.Selector
	compositor *compositor.Compositor
	library    *backgrounds.Library

	load    Loader
	pool    *Pool
	renders atomic.Uint64
	logger  *zap.Logger
}

// New creates a pipeline and starts its worker pool
func New(c Components, config Config) *Pipeline {
	if c.Remover == nil {
		c.Remover = remover.New(nil)
	}
	if c.Selector == nil {
		c.Selector = selector.New(nil)
	}
	if c.Compositor == nil {
		c.Compositor = compositor.New(nil)
	}
	if c.Library == nil {
		c.Library = backgrounds.New("")
	}
	if config.Workers < 1 {
		config.Workers = DefaultConfig().Workers
	}

	proc := processing.NewProcessor()
	return &Pipeline{
		useSolidBG: config.UseSolidBG,
		remover:    c.Remover,
		selector:   c.Selector,
		compositor: c.Compositor,
		library:    c.Library,
		load: func(path string) (image.Image, error) {
			img, err := proc.LoadImage(path)
			if err != nil {
				return nil, err
			}
			return img, nil
		},
		pool:   StartPool(config.Workers),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for the pipeline
func (pl *Pipeline) SetLogger(logger *zap.Logger) {
	if logger != nil {
		pl.logger = logger
	}
}

// SetLoader replaces how background files are opened
func (pl *Pipeline) SetLoader(load Loader) {
	if load != nil {
		pl.load = load
	}
}

// SetUseSolidBG changes the project-wide background default. Images without
// an individual override pick it up on the next batch run.
func (pl *Pipeline) SetUseSolidBG(v bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.useSolidBG = v
}

// UseSolidBG returns the project-wide background default
func (pl *Pipeline) UseSolidBG() bool {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.useSolidBG
}

// Close stops accepting jobs and waits for queued ones
func (pl *Pipeline) Close() {
	pl.pool.Wait(true)
}

// AddProject appends a project built from decoded images and returns its index
func (pl *Pipeline) AddProject(name string, images []types.ClothingImage) int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.projects = append(pl.projects, NewProject(name, images))
	return len(pl.projects) - 1
}

// LoadProject decodes paths into a new project. Files that fail to load are
// reported and skipped; a project with nothing loadable is not created.
func (pl *Pipeline) LoadProject(name string, paths []string) (int, []string, error) {
	proc := processing.NewProcessor()
	var images []types.ClothingImage
	var errs []string
	for _, path := range paths {
		img, err := proc.LoadImage(path)
		if err != nil {
			pl.logger.Warn("failed to load image", zap.String("path", path), zap.Error(err))
			errs = append(errs, fmt.Sprintf("Failed to load: %s", filepath.Base(path)))
			continue
		}
		images = append(images, types.ClothingImage{Path: path, Image: img})
	}
	if len(images) == 0 {
		return -1, errs, ErrNoImages
	}
	return pl.AddProject(name, images), errs, nil
}

// LoadProjectsFromDir creates one project per sub-folder of dir. A folder's
// description.txt, when present, becomes the project description.
func (pl *Pipeline) LoadProjectsFromDir(dir string) ([]int, []string, error) {
	dirs, err := utils.ListSubdirs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var indices []int
	var errs []string
	for _, d := range dirs {
		files, err := utils.ListImageFilesFlat(d)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Failed to read %s: %v", filepath.Base(d), err))
			continue
		}
		idx, loadErrs, err := pl.LoadProject(filepath.Base(d), files)
		errs = append(errs, loadErrs...)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Skipped %s: %v", filepath.Base(d), err))
			continue
		}
		if desc := listing.ReadDescription(d); desc != "" {
			p, _ := pl.Project(idx)
			l := p.Listing()
			l.Description = desc
			p.SetListing(l)
		}
		indices = append(indices, idx)
	}
	return indices, errs, nil
}

// ProjectCount returns the number of projects
func (pl *Pipeline) ProjectCount() int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return len(pl.projects)
}

// Project returns the project at idx
func (pl *Pipeline) Project(idx int) (*Project, error) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	if idx < 0 || idx >= len(pl.projects) {
		return nil, fmt.Errorf("%w: project %d", ErrInvalidIndex, idx)
	}
	return pl.projects[idx], nil
}

// RemoveProject deletes the project at idx. Later projects shift down.
func (pl *Pipeline) RemoveProject(idx int) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if idx < 0 || idx >= len(pl.projects) {
		return fmt.Errorf("%w: project %d", ErrInvalidIndex, idx)
	}
	pl.projects = append(pl.projects[:idx], pl.projects[idx+1:]...)
	return nil
}
