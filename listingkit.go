// Package listingkit turns raw clothing photos into marketplace-ready listing
// images and text.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"github.com/menta2k/listingkit"
//		"github.com/menta2k/listingkit/internal/config"
//	)
//
//	func main() {
//		svc, err := listingkit.NewWithConfig(config.Default(), nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer svc.Close()
//
//		idx, _, err := svc.Pipeline().LoadProject("jacket", []string{"front.jpg", "back.jpg"})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		report, err := svc.Pipeline().ProcessProject(context.Background(), idx, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("processed %d images on %s\n", report.Completed, report.BackgroundPath)
//
//		res, err := svc.ExportProject(idx, "./output")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println("saved to", res.Folder)
//	}
//
// The package wires these components:
//
// 1. Analyzer (pkg/analyzer): dominant, average and complementary colors
// 2. Remover (pkg/remover): background removal through a pluggable segmenter
// 3. Selector (pkg/selector): contrast-aware choice among stock backgrounds
// 4. Compositor (pkg/compositor): trims, rotates, scales and places the cutout
// 5. Pipeline (pkg/pipeline): projects, batch jobs, progress and cancellation
//
// Listing text and export live in pkg/listing, tag suggestions from a vision
// model in pkg/tagger.
package listingkit

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/menta2k/listingkit/internal/config"
	"github.com/menta2k/listingkit/pkg/analyzer"
	"github.com/menta2k/listingkit/pkg/backgrounds"
	"github.com/menta2k/listingkit/pkg/client"
	"github.com/menta2k/listingkit/pkg/compositor"
	"github.com/menta2k/listingkit/pkg/listing"
	"github.com/menta2k/listingkit/pkg/ollama"
	"github.com/menta2k/listingkit/pkg/pipeline"
	"github.com/menta2k/listingkit/pkg/processing"
	"github.com/menta2k/listingkit/pkg/remover"
	"github.com/menta2k/listingkit/pkg/selector"
	"github.com/menta2k/listingkit/pkg/tagger"
	"github.com/menta2k/listingkit/pkg/thumbnail"
	"github.com/menta2k/listingkit/pkg/types"
	"github.com/menta2k/listingkit/pkg/vision"
)

// Version of the listingkit library
const Version = "1.0.0"

// Settings are the values a user can change while the service runs
type Settings struct {
	Canvas       types.Canvas
	UseSolidBG   bool
	Units        string
	OutputPrefix string
}

// Service owns every component and cache; nothing is global
type Service struct {
	mu     sync.RWMutex
	config config.Config

	analyzer   *analyzer.ColorAnalyzer
	remover    *remover.Remover
	selector   *selector.Selector
	compositor *compositor.Compositor
	library    *backgrounds.Library
	thumbnails *thumbnail.Cache
	tagger     *tagger.Tagger
	pipeline   *pipeline.Pipeline
	mapping    listing.Mapping

	logger *zap.Logger
}

// New creates a service with default configuration and no logging
func New() (*Service, error) {
	return NewWithConfig(config.Default(), nil)
}

// NewWithConfig creates a service from cfg. A missing background folder or
// hashtag file is logged and tolerated.
func NewWithConfig(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := analyzer.NewWithConfig(analyzer.Config{
		SampleSize:  30,
		AlphaCutoff: 128,
		CacheSize:   cfg.Cache.DominantColorSize,
	})
	a.SetLogger(logger.Named("analyzer"))

	seg, err := remover.NewSegmenter(cfg.Remover.Backend, remover.BackendOptions{
		URL:        cfg.Remover.URL,
		Model:      cfg.Remover.Model,
		Timeout:    cfg.Remover.Timeout,
		Iterations: cfg.Remover.Iterations,
		BorderSize: cfg.Remover.BorderSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create segmenter: %w", err)
	}
	rem := remover.NewWithConfig(remover.Config{
		MaxSize: cfg.Remover.MaxSize,
		Timeout: cfg.Remover.Timeout,
	}, seg)
	rem.SetLogger(logger.Named("remover"))

	strategy, err := selector.ParseStrategy(cfg.Selector.Strategy)
	if err != nil {
		return nil, err
	}
	metric, err := analyzer.ParseMetric(cfg.Selector.Metric)
	if err != nil {
		return nil, err
	}
	sel := selector.NewWithConfig(selector.Config{
		Strategy:         strategy,
		Metric:           metric,
		ComplementWeight: cfg.Selector.ComplementWeight,
		CacheSize:        cfg.Cache.BackgroundColorSize,
	}, a)
	sel.SetLogger(logger.Named("selector"))

	comp := compositor.NewWithConfig(compositor.Config{
		Canvas:         canvasFromConfig(cfg.Canvas),
		AlphaThreshold: vision.DefaultAlphaThreshold,
		Placeholder:    compositor.Placeholder,
	}, a)
	comp.SetLogger(logger.Named("compositor"))

	lib := backgrounds.New(cfg.Backgrounds.Dir)
	lib.SetLogger(logger.Named("backgrounds"))
	if n, err := lib.Refresh(); err != nil {
		logger.Warn("background library unavailable", zap.String("dir", cfg.Backgrounds.Dir), zap.Error(err))
	} else {
		logger.Info("background library loaded", zap.String("dir", cfg.Backgrounds.Dir), zap.Int("count", n))
	}

	var vc client.VisionClient
	if cfg.Tagger.Enabled {
		oc, err := ollama.NewClient(cfg.Tagger.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create vision client: %w", err)
		}
		oc.SetTimeout(cfg.Tagger.Timeout)
		vc = oc
	}
	tg := tagger.NewWithConfig(tagger.Config{Model: cfg.Tagger.Model}, vc, a)
	tg.SetLogger(logger.Named("tagger"))

	var mapping listing.Mapping
	if cfg.Processing.HashtagFile != "" {
		if mapping, err = listing.LoadMapping(cfg.Processing.HashtagFile); err != nil {
			logger.Warn("hashtag mapping unavailable", zap.Error(err))
		}
	}

	pl := pipeline.New(pipeline.Components{
		Remover:    rem,
		Selector:   sel,
		Compositor: comp,
		Library:    lib,
	}, pipeline.Config{
		Workers:    cfg.Pipeline.Workers,
		UseSolidBG: cfg.Processing.UseSolidBG,
	})
	pl.SetLogger(logger.Named("pipeline"))

	return &Service{
		config:     *cfg,
		analyzer:   a,
		remover:    rem,
		selector:   sel,
		compositor: comp,
		library:    lib,
		thumbnails: thumbnail.New(cfg.Cache.ThumbnailSize),
		tagger:     tg,
		pipeline:   pl,
		mapping:    mapping,
		logger:     logger,
	}, nil
}

func canvasFromConfig(c config.CanvasConfig) types.Canvas {
	return types.Canvas{
		VerticalWidth:    c.VerticalWidth,
		VerticalHeight:   c.VerticalHeight,
		HorizontalWidth:  c.HorizontalWidth,
		HorizontalHeight: c.HorizontalHeight,
	}
}

// Close waits for queued batch jobs and stops the worker pool
func (s *Service) Close() {
	s.pipeline.Close()
}

// Pipeline returns the project pipeline
func (s *Service) Pipeline() *pipeline.Pipeline {
	return s.pipeline
}

// Library returns the background library
func (s *Service) Library() *backgrounds.Library {
	return s.library
}

// Config returns a copy of the current configuration
func (s *Service) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Settings returns the current user settings
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Settings{
		Canvas:       canvasFromConfig(s.config.Canvas),
		UseSolidBG:   s.config.Processing.UseSolidBG,
		Units:        s.config.Processing.Units,
		OutputPrefix: s.config.Processing.OutputPrefix,
	}
}

// UpdateSettings applies new settings. Canvas changes affect the next
// composition; images already rendered keep their size until re-rendered.
func (s *Service) UpdateSettings(st Settings) error {
	c := st.Canvas
	if c.VerticalWidth < 1 || c.VerticalHeight < 1 || c.HorizontalWidth < 1 || c.HorizontalHeight < 1 {
		return fmt.Errorf("canvas sizes must be positive")
	}

	s.mu.Lock()
	s.config.Canvas = config.CanvasConfig{
		VerticalWidth:    c.VerticalWidth,
		VerticalHeight:   c.VerticalHeight,
		HorizontalWidth:  c.HorizontalWidth,
		HorizontalHeight: c.HorizontalHeight,
	}
	s.config.Processing.UseSolidBG = st.UseSolidBG
	if st.Units != "" {
		s.config.Processing.Units = st.Units
	}
	s.config.Processing.OutputPrefix = st.OutputPrefix
	s.mu.Unlock()

	s.compositor.SetCanvas(c)
	s.pipeline.SetUseSolidBG(st.UseSolidBG)
	s.logger.Info("settings updated",
		zap.Int("vertical_width", c.VerticalWidth),
		zap.Int("vertical_height", c.VerticalHeight),
		zap.Bool("solid", st.UseSolidBG))
	return nil
}

// GenerateDescription renders and stores the listing text of a project
func (s *Service) GenerateDescription(projectIdx int) (string, error) {
	p, err := s.pipeline.Project(projectIdx)
	if err != nil {
		return "", err
	}
	units := s.Settings().Units

	l := p.Listing()
	l.Description = listing.GenerateDescription(l, units, s.mapping, time.Now())
	p.SetListing(l)
	return l.Description, nil
}

// ExportProject writes the processed images and description of a project
// into a new folder under outputDir
func (s *Service) ExportProject(projectIdx int, outputDir string) (listing.ExportResult, error) {
	p, err := s.pipeline.Project(projectIdx)
	if err != nil {
		return listing.ExportResult{}, err
	}
	cfg := s.Config()
	if outputDir == "" {
		outputDir = cfg.Processing.OutputDir
	}

	res, err := listing.SaveProjectOutput(outputDir, projectIdx, p.Outputs(), p.Listing().Description, listing.ExportOptions{
		Prefix:  cfg.Processing.OutputPrefix,
		Format:  cfg.Processing.OutputFormat,
		Quality: cfg.Processing.Quality,
	})
	if err != nil {
		return res, err
	}
	s.logger.Info("project exported",
		zap.String("folder", res.Folder),
		zap.Int("images", res.ImagesSaved),
		zap.Int("failed", res.ImagesFailed),
		zap.Bool("description", res.DescriptionOK))
	return res, nil
}

// SuggestTags asks the tagger about one image, using its cutout when present
func (s *Service) SuggestTags(ctx context.Context, projectIdx, imageIdx int) (*types.TagSuggestion, error) {
	img, err := s.subject(projectIdx, imageIdx)
	if err != nil {
		return nil, err
	}
	return s.tagger.Suggest(ctx, img)
}

// CheckVision asks the vision model a plain question about one image, to
// confirm that it is reachable and can see images
func (s *Service) CheckVision(ctx context.Context, projectIdx, imageIdx int) (string, error) {
	img, err := s.subject(projectIdx, imageIdx)
	if err != nil {
		return "", err
	}
	return s.tagger.TestVision(ctx, img)
}

func (s *Service) subject(projectIdx, imageIdx int) (image.Image, error) {
	p, err := s.pipeline.Project(projectIdx)
	if err != nil {
		return nil, err
	}
	if pi, ok := p.Processed(imageIdx); ok && pi.NoBG != nil {
		return pi.NoBG, nil
	}
	orig, ok := p.Image(imageIdx)
	if !ok || orig.Image == nil {
		return nil, fmt.Errorf("%w: image %d", pipeline.ErrInvalidIndex, imageIdx)
	}
	return orig.Image, nil
}

// Thumbnail returns a cached preview of an original or, with processed set,
// of its current composite
func (s *Service) Thumbnail(projectIdx, imageIdx int, size image.Point, processed bool) (*image.NRGBA, error) {
	p, err := s.pipeline.Project(projectIdx)
	if err != nil {
		return nil, err
	}
	orig, ok := p.Image(imageIdx)
	if !ok {
		return nil, fmt.Errorf("%w: image %d", pipeline.ErrInvalidIndex, imageIdx)
	}

	if !processed {
		if orig.Image == nil {
			return nil, errors.New("image not loaded")
		}
		return s.thumbnails.Get(orig.Path, size, func() (image.Image, error) {
			return orig.Image, nil
		})
	}

	pi, ok := p.Processed(imageIdx)
	if !ok || pi.Processed == nil {
		return nil, fmt.Errorf("image %d has no processed output", imageIdx)
	}
	// a re-render gets a new generation and so a new entry
	id := fmt.Sprintf("%s#processed@%d", orig.Path, pi.Generation)
	return s.thumbnails.Get(id, size, func() (image.Image, error) {
		return pi.Processed, nil
	})
}

// BackgroundThumbnail returns a cached preview of a background file
func (s *Service) BackgroundThumbnail(path string, size image.Point) (*image.NRGBA, error) {
	return s.thumbnails.GetPath(path, size)
}

// RankBackgrounds scores every library background against the dominant
// color of img, best first
func (s *Service) RankBackgrounds(img image.Image) []selector.Candidate {
	target := s.analyzer.DominantColor(img, true)
	return s.selector.Rank(target, s.library.Items())
}

// AddBackgrounds copies files into the background library
func (s *Service) AddBackgrounds(paths []string) (int, []string) {
	return s.library.AddFiles(paths)
}

// RemoveBackground deletes a background and drops everything cached for it
func (s *Service) RemoveBackground(path string) error {
	if err := s.library.Remove(path); err != nil {
		return err
	}
	s.selector.Forget(path)
	s.thumbnails.Invalidate(path)
	return nil
}

// LoadImage decodes an image file
func (s *Service) LoadImage(path string) (*image.NRGBA, error) {
	return processing.NewProcessor().LoadImage(path)
}
