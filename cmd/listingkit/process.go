package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/menta2k/listingkit"
	"github.com/menta2k/listingkit/internal/config"
	"github.com/menta2k/listingkit/internal/logging"
	"github.com/menta2k/listingkit/internal/utils"
	"github.com/menta2k/listingkit/pkg/types"
)

type ProcessCmd struct {
	Scan    string `arg:"" help:"Folder with one subfolder of photos per project" default:"."`
	Output  string `help:"Destination folder for exported projects" short:"o"`
	Prefix  string `help:"Prefix for exported project folders"`
	Format  string `help:"Output image format: png, webp or jpg"`
	Solid   bool   `help:"Compose on a solid complementary color instead of a library background"`
	Suggest bool   `help:"Fill empty tags and colors from the vision model"`
	Workers int    `help:"Parallel batch jobs" default:"0"`
}

func (c *ProcessCmd) Validate(kctx *kong.Context) error {
	scanDir, err := filepath.Abs(c.Scan)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(scanDir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}
	c.Scan = scanDir

	switch c.Format {
	case "", "png", "webp", "jpg", "jpeg":
	default:
		return fmt.Errorf("unsupported output format %q", c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

func (c *ProcessCmd) configure(cfg *config.Config) {
	if c.Output != "" {
		cfg.Processing.OutputDir = c.Output
	}
	if c.Prefix != "" {
		cfg.Processing.OutputPrefix = c.Prefix
	}
	if c.Format != "" {
		cfg.Processing.OutputFormat = c.Format
	}
	if c.Solid {
		cfg.Processing.UseSolidBG = true
	}
	if c.Suggest {
		cfg.Tagger.Enabled = true
	}
	if c.Workers > 0 {
		cfg.Pipeline.Workers = c.Workers
	}
}

func (c *ProcessCmd) Run(ctx context.Context, g *Globals) error {
	svc, logger, err := g.service(c.configure)
	if err != nil {
		return err
	}
	defer svc.Close()
	defer logging.Sync(logger)

	pl := svc.Pipeline()
	indices, warnings, err := pl.LoadProjectsFromDir(c.Scan)
	for _, w := range warnings {
		logger.Warn(w)
	}
	if err != nil {
		return fmt.Errorf("unable to load projects from %q: %w", c.Scan, err)
	}
	if len(indices) == 0 {
		return fmt.Errorf("no projects found in %q", c.Scan)
	}

	failed := 0
	for _, idx := range indices {
		if err := c.processOne(ctx, svc, logger, idx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Error("project failed", zap.Int("project", idx), zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d projects failed", failed, len(indices))
	}
	return nil
}

func (c *ProcessCmd) processOne(ctx context.Context, svc *listingkit.Service, logger *zap.Logger, idx int) error {
	p, err := svc.Pipeline().Project(idx)
	if err != nil {
		return err
	}
	plog := logger.With(zap.String("project", p.Name()))

	report, err := svc.Pipeline().ProcessProject(ctx, idx, func(pr types.Progress) {
		plog.Debug(pr.Message, zap.Int("current", pr.Current), zap.Int("total", pr.Total))
	})
	if err != nil {
		return err
	}
	for _, e := range report.Errors {
		plog.Warn(e)
	}
	plog.Info("processed",
		zap.Int("completed", report.Completed),
		zap.Int("skipped", report.Skipped),
		zap.String("background", filepath.Base(report.BackgroundPath)),
		zap.Duration("took", report.Duration))

	if c.Suggest {
		c.fillTags(ctx, svc, plog, idx)
	}

	if _, err := svc.GenerateDescription(idx); err != nil {
		return err
	}
	res, err := svc.ExportProject(idx, "")
	if err != nil {
		return err
	}

	folder := filepath.Join(svc.Config().Processing.OutputDir, res.Folder)
	entries, _ := os.ReadDir(folder)
	for _, e := range entries {
		if info, err := e.Info(); err == nil {
			plog.Debug("wrote", zap.String("file", e.Name()), zap.String("size", utils.FormatFileSize(info.Size())))
		}
	}
	fmt.Printf("%s -> %s (%d images, %d failed)\n", p.Name(), folder, res.ImagesSaved, res.ImagesFailed)
	return nil
}

// fillTags asks the vision model about the first image and keeps whatever the
// user has not set already
func (c *ProcessCmd) fillTags(ctx context.Context, svc *listingkit.Service, logger *zap.Logger, idx int) {
	s, err := svc.SuggestTags(ctx, idx, 0)
	if err != nil {
		logger.Warn("tag suggestion failed", zap.Error(err))
		return
	}
	p, _ := svc.Pipeline().Project(idx)
	l := p.Listing()
	if len(l.SelectedTags) == 0 {
		l.SelectedTags = s.Tags
	}
	if len(l.SelectedColors) == 0 {
		l.SelectedColors = s.Colors
	}
	if l.ClothingType == "" && s.Category != "none" && s.Category != "unknown" {
		l.ClothingType = s.Category
	}
	p.SetListing(l)
	logger.Info("tags suggested", zap.String("category", s.Category), zap.Strings("tags", s.Tags), zap.Float64("confidence", s.Confidence))
}
