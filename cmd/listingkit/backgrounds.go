package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/menta2k/listingkit/internal/config"
	"github.com/menta2k/listingkit/internal/logging"
	"github.com/menta2k/listingkit/internal/utils"
)

type BackgroundsCmd struct {
	Dir string `help:"Background library folder. Overrides the configuration file." type:"path"`

	List struct{} `cmd:"" help:"List library backgrounds"`
	Add  struct {
		Paths     []string `arg:"" help:"Image files or folders to copy into the library" type:"path"`
		Recursive bool     `help:"Also copy images from subfolders" short:"r"`
	} `cmd:"" help:"Copy images into the library"`
	Rm struct {
		Names []string `arg:"" help:"Background file names"`
	} `cmd:"" help:"Remove backgrounds from the library"`
	Suggest struct {
		Image string `arg:"" help:"Photo of the garment" type:"existingfile"`
		Top   int    `help:"Number of candidates to print" default:"5"`
	} `cmd:"" help:"Rank library backgrounds against a photo"`
}

func (c *BackgroundsCmd) Validate(kctx *kong.Context) error {
	if kctx.Selected() != nil && kctx.Selected().Name == "suggest" && c.Suggest.Top < 1 {
		return fmt.Errorf("top must be positive")
	}
	return nil
}

func (c *BackgroundsCmd) configure(cfg *config.Config) {
	if c.Dir != "" {
		cfg.Backgrounds.Dir = c.Dir
	}
	// ranking does not segment
	cfg.Remover.Backend = "none"
}

func (c *BackgroundsCmd) Run(kctx *kong.Context, g *Globals) error {
	svc, logger, err := g.service(c.configure)
	if err != nil {
		return err
	}
	defer svc.Close()
	defer logging.Sync(logger)

	lib := svc.Library()
	switch kctx.Selected().Name {
	case "list":
		for _, path := range lib.Items() {
			size := ""
			if info, err := os.Stat(path); err == nil {
				size = utils.FormatFileSize(info.Size())
			}
			fmt.Printf("%-40s %10s\n", filepath.Base(path), size)
		}
		fmt.Printf("%d backgrounds in %s\n", lib.Len(), lib.Dir())

	case "add":
		var files []string
		for _, p := range c.Add.Paths {
			if utils.DirExists(p) {
				add := lib.AddFromFolder
				if c.Add.Recursive {
					add = lib.AddFromTree
				}
				n, errs := add(p)
				logFailures(logger, errs)
				fmt.Printf("added %d from %s\n", n, p)
				continue
			}
			files = append(files, p)
		}
		if len(files) > 0 {
			n, errs := svc.AddBackgrounds(files)
			logFailures(logger, errs)
			fmt.Printf("added %d files\n", n)
		}

	case "rm":
		for _, name := range c.Rm.Names {
			path := filepath.Join(lib.Dir(), filepath.Base(name))
			if err := svc.RemoveBackground(path); err != nil {
				return fmt.Errorf("unable to remove %q: %w", name, err)
			}
			fmt.Println("removed", filepath.Base(path))
		}

	case "suggest":
		img, err := svc.LoadImage(c.Suggest.Image)
		if err != nil {
			return err
		}
		ranked := svc.RankBackgrounds(img)
		if len(ranked) == 0 {
			return fmt.Errorf("background library %s is empty", lib.Dir())
		}
		for i, cand := range ranked {
			if i == c.Suggest.Top {
				break
			}
			fmt.Printf("%2d. %-40s %s  %.3f\n", i+1, filepath.Base(cand.Path), cand.Color.Hex(), cand.Score)
		}
	}
	return nil
}

func logFailures(logger *zap.Logger, errs []string) {
	for _, e := range errs {
		logger.Warn(e)
	}
}

type TagsCmd struct {
	Image   string        `arg:"" help:"Photo of the garment" type:"existingfile"`
	URL     string        `help:"Ollama server URL. Overrides the configuration file."`
	Model   string        `help:"Vision model. Overrides the configuration file."`
	Timeout time.Duration `help:"Request timeout" default:"0s"`
	Check   bool          `help:"Only check that the model can see the image"`
}

func (c *TagsCmd) configure(cfg *config.Config) {
	cfg.Tagger.Enabled = true
	cfg.Remover.Backend = "none"
	if c.URL != "" {
		cfg.Tagger.URL = c.URL
	}
	if c.Model != "" {
		cfg.Tagger.Model = c.Model
	}
	if c.Timeout > 0 {
		cfg.Tagger.Timeout = c.Timeout
	}
}

func (c *TagsCmd) Run(ctx context.Context, g *Globals) error {
	svc, logger, err := g.service(c.configure)
	if err != nil {
		return err
	}
	defer svc.Close()
	defer logging.Sync(logger)

	idx, _, err := svc.Pipeline().LoadProject(filepath.Base(c.Image), []string{c.Image})
	if err != nil {
		return err
	}
	if c.Check {
		answer, err := svc.CheckVision(ctx, idx, 0)
		if err != nil {
			return fmt.Errorf("vision check failed: %w", err)
		}
		fmt.Println(answer)
		return nil
	}

	s, err := svc.SuggestTags(ctx, idx, 0)
	if err != nil {
		return err
	}
	js, _ := json.MarshalIndent(s, "", "  ")
	fmt.Println(string(js))
	return nil
}
