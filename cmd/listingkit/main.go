package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/menta2k/listingkit"
	"github.com/menta2k/listingkit/internal/config"
	"github.com/menta2k/listingkit/internal/logging"
	"github.com/menta2k/listingkit/internal/utils"
)

type Globals struct {
	Config string `help:"Configuration file (yaml or json)" short:"c" type:"path"`
	Log    string `help:"Log mode: development, release or quiet. Overrides the configuration file."`
}

type CLI struct {
	Globals

	Process     ProcessCmd     `cmd:"" help:"Process a folder of projects and export listing images"`
	Backgrounds BackgroundsCmd `cmd:"" help:"Manage the background library"`
	Tags        TagsCmd        `cmd:"" help:"Suggest listing tags for a photo"`
	Init        InitCmd        `cmd:"" help:"Write the default configuration file"`
	Version     VersionCmd     `cmd:"" help:"Print version"`
}

// load reads the configuration, falling back to the per-user file and then
// to defaults
func (g *Globals) load() (*config.Config, error) {
	path := g.Config
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load configuration %q: %w", path, err)
	}
	return cfg, nil
}

func (g *Globals) logger(cfg *config.Config) (*zap.Logger, error) {
	mode := cfg.Log.Mode
	if g.Log != "" {
		mode = g.Log
	}
	return logging.New(mode)
}

// service builds a Service after modify has adjusted the loaded configuration
func (g *Globals) service(modify func(*config.Config)) (*listingkit.Service, *zap.Logger, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, nil, err
	}
	if modify != nil {
		modify(cfg)
	}
	logger, err := g.logger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create logger: %w", err)
	}
	svc, err := listingkit.NewWithConfig(cfg, logger)
	if err != nil {
		logging.Sync(logger)
		return nil, nil, err
	}
	return svc, logger, nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("listingkit", listingkit.Version)
	return nil
}

type InitCmd struct {
	Path  string `arg:"" optional:"" help:"Destination file, defaults to the per-user configuration path" type:"path"`
	Force bool   `help:"Overwrite an existing file"`
}

func (c *InitCmd) Run() error {
	path := c.Path
	if path == "" {
		path = config.GetConfigPath()
	}
	if utils.FileExists(path) && !c.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := config.Default().SaveToFile(path); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	fmt.Println("wrote", path)
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("listingkit"),
		kong.Description("Turn clothing photos into marketplace listing images."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
