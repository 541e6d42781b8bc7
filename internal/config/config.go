package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/menta2k/listingkit/pkg/analyzer"
	"github.com/menta2k/listingkit/pkg/remover"
	"github.com/menta2k/listingkit/pkg/selector"
)

// Config holds the application configuration
type Config struct {
	Canvas      CanvasConfig      `mapstructure:"canvas"`
	Processing  ProcessingConfig  `mapstructure:"processing"`
	Remover     RemoverConfig     `mapstructure:"remover"`
	Selector    SelectorConfig    `mapstructure:"selector"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Backgrounds BackgroundsConfig `mapstructure:"backgrounds"`
	Tagger      TaggerConfig      `mapstructure:"tagger"`
	Log         LogConfig         `mapstructure:"log"`
}

// CanvasConfig holds the output frame sizes
type CanvasConfig struct {
	VerticalWidth    int `mapstructure:"vertical_width"`
	VerticalHeight   int `mapstructure:"vertical_height"`
	HorizontalWidth  int `mapstructure:"horizontal_width"`
	HorizontalHeight int `mapstructure:"horizontal_height"`
}

// ProcessingConfig holds project-wide processing defaults
type ProcessingConfig struct {
	UseSolidBG   bool   `mapstructure:"use_solid_bg"`
	Units        string `mapstructure:"units"`
	OutputDir    string `mapstructure:"output_dir"`
	OutputPrefix string `mapstructure:"output_prefix"`
	OutputFormat string `mapstructure:"output_format"`
	Quality      int    `mapstructure:"quality"`
	Language     string `mapstructure:"language"`
	HashtagFile  string `mapstructure:"hashtag_file"`
}

// RemoverConfig holds background removal settings
type RemoverConfig struct {
	Backend    string        `mapstructure:"backend"`
	URL        string        `mapstructure:"url"`
	Model      string        `mapstructure:"model"`
	MaxSize    int           `mapstructure:"max_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Iterations int           `mapstructure:"iterations"`
	BorderSize int           `mapstructure:"border_size"`
}

// SelectorConfig holds background scoring settings
type SelectorConfig struct {
	Strategy         string  `mapstructure:"strategy"`
	Metric           string  `mapstructure:"metric"`
	ComplementWeight float64 `mapstructure:"complement_weight"`
}

// CacheConfig holds cache capacities
type CacheConfig struct {
	DominantColorSize   int `mapstructure:"dominant_color_size"`
	BackgroundColorSize int `mapstructure:"background_color_size"`
	ThumbnailSize       int `mapstructure:"thumbnail_size"`
}

// PipelineConfig holds batch processing settings
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// BackgroundsConfig locates the background library
type BackgroundsConfig struct {
	Dir string `mapstructure:"dir"`
}

// TaggerConfig holds vision model settings
type TaggerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig selects the logger
type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// Default returns a configuration with default values
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return &cfg
}

// LoadFromFile loads configuration from a YAML or JSON file. Missing keys
// keep their defaults and LISTINGKIT_* environment variables override both.
func LoadFromFile(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.SetConfigType(configType(filename))
	v.SetEnvPrefix("LISTINGKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// SaveToFile saves configuration as YAML or JSON depending on the extension
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configType(filename))
	for key, value := range c.settings() {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(filename); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate normalizes the case of enumerated values and checks if the
// configuration is valid
func (c *Config) Validate() error {
	c.normalize()

	if c.Canvas.VerticalWidth < 1 || c.Canvas.VerticalHeight < 1 ||
		c.Canvas.HorizontalWidth < 1 || c.Canvas.HorizontalHeight < 1 {
		return fmt.Errorf("canvas sizes must be positive")
	}

	if c.Processing.Quality < 1 || c.Processing.Quality > 100 {
		return fmt.Errorf("processing.quality must be between 1 and 100")
	}

	switch c.Processing.OutputFormat {
	case "png", "webp", "jpg", "jpeg":
	default:
		return fmt.Errorf("processing.output_format must be png, webp or jpg")
	}

	switch c.Remover.Backend {
	case remover.BackendNone, remover.BackendRembg, remover.BackendGrabCut:
	default:
		return fmt.Errorf("remover.backend must be one of none, rembg, grabcut")
	}

	if c.Remover.MaxSize < 1 {
		return fmt.Errorf("remover.max_size must be positive")
	}

	if _, err := selector.ParseStrategy(c.Selector.Strategy); err != nil {
		return fmt.Errorf("selector.strategy: %w", err)
	}

	if _, err := analyzer.ParseMetric(c.Selector.Metric); err != nil {
		return fmt.Errorf("selector.metric: %w", err)
	}

	if c.Selector.ComplementWeight < 0 {
		return fmt.Errorf("selector.complement_weight must not be negative")
	}

	if c.Cache.DominantColorSize < 1 || c.Cache.BackgroundColorSize < 1 || c.Cache.ThumbnailSize < 1 {
		return fmt.Errorf("cache sizes must be positive")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be positive")
	}

	if c.Tagger.Enabled && c.Tagger.URL == "" {
		return fmt.Errorf("tagger.url is required when the tagger is enabled")
	}

	return nil
}

func (c *Config) normalize() {
	lower := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	c.Processing.OutputFormat = lower(c.Processing.OutputFormat)
	c.Remover.Backend = lower(c.Remover.Backend)
	c.Selector.Strategy = lower(c.Selector.Strategy)
	c.Selector.Metric = lower(c.Selector.Metric)
	c.Log.Mode = lower(c.Log.Mode)
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "listingkit", "config.yaml")
}

func configType(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		return "json"
	}
	return "yaml"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("canvas.vertical_width", 600)
	v.SetDefault("canvas.vertical_height", 800)
	v.SetDefault("canvas.horizontal_width", 800)
	v.SetDefault("canvas.horizontal_height", 600)

	v.SetDefault("processing.use_solid_bg", false)
	v.SetDefault("processing.units", "cm")
	v.SetDefault("processing.output_dir", "./output")
	v.SetDefault("processing.output_prefix", "")
	v.SetDefault("processing.output_format", "png")
	v.SetDefault("processing.quality", 90)
	v.SetDefault("processing.language", "en")
	v.SetDefault("processing.hashtag_file", "")

	v.SetDefault("remover.backend", remover.BackendRembg)
	v.SetDefault("remover.url", "http://localhost:7000")
	v.SetDefault("remover.model", "")
	v.SetDefault("remover.max_size", 1200)
	v.SetDefault("remover.timeout", 2*time.Minute)
	v.SetDefault("remover.iterations", 5)
	v.SetDefault("remover.border_size", 10)

	v.SetDefault("selector.strategy", "contrast")
	v.SetDefault("selector.metric", "rgb")
	v.SetDefault("selector.complement_weight", 0.5)

	v.SetDefault("cache.dominant_color_size", 200)
	v.SetDefault("cache.background_color_size", 200)
	v.SetDefault("cache.thumbnail_size", 100)

	v.SetDefault("pipeline.workers", 4)

	v.SetDefault("backgrounds.dir", "./backgrounds")

	v.SetDefault("tagger.enabled", false)
	v.SetDefault("tagger.url", "http://localhost:11434")
	v.SetDefault("tagger.model", "llava")
	v.SetDefault("tagger.timeout", 5*time.Minute)

	v.SetDefault("log.mode", "development")
}

// settings flattens c into viper keys
func (c *Config) settings() map[string]any {
	return map[string]any{
		"canvas.vertical_width":    c.Canvas.VerticalWidth,
		"canvas.vertical_height":   c.Canvas.VerticalHeight,
		"canvas.horizontal_width":  c.Canvas.HorizontalWidth,
		"canvas.horizontal_height": c.Canvas.HorizontalHeight,

		"processing.use_solid_bg":  c.Processing.UseSolidBG,
		"processing.units":         c.Processing.Units,
		"processing.output_dir":    c.Processing.OutputDir,
		"processing.output_prefix": c.Processing.OutputPrefix,
		"processing.output_format": c.Processing.OutputFormat,
		"processing.quality":       c.Processing.Quality,
		"processing.language":      c.Processing.Language,
		"processing.hashtag_file":  c.Processing.HashtagFile,

		"remover.backend":     c.Remover.Backend,
		"remover.url":         c.Remover.URL,
		"remover.model":       c.Remover.Model,
		"remover.max_size":    c.Remover.MaxSize,
		"remover.timeout":     c.Remover.Timeout.String(),
		"remover.iterations":  c.Remover.Iterations,
		"remover.border_size": c.Remover.BorderSize,

		"selector.strategy":          c.Selector.Strategy,
		"selector.metric":            c.Selector.Metric,
		"selector.complement_weight": c.Selector.ComplementWeight,

		"cache.dominant_color_size":   c.Cache.DominantColorSize,
		"cache.background_color_size": c.Cache.BackgroundColorSize,
		"cache.thumbnail_size":        c.Cache.ThumbnailSize,

		"pipeline.workers": c.Pipeline.Workers,

		"backgrounds.dir": c.Backgrounds.Dir,

		"tagger.enabled": c.Tagger.Enabled,
		"tagger.url":     c.Tagger.URL,
		"tagger.model":   c.Tagger.Model,
		"tagger.timeout": c.Tagger.Timeout.String(),

		"log.mode": c.Log.Mode,
	}
}
