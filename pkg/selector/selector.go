package selector

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/listingkit/pkg/analyzer"
	"github.com/menta2k/listingkit/pkg/cache"
	"github.com/menta2k/listingkit/pkg/processing"
	"github.com/menta2k/listingkit/pkg/types"
)

// Strategy decides how a background candidate is scored against a target color
type Strategy int

const (
	// StrategyContrast rewards distance from the subject and penalizes
	// distance from its complementary color
	StrategyContrast Strategy = iota
	// StrategyComplement picks the candidate closest to the complementary color
	StrategyComplement
	// StrategyNearest picks the candidate closest to the subject color
	StrategyNearest
)

func (s Strategy) String() string {
	switch s {
	case StrategyContrast:
		return "contrast"
	case StrategyComplement:
		return "complement"
	case StrategyNearest:
		return "nearest"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a config value to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "contrast":
		return StrategyContrast, nil
	case "complement", "complementary":
		return StrategyComplement, nil
	case "nearest":
		return StrategyNearest, nil
	default:
		return StrategyContrast, fmt.Errorf("unknown selector strategy: %s", s)
	}
}

// Loader opens a background candidate
type Loader func(path string) (image.Image, error)

// Config holds configuration for background selection
type Config struct {
	Strategy Strategy
	Metric   analyzer.Metric
	// ComplementWeight scales the complement penalty of StrategyContrast
	ComplementWeight float64
	// CacheSize bounds the per-path candidate color cache
	CacheSize int
}

// DefaultConfig returns the contrast strategy with RGB distances
func DefaultConfig() Config {
	return Config{
		Strategy:         StrategyContrast,
		Metric:           analyzer.MetricRGB,
		ComplementWeight: 0.5,
		CacheSize:        200,
	}
}

// Selector picks stock backgrounds that contrast with clothing cutouts
type Selector struct {
	config   Config
	analyzer *analyzer.ColorAnalyzer
	load     Loader
	colors   *cache.Bounded[string, types.Color]
	logger   *zap.Logger
}

// Candidate is one scored background
type Candidate struct {
	Path  string      `json:"path"`
	Color types.Color `json:"color"`
	Score float64     `json:"score"`
}

// New creates a new Selector with default configuration
func New(a *analyzer.ColorAnalyzer) *Selector {
	return NewWithConfig(DefaultConfig(), a)
}

// NewWithConfig creates a new Selector with custom configuration
func NewWithConfig(config Config, a *analyzer.ColorAnalyzer) *Selector {
	if a == nil {
		a = analyzer.New()
	}
	if config.CacheSize < 1 {
		config.CacheSize = 200
	}
	p := processing.NewProcessor()
	return &Selector{
		config:   config,
		analyzer: a,
		load: func(path string) (image.Image, error) {
			return p.LoadImage(path)
		},
		colors: cache.New[string, types.Color](config.CacheSize),
		logger: zap.NewNop(),
	}
}

// SetLoader allows replacing how candidates are opened
func (s *Selector) SetLoader(load Loader) {
	if load != nil {
		s.load = load
	}
}

// SetLogger replaces the selector's logger
func (s *Selector) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Forget drops the cached color of a candidate, for example after the file changed
func (s *Selector) Forget(path string) {
	s.colors.Remove(path)
}

// CandidateColor returns the dominant color of the background at path,
// including transparent pixels. Results are cached by path.
func (s *Selector) CandidateColor(path string) (types.Color, error) {
	return s.colors.GetOrCompute(path, func() (types.Color, error) {
		img, err := s.load(path)
		if err != nil {
			return types.Color{}, fmt.Errorf("failed to load background %s: %w", path, err)
		}
		return s.analyzer.DominantColor(img, false), nil
	})
}

// FindBestBackground returns the candidate that contrasts best with subject.
// The boolean is false when no candidate could be scored.
func (s *Selector) FindBestBackground(subject image.Image, candidates []string) (string, bool) {
	if subject == nil || len(candidates) == 0 {
		return "", false
	}
	return s.FindBestBackgroundForColor(s.analyzer.DominantColor(subject, true), candidates)
}

// FindBestBackgroundForProject scores candidates against the average
// dominant color of all subjects, so one background suits the whole project.
func (s *Selector) FindBestBackgroundForProject(subjects []image.Image, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	colors := make([]types.Color, 0, len(subjects))
	for _, img := range subjects {
		if img == nil {
			continue
		}
		colors = append(colors, s.analyzer.DominantColor(img, true))
	}
	if len(colors) == 0 {
		return "", false
	}
	return s.FindBestBackgroundForColor(analyzer.AverageColor(colors), candidates)
}

// FindBestBackgroundForColor returns the highest scoring candidate for target.
// Ties keep the earlier candidate.
func (s *Selector) FindBestBackgroundForColor(target types.Color, candidates []string) (string, bool) {
	best := ""
	bestScore := math.Inf(-1)
	for _, c := range s.score(target, candidates) {
		if c.Score > bestScore {
			best, bestScore = c.Path, c.Score
		}
	}
	return best, best != ""
}

// Rank returns every loadable candidate scored against target, best first
func (s *Selector) Rank(target types.Color, candidates []string) []Candidate {
	scored := s.score(target, candidates)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func (s *Selector) score(target types.Color, candidates []string) []Candidate {
	comp := analyzer.Complementary(target)
	out := make([]Candidate, 0, len(candidates))
	for _, path := range candidates {
		bg, err := s.CandidateColor(path)
		if err != nil {
			s.logger.Debug("skipping background candidate", zap.String("path", path), zap.Error(err))
			continue
		}
		out = append(out, Candidate{Path: path, Color: bg, Score: s.scoreColor(target, comp, bg)})
	}
	return out
}

func (s *Selector) scoreColor(target, comp, bg types.Color) float64 {
	m := s.config.Metric
	switch s.config.Strategy {
	case StrategyComplement:
		return -analyzer.Distance(comp, bg, m)
	case StrategyNearest:
		return -analyzer.Distance(target, bg, m)
	default:
		return analyzer.Distance(target, bg, m) - s.config.ComplementWeight*analyzer.Distance(comp, bg, m)
	}
}
