package analyzer

import (
	"fmt"
	"math"
	"strings"

	"github.com/menta2k/listingkit/pkg/types"
)

// Metric selects how the distance between two colors is measured
type Metric int

const (
	// MetricRGB is plain Euclidean distance in sRGB
	MetricRGB Metric = iota
	// MetricOKLab is Euclidean distance in OKLab, scaled to roughly the RGB range
	MetricOKLab
)

func (m Metric) String() string {
	switch m {
	case MetricRGB:
		return "rgb"
	case MetricOKLab:
		return "oklab"
	default:
		return "unknown"
	}
}

// ParseMetric maps a config value to a Metric
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rgb":
		return MetricRGB, nil
	case "oklab", "lab":
		return MetricOKLab, nil
	default:
		return MetricRGB, fmt.Errorf("unknown color metric: %s", s)
	}
}

// Distance measures how far apart two colors are
func Distance(a, b types.Color, m Metric) float64 {
	if m == MetricOKLab {
		la, lb := toOKLab(a), toOKLab(b)
		dL := la.l - lb.l
		dA := la.a - lb.a
		dB := la.b - lb.b
		return math.Sqrt(dL*dL+dA*dA+dB*dB) * 255
	}
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

type oklab struct {
	l, a, b float64
}

// based on https://bottosson.github.io/posts/oklab/
func toOKLab(c types.Color) oklab {
	r := srgbToLinear(c.R)
	g := srgbToLinear(c.G)
	b := srgbToLinear(c.B)

	l := math.Cbrt(0.4122214708*r + 0.5363325363*g + 0.0514459929*b)
	m := math.Cbrt(0.2119034982*r + 0.6806995451*g + 0.1073969566*b)
	s := math.Cbrt(0.0883024619*r + 0.2817188376*g + 0.6299787005*b)

	return oklab{
		l: 0.2104542553*l + 0.7936177850*m - 0.0040720468*s,
		a: 1.9779984951*l - 2.4285922050*m + 0.4505937099*s,
		b: 0.0259040371*l + 0.7827717662*m - 0.8086757660*s,
	}
}

func srgbToLinear(v uint8) float64 {
	f := float64(v) / 255
	if f <= 0.04045 {
		return f / 12.92
	}
	return math.Pow((f+0.055)/1.055, 2.4)
}
