package dsp

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
)

// Scale selects the compressive rescale applied to band magnitudes.
type Scale int

const (
	// ScaleLog maps m to log(1+m)*k/N.
	ScaleLog Scale = iota
	// ScaleLinear maps m to m*k/N.
	ScaleLinear
)

func (s Scale) String() string {
	switch s {
	case ScaleLog:
		return "log"
	case ScaleLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// ParseScale accepts "log" or "linear".
func ParseScale(s string) (Scale, error) {
	switch s {
	case "log":
		return ScaleLog, nil
	case "linear":
		return ScaleLinear, nil
	default:
		return 0, errors.Errorf("unknown scale %q (want log or linear)", s)
	}
}

// UsableBins is the part of an N-point spectrum that feeds the bands: the
// lowest N/4 bins. Everything above is discarded.
func UsableBins(size int) int {
	return size / 4
}

// Aggregator reduces a spectrum to a fixed number of contiguous bands.
//
// Band i covers bins [i*U/B, (i+1)*U/B) where U is UsableBins. When U is
// not a multiple of B the remainder is spread across the bands so every
// usable bin lands in exactly one band. When B exceeds U some bands are
// empty and read as zero.
type Aggregator struct {
	size        int
	bands       int
	usable      int
	sensitivity float64
	scale       Scale
}

// NewAggregator returns an aggregator for size-point spectra.
func NewAggregator(size, bands int, sensitivity float64, scale Scale) *Aggregator {
	return &Aggregator{
		size:        size,
		bands:       bands,
		usable:      UsableBins(size),
		sensitivity: sensitivity,
		scale:       scale,
	}
}

// Bands returns the band count B.
func (g *Aggregator) Bands() int { return g.bands }

// Bounds returns the half-open bin range of band i.
func (g *Aggregator) Bounds(i int) (start, end int) {
	return i * g.usable / g.bands, (i + 1) * g.usable / g.bands
}

// Magnitudes writes the mean bin magnitude of each band into dst and
// returns it. dst is reallocated when too short.
func (g *Aggregator) Magnitudes(spectrum []complex128, dst []float64) []float64 {
	if cap(dst) < g.bands {
		dst = make([]float64, g.bands)
	}
	dst = dst[:g.bands]

	for i := range dst {
		start, end := g.Bounds(i)
		if end <= start {
			dst[i] = 0
			continue
		}
		sum := 0.0
		for _, c := range spectrum[start:end] {
			sum += cmplx.Abs(c)
		}
		dst[i] = sum / float64(end-start)
	}
	return dst
}

// Rescale compresses a raw band magnitude and clamps it to [0, 1].
func (g *Aggregator) Rescale(m float64) float64 {
	var v float64
	switch g.scale {
	case ScaleLinear:
		v = m * g.sensitivity / float64(g.size)
	default:
		v = math.Log1p(m) * g.sensitivity / float64(g.size)
	}
	return clamp01(v)
}

// Aggregate computes the normalized level of every band.
func (g *Aggregator) Aggregate(spectrum []complex128, dst []float64) []float64 {
	dst = g.Magnitudes(spectrum, dst)
	for i, m := range dst {
		dst[i] = g.Rescale(m)
	}
	return dst
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
