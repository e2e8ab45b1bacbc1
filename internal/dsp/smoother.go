package dsp

import (
	"github.com/charmbracelet/harmonica"
	"github.com/pkg/errors"
)

// SmoothingMode selects how band levels carry over between frames.
type SmoothingMode string

const (
	SmoothEMA    SmoothingMode = "ema"
	SmoothNone   SmoothingMode = "none"
	SmoothSpring SmoothingMode = "spring"
)

// ParseSmoothingMode validates a smoothing mode name.
func ParseSmoothingMode(s string) (SmoothingMode, error) {
	switch m := SmoothingMode(s); m {
	case SmoothEMA, SmoothNone, SmoothSpring:
		return m, nil
	default:
		return "", errors.Errorf("unknown smoothing %q (want ema, none or spring)", s)
	}
}

// Smoother blends each frame's band levels with the levels it produced
// before. The returned slice is owned by the Smoother.
type Smoother interface {
	Smooth(raw []float64) []float64
	Reset()
}

const (
	springFrequency = 12.0
	springDamping   = 1.0
)

// NewSmoother builds a smoother for the given band count. alpha is the EMA
// weight of the newest frame and must lie in (0, 1) for SmoothEMA. fps is the
// expected frame rate, used only by SmoothSpring.
func NewSmoother(mode SmoothingMode, bands int, alpha float64, fps int) (Smoother, error) {
	switch mode {
	case SmoothEMA:
		if alpha <= 0 || alpha >= 1 {
			return nil, errors.Errorf("smoothing factor %v outside (0, 1)", alpha)
		}
		return &EMA{alpha: alpha, values: make([]float64, bands)}, nil
	case SmoothNone:
		return &passthrough{values: make([]float64, bands)}, nil
	case SmoothSpring:
		if fps <= 0 {
			fps = 60
		}
		s := newSpringField(fps, springFrequency, springDamping)
		s.resize(bands)
		return s, nil
	default:
		return nil, errors.Errorf("unknown smoothing %q", mode)
	}
}

// EMA is an exponential moving average: s = s*(1-alpha) + raw*alpha.
type EMA struct {
	alpha  float64
	values []float64
}

func (e *EMA) Smooth(raw []float64) []float64 {
	for i, v := range raw {
		e.values[i] = e.values[i]*(1-e.alpha) + v*e.alpha
	}
	return e.values
}

func (e *EMA) Reset() {
	for i := range e.values {
		e.values[i] = 0
	}
}

// Values returns the current smoothed levels.
func (e *EMA) Values() []float64 { return e.values }

type passthrough struct {
	values []float64
}

func (p *passthrough) Smooth(raw []float64) []float64 {
	copy(p.values, raw)
	return p.values
}

func (p *passthrough) Reset() {
	for i := range p.values {
		p.values[i] = 0
	}
}

// springField moves every band toward its target level on a damped spring.
type springField struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
	out    []float64
}

func newSpringField(fps int, frequency, damping float64) *springField {
	return &springField{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

func (s *springField) resize(n int) {
	if len(s.pos) == n {
		return
	}
	s.pos = make([]float64, n)
	s.vel = make([]float64, n)
	s.out = make([]float64, n)
}

func (s *springField) step(i int, target float64) float64 {
	p, v := s.spring.Update(s.pos[i], s.vel[i], target)
	s.pos[i] = p
	s.vel[i] = v
	return p
}

func (s *springField) Smooth(raw []float64) []float64 {
	for i, v := range raw {
		s.out[i] = clamp01(s.step(i, v))
	}
	return s.out
}

func (s *springField) Reset() {
	for i := range s.pos {
		s.pos[i] = 0
		s.vel[i] = 0
		s.out[i] = 0
	}
}
