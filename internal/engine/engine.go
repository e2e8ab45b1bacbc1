// Package engine drives the per-frame pipeline: it follows the playback
// clock, pulls the matching PCM window, turns it into band levels and draws
// them on a surface.
package engine

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/olivier-w/spectra/internal/config"
	"github.com/olivier-w/spectra/internal/dsp"
	"github.com/olivier-w/spectra/internal/pcm"
	"github.com/olivier-w/spectra/internal/visualizer"
	"github.com/pkg/errors"
)

// State is the orchestrator state. Stopped is terminal.
type State int

const (
	Playing State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "stopped"
	}
	return "playing"
}

const (
	seekStep   = 5 * time.Second
	volumeStep = 0.05
)

// Engine owns the transform plan and all per-frame buffers.
type Engine struct {
	cfg      config.Config
	src      PCMSource
	playback Playback
	surface  Surface
	log      *log.Logger

	analyzer *dsp.Analyzer
	agg      *dsp.Aggregator
	smoother dsp.Smoother
	palette  []visualizer.RGB
	mode     visualizer.Mode

	window []float64
	raw    []float64
	levels []float64
	bars   []visualizer.Bar

	state State
	stats *Stats
	now   func() time.Time
}

// New validates cfg against the source and builds the pipeline. The sample
// rate always comes from src.
func New(cfg config.Config, src PCMSource, playback Playback, surface Surface, logger *log.Logger) (*Engine, error) {
	if src.Channels() != 1 {
		return nil, &pcm.FormatError{Channels: src.Channels()}
	}
	cfg.SampleRate = src.SampleRate()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	// Validate has already checked every name below.
	backend, _ := dsp.ParseBackend(cfg.Backend)
	scale, _ := dsp.ParseScale(cfg.Scale)
	smoothing, _ := dsp.ParseSmoothingMode(cfg.Smoothing)
	mode, _ := visualizer.ParseMode(cfg.Mode)

	analyzer, err := dsp.NewAnalyzer(cfg.FFTSize, backend)
	if err != nil {
		return nil, err
	}
	smoother, err := dsp.NewSmoother(smoothing, cfg.Bars, cfg.SmoothFactor, cfg.FPS())
	if err != nil {
		analyzer.Close()
		return nil, err
	}

	return &Engine{
		cfg:      cfg,
		src:      src,
		playback: playback,
		surface:  surface,
		log:      logger,
		analyzer: analyzer,
		agg:      dsp.NewAggregator(cfg.FFTSize, cfg.Bars, cfg.Sensitivity, scale),
		smoother: smoother,
		palette:  visualizer.Palette(cfg.Bars),
		mode:     mode,
		window:   make([]float64, cfg.FFTSize),
		raw:      make([]float64, cfg.Bars),
		levels:   make([]float64, cfg.Bars),
		state:    Playing,
		stats:    newStats(),
		now:      time.Now,
	}, nil
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Stats returns the frame timing statistics.
func (e *Engine) Stats() *Stats { return e.stats }

// Levels returns the smoothed level of every band from the last frame.
func (e *Engine) Levels() []float64 { return e.levels }

// Bars returns the bar geometry drawn in the last frame.
func (e *Engine) Bars() []visualizer.Bar { return e.bars }

// Run starts playback and steps frames until playback ends, the surface
// asks to close or ctx is cancelled. Cancellation is observed between
// frames.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Printf("visualizer starting: fft=%d backend=%s bars=%d rate=%d smoothing=%s",
		e.cfg.FFTSize, e.cfg.Backend, e.cfg.Bars, e.cfg.SampleRate, e.cfg.Smoothing)
	e.playback.Start()

	budget := e.cfg.PollInterval + e.cfg.Drift
	var tick <-chan time.Time
	if e.cfg.PollInterval > 0 {
		ticker := time.NewTicker(e.cfg.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if ctx.Err() != nil {
			e.stop("context cancelled")
			return nil
		}

		start := e.now()
		running, err := e.Step()
		if err != nil {
			e.stop("frame failed")
			e.log.Printf("frame %d: %v", e.stats.Frames(), err)
			return err
		}
		if !running {
			return nil
		}

		elapsed := e.now().Sub(start)
		overrun := e.cfg.PollInterval > 0 && elapsed > budget
		e.stats.Record(elapsed, overrun)
		if overrun {
			e.log.Printf("frame %d took %v, budget %v", e.stats.Frames(), elapsed, budget)
		}

		if tick != nil {
			select {
			case <-ctx.Done():
			case <-tick:
			}
		}
	}
}

// Step runs one frame. It returns false once the engine has stopped.
func (e *Engine) Step() (bool, error) {
	if e.state == Stopped {
		return false, nil
	}

	for _, ev := range e.surface.PollEvents() {
		if ev == EventClose {
			e.stop("close requested")
			return false, nil
		}
		e.handle(ev)
	}

	if !e.active() {
		e.stop("playback ended")
		return false, nil
	}

	pos := e.playback.Position()
	frame := int64(pos.Seconds() * float64(e.cfg.SampleRate))
	if err := e.src.SeekFrame(frame); err != nil {
		return false, errors.Wrapf(err, "seeking to frame %d", frame)
	}
	n, err := e.src.ReadFrames(e.window)
	if err != nil && err != io.EOF {
		return false, errors.Wrap(err, "reading pcm window")
	}
	if n < 0 {
		n = 0
	}
	for i := n; i < len(e.window); i++ {
		e.window[i] = 0
	}

	spectrum := e.analyzer.Analyze(e.window)
	e.raw = e.agg.Aggregate(spectrum, e.raw)
	e.levels = e.smoother.Smooth(e.raw)

	width, height := e.surface.Size()
	e.bars = visualizer.Layout(e.levels, e.palette, width, height, e.cfg.BarGap, e.bars)

	e.surface.Clear()
	for _, b := range e.bars {
		if r := b.Rect(e.mode, height); !r.Empty() {
			e.surface.DrawRect(r, b.Color)
		}
	}
	if sr, ok := e.surface.(StatusReporter); ok {
		sr.SetStatus(e.status(pos))
	}
	if err := e.surface.Present(); err != nil {
		return false, errors.Wrap(err, "presenting frame")
	}
	return true, nil
}

// active reports whether playback is still going. Paused playback counts as
// active.
func (e *Engine) active() bool {
	if e.playback.Playing() {
		return true
	}
	p, ok := e.playback.(Pauser)
	return ok && p.Paused()
}

func (e *Engine) handle(ev Event) {
	switch ev {
	case EventTogglePause:
		if p, ok := e.playback.(Pauser); ok {
			p.TogglePause()
		}
	case EventSeekForward, EventSeekBack:
		s, ok := e.playback.(Seeker)
		if !ok {
			return
		}
		delta := seekStep
		if ev == EventSeekBack {
			delta = -seekStep
		}
		if err := s.Seek(delta); err != nil {
			e.log.Printf("seek %v: %v", delta, err)
			return
		}
		e.smoother.Reset()
	case EventVolumeUp, EventVolumeDown:
		if v, ok := e.playback.(VolumeControl); ok {
			if ev == EventVolumeUp {
				v.AdjustVolume(volumeStep)
			} else {
				v.AdjustVolume(-volumeStep)
			}
		}
	case EventResize:
		// Layout reads the surface size every frame.
	}
}

func (e *Engine) status(pos time.Duration) Status {
	st := Status{
		Position: pos,
		Volume:   -1,
		Frames:   e.stats.Frames(),
		AvgFrame: e.stats.Average(),
		Overruns: e.stats.Overruns(),
	}
	if p, ok := e.playback.(Pauser); ok {
		st.Paused = p.Paused()
	}
	if v, ok := e.playback.(VolumeControl); ok {
		st.Volume = v.Volume()
	}
	return st
}

func (e *Engine) stop(reason string) {
	if e.state == Stopped {
		return
	}
	e.state = Stopped
	e.log.Printf("visualizer stopped (%s) after %d frames, avg %v, %d overruns",
		reason, e.stats.Frames(), e.stats.Average(), e.stats.Overruns())
}

// Close releases the transform plan. The engine cannot be stepped again.
func (e *Engine) Close() {
	e.stop("closed")
	e.analyzer.Close()
}
