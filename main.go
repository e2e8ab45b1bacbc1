package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/integrii/flaggy"
	"github.com/olivier-w/spectra/internal/config"
	"github.com/olivier-w/spectra/internal/engine"
	"github.com/olivier-w/spectra/internal/media"
	"github.com/olivier-w/spectra/internal/pcm"
	"github.com/olivier-w/spectra/internal/player"
	"github.com/olivier-w/spectra/internal/ui"
	"github.com/pkg/errors"
)

// AppName is the app name
const AppName = "spectra"

// AppDesc is the app description
const AppDesc = "Real-time spectrum of a mono audio file, drawn in the terminal while it plays"

var version = "dev"

// unset marks a numeric flag the user did not pass.
const unset = -1

type options struct {
	path       string
	configPath string
	logPath    string

	fftSize     int
	bars        int
	sensitivity float64
	alpha       float64
	gap         float64
	volume      float64
	poll        time.Duration
	drift       time.Duration
	scale       string
	smoothing   string
	backend     string
	mode        string
}

func newOptions() options {
	return options{
		fftSize:     unset,
		bars:        unset,
		sensitivity: unset,
		alpha:       unset,
		gap:         unset,
		volume:      unset,
		poll:        unset,
		drift:       unset,
	}
}

func newParser(o *options) *flaggy.Parser {
	parser := flaggy.NewParser(AppName)
	parser.Description = AppDesc
	parser.Version = version

	parser.AddPositionalValue(&o.path, "file", 1, false,
		"audio file to play ("+media.SupportedExtsList()+", mono only)")

	parser.String(&o.configPath, "c", "config", "YAML config file")
	parser.Int(&o.fftSize, "n", "fft-size", "transform size, a power of two (default 1024)")
	parser.Int(&o.bars, "b", "bars", "number of bars (default 64)")
	parser.Float64(&o.sensitivity, "k", "sensitivity", "level scale constant (default 350)")
	parser.String(&o.scale, "", "scale", "magnitude scale: log or linear")
	parser.String(&o.smoothing, "", "smoothing", "smoothing: ema, none or spring")
	parser.Float64(&o.alpha, "a", "alpha", "ema weight of the newest frame (0-1)")
	parser.String(&o.backend, "", "backend", "fft backend: gonum, go-dsp or radix2")
	parser.String(&o.mode, "m", "mode", "draw mode: bars or line")
	parser.Float64(&o.gap, "", "gap", "gap between bars in cells")
	parser.Duration(&o.poll, "", "poll", "frame interval, 0 to follow the terminal refresh rate")
	parser.Duration(&o.drift, "", "drift", "lateness tolerated before a frame is logged")
	parser.Float64(&o.volume, "", "volume", "playback volume (0-1)")
	parser.String(&o.logPath, "", "log", "write a debug log to this file")

	return parser
}

// apply copies every flag the user passed over cfg.
func (o options) apply(cfg *config.Config) {
	if o.fftSize != unset {
		cfg.FFTSize = o.fftSize
	}
	if o.bars != unset {
		cfg.Bars = o.bars
	}
	if o.sensitivity != unset {
		cfg.Sensitivity = o.sensitivity
	}
	if o.alpha != unset {
		cfg.SmoothFactor = o.alpha
	}
	if o.gap != unset {
		cfg.BarGap = o.gap
	}
	if o.volume != unset {
		cfg.Volume = o.volume
	}
	if o.poll != unset {
		cfg.PollInterval = o.poll
	}
	if o.drift != unset {
		cfg.Drift = o.drift
	}
	if o.scale != "" {
		cfg.Scale = o.scale
	}
	if o.smoothing != "" {
		cfg.Smoothing = o.smoothing
	}
	if o.backend != "" {
		cfg.Backend = o.backend
	}
	if o.mode != "" {
		cfg.Mode = o.mode
	}
}

func (o options) config() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, err
		}
	}
	o.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log.SetFlags(0)

	opts := newOptions()
	parser := newParser(&opts)
	if err := parser.ParseArgs(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.path == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file>\n", AppName)
		return 1
	}

	cfg, err := opts.config()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger := log.New(io.Discard, "", 0)
	if opts.logPath != "" {
		f, err := tea.LogToFile(opts.logPath, AppName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer f.Close()
		logger = log.Default()
	}

	if err := play(opts.path, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		return 1
	}
	return 0
}

// play owns every resource of one run. Each is released on the way out,
// including on error paths.
func play(path string, cfg config.Config, logger *log.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		return &pcm.OpenError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &pcm.OpenError{Path: path, Err: errors.New("is a directory")}
	}
	if ext := filepath.Ext(path); !media.IsSupportedExt(ext) {
		return &pcm.OpenError{Path: path, Err: errors.Errorf("unsupported format %q (supported: %s)", ext, media.SupportedExtsList())}
	}

	src, err := pcm.NewSource(path)
	if err != nil {
		return err
	}
	defer src.Close()
	cfg.SampleRate = src.SampleRate()

	p, err := player.New(path, cfg.Volume)
	if err != nil {
		return err
	}
	defer p.Close()

	meta := player.ReadMetadata(path)
	term := ui.NewTerminal(meta, p.Duration(), tea.WithAltScreen())

	eng, err := engine.New(cfg, src, p, term, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Printf("playing %q (%s, %d Hz, %v)", meta.Title, media.FormatOf(path), src.SampleRate(), p.Duration())
	term.Start()
	runErr := eng.Run(ctx)
	// The terminal must be restored before anything is printed.
	closeErr := term.Close()
	logger.Printf("playback ended or window closed")

	if runErr != nil {
		return runErr
	}
	return errors.Wrap(closeErr, "terminal")
}

// describe adds a hint for the errors a user can act on.
func describe(err error) string {
	var fe *pcm.FormatError
	if errors.As(err, &fe) {
		return err.Error() + " (convert the file to a single channel first)"
	}
	return err.Error()
}
