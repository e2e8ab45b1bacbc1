// Package config holds the visualizer's tunables. Values start from Default,
// may be overridden by a YAML file and then by command line flags.
package config

import (
	"bytes"
	"os"
	"time"

	"github.com/olivier-w/spectra/internal/dsp"
	"github.com/olivier-w/spectra/internal/visualizer"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is passed explicitly to every component that needs it.
type Config struct {
	FFTSize      int           `yaml:"fft_size"`
	Bars         int           `yaml:"bars"`
	Sensitivity  float64       `yaml:"sensitivity"`
	Scale        string        `yaml:"scale"`
	Smoothing    string        `yaml:"smoothing"`
	SmoothFactor float64       `yaml:"smooth_factor"`
	Backend      string        `yaml:"fft_backend"`
	Mode         string        `yaml:"mode"`
	BarGap       float64       `yaml:"bar_gap"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Drift        time.Duration `yaml:"drift"`
	Volume       float64       `yaml:"volume"`

	// SampleRate comes from the opened audio file.
	SampleRate int `yaml:"-"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		FFTSize:      1024,
		Bars:         64,
		Sensitivity:  350,
		Scale:        dsp.ScaleLog.String(),
		Smoothing:    string(dsp.SmoothEMA),
		SmoothFactor: 0.2,
		Backend:      string(dsp.BackendGonum),
		Mode:         string(visualizer.ModeBars),
		BarGap:       0,
		PollInterval: 16 * time.Millisecond,
		Drift:        8 * time.Millisecond,
		Volume:       0.8,
		SampleRate:   44100,
	}
}

// Load reads a YAML file over the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// FPS is the frame rate implied by PollInterval, 60 when unpaced.
func (c Config) FPS() int {
	if c.PollInterval <= 0 {
		return 60
	}
	fps := int(time.Second / c.PollInterval)
	if fps < 1 {
		fps = 1
	}
	return fps
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.FFTSize < 4 || c.FFTSize&(c.FFTSize-1) != 0 {
		return errors.Errorf("fft size %d is not a power of two >= 4", c.FFTSize)
	}
	if c.Bars < 1 {
		return errors.Errorf("bar count %d must be at least 1", c.Bars)
	}
	if c.Sensitivity <= 0 {
		return errors.Errorf("sensitivity %v must be positive", c.Sensitivity)
	}
	if _, err := dsp.ParseScale(c.Scale); err != nil {
		return err
	}
	mode, err := dsp.ParseSmoothingMode(c.Smoothing)
	if err != nil {
		return err
	}
	if mode == dsp.SmoothEMA && (c.SmoothFactor <= 0 || c.SmoothFactor >= 1) {
		return errors.Errorf("smooth factor %v must be in (0, 1)", c.SmoothFactor)
	}
	if _, err := dsp.ParseBackend(c.Backend); err != nil {
		return err
	}
	if _, err := visualizer.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.BarGap < 0 {
		return errors.Errorf("bar gap %v must not be negative", c.BarGap)
	}
	if c.PollInterval < 0 {
		return errors.Errorf("poll interval %v must not be negative", c.PollInterval)
	}
	if c.Drift < 0 {
		return errors.Errorf("drift %v must not be negative", c.Drift)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return errors.Errorf("volume %v must be in [0, 1]", c.Volume)
	}
	if c.SampleRate <= 0 {
		return errors.Errorf("sample rate %d must be positive", c.SampleRate)
	}
	return nil
}
