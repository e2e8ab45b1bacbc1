package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spectra.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	if cfg.FFTSize != 1024 || cfg.Bars != 64 {
		t.Fatalf("unexpected defaults N=%d B=%d", cfg.FFTSize, cfg.Bars)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
fft_size: 2048
bars: 128
scale: linear
smoothing: spring
poll_interval: 4ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FFTSize != 2048 || cfg.Bars != 128 {
		t.Fatalf("expected N=2048 B=128, got N=%d B=%d", cfg.FFTSize, cfg.Bars)
	}
	if cfg.Scale != "linear" || cfg.Smoothing != "spring" {
		t.Fatalf("unexpected scale/smoothing %q/%q", cfg.Scale, cfg.Smoothing)
	}
	if cfg.PollInterval != 4*time.Millisecond {
		t.Fatalf("expected 4ms poll interval, got %v", cfg.PollInterval)
	}
	if cfg.Sensitivity != 350 {
		t.Fatalf("expected untouched sensitivity 350, got %v", cfg.Sensitivity)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "bands: 12\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"fft size not power of two": func(c *Config) { c.FFTSize = 1000 },
		"fft size too small":        func(c *Config) { c.FFTSize = 2 },
		"no bars":                   func(c *Config) { c.Bars = 0 },
		"zero sensitivity":          func(c *Config) { c.Sensitivity = 0 },
		"bad scale":                 func(c *Config) { c.Scale = "db" },
		"bad smoothing":             func(c *Config) { c.Smoothing = "median" },
		"alpha of one":              func(c *Config) { c.SmoothFactor = 1 },
		"bad backend":               func(c *Config) { c.Backend = "fftw" },
		"bad mode":                  func(c *Config) { c.Mode = "dots" },
		"negative gap":              func(c *Config) { c.BarGap = -1 },
		"negative poll":             func(c *Config) { c.PollInterval = -time.Millisecond },
		"negative drift":            func(c *Config) { c.Drift = -time.Millisecond },
		"loud volume":               func(c *Config) { c.Volume = 1.5 },
		"no sample rate":            func(c *Config) { c.SampleRate = 0 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateIgnoresAlphaWithoutEMA(t *testing.T) {
	cfg := Default()
	cfg.Smoothing = "none"
	cfg.SmoothFactor = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected alpha to be ignored, got %v", err)
	}
}

func TestFPS(t *testing.T) {
	cfg := Default()
	if got := cfg.FPS(); got != 62 {
		t.Fatalf("expected 62 fps at 16ms, got %d", got)
	}
	cfg.PollInterval = 0
	if got := cfg.FPS(); got != 60 {
		t.Fatalf("expected 60 fps when unpaced, got %d", got)
	}
}
