// Package dsp turns a window of PCM samples into per-band display levels:
// a real-input Fourier transform, band aggregation with a compressive
// rescale, and temporal smoothing.
package dsp

import (
	"fmt"

	godsp "github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Backend names a Fourier transform implementation.
type Backend string

const (
	BackendGonum  Backend = "gonum"
	BackendGoDSP  Backend = "go-dsp"
	BackendRadix2 Backend = "radix2"
)

// Backends lists every supported transform backend.
func Backends() []Backend {
	return []Backend{BackendGonum, BackendGoDSP, BackendRadix2}
}

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	for _, b := range Backends() {
		if string(b) == s {
			return b, nil
		}
	}
	return "", errors.Errorf("unknown fft backend %q", s)
}

// Analyzer owns the transform plan and output buffer for one fixed
// transform size. The window is transformed as-is: no taper is applied, so
// the rectangular window's spectral leakage is part of the output.
type Analyzer struct {
	size     int
	backend  Backend
	spectrum []complex128

	gonum  *fourier.FFT
	radix2 *radix2Plan
}

// NewAnalyzer builds the plan for size-sample windows. size must be a power
// of two no smaller than 4.
func NewAnalyzer(size int, backend Backend) (*Analyzer, error) {
	if size < 4 || size&(size-1) != 0 {
		return nil, errors.Errorf("fft size %d is not a power of two >= 4", size)
	}

	a := &Analyzer{
		size:     size,
		backend:  backend,
		spectrum: make([]complex128, size/2+1),
	}
	switch backend {
	case BackendGonum:
		a.gonum = fourier.NewFFT(size)
	case BackendRadix2:
		a.radix2 = newRadix2Plan(size)
	case BackendGoDSP:
	default:
		return nil, errors.Errorf("unknown fft backend %q", backend)
	}
	return a, nil
}

// Size returns the transform size N.
func (a *Analyzer) Size() int { return a.size }

// Bins returns the number of frequency bins produced, N/2+1.
func (a *Analyzer) Bins() int { return a.size/2 + 1 }

// Backend reports which transform implementation is in use.
func (a *Analyzer) Backend() Backend { return a.backend }

// Analyze transforms window into N/2+1 complex bins. The returned slice is
// owned by the Analyzer and overwritten by the next call. window must hold
// exactly N samples.
func (a *Analyzer) Analyze(window []float64) []complex128 {
	if a.spectrum == nil {
		panic("dsp: Analyze called on closed Analyzer")
	}
	if len(window) != a.size {
		panic(fmt.Sprintf("dsp: window length %d does not match fft size %d", len(window), a.size))
	}

	switch a.backend {
	case BackendGonum:
		a.gonum.Coefficients(a.spectrum, window)
	case BackendRadix2:
		a.radix2.execute(a.spectrum, window)
	case BackendGoDSP:
		copy(a.spectrum, godsp.FFTReal(window)[:len(a.spectrum)])
	}
	return a.spectrum
}

// Close releases the plan and buffers. Analyze panics afterwards.
func (a *Analyzer) Close() {
	a.spectrum = nil
	a.gonum = nil
	a.radix2 = nil
}
