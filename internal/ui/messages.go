package ui

import "github.com/olivier-w/spectra/internal/engine"

// frameMsg carries a rendered chart and the status that goes with it.
type frameMsg struct {
	chart  string
	status engine.Status
}
