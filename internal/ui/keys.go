package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/spectra/internal/engine"
)

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

// keyEvent maps a key press to the engine event it triggers.
func keyEvent(msg tea.KeyMsg) (engine.Event, bool) {
	if isQuit(msg) {
		return engine.EventClose, true
	}
	switch msg.String() {
	case " ":
		return engine.EventTogglePause, true
	case "left", "h":
		return engine.EventSeekBack, true
	case "right", "l":
		return engine.EventSeekForward, true
	case "up", "k", "+":
		return engine.EventVolumeUp, true
	case "down", "j", "-":
		return engine.EventVolumeDown, true
	}
	return 0, false
}

func helpText() string {
	return "space pause  ←/→ seek  ↑/↓ volume  q quit"
}
