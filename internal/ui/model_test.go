package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/spectra/internal/engine"
	"github.com/olivier-w/spectra/internal/player"
	"github.com/olivier-w/spectra/internal/visualizer"
)

func newTestModel() (Model, chan engine.Event, *surfaceSize) {
	events := make(chan engine.Event, 8)
	size := newSurfaceSize()
	m := newModel(player.Metadata{Title: "Sine", Artist: "Oscillator"}, 90*time.Second, events, size)
	return m, events, size
}

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeysForwardEngineEvents(t *testing.T) {
	cases := map[string]engine.Event{
		" ":    engine.EventTogglePause,
		"left": engine.EventSeekBack,
		"l":    engine.EventSeekForward,
		"+":    engine.EventVolumeUp,
		"j":    engine.EventVolumeDown,
	}
	for k, want := range cases {
		m, events, _ := newTestModel()
		if _, cmd := m.Update(key(k)); cmd != nil {
			t.Fatalf("%q: expected no command", k)
		}
		select {
		case got := <-events:
			if got != want {
				t.Fatalf("%q: expected %v, got %v", k, want, got)
			}
		default:
			t.Fatalf("%q: expected an event", k)
		}
	}
}

func TestUnboundKeyIsIgnored(t *testing.T) {
	m, events, _ := newTestModel()
	m.Update(key("x"))
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestQuitKeysCloseAndQuit(t *testing.T) {
	for _, k := range []string{"q", "esc", "ctrl+c"} {
		m, events, _ := newTestModel()
		next, cmd := m.Update(key(k))
		if cmd == nil {
			t.Fatalf("%q: expected quit command", k)
		}
		if !next.(Model).quitting {
			t.Fatalf("%q: expected quitting state", k)
		}
		if ev := <-events; ev != engine.EventClose {
			t.Fatalf("%q: expected close event, got %v", k, ev)
		}
		if next.View() != "" {
			t.Fatalf("%q: expected empty view while quitting", k)
		}
	}
}

func TestWindowSizeUpdatesSurface(t *testing.T) {
	m, events, size := newTestModel()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	cols, rows := size.get()
	if cols != 116 || rows != 31 {
		t.Fatalf("expected chart 116x31, got %dx%d", cols, rows)
	}
	if ev := <-events; ev != engine.EventResize {
		t.Fatalf("expected resize event, got %v", ev)
	}
}

func TestChartSizeHasFloor(t *testing.T) {
	if cols, rows := chartSize(3, 2); cols != 1 || rows != 1 {
		t.Fatalf("expected 1x1, got %dx%d", cols, rows)
	}
}

func TestFrameMsgRendersChartAndStatus(t *testing.T) {
	m, _, _ := newTestModel()
	next, _ := m.Update(frameMsg{
		chart:  "██\n██",
		status: engine.Status{Position: 30 * time.Second, Volume: 0.8, AvgFrame: 1500 * time.Microsecond},
	})
	view := next.View()

	for _, want := range []string{"spectra", "Sine", "Oscillator", "  ██\n  ██", "0:30", "1:30", "vol 80%", "1.5ms/frame", "playing"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestFrameMsgPauseChangesTitle(t *testing.T) {
	m, _, _ := newTestModel()
	next, cmd := m.Update(frameMsg{status: engine.Status{Paused: true, Volume: -1}})
	if cmd == nil {
		t.Fatal("expected window title command on pause")
	}
	view := next.View()
	if !strings.Contains(view, "paused") || strings.Contains(view, "vol ") {
		t.Fatalf("unexpected status in view:\n%s", view)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0:00"},
		{59 * time.Second, "0:59"},
		{61 * time.Second, "1:01"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Fatalf("formatDuration(%v) = %q, expected %q", tc.d, got, tc.want)
		}
	}
}

func TestTerminalPollEventsReportsExit(t *testing.T) {
	term := newTerminal()
	term.events <- engine.EventVolumeUp
	if got := term.PollEvents(); len(got) != 1 || got[0] != engine.EventVolumeUp {
		t.Fatalf("expected queued volume event, got %v", got)
	}

	close(term.done)
	got := term.PollEvents()
	if len(got) != 1 || got[0] != engine.EventClose {
		t.Fatalf("expected close after program exit, got %v", got)
	}
	if err := term.Present(); err != nil {
		t.Fatalf("expected nil error from exited program, got %v", err)
	}
}

func TestTerminalClearFollowsResize(t *testing.T) {
	term := newTerminal()
	term.size.set(10, 4)
	term.Clear()
	if w, h := term.Size(); w != 10 || h != 4 {
		t.Fatalf("expected 10x4, got %vx%v", w, h)
	}
	if cols, rows := term.canvas.Size(); cols != 10 || rows != 4 {
		t.Fatalf("expected canvas 10x4, got %dx%d", cols, rows)
	}
	term.DrawRect(visualizer.Rect{X: 0, Y: 0, W: 10, H: 4}, visualizer.RGB{R: 255})
	if !strings.Contains(term.canvas.Render(), "█") {
		t.Fatal("expected drawn cells")
	}
}

func TestTerminalCloseWithoutStart(t *testing.T) {
	if err := newTerminal().Close(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestPacerHoldsFramesToInterval(t *testing.T) {
	now := time.Unix(0, 0)
	var slept []time.Duration
	p := pacer{
		interval: 16 * time.Millisecond,
		now:      func() time.Time { return now },
		sleep: func(d time.Duration) {
			slept = append(slept, d)
			now = now.Add(d)
		},
	}

	p.wait()
	if len(slept) != 0 {
		t.Fatalf("expected first frame to go out immediately, slept %v", slept)
	}

	now = now.Add(4 * time.Millisecond)
	p.wait()
	if len(slept) != 1 || slept[0] != 12*time.Millisecond {
		t.Fatalf("expected one 12ms wait, got %v", slept)
	}

	now = now.Add(30 * time.Millisecond)
	p.wait()
	if len(slept) != 1 {
		t.Fatalf("expected no wait after a slow frame, got %v", slept)
	}
}
