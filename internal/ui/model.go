package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/spectra/internal/engine"
	"github.com/olivier-w/spectra/internal/player"
)

const (
	marginX = 2
	// chromeLines counts every line View draws besides the chart.
	chromeLines = 9

	defaultWidth  = 80
	defaultHeight = 24
)

// chartSize is the area left for the bars in a terminal of the given size.
func chartSize(width, height int) (cols, rows int) {
	cols = width - 2*marginX
	rows = height - chromeLines
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

// surfaceSize is written by the model on resize and read by the engine.
type surfaceSize struct {
	mu         sync.Mutex
	cols, rows int
}

func newSurfaceSize() *surfaceSize {
	s := &surfaceSize{}
	s.set(chartSize(defaultWidth, defaultHeight))
	return s
}

func (s *surfaceSize) set(cols, rows int) {
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.mu.Unlock()
}

func (s *surfaceSize) get() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Model is the Bubbletea model for the spectra TUI. It only displays what
// the engine presents; key presses are forwarded as engine events.
type Model struct {
	metadata player.Metadata
	duration time.Duration
	chart    string
	status   engine.Status
	width    int
	height   int
	quitting bool
	progress progress.Model

	events chan<- engine.Event
	size   *surfaceSize
}

func newModel(meta player.Metadata, duration time.Duration, events chan<- engine.Event, size *surfaceSize) Model {
	m := Model{
		metadata: meta,
		duration: duration,
		width:    defaultWidth,
		height:   defaultHeight,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		events:   events,
		size:     size,
		status:   engine.Status{Volume: -1},
	}
	m.progress.Width = m.progressWidth()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle(windowTitle(m.metadata.Title, false))
}

// send forwards ev without blocking the UI. A full queue drops the event;
// quitting is also observed through program exit.
func (m Model) send(ev engine.Event) {
	select {
	case m.events <- ev:
	default:
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		ev, ok := keyEvent(msg)
		if !ok {
			return m, nil
		}
		m.send(ev)
		if ev == engine.EventClose {
			m.quitting = true
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.size.set(chartSize(msg.Width, msg.Height))
		m.progress.Width = m.progressWidth()
		m.send(engine.EventResize)
		return m, nil

	case frameMsg:
		pausedBefore := m.status.Paused
		m.chart = msg.chart
		m.status = msg.status
		if pausedBefore != m.status.Paused {
			return m, tea.SetWindowTitle(windowTitle(m.metadata.Title, m.status.Paused))
		}
		return m, nil
	}

	return m, nil
}

func (m Model) progressWidth() int {
	w := m.width - 2*marginX - 2*len(formatDuration(m.duration)) - 2
	if w < 10 {
		w = 10
	}
	return w
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	pad := spaces(marginX)
	header := headerStyle.Render("spectra")
	title := titleStyle.Render(m.metadata.Title)

	subtitle := ""
	if m.metadata.Artist != "" && m.metadata.Album != "" {
		subtitle = artistStyle.Render(fmt.Sprintf("%s - %s", m.metadata.Artist, m.metadata.Album))
	} else if m.metadata.Artist != "" {
		subtitle = artistStyle.Render(m.metadata.Artist)
	} else if m.metadata.Album != "" {
		subtitle = artistStyle.Render(m.metadata.Album)
	}

	elapsed := formatDuration(m.status.Position)
	total := formatDuration(m.duration)
	bar := m.progress.ViewAs(progressRatio(m.status.Position, m.duration))
	progressLine := fmt.Sprintf("%s %s %s", timeStyle.Render(elapsed), bar, timeStyle.Render(total))

	statusIcon := "▶"
	statusText := "playing"
	if m.status.Paused {
		statusIcon = "❚❚"
		statusText = "paused"
	}
	leftText := fmt.Sprintf("%s  %s", statusIcon, statusText)
	stats := renderFrameStats(m.status)
	vol := renderVolumePercent(m.status.Volume)
	rightText := stats
	if vol != "" {
		rightText += "  " + vol
	}
	gap := m.width - 2*marginX - len([]rune(leftText)) - len(rightText)
	if gap < 2 {
		gap = 2
	}
	statusLine := statusStyle.Render(leftText) + spaces(gap) + statsStyle.Render(stats)
	if vol != "" {
		statusLine += "  " + statusStyle.Render(vol)
	}

	lines := "\n"
	lines += pad + header + "\n"
	lines += pad + title + "\n"
	lines += pad + subtitle + "\n"
	lines += "\n"
	lines += indent(m.chart, pad) + "\n"
	lines += "\n"
	lines += pad + progressLine + "\n"
	lines += pad + statusLine + "\n"
	lines += pad + helpStyle.Render(helpText())

	return lines
}

func windowTitle(title string, paused bool) string {
	if paused {
		return "⏸ " + title + " — spectra"
	}
	return "▶ " + title + " — spectra"
}
