// Package ui is the terminal display surface: a Bubbletea program that shows
// the bars the engine draws, the track and its playback status.
package ui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/spectra/internal/engine"
	"github.com/olivier-w/spectra/internal/player"
	"github.com/olivier-w/spectra/internal/visualizer"
)

const eventQueueSize = 64

// presentInterval matches Bubbletea's default renderer frame rate.
const presentInterval = time.Second / 60

// pacer holds Present to one frame per interval. With no poll interval the
// engine loop runs at whatever rate Present allows.
type pacer struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(time.Duration)
}

func newPacer(interval time.Duration) pacer {
	return pacer{interval: interval, now: time.Now, sleep: time.Sleep}
}

func (p *pacer) wait() {
	if !p.last.IsZero() {
		if d := p.interval - p.now().Sub(p.last); d > 0 {
			p.sleep(d)
		}
	}
	p.last = p.now()
}

// Terminal implements engine.Surface. The Bubbletea program runs on its own
// goroutine; the engine draws into a canvas and hands the rendered text over
// on Present.
type Terminal struct {
	program *tea.Program
	events  chan engine.Event
	size    *surfaceSize
	canvas  *visualizer.Canvas
	status  engine.Status
	pace    pacer

	startOnce sync.Once
	started   bool
	done      chan struct{}
	closed    bool
	err       error
}

// NewTerminal builds the surface. Call Start before the first frame.
func NewTerminal(meta player.Metadata, duration time.Duration, opts ...tea.ProgramOption) *Terminal {
	t := newTerminal()
	t.program = tea.NewProgram(newModel(meta, duration, t.events, t.size), opts...)
	return t
}

func newTerminal() *Terminal {
	t := &Terminal{
		events: make(chan engine.Event, eventQueueSize),
		size:   newSurfaceSize(),
		done:   make(chan struct{}),
		pace:   newPacer(presentInterval),
	}
	cols, rows := t.size.get()
	t.canvas = visualizer.NewCanvas(cols, rows)
	return t
}

// Start runs the program in the background. Its exit surfaces as a close
// event.
func (t *Terminal) Start() {
	t.startOnce.Do(func() {
		t.started = true
		go func() {
			_, err := t.program.Run()
			t.err = err
			close(t.done)
		}()
	})
}

// PollEvents returns every queued event without blocking.
func (t *Terminal) PollEvents() []engine.Event {
	var out []engine.Event
	for {
		select {
		case ev := <-t.events:
			out = append(out, ev)
		default:
			if t.exited() {
				out = append(out, engine.EventClose)
			}
			return out
		}
	}
}

func (t *Terminal) exited() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Size returns the chart area in cells.
func (t *Terminal) Size() (width, height float64) {
	cols, rows := t.size.get()
	return float64(cols), float64(rows)
}

// Clear blanks the canvas, following any resize since the last frame.
func (t *Terminal) Clear() {
	cols, rows := t.size.get()
	if c, r := t.canvas.Size(); c != cols || r != rows {
		t.canvas.Resize(cols, rows)
		return
	}
	t.canvas.Clear()
}

func (t *Terminal) DrawRect(r visualizer.Rect, c visualizer.RGB) {
	t.canvas.FillRect(r, c)
}

func (t *Terminal) SetStatus(st engine.Status) {
	t.status = st
}

// Present sends the frame to the program, no faster than the program
// renders. Once the program has exited it returns the program's error, if
// any.
func (t *Terminal) Present() error {
	if t.exited() {
		return t.err
	}
	t.pace.wait()
	t.program.Send(frameMsg{chart: t.canvas.Render(), status: t.status})
	return nil
}

// Close stops the program and waits for the terminal to be restored.
func (t *Terminal) Close() error {
	if !t.started || t.closed {
		return nil
	}
	t.closed = true
	t.program.Quit()
	<-t.done
	return t.err
}
