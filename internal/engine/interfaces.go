package engine

import (
	"time"

	"github.com/olivier-w/spectra/internal/visualizer"
)

// PCMSource provides random access to decoded mono samples.
type PCMSource interface {
	SampleRate() int
	Channels() int
	SeekFrame(frame int64) error
	// ReadFrames fills dst from the current position and returns how many
	// frames were read. A short read may return io.EOF.
	ReadFrames(dst []float64) (int, error)
}

// Playback is the audio clock the visualizer follows. Position must not
// move backward while playing unless the user seeks.
type Playback interface {
	Start()
	Playing() bool
	Position() time.Duration
}

// Pauser is implemented by playback that can be paused. A paused playback
// keeps the visualizer running.
type Pauser interface {
	Paused() bool
	TogglePause()
}

// Seeker is implemented by playback that can jump relative to its position.
type Seeker interface {
	Seek(delta time.Duration) error
}

// VolumeControl is implemented by playback with adjustable volume.
type VolumeControl interface {
	Volume() float64
	AdjustVolume(delta float64)
}

// Event is an input from the display surface.
type Event int

const (
	EventClose Event = iota
	EventTogglePause
	EventSeekForward
	EventSeekBack
	EventVolumeUp
	EventVolumeDown
	EventResize
)

func (e Event) String() string {
	switch e {
	case EventClose:
		return "close"
	case EventTogglePause:
		return "toggle-pause"
	case EventSeekForward:
		return "seek-forward"
	case EventSeekBack:
		return "seek-back"
	case EventVolumeUp:
		return "volume-up"
	case EventVolumeDown:
		return "volume-down"
	case EventResize:
		return "resize"
	default:
		return "unknown"
	}
}

// Surface is where frames are drawn. Coordinates start at the top-left
// corner.
type Surface interface {
	PollEvents() []Event
	Size() (width, height float64)
	Clear()
	DrawRect(r visualizer.Rect, c visualizer.RGB)
	Present() error
}

// StatusReporter is implemented by surfaces that show playback status next
// to the bars.
type StatusReporter interface {
	SetStatus(Status)
}

// Status is a snapshot of the playback and frame timing.
type Status struct {
	Position time.Duration
	Paused   bool
	Volume   float64
	Frames   int
	AvgFrame time.Duration
	Overruns int
}
