package engine

import (
	"time"

	"github.com/eapache/queue"
)

// statsWindow is how many recent frames the rolling average covers.
const statsWindow = 120

// Stats keeps rolling frame timings.
type Stats struct {
	recent   *queue.Queue
	sum      time.Duration
	frames   int
	overruns int
	last     time.Duration
}

func newStats() *Stats {
	return &Stats{recent: queue.New()}
}

// Record adds one frame's processing time.
func (s *Stats) Record(d time.Duration, overrun bool) {
	s.recent.Add(d)
	s.sum += d
	if s.recent.Length() > statsWindow {
		s.sum -= s.recent.Remove().(time.Duration)
	}
	s.frames++
	s.last = d
	if overrun {
		s.overruns++
	}
}

// Frames returns the number of frames recorded.
func (s *Stats) Frames() int { return s.frames }

// Overruns returns how many frames exceeded the pacing budget.
func (s *Stats) Overruns() int { return s.overruns }

// Last returns the most recent frame time.
func (s *Stats) Last() time.Duration { return s.last }

// Average returns the mean frame time over the recent window.
func (s *Stats) Average() time.Duration {
	n := s.recent.Length()
	if n == 0 {
		return 0
	}
	return s.sum / time.Duration(n)
}
