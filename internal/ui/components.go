package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/olivier-w/spectra/internal/engine"
)

// formatDuration formats a duration as m:ss, or h:mm:ss past an hour.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h, m, s := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func progressRatio(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	r := elapsed.Seconds() / total.Seconds()
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func renderVolumePercent(vol float64) string {
	if vol < 0 {
		return ""
	}
	return fmt.Sprintf("vol %d%%", int(vol*100+0.5))
}

func renderFrameStats(st engine.Status) string {
	ms := float64(st.AvgFrame) / float64(time.Millisecond)
	s := fmt.Sprintf("%.1fms/frame", ms)
	if st.Overruns > 0 {
		s += fmt.Sprintf("  %d late", st.Overruns)
	}
	return s
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	if s == "" {
		return s
	}
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}

func spaces(n int) string {
	if n < 0 {
		n = 0
	}
	return strings.Repeat(" ", n)
}
