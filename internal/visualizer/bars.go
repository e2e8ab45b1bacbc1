// Package visualizer turns per-band levels into colored bar geometry and
// rasterizes it into terminal cells.
package visualizer

import "github.com/pkg/errors"

// Mode selects how a band level is drawn.
type Mode string

const (
	// ModeBars draws a filled bar from the floor up to the level.
	ModeBars Mode = "bars"
	// ModeLine draws only a thin segment at the level.
	ModeLine Mode = "line"
)

// ParseMode accepts "bars" or "line".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeBars, ModeLine:
		return m, nil
	default:
		return "", errors.Errorf("unknown mode %q (want bars or line)", s)
	}
}

// lineThickness is the height of a ModeLine segment in cells.
const lineThickness = 0.5

// Bar is the visual state of one band for one frame.
type Bar struct {
	X      float64
	Width  float64
	Height float64
	Color  RGB
}

// Rect is an axis-aligned rectangle in surface coordinates, origin at the
// top-left corner, y growing downward.
type Rect struct {
	X, Y, W, H float64
}

// Empty reports whether the rectangle covers no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Layout builds one Bar per level for a surface of the given size. Bar i
// starts at i*width/B and is width/B-gap wide. Heights are
// clamp(level, 0, 1)*height. dst is reused when large enough.
func Layout(levels []float64, palette []RGB, width, height, gap float64, dst []Bar) []Bar {
	n := len(levels)
	if cap(dst) < n {
		dst = make([]Bar, n)
	}
	dst = dst[:n]
	if n == 0 {
		return dst
	}

	step := width / float64(n)
	barWidth := step - gap
	if barWidth < 0 {
		barWidth = 0
	}
	for i, level := range levels {
		var c RGB
		if i < len(palette) {
			c = palette[i]
		}
		dst[i] = Bar{
			X:      float64(i) * step,
			Width:  barWidth,
			Height: clamp01(level) * height,
			Color:  c,
		}
	}
	return dst
}

// Rect returns the area to fill for b on a surface of the given height.
func (b Bar) Rect(mode Mode, height float64) Rect {
	top := height - b.Height
	if mode == ModeLine {
		if b.Height <= 0 {
			return Rect{X: b.X, Y: height, W: b.Width}
		}
		h := lineThickness
		if b.Height < h {
			h = b.Height
		}
		return Rect{X: b.X, Y: top, W: b.Width, H: h}
	}
	return Rect{X: b.X, Y: top, W: b.Width, H: b.Height}
}
