package visualizer

import (
	"math"
	"strings"
)

// lowerBlocks[i] fills the bottom i eighths of a cell.
var lowerBlocks = []rune(" ▁▂▃▄▅▆▇█")

const (
	fullBlock   = '█'
	upperHalf   = '▀'
	upperEighth = '▔'
	middleBar   = '━'
)

type cell struct {
	r     rune
	color RGB
}

// Canvas is a grid of terminal cells. One surface unit is one cell in each
// direction; fractional heights are drawn with eighth blocks.
type Canvas struct {
	cols, rows int
	cells      []cell
	profile    colorProfile
}

// NewCanvas returns a blank canvas using the terminal's color profile.
func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{profile: currentColorProfile()}
	c.Resize(cols, rows)
	return c
}

// Size returns the canvas dimensions in cells.
func (c *Canvas) Size() (cols, rows int) {
	return c.cols, c.rows
}

// Resize changes the dimensions and clears the canvas.
func (c *Canvas) Resize(cols, rows int) {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	c.cols, c.rows = cols, rows
	if cap(c.cells) < cols*rows {
		c.cells = make([]cell, cols*rows)
	}
	c.cells = c.cells[:cols*rows]
	c.Clear()
}

// Clear blanks every cell.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = cell{}
	}
}

// FillRect paints r with color. A column is painted when its center lies
// inside r. Partially covered rows get a block glyph approximating the
// covered fraction.
func (c *Canvas) FillRect(r Rect, color RGB) {
	if r.Empty() {
		return
	}
	x0 := int(math.Max(0, math.Ceil(r.X-0.5)))
	x1 := int(math.Min(float64(c.cols), math.Ceil(r.X+r.W-0.5)))
	y0 := int(math.Max(0, math.Floor(r.Y)))
	y1 := int(math.Min(float64(c.rows), math.Ceil(r.Y+r.H)))

	bottom := r.Y + r.H
	for y := y0; y < y1; y++ {
		g := glyph(float64(y), r.Y, bottom)
		if g == 0 {
			continue
		}
		for x := x0; x < x1; x++ {
			c.cells[y*c.cols+x] = cell{r: g, color: color}
		}
	}
}

// glyph picks the block character for the cell row [row, row+1) covered by
// [top, bottom).
func glyph(row, top, bottom float64) rune {
	covered := math.Min(row+1, bottom) - math.Max(row, top)
	eighths := int(math.Round(covered * 8))
	switch {
	case eighths <= 0:
		return 0
	case eighths >= 8:
		return fullBlock
	case bottom >= row+1:
		return lowerBlocks[eighths]
	case top <= row:
		if eighths >= 4 {
			return upperHalf
		}
		return upperEighth
	default:
		return middleBar
	}
}

// Render returns the canvas as newline separated rows of colored glyphs.
func (c *Canvas) Render() string {
	var sb strings.Builder
	sb.Grow(c.rows * (c.cols + 1))
	ansi := newANSIState(c.profile)
	for y := 0; y < c.rows; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < c.cols; x++ {
			cl := c.cells[y*c.cols+x]
			if cl.r == 0 {
				ansi.reset(&sb)
				sb.WriteByte(' ')
				continue
			}
			ansi.set(&sb, cl.color)
			sb.WriteRune(cl.r)
		}
		ansi.reset(&sb)
	}
	return sb.String()
}
