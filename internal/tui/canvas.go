package tui

import (
	"math"
	"strings"

	"github.com/gravitas-games/gridinv/internal/geom"
)

// canvas is a fixed character grid that remembers a style per cell.
type canvas struct {
	w, h   int
	runes  []rune
	styles []cellStyle
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, runes: make([]rune, w*h), styles: make([]cellStyle, w*h)}
	for i := range c.runes {
		c.runes[i] = ' '
	}
	return c
}

func (c *canvas) set(x, y int, r rune, st cellStyle) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.runes[y*c.w+x] = r
	c.styles[y*c.w+x] = st
}

func (c *canvas) at(x, y int) rune {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return 0
	}
	return c.runes[y*c.w+x]
}

// cells converts a layout box to the cell range it covers.
func cells(r geom.Rect) (x0, y0, x1, y1 int) {
	return int(math.Round(r.Min.X())), int(math.Round(r.Min.Y())),
		int(math.Round(r.Max.X())), int(math.Round(r.Max.Y()))
}

func (c *canvas) fill(r geom.Rect, ch rune, st cellStyle) {
	x0, y0, x1, y1 := cells(r)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			c.set(x, y, ch, st)
		}
	}
}

func (c *canvas) text(x, y int, s string, st cellStyle) {
	for _, r := range s {
		c.set(x, y, r, st)
		x++
	}
}

// String renders the canvas, styling runs of equally styled cells together.
func (c *canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		start := 0
		for x := 1; x <= c.w; x++ {
			i := y*c.w + x
			if x < c.w && c.styles[i] == c.styles[i-1] {
				continue
			}
			row := c.runes[y*c.w+start : y*c.w+x]
			b.WriteString(cellStyles[c.styles[y*c.w+start]].Render(string(row)))
			start = x
		}
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
