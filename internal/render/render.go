// Package render repaints the visible pane with the fewest terminal writes.
package render

import (
	"bufio"
	"fmt"
	"io"
	"unicode"

	"pkt.systems/splix/core"
	"pkt.systems/splix/schema"
)

const (
	blank    = ' '
	tabWidth = 8
)

// Renderer diffs each frame against the previous one and writes only the
// changed runs of each row.
//
// Every rune occupies exactly one cell; East Asian wide characters are not
// given a second column, so rows holding them appear shifted. A tab advances
// to the next multiple of eight columns and other control runes render as
// one blank cell.
type Renderer struct {
	out      *bufio.Writer
	width    int
	height   int
	current  []rune
	previous []rune
}

// New returns a renderer for a width x height screen that starts cleared.
func New(w io.Writer, width, height int) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", schema.ErrInvalidSize, width, height)
	}
	r := &Renderer{
		out:      bufio.NewWriterSize(w, 16*1024),
		width:    width,
		height:   height,
		current:  make([]rune, width*height),
		previous: make([]rune, width*height),
	}
	fill(r.current)
	fill(r.previous)
	return r, nil
}

// Size returns the screen dimensions.
func (r *Renderer) Size() (width, height int) { return r.width, r.height }

// BeginFrame homes the cursor and starts a blank frame.
func (r *Renderer) BeginFrame() {
	_, _ = r.out.WriteString(CursorHome)
	copy(r.previous, r.current)
	fill(r.current)
}

// Draw places lines into the frame, clipped to the screen.
func (r *Renderer) Draw(lines [][]rune) {
	for row, line := range lines {
		if row >= r.height {
			break
		}
		base := row * r.width
		col := 0
		for _, ch := range line {
			if col >= r.width {
				break
			}
			if ch == '\t' {
				// Cells are blank from BeginFrame; only the column moves.
				col = (col/tabWidth + 1) * tabWidth
				continue
			}
			if unicode.IsControl(ch) {
				ch = blank
			}
			r.current[base+col] = ch
			col++
		}
	}
}

// DrawPane draws the pane's grid.
func (r *Renderer) DrawPane(p *core.Pane) {
	r.Draw(p.Grid().Lines())
}

// DrawWindow draws the window's active pane.
func (r *Renderer) DrawWindow(w *core.Window) {
	r.DrawPane(w.ActivePane())
}

// EndFrame writes every changed run and flushes once.
func (r *Renderer) EndFrame() error {
	for row := 0; row < r.height; row++ {
		base := row * r.width
		col := 0
		for col < r.width {
			if r.current[base+col] == r.previous[base+col] {
				col++
				continue
			}
			writeCursorPosition(r.out, row, col)
			for col < r.width && r.current[base+col] != r.previous[base+col] {
				_, _ = r.out.WriteRune(r.current[base+col])
				col++
			}
		}
	}
	return r.out.Flush()
}

func fill(cells []rune) {
	for i := range cells {
		cells[i] = blank
	}
}

var _ core.Renderer = (*Renderer)(nil)
