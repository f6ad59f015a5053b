package core

import (
	"strings"

	"pkt.systems/splix/schema"
)

// Grid is an append-only line buffer. It always holds at least one line;
// the zero value is an empty grid.
type Grid struct {
	lines [][]rune
}

// Apply performs one grid update.
func (g *Grid) Apply(u schema.GridUpdate) {
	switch u.Kind {
	case schema.GridAppendChar:
		g.AppendChar(u.Char)
	case schema.GridNewLine:
		g.NewLine()
	}
}

// AppendChar appends r to the last line.
func (g *Grid) AppendChar(r rune) {
	g.ensure()
	last := len(g.lines) - 1
	g.lines[last] = append(g.lines[last], r)
}

// NewLine starts a new empty line.
func (g *Grid) NewLine() {
	g.ensure()
	g.lines = append(g.lines, nil)
}

func (g *Grid) ensure() {
	if len(g.lines) == 0 {
		g.lines = append(g.lines, nil)
	}
}

// Len returns the number of lines.
func (g *Grid) Len() int {
	if len(g.lines) == 0 {
		return 1
	}
	return len(g.lines)
}

// Line returns line i. The slice must not be modified.
func (g *Grid) Line(i int) []rune {
	if i < 0 || i >= len(g.lines) {
		return nil
	}
	return g.lines[i]
}

// Lines returns every line. The result shares storage with the grid and
// must not be modified.
func (g *Grid) Lines() [][]rune {
	g.ensure()
	return g.lines
}

func (g *Grid) String() string {
	var b strings.Builder
	for i, line := range g.Lines() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(line))
	}
	return b.String()
}
