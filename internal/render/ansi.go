package render

import (
	"bufio"
	"strconv"

	"github.com/charmbracelet/x/ansi"
)

const (
	// CursorHome moves the cursor to the top-left cell.
	CursorHome = ansi.CursorHomePosition
)

// writeCursorPosition writes CUP for the 0-indexed row and col. Both
// parameters are always written, including at the top-left cell.
func writeCursorPosition(w *bufio.Writer, row, col int) {
	var buf [24]byte
	b := append(buf[:0], "\x1b["...)
	b = strconv.AppendInt(b, int64(row+1), 10)
	b = append(b, ';')
	b = strconv.AppendInt(b, int64(col+1), 10)
	b = append(b, 'H')
	_, _ = w.Write(b)
}
