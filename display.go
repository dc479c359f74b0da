package zmachine

import (
	"io"
	"strings"
)

// Attr is a set of text attribute bits, numbered as set_text_style numbers
// them.
type Attr uint8

const (
	AttrNormal   Attr = 0
	AttrReverse  Attr = 1
	AttrBold     Attr = 2
	AttrEmphasis Attr = 4
	AttrFixed    Attr = 8
)

const (
	TEXT_WINDOW   = 0
	STATUS_WINDOW = 1
	SCREEN        = -1
)

// Display is a character cell screen with a lower text window and an upper
// status window of SplitWindow lines. Rows and columns count from 1.
type Display interface {
	Size() (rows, cols int)
	WriteChar(c byte, attr Attr)
	MoveCursor(row, col int)
	Cursor() (row, col int)
	ClearLine()
	ClearWindow(w int)
	ScrollLine()
	SplitWindow(lines int)
	SelectWindow(w int)
}

// TimedOut is what ReadChar returns when the timeout expired first.
const TimedOut = -1

// Keyboard delivers single keypresses. ReadChar waits at most tenths tenths
// of a second, forever when tenths is 0. Enter is '\n' or '\r', backspace
// '\b' or 127.
type Keyboard interface {
	ReadChar(tenths int) (int, error)
}

type eofKeyboard struct{}

func (eofKeyboard) ReadChar(int) (int, error) {
	return 0, io.EOF
}

type Cell struct {
	Ch   byte
	Attr Attr
}

// Grid is an in-memory Display. Hosts render it; tests read it back.
type Grid struct {
	rows, cols int
	cells      []Cell
	row, col   int
	split      int
	window     int
	textRow    int
	textCol    int
}

func NewGrid(rows, cols int) *Grid {
	g := &Grid{rows: rows, cols: cols, cells: make([]Cell, rows*cols)}
	g.clearRows(1, rows)
	g.row, g.col = rows, 1
	return g
}

func (g *Grid) Size() (int, int) {
	return g.rows, g.cols
}

func (g *Grid) cell(row, col int) *Cell {
	return &g.cells[(row-1)*g.cols+col-1]
}

// WriteChar clips at the right edge.
func (g *Grid) WriteChar(c byte, attr Attr) {
	if g.col <= g.cols {
		*g.cell(g.row, g.col) = Cell{Ch: c, Attr: attr}
		g.col++
	}
}

func (g *Grid) MoveCursor(row, col int) {
	g.row = min(max(row, 1), g.rows)
	g.col = min(max(col, 1), g.cols+1)
}

func (g *Grid) Cursor() (int, int) {
	return g.row, g.col
}

// ClearLine blanks from the cursor to the end of its row.
func (g *Grid) ClearLine() {
	for c := g.col; c <= g.cols; c++ {
		*g.cell(g.row, c) = Cell{Ch: ' '}
	}
}

func (g *Grid) clearRows(from, to int) {
	for r := from; r <= to; r++ {
		for c := 1; c <= g.cols; c++ {
			*g.cell(r, c) = Cell{Ch: ' '}
		}
	}
}

func (g *Grid) ClearWindow(w int) {
	switch w {
	case TEXT_WINDOW:
		g.clearRows(g.split+1, g.rows)
	case STATUS_WINDOW:
		g.clearRows(1, g.split)
	default:
		g.clearRows(1, g.rows)
	}
}

// ScrollLine moves to the start of the next row, scrolling the text window
// when the cursor is on the last one.
func (g *Grid) ScrollLine() {
	g.col = 1
	if g.row < g.rows {
		g.row++
		return
	}
	top := g.split
	copy(g.cells[top*g.cols:], g.cells[(top+1)*g.cols:])
	g.clearRows(g.rows, g.rows)
}

func (g *Grid) SplitWindow(lines int) {
	g.split = min(max(lines, 0), g.rows-1)
	if g.window == TEXT_WINDOW && g.row <= g.split {
		g.row, g.col = g.split+1, 1
	}
}

// SelectWindow keeps the text window's cursor while the status window is
// in use.
func (g *Grid) SelectWindow(w int) {
	if w == g.window {
		return
	}
	if w == STATUS_WINDOW {
		g.textRow, g.textCol = g.row, g.col
		g.row, g.col = 1, 1
	} else {
		g.row, g.col = g.textRow, g.textCol
		if g.row <= g.split {
			g.row, g.col = g.split+1, 1
		}
	}
	g.window = w
}

func (g *Grid) Row(row int) []Cell {
	return g.cells[(row-1)*g.cols : row*g.cols]
}

// Line is the text of one row without trailing blanks.
func (g *Grid) Line(row int) string {
	b := make([]byte, g.cols)
	for i, c := range g.Row(row) {
		b[i] = c.Ch
	}
	return strings.TrimRight(string(b), " ")
}

func (g *Grid) String() string {
	var sb strings.Builder
	for r := 1; r <= g.rows; r++ {
		sb.WriteString(g.Line(r))
		sb.WriteByte('\n')
	}
	return sb.String()
}
