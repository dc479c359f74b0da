package zmachine

import (
	"bytes"
	"fmt"
	"io"
)

const maxRedirects = 16

// Text style markers sit in the line buffer as style+1, below ' '.
const (
	styleMarkerMin = 1
	styleMarkerMax = 9
)

// ZSCII 155-223 as plain ASCII.
var extraChars = []string{
	"ae", "oe", "ue", "Ae", "Oe", "Ue", "ss", ">>", "<<",
	"e", "i", "y", "E", "I",
	"a", "e", "i", "o", "u", "y", "A", "E", "I", "O", "U", "Y",
	"a", "e", "i", "o", "u", "A", "E", "I", "O", "U",
	"a", "e", "i", "o", "u", "A", "E", "I", "O", "U",
	"a", "A", "o", "O",
	"a", "n", "o", "A", "N", "O",
	"ae", "AE", "c", "C", "th", "th", "Th", "Th",
	"L", "oe", "OE", "!", "?",
}

type redirect struct {
	table uint32
	count uint16
}

// Screen is the output side of the machine: output streams, the two
// windows, word wrap, paging and the V3 status line.
type Screen struct {
	zm         *ZMachine
	disp       Display
	transcript io.Writer
	more       bool

	rows, cols int
	window     int
	statusSize int
	formatting bool
	buffering  bool
	outputting bool
	attr       Attr
	font       uint16

	line         []byte
	charCount    int
	linesWritten int

	redirects []redirect
	status    []byte
}

func newScreen(zm *ZMachine, disp Display, transcript io.Writer, more bool) *Screen {
	return &Screen{zm: zm, disp: disp, transcript: transcript, more: more}
}

func (s *Screen) reset() {
	s.rows, s.cols = s.size()
	s.window = TEXT_WINDOW
	s.formatting = true
	s.buffering = true
	s.outputting = true
	s.attr = AttrNormal
	s.font = 1
	s.line = s.line[:0]
	s.charCount = s.cols
	s.linesWritten = 0
	s.redirects = nil
	s.status = bytes.Repeat([]byte{' '}, s.cols)

	s.disp.SelectWindow(TEXT_WINDOW)
	s.statusSize = 0
	s.disp.SplitWindow(0)
	s.splitWindow(0)
	s.disp.ClearWindow(SCREEN)
	s.homeCursor()
}

// size is the display size clamped to what the header can describe.
func (s *Screen) size() (int, int) {
	rows, cols := s.disp.Size()
	return min(max(rows, 2), 255), min(max(cols, 1), 255)
}

func (s *Screen) version() uint8 {
	return s.zm.header.Version
}

// homeCursor puts the text cursor where a cleared text window starts.
func (s *Screen) homeCursor() {
	if s.window != TEXT_WINDOW {
		return
	}
	if s.version() >= 5 {
		s.disp.MoveCursor(s.statusSize+1, 1)
	} else {
		s.disp.MoveCursor(s.rows, 1)
	}
}

func (s *Screen) scripting() bool {
	return s.transcript != nil && s.zm.GetUint16(H_FLAGS)&SCRIPTING_FLAG != 0
}

// printZChar writes one decoded ZSCII character.
func (s *Screen) printZChar(c uint16) {
	switch {
	case c == ZSCII_NEWLINE:
		s.newLine()
	case c == '\t':
		s.writeChar(' ')
	case c >= ' ' && c < 127:
		s.writeChar(byte(c))
	case c >= 155 && c <= 223:
		for _, b := range []byte(extraChars[c-155]) {
			s.writeChar(b)
		}
	case c != 0:
		s.writeChar('?')
	}
}

func (s *Screen) printString(str string) {
	for i := 0; i < len(str); i++ {
		if str[i] == '\n' {
			s.newLine()
		} else {
			s.writeChar(str[i])
		}
	}
}

func (s *Screen) writeChar(c byte) {
	if n := len(s.redirects); n > 0 {
		r := &s.redirects[n-1]
		s.zm.SetUint8(r.table+2+uint32(r.count), c)
		r.count++
		return
	}
	if !s.outputting {
		if c >= ' ' && s.window == TEXT_WINDOW && s.scripting() {
			s.transcript.Write([]byte{c})
		}
		return
	}
	if s.formatting && s.window == TEXT_WINDOW {
		s.bufferChar(c)
		return
	}
	s.outputChar(c)
}

// bufferChar adds to the current line, wrapping at the last space when the
// line is full.
func (s *Screen) bufferChar(c byte) {
	if s.charCount < 1 && c >= ' ' {
		if c == ' ' {
			s.newLine()
			return
		}
		i := bytes.LastIndexByte(s.line, ' ')
		if i < 0 {
			s.newLine()
		} else {
			rest := append([]byte(nil), s.line[i+1:]...)
			s.line = s.line[:i]
			s.newLine()
			s.line = append(s.line, rest...)
			s.charCount -= visibleLen(rest)
		}
	}
	s.line = append(s.line, c)
	if c >= ' ' {
		s.charCount--
	}
}

func visibleLen(b []byte) int {
	n := 0
	for _, c := range b {
		if c >= ' ' {
			n++
		}
	}
	return n
}

// outputChar sends a character or a style marker straight to the display.
func (s *Screen) outputChar(c byte) {
	if c >= styleMarkerMin && c <= styleMarkerMax {
		if style := Attr(c - 1); style == AttrNormal {
			s.attr = AttrNormal
		} else {
			s.attr |= style
		}
		return
	}
	if s.window == STATUS_WINDOW {
		if row, col := s.disp.Cursor(); row == 1 && col <= len(s.status) {
			s.status[col-1] = c
		}
	}
	s.disp.WriteChar(c, s.attr)
}

// flush empties the line buffer onto the display and the transcript.
func (s *Screen) flush() {
	if len(s.line) == 0 {
		return
	}
	for _, c := range s.line {
		s.outputChar(c)
	}
	if s.scripting() {
		var b []byte
		for _, c := range s.line {
			if c >= ' ' {
				b = append(b, c)
			}
		}
		s.transcript.Write(b)
	}
	s.line = s.line[:0]
}

func (s *Screen) newLine() {
	if n := len(s.redirects); n > 0 {
		s.writeChar(ZSCII_NEWLINE)
		return
	}
	if !s.outputting {
		if s.window == TEXT_WINDOW && s.scripting() {
			io.WriteString(s.transcript, "\n")
		}
		return
	}

	s.flush()
	if s.window == STATUS_WINDOW {
		row, _ := s.disp.Cursor()
		if row < s.statusSize {
			s.disp.MoveCursor(row+1, 1)
		}
		return
	}

	if s.scripting() {
		io.WriteString(s.transcript, "\n")
	}
	s.charCount = s.cols
	s.linesWritten++
	s.disp.ScrollLine()
	if s.more && s.linesWritten >= s.rows-s.statusSize-1 {
		s.morePrompt()
	}
}

func (s *Screen) morePrompt() {
	attr := s.attr
	for _, c := range []byte("[MORE]") {
		s.disp.WriteChar(c, AttrReverse)
	}
	s.readKey(0)
	row, _ := s.disp.Cursor()
	s.disp.MoveCursor(row, 1)
	s.disp.ClearLine()
	s.attr = attr
	s.linesWritten = 0
}

// readKey reads one key, carrying keyboard failures out of the instruction.
func (s *Screen) readKey(tenths int) int {
	c, err := s.zm.kbd.ReadChar(tenths)
	if err != nil {
		panic(inputError{err})
	}
	return c
}

// echo draws typed input in the text window without buffering it.
func (s *Screen) echo(c byte) {
	s.disp.WriteChar(c, s.attr)
}

// rubout erases the character before the cursor.
func (s *Screen) rubout() {
	row, col := s.disp.Cursor()
	if col <= 1 {
		return
	}
	s.disp.MoveCursor(row, col-1)
	s.disp.WriteChar(' ', s.attr)
	s.disp.MoveCursor(row, col-1)
}

// inputDone records a finished input line in the transcript and moves on.
func (s *Screen) inputDone(line []byte) {
	if s.scripting() {
		s.transcript.Write(line)
	}
	s.newLine()
	s.linesWritten = 0
}

func (s *Screen) splitWindow(lines int) {
	s.flush()
	if s.version() < 4 {
		lines++
	}
	lines = min(max(lines, 0), s.rows-1)
	s.statusSize = lines
	s.disp.SplitWindow(lines)
	if s.version() < 4 && lines > 0 {
		s.disp.ClearWindow(STATUS_WINDOW)
	}
}

func (s *Screen) selectWindow(w int) {
	s.flush()
	s.attr = AttrNormal
	s.window = w
	s.disp.SelectWindow(w)
	if w == STATUS_WINDOW {
		s.formatting = false
		if s.version() < 4 {
			s.disp.MoveCursor(2, 1)
		} else {
			s.disp.MoveCursor(1, 1)
		}
		return
	}
	s.formatting = s.buffering
}

func (s *Screen) eraseWindow(w int16) {
	s.flush()
	switch w {
	case -1:
		s.disp.ClearWindow(SCREEN)
		s.statusSize = 0
		s.disp.SplitWindow(0)
		if s.window == STATUS_WINDOW {
			s.selectWindow(TEXT_WINDOW)
		}
	case -2:
		s.disp.ClearWindow(SCREEN)
	case TEXT_WINDOW:
		s.disp.ClearWindow(TEXT_WINDOW)
	case STATUS_WINDOW:
		s.disp.ClearWindow(STATUS_WINDOW)
		return
	default:
		return
	}
	s.linesWritten = 0
	s.homeCursor()
}

func (s *Screen) eraseLine(v uint16) {
	if v == 1 {
		s.flush()
		s.disp.ClearLine()
	}
}

func (s *Screen) setCursor(row, col int) {
	if s.window == STATUS_WINDOW {
		s.disp.MoveCursor(row, col)
	}
}

func (s *Screen) cursor() (int, int) {
	s.flush()
	return s.disp.Cursor()
}

func (s *Screen) setTextStyle(style uint16) {
	if style > styleMarkerMax-1 {
		return
	}
	marker := byte(style) + 1
	if s.formatting && s.window == TEXT_WINDOW && s.outputting && len(s.redirects) == 0 {
		s.line = append(s.line, marker)
		return
	}
	s.outputChar(marker)
}

func (s *Screen) setBufferMode(on bool) {
	s.buffering = on
	if s.window != TEXT_WINDOW {
		return
	}
	if !on {
		s.flush()
	}
	s.formatting = on
}

// setFont returns the previous font, or 0 when the font is unavailable.
func (s *Screen) setFont(font uint16) uint16 {
	switch font {
	case 0:
		return s.font
	case 1, 4:
		prev := s.font
		s.font = font
		return prev
	}
	return 0
}

// outputStream selects or deselects stream |n|. Stream 3 needs a table.
func (s *Screen) outputStream(n int16, table uint32) {
	switch n {
	case 1:
		s.outputting = true
	case -1:
		s.flush()
		s.outputting = false
	case 2, -2:
		s.flush()
		flags := s.zm.GetUint16(H_FLAGS)
		if n > 0 {
			flags |= SCRIPTING_FLAG
		} else {
			flags &^= SCRIPTING_FLAG
		}
		s.zm.SetUint16(H_FLAGS, flags)
	case 3:
		if len(s.redirects) >= maxRedirects {
			s.zm.fatal(IllegalOperation)
		}
		s.flush()
		s.redirects = append(s.redirects, redirect{table: table})
	case -3:
		if len(s.redirects) == 0 {
			return
		}
		r := s.redirects[len(s.redirects)-1]
		s.redirects = s.redirects[:len(s.redirects)-1]
		s.zm.SetUint16(r.table, r.count)
	}
}

// printTable prints a width by height block of characters, skip bytes
// apart, each row starting under the first.
func (s *Screen) printTable(table uint32, width, height, skip uint16) {
	s.flush()
	row, col := s.disp.Cursor()
	for h := uint16(0); h < height; h++ {
		if h > 0 {
			s.flush()
			row++
			s.disp.MoveCursor(row, col)
		}
		for w := uint16(0); w < width; w++ {
			s.printZChar(uint16(s.zm.GetUint8(table)))
			table++
		}
		table += uint32(skip)
	}
	s.flush()
}

// showStatus draws the V3 status line: location on the left, then either
// the score and moves or the time.
func (s *Screen) showStatus() {
	if s.version() >= 4 || s.statusSize == 0 {
		return
	}
	s.flush()

	line := bytes.Repeat([]byte{' '}, s.cols)
	var name []byte
	zm := s.zm
	if obj := zm.ReadGlobal(V3_STATUS_GLOBAL); obj != NULL_OBJECT_INDEX {
		name = []byte(zm.objectName(obj))
	}
	copy(line[1:], name)

	a, b := zm.ReadGlobal(V3_SCORE_GLOBAL), zm.ReadGlobal(V3_MOVES_GLOBAL)
	if zm.header.Config&CONFIG_TIME != 0 {
		if col := s.cols - 20; col > 0 {
			copy(line[col:], "Time: "+formatTime(a, b))
		}
	} else if col := s.cols - 14; col > 0 {
		copy(line[col:], "Score: "+formatScore(a, b))
	}

	s.disp.SelectWindow(STATUS_WINDOW)
	s.disp.MoveCursor(1, 1)
	for _, c := range line {
		s.disp.WriteChar(c, AttrReverse)
	}
	s.disp.SelectWindow(s.window)
	copy(s.status, line)
}

// statusWords packs the first 24 characters of the status row, two to a
// word, for the save slot digest.
func (s *Screen) statusWords() [12]uint16 {
	var w [12]uint16
	for i := range w {
		var hi, lo byte = ' ', ' '
		if 2*i < len(s.status) {
			hi = s.status[2*i]
		}
		if 2*i+1 < len(s.status) {
			lo = s.status[2*i+1]
		}
		w[i] = uint16(hi)<<8 | uint16(lo)
	}
	return w
}

func formatTime(hours, minutes uint16) string {
	hours %= 24
	ampm := "am"
	if hours >= 12 {
		ampm = "pm"
	}
	if hours %= 12; hours == 0 {
		hours = 12
	}
	return fmt.Sprintf("%2d:%02d %s", hours, minutes, ampm)
}

func formatScore(score, moves uint16) string {
	return fmt.Sprintf("%d/%d", int16(score), moves)
}
