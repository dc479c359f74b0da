package zmachine

import (
	"bytes"
	"strings"
	"testing"
)

func newTestScreen(t *testing.T, version uint8, opts Options) (*ZMachine, *Screen, *Grid) {
	t.Helper()
	if opts.Display == nil {
		opts.Display = NewGrid(10, 20)
	}
	zm, grid := loadStory(t, newStory(version).build(), opts)
	return zm, zm.screen, grid
}

func TestWordWrap(t *testing.T) {
	_, s, grid := newTestScreen(t, 5, Options{})
	s.printString("the quick brown fox jumps over")
	s.flush()

	if got := grid.Line(1); got != "the quick brown fox" {
		t.Errorf("line 1 = %q", got)
	}
	if got := grid.Line(2); got != "jumps over" {
		t.Errorf("line 2 = %q", got)
	}
}

func TestWrapLongWord(t *testing.T) {
	_, s, grid := newTestScreen(t, 5, Options{})
	s.printString(strings.Repeat("x", 25))
	s.flush()

	if got := grid.Line(1); got != strings.Repeat("x", 20) {
		t.Errorf("line 1 = %q", got)
	}
	if got := grid.Line(2); got != "xxxxx" {
		t.Errorf("line 2 = %q", got)
	}
}

func TestUnbufferedOutput(t *testing.T) {
	_, s, grid := newTestScreen(t, 5, Options{})
	s.setBufferMode(false)
	s.printString("now")
	if got := grid.Line(1); got != "now" {
		t.Errorf("unbuffered output = %q, want now", got)
	}
}

func TestTextStyles(t *testing.T) {
	_, s, grid := newTestScreen(t, 5, Options{})
	s.setTextStyle(2)
	s.printString("B")
	s.setTextStyle(1)
	s.printString("R")
	s.setTextStyle(0)
	s.printString("n")
	s.flush()

	row := grid.Row(1)
	want := []Attr{AttrBold, AttrBold | AttrReverse, AttrNormal}
	for i, w := range want {
		if row[i].Attr != w {
			t.Errorf("cell %d attr = %d, want %d", i, row[i].Attr, w)
		}
	}
	if got := grid.Line(1); got != "BRn" {
		t.Errorf("text = %q, want BRn", got)
	}
}

func TestOutputStreamMemory(t *testing.T) {
	zm, s, grid := newTestScreen(t, 5, Options{})
	s.outputStream(3, testText)
	s.printString("hi")
	s.newLine()
	s.outputStream(-3, 0)

	if n := zm.GetUint16(testText); n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	got := []byte{zm.GetUint8(testText + 2), zm.GetUint8(testText + 3), zm.GetUint8(testText + 4)}
	if !bytes.Equal(got, []byte{'h', 'i', ZSCII_NEWLINE}) {
		t.Errorf("table = %q", got)
	}
	s.flush()
	if out := grid.Line(1); out != "" {
		t.Errorf("redirected text reached the screen: %q", out)
	}
}

func TestOutputStreamMemoryNests(t *testing.T) {
	zm, s, _ := newTestScreen(t, 5, Options{})
	s.outputStream(3, testText)
	s.printString("a")
	s.outputStream(3, testParse)
	s.printString("b")
	s.outputStream(-3, 0)
	s.printString("c")
	s.outputStream(-3, 0)

	if n := zm.GetUint16(testParse); n != 1 || zm.GetUint8(testParse+2) != 'b' {
		t.Errorf("inner table count %d", n)
	}
	if n := zm.GetUint16(testText); n != 2 || zm.GetUint8(testText+2) != 'a' || zm.GetUint8(testText+3) != 'c' {
		t.Errorf("outer table count %d", n)
	}

	// Closing with nothing open is ignored.
	s.outputStream(-3, 0)
}

func TestOutputStreamMemoryDepth(t *testing.T) {
	_, s, _ := newTestScreen(t, 5, Options{})
	for i := 0; i < maxRedirects; i++ {
		s.outputStream(3, testText)
	}
	if code := fatalCode(func() { s.outputStream(3, testText) }); code != IllegalOperation {
		t.Errorf("code = %v, want %v", code, IllegalOperation)
	}
}

func TestOutputStreamScreenOff(t *testing.T) {
	_, s, grid := newTestScreen(t, 5, Options{})
	s.outputStream(-1, 0)
	s.printString("hidden")
	s.flush()
	s.outputStream(1, 0)
	s.printString("shown")
	s.flush()
	if got := grid.Line(1); got != "shown" {
		t.Errorf("screen = %q, want shown", got)
	}
}

func TestTranscript(t *testing.T) {
	var transcript bytes.Buffer
	zm, s, _ := newTestScreen(t, 5, Options{Transcript: &transcript})
	s.printString("before")
	s.newLine()
	s.outputStream(2, 0)
	if zm.GetUint16(H_FLAGS)&SCRIPTING_FLAG == 0 {
		t.Errorf("scripting flag not set")
	}
	s.printString("hello")
	s.newLine()
	s.outputStream(-2, 0)
	s.printString("after")
	s.newLine()

	if got := transcript.String(); got != "hello\n" {
		t.Errorf("transcript = %q, want %q", got, "hello\n")
	}
}

func TestMorePrompt(t *testing.T) {
	kbd := typed("  ")
	_, s, grid := newTestScreen(t, 5, Options{Display: NewGrid(5, 20), More: true, Keyboard: kbd})
	for i := 0; i < 4; i++ {
		s.printString("line")
		s.newLine()
	}
	if n := len(kbd.keys); n != 1 {
		t.Errorf("keys left = %d, want 1", n)
	}
	if strings.Contains(grid.String(), "[MORE]") {
		t.Errorf("prompt left on screen:\n%s", grid.String())
	}
}

func TestStatusLineTime(t *testing.T) {
	b := newStory(3)
	b.at(H_CONFIG, CONFIG_TIME)
	b.word(testGlobals+2, 14)
	b.word(testGlobals+4, 5)
	zm, grid := loadStory(t, b.build(), Options{})
	zm.screen.showStatus()

	if got := grid.Line(1); !strings.HasSuffix(got, "Time:  2:05 pm") {
		t.Errorf("status = %q", got)
	}
	w := zm.screen.statusWords()
	if w[0] != 0x2020 {
		t.Errorf("first status word = 0x%X, want 0x2020", w[0])
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		h, m uint16
		want string
	}{
		{0, 0, "12:00 am"},
		{9, 5, " 9:05 am"},
		{12, 30, "12:30 pm"},
		{23, 59, "11:59 pm"},
	}
	for _, tt := range tests {
		if got := formatTime(tt.h, tt.m); got != tt.want {
			t.Errorf("formatTime(%d, %d) = %q, want %q", tt.h, tt.m, got, tt.want)
		}
	}
	if got := formatScore(0xFFFF, 3); got != "-1/3" {
		t.Errorf("formatScore = %q, want -1/3", got)
	}
}

func TestUpperWindow(t *testing.T) {
	_, s, grid := newTestScreen(t, 5, Options{})
	s.splitWindow(2)
	s.selectWindow(STATUS_WINDOW)
	s.setCursor(2, 3)
	s.printString("up")
	s.selectWindow(TEXT_WINDOW)
	s.printString("down")
	s.flush()

	if got := grid.Line(2); got != "  up" {
		t.Errorf("upper window row 2 = %q", got)
	}
	if got := grid.Line(3); got != "down" {
		t.Errorf("text window row 3 = %q", got)
	}

	s.eraseWindow(STATUS_WINDOW)
	if got := grid.Line(2); got != "" {
		t.Errorf("upper window not erased: %q", got)
	}
	s.eraseWindow(-1)
	if got := grid.Line(3); got != "" || s.statusSize != 0 {
		t.Errorf("screen not erased")
	}
}

func TestZSCIIOutput(t *testing.T) {
	_, s, grid := newTestScreen(t, 5, Options{})
	for _, c := range []uint16{'a', 155, 9, 300, 0, 'z'} {
		s.printZChar(c)
	}
	s.flush()
	if got := grid.Line(1); got != "aae ?z" {
		t.Errorf("output = %q, want %q", got, "aae ?z")
	}
}

func TestSetFont(t *testing.T) {
	_, s, _ := newTestScreen(t, 5, Options{})
	if f := s.setFont(4); f != 1 {
		t.Errorf("previous font = %d, want 1", f)
	}
	if f := s.setFont(0); f != 4 {
		t.Errorf("current font = %d, want 4", f)
	}
	if f := s.setFont(3); f != 0 {
		t.Errorf("unavailable font = %d, want 0", f)
	}
}

func TestPrintTable(t *testing.T) {
	zm, s, grid := newTestScreen(t, 5, Options{})
	for i, c := range []byte("abcXdefX") {
		zm.SetUint8(testText+uint32(i), c)
	}
	s.printTable(testText, 3, 2, 1)
	if grid.Line(1) != "abc" || grid.Line(2) != "def" {
		t.Errorf("table printed as %q / %q", grid.Line(1), grid.Line(2))
	}
}
