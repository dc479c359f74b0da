package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	zmachine "github.com/rossumur/Zorkduino"
	"golang.org/x/term"
)

type key struct {
	c   byte
	err error
}

// terminal is the host side of the machine: a Grid drawn onto stdout with
// ANSI escapes and a raw-mode keyboard on stdin. When stdout is not a
// terminal the final screen is printed on close instead.
type terminal struct {
	grid     *zmachine.Grid
	out      *bufio.Writer
	keys     chan key
	err      error
	fd       int
	oldState *term.State
	ansi     bool
}

func openTerminal(rows, cols int) (*terminal, error) {
	t := &terminal{
		out:  bufio.NewWriter(os.Stdout),
		keys: make(chan key, 64),
		fd:   int(os.Stdin.Fd()),
		ansi: term.IsTerminal(int(os.Stdout.Fd())),
	}

	if rows == 0 || cols == 0 {
		rows, cols = 24, 80
		if width, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 && height > 0 {
			rows, cols = height, width
		}
	}
	t.grid = zmachine.NewGrid(rows, cols)

	if term.IsTerminal(t.fd) {
		state, err := term.MakeRaw(t.fd)
		if err != nil {
			return nil, fmt.Errorf("cannot enter raw mode: %w", err)
		}
		t.oldState = state
	}
	if t.ansi {
		fmt.Fprint(t.out, "\x1b[2J")
	}

	go t.readLoop()
	return t, nil
}

func (t *terminal) readLoop() {
	r := bufio.NewReader(os.Stdin)
	for {
		c, err := r.ReadByte()
		if err != nil {
			t.keys <- key{err: err}
			return
		}
		t.keys <- key{c: c}
	}
}

// ReadChar draws the screen and waits for a key. Ctrl-C and Ctrl-D end
// the session.
func (t *terminal) ReadChar(tenths int) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	t.render()

	var timeout <-chan time.Time
	if tenths > 0 {
		timer := time.NewTimer(time.Duration(tenths) * 100 * time.Millisecond)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case k := <-t.keys:
		if k.err != nil {
			t.err = k.err
			return 0, k.err
		}
		if k.c == 3 || k.c == 4 {
			t.err = io.EOF
			return 0, io.EOF
		}
		return int(k.c), nil
	case <-timeout:
		return zmachine.TimedOut, nil
	}
}

func sgr(attr zmachine.Attr) string {
	s := "\x1b[0"
	if attr&zmachine.AttrReverse != 0 {
		s += ";7"
	}
	if attr&zmachine.AttrBold != 0 {
		s += ";1"
	}
	if attr&zmachine.AttrEmphasis != 0 {
		s += ";4"
	}
	return s + "m"
}

func (t *terminal) render() {
	if !t.ansi {
		return
	}
	rows, _ := t.grid.Size()
	for r := 1; r <= rows; r++ {
		fmt.Fprintf(t.out, "\x1b[%d;1H", r)
		attr := zmachine.AttrNormal
		t.out.WriteString(sgr(attr))
		for _, cell := range t.grid.Row(r) {
			if cell.Attr != attr {
				attr = cell.Attr
				t.out.WriteString(sgr(attr))
			}
			t.out.WriteByte(cell.Ch)
		}
	}
	row, col := t.grid.Cursor()
	fmt.Fprintf(t.out, "\x1b[0m\x1b[%d;%dH", row, col)
	t.out.Flush()
}

func (t *terminal) Close() error {
	if t.ansi {
		t.render()
		rows, _ := t.grid.Size()
		fmt.Fprintf(t.out, "\x1b[%d;1H\r\n", rows)
	} else {
		t.out.WriteString(t.grid.String())
	}
	t.out.Flush()
	if t.oldState != nil {
		return term.Restore(t.fd, t.oldState)
	}
	return nil
}
