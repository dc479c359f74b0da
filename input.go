package zmachine

type inputKind int

const (
	lineInput inputKind = iota
	charInput
)

// pendingInput is a read in progress. A read whose timeout expires is
// parked on zm.pending while its handler routine runs; the handler's
// return value decides whether the read carries on or gives up.
type pendingInput struct {
	kind    inputKind
	tenths  uint16
	routine uint16

	// line reads
	text     uint32
	parse    uint32
	start    uint32
	max      int
	readSize int
	row, col int
}

// readInput waits for the read to complete, or parks it and calls its
// handler on a timeout.
func (zm *ZMachine) readInput(p *pendingInput) {
	for {
		var c int
		var ok bool
		if p.kind == lineInput {
			c, ok = zm.editLine(p)
		} else {
			c = zm.screen.readKey(int(p.tenths))
			ok = c != TimedOut
		}
		if ok {
			zm.finishInput(p, c)
			return
		}
		if p.routine == 0 {
			continue
		}
		p.row, p.col = zm.screen.disp.Cursor()
		zm.pending = append(zm.pending, p)
		zm.log.Debug("input timed out", "routine", p.routine, "depth", len(zm.pending))
		zm.Call([]uint16{p.routine}, CALL_ASYNC)
		return
	}
}

// resumeInput receives the result of a timeout handler. Non-zero abandons
// the parked read, zero carries on with it.
func (zm *ZMachine) resumeInput(value uint16) {
	n := len(zm.pending)
	if n == 0 {
		zm.log.Warn("timeout handler returned with no read pending")
		return
	}
	p := zm.pending[n-1]
	zm.pending = zm.pending[:n-1]

	if value != 0 {
		p.readSize = 0
		zm.finishInput(p, 0)
		return
	}
	if p.kind == lineInput {
		zm.screen.flush()
		// The handler printed something, so show the typing again.
		if row, col := zm.screen.disp.Cursor(); row != p.row || col != p.col {
			for i := 0; i < p.readSize; i++ {
				zm.screen.echo(zm.GetUint8(p.start + uint32(i)))
			}
		}
	}
	zm.readInput(p)
}

// editLine collects typed characters into the text buffer, echoing them.
// It returns the terminator, or false on a timeout.
func (zm *ZMachine) editLine(p *pendingInput) (int, bool) {
	s := zm.screen
	for {
		c := s.readKey(int(p.tenths))
		switch {
		case c == TimedOut:
			return 0, false
		case c == '\n' || c == '\r':
			return ZSCII_NEWLINE, true
		case c == '\b' || c == 127:
			if p.readSize > 0 {
				p.readSize--
				s.rubout()
			}
		case c >= ' ' && c < 127:
			_, col := s.disp.Cursor()
			if p.readSize < p.max && col < s.cols {
				if c >= 'A' && c <= 'Z' {
					c += 'a' - 'A'
				}
				zm.SetUint8(p.start+uint32(p.readSize), byte(c))
				p.readSize++
				s.echo(byte(c))
			}
		}
	}
}

// finishInput stores the outcome of a read. terminator 0 means it was
// abandoned.
func (zm *ZMachine) finishInput(p *pendingInput, terminator int) {
	if p.kind == charInput {
		zm.StoreResult(uint16(zsciiKey(terminator)))
		return
	}

	line := make([]byte, p.readSize)
	for i := range line {
		line[i] = zm.GetUint8(p.start + uint32(i))
	}
	if zm.header.Version >= 5 {
		zm.SetUint8(p.text+1, uint8(p.readSize))
	} else {
		zm.SetUint8(p.start+uint32(p.readSize), 0)
	}
	if terminator != 0 {
		zm.screen.inputDone(line)
	}
	if p.parse != 0 {
		zm.Tokenise(p.text, p.parse, zm.header.dictAddress, false)
	}
	if zm.header.Version >= 5 {
		zm.StoreResult(uint16(terminator))
	}
}

// zsciiKey maps a host key to the ZSCII input set.
func zsciiKey(c int) int {
	switch {
	case c == '\n' || c == '\r':
		return ZSCII_NEWLINE
	case c == '\b' || c == 127:
		return 8
	case c < 0 || c > 255:
		return '?'
	}
	return c
}

// "sread text parse" before V4, "sread text parse time routine" in V4 and
// "aread text parse time routine -> (result)" from V5.
func ZRead(zm *ZMachine, args []uint16, numArgs uint16) {
	p := &pendingInput{kind: lineInput, text: uint32(args[0])}
	if numArgs > 1 {
		p.parse = uint32(args[1])
	}
	if numArgs > 3 && zm.header.Version >= 4 {
		p.tenths, p.routine = args[2], args[3]
	}

	if zm.header.Version < 4 {
		zm.screen.showStatus()
	}
	zm.screen.flush()
	zm.screen.linesWritten = 0

	p.max = int(zm.GetUint8(p.text))
	if zm.header.Version >= 5 {
		p.start = p.text + 2
		p.readSize = min(int(zm.GetUint8(p.text+1)), p.max)
	} else {
		p.start = p.text + 1
		p.max--
	}
	p.max = max(p.max, 0)
	zm.readInput(p)
}

// "read_char 1 time routine -> (result)"
func ZReadChar(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.flush()
	if numArgs > 0 && args[0] != 1 {
		zm.StoreResult(0)
		return
	}
	p := &pendingInput{kind: charInput}
	if numArgs > 2 {
		p.tenths, p.routine = args[1], args[2]
	}
	zm.screen.linesWritten = 0
	zm.readInput(p)
}
