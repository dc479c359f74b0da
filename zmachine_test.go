package zmachine

import (
	"context"
	"errors"
	"io"
	"testing"
)

// Test story layout.
const (
	testAbbrevs   = 0x0040
	testObjects   = 0x0100
	testProps     = 0x0200
	testGlobals   = 0x0400
	testText      = 0x0600
	testParse     = 0x0680
	testStatic    = 0x0800
	testStrings   = 0x0900
	testDict      = 0x0A00
	testCode      = 0x1000
	testStorySize = 0x2000
)

// storyBuilder assembles a small story image by hand.
type storyBuilder struct {
	version uint8
	mem     []byte
}

func newStory(version uint8) *storyBuilder {
	b := &storyBuilder{version: version, mem: make([]byte, testStorySize)}
	b.mem[H_TYPE] = version
	b.word(H_DATA_SIZE, testCode)
	b.word(H_START_PC, testCode)
	b.word(H_WORDS_OFFSET, testDict)
	b.word(H_OBJECTS_OFFSET, testObjects)
	b.word(H_GLOBALS_OFFSET, testGlobals)
	b.word(H_RESTART_SIZE, testStatic)
	b.word(H_SYNONYMS_OFFSET, testAbbrevs)
	// An empty dictionary without separators.
	entry := byte(7)
	if version >= 4 {
		entry = 9
	}
	b.at(testDict, 0, entry, 0, 0)
	return b
}

func (b *storyBuilder) at(address uint32, data ...byte) *storyBuilder {
	copy(b.mem[address:], data)
	return b
}

func (b *storyBuilder) word(address uint32, v uint16) *storyBuilder {
	b.mem[address] = byte(v >> 8)
	b.mem[address+1] = byte(v)
	return b
}

// object fills in the tree links and property table address of object n.
func (b *storyBuilder) object(n, parent, sibling, child, props uint16) *storyBuilder {
	if b.version < 4 {
		a := uint32(testObjects) + 31*2 + uint32(n-1)*9
		b.at(a+4, byte(parent), byte(sibling), byte(child))
		return b.word(a+7, props)
	}
	a := uint32(testObjects) + 63*2 + uint32(n-1)*14
	b.word(a+6, parent).word(a+8, sibling).word(a+10, child)
	return b.word(a+12, props)
}

// build sets the length and checksum words and returns the image.
func (b *storyBuilder) build() []byte {
	scale := uint32(2)
	switch {
	case b.version == 8:
		scale = 8
	case b.version >= 4:
		scale = 4
	}
	var sum uint16
	for _, c := range b.mem[HEADER_SIZE:] {
		sum += uint16(c)
	}
	b.word(H_FILE_SIZE, uint16(uint32(len(b.mem))/scale))
	b.word(H_CHECKSUM, sum)
	return append([]byte(nil), b.mem...)
}

// scriptKeyboard replays keys and then reports io.EOF.
type scriptKeyboard struct {
	keys []int
}

func typed(s string) *scriptKeyboard {
	k := &scriptKeyboard{}
	for i := 0; i < len(s); i++ {
		k.keys = append(k.keys, int(s[i]))
	}
	return k
}

func (k *scriptKeyboard) ReadChar(tenths int) (int, error) {
	if len(k.keys) == 0 {
		return 0, io.EOF
	}
	c := k.keys[0]
	k.keys = k.keys[1:]
	return c, nil
}

func loadStory(t *testing.T, story []byte, opts Options) (*ZMachine, *Grid) {
	t.Helper()
	grid, _ := opts.Display.(*Grid)
	if grid == nil {
		grid = NewGrid(10, 40)
		opts.Display = grid
	}
	zm, err := Load(NewMemDevice(), story, opts)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return zm, grid
}

func runStory(t *testing.T, zm *ZMachine) {
	t.Helper()
	if err := zm.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !zm.Done {
		t.Fatalf("machine still running")
	}
}

// fatalCode runs f and returns the code of the fatal error it raised, or 0.
func fatalCode(f func()) (code ErrorCode) {
	defer func() {
		if e, ok := recover().(*Error); ok {
			code = e.Code
		}
	}()
	f()
	return 0
}

func TestLoadRejectsBadHeaders(t *testing.T) {
	tests := []struct {
		name  string
		story func() []byte
		code  ErrorCode
	}{
		{"version 6", func() []byte { return newStory(6).build() }, UnsupportedVersion},
		{"version 7", func() []byte { return newStory(7).build() }, UnsupportedVersion},
		{"version 0", func() []byte { return newStory(0).build() }, WrongGameOrVersion},
		{"version 9", func() []byte { return newStory(9).build() }, WrongGameOrVersion},
		{"byte swapped", func() []byte { return newStory(3).at(H_CONFIG, CONFIG_BYTE_SWAPPED).build() }, WrongGameOrVersion},
		{"short", func() []byte { return make([]byte, 10) }, WrongGameOrVersion},
		{"static past end", func() []byte { return newStory(3).word(H_RESTART_SIZE, 0x3000).build() }, WrongGameOrVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := NewMemDevice()
			_, err := Load(dev, tt.story(), Options{})
			var zerr *Error
			if !errors.As(err, &zerr) {
				t.Fatalf("Load error = %v, want *Error", err)
			}
			if zerr.Code != tt.code {
				t.Errorf("code = %v, want %v", zerr.Code, tt.code)
			}
			if dev.Writes != 0 {
				t.Errorf("device writes = %d, want 0", dev.Writes)
			}
		})
	}
}

func TestLoadAcceptsColourBitInV5(t *testing.T) {
	story := newStory(5).at(H_CONFIG, CONFIG_COLOUR).build()
	if _, err := Load(NewMemDevice(), story, Options{}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

func TestVersion8IsVersion5(t *testing.T) {
	zm, _ := loadStory(t, newStory(8).build(), Options{})
	if zm.Header().Version != 5 {
		t.Errorf("version = %d, want 5", zm.Header().Version)
	}
	if got := zm.Header().PackedAddress(0x100); got != 0x800 {
		t.Errorf("packed address = 0x%X, want 0x800", got)
	}
}

func TestInterpreterHeader(t *testing.T) {
	zm, _ := loadStory(t, newStory(5).build(), Options{Display: NewGrid(25, 60), UndoDepth: 1})
	if got := zm.GetUint8(H_SCREEN_ROWS); got != 25 {
		t.Errorf("screen rows = %d, want 25", got)
	}
	if got := zm.GetUint8(H_SCREEN_COLUMNS); got != 60 {
		t.Errorf("screen columns = %d, want 60", got)
	}
	if got := zm.GetUint16(H_SCREEN_WIDTH); got != 60 {
		t.Errorf("screen width = %d, want 60", got)
	}
	if zm.GetUint16(H_FLAGS)&UNDO_AVAILABLE_FLAG == 0 {
		t.Errorf("undo flag not set")
	}
	if zm.GetUint8(H_CONFIG)&CONFIG_TIMED_INPUT == 0 {
		t.Errorf("timed input not advertised")
	}
	if hi, lo := zm.GetUint8(H_STANDARD_HIGH), zm.GetUint8(H_STANDARD_LOW); hi != 1 || lo != 0 {
		t.Errorf("standard revision = %d.%d, want 1.0", hi, lo)
	}
}

func TestRestartKeepsScriptingFlag(t *testing.T) {
	zm, _ := loadStory(t, newStory(3).build(), Options{})
	zm.SetGlobal(0x10, 1234)
	zm.SetUint16(H_FLAGS, SCRIPTING_FLAG)
	zm.stack.Push(9)
	zm.ip = testCode + 40

	zm.Restart()
	if got := zm.ReadGlobal(0x10); got != 0 {
		t.Errorf("global after restart = %d, want 0", got)
	}
	if zm.GetUint16(H_FLAGS)&SCRIPTING_FLAG == 0 {
		t.Errorf("scripting flag lost")
	}
	r := zm.Registers()
	if r.PC != testCode || r.SP != MAX_STACK || !r.Running {
		t.Errorf("registers = %+v, want pc 0x%X and an empty stack", r, testCode)
	}
}

func TestWriteToStaticMemoryIsFatal(t *testing.T) {
	zm, _ := loadStory(t, newStory(3).build(), Options{})
	if code := fatalCode(func() { zm.SetUint8(testStatic, 1) }); code != IllegalOperation {
		t.Errorf("code = %v, want %v", code, IllegalOperation)
	}
	if code := fatalCode(func() { zm.SetUint8(testStatic-1, 1) }); code != 0 {
		t.Errorf("write to dynamic memory failed with %v", code)
	}
}

func TestVerify(t *testing.T) {
	zm, _ := loadStory(t, newStory(3).build(), Options{})
	zm.SetUint8(testText, 0x55)
	if !zm.Verify() {
		t.Errorf("verify failed on an intact story")
	}

	story := newStory(3).build()
	story[H_CHECKSUM+1]++
	zm, _ = loadStory(t, story, Options{})
	if zm.Verify() {
		t.Errorf("verify passed with a bad checksum")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	// jump -1: loops forever
	story := newStory(3).at(testCode, 0x8C, 0xFF, 0xFF).build()
	zm, _ := loadStory(t, story, Options{})
	for i := 0; i < 10; i++ {
		if err := zm.Step(); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}
	if zm.Registers().PC != testCode {
		t.Fatalf("pc = 0x%X, want 0x%X", zm.Registers().PC, testCode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := zm.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestCloseFlushesToDevice(t *testing.T) {
	dev := NewMemDevice()
	zm, err := Load(dev, newStory(3).build(), Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	zm.SetUint8(testText, 0xAB)
	writes := dev.Writes
	if err := zm.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if dev.Writes == writes {
		t.Fatalf("Close wrote nothing")
	}
	buf := make([]byte, SectorSize)
	addr := uint32(StoryRegionOffset + testText)
	dev.ReadSector(addr/SectorSize, buf)
	if buf[addr%SectorSize] != 0xAB {
		t.Errorf("device byte = 0x%X, want 0xAB", buf[addr%SectorSize])
	}
}
