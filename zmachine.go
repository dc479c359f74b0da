package zmachine

// based on: http://msinilo.pl/blog2/post/p1252/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"
)

// ZMachine owns all execution state of one session. Nothing is shared
// between machines.
type ZMachine struct {
	ip     uint32
	header ZHeader
	mem    *Cache
	stack  *ZStack
	Done   bool

	layout   Layout
	pristine []byte // dynamic memory as loaded
	err      error

	// instruction being executed, for error reports
	opPC uint32
	op   Opcode

	screen  *Screen
	kbd     Keyboard
	rng     *rand.Rand
	dict    *dictionaryCache
	undo    *undoRing
	pending []*pendingInput
	log     *slog.Logger
}

// Options configures a machine. The zero value of each field selects a
// default, except UndoDepth where zero turns undo off.
type Options struct {
	Layout              Layout
	CacheLines          int
	LineBits            uint
	Display             Display
	Keyboard            Keyboard
	Transcript          io.Writer
	More                bool
	UndoDepth           int
	DictionaryCacheSize int
	Seed                int64
	Logger              *slog.Logger
}

// Registers is a snapshot of the execution registers.
type Registers struct {
	PC      uint32
	SP      uint16
	FP      uint16
	Running bool
}

// Load validates the story header, installs the image on dev and resets
// the machine to the story's start address. An invalid header is rejected
// before dev is touched.
func Load(dev BlockDevice, story []byte, opts Options) (*ZMachine, error) {
	zm := &ZMachine{}
	if err := zm.header.Read(story); err != nil {
		return nil, err
	}

	if opts.Layout == (Layout{}) {
		opts.Layout = DefaultLayout()
	}
	if opts.CacheLines == 0 {
		opts.CacheLines = 32
	}
	if opts.LineBits == 0 {
		opts.LineBits = 6
	}
	if opts.Display == nil {
		opts.Display = NewGrid(24, 80)
	}
	if opts.Keyboard == nil {
		opts.Keyboard = eofKeyboard{}
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	if err := InstallStory(dev, opts.Layout, story); err != nil {
		return nil, err
	}

	zm.layout = opts.Layout
	zm.mem = NewCache(dev, opts.CacheLines, opts.LineBits)
	zm.stack = NewStack(zm.mem)
	zm.pristine = append([]byte(nil), story[:zm.header.staticMemAddress]...)
	zm.kbd = opts.Keyboard
	zm.rng = rand.New(rand.NewSource(opts.Seed))
	zm.dict = newDictionaryCache(opts.DictionaryCacheSize)
	zm.undo = newUndoRing(opts.UndoDepth)
	zm.log = opts.Logger
	zm.screen = newScreen(zm, opts.Display, opts.Transcript, opts.More)

	zm.log.Info("story loaded",
		"version", story[H_TYPE],
		"release", GetUint16(story, 2),
		"size", len(story),
		"dynamic", zm.header.staticMemAddress,
		"himem", zm.header.hiMemBase)

	zm.Restart()
	if err := zm.mem.Err(); err != nil {
		return nil, &Error{Code: StorageFailure, Err: err}
	}
	return zm, nil
}

func (zm *ZMachine) Header() *ZHeader {
	return &zm.header
}

func (zm *ZMachine) Registers() Registers {
	return Registers{PC: zm.ip, SP: zm.stack.sp, FP: zm.stack.fp, Running: !zm.Done}
}

// Restart puts dynamic memory back as loaded and starts the story over.
// The scripting and fixed-font bits survive.
func (zm *ZMachine) Restart() {
	flags := zm.GetUint16(H_FLAGS) & (SCRIPTING_FLAG | FIXED_FONT_FLAG)
	for i, b := range zm.pristine {
		zm.mem.WriteByte(StoryRegionOffset+uint32(i), b)
	}
	zm.SetUint16(H_FLAGS, zm.GetUint16(H_FLAGS)&^(SCRIPTING_FLAG|FIXED_FONT_FLAG)|flags)

	zm.stack.Reset()
	zm.ip = uint32(zm.header.ip)
	zm.pending = nil
	zm.Done = false
	zm.writeInterpreterHeader()
	zm.screen.reset()
	zm.log.Debug("restart", "pc", zm.ip)
}

func (zm *ZMachine) writeInterpreterHeader() {
	rows, cols := zm.screen.size()
	config := zm.GetUint8(H_CONFIG)
	if zm.header.Version < 4 {
		config &^= CONFIG_NOSTATUSLINE | CONFIG_TANDY
		config |= CONFIG_WINDOWS
	} else {
		config |= CONFIG_BOLDFACE | CONFIG_EMPHASIS | CONFIG_FIXED | CONFIG_TIMED_INPUT
	}
	zm.SetUint8(H_CONFIG, config)
	zm.header.Config = config

	zm.SetUint8(H_INTERPRETER, INTERPRETER_MSDOS)
	zm.SetUint8(H_INTERPRETER_VERSION, INTERPRETER_VERSION_ID)
	zm.SetUint8(H_STANDARD_HIGH, STANDARD_REVISION_HIGH)
	zm.SetUint8(H_STANDARD_LOW, STANDARD_REVISION_LOW)
	zm.SetUint8(H_SCREEN_ROWS, uint8(rows))
	zm.SetUint8(H_SCREEN_COLUMNS, uint8(cols))
	if zm.header.Version >= 5 {
		zm.SetUint16(H_SCREEN_WIDTH, uint16(cols))
		zm.SetUint16(H_SCREEN_HEIGHT, uint16(rows))
		zm.SetUint8(H_FONT_WIDTH, 1)
		zm.SetUint8(H_FONT_HEIGHT, 1)
		flags := zm.GetUint16(H_FLAGS)
		if zm.undo.enabled() {
			flags |= UNDO_AVAILABLE_FLAG
		} else {
			flags &^= UNDO_AVAILABLE_FLAG
		}
		zm.SetUint16(H_FLAGS, flags)
	}
}

// Memory access. Addresses are story relative.

func (zm *ZMachine) GetUint8(address uint32) uint8 {
	return zm.mem.ReadByte(StoryRegionOffset + address)
}

func (zm *ZMachine) GetUint16(address uint32) uint16 {
	return zm.mem.ReadWord(StoryRegionOffset + address)
}

// We can only write to dynamic memory
func (zm *ZMachine) IsSafeToWrite(address uint32) bool {
	return address < zm.header.staticMemAddress
}

func (zm *ZMachine) SetUint8(address uint32, v uint8) {
	if !zm.IsSafeToWrite(address) {
		zm.log.Error("write outside dynamic memory", "address", address)
		zm.fatal(IllegalOperation)
	}
	zm.mem.WriteByte(StoryRegionOffset+address, v)
}

func (zm *ZMachine) SetUint16(address uint32, v uint16) {
	zm.SetUint8(address, uint8(v>>8))
	zm.SetUint8(address+1, uint8(v))
}

// Reads & moves to the next one (advances IP)
func (zm *ZMachine) ReadByte() uint8 {
	zm.ip++
	return zm.GetUint8(zm.ip - 1)
}

// Reads 2 bytes and advances IP
func (zm *ZMachine) ReadUint16() uint16 {
	retVal := zm.GetUint16(zm.ip)
	zm.ip += 2
	return retVal
}

func (zm *ZMachine) ReadGlobal(x uint8) uint16 {
	if x < 0x10 {
		zm.fatal(IllegalOperation)
	}
	return zm.GetUint16(zm.header.globalVarAddress + 2*(uint32(x)-0x10))
}

func (zm *ZMachine) SetGlobal(x uint8, v uint16) {
	if x < 0x10 {
		zm.fatal(IllegalOperation)
	}
	zm.SetUint16(zm.header.globalVarAddress+2*(uint32(x)-0x10), v)
}

// inputError carries a keyboard failure out of an instruction.
type inputError struct {
	err error
}

// Step executes one instruction. A fatal error halts the machine for good:
// every later call returns the same error.
func (zm *ZMachine) Step() (err error) {
	if zm.err != nil {
		return zm.err
	}
	if zm.Done {
		return nil
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch e := r.(type) {
		case *Error:
			if e.PC == 0 && e.Op == OpIllegal {
				e.PC, e.Op = zm.opPC, zm.op
			}
			zm.halt()
			zm.err = e
			zm.log.Error("fatal", "code", int(e.Code), "error", e)
			err = e
		case inputError:
			zm.halt()
			if !errors.Is(e.err, io.EOF) {
				err = fmt.Errorf("read input: %w", e.err)
			}
		default:
			panic(r)
		}
	}()

	in := zm.Decode()
	zm.Execute(in)
	if cerr := zm.mem.Err(); cerr != nil {
		zm.fatalErr(StorageFailure, cerr)
	}
	return nil
}

// Run steps until the story quits, a fatal error occurs or ctx is done.
func (zm *ZMachine) Run(ctx context.Context) error {
	for !zm.Done {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := zm.Step(); err != nil {
			return err
		}
	}
	return zm.err
}

func (zm *ZMachine) halt() {
	zm.Done = true
	zm.screen.flush()
}

// Close flushes pending output and every dirty cache line to the device.
func (zm *ZMachine) Close() error {
	zm.screen.flush()
	zm.mem.Flush()
	zm.log.Debug("cache",
		"hits", zm.mem.Stats.Hits,
		"misses", zm.mem.Stats.Misses,
		"evictions", zm.mem.Stats.Evictions,
		"writebacks", zm.mem.Stats.WriteBacks)
	if err := zm.mem.Err(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
