package zmachine

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var undoEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("zmachine: failed to create CBOR enc mode: %v", err))
	}
	undoEncMode = em
}

// undoSnapshot is the state save_undo keeps: registers, the live part of
// the stack and dynamic memory.
type undoSnapshot struct {
	PC      uint32   `cbor:"1,keyasint"`
	SP      uint16   `cbor:"2,keyasint"`
	FP      uint16   `cbor:"3,keyasint"`
	Stack   []uint16 `cbor:"4,keyasint,omitempty"`
	Dynamic []byte   `cbor:"5,keyasint"`
}

// undoRing holds the newest depth snapshots, encoded.
type undoRing struct {
	depth int
	saved [][]byte
}

func newUndoRing(depth int) *undoRing {
	if depth < 0 {
		depth = 0
	}
	return &undoRing{depth: depth}
}

func (u *undoRing) enabled() bool {
	return u.depth > 0
}

func (u *undoRing) push(b []byte) {
	if len(u.saved) == u.depth {
		u.saved = append(u.saved[:0], u.saved[1:]...)
	}
	u.saved = append(u.saved, b)
}

func (u *undoRing) pop() ([]byte, bool) {
	n := len(u.saved)
	if n == 0 {
		return nil, false
	}
	b := u.saved[n-1]
	u.saved = u.saved[:n-1]
	return b, true
}

func marshalSnapshot(s *undoSnapshot) ([]byte, error) {
	return undoEncMode.Marshal(s)
}

func unmarshalSnapshot(data []byte) (*undoSnapshot, error) {
	var s undoSnapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("zmachine: unmarshal undo snapshot: %w", err)
	}
	return &s, nil
}

func (zm *ZMachine) snapshot() *undoSnapshot {
	s := &undoSnapshot{PC: zm.ip, SP: zm.stack.sp, FP: zm.stack.fp}
	for i := zm.stack.sp; i < MAX_STACK; i++ {
		s.Stack = append(s.Stack, zm.stack.Get(i))
	}
	s.Dynamic = make([]byte, zm.header.staticMemAddress)
	for i := range s.Dynamic {
		s.Dynamic[i] = zm.GetUint8(uint32(i))
	}
	return s
}

// SaveUndo records the current state. The saved PC addresses the result
// byte of the save_undo being executed.
func (zm *ZMachine) SaveUndo() bool {
	if !zm.undo.enabled() {
		return false
	}
	b, err := marshalSnapshot(zm.snapshot())
	if err != nil {
		zm.log.Error("save undo", "error", err)
		return false
	}
	zm.undo.push(b)
	zm.log.Debug("save undo", "bytes", len(b), "depth", len(zm.undo.saved))
	return true
}

// RestoreUndo reinstates the newest snapshot and drops it.
func (zm *ZMachine) RestoreUndo() bool {
	b, ok := zm.undo.pop()
	if !ok {
		return false
	}
	s, err := unmarshalSnapshot(b)
	if err != nil || len(s.Dynamic) != int(zm.header.staticMemAddress) ||
		int(s.SP)+len(s.Stack) != MAX_STACK {
		zm.log.Error("restore undo", "error", err)
		return false
	}

	flags := zm.GetUint16(H_FLAGS) & (SCRIPTING_FLAG | FIXED_FONT_FLAG)
	for i, v := range s.Dynamic {
		zm.mem.WriteByte(StoryRegionOffset+uint32(i), v)
	}
	zm.SetUint16(H_FLAGS, zm.GetUint16(H_FLAGS)&^(SCRIPTING_FLAG|FIXED_FONT_FLAG)|flags)
	for i, v := range s.Stack {
		zm.stack.Set(s.SP+uint16(i), v)
	}
	zm.ip = s.PC
	zm.stack.sp, zm.stack.fp = s.SP, s.FP
	zm.pending = nil
	zm.writeInterpreterHeader()
	zm.log.Debug("restore undo", "pc", s.PC)
	return true
}

// "save_undo -> (result)": -1 when undo is unavailable.
func ZSaveUndo(zm *ZMachine, args []uint16, numArgs uint16) {
	if !zm.undo.enabled() {
		zm.StoreResult(0xFFFF)
		return
	}
	if zm.SaveUndo() {
		zm.StoreResult(1)
	} else {
		zm.StoreResult(0)
	}
}

// "restore_undo -> (result)": 0 on failure, otherwise the save_undo
// resumes with 2.
func ZRestoreUndo(zm *ZMachine, args []uint16, numArgs uint16) {
	if zm.RestoreUndo() {
		zm.StoreResult(2)
		return
	}
	zm.StoreResult(0)
}
