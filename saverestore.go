package zmachine

import (
	"fmt"
	"strings"
)

// The digest of a save slot occupies the bottom words of the stack region,
// so it travels with the sector copy.
const (
	digestStatus   = 0 // 12 words, two status line characters each
	digestScore    = 12
	digestMoves    = 13
	digestConfig   = 14
	digestChecksum = 15
	digestPCHigh   = 16
	digestPCLow    = 17
	digestSP       = 18
	digestFP       = 19
	digestWords    = 20
)

// slotSectors is how many sectors a save copies: the stack region and
// dynamic memory.
func (zm *ZMachine) slotSectors() int {
	return int((zm.header.staticMemAddress + SectorSize - 1 + StoryRegionOffset) / SectorSize)
}

func (zm *ZMachine) slotAddress(slot int) uint32 {
	return zm.layout.SlotSector(slot) * SectorSize
}

// slotWord reads digest word i of a slot straight from the device.
func (zm *ZMachine) slotWord(slot int, i uint32) uint16 {
	return zm.mem.ReadDirectWord(zm.slotAddress(slot) + StackRegionOffset + i*2)
}

func (zm *ZMachine) note(msg string) {
	zm.screen.newLine()
	zm.screen.printString(msg)
	zm.screen.newLine()
}

// slotLabel describes a slot for the picker.
func (zm *ZMachine) slotLabel(slot int) string {
	if zm.slotWord(slot, digestStatus) == 0 {
		return "[EMPTY]"
	}
	var b []byte
	for i := uint32(0); i < 12; i++ {
		w := zm.slotWord(slot, digestStatus+i)
		b = append(b, byte(w>>8), byte(w))
	}
	label := strings.TrimRight(string(b), " \x00")
	if zm.header.Version >= 4 {
		return label
	}
	x, y := zm.slotWord(slot, digestScore), zm.slotWord(slot, digestMoves)
	if zm.slotWord(slot, digestConfig)&CONFIG_TIME != 0 {
		return label + " " + formatTime(x, y)
	}
	return label + " " + formatScore(x, y)
}

// selectSlot lists the slots and reads a digit. -1 means no slot was
// chosen.
func (zm *ZMachine) selectSlot(prompt string) int {
	zm.mem.Flush()
	s := zm.screen
	s.newLine()
	for i := 0; i < min(zm.layout.SaveSlots, 10); i++ {
		s.printString(fmt.Sprintf(" %d.%s", i, zm.slotLabel(i)))
		s.newLine()
	}
	zm.note(prompt)
	s.flush()
	c := s.readKey(0)
	if c >= '0' && c <= '9' && c-'0' < zm.layout.SaveSlots {
		s.writeChar(byte(c))
		return c - '0'
	}
	return -1
}

// Save asks for a slot and copies the machine into it.
func (zm *ZMachine) Save() bool {
	slot := zm.selectSlot("Select slot for save [0..9]: ")
	if slot < 0 {
		return false
	}
	return zm.SaveSlot(slot)
}

// SaveSlot writes the digest and copies the stack region and dynamic memory
// into slot.
func (zm *ZMachine) SaveSlot(slot int) bool {
	if slot < 0 || slot >= zm.layout.SaveSlots {
		return false
	}
	if zm.stack.sp < digestWords {
		zm.log.Warn("stack too deep to save", "sp", zm.stack.sp)
		return false
	}

	for i, w := range zm.screen.statusWords() {
		zm.stack.Set(uint16(digestStatus+i), w&0x7F7F)
	}
	zm.stack.Set(digestScore, zm.ReadGlobal(V3_SCORE_GLOBAL))
	zm.stack.Set(digestMoves, zm.ReadGlobal(V3_MOVES_GLOBAL))
	zm.stack.Set(digestConfig, uint16(zm.header.Config))
	zm.stack.Set(digestChecksum, zm.GetUint16(H_CHECKSUM))
	zm.stack.Set(digestPCHigh, uint16(zm.ip>>16))
	zm.stack.Set(digestPCLow, uint16(zm.ip))
	zm.stack.Set(digestSP, zm.stack.sp)
	zm.stack.Set(digestFP, zm.stack.fp)

	zm.note("Saving...")
	zm.mem.Flush()
	zm.mem.CopySectors(zm.layout.SlotSector(slot), StackRegionOffset/SectorSize, zm.slotSectors())
	zm.log.Info("saved", "slot", slot, "pc", zm.ip, "sectors", zm.slotSectors())
	return zm.mem.Err() == nil
}

// Restore asks for a slot and loads the machine from it.
func (zm *ZMachine) Restore() bool {
	slot := zm.selectSlot("Select slot to restore [0..9]: ")
	if slot < 0 {
		return false
	}
	return zm.RestoreSlot(slot)
}

// RestoreSlot checks the slot's digest against the story and copies it back
// over the stack region and dynamic memory. Execution continues after the
// save that filled the slot.
func (zm *ZMachine) RestoreSlot(slot int) bool {
	if slot < 0 || slot >= zm.layout.SaveSlots {
		return false
	}
	zm.screen.flush()
	zm.mem.Flush()

	checksum := zm.slotWord(slot, digestChecksum)
	pc := uint32(zm.slotWord(slot, digestPCHigh))<<16 | uint32(zm.slotWord(slot, digestPCLow))
	sp, fp := zm.slotWord(slot, digestSP), zm.slotWord(slot, digestFP)

	story := zm.GetUint16(H_CHECKSUM)
	switch {
	case pc == 0 || checksum == 0 && story != 0:
		zm.note("Can't restore from an empty slot.")
		return false
	case checksum != story || sp > MAX_STACK || fp >= MAX_STACK:
		zm.note("This seems to be from a different game...")
		return false
	}

	flags := zm.GetUint16(H_FLAGS) & (SCRIPTING_FLAG | FIXED_FONT_FLAG)
	zm.note("Restoring...")
	zm.mem.Flush()
	zm.mem.CopySectors(StackRegionOffset/SectorSize, zm.layout.SlotSector(slot), zm.slotSectors())
	zm.mem.Invalidate()

	zm.ip = pc
	zm.stack.sp, zm.stack.fp = sp, fp
	zm.pending = nil
	zm.SetUint16(H_FLAGS, zm.GetUint16(H_FLAGS)&^(SCRIPTING_FLAG|FIXED_FONT_FLAG)|flags)
	zm.writeInterpreterHeader()
	zm.log.Info("restored", "slot", slot, "pc", pc)
	return zm.mem.Err() == nil
}

// "save ?(label)" before V4, "save -> (result)" after. The V5 form with a
// table saves only that table, which has no slot to go to.
func ZSave(zm *ZMachine, args []uint16, numArgs uint16) {
	if numArgs > 0 {
		zm.StoreResult(0)
		return
	}
	zm.StoreOrBranch(zm.Save(), 1)
}

// A successful restore answers for the save that made the slot: its branch
// is taken, or 2 is stored in its result.
func ZRestore(zm *ZMachine, args []uint16, numArgs uint16) {
	if numArgs > 0 {
		zm.StoreResult(0)
		return
	}
	zm.StoreOrBranch(zm.Restore(), 2)
}
