package zmachine

import (
	"strings"
	"testing"
)

// saveStory saves, printing 4242 if the save succeeded and 5151 if not.
// The routine at 0x1100 restores, printing 5151 only if that fails.
func saveStory() *storyBuilder {
	b := newStory(3)
	b.at(testCode,
		0xB5, 0xC6, // save ?+6
		0xE6, 0x3F, 0x14, 0x1F, // print_num 5151
		0xE6, 0x3F, 0x10, 0x92, // print_num 4242
		0xBA,
	)
	b.at(0x1100,
		0xB6, 0xC0, // restore ?rfalse
		0xE6, 0x3F, 0x14, 0x1F, // print_num 5151
		0xBA,
	)
	return b
}

func TestSaveSlotRoundTrip(t *testing.T) {
	zm, _ := loadStory(t, newStory(3).build(), Options{})
	zm.SetGlobal(0x20, 1234)
	zm.SetGlobal(0x11, 77)
	zm.SetGlobal(0x12, 99)
	zm.stack.Push(42)
	regs := zm.Registers()

	if !zm.SaveSlot(0) {
		t.Fatalf("SaveSlot failed: %v", zm.mem.Err())
	}
	zm.SetGlobal(0x20, 0)
	zm.SetGlobal(0x11, 1)
	zm.SetGlobal(0x12, 2)
	zm.stack.Push(7)
	zm.ip = 0x1500

	if !zm.RestoreSlot(0) {
		t.Fatalf("RestoreSlot failed")
	}
	if got := zm.ReadGlobal(0x20); got != 1234 {
		t.Errorf("global = %d, want 1234", got)
	}
	if score, moves := zm.ReadGlobal(0x11), zm.ReadGlobal(0x12); score != 77 || moves != 99 {
		t.Errorf("score/moves = %d/%d, want 77/99", score, moves)
	}
	if got := zm.Registers(); got != regs {
		t.Errorf("registers = %+v, want %+v", got, regs)
	}
	if v := zm.stack.Pop(); v != 42 {
		t.Errorf("stack top = %d, want 42", v)
	}
}

func TestSaveSlotOutOfRange(t *testing.T) {
	zm, _ := loadStory(t, newStory(3).build(), Options{Layout: Layout{StoryRegionSize: 64 * 1024, SaveSlots: 2}})
	if zm.SaveSlot(2) || zm.SaveSlot(-1) || zm.RestoreSlot(2) {
		t.Errorf("slot outside the layout accepted")
	}
}

func TestRestoreEmptySlot(t *testing.T) {
	zm, grid := loadStory(t, newStory(3).build(), Options{})
	if zm.RestoreSlot(1) {
		t.Fatalf("restored an empty slot")
	}
	if !strings.Contains(grid.String(), "empty slot") {
		t.Errorf("no empty slot message:\n%s", grid.String())
	}
}

func TestRestoreFromDifferentGame(t *testing.T) {
	dev := NewMemDevice()
	a, err := Load(dev, newStory(3).build(), Options{Display: NewGrid(10, 40)})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !a.SaveSlot(0) {
		t.Fatalf("SaveSlot failed")
	}

	grid := NewGrid(10, 80)
	b, err := Load(dev, newStory(3).at(0x1F00, 1).build(), Options{Display: grid})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b.RestoreSlot(0) {
		t.Fatalf("restored another story's slot")
	}
	if !strings.Contains(grid.String(), "different game") {
		t.Errorf("no different game message:\n%s", grid.String())
	}
}

func TestSaveInstruction(t *testing.T) {
	zm, grid := loadStory(t, saveStory().build(), Options{Keyboard: typed("0")})
	runStory(t, zm)

	out := grid.String()
	if !strings.Contains(out, "4242") || strings.Contains(out, "5151") {
		t.Errorf("save did not branch:\n%s", out)
	}
	if label := zm.slotLabel(0); label != " 0/0" {
		t.Errorf("slot label = %q, want %q", label, " 0/0")
	}
	if label := zm.slotLabel(1); label != "[EMPTY]" {
		t.Errorf("slot 1 label = %q, want [EMPTY]", label)
	}
}

func TestSaveCancelled(t *testing.T) {
	zm, grid := loadStory(t, saveStory().build(), Options{Keyboard: typed("x")})
	runStory(t, zm)
	if out := grid.String(); !strings.Contains(out, "5151") {
		t.Errorf("cancelled save branched:\n%s", out)
	}
}

func TestRestoreInstruction(t *testing.T) {
	zm, grid := loadStory(t, saveStory().build(), Options{Keyboard: typed("0")})
	// Save as the save instruction at testCode would, then run the restore.
	zm.ip = testCode + 1
	if !zm.SaveSlot(0) {
		t.Fatalf("SaveSlot failed")
	}
	zm.ip = 0x1100
	runStory(t, zm)

	out := grid.String()
	if !strings.Contains(out, "4242") || strings.Contains(out, "5151") {
		t.Errorf("restore did not resume after the save:\n%s", out)
	}
}
