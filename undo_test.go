package zmachine

import "testing"

func TestUndoRoundTrip(t *testing.T) {
	zm, _ := loadStory(t, newStory(5).build(), Options{UndoDepth: 2})
	zm.SetGlobal(0x20, 5)
	zm.stack.Push(42)
	regs := zm.Registers()
	if !zm.SaveUndo() {
		t.Fatalf("SaveUndo failed")
	}

	zm.SetGlobal(0x20, 9)
	zm.stack.Pop()
	zm.stack.Push(7)
	zm.stack.Push(8)
	zm.ip = 0x1234

	if !zm.RestoreUndo() {
		t.Fatalf("RestoreUndo failed")
	}
	if got := zm.ReadGlobal(0x20); got != 5 {
		t.Errorf("global = %d, want 5", got)
	}
	if got := zm.Registers(); got != regs {
		t.Errorf("registers = %+v, want %+v", got, regs)
	}
	if v := zm.stack.GetTopItem(); v != 42 {
		t.Errorf("stack top = %d, want 42", v)
	}
	if zm.RestoreUndo() {
		t.Errorf("second restore succeeded with one snapshot")
	}
}

func TestUndoRingDropsOldest(t *testing.T) {
	zm, _ := loadStory(t, newStory(5).build(), Options{UndoDepth: 2})
	for v := uint16(1); v <= 3; v++ {
		zm.SetGlobal(0x20, v)
		zm.SaveUndo()
	}
	for _, want := range []uint16{3, 2} {
		if !zm.RestoreUndo() {
			t.Fatalf("RestoreUndo failed")
		}
		if got := zm.ReadGlobal(0x20); got != want {
			t.Errorf("global = %d, want %d", got, want)
		}
	}
	if zm.RestoreUndo() {
		t.Errorf("restored past the ring depth")
	}
}

func TestSaveUndoUnavailable(t *testing.T) {
	b := newStory(5)
	b.at(testCode,
		0xBE, 0x09, 0xFF, 0x10, // save_undo -> g0
		0xBE, 0x0A, 0xFF, 0x11, // restore_undo -> g1
		0xBA,
	)
	b.word(testGlobals+2, 0x5555)
	zm, _ := loadStory(t, b.build(), Options{})
	runStory(t, zm)

	if got := zm.ReadGlobal(0x10); got != 0xFFFF {
		t.Errorf("save_undo = 0x%X, want 0xFFFF", got)
	}
	if got := zm.ReadGlobal(0x11); got != 0 {
		t.Errorf("restore_undo = %d, want 0", got)
	}
	if zm.GetUint16(H_FLAGS)&UNDO_AVAILABLE_FLAG != 0 {
		t.Errorf("header offers undo")
	}
}

func TestUndoInstructions(t *testing.T) {
	b := newStory(5)
	b.at(testCode,
		0xBE, 0x09, 0xFF, 0x10, // save_undo -> g0
		0x95, 0x12, // inc g2
		0x41, 0x10, 0x02, 0xC6, // je g0 2 ?+6
		0xBE, 0x0A, 0xFF, 0x11, // restore_undo -> g1
		0xBA,
	)
	zm, _ := loadStory(t, b.build(), Options{UndoDepth: 1})
	if zm.GetUint16(H_FLAGS)&UNDO_AVAILABLE_FLAG == 0 {
		t.Errorf("header does not offer undo")
	}
	runStory(t, zm)

	if got := zm.ReadGlobal(0x10); got != 2 {
		t.Errorf("save_undo after restore = %d, want 2", got)
	}
	if got := zm.ReadGlobal(0x12); got != 1 {
		t.Errorf("counter = %d, want 1", got)
	}
	if got := zm.ReadGlobal(0x11); got != 0 {
		t.Errorf("restore_undo stored %d", got)
	}
}
