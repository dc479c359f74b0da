package zmachine

// Call enters the routine at packed address argv[0] with argv[1:] as
// arguments. kind is CALL_FUNCTION, CALL_PROCEDURE or CALL_ASYNC and decides
// what Return does with the result.
//
// Frame layout, top of stack last:
//
//	PC / 512
//	PC % 512
//	caller FP
//	(argc - 1) | kind
//	local 1       <- FP
//	...
//	local n
func (zm *ZMachine) Call(argv []uint16, kind uint16) {
	// "When the address 0 is called as a routine, nothing happens and the return value is false."
	if argv[0] == 0 {
		switch kind {
		case CALL_FUNCTION:
			zm.StoreResult(0)
		case CALL_ASYNC:
			zm.resumeInput(0)
		}
		return
	}

	zm.stack.Push(uint16(zm.ip / 512))
	zm.stack.Push(uint16(zm.ip % 512))
	zm.stack.Push(zm.stack.fp)
	zm.stack.Push(uint16(len(argv)-1) | kind)
	zm.stack.fp = zm.stack.sp - 1

	zm.ip = zm.header.PackedAddress(argv[0])

	numLocals := zm.ReadByte()
	if numLocals > MAX_LOCALS {
		zm.fatal(IllegalOperation)
	}

	// "When a routine is called, its local variables are created with initial values taken from the routine header.
	// Next, the arguments are written into the local variables (argument 1 into local 1 and so on)."
	args := argv[1:]
	for i := 0; i < int(numLocals); i++ {
		var localVar uint16
		if zm.header.Version < 5 {
			localVar = zm.ReadUint16()
		}
		if i < len(args) {
			localVar = args[i]
		}
		zm.stack.Push(localVar)
	}
}

// Return pops the current frame and hands value to whoever made the call.
func (zm *ZMachine) Return(value uint16) {
	zm.stack.sp = zm.stack.fp + 1
	argc := zm.stack.Pop()
	zm.stack.fp = zm.stack.Pop()
	pc := uint32(zm.stack.Pop())
	pc += uint32(zm.stack.Pop()) * 512
	zm.ip = pc

	switch argc & TYPE_MASK {
	case CALL_FUNCTION:
		zm.StoreResult(value)
	case CALL_ASYNC:
		zm.resumeInput(value)
	}
}

// Unwind returns from the frame at fp and everything above it. The stack
// grows down, so a frame nearer the top than the current one, or the main
// routine's pseudo frame, cannot be a target.
func (zm *ZMachine) Unwind(value uint16, fp uint16) {
	if fp < zm.stack.fp || fp >= MAX_STACK-1 {
		zm.fatal(BadFrameForUnwind)
	}
	zm.stack.fp = fp
	zm.Return(value)
}
