package zmachine

func (zm *ZMachine) GetOperand(operandType byte) uint16 {
	switch operandType {
	case OPERAND_SMALL:
		return uint16(zm.ReadByte())
	case OPERAND_VARIABLE:
		return zm.GetVariable(zm.ReadByte())
	case OPERAND_LARGE:
		return zm.ReadUint16()
	}
	return 0
}

// GetOperands decodes one specifier byte worth of operands into
// operandValues, stopping at the first omitted one. It reports how many
// were read and whether the list ended.
func (zm *ZMachine) GetOperands(opTypesByte uint8, operandValues []uint16) (int, bool) {
	numOperands := 0
	for shift := 6; shift >= 0; shift -= 2 {
		opType := (opTypesByte >> shift) & 0x3
		if opType == OPERAND_OMITTED {
			return numOperands, true
		}
		operandValues[numOperands] = zm.GetOperand(opType)
		numOperands++
	}
	return numOperands, false
}

// GetVariable reads a variable operand.
// 0 = pop the stack, 0x1-0xF = local var, 0x10 - 0xFF = global var
func (zm *ZMachine) GetVariable(varType uint8) uint16 {
	switch {
	case varType == 0:
		return zm.stack.Pop()
	case varType < 0x10:
		return zm.stack.GetLocalVar(uint16(varType))
	}
	return zm.ReadGlobal(varType)
}

// LoadVariable is the indirect form used by load, inc, dec and friends:
// variable 0 reads the top of the stack without popping it.
func (zm *ZMachine) LoadVariable(varType uint8) uint16 {
	if varType == 0 {
		return zm.stack.GetTopItem()
	}
	return zm.GetVariable(varType)
}

// StoreVariable is the indirect store: variable 0 replaces the top of the
// stack instead of pushing.
func (zm *ZMachine) StoreVariable(varType uint8, v uint16) {
	if varType == 0 {
		zm.stack.SetTopItem(v)
		return
	}
	zm.StoreAtLocation(varType, v)
}

func (zm *ZMachine) StoreAtLocation(storeLocation uint8, v uint16) {
	switch {
	case storeLocation == 0:
		zm.stack.Push(v)
	case storeLocation < 0x10:
		zm.stack.SetLocalVar(uint16(storeLocation), v)
	default:
		zm.SetGlobal(storeLocation, v)
	}
}

func (zm *ZMachine) StoreResult(v uint16) {
	zm.StoreAtLocation(zm.ReadByte(), v)
}

// Returns new value.
func (zm *ZMachine) AddToVar(varType uint8, value int16) uint16 {
	v := zm.LoadVariable(varType) + uint16(value)
	zm.StoreVariable(varType, v)
	return v
}

func GenericBranch(zm *ZMachine, conditionSatisfied bool) {
	branchInfo := zm.ReadByte()

	// "If bit 7 of the first byte is 0, a branch occurs when the condition was false; if 1, then branch is on true"
	branchOnFalse := (branchInfo >> 7) == 0

	// "If bit 6 is set, then the branch occupies 1 byte only, and the "offset" is in the range 0 to 63, given in the bottom 6 bits"
	offset := uint16(branchInfo & 0x3F)
	if branchInfo&0x40 == 0 {
		// If bit 6 is clear, then the offset is a signed 14-bit number given in bits 0 to 5 of the first
		// byte followed by all 8 of the second.
		offset = offset<<8 | uint16(zm.ReadByte())
		if offset&0x2000 != 0 {
			offset |= 0xC000
		}
	}

	if conditionSatisfied == branchOnFalse {
		return
	}

	// "An offset of 0 means "return false from the current routine", and 1 means "return true from the current routine".
	if offset == 0 || offset == 1 {
		zm.Return(offset)
		return
	}

	// "Otherwise, a branch moves execution to the instruction at address
	// Address after branch data + Offset - 2."
	zm.ip = uint32(int32(zm.ip) + int32(int16(offset)) - 2)
}

// StoreOrBranch reports a save/restore outcome: a branch on success before
// V4, a stored value (0 on failure) from V4 on.
func (zm *ZMachine) StoreOrBranch(ok bool, v uint16) {
	if zm.header.Version < 4 {
		GenericBranch(zm, ok)
		return
	}
	if !ok {
		v = 0
	}
	zm.StoreResult(v)
}
