package zmachine

// Opcode tags a decoded instruction independently of the form and version
// it was encoded with.
type Opcode uint8

const (
	OpIllegal Opcode = iota

	// 2OP
	OpJE
	OpJL
	OpJG
	OpDecChk
	OpIncChk
	OpJin
	OpTest
	OpOr
	OpAnd
	OpTestAttr
	OpSetAttr
	OpClearAttr
	OpStore
	OpInsertObj
	OpLoadW
	OpLoadB
	OpGetProp
	OpGetPropAddr
	OpGetNextProp
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpCall2S
	OpCall2N
	OpSetColour
	OpThrow

	// 1OP
	OpJZ
	OpGetSibling
	OpGetChild
	OpGetParent
	OpGetPropLen
	OpInc
	OpDec
	OpPrintAddr
	OpCall1S
	OpRemoveObj
	OpPrintObj
	OpRet
	OpJump
	OpPrintPAddr
	OpLoad
	OpNot
	OpCall1N

	// 0OP
	OpRTrue
	OpRFalse
	OpPrint
	OpPrintRet
	OpNop
	OpSave
	OpRestore
	OpRestart
	OpRetPopped
	OpPop
	OpCatch
	OpQuit
	OpNewLine
	OpShowStatus
	OpVerify
	OpPiracy

	// VAR
	OpCallVS
	OpStoreW
	OpStoreB
	OpPutProp
	OpRead
	OpPrintChar
	OpPrintNum
	OpRandom
	OpPush
	OpPull
	OpSplitWindow
	OpSetWindow
	OpCallVS2
	OpEraseWindow
	OpEraseLine
	OpSetCursor
	OpGetCursor
	OpSetTextStyle
	OpBufferMode
	OpOutputStream
	OpInputStream
	OpSoundEffect
	OpReadChar
	OpScanTable
	OpCallVN
	OpCallVN2
	OpTokenise
	OpEncodeText
	OpCopyTable
	OpPrintTable
	OpCheckArgCount

	// EXT
	OpLogShift
	OpArtShift
	OpSetFont
	OpSaveUndo
	OpRestoreUndo
	OpPrintUnicode
	OpCheckUnicode

	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	OpIllegal: "illegal",
	OpJE:      "je", OpJL: "jl", OpJG: "jg", OpDecChk: "dec_chk", OpIncChk: "inc_chk",
	OpJin: "jin", OpTest: "test", OpOr: "or", OpAnd: "and", OpTestAttr: "test_attr",
	OpSetAttr: "set_attr", OpClearAttr: "clear_attr", OpStore: "store", OpInsertObj: "insert_obj",
	OpLoadW: "loadw", OpLoadB: "loadb", OpGetProp: "get_prop", OpGetPropAddr: "get_prop_addr",
	OpGetNextProp: "get_next_prop", OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",
	OpMod: "mod", OpCall2S: "call_2s", OpCall2N: "call_2n", OpSetColour: "set_colour", OpThrow: "throw",
	OpJZ: "jz", OpGetSibling: "get_sibling", OpGetChild: "get_child", OpGetParent: "get_parent",
	OpGetPropLen: "get_prop_len", OpInc: "inc", OpDec: "dec", OpPrintAddr: "print_addr",
	OpCall1S: "call_1s", OpRemoveObj: "remove_obj", OpPrintObj: "print_obj", OpRet: "ret",
	OpJump: "jump", OpPrintPAddr: "print_paddr", OpLoad: "load", OpNot: "not", OpCall1N: "call_1n",
	OpRTrue: "rtrue", OpRFalse: "rfalse", OpPrint: "print", OpPrintRet: "print_ret", OpNop: "nop",
	OpSave: "save", OpRestore: "restore", OpRestart: "restart", OpRetPopped: "ret_popped",
	OpPop: "pop", OpCatch: "catch", OpQuit: "quit", OpNewLine: "new_line",
	OpShowStatus: "show_status", OpVerify: "verify", OpPiracy: "piracy",
	OpCallVS: "call_vs", OpStoreW: "storew", OpStoreB: "storeb", OpPutProp: "put_prop",
	OpRead: "read", OpPrintChar: "print_char", OpPrintNum: "print_num", OpRandom: "random",
	OpPush: "push", OpPull: "pull", OpSplitWindow: "split_window", OpSetWindow: "set_window",
	OpCallVS2: "call_vs2", OpEraseWindow: "erase_window", OpEraseLine: "erase_line",
	OpSetCursor: "set_cursor", OpGetCursor: "get_cursor", OpSetTextStyle: "set_text_style",
	OpBufferMode: "buffer_mode", OpOutputStream: "output_stream", OpInputStream: "input_stream",
	OpSoundEffect: "sound_effect", OpReadChar: "read_char", OpScanTable: "scan_table",
	OpCallVN: "call_vn", OpCallVN2: "call_vn2", OpTokenise: "tokenise", OpEncodeText: "encode_text",
	OpCopyTable: "copy_table", OpPrintTable: "print_table", OpCheckArgCount: "check_arg_count",
	OpLogShift: "log_shift", OpArtShift: "art_shift", OpSetFont: "set_font",
	OpSaveUndo: "save_undo", OpRestoreUndo: "restore_undo",
	OpPrintUnicode: "print_unicode", OpCheckUnicode: "check_unicode",
}

func (op Opcode) String() string {
	if op >= numOpcodes {
		return "illegal"
	}
	return opcodeNames[op]
}

// "In long form the operand count is always 2OP. The opcode number is given in the bottom 5 bits."
var twoOpcodes = [32]Opcode{
	0x01: OpJE, 0x02: OpJL, 0x03: OpJG, 0x04: OpDecChk, 0x05: OpIncChk, 0x06: OpJin,
	0x07: OpTest, 0x08: OpOr, 0x09: OpAnd, 0x0A: OpTestAttr, 0x0B: OpSetAttr,
	0x0C: OpClearAttr, 0x0D: OpStore, 0x0E: OpInsertObj, 0x0F: OpLoadW, 0x10: OpLoadB,
	0x11: OpGetProp, 0x12: OpGetPropAddr, 0x13: OpGetNextProp, 0x14: OpAdd, 0x15: OpSub,
	0x16: OpMul, 0x17: OpDiv, 0x18: OpMod, 0x19: OpCall2S, 0x1A: OpCall2N,
	0x1B: OpSetColour, 0x1C: OpThrow,
}

var oneOpcodes = [16]Opcode{
	OpJZ, OpGetSibling, OpGetChild, OpGetParent, OpGetPropLen, OpInc, OpDec, OpPrintAddr,
	OpCall1S, OpRemoveObj, OpPrintObj, OpRet, OpJump, OpPrintPAddr, OpLoad, OpNot,
}

var zeroOpcodes = [16]Opcode{
	OpRTrue, OpRFalse, OpPrint, OpPrintRet, OpNop, OpSave, OpRestore, OpRestart,
	OpRetPopped, OpPop, OpQuit, OpNewLine, OpShowStatus, OpVerify, OpIllegal, OpPiracy,
}

var varOpcodes = [32]Opcode{
	OpCallVS, OpStoreW, OpStoreB, OpPutProp, OpRead, OpPrintChar, OpPrintNum, OpRandom,
	OpPush, OpPull, OpSplitWindow, OpSetWindow, OpCallVS2, OpEraseWindow, OpEraseLine, OpSetCursor,
	OpGetCursor, OpSetTextStyle, OpBufferMode, OpOutputStream, OpInputStream, OpSoundEffect, OpReadChar, OpScanTable,
	OpNot, OpCallVN, OpCallVN2, OpTokenise, OpEncodeText, OpCopyTable, OpPrintTable, OpCheckArgCount,
}

var extOpcodes = [...]Opcode{
	0x00: OpSave, 0x01: OpRestore, 0x02: OpLogShift, 0x03: OpArtShift, 0x04: OpSetFont,
	0x09: OpSaveUndo, 0x0A: OpRestoreUndo, 0x0B: OpPrintUnicode, 0x0C: OpCheckUnicode,
}

// Instruction is a decoded instruction. Args always has room for eight
// operands so handlers can inspect omitted ones as zero.
type Instruction struct {
	Op      Opcode
	PC      uint32
	Args    [8]uint16
	NumArgs int
}

// Decode reads the instruction at IP and its operands, leaving IP on the
// store or branch byte, if any.
func (zm *ZMachine) Decode() Instruction {
	in := Instruction{PC: zm.ip}
	zm.opPC, zm.op = zm.ip, OpIllegal

	// "If the top two bits of the opcode are $$11 the form is variable; if $$10, the form is short.
	// If the opcode is 190 ($BE in hexadecimal) and the version is 5 or later, the form is "extended".
	// Otherwise, the form is "long"."
	opcode := zm.ReadByte()
	switch {
	case opcode == 0xBE && zm.header.Version >= 5:
		number := zm.ReadByte()
		if int(number) < len(extOpcodes) {
			in.Op = extOpcodes[number]
		}
		zm.readVarOperands(&in, false)

	case opcode < 0x80:
		// "In long form, bit 6 of the opcode gives the type of the first operand, bit 5 of the second.
		// A value of 0 means a small constant and 1 means a variable."
		in.Op = twoOpcodes[opcode&0x1F]
		in.Args[0] = zm.GetOperand((opcode>>6)&1 + 1)
		in.Args[1] = zm.GetOperand((opcode>>5)&1 + 1)
		in.NumArgs = 2

	case opcode < 0xC0:
		// "In short form, bits 4 and 5 of the opcode byte give an operand type.
		// If this is $11 then the operand count is 0OP; otherwise, 1OP."
		opType := (opcode >> 4) & 0x3
		number := opcode & 0x0F
		if opType != OPERAND_OMITTED {
			in.Op = oneOpcodes[number]
			if number == 0x0F && zm.header.Version >= 5 {
				in.Op = OpCall1N
			}
			in.Args[0] = zm.GetOperand(opType)
			in.NumArgs = 1
		} else {
			in.Op = zeroOpcodes[number]
			if number == 0x09 && zm.header.Version >= 5 {
				in.Op = OpCatch
			}
		}

	default:
		// "In variable form, if bit 5 is 0 then the count is 2OP; if it is 1, then the count is VAR.
		// The opcode number is given in the bottom 5 bits."
		number := opcode & 0x1F
		if opcode&0x20 == 0 {
			in.Op = twoOpcodes[number]
		} else {
			in.Op = varOpcodes[number]
		}
		zm.readVarOperands(&in, opcode == 0xEC || opcode == 0xFA)
	}

	zm.op = in.Op
	return in
}

// readVarOperands reads the type specifier, a word for the two eight
// operand calls, then the operands themselves.
func (zm *ZMachine) readVarOperands(in *Instruction, double bool) {
	types := uint16(zm.ReadByte())<<8 | 0xFF
	if double {
		types = types&0xFF00 | uint16(zm.ReadByte())
	}
	n, done := zm.GetOperands(uint8(types>>8), in.Args[:4])
	if !done && double {
		m, _ := zm.GetOperands(uint8(types), in.Args[4:])
		n += m
	}
	in.NumArgs = n
}

var zfunctions [numOpcodes]ZFunction

func init() {
	zfunctions = [numOpcodes]ZFunction{
		OpJE: ZJumpEqual, OpJL: ZJumpLess, OpJG: ZJumpGreater, OpDecChk: ZDecChk,
		OpIncChk: ZIncChk, OpJin: ZJin, OpTest: ZTest, OpOr: ZOr, OpAnd: ZAnd,
		OpTestAttr: ZTestAttr, OpSetAttr: ZSetAttr, OpClearAttr: ZClearAttr, OpStore: ZStore,
		OpInsertObj: ZInsertObj, OpLoadW: ZLoadW, OpLoadB: ZLoadB, OpGetProp: ZGetProp,
		OpGetPropAddr: ZGetPropAddr, OpGetNextProp: ZGetNextProp, OpAdd: ZAdd, OpSub: ZSub,
		OpMul: ZMul, OpDiv: ZDiv, OpMod: ZMod, OpCall2S: ZCall, OpCall2N: ZCallProcedure,
		OpSetColour: ZNOP, OpThrow: ZThrow,

		OpJZ: ZJumpZero, OpGetSibling: ZGetSibling, OpGetChild: ZGetChild, OpGetParent: ZGetParent,
		OpGetPropLen: ZGetPropLen, OpInc: ZInc, OpDec: ZDec, OpPrintAddr: ZPrintAddr,
		OpCall1S: ZCall, OpRemoveObj: ZRemoveObj, OpPrintObj: ZPrintObj, OpRet: ZRet,
		OpJump: ZJump, OpPrintPAddr: ZPrintPAddr, OpLoad: ZLoad, OpNot: ZNot, OpCall1N: ZCallProcedure,

		OpRTrue: ZReturnTrue, OpRFalse: ZReturnFalse, OpPrint: ZPrint, OpPrintRet: ZPrintRet,
		OpNop: ZNOP, OpSave: ZSave, OpRestore: ZRestore, OpRestart: ZRestart,
		OpRetPopped: ZRetPopped, OpPop: ZPop, OpCatch: ZCatch, OpQuit: ZQuit,
		OpNewLine: ZNewLine, OpShowStatus: ZShowStatus, OpVerify: ZVerify, OpPiracy: ZPiracy,

		OpCallVS: ZCall, OpStoreW: ZStoreW, OpStoreB: ZStoreB, OpPutProp: ZPutProp,
		OpRead: ZRead, OpPrintChar: ZPrintChar, OpPrintNum: ZPrintNum, OpRandom: ZRandom,
		OpPush: ZPush, OpPull: ZPull, OpSplitWindow: ZSplitWindow, OpSetWindow: ZSetWindow,
		OpCallVS2: ZCall, OpEraseWindow: ZEraseWindow, OpEraseLine: ZEraseLine,
		OpSetCursor: ZSetCursor, OpGetCursor: ZGetCursor, OpSetTextStyle: ZSetTextStyle,
		OpBufferMode: ZBufferMode, OpOutputStream: ZOutputStream, OpInputStream: ZNOP,
		OpSoundEffect: ZNOP, OpReadChar: ZReadChar, OpScanTable: ZScanTable,
		OpCallVN: ZCallProcedure, OpCallVN2: ZCallProcedure, OpTokenise: ZTokenise,
		OpEncodeText: ZEncodeText, OpCopyTable: ZCopyTable, OpPrintTable: ZPrintTable,
		OpCheckArgCount: ZCheckArgCount,

		OpLogShift: ZLogShift, OpArtShift: ZArtShift, OpSetFont: ZSetFont,
		OpSaveUndo: ZSaveUndo, OpRestoreUndo: ZRestoreUndo,
		OpPrintUnicode: ZPrintUnicode, OpCheckUnicode: ZCheckUnicode,
	}
}

// Execute runs one decoded instruction. IP must be where Decode left it.
func (zm *ZMachine) Execute(in Instruction) {
	zm.opPC, zm.op = in.PC, in.Op
	fn := zfunctions[in.Op]
	if fn == nil {
		zm.fatal(IllegalOperation)
	}
	fn(zm, in.Args[:], uint16(in.NumArgs))
}
