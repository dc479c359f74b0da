package zmachine

import (
	"strconv"
	"time"
)

func ZCall(zm *ZMachine, args []uint16, numArgs uint16) {
	if numArgs == 0 {
		zm.fatal(IllegalOperation)
	}
	zm.Call(args[:numArgs], CALL_FUNCTION)
}

// call_2n, call_1n, call_vn and call_vn2 throw the result away.
func ZCallProcedure(zm *ZMachine, args []uint16, numArgs uint16) {
	if numArgs == 0 {
		zm.fatal(IllegalOperation)
	}
	zm.Call(args[:numArgs], CALL_PROCEDURE)
}

func ZRet(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.Return(args[0])
}

func ZReturnTrue(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.Return(1)
}

func ZReturnFalse(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.Return(0)
}

func ZRetPopped(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.Return(zm.stack.Pop())
}

func ZPop(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.stack.Pop()
}

// catch -> (result)
// The frame pointer doubles as the frame cookie.
func ZCatch(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.StoreResult(zm.stack.fp)
}

// throw value stack-frame
func ZThrow(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.Unwind(args[0], args[1])
}

// check_arg_count argument-number ?(label)
func ZCheckArgCount(zm *ZMachine, args []uint16, numArgs uint16) {
	GenericBranch(zm, args[0] <= zm.stack.FrameArgs())
}

// je a b c d ?(label)
// Jump if a is equal to any of the subsequent operands.
func ZJumpEqual(zm *ZMachine, args []uint16, numArgs uint16) {
	conditionSatisfied := false
	for i := uint16(1); i < numArgs; i++ {
		if args[0] == args[i] {
			conditionSatisfied = true
		}
	}
	GenericBranch(zm, conditionSatisfied)
}

func ZJumpLess(zm *ZMachine, args []uint16, numArgs uint16) {
	GenericBranch(zm, int16(args[0]) < int16(args[1]))
}

func ZJumpGreater(zm *ZMachine, args []uint16, numArgs uint16) {
	GenericBranch(zm, int16(args[0]) > int16(args[1]))
}

// dec_chk (variable) value ?(label)
// Decrement variable, and branch if it is now less than the given value.
func ZDecChk(zm *ZMachine, args []uint16, numArgs uint16) {
	newValue := zm.AddToVar(uint8(args[0]), -1)
	GenericBranch(zm, int16(newValue) < int16(args[1]))
}

// inc_chk (variable) value ?(label)
// Increment variable, and branch if now greater than value.
func ZIncChk(zm *ZMachine, args []uint16, numArgs uint16) {
	newValue := zm.AddToVar(uint8(args[0]), 1)
	GenericBranch(zm, int16(newValue) > int16(args[1]))
}

// jin obj1 obj2 ?(label)
// Jump if object a is a direct child of b, i.e., if parent of a is b.
func ZJin(zm *ZMachine, args []uint16, numArgs uint16) {
	GenericBranch(zm, zm.IsDirectParent(args[0], args[1]))
}

// test bitmap flags ?(label)
// Jump if all of the flags in bitmap are set (i.e. if bitmap & flags == flags).
func ZTest(zm *ZMachine, args []uint16, numArgs uint16) {
	bitmap := args[0]
	flags := args[1]
	GenericBranch(zm, (bitmap&flags) == flags)
}

func ZJumpZero(zm *ZMachine, args []uint16, numArgs uint16) {
	GenericBranch(zm, args[0] == 0)
}

// Unconditional jump
func ZJump(zm *ZMachine, args []uint16, numArgs uint16) {
	jumpOffset := int16(args[0])
	zm.ip = uint32(int32(zm.ip) + int32(jumpOffset) - 2)
}

func ZOr(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.StoreResult(args[0] | args[1])
}

func ZAnd(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.StoreResult(args[0] & args[1])
}

func ZNot(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.StoreResult(^args[0])
}

func ZAdd(zm *ZMachine, args []uint16, numArgs uint16) {
	r := int16(args[0]) + int16(args[1])
	zm.StoreResult(uint16(r))
}

func ZSub(zm *ZMachine, args []uint16, numArgs uint16) {
	r := int16(args[0]) - int16(args[1])
	zm.StoreResult(uint16(r))
}

func ZMul(zm *ZMachine, args []uint16, numArgs uint16) {
	r := int16(args[0]) * int16(args[1])
	zm.StoreResult(uint16(r))
}

func ZDiv(zm *ZMachine, args []uint16, numArgs uint16) {
	if args[1] == 0 {
		zm.fatal(DivisionByZero)
	}
	r := int32(int16(args[0])) / int32(int16(args[1]))
	zm.StoreResult(uint16(r))
}

func ZMod(zm *ZMachine, args []uint16, numArgs uint16) {
	if args[1] == 0 {
		zm.fatal(DivisionByZero)
	}
	r := int32(int16(args[0])) % int32(int16(args[1]))
	zm.StoreResult(uint16(r))
}

// log_shift number places -> (result)
// Positive places shift left, negative right, filling with zeros.
func ZLogShift(zm *ZMachine, args []uint16, numArgs uint16) {
	places := int16(args[1])
	if places >= 0 {
		zm.StoreResult(args[0] << uint(places))
	} else {
		zm.StoreResult(args[0] >> uint(-places))
	}
}

// art_shift keeps the sign when shifting right.
func ZArtShift(zm *ZMachine, args []uint16, numArgs uint16) {
	places := int16(args[1])
	if places >= 0 {
		zm.StoreResult(args[0] << uint(places))
	} else {
		zm.StoreResult(uint16(int16(args[0]) >> uint(-places)))
	}
}

// If range is positive, returns a uniformly random number between 1 and range.
// If range is negative, the random number generator is seeded to that value and the return value is 0.
// Most interpreters consider giving 0 as range illegal (because they attempt a division with remainder by the range),
// but correct behaviour is to reseed the generator in as random a way as the interpreter can (e.g. by using the time
// in milliseconds).
func ZRandom(zm *ZMachine, args []uint16, numArgs uint16) {
	randRange := int16(args[0])

	switch {
	case randRange > 0:
		r := zm.rng.Int31n(int32(randRange)) // [0, n)
		zm.StoreResult(uint16(r + 1))
	case randRange < 0:
		zm.rng.Seed(-int64(randRange))
		zm.StoreResult(0)
	default:
		zm.rng.Seed(time.Now().UnixNano())
		zm.StoreResult(0)
	}
}

// store (variable) value
func ZStore(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.StoreVariable(uint8(args[0]), args[1])
}

// load (variable) -> (result)
func ZLoad(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.StoreResult(zm.LoadVariable(uint8(args[0])))
}

func ZInc(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.AddToVar(uint8(args[0]), 1)
}

func ZDec(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.AddToVar(uint8(args[0]), -1)
}

func ZPush(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.stack.Push(args[0])
}

// pull (variable)
func ZPull(zm *ZMachine, args []uint16, numArgs uint16) {
	r := zm.stack.Pop()
	zm.StoreVariable(uint8(args[0]), r)
}

// array word-index -> (result)
// Array addresses wrap at 64K.
func ZLoadW(zm *ZMachine, args []uint16, numArgs uint16) {
	address := uint32(args[0] + args[1]*2)
	zm.StoreResult(zm.GetUint16(address))
}

func ZLoadB(zm *ZMachine, args []uint16, numArgs uint16) {
	address := uint32(args[0] + args[1])
	zm.StoreResult(uint16(zm.GetUint8(address)))
}

// storew array word-index value
func ZStoreW(zm *ZMachine, args []uint16, numArgs uint16) {
	address := uint32(args[0] + args[1]*2)
	zm.SetUint16(address, args[2])
}

// storeb array byte-index value
func ZStoreB(zm *ZMachine, args []uint16, numArgs uint16) {
	address := uint32(args[0] + args[1])
	zm.SetUint8(address, uint8(args[2]))
}

func ZTestAttr(zm *ZMachine, args []uint16, numArgs uint16) {
	GenericBranch(zm, zm.TestObjectAttr(args[0], args[1]))
}

func ZSetAttr(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.SetObjectAttr(args[0], args[1])
}

func ZClearAttr(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.ClearObjectAttr(args[0], args[1])
}

func ZInsertObj(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.ReparentObject(args[0], args[1])
}

func ZRemoveObj(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.UnlinkObject(args[0])
}

// get_sibling object -> (result) ?(label)
// Get next object in tree, branching if this exists, i.e. is not 0.
func ZGetSibling(zm *ZMachine, args []uint16, numArgs uint16) {
	sibling := zm.GetSibling(args[0])
	zm.StoreResult(sibling)
	GenericBranch(zm, sibling != NULL_OBJECT_INDEX)
}

// get_child object -> (result) ?(label)
// Get first object contained in given object, branching if this exists, i.e. is not nothing (i.e., is not 0).
func ZGetChild(zm *ZMachine, args []uint16, numArgs uint16) {
	childIndex := zm.GetFirstChild(args[0])
	zm.StoreResult(childIndex)
	GenericBranch(zm, childIndex != NULL_OBJECT_INDEX)
}

func ZGetParent(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.StoreResult(zm.GetParentObject(args[0]))
}

func ZGetProp(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.StoreResult(zm.GetObjectProperty(args[0], args[1]))
}

func ZGetPropAddr(zm *ZMachine, args []uint16, numArgs uint16) {
	addr := zm.GetObjectPropertyAddress(args[0], args[1])
	zm.StoreResult(uint16(addr))
}

func ZGetNextProp(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.StoreResult(zm.GetNextObjectProperty(args[0], args[1]))
}

// Arg = direct address of the property block
func ZGetPropLen(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.StoreResult(zm.GetPropertyLength(uint32(args[0])))
}

func ZPutProp(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.SetObjectProperty(args[0], args[1], args[2])
}

// scan_table x table len form -> (result)
// form defaults to $82: word entries, two bytes apart.
func ZScanTable(zm *ZMachine, args []uint16, numArgs uint16) {
	form := uint16(0x82)
	if numArgs > 3 {
		form = args[3]
	}
	address := zm.ScanTable(args[0], uint32(args[1]), args[2], form)
	zm.StoreResult(uint16(address))
	GenericBranch(zm, address != 0)
}

// copy_table first second size
func ZCopyTable(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.CopyTable(uint32(args[0]), uint32(args[1]), int16(args[2]))
}

func ZPrint(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.ip = zm.DecodeZString(zm.ip, zm.screen.printZChar)
}

func ZPrintRet(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.ip = zm.DecodeZString(zm.ip, zm.screen.printZChar)
	zm.screen.newLine()
	zm.Return(1)
}

func ZPrintAddr(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.DecodeZString(uint32(args[0]), zm.screen.printZChar)
}

// print_paddr packed-address-of-string
func ZPrintPAddr(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.DecodeZString(zm.header.PackedAddress(args[0]), zm.screen.printZChar)
}

func ZPrintObj(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.PrintObjectName(args[0])
}

func ZNewLine(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.newLine()
}

func ZPrintChar(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.printZChar(args[0])
}

func ZPrintNum(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.printString(strconv.Itoa(int(int16(args[0]))))
}

// print_table zscii-text width height skip
func ZPrintTable(zm *ZMachine, args []uint16, numArgs uint16) {
	height, skip := uint16(1), uint16(0)
	if numArgs > 2 {
		height = args[2]
	}
	if numArgs > 3 {
		skip = args[3]
	}
	zm.screen.printTable(uint32(args[0]), args[1], height, skip)
}

// Only the ASCII range of Unicode can be shown.
func ZPrintUnicode(zm *ZMachine, args []uint16, numArgs uint16) {
	if args[0] >= ' ' && args[0] < 127 {
		zm.screen.printZChar(args[0])
	} else {
		zm.screen.printZChar('?')
	}
}

// check_unicode char-number -> (result)
// Bit 0: can be printed, bit 1: can be typed.
func ZCheckUnicode(zm *ZMachine, args []uint16, numArgs uint16) {
	if args[0] >= ' ' && args[0] < 127 {
		zm.StoreResult(3)
	} else {
		zm.StoreResult(0)
	}
}

func ZShowStatus(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.showStatus()
}

func ZSplitWindow(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.splitWindow(int(args[0]))
}

func ZSetWindow(zm *ZMachine, args []uint16, numArgs uint16) {
	if args[0] == TEXT_WINDOW || args[0] == STATUS_WINDOW {
		zm.screen.selectWindow(int(args[0]))
	}
}

func ZEraseWindow(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.eraseWindow(int16(args[0]))
}

func ZEraseLine(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.eraseLine(args[0])
}

func ZSetCursor(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.setCursor(int(int16(args[0])), int(int16(args[1])))
}

// get_cursor array
func ZGetCursor(zm *ZMachine, args []uint16, numArgs uint16) {
	row, col := zm.screen.cursor()
	zm.SetUint16(uint32(args[0]), uint16(row))
	zm.SetUint16(uint32(args[0])+2, uint16(col))
}

func ZSetTextStyle(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.setTextStyle(args[0])
}

func ZBufferMode(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.setBufferMode(args[0] != 0)
}

// output_stream number table
func ZOutputStream(zm *ZMachine, args []uint16, numArgs uint16) {
	var table uint32
	if numArgs > 1 {
		table = uint32(args[1])
	}
	zm.screen.outputStream(int16(args[0]), table)
}

func ZSetFont(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.StoreResult(zm.screen.setFont(args[0]))
}

// tokenise text parse dictionary flag
func ZTokenise(zm *ZMachine, args []uint16, numArgs uint16) {
	dictionary := zm.header.dictAddress
	if numArgs > 2 && args[2] != 0 {
		dictionary = uint32(args[2])
	}
	zm.Tokenise(uint32(args[0]), uint32(args[1]), dictionary, numArgs > 3 && args[3] != 0)
}

// encode_text zscii-text length from coded-text
func ZEncodeText(zm *ZMachine, args []uint16, numArgs uint16) {
	text := uint32(args[0]) + uint32(args[2])
	word := make([]byte, args[1])
	for i := range word {
		word[i] = zm.GetUint8(text + uint32(i))
	}
	encoded := zm.EncodeText(word)
	for i, w := range encoded {
		zm.SetUint16(uint32(args[3])+uint32(i)*2, w)
	}
}

func ZRestart(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.screen.flush()
	zm.Restart()
}

func ZQuit(zm *ZMachine, args []uint16, numArgs uint16) {
	zm.halt()
}

// Verify sums the story from the end of the header to the file length, as
// loaded, and compares with the header checksum.
func (zm *ZMachine) Verify() bool {
	end := zm.header.fileLength
	if end == 0 {
		return true
	}
	var sum uint16
	for a := uint32(HEADER_SIZE); a < end && a < zm.layout.StoryRegionSize; a++ {
		if a < uint32(len(zm.pristine)) {
			sum += uint16(zm.pristine[a])
		} else {
			sum += uint16(zm.GetUint8(a))
		}
	}
	return sum == zm.header.checksum
}

func ZVerify(zm *ZMachine, args []uint16, numArgs uint16) {
	GenericBranch(zm, zm.Verify())
}

// Interpreters are asked to be gullible and to unconditionally branch.
func ZPiracy(zm *ZMachine, args []uint16, numArgs uint16) {
	GenericBranch(zm, true)
}

func ZNOP(zm *ZMachine, args []uint16, numArgs uint16) {
}
