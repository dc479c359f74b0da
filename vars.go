package zmachine

import "fmt"

const (
	OPERAND_LARGE    = 0x0
	OPERAND_SMALL    = 0x1
	OPERAND_VARIABLE = 0x2
	OPERAND_OMITTED  = 0x3

	MAX_STACK  = 1024
	MAX_LOCALS = 15

	NULL_OBJECT_INDEX = 0
	DICT_NOT_FOUND    = 0
)

// The low byte of a frame's fourth word holds argc-1, the high byte the
// kind of call that built it.
const (
	CALL_FUNCTION  = 0x0000
	CALL_PROCEDURE = 0x0100
	CALL_ASYNC     = 0x0200

	ARGS_MASK = 0x00FF
	TYPE_MASK = 0xFF00
)

// Header offsets
const (
	H_TYPE                 = 0x00
	H_CONFIG               = 0x01
	H_DATA_SIZE            = 0x04
	H_START_PC             = 0x06
	H_WORDS_OFFSET         = 0x08
	H_OBJECTS_OFFSET       = 0x0A
	H_GLOBALS_OFFSET       = 0x0C
	H_RESTART_SIZE         = 0x0E
	H_FLAGS                = 0x10
	H_SYNONYMS_OFFSET      = 0x18
	H_FILE_SIZE            = 0x1A
	H_CHECKSUM             = 0x1C
	H_INTERPRETER          = 0x1E
	H_INTERPRETER_VERSION  = 0x1F
	H_SCREEN_ROWS          = 0x20
	H_SCREEN_COLUMNS       = 0x21
	H_SCREEN_WIDTH         = 0x22
	H_SCREEN_HEIGHT        = 0x24
	H_FONT_WIDTH           = 0x26
	H_FONT_HEIGHT          = 0x27
	H_STANDARD_HIGH        = 0x32
	H_STANDARD_LOW         = 0x33
	H_ALTERNATE_ALPHABET   = 0x34
	HEADER_SIZE            = 0x40
	INTERPRETER_MSDOS      = 6
	INTERPRETER_VERSION_ID = 'B'
	STANDARD_REVISION_HIGH = 1
	STANDARD_REVISION_LOW  = 0
)

// Config byte. The low bits mean different things before and after V4.
const (
	CONFIG_BYTE_SWAPPED  = 0x01 // V1-3
	CONFIG_TIME          = 0x02 // V3: status line shows time
	CONFIG_TANDY         = 0x08 // V3
	CONFIG_NOSTATUSLINE  = 0x10 // V3
	CONFIG_WINDOWS       = 0x20 // V3: split screen available
	CONFIG_COLOUR        = 0x01 // V5
	CONFIG_BOLDFACE      = 0x04 // V4
	CONFIG_EMPHASIS      = 0x08 // V4
	CONFIG_FIXED         = 0x10 // V4
	CONFIG_TIMED_INPUT   = 0x80 // V4
	SCRIPTING_FLAG       = 0x0001
	FIXED_FONT_FLAG      = 0x0002
	UNDO_AVAILABLE_FLAG  = 0x0010
	V3_STATUS_GLOBAL     = 16
	V3_SCORE_GLOBAL      = 17
	V3_MOVES_GLOBAL      = 18
	V3_OBJECT_ATTRIBUTES = 32
	V4_OBJECT_ATTRIBUTES = 48
)

// ZHeader is the story header plus the version-dependent layout derived
// from it. It is frozen between restarts.
type ZHeader struct {
	Version           uint8 // 8 is stored as 5
	Config            uint8
	hiMemBase         uint16
	ip                uint16
	dictAddress       uint32
	objTableAddress   uint32
	globalVarAddress  uint32
	staticMemAddress  uint32
	abbreviationTable uint32
	alphabetTable     uint32
	fileLength        uint32
	checksum          uint16

	scaler         uint32
	objectSize     uint32
	parentOffset   uint32
	siblingOffset  uint32
	childOffset    uint32
	propertyOffset uint32
	maxProperties  uint32
	propertyMask   uint8
	attributes     uint16
}

// Read parses and validates the header. Nothing is written anywhere, so a
// rejected image leaves no trace.
func (h *ZHeader) Read(buf []byte) error {
	if len(buf) < HEADER_SIZE {
		return &Error{Code: WrongGameOrVersion, Err: fmt.Errorf("story is %d bytes, shorter than a header", len(buf))}
	}

	version := buf[H_TYPE]
	switch {
	case version == 6 || version == 7:
		return &Error{Code: UnsupportedVersion, Err: fmt.Errorf("version %d", version)}
	case version < 1 || version > 8:
		return &Error{Code: WrongGameOrVersion, Err: fmt.Errorf("version %d", version)}
	case version < 4 && buf[H_CONFIG]&CONFIG_BYTE_SWAPPED != 0:
		return &Error{Code: WrongGameOrVersion, Err: fmt.Errorf("byte-swapped image")}
	}

	h.scaler = 2
	switch {
	case version == 8:
		version = 5
		h.scaler = 8
	case version >= 4:
		h.scaler = 4
	}

	h.Version = version
	h.Config = buf[H_CONFIG]
	h.hiMemBase = GetUint16(buf, H_DATA_SIZE)
	h.ip = GetUint16(buf, H_START_PC)
	h.dictAddress = uint32(GetUint16(buf, H_WORDS_OFFSET))
	h.objTableAddress = uint32(GetUint16(buf, H_OBJECTS_OFFSET))
	h.globalVarAddress = uint32(GetUint16(buf, H_GLOBALS_OFFSET))
	h.staticMemAddress = uint32(GetUint16(buf, H_RESTART_SIZE))
	h.abbreviationTable = uint32(GetUint16(buf, H_SYNONYMS_OFFSET))
	h.fileLength = uint32(GetUint16(buf, H_FILE_SIZE)) * h.scaler
	h.checksum = GetUint16(buf, H_CHECKSUM)
	if version >= 5 {
		h.alphabetTable = uint32(GetUint16(buf, H_ALTERNATE_ALPHABET))
	}

	if version < 4 {
		h.objectSize = 9
		h.parentOffset, h.siblingOffset, h.childOffset = 4, 5, 6
		h.propertyOffset = 7
		h.maxProperties = 32
		h.propertyMask = 0x1F
		h.attributes = V3_OBJECT_ATTRIBUTES
	} else {
		h.objectSize = 14
		h.parentOffset, h.siblingOffset, h.childOffset = 6, 8, 10
		h.propertyOffset = 12
		h.maxProperties = 64
		h.propertyMask = 0x3F
		h.attributes = V4_OBJECT_ATTRIBUTES
	}

	if h.staticMemAddress < HEADER_SIZE || h.staticMemAddress > SaveSlotSize-StackRegionSize ||
		int(h.staticMemAddress) > len(buf) {
		return &Error{Code: WrongGameOrVersion, Err: fmt.Errorf("dynamic memory of %d bytes", h.staticMemAddress)}
	}
	return nil
}

// " Given a packed address P, the formula to obtain the corresponding byte address B is:
//  2P           Versions 1, 2 and 3
//  4P           Versions 4 and 5
//  8P           Version 8"
func (h *ZHeader) PackedAddress(a uint16) uint32 {
	return uint32(a) * h.scaler
}

type ZFunction func(*ZMachine, []uint16, uint16)

func GetUint16(buf []byte, offset uint32) uint16 {
	return (uint16(buf[offset]) << 8) | (uint16)(buf[offset+1])
}
