package zmachine

var alphabets = []string{"abcdefghijklmnopqrstuvwxyz",
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
	" \n0123456789.,!?_#'\"/\\-:()"}

// Version 1 has no newline in A2 and puts '<' there instead.
var alphabetV1 = " 0123456789.,!?_#'\"/\\<-:()"

const ZSCII_NEWLINE = 13

func (zm *ZMachine) alphabetChar(set int, index int) uint8 {
	switch {
	case zm.header.alphabetTable != 0:
		return zm.GetUint8(zm.header.alphabetTable + uint32(set*26+index))
	case set == 2 && zm.header.Version == 1:
		return alphabetV1[index]
	}
	return alphabets[set][index]
}

// Returns offset pointing just after the string data. Every decoded ZSCII
// character is passed to emit; newlines arrive as ZSCII_NEWLINE.
func (zm *ZMachine) DecodeZString(startOffset uint32, emit func(uint16)) uint32 {
	return zm.decodeZString(startOffset, emit, false)
}

// Abbreviations may not use abbreviations; inside one they are skipped.
func (zm *ZMachine) decodeZString(startOffset uint32, emit func(uint16), inAbbrev bool) uint32 {
	version := zm.header.Version
	shift, lock := 0, 0
	synonym := 0
	ascii, asciiState := uint16(0), 0

	i := startOffset
	for done := false; !done; i += 2 {
		//--first byte-------   --second byte---
		//7    6 5 4 3 2  1 0   7 6 5  4 3 2 1 0
		//bit  --first--  --second---  --third--
		w16 := zm.GetUint16(i)
		done = (w16 & 0x8000) != 0

		for bit := 10; bit >= 0; bit -= 5 {
			zc := int(w16>>bit) & 0x1F

			switch {
			case synonym != 0:
				// "If z is the first Z-character (1, 2 or 3) and x the subsequent one,
				// then the interpreter must look up entry 32(z-1)+x in the abbreviations table"
				if !inAbbrev {
					entry := zm.header.abbreviationTable + uint32((synonym-1)*64+zc*2)
					zm.decodeZString(uint32(zm.GetUint16(entry))*2, emit, true)
				}
				synonym = 0
				shift = lock

			case asciiState == 1:
				ascii = uint16(zc) << 5
				asciiState = 2

			case asciiState == 2:
				// Z-character 6 from A2 means that the two subsequent Z-characters specify a ten-bit ZSCII character code:
				// the next Z-character gives the top 5 bits and the one after the bottom 5.
				emit(ascii | uint16(zc))
				asciiState = 0

			case zc > 5:
				zc -= 6
				switch {
				case shift == 2 && zc == 0:
					asciiState = 1
				case shift == 2 && zc == 1 && version > 1:
					emit(ZSCII_NEWLINE)
				default:
					emit(uint16(zm.alphabetChar(shift, zc)))
				}
				shift = lock

			case zc == 0:
				emit(' ')

			case version < 3:
				switch {
				case zc == 1 && version == 1:
					emit(ZSCII_NEWLINE)
				case zc == 1:
					synonym = zc
				case zc < 4:
					// 2 and 3 shift one character, 4 and 5 lock.
					shift = (lock + zc + 2) % 3
				default:
					lock = (lock + zc) % 3
					shift = lock
				}

			case zc < 4:
				synonym = zc

			default:
				shift = zc - 3
				lock = 0
			}
		}
	}
	return i
}

// DecodeToString is DecodeZString collecting printable text.
func (zm *ZMachine) DecodeToString(address uint32) string {
	var b []byte
	zm.DecodeZString(address, func(c uint16) {
		if c == ZSCII_NEWLINE {
			b = append(b, '\n')
		} else if c < 256 {
			b = append(b, byte(c))
		}
	})
	return string(b)
}

// findChar reports the alphabet and index of c, or (2, 0) meaning the
// character needs the ASCII escape.
func (zm *ZMachine) findChar(c byte) (int, int) {
	set, index := 2, 0
	for a := 0; a < 3; a++ {
		for j := 0; j < 26; j++ {
			if zm.alphabetChar(a, j) == c {
				set, index = a, j
			}
		}
	}
	return set, index
}

// EncodeText packs a dictionary word the way the dictionary stores it:
// nine Z-characters, padded with 5, in two words before V4 (the third is
// then 0) and three words from V4 on. The last word has the top bit set.
func (zm *ZMachine) EncodeText(word []byte) [3]uint16 {
	var codes [9]uint8
	n := 0
	put := func(c uint8) {
		if n < len(codes) {
			codes[n] = c
			n++
		}
	}

	prevSet := 0
	for i, c := range word {
		set, index := zm.findChar(c)

		if zm.header.Version < 3 {
			if set != prevSet {
				nextSet := 0
				if i+1 < len(word) {
					nextSet, _ = zm.findChar(word[i+1])
				}
				shift := (set + prevSet*2) % 3
				if shift != 0 {
					// A run of characters in the same set gets a shift lock.
					// A single shift falls back to the locked set.
					if nextSet == set {
						shift += 2
						prevSet = set
					}
					put(uint8(shift + 1))
				}
			}
		} else if set != 0 {
			put(uint8(set + 3))
		}

		put(uint8(index + 6))
		if set == 2 && index == 0 {
			put((c >> 5) & 0x07)
			put(c & 0x1F)
		}
	}
	for ; n < len(codes); n++ {
		codes[n] = 5
	}

	var encodedWords [3]uint16
	for i := range encodedWords {
		encodedWords[i] = uint16(codes[i*3])<<10 | uint16(codes[i*3+1])<<5 | uint16(codes[i*3+2])
	}
	if zm.header.Version < 4 {
		encodedWords[1] |= 0x8000
		encodedWords[2] = 0
	} else {
		encodedWords[2] |= 0x8000
	}
	return encodedWords
}
