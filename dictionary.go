package zmachine

import (
	"bytes"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Word separators that are not themselves tokens.
var staticSeparators = []byte(" \t\n\f.,?")

// Dictionary describes a dictionary table:
//
//	n                  number of word separators
//	n bytes            the separators, each also a one character word
//	entry length
//	number of entries  signed; negative means unsorted
//	entries
type Dictionary struct {
	Address    uint32
	Separators []byte
	EntrySize  uint32
	Size       int
	Entries    uint32
}

func (zm *ZMachine) ReadDictionary(address uint32) Dictionary {
	d := Dictionary{Address: address}
	numSeparators := uint32(zm.GetUint8(address))
	for i := uint32(0); i < numSeparators; i++ {
		d.Separators = append(d.Separators, zm.GetUint8(address+1+i))
	}
	d.EntrySize = uint32(zm.GetUint8(address + 1 + numSeparators))
	d.Size = int(int16(zm.GetUint16(address + 2 + numSeparators)))
	d.Entries = address + 4 + numSeparators
	return d
}

type dictKey struct {
	address uint32
	word    [3]uint16
}

// dictionaryCache memoises lookups in dictionaries that live in static
// memory, which cannot change under it.
type dictionaryCache struct {
	lru *simplelru.LRU[dictKey, uint16]
}

// A negative size disables the cache.
func newDictionaryCache(size int) *dictionaryCache {
	if size < 0 {
		return &dictionaryCache{}
	}
	if size == 0 {
		size = 256
	}
	lru, err := simplelru.NewLRU[dictKey, uint16](size, nil)
	if err != nil {
		return &dictionaryCache{}
	}
	return &dictionaryCache{lru: lru}
}

// compareEntry orders the encoded word against the entry at address.
func (zm *ZMachine) compareEntry(word [3]uint16, address uint32) int {
	n := uint32(2)
	if zm.header.Version >= 4 {
		n = 3
	}
	for i := uint32(0); i < n; i++ {
		e := zm.GetUint16(address + i*2)
		switch {
		case word[i] < e:
			return -1
		case word[i] > e:
			return 1
		}
	}
	return 0
}

// searchDictionary returns the address of the matching entry or
// DICT_NOT_FOUND, and how many entries it compared.
func (zm *ZMachine) searchDictionary(d Dictionary, word [3]uint16) (uint16, int) {
	compares := 0
	if d.Size < 0 {
		for i := 0; i < -d.Size; i++ {
			address := d.Entries + uint32(i)*d.EntrySize
			compares++
			if zm.compareEntry(word, address) == 0 {
				return uint16(address), compares
			}
		}
		return DICT_NOT_FOUND, compares
	}
	if d.Size == 0 {
		return DICT_NOT_FOUND, 0
	}

	// Binary chop, starting at the largest power of two that fits.
	chop := 1
	for chop*2 <= d.Size {
		chop *= 2
	}
	index := chop - 1
	for chop > 0 {
		chop /= 2
		if index > d.Size-1 {
			index = d.Size - 1
		}
		address := d.Entries + uint32(index)*d.EntrySize
		compares++
		status := zm.compareEntry(word, address)
		if status == 0 {
			return uint16(address), compares
		}
		if status > 0 {
			index += chop
			if index >= d.Size {
				index = d.Size - 1
			}
		} else {
			index -= chop
			if index < 0 {
				index = 0
			}
		}
	}
	return DICT_NOT_FOUND, compares
}

// Return DICT_NOT_FOUND (= 0) if not found
// Address in dictionary otherwise
func (zm *ZMachine) FindInDictionary(d Dictionary, str []byte) uint16 {
	key := dictKey{address: d.Address, word: zm.EncodeText(str)}
	cacheable := zm.dict.lru != nil && !zm.IsSafeToWrite(d.Address)
	if cacheable {
		if address, ok := zm.dict.lru.Get(key); ok {
			return address
		}
	}
	address, _ := zm.searchDictionary(d, key.word)
	if cacheable {
		zm.dict.lru.Add(key, address)
	}
	return address
}

type token struct {
	start  int
	length int
}

// splitTokens breaks text into words. Game separators become words of
// their own; static separators only end words.
func splitTokens(text []byte, separators []byte) []token {
	var tokens []token
	start := -1
	for i, c := range text {
		switch {
		case bytes.IndexByte(separators, c) >= 0:
			if start >= 0 {
				tokens = append(tokens, token{start, i - start})
				start = -1
			}
			tokens = append(tokens, token{i, 1})
		case bytes.IndexByte(staticSeparators, c) >= 0:
			if start >= 0 {
				tokens = append(tokens, token{start, i - start})
				start = -1
			}
		case start < 0:
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start, len(text) - start})
	}
	return tokens
}

// textBuffer returns the typed text of a read buffer and the offset of its
// first character from the buffer start.
func (zm *ZMachine) textBuffer(textAddress uint32) ([]byte, uint32) {
	var text []byte
	if zm.header.Version >= 5 {
		n := uint32(zm.GetUint8(textAddress + 1))
		for i := uint32(0); i < n; i++ {
			text = append(text, zm.GetUint8(textAddress+2+i))
		}
		return text, 2
	}
	max := uint32(zm.GetUint8(textAddress))
	for i := uint32(0); i < max; i++ {
		c := zm.GetUint8(textAddress + 1 + i)
		if c == 0 {
			break
		}
		text = append(text, c)
	}
	return text, 1
}

// Tokenise fills the parse buffer at parseAddress from the text buffer.
// "Each block consists of the byte address of the word in the dictionary, if it is in the dictionary, or 0 if it isn't;
// followed by a byte giving the number of letters in the word; and finally a byte giving the position in the text-buffer
// of the first letter of the word."
// With skipUnknown set, the address of an unrecognised word is left alone.
func (zm *ZMachine) Tokenise(textAddress, parseAddress, dictAddress uint32, skipUnknown bool) {
	d := zm.ReadDictionary(dictAddress)
	text, offset := zm.textBuffer(textAddress)

	maxTokens := int(zm.GetUint8(parseAddress))
	numTokens := 0
	tp := parseAddress + 2
	for _, t := range splitTokens(text, d.Separators) {
		if numTokens >= maxTokens {
			zm.log.Debug("parse buffer full", "max", maxTokens)
			break
		}
		word := zm.FindInDictionary(d, text[t.start:t.start+t.length])
		if word != DICT_NOT_FOUND || !skipUnknown {
			zm.SetUint16(tp, word)
		}
		zm.SetUint8(tp+2, uint8(t.length))
		zm.SetUint8(tp+3, uint8(uint32(t.start)+offset))
		tp += 4
		numTokens++
	}
	zm.SetUint8(parseAddress+1, uint8(numTokens))
}
