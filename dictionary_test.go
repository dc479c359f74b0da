package zmachine

import "testing"

// dictStory has a V3 dictionary with ',' as a separator and the words cat,
// dog and go, 7 bytes per entry.
func dictStory() *storyBuilder {
	b := newStory(3)
	b.at(testDict, 1, ',', 7, 0, 3)
	b.at(testDict+5, 0x20, 0xD9, 0x94, 0xA5, 0, 0, 0)  // cat
	b.at(testDict+12, 0x26, 0x8C, 0x94, 0xA5, 0, 0, 0) // dog
	b.at(testDict+19, 0x32, 0x85, 0x94, 0xA5, 0, 0, 0) // go
	return b
}

const (
	testCat = testDict + 5
	testDog = testDict + 12
	testGo  = testDict + 19
)

func TestReadDictionary(t *testing.T) {
	zm, _ := loadStory(t, dictStory().build(), Options{})
	d := zm.ReadDictionary(testDict)
	if string(d.Separators) != "," || d.EntrySize != 7 || d.Size != 3 || d.Entries != testCat {
		t.Errorf("dictionary = %+v", d)
	}
}

func TestFindInDictionary(t *testing.T) {
	zm, _ := loadStory(t, dictStory().build(), Options{})
	d := zm.ReadDictionary(testDict)

	tests := []struct {
		word string
		want uint16
	}{
		{"cat", testCat},
		{"dog", testDog},
		{"go", testGo},
		{"cow", 0},
		{"aardvark", 0},
		{"zebra", 0},
	}
	for _, tt := range tests {
		if got := zm.FindInDictionary(d, []byte(tt.word)); got != tt.want {
			t.Errorf("FindInDictionary(%q) = 0x%X, want 0x%X", tt.word, got, tt.want)
		}
		_, compares := zm.searchDictionary(d, zm.EncodeText([]byte(tt.word)))
		if compares > 2 {
			t.Errorf("%q took %d compares, want at most 2", tt.word, compares)
		}
	}
}

func TestFindInUnsortedDictionary(t *testing.T) {
	zm, _ := loadStory(t, dictStory().build(), Options{})
	d := zm.ReadDictionary(testDict)
	d.Size = -3

	address, compares := zm.searchDictionary(d, zm.EncodeText([]byte("go")))
	if address != testGo || compares != 3 {
		t.Errorf("linear search = 0x%X after %d compares, want 0x%X after 3", address, compares, testGo)
	}
}

func TestDictionaryCache(t *testing.T) {
	zm, _ := loadStory(t, dictStory().build(), Options{DictionaryCacheSize: 4})
	d := zm.ReadDictionary(testDict)

	for i := 0; i < 3; i++ {
		zm.FindInDictionary(d, []byte("dog"))
	}
	if n := zm.dict.lru.Len(); n != 1 {
		t.Errorf("cache entries = %d, want 1", n)
	}
	for _, w := range []string{"a", "b", "c", "d", "e"} {
		zm.FindInDictionary(d, []byte(w))
	}
	if n := zm.dict.lru.Len(); n != 4 {
		t.Errorf("cache entries = %d, want 4", n)
	}

	zm, _ = loadStory(t, dictStory().build(), Options{DictionaryCacheSize: -1})
	if zm.dict.lru != nil {
		t.Errorf("negative size left the cache on")
	}
	if got := zm.FindInDictionary(zm.ReadDictionary(testDict), []byte("cat")); got != testCat {
		t.Errorf("uncached lookup = 0x%X, want 0x%X", got, testCat)
	}
}

func TestSplitTokens(t *testing.T) {
	tests := []struct {
		text string
		want []token
	}{
		{"dog,cat go", []token{{0, 3}, {3, 1}, {4, 3}, {8, 2}}},
		{"  take  lamp. ", []token{{2, 4}, {8, 4}}},
		{"", nil},
		{",,", []token{{0, 1}, {1, 1}}},
	}
	for _, tt := range tests {
		got := splitTokens([]byte(tt.text), []byte(","))
		if len(got) != len(tt.want) {
			t.Errorf("splitTokens(%q) = %v, want %v", tt.text, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitTokens(%q) = %v, want %v", tt.text, got, tt.want)
				break
			}
		}
	}
}

func TestTokenise(t *testing.T) {
	b := dictStory()
	b.at(testText, 20)
	b.at(testText+1, []byte("dog,cat go")...)
	b.at(testParse, 4)
	zm, _ := loadStory(t, b.build(), Options{})

	zm.Tokenise(testText, testParse, testDict, false)
	if n := zm.GetUint8(testParse + 1); n != 4 {
		t.Fatalf("tokens = %d, want 4", n)
	}
	want := []struct {
		word     uint16
		len, pos uint8
	}{
		{testDog, 3, 1},
		{0, 1, 4},
		{testCat, 3, 5},
		{testGo, 2, 9},
	}
	for i, w := range want {
		entry := uint32(testParse + 2 + i*4)
		word, n, pos := zm.GetUint16(entry), zm.GetUint8(entry+2), zm.GetUint8(entry+3)
		if word != w.word || n != w.len || pos != w.pos {
			t.Errorf("token %d = (0x%X, %d, %d), want (0x%X, %d, %d)", i, word, n, pos, w.word, w.len, w.pos)
		}
	}
}

func TestTokeniseStopsAtParseBufferSize(t *testing.T) {
	b := dictStory()
	b.at(testText, 20)
	b.at(testText+1, []byte("dog,cat go")...)
	b.at(testParse, 2)
	b.at(testParse+2+8, 0xEE)
	zm, _ := loadStory(t, b.build(), Options{})

	zm.Tokenise(testText, testParse, testDict, false)
	if n := zm.GetUint8(testParse + 1); n != 2 {
		t.Errorf("tokens = %d, want 2", n)
	}
	if c := zm.GetUint8(testParse + 2 + 8); c != 0xEE {
		t.Errorf("wrote past the parse buffer")
	}
}

func TestTokeniseSkipsUnknownWords(t *testing.T) {
	b := dictStory()
	b.at(testText, 20)
	b.at(testText+1, []byte("cow cat")...)
	b.at(testParse, 4)
	b.word(testParse+2, 0x1234)
	zm, _ := loadStory(t, b.build(), Options{})

	// tokenise text parse 0 1
	ZTokenise(zm, []uint16{testText, testParse, 0, 1}, 4)

	if word := zm.GetUint16(testParse + 2); word != 0x1234 {
		t.Errorf("unknown word entry = 0x%X, want it left as 0x1234", word)
	}
	if word := zm.GetUint16(testParse + 6); word != testCat {
		t.Errorf("known word entry = 0x%X, want 0x%X", word, testCat)
	}
}

func TestTokeniseV5TextBuffer(t *testing.T) {
	b := newStory(5)
	b.at(testDict, 0, 9, 0, 1)
	b.word(testDict+4, 0x20D9).word(testDict+6, 0x14A5).word(testDict+8, 0x94A5) // cat
	b.at(testText, 20, 5)
	b.at(testText+2, []byte("a cat")...)
	b.at(testParse, 4)
	zm, _ := loadStory(t, b.build(), Options{})

	zm.Tokenise(testText, testParse, testDict, false)
	if n := zm.GetUint8(testParse + 1); n != 2 {
		t.Fatalf("tokens = %d, want 2", n)
	}
	if word, pos := zm.GetUint16(testParse+6), zm.GetUint8(testParse+9); word != testDict+4 || pos != 4 {
		t.Errorf("cat = (0x%X, %d), want (0x%X, 4)", word, pos, testDict+4)
	}
}
