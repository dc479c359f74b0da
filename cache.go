package zmachine

import "fmt"

const emptyPage = ^uint32(0)

// sectorBuffer stages one physical sector. Writes reach the device when
// another sector is sought or on flush.
type sectorBuffer struct {
	dev   BlockDevice
	data  [SectorSize]byte
	mark  uint32
	dirty bool
	err   error
}

func (b *sectorBuffer) seek(sector uint32) []byte {
	if b.mark != sector {
		b.flush()
		if err := b.dev.ReadSector(sector, b.data[:]); err != nil {
			b.fail(fmt.Errorf("read sector %d: %w", sector, err))
			clear(b.data[:])
		}
		b.mark = sector
	}
	return b.data[:]
}

func (b *sectorBuffer) write(sector uint32, offset int, src []byte) {
	dst := b.seek(sector)[offset : offset+len(src)]
	for i, v := range src {
		if dst[i] != v {
			dst[i] = v
			b.dirty = true
		}
	}
}

func (b *sectorBuffer) flush() {
	if b.dirty && b.mark != emptyPage {
		if err := b.dev.WriteSector(b.mark, b.data[:]); err != nil {
			b.fail(fmt.Errorf("write sector %d: %w", b.mark, err))
		}
	}
	b.dirty = false
	b.mark = emptyPage
}

func (b *sectorBuffer) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// CacheStats counts line traffic since the cache was created.
type CacheStats struct {
	Hits       int
	Misses     int
	Evictions  int
	WriteBacks int
}

// Cache maps the unified address space onto a BlockDevice through a few
// fixed-size lines. Device errors are sticky: reads of a failed line return
// zeros and Err reports the first failure.
type Cache struct {
	buf      sectorBuffer
	lineBits uint
	mask     uint32
	pages    []uint32
	dirty    []bool
	data     []byte
	last     int
	next     int
	Stats    CacheStats
}

// NewCache creates a cache of lines lines of 1<<lineBits bytes each.
// Lines never straddle a sector, so lineBits is capped at 9.
func NewCache(dev BlockDevice, lines int, lineBits uint) *Cache {
	if lines < 2 {
		lines = 2
	}
	if lineBits < 1 {
		lineBits = 1
	} else if lineBits > 9 {
		lineBits = 9
	}
	c := &Cache{
		buf:      sectorBuffer{dev: dev, mark: emptyPage},
		lineBits: lineBits,
		mask:     1<<lineBits - 1,
		pages:    make([]uint32, lines),
		dirty:    make([]bool, lines),
		data:     make([]byte, lines<<lineBits),
	}
	for i := range c.pages {
		c.pages[i] = emptyPage
	}
	return c
}

func (c *Cache) Err() error {
	return c.buf.err
}

func (c *Cache) line(i int) []byte {
	return c.data[i<<c.lineBits : (i+1)<<c.lineBits]
}

func (c *Cache) sectorOf(page uint32) (sector uint32, offset int) {
	addr := page << c.lineBits
	return addr / SectorSize, int(addr % SectorSize)
}

func (c *Cache) lookup(page uint32) int {
	if c.pages[c.last] == page {
		c.Stats.Hits++
		return c.last
	}
	for i, p := range c.pages {
		if p == page {
			c.Stats.Hits++
			c.last = i
			return i
		}
	}

	c.Stats.Misses++
	i := c.slot()
	if c.pages[i] != emptyPage {
		c.Stats.Evictions++
		if c.dirty[i] {
			sector, _ := c.sectorOf(c.pages[i])
			c.writeBack(sector)
		}
	}
	sector, offset := c.sectorOf(page)
	copy(c.line(i), c.buf.seek(sector)[offset:])
	c.pages[i] = page
	c.dirty[i] = false
	c.last = i
	return i
}

// slot picks the line to load into: the first empty one, else the next
// clean line round-robin. Once two thirds of the lines are dirty any line
// will do.
func (c *Cache) slot() int {
	dirty := 0
	for i, p := range c.pages {
		if p == emptyPage {
			return i
		}
		if c.dirty[i] {
			dirty++
		}
	}
	anyLine := dirty >= len(c.pages)*2/3
	for {
		c.next = (c.next + 1) % len(c.pages)
		if anyLine || !c.dirty[c.next] {
			return c.next
		}
	}
}

// writeBack stages every dirty line that maps into sector.
func (c *Cache) writeBack(sector uint32) {
	for i, p := range c.pages {
		if p == emptyPage || !c.dirty[i] {
			continue
		}
		if s, offset := c.sectorOf(p); s == sector {
			c.buf.write(s, offset, c.line(i))
			c.dirty[i] = false
			c.Stats.WriteBacks++
		}
	}
}

func (c *Cache) ReadByte(addr uint32) byte {
	i := c.lookup(addr >> c.lineBits)
	return c.data[uint32(i)<<c.lineBits+addr&c.mask]
}

// WriteByte dirties the line only when v differs from what it holds.
func (c *Cache) WriteByte(addr uint32, v byte) {
	i := c.lookup(addr >> c.lineBits)
	p := &c.data[uint32(i)<<c.lineBits+addr&c.mask]
	if *p != v {
		*p = v
		c.dirty[i] = true
	}
}

func (c *Cache) ReadWord(addr uint32) uint16 {
	hi := c.ReadByte(addr)
	return uint16(hi)<<8 | uint16(c.ReadByte(addr+1))
}

func (c *Cache) WriteWord(addr uint32, v uint16) {
	c.WriteByte(addr, uint8(v>>8))
	c.WriteByte(addr+1, uint8(v))
}

// Flush writes every dirty line and the staging sector to the device.
func (c *Cache) Flush() {
	for i, p := range c.pages {
		if p != emptyPage && c.dirty[i] {
			sector, _ := c.sectorOf(p)
			c.writeBack(sector)
		}
	}
	c.buf.flush()
}

// Invalidate drops every line without writing it back. Used after the
// device has been rewritten underneath the cache.
func (c *Cache) Invalidate() {
	for i := range c.pages {
		c.pages[i] = emptyPage
		c.dirty[i] = false
	}
	c.buf.dirty = false
	c.buf.mark = emptyPage
}

// ReadDirectWord reads a word through the staging buffer only, bypassing
// the lines. The caller flushes first.
func (c *Cache) ReadDirectWord(addr uint32) uint16 {
	s := c.buf.seek(addr / SectorSize)
	off := addr % SectorSize
	return uint16(s[off])<<8 | uint16(s[off+1])
}

// CopySectors copies n sectors device to device. The caller flushes first.
func (c *Cache) CopySectors(dst, src uint32, n int) {
	var tmp [SectorSize]byte
	for i := uint32(0); i < uint32(n); i++ {
		if err := c.buf.dev.ReadSector(src+i, tmp[:]); err != nil {
			c.buf.fail(fmt.Errorf("read sector %d: %w", src+i, err))
			return
		}
		if err := c.buf.dev.WriteSector(dst+i, tmp[:]); err != nil {
			c.buf.fail(fmt.Errorf("write sector %d: %w", dst+i, err))
			return
		}
	}
}
