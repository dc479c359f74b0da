package zmachine

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const SectorSize = 512

// BlockDevice is the backing store of the whole address space. Sector
// transfers are assumed atomic.
type BlockDevice interface {
	ReadSector(index uint32, buf []byte) error
	WriteSector(index uint32, buf []byte) error
}

// Layout partitions the device into the stack region, the story region and
// the save slots, in that order.
type Layout struct {
	StoryRegionSize uint32
	SaveSlots       int
}

const (
	StackRegionOffset = 0
	StackRegionSize   = MAX_STACK * 2
	StoryRegionOffset = StackRegionOffset + StackRegionSize

	// SaveSlotSize holds the stack region plus up to 64 KiB of dynamic memory.
	SaveSlotSize = 64*1024 + StackRegionSize
)

func DefaultLayout() Layout {
	return Layout{StoryRegionSize: 512 * 1024, SaveSlots: 10}
}

func (l Layout) SaveRegionOffset() uint32 {
	return StoryRegionOffset + l.StoryRegionSize
}

// SlotSector is the first sector of save slot n.
func (l Layout) SlotSector(n int) uint32 {
	return l.SaveRegionOffset()/SectorSize + uint32(n)*(SaveSlotSize/SectorSize)
}

// Size is the total number of bytes the layout occupies on a device.
func (l Layout) Size() int64 {
	return int64(l.SaveRegionOffset()) + int64(l.SaveSlots)*SaveSlotSize
}

// InstallStory zeroes the stack region and copies the story image into the
// story region.
func InstallStory(dev BlockDevice, l Layout, story []byte) error {
	if uint32(len(story)) > l.StoryRegionSize {
		return fmt.Errorf("story is %d bytes, story region holds %d", len(story), l.StoryRegionSize)
	}
	sector := make([]byte, SectorSize)
	for i := uint32(0); i < StackRegionSize/SectorSize; i++ {
		if err := dev.WriteSector(StackRegionOffset/SectorSize+i, sector); err != nil {
			return fmt.Errorf("clear stack region: %w", err)
		}
	}
	for off := 0; off < len(story); off += SectorSize {
		clear(sector)
		copy(sector, story[off:])
		if err := dev.WriteSector(uint32(StoryRegionOffset+off)/SectorSize, sector); err != nil {
			return fmt.Errorf("install story: %w", err)
		}
	}
	return nil
}

// MemDevice is a device held in memory. Unwritten sectors read as zeros.
type MemDevice struct {
	sectors map[uint32][]byte
	Reads   int
	Writes  int
}

func NewMemDevice() *MemDevice {
	return &MemDevice{sectors: make(map[uint32][]byte)}
}

func (d *MemDevice) ReadSector(index uint32, buf []byte) error {
	d.Reads++
	if s, ok := d.sectors[index]; ok {
		copy(buf, s)
	} else {
		clear(buf[:SectorSize])
	}
	return nil
}

func (d *MemDevice) WriteSector(index uint32, buf []byte) error {
	d.Writes++
	s, ok := d.sectors[index]
	if !ok {
		s = make([]byte, SectorSize)
		d.sectors[index] = s
	}
	copy(s, buf[:SectorSize])
	return nil
}

// FileDevice keeps the address space in a memory file on the host. The file
// grows as sectors past its end are written; reads past the end are zeros.
type FileDevice struct {
	f *os.File
}

func OpenFileDevice(path string) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open memory file: %w", err)
	}
	return &FileDevice{f: f}, nil
}

func (d *FileDevice) ReadSector(index uint32, buf []byte) error {
	n, err := d.f.ReadAt(buf[:SectorSize], int64(index)*SectorSize)
	if errors.Is(err, io.EOF) {
		clear(buf[n:SectorSize])
		return nil
	}
	return err
}

func (d *FileDevice) WriteSector(index uint32, buf []byte) error {
	_, err := d.f.WriteAt(buf[:SectorSize], int64(index)*SectorSize)
	return err
}

func (d *FileDevice) Sync() error {
	return d.f.Sync()
}

func (d *FileDevice) Close() error {
	return d.f.Close()
}
