package zmachine

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the zorkduino.toml host configuration.
type Config struct {
	Screen     ScreenConfig     `toml:"screen"`
	Storage    StorageConfig    `toml:"storage"`
	Cache      CacheConfig      `toml:"cache"`
	Dictionary DictionaryConfig `toml:"dictionary"`
	Undo       UndoConfig       `toml:"undo"`
	Log        LogConfig        `toml:"log"`
}

// ScreenConfig sizes the display. Zero rows or columns mean the terminal
// size.
type ScreenConfig struct {
	Rows int  `toml:"rows"`
	Cols int  `toml:"cols"`
	More bool `toml:"more"`
}

type StorageConfig struct {
	MemoryFile     string `toml:"memory_file"`
	StoryRegionKiB uint32 `toml:"story_region_kib"`
	SaveSlots      int    `toml:"save_slots"`
}

type CacheConfig struct {
	Lines    int  `toml:"lines"`
	LineBits uint `toml:"line_bits"`
}

// DictionaryConfig sizes the lookup cache; negative disables it.
type DictionaryConfig struct {
	CacheSize int `toml:"cache_size"`
}

type UndoConfig struct {
	Depth int `toml:"depth"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	File    string `toml:"file"`
	Journal bool   `toml:"journal"`
}

func DefaultConfig() Config {
	return Config{
		Screen:     ScreenConfig{More: true},
		Storage:    StorageConfig{MemoryFile: "zorkduino.mem", StoryRegionKiB: 512, SaveSlots: 10},
		Cache:      CacheConfig{Lines: 32, LineBits: 6},
		Dictionary: DictionaryConfig{CacheSize: 256},
		Undo:       UndoConfig{Depth: 4},
		Log:        LogConfig{Level: "warn"},
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error
// when path is empty.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Storage.SaveSlots < 0 || c.Storage.SaveSlots > 10:
		return fmt.Errorf("save_slots %d outside 0..10", c.Storage.SaveSlots)
	case c.Cache.Lines < 0:
		return fmt.Errorf("cache lines %d is negative", c.Cache.Lines)
	case c.Cache.LineBits > 9:
		return fmt.Errorf("line_bits %d is larger than a sector", c.Cache.LineBits)
	case c.Storage.StoryRegionKiB > 16*1024:
		return fmt.Errorf("story_region_kib %d is larger than 16 MiB", c.Storage.StoryRegionKiB)
	}
	return nil
}

// Layout is the device layout the storage section describes.
func (c Config) Layout() Layout {
	l := DefaultLayout()
	if c.Storage.StoryRegionKiB != 0 {
		l.StoryRegionSize = c.Storage.StoryRegionKiB * 1024
	}
	l.SaveSlots = c.Storage.SaveSlots
	return l
}

// Options turns the configuration into machine options. The host fills in
// the display, keyboard and logger.
func (c Config) Options() Options {
	return Options{
		Layout:              c.Layout(),
		CacheLines:          c.Cache.Lines,
		LineBits:            c.Cache.LineBits,
		More:                c.Screen.More,
		UndoDepth:           c.Undo.Depth,
		DictionaryCacheSize: c.Dictionary.CacheSize,
	}
}
