package geodb

import (
	"fmt"
	"strings"

	"github.com/hupe1980/geodb/internal/source"
)

// Mode selects how a database file is held in memory.
type Mode int

const (
	// ModeAuto memory-maps plain files and loads compressed files into memory.
	ModeAuto Mode = Mode(source.ModeAuto)
	// ModeMMap memory-maps the file read-only.
	ModeMMap Mode = Mode(source.ModeMMap)
	// ModeMemory reads the whole file into memory.
	ModeMemory Mode = Mode(source.ModeMemory)
)

func (m Mode) String() string {
	return source.Mode(m).String()
}

// ParseMode parses a mode name. Both the short form ("auto", "mmap",
// "memory") and the constant form ("MODE_AUTO", "MODE_MMAP", "MODE_MEMORY")
// are accepted.
func ParseMode(s string) (Mode, error) {
	switch strings.TrimPrefix(strings.ToLower(s), "mode_") {
	case "auto":
		return ModeAuto, nil
	case "mmap":
		return ModeMMap, nil
	case "memory":
		return ModeMemory, nil
	default:
		return 0, fmt.Errorf("%w: unsupported mode: %s", ErrInvalidArgument, s)
	}
}

func (m Mode) valid() bool {
	return m >= ModeAuto && m <= ModeMemory
}
