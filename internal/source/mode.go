package source

// Mode selects how the database bytes are held.
type Mode int

const (
	// ModeAuto maps plain files and buffers compressed ones.
	ModeAuto Mode = iota
	// ModeMMap maps the file read-only.
	ModeMMap
	// ModeMemory reads the whole file into an owned buffer.
	ModeMemory
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeMMap:
		return "mmap"
	case ModeMemory:
		return "memory"
	default:
		return "unknown"
	}
}
