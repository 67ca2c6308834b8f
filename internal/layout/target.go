package layout

// Target describes the machine the backend emits code for.
type Target struct {
	Name      string // e.g. "i8086"
	PtrSize   int    // bytes
	WordSize  int    // general purpose register width in bytes
	MaxAlign  int    // no type is aligned beyond this
	StackSlot int    // push/pop granularity
	MaxFrame  int    // largest addressable [bp-N] displacement
}

// I8086 is the 16-bit real-mode target: near pointers, 2-byte stack slots.
func I8086() Target {
	return Target{
		Name:      "i8086",
		PtrSize:   2,
		WordSize:  2,
		MaxAlign:  2,
		StackSlot: 2,
		MaxFrame:  0x7FFF,
	}
}

// AlignUp rounds n up to a multiple of align (align <= 1 is a no-op).
func AlignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	if rem := n % align; rem != 0 {
		return n + align - rem
	}
	return n
}
