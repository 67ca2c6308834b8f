package x86

import "strings"

// Reg is a general purpose register of the 8086. Word registers come first,
// then the byte halves of AX..DX.
type Reg uint8

const (
	NoReg Reg = iota
	AX
	CX
	DX
	BX
	SI
	DI
	AL
	CL
	DL
	BL
	AH
	CH
	DH
	BH
)

var regNames = [...]string{
	NoReg: "?",
	AX:    "ax", CX: "cx", DX: "dx", BX: "bx", SI: "si", DI: "di",
	AL: "al", CL: "cl", DL: "dl", BL: "bl",
	AH: "ah", CH: "ch", DH: "dh", BH: "bh",
}

func (r Reg) String() string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	return "?"
}

// Size is the register width in bytes.
func (r Reg) Size() int {
	switch {
	case r >= AX && r <= DI:
		return 2
	case r >= AL && r <= BH:
		return 1
	}
	return 0
}

// Full returns the word register a byte half belongs to.
func (r Reg) Full() Reg {
	switch r {
	case AL, AH:
		return AX
	case CL, CH:
		return CX
	case DL, DH:
		return DX
	case BL, BH:
		return BX
	}
	return r
}

// Low returns the low byte half of a word register, or NoReg for SI/DI.
func (r Reg) Low() Reg {
	switch r.Full() {
	case AX:
		return AL
	case CX:
		return CL
	case DX:
		return DL
	case BX:
		return BL
	}
	return NoReg
}

// High returns the high byte half of a word register, or NoReg for SI/DI.
func (r Reg) High() Reg {
	switch r.Full() {
	case AX:
		return AH
	case CX:
		return CH
	case DX:
		return DH
	case BX:
		return BH
	}
	return NoReg
}

// Sized returns the register of the given width that holds r's low part.
func (r Reg) Sized(size int) Reg {
	if size == 1 {
		if r.Size() == 1 {
			return r
		}
		return r.Low()
	}
	return r.Full()
}

// RegSet is a set of registers.
type RegSet uint16

func SetOf(regs ...Reg) RegSet {
	var s RegSet
	for _, r := range regs {
		s |= 1 << r
	}
	return s
}

func (s RegSet) Has(r Reg) bool { return s&(1<<r) != 0 }

func (s RegSet) With(r Reg) RegSet { return s | 1<<r }

func (s RegSet) Without(r Reg) RegSet { return s &^ (1 << r) }

func (s RegSet) String() string {
	var names []string
	for r := AX; r <= BH; r++ {
		if s.Has(r) {
			names = append(names, r.String())
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

var (
	wordRegs = SetOf(AX, CX, DX, BX, SI, DI)
	byteRegs = SetOf(AL, CL, DL, BL, AH, CH, DH, BH)
	// baseRegs can address memory on the 8086.
	baseRegs = SetOf(BX, SI, DI)
	// splitRegs have byte halves.
	splitRegs = SetOf(AX, CX, DX, BX)
	// allocation order
	wordOrder = []Reg{AX, CX, DX, BX, SI, DI}
	byteOrder = []Reg{AL, CL, DL, BL, AH, CH, DH, BH}
)

// RegUsage is the occupancy bit field of the register file: bits 0..5 mark
// word registers in use as a whole, bits 8..15 mark byte halves.
type RegUsage struct {
	bits uint16
}

func usageBit(r Reg) uint16 {
	switch {
	case r >= AX && r <= DI:
		return 1 << (r - AX)
	case r >= AL && r <= BH:
		return 1 << (8 + r - AL)
	}
	return 0
}

// Busy reports whether r or any register overlapping it is in use.
func (u RegUsage) Busy(r Reg) bool {
	if u.bits&usageBit(r) != 0 {
		return true
	}
	if r.Size() == 2 {
		if lo := r.Low(); lo != NoReg && u.bits&(usageBit(lo)|usageBit(r.High())) != 0 {
			return true
		}
		return false
	}
	return u.bits&usageBit(r.Full()) != 0
}

func (u *RegUsage) Mark(r Reg)  { u.bits |= usageBit(r) }
func (u *RegUsage) Clear(r Reg) { u.bits &^= usageBit(r) }
func (u RegUsage) Empty() bool  { return u.bits == 0 }
