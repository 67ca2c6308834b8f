package x86

import (
	"strconv"

	"cc16/internal/ir"
)

type operandKind uint8

const (
	opImm operandKind = iota + 1
	opReg
)

// operand is an instruction operand in assembler form.
type operand struct {
	kind operandKind
	reg  Reg
	imm  int64
	size int
}

func immOperand(v int64, size int) operand { return operand{kind: opImm, imm: v, size: size} }
func regOperand(r Reg) operand             { return operand{kind: opReg, reg: r, size: r.Size()} }

// sized renders the operand for a destination of the given width.
func (o operand) sized(size int) string {
	switch o.kind {
	case opImm:
		return imm(o.imm, size)
	case opReg:
		return o.reg.Sized(size).String()
	}
	return "?"
}

func (o operand) String() string { return o.sized(o.size) }

// imm renders v wrapped to size bytes as a signed decimal.
func imm(v int64, size int) string {
	return strconv.FormatInt(ir.Truncate(v, size, true), 10)
}

var sizeKeywords = map[int]string{1: "byte", 2: "word", 4: "dword", 8: "qword", 10: "tword"}

// mem renders a sized memory operand, e.g. "word [bp-4]".
func mem(size int, addr string) string {
	if kw, ok := sizeKeywords[size]; ok {
		return kw + " " + addr
	}
	return addr
}

// bpAddr renders a frame address.
func bpAddr(off int) string {
	return baseAddr("bp", off)
}

func baseAddr(base string, off int) string {
	switch {
	case off == 0:
		return "[" + base + "]"
	case off > 0:
		return "[" + base + "+" + strconv.Itoa(off) + "]"
	}
	return "[" + base + strconv.Itoa(off) + "]"
}

func absAddr(off int64) string {
	return "[" + strconv.FormatInt(ir.Truncate(off, 2, false), 10) + "]"
}

// jcc returns the conditional jump taken when op holds. Unsigned conditions
// also serve float compares, whose flags come from sahf.
func jcc(op ir.CmpOp, float bool) string {
	if float {
		switch op {
		case ir.CmpLt, ir.CmpULt:
			return "jb"
		case ir.CmpLe, ir.CmpULe:
			return "jbe"
		case ir.CmpGt, ir.CmpUGt:
			return "ja"
		case ir.CmpGe, ir.CmpUGe:
			return "jae"
		}
	}
	switch op {
	case ir.CmpEq:
		return "je"
	case ir.CmpNe:
		return "jne"
	case ir.CmpLt:
		return "jl"
	case ir.CmpLe:
		return "jle"
	case ir.CmpGt:
		return "jg"
	case ir.CmpGe:
		return "jge"
	case ir.CmpULt:
		return "jb"
	case ir.CmpULe:
		return "jbe"
	case ir.CmpUGt:
		return "ja"
	case ir.CmpUGe:
		return "jae"
	}
	return "jmp"
}

// localLabel turns an IR label into a label scoped to the current function.
func localLabel(name string) string {
	return "." + name
}
