package ir

import (
	"cc16/internal/source"
	"cc16/internal/types"
)

// CallConv selects who removes arguments from the stack.
type CallConv uint8

const (
	ConvCdecl CallConv = iota
	ConvStdcall
)

func (c CallConv) String() string {
	if c == ConvStdcall {
		return "stdcall"
	}
	return "cdecl"
}

// Func is the instruction block of one function.
type Func struct {
	Name       string
	Span       source.Span
	Params     []Var
	Result     types.TypeID
	ResultSize int
	Conv       CallConv
	Variadic   bool
	Instrs     []Instr
}

// Symbol is the assembler-level name of a C function or global.
func Symbol(name string) string {
	return "_" + name
}

// Clone deep-copies f.
func (f *Func) Clone() *Func {
	if f == nil {
		return nil
	}
	out := *f
	out.Params = append([]Var(nil), f.Params...)
	out.Instrs = CloneInstrs(f.Instrs)
	return &out
}

// UseCounts counts reads of every variable.
func UseCounts(instrs []Instr) map[VarKey]int {
	uses := make(map[VarKey]int, len(instrs))
	for i := range instrs {
		for _, op := range instrs[i].Inputs() {
			if op.IsVar() {
				uses[op.Var.Key()]++
			}
		}
	}
	return uses
}
