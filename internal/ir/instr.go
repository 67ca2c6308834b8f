package ir

import (
	"slices"

	"cc16/internal/types"
)

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	InstrInvalid InstrKind = iota
	// InstrAlloc reserves a stack slot and defines its handle.
	InstrAlloc
	InstrLoad
	InstrStore
	// InstrLea takes the address of a declared variable's slot.
	InstrLea
	InstrMath
	InstrCmp
	InstrBr
	InstrJmp
	InstrLabel
	InstrPhi
	InstrCall
	// InstrLabelOffset loads the address of a function or data label.
	InstrLabelOffset
	InstrAsm
	InstrDefData
	// InstrAssign copies an operand into a temporary.
	InstrAssign
	// InstrCast converts between widths and between int and float.
	InstrCast
	InstrRet
)

func (k InstrKind) String() string {
	switch k {
	case InstrAlloc:
		return "alloca"
	case InstrLoad:
		return "load"
	case InstrStore:
		return "store"
	case InstrLea:
		return "lea"
	case InstrMath:
		return "math"
	case InstrCmp:
		return "cmp"
	case InstrBr:
		return "br"
	case InstrJmp:
		return "jmp"
	case InstrLabel:
		return "label"
	case InstrPhi:
		return "phi"
	case InstrCall:
		return "call"
	case InstrLabelOffset:
		return "label-offset"
	case InstrAsm:
		return "asm"
	case InstrDefData:
		return "def-data"
	case InstrAssign:
		return "assign"
	case InstrCast:
		return "cast"
	case InstrRet:
		return "ret"
	}
	return "invalid"
}

// Instr is a closed sum type: Kind selects which payload is meaningful.
type Instr struct {
	Kind        InstrKind
	Alloc       AllocInstr
	Load        LoadInstr
	Store       StoreInstr
	Lea         LeaInstr
	Math        MathInstr
	Cmp         CmpInstr
	Br          BrInstr
	Jmp         JmpInstr
	Label       LabelInstr
	Phi         PhiInstr
	Call        CallInstr
	LabelOffset LabelOffsetInstr
	Asm         AsmInstr
	DefData     DefDataInstr
	Assign      AssignInstr
	Cast        CastInstr
	Ret         RetInstr
}

type AllocInstr struct {
	Out  Var
	Elem types.TypeID
	Size int
}

// LoadInstr reads Out from *(Ptr + Offset).
type LoadInstr struct {
	Out    Var
	Ptr    Operand
	Offset int
}

// StoreInstr writes Value to *(Ptr + Offset).
type StoreInstr struct {
	Ptr    Operand
	Value  Operand
	Offset int
}

type LeaInstr struct {
	Out Var
	Src Var
}

type MathInstr struct {
	Out   Var
	Op    MathOp
	Left  Operand
	Right Operand
}

type CmpInstr struct {
	Out   Var
	Op    CmpOp
	Left  Operand
	Right Operand
}

// BrInstr jumps to True when Cond is non-zero. An empty False falls through.
type BrInstr struct {
	Cond  Operand
	True  string
	False string
}

type JmpInstr struct {
	Target string
}

type LabelInstr struct {
	Name string
}

// PhiInstr merges one incoming variable per predecessor.
type PhiInstr struct {
	Out  Var
	Vars []Var
}

// CallInstr calls Callee (a symbol) or, when Callee is empty, the function
// pointer in Target.
type CallInstr struct {
	HasOut   bool
	Out      Var
	Callee   string
	Target   Operand
	Args     []Operand
	Conv     CallConv
	Variadic bool
}

// IsBuiltin reports calls to compiler intrinsics.
func (c *CallInstr) IsBuiltin() bool {
	return IsBuiltinName(c.Callee)
}

type LabelOffsetInstr struct {
	Out   Var
	Label string
}

type AsmInstr struct {
	Text string
}

// DataItemKind tags DataItem.
type DataItemKind uint8

const (
	DataConst DataItemKind = iota + 1
	DataLabel
	DataBytes
)

// DataItem is one initialized piece of a data definition. Bytes not covered
// by any item are zero.
type DataItem struct {
	Kind   DataItemKind
	Offset int
	Size   int
	Const  Const
	Label  string
	Addend int
	Bytes  []byte
}

type DefDataInstr struct {
	Label    string
	Type     types.TypeID
	Size     int
	ReadOnly bool
	Items    []DataItem
}

type AssignInstr struct {
	Out   Var
	Value Operand
}

type CastInstr struct {
	Out   Var
	Value Operand
}

type RetInstr struct {
	HasValue bool
	Value    Operand
}

// Output returns the variable the instruction defines.
func (in *Instr) Output() (Var, bool) {
	switch in.Kind {
	case InstrAlloc:
		return in.Alloc.Out, true
	case InstrLoad:
		return in.Load.Out, true
	case InstrLea:
		return in.Lea.Out, true
	case InstrMath:
		return in.Math.Out, true
	case InstrCmp:
		return in.Cmp.Out, true
	case InstrPhi:
		return in.Phi.Out, true
	case InstrCall:
		return in.Call.Out, in.Call.HasOut
	case InstrLabelOffset:
		return in.LabelOffset.Out, true
	case InstrAssign:
		return in.Assign.Out, true
	case InstrCast:
		return in.Cast.Out, true
	}
	return Var{}, false
}

// Inputs returns the operands the instruction reads, in evaluation order.
func (in *Instr) Inputs() []Operand {
	switch in.Kind {
	case InstrLoad:
		return []Operand{in.Load.Ptr}
	case InstrStore:
		return []Operand{in.Store.Ptr, in.Store.Value}
	case InstrLea:
		return []Operand{VarOp(in.Lea.Src)}
	case InstrMath:
		return []Operand{in.Math.Left, in.Math.Right}
	case InstrCmp:
		return []Operand{in.Cmp.Left, in.Cmp.Right}
	case InstrBr:
		return []Operand{in.Br.Cond}
	case InstrPhi:
		out := make([]Operand, len(in.Phi.Vars))
		for i, v := range in.Phi.Vars {
			out[i] = VarOp(v)
		}
		return out
	case InstrCall:
		out := make([]Operand, 0, len(in.Call.Args)+1)
		if in.Call.Callee == "" {
			out = append(out, in.Call.Target)
		}
		return append(out, in.Call.Args...)
	case InstrAssign:
		return []Operand{in.Assign.Value}
	case InstrCast:
		return []Operand{in.Cast.Value}
	case InstrRet:
		if in.Ret.HasValue {
			return []Operand{in.Ret.Value}
		}
	}
	return nil
}

// MapInputs rewrites every operand the instruction reads. Operands whose
// position requires a variable (lea source, phi inputs) keep their old value
// when f returns a constant.
func (in *Instr) MapInputs(f func(Operand) Operand) {
	switch in.Kind {
	case InstrLoad:
		in.Load.Ptr = f(in.Load.Ptr)
	case InstrStore:
		in.Store.Ptr = f(in.Store.Ptr)
		in.Store.Value = f(in.Store.Value)
	case InstrLea:
		if r := f(VarOp(in.Lea.Src)); r.IsVar() {
			in.Lea.Src = r.Var
		}
	case InstrMath:
		in.Math.Left = f(in.Math.Left)
		in.Math.Right = f(in.Math.Right)
	case InstrCmp:
		in.Cmp.Left = f(in.Cmp.Left)
		in.Cmp.Right = f(in.Cmp.Right)
	case InstrBr:
		in.Br.Cond = f(in.Br.Cond)
	case InstrPhi:
		for i, v := range in.Phi.Vars {
			if r := f(VarOp(v)); r.IsVar() {
				in.Phi.Vars[i] = r.Var
			}
		}
	case InstrCall:
		if in.Call.Callee == "" {
			in.Call.Target = f(in.Call.Target)
		}
		for i := range in.Call.Args {
			in.Call.Args[i] = f(in.Call.Args[i])
		}
	case InstrAssign:
		in.Assign.Value = f(in.Assign.Value)
	case InstrCast:
		in.Cast.Value = f(in.Cast.Value)
	case InstrRet:
		if in.Ret.HasValue {
			in.Ret.Value = f(in.Ret.Value)
		}
	}
}

// Targets returns the code labels the instruction may jump to.
func (in *Instr) Targets() []string {
	switch in.Kind {
	case InstrBr:
		if in.Br.False == "" {
			return []string{in.Br.True}
		}
		return []string{in.Br.True, in.Br.False}
	case InstrJmp:
		return []string{in.Jmp.Target}
	}
	return nil
}

// MapTargets rewrites the code labels the instruction jumps to.
func (in *Instr) MapTargets(f func(string) string) {
	switch in.Kind {
	case InstrBr:
		in.Br.True = f(in.Br.True)
		if in.Br.False != "" {
			in.Br.False = f(in.Br.False)
		}
	case InstrJmp:
		in.Jmp.Target = f(in.Jmp.Target)
	}
}

// IsPure reports instructions that only compute their output; removing one
// whose output is unused does not change behavior.
func (in *Instr) IsPure() bool {
	switch in.Kind {
	case InstrMath, InstrCmp, InstrLea, InstrLabelOffset, InstrAssign, InstrCast, InstrPhi:
		return true
	}
	return false
}

// Clone returns a deep copy.
func (in Instr) Clone() Instr {
	out := in
	out.Phi.Vars = slices.Clone(in.Phi.Vars)
	out.Call.Args = slices.Clone(in.Call.Args)
	out.DefData.Items = slices.Clone(in.DefData.Items)
	for i := range out.DefData.Items {
		out.DefData.Items[i].Bytes = slices.Clone(in.DefData.Items[i].Bytes)
	}
	return out
}

// CloneInstrs deep-copies a block.
func CloneInstrs(instrs []Instr) []Instr {
	out := make([]Instr, len(instrs))
	for i := range instrs {
		out[i] = instrs[i].Clone()
	}
	return out
}
