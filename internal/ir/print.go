package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"cc16/internal/types"
)

// TypeString renders `int2B`, `char*2B`, `struct Vec4B`. A nil interner
// prints the raw type ID.
func TypeString(in *types.Interner, id types.TypeID, size int) string {
	if in == nil {
		return fmt.Sprintf("#%d:%dB", id, size)
	}
	if in.Kind(id) == types.KindVoid {
		return "void"
	}
	return fmt.Sprintf("%s%dB", types.Label(in, id), size)
}

func FormatVar(in *types.Interner, v Var) string {
	return v.String() + ": " + TypeString(in, v.Type, v.Size)
}

func FormatConst(in *types.Interner, c Const) string {
	return "%" + c.ValueString() + ": " + TypeString(in, c.Type, c.Size)
}

func FormatOperand(in *types.Interner, op Operand) string {
	switch op.Kind {
	case OperandVar:
		return FormatVar(in, op.Var)
	case OperandConst:
		return FormatConst(in, op.Const)
	}
	return "<none>"
}

func formatOperands(in *types.Interner, ops []Operand) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = FormatOperand(in, op)
	}
	return strings.Join(parts, ", ")
}

func withOffset(s string, off int) string {
	switch {
	case off > 0:
		return fmt.Sprintf("%s + %d", s, off)
	case off < 0:
		return fmt.Sprintf("%s - %d", s, -off)
	}
	return s
}

func cmpPrefix(in *types.Interner, c *CmpInstr) string {
	if c.Left.Kind == OperandConst && c.Left.Const.IsFloat {
		return "fcmp"
	}
	if in != nil && in.Kind(c.Left.Type()) == types.KindFloat {
		return "fcmp"
	}
	return "icmp"
}

func calleeString(in *types.Interner, c *CallInstr) string {
	switch {
	case c.Callee == "":
		return "*" + FormatOperand(in, c.Target)
	case IsBuiltinName(c.Callee):
		return c.Callee
	}
	return Symbol(c.Callee)
}

// FormatInstr renders one instruction in dump syntax.
func FormatInstr(in *types.Interner, ins *Instr) string {
	def := func(v Var, rhs string) string {
		return FormatVar(in, v) + " = " + rhs
	}
	switch ins.Kind {
	case InstrAlloc:
		return def(ins.Alloc.Out, "alloca "+TypeString(in, ins.Alloc.Elem, ins.Alloc.Size))
	case InstrLoad:
		return def(ins.Load.Out, "load "+withOffset(FormatOperand(in, ins.Load.Ptr), ins.Load.Offset))
	case InstrStore:
		return "store " + withOffset(FormatOperand(in, ins.Store.Ptr), ins.Store.Offset) + ", " + FormatOperand(in, ins.Store.Value)
	case InstrLea:
		return def(ins.Lea.Out, "lea "+FormatVar(in, ins.Lea.Src))
	case InstrMath:
		m := &ins.Math
		return def(m.Out, m.Op.String()+" "+formatOperands(in, []Operand{m.Left, m.Right}))
	case InstrCmp:
		c := &ins.Cmp
		return def(c.Out, cmpPrefix(in, c)+" "+c.Op.String()+" "+formatOperands(in, []Operand{c.Left, c.Right}))
	case InstrBr:
		s := "br " + FormatOperand(in, ins.Br.Cond) + ", true: " + ins.Br.True
		if ins.Br.False != "" {
			s += ", false: " + ins.Br.False
		}
		return s
	case InstrJmp:
		return "jmp " + ins.Jmp.Target
	case InstrLabel:
		return ins.Label.Name + ":"
	case InstrPhi:
		parts := make([]string, len(ins.Phi.Vars))
		for i, v := range ins.Phi.Vars {
			parts[i] = FormatVar(in, v)
		}
		return def(ins.Phi.Out, "phi "+strings.Join(parts, ", "))
	case InstrCall:
		c := &ins.Call
		rhs := "call " + calleeString(in, c) + "(" + formatOperands(in, c.Args) + ")"
		if c.Conv == ConvStdcall {
			rhs += " stdcall"
		}
		if c.HasOut {
			return def(c.Out, rhs)
		}
		return rhs
	case InstrLabelOffset:
		return def(ins.LabelOffset.Out, "label-offset "+ins.LabelOffset.Label)
	case InstrAsm:
		return "asm " + strconv.Quote(ins.Asm.Text)
	case InstrDefData:
		return formatDefData(in, &ins.DefData)
	case InstrAssign:
		return def(ins.Assign.Out, "assign "+FormatOperand(in, ins.Assign.Value))
	case InstrCast:
		return def(ins.Cast.Out, "cast "+FormatOperand(in, ins.Cast.Value))
	case InstrRet:
		if ins.Ret.HasValue {
			return "ret " + FormatOperand(in, ins.Ret.Value)
		}
		return "ret"
	}
	return "<invalid>"
}

func formatDefData(in *types.Interner, d *DefDataInstr) string {
	var sb strings.Builder
	sb.WriteString("def-data ")
	if d.ReadOnly {
		sb.WriteString("ro ")
	}
	sb.WriteString(d.Label)
	sb.WriteString(": ")
	sb.WriteString(TypeString(in, d.Type, d.Size))
	sb.WriteString(" = {")
	for i, it := range d.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "+%d ", it.Offset)
		switch it.Kind {
		case DataConst:
			sb.WriteString(FormatConst(in, it.Const))
		case DataLabel:
			sb.WriteString(withOffset("&"+it.Label, it.Addend))
		case DataBytes:
			sb.WriteString(strconv.Quote(string(it.Bytes)))
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// FormatHeader renders `def name(args): [ret: type]`.
func FormatHeader(in *types.Interner, f *Func) string {
	params := make([]string, 0, len(f.Params)+1)
	for _, p := range f.Params {
		params = append(params, FormatVar(in, p))
	}
	if f.Variadic {
		params = append(params, "...")
	}
	s := fmt.Sprintf("def %s(%s): [ret: %s]", f.Name, strings.Join(params, ", "), TypeString(in, f.Result, f.ResultSize))
	if f.Conv == ConvStdcall {
		s += " stdcall"
	}
	return s
}

// FormatFunc renders a whole block, terminated by end-def.
func FormatFunc(in *types.Interner, f *Func) string {
	var sb strings.Builder
	sb.WriteString(FormatHeader(in, f))
	sb.WriteByte('\n')
	for i := range f.Instrs {
		ins := &f.Instrs[i]
		if ins.Kind == InstrLabel {
			sb.WriteString(FormatInstr(in, ins))
		} else {
			sb.WriteString("  ")
			sb.WriteString(FormatInstr(in, ins))
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("end-def\n")
	return sb.String()
}

// DumpSegments writes every function block followed by the data segment.
func DumpSegments(w io.Writer, s *Segments) error {
	for i, f := range s.Code.Funcs() {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, FormatFunc(s.Types, f)); err != nil {
			return err
		}
	}
	if len(s.Data.Defs) == 0 {
		return nil
	}
	if s.Code.Len() > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	for i := range s.Data.Defs {
		if _, err := fmt.Fprintln(w, FormatInstr(s.Types, &s.Data.Defs[i])); err != nil {
			return err
		}
	}
	return nil
}

// EqualInstrs compares two blocks instruction by instruction.
func EqualInstrs(a, b []Instr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if FormatInstr(nil, &a[i]) != FormatInstr(nil, &b[i]) {
			return false
		}
	}
	return true
}
