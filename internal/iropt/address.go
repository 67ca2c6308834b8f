package iropt

import (
	"cc16/internal/ir"
)

// addrDef describes how a pointer temporary was computed: base plus a
// constant byte offset.
type addrDef struct {
	base ir.Var
	off  int
}

// collectAddrDefs records lea and add/sub-constant definitions.
func collectAddrDefs(instrs []ir.Instr) map[ir.VarKey]addrDef {
	defs := make(map[ir.VarKey]addrDef)
	for i := range instrs {
		in := &instrs[i]
		switch in.Kind {
		case ir.InstrLea:
			defs[in.Lea.Out.Key()] = addrDef{base: in.Lea.Src}
		case ir.InstrMath:
			m := &in.Math
			if !m.Left.IsVar() || !m.Right.IsConst() || m.Right.Const.IsFloat {
				continue
			}
			switch m.Op {
			case ir.MathAdd:
				defs[m.Out.Key()] = addrDef{base: m.Left.Var, off: int(m.Right.Const.Int)}
			case ir.MathSub:
				defs[m.Out.Key()] = addrDef{base: m.Left.Var, off: -int(m.Right.Const.Int)}
			}
		}
	}
	return defs
}

// resolveAddr follows a chain of address definitions from p. Lea ends the
// chain at a declared slot; add chains end at the first non-address value.
func resolveAddr(defs map[ir.VarKey]addrDef, p ir.Var) (ir.Var, int, bool) {
	off := 0
	changed := false
	for range len(defs) + 1 {
		if !p.Temp {
			break
		}
		d, ok := defs[p.Key()]
		if !ok {
			break
		}
		p, off, changed = d.base, off+d.off, true
	}
	return p, off, changed
}

// foldAddressOffsets turns loads and stores through computed pointers into
// accesses of the underlying base with a constant offset.
func foldAddressOffsets(_ *passContext, instrs []ir.Instr) []ir.Instr {
	defs := collectAddrDefs(instrs)
	if len(defs) == 0 {
		return instrs
	}
	out := make([]ir.Instr, 0, len(instrs))
	for _, in := range instrs {
		switch in.Kind {
		case ir.InstrLoad:
			if in.Load.Ptr.IsVar() {
				if base, off, ok := resolveAddr(defs, in.Load.Ptr.Var); ok {
					in.Load.Ptr = ir.VarOp(base)
					in.Load.Offset += off
				}
			}
		case ir.InstrStore:
			if in.Store.Ptr.IsVar() {
				if base, off, ok := resolveAddr(defs, in.Store.Ptr.Var); ok {
					in.Store.Ptr = ir.VarOp(base)
					in.Store.Offset += off
				}
			}
		}
		out = append(out, in)
	}
	return out
}

type addrKey struct {
	kind ir.InstrKind
	src  string
}

// dropRedundantAddresses keeps the first lea or label-offset of each source
// and rewrites later users to it. Labels reset the table.
func dropRedundantAddresses(_ *passContext, instrs []ir.Instr) []ir.Instr {
	first := make(map[addrKey]ir.Var)
	replace := make(map[ir.VarKey]ir.Var)
	out := make([]ir.Instr, 0, len(instrs))
	for _, in := range instrs {
		if len(replace) > 0 {
			in.MapInputs(func(op ir.Operand) ir.Operand {
				if op.IsVar() {
					if r, ok := replace[op.Var.Key()]; ok {
						return ir.VarOp(r)
					}
				}
				return op
			})
		}
		var key addrKey
		var outVar ir.Var
		switch in.Kind {
		case ir.InstrLabel:
			clear(first)
			out = append(out, in)
			continue
		case ir.InstrLea:
			key, outVar = addrKey{kind: ir.InstrLea, src: in.Lea.Src.String()}, in.Lea.Out
		case ir.InstrLabelOffset:
			key, outVar = addrKey{kind: ir.InstrLabelOffset, src: in.LabelOffset.Label}, in.LabelOffset.Out
		default:
			out = append(out, in)
			continue
		}
		if prev, ok := first[key]; ok {
			replace[outVar.Key()] = prev
			continue
		}
		first[key] = outVar
		out = append(out, in)
	}
	return out
}
