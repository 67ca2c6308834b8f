package iropt

import "cc16/internal/ir"

type storeKey struct {
	base ir.VarKey
	off  int
	size int
}

// dropDeadStores removes a store that is overwritten by a later store to the
// same location with no read in between. Control flow, calls, inline
// assembly and loads through pointers end the window.
func dropDeadStores(_ *passContext, instrs []ir.Instr) []ir.Instr {
	dead := make([]bool, len(instrs))
	last := make(map[storeKey]int)
	forgetBase := func(base ir.VarKey) {
		for k := range last {
			if k.base == base {
				delete(last, k)
			}
		}
	}
	for i := range instrs {
		in := &instrs[i]
		switch in.Kind {
		case ir.InstrStore:
			if !in.Store.Ptr.IsVar() {
				clear(last)
				continue
			}
			k := storeKey{base: in.Store.Ptr.Var.Key(), off: in.Store.Offset, size: in.Store.Value.Size()}
			if prev, ok := last[k]; ok {
				dead[prev] = true
			}
			last[k] = i
		case ir.InstrLoad:
			p := in.Load.Ptr
			if p.IsVar() && !p.Var.Temp {
				forgetBase(p.Var.Key())
				continue
			}
			clear(last)
		case ir.InstrLea:
			forgetBase(in.Lea.Src.Key())
		case ir.InstrBr, ir.InstrJmp, ir.InstrLabel, ir.InstrCall, ir.InstrAsm, ir.InstrRet:
			clear(last)
		}
	}
	out := make([]ir.Instr, 0, len(instrs))
	for i, in := range instrs {
		if !dead[i] {
			out = append(out, in)
		}
	}
	return out
}
