package iropt

import (
	"fmt"

	"cc16/internal/diag"
	"cc16/internal/ir"
)

// concatConstants merges chained math with constant right operands
// ((x op a) op b becomes x op (a chain b)), merges adjacent byte stores of
// constants into one word store and warns about math whose operands are
// both constants.
func concatConstants(pc *passContext, instrs []ir.Instr) []ir.Instr {
	uses := ir.UseCounts(instrs)
	defs := make(map[ir.VarKey]int, len(instrs))
	out := make([]ir.Instr, 0, len(instrs))
	for _, in := range instrs {
		if in.Kind == ir.InstrMath {
			m := &in.Math
			if m.Left.IsConst() && m.Right.IsConst() {
				pc.warn(diag.OptConstantOperands, m.Out.String(),
					fmt.Sprintf("%s %s, %s has only constant operands", m.Op, m.Left.Const.ValueString(), m.Right.Const.ValueString()))
			}
			if idx, ok := chainSource(m, defs, uses, out); ok {
				prev := &out[idx].Math
				if k, ok := chainConst(prev, m); ok {
					m.Left = prev.Left
					m.Right = ir.ConstOp(k)
				}
			}
			defs[m.Out.Key()] = len(out)
		}
		if pc.opts.MergeByteStores && pc.opts.Types != nil && len(out) > 0 {
			if merged, ok := mergeByteStores(pc, &out[len(out)-1], &in); ok {
				out[len(out)-1] = merged
				continue
			}
		}
		out = append(out, in)
	}
	return out
}

// chainSource finds the math instruction that defines m's left operand when
// it has the same operator and no other reader.
func chainSource(m *ir.MathInstr, defs map[ir.VarKey]int, uses map[ir.VarKey]int, out []ir.Instr) (int, bool) {
	if !m.Left.IsVar() || !m.Right.IsConst() || m.Right.Const.IsFloat {
		return 0, false
	}
	idx, ok := defs[m.Left.Var.Key()]
	if !ok || uses[m.Left.Var.Key()] != 1 {
		return 0, false
	}
	prev := &out[idx].Math
	if prev.Op != m.Op || !prev.Right.IsConst() || prev.Right.Const.IsFloat || !prev.Left.IsVar() {
		return 0, false
	}
	return idx, true
}

func chainConst(prev, m *ir.MathInstr) (ir.Const, bool) {
	op, ok := m.Op.Chain()
	if !ok {
		return ir.Const{}, false
	}
	a, b := prev.Right.Const, m.Right.Const
	v, ok := ir.EvalMath(op, a.Int, b.Int, 8)
	if !ok {
		return ir.Const{}, false
	}
	switch m.Op {
	case ir.MathShl, ir.MathShr, ir.MathSar:
		if v >= int64(m.Out.Size*8) {
			return ir.Const{}, false
		}
	}
	return ir.Const{Type: b.Type, Size: b.Size, Int: ir.Truncate(v, b.Size, true)}, true
}

// mergeByteStores combines two one-byte constant stores to adjacent offsets
// of the same base into one little-endian word store.
func mergeByteStores(pc *passContext, a, b *ir.Instr) (ir.Instr, bool) {
	if a.Kind != ir.InstrStore || b.Kind != ir.InstrStore {
		return ir.Instr{}, false
	}
	sa, sb := a.Store, b.Store
	if !sa.Ptr.IsVar() || !sb.Ptr.IsVar() || sa.Ptr.Var.Key() != sb.Ptr.Var.Key() {
		return ir.Instr{}, false
	}
	if !isByteConst(sa.Value) || !isByteConst(sb.Value) {
		return ir.Instr{}, false
	}
	lo, hi := sa, sb
	switch {
	case sb.Offset == sa.Offset+1:
	case sa.Offset == sb.Offset+1:
		lo, hi = sb, sa
	default:
		return ir.Instr{}, false
	}
	word := (lo.Value.Const.Int & 0xFF) | (hi.Value.Const.Int&0xFF)<<8
	intT := pc.opts.Types.Builtins().Int
	k := ir.Const{Type: intT, Size: 2, Int: ir.Truncate(word, 2, true)}
	return ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Ptr: lo.Ptr, Offset: lo.Offset, Value: ir.ConstOp(k)}}, true
}

func isByteConst(op ir.Operand) bool {
	return op.IsConst() && !op.Const.IsFloat && op.Const.Size == 1
}
