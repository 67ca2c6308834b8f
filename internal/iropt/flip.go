package iropt

import "cc16/internal/ir"

// flipOperands moves constants to the right of commutative math and of
// comparisons, so that only the variable needs a register.
func flipOperands(_ *passContext, instrs []ir.Instr) []ir.Instr {
	for i := range instrs {
		in := &instrs[i]
		switch in.Kind {
		case ir.InstrMath:
			m := &in.Math
			if m.Op.Commutative() && m.Left.IsConst() && m.Right.IsVar() {
				m.Left, m.Right = m.Right, m.Left
			}
		case ir.InstrCmp:
			c := &in.Cmp
			if c.Left.IsConst() && c.Right.IsVar() {
				c.Left, c.Right = c.Right, c.Left
				c.Op = c.Op.Mirror()
			}
		}
	}
	return instrs
}
