package iropt

import "cc16/internal/ir"

// dropOrphanOutputs removes pure instructions whose output is never read.
// Walking backwards lets a removal free the inputs of earlier instructions
// in the same sweep.
func dropOrphanOutputs(_ *passContext, instrs []ir.Instr) []ir.Instr {
	uses := ir.UseCounts(instrs)
	keep := make([]bool, len(instrs))
	for i := len(instrs) - 1; i >= 0; i-- {
		in := &instrs[i]
		out, ok := in.Output()
		if ok && in.IsPure() && uses[out.Key()] == 0 {
			for _, op := range in.Inputs() {
				if op.IsVar() {
					uses[op.Var.Key()]--
				}
			}
			continue
		}
		keep[i] = true
	}
	res := make([]ir.Instr, 0, len(instrs))
	for i, in := range instrs {
		if keep[i] {
			res = append(res, in)
		}
	}
	return res
}
