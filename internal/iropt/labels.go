package iropt

import "cc16/internal/ir"

// dropRedundantLabels merges runs of labels, drops jumps to the very next
// label and removes labels nothing jumps to.
func dropRedundantLabels(_ *passContext, instrs []ir.Instr) []ir.Instr {
	alias := make(map[string]string)
	canon := ""
	for i := range instrs {
		if instrs[i].Kind != ir.InstrLabel {
			canon = ""
			continue
		}
		name := instrs[i].Label.Name
		if canon == "" {
			canon = name
			continue
		}
		alias[name] = canon
	}
	rename := func(l string) string {
		if c, ok := alias[l]; ok {
			return c
		}
		return l
	}

	merged := make([]ir.Instr, 0, len(instrs))
	for _, in := range instrs {
		if in.Kind == ir.InstrLabel {
			if _, dup := alias[in.Label.Name]; dup {
				continue
			}
		}
		in.MapTargets(rename)
		merged = append(merged, in)
	}

	// A jump to the label that follows it only falls through; so does the
	// false edge of a branch.
	out := make([]ir.Instr, 0, len(merged))
	for i, in := range merged {
		next := ""
		if i+1 < len(merged) && merged[i+1].Kind == ir.InstrLabel {
			next = merged[i+1].Label.Name
		}
		switch {
		case in.Kind == ir.InstrJmp && in.Jmp.Target == next:
			continue
		case in.Kind == ir.InstrBr && in.Br.False != "" && in.Br.False == next:
			in.Br.False = ""
		}
		out = append(out, in)
	}

	used := make(map[string]struct{})
	for i := range out {
		for _, t := range out[i].Targets() {
			used[t] = struct{}{}
		}
	}
	final := out[:0]
	for _, in := range out {
		if in.Kind == ir.InstrLabel {
			if _, ok := used[in.Label.Name]; !ok {
				continue
			}
		}
		final = append(final, in)
	}
	return final
}
