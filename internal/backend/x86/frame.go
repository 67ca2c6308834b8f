package x86

import (
	"fmt"

	"cc16/internal/diag"
	"cc16/internal/ir"
	"cc16/internal/layout"
)

// paramBase is the bp offset of the first argument: saved bp and the
// return address sit below it.
const paramBase = 4

// frame hands out bp-relative offsets. Offsets below bp are assigned
// monotonically and never reused within a function.
type frame struct {
	target layout.Target
	// size is the number of bytes in use below bp.
	size int
	// slots holds declared variables: locals (negative offsets) and
	// parameters (positive).
	slots map[ir.VarKey]int
	// homes holds spill slots of temporaries.
	homes map[ir.VarKey]int
	// group maps phi inputs to the phi output so they share one home.
	group map[ir.VarKey]ir.VarKey
	// paramBytes is the size of the fixed argument area.
	paramBytes int
}

func newFrame(target layout.Target) *frame {
	return &frame{
		target: target,
		slots:  make(map[ir.VarKey]int),
		homes:  make(map[ir.VarKey]int),
		group:  make(map[ir.VarKey]ir.VarKey),
	}
}

// reserve carves size bytes below everything handed out so far.
func (f *frame) reserve(size int) (int, error) {
	size = layout.AlignUp(max(size, 1), f.target.StackSlot)
	if f.size+size > f.target.MaxFrame {
		return 0, &Error{Code: diag.BackFrameExhausted,
			Msg: fmt.Sprintf("frame needs %d bytes, limit is %d", f.size+size, f.target.MaxFrame)}
	}
	f.size += size
	return -f.size, nil
}

// bindParams places parameters above the return address, left to right.
func (f *frame) bindParams(params []ir.Var, sizes []int) {
	off := paramBase
	for i, p := range params {
		f.slots[p.Key()] = off
		off += layout.AlignUp(max(sizes[i], 1), f.target.StackSlot)
	}
	f.paramBytes = off - paramBase
}

// allocSlot gives a declared variable its storage.
func (f *frame) allocSlot(v ir.Var, size int) error {
	off, err := f.reserve(size)
	if err != nil {
		return err
	}
	f.slots[v.Key()] = off
	return nil
}

func (f *frame) slot(v ir.Var) (int, bool) {
	off, ok := f.slots[v.Key()]
	return off, ok
}

// joinPhi makes every input of a phi share the output's home slot.
func (f *frame) joinPhi(phi *ir.PhiInstr) {
	root := f.root(phi.Out.Key())
	for _, in := range phi.Vars {
		f.group[f.root(in.Key())] = root
	}
}

func (f *frame) root(k ir.VarKey) ir.VarKey {
	for range len(f.group) + 1 {
		next, ok := f.group[k]
		if !ok || next == k {
			break
		}
		k = next
	}
	return k
}

// home returns the spill slot of a temporary, assigning it on first use.
func (f *frame) home(v ir.Var) (int, error) {
	k := f.root(v.Key())
	if off, ok := f.homes[k]; ok {
		return off, nil
	}
	off, err := f.reserve(v.Size)
	if err != nil {
		return 0, err
	}
	f.homes[k] = off
	return off, nil
}
