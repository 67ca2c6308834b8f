package x86

import (
	"fmt"

	"cc16/internal/diag"
	"cc16/internal/ir"
)

// slotRef names bytes of a declared variable's storage.
type slotRef struct {
	slot ir.VarKey
	off  int
	size int
}

func (r slotRef) overlaps(o slotRef) bool {
	return r.slot == o.slot && r.off < o.off+o.size && o.off < r.off+r.size
}

type regState struct {
	owner ir.Var
	owned bool
	// cache, when set, says the register mirrors memory of a declared
	// variable. A register may hold a cache without an owner.
	cache  slotRef
	cached bool
	// kept is the value an evicted owner left behind. It is valid until the
	// register is written and never survives the current instruction.
	kept    ir.Var
	hasKept bool
}

// regAllocator tracks which temporary lives in which register. Temporaries
// that leave a register are written to their home slot once; the home slot
// stays valid because temporaries are defined only once.
type regAllocator struct {
	fc      *funcCompiler
	usage   RegUsage
	regs    [BH + 1]regState
	where   map[ir.VarKey]Reg
	spilled map[ir.VarKey]bool
	// pinned registers hold operands of the instruction being lowered.
	pinned  RegSet
	touched RegSet
}

func newRegAllocator(fc *funcCompiler) *regAllocator {
	return &regAllocator{
		fc:      fc,
		where:   make(map[ir.VarKey]Reg),
		spilled: make(map[ir.VarKey]bool),
	}
}

// overlapping lists r and every register sharing bits with it.
func overlapping(r Reg) []Reg {
	if r.Size() == 2 {
		if lo := r.Low(); lo != NoReg {
			return []Reg{r, lo, r.High()}
		}
		return []Reg{r}
	}
	return []Reg{r, r.Full()}
}

// RequestReg picks a free register of the given width from allowed (all
// registers of that width when allowed is empty). Free registers without a
// cached value are preferred; when none is free an unpinned owner is spilled.
func (a *regAllocator) RequestReg(size int, allowed RegSet) (Reg, error) {
	order := wordOrder
	if size == 1 {
		order = byteOrder
	}
	if size != 1 && size != 2 {
		return NoReg, &Error{Code: diag.BackUnsupportedType, Msg: fmt.Sprintf("no %d-byte register", size)}
	}
	candidates := make([]Reg, 0, len(order))
	for _, r := range order {
		if allowed == 0 || allowed.Has(r) {
			candidates = append(candidates, r)
		}
	}
	pick := NoReg
	for _, r := range candidates {
		if !a.usage.Busy(r) && !a.anyPinned(r) && !a.anyCached(r) {
			pick = r
			break
		}
	}
	if pick == NoReg {
		for _, r := range candidates {
			if !a.usage.Busy(r) && !a.anyPinned(r) {
				pick = r
				break
			}
		}
	}
	if pick == NoReg {
		for _, r := range candidates {
			if !a.anyPinned(r) {
				pick = r
				break
			}
		}
	}
	if pick == NoReg {
		return NoReg, &Error{Code: diag.BackRegisterExhausted,
			Msg: fmt.Sprintf("no %d-byte register left in %s", size, allowed)}
	}
	if err := a.evict(pick, nil); err != nil {
		return NoReg, err
	}
	a.hold(pick)
	a.clobber(pick)
	return pick, nil
}

func (a *regAllocator) anyPinned(r Reg) bool {
	for _, o := range overlapping(r) {
		if a.pinned.Has(o) {
			return true
		}
	}
	return false
}

func (a *regAllocator) anyCached(r Reg) bool {
	for _, o := range overlapping(r) {
		if a.regs[o].cached {
			return true
		}
	}
	return false
}

// hold marks r as in use by the current instruction.
func (a *regAllocator) hold(r Reg) {
	a.usage.Mark(r)
	a.pinned = a.pinned.With(r)
	a.touched = a.touched.With(r.Full())
	a.forgetReg(r)
}

// evict frees r and the registers overlapping it. Owners still needed after
// the current instruction, or named in keep, are written to their home.
func (a *regAllocator) evict(r Reg, keep []ir.Operand) error {
	for _, o := range overlapping(r) {
		st := &a.regs[o]
		if !st.owned {
			continue
		}
		v := st.owner
		if a.fc.liveAfter(v) || usesVar(keep, v) {
			if err := a.spill(v); err != nil {
				return err
			}
		}
		a.DropOwnership(v)
		st.kept, st.hasKept = v, true
	}
	return nil
}

// clobber records that r and its overlapping registers are about to be
// written.
func (a *regAllocator) clobber(r Reg) {
	for _, o := range overlapping(r) {
		a.regs[o].kept, a.regs[o].hasKept = ir.Var{}, false
	}
}

// stillHolds reports whether r already contains v, left there by an
// eviction in this instruction. A byte register also matches when its full
// register kept a word value.
func (a *regAllocator) stillHolds(r Reg, v ir.Var) bool {
	if st := a.regs[r]; st.hasKept && st.kept.SameAs(v) && v.Size == r.Size() {
		return true
	}
	if r.Size() == 1 && r.Full().Low() == r {
		st := a.regs[r.Full()]
		return st.hasKept && st.kept.SameAs(v)
	}
	return false
}

func usesVar(ops []ir.Operand, v ir.Var) bool {
	for _, op := range ops {
		if op.Uses(v.Key()) {
			return true
		}
	}
	return false
}

// claim reserves a fixed register for the current instruction. Operands in
// keep that lived there are moved to memory first.
func (a *regAllocator) claim(r Reg, keep ...ir.Operand) error {
	if err := a.evict(r, keep); err != nil {
		return err
	}
	a.hold(r)
	return nil
}

// SetOwnership binds v to r. r now holds a new value, so any memory it
// mirrored is forgotten.
func (a *regAllocator) SetOwnership(v ir.Var, r Reg) {
	if old, ok := a.where[v.Key()]; ok && old != r {
		a.DropOwnership(v)
	}
	for _, o := range overlapping(r) {
		if st := &a.regs[o]; st.owned && !st.owner.SameAs(v) {
			a.DropOwnership(st.owner)
		}
	}
	a.forgetReg(r)
	a.clobber(r)
	a.regs[r] = regState{owner: v, owned: true}
	a.where[v.Key()] = r
	a.usage.Mark(r)
	a.touched = a.touched.With(r.Full())
}

// DropOwnership unbinds v. The register keeps its contents.
func (a *regAllocator) DropOwnership(v ir.Var) {
	r, ok := a.where[v.Key()]
	if !ok {
		return
	}
	delete(a.where, v.Key())
	a.regs[r].owned = false
	a.regs[r].owner = ir.Var{}
	a.usage.Clear(r)
}

func (a *regAllocator) regOf(v ir.Var) (Reg, bool) {
	r, ok := a.where[v.Key()]
	return r, ok
}

// spill writes v to its home slot unless it is already there.
func (a *regAllocator) spill(v ir.Var) error {
	if a.spilled[v.Key()] {
		return nil
	}
	r, ok := a.where[v.Key()]
	if !ok {
		return &Error{Code: diag.BackUnboundVariable, Name: v.String(), Msg: "spill of a value without a register"}
	}
	off, err := a.fc.frame.home(v)
	if err != nil {
		return err
	}
	a.fc.emit("mov %s, %s", mem(v.Size, bpAddr(off)), r)
	a.spilled[v.Key()] = true
	return nil
}

// setCache records that r mirrors ref.
func (a *regAllocator) setCache(r Reg, ref slotRef) {
	a.forgetSlot(ref)
	a.regs[r].cache = ref
	a.regs[r].cached = true
}

// cached returns a register mirroring exactly ref.
func (a *regAllocator) cached(ref slotRef) (Reg, bool) {
	for r := AX; r <= BH; r++ {
		if st := &a.regs[r]; st.cached && st.cache == ref && !a.usage.Busy(r) {
			return r, true
		}
	}
	return NoReg, false
}

// forgetSlot drops caches of memory overlapping ref.
func (a *regAllocator) forgetSlot(ref slotRef) {
	for r := AX; r <= BH; r++ {
		if st := &a.regs[r]; st.cached && st.cache.overlaps(ref) {
			st.cached = false
		}
	}
}

func (a *regAllocator) forgetReg(r Reg) {
	for _, o := range overlapping(r) {
		a.regs[o].cached = false
	}
}

func (a *regAllocator) forgetCaches() {
	for r := range a.regs {
		a.regs[r].cached = false
	}
}

// TryResolveIRArg puts op where an instruction can read it: an immediate
// for constants, the owning register for resident temporaries, or a fresh
// register loaded from the home slot or holding a declared variable's
// address.
func (a *regAllocator) TryResolveIRArg(op ir.Operand, allowed RegSet) (operand, error) {
	switch op.Kind {
	case ir.OperandConst:
		if op.Const.IsFloat {
			return operand{}, &Error{Code: diag.BackBadOperand, Msg: "float constant in an integer instruction"}
		}
		return immOperand(op.Const.Int, op.Const.Size), nil
	case ir.OperandVar:
		r, err := a.resolveVar(op.Var, allowed)
		if err != nil {
			return operand{}, err
		}
		return regOperand(r), nil
	}
	return operand{}, &Error{Code: diag.BackBadOperand, Msg: "missing operand"}
}

func (a *regAllocator) resolveVar(v ir.Var, allowed RegSet) (Reg, error) {
	if !v.Temp {
		off, ok := a.fc.frame.slot(v)
		if !ok {
			return NoReg, &Error{Code: diag.BackUnboundVariable, Name: v.String(), Msg: "variable has no storage"}
		}
		r, err := a.RequestReg(2, allowed&wordRegs)
		if err != nil {
			return NoReg, err
		}
		a.fc.emit("lea %s, %s", r, bpAddr(off))
		return r, nil
	}
	if v.Size != 1 && v.Size != 2 {
		return NoReg, &Error{Code: diag.BackUnsupportedType, Name: v.String(),
			Msg: fmt.Sprintf("%d-byte value in an integer register", v.Size)}
	}
	if r, ok := a.where[v.Key()]; ok {
		if allowed == 0 || allowed.Has(r) {
			a.pinned = a.pinned.With(r)
			return r, nil
		}
		nr, err := a.RequestReg(v.Size, allowed)
		if err != nil {
			return NoReg, err
		}
		a.fc.emit("mov %s, %s", nr, r)
		a.DropOwnership(v)
		a.SetOwnership(v, nr)
		return nr, nil
	}
	if !a.spilled[v.Key()] {
		return NoReg, &Error{Code: diag.BackUnboundVariable, Name: v.String(), Msg: "value used before it is defined"}
	}
	off, err := a.fc.frame.home(v)
	if err != nil {
		return NoReg, err
	}
	r, err := a.RequestReg(v.Size, allowed)
	if err != nil {
		return NoReg, err
	}
	a.fc.emit("mov %s, %s", r, mem(v.Size, bpAddr(off)))
	a.SetOwnership(v, r)
	return r, nil
}

// moveInto copies op into the fixed register r, which must be claimed.
func (a *regAllocator) moveInto(r Reg, op ir.Operand) error {
	if op.Kind == ir.OperandConst {
		if op.Const.IsFloat {
			return &Error{Code: diag.BackBadOperand, Msg: "float constant in an integer register"}
		}
		a.clobber(r)
		a.fc.emit("mov %s, %s", r, imm(op.Const.Int, r.Size()))
		return nil
	}
	if op.Kind != ir.OperandVar {
		return &Error{Code: diag.BackBadOperand, Msg: "missing operand"}
	}
	v := op.Var
	if !v.Temp {
		off, ok := a.fc.frame.slot(v)
		if !ok {
			return &Error{Code: diag.BackUnboundVariable, Name: v.String(), Msg: "variable has no storage"}
		}
		a.clobber(r.Full())
		a.fc.emit("lea %s, %s", r.Full(), bpAddr(off))
		return nil
	}
	if cur, ok := a.where[v.Key()]; ok {
		if cur != r {
			a.clobber(r)
			a.fc.emit("mov %s, %s", r, cur.Sized(r.Size()))
		}
		return nil
	}
	if a.stillHolds(r, v) {
		return nil
	}
	a.clobber(r)
	if !a.spilled[v.Key()] {
		return &Error{Code: diag.BackUnboundVariable, Name: v.String(), Msg: "value used before it is defined"}
	}
	off, err := a.fc.frame.home(v)
	if err != nil {
		return err
	}
	a.fc.emit("mov %s, %s", r, mem(r.Size(), bpAddr(off)))
	return nil
}

// flush spills every temporary still needed and forgets all registers. It
// runs at calls, branches, jumps and labels.
func (a *regAllocator) flush() error {
	for r := AX; r <= BH; r++ {
		st := &a.regs[r]
		if st.owned && a.fc.liveAfter(st.owner) {
			if err := a.spill(st.owner); err != nil {
				return err
			}
		}
	}
	a.dropAll()
	return nil
}

func (a *regAllocator) dropAll() {
	for k := range a.where {
		delete(a.where, k)
	}
	for r := range a.regs {
		a.regs[r] = regState{}
	}
	a.usage = RegUsage{}
}

// release ends the current instruction: pins go away and owners that are no
// longer needed give up their registers.
func (a *regAllocator) release() {
	a.pinned = 0
	for r := AX; r <= BH; r++ {
		st := &a.regs[r]
		st.kept, st.hasKept = ir.Var{}, false
		if st.owned && !a.fc.liveAfter(st.owner) {
			a.DropOwnership(st.owner)
		}
	}
	a.usage = RegUsage{}
	for r := AX; r <= BH; r++ {
		if a.regs[r].owned {
			a.usage.Mark(r)
		}
	}
}
