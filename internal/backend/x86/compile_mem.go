package x86

import (
	"fmt"

	"cc16/internal/diag"
	"cc16/internal/ir"
)

// address is a resolved memory reference.
type address struct {
	text string
	// slot is set when the reference names a declared variable's storage,
	// which lets loads reuse registers mirroring it.
	slot    ir.VarKey
	hasSlot bool
	off     int
}

func (a address) ref(size int) slotRef {
	return slotRef{slot: a.slot, off: a.off, size: size}
}

// addrOf resolves *(ptr + off). Declared variables are addressed through bp;
// pointer values must sit in bx, si or di.
func (fc *funcCompiler) addrOf(ptr ir.Operand, off int) (address, error) {
	switch ptr.Kind {
	case ir.OperandConst:
		return address{text: absAddr(ptr.Const.Int + int64(off))}, nil
	case ir.OperandVar:
	default:
		return address{}, &Error{Code: diag.BackBadOperand, Msg: "missing pointer operand"}
	}
	v := ptr.Var
	if !v.Temp {
		base, ok := fc.frame.slot(v)
		if !ok {
			return address{}, &Error{Code: diag.BackUnboundVariable, Name: v.String(), Msg: "variable has no storage"}
		}
		return address{text: bpAddr(base + off), slot: v.Key(), hasSlot: true, off: off}, nil
	}
	r, err := fc.regs.resolveVar(v, baseRegs)
	if err != nil {
		return address{}, err
	}
	return address{text: baseAddr(r.String(), off)}, nil
}

func lowerAlloc(fc *funcCompiler, in *ir.Instr) error {
	return fc.frame.allocSlot(in.Alloc.Out, in.Alloc.Size)
}

func lowerLoad(fc *funcCompiler, in *ir.Instr) error {
	ld := &in.Load
	out := ld.Out
	a, err := fc.addrOf(ld.Ptr, ld.Offset)
	if err != nil {
		return err
	}
	if isFloatType(fc.b.types, out.Type) {
		return fc.fpu.loadMem(out.Size, a.text, out)
	}
	if out.Size != 1 && out.Size != 2 {
		return &Error{Code: diag.BackUnsupportedType, Name: out.String(),
			Msg: fmt.Sprintf("%d-byte integer load", out.Size)}
	}
	if a.hasSlot {
		if r, ok := fc.regs.cached(a.ref(out.Size)); ok {
			fc.regs.SetOwnership(out, r)
			fc.regs.setCache(r, a.ref(out.Size))
			return nil
		}
	}
	r, err := fc.regs.RequestReg(out.Size, 0)
	if err != nil {
		return err
	}
	fc.emit("mov %s, %s", r, mem(out.Size, a.text))
	fc.regs.SetOwnership(out, r)
	if a.hasSlot {
		fc.regs.setCache(r, a.ref(out.Size))
	}
	return nil
}

func lowerStore(fc *funcCompiler, in *ir.Instr) error {
	st := &in.Store
	a, err := fc.addrOf(st.Ptr, st.Offset)
	if err != nil {
		return err
	}
	size := st.Value.Size()
	if fc.isFloat(st.Value) {
		if err := fc.storeFloat(st.Value, size, a.text); err != nil {
			return err
		}
		fc.forgetStored(a, size)
		return nil
	}
	switch st.Value.Kind {
	case ir.OperandConst:
		if size != 1 && size != 2 {
			return fc.storeWide(st.Value.Const, a)
		}
		fc.emit("mov %s, %s", mem(size, a.text), imm(st.Value.Const.Int, size))
		fc.forgetStored(a, size)
		return nil
	case ir.OperandVar:
	default:
		return &Error{Code: diag.BackBadOperand, Msg: "store without a value"}
	}
	if size != 1 && size != 2 {
		return &Error{Code: diag.BackUnsupportedType, Name: st.Value.Var.String(),
			Msg: fmt.Sprintf("%d-byte integer store", size)}
	}
	src, err := fc.regs.TryResolveIRArg(st.Value, 0)
	if err != nil {
		return err
	}
	fc.emit("mov %s, %s", mem(size, a.text), src.sized(size))
	fc.forgetStored(a, size)
	if a.hasSlot {
		// a dying temporary leaves its register mirroring the slot
		fc.regs.setCache(src.reg.Sized(size), a.ref(size))
	}
	return nil
}

// storeWide writes a 4-byte integer constant as two words.
func (fc *funcCompiler) storeWide(c ir.Const, a address) error {
	if c.Size != 4 {
		return &Error{Code: diag.BackUnsupportedType, Msg: fmt.Sprintf("%d-byte integer store", c.Size)}
	}
	lo, hi := c.Int&0xFFFF, (c.Int>>16)&0xFFFF
	fc.emit("mov %s, %s", mem(2, a.text), imm(lo, 2))
	hiAddr := a
	if err := fc.shiftAddr(&hiAddr, 2); err != nil {
		return err
	}
	fc.emit("mov %s, %s", mem(2, hiAddr.text), imm(hi, 2))
	fc.forgetStored(a, 4)
	return nil
}

// shiftAddr moves a rendered address by delta bytes.
func (fc *funcCompiler) shiftAddr(a *address, delta int) error {
	text := a.text
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return &Error{Code: diag.BackBadOperand, Msg: "unexpected address " + text}
	}
	a.text = "[" + text[1:len(text)-1] + fmt.Sprintf("+%d", delta) + "]"
	a.off += delta
	return nil
}

// forgetStored invalidates registers mirroring memory just written. A write
// through a pointer may alias any declared variable.
func (fc *funcCompiler) forgetStored(a address, size int) {
	if a.hasSlot {
		fc.regs.forgetSlot(a.ref(size))
		return
	}
	fc.regs.forgetCaches()
}

func lowerLea(fc *funcCompiler, in *ir.Instr) error {
	src := in.Lea.Src
	if src.Temp {
		return &Error{Code: diag.BackBadOperand, Name: src.String(), Msg: "lea of a temporary"}
	}
	off, ok := fc.frame.slot(src)
	if !ok {
		return &Error{Code: diag.BackUnboundVariable, Name: src.String(), Msg: "variable has no storage"}
	}
	r, err := fc.regs.RequestReg(2, 0)
	if err != nil {
		return err
	}
	fc.emit("lea %s, %s", r, bpAddr(off))
	fc.regs.SetOwnership(in.Lea.Out, r)
	return nil
}

func lowerLabelOffset(fc *funcCompiler, in *ir.Instr) error {
	r, err := fc.regs.RequestReg(2, 0)
	if err != nil {
		return err
	}
	fc.emit("mov %s, %s", r, in.LabelOffset.Label)
	fc.regs.SetOwnership(in.LabelOffset.Out, r)
	return nil
}
