package x86

import (
	"strings"

	"cc16/internal/diag"
	"cc16/internal/ir"
)

func lowerBr(fc *funcCompiler, in *ir.Instr) error {
	b := &in.Br
	switch {
	case fc.fused:
		fc.fused = false
		if err := fc.flush(); err != nil {
			return err
		}
		fc.emit("%s %s", fc.fusedCC, localLabel(b.True))
	case b.Cond.IsConst():
		if err := fc.flush(); err != nil {
			return err
		}
		if !b.Cond.Const.IsZero() {
			fc.emit("jmp %s", localLabel(b.True))
			return nil
		}
	case b.Cond.IsVar():
		if fc.isFloat(b.Cond) {
			return &Error{Code: diag.BackBadOperand, Name: b.Cond.Var.String(), Msg: "branch on a float value"}
		}
		cond, err := fc.regs.TryResolveIRArg(b.Cond, 0)
		if err != nil {
			return err
		}
		if err := fc.flush(); err != nil {
			return err
		}
		fc.emit("test %s, %s", cond.reg, cond.reg)
		fc.emit("jnz %s", localLabel(b.True))
	default:
		return &Error{Code: diag.BackBadOperand, Msg: "branch without a condition"}
	}
	if b.False != "" {
		fc.emit("jmp %s", localLabel(b.False))
	}
	return nil
}

func lowerJmp(fc *funcCompiler, in *ir.Instr) error {
	if err := fc.flush(); err != nil {
		return err
	}
	fc.emit("jmp %s", localLabel(in.Jmp.Target))
	return nil
}

func lowerLabel(fc *funcCompiler, in *ir.Instr) error {
	if err := fc.flush(); err != nil {
		return err
	}
	fc.emitLabel(localLabel(in.Label.Name))
	return nil
}

// lowerPhi emits nothing: every input was written to the shared home slot
// when control left its predecessor.
func lowerPhi(fc *funcCompiler, in *ir.Instr) error {
	fc.regs.spilled[in.Phi.Out.Key()] = true
	return nil
}

func lowerAsm(fc *funcCompiler, in *ir.Instr) error {
	if err := fc.flush(); err != nil {
		return err
	}
	for _, line := range strings.Split(in.Asm.Text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fc.emit("%s", line)
		}
	}
	return nil
}

func lowerRet(fc *funcCompiler, in *ir.Instr) error {
	r := &in.Ret
	switch {
	case !r.HasValue:
		if err := fc.flush(); err != nil {
			return err
		}
	case fc.isFloat(r.Value):
		if err := fc.regs.flush(); err != nil {
			return err
		}
		if _, err := fc.fpu.PushIRArgOnStack(r.Value, true); err != nil {
			return err
		}
		fc.fpu.keepOnly(scratchVar(r.Value.Size()))
		// the value now belongs to the caller
		fc.fpu.slots = nil
	default:
		size := r.Value.Size()
		if size != 1 && size != 2 {
			return &Error{Code: diag.BackUnsupportedType, Msg: "wide integer return value"}
		}
		if err := fc.fpu.flush(); err != nil {
			return err
		}
		dst := AX.Sized(size)
		if cur, ok := fc.regs.regOf(r.Value.Var); !r.Value.IsVar() || !ok || cur != dst {
			if err := fc.regs.claim(AX, r.Value); err != nil {
				return err
			}
			if err := fc.regs.moveInto(dst, r.Value); err != nil {
				return err
			}
		}
		if err := fc.regs.flush(); err != nil {
			return err
		}
	}
	if fc.idx != len(fc.fn.Instrs)-1 {
		fc.emit("jmp %s", exitLabel)
	}
	return nil
}

func lowerCall(fc *funcCompiler, in *ir.Instr) error {
	c := &in.Call
	if c.IsBuiltin() {
		return fc.lowerIntrinsic(in)
	}
	pushed := 0
	for i := len(c.Args) - 1; i >= 0; i-- {
		n, err := fc.pushArg(c.Args[i], c.Args)
		if err != nil {
			return err
		}
		pushed += n
	}
	target := ir.Symbol(c.Callee)
	if c.Callee == "" {
		t, err := fc.regs.TryResolveIRArg(c.Target, 0)
		if err != nil {
			return err
		}
		if t.kind != opReg || t.reg.Size() != 2 {
			return &Error{Code: diag.BackBadOperand, Msg: "call through a non-pointer value"}
		}
		target = t.reg.String()
	}
	if err := fc.flush(); err != nil {
		return err
	}
	fc.emit("call %s", target)
	if c.Conv == ir.ConvCdecl && pushed > 0 {
		fc.emit("add sp, %d", pushed)
	}
	if !c.HasOut {
		return nil
	}
	return fc.takeResult(c.Out)
}

// takeResult binds a call result: ax or al for integers, st0 for floats.
func (fc *funcCompiler) takeResult(out ir.Var) error {
	if isFloatType(fc.b.types, out.Type) {
		return fc.fpu.push(out)
	}
	switch out.Size {
	case 1:
		fc.regs.SetOwnership(out, AL)
	case 2:
		fc.regs.SetOwnership(out, AX)
	default:
		return &Error{Code: diag.BackUnsupportedType, Name: out.String(), Msg: "wide integer call result"}
	}
	return nil
}

// pushArg pushes one argument and returns the bytes it occupies.
func (fc *funcCompiler) pushArg(op ir.Operand, all []ir.Operand) (int, error) {
	size := op.Size()
	if fc.isFloat(op) {
		if err := fc.regs.claim(BX, all...); err != nil {
			return 0, err
		}
		if _, err := fc.fpu.PushIRArgOnStack(op, true); err != nil {
			return 0, err
		}
		width := 8
		if size == 4 {
			width = 4
		}
		fc.emit("sub sp, %d", width)
		fc.emit("mov bx, sp")
		fc.fpu.storeTop(width, "[bx]", true)
		return width, nil
	}
	switch op.Kind {
	case ir.OperandConst:
		switch size {
		case 1, 2:
			fc.emit("push %s", imm(op.Const.Int, 2))
			return 2, nil
		case 4:
			fc.emit("push %s", imm((op.Const.Int>>16)&0xFFFF, 2))
			fc.emit("push %s", imm(op.Const.Int&0xFFFF, 2))
			return 4, nil
		}
		return 0, &Error{Code: diag.BackUnsupportedType, Msg: "argument width"}
	case ir.OperandVar:
	default:
		return 0, &Error{Code: diag.BackBadOperand, Msg: "missing argument"}
	}
	v := op.Var
	if v.Temp && size != 1 && size != 2 {
		return 0, &Error{Code: diag.BackUnsupportedType, Name: v.String(), Msg: "wide integer argument"}
	}
	if v.Temp {
		if _, inReg := fc.regs.regOf(v); !inReg && fc.regs.spilled[v.Key()] {
			off, err := fc.frame.home(v)
			if err != nil {
				return 0, err
			}
			fc.emit("push %s", mem(2, bpAddr(off)))
			return 2, nil
		}
	}
	r, err := fc.regs.resolveVar(v, 0)
	if err != nil {
		return 0, err
	}
	if r == AH || r == BH || r == CH || r == DH {
		w, err := fc.regs.RequestReg(2, splitRegs)
		if err != nil {
			return 0, err
		}
		fc.emit("mov %s, %s", w.Low(), r)
		r = w
	}
	fc.emit("push %s", r.Full())
	return 2, nil
}
