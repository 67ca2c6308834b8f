package x86

import (
	"cc16/internal/diag"
	"cc16/internal/ir"
)

func lowerCast(fc *funcCompiler, in *ir.Instr) error {
	c := &in.Cast
	from, to := c.Value, c.Out
	fromFloat := fc.isFloat(from)
	toFloat := isFloatType(fc.b.types, to.Type)
	unsignedFrom := isUnsignedType(fc.b.types, from.Type())
	switch {
	case fromFloat && toFloat:
		// the stack holds extended precision; only stores narrow
		return fc.floatCopy(from, to)
	case toFloat:
		return fc.intToFloat(from, unsignedFrom, to)
	case fromFloat:
		return fc.floatToInt(from, to, isUnsignedType(fc.b.types, to.Type))
	}

	fs, ts := from.Size(), to.Size
	if ts != 1 && ts != 2 {
		return &Error{Code: diag.BackUnsupportedType, Name: to.String(), Msg: "conversion to a wide integer"}
	}
	if from.IsConst() {
		v := from.Const.Int
		if unsignedFrom {
			v = ir.Truncate(v, fs, false)
		}
		r, err := fc.regs.RequestReg(ts, 0)
		if err != nil {
			return err
		}
		fc.emit("mov %s, %s", r, imm(v, ts))
		fc.regs.SetOwnership(to, r)
		return nil
	}
	switch {
	case fs == ts:
		return fc.intCopy(from, to)
	case fs == 2 && ts == 1:
		return fc.narrow(from, to)
	case fs == 1 && ts == 2:
		r, err := fc.widen(from, unsignedFrom)
		if err != nil {
			return err
		}
		fc.regs.SetOwnership(to, r)
		return nil
	}
	return &Error{Code: diag.BackUnsupportedType, Name: to.String(), Msg: "conversion from a wide integer"}
}

// narrow keeps the low byte of a word value.
func (fc *funcCompiler) narrow(from ir.Operand, to ir.Var) error {
	r, err := fc.regs.resolveVar(from.Var, splitRegs)
	if err != nil {
		return err
	}
	if from.Var.Temp && !fc.liveAfter(from.Var) {
		fc.regs.DropOwnership(from.Var)
		fc.regs.SetOwnership(to, r.Low())
		return nil
	}
	b, err := fc.regs.RequestReg(1, 0)
	if err != nil {
		return err
	}
	fc.emit("mov %s, %s", b, r.Low())
	fc.regs.SetOwnership(to, b)
	return nil
}

// widen extends a byte operand to a word register: cbw for signed values,
// a cleared high half for unsigned ones.
func (fc *funcCompiler) widen(op ir.Operand, unsigned bool) (Reg, error) {
	if !unsigned {
		if err := fc.regs.claim(AX, op); err != nil {
			return NoReg, err
		}
		if err := fc.regs.moveInto(AL, op); err != nil {
			return NoReg, err
		}
		fc.emit("cbw")
		return AX, nil
	}
	r, err := fc.regs.RequestReg(2, splitRegs)
	if err != nil {
		return NoReg, err
	}
	if err := fc.regs.moveInto(r.Low(), op); err != nil {
		return NoReg, err
	}
	fc.emit("xor %s, %s", r.High(), r.High())
	return r, nil
}
