package x86

import (
	"cc16/internal/diag"
	"cc16/internal/ir"
)

// floatOp holds the plain form (st0 = st0 op src) and the popping form
// (st(i) = st0 op st(i), then pop) of an x87 operator.
type floatOp struct {
	plain, popping string
}

var floatOps = map[ir.MathOp]floatOp{
	ir.MathAdd: {"fadd", "faddp"},
	ir.MathSub: {"fsub", "fsubrp"},
	ir.MathMul: {"fmul", "fmulp"},
	ir.MathDiv: {"fdiv", "fdivrp"},
}

// floatMath computes Left op Right and names the result Out. A resident
// Right that dies here is consumed by the popping form.
func (fc *funcCompiler) floatMath(m *ir.MathInstr) error {
	op, ok := floatOps[m.Op]
	if !ok {
		return &Error{Code: diag.BackUnsupportedType, Name: m.Op.String(), Msg: "operator has no float form"}
	}
	if _, err := fc.fpu.PushIRArgOnStack(m.Left, true); err != nil {
		return err
	}
	if i, ok := fc.fpu.popDead(op.popping, m.Right); ok {
		fc.fpu.rename(i, m.Out)
		return nil
	}
	src, err := fc.fpu.memOrStack(m.Right)
	if err != nil {
		return err
	}
	fc.emit("%s %s", op.plain, src)
	fc.fpu.rename(0, m.Out)
	return nil
}

// floatCompare compares Left with Right and moves the condition codes to
// the CPU flags.
func (fc *funcCompiler) floatCompare(c *ir.CmpInstr) error {
	if err := fc.regs.claim(AX, c.Left, c.Right); err != nil {
		return err
	}
	if _, err := fc.fpu.PushIRArgOnStack(c.Left, true); err != nil {
		return err
	}
	src, err := fc.fpu.memOrStack(c.Right)
	if err != nil {
		return err
	}
	fc.emit("fcom %s", fcomOperand(src))
	fc.emit("fstsw ax")
	fc.emit("sahf")
	return nil
}

// fcomOperand drops the implicit st0 of a register operand.
func fcomOperand(src string) string {
	if len(src) > 5 && src[:5] == "st0, " {
		return src[5:]
	}
	return src
}

// floatCopy defines out as the value of op on the stack.
func (fc *funcCompiler) floatCopy(op ir.Operand, out ir.Var) error {
	if op.IsVar() {
		if i, ok := fc.fpu.find(op.Var); ok {
			if !fc.liveAfter(op.Var) {
				fc.fpu.rename(i, out)
				return nil
			}
			if err := fc.fpu.checkRoom(out); err != nil {
				return err
			}
			fc.emit("fld st%d", i)
			return fc.fpu.push(out)
		}
	}
	if _, err := fc.fpu.PushIRArgOnStack(op, true); err != nil {
		return err
	}
	fc.fpu.rename(0, out)
	return nil
}

// storeFloat writes a float operand to memory. A resident value that is
// still needed stays on the stack.
func (fc *funcCompiler) storeFloat(v ir.Operand, size int, addr string) error {
	if v.IsVar() {
		if i, ok := fc.fpu.find(v.Var); ok {
			fc.fpu.fxch(i)
			fc.fpu.storeTop(size, addr, !fc.liveAfter(v.Var))
			return nil
		}
	}
	if _, err := fc.fpu.PushIRArgOnStack(v, true); err != nil {
		return err
	}
	fc.fpu.storeTop(size, addr, true)
	return nil
}

// intToFloat converts an integer operand through the scratch slot.
func (fc *funcCompiler) intToFloat(op ir.Operand, unsigned bool, out ir.Var) error {
	if op.IsConst() {
		c := op.Const
		if unsigned {
			c.Int = ir.Truncate(c.Int, c.Size, false)
		}
		return fc.fpu.loadConst(ir.Const{Type: out.Type, Size: out.Size, Float: float64(c.Int), IsFloat: true}, out)
	}
	size := op.Size()
	if size != 1 && size != 2 {
		return &Error{Code: diag.BackUnsupportedType, Name: out.String(), Msg: "conversion from a wide integer"}
	}
	scr, err := fc.scratchSlot()
	if err != nil {
		return err
	}
	if err := fc.fpu.checkRoom(out); err != nil {
		return err
	}
	word := NoReg
	if size == 1 {
		word, err = fc.widen(op, unsigned)
	} else {
		var src operand
		src, err = fc.regs.TryResolveIRArg(op, 0)
		word = src.reg
	}
	if err != nil {
		return err
	}
	fc.emit("mov %s, %s", mem(2, bpAddr(scr)), word)
	if unsigned && size == 2 {
		fc.emit("mov %s, 0", mem(2, bpAddr(scr+2)))
		fc.emit("fild %s", mem(4, bpAddr(scr)))
	} else {
		fc.emit("fild %s", mem(2, bpAddr(scr)))
	}
	return fc.fpu.push(out)
}

// floatToInt truncates toward zero: the control word is switched to
// chop mode around fistp.
func (fc *funcCompiler) floatToInt(op ir.Operand, out ir.Var, unsigned bool) error {
	size := out.Size
	if size != 1 && size != 2 {
		return &Error{Code: diag.BackUnsupportedType, Name: out.String(), Msg: "conversion to a wide integer"}
	}
	scr, err := fc.scratchSlot()
	if err != nil {
		return err
	}
	if _, err := fc.fpu.PushIRArgOnStack(op, true); err != nil {
		return err
	}
	r, err := fc.regs.RequestReg(2, SetOf(AX, CX, DX, BX))
	if err != nil {
		return err
	}
	fc.emit("fnstcw %s", mem(2, bpAddr(scr)))
	fc.emit("mov %s, %s", r, mem(2, bpAddr(scr)))
	fc.emit("or %s, 0x0c00", r)
	fc.emit("mov %s, %s", mem(2, bpAddr(scr+2)), r)
	fc.emit("fldcw %s", mem(2, bpAddr(scr+2)))
	width := 2
	if unsigned && size == 2 {
		width = 4
	}
	fc.emit("fistp %s", mem(width, bpAddr(scr+4)))
	fc.fpu.pop()
	fc.emit("fldcw %s", mem(2, bpAddr(scr)))
	fc.emit("mov %s, %s", r, mem(2, bpAddr(scr+4)))
	fc.regs.SetOwnership(out, r.Sized(size))
	return nil
}
