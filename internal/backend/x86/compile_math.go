package x86

import (
	"fmt"

	"cc16/internal/diag"
	"cc16/internal/ir"
)

var simpleMath = map[ir.MathOp]string{
	ir.MathAdd: "add",
	ir.MathSub: "sub",
	ir.MathAnd: "and",
	ir.MathOr:  "or",
	ir.MathXor: "xor",
}

var shiftMath = map[ir.MathOp]string{
	ir.MathShl: "shl",
	ir.MathShr: "shr",
	ir.MathSar: "sar",
}

func lowerMath(fc *funcCompiler, in *ir.Instr) error {
	m := &in.Math
	if isFloatType(fc.b.types, m.Out.Type) {
		return fc.floatMath(m)
	}
	size := m.Out.Size
	if size != 1 && size != 2 {
		return &Error{Code: diag.BackUnsupportedType, Name: m.Out.String(),
			Msg: fmt.Sprintf("%d-byte integer arithmetic", size)}
	}
	if mn, ok := simpleMath[m.Op]; ok {
		return fc.twoOperand(mn, m)
	}
	if mn, ok := shiftMath[m.Op]; ok {
		return fc.shift(mn, m)
	}
	switch m.Op {
	case ir.MathMul:
		return fc.multiply(m)
	case ir.MathDiv, ir.MathUDiv, ir.MathMod, ir.MathUMod:
		return fc.divide(m)
	}
	return &Error{Code: diag.BackUnknownOpcode, Name: m.Op.String(), Msg: "unknown math operator"}
}

// destination returns a register holding Left that may be overwritten: the
// operand's own register when Left dies here, a copy otherwise.
func (fc *funcCompiler) destination(left ir.Operand, size int, allowed RegSet) (Reg, error) {
	if left.IsVar() && !(left.Var.Temp && fc.liveAfter(left.Var)) {
		// a dying temporary, or the address of a declared variable, which
		// lands in a fresh register anyway
		return fc.regs.resolveVar(left.Var, allowed)
	}
	src, err := fc.regs.TryResolveIRArg(left, 0)
	if err != nil {
		return NoReg, err
	}
	r, err := fc.regs.RequestReg(size, allowed)
	if err != nil {
		return NoReg, err
	}
	fc.emit("mov %s, %s", r, src.sized(size))
	return r, nil
}

func (fc *funcCompiler) twoOperand(mn string, m *ir.MathInstr) error {
	size := m.Out.Size
	dst, err := fc.destination(m.Left, size, 0)
	if err != nil {
		return err
	}
	src, err := fc.regs.TryResolveIRArg(m.Right, 0)
	if err != nil {
		return err
	}
	fc.emit("%s %s, %s", mn, dst, src.sized(size))
	fc.regs.SetOwnership(m.Out, dst)
	return nil
}

func (fc *funcCompiler) shift(mn string, m *ir.MathInstr) error {
	size := m.Out.Size
	if m.Right.IsConst() {
		dst, err := fc.destination(m.Left, size, 0)
		if err != nil {
			return err
		}
		fc.emit("%s %s, %d", mn, dst, m.Right.Const.Int&0x1F)
		fc.regs.SetOwnership(m.Out, dst)
		return nil
	}
	if err := fc.regs.claim(CX, m.Left, m.Right); err != nil {
		return err
	}
	count := CX.Sized(m.Right.Size())
	if err := fc.regs.moveInto(count, m.Right); err != nil {
		return err
	}
	allowed := wordRegs.Without(CX)
	if size == 1 {
		allowed = byteRegs.Without(CL).Without(CH)
	}
	dst, err := fc.destination(m.Left, size, allowed)
	if err != nil {
		return err
	}
	fc.emit("%s %s, cl", mn, dst)
	fc.regs.SetOwnership(m.Out, dst)
	return nil
}

func (fc *funcCompiler) multiply(m *ir.MathInstr) error {
	size := m.Out.Size
	if size == 2 && m.Right.IsConst() {
		dst, err := fc.destination(m.Left, size, 0)
		if err != nil {
			return err
		}
		fc.emit("imul %s, %s, %s", dst, dst, imm(m.Right.Const.Int, 2))
		fc.regs.SetOwnership(m.Out, dst)
		return nil
	}
	// one-operand form: ax = al * r8, or dx:ax = ax * r16
	if err := fc.regs.claim(AX, m.Left, m.Right); err != nil {
		return err
	}
	allowed := wordRegs.Without(AX).Without(DX)
	if size == 2 {
		if err := fc.regs.claim(DX, m.Left, m.Right); err != nil {
			return err
		}
	} else {
		allowed = byteRegs.Without(AL).Without(AH)
	}
	acc := AX.Sized(size)
	if err := fc.regs.moveInto(acc, m.Left); err != nil {
		return err
	}
	src, err := fc.operandIn(m.Right, size, allowed)
	if err != nil {
		return err
	}
	fc.emit("imul %s", src)
	fc.regs.SetOwnership(m.Out, acc)
	return nil
}

// operandIn resolves op into a register from allowed, loading constants.
func (fc *funcCompiler) operandIn(op ir.Operand, size int, allowed RegSet) (Reg, error) {
	if op.IsConst() {
		r, err := fc.regs.RequestReg(size, allowed)
		if err != nil {
			return NoReg, err
		}
		fc.emit("mov %s, %s", r, imm(op.Const.Int, size))
		return r, nil
	}
	if op.IsVar() {
		return fc.regs.resolveVar(op.Var, allowed)
	}
	return NoReg, &Error{Code: diag.BackBadOperand, Msg: "missing operand"}
}

func (fc *funcCompiler) divide(m *ir.MathInstr) error {
	size := m.Out.Size
	signed := m.Op == ir.MathDiv || m.Op == ir.MathMod
	remainder := m.Op == ir.MathMod || m.Op == ir.MathUMod
	if err := fc.regs.claim(AX, m.Left, m.Right); err != nil {
		return err
	}
	allowed := byteRegs.Without(AL).Without(AH)
	if size == 2 {
		if err := fc.regs.claim(DX, m.Left, m.Right); err != nil {
			return err
		}
		allowed = wordRegs.Without(AX).Without(DX)
	}
	if err := fc.regs.moveInto(AX.Sized(size), m.Left); err != nil {
		return err
	}
	divisor, err := fc.operandIn(m.Right, size, allowed)
	if err != nil {
		return err
	}
	mn := "div"
	switch {
	case size == 2 && signed:
		fc.emit("cwd")
		mn = "idiv"
	case size == 2:
		fc.emit("xor dx, dx")
	case signed:
		fc.emit("cbw")
		mn = "idiv"
	default:
		fc.emit("xor ah, ah")
	}
	fc.emit("%s %s", mn, divisor)
	result := AX.Sized(size)
	if remainder {
		result = DX
		if size == 1 {
			result = AH
		}
	}
	fc.regs.SetOwnership(m.Out, result)
	return nil
}

func lowerCmp(fc *funcCompiler, in *ir.Instr) error {
	c := &in.Cmp
	float := fc.isFloat(c.Left) || fc.isFloat(c.Right)
	if float {
		if err := fc.floatCompare(c); err != nil {
			return err
		}
	} else if err := fc.intCompare(c); err != nil {
		return err
	}
	cc := jcc(c.Op, float)
	if fc.feedsNextBranch(c.Out) {
		fc.fused, fc.fusedCC = true, cc
		return nil
	}
	// no setcc on the 8086: materialize 0/1 around a jump; mov keeps flags
	r, err := fc.regs.RequestReg(max(min(c.Out.Size, 2), 1), 0)
	if err != nil {
		return err
	}
	skip := fc.auxLabel()
	fc.emit("mov %s, 1", r)
	fc.emit("%s %s", cc, skip)
	fc.emit("mov %s, 0", r)
	fc.emitLabel(skip)
	fc.regs.SetOwnership(c.Out, r)
	return nil
}

func (fc *funcCompiler) intCompare(c *ir.CmpInstr) error {
	size := max(c.Left.Size(), c.Right.Size())
	if size != 1 && size != 2 {
		return &Error{Code: diag.BackUnsupportedType, Name: c.Out.String(),
			Msg: fmt.Sprintf("%d-byte integer compare", size)}
	}
	var left Reg
	var err error
	if c.Left.IsConst() {
		left, err = fc.operandIn(c.Left, size, 0)
	} else {
		var op operand
		op, err = fc.regs.TryResolveIRArg(c.Left, 0)
		left = op.reg
	}
	if err != nil {
		return err
	}
	right, err := fc.regs.TryResolveIRArg(c.Right, 0)
	if err != nil {
		return err
	}
	fc.emit("cmp %s, %s", left.Sized(size), right.sized(size))
	return nil
}

// feedsNextBranch reports whether the only reader of out is the branch that
// immediately follows.
func (fc *funcCompiler) feedsNextBranch(out ir.Var) bool {
	next := fc.idx + 1
	if next >= len(fc.fn.Instrs) {
		return false
	}
	br := &fc.fn.Instrs[next]
	if br.Kind != ir.InstrBr || !br.Br.Cond.Uses(out.Key()) {
		return false
	}
	return fc.lastUse[out.Key()] == next && fc.uses[out.Key()] == 1
}

func lowerAssign(fc *funcCompiler, in *ir.Instr) error {
	a := &in.Assign
	if isFloatType(fc.b.types, a.Out.Type) || fc.isFloat(a.Value) {
		return fc.floatCopy(a.Value, a.Out)
	}
	return fc.intCopy(a.Value, a.Out)
}

// intCopy defines out as the value of op, reusing op's register when op
// dies here.
func (fc *funcCompiler) intCopy(op ir.Operand, out ir.Var) error {
	size := out.Size
	if size != 1 && size != 2 {
		return &Error{Code: diag.BackUnsupportedType, Name: out.String(),
			Msg: fmt.Sprintf("%d-byte integer value", size)}
	}
	if op.IsVar() && op.Var.Temp && !fc.liveAfter(op.Var) && op.Var.Size == size {
		if r, ok := fc.regs.regOf(op.Var); ok {
			fc.regs.DropOwnership(op.Var)
			fc.regs.SetOwnership(out, r)
			return nil
		}
	}
	dst, err := fc.destination(op, size, 0)
	if err != nil {
		return err
	}
	fc.regs.SetOwnership(out, dst)
	return nil
}
