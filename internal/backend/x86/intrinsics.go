package x86

import (
	"cc16/internal/diag"
	"cc16/internal/ir"
)

type intrinsicFunc func(*funcCompiler, *ir.CallInstr) error

var intrinsics map[string]intrinsicFunc

func init() {
	intrinsics = map[string]intrinsicFunc{
		ir.BuiltinAlloca:  lowerAlloca,
		ir.BuiltinVaStart: lowerVaStart,
		ir.BuiltinVaArg:   lowerVaArg,
		ir.BuiltinVaEnd:   func(*funcCompiler, *ir.CallInstr) error { return nil },
		ir.BuiltinMemcpy:  lowerMemcpy,
	}
}

func (fc *funcCompiler) lowerIntrinsic(in *ir.Instr) error {
	c := &in.Call
	lower, ok := intrinsics[c.Callee]
	if !ok {
		return &Error{Code: diag.BackUnknownBuiltin, Name: c.Callee, Msg: "unknown compiler builtin"}
	}
	return lower(fc, c)
}

func checkArity(c *ir.CallInstr, n int) error {
	if len(c.Args) != n {
		return &Error{Code: diag.BackBadOperand, Name: c.Callee, Msg: "wrong number of builtin arguments"}
	}
	return nil
}

// lowerAlloca grows the frame below sp by an even number of bytes.
func lowerAlloca(fc *funcCompiler, c *ir.CallInstr) error {
	if err := checkArity(c, 1); err != nil {
		return err
	}
	n := c.Args[0]
	switch {
	case n.IsConst():
		if size := (n.Const.Int + 1) &^ 1; size > 0 {
			fc.emit("sub sp, %d", size)
		}
	case n.Size() == 1:
		r, err := fc.widen(n, true)
		if err != nil {
			return err
		}
		fc.emit("inc %s", r)
		fc.emit("and %s, 0xfffe", r)
		fc.emit("sub sp, %s", r)
	default:
		r, err := fc.regs.RequestReg(2, 0)
		if err != nil {
			return err
		}
		if err := fc.regs.moveInto(r, n); err != nil {
			return err
		}
		fc.emit("inc %s", r)
		fc.emit("and %s, 0xfffe", r)
		fc.emit("sub sp, %s", r)
	}
	if !c.HasOut {
		return nil
	}
	r, err := fc.regs.RequestReg(2, 0)
	if err != nil {
		return err
	}
	fc.emit("mov %s, sp", r)
	fc.regs.SetOwnership(c.Out, r)
	return nil
}

// lowerVaStart points the cursor just past the fixed parameters.
func lowerVaStart(fc *funcCompiler, c *ir.CallInstr) error {
	if err := checkArity(c, 1); err != nil {
		return err
	}
	ap, err := fc.addrOf(c.Args[0], 0)
	if err != nil {
		return err
	}
	r, err := fc.regs.RequestReg(2, 0)
	if err != nil {
		return err
	}
	fc.emit("lea %s, %s", r, bpAddr(paramBase+fc.frame.paramBytes))
	fc.emit("mov %s, %s", mem(2, ap.text), r)
	fc.forgetStored(ap, 2)
	return nil
}

// lowerVaArg reads the value under the cursor and steps past it.
func lowerVaArg(fc *funcCompiler, c *ir.CallInstr) error {
	if err := checkArity(c, 1); err != nil {
		return err
	}
	if !c.HasOut {
		return &Error{Code: diag.BackBadOperand, Name: c.Callee, Msg: "result is required"}
	}
	out := c.Out
	float := isFloatType(fc.b.types, out.Type)
	if !float && out.Size != 1 && out.Size != 2 {
		return &Error{Code: diag.BackUnsupportedType, Name: out.String(), Msg: "wide integer variadic argument"}
	}
	ap, err := fc.addrOf(c.Args[0], 0)
	if err != nil {
		return err
	}
	p, err := fc.regs.RequestReg(2, baseRegs)
	if err != nil {
		return err
	}
	fc.emit("mov %s, %s", p, mem(2, ap.text))
	fc.emit("add %s, %d", mem(2, ap.text), (out.Size+1)&^1)
	fc.forgetStored(ap, 2)
	src := baseAddr(p.String(), 0)
	if float {
		return fc.fpu.loadMem(out.Size, src, out)
	}
	r, err := fc.regs.RequestReg(out.Size, 0)
	if err != nil {
		return err
	}
	fc.emit("mov %s, %s", r, mem(out.Size, src))
	fc.regs.SetOwnership(out, r)
	return nil
}

// lowerMemcpy copies with rep movsb; es is set to ds first.
func lowerMemcpy(fc *funcCompiler, c *ir.CallInstr) error {
	if err := checkArity(c, 3); err != nil {
		return err
	}
	fixed := []Reg{DI, SI, CX}
	for _, r := range fixed {
		if err := fc.regs.claim(r, c.Args...); err != nil {
			return err
		}
	}
	for i, r := range fixed {
		arg := c.Args[i]
		if arg.IsVar() && arg.Size() == 1 {
			return &Error{Code: diag.BackBadOperand, Name: arg.Var.String(), Msg: "byte-sized memcpy operand"}
		}
		if err := fc.regs.moveInto(r, arg); err != nil {
			return err
		}
	}
	fc.emit("push ds")
	fc.emit("pop es")
	fc.emit("cld")
	fc.emit("rep movsb")
	fc.regs.forgetCaches()
	return nil
}
