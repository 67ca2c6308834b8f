package irgen

import (
	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/source"
	"cc16/internal/types"
)

// genExpr lowers e for its value. Void expressions yield an empty operand.
func (g *funcGen) genExpr(e *hir.Expr) (ir.Operand, error) {
	if e == nil {
		return ir.Operand{}, nil
	}
	if err := g.enter(e.Span); err != nil {
		return ir.Operand{}, err
	}
	defer g.leave()
	if err := g.checkShape(e); err != nil {
		return ir.Operand{}, err
	}

	if k, ok := g.ctx.fold(e); ok {
		return ir.ConstOp(k), nil
	}
	switch data := e.Data.(type) {
	case hir.LiteralData:
		if data.Kind == hir.LiteralString {
			label := g.ctx.internString(data.Str, g.ctx.sizeOf(e.Type))
			return g.labelOffset(label, g.ctx.types.Decay(e.Type)), nil
		}
	case hir.VarRefData:
		b, ok := g.lookup(data.Name)
		if !ok {
			return ir.Operand{}, g.errorf(diag.GenUnknownVariable, e.Span, data.Name, "unknown variable")
		}
		if b.kind == bindFunc {
			return g.labelOffset(b.label, g.ctx.types.PointerTo(b.typ)), nil
		}
		return g.loadValue(e, g.bindingAddr(b))
	case hir.UnaryData:
		return g.genUnary(e, data)
	case hir.BinaryData:
		return g.genBinary(e, data)
	case hir.AssignData:
		return g.genAssign(e, data)
	case hir.CallData:
		return g.genCall(e, data)
	case hir.MemberData, hir.IndexData:
		a, err := g.genAddr(e)
		if err != nil {
			return ir.Operand{}, err
		}
		return g.loadValue(e, a)
	case hir.CondData:
		return g.genCondExpr(e, data)
	case hir.CastData:
		v, err := g.genExpr(data.Value)
		if err != nil {
			return ir.Operand{}, err
		}
		return g.convert(v, data.Value.Type, e.Type, e.Span)
	case hir.CommaData:
		var last ir.Operand
		for _, x := range data.Exprs {
			v, err := g.genExpr(x)
			if err != nil {
				return ir.Operand{}, err
			}
			last = v
		}
		return last, nil
	case hir.StmtExprData:
		return g.genStmtExpr(data)
	}
	return ir.Operand{}, g.errorf(diag.GenUnsupported, e.Span, e.Kind.String(), "unsupported expression")
}

func (g *funcGen) genUnary(e *hir.Expr, data hir.UnaryData) (ir.Operand, error) {
	switch data.Op {
	case hir.UnDeref:
		a, err := g.genAddr(e)
		if err != nil {
			return ir.Operand{}, err
		}
		return g.loadValue(e, a)
	case hir.UnAddrOf:
		if data.Operand.Kind == hir.ExprVarRef {
			if ref, ok := data.Operand.Data.(hir.VarRefData); ok {
				if b, ok := g.lookup(ref.Name); ok && b.kind == bindFunc {
					return g.labelOffset(b.label, e.Type), nil
				}
			}
		}
		a, err := g.genAddr(data.Operand)
		if err != nil {
			return ir.Operand{}, err
		}
		return g.addrValue(a, e.Type), nil
	case hir.UnPreInc, hir.UnPreDec, hir.UnPostInc, hir.UnPostDec:
		return g.genIncDec(e, data)
	}

	x, err := g.genExpr(data.Operand)
	if err != nil {
		return ir.Operand{}, err
	}
	switch data.Op {
	case hir.UnPlus:
		return x, nil
	case hir.UnNeg:
		if g.ctx.isFloat(e.Type) {
			return g.math(ir.MathSub, ir.ConstOp(g.ctx.floatConst(e.Type, 0)), x, e.Type), nil
		}
		return g.math(ir.MathSub, g.intConst(e.Type, 0), x, e.Type), nil
	case hir.UnBitNot:
		return g.math(ir.MathXor, x, g.intConst(e.Type, -1), e.Type), nil
	case hir.UnLogNot:
		zero := g.zeroOf(data.Operand.Type)
		return g.cmp(ir.CmpEq, x, zero, e.Type), nil
	}
	return ir.Operand{}, g.errorf(diag.GenUnsupported, e.Span, data.Op.String(), "unsupported unary operator")
}

func (g *funcGen) zeroOf(t types.TypeID) ir.Operand {
	if g.ctx.isFloat(t) {
		return ir.ConstOp(g.ctx.floatConst(t, 0))
	}
	return g.intConst(t, 0)
}

func (g *funcGen) genIncDec(e *hir.Expr, data hir.UnaryData) (ir.Operand, error) {
	a, err := g.genAddr(data.Operand)
	if err != nil {
		return ir.Operand{}, err
	}
	t := data.Operand.Type
	old := g.load(t, a)
	var step ir.Operand
	switch {
	case g.ctx.isFloat(t):
		step = ir.ConstOp(g.ctx.floatConst(t, 1))
	case g.ctx.isPointer(t):
		step = g.intOp(int64(g.ctx.elemSize(t)))
	default:
		step = g.intConst(t, 1)
	}
	op := ir.MathAdd
	if data.Op == hir.UnPreDec || data.Op == hir.UnPostDec {
		op = ir.MathSub
	}
	next := g.math(op, old, step, t)
	g.store(a, next)
	if data.Op == hir.UnPostInc || data.Op == hir.UnPostDec {
		return old, nil
	}
	return next, nil
}

func (g *funcGen) genBinary(e *hir.Expr, data hir.BinaryData) (ir.Operand, error) {
	switch {
	case data.Op.IsLogical():
		return g.genLogicalValue(e)
	case data.Op.IsRelational():
		return g.genCompare(data, e.Type)
	}
	l, err := g.genExpr(data.Left)
	if err != nil {
		return ir.Operand{}, err
	}
	r, err := g.genExpr(data.Right)
	if err != nil {
		return ir.Operand{}, err
	}
	return g.arith(e, data.Op, l, r, data.Left.Type, data.Right.Type)
}

// arith emits l op r with C pointer arithmetic scaling.
func (g *funcGen) arith(e *hir.Expr, op hir.BinaryOp, l, r ir.Operand, lt, rt types.TypeID) (ir.Operand, error) {
	c := g.ctx
	lt, rt = c.types.Decay(lt), c.types.Decay(rt)
	lp, rp := c.isPointer(lt), c.isPointer(rt)
	switch {
	case lp && rp && op == hir.BinSub:
		diff := g.math(ir.MathSub, l, r, e.Type)
		if size := c.elemSize(lt); size > 1 {
			return g.math(ir.MathDiv, diff, g.intConst(e.Type, int64(size)), e.Type), nil
		}
		return diff, nil
	case lp && (op == hir.BinAdd || op == hir.BinSub):
		r = g.scale(r, c.elemSize(lt))
	case rp && op == hir.BinAdd:
		l, r = r, g.scale(l, c.elemSize(rt))
	}
	mop := mathOp(op, c.isUnsigned(e.Type), c.isFloat(e.Type))
	if mop == 0 {
		return ir.Operand{}, g.errorf(diag.GenUnsupported, e.Span, op.String(), "unsupported binary operator")
	}
	if c.isFloat(e.Type) {
		switch mop {
		case ir.MathAdd, ir.MathSub, ir.MathMul, ir.MathDiv:
		default:
			return ir.Operand{}, g.errorf(diag.GenUnsupported, e.Span, op.String(), "operator not defined on floating point")
		}
	}
	return g.math(mop, l, r, e.Type), nil
}

func (g *funcGen) scale(v ir.Operand, size int) ir.Operand {
	if size == 1 {
		return v
	}
	if v.IsConst() {
		return g.intConst(v.Const.Type, v.Const.Int*int64(size))
	}
	return g.math(ir.MathMul, v, g.intOp(int64(size)), v.Var.Type)
}

func (g *funcGen) genCompare(data hir.BinaryData, t types.TypeID) (ir.Operand, error) {
	l, err := g.genExpr(data.Left)
	if err != nil {
		return ir.Operand{}, err
	}
	r, err := g.genExpr(data.Right)
	if err != nil {
		return ir.Operand{}, err
	}
	op := cmpOp(data.Op, g.ctx.isUnsigned(g.ctx.types.Decay(data.Left.Type)))
	return g.cmp(op, l, r, t), nil
}

// genLogicalValue materializes && and || as 0/1 through a phi.
func (g *funcGen) genLogicalValue(e *hir.Expr) (ir.Operand, error) {
	trueL, falseL, endL := g.ctx.newLabel(), g.ctx.newLabel(), g.ctx.newLabel()
	if err := g.genCond(e, trueL, falseL); err != nil {
		return ir.Operand{}, err
	}
	g.label(trueL)
	one := g.assign(g.intConst(e.Type, 1), e.Type)
	g.jmp(endL)
	g.label(falseL)
	zero := g.assign(g.intConst(e.Type, 0), e.Type)
	g.label(endL)
	return g.phi(e.Type, one, zero), nil
}

func (g *funcGen) phi(t types.TypeID, vars ...ir.Var) ir.Operand {
	out := g.newTemp(t)
	g.emit(ir.Instr{Kind: ir.InstrPhi, Phi: ir.PhiInstr{Out: out, Vars: vars}})
	return ir.VarOp(out)
}

func (g *funcGen) genCondExpr(e *hir.Expr, data hir.CondData) (ir.Operand, error) {
	if g.ctx.isAggregate(e.Type) {
		return ir.Operand{}, g.errorf(diag.GenStructByValue, e.Span, "", "aggregate conditional")
	}
	thenL, elseL, endL := g.ctx.newLabel(), g.ctx.newLabel(), g.ctx.newLabel()
	if err := g.genCond(data.Cond, thenL, elseL); err != nil {
		return ir.Operand{}, err
	}
	void := g.ctx.types.Kind(e.Type) == types.KindVoid
	arm := func(x *hir.Expr) (ir.Var, error) {
		v, err := g.genExpr(x)
		if err != nil || void {
			return ir.Var{}, err
		}
		if v, err = g.convert(v, x.Type, e.Type, x.Span); err != nil {
			return ir.Var{}, err
		}
		return g.assign(v, e.Type), nil
	}
	g.label(thenL)
	a, err := arm(data.Then)
	if err != nil {
		return ir.Operand{}, err
	}
	g.jmp(endL)
	g.label(elseL)
	b, err := arm(data.Else)
	if err != nil {
		return ir.Operand{}, err
	}
	g.label(endL)
	if void {
		return ir.Operand{}, nil
	}
	return g.phi(e.Type, a, b), nil
}

func (g *funcGen) genStmtExpr(data hir.StmtExprData) (ir.Operand, error) {
	g.pushScope()
	defer g.popScope()
	stmts := data.Block.Stmts
	if len(stmts) == 0 {
		return ir.Operand{}, nil
	}
	if err := g.genStmts(stmts[:len(stmts)-1]); err != nil {
		return ir.Operand{}, err
	}
	last := stmts[len(stmts)-1]
	if es, ok := last.Data.(hir.ExprStmtData); ok {
		return g.genExpr(es.Expr)
	}
	return ir.Operand{}, g.genStmt(last)
}

// convert applies the C conversion of v from type from to type to.
func (g *funcGen) convert(v ir.Operand, from, to types.TypeID, span source.Span) (ir.Operand, error) {
	c := g.ctx
	from = c.types.Decay(from)
	if from == to || c.types.Kind(to) == types.KindVoid || v.Kind == ir.OperandNone {
		return v, nil
	}
	if c.isAggregate(to) || c.isAggregate(from) {
		return ir.Operand{}, g.errorf(diag.GenStructByValue, span, "", "aggregate conversion")
	}
	if v.IsConst() {
		return ir.ConstOp(c.convertConst(v.Const, to)), nil
	}
	if c.types.Kind(to) == types.KindBool {
		return g.cmp(ir.CmpNe, v, g.zeroOf(from), to), nil
	}
	fromSize, toSize := c.sizeOf(from), c.sizeOf(to)
	if c.isFloat(from) || c.isFloat(to) {
		if fromSize == 1 || toSize == 1 {
			return ir.Operand{}, g.errorf(diag.GenUnsupportedFloatCast, span, types.Label(c.types, to), "byte-sized floating point conversion")
		}
	}
	if fromSize == toSize && c.isFloat(from) == c.isFloat(to) {
		v.Var.Type = to
		return v, nil
	}
	out := g.newTemp(to)
	g.emit(ir.Instr{Kind: ir.InstrCast, Cast: ir.CastInstr{Out: out, Value: v}})
	return ir.VarOp(out), nil
}
