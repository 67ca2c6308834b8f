package irgen

import (
	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
)

func (g *funcGen) genAssign(e *hir.Expr, data hir.AssignData) (ir.Operand, error) {
	if g.ctx.isAggregate(data.Target.Type) {
		if data.Op != 0 {
			return ir.Operand{}, g.errorf(diag.GenUnsupported, e.Span, data.Op.String(), "compound assignment to an aggregate")
		}
		return ir.Operand{}, g.copyAggregate(data.Target, data.Value)
	}
	a, err := g.genAddr(data.Target)
	if err != nil {
		return ir.Operand{}, err
	}
	if data.Op == 0 {
		v, err := g.genExpr(data.Value)
		if err != nil {
			return ir.Operand{}, err
		}
		if v, err = g.convert(v, data.Value.Type, data.Target.Type, e.Span); err != nil {
			return ir.Operand{}, err
		}
		g.store(a, v)
		return v, nil
	}

	old := g.load(data.Target.Type, a)
	r, err := g.genExpr(data.Value)
	if err != nil {
		return ir.Operand{}, err
	}
	if data.Op.IsRelational() || data.Op.IsLogical() {
		return ir.Operand{}, g.errorf(diag.GenUnsupported, e.Span, data.Op.String(), "invalid compound operator")
	}
	next, err := g.arith(e, data.Op, old, r, data.Target.Type, data.Value.Type)
	if err != nil {
		return ir.Operand{}, err
	}
	g.store(a, next)
	return next, nil
}

// copyAggregate lowers struct assignment to __builtin_memcpy.
func (g *funcGen) copyAggregate(dst, src *hir.Expr) error {
	da, err := g.genAddr(dst)
	if err != nil {
		return err
	}
	sa, err := g.genAddr(src)
	if err != nil {
		return err
	}
	ptr := g.ctx.types.PointerTo(dst.Type)
	g.memcpy(g.addrValue(da, ptr), g.addrValue(sa, ptr), g.ctx.sizeOf(dst.Type))
	return nil
}

func (g *funcGen) memcpy(dst, src ir.Operand, size int) {
	g.call(ir.BuiltinMemcpy, 0, dst, src, g.intOp(int64(size)))
}
