package irgen

import (
	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/types"
)

// address is base + off. The base is a slot handle, a pointer temporary or
// a constant pointer.
type address struct {
	base ir.Operand
	off  int
}

func (a address) isSlot() bool {
	return a.base.IsVar() && !a.base.Var.Temp
}

func (g *funcGen) load(t types.TypeID, a address) ir.Operand {
	out := g.newTemp(t)
	g.emit(ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Out: out, Ptr: a.base, Offset: a.off}})
	return ir.VarOp(out)
}

func (g *funcGen) store(a address, v ir.Operand) {
	g.emit(ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Ptr: a.base, Value: v, Offset: a.off}})
}

// addrValue materializes a as a pointer value of type ptr.
func (g *funcGen) addrValue(a address, ptr types.TypeID) ir.Operand {
	base := a.base
	switch {
	case a.isSlot():
		out := g.newTemp(ptr)
		g.emit(ir.Instr{Kind: ir.InstrLea, Lea: ir.LeaInstr{Out: out, Src: a.base.Var}})
		base = ir.VarOp(out)
	case base.IsConst():
		return g.intConst(ptr, base.Const.Int+int64(a.off))
	}
	if a.off == 0 {
		if base.IsVar() {
			base.Var.Type = ptr
		}
		return base
	}
	return g.math(ir.MathAdd, base, g.intOp(int64(a.off)), ptr)
}

// loadValue reads the value of type t at a. Arrays and functions yield
// their address instead.
func (g *funcGen) loadValue(e *hir.Expr, a address) (ir.Operand, error) {
	switch g.ctx.types.Kind(e.Type) {
	case types.KindArray:
		return g.addrValue(a, g.ctx.types.Decay(e.Type)), nil
	case types.KindFunc:
		return g.addrValue(a, g.ctx.types.PointerTo(e.Type)), nil
	case types.KindStruct, types.KindUnion:
		return ir.Operand{}, g.errorf(diag.GenStructByValue, e.Span, "", "aggregate used as a value")
	}
	return g.load(e.Type, a), nil
}

func (g *funcGen) genAddr(e *hir.Expr) (address, error) {
	if e == nil {
		return address{}, g.malformed(g.fn.Span, "lvalue")
	}
	if err := g.enter(e.Span); err != nil {
		return address{}, err
	}
	defer g.leave()
	if err := g.checkShape(e); err != nil {
		return address{}, err
	}

	switch data := e.Data.(type) {
	case hir.VarRefData:
		b, ok := g.lookup(data.Name)
		if !ok {
			return address{}, g.errorf(diag.GenUnknownVariable, e.Span, data.Name, "unknown variable")
		}
		return g.bindingAddr(b), nil
	case hir.UnaryData:
		if data.Op != hir.UnDeref {
			break
		}
		p, err := g.genExpr(data.Operand)
		if err != nil {
			return address{}, err
		}
		return address{base: p}, nil
	case hir.MemberData:
		if data.Arrow {
			p, err := g.genExpr(data.Object)
			if err != nil {
				return address{}, err
			}
			return address{base: p, off: int(data.Offset)}, nil
		}
		a, err := g.genAddr(data.Object)
		if err != nil {
			return address{}, err
		}
		a.off += int(data.Offset)
		return a, nil
	case hir.IndexData:
		return g.indexAddr(e, data)
	case hir.LiteralData:
		if data.Kind == hir.LiteralString {
			label := g.ctx.internString(data.Str, g.ctx.sizeOf(e.Type))
			return address{base: g.labelOffset(label, g.ctx.types.Decay(e.Type))}, nil
		}
	case hir.CallData:
		if g.ctx.isAggregate(e.Type) {
			return address{}, g.errorf(diag.GenStructByValue, e.Span, "", "aggregate returned by value")
		}
	}
	return address{}, g.errorf(diag.GenNotAddressable, e.Span, e.Kind.String(), "expression is not addressable")
}

func (g *funcGen) bindingAddr(b binding) address {
	switch b.kind {
	case bindSlot:
		return address{base: ir.VarOp(b.slot)}
	case bindIndirect:
		elem := g.ctx.types.Elem(b.typ)
		return address{base: g.load(g.ctx.types.PointerTo(elem), address{base: ir.VarOp(b.slot)})}
	}
	return address{base: g.labelOffset(b.label, g.ctx.types.PointerTo(b.typ))}
}

// indexAddr folds constant indexes into the offset; other indexes are
// scaled and added to the materialized base pointer.
func (g *funcGen) indexAddr(e *hir.Expr, data hir.IndexData) (address, error) {
	var a address
	if g.ctx.types.Kind(data.Object.Type) == types.KindArray {
		var err error
		if a, err = g.genAddr(data.Object); err != nil {
			return address{}, err
		}
	} else {
		p, err := g.genExpr(data.Object)
		if err != nil {
			return address{}, err
		}
		a = address{base: p}
	}
	size := max(g.ctx.sizeOf(e.Type), 1)
	if k, ok := g.ctx.fold(data.Index); ok {
		a.off += int(k.Int) * size
		return a, nil
	}
	idx, err := g.genExpr(data.Index)
	if err != nil {
		return address{}, err
	}
	idx, err = g.convert(idx, data.Index.Type, g.ctx.types.Builtins().Int, e.Span)
	if err != nil {
		return address{}, err
	}
	if size != 1 {
		idx = g.math(ir.MathMul, idx, g.intOp(int64(size)), g.ctx.types.Builtins().Int)
	}
	ptr := g.ctx.types.PointerTo(e.Type)
	base := g.addrValue(a, ptr)
	return address{base: g.math(ir.MathAdd, base, idx, ptr)}, nil
}
