package irgen

import (
	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/types"
)

func (g *funcGen) genCall(e *hir.Expr, data hir.CallData) (ir.Operand, error) {
	if g.ctx.isAggregate(e.Type) {
		return ir.Operand{}, g.errorf(diag.GenStructByValue, e.Span, "", "aggregate returned by value")
	}
	name, named := data.Name()
	if named && ir.IsBuiltinName(name) {
		if lower, ok := builtinLowerers[name]; ok {
			return lower(g, e, data.Args)
		}
	}

	c := ir.CallInstr{Conv: ir.ConvCdecl}
	direct := named
	if named {
		if b, ok := g.lookup(name); ok && b.kind != bindFunc {
			direct = false
		}
	}
	if direct {
		c.Callee = name
		if fn, ok := g.ctx.funcs[name]; ok {
			c.Variadic = fn.Variadic
			if fn.Conv == hir.ConvStdcall && !fn.Variadic {
				c.Conv = ir.ConvStdcall
			}
		}
	} else {
		target, err := g.genExpr(data.Callee)
		if err != nil {
			return ir.Operand{}, err
		}
		c.Target = target
		if info, ok := g.ctx.types.FuncInfo(data.Callee.Type); ok {
			c.Variadic = info.Variadic
		}
	}

	args, err := g.genArgs(data.Args)
	if err != nil {
		return ir.Operand{}, err
	}
	c.Args = args
	if k := g.ctx.types.Kind(e.Type); e.Type != types.NoTypeID && k != types.KindVoid {
		c.HasOut = true
		c.Out = g.newTemp(e.Type)
	}
	g.emit(ir.Instr{Kind: ir.InstrCall, Call: c})
	if c.HasOut {
		return ir.VarOp(c.Out), nil
	}
	return ir.Operand{}, nil
}

// genArgs evaluates arguments left to right.
func (g *funcGen) genArgs(exprs []*hir.Expr) ([]ir.Operand, error) {
	args := make([]ir.Operand, 0, len(exprs))
	for _, a := range exprs {
		if g.ctx.isAggregate(a.Type) {
			return nil, g.errorf(diag.GenStructByValue, a.Span, "", "aggregate argument")
		}
		v, err := g.genExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

type builtinLowerer func(g *funcGen, e *hir.Expr, args []*hir.Expr) (ir.Operand, error)

// builtinLowerers handles intrinsics whose arguments need special treatment.
// Other __builtin_ names are emitted as plain calls and checked by the
// backend.
var builtinLowerers map[string]builtinLowerer

func init() {
	builtinLowerers = map[string]builtinLowerer{
		ir.BuiltinAlloca:  lowerPlainBuiltin(1),
		ir.BuiltinMemcpy:  lowerPlainBuiltin(3),
		ir.BuiltinVaStart: lowerVaBuiltin,
		ir.BuiltinVaArg:   lowerVaBuiltin,
		ir.BuiltinVaEnd:   lowerVaBuiltin,
	}
}

func calleeName(e *hir.Expr) string {
	name, _ := e.Data.(hir.CallData).Name()
	return name
}

func lowerPlainBuiltin(arity int) builtinLowerer {
	return func(g *funcGen, e *hir.Expr, args []*hir.Expr) (ir.Operand, error) {
		name := calleeName(e)
		if len(args) != arity {
			return ir.Operand{}, g.errorf(diag.GenInvalidBuiltinArgs, e.Span, name, "expects %d arguments, got %d", arity, len(args))
		}
		ops, err := g.genArgs(args)
		if err != nil {
			return ir.Operand{}, err
		}
		return g.call(name, e.Type, ops...), nil
	}
}

// lowerVaBuiltin passes the address of the va_list cursor. Any further
// va_start arguments only name the last fixed parameter and are dropped.
func lowerVaBuiltin(g *funcGen, e *hir.Expr, args []*hir.Expr) (ir.Operand, error) {
	name := calleeName(e)
	if len(args) == 0 || (name != ir.BuiltinVaStart && len(args) != 1) {
		return ir.Operand{}, g.errorf(diag.GenInvalidBuiltinArgs, e.Span, name, "expects the va_list variable")
	}
	if name == ir.BuiltinVaStart && !g.fn.Variadic {
		return ir.Operand{}, g.errorf(diag.GenInvalidBuiltinArgs, e.Span, name, "used in a non-variadic function")
	}
	if name == ir.BuiltinVaArg && g.ctx.isAggregate(e.Type) {
		return ir.Operand{}, g.errorf(diag.GenStructByValue, e.Span, name, "aggregate variadic argument")
	}
	a, err := g.genAddr(args[0])
	if err != nil {
		return ir.Operand{}, err
	}
	ap := g.addrValue(a, g.ctx.types.PointerTo(args[0].Type))
	return g.call(name, e.Type, ap), nil
}
