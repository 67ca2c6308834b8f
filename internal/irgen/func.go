package irgen

import (
	"fmt"

	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/source"
	"cc16/internal/types"
)

type loopCtx struct {
	breakLabel    string
	continueLabel string // empty inside a switch
}

type gotoRef struct {
	label string
	span  source.Span
}

// funcGen lowers one function body.
type funcGen struct {
	ctx *Context
	fn  *hir.Func
	f   *ir.Func

	nextTemp int
	scopes   []map[string]binding
	redefs   map[string]int
	loops    []loopCtx

	labels  map[string]string
	defined map[string]source.Span
	gotos   []gotoRef

	depth int
}

func (c *Context) genFunc(fn *hir.Func) (_ *ir.Func, err error) {
	g := &funcGen{
		ctx:     c,
		fn:      fn,
		redefs:  make(map[string]int),
		labels:  make(map[string]string),
		defined: make(map[string]source.Span),
	}
	defer g.recoverMalformed(&err)
	conv := ir.ConvCdecl
	if fn.Conv == hir.ConvStdcall && !fn.Variadic {
		conv = ir.ConvStdcall
	}
	g.f = &ir.Func{
		Name:       fn.Name,
		Span:       fn.Span,
		Result:     fn.Result,
		ResultSize: c.sizeOf(fn.Result),
		Conv:       conv,
		Variadic:   fn.Variadic,
	}
	if c.isAggregate(fn.Result) {
		return nil, g.errorf(diag.GenStructByValue, fn.Span, fn.Name, "aggregate return value")
	}

	g.pushScope()
	for _, p := range fn.Params {
		if c.isAggregate(p.Type) {
			return nil, g.errorf(diag.GenStructByValue, p.Span, p.Name, "aggregate parameter")
		}
		slot := g.newSlot(p.Name, p.Type)
		g.f.Params = append(g.f.Params, slot)
		g.bind(p.Name, binding{kind: bindSlot, slot: slot, typ: p.Type})
	}
	if err := g.genStmts(fn.Body.Stmts); err != nil {
		return nil, err
	}
	g.popScope()

	if n := len(g.f.Instrs); n == 0 || g.f.Instrs[n-1].Kind != ir.InstrRet {
		g.emit(ir.Instr{Kind: ir.InstrRet})
	}
	for _, ref := range g.gotos {
		if _, ok := g.defined[ref.label]; !ok {
			return nil, g.errorf(diag.GenUndefinedLabel, ref.span, ref.label, "goto to undefined label")
		}
	}
	return g.f, nil
}

func (g *funcGen) errorf(code diag.Code, span source.Span, name, format string, args ...any) error {
	return &Error{Code: code, Func: g.fn.Name, Name: name, Span: span, Msg: fmt.Sprintf(format, args...)}
}

// enter bounds recursion depth; every successful enter is paired with leave.
func (g *funcGen) enter(span source.Span) error {
	g.depth++
	if g.depth > g.ctx.cfg.MaxNestingDepth {
		g.depth--
		return g.errorf(diag.GenExprTooComplex, span, "", "nesting deeper than %d", g.ctx.cfg.MaxNestingDepth)
	}
	return nil
}

func (g *funcGen) leave() {
	g.depth--
}

// Scopes ----------------------------------------------------------------------

func (g *funcGen) pushScope() {
	g.scopes = append(g.scopes, make(map[string]binding))
}

func (g *funcGen) popScope() {
	g.scopes = g.scopes[:len(g.scopes)-1]
}

func (g *funcGen) bind(name string, b binding) {
	g.scopes[len(g.scopes)-1][name] = b
}

func (g *funcGen) lookup(name string) (binding, bool) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if b, ok := g.scopes[i][name]; ok {
			return b, true
		}
	}
	b, ok := g.ctx.globals[name]
	return b, ok
}

// newSlot creates the handle of a fresh declared variable. Redeclaring a
// name anywhere in the function bumps its index.
func (g *funcGen) newSlot(name string, t types.TypeID) ir.Var {
	idx := g.redefs[name]
	g.redefs[name] = idx + 1
	return ir.Var{Name: name, Index: idx, Type: g.ctx.types.PointerTo(t), Size: g.ctx.cfg.Target.PtrSize}
}

// Emission helpers ------------------------------------------------------------

func (g *funcGen) emit(in ir.Instr) {
	g.f.Instrs = append(g.f.Instrs, in)
}

func (g *funcGen) newTemp(t types.TypeID) ir.Var {
	v := ir.Var{Temp: true, Index: g.nextTemp, Type: t, Size: g.ctx.sizeOf(t)}
	g.nextTemp++
	return v
}

func (g *funcGen) label(name string) {
	g.emit(ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: name}})
}

func (g *funcGen) jmp(target string) {
	g.emit(ir.Instr{Kind: ir.InstrJmp, Jmp: ir.JmpInstr{Target: target}})
}

func (g *funcGen) br(cond ir.Operand, t, f string) {
	g.emit(ir.Instr{Kind: ir.InstrBr, Br: ir.BrInstr{Cond: cond, True: t, False: f}})
}

func (g *funcGen) math(op ir.MathOp, l, r ir.Operand, t types.TypeID) ir.Operand {
	out := g.newTemp(t)
	g.emit(ir.Instr{Kind: ir.InstrMath, Math: ir.MathInstr{Out: out, Op: op, Left: l, Right: r}})
	return ir.VarOp(out)
}

func (g *funcGen) cmp(op ir.CmpOp, l, r ir.Operand, t types.TypeID) ir.Operand {
	out := g.newTemp(t)
	g.emit(ir.Instr{Kind: ir.InstrCmp, Cmp: ir.CmpInstr{Out: out, Op: op, Left: l, Right: r}})
	return ir.VarOp(out)
}

func (g *funcGen) assign(v ir.Operand, t types.TypeID) ir.Var {
	out := g.newTemp(t)
	g.emit(ir.Instr{Kind: ir.InstrAssign, Assign: ir.AssignInstr{Out: out, Value: v}})
	return out
}

func (g *funcGen) labelOffset(label string, t types.TypeID) ir.Operand {
	out := g.newTemp(t)
	g.emit(ir.Instr{Kind: ir.InstrLabelOffset, LabelOffset: ir.LabelOffsetInstr{Out: out, Label: label}})
	return ir.VarOp(out)
}

func (g *funcGen) call(callee string, result types.TypeID, args ...ir.Operand) ir.Operand {
	c := ir.CallInstr{Callee: callee, Args: args}
	if result != types.NoTypeID && g.ctx.types.Kind(result) != types.KindVoid {
		c.HasOut = true
		c.Out = g.newTemp(result)
	}
	g.emit(ir.Instr{Kind: ir.InstrCall, Call: c})
	if c.HasOut {
		return ir.VarOp(c.Out)
	}
	return ir.Operand{}
}

func (g *funcGen) intConst(t types.TypeID, v int64) ir.Operand {
	return ir.ConstOp(g.ctx.intConst(t, v))
}

// intOp is an int-typed constant operand.
func (g *funcGen) intOp(v int64) ir.Operand {
	return g.intConst(g.ctx.types.Builtins().Int, v)
}

func (g *funcGen) boolType() types.TypeID {
	return g.ctx.types.Builtins().Bool
}

// Type helpers ----------------------------------------------------------------

func (c *Context) isAggregate(t types.TypeID) bool {
	switch c.types.Kind(t) {
	case types.KindStruct, types.KindUnion:
		return true
	}
	return false
}

func (c *Context) isPointer(t types.TypeID) bool {
	return c.types.Kind(t) == types.KindPointer
}

func (c *Context) elemSize(ptr types.TypeID) int {
	return max(c.sizeOf(c.types.Elem(ptr)), 1)
}
