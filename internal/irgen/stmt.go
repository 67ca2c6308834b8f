package irgen

import (
	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/types"
)

func (g *funcGen) genStmts(stmts []*hir.Stmt) error {
	for _, s := range stmts {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *funcGen) genStmt(s *hir.Stmt) error {
	if s == nil {
		return nil
	}
	if err := g.enter(s.Span); err != nil {
		return err
	}
	defer g.leave()

	switch data := s.Data.(type) {
	case hir.DeclData:
		for _, v := range data.Vars {
			if err := g.genLocal(v); err != nil {
				return err
			}
		}
		return nil
	case hir.ExprStmtData:
		_, err := g.genExpr(data.Expr)
		return err
	case hir.ReturnData:
		return g.genReturn(s, data)
	case hir.IfData:
		return g.genIf(data)
	case hir.LoopData:
		if s.Kind == hir.StmtDoWhile {
			return g.genDoWhile(data)
		}
		return g.genWhile(data)
	case hir.ForData:
		return g.genFor(data)
	case hir.SwitchData:
		return g.genSwitch(data)
	case hir.BreakData:
		if len(g.loops) == 0 {
			return g.errorf(diag.GenBreakOutsideLoop, s.Span, "", "break outside of a loop or switch")
		}
		g.jmp(g.loops[len(g.loops)-1].breakLabel)
		return nil
	case hir.ContinueData:
		for i := len(g.loops) - 1; i >= 0; i-- {
			if g.loops[i].continueLabel != "" {
				g.jmp(g.loops[i].continueLabel)
				return nil
			}
		}
		return g.errorf(diag.GenContinueOutsideLoop, s.Span, "", "continue outside of a loop")
	case hir.GotoData:
		g.gotos = append(g.gotos, gotoRef{label: data.Label, span: s.Span})
		g.jmp(g.userLabel(data.Label))
		return nil
	case hir.LabeledData:
		if prev, dup := g.defined[data.Label]; dup {
			return g.errorf(diag.GenDuplicateLabel, s.Span, data.Label, "label already defined at %s", prev)
		}
		g.defined[data.Label] = s.Span
		g.label(g.userLabel(data.Label))
		return g.genStmt(data.Stmt)
	case hir.BlockData:
		g.pushScope()
		defer g.popScope()
		return g.genStmts(data.Block.Stmts)
	case hir.AsmData:
		g.emit(ir.Instr{Kind: ir.InstrAsm, Asm: ir.AsmInstr{Text: data.Text}})
		return nil
	case hir.EmptyData:
		return nil
	}
	return g.errorf(diag.GenUnsupported, s.Span, s.Kind.String(), "unsupported statement")
}

// userLabel maps a C label to its IR label, allocating on first sight so
// forward gotos work.
func (g *funcGen) userLabel(name string) string {
	if l, ok := g.labels[name]; ok {
		return l
	}
	l := g.ctx.newLabel()
	g.labels[name] = l
	return l
}

func (g *funcGen) genReturn(s *hir.Stmt, data hir.ReturnData) error {
	if data.Value == nil {
		g.emit(ir.Instr{Kind: ir.InstrRet})
		return nil
	}
	if g.ctx.isAggregate(data.Value.Type) {
		return g.errorf(diag.GenStructByValue, s.Span, g.fn.Name, "aggregate return value")
	}
	v, err := g.genExpr(data.Value)
	if err != nil {
		return err
	}
	if g.ctx.types.Kind(g.fn.Result) == types.KindVoid || g.f.ResultSize == 0 {
		g.emit(ir.Instr{Kind: ir.InstrRet})
		return nil
	}
	v, err = g.convert(v, data.Value.Type, g.fn.Result, s.Span)
	if err != nil {
		return err
	}
	g.emit(ir.Instr{Kind: ir.InstrRet, Ret: ir.RetInstr{HasValue: true, Value: v}})
	return nil
}

func (g *funcGen) genIf(data hir.IfData) error {
	thenL, endL := g.ctx.newLabel(), g.ctx.newLabel()
	elseL := endL
	if data.Else != nil {
		elseL = g.ctx.newLabel()
	}
	if err := g.genCond(data.Cond, thenL, elseL); err != nil {
		return err
	}
	g.label(thenL)
	if err := g.genScoped(data.Then); err != nil {
		return err
	}
	if data.Else != nil {
		g.jmp(endL)
		g.label(elseL)
		if err := g.genScoped(data.Else); err != nil {
			return err
		}
	}
	g.label(endL)
	return nil
}

// genScoped lowers a sub-statement in its own scope.
func (g *funcGen) genScoped(s *hir.Stmt) error {
	g.pushScope()
	defer g.popScope()
	return g.genStmt(s)
}

func (g *funcGen) genLoopBody(body *hir.Stmt, breakL, continueL string) error {
	g.loops = append(g.loops, loopCtx{breakLabel: breakL, continueLabel: continueL})
	defer func() { g.loops = g.loops[:len(g.loops)-1] }()
	return g.genScoped(body)
}

func (g *funcGen) genWhile(data hir.LoopData) error {
	condL, bodyL, endL := g.ctx.newLabel(), g.ctx.newLabel(), g.ctx.newLabel()
	g.label(condL)
	if err := g.genCond(data.Cond, bodyL, endL); err != nil {
		return err
	}
	g.label(bodyL)
	if err := g.genLoopBody(data.Body, endL, condL); err != nil {
		return err
	}
	g.jmp(condL)
	g.label(endL)
	return nil
}

func (g *funcGen) genDoWhile(data hir.LoopData) error {
	bodyL, condL, endL := g.ctx.newLabel(), g.ctx.newLabel(), g.ctx.newLabel()
	g.label(bodyL)
	if err := g.genLoopBody(data.Body, endL, condL); err != nil {
		return err
	}
	g.label(condL)
	if err := g.genCond(data.Cond, bodyL, endL); err != nil {
		return err
	}
	g.label(endL)
	return nil
}

func (g *funcGen) genFor(data hir.ForData) error {
	g.pushScope()
	defer g.popScope()
	if err := g.genStmt(data.Init); err != nil {
		return err
	}
	condL, bodyL, postL, endL := g.ctx.newLabel(), g.ctx.newLabel(), g.ctx.newLabel(), g.ctx.newLabel()
	g.label(condL)
	if data.Cond != nil {
		if err := g.genCond(data.Cond, bodyL, endL); err != nil {
			return err
		}
	}
	g.label(bodyL)
	if err := g.genLoopBody(data.Body, endL, postL); err != nil {
		return err
	}
	g.label(postL)
	if data.Post != nil {
		if _, err := g.genExpr(data.Post); err != nil {
			return err
		}
	}
	g.jmp(condL)
	g.label(endL)
	return nil
}

// genSwitch emits a linear compare chain followed by the case bodies in
// source order, so execution falls from one body into the next.
func (g *funcGen) genSwitch(data hir.SwitchData) error {
	if data.Value == nil {
		return g.malformed(g.fn.Span, "switch value")
	}
	v, err := g.genExpr(data.Value)
	if err != nil {
		return err
	}
	endL := g.ctx.newLabel()
	bodies := make([]string, len(data.Cases))
	defaultL := endL
	for i, c := range data.Cases {
		bodies[i] = g.ctx.newLabel()
		if c.Default {
			defaultL = bodies[i]
		}
	}
	for i, c := range data.Cases {
		for _, val := range c.Values {
			k := g.ctx.intConst(data.Value.Type, val)
			if v.IsConst() {
				if v.Const.Int == k.Int {
					g.jmp(bodies[i])
				}
				continue
			}
			next := g.ctx.newLabel()
			t := g.cmp(ir.CmpEq, v, ir.ConstOp(k), g.boolType())
			g.br(t, bodies[i], next)
			g.label(next)
		}
	}
	g.jmp(defaultL)

	g.loops = append(g.loops, loopCtx{breakLabel: endL})
	defer func() { g.loops = g.loops[:len(g.loops)-1] }()
	g.pushScope()
	defer g.popScope()
	for i, c := range data.Cases {
		g.label(bodies[i])
		if err := g.genStmts(c.Body); err != nil {
			return err
		}
	}
	g.label(endL)
	return nil
}

// genCond branches to t when e is non-zero and to f otherwise.
func (g *funcGen) genCond(e *hir.Expr, t, f string) error {
	if e == nil {
		return g.malformed(g.fn.Span, "condition")
	}
	if err := g.enter(e.Span); err != nil {
		return err
	}
	defer g.leave()
	if err := g.checkShape(e); err != nil {
		return err
	}

	if k, ok := g.ctx.fold(e); ok {
		if k.IsZero() {
			g.jmp(f)
		} else {
			g.jmp(t)
		}
		return nil
	}
	switch data := e.Data.(type) {
	case hir.BinaryData:
		switch {
		case data.Op == hir.BinLogAnd:
			mid := g.ctx.newLabel()
			if err := g.genCond(data.Left, mid, f); err != nil {
				return err
			}
			g.label(mid)
			return g.genCond(data.Right, t, f)
		case data.Op == hir.BinLogOr:
			mid := g.ctx.newLabel()
			if err := g.genCond(data.Left, t, mid); err != nil {
				return err
			}
			g.label(mid)
			return g.genCond(data.Right, t, f)
		case data.Op.IsRelational():
			c, err := g.genCompare(data, g.boolType())
			if err != nil {
				return err
			}
			g.br(c, t, f)
			return nil
		}
	case hir.UnaryData:
		if data.Op == hir.UnLogNot {
			return g.genCond(data.Operand, f, t)
		}
	}
	v, err := g.genExpr(e)
	if err != nil {
		return err
	}
	if g.ctx.isFloat(e.Type) {
		v = g.cmp(ir.CmpNe, v, ir.ConstOp(g.ctx.floatConst(e.Type, 0)), g.boolType())
	}
	g.br(v, t, f)
	return nil
}
