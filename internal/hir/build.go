package hir

import (
	"fortio.org/safecast"

	"cc16/internal/types"
)

// Builder constructs typed trees by hand. The front end has its own
// construction path; Builder serves tests and tools that synthesise units.
type Builder struct {
	Types *types.Interner
}

func NewBuilder(in *types.Interner) *Builder {
	if in == nil {
		in = types.NewInterner()
	}
	return &Builder{Types: in}
}

// Unit wraps the builder's interner and the given items into a Unit.
func (b *Builder) Unit(name string, globals []*VarDecl, funcs ...*Func) *Unit {
	return &Unit{Name: name, Types: b.Types, Globals: globals, Funcs: funcs}
}

// Expressions -----------------------------------------------------------------

// Int is an int literal.
func (b *Builder) Int(v int64) *Expr {
	return b.IntOf(v, b.Types.Builtins().Int)
}

func (b *Builder) IntOf(v int64, t types.TypeID) *Expr {
	return &Expr{Kind: ExprLiteral, Type: t, Data: LiteralData{Kind: LiteralInt, Int: v}}
}

func (b *Builder) Float(v float64, t types.TypeID) *Expr {
	return &Expr{Kind: ExprLiteral, Type: t, Data: LiteralData{Kind: LiteralFloat, Float: v}}
}

// Str is a string literal typed char[len+1].
func (b *Builder) Str(s string) *Expr {
	n := safecast.MustConv[uint32](len(s) + 1)
	t := b.Types.ArrayOf(b.Types.Builtins().Char, n)
	return &Expr{Kind: ExprLiteral, Type: t, Data: LiteralData{Kind: LiteralString, Str: s}}
}

func (b *Builder) Ref(name string, t types.TypeID) *Expr {
	return &Expr{Kind: ExprVarRef, Type: t, Data: VarRefData{Name: name}}
}

func (b *Builder) Unary(op UnaryOp, x *Expr, t types.TypeID) *Expr {
	return &Expr{Kind: ExprUnary, Type: t, Data: UnaryData{Op: op, Operand: x}}
}

func (b *Builder) Binary(op BinaryOp, l, r *Expr, t types.TypeID) *Expr {
	return &Expr{Kind: ExprBinary, Type: t, Data: BinaryData{Op: op, Left: l, Right: r}}
}

func (b *Builder) Assign(target, value *Expr) *Expr {
	return &Expr{Kind: ExprAssign, Type: target.Type, Data: AssignData{Target: target, Value: value}}
}

func (b *Builder) CompoundAssign(op BinaryOp, target, value *Expr) *Expr {
	return &Expr{Kind: ExprAssign, Type: target.Type, Data: AssignData{Op: op, Target: target, Value: value}}
}

// Call calls a named function; t is the result type.
func (b *Builder) Call(name string, t types.TypeID, args ...*Expr) *Expr {
	callee := b.Ref(name, types.NoTypeID)
	return &Expr{Kind: ExprCall, Type: t, Data: CallData{Callee: callee, Args: args}}
}

// CallIndirect calls through a function pointer expression.
func (b *Builder) CallIndirect(fn *Expr, t types.TypeID, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Type: t, Data: CallData{Callee: fn, Args: args}}
}

func (b *Builder) Member(obj *Expr, field string, offset uint32, arrow bool, t types.TypeID) *Expr {
	return &Expr{Kind: ExprMember, Type: t, Data: MemberData{Object: obj, Field: field, Offset: offset, Arrow: arrow}}
}

func (b *Builder) Index(obj, idx *Expr, t types.TypeID) *Expr {
	return &Expr{Kind: ExprIndex, Type: t, Data: IndexData{Object: obj, Index: idx}}
}

func (b *Builder) Cond(c, then, els *Expr, t types.TypeID) *Expr {
	return &Expr{Kind: ExprCond, Type: t, Data: CondData{Cond: c, Then: then, Else: els}}
}

func (b *Builder) Cast(x *Expr, t types.TypeID) *Expr {
	return &Expr{Kind: ExprCast, Type: t, Data: CastData{Value: x}}
}

func (b *Builder) Comma(exprs ...*Expr) *Expr {
	t := types.NoTypeID
	if len(exprs) > 0 {
		t = exprs[len(exprs)-1].Type
	}
	return &Expr{Kind: ExprComma, Type: t, Data: CommaData{Exprs: exprs}}
}

func (b *Builder) StmtExpr(t types.TypeID, stmts ...*Stmt) *Expr {
	return &Expr{Kind: ExprStmt, Type: t, Data: StmtExprData{Block: &Block{Stmts: stmts}}}
}

// Statements ------------------------------------------------------------------

// Var declares an auto local with an optional scalar initializer.
func (b *Builder) Var(name string, t types.TypeID, init *Expr) *VarDecl {
	v := &VarDecl{Name: name, Type: t}
	if init != nil {
		v.Init = &Init{Expr: init}
	}
	return v
}

func (b *Builder) Decl(vars ...*VarDecl) *Stmt {
	return &Stmt{Kind: StmtDecl, Data: DeclData{Vars: vars}}
}

func (b *Builder) ExprS(e *Expr) *Stmt {
	return &Stmt{Kind: StmtExpr, Data: ExprStmtData{Expr: e}}
}

func (b *Builder) Return(e *Expr) *Stmt {
	return &Stmt{Kind: StmtReturn, Data: ReturnData{Value: e}}
}

func (b *Builder) If(c *Expr, then, els *Stmt) *Stmt {
	return &Stmt{Kind: StmtIf, Data: IfData{Cond: c, Then: then, Else: els}}
}

func (b *Builder) While(c *Expr, body *Stmt) *Stmt {
	return &Stmt{Kind: StmtWhile, Data: LoopData{Cond: c, Body: body}}
}

func (b *Builder) DoWhile(body *Stmt, c *Expr) *Stmt {
	return &Stmt{Kind: StmtDoWhile, Data: LoopData{Cond: c, Body: body}}
}

func (b *Builder) For(init *Stmt, c, post *Expr, body *Stmt) *Stmt {
	return &Stmt{Kind: StmtFor, Data: ForData{Init: init, Cond: c, Post: post, Body: body}}
}

func (b *Builder) Switch(v *Expr, cases ...SwitchCase) *Stmt {
	return &Stmt{Kind: StmtSwitch, Data: SwitchData{Value: v, Cases: cases}}
}

func (b *Builder) Break() *Stmt {
	return &Stmt{Kind: StmtBreak, Data: BreakData{}}
}

func (b *Builder) Continue() *Stmt {
	return &Stmt{Kind: StmtContinue, Data: ContinueData{}}
}

func (b *Builder) Goto(label string) *Stmt {
	return &Stmt{Kind: StmtGoto, Data: GotoData{Label: label}}
}

func (b *Builder) Labeled(label string, s *Stmt) *Stmt {
	return &Stmt{Kind: StmtLabeled, Data: LabeledData{Label: label, Stmt: s}}
}

func (b *Builder) Block(stmts ...*Stmt) *Stmt {
	return &Stmt{Kind: StmtBlock, Data: BlockData{Block: &Block{Stmts: stmts}}}
}

func (b *Builder) Asm(text string) *Stmt {
	return &Stmt{Kind: StmtAsm, Data: AsmData{Text: text}}
}

// Func builds a cdecl function definition.
func (b *Builder) Func(name string, result types.TypeID, params []*Param, stmts ...*Stmt) *Func {
	return &Func{Name: name, Result: result, Params: params, Body: &Block{Stmts: stmts}}
}

func (b *Builder) Param(name string, t types.TypeID) *Param {
	return &Param{Name: name, Type: t}
}
