package hir

import (
	"cc16/internal/source"
	"cc16/internal/types"
)

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	// ExprLiteral represents integer, float, char and string literals.
	ExprLiteral ExprKind = iota
	// ExprVarRef names a variable or a function.
	ExprVarRef
	ExprUnary
	ExprBinary
	// ExprAssign covers plain and compound assignment.
	ExprAssign
	ExprCall
	// ExprMember is s.f or p->f with the offset resolved.
	ExprMember
	ExprIndex
	// ExprCond is the ternary operator.
	ExprCond
	ExprCast
	ExprComma
	// ExprStmt is a GNU statement expression ({ ...; value; }).
	ExprStmt
)

func (k ExprKind) String() string {
	switch k {
	case ExprLiteral:
		return "Literal"
	case ExprVarRef:
		return "VarRef"
	case ExprUnary:
		return "Unary"
	case ExprBinary:
		return "Binary"
	case ExprAssign:
		return "Assign"
	case ExprCall:
		return "Call"
	case ExprMember:
		return "Member"
	case ExprIndex:
		return "Index"
	case ExprCond:
		return "Cond"
	case ExprCast:
		return "Cast"
	case ExprComma:
		return "Comma"
	case ExprStmt:
		return "StmtExpr"
	default:
		return "Unknown"
	}
}

// Expr represents a typed expression.
type Expr struct {
	Kind ExprKind
	Type types.TypeID
	Span source.Span
	Data ExprData
}

// ExprData is the interface for expression-specific data.
type ExprData interface {
	exprData()
}

// LiteralKind enumerates literal value kinds.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralString
)

type LiteralData struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string // raw bytes, without the terminating NUL
}

func (LiteralData) exprData() {}

type VarRefData struct {
	Name string
}

func (VarRefData) exprData() {}

type UnaryData struct {
	Op      UnaryOp
	Operand *Expr
}

func (UnaryData) exprData() {}

type BinaryData struct {
	Op    BinaryOp
	Left  *Expr
	Right *Expr
}

func (BinaryData) exprData() {}

// AssignData holds `Target = Value` or, with Op set, `Target op= Value`.
type AssignData struct {
	Op     BinaryOp // 0 for plain assignment
	Target *Expr
	Value  *Expr
}

func (AssignData) exprData() {}

type CallData struct {
	Callee *Expr
	Args   []*Expr
}

func (CallData) exprData() {}

// Name returns the callee name when calling a named function directly.
func (c CallData) Name() (string, bool) {
	if c.Callee == nil || c.Callee.Kind != ExprVarRef {
		return "", false
	}
	ref, ok := c.Callee.Data.(VarRefData)
	return ref.Name, ok
}

type MemberData struct {
	Object *Expr
	Field  string
	Offset uint32
	Arrow  bool
}

func (MemberData) exprData() {}

type IndexData struct {
	Object *Expr
	Index  *Expr
}

func (IndexData) exprData() {}

type CondData struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

func (CondData) exprData() {}

type CastData struct {
	Value *Expr
}

func (CastData) exprData() {}

type CommaData struct {
	Exprs []*Expr
}

func (CommaData) exprData() {}

// StmtExprData yields the value of its last expression statement.
type StmtExprData struct {
	Block *Block
}

func (StmtExprData) exprData() {}
