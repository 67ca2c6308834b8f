package hir

import (
	"cc16/internal/source"
)

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	StmtDecl StmtKind = iota
	StmtExpr
	StmtReturn
	StmtIf
	StmtWhile
	StmtDoWhile
	StmtFor
	StmtSwitch
	StmtBreak
	StmtContinue
	StmtGoto
	StmtLabeled
	StmtBlock
	StmtAsm
	StmtEmpty
)

func (k StmtKind) String() string {
	switch k {
	case StmtDecl:
		return "Decl"
	case StmtExpr:
		return "Expr"
	case StmtReturn:
		return "Return"
	case StmtIf:
		return "If"
	case StmtWhile:
		return "While"
	case StmtDoWhile:
		return "DoWhile"
	case StmtFor:
		return "For"
	case StmtSwitch:
		return "Switch"
	case StmtBreak:
		return "Break"
	case StmtContinue:
		return "Continue"
	case StmtGoto:
		return "Goto"
	case StmtLabeled:
		return "Labeled"
	case StmtBlock:
		return "Block"
	case StmtAsm:
		return "Asm"
	case StmtEmpty:
		return "Empty"
	default:
		return "Unknown"
	}
}

// Stmt represents a statement.
type Stmt struct {
	Kind StmtKind
	Span source.Span
	Data StmtData
}

// StmtData is the interface for statement-specific data.
type StmtData interface {
	stmtData()
}

type DeclData struct {
	Vars []*VarDecl
}

func (DeclData) stmtData() {}

type ExprStmtData struct {
	Expr *Expr
}

func (ExprStmtData) stmtData() {}

type ReturnData struct {
	Value *Expr // nil for bare return
}

func (ReturnData) stmtData() {}

type IfData struct {
	Cond *Expr
	Then *Stmt
	Else *Stmt // nil if no else branch
}

func (IfData) stmtData() {}

// LoopData serves while and do-while.
type LoopData struct {
	Cond *Expr
	Body *Stmt
}

func (LoopData) stmtData() {}

type ForData struct {
	Init *Stmt // nil if none; a Decl scopes to the loop
	Cond *Expr // nil means forever
	Post *Expr
	Body *Stmt
}

func (ForData) stmtData() {}

// SwitchCase is a run of case labels followed by statements. Execution falls
// into the next case unless it breaks.
type SwitchCase struct {
	Values  []int64
	Default bool
	Body    []*Stmt
	Span    source.Span
}

type SwitchData struct {
	Value *Expr
	Cases []SwitchCase
}

func (SwitchData) stmtData() {}

type BreakData struct{}

func (BreakData) stmtData() {}

type ContinueData struct{}

func (ContinueData) stmtData() {}

type GotoData struct {
	Label string
}

func (GotoData) stmtData() {}

type LabeledData struct {
	Label string
	Stmt  *Stmt
}

func (LabeledData) stmtData() {}

type BlockData struct {
	Block *Block
}

func (BlockData) stmtData() {}

// AsmData is inline assembly passed through verbatim.
type AsmData struct {
	Text string
}

func (AsmData) stmtData() {}

type EmptyData struct{}

func (EmptyData) stmtData() {}
