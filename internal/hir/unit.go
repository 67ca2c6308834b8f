package hir

import (
	"cc16/internal/source"
	"cc16/internal/types"
)

// Unit is one typed, scope-resolved translation unit as handed over by the
// front end. Struct layouts, implicit casts and constant expressions are
// already resolved.
type Unit struct {
	Name    string
	Types   *types.Interner
	Globals []*VarDecl
	Funcs   []*Func
}

// CallConv selects who removes arguments from the stack.
type CallConv uint8

const (
	// ConvCdecl means the caller cleans up (required for variadic functions).
	ConvCdecl CallConv = iota
	// ConvStdcall means the callee returns with `ret N`.
	ConvStdcall
)

func (c CallConv) String() string {
	if c == ConvStdcall {
		return "stdcall"
	}
	return "cdecl"
}

// Func is a function definition or, when Body is nil, a prototype.
type Func struct {
	Name     string
	Span     source.Span
	Result   types.TypeID
	Params   []*Param
	Variadic bool
	Conv     CallConv
	Static   bool
	Body     *Block
}

// IsDefinition reports whether the function has a body.
func (f *Func) IsDefinition() bool {
	return f != nil && f.Body != nil
}

type Param struct {
	Name string
	Type types.TypeID
	Span source.Span
}

// Storage is the storage class of a variable declaration.
type Storage uint8

const (
	StorageAuto Storage = iota
	StorageStatic
	StorageExtern
)

func (s Storage) String() string {
	switch s {
	case StorageStatic:
		return "static"
	case StorageExtern:
		return "extern"
	default:
		return "auto"
	}
}

// VarDecl declares a global or a local.
type VarDecl struct {
	Name    string
	Type    types.TypeID
	Span    source.Span
	Storage Storage
	Init    *Init
	// Length is the runtime element count of a variable-length array.
	Length *Expr
}

// Init is an initializer. Either Expr is set (scalars, and string literals
// for char arrays) or Items lists the flattened leaves of a brace initializer
// with byte offsets resolved by the front end.
type Init struct {
	Expr  *Expr
	Items []InitItem
}

// InitItem is one scalar leaf of an aggregate initializer.
type InitItem struct {
	Offset uint32
	Value  *Expr
}

// Block is a braced statement list; it opens a scope.
type Block struct {
	Stmts []*Stmt
	Span  source.Span
}
